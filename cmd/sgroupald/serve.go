package main

import (
	"context"
	"net/http"

	"github.com/ory/graceful"
	"github.com/ory/x/logrusx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sgroupald/sgroupald/internal/directory"
	sgconfig "github.com/sgroupald/sgroupald/internal/driver/config"
	"github.com/sgroupald/sgroupald/internal/driver/registry"
	"github.com/sgroupald/sgroupald/internal/driver/telemetry"
	"github.com/sgroupald/sgroupald/internal/remote"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the sgroupald HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.Flags())
		},
	}
	cmd.Flags().String("config", "", "path to a configuration file")
	return cmd
}

func runServe(ctx context.Context, flags *pflag.FlagSet) error {
	l := logrusx.New("sgroupald", version)

	cfg, err := sgconfig.NewDefault(ctx, flags, l)
	if err != nil {
		return err
	}

	ldap := cfg.LDAP()
	subjectConn, err := directory.Open(directory.Config{
		URL:          ldap.URL,
		BindDN:       ldap.BindDN,
		BindPassword: ldap.BindPassword,
	}, l.Logger.WithField("component", "subject-lookup"))
	if err != nil {
		return err
	}
	defer subjectConn.Close()

	var sources []remote.SubjectSourceConfig
	for _, ss := range ldap.SubjectSources {
		matchAttr := "cn"
		if len(ss.DisplayAttrs) > 0 {
			matchAttr = ss.DisplayAttrs[0]
		}
		sources = append(sources, remote.SubjectSourceConfig{DN: ss.DN, MatchAttr: matchAttr})
	}
	lookup := remote.DirectorySubjectLookup(subjectConn, sources)

	reg, err := registry.New(ctx, cfg, l, lookup)
	if err != nil {
		return err
	}
	defer reg.Close()

	reporter := telemetry.New(cfg.TelemetryEnabled(), version, l.Logger.WithField("component", "telemetry"))
	reporter.Ping()
	defer reporter.Close()

	server := graceful.WithDefaults(&http.Server{
		Addr:    cfg.ServeAddress(),
		Handler: reg.Handler(),
	})
	l.Infof("sgroupald listening on %s", cfg.ServeAddress())
	return graceful.Graceful(server.ListenAndServe, server.Shutdown)
}
