package main

import (
	"fmt"

	"github.com/ory/x/configx"
	"github.com/ory/x/logrusx"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sgconfig "github.com/sgroupald/sgroupald/internal/driver/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "configuration utilities"}
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "validate a configuration file against the embedded schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := logrusx.New("sgroupald", version)
			flags := pflag.NewFlagSet("config-validate", pflag.ContinueOnError)
			_, err := sgconfig.NewDefault(cmd.Context(), flags, l, configx.WithConfigFiles(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}
