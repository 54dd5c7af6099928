// Package config loads and validates sgroupald's configuration the way
// keto's internal/driver/config loads namespace configuration:
// koanf-backed (github.com/ory/x/configx), schema-checked against an
// embedded JSON Schema, with typed accessors layered over the raw
// provider.
package config

import (
	"context"
	"embed"
	"time"

	"github.com/ory/x/configx"
	"github.com/ory/x/logrusx"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/sgroupald/sgroupald/internal/sgroup"
)

//go:embed schema.json
var schemaFS embed.FS

// Schema returns the embedded JSON Schema sgroupald's configuration is
// validated against.
func Schema() []byte {
	b, err := schemaFS.ReadFile("schema.json")
	if err != nil {
		panic(err) // embedded at build time, cannot fail at runtime
	}
	return b
}

const (
	KeyTrustedAuthBearer = "trusted_auth_bearer"
	KeyCASPrefixURL       = "cas.prefix_url"
	KeyLDAPURL            = "ldap.url"
	KeyLDAPBindDN         = "ldap.bind_dn"
	KeyLDAPBindPassword   = "ldap.bind_password"
	KeyLDAPBaseDN         = "ldap.base_dn"
	KeyLDAPGroupsDN       = "ldap.groups_dn"
	KeyLDAPStemFilter     = "ldap.stem.filter"
	KeyLDAPStemSeparator  = "ldap.stem.separator"
	KeyLDAPStemRootID     = "ldap.stem.root_id"
	KeyLDAPFlattenedAttrs = "ldap.groups_flattened_attr"
	KeyLDAPSubjectSources = "ldap.subject_sources"
	KeyRemotes            = "remotes"
)

// SubjectSource names one directory subtree subjects (users, or
// sgroups themselves) can be drawn from.
type SubjectSource struct {
	DN           string   `json:"dn" koanf:"dn"`
	Name         string   `json:"name" koanf:"name"`
	DisplayAttrs []string `json:"display_attrs" koanf:"display_attrs"`
}

// RemoteConfig describes one sql:// remote the remote subject resolver
// can dispatch to.
type RemoteConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	Driver      string `koanf:"driver"`
	User        string `koanf:"user"`
	Password    string `koanf:"password"`
	Periodicity string `koanf:"periodicity"`
}

// LDAPConfig is the directory connection and schema configuration.
type LDAPConfig struct {
	URL                string            `koanf:"url"`
	BindDN             string            `koanf:"bind_dn"`
	BindPassword       string            `koanf:"bind_password"`
	BaseDN             string            `koanf:"base_dn"`
	GroupsDN           string            `koanf:"groups_dn"`
	StemObjectClasses  []string          `koanf:"stem_object_classes"`
	GroupObjectClasses []string          `koanf:"group_object_classes"`
	Stem               struct {
		Filter    string `koanf:"filter"`
		Separator string `koanf:"separator"`
		RootID    string `koanf:"root_id"`
	} `koanf:"stem"`
	SubjectSources       []SubjectSource   `koanf:"subject_sources"`
	GroupsFlattenedAttr  map[string]string `koanf:"groups_flattened_attr"`
	SgroupAttrs          map[string]struct {
		Label       string `koanf:"label"`
		Description string `koanf:"description"`
	} `koanf:"sgroup_attrs"`
}

// hasGroupsDNAsSubjectSource reports whether GroupsDN is itself listed
// among SubjectSources, which the authorization resolver and search
// endpoints require so sgroups can be searched as subjects.
func (c LDAPConfig) hasGroupsDNAsSubjectSource() bool {
	for _, ss := range c.SubjectSources {
		if ss.DN == c.GroupsDN {
			return true
		}
	}
	return false
}

// Config wraps a configx.Provider with sgroupald's typed view over it.
type Config struct {
	p *configx.Provider
	l *logrusx.Logger
}

// New wraps an already-built configx.Provider, the way
// provider_test.go's "uses passed configx provider" case does.
func New(p *configx.Provider, l *logrusx.Logger) *Config {
	return &Config{p: p, l: l}
}

// NewDefault builds a configx.Provider against the embedded schema and
// wraps it, the way keto's config.NewDefault does for its own schema.
func NewDefault(ctx context.Context, flags *pflag.FlagSet, l *logrusx.Logger, opts ...configx.OptionModifier) (*Config, error) {
	opts = append([]configx.OptionModifier{configx.WithFlags(flags)}, opts...)
	p, err := configx.New(ctx, Schema(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading sgroupald configuration")
	}
	cfg := New(p, l)
	if err := cfg.validateSemantics(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSemantics enforces the two cross-field checks the embedded
// JSON Schema cannot express on its own: ldap.groups_dn must be listed
// among ldap.subject_sources (my_types.rs's ldap_config_checker), and
// every configured remote's periodicity must parse.
func (c *Config) validateSemantics() error {
	ldap := c.LDAP()
	if !ldap.hasGroupsDNAsSubjectSource() {
		return errors.Errorf("ldap.groups_dn %q must be listed in ldap.subject_sources", ldap.GroupsDN)
	}
	for id, r := range c.Remotes() {
		if err := ValidatePeriodicity(r.Periodicity); err != nil {
			return errors.Wrapf(err, "remote %q has an invalid periodicity %q (hint: validate with a cron expression)", id, r.Periodicity)
		}
	}
	return nil
}

// TrustedAuthBearer returns the configured shared secret, or "" if the
// trusted-admin bearer path is disabled.
func (c *Config) TrustedAuthBearer() string { return c.p.String(KeyTrustedAuthBearer) }

// CASPrefixURL returns the CAS server's prefix URL used to validate
// login tickets.
func (c *Config) CASPrefixURL() string { return c.p.String(KeyCASPrefixURL) }

// LDAP decodes and returns the ldap.* section.
func (c *Config) LDAP() LDAPConfig {
	var cfg LDAPConfig
	if err := c.p.Koanf.Unmarshal("ldap", &cfg); err != nil {
		c.l.WithError(err).Error("failed to decode ldap configuration")
	}
	if cfg.Stem.Separator == "" {
		cfg.Stem.Separator = "."
	}
	return cfg
}

// Remotes decodes and returns the remotes.* section, keyed by remote
// id.
func (c *Config) Remotes() map[string]RemoteConfig {
	remotes := map[string]RemoteConfig{}
	if err := c.p.Koanf.Unmarshal(KeyRemotes, &remotes); err != nil {
		c.l.WithError(err).Error("failed to decode remotes configuration")
	}
	return remotes
}

// PathConfig builds the sgroup.PathConfig described by ldap.stem.
func (c *Config) PathConfig() (*sgroup.PathConfig, error) {
	ldap := c.LDAP()
	return sgroup.NewPathConfig(ldap.Stem.Filter, ldap.Stem.Separator, ldap.Stem.RootID)
}

// ServeAddress returns the address the HTTP server listens on.
func (c *Config) ServeAddress() string {
	if v := c.p.String("serve.address"); v != "" {
		return v
	}
	return "127.0.0.1:4466"
}

// GracefulShutdownTimeout returns how long graceful shutdown waits for
// in-flight requests to drain.
func (c *Config) GracefulShutdownTimeout() time.Duration {
	if d := c.p.DurationF("serve.shutdown_timeout", 5*time.Second); d > 0 {
		return d
	}
	return 5 * time.Second
}

// Set overrides a single configuration key, used by tests the way
// provider_test.go's "reloads ... using Set()" case does.
func (c *Config) Set(key string, value interface{}) error {
	return c.p.Set(key, value)
}

func (c *Config) String(key string) string { return c.p.String(key) }

// TelemetryEnabled reports whether the anonymized startup ping is
// allowed to fire. Defaults to true, matching the embedded schema.
func (c *Config) TelemetryEnabled() bool {
	if !c.p.Exists("telemetry.enabled") {
		return true
	}
	return c.p.Bool("telemetry.enabled")
}
