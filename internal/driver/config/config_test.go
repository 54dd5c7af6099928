package config

import (
	"context"
	"os"
	"testing"

	"github.com/ory/x/configx"
	"github.com/ory/x/logrusx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// configFile writes content to a temporary file, returning the path,
// the same helper provider_test.go uses for test config fixtures.
func configFile(t *testing.T, content string) (path string) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(f.Name()) })

	_, err = f.WriteString(content)
	require.NoError(t, err)
	return f.Name()
}

const validConfig = `
cas:
  prefix_url: https://cas.example.org/cas
ldap:
  url: ldaps://ldap.example.org
  bind_dn: cn=sgroupald,dc=example,dc=org
  bind_password: secret
  base_dn: dc=example,dc=org
  groups_dn: ou=groups,dc=example,dc=org
  stem:
    filter: '^[a-zA-Z0-9_.-]+$'
  subject_sources:
    - dn: ou=groups,dc=example,dc=org
      name: groups
      display_attrs: [cn]
    - dn: ou=people,dc=example,dc=org
      name: people
      display_attrs: [uid, cn]
  groups_flattened_attr:
    member: member
    reader: reader
    updater: updater
    admin: admin
remotes:
  crm:
    host: crm.example.org
    driver: mysql
    user: sgroupald
    password: secret
    periodicity: "*/5 * * * *"
`

func setup(t *testing.T, content string) (*test.Hook, *Config, error) {
	t.Helper()
	hook := test.Hook{}
	l := logrusx.New("sgroupald-test", "test", logrusx.WithHook(&hook))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg, err := NewDefault(
		ctx,
		pflag.NewFlagSet("test", pflag.ContinueOnError),
		l,
		configx.WithConfigFiles(configFile(t, content)),
	)
	return &hook, cfg, err
}

func TestNewDefault_ValidConfig(t *testing.T) {
	_, cfg, err := setup(t, validConfig)
	require.NoError(t, err)

	assert.Equal(t, "https://cas.example.org/cas", cfg.CASPrefixURL())

	ldap := cfg.LDAP()
	assert.Equal(t, "ou=groups,dc=example,dc=org", ldap.GroupsDN)
	assert.Equal(t, ".", ldap.Stem.Separator)
	require.Len(t, ldap.SubjectSources, 2)

	remotes := cfg.Remotes()
	require.Contains(t, remotes, "crm")
	assert.Equal(t, "mysql", remotes["crm"].Driver)
}

func TestNewDefault_GroupsDNMustBeSubjectSource(t *testing.T) {
	bad := `
cas:
  prefix_url: https://cas.example.org/cas
ldap:
  url: ldaps://ldap.example.org
  bind_dn: cn=sgroupald,dc=example,dc=org
  bind_password: secret
  base_dn: dc=example,dc=org
  groups_dn: ou=groups,dc=example,dc=org
  stem:
    filter: '^[a-zA-Z0-9_.-]+$'
  subject_sources:
    - dn: ou=people,dc=example,dc=org
      name: people
      display_attrs: [uid]
  groups_flattened_attr:
    member: member
`
	_, _, err := setup(t, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be listed in ldap.subject_sources")
}

func TestNewDefault_InvalidRemotePeriodicity(t *testing.T) {
	bad := `
cas:
  prefix_url: https://cas.example.org/cas
ldap:
  url: ldaps://ldap.example.org
  bind_dn: cn=sgroupald,dc=example,dc=org
  bind_password: secret
  base_dn: dc=example,dc=org
  groups_dn: ou=groups,dc=example,dc=org
  stem:
    filter: '^[a-zA-Z0-9_.-]+$'
  subject_sources:
    - dn: ou=groups,dc=example,dc=org
      name: groups
      display_attrs: [cn]
  groups_flattened_attr:
    member: member
remotes:
  crm:
    host: crm.example.org
    driver: mysql
    user: sgroupald
    password: secret
    periodicity: "not a schedule"
`
	_, _, err := setup(t, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid periodicity")
}

func TestConfig_Set(t *testing.T) {
	_, cfg, err := setup(t, validConfig)
	require.NoError(t, err)

	assert.True(t, cfg.TelemetryEnabled())
	require.NoError(t, cfg.Set("telemetry.enabled", false))
	assert.False(t, cfg.TelemetryEnabled())
}
