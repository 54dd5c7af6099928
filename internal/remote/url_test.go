package remote_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/remote"
)

func TestIsRemoteQueryURL(t *testing.T) {
	assert.True(t, remote.IsRemoteQueryURL("sql://payroll/?select=uid from t"))
	assert.False(t, remote.IsRemoteQueryURL("cn=alice,ou=people,dc=example,dc=org"))
}

func TestParseQuery(t *testing.T) {
	q, err := remote.ParseQuery("sql://payroll/?select=select%20uid%20from%20employees")
	require.NoError(t, err)
	assert.Equal(t, "payroll", q.RemoteID)
	assert.Equal(t, "select uid from employees", q.Select)
}

func TestParseQueryRejectsNonSQLScheme(t *testing.T) {
	_, err := remote.ParseQuery("ldap://payroll/?select=uid")
	assert.Error(t, err)
}

func TestParseQueryRejectsMissingSelect(t *testing.T) {
	_, err := remote.ParseQuery("sql://payroll/")
	assert.Error(t, err)
}
