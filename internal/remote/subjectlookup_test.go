package remote_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/remote"
)

func TestDirectorySubjectLookup(t *testing.T) {
	mem := directory.NewMemoryAdapter()
	mem.Seed("uid=alice,ou=people,dc=example,dc=org", map[string][]string{
		"uid": {"alice"},
	})

	lookup := remote.DirectorySubjectLookup(mem, []remote.SubjectSourceConfig{
		{DN: "ou=people,dc=example,dc=org", MatchAttr: "uid"},
	})

	dns, err := lookup(context.Background(), []string{"alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"uid=alice,ou=people,dc=example,dc=org"}, dns)
}

func TestDirectorySubjectLookupNoMatch(t *testing.T) {
	mem := directory.NewMemoryAdapter()
	lookup := remote.DirectorySubjectLookup(mem, []remote.SubjectSourceConfig{
		{DN: "ou=people,dc=example,dc=org", MatchAttr: "uid"},
	})
	dns, err := lookup(context.Background(), []string{"bob"})
	require.NoError(t, err)
	assert.Empty(t, dns)
}
