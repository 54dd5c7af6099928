package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/authz"
	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/principal"
	"github.com/sgroupald/sgroupald/internal/sgroup"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

const groupsDN = "ou=groups,dc=example,dc=org"

func newResolver(t *testing.T) (*authz.Resolver, *directory.MemoryAdapter) {
	t.Helper()
	paths, err := sgroup.NewPathConfig(`^[a-zA-Z0-9_.-]+$`, ".", "")
	require.NoError(t, err)
	mem := directory.NewMemoryAdapter()
	return &authz.Resolver{
		Dir:                  mem,
		Paths:                paths,
		GroupsDN:             groupsDN,
		FlattenedMemberAttr:  "member",
	}, mem
}

func TestTrustedAdminBypassesEverything(t *testing.T) {
	r, mem := newResolver(t)
	mem.Seed("cn=a,"+groupsDN, map[string][]string{})

	ctx := context.Background()
	err := r.HasRightOnSelfOrAnyParent(ctx, principal.TrustedAdmin(), "a", sgrights.Admin)
	assert.NoError(t, err)

	best, err := r.BestRightOnSelfOrAnyParent(ctx, principal.TrustedAdmin(), "a")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, sgrights.Admin, *best)
}

func TestUserDirectRightOnSelf(t *testing.T) {
	r, mem := newResolver(t)
	mem.Seed("cn=a,"+groupsDN, map[string][]string{
		"memberURL;x-admin": {"cn=alice,ou=people,dc=example,dc=org"},
	})

	ctx := context.Background()
	p := principal.User("cn=alice,ou=people,dc=example,dc=org")
	err := r.HasRightOnSelfOrAnyParent(ctx, p, "a", sgrights.Admin)
	assert.NoError(t, err)

	err = r.HasRightOnSelfOrAnyParent(ctx, principal.User("cn=bob,ou=people,dc=example,dc=org"), "a", sgrights.Admin)
	assert.Error(t, err)
}

func TestUserInheritsRightFromParentStem(t *testing.T) {
	r, mem := newResolver(t)
	mem.Seed("cn=a,"+groupsDN, map[string][]string{
		"memberURL;x-admin": {"cn=alice,ou=people,dc=example,dc=org"},
	})
	mem.Seed("cn=a.b,"+groupsDN, map[string][]string{})
	mem.Seed("cn=a.b.c,"+groupsDN, map[string][]string{})

	ctx := context.Background()
	p := principal.User("cn=alice,ou=people,dc=example,dc=org")

	err := r.HasRightOnSelfOrAnyParent(ctx, p, "a.b.c", sgrights.Admin)
	assert.NoError(t, err)

	best, err := r.BestRightOnSelfOrAnyParent(ctx, p, "a.b.c")
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, sgrights.Admin, *best)
}

func TestReaderRightDoesNotSatisfyAdminRequirement(t *testing.T) {
	r, mem := newResolver(t)
	mem.Seed("cn=a,"+groupsDN, map[string][]string{
		"memberURL;x-reader": {"cn=alice,ou=people,dc=example,dc=org"},
	})

	ctx := context.Background()
	p := principal.User("cn=alice,ou=people,dc=example,dc=org")
	err := r.HasRightOnSelfOrAnyParent(ctx, p, "a", sgrights.Admin)
	assert.Error(t, err)

	err = r.HasRightOnSelfOrAnyParent(ctx, p, "a", sgrights.Reader)
	assert.NoError(t, err)
}

func TestMissingStemReportsNotExist(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()
	p := principal.User("cn=alice,ou=people,dc=example,dc=org")
	err := r.HasRightOnSelfOrAnyParent(ctx, p, "missing", sgrights.Admin)
	require.Error(t, err)
	var notExist *authz.NotExistError
	assert.ErrorAs(t, err, &notExist)
}

func TestMissingAncestorMidWalkReportsForbiddenNotNotExist(t *testing.T) {
	r, mem := newResolver(t)
	// "a.b" itself exists, but its parent stem "a" does not: the walk
	// must treat the missing ancestor as granting no right rather than
	// failing the whole lookup with NotExistError.
	mem.Seed("cn=a.b,"+groupsDN, map[string][]string{})

	ctx := context.Background()
	p := principal.User("cn=alice,ou=people,dc=example,dc=org")
	err := r.HasRightOnSelfOrAnyParent(ctx, p, "a.b", sgrights.Admin)
	require.Error(t, err)
	var forbidden *authz.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
	var notExist *authz.NotExistError
	assert.False(t, errors.As(err, &notExist))
}

func TestUserURLsIncludesFlattenedGroupMembership(t *testing.T) {
	r, mem := newResolver(t)
	aliceDN := "cn=alice,ou=people,dc=example,dc=org"
	mem.Seed("cn=team,"+groupsDN, map[string][]string{
		"member": {aliceDN},
	})

	urls, err := r.UserURLs(context.Background(), principal.User(aliceDN))
	require.NoError(t, err)
	assert.True(t, urls.Intersects([]string{aliceDN}))
	assert.True(t, urls.Intersects([]string{"cn=team," + groupsDN}))
	assert.False(t, urls.Intersects([]string{"cn=other," + groupsDN}))
}
