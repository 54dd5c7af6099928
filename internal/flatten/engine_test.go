package flatten_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/flatten"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

const groupsDN = "ou=groups,dc=example,dc=org"

func newEngine(mem *directory.MemoryAdapter) *flatten.Engine {
	return &flatten.Engine{
		Dir:      mem,
		GroupsDN: groupsDN,
		FlattenedAttrs: map[sgrights.Mright]string{
			sgrights.MrightMember:  "member",
			sgrights.MrightReader:  "flattenedReader",
			sgrights.MrightUpdater: "flattenedUpdater",
			sgrights.MrightAdmin:   "flattenedAdmin",
		},
	}
}

func TestUpdateOneFlattensDirectMembers(t *testing.T) {
	mem := directory.NewMemoryAdapter()
	aliceDN := "cn=alice,ou=people,dc=example,dc=org"
	mem.Seed("cn=team,"+groupsDN, map[string][]string{
		"memberURL;x-member": {aliceDN},
	})

	e := newEngine(mem)
	ctx := context.Background()
	err := e.UpdateCascade(ctx, []flatten.WorkItem{{ID: "team", Mright: sgrights.MrightMember}})
	require.NoError(t, err)

	entry, err := mem.Read(ctx, "cn=team,"+groupsDN, []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, []string{aliceDN}, entry.Values("member"))
}

func TestUpdateOneUsesSentinelForEmptyMembers(t *testing.T) {
	mem := directory.NewMemoryAdapter()
	mem.Seed("cn=team,"+groupsDN, map[string][]string{})

	e := newEngine(mem)
	ctx := context.Background()
	err := e.UpdateCascade(ctx, []flatten.WorkItem{{ID: "team", Mright: sgrights.MrightMember}})
	require.NoError(t, err)

	entry, err := mem.Read(ctx, "cn=team,"+groupsDN, []string{"member"})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, entry.Values("member"))
}

func TestUpdateCascadesThroughNestedGroup(t *testing.T) {
	mem := directory.NewMemoryAdapter()
	aliceDN := "cn=alice,ou=people,dc=example,dc=org"
	childDN := "cn=child," + groupsDN
	parentDN := "cn=parent," + groupsDN

	mem.Seed(childDN, map[string][]string{
		"memberURL;x-member": {aliceDN},
		"member":             {aliceDN}, // already flattened
	})
	mem.Seed(parentDN, map[string][]string{
		"memberURL;x-member": {childDN},
	})

	e := newEngine(mem)
	ctx := context.Background()

	// Recompute parent only: its direct member is child, whose
	// flattened member set is already stored, so parent's closure
	// picks up child's flattened members.
	err := e.UpdateCascade(ctx, []flatten.WorkItem{{ID: "parent", Mright: sgrights.MrightMember}})
	require.NoError(t, err)

	entry, err := mem.Read(ctx, parentDN, []string{"member"})
	require.NoError(t, err)
	// closure = direct_dns ∪ flattened_member(child): childDN itself
	// stays in the closure alongside what it expands to (spec.md §4.6).
	assert.ElementsMatch(t, []string{aliceDN, childDN}, entry.Values("member"))
}

func TestDependentsRequeueOnChange(t *testing.T) {
	mem := directory.NewMemoryAdapter()
	aliceDN := "cn=alice,ou=people,dc=example,dc=org"
	bobDN := "cn=bob,ou=people,dc=example,dc=org"
	childDN := "cn=child," + groupsDN
	parentDN := "cn=parent," + groupsDN

	mem.Seed(childDN, map[string][]string{
		"memberURL;x-member": {aliceDN},
		"member":             {aliceDN, childDN}, // already flattened, keeping child's own DN
	})
	// parent directly contains child; its flattened member set already
	// holds child's own DN (per the fixed closure), which is how
	// dependentsOf finds it once child's membership changes.
	mem.Seed(parentDN, map[string][]string{
		"memberURL;x-member": {childDN},
		"member":             {aliceDN, childDN},
	})

	e := newEngine(mem)
	ctx := context.Background()

	// Child gains a new direct member: recomputing child should cascade
	// into parent via dependentsOf, since parent's flattened set
	// already contains child's own DN.
	mem.Seed(childDN, map[string][]string{
		"memberURL;x-member": {aliceDN, bobDN},
		"member":             {aliceDN, childDN},
	})

	err := e.UpdateCascade(ctx, []flatten.WorkItem{{ID: "child", Mright: sgrights.MrightMember}})
	require.NoError(t, err)

	childEntry, err := mem.Read(ctx, childDN, []string{"member"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{aliceDN, bobDN}, childEntry.Values("member"))

	parentEntry, err := mem.Read(ctx, parentDN, []string{"member"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{aliceDN, bobDN, childDN}, parentEntry.Values("member"))
}
