package mutation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/mutation"
	"github.com/sgroupald/sgroupald/internal/sgerror"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

func TestValidateRejectsMemberOnStem(t *testing.T) {
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpAdd: mutation.URLSet{"cn=alice,ou=people,dc=example,dc=org": {}},
		},
	}
	_, err := mutation.Validate(true, nil, mods)
	require.Error(t, err)
	sgErr, ok := sgerror.As(err)
	require.True(t, ok)
	assert.Equal(t, sgerror.InvalidMods, sgErr.Kind)
}

func TestValidateAllowsMemberOnGroup(t *testing.T) {
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpAdd: mutation.URLSet{"cn=alice,ou=people,dc=example,dc=org": {}},
		},
	}
	out, err := mutation.Validate(false, nil, mods)
	require.NoError(t, err)
	assert.False(t, out.IsEmpty())
}

func TestValidateRejectsRemoteURLOutsideMember(t *testing.T) {
	mods := mutation.Mods{
		sgrights.MrightAdmin: mutation.SubMods{
			mutation.OpReplace: mutation.URLSet{"sql://remote1/?select=dn": {}},
		},
	}
	_, err := mutation.Validate(false, nil, mods)
	require.Error(t, err)
}

func TestValidateRejectsRemoteURLNotAlone(t *testing.T) {
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpReplace: mutation.URLSet{
				"sql://remote1/?select=dn":            {},
				"cn=alice,ou=people,dc=example,dc=org": {},
			},
		},
	}
	_, err := mutation.Validate(false, nil, mods)
	require.Error(t, err)
}

func TestValidateAllowsSoleRemoteURLReplace(t *testing.T) {
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpReplace: mutation.URLSet{"sql://remote1/?select=dn": {}},
		},
	}
	out, err := mutation.Validate(false, nil, mods)
	require.NoError(t, err)
	assert.False(t, out.IsEmpty())
}

type fakeCurrent struct {
	urls mutation.URLSet
}

func (f fakeCurrent) CurrentDirect(sgrights.Mright) (mutation.URLSet, bool, error) {
	return f.urls, true, nil
}

func TestValidateSimplifiesLongReplace(t *testing.T) {
	current := fakeCurrent{urls: mutation.URLSet{
		"a": {}, "b": {}, "c": {}, "d": {}, "e": {},
	}}
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpReplace: mutation.URLSet{
				"a": {}, "b": {}, "c": {}, "f": {}, "g": {},
			},
		},
	}
	out, err := mutation.Validate(false, current, mods)
	require.NoError(t, err)
	submods := out[sgrights.MrightMember]
	_, hasReplace := submods[mutation.OpReplace]
	assert.False(t, hasReplace)
	assert.ElementsMatch(t, keys(submods[mutation.OpAdd]), []string{"f", "g"})
	assert.ElementsMatch(t, keys(submods[mutation.OpDelete]), []string{"d", "e"})
}

func TestValidateDropsNoOpReplace(t *testing.T) {
	current := fakeCurrent{urls: mutation.URLSet{
		"a": {}, "b": {}, "c": {}, "d": {}, "e": {},
	}}
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpReplace: mutation.URLSet{
				"a": {}, "b": {}, "c": {}, "d": {}, "e": {},
			},
		},
	}
	out, err := mutation.Validate(false, current, mods)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestRequiredRight(t *testing.T) {
	mods := mutation.Mods{sgrights.MrightMember: mutation.SubMods{}}
	assert.Equal(t, sgrights.Updater, mods.RequiredRight())

	mods = mutation.Mods{sgrights.MrightAdmin: mutation.SubMods{}}
	assert.Equal(t, sgrights.Admin, mods.RequiredRight())
}

func TestCheckMemberTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpAdd: mutation.URLSet{
				"cn=alice,ou=people,dc=example,dc=org": {Enddate: "2026-01-20T00:00:00Z"},
			},
		},
	}
	assert.NoError(t, mutation.CheckMemberTTL(mods, 30, now))

	mods[sgrights.MrightMember][mutation.OpAdd]["cn=bob,ou=people,dc=example,dc=org"] = mutation.URLOpts{
		Enddate: "2026-02-15T00:00:00Z",
	}
	err := mutation.CheckMemberTTL(mods, 30, now)
	require.Error(t, err)
}

func TestCheckMemberTTLRequiresEnddate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mods := mutation.Mods{
		sgrights.MrightMember: mutation.SubMods{
			mutation.OpAdd: mutation.URLSet{
				"cn=alice,ou=people,dc=example,dc=org": {},
			},
		},
	}
	err := mutation.CheckMemberTTL(mods, 30, now)
	require.Error(t, err)
}

func keys(s mutation.URLSet) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
