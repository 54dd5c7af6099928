package sgrights_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/sgrights"
)

func TestAllowedRights(t *testing.T) {
	assert.Equal(t, []sgrights.Right{sgrights.Admin, sgrights.Updater, sgrights.Reader}, sgrights.Reader.AllowedRights())
	assert.Equal(t, []sgrights.Right{sgrights.Admin, sgrights.Updater}, sgrights.Updater.AllowedRights())
	assert.Equal(t, []sgrights.Right{sgrights.Admin}, sgrights.Admin.AllowedRights())
}

func TestRequiredRight(t *testing.T) {
	assert.Equal(t, sgrights.Updater, sgrights.RequiredRight([]sgrights.Mright{sgrights.MrightMember}))
	assert.Equal(t, sgrights.Updater, sgrights.RequiredRight([]sgrights.Mright{sgrights.MrightReader}))
	assert.Equal(t, sgrights.Admin, sgrights.RequiredRight([]sgrights.Mright{sgrights.MrightMember, sgrights.MrightUpdater}))
	assert.Equal(t, sgrights.Admin, sgrights.RequiredRight([]sgrights.Mright{sgrights.MrightAdmin}))
}

func TestDirectAttr(t *testing.T) {
	assert.Equal(t, "memberURL;x-member", sgrights.MrightMember.DirectAttr())
	assert.Equal(t, "memberURL;x-admin", sgrights.MrightAdmin.DirectAttr())
}

func TestParseRoundtrip(t *testing.T) {
	for _, r := range []sgrights.Right{sgrights.Reader, sgrights.Updater, sgrights.Admin} {
		parsed, err := sgrights.ParseRight(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	for _, m := range sgrights.AllMrights() {
		parsed, err := sgrights.ParseMright(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
}
