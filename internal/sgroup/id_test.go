package sgroup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgroupald/sgroupald/internal/sgroup"
)

func testConfig(t *testing.T) *sgroup.PathConfig {
	t.Helper()
	c, err := sgroup.NewPathConfig(`^[a-zA-Z0-9_.-]+$`, ".", "")
	require.NoError(t, err)
	return c
}

func TestParentStems(t *testing.T) {
	c := testConfig(t)

	assert.Equal(t, []string(nil), c.ParentStems(""))
	assert.Equal(t, []string{""}, c.ParentStems("a"))
	assert.Equal(t, []string{"", "a"}, c.ParentStems("a.b"))
	assert.Equal(t, []string{"", "a", "a.b"}, c.ParentStems("a.b.c"))
}

func TestParentStem(t *testing.T) {
	c := testConfig(t)

	_, ok := c.ParentStem("")
	assert.False(t, ok)

	p, ok := c.ParentStem("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "a.b", p)
}

func TestSelfAndParents(t *testing.T) {
	c := testConfig(t)
	assert.Equal(t, []string{"", "a", "a.b", "a.b.c"}, c.SelfAndParents("a.b.c"))
}

func TestValidate(t *testing.T) {
	c := testConfig(t)

	assert.NoError(t, c.Validate(""))
	assert.NoError(t, c.Validate("a.b.c"))
	assert.Error(t, c.Validate("a..b"))
	assert.Error(t, c.Validate("a b"))
}
