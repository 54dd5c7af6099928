package remote_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgroupald/sgroupald/internal/remote"
)

func TestCacheGetMissThenSet(t *testing.T) {
	c := remote.NewCache()
	_, ok := c.Get("payroll")
	assert.False(t, ok)

	c.Set("payroll", []string{"cn=alice,ou=people,dc=example,dc=org"})
	got, ok := c.Get("payroll")
	assert.True(t, ok)
	assert.Equal(t, []string{"cn=alice,ou=people,dc=example,dc=org"}, got)
}

func TestCacheInvalidate(t *testing.T) {
	c := remote.NewCache()
	c.Set("payroll", []string{"cn=alice,ou=people,dc=example,dc=org"})
	c.Invalidate("payroll")
	_, ok := c.Get("payroll")
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c := remote.NewCache()
	c.Set("payroll", []string{"a"})
	c.Set("hr", []string{"b"})
	c.Clear()
	_, ok := c.Get("payroll")
	assert.False(t, ok)
	_, ok = c.Get("hr")
	assert.False(t, ok)
}
