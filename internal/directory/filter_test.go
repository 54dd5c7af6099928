package directory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sgroupald/sgroupald/internal/directory"
)

func TestFilterEq(t *testing.T) {
	assert.Equal(t, "(cn=a.b)", directory.FilterEq("cn", "a.b"))
	assert.Equal(t, `(cn=a\28b\29)`, directory.FilterEq("cn", "a(b)"))
}

func TestFilterContains(t *testing.T) {
	assert.Equal(t, "(member=*dsiun*)", directory.FilterContains("member", "dsiun"))
}

func TestFilterOr(t *testing.T) {
	assert.Equal(t, "(cn=a)", directory.FilterOr([]string{"(cn=a)"}))
	assert.Equal(t, "(|(cn=a)(cn=b))", directory.FilterOr([]string{"(cn=a)", "(cn=b)"}))
}

func TestFilterSgroupChildren(t *testing.T) {
	assert.Equal(t, "(cn=*)", directory.FilterSgroupChildren(""))
	assert.Equal(t, "(&(cn=a.b*)(!(cn=a.b)))", directory.FilterSgroupChildren("a.b"))
}

func TestFilterSgroupSelfAndChildren(t *testing.T) {
	assert.Equal(t, "(cn=a.b*)", directory.FilterSgroupSelfAndChildren("a.b"))
}

func TestFilterAnd2(t *testing.T) {
	assert.Equal(t, "(&(cn=a)(objectClass=*))", directory.FilterAnd2("(cn=a)", "(objectClass=*)"))
}
