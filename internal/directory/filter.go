package directory

import (
	"fmt"
	"strings"

	ldap "github.com/go-ldap/ldap/v3"
)

// FilterTrue matches every entry.
func FilterTrue() string { return "(objectClass=*)" }

// FilterPresence matches entries where attr is present.
func FilterPresence(attr string) string { return fmt.Sprintf("(%s=*)", attr) }

// FilterEq matches entries where attr equals val, escaping val for use
// in an LDAP filter.
func FilterEq(attr, val string) string {
	return fmt.Sprintf("(%s=%s)", attr, ldap.EscapeFilter(val))
}

// FilterContains matches entries where attr contains substr as a
// case-insensitive substring (LDAP attribute matching is
// case-insensitive by default for the directory string types this
// module uses).
func FilterContains(attr, substr string) string {
	return fmt.Sprintf("(%s=*%s*)", attr, ldap.EscapeFilter(substr))
}

// FilterAnd2 combines two filters with AND.
func FilterAnd2(f1, f2 string) string { return fmt.Sprintf("(&%s%s)", f1, f2) }

// FilterOr combines filters with OR, collapsing a single-element list
// to that element.
func FilterOr(filters []string) string {
	if len(filters) == 1 {
		return filters[0]
	}
	return fmt.Sprintf("(|%s)", strings.Join(filters, ""))
}

// FilterSgroupChildren matches direct and indirect children of the
// stem id, excluding id itself. id == "" (the root) matches every
// node.
func FilterSgroupChildren(id string) string {
	if id == "" {
		return "(cn=*)"
	}
	esc := ldap.EscapeFilter(id)
	return fmt.Sprintf("(&(cn=%s*)(!(cn=%s)))", esc, esc)
}

// FilterSgroupSelfAndChildren matches id and everything below it.
func FilterSgroupSelfAndChildren(id string) string {
	return fmt.Sprintf("(cn=%s*)", ldap.EscapeFilter(id))
}
