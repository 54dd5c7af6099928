// Package sgroup implements the identifier and path model for the
// sgroup hierarchy: parsing and validating node ids and deriving the
// ancestor chain of stems above a node.
package sgroup

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/sgroupald/sgroupald/internal/sgerror"
)

// PathConfig holds the separator, root id, and validation filter used
// to interpret sgroup ids. The zero value is not usable; build one
// with NewPathConfig.
type PathConfig struct {
	separator string
	rootID    string
	filter    *regexp.Regexp
}

// NewPathConfig compiles filter as the id validation regexp. separator
// defaults to "." and rootID defaults to "" when empty, matching the
// teacher configuration's defaults.
func NewPathConfig(filter, separator, rootID string) (*PathConfig, error) {
	if separator == "" {
		separator = "."
	}
	re, err := regexp.Compile(filter)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid stem.filter %q", filter)
	}
	return &PathConfig{separator: separator, rootID: rootID, filter: re}, nil
}

// RootID returns the id of the implicit root stem.
func (c *PathConfig) RootID() string { return c.rootID }

// IsRoot reports whether id names the root stem.
func (c *PathConfig) IsRoot(id string) bool { return id == c.rootID }

// ParentStems returns the ancestor chain of id, root-first, not
// including id itself. For "a.b.c" with the default separator this is
// ["", "a", "a.b"]. The root stem has no ancestors.
func (c *PathConfig) ParentStems(id string) []string {
	if c.IsRoot(id) {
		return nil
	}
	segments := strings.Split(id, c.separator)
	parents := make([]string, 0, len(segments))
	parents = append(parents, c.rootID)
	for i := 0; i < len(segments)-1; i++ {
		parents = append(parents, strings.Join(segments[:i+1], c.separator))
	}
	return parents
}

// ParentStem returns the immediate parent of id, or ok=false for the
// root stem.
func (c *PathConfig) ParentStem(id string) (parent string, ok bool) {
	if c.IsRoot(id) {
		return "", false
	}
	parents := c.ParentStems(id)
	return parents[len(parents)-1], true
}

// SelfAndParents returns parents (root-first) followed by id itself,
// the order the authorization resolver walks.
func (c *PathConfig) SelfAndParents(id string) []string {
	return append(c.ParentStems(id), id)
}

// Validate fails with sgerror.InvalidID if id does not match the
// configured filter or contains an empty segment.
func (c *PathConfig) Validate(id string) error {
	if c.IsRoot(id) {
		return nil
	}
	for _, seg := range strings.Split(id, c.separator) {
		if seg == "" {
			return sgerror.Newf(sgerror.InvalidID, "sgroup id %q has an empty segment", id)
		}
	}
	if !c.filter.MatchString(id) {
		return sgerror.Newf(sgerror.InvalidID, "sgroup id %q does not match the configured filter", id)
	}
	return nil
}
