// Package authz answers "may this principal do X to this node",
// walking the node's ancestor chain root-first.
package authz

import (
	"context"
	"fmt"

	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/principal"
	"github.com/sgroupald/sgroupald/internal/sgroup"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// Resolver answers authorization questions against a directory
// adapter and a path configuration.
type Resolver struct {
	Dir    directory.Adapter
	Paths  *sgroup.PathConfig
	// GroupsDN is the directory suffix nodes live under, used to build
	// entry DNs from ids.
	GroupsDN string
	// FlattenedMemberAttr is the attribute carrying a node's flattened
	// member DNs, used to discover which groups a user belongs to.
	FlattenedMemberAttr string
}

// DN returns the directory DN for node id.
func (r *Resolver) DN(id string) string {
	if id == "" {
		return r.GroupsDN
	}
	return fmt.Sprintf("cn=%s,%s", id, r.GroupsDN)
}

// UserURLs computes the identity surface for a principal: the
// trusted-admin sentinel, or the user's own DN plus the DN of every
// group whose flattened member set contains the user.
func (r *Resolver) UserURLs(ctx context.Context, p principal.Principal) (principal.URLs, error) {
	if p.IsTrustedAdmin() {
		return principal.TrustedAdminURLs(), nil
	}
	userID, _ := p.UserID()
	userDN := userID // subject DNs are passed through verbatim; people live outside groups_dn

	filter := directory.FilterEq(r.FlattenedMemberAttr, userDN)
	entries, err := r.Dir.Search(ctx, r.GroupsDN, filter, nil, 0)
	if err != nil {
		return principal.URLs{}, err
	}
	set := make(map[string]struct{}, len(entries)+1)
	set[userDN] = struct{}{}
	for _, e := range entries {
		set[e.DN] = struct{}{}
	}
	return principal.UserURLs(set), nil
}

// rightOnNode reports whether userURLs intersects any of the
// direct-right attributes allowed for right on node id. Returns
// (false, nil) if id does not exist and is the root (the root stem
// carries no rights of its own); returns a NotFound-ish error if id
// does not exist and is not the root.
func (r *Resolver) rightOnNode(ctx context.Context, userURLs principal.URLs, id string, right sgrights.Right) (bool, error) {
	allowed := right.AllowedRights()
	attrs := make([]string, len(allowed))
	for i, rr := range allowed {
		attrs[i] = rr.ToMright().DirectAttr()
	}

	e, err := r.Dir.Read(ctx, r.DN(id), attrs)
	if err != nil {
		return false, err
	}
	if e == nil {
		if r.Paths.IsRoot(id) {
			return false, nil
		}
		return false, &NotExistError{ID: id}
	}
	for _, attr := range attrs {
		if userURLs.Intersects(e.Values(attr)) {
			return true, nil
		}
	}
	return false, nil
}

// highestRightOnNode returns the best right the surface holds directly
// on id, or nil if none.
func (r *Resolver) highestRightOnNode(ctx context.Context, userURLs principal.URLs, id string) (*sgrights.Right, error) {
	allowed := sgrights.Reader.AllowedRights() // [Admin, Updater, Reader] — best first
	attrs := make([]string, len(allowed))
	for i, rr := range allowed {
		attrs[i] = rr.ToMright().DirectAttr()
	}

	e, err := r.Dir.Read(ctx, r.DN(id), attrs)
	if err != nil {
		return nil, err
	}
	if e == nil {
		if r.Paths.IsRoot(id) {
			return nil, nil
		}
		return nil, &NotExistError{ID: id}
	}
	for i, right := range allowed {
		if userURLs.Intersects(e.Values(attrs[i])) {
			rr := right
			return &rr, nil
		}
	}
	return nil, nil
}

// HasRightOnAnyParent reports whether the principal holds right on any
// strict ancestor of id (root-first walk, first match wins).
func (r *Resolver) HasRightOnAnyParent(ctx context.Context, p principal.Principal, id string, right sgrights.Right) error {
	if p.IsTrustedAdmin() {
		parent, ok := r.Paths.ParentStem(id)
		if ok {
			e, err := r.Dir.Read(ctx, r.DN(parent), nil)
			if err != nil {
				return err
			}
			if e == nil && !r.Paths.IsRoot(parent) {
				return &NotExistError{ID: parent}
			}
		}
		return nil
	}

	userURLs, err := r.UserURLs(ctx, p)
	if err != nil {
		return err
	}
	return r.hasRightOnAnyParentFor(ctx, userURLs, id, right)
}

// hasRightOnAnyParentFor walks id's strict ancestors. A missing ancestor
// is not a NotFound condition here: a parent stem that doesn't exist
// yet (e.g. the target of a /create whose own parent was deleted)
// simply grants no right, the same as a parent that exists but lacks
// the attribute, so it collapses into the eventual ForbiddenError
// rather than escaping as a NotExistError (spec.md §4.4).
func (r *Resolver) hasRightOnAnyParentFor(ctx context.Context, userURLs principal.URLs, id string, right sgrights.Right) error {
	for _, parent := range r.Paths.ParentStems(id) {
		ok, err := r.rightOnNode(ctx, userURLs, parent, right)
		if err != nil {
			if _, isNotExist := err.(*NotExistError); isNotExist {
				continue
			}
			return err
		}
		if ok {
			return nil
		}
	}
	return &ForbiddenError{ID: id, Right: right}
}

// HasRightOnSelfOrAnyParent reports whether the principal holds right
// on id itself, or on any strict ancestor.
func (r *Resolver) HasRightOnSelfOrAnyParent(ctx context.Context, p principal.Principal, id string, right sgrights.Right) error {
	if p.IsTrustedAdmin() {
		return nil
	}

	userURLs, err := r.UserURLs(ctx, p)
	if err != nil {
		return err
	}
	ok, err := r.rightOnNode(ctx, userURLs, id, right)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return r.hasRightOnAnyParentFor(ctx, userURLs, id, right)
}

// BestRightOnSelfOrAnyParent returns the highest right the principal
// holds across id and all its ancestors, or nil if none.
func (r *Resolver) BestRightOnSelfOrAnyParent(ctx context.Context, p principal.Principal, id string) (*sgrights.Right, error) {
	if p.IsTrustedAdmin() {
		admin := sgrights.Admin
		return &admin, nil
	}

	userURLs, err := r.UserURLs(ctx, p)
	if err != nil {
		return nil, err
	}

	var best *sgrights.Right
	for _, node := range r.Paths.SelfAndParents(id) {
		right, err := r.highestRightOnNode(ctx, userURLs, node)
		if err != nil {
			return nil, err
		}
		if right == nil {
			continue
		}
		if best == nil || *right > *best {
			best = right
		}
	}
	return best, nil
}

// NotExistError reports that a stem required to resolve an
// authorization question is missing from the directory.
type NotExistError struct{ ID string }

func (e *NotExistError) Error() string { return fmt.Sprintf("stem %q does not exist", e.ID) }

// ForbiddenError reports that the principal lacks right on id and all
// of its ancestors.
type ForbiddenError struct {
	ID    string
	Right sgrights.Right
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("no %s right on %q or its parents", e.Right, e.ID)
}
