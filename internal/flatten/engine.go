// Package flatten maintains the denormalized, transitively-closed
// membership sets every node carries alongside its direct URLs:
// whenever a node's direct member/reader/updater/admin set changes,
// its flattened set is recomputed, and any other node whose flattened
// set already included this node is queued for the same treatment.
package flatten

import (
	"context"
	"strings"

	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/sgerror"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// emptyMemberSentinel is stored as the sole flattened member entry for
// a group whose computed member closure is empty, since the directory
// attribute itself cannot be present with zero values.
const emptyMemberSentinel = ""

// RemoteResolver resolves a sql:// remote-query URL to the DNs it
// currently denotes. Supplied by the caller so this package does not
// depend on internal/remote directly.
type RemoteResolver func(ctx context.Context, url string) ([]string, error)

// Engine recomputes and cascades flattened membership sets against a
// directory adapter.
type Engine struct {
	Dir      directory.Adapter
	GroupsDN string
	// FlattenedAttrs maps each Mright to the directory attribute that
	// stores its flattened (transitively-closed) DN set.
	FlattenedAttrs map[sgrights.Mright]string
	// ResolveRemote resolves sql:// URLs appearing in a member
	// Replace. May be nil if remote queries are not configured; a
	// sql:// URL reaching resolveURLs without a resolver is an
	// internal error.
	ResolveRemote RemoteResolver
}

// WorkItem names one (node, Mright) pair whose flattened set needs
// recomputing.
type WorkItem struct {
	ID     string
	Mright sgrights.Mright
}

func (e *Engine) dn(id string) string {
	if id == "" {
		return e.GroupsDN
	}
	return "cn=" + id + "," + e.GroupsDN
}

func (e *Engine) idFromDN(dn string) string {
	if dn == e.GroupsDN {
		return ""
	}
	suffix := "," + e.GroupsDN
	trimmed := strings.TrimSuffix(dn, suffix)
	return strings.TrimPrefix(trimmed, "cn=")
}

func (e *Engine) isSgroupDN(dn string) bool {
	return strings.HasSuffix(dn, e.GroupsDN)
}

// UpdateCascade processes todo as a worklist (LIFO, matching the
// reference cascade's pop-based loop): it recomputes the flattened set
// for each item, and when a member recomputation actually changed
// something, queues every node whose flattened set already depends on
// the changed node. A node that is already up to date is not
// requeued, so the cascade always terminates even across membership
// cycles.
func (e *Engine) UpdateCascade(ctx context.Context, todo []WorkItem) error {
	for len(todo) > 0 {
		item := todo[len(todo)-1]
		todo = todo[:len(todo)-1]

		modified, err := e.updateOne(ctx, item.ID, item.Mright)
		if err != nil {
			return err
		}
		if item.Mright == sgrights.MrightMember && modified {
			dependents, err := e.dependentsOf(ctx, item.ID)
			if err != nil {
				return err
			}
			todo = append(todo, dependents...)
		}
	}
	return nil
}

// updateOne recomputes the flattened set for (id, mright) against its
// current direct URLs and reports whether the directory was changed.
func (e *Engine) updateOne(ctx context.Context, id string, mright sgrights.Mright) (bool, error) {
	groupDN := e.dn(id)

	directURLs, _, err := e.Dir.ReadMulti(ctx, groupDN, mright.DirectAttr())
	if err != nil {
		return false, err
	}

	directDNs, err := e.resolveURLs(ctx, mright, directURLs)
	if err != nil {
		return false, err
	}

	flattened, err := e.computeFlattenedDNs(ctx, mright, directDNs)
	if err != nil {
		return false, err
	}

	flattenedAttr := e.FlattenedAttrs[mright]
	current, _, err := e.Dir.ReadMulti(ctx, groupDN, flattenedAttr)
	if err != nil {
		return false, err
	}

	toAdd := stringSliceDifference(flattened, current)
	toRemove := stringSliceDifference(current, flattened)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return false, nil
	}

	var ops []directory.Mod
	if len(toAdd) > 0 {
		ops = append(ops, directory.Mod{Op: directory.OpAdd, Attr: flattenedAttr, Values: toAdd})
	}
	if len(toRemove) > 0 {
		ops = append(ops, directory.Mod{Op: directory.OpDelete, Attr: flattenedAttr, Values: toRemove})
	}
	if err := e.Dir.Modify(ctx, groupDN, ops); err != nil {
		return false, err
	}
	return true, nil
}

// resolveURLs expands each direct URL into the DN(s) it denotes: an
// ordinary URL is its own DN; a sql:// remote query (only ever valid
// alone, for Mright member, per internal/mutation) is expanded via
// ResolveRemote.
func (e *Engine) resolveURLs(ctx context.Context, mright sgrights.Mright, urls []string) ([]string, error) {
	var dns []string
	for _, url := range urls {
		if !isRemoteQueryURL(url) {
			dns = append(dns, url)
			continue
		}
		if e.ResolveRemote == nil {
			return nil, sgerror.Newf(sgerror.Internal, "no remote resolver configured for %q", url)
		}
		resolved, err := e.ResolveRemote(ctx, url)
		if err != nil {
			return nil, err
		}
		dns = append(dns, resolved...)
	}
	return dns, nil
}

func isRemoteQueryURL(url string) bool {
	return strings.HasPrefix(url, "sql://")
}

// computeFlattenedDNs expands directDNs into the transitive closure:
// closure = direct_dns ∪ ⋃ flattened_member(dn) for every direct dn
// that is itself an sgroup (spec.md §4.6). Every direct DN — including
// a nested sgroup's own DN — stays in the closure; a direct sgroup
// additionally contributes its own (already-flattened) member set. An
// empty member closure is represented by the sentinel entry, since the
// flattened member attribute cannot be present with zero values.
func (e *Engine) computeFlattenedDNs(ctx context.Context, mright sgrights.Mright, directDNs []string) ([]string, error) {
	set := map[string]struct{}{}
	for _, dn := range directDNs {
		set[dn] = struct{}{}
		if !e.isSgroupDN(dn) {
			continue
		}
		members, _, err := e.Dir.ReadMulti(ctx, dn, e.FlattenedAttrs[sgrights.MrightMember])
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m == emptyMemberSentinel {
				continue
			}
			set[m] = struct{}{}
		}
	}
	if len(set) == 0 && mright == sgrights.MrightMember {
		set[emptyMemberSentinel] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for dn := range set {
		out = append(out, dn)
	}
	return out, nil
}

// dependentsOf returns every (node, Mright) pair whose flattened set
// currently contains id's DN, and therefore needs recomputing now that
// id's own member set changed.
func (e *Engine) dependentsOf(ctx context.Context, id string) ([]WorkItem, error) {
	groupDN := e.dn(id)
	var out []WorkItem
	for _, mright := range sgrights.AllMrights() {
		attr, ok := e.FlattenedAttrs[mright]
		if !ok {
			continue
		}
		entries, err := e.Dir.Search(ctx, e.GroupsDN, directory.FilterEq(attr, groupDN), nil, 0)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			out = append(out, WorkItem{ID: e.idFromDN(entry.DN), Mright: mright})
		}
	}
	return out, nil
}

func stringSliceDifference(a, b []string) []string {
	bSet := make(map[string]struct{}, len(b))
	for _, v := range b {
		bSet[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := bSet[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
