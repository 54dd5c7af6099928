package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryAdapter is an in-memory Adapter used by tests across the
// authz/mutation/flatten packages, the way keto's tests reach for a
// sqlite registry instead of standing up a real backing store.
type MemoryAdapter struct {
	mu      sync.Mutex
	entries map[string]map[string][]string
}

var _ Adapter = (*MemoryAdapter)(nil)

// NewMemoryAdapter returns an empty adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{entries: map[string]map[string][]string{}}
}

// Seed installs dn with the given attributes, for test setup.
func (a *MemoryAdapter) Seed(dn string, attrs map[string][]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make(map[string][]string, len(attrs))
	for k, v := range attrs {
		cp[k] = append([]string(nil), v...)
	}
	a.entries[dn] = cp
}

func (a *MemoryAdapter) Read(_ context.Context, dn string, attrs []string) (*Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[dn]
	if !ok {
		return nil, nil
	}
	out := map[string][]string{}
	for _, attr := range attrs {
		if v, ok := e[attr]; ok {
			out[attr] = append([]string(nil), v...)
		}
	}
	if len(attrs) == 0 {
		for k, v := range e {
			out[k] = append([]string(nil), v...)
		}
	}
	return &Entry{DN: dn, Attrs: out}, nil
}

func (a *MemoryAdapter) ReadMulti(_ context.Context, dn, attr string) ([]string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[dn]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), e[attr]...), true, nil
}

func (a *MemoryAdapter) Search(_ context.Context, base, filter string, attrs []string, sizeLimit int) ([]*Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pred, err := compileMemoryFilter(filter)
	if err != nil {
		return nil, err
	}

	var dns []string
	for dn := range a.entries {
		if base != "" && !strings.HasSuffix(dn, base) {
			continue
		}
		dns = append(dns, dn)
	}
	sort.Strings(dns)

	var out []*Entry
	for _, dn := range dns {
		e := a.entries[dn]
		if !pred(e) {
			continue
		}
		attrsOut := map[string][]string{}
		for _, attr := range attrs {
			if v, ok := e[attr]; ok {
				attrsOut[attr] = append([]string(nil), v...)
			}
		}
		if len(attrs) == 0 {
			for k, v := range e {
				attrsOut[k] = append([]string(nil), v...)
			}
		}
		out = append(out, &Entry{DN: dn, Attrs: attrsOut})
		if sizeLimit > 0 && len(out) >= sizeLimit {
			break
		}
	}
	return out, nil
}

func (a *MemoryAdapter) Modify(_ context.Context, dn string, ops []Mod) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[dn]
	if !ok {
		return NotFoundError(dn)
	}
	for _, op := range ops {
		switch op.Op {
		case OpAdd:
			e[op.Attr] = dedupe(append(e[op.Attr], op.Values...))
		case OpDelete:
			e[op.Attr] = remove(e[op.Attr], op.Values)
		case OpReplace:
			e[op.Attr] = append([]string(nil), op.Values...)
		}
	}
	return nil
}

func (a *MemoryAdapter) Add(_ context.Context, dn string, attrs map[string][]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[dn]; ok {
		return AlreadyExistsError(dn)
	}
	cp := make(map[string][]string, len(attrs))
	for k, v := range attrs {
		cp[k] = append([]string(nil), v...)
	}
	a.entries[dn] = cp
	return nil
}

func (a *MemoryAdapter) Delete(_ context.Context, dn string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[dn]; !ok {
		return NotFoundError(dn)
	}
	delete(a.entries, dn)
	return nil
}

func (a *MemoryAdapter) Close() error { return nil }

func dedupe(vals []string) []string {
	seen := map[string]struct{}{}
	out := vals[:0:0]
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func remove(vals []string, toRemove []string) []string {
	drop := map[string]struct{}{}
	for _, v := range toRemove {
		drop[v] = struct{}{}
	}
	out := vals[:0:0]
	for _, v := range vals {
		if _, ok := drop[v]; ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

// compileMemoryFilter understands the small subset of LDAP filter
// syntax this core ever generates: (attr=*), (attr=val),
// (attr=prefix*), (attr=*substring*), (&f1f2...), (|f1f2...), (!f),
// and the true-filter (objectClass=*).
func compileMemoryFilter(filter string) (func(map[string][]string) bool, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == FilterTrue() {
		return func(map[string][]string) bool { return true }, nil
	}
	if !strings.HasPrefix(filter, "(") || !strings.HasSuffix(filter, ")") {
		return nil, &FilterError{Filter: filter}
	}
	inner := filter[1 : len(filter)-1]

	switch inner[0] {
	case '&':
		subs, err := splitSubFilters(inner[1:])
		if err != nil {
			return nil, err
		}
		preds := make([]func(map[string][]string) bool, len(subs))
		for i, s := range subs {
			p, err := compileMemoryFilter(s)
			if err != nil {
				return nil, err
			}
			preds[i] = p
		}
		return func(e map[string][]string) bool {
			for _, p := range preds {
				if !p(e) {
					return false
				}
			}
			return true
		}, nil
	case '|':
		subs, err := splitSubFilters(inner[1:])
		if err != nil {
			return nil, err
		}
		preds := make([]func(map[string][]string) bool, len(subs))
		for i, s := range subs {
			p, err := compileMemoryFilter(s)
			if err != nil {
				return nil, err
			}
			preds[i] = p
		}
		return func(e map[string][]string) bool {
			for _, p := range preds {
				if p(e) {
					return true
				}
			}
			return false
		}, nil
	case '!':
		p, err := compileMemoryFilter(inner[1:])
		if err != nil {
			return nil, err
		}
		return func(e map[string][]string) bool { return !p(e) }, nil
	}

	eq := strings.SplitN(inner, "=", 2)
	if len(eq) != 2 {
		return nil, &FilterError{Filter: filter}
	}
	attr, val := eq[0], eq[1]
	if val == "*" {
		return func(e map[string][]string) bool {
			v, ok := e[attr]
			return ok && len(v) > 0
		}, nil
	}
	if len(val) > 1 && strings.HasPrefix(val, "*") && strings.HasSuffix(val, "*") {
		sub := val[1 : len(val)-1]
		return func(e map[string][]string) bool {
			for _, v := range e[attr] {
				if strings.Contains(v, sub) {
					return true
				}
			}
			return false
		}, nil
	}
	if strings.HasSuffix(val, "*") {
		prefix := strings.TrimSuffix(val, "*")
		return func(e map[string][]string) bool {
			for _, v := range e[attr] {
				if strings.HasPrefix(v, prefix) {
					return true
				}
			}
			return false
		}, nil
	}
	return func(e map[string][]string) bool {
		for _, v := range e[attr] {
			if v == val {
				return true
			}
		}
		return false
	}, nil
}

// splitSubFilters splits a concatenation of parenthesised filters such
// as "(a=1)(b=2)" into ["(a=1)", "(b=2)"].
func splitSubFilters(s string) ([]string, error) {
	var out []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
			}
		}
	}
	if depth != 0 {
		return nil, &FilterError{Filter: s}
	}
	return out, nil
}

// FilterError reports a filter this in-memory predicate engine does
// not understand.
type FilterError struct{ Filter string }

func (e *FilterError) Error() string { return "unsupported filter: " + e.Filter }

// NotFoundError and AlreadyExistsError are small sentinel-ish errors
// for the memory adapter; the real LDAP adapter reports equivalent
// conditions through sgerror directly.
type notFoundError struct{ dn string }

func (e *notFoundError) Error() string { return "not found: " + e.dn }

func NotFoundError(dn string) error { return &notFoundError{dn} }

type alreadyExistsError struct{ dn string }

func (e *alreadyExistsError) Error() string { return "already exists: " + e.dn }

func AlreadyExistsError(dn string) error { return &alreadyExistsError{dn} }
