// Package sgroupapi is the JSON HTTP surface of spec.md §6: request
// and response DTOs, the httprouter-based server, and the
// cookie/bearer authentication that resolves each request's
// principal.Principal before handing off to the core packages.
package sgroupapi

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/sgroupald/sgroupald/internal/mutation"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// MonoAttrs is a flat string-valued attribute map, the wire shape of
// my_types.rs's MonoAttrs (BTreeMap<String, String>).
type MonoAttrs map[string]string

// SgroupOutAndRight is one entry of a parent chain: the parent's
// attrs plus the caller's right on it, per my_types.rs's
// SgroupOutAndRight.
type SgroupOutAndRight struct {
	Attrs    MonoAttrs
	SgroupID string
	Right    *sgrights.Right
}

// MarshalJSON flattens Attrs alongside sgroup_id/right, the same
// gjson/sjson-built-document approach as SgroupAndMoreOut.
func (o SgroupOutAndRight) MarshalJSON() ([]byte, error) {
	doc := "{}"
	var err error
	for k, v := range o.Attrs {
		if doc, err = sjson.Set(doc, gjson.Escape(k), v); err != nil {
			return nil, err
		}
	}
	if doc, err = sjson.Set(doc, "sgroup_id", o.SgroupID); err != nil {
		return nil, err
	}
	if o.Right != nil {
		if doc, err = sjson.Set(doc, "right", o.Right.String()); err != nil {
			return nil, err
		}
	}
	return []byte(doc), nil
}

// SgroupAndMoreOut is the /sgroup response: the node's own attrs,
// flattened with its kind-specific "more" payload (a children map for
// a stem, direct members for a group), its parent chain with per-parent
// rights, and the caller's effective right on the node itself.
//
// The "more" payload is built with gjson/sjson ad hoc JSON surgery
// (tidwall/gjson, tidwall/sjson) rather than a Go struct with embedded
// fields, the way keto reaches for the same two libraries instead of
// full marshal/unmarshal round trips whenever a response is assembled
// from loosely related pieces (here: attrs most callers never
// introspect field-by-field, plus one of two mutually exclusive
// "more" shapes).
type SgroupAndMoreOut struct {
	Attrs   MonoAttrs
	Kind    string // "stem" or "group"
	// Children is set when Kind == "stem", keyed by child sgroup id.
	// handleGetSgroup sets it to an empty map: it does not list the
	// stem's children.
	Children map[string]MonoAttrs
	// DirectMembers is set when Kind == "group": direct member URLs to
	// a placeholder MonoAttrs (display attrs are resolved externally
	// by the subject search endpoints).
	DirectMembers map[string]MonoAttrs
	Parents       []SgroupOutAndRight
	Right         sgrights.Right
}

// MarshalJSON builds the flattened JSON object gjson/sjson-style:
// start from the attrs, graft on the kind-specific "more" field, then
// the parents/right fields, instead of declaring every possible field
// on one struct and letting encoding/json's omitempty sort it out.
func (o SgroupAndMoreOut) MarshalJSON() ([]byte, error) {
	doc := "{}"
	var err error
	for k, v := range o.Attrs {
		if doc, err = sjson.Set(doc, gjson.Escape(k), v); err != nil {
			return nil, err
		}
	}
	switch o.Kind {
	case "stem":
		if doc, err = sjson.Set(doc, "children", o.Children); err != nil {
			return nil, err
		}
	case "group":
		if doc, err = sjson.Set(doc, "direct_members", o.DirectMembers); err != nil {
			return nil, err
		}
	}
	if doc, err = sjson.Set(doc, "parents", o.Parents); err != nil {
		return nil, err
	}
	if doc, err = sjson.Set(doc, "right", o.Right.String()); err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

// RemoteSqlQuery mirrors my_types.rs's RemoteSqlQuery body for
// modify_remote_sql_query and test_remote_query_sql.
type RemoteSqlQuery struct {
	Select string `json:"select"`
}

// URLOptsDTO is the wire shape of one submodification entry's options
// (currently only the TTL enddate).
type URLOptsDTO struct {
	Enddate string `json:"enddate,omitempty"`
}

// ModsDTO is the wire shape of MyMods: Mright -> MyMod -> url -> opts.
type ModsDTO map[string]map[string]map[string]URLOptsDTO

// ToMods converts the wire DTO into internal/mutation's typed Mods,
// rejecting any Mright/Op spelled outside the fixed enums.
func (d ModsDTO) ToMods() (mutation.Mods, error) {
	out := make(mutation.Mods, len(d))
	for mrightStr, ops := range d {
		mright, err := sgrights.ParseMright(mrightStr)
		if err != nil {
			return nil, err
		}
		sub := mutation.SubMods{}
		for opStr, urls := range ops {
			op, err := parseOp(opStr)
			if err != nil {
				return nil, err
			}
			set := mutation.URLSet{}
			for url, opts := range urls {
				set[url] = mutation.URLOpts{Enddate: opts.Enddate}
			}
			sub[op] = set
		}
		out[mright] = sub
	}
	return out, nil
}

func parseOp(s string) (mutation.Op, error) {
	switch s {
	case "add":
		return mutation.OpAdd, nil
	case "delete":
		return mutation.OpDelete, nil
	case "replace":
		return mutation.OpReplace, nil
	default:
		return 0, &invalidOpError{s}
	}
}

type invalidOpError struct{ s string }

func (e *invalidOpError) Error() string { return "invalid mod op " + e.s }
