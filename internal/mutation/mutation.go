// Package mutation validates and simplifies the modification a caller
// wants to make to a node's direct member/right sets before it ever
// reaches the directory adapter.
package mutation

import (
	"sort"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/sgroupald/sgroupald/internal/sgerror"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// Op is one of the three submodification kinds a caller can request
// for a given Mright.
type Op int

const (
	OpAdd Op = iota
	OpDelete
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// URLOpts carries the per-URL options attached to a submodification
// entry: currently just the optional TTL enddate.
type URLOpts struct {
	Enddate string // RFC-3339, empty if unset
}

// URLSet maps a subject URL (a DN, or a single sql:// remote query) to
// its options.
type URLSet map[string]URLOpts

// SubMods is the set of requested operations for one Mright: at most
// one of each Op.
type SubMods map[Op]URLSet

// Mods is the full set of requested changes, keyed by the Mright each
// submodification applies to.
type Mods map[sgrights.Mright]SubMods

// RequiredRight returns the right the caller must hold to apply mods,
// per sgrights.RequiredRight over the touched Mrights.
func (m Mods) RequiredRight() sgrights.Right {
	touched := make([]sgrights.Mright, 0, len(m))
	for mright := range m {
		touched = append(touched, mright)
	}
	return sgrights.RequiredRight(touched)
}

// IsEmpty reports whether m has no submodifications left, which
// happens once Validate has simplified a no-op Replace away.
func (m Mods) IsEmpty() bool { return len(m) == 0 }

// CurrentDirectReader is the minimal read access the simplifier needs:
// the current direct URL set for a node's Mright, used to turn a long
// Replace into an Add/Delete diff.
type CurrentDirectReader interface {
	CurrentDirect(mright sgrights.Mright) (URLSet, bool, error)
}

// replaceSimplifyThreshold is the point past which a Replace is worth
// turning into an Add/Delete diff instead of sending as-is.
const replaceSimplifyThreshold = 4

// Validate checks and simplifies mods for a node.
//
//   - stems never accept Mright member submodifications.
//   - a sql:// remote query URL is only ever allowed as the single
//     entry of a member Replace.
//   - a Replace longer than replaceSimplifyThreshold entries is turned
//     into an equivalent Add/Delete pair against the node's current
//     direct URLs, when those are available.
//   - empty submodification sets, and Mrights left with no
//     submodifications after simplification, are dropped.
func Validate(isStem bool, current CurrentDirectReader, mods Mods) (Mods, error) {
	out := make(Mods, len(mods))
	for mright, submods := range mods {
		if mright == sgrights.MrightMember && isStem {
			return nil, sgerror.New(sgerror.InvalidMods, "members are not allowed for stems")
		}
		if err := validateRemoteURLPlacement(mright, submods); err != nil {
			return nil, err
		}
		simplified, err := simplifySubMods(current, mright, submods)
		if err != nil {
			return nil, err
		}
		pruned := SubMods{}
		for op, urls := range simplified {
			if len(urls) > 0 {
				pruned[op] = urls
			}
		}
		if len(pruned) > 0 {
			out[mright] = pruned
		}
	}
	return out, nil
}

func validateRemoteURLPlacement(mright sgrights.Mright, submods SubMods) error {
	for op, urls := range submods {
		var remoteCount int
		for url := range urls {
			if !IsRemoteQueryURL(url) {
				continue
			}
			remoteCount++
			if mright != sgrights.MrightMember {
				return sgerror.Newf(sgerror.InvalidMods, "remote query URL %q only allowed for member", url)
			}
			if op != OpReplace {
				return sgerror.Newf(sgerror.InvalidMods, "remote query URL %q only allowed in a Replace", url)
			}
			if len(urls) != 1 {
				return sgerror.Newf(sgerror.InvalidMods, "remote query URL %q must be the only entry of its Replace", url)
			}
		}
	}
	return nil
}

// IsRemoteQueryURL reports whether url is a sql:// remote query
// pseudo-URL rather than a resolvable subject DN.
func IsRemoteQueryURL(url string) bool {
	return len(url) >= len("sql://") && url[:len("sql://")] == "sql://"
}

func simplifySubMods(current CurrentDirectReader, mright sgrights.Mright, submods SubMods) (SubMods, error) {
	replace, hasReplace := submods[OpReplace]
	if !hasReplace || len(replace) <= replaceSimplifyThreshold || current == nil {
		return submods, nil
	}

	currentURLs, ok, err := current.CurrentDirect(mright)
	if err != nil {
		return nil, err
	}
	if !ok {
		return submods, nil
	}

	add := mergeURLSets(submods[OpAdd], urlSetDifference(replace, currentURLs))
	del := mergeURLSets(submods[OpDelete], urlSetDifference(currentURLs, replace))

	out := SubMods{}
	if len(add) > 0 {
		out[OpAdd] = add
	}
	if len(del) > 0 {
		out[OpDelete] = del
	}
	return out, nil
}

func mergeURLSets(a, b URLSet) URLSet {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(URLSet, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func urlSetDifference(a, b URLSet) URLSet {
	out := URLSet{}
	for url, opts := range a {
		if _, ok := b[url]; !ok {
			out[url] = opts
		}
	}
	return out
}

// CheckMemberTTL enforces the optional member-ttl-max invariant: when
// set on a node, every Add/Replace member entry must carry an enddate
// no later than now + ttlMaxDays, and the enddate must parse as
// RFC-3339.
func CheckMemberTTL(mods Mods, ttlMaxDays int, now time.Time) error {
	submods, ok := mods[sgrights.MrightMember]
	if !ok {
		return nil
	}
	max := now.AddDate(0, 0, ttlMaxDays)

	type ttlEntry struct {
		url  string
		opts URLOpts
	}
	var entries []ttlEntry
	for op, set := range submods {
		if op == OpDelete {
			continue
		}
		for url, opts := range set {
			entries = append(entries, ttlEntry{url, opts})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].url < entries[j].url }) // deterministic error ordering

	for _, en := range entries {
		if en.opts.Enddate == "" {
			return sgerror.Newf(sgerror.InvalidMods, "enddate mandatory for %q on this sgroup", en.url)
		}
		enddate, err := parseRFC3339(en.opts.Enddate)
		if err != nil {
			return sgerror.Newf(sgerror.InvalidMods, "invalid enddate for %q", en.url)
		}
		if enddate.After(max) {
			return sgerror.Newf(sgerror.InvalidMods, "enddate > member-ttl-max for %q", en.url)
		}
	}
	return nil
}

func parseRFC3339(s string) (time.Time, error) {
	var dt strfmt.DateTime
	if err := dt.UnmarshalText([]byte(s)); err != nil {
		return time.Time{}, err
	}
	return time.Time(dt), nil
}
