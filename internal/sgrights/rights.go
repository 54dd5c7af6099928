// Package sgrights implements the Right/Mright algebra: the two small
// enums, their partial order, and the lookup tables the rest of the
// core consults instead of re-deriving this logic ad hoc.
package sgrights

import (
	"encoding/json"
	"fmt"
)

// Right is a capability granted on a node: reader < updater < admin.
type Right int

const (
	Reader Right = iota
	Updater
	Admin
)

func (r Right) String() string {
	switch r {
	case Reader:
		return "reader"
	case Updater:
		return "updater"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("Right(%d)", int(r))
	}
}

// ParseRight parses the lowercase wire representation of a Right.
func ParseRight(s string) (Right, error) {
	switch s {
	case "reader":
		return Reader, nil
	case "updater":
		return Updater, nil
	case "admin":
		return Admin, nil
	default:
		return 0, fmt.Errorf("invalid right %q", s)
	}
}

func (r Right) MarshalJSON() ([]byte, error)  { return json.Marshal(r.String()) }
func (r *Right) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseRight(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// AllowedRights returns, best-right-first, the set of held rights that
// satisfy r as a required right: admin satisfies everything, updater
// satisfies updater/reader, reader satisfies only reader.
func (r Right) AllowedRights() []Right {
	switch r {
	case Reader:
		return []Right{Admin, Updater, Reader}
	case Updater:
		return []Right{Admin, Updater}
	default:
		return []Right{Admin}
	}
}

// ToMright maps a Right to the Mright storing it.
func (r Right) ToMright() Mright {
	switch r {
	case Reader:
		return MrightReader
	case Updater:
		return MrightUpdater
	default:
		return MrightAdmin
	}
}

// Mright is a storage dimension on an sgroup node: member, reader,
// updater, or admin.
type Mright int

const (
	MrightMember Mright = iota
	MrightReader
	MrightUpdater
	MrightAdmin
)

func (m Mright) String() string {
	switch m {
	case MrightMember:
		return "member"
	case MrightReader:
		return "reader"
	case MrightUpdater:
		return "updater"
	case MrightAdmin:
		return "admin"
	default:
		return fmt.Sprintf("Mright(%d)", int(m))
	}
}

// ParseMright parses the lowercase wire representation of an Mright.
func ParseMright(s string) (Mright, error) {
	switch s {
	case "member":
		return MrightMember, nil
	case "reader":
		return MrightReader, nil
	case "updater":
		return MrightUpdater, nil
	case "admin":
		return MrightAdmin, nil
	default:
		return 0, fmt.Errorf("invalid mright %q", s)
	}
}

func (m Mright) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }
func (m *Mright) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseMright(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// AllMrights lists every Mright, in the canonical order used when
// iterating (e.g. cascading a changed group to its dependents).
func AllMrights() []Mright {
	return []Mright{MrightMember, MrightReader, MrightUpdater, MrightAdmin}
}

// DirectAttr derives the directory attribute name holding m's direct
// URL values, e.g. "memberURL;x-admin".
func (m Mright) DirectAttr() string {
	return "memberURL;x-" + m.String()
}

// RequiredRight derives the right an operation needs from the set of
// Mrights it touches: admin is required the moment anything above
// reader is modified, otherwise updater suffices.
func RequiredRight(touched []Mright) Right {
	for _, m := range touched {
		if m > MrightReader {
			return Admin
		}
	}
	return Updater
}
