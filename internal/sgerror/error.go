// Package sgerror defines the error kinds shared across the sgroup
// core, independent of how they are eventually surfaced (HTTP status,
// log level, ...).
package sgerror

import "fmt"

// Kind classifies a failure the way spec section 7 does.
type Kind int

const (
	// InvalidID means an sgroup id failed validation.
	InvalidID Kind = iota
	// InvalidMods means a proposed modification is illegal (stem +
	// member, disallowed remote URL placement, TTL violation, bad
	// enddate).
	InvalidMods
	// NotFound means a node or required parent is missing.
	NotFound
	// Forbidden means the authorization walk exhausted without a
	// match.
	Forbidden
	// ChildrenExist means a delete was blocked by existing children.
	ChildrenExist
	// Remote means the remote SQL resolver failed.
	Remote
	// Store means the directory adapter failed.
	Store
	// Internal means an invariant was violated during simplification
	// or cascade.
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidID:
		return "InvalidId"
	case InvalidMods:
		return "InvalidMods"
	case NotFound:
		return "NotFound"
	case Forbidden:
		return "Forbidden"
	case ChildrenExist:
		return "ChildrenExist"
	case Remote:
		return "Remote"
	case Store:
		return "Store"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// IsClientError reports whether kind should be surfaced as a 4xx-class
// HTTP response, per spec section 7's policy.
func (k Kind) IsClientError() bool {
	switch k {
	case InvalidID, InvalidMods, NotFound, Forbidden, ChildrenExist:
		return true
	default:
		return false
	}
}

// Error is the error type returned across package boundaries in the
// sgroup core.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and msg to an underlying cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// As reports whether err (or something it wraps) is an *Error, the way
// errors.As would, without forcing every caller to declare a local
// variable.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// OfKind reports whether err is an *Error of the given kind.
func OfKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
