package core

import (
	"errors"
	"fmt"
)

// Error categories returned by DB operations. Callers classify with errors.Is
// or KindOf.
var (
	// ErrNotFound is returned when the subject id of an operation is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when a mutation breaks referential integrity or uniqueness.
	ErrInvalid = errors.New("invalid")
	// ErrBadRequest is returned for malformed or schema-violating input.
	ErrBadRequest = errors.New("bad request")
	// ErrInternal is returned when an index points at a record that is gone.
	ErrInternal = errors.New("internal")

	// ErrConflict is returned when creating a record whose id is taken.
	// It is an ErrInvalid.
	ErrConflict = fmt.Errorf("%w: id already exists", ErrInvalid)
)

// Kind is the category of an error.
type Kind uint8

const (
	KindNone Kind = iota
	KindNotFound
	KindInvalid
	KindBadRequest
	KindInternal
)

// String returns the stable name written in error responses.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalid):
		return KindInvalid
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	default:
		return KindInternal
	}
}

// ParseKind maps a name produced by Kind.String back to its Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "ok":
		return KindNone, true
	case "not_found":
		return KindNotFound, true
	case "invalid":
		return KindInvalid, true
	case "bad_request":
		return KindBadRequest, true
	case "internal":
		return KindInternal, true
	}
	return 0, false
}

// Err returns the sentinel for k, or nil for KindNone.
func (k Kind) Err() error {
	switch k {
	case KindNone:
		return nil
	case KindNotFound:
		return ErrNotFound
	case KindInvalid:
		return ErrInvalid
	case KindBadRequest:
		return ErrBadRequest
	default:
		return ErrInternal
	}
}
