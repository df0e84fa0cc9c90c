package geoduel

import (
	"errors"
	"fmt"
)

// Kind classifies domain errors for callers that only need the broad class.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is a domain error with a machine-readable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidArgument = &Error{Kind: KindValidation, Code: "invalid_argument", Message: "invalid argument"}
	ErrNotFound        = &Error{Kind: KindNotFound, Code: "not_found", Message: "not found"}
	ErrRoomFull        = &Error{Kind: KindConflict, Code: "room_full", Message: "room is full"}
	ErrWrongPhase      = &Error{Kind: KindConflict, Code: "wrong_phase", Message: "not allowed in the current phase"}
	ErrAlreadyBound    = &Error{Kind: KindConflict, Code: "already_bound", Message: "already in a room"}
	ErrAlreadyGuessed  = &Error{Kind: KindConflict, Code: "already_guessed", Message: "guess already submitted for this round"}
	ErrUnavailable     = &Error{Kind: KindConflict, Code: "unavailable", Message: "server is at capacity"}
	ErrInternal        = &Error{Kind: KindInternal, Code: "internal", Message: "internal error"}
)

// Errorf wraps base with a detail message. errors.Is(err, base) holds.
func Errorf(base *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal.Code
}
