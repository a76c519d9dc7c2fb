// Package verrors defines the typed failure taxonomy shared by the shm,
// daemon, and shell packages.
package verrors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure so callers can branch with errors.As without
// parsing messages.
type Kind string

const (
	KindShmCreate       Kind = "shm_create"
	KindShmOpen         Kind = "shm_open"
	KindMmap            Kind = "mmap"
	KindTruncate        Kind = "truncate"
	KindInvalidMagic    Kind = "invalid_magic"
	KindInvalidVersion  Kind = "invalid_version"
	KindBufferOverflow  Kind = "buffer_overflow"
	KindQueueFull       Kind = "queue_full"
	KindNamespaceTooLong Kind = "namespace_too_long"
)

// Error is the structured failure type returned by every operation in this
// module that can meaningfully fail.
type Error struct {
	Kind Kind
	Name string // logical shm object / channel name, if applicable
	Op   string // operation that failed, e.g. "shm.Create"

	// Expected/Got are populated for KindInvalidMagic and KindInvalidVersion.
	Expected uint64
	Got      uint64

	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Kind == KindInvalidMagic || e.Kind == KindInvalidVersion:
		return fmt.Sprintf("venom: %s: %s (expected=0x%x got=0x%x)", e.Op, msg, e.Expected, e.Got)
	case e.Name != "" && e.Inner != nil:
		return fmt.Sprintf("venom: %s: %s (name=%q): %v", e.Op, msg, e.Name, e.Inner)
	case e.Name != "":
		return fmt.Sprintf("venom: %s: %s (name=%q)", e.Op, msg, e.Name)
	case e.Inner != nil:
		return fmt.Sprintf("venom: %s: %s: %v", e.Op, msg, e.Inner)
	default:
		return fmt.Sprintf("venom: %s: %s", e.Op, msg)
	}
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is an *Error with the same Kind, so callers can
// do errors.Is(err, verrors.New(verrors.KindQueueFull, ...)) or compare
// against a zero-value sentinel built with the same Kind.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// New constructs a plain Error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap constructs an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, op, name string, inner error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Msg: kind.defaultMsg(), Inner: inner}
}

// WrapMagic constructs a KindInvalidMagic error carrying expected/got.
func WrapMagic(op string, expected, got uint32) *Error {
	return &Error{
		Kind:     KindInvalidMagic,
		Op:       op,
		Msg:      "unexpected magic",
		Expected: uint64(expected),
		Got:      uint64(got),
	}
}

// WrapVersion constructs a KindInvalidVersion error carrying expected/got.
func WrapVersion(op string, expected, got uint32) *Error {
	return &Error{
		Kind:     KindInvalidVersion,
		Op:       op,
		Msg:      "unsupported layout version",
		Expected: uint64(expected),
		Got:      uint64(got),
	}
}

func (k Kind) defaultMsg() string {
	switch k {
	case KindShmCreate:
		return "failed to create shared memory object"
	case KindShmOpen:
		return "failed to open shared memory object"
	case KindMmap:
		return "failed to map shared memory region"
	case KindTruncate:
		return "failed to size shared memory region"
	case KindBufferOverflow:
		return "buffer too small for operation"
	case KindQueueFull:
		return "command queue is full"
	case KindNamespaceTooLong:
		return "namespace exceeds maximum length"
	default:
		return string(k)
	}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
