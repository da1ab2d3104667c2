package circulation

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure for callers. Conflicts abort the
// transaction and are surfaced verbatim; they are never retried, since
// retrying without new information reproduces the same conflict. Busy is
// the one kind produced by the retry layer itself, after transient
// storage failures exhausted their attempts.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindOutOfStock       Kind = "out_of_stock"
	KindAlreadyBorrowed  Kind = "already_borrowed"
	KindNoActiveCheckout Kind = "no_active_checkout"
	KindConflict         Kind = "conflict"
	KindBusy             Kind = "busy"
	KindInternal         Kind = "internal"
)

// Error is the structured failure every engine operation returns instead
// of a bare error: an error kind plus a human-readable message, with the
// underlying cause preserved for logs.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from an engine error. Anything that is not a
// classified engine failure reports KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
