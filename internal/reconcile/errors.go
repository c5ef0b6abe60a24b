package reconcile

import (
	"errors"
	"fmt"
)

// Kind classifies a reconciliation failure. Callers map kinds to HTTP
// statuses; Detail is safe to echo back, the wrapped cause is not.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindDuplicateOrdering
	KindInvalidQuestionShape
	KindRestoreConflict
	KindEmptyActiveSet
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindDuplicateOrdering:
		return "DuplicateOrdering"
	case KindInvalidQuestionShape:
		return "InvalidQuestionShape"
	case KindRestoreConflict:
		return "RestoreConflict"
	case KindEmptyActiveSet:
		return "EmptyActiveSet"
	case KindStorageFailure:
		return "StorageFailure"
	}
	return "Unknown"
}

type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two reconcile errors by kind alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the reconcile kind from err, or 0 if err is not one.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func errNotFound(quizID uint) error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf("quiz %d not found", quizID)}
}

func errUnauthorized() error {
	return &Error{Kind: KindUnauthorized, Detail: "actor does not own this quiz"}
}

func errDuplicateOrdering(sequence int) error {
	return &Error{Kind: KindDuplicateOrdering, Detail: fmt.Sprintf("sequence_order %d appears more than once", sequence)}
}

func errInvalidShape(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidQuestionShape, Detail: fmt.Sprintf(format, args...)}
}

func errRestoreConflict(blockingID uint, sequence int) error {
	return &Error{
		Kind:   KindRestoreConflict,
		Detail: fmt.Sprintf("cannot restore question at sequence_order %d: active question %d already holds it", sequence, blockingID),
	}
}

func errEmptyActiveSet() error {
	return &Error{Kind: KindEmptyActiveSet, Detail: "reconciliation would leave no active questions"}
}

// errStorage hides the underlying store detail from callers; the cause stays
// attached for logs.
func errStorage(err error) error {
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: KindStorageFailure, Detail: "storage operation failed", cause: err}
}
