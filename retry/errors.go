package retry

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry eligibility decisions. The set of
// meaningful kinds is owned by the caller; the client package, for example,
// defines kinds for connection errors, timeouts, and HTTP status classes.
type Kind string

// ClassifiedError attaches a Kind to an underlying error. It is matched with
// errors.As, so classification survives further wrapping.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Classified wraps err with a failure kind. It returns nil if err is nil.
func Classified(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) error {
	return &ClassifiedError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the failure kind carried by err, or the empty string if err
// is nil or unclassified.
func KindOf(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
