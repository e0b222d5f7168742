package jsonpath

import (
	"errors"
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ErrorKind identifies which traversal rule a path lookup violated.
type ErrorKind string

const (
	// KeyNotFound means an object node had no entry for the token.
	KeyNotFound ErrorKind = "key not found"
	// IndexOutOfRange means an array node was shorter than the index token.
	IndexOutOfRange ErrorKind = "index out of range"
	// TypeMismatch means the node could not be navigated with the token at
	// all: an array indexed by a non-integer, or a scalar with tokens still
	// remaining.
	TypeMismatch ErrorKind = "type mismatch"
)

// Error describes a failed traversal. Prefix is the part of the path that
// was successfully consumed before the failure, with tokens joined by dots;
// it is empty when the failure happened at the root.
type Error struct {
	Kind   ErrorKind
	Path   string
	Prefix string
	Token  string
	reason string
}

func (e *Error) Error() string {
	msg := e.reason
	if msg == "" {
		switch e.Kind {
		case KeyNotFound:
			msg = fmt.Sprintf("key %q not found", e.Token)
		case IndexOutOfRange:
			msg = fmt.Sprintf("index %s out of range", e.Token)
		default:
			msg = string(e.Kind)
		}
	}
	if e.Prefix != "" {
		return fmt.Sprintf("%s after %q in path %q", msg, e.Prefix, e.Path)
	}
	return fmt.Sprintf("%s in path %q", msg, e.Path)
}

// IsKind reports whether err is a traversal Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pathErr *Error
	return errors.As(err, &pathErr) && pathErr.Kind == kind
}

func typeName(t ldvalue.ValueType) string {
	switch t {
	case ldvalue.NullType:
		return "null"
	case ldvalue.BoolType:
		return "boolean"
	case ldvalue.NumberType:
		return "number"
	case ldvalue.StringType:
		return "string"
	case ldvalue.ArrayType:
		return "array"
	case ldvalue.ObjectType:
		return "object"
	default:
		return "unknown"
	}
}
