// Package jsonpath navigates parsed JSON documents with simple dotted paths
// like "data.items[0].id". It backs the response assertions in the test
// suites: value extraction, list length checks, and list containment checks
// all share the one traversal algorithm in Resolve.
//
// Documents are represented as ldvalue.Value, which is immutable, so
// resolving a path can never modify the document and repeated calls always
// return the same result.
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

var bracketReplacer = strings.NewReplacer("[", ".", "]", ".")

// Tokenize splits a path into traversal tokens. Bracket characters are
// normalized to dots before splitting, so "items[0].id" and "items.0.id"
// tokenize identically. Empty tokens from consecutive separators are
// dropped rather than treated as an error.
func Tokenize(path string) []string {
	parts := strings.Split(bracketReplacer.Replace(path), ".")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// Resolve navigates root along path and returns the node the path ends at.
// An empty path returns root itself. On failure it returns a *Error carrying
// the failure kind and the consumed path prefix; there is never a partial or
// best-effort value.
func Resolve(root ldvalue.Value, path string) (ldvalue.Value, error) {
	tokens := Tokenize(path)
	current := root
	for i, token := range tokens {
		switch current.Type() {
		case ldvalue.ObjectType:
			child, ok := current.TryGetByKey(token)
			if !ok {
				return ldvalue.Null(), &Error{
					Kind:   KeyNotFound,
					Path:   path,
					Prefix: strings.Join(tokens[:i], "."),
					Token:  token,
				}
			}
			current = child
		case ldvalue.ArrayType:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 {
				return ldvalue.Null(), &Error{
					Kind:   TypeMismatch,
					Path:   path,
					Prefix: strings.Join(tokens[:i], "."),
					Token:  token,
					reason: fmt.Sprintf("array index %q is not a non-negative integer", token),
				}
			}
			if index >= current.Count() {
				return ldvalue.Null(), &Error{
					Kind:   IndexOutOfRange,
					Path:   path,
					Prefix: strings.Join(tokens[:i], "."),
					Token:  token,
				}
			}
			current = current.GetByIndex(index)
		default:
			return ldvalue.Null(), &Error{
				Kind:   TypeMismatch,
				Path:   path,
				Prefix: strings.Join(tokens[:i], "."),
				Token:  token,
				reason: fmt.Sprintf("cannot navigate %s value with %q", typeName(current.Type()), token),
			}
		}
	}
	return current, nil
}

// Exists reports whether path resolves against root. All traversal failures
// report false; use Resolve to distinguish them.
func Exists(root ldvalue.Value, path string) bool {
	_, err := Resolve(root, path)
	return err == nil
}

// Length resolves path and returns the element count of the array found
// there. Resolving to anything other than an array is a TypeMismatch.
func Length(root ldvalue.Value, path string) (int, error) {
	node, err := Resolve(root, path)
	if err != nil {
		return 0, err
	}
	if node.Type() != ldvalue.ArrayType {
		return 0, notAnArrayError(path, node)
	}
	return node.Count(), nil
}

// ContainsMatch resolves path to an array and scans it for an element
// matching expected. When expected is an object, an element matches if every
// key declared on expected is present on the element with an equal value;
// extra keys on the element are ignored and the comparison is shallow. When
// expected is not an object, an element matches by plain equality. Numbers
// always compare by numeric value, so 7 matches 7.0.
func ContainsMatch(root ldvalue.Value, path string, expected ldvalue.Value) (bool, error) {
	node, err := Resolve(root, path)
	if err != nil {
		return false, err
	}
	if node.Type() != ldvalue.ArrayType {
		return false, notAnArrayError(path, node)
	}
	for i := 0; i < node.Count(); i++ {
		if matchesDeclaredPairs(node.GetByIndex(i), expected) {
			return true, nil
		}
	}
	return false, nil
}

func matchesDeclaredPairs(element, expected ldvalue.Value) bool {
	if expected.Type() != ldvalue.ObjectType {
		return element.Equal(expected)
	}
	if element.Type() != ldvalue.ObjectType {
		return false
	}
	for _, key := range expected.Keys() {
		actual, ok := element.TryGetByKey(key)
		if !ok || !actual.Equal(expected.GetByKey(key)) {
			return false
		}
	}
	return true
}

func notAnArrayError(path string, node ldvalue.Value) *Error {
	return &Error{
		Kind:   TypeMismatch,
		Path:   path,
		Prefix: strings.Join(Tokenize(path), "."),
		reason: fmt.Sprintf("expected an array, found %s", typeName(node.Type())),
	}
}
