package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func parseDoc(t *testing.T, data string) ldvalue.Value {
	t.Helper()
	doc := ldvalue.Parse([]byte(data))
	require.False(t, doc.IsNull(), "test document did not parse: %s", data)
	return doc
}

func requirePathError(t *testing.T, err error, kind ErrorKind, prefix string) *Error {
	t.Helper()
	var pathErr *Error
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, kind, pathErr.Kind)
	assert.Equal(t, prefix, pathErr.Prefix)
	return pathErr
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"data", "items", "0", "id"}, Tokenize("data.items[0].id"))
	assert.Equal(t, []string{"data", "items", "0", "id"}, Tokenize("data.items.0.id"))
	assert.Equal(t, []string{"a", "b"}, Tokenize("a..b"))
	assert.Equal(t, []string{"0"}, Tokenize("[0]"))
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("..."))
}

func TestResolveExtractsNestedValue(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":7}]}}`)

	value, err := Resolve(root, "data.items[0].id")
	require.NoError(t, err)
	assert.Equal(t, 7, value.IntValue())
}

func TestResolveIndexOutOfRange(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":7}]}}`)

	_, err := Resolve(root, "data.items[1].id")
	requirePathError(t, err, IndexOutOfRange, "data.items")
	assert.True(t, IsKind(err, IndexOutOfRange))
}

func TestResolveScalarWithTokensRemaining(t *testing.T) {
	root := parseDoc(t, `{"a": 1}`)

	_, err := Resolve(root, "a.b")
	pathErr := requirePathError(t, err, TypeMismatch, "a")
	assert.Contains(t, pathErr.Error(), "number")
}

func TestResolveKeyNotFound(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[]}}`)

	_, err := Resolve(root, "data.entries")
	pathErr := requirePathError(t, err, KeyNotFound, "data")
	assert.Equal(t, "entries", pathErr.Token)
	assert.Contains(t, pathErr.Error(), `"entries"`)
}

func TestResolveFailureAtRootHasEmptyPrefix(t *testing.T) {
	root := parseDoc(t, `{"data": {}}`)

	_, err := Resolve(root, "missing.deeper")
	requirePathError(t, err, KeyNotFound, "")
}

func TestResolveNonIntegerIndex(t *testing.T) {
	root := parseDoc(t, `{"items":[1,2,3]}`)

	_, err := Resolve(root, "items.first")
	pathErr := requirePathError(t, err, TypeMismatch, "items")
	assert.Contains(t, pathErr.Error(), "non-negative integer")
}

func TestResolveNegativeIndex(t *testing.T) {
	root := parseDoc(t, `{"items":[1,2,3]}`)

	_, err := Resolve(root, "items.-1")
	requirePathError(t, err, TypeMismatch, "items")
}

func TestBracketAndDotFormsAreEquivalent(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":7}]}}`)

	bracketed, err := Resolve(root, "data.items[0].id")
	require.NoError(t, err)
	dotted, err := Resolve(root, "data.items.0.id")
	require.NoError(t, err)
	assert.True(t, bracketed.Equal(dotted))
}

func TestResolveEmptyPathReturnsRoot(t *testing.T) {
	root := parseDoc(t, `{"a": 1}`)

	value, err := Resolve(root, "")
	require.NoError(t, err)
	assert.True(t, root.Equal(value))
}

func TestResolveArrayRoot(t *testing.T) {
	root := parseDoc(t, `[10, 20, 30]`)

	value, err := Resolve(root, "[2]")
	require.NoError(t, err)
	assert.Equal(t, 30, value.IntValue())
}

func TestResolveIsIdempotentAndDoesNotMutateRoot(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":7}]}}`)
	before := root.JSONString()

	first, err := Resolve(root, "data.items[0].id")
	require.NoError(t, err)
	second, err := Resolve(root, "data.items[0].id")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, before, root.JSONString())

	_, err = Resolve(root, "data.items[9]")
	require.Error(t, err)
	assert.Equal(t, before, root.JSONString())
}

func TestExists(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":7}]}}`)

	assert.True(t, Exists(root, "data.items[0].id"))
	assert.False(t, Exists(root, "data.items[3]"))
	assert.False(t, Exists(root, "data.missing"))
}

func TestLength(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":1},{"id":2}],"total":2}}`)

	n, err := Length(root, "data.items")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = Length(root, "data.total")
	pathErr := requirePathError(t, err, TypeMismatch, "data.total")
	assert.Contains(t, pathErr.Error(), "expected an array")
}

func TestContainsMatchComparesNumbersByValue(t *testing.T) {
	root := parseDoc(t, `{"items":[{"id":7.0}]}`)
	expected := ldvalue.ObjectBuild().Set("id", ldvalue.Int(7)).Build()

	found, err := ContainsMatch(root, "items", expected)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestContainsMatchIgnoresExtraKeys(t *testing.T) {
	root := parseDoc(t, `{"items":[{"id":1,"name":"alpha","internal":true},{"id":2,"name":"beta"}]}`)

	expected := ldvalue.ObjectBuild().
		Set("id", ldvalue.Int(1)).
		Set("name", ldvalue.String("alpha")).
		Build()
	found, err := ContainsMatch(root, "items", expected)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestContainsMatchRequiresAllDeclaredPairs(t *testing.T) {
	root := parseDoc(t, `{"items":[{"id":1,"name":"alpha"}]}`)

	mismatched := ldvalue.ObjectBuild().
		Set("id", ldvalue.Int(1)).
		Set("name", ldvalue.String("omega")).
		Build()
	found, err := ContainsMatch(root, "items", mismatched)
	require.NoError(t, err)
	assert.False(t, found)

	missingKey := ldvalue.ObjectBuild().Set("sku", ldvalue.String("X")).Build()
	found, err = ContainsMatch(root, "items", missingKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestContainsMatchSkipsNonObjectElements(t *testing.T) {
	root := parseDoc(t, `{"items":[1,"two",{"id":3}]}`)

	expected := ldvalue.ObjectBuild().Set("id", ldvalue.Int(3)).Build()
	found, err := ContainsMatch(root, "items", expected)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestContainsMatchWithScalarExpectation(t *testing.T) {
	root := parseDoc(t, `{"tags":["alpha","beta"]}`)

	found, err := ContainsMatch(root, "tags", ldvalue.String("beta"))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = ContainsMatch(root, "tags", ldvalue.String("gamma"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestContainsMatchOnNonArray(t *testing.T) {
	root := parseDoc(t, `{"items":{"id":1}}`)

	_, err := ContainsMatch(root, "items", ldvalue.ObjectBuild().Build())
	requirePathError(t, err, TypeMismatch, "items")
}

func TestErrorMessagesIncludePathAndPrefix(t *testing.T) {
	root := parseDoc(t, `{"data":{"items":[{"id":7}]}}`)

	_, err := Resolve(root, "data.items[5]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"data.items[5]"`)
	assert.Contains(t, err.Error(), `"data.items"`)
}
