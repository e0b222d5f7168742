package assertions

import (
	"fmt"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/xeipuuv/gojsonschema"

	"github.com/apiharness/api-contract-tests/client"
)

// MatchesSchema asserts that the response body validates against the JSON
// schema given as a string. Every violation is reported with its field path.
func MatchesSchema(t assert.TestingT, resp *client.Response, schema string) bool {
	helper(t)
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(resp.Body)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("schema validation of response from %s could not run: %s",
			requestLine(resp), err))
	}
	if result.Valid() {
		return true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "response from %s does not match schema:", requestLine(resp))
	for _, desc := range result.Errors() {
		fmt.Fprintf(&b, "\n  - %s: %s", desc.Field(), desc.Description())
	}
	return assert.Fail(t, b.String())
}
