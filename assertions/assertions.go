// Package assertions provides response-level checks for API tests. Each
// function reports failures through the testify TestingT interface, so the
// helpers work both inside harness test contexts and in ordinary Go tests.
// Failure messages include the request line and a body snippet so a failed
// run can be diagnosed from the log alone.
package assertions

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/apiharness/api-contract-tests/client"
	"github.com/apiharness/api-contract-tests/jsonpath"
)

const bodySnippetLimit = 500

type tHelper interface{ Helper() }

func helper(t assert.TestingT) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
}

func requestLine(resp *client.Response) string {
	return fmt.Sprintf("%s %s", resp.Method, resp.URL)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}

// Status asserts that the response has exactly the given status code.
func Status(t assert.TestingT, resp *client.Response, want int) bool {
	helper(t)
	if resp.StatusCode == want {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected HTTP %d from %s, got %d\nbody: %s",
		want, requestLine(resp), resp.StatusCode, truncate(resp.BodyString(), bodySnippetLimit)))
}

// Success asserts that the response status is in the 2xx range.
func Success(t assert.TestingT, resp *client.Response) bool {
	helper(t)
	if resp.IsSuccess() {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected success from %s, got HTTP %d\nbody: %s",
		requestLine(resp), resp.StatusCode, truncate(resp.BodyString(), bodySnippetLimit)))
}

// ClientError asserts that the response status is in the 4xx range.
func ClientError(t assert.TestingT, resp *client.Response) bool {
	helper(t)
	if resp.IsClientError() {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected a client error from %s, got HTTP %d",
		requestLine(resp), resp.StatusCode))
}

// ServerError asserts that the response status is in the 5xx range.
func ServerError(t assert.TestingT, resp *client.Response) bool {
	helper(t)
	if resp.IsServerError() {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected a server error from %s, got HTTP %d",
		requestLine(resp), resp.StatusCode))
}

// HeaderPresent asserts that the named response header is set.
func HeaderPresent(t assert.TestingT, resp *client.Response, name string) bool {
	helper(t)
	if resp.Header.Get(name) != "" {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected header %q on response from %s", name, requestLine(resp)))
}

// HeaderEquals asserts that the named response header has exactly the given value.
func HeaderEquals(t assert.TestingT, resp *client.Response, name, want string) bool {
	helper(t)
	got := resp.Header.Get(name)
	if got == want {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected header %q to be %q on response from %s, got %q",
		name, want, requestLine(resp), got))
}

// ContentType asserts the media type of the response, ignoring parameters
// such as charset.
func ContentType(t assert.TestingT, resp *client.Response, want string) bool {
	helper(t)
	got := resp.ContentType()
	if got == want {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected content type %q from %s, got %q",
		want, requestLine(resp), got))
}

// BodyContains asserts that the raw response body contains the substring.
func BodyContains(t assert.TestingT, resp *client.Response, substr string) bool {
	helper(t)
	body := resp.BodyString()
	if strings.Contains(body, substr) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected body from %s to contain %q\nbody: %s",
		requestLine(resp), substr, truncate(body, bodySnippetLimit)))
}

// BodyMatchesPattern asserts that the raw response body matches the regular
// expression.
func BodyMatchesPattern(t assert.TestingT, resp *client.Response, pattern string) bool {
	helper(t)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("invalid body pattern %q: %s", pattern, err))
	}
	if re.MatchString(resp.BodyString()) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected body from %s to match %q\nbody: %s",
		requestLine(resp), pattern, truncate(resp.BodyString(), bodySnippetLimit)))
}

// ResponseTimeUnder asserts that the round trip completed within max.
func ResponseTimeUnder(t assert.TestingT, resp *client.Response, max time.Duration) bool {
	helper(t)
	if resp.Elapsed <= max {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected %s to complete within %s, took %s",
		requestLine(resp), max, resp.Elapsed))
}

// JSONBody asserts that the body parses as JSON and returns the parsed value.
func JSONBody(t assert.TestingT, resp *client.Response) (ldvalue.Value, bool) {
	helper(t)
	value, err := resp.JSON()
	if err != nil {
		return ldvalue.Null(), assert.Fail(t, fmt.Sprintf("expected a JSON body from %s: %s\nbody: %s",
			requestLine(resp), err, truncate(resp.BodyString(), bodySnippetLimit)))
	}
	return value, true
}

// AtPath asserts that the body is JSON and that path resolves within it,
// returning the value found there.
func AtPath(t assert.TestingT, resp *client.Response, path string) (ldvalue.Value, bool) {
	helper(t)
	doc, ok := JSONBody(t, resp)
	if !ok {
		return ldvalue.Null(), false
	}
	value, err := jsonpath.Resolve(doc, path)
	if err != nil {
		return ldvalue.Null(), assert.Fail(t, fmt.Sprintf("response from %s: %s", requestLine(resp), err))
	}
	return value, true
}

// ValueAtPath asserts that the value at path equals want. Numbers compare by
// value, so an expected integer matches a float of equal magnitude.
func ValueAtPath(t assert.TestingT, resp *client.Response, path string, want ldvalue.Value) bool {
	helper(t)
	got, ok := AtPath(t, resp, path)
	if !ok {
		return false
	}
	if got.Equal(want) {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected %s at path %q from %s, got %s",
		want.JSONString(), path, requestLine(resp), got.JSONString()))
}

// StringAtPath asserts that the value at path is the given string.
func StringAtPath(t assert.TestingT, resp *client.Response, path, want string) bool {
	helper(t)
	return ValueAtPath(t, resp, path, ldvalue.String(want))
}

// IntAtPath asserts that the value at path is the given number.
func IntAtPath(t assert.TestingT, resp *client.Response, path string, want int) bool {
	helper(t)
	return ValueAtPath(t, resp, path, ldvalue.Int(want))
}

// PathExists asserts that path resolves within the JSON body.
func PathExists(t assert.TestingT, resp *client.Response, path string) bool {
	helper(t)
	_, ok := AtPath(t, resp, path)
	return ok
}

// ListLength asserts that path resolves to an array of exactly want elements.
func ListLength(t assert.TestingT, resp *client.Response, path string, want int) bool {
	helper(t)
	doc, ok := JSONBody(t, resp)
	if !ok {
		return false
	}
	got, err := jsonpath.Length(doc, path)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("response from %s: %s", requestLine(resp), err))
	}
	if got == want {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected %d elements at path %q from %s, got %d",
		want, path, requestLine(resp), got))
}

// ListContains asserts that the array at path has an element matching want.
// Object expectations match by subset: every key declared in want must be
// equal in the element, extra element keys are ignored.
func ListContains(t assert.TestingT, resp *client.Response, path string, want ldvalue.Value) bool {
	helper(t)
	doc, ok := JSONBody(t, resp)
	if !ok {
		return false
	}
	found, err := jsonpath.ContainsMatch(doc, path, want)
	if err != nil {
		return assert.Fail(t, fmt.Sprintf("response from %s: %s", requestLine(resp), err))
	}
	if found {
		return true
	}
	return assert.Fail(t, fmt.Sprintf("expected an element matching %s at path %q from %s",
		want.JSONString(), path, requestLine(resp)))
}

