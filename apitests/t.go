package apitests

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/apiharness/api-contract-tests/assertions"
	"github.com/apiharness/api-contract-tests/client"
	"github.com/apiharness/api-contract-tests/config"
	"github.com/apiharness/api-contract-tests/datagen"
	"github.com/apiharness/api-contract-tests/framework"
	"github.com/apiharness/api-contract-tests/retry"
)

// Accounts every conforming target provisions for the harness.
const (
	adminUser       = "admin"
	adminPassword   = "admin123"
	regularUser     = "testuser"
	regularPassword = "password123"
)

type environment struct {
	newClient func(framework.Logger) *client.Client
	settings  config.TestSettings
	gen       *datagen.Generator
	ctx       context.Context
}

// T represents a test or subtest in the API suite.
//
// It implements the same basic functionality as Go's testing.T, but in an
// environment outside of the Go test runner, with extra features such as
// per-test debug logging provided by the lower-level framework package.
//
// Every T owns an HTTP client bound to the target, created on first use with
// this test's debug logger attached, so the request log of a failing test can
// be printed with its result. Authorization is per-T: a Login in one subtest
// never leaks into a sibling.
//
// To make assertions, use the assertions package in this module or the plain
// assert and require packages, passing the *T as if it were a *testing.T.
type T struct {
	context *framework.Context
	env     *environment
	client  *client.Client
}

// Errorf is called by assertions to log a test failure. It does not cause an
// immediate exit.
func (t *T) Errorf(format string, args ...any) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately
// exit. The methods in the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest with its own client and debug log, like the Run method
// of testing.T.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env})
	})
}

// Debug logs debug output for the test. The output is passed to the test
// logger when the test finishes.
func (t *T) Debug(format string, args ...any) {
	t.context.Debug(format, args...)
}

// DebugLogger exposes the test's debug log for components that take a logger.
func (t *T) DebugLogger() framework.Logger {
	return t.context.DebugLogger()
}

// SkipWithReason marks the test as skipped and immediately exits it.
func (t *T) SkipWithReason(reason string) {
	t.context.SkipWithReason(reason)
}

// Severity labels this test's severity for report writers.
func (t *T) Severity(level string) {
	t.context.Label("severity", level)
}

// Feature labels the feature this test covers for report writers.
func (t *T) Feature(name string) {
	t.context.Label("feature", name)
}

// Ctx is the context bounding the whole run. Requests made through the T
// helpers use it.
func (t *T) Ctx() context.Context {
	return t.env.ctx
}

// Gen returns the run's shared data generator.
func (t *T) Gen() *datagen.Generator {
	return t.env.gen
}

// Settings returns the run's test settings (retry policy, time budgets).
func (t *T) Settings() config.TestSettings {
	return t.env.settings
}

// Client returns this test's HTTP client, creating it on first use.
func (t *T) Client() *client.Client {
	if t.client == nil {
		t.client = t.env.newClient(t.context.DebugLogger())
	}
	return t.client
}

// RequireResponse fails the test immediately on a transport error and
// otherwise returns the response.
func (t *T) RequireResponse(resp *client.Response, err error) *client.Response {
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func (t *T) Get(path string, opts ...client.RequestOption) *client.Response {
	return t.RequireResponse(t.Client().Get(t.env.ctx, path, opts...))
}

func (t *T) Post(path string, opts ...client.RequestOption) *client.Response {
	return t.RequireResponse(t.Client().Post(t.env.ctx, path, opts...))
}

func (t *T) Put(path string, opts ...client.RequestOption) *client.Response {
	return t.RequireResponse(t.Client().Put(t.env.ctx, path, opts...))
}

func (t *T) Patch(path string, opts ...client.RequestOption) *client.Response {
	return t.RequireResponse(t.Client().Patch(t.env.ctx, path, opts...))
}

func (t *T) Delete(path string, opts ...client.RequestOption) *client.Response {
	return t.RequireResponse(t.Client().Delete(t.env.ctx, path, opts...))
}

// GetWithRetry performs the GET under the configured retry policy for
// transient failures, failing the test if every attempt fails.
func (t *T) GetWithRetry(path string, opts ...client.RequestOption) *client.Response {
	policy := t.env.settings.Retry.Policy(client.TransientKinds...)
	ex := &retry.Executor{Logger: t.context.DebugLogger()}
	outcome := retry.Execute(t.env.ctx, ex, policy, t.Client().RetryableRequest(http.MethodGet, path, opts...))
	require.NoError(t, outcome.Err)
	return outcome.Value
}

// Login obtains a bearer token from the auth endpoint, applies it to this
// test's client, and returns it. It fails the test if the target refuses.
func (t *T) Login(username, password string) string {
	resp := t.Post("/auth/token", client.WithJSONBody(map[string]string{
		"username": username,
		"password": password,
	}))
	if !assertions.Status(t, resp, http.StatusOK) {
		t.FailNow()
	}
	token, ok := assertions.AtPath(t, resp, "access_token")
	if !ok {
		t.FailNow()
	}
	if token.Type() != ldvalue.StringType || token.StringValue() == "" {
		require.Fail(t, "auth endpoint did not return a usable access_token", "got %s", token.JSONString())
	}
	t.Client().SetAuthorization("Bearer", token.StringValue())
	return token.StringValue()
}

func (t *T) LoginAsAdmin() string {
	return t.Login(adminUser, adminPassword)
}

func (t *T) LoginAsUser() string {
	return t.Login(regularUser, regularPassword)
}

// Logout removes any Authorization header from this test's client.
func (t *T) Logout() {
	t.Client().ClearAuthorization()
}
