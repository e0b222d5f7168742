package apitests

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/apiharness/api-contract-tests/client"
	"github.com/apiharness/api-contract-tests/config"
	"github.com/apiharness/api-contract-tests/datagen"
	"github.com/apiharness/api-contract-tests/framework"
)

// SuiteConfig carries everything the suites need to reach and exercise the
// target.
type SuiteConfig struct {
	// Environment describes the deployment under test.
	Environment config.Environment

	// Settings tunes retries and time budgets.
	Settings config.TestSettings

	// HTTPClient optionally replaces the transport, for example a
	// handler-backed client for in-process targets. When nil, a real client is
	// built using the environment's timeout.
	HTTPClient *http.Client

	// Seed drives generated test data; runs with equal seeds use equal data.
	Seed int64
}

// RunTestSuite executes every suite against the target and returns the
// accumulated results. The filter may be nil to run everything.
func RunTestSuite(
	ctx context.Context,
	sc SuiteConfig,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	env := &environment{
		newClient: clientFactory(sc),
		settings:  sc.Settings,
		gen:       datagen.NewStream(sc.Seed, "suite"),
		ctx:       ctx,
	}
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := &T{context: c, env: env}

		t.Run("smoke", DoSmokeTests)
		t.Run("users", DoUserTests)
		t.Run("products", DoProductTests)
		t.Run("orders", DoOrderTests)
		t.Run("security", DoSecurityTests)
		t.Run("integration", DoIntegrationTests)
	})
}

// NewTargetClient builds a client for the configured target, with the
// environment's timeout, headers, and auth applied. The suites build one per
// test so each test's requests land in its own debug log; the load test
// scenarios share one.
func NewTargetClient(sc SuiteConfig, logger framework.Logger) *client.Client {
	opts := []client.Option{client.WithLogger(logger)}
	if sc.HTTPClient != nil {
		opts = append(opts, client.WithHTTPClient(sc.HTTPClient))
	}
	if sc.Environment.Timeout > 0 {
		opts = append(opts, client.WithTimeout(sc.Environment.Timeout))
	}
	for name, value := range sc.Environment.Headers {
		opts = append(opts, client.WithHeader(name, value))
	}
	c := client.New(sc.Environment.BaseURL, opts...)
	applyAuth(c, sc.Environment.Auth)
	return c
}

func clientFactory(sc SuiteConfig) func(framework.Logger) *client.Client {
	return func(logger framework.Logger) *client.Client {
		return NewTargetClient(sc, logger)
	}
}

// applyAuth sets the client's default Authorization header from the
// environment's auth settings.
func applyAuth(c *client.Client, auth config.AuthConfig) {
	switch strings.ToLower(auth.Type) {
	case "", "none":
	case "bearer":
		c.SetAuthorization("Bearer", auth.Token)
	case "basic":
		creds := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
		c.SetAuthorization("Basic", creds)
	}
}
