package apitests

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiharness/api-contract-tests/assertions"
	"github.com/apiharness/api-contract-tests/client"
	"github.com/apiharness/api-contract-tests/framework"
)

func DoSecurityTests(t *T) {
	t.Run("protected endpoints reject missing tokens", func(t *T) {
		t.Severity("blocker")
		t.Logout()
		resp := t.Get("/users")
		assertions.Status(t, resp, http.StatusUnauthorized)
		assertions.HeaderPresent(t, resp, "WWW-Authenticate")
		assertions.StringAtPath(t, resp, "error.code", "missing_token")
	})

	t.Run("garbage tokens are rejected", func(t *T) {
		t.Client().SetAuthorization("Bearer", "not-a-real-token")
		resp := t.Get("/users")
		assertions.Status(t, resp, http.StatusUnauthorized)
		assertions.StringAtPath(t, resp, "error.code", "invalid_token")
	})

	t.Run("wrong credentials cannot obtain a token", func(t *T) {
		resp := t.Post("/auth/token", client.WithJSONBody(map[string]string{
			"username": adminUser,
			"password": "definitely-wrong",
		}))
		assertions.Status(t, resp, http.StatusUnauthorized)
		assertions.HeaderPresent(t, resp, "WWW-Authenticate")
	})

	t.Run("tokens carry the account's claims", func(t *T) {
		token := t.LoginAsAdmin()
		claims, err := client.ParseJWTClaims(token)
		require.NoError(t, err)
		assert.Equal(t, adminUser, claims.GetByKey("sub").StringValue())
		assert.Equal(t, "admin", claims.GetByKey("role").StringValue())
		assert.Greater(t, claims.GetByKey("exp").Float64Value(), float64(time.Now().Unix()),
			"token must not be issued already expired")
	})

	t.Run("expired tokens are rejected", func(t *T) {
		resp := t.Post("/auth/token", client.WithJSONBody(map[string]any{
			"username":    regularUser,
			"password":    regularPassword,
			"ttl_seconds": -60,
		}))
		if !assertions.Status(t, resp, http.StatusOK) {
			t.FailNow()
		}
		token, ok := assertions.AtPath(t, resp, "access_token")
		if !ok {
			t.FailNow()
		}
		t.Client().SetAuthorization("Bearer", token.StringValue())
		denied := t.Get("/users")
		assertions.Status(t, denied, http.StatusUnauthorized)
		assertions.StringAtPath(t, denied, "error.code", "invalid_token")
	})

	t.Run("regular users cannot perform admin actions", func(t *T) {
		t.Severity("critical")
		t.LoginAsUser()
		id, _ := createTestUser(t)
		resp := t.Delete(fmt.Sprintf("/users/%d", id))
		assertions.Status(t, resp, http.StatusForbidden)
		assertions.StringAtPath(t, resp, "error.code", "forbidden")
	})

	t.Run("markup is stripped from stored names", func(t *T) {
		t.LoginAsUser()
		resp := t.Post("/users", client.WithJSONBody(map[string]any{
			"name":  "<script>alert('xss')</script>Mallory",
			"email": t.Gen().Email(),
		}))
		assertions.Status(t, resp, http.StatusCreated)
		assertions.StringAtPath(t, resp, "name", "Mallory")
	})

	t.Run("injection-shaped ids are rejected outright", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/users/" + url.PathEscape("1 OR 1=1"))
		assertions.Status(t, resp, http.StatusBadRequest)
		assertions.StringAtPath(t, resp, "error.code", "invalid_id")

		resp = t.Get("/users/" + url.PathEscape("1; DROP TABLE users"))
		assertions.Status(t, resp, http.StatusBadRequest)
	})

	t.Run("injection-shaped filters are harmless", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/users", client.WithQuery("role", "user' OR '1'='1"))
		assertions.Status(t, resp, http.StatusOK)
		assertions.IntAtPath(t, resp, "data.total", 0)
	})

	t.Run("credentials never appear in the request debug log", func(t *T) {
		token := t.Login(adminUser, adminPassword)

		var capture framework.CapturingLogger
		c := t.env.newClient(&capture)
		c.SetAuthorization("Bearer", token)
		resp, err := c.Get(t.Ctx(), "/users")
		require.NoError(t, err)
		assertions.Success(t, resp)

		log := capture.Output().String()
		assert.Contains(t, log, "Authorization")
		assert.NotContains(t, log, token)
	})

	t.Run("rate limits are advertised and enforced", func(t *T) {
		t.Logout()
		probe := func() *client.Response {
			return t.Get("/slow", client.WithQuery("delay", "0s"))
		}

		first := probe()
		if first.Header.Get("X-RateLimit-Limit") == "" {
			t.SkipWithReason("target does not advertise rate limits")
		}
		if first.StatusCode == http.StatusTooManyRequests {
			assertions.HeaderPresent(t, first, "Retry-After")
			return
		}
		assertions.Status(t, first, http.StatusOK)
		limit, err := strconv.Atoi(first.Header.Get("X-RateLimit-Limit"))
		require.NoError(t, err)

		second := probe()
		remainingFirst, _ := strconv.Atoi(first.Header.Get("X-RateLimit-Remaining"))
		remainingSecond, _ := strconv.Atoi(second.Header.Get("X-RateLimit-Remaining"))
		assert.Less(t, remainingSecond, remainingFirst, "quota must shrink with each request")

		if limit > 50 {
			t.SkipWithReason(fmt.Sprintf("advertised limit %d is too high to drive to exhaustion", limit))
		}
		for i := 0; i < limit+2; i++ {
			resp := probe()
			if resp.StatusCode == http.StatusTooManyRequests {
				assertions.HeaderPresent(t, resp, "Retry-After")
				assertions.StringAtPath(t, resp, "error.code", "rate_limited")
				return
			}
		}
		require.Fail(t, "never saw HTTP 429 despite exceeding the advertised limit")
	})
}
