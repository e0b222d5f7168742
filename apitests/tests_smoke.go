package apitests

import (
	"net/http"

	"github.com/apiharness/api-contract-tests/assertions"
)

func DoSmokeTests(t *T) {
	t.Run("health endpoint answers", func(t *T) {
		t.Severity("blocker")
		resp := t.Get("/health")
		assertions.Status(t, resp, http.StatusOK)
		assertions.ContentType(t, resp, "application/json")
		assertions.StringAtPath(t, resp, "status", "ok")
		assertions.ResponseTimeUnder(t, resp, t.Settings().MaxResponseTime)
	})

	t.Run("version endpoint reports the service", func(t *T) {
		resp := t.Get("/version")
		assertions.Status(t, resp, http.StatusOK)
		assertions.PathExists(t, resp, "name")
		assertions.BodyMatchesPattern(t, resp, `"version":\s*"\d+\.\d+`)
	})

	t.Run("unknown routes return 404", func(t *T) {
		resp := t.Get("/no/such/route")
		assertions.Status(t, resp, http.StatusNotFound)
	})
}
