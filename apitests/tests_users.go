package apitests

import (
	"fmt"
	"net/http"
	"net/url"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/apiharness/api-contract-tests/assertions"
	"github.com/apiharness/api-contract-tests/client"
)

const userSchema = `{
	"type": "object",
	"required": ["id", "name", "email", "role", "created_at"],
	"properties": {
		"id":    {"type": "integer", "minimum": 1},
		"name":  {"type": "string", "minLength": 1},
		"email": {"type": "string", "pattern": "@"},
		"role":  {"type": "string", "enum": ["user", "admin"]}
	}
}`

// createTestUser provisions a user through the API and returns its id and the
// payload it was created from. It fails the test if the target refuses.
func createTestUser(t *T) (int, map[string]any) {
	payload := t.Gen().UserPayload()
	resp := t.Post("/users", client.WithJSONBody(payload))
	if !assertions.Status(t, resp, http.StatusCreated) {
		t.FailNow()
	}
	id, ok := assertions.AtPath(t, resp, "id")
	if !ok {
		t.FailNow()
	}
	return id.IntValue(), payload
}

func DoUserTests(t *T) {
	t.Run("listing returns the envelope", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/users")
		assertions.Status(t, resp, http.StatusOK)
		assertions.ContentType(t, resp, "application/json")
		assertions.PathExists(t, resp, "data.items")
		assertions.PathExists(t, resp, "data.total")
		assertions.PathExists(t, resp, "data.items[0].id")
	})

	t.Run("create read update delete", func(t *T) {
		t.Severity("critical")
		t.LoginAsAdmin()

		payload := t.Gen().UserPayload()
		created := t.Post("/users", client.WithJSONBody(payload))
		assertions.Status(t, created, http.StatusCreated)
		assertions.HeaderPresent(t, created, "Location")
		assertions.StringAtPath(t, created, "name", payload["name"].(string))
		assertions.StringAtPath(t, created, "role", "user")
		id, ok := assertions.AtPath(t, created, "id")
		if !ok {
			t.FailNow()
		}
		path := fmt.Sprintf("/users/%d", id.IntValue())

		fetched := t.Get(path)
		assertions.Status(t, fetched, http.StatusOK)
		assertions.StringAtPath(t, fetched, "email", payload["email"].(string))

		updated := t.Put(path, client.WithJSONBody(map[string]any{
			"name":  "Renamed " + payload["name"].(string),
			"email": payload["email"],
		}))
		assertions.Status(t, updated, http.StatusOK)
		assertions.StringAtPath(t, updated, "name", "Renamed "+payload["name"].(string))

		deleted := t.Delete(path)
		assertions.Status(t, deleted, http.StatusNoContent)

		missing := t.Get(path)
		assertions.Status(t, missing, http.StatusNotFound)
		assertions.StringAtPath(t, missing, "error.code", "not_found")
	})

	t.Run("partial updates change only the named fields", func(t *T) {
		t.LoginAsUser()
		id, payload := createTestUser(t)
		path := fmt.Sprintf("/users/%d", id)

		patched := t.Patch(path, client.WithJSONBody(map[string]any{"phone": "+1-555-7788"}))
		assertions.Status(t, patched, http.StatusOK)
		assertions.StringAtPath(t, patched, "phone", "+1-555-7788")
		assertions.StringAtPath(t, patched, "name", payload["name"].(string))
		assertions.StringAtPath(t, patched, "email", payload["email"].(string))
	})

	t.Run("created users appear in the list", func(t *T) {
		t.LoginAsUser()
		id, payload := createTestUser(t)
		list := t.Get("/users", client.WithQuery("page_size", "100"))
		assertions.Status(t, list, http.StatusOK)
		assertions.ListContains(t, list, "data.items", ldvalue.ObjectBuild().
			Set("id", ldvalue.Int(id)).
			Set("email", ldvalue.String(payload["email"].(string))).
			Build())
	})

	t.Run("pagination windows the list", func(t *T) {
		t.LoginAsUser()
		createTestUser(t)
		createTestUser(t)
		page := t.Get("/users", client.WithQueryParams(url.Values{
			"page":      {"1"},
			"page_size": {"2"},
		}))
		assertions.Status(t, page, http.StatusOK)
		assertions.ListLength(t, page, "data.items", 2)
	})

	t.Run("validation rejects bad payloads", func(t *T) {
		t.LoginAsUser()

		noEmail := t.Post("/users", client.WithJSONBody(map[string]any{"name": "No Email"}))
		assertions.Status(t, noEmail, http.StatusBadRequest)
		assertions.StringAtPath(t, noEmail, "error.code", "validation")

		badRole := t.Post("/users", client.WithJSONBody(map[string]any{
			"name": "Bad Role", "email": "bad.role@example.com", "role": "root",
		}))
		assertions.Status(t, badRole, http.StatusBadRequest)

		notJSON := t.Post("/users", client.WithRawBody("application/json", []byte("{not json")))
		assertions.Status(t, notJSON, http.StatusBadRequest)
	})

	t.Run("unknown users are a 404", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/users/99999999")
		assertions.Status(t, resp, http.StatusNotFound)
		assertions.StringAtPath(t, resp, "error.code", "not_found")
	})

	t.Run("malformed ids are rejected", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/users/" + url.PathEscape("latest"))
		assertions.Status(t, resp, http.StatusBadRequest)
		assertions.StringAtPath(t, resp, "error.code", "invalid_id")
	})

	t.Run("user documents match the schema", func(t *T) {
		t.LoginAsUser()
		id, _ := createTestUser(t)
		resp := t.Get(fmt.Sprintf("/users/%d", id))
		assertions.Status(t, resp, http.StatusOK)
		assertions.MatchesSchema(t, resp, userSchema)
	})
}
