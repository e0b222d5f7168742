package apitests

import (
	"fmt"
	"net/http"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/apiharness/api-contract-tests/assertions"
	"github.com/apiharness/api-contract-tests/client"
)

const productSchema = `{
	"type": "object",
	"required": ["id", "name", "sku", "category", "price", "stock"],
	"properties": {
		"id":    {"type": "integer", "minimum": 1},
		"name":  {"type": "string", "minLength": 1},
		"sku":   {"type": "string", "minLength": 1},
		"price": {"type": "number", "minimum": 0},
		"stock": {"type": "integer", "minimum": 0}
	}
}`

// createTestProduct provisions a product with the given stock and returns its
// id and unit price. The current client must be logged in as an admin.
func createTestProduct(t *T, stock int) (int, float64) {
	payload := t.Gen().ProductPayload()
	payload["stock"] = stock
	resp := t.Post("/products", client.WithJSONBody(payload))
	if !assertions.Status(t, resp, http.StatusCreated) {
		t.FailNow()
	}
	doc, ok := assertions.JSONBody(t, resp)
	if !ok {
		t.FailNow()
	}
	return doc.GetByKey("id").IntValue(), doc.GetByKey("price").Float64Value()
}

func DoProductTests(t *T) {
	t.Run("catalog is browsable", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/products")
		assertions.Status(t, resp, http.StatusOK)
		assertions.PathExists(t, resp, "data.items[0].sku")
		assertions.PathExists(t, resp, "data.total")
	})

	t.Run("writes require the admin role", func(t *T) {
		t.Severity("critical")
		t.LoginAsUser()
		resp := t.Post("/products", client.WithJSONBody(t.Gen().ProductPayload()))
		assertions.Status(t, resp, http.StatusForbidden)
		assertions.StringAtPath(t, resp, "error.code", "forbidden")
	})

	t.Run("admins can create and delete products", func(t *T) {
		t.LoginAsAdmin()
		payload := t.Gen().ProductPayload()
		created := t.Post("/products", client.WithJSONBody(payload))
		assertions.Status(t, created, http.StatusCreated)
		assertions.HeaderPresent(t, created, "Location")
		assertions.StringAtPath(t, created, "sku", payload["sku"].(string))
		id, ok := assertions.AtPath(t, created, "id")
		if !ok {
			t.FailNow()
		}
		path := fmt.Sprintf("/products/%d", id.IntValue())

		fetched := t.Get(path)
		assertions.Status(t, fetched, http.StatusOK)
		assertions.StringAtPath(t, fetched, "name", payload["name"].(string))

		deleted := t.Delete(path)
		assertions.Status(t, deleted, http.StatusNoContent)
		assertions.Status(t, t.Get(path), http.StatusNotFound)
	})

	t.Run("duplicate skus are a conflict", func(t *T) {
		t.LoginAsAdmin()
		payload := t.Gen().ProductPayload()
		first := t.Post("/products", client.WithJSONBody(payload))
		assertions.Status(t, first, http.StatusCreated)

		second := t.Post("/products", client.WithJSONBody(payload))
		assertions.Status(t, second, http.StatusConflict)
		assertions.StringAtPath(t, second, "error.code", "duplicate_sku")
	})

	t.Run("category filter returns only that category", func(t *T) {
		t.LoginAsAdmin()
		payload := t.Gen().ProductPayload()
		created := t.Post("/products", client.WithJSONBody(payload))
		assertions.Status(t, created, http.StatusCreated)
		id, _ := assertions.AtPath(t, created, "id")
		category := payload["category"].(string)

		list := t.Get("/products",
			client.WithQuery("category", category),
			client.WithQuery("page_size", "100"))
		assertions.Status(t, list, http.StatusOK)
		assertions.ListContains(t, list, "data.items", ldvalue.ObjectBuild().
			Set("id", id).
			Set("category", ldvalue.String(category)).
			Build())

		doc, ok := assertions.JSONBody(t, list)
		if !ok {
			t.FailNow()
		}
		items := doc.GetByKey("data").GetByKey("items")
		for i := 0; i < items.Count(); i++ {
			got := items.GetByIndex(i).GetByKey("category").StringValue()
			if got != category {
				t.Errorf("item %d has category %q, filter asked for %q", i, got, category)
			}
		}
	})

	t.Run("inventory view is admin-only", func(t *T) {
		t.LoginAsUser()
		resp := t.Get("/products/admin")
		assertions.Status(t, resp, http.StatusForbidden)

		t.LoginAsAdmin()
		resp = t.Get("/products/admin")
		assertions.Status(t, resp, http.StatusOK)
		assertions.PathExists(t, resp, "data.stock_units")
		assertions.PathExists(t, resp, "data.stock_value")

		doc, ok := assertions.JSONBody(t, resp)
		if !ok {
			t.FailNow()
		}
		items := doc.GetByKey("data").GetByKey("items").Count()
		total := doc.GetByKey("data").GetByKey("total").IntValue()
		if items != total {
			t.Errorf("inventory reports total %d but returned %d items", total, items)
		}
	})

	t.Run("validation rejects bad payloads", func(t *T) {
		t.LoginAsAdmin()

		freePrice := t.Gen().ProductPayload()
		freePrice["price"] = 0
		resp := t.Post("/products", client.WithJSONBody(freePrice))
		assertions.Status(t, resp, http.StatusBadRequest)
		assertions.StringAtPath(t, resp, "error.code", "validation")

		negativeStock := t.Gen().ProductPayload()
		negativeStock["stock"] = -1
		resp = t.Post("/products", client.WithJSONBody(negativeStock))
		assertions.Status(t, resp, http.StatusBadRequest)
	})

	t.Run("product documents match the schema", func(t *T) {
		t.LoginAsAdmin()
		id, _ := createTestProduct(t, 5)
		resp := t.Get(fmt.Sprintf("/products/%d", id))
		assertions.Status(t, resp, http.StatusOK)
		assertions.MatchesSchema(t, resp, productSchema)
	})
}
