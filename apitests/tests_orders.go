package apitests

import (
	"fmt"
	"math"
	"net/http"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/apiharness/api-contract-tests/assertions"
	"github.com/apiharness/api-contract-tests/client"
)

func orderBody(userID, productID, quantity int) map[string]any {
	return map[string]any{
		"user_id": userID,
		"items":   []map[string]any{{"product_id": productID, "quantity": quantity}},
	}
}

// placeOrder creates an order and returns its id. The current client must be
// authenticated.
func placeOrder(t *T, userID, productID, quantity int) int {
	resp := t.Post("/orders", client.WithJSONBody(orderBody(userID, productID, quantity)))
	if !assertions.Status(t, resp, http.StatusCreated) {
		t.FailNow()
	}
	id, ok := assertions.AtPath(t, resp, "id")
	if !ok {
		t.FailNow()
	}
	return id.IntValue()
}

func DoOrderTests(t *T) {
	t.Run("placing an order reserves stock", func(t *T) {
		t.Severity("critical")
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, price := createTestProduct(t, 10)

		order := t.Post("/orders", client.WithJSONBody(orderBody(userID, productID, 2)))
		assertions.Status(t, order, http.StatusCreated)
		assertions.HeaderPresent(t, order, "Location")
		assertions.StringAtPath(t, order, "status", "pending")
		assertions.IntAtPath(t, order, "items[0].quantity", 2)
		assertions.ValueAtPath(t, order, "total", ldvalue.Float64(math.Round(price*2*100)/100))

		product := t.Get(fmt.Sprintf("/products/%d", productID))
		assertions.IntAtPath(t, product, "stock", 8)
	})

	t.Run("orders move through the fulfillment statuses", func(t *T) {
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 10)
		orderID := placeOrder(t, userID, productID, 1)
		path := fmt.Sprintf("/orders/%d", orderID)

		processing := t.Patch(path, client.WithJSONBody(map[string]string{"status": "processing"}))
		assertions.Status(t, processing, http.StatusOK)
		assertions.StringAtPath(t, processing, "status", "processing")

		shipped := t.Patch(path, client.WithJSONBody(map[string]string{"status": "shipped"}))
		assertions.Status(t, shipped, http.StatusOK)
		assertions.PathExists(t, shipped, "tracking_number")

		delivered := t.Patch(path, client.WithJSONBody(map[string]string{"status": "delivered"}))
		assertions.Status(t, delivered, http.StatusOK)

		backward := t.Patch(path, client.WithJSONBody(map[string]string{"status": "processing"}))
		assertions.Status(t, backward, http.StatusConflict)
		assertions.StringAtPath(t, backward, "error.code", "invalid_transition")
	})

	t.Run("pending orders cannot skip to shipped", func(t *T) {
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 10)
		orderID := placeOrder(t, userID, productID, 1)

		resp := t.Patch(fmt.Sprintf("/orders/%d", orderID),
			client.WithJSONBody(map[string]string{"status": "shipped"}))
		assertions.Status(t, resp, http.StatusConflict)
		assertions.StringAtPath(t, resp, "error.code", "invalid_transition")
	})

	t.Run("cancelling restores stock and records the reason", func(t *T) {
		t.Severity("critical")
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 10)
		orderID := placeOrder(t, userID, productID, 3)

		before := t.Get(fmt.Sprintf("/products/%d", productID))
		assertions.IntAtPath(t, before, "stock", 7)

		cancelled := t.Post(fmt.Sprintf("/orders/%d/cancel", orderID),
			client.WithJSONBody(map[string]string{"reason": "ordered by mistake"}))
		assertions.Status(t, cancelled, http.StatusOK)
		assertions.StringAtPath(t, cancelled, "status", "cancelled")
		assertions.StringAtPath(t, cancelled, "cancellation_reason", "ordered by mistake")
		assertions.PathExists(t, cancelled, "cancelled_at")

		after := t.Get(fmt.Sprintf("/products/%d", productID))
		assertions.IntAtPath(t, after, "stock", 10)

		again := t.Post(fmt.Sprintf("/orders/%d/cancel", orderID))
		assertions.Status(t, again, http.StatusConflict)
	})

	t.Run("deleted orders stop existing", func(t *T) {
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 5)
		orderID := placeOrder(t, userID, productID, 1)
		path := fmt.Sprintf("/orders/%d", orderID)

		deleted := t.Delete(path)
		assertions.Status(t, deleted, http.StatusNoContent)

		missing := t.Get(path)
		assertions.Status(t, missing, http.StatusNotFound)
		assertions.StringAtPath(t, missing, "error.code", "not_found")
	})

	t.Run("insufficient stock is a conflict", func(t *T) {
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 1)

		resp := t.Post("/orders", client.WithJSONBody(orderBody(userID, productID, 5)))
		assertions.Status(t, resp, http.StatusConflict)
		assertions.StringAtPath(t, resp, "error.code", "insufficient_stock")
	})

	t.Run("orders for unknown users are rejected", func(t *T) {
		t.LoginAsAdmin()
		productID, _ := createTestProduct(t, 5)

		resp := t.Post("/orders", client.WithJSONBody(orderBody(99999999, productID, 1)))
		assertions.Status(t, resp, http.StatusBadRequest)
		assertions.StringAtPath(t, resp, "error.code", "validation")
	})

	t.Run("orders need at least one item", func(t *T) {
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)

		resp := t.Post("/orders", client.WithJSONBody(map[string]any{
			"user_id": userID,
			"items":   []map[string]any{},
		}))
		assertions.Status(t, resp, http.StatusBadRequest)
	})

	t.Run("a user's orders are listed under the user", func(t *T) {
		t.LoginAsAdmin()
		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 10)
		orderID := placeOrder(t, userID, productID, 1)

		resp := t.Get(fmt.Sprintf("/users/%d/orders", userID))
		assertions.Status(t, resp, http.StatusOK)
		assertions.ListContains(t, resp, "data.items", ldvalue.ObjectBuild().
			Set("id", ldvalue.Int(orderID)).
			Set("user_id", ldvalue.Int(userID)).
			Build())
	})
}
