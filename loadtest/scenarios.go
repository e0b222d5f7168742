package loadtest

import (
	"context"
	"fmt"

	"github.com/apiharness/api-contract-tests/client"
	"github.com/apiharness/api-contract-tests/datagen"
)

// DefaultScenarios is the built-in traffic mix: mostly reads, with an
// occasional order that is placed, fetched, and cancelled again so repeated
// runs never drain product stock.
func DefaultScenarios(c *client.Client, gen *datagen.Generator) []Scenario {
	return []Scenario{
		{Name: "health", Weight: 1, Run: func(ctx context.Context) error {
			_, err := client.EnsureSuccess(c.Get(ctx, "/health"))
			return err
		}},
		{Name: "list users", Weight: 3, Run: func(ctx context.Context) error {
			_, err := client.EnsureSuccess(c.Get(ctx, "/users", client.WithQuery("page_size", "20")))
			return err
		}},
		{Name: "read user", Weight: 3, Run: func(ctx context.Context) error {
			_, err := client.EnsureSuccess(c.Get(ctx, fmt.Sprintf("/users/%d", gen.IntBetween(1, 8))))
			return err
		}},
		{Name: "browse products", Weight: 4, Run: func(ctx context.Context) error {
			_, err := client.EnsureSuccess(c.Get(ctx, "/products"))
			return err
		}},
		{Name: "order round trip", Weight: 1, Run: func(ctx context.Context) error {
			return orderRoundTrip(ctx, c, gen)
		}},
	}
}

func orderRoundTrip(ctx context.Context, c *client.Client, gen *datagen.Generator) error {
	payload := gen.OrderPayload(gen.IntBetween(1, 8), gen.IntBetween(1, 12))
	resp, err := client.EnsureSuccess(c.Post(ctx, "/orders", client.WithJSONBody(payload)))
	if err != nil {
		return err
	}
	doc, err := resp.JSON()
	if err != nil {
		return err
	}
	id := doc.GetByKey("id").IntValue()
	if _, err := client.EnsureSuccess(c.Get(ctx, fmt.Sprintf("/orders/%d", id))); err != nil {
		return err
	}
	_, err = client.EnsureSuccess(c.Post(ctx, fmt.Sprintf("/orders/%d/cancel", id)))
	return err
}
