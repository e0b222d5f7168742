package apitests

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/apiharness/api-contract-tests/assertions"
	"github.com/apiharness/api-contract-tests/client"
	"github.com/apiharness/api-contract-tests/framework"
	"github.com/apiharness/api-contract-tests/retry"
)

func DoIntegrationTests(t *T) {
	t.Run("full purchase flow", func(t *T) {
		t.Severity("critical")
		t.Feature("orders")
		t.LoginAsAdmin()

		userID, _ := createTestUser(t)
		productID, _ := createTestProduct(t, 5)
		orderID := placeOrder(t, userID, productID, 1)
		path := fmt.Sprintf("/orders/%d", orderID)

		for _, status := range []string{"processing", "shipped", "delivered"} {
			resp := t.Patch(path, client.WithJSONBody(map[string]string{"status": status}))
			if !assertions.Status(t, resp, http.StatusOK) {
				t.FailNow()
			}
		}

		history := t.Get(fmt.Sprintf("/users/%d/orders", userID))
		assertions.Status(t, history, http.StatusOK)
		assertions.ListContains(t, history, "data.items", ldvalue.ObjectBuild().
			Set("id", ldvalue.Int(orderID)).
			Set("status", ldvalue.String("delivered")).
			Build())
	})

	t.Run("transient upstream failures are retried", func(t *T) {
		t.Feature("resilience")
		policy := t.Settings().Retry.Policy(client.TransientKinds...)
		if policy.MaxRetries < 2 {
			t.SkipWithReason("retry budget is too small to exercise recovery")
		}

		key := "suite-" + t.Gen().String(8)
		ex := &retry.Executor{Logger: t.DebugLogger()}
		outcome := retry.Execute(t.Ctx(), ex, policy,
			t.Client().RetryableRequest(http.MethodGet, "/flaky/"+key, client.WithQuery("failures", "2")))
		require.NoError(t, outcome.Err)
		assert.Equal(t, 3, outcome.Attempts)
		assertions.StringAtPath(t, outcome.Value, "status", "recovered")

		cleanup := t.Delete("/flaky/" + key)
		assertions.Status(t, cleanup, http.StatusNoContent)
	})

	t.Run("client errors are not retried", func(t *T) {
		t.Feature("resilience")
		policy := t.Settings().Retry.Policy(client.TransientKinds...)
		t.LoginAsUser()

		outcome := retry.Execute(t.Ctx(), nil, policy,
			t.Client().RetryableRequest(http.MethodGet, "/users/99999999"))
		require.Error(t, outcome.Err)
		assert.Equal(t, 1, outcome.Attempts)
		assert.Equal(t, retry.NonRetryable, outcome.Disposition)
		assert.Equal(t, client.KindClientError, retry.KindOf(outcome.Err))
	})

	t.Run("writes become visible to reads", func(t *T) {
		t.LoginAsUser()
		id, _ := createTestUser(t)
		path := fmt.Sprintf("/users/%d", id)

		err := framework.WaitForCondition(t.Ctx(), 25*time.Millisecond, 2*time.Second,
			func(ctx context.Context) error {
				resp, err := t.Client().Get(ctx, path)
				if err != nil {
					return err
				}
				if !resp.IsSuccess() {
					return fmt.Errorf("user %d not visible yet: HTTP %d", id, resp.StatusCode)
				}
				return nil
			})
		require.NoError(t, err)
	})

	t.Run("client timeouts surface as timeout failures", func(t *T) {
		t.Feature("resilience")
		ctx, cancel := context.WithTimeout(t.Ctx(), 200*time.Millisecond)
		defer cancel()

		_, err := t.Client().Get(ctx, "/slow", client.WithQuery("delay", "5s"))
		require.Error(t, err)
		assert.Equal(t, client.KindTimeout, retry.KindOf(err))
	})

	t.Run("responses stay within the time budget", func(t *T) {
		budget := t.Settings().MaxResponseTime
		if budget <= 0 {
			t.SkipWithReason("no response time budget configured")
		}
		resp := t.GetWithRetry("/health")
		assertions.ResponseTimeUnder(t, resp, budget)
	})
}
