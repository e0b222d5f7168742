package framework

import (
	"context"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// WaitForCondition polls probe at a fixed interval until it returns nil,
// giving up when the timeout elapses or ctx is canceled. It is used for
// service readiness checks and for asserting eventually-consistent state.
// The returned error wraps the last probe error.
func WaitForCondition(
	ctx context.Context,
	interval time.Duration,
	timeout time.Duration,
	probe func(context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.New(
		retry.Context(ctx),
		retry.UntilSucceeded(),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.WrapContextErrorWithLastError(true),
	).Do(func() error {
		return probe(ctx)
	})
	if err != nil {
		return fmt.Errorf("condition not met within %s: %w", timeout, err)
	}
	return nil
}
