// Package retry provides a small executor that re-invokes a fallible
// operation with exponential backoff until it succeeds, its failure is
// classified as non-retryable, or the retry budget is exhausted.
//
// The backoff is deliberately plain: the delay starts at the policy's
// InitialDelay and is multiplied by BackoffMultiplier after every retry,
// with no jitter and no upper bound. Each call to Execute owns its own
// delay and attempt counters, so concurrent executions never interfere.
package retry
