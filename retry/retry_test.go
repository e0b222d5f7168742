package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindFlaky Kind = "flaky"
	kindFatal Kind = "fatal"
)

// sleepRecorder stands in for the real sleep so tests can observe exact
// delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func failingTimes(failures int, err error) Operation[int] {
	calls := 0
	return func(context.Context) (int, error) {
		calls++
		if calls <= failures {
			return 0, err
		}
		return 42, nil
	}
}

func TestAlwaysFailingOperationAttemptsMaxRetriesPlusOne(t *testing.T) {
	opErr := errors.New("always broken")
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}

	outcome := Execute(context.Background(), ex,
		Policy{MaxRetries: 3, InitialDelay: time.Second, BackoffMultiplier: 2},
		func(context.Context) (int, error) { return 0, opErr })

	assert.False(t, outcome.Success())
	assert.Equal(t, Exhausted, outcome.Disposition)
	assert.Equal(t, 4, outcome.Attempts)
	assert.Len(t, recorder.delays, 3)
	assert.Same(t, opErr, outcome.Err)
}

func TestEarlySuccessStopsRetrying(t *testing.T) {
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}

	outcome := Execute(context.Background(), ex,
		Policy{MaxRetries: 5, InitialDelay: time.Second, BackoffMultiplier: 2},
		failingTimes(2, errors.New("transient")))

	assert.True(t, outcome.Success())
	assert.Equal(t, Succeeded, outcome.Disposition)
	assert.Equal(t, 42, outcome.Value)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Len(t, recorder.delays, 2)
	assert.NoError(t, outcome.Err)
}

func TestBackoffDelaysGrowByMultiplier(t *testing.T) {
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}

	Execute(context.Background(), ex,
		Policy{MaxRetries: 3, InitialDelay: time.Second, BackoffMultiplier: 2},
		func(context.Context) (int, error) { return 0, errors.New("nope") })

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, recorder.delays)
}

func TestFractionalMultiplier(t *testing.T) {
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}

	Execute(context.Background(), ex,
		Policy{MaxRetries: 2, InitialDelay: 100 * time.Millisecond, BackoffMultiplier: 1.5},
		func(context.Context) (int, error) { return 0, errors.New("nope") })

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 150 * time.Millisecond}, recorder.delays)
}

func TestNonRetryableKindFailsFast(t *testing.T) {
	opErr := Classified(kindFatal, errors.New("bad request"))
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}

	outcome := Execute(context.Background(), ex,
		Policy{MaxRetries: 10, InitialDelay: time.Second, BackoffMultiplier: 2, RetryOn: []Kind{kindFlaky}},
		func(context.Context) (int, error) { return 0, opErr })

	assert.Equal(t, NonRetryable, outcome.Disposition)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, recorder.delays)
	assert.Same(t, opErr, outcome.Err)
}

func TestUnclassifiedErrorWithRestrictedSetFailsFast(t *testing.T) {
	outcome := Execute(context.Background(), &Executor{Sleep: (&sleepRecorder{}).sleep},
		Policy{MaxRetries: 10, RetryOn: []Kind{kindFlaky}},
		func(context.Context) (int, error) { return 0, errors.New("no classification") })

	assert.Equal(t, NonRetryable, outcome.Disposition)
	assert.Equal(t, 1, outcome.Attempts)
}

func TestMatchingKindIsRetried(t *testing.T) {
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}

	outcome := Execute(context.Background(), ex,
		Policy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffMultiplier: 2, RetryOn: []Kind{kindFlaky}},
		failingTimes(2, Classified(kindFlaky, errors.New("blip"))))

	assert.True(t, outcome.Success())
	assert.Equal(t, 3, outcome.Attempts)
	assert.Len(t, recorder.delays, 2)
}

func TestNonRetryableAfterRetryableStopsImmediately(t *testing.T) {
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}
	calls := 0

	outcome := Execute(context.Background(), ex,
		Policy{MaxRetries: 10, InitialDelay: time.Second, RetryOn: []Kind{kindFlaky}},
		func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, Classified(kindFlaky, errors.New("blip"))
			}
			return 0, Classified(kindFatal, errors.New("wedged"))
		})

	assert.Equal(t, NonRetryable, outcome.Disposition)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Len(t, recorder.delays, 1)
}

func TestZeroMaxRetriesAttemptsExactlyOnce(t *testing.T) {
	recorder := &sleepRecorder{}
	ex := &Executor{Sleep: recorder.sleep}
	opErr := errors.New("one shot")

	outcome := Execute(context.Background(), ex, Policy{},
		func(context.Context) (int, error) { return 0, opErr })

	assert.Equal(t, Exhausted, outcome.Disposition)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, recorder.delays)
	assert.Same(t, opErr, outcome.Err)
}

func TestSuccessWithZeroPolicy(t *testing.T) {
	outcome := Execute(context.Background(), nil, Policy{},
		func(context.Context) (string, error) { return "ok", nil })

	assert.True(t, outcome.Success())
	assert.Equal(t, "ok", outcome.Value)
	assert.Equal(t, 1, outcome.Attempts)
}

func TestCancellationShortCircuitsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opErr := errors.New("failing while canceled")

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	outcome := Execute(ctx, nil,
		Policy{MaxRetries: 5, InitialDelay: time.Minute, BackoffMultiplier: 2},
		func(context.Context) (int, error) { return 0, opErr })

	assert.Less(t, time.Since(started), 10*time.Second)
	assert.Equal(t, Canceled, outcome.Disposition)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Same(t, opErr, outcome.Err)
}

func TestCanceledContextBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := Execute(ctx, nil, Policy{MaxRetries: 3},
		func(context.Context) (int, error) {
			t.Fatal("operation should not run")
			return 0, nil
		})

	assert.Equal(t, Canceled, outcome.Disposition)
	assert.Equal(t, 0, outcome.Attempts)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestObserverSeesEveryAttempt(t *testing.T) {
	var infos []AttemptInfo
	ex := &Executor{
		Sleep:     (&sleepRecorder{}).sleep,
		OnAttempt: func(info AttemptInfo) { infos = append(infos, info) },
	}

	Execute(context.Background(), ex,
		Policy{MaxRetries: 3, InitialDelay: time.Second, BackoffMultiplier: 2},
		failingTimes(1, errors.New("blip")))

	require.Len(t, infos, 2)
	assert.Equal(t, 1, infos[0].Attempt)
	assert.Error(t, infos[0].Err)
	assert.True(t, infos[0].WillRetry)
	assert.Equal(t, time.Second, infos[0].NextDelay)
	assert.Equal(t, 2, infos[1].Attempt)
	assert.NoError(t, infos[1].Err)
	assert.False(t, infos[1].WillRetry)
}

type printfRecorder struct {
	lines []string
	lock  sync.Mutex
}

func (r *printfRecorder) Printf(message string, args ...any) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lines = append(r.lines, message)
}

func TestLoggerReceivesOneLinePerFailedAttempt(t *testing.T) {
	logger := &printfRecorder{}
	ex := &Executor{Sleep: (&sleepRecorder{}).sleep, Logger: logger}

	Execute(context.Background(), ex,
		Policy{MaxRetries: 2, InitialDelay: time.Second},
		func(context.Context) (int, error) { return 0, errors.New("nope") })

	assert.Len(t, logger.lines, 3)
}

func TestDoRunsValuelessOperation(t *testing.T) {
	calls := 0
	outcome := Do(context.Background(), &Executor{Sleep: (&sleepRecorder{}).sleep},
		Policy{MaxRetries: 2}, func(context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("again")
			}
			return nil
		})

	assert.True(t, outcome.Success())
	assert.Equal(t, 2, outcome.Attempts)
}

func TestConcurrentExecutionsDoNotInterfere(t *testing.T) {
	ex := &Executor{Sleep: func(ctx context.Context, d time.Duration) error { return ctx.Err() }}
	policy := Policy{MaxRetries: 4, InitialDelay: time.Millisecond, BackoffMultiplier: 2}

	var wg sync.WaitGroup
	outcomes := make([]Outcome[int], 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = Execute(context.Background(), ex, policy,
				failingTimes(i%3, errors.New("blip")))
		}(i)
	}
	wg.Wait()

	for i, outcome := range outcomes {
		assert.True(t, outcome.Success(), "execution %d", i)
		assert.Equal(t, i%3+1, outcome.Attempts, "execution %d", i)
	}
}

func TestClassifiedErrorHelpers(t *testing.T) {
	base := errors.New("connection refused")
	classified := Classified(kindFlaky, base)

	assert.Equal(t, kindFlaky, KindOf(classified))
	assert.True(t, IsKind(classified, kindFlaky))
	assert.False(t, IsKind(classified, kindFatal))
	assert.ErrorIs(t, classified, base)
	assert.Contains(t, classified.Error(), "flaky")
	assert.Contains(t, classified.Error(), "connection refused")

	wrapped := Errorf(kindFatal, "status %d", 400)
	assert.Equal(t, kindFatal, KindOf(wrapped))

	assert.Nil(t, Classified(kindFlaky, nil))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestDispositionString(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "non-retryable", NonRetryable.String())
	assert.Equal(t, "canceled", Canceled.String())
}
