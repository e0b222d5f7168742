// Package loadtest drives weighted request scenarios against a target with a
// fixed pool of virtual users and summarizes the latency and failure rates it
// observed.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/apiharness/api-contract-tests/config"
	"github.com/apiharness/api-contract-tests/framework"
)

// Scenario is one kind of traffic the virtual users generate. Weight sets the
// relative frequency: a scenario with weight 4 runs about four times as often
// as one with weight 1. Scenarios with weight 0 or less never run.
type Scenario struct {
	Name   string
	Weight int
	Run    func(ctx context.Context) error
}

// Runner executes a load run: Users workers each loop for Duration, picking a
// scenario by weight and executing it. A zero Runner is not usable; construct
// one with NewRunner or fill the fields directly.
type Runner struct {
	Scenarios []Scenario
	Users     int
	Duration  time.Duration
	Seed      int64
	Logger    framework.Logger
}

func NewRunner(perf config.PerformanceSettings, scenarios []Scenario, logger framework.Logger) *Runner {
	return &Runner{
		Scenarios: scenarios,
		Users:     perf.Users,
		Duration:  perf.Duration,
		Logger:    logger,
	}
}

type sample struct {
	scenario string
	elapsed  time.Duration
	failed   bool
}

// Run blocks until the configured duration elapses or ctx is canceled.
// Scenario failures never stop the run; they are counted in the summary.
// Cancellation returns the samples collected so far along with ctx's error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if len(r.Scenarios) == 0 {
		return Summary{}, errors.New("load run needs at least one scenario")
	}
	totalWeight := 0
	for _, sc := range r.Scenarios {
		if sc.Weight > 0 {
			totalWeight += sc.Weight
		}
	}
	if totalWeight == 0 {
		return Summary{}, errors.New("all scenario weights are zero")
	}

	users := r.Users
	if users < 1 {
		users = 1
	}
	duration := r.Duration
	if duration <= 0 {
		duration = 10 * time.Second
	}
	logger := r.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	logger.Printf("load run starting: %d users for %s over %d scenarios", users, duration, len(r.Scenarios))

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var (
		mu      sync.Mutex
		samples []sample
	)
	started := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < users; i++ {
		seed := uint64(r.Seed) + uint64(i)
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			local := make([]sample, 0, 256)
			for gctx.Err() == nil {
				sc := pick(rng, r.Scenarios, totalWeight)
				begun := time.Now()
				err := sc.Run(gctx)
				if err != nil && gctx.Err() != nil {
					// The deadline interrupted this execution mid-flight.
					break
				}
				local = append(local, sample{scenario: sc.Name, elapsed: time.Since(begun), failed: err != nil})
			}
			mu.Lock()
			samples = append(samples, local...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(samples, time.Since(started))
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	logger.Printf("load run finished: %d requests, %d failures, p95 %s",
		summary.Requests, summary.Failures, summary.Latency.P95.Round(time.Millisecond))
	return summary, nil
}

func pick(rng *rand.Rand, scenarios []Scenario, totalWeight int) Scenario {
	n := rng.IntN(totalWeight)
	for _, sc := range scenarios {
		if sc.Weight <= 0 {
			continue
		}
		n -= sc.Weight
		if n < 0 {
			return sc
		}
	}
	return scenarios[len(scenarios)-1]
}

// Summary aggregates one load run.
type Summary struct {
	Elapsed    time.Duration
	Requests   int
	Failures   int
	Throughput float64 // completed requests per second
	Latency    LatencyStats
	Scenarios  map[string]ScenarioStats
}

type ScenarioStats struct {
	Requests int
	Failures int
}

type LatencyStats struct {
	Min  time.Duration
	Mean time.Duration
	Max  time.Duration
	P50  time.Duration
	P90  time.Duration
	P95  time.Duration
	P99  time.Duration
}

// FailureRate is the fraction of requests that failed, 0 when nothing ran.
func (s Summary) FailureRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Requests)
}

// Violations checks the summary against the thresholds and returns one error
// per breach. A zero threshold disables its check.
func (s Summary) Violations(t config.ThresholdSettings) []error {
	var out []error
	if t.MaxP95 > 0 && s.Latency.P95 > t.MaxP95 {
		out = append(out, fmt.Errorf("p95 latency %s is above the %s limit",
			s.Latency.P95.Round(time.Millisecond), t.MaxP95))
	}
	if t.MaxFailureRate > 0 && s.FailureRate() > t.MaxFailureRate {
		out = append(out, fmt.Errorf("failure rate %.2f%% is above the %.2f%% limit",
			s.FailureRate()*100, t.MaxFailureRate*100))
	}
	if t.MinThroughput > 0 && s.Throughput < t.MinThroughput {
		out = append(out, fmt.Errorf("throughput %.1f req/s is below the %.1f req/s floor",
			s.Throughput, t.MinThroughput))
	}
	return out
}

// Print writes a human-readable account of the run.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Load run: %d requests in %s (%.1f req/s), %d failures (%.2f%%)\n",
		s.Requests, s.Elapsed.Round(time.Millisecond), s.Throughput, s.Failures, s.FailureRate()*100)
	fmt.Fprintf(w, "Latency: min %s  mean %s  p50 %s  p90 %s  p95 %s  p99 %s  max %s\n",
		s.Latency.Min.Round(time.Microsecond), s.Latency.Mean.Round(time.Microsecond),
		s.Latency.P50.Round(time.Microsecond), s.Latency.P90.Round(time.Microsecond),
		s.Latency.P95.Round(time.Microsecond), s.Latency.P99.Round(time.Microsecond),
		s.Latency.Max.Round(time.Microsecond))
	names := make([]string, 0, len(s.Scenarios))
	for name := range s.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := s.Scenarios[name]
		fmt.Fprintf(w, "  %-20s %6d requests  %d failures\n", name, st.Requests, st.Failures)
	}
}

func summarize(samples []sample, elapsed time.Duration) Summary {
	summary := Summary{
		Elapsed:   elapsed,
		Requests:  len(samples),
		Scenarios: make(map[string]ScenarioStats),
	}
	if len(samples) == 0 {
		return summary
	}

	durations := make([]time.Duration, 0, len(samples))
	var total time.Duration
	for _, s := range samples {
		st := summary.Scenarios[s.scenario]
		st.Requests++
		if s.failed {
			st.Failures++
			summary.Failures++
		}
		summary.Scenarios[s.scenario] = st
		durations = append(durations, s.elapsed)
		total += s.elapsed
	}
	slices.Sort(durations)

	summary.Latency = LatencyStats{
		Min:  durations[0],
		Mean: total / time.Duration(len(durations)),
		Max:  durations[len(durations)-1],
		P50:  percentile(durations, 0.50),
		P90:  percentile(durations, 0.90),
		P95:  percentile(durations, 0.95),
		P99:  percentile(durations, 0.99),
	}
	if elapsed > 0 {
		summary.Throughput = float64(len(samples)) / elapsed.Seconds()
	}
	return summary
}

// percentile uses the nearest-rank method over an ascending slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
