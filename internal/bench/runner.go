/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bench

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/atomic"

	"github.com/acronis/go-floodgate/floodgate"
	"github.com/acronis/go-floodgate/internal/baseline"
	"github.com/acronis/go-floodgate/log"
)

const ctxCheckInterval = 1024

// DefaultStartTime is the virtual time every run starts at.
var DefaultStartTime = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// LimiterFactory creates a fresh limiter that reads time from the given clock.
type LimiterFactory struct {
	Name string
	New  func(now baseline.Clock) (baseline.Limiter, error)
}

// Factories returns factories for floodgate and all reference limiters configured with the same nominal allowance.
func Factories(cfg *floodgate.Config, logger log.FieldLogger, metrics floodgate.MetricsCollector) []LimiterFactory {
	params := baseline.ParamsFromConfig(cfg)
	return []LimiterFactory{
		{Name: "floodgate", New: func(now baseline.Clock) (baseline.Limiter, error) {
			return baseline.NewFloodgateLimiter(cfg, now, logger, metrics)
		}},
		{Name: "gcra", New: func(now baseline.Clock) (baseline.Limiter, error) {
			return baseline.NewGCRALimiter(params, now)
		}},
		{Name: "sliding_window", New: func(now baseline.Clock) (baseline.Limiter, error) {
			return baseline.NewSlidingWindowLimiter(params, now)
		}},
		{Name: "token_bucket", New: func(now baseline.Clock) (baseline.Limiter, error) {
			return baseline.NewTokenBucketLimiter(params, now)
		}},
	}
}

// FilterFactories returns the factories with the given names. All factories are returned if names are empty.
func FilterFactories(factories []LimiterFactory, names []string) ([]LimiterFactory, error) {
	if len(names) == 0 {
		return factories, nil
	}
	res := make([]LimiterFactory, 0, len(names))
	for _, name := range names {
		idx := -1
		for i := range factories {
			if factories[i].Name == name {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("unknown limiter %q", name)
		}
		res = append(res, factories[idx])
	}
	return res, nil
}

// Result contains the outcome of replaying a scenario against a limiter.
type Result struct {
	Scenario   string
	Limiter    string
	Calls      int64
	Allowed    int64
	Suppressed int64
	Elapsed    time.Duration

	order int
}

// SuppressedRatio returns the share of suppressed events.
func (r Result) SuppressedRatio() float64 {
	if r.Calls == 0 {
		return 0
	}
	return float64(r.Suppressed) / float64(r.Calls)
}

// NsPerCall returns the average wall time of a single decision.
func (r Result) NsPerCall() int64 {
	if r.Calls == 0 {
		return 0
	}
	return r.Elapsed.Nanoseconds() / r.Calls
}

// RunnerOpts represents options for the Runner.
type RunnerOpts struct {
	// StartTime is the virtual time every run starts at. DefaultStartTime is used if it's zero.
	StartTime time.Time

	// MaxCalls limits the number of events sent in every run. 0 means no limit.
	MaxCalls int64

	// Concurrency is the number of runs executed in parallel. 1 is used if it's not positive.
	Concurrency int

	Logger log.FieldLogger
}

// Runner replays scenarios against limiters.
// Every run uses its own virtual clock that advances by the scenario interval after each event.
type Runner struct {
	bucketDuration time.Duration
	startTime      time.Time
	maxCalls       int64
	concurrency    int
	logger         log.FieldLogger
}

// NewRunner creates a new Runner. The bucket duration defines how long the scenarios last.
func NewRunner(bucketDuration time.Duration, opts RunnerOpts) (*Runner, error) {
	if bucketDuration <= 0 {
		return nil, fmt.Errorf("bucket duration must be positive, got %s", bucketDuration)
	}
	if opts.MaxCalls < 0 {
		return nil, fmt.Errorf("max calls cannot be negative, got %d", opts.MaxCalls)
	}
	r := &Runner{
		bucketDuration: bucketDuration,
		startTime:      opts.StartTime,
		maxCalls:       opts.MaxCalls,
		concurrency:    opts.Concurrency,
		logger:         opts.Logger,
	}
	if r.startTime.IsZero() {
		r.startTime = DefaultStartTime
	}
	if r.concurrency <= 0 {
		r.concurrency = 1
	}
	if r.logger == nil {
		r.logger = log.NewDisabledLogger()
	}
	return r, nil
}

// Run replays the scenario against a limiter created by the factory.
func (r *Runner) Run(ctx context.Context, sc Scenario, factory LimiterFactory) (Result, error) {
	if err := sc.Validate(); err != nil {
		return Result{}, err
	}

	clock := atomic.NewTime(r.startTime)
	limiter, err := factory.New(clock.Load)
	if err != nil {
		return Result{}, fmt.Errorf("create %s limiter: %w", factory.Name, err)
	}
	if closer, ok := limiter.(interface{ Close() }); ok {
		defer closer.Close()
	}

	keys := make([]string, sc.Actors)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	calls := sc.Calls(r.bucketDuration)
	if r.maxCalls > 0 && calls > r.maxCalls {
		calls = r.maxCalls
	}
	interval := sc.Interval()

	res := Result{Scenario: sc.Name, Limiter: factory.Name}
	startedAt := time.Now()
	for i := int64(0); i < calls; i++ {
		if i%ctxCheckInterval == 0 {
			if err = ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		allowed, allowErr := limiter.Allow(keys[i%int64(len(keys))])
		if allowErr != nil {
			return Result{}, fmt.Errorf("%s limiter, scenario %q, call #%d: %w", factory.Name, sc.Name, i, allowErr)
		}
		if allowed {
			res.Allowed++
		} else {
			res.Suppressed++
		}
		res.Calls++
		clock.Store(clock.Load().Add(interval))
	}
	res.Elapsed = time.Since(startedAt)

	r.logger.Info("scenario finished",
		log.String("scenario", sc.Name),
		log.String("limiter", factory.Name),
		log.Int64("calls", res.Calls),
		log.Int64("allowed", res.Allowed),
		log.Int64("suppressed", res.Suppressed),
		log.DurationIn(res.Elapsed, time.Millisecond),
	)
	return res, nil
}

// RunAll replays every scenario against every limiter.
// Results are ordered by scenario and then by limiter, the first error cancels the remaining runs.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario, factories []LimiterFactory) ([]Result, error) {
	p := pool.NewWithResults[Result]().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(r.concurrency)
	for i, sc := range scenarios {
		for j, factory := range factories {
			sc, factory, order := sc, factory, i*len(factories)+j
			p.Go(func(ctx context.Context) (Result, error) {
				res, err := r.Run(ctx, sc, factory)
				res.order = order
				return res, err
			})
		}
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].order < results[j].order
	})
	return results, nil
}
