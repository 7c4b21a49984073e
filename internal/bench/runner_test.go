/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-floodgate/floodgate"
	"github.com/acronis/go-floodgate/internal/baseline"
	"github.com/acronis/go-floodgate/log"
	"github.com/acronis/go-floodgate/log/logtest"
)

func newTestRunner(t *testing.T, opts RunnerOpts) *Runner {
	t.Helper()
	runner, err := NewRunner(floodgate.DefaultBucketDuration, opts)
	require.NoError(t, err)
	return runner
}

func testFactories() []LimiterFactory {
	return Factories(floodgate.NewDefaultConfig(), log.NewDisabledLogger(), nil)
}

func TestDefaultScenarios(t *testing.T) {
	scenarios := DefaultScenarios()
	require.Len(t, scenarios, 6)
	for _, sc := range scenarios {
		require.NoError(t, sc.Validate())
		require.Equal(t, int64(500_000), sc.Calls(floodgate.DefaultBucketDuration), sc.Name)
	}
}

func TestFindScenarios(t *testing.T) {
	all, err := FindScenarios(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultScenarios(), all)

	found, err := FindScenarios([]string{"Long_One_Actor", "ten_actors"})
	require.NoError(t, err)
	require.Equal(t, []Scenario{
		{Name: "long_one_actor", Actors: 1, EventsPerSecond: 10, Buckets: 10000},
		{Name: "ten_actors", Actors: 10, EventsPerSecond: 10000, Buckets: 10},
	}, found)

	_, err = FindScenarios([]string{"one_actor", "nobody"})
	require.EqualError(t, err, `unknown scenario "nobody"`)
}

func TestFilterFactories(t *testing.T) {
	factories, err := FilterFactories(testFactories(), []string{"token_bucket", "floodgate"})
	require.NoError(t, err)
	require.Len(t, factories, 2)
	require.Equal(t, "token_bucket", factories[0].Name)
	require.Equal(t, "floodgate", factories[1].Name)

	_, err = FilterFactories(testFactories(), []string{"leaky_bucket"})
	require.EqualError(t, err, `unknown limiter "leaky_bucket"`)
}

func TestScenarioValidate(t *testing.T) {
	require.EqualError(t, Scenario{Name: "x", Actors: 0, EventsPerSecond: 1, Buckets: 1}.Validate(),
		`scenario "x": actors must be positive, got 0`)
	require.EqualError(t, Scenario{Name: "x", Actors: 1, EventsPerSecond: -1, Buckets: 1}.Validate(),
		`scenario "x": events per second must be positive, got -1`)
	require.EqualError(t, Scenario{Name: "x", Actors: 1, EventsPerSecond: 1_000_000_001, Buckets: 1}.Validate(),
		`scenario "x": events per second must be 1000000000 or less, got 1000000001`)
	require.NoError(t, Scenario{Name: "x", Actors: 1, EventsPerSecond: 1_000_000_000, Buckets: 1}.Validate())
	require.EqualError(t, Scenario{Name: "x", Actors: 1, EventsPerSecond: 1, Buckets: 0}.Validate(),
		`scenario "x": buckets must be positive, got 0`)
}

func TestNewRunner(t *testing.T) {
	_, err := NewRunner(0, RunnerOpts{})
	require.EqualError(t, err, "bucket duration must be positive, got 0s")

	_, err = NewRunner(time.Second, RunnerOpts{MaxCalls: -1})
	require.EqualError(t, err, "max calls cannot be negative, got -1")
}

func TestRunner_LightTraffic(t *testing.T) {
	// Every actor sends one event per second, all limiters allow 1.6 events per second.
	sc := Scenario{Name: "light", Actors: 2, EventsPerSecond: 2, Buckets: 3}
	runner := newTestRunner(t, RunnerOpts{})
	for _, factory := range testFactories() {
		res, err := runner.Run(context.Background(), sc, factory)
		require.NoError(t, err)
		require.Equal(t, Result{Scenario: "light", Limiter: factory.Name, Calls: 30, Allowed: 30, Elapsed: res.Elapsed}, res)
		require.Zero(t, res.SuppressedRatio())
	}
}

func TestRunner_Flood(t *testing.T) {
	// A single actor sends 100 events per bucket during 4 buckets.
	sc := Scenario{Name: "flood", Actors: 1, EventsPerSecond: 20, Buckets: 4}
	runner := newTestRunner(t, RunnerOpts{})

	results := make(map[string]Result)
	for _, factory := range testFactories() {
		res, err := runner.Run(context.Background(), sc, factory)
		require.NoError(t, err)
		require.Equal(t, int64(400), res.Calls, factory.Name)
		require.Equal(t, res.Calls, res.Allowed+res.Suppressed, factory.Name)
		results[factory.Name] = res
	}

	// 16 events during the first bucket (spillover), then 8, 4 and 4 while attrition grows.
	require.Equal(t, int64(32), results["floodgate"].Allowed)
	require.Equal(t, 0.92, results["floodgate"].SuppressedRatio())
	require.Greater(t, results["gcra"].Allowed, results["floodgate"].Allowed)
	require.Greater(t, results["token_bucket"].Allowed, results["floodgate"].Allowed)
	require.GreaterOrEqual(t, results["sliding_window"].Allowed, int64(floodgate.DefaultSpilloverThreshold))
}

func TestRunner_MaxCalls(t *testing.T) {
	runner := newTestRunner(t, RunnerOpts{MaxCalls: 1000})
	res, err := runner.Run(context.Background(), DefaultScenarios()[2], testFactories()[0])
	require.NoError(t, err)
	require.Equal(t, int64(1000), res.Calls)
	// Hundred actors, every one of them gets its own spillover allowance.
	require.Equal(t, int64(1000), res.Allowed)
}

func TestRunner_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := newTestRunner(t, RunnerOpts{})
	_, err := runner.Run(ctx, DefaultScenarios()[0], testFactories()[1])
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_LimiterError(t *testing.T) {
	runner := newTestRunner(t, RunnerOpts{})
	factory := LimiterFactory{Name: "broken", New: func(now baseline.Clock) (baseline.Limiter, error) {
		return nil, context.DeadlineExceeded
	}}
	_, err := runner.Run(context.Background(), DefaultScenarios()[0], factory)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorContains(t, err, "create broken limiter")
}

func TestRunner_RunAll(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	runner := newTestRunner(t, RunnerOpts{MaxCalls: 500, Concurrency: 4, Logger: logRecorder})
	scenarios, err := FindScenarios([]string{"one_actor", "long_ten_actors"})
	require.NoError(t, err)
	factories := testFactories()

	results, err := runner.RunAll(context.Background(), scenarios, factories)
	require.NoError(t, err)
	require.Len(t, results, len(scenarios)*len(factories))
	for i, res := range results {
		require.Equal(t, scenarios[i/len(factories)].Name, res.Scenario)
		require.Equal(t, factories[i%len(factories)].Name, res.Limiter)
		require.Equal(t, int64(500), res.Calls)
	}

	require.Len(t, logRecorder.Entries(), len(results))
	logEntry, found := logRecorder.FindEntry("scenario finished")
	require.True(t, found)
	callsField, found := logEntry.FindField("calls")
	require.True(t, found)
	require.Equal(t, int64(500), callsField.Int)
}
