/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/atomic"

	"github.com/acronis/go-floodgate/log"
)

// maxCleanupCooldownFactor limits how much the cooldown may grow after consecutive failed passes.
const maxCleanupCooldownFactor = 10

type sweepFunc func() (removed int, err error)

// cleanupScheduler runs sweeps in the background, at most one at a time,
// with a cooldown between them.
type cleanupScheduler struct {
	sweep    sweepFunc
	cooldown time.Duration
	logger   log.FieldLogger
	metrics  MetricsCollector
	actorsFn func() int

	busy    atomic.Bool
	lastErr atomic.Error

	passMu  sync.Mutex
	backoff *backoff.ExponentialBackOff // guarded by passMu

	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}
	wg      conc.WaitGroup
}

func newCleanupScheduler(
	sweep sweepFunc, cooldown time.Duration, logger log.FieldLogger, metrics MetricsCollector, actorsFn func() int,
) *cleanupScheduler {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cooldown
	bo.MaxInterval = cooldown * maxCleanupCooldownFactor
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &cleanupScheduler{
		sweep:    sweep,
		cooldown: cooldown,
		logger:   logger,
		metrics:  metrics,
		actorsFn: actorsFn,
		backoff:  bo,
		done:     make(chan struct{}),
	}
}

// trigger starts a background pass unless one is running or cooling down.
func (c *cleanupScheduler) trigger() {
	if c.busy.Load() || !c.busy.CompareAndSwap(false, true) {
		return
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		c.busy.Store(false)
		return
	}
	c.wg.Go(c.runInBackground)
}

func (c *cleanupScheduler) runInBackground() {
	defer c.busy.Store(false)

	_, delay, _ := c.runPass()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.done:
	}
}

// runPass runs a single sweep and returns the delay before the next background pass is allowed.
func (c *cleanupScheduler) runPass() (removed int, delay time.Duration, err error) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	startedAt := time.Now()
	var pc panics.Catcher
	pc.Try(func() {
		removed, err = c.sweep()
	})
	if recovered := pc.Recovered(); recovered != nil {
		removed = 0
		err = &CleanupError{Err: fmt.Errorf("%v", recovered.Value), Panic: true, Stack: recovered.Stack}
	} else if err != nil {
		err = &CleanupError{Err: err}
	}

	if err != nil {
		c.lastErr.Store(err)
		c.metrics.IncCleanupFailures()
		delay = c.backoff.NextBackOff()
		c.logger.Error("actors cleanup failed", log.Error(err), log.Duration("next_attempt_in", delay))
		return 0, delay, err
	}

	c.backoff.Reset()
	c.metrics.AddCleanupEvictions(removed)
	c.metrics.SetActorsAmount(c.actorsFn())
	c.logger.Debug("actors cleanup finished",
		log.Int("removed", removed), log.Int("actors", c.actorsFn()), log.DurationIn(time.Since(startedAt), time.Millisecond))
	return removed, c.cooldown, nil
}

// close stops cooldowns and waits for the running pass.
func (c *cleanupScheduler) close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.closeMu.Unlock()

	c.wg.Wait()
}
