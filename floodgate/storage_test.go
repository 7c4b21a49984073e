/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package floodgate

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type storageFactory func(opts StorageOpts) Storage[string]

var storageFactories = map[string]storageFactory{
	"swap map": func(opts StorageOpts) Storage[string] {
		return NewSwapMapStorage[string](opts)
	},
	"queued map": func(opts StorageOpts) Storage[string] {
		return NewQueuedMapStorage[string](opts)
	},
}

func TestStorage_Load(t *testing.T) {
	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			settings := newTestSettings(t, newFakeClock(testStartTime), nil)
			storage := newStorage(StorageOpts{})
			created := 0
			create := func() *ActorThrottle {
				created++
				return NewActorThrottle(settings)
			}

			first := storage.Load("a", create)
			require.NotNil(t, first)
			require.Same(t, first, storage.Load("a", create))
			require.NotSame(t, first, storage.Load("b", create))
			require.Equal(t, 2, created)
			require.Equal(t, 2, storage.Len())
			require.True(t, storage.CleanupEnabled())
		})
	}
}

func TestStorage_ConcurrentLoadPublishesSingleActor(t *testing.T) {
	const goroutines = 50
	const keys = 20

	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			settings := newTestSettings(t, newFakeClock(testStartTime), nil)
			storage := newStorage(StorageOpts{})
			create := func() *ActorThrottle { return NewActorThrottle(settings) }

			results := make([][]*ActorThrottle, goroutines)
			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				g := g
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[g] = make([]*ActorThrottle, keys)
					for k := 0; k < keys; k++ {
						results[g][k] = storage.Load(strconv.Itoa(k), create)
					}
				}()
			}
			wg.Wait()

			for k := 0; k < keys; k++ {
				for g := 1; g < goroutines; g++ {
					require.Same(t, results[0][k], results[g][k], "key %d", k)
				}
			}
			require.Equal(t, keys, storage.Len())
		})
	}
}

func TestStorage_Sweep(t *testing.T) {
	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock(testStartTime)
			settings := newTestSettings(t, clock, nil)
			storage := newStorage(StorageOpts{})
			create := func() *ActorThrottle { return NewActorThrottle(settings) }

			idle := storage.Load("idle", create)
			_, err := idle.Evaluate()
			require.NoError(t, err)

			clock.Advance(5 * DefaultBucketDuration)
			active := storage.Load("active", create)
			_, err = active.Evaluate()
			require.NoError(t, err)

			removed, err := storage.Sweep()
			require.NoError(t, err)
			require.Equal(t, 0, removed)
			require.Equal(t, 2, storage.Len())

			clock.Advance(DefaultBucketDuration + 1)
			removed, err = storage.Sweep()
			require.NoError(t, err)
			require.Equal(t, 1, removed)
			require.Equal(t, 1, storage.Len())
			require.True(t, idle.Retired())
			require.False(t, active.Retired())

			require.Same(t, active, storage.Load("active", create))
			recreated := storage.Load("idle", create)
			require.NotSame(t, idle, recreated)
			require.False(t, recreated.Retired())
			require.Equal(t, 2, storage.Len())

			// Actors that have never seen an event are removed too.
			removed, err = storage.Sweep()
			require.NoError(t, err)
			require.Equal(t, 1, removed)
			require.Equal(t, 1, storage.Len())
			require.True(t, recreated.Retired())

			clock.Advance(7 * DefaultBucketDuration)
			removed, err = storage.Sweep()
			require.NoError(t, err)
			require.Equal(t, 1, removed)
			require.Equal(t, 0, storage.Len())
		})
	}
}

func TestStorage_LoadReplacesRetiredActor(t *testing.T) {
	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock(testStartTime)
			settings := newTestSettings(t, clock, nil)
			storage := newStorage(StorageOpts{})
			create := func() *ActorThrottle { return NewActorThrottle(settings) }

			actor := storage.Load("a", create)
			_, err := actor.Evaluate()
			require.NoError(t, err)
			clock.Advance(7 * DefaultBucketDuration)
			require.True(t, actor.RetireIfIdle())

			replacement := storage.Load("a", create)
			require.NotSame(t, actor, replacement)
			require.Equal(t, 1, storage.Len())
			_, err = replacement.Evaluate()
			require.NoError(t, err)

			removed, err := storage.Sweep()
			require.NoError(t, err)
			require.Equal(t, 0, removed)
			require.Equal(t, 1, storage.Len())
			require.Same(t, replacement, storage.Load("a", create))
		})
	}
}

func TestStorage_LoadDoesNotWaitForSweep(t *testing.T) {
	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			idleClock := newFakeClock(testStartTime)
			var blockOnce atomic.Bool
			sweepEntered := make(chan struct{})
			releaseSweep := make(chan struct{})
			idleSettings, err := NewSettings(NewDefaultConfig(), WithClock(func() time.Time {
				if blockOnce.CompareAndSwap(true, false) {
					close(sweepEntered)
					<-releaseSweep
				}
				return idleClock.Now()
			}))
			require.NoError(t, err)
			activeSettings := newTestSettings(t, newFakeClock(testStartTime), nil)
			createActive := func() *ActorThrottle { return NewActorThrottle(activeSettings) }

			storage := newStorage(StorageOpts{})
			idle := storage.Load("idle", func() *ActorThrottle { return NewActorThrottle(idleSettings) })
			_, err = idle.Evaluate()
			require.NoError(t, err)
			hot := storage.Load("hot", createActive)
			_, err = hot.Evaluate()
			require.NoError(t, err)

			idleClock.Advance(7 * DefaultBucketDuration)
			blockOnce.Store(true)
			sweepDone := make(chan int)
			go func() {
				removed, sweepErr := storage.Sweep()
				if sweepErr != nil {
					removed = -1
				}
				sweepDone <- removed
			}()

			select {
			case <-sweepEntered:
			case <-time.After(5 * time.Second):
				t.Fatal("sweep didn't check the idle actor")
			}

			loadWithTimeout := func(key string) *ActorThrottle {
				loaded := make(chan *ActorThrottle, 1)
				go func() { loaded <- storage.Load(key, createActive) }()
				select {
				case actor := <-loaded:
					return actor
				case <-time.After(time.Second):
					t.Fatalf("Load(%q) is blocked by the running sweep", key)
					return nil
				}
			}
			require.Same(t, hot, loadWithTimeout("hot"))
			fresh := loadWithTimeout("fresh")
			require.NotNil(t, fresh)
			_, err = fresh.Evaluate()
			require.NoError(t, err)

			close(releaseSweep)
			require.Equal(t, 1, <-sweepDone)
			require.True(t, idle.Retired())

			// The actor published during the sweep survives it.
			require.Equal(t, 2, storage.Len())
			require.Same(t, hot, storage.Load("hot", createActive))
			require.Same(t, fresh, storage.Load("fresh", createActive))
			require.False(t, fresh.Retired())
		})
	}
}

func TestStorage_ConcurrentLoadAndSweep(t *testing.T) {
	const goroutines = 8
	const keys = 50

	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock(testStartTime)
			settings := newTestSettings(t, clock, nil)
			storage := newStorage(StorageOpts{})
			create := func() *ActorThrottle { return NewActorThrottle(settings) }

			// Idle actors give every sweep something to remove.
			for k := 0; k < keys; k++ {
				storage.Load("idle-"+strconv.Itoa(k), create)
			}

			stop := make(chan struct{})
			sweepsDone := make(chan struct{})
			go func() {
				defer close(sweepsDone)
				for i := 0; ; i++ {
					select {
					case <-stop:
						return
					default:
					}
					_, _ = storage.Sweep()
					storage.Load("idle-"+strconv.Itoa(i%keys), create)
				}
			}()

			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 200; i++ {
						actor := storage.Load("active-"+strconv.Itoa(i%keys), create)
						_, _ = actor.Evaluate()
					}
				}()
			}
			wg.Wait()
			close(stop)
			<-sweepsDone

			for k := 0; k < keys; k++ {
				key := "active-" + strconv.Itoa(k)
				actor := storage.Load(key, create)
				require.False(t, actor.Retired(), key)
				require.Same(t, actor, storage.Load(key, create), key)
			}
		})
	}
}

func TestStorage_DisabledCleanup(t *testing.T) {
	for name, newStorage := range storageFactories {
		newStorage := newStorage
		t.Run(name, func(t *testing.T) {
			settings := newTestSettings(t, newFakeClock(testStartTime), nil)
			storage := newStorage(StorageOpts{DisableCleanup: true})
			require.False(t, storage.CleanupEnabled())

			actor := storage.Load("a", func() *ActorThrottle { return NewActorThrottle(settings) })
			removed, err := storage.Sweep()
			require.NoError(t, err)
			require.Equal(t, 0, removed)
			require.Equal(t, 1, storage.Len())
			require.False(t, actor.Retired())
		})
	}
}

func TestNewStorage(t *testing.T) {
	storage, err := NewStorage[string](StorageConfig{Strategy: StorageStrategySwapMap, CleanupEnabled: true})
	require.NoError(t, err)
	require.IsType(t, &SwapMapStorage[string]{}, storage)
	require.True(t, storage.CleanupEnabled())

	storage, err = NewStorage[string](StorageConfig{Strategy: StorageStrategyQueuedMap})
	require.NoError(t, err)
	require.IsType(t, &QueuedMapStorage[string]{}, storage)
	require.False(t, storage.CleanupEnabled())

	_, err = NewStorage[string](StorageConfig{Strategy: "lru"})
	require.EqualError(t, err, `unknown storage strategy "lru"`)
}
