package guild

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermitPoolBoundsConcurrency(t *testing.T) {
	pool := newPermitPool(2)

	var (
		inFlight  atomic.Int32
		peak      atomic.Int32
		completed atomic.Int32
		wg        sync.WaitGroup
		full      = make(chan struct{})
		fullOnce  sync.Once
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pm, err := pool.Acquire(context.Background(), time.Minute)
			if !assert.NoError(t, err) {
				return
			}
			defer pm.Release()

			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			// The first holders wait for each other so both permits are out at once.
			if n == 2 {
				fullOnce.Do(func() { close(full) })
			}
			<-full
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			completed.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), completed.Load())
	assert.Equal(t, int32(2), peak.Load())
	assert.Equal(t, 2, pool.Available())
}

func TestPermitRelease(t *testing.T) {
	t.Run("release is idempotent", func(t *testing.T) {
		pool := newPermitPool(2)
		pm, err := pool.Acquire(context.Background(), time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, pool.Available())

		pm.Release()
		pm.Release()
		assert.Equal(t, 2, pool.Available())
	})

	t.Run("safety timer frees a forgotten permit", func(t *testing.T) {
		pool := newPermitPool(1)
		_, err := pool.Acquire(context.Background(), 10*time.Millisecond)
		require.NoError(t, err)
		assert.Zero(t, pool.Available())

		assert.Eventually(t, func() bool { return pool.Available() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("acquire honours cancellation", func(t *testing.T) {
		pool := newPermitPool(1)
		_, err := pool.Acquire(context.Background(), time.Minute)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err = pool.Acquire(ctx, time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestTicketPoolRebuild(t *testing.T) {
	state := newTenantState(testGuild)

	old := state.ticketPool(1)
	pm, err := old.Acquire(context.Background(), time.Minute)
	require.NoError(t, err)

	fresh := state.ticketPool(3)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 3, fresh.Available())
	assert.Same(t, fresh, state.ticketPool(3))
	assert.Equal(t, 1, state.ticketPool(0).limit)

	// A permit from the replaced pool goes back to that pool.
	pm.Release()
	assert.Equal(t, 1, old.Available())
}

func TestTicketPoolRebuildUnderLoad(t *testing.T) {
	state := newTenantState(testGuild)

	var (
		mu       sync.Mutex
		inFlight = make(map[*permitPool]int)
		pools    = make(map[*permitPool]bool)
		wg       sync.WaitGroup
	)
	for i := range 60 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool := state.ticketPool(i%3 + 1)
			pm, err := pool.Acquire(context.Background(), time.Minute)
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			pools[pool] = true
			inFlight[pool]++
			assert.LessOrEqual(t, inFlight[pool], pool.limit)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight[pool]--
			mu.Unlock()
			pm.Release()
		}()
	}
	wg.Wait()

	assert.Greater(t, len(pools), 1)
	for pool := range pools {
		assert.Equal(t, pool.limit, pool.Available())
	}
}
