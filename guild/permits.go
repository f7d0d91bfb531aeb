package guild

import (
	"context"
	"sync"
	"time"
)

// permitTimeout force-releases a ticket permit whose holder never returned.
const permitTimeout = 15 * time.Second

// permitPool bounds concurrent ticket creations in a guild.
type permitPool struct {
	limit int
	slots chan struct{}
}

func newPermitPool(limit int) *permitPool {
	if limit < 1 {
		limit = 1
	}
	return &permitPool{limit: limit, slots: make(chan struct{}, limit)}
}

// Available is the number of permits that can be taken without waiting.
func (p *permitPool) Available() int {
	return cap(p.slots) - len(p.slots)
}

// Acquire blocks until a permit is free or ctx ends. The permit releases
// itself after timeout if the holder has not done so.
func (p *permitPool) Acquire(ctx context.Context, timeout time.Duration) (*permit, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	pm := &permit{pool: p}
	pm.mu.Lock()
	pm.timer = time.AfterFunc(timeout, pm.Release)
	pm.mu.Unlock()
	return pm, nil
}

// permit is one held slot. It always returns to the pool it came from, even
// after that pool has been replaced.
type permit struct {
	pool *permitPool
	once sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// Release returns the slot. Calls after the first are no-ops.
func (p *permit) Release() {
	p.once.Do(func() {
		p.mu.Lock()
		if p.timer != nil {
			p.timer.Stop()
		}
		p.mu.Unlock()
		<-p.pool.slots
	})
}
