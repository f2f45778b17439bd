package timer

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultInterval is the tick period of a real countdown.
const DefaultInterval = time.Second

// Ticker calls a function on a fixed interval until stopped.
type Ticker struct {
	interval time.Duration
	fn       func(ctx context.Context)
	logger   *log.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewTicker creates a ticker calling fn every interval.
func NewTicker(interval time.Duration, fn func(ctx context.Context), logger *log.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ticker{interval: interval, fn: fn, logger: logger}
}

// Start begins the tick loop. Calling Start on a running ticker is a no-op.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.started = true

	t.wg.Add(1)
	go t.loop(t.ctx)
	t.logger.Printf("Timer ticker started (interval %s)", t.interval)
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (t *Ticker) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.cancel()
	t.started = false
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Println("Timer ticker stopped")
}

func (t *Ticker) loop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.fn(ctx)
		}
	}
}
