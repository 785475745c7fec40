package schedule

import (
	"context"
	"sync"
	"time"

	"EstateScanner/internal/ports"
)

// TickerScheduler runs a job on a fixed interval, firing once immediately on
// start. Start and Stop are safe to call from any goroutine.
type TickerScheduler struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*TickerScheduler)(nil)

// NewTickerScheduler builds a scheduler with the given interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &TickerScheduler{interval: interval}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (t *TickerScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop != nil {
		return nil
	}
	t.stop = make(chan struct{})

	stop := t.stop
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case trigger := <-ticker.C:
				job(trigger)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine. Stopping a stopped scheduler is a no-op.
func (t *TickerScheduler) Stop(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stop == nil {
		return nil
	}
	close(t.stop)
	t.stop = nil
	return nil
}
