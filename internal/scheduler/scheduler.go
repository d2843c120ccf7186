// Package scheduler drives the periodic background quota refresh.
package scheduler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RefreshFunc is invoked on every tick of the auto-refresh loop.
type RefreshFunc func(ctx context.Context)

// AutoRefresh runs a recurring refresh task. Reconfiguration always stops
// the previously armed ticker before arming a new one, so two loops can
// never run for the same scheduler.
type AutoRefresh struct {
	refresh RefreshFunc

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	enabled  bool
	interval time.Duration
}

// NewAutoRefresh constructs a stopped AutoRefresh around the given task.
func NewAutoRefresh(refresh RefreshFunc) *AutoRefresh {
	return &AutoRefresh{refresh: refresh}
}

// Configure applies a new enabled flag and interval. The active loop, if
// any, is stopped first; a new loop is armed only when enabled is true and
// the interval is positive.
func (a *AutoRefresh) Configure(ctx context.Context, enabled bool, interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	a.enabled = enabled
	a.interval = interval
	if !enabled || interval <= 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.cancel = cancel
	a.done = done

	log.WithField("interval", interval).Info("auto refresh: armed")
	go a.loop(loopCtx, interval, done)
}

// Stop cancels the active loop, if any, and waits for it to exit.
func (a *AutoRefresh) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Running reports whether a refresh loop is currently armed.
func (a *AutoRefresh) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// stopLocked tears down the active loop. Callers hold the mutex.
func (a *AutoRefresh) stopLocked() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
	a.cancel = nil
	a.done = nil
}

func (a *AutoRefresh) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("auto refresh: loop stopped")
			return
		case <-ticker.C:
			a.refresh(ctx)
		}
	}
}
