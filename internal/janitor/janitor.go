// Package janitor runs the periodic cleanup of idle connections and
// expired sessions. It is an optimization, not a correctness requirement:
// the pool and the session store both evict lazily on the hot path, so the
// janitor can be disabled in restart-heavy environments.
package janitor

import (
	"context"
	"time"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

// DefaultInterval is how often the janitor runs its sweeps.
const DefaultInterval = 10 * time.Minute

// ConnectionSweeper closes idle pooled connections.
type ConnectionSweeper interface {
	SweepIdle(ctx context.Context) int
}

// SessionSweeper removes expired sessions.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) int
}

// Janitor periodically invokes the pool and session sweeps.
type Janitor struct {
	pool     ConnectionSweeper
	sessions SessionSweeper
	interval time.Duration
	log      logger.Logger

	ticker   *time.Ticker
	stopChan chan struct{}
}

// New creates a janitor. interval <= 0 selects DefaultInterval.
func New(pool ConnectionSweeper, sessions SessionSweeper, interval time.Duration, log logger.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Janitor{
		pool:     pool,
		sessions: sessions,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background sweep goroutine.
func (j *Janitor) Start() {
	j.ticker = time.NewTicker(j.interval)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				j.RunOnce(context.Background())
			case <-j.stopChan:
				j.ticker.Stop()
				return
			}
		}
	}()

	j.log.Info("cleanup scheduler started", logger.Field{Key: "interval", Value: j.interval.String()})
}

// RunOnce performs a single sweep pass. Exposed so tests and shutdown paths
// can run it deterministically.
func (j *Janitor) RunOnce(ctx context.Context) {
	closed := j.pool.SweepIdle(ctx)
	expired := j.sessions.SweepExpired(ctx)
	if closed > 0 || expired > 0 {
		j.log.Info("cleanup pass finished",
			logger.Field{Key: "connections_closed", Value: closed},
			logger.Field{Key: "sessions_expired", Value: expired},
		)
	}
}

// Stop halts the background goroutine. Safe to call when Start was never
// called.
func (j *Janitor) Stop() {
	if j.ticker != nil {
		close(j.stopChan)
	}
}
