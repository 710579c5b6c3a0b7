/*
scheduler.go - Run retention scheduler

PURPOSE:
  Periodically deletes runs older than the configured retention so the
  database does not grow without bound.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Purges once immediately on start, then on every tick
  - Goes through Handler.PurgeOlderThan so cached results are dropped too

CONFIGURATION:
  - Retention:     How long a run is kept (zero disables the scheduler)
  - CheckInterval: How often to check (default: 1 hour)

USAGE:
  scheduler := NewRetentionScheduler(handler, 30*24*time.Hour, time.Hour, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: PurgeOlderThan
  - config/config.go: RUN_RETENTION, RETENTION_INTERVAL
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RetentionScheduler deletes expired runs on an interval.
type RetentionScheduler struct {
	Handler       *Handler
	Retention     time.Duration
	CheckInterval time.Duration

	log    zerolog.Logger
	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRetentionScheduler creates a new scheduler.
func NewRetentionScheduler(h *Handler, retention, interval time.Duration, log zerolog.Logger) *RetentionScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionScheduler{
		Handler:       h,
		Retention:     retention,
		CheckInterval: interval,
		log:           log.With().Str("component", "retention").Logger(),
		now:           time.Now,
	}
}

// Start begins the scheduler. It is a no-op when retention is disabled or
// the scheduler is already running.
func (rs *RetentionScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Retention <= 0 {
		rs.log.Info().Msg("retention disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.log.Info().Dur("retention", rs.Retention).Dur("interval", rs.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for an in-flight purge.
func (rs *RetentionScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.log.Info().Msg("stopped")
	}
}

func (rs *RetentionScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	rs.RunNow(ctx)
	for {
		select {
		case <-ticker.C:
			rs.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow purges expired runs immediately and returns how many were deleted.
func (rs *RetentionScheduler) RunNow(ctx context.Context) int {
	cutoff := rs.now().Add(-rs.Retention)
	n, err := rs.Handler.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		rs.log.Error().Err(err).Time("cutoff", cutoff).Msg("purge failed")
		return 0
	}
	if n > 0 {
		rs.log.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("expired runs deleted")
	}
	return n
}

// NextRunTime returns when the next scheduled check will occur.
func (rs *RetentionScheduler) NextRunTime() time.Time {
	return rs.now().Add(rs.CheckInterval)
}
