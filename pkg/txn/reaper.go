package txn

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/raleighsl/raleighsl/pkg/log"
	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/task"
)

// ReaperConfig controls how aggressively the reaper sweeps abandoned
// transactions.
type ReaperConfig struct {
	// Interval is how often the reaper wakes to sweep. Zero selects a
	// 10-second default, matching the rest of the engine's background
	// loops.
	Interval time.Duration

	// MaxAge is how long a transaction may sit in WAIT_COMMIT with no new
	// enlistment before the reaper rolls it back. Zero selects 30 seconds.
	MaxAge time.Duration
}

func (c ReaperConfig) withDefaults() ReaperConfig {
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 30 * time.Second
	}
	return c
}

// Reaper periodically rolls back transactions that have sat in WAIT_COMMIT
// past their liveness threshold, e.g. a client that enlisted objects and
// then vanished without ever calling commit or rollback.
type Reaper struct {
	manager  *Manager
	sub      task.Submitter
	rollback RollbackFunc
	cfg      ReaperConfig
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// NewReaper returns a reaper that sweeps mgr's live transactions, rolling
// back stale ones via rollback.
func NewReaper(mgr *Manager, sub task.Submitter, rollback RollbackFunc, cfg ReaperConfig) *Reaper {
	return &Reaper{
		manager:  mgr,
		sub:      sub,
		rollback: rollback,
		cfg:      cfg.withDefaults(),
		logger:   log.WithComponent("txn_reaper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (r *Reaper) Start() {
	go r.run()
}

// Stop ends the sweep loop.
func (r *Reaper) Stop() {
	close(r.stopCh)
}

func (r *Reaper) run() {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.cfg.Interval).Dur("max_age", r.cfg.MaxAge).Msg("transaction reaper started")

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			r.logger.Info().Msg("transaction reaper stopped")
			return
		}
	}
}

func (r *Reaper) sweep() {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.TxnReaperDuration)
		metrics.TxnReaperCyclesTotal.Inc()
	}()

	threshold := r.cfg.MaxAge
	stale := r.manager.Sweep(func(t *Transaction) bool {
		return time.Since(t.Mtime()) > threshold
	})

	for _, t := range stale {
		r.logger.Warn().
			Uint64("txn_id", uint64(t.ID)).
			Time("mtime", t.Mtime()).
			Msg("reaping abandoned transaction")
		r.manager.Rollback(t, r.sub, r.rollback)
	}
}
