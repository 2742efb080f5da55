// Package scheduler sequences acquisition, alerting and persistence against
// two independent timers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/itohio/agrimon/pkg/alert"
	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/sample"
	"go.uber.org/zap"
)

// Acquirer produces the next snapshot from the previous one.
type Acquirer interface {
	Acquire(ctx context.Context, prev sample.Snapshot) sample.Snapshot
}

// Reporter receives the alert and persistence effects.
type Reporter interface {
	Alert(set alert.Set)
	Persist(s sample.Snapshot)
}

// Scheduler owns the live snapshot. Step and Run must be called from a
// single goroutine.
type Scheduler struct {
	samplePeriod  time.Duration
	persistPeriod time.Duration
	idleWait      time.Duration
	thresholds    *config.Thresholds

	acq    Acquirer
	rep    Reporter
	logger *zap.SugaredLogger

	current     sample.Snapshot
	started     bool
	lastSample  time.Time
	lastPersist time.Time

	callbacks []func(s sample.Snapshot, set alert.Set)
	cbMu      sync.RWMutex

	now func() time.Time
}

// New creates a Scheduler.
func New(cfg *config.Config, acq Acquirer, rep Reporter, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		samplePeriod:  cfg.Sampling.SamplePeriod,
		persistPeriod: cfg.Sampling.PersistPeriod,
		idleWait:      cfg.Sampling.IdleWait,
		thresholds:    &cfg.Thresholds,
		acq:           acq,
		rep:           rep,
		logger:        logger,
		current:       sample.Empty(),
		now:           time.Now,
	}
}

// OnSample registers a callback invoked after every sampling tick with the
// new snapshot and its alert set.
func (s *Scheduler) OnSample(cb func(s sample.Snapshot, set alert.Set)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Current returns the most recently completed snapshot.
func (s *Scheduler) Current() sample.Snapshot {
	return s.current
}

// Step checks both timers against now and runs whichever ticks are due.
// The first call starts both timers. Sampling runs before persistence when
// both are due, so persistence writes the snapshot just produced. A timer
// restarts when its tick completes, so a slow tick delays the next one.
func (s *Scheduler) Step(ctx context.Context, now time.Time) {
	if !s.started {
		s.started = true
		s.lastSample = now
		s.lastPersist = now
		return
	}

	if now.Sub(s.lastSample) >= s.samplePeriod {
		s.sample(ctx)
		s.lastSample = s.now()
	}

	if now.Sub(s.lastPersist) >= s.persistPeriod {
		s.persist()
		s.lastPersist = s.now()
	}
}

// Run calls Step every IdleWait until ctx is cancelled. A tick in progress
// always completes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infow("scheduler started",
		"sample_period", s.samplePeriod,
		"persist_period", s.persistPeriod,
	)

	ticker := time.NewTicker(s.idleWait)
	defer ticker.Stop()

	s.Step(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Step(ctx, s.now())
		}
	}
}

func (s *Scheduler) sample(ctx context.Context) {
	// A started tick runs to completion.
	snap := s.acq.Acquire(context.WithoutCancel(ctx), s.current)
	s.current = snap

	set := alert.Evaluate(snap, s.thresholds)
	if set.Triggered() {
		s.rep.Alert(set)
	}

	s.notify(snap, set)
}

func (s *Scheduler) persist() {
	if s.current.IsZero() {
		s.logger.Debugw("no snapshot yet, persistence skipped")
		return
	}
	s.rep.Persist(s.current)
}

func (s *Scheduler) notify(snap sample.Snapshot, set alert.Set) {
	s.cbMu.RLock()
	defer s.cbMu.RUnlock()
	for _, cb := range s.callbacks {
		cb(snap, set)
	}
}
