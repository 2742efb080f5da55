// Package report owns the side effects of faults and alerts: persistence to
// the event logs, the indicator, logging and metrics.
package report

import (
	"time"

	"github.com/itohio/agrimon/pkg/alert"
	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/device"
	"github.com/itohio/agrimon/pkg/sample"
	"github.com/itohio/agrimon/pkg/store"
	"go.uber.org/zap"
)

// FaultEvent is a fault converted at its point of detection.
type FaultEvent struct {
	Source string
	At     time.Time // Zero when the clock is unavailable
}

// Reporter routes faults, alerts and snapshots to their sinks. Any of the
// store, blinker and metrics may be nil; the matching effect is skipped.
type Reporter struct {
	indicator config.IndicatorConfig
	clock     device.Clock
	store     store.Store
	blinker   *Blinker
	metrics   *Metrics
	logger    *zap.SugaredLogger
}

// New creates a Reporter.
func New(indicator config.IndicatorConfig, clock device.Clock, st store.Store, blinker *Blinker, metrics *Metrics, logger *zap.SugaredLogger) *Reporter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Reporter{
		indicator: indicator,
		clock:     clock,
		store:     st,
		blinker:   blinker,
		metrics:   metrics,
		logger:    logger,
	}
}

// Now returns the wall-clock time from the clock, or the zero time if the
// clock is missing or fails.
func (r *Reporter) Now() time.Time {
	if r.clock == nil {
		return time.Time{}
	}
	t, err := r.clock.Now()
	if err != nil {
		r.logger.Debugw("clock read failed", "error", err)
		return time.Time{}
	}
	return t
}

// Fault stamps source with the current time and reports it.
func (r *Reporter) Fault(source string) {
	r.Report(FaultEvent{Source: source, At: r.Now()})
}

// Report persists ev to the error log and pulses the indicator once.
func (r *Reporter) Report(ev FaultEvent) {
	r.logger.Warnw("fault", "source", ev.Source, "at", ev.At)
	r.metrics.fault(ev.Source)

	r.writeEvent(store.KindError, ev.At, ev.Source)

	if r.blinker != nil && !r.blinker.Enqueue(FaultPattern(r.indicator)) {
		r.logger.Debugw("indicator queue full, fault pattern dropped", "source", ev.Source)
	}
}

// Alert persists the alert message and plays the alert pattern. An empty set
// does nothing.
func (r *Reporter) Alert(set alert.Set) {
	if !set.Triggered() {
		return
	}

	at := r.Now()
	msg := set.Message()

	r.logger.Infow("alert", "reasons", set.Reasons, "at", at)
	r.metrics.alert(set.Reasons)

	r.writeEvent(store.KindAlert, at, msg)

	if r.blinker != nil && !r.blinker.Enqueue(AlertPattern(r.indicator)) {
		r.logger.Debugw("indicator queue full, alert pattern dropped")
	}
}

// Persist writes s as one data row stamped with the current time.
func (r *Reporter) Persist(s sample.Snapshot) {
	if r.store == nil {
		r.logger.Debugw("no store, snapshot not persisted")
		return
	}

	at := r.Now()
	err := r.store.WriteSnapshot(at, s)
	r.metrics.persist(err)
	if err != nil {
		r.logger.Errorw("failed to persist snapshot", "error", err)
		return
	}
	r.logger.Debugw("snapshot persisted", "at", at)
}

func (r *Reporter) writeEvent(kind store.EventKind, at time.Time, msg string) {
	if r.store == nil {
		return
	}
	if err := r.store.WriteEvent(kind, at, msg); err != nil {
		r.metrics.storeError()
		r.logger.Errorw("failed to write event", "kind", kind, "error", err)
	}
}
