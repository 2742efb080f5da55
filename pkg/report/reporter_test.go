package report

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itohio/agrimon/pkg/alert"
	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/sample"
	"github.com/itohio/agrimon/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMedium = errors.New("medium removed")

type fixedClock struct {
	t   time.Time
	err error
}

func (c fixedClock) Now() (time.Time, error) {
	return c.t, c.err
}

type event struct {
	kind    store.EventKind
	at      time.Time
	message string
}

type memStore struct {
	mu        sync.Mutex
	snapshots []sample.Snapshot
	times     []time.Time
	events    []event
	err       error
}

func (m *memStore) WriteSnapshot(at time.Time, s sample.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snapshots = append(m.snapshots, s)
	m.times = append(m.times, at)
	return nil
}

func (m *memStore) WriteEvent(kind store.EventKind, at time.Time, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event{kind, at, message})
	return nil
}

func (m *memStore) Close() error { return nil }

var testTime = time.Date(2024, 6, 2, 14, 7, 45, 0, time.UTC)

type reporterFixture struct {
	rep     *Reporter
	store   *memStore
	blinker *Blinker
	metrics *Metrics
}

func newReporter(t *testing.T, clock fixedClock) *reporterFixture {
	t.Helper()
	f := &reporterFixture{
		store:   &memStore{},
		blinker: NewBlinker(&recordingIndicator{}, 4, nil),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.rep = New(config.Default().Indicator, clock, f.store, f.blinker, f.metrics, nil)
	return f
}

func TestReporter_Fault(t *testing.T) {
	f := newReporter(t, fixedClock{t: testTime})

	f.rep.Fault("humidity sensor reading failed")

	require.Len(t, f.store.events, 1)
	assert.Equal(t, event{store.KindError, testTime, "humidity sensor reading failed"}, f.store.events[0])

	require.Len(t, f.blinker.queue, 1)
	assert.Equal(t, Pattern{On: time.Second, Count: 1}, <-f.blinker.queue)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.faults.WithLabelValues("humidity sensor reading failed")))
}

func TestReporter_FaultWithoutClock(t *testing.T) {
	f := newReporter(t, fixedClock{err: errors.New("rtc missing")})

	f.rep.Fault("RTC initialization failed")

	require.Len(t, f.store.events, 1)
	assert.True(t, f.store.events[0].at.IsZero())
}

func TestReporter_Degraded(t *testing.T) {
	rep := New(config.Default().Indicator, nil, nil, nil, nil, nil)

	assert.NotPanics(t, func() {
		rep.Fault("SD card initialization failed")
		rep.Alert(alert.Set{Reasons: []string{alert.ReasonRainfall}})
		rep.Persist(sample.Empty())
	})
	assert.True(t, rep.Now().IsZero())
}

func TestReporter_Alert(t *testing.T) {
	f := newReporter(t, fixedClock{t: testTime})

	f.rep.Alert(alert.Set{})
	assert.Empty(t, f.store.events)
	assert.Empty(t, f.blinker.queue)

	f.rep.Alert(alert.Set{Reasons: []string{alert.ReasonCropStress, alert.ReasonRainfall}})

	require.Len(t, f.store.events, 1)
	assert.Equal(t, event{store.KindAlert, testTime, "high crop stress, heavy rainfall"}, f.store.events[0])

	require.Len(t, f.blinker.queue, 1)
	assert.Equal(t, Pattern{On: 100 * time.Millisecond, Off: 100 * time.Millisecond, Count: 5}, <-f.blinker.queue)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.alerts.WithLabelValues(alert.ReasonRainfall)))
}

func TestReporter_Persist(t *testing.T) {
	f := newReporter(t, fixedClock{t: testTime})
	s := sample.Snapshot{CropStress: 2, TakenAt: testTime}

	f.rep.Persist(s)

	require.Len(t, f.store.snapshots, 1)
	assert.Equal(t, s, f.store.snapshots[0])
	assert.Equal(t, testTime, f.store.times[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.persisted))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.storeErrors))
}

func TestReporter_StoreErrors(t *testing.T) {
	f := newReporter(t, fixedClock{t: testTime})
	f.store.err = errMedium

	f.rep.Persist(sample.Empty())
	f.rep.Fault("water quality sensor reading failed")

	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.persisted))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.storeErrors))
	// The indicator still signals the fault.
	assert.Len(t, f.blinker.queue, 1)
}

func TestReporter_IndicatorQueueFull(t *testing.T) {
	f := newReporter(t, fixedClock{t: testTime})

	for n := 0; n < 10; n++ {
		f.rep.Fault("crop stress sensor reading failed")
	}

	assert.Len(t, f.blinker.queue, 4)
	assert.Len(t, f.store.events, 10, "every fault is persisted")
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Observe(sample.Snapshot{TDS: 800, PH: 6.5, RainTips: 40, Rainfall: 11.176})

	assert.Equal(t, 800.0, testutil.ToFloat64(m.readings.WithLabelValues("tds")))
	assert.Equal(t, 6.5, testutil.ToFloat64(m.readings.WithLabelValues("ph")))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.rainTips))

	count, err := testutil.GatherAndCount(reg, "agrimon_reading")
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Observe(sample.Empty())
		m.fault("x")
		m.alert([]string{"y"})
		m.persist(nil)
		m.storeError()
	})
}
