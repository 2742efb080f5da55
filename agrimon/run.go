package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/itohio/agrimon/pkg/acquire"
	"github.com/itohio/agrimon/pkg/alert"
	"github.com/itohio/agrimon/pkg/config"
	"github.com/itohio/agrimon/pkg/device"
	"github.com/itohio/agrimon/pkg/height"
	"github.com/itohio/agrimon/pkg/log"
	"github.com/itohio/agrimon/pkg/rain"
	"github.com/itohio/agrimon/pkg/report"
	"github.com/itohio/agrimon/pkg/sample"
	"github.com/itohio/agrimon/pkg/scheduler"
	"github.com/itohio/agrimon/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Startup fault sources.
const (
	FaultHub   = "sensor hub connection failed"
	FaultClock = "RTC initialization failed"
	FaultStore = "SD card initialization failed"
	FaultData  = "Could not create data file"
)

// run wires the controller and blocks until ctx is cancelled. Startup
// failures of the hub, clock or store are reported as faults and the
// controller continues without the affected capability.
func run(ctx context.Context, cfg *config.Config, runID string, useMock bool) error {
	logger := log.Named("agrimon")
	logger.Infow("agrimon starting", "mock", useMock, "store", cfg.Store.Backend)

	var hub device.Hub
	if useMock {
		hub = device.NewMock(&cfg.Mock, cfg.Channels)
	} else {
		hub = device.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.Timeout, log.Named("hub"))
	}

	var startupFaults []string

	if err := hub.Connect(); err != nil {
		logger.Errorw("failed to connect sensor hub", "port", cfg.Serial.Port, "error", err)
		startupFaults = append(startupFaults, FaultHub)
	}
	defer hub.Close()

	if _, err := hub.Now(); err != nil {
		logger.Errorw("clock unavailable", "error", err)
		startupFaults = append(startupFaults, FaultClock)
	}

	var st store.Store
	opened, err := store.Open(cfg.Store, runID)
	switch {
	case err == nil:
		st = opened
		defer st.Close()
	case errors.Is(err, store.ErrDataFile):
		logger.Errorw("failed to create data file", "error", err)
		startupFaults = append(startupFaults, FaultData)
	default:
		logger.Errorw("store unavailable", "dir", cfg.Store.Dir, "error", err)
		startupFaults = append(startupFaults, FaultStore)
	}

	var metrics *report.Metrics
	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = report.NewMetrics(reg)
		serveMetrics(ctx, cfg.Metrics.Listen, reg)
	}

	blinker := report.NewBlinker(hub, report.DefaultQueueSize, log.Named("indicator"))
	rep := report.New(cfg.Indicator, hub, st, blinker, metrics, log.Named("report"))

	gauge := rain.New(cfg.Calibration.RainFactor, cfg.Calibration.RainDebounce)
	filter := height.New(cfg.Calibration.HeightBaseline, cfg.Calibration.HeightDeadBand, cfg.Calibration.HeightAlpha)
	acq := acquire.New(cfg, hub, gauge, filter, rep, log.Named("acquire"))

	sched := scheduler.New(cfg, acq, rep, log.Named("scheduler"))
	sched.OnSample(func(s sample.Snapshot, set alert.Set) {
		if err := report.WriteStatus(os.Stdout, rep.Now(), s, set); err != nil {
			logger.Debugw("status write failed", "error", err)
		}
		metrics.Observe(s)
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		gauge.Run(ctx, hub.Edges())
	}()
	go func() {
		defer wg.Done()
		blinker.Run(ctx)
	}()

	for _, source := range startupFaults {
		rep.Fault(source)
	}

	logger.Infow("agrimon started", "run", runID)

	err = sched.Run(ctx)
	wg.Wait()

	return err
}

// serveMetrics exposes reg on addr until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	logger := log.Named("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infow("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
