// Package daemon runs scheduled matrix runs and exposes run metrics and
// health over HTTP.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/events"
	"git.home.luguber.info/inful/docship/internal/history"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/matrix"
	"git.home.luguber.info/inful/docship/internal/metrics"
	"git.home.luguber.info/inful/docship/internal/runner"
)

// Daemon schedules periodic matrix runs.
type Daemon struct {
	cfg       *config.Config
	scheduler gocron.Scheduler
	store     history.Store
	publisher *events.Publisher
	recorder  *metrics.PrometheusRecorder
	registry  *prom.Registry
	server    *http.Server
	running   chan struct{} // guards against overlapping scheduled runs
}

// New creates a daemon from configuration. cfg.Daemon must be set.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg.Daemon == nil {
		return nil, fmt.Errorf("daemon mode requires a daemon section in the configuration")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	registry := prom.NewRegistry()
	d := &Daemon{
		cfg:       cfg,
		scheduler: scheduler,
		recorder:  metrics.NewPrometheusRecorder(registry),
		registry:  registry,
		running:   make(chan struct{}, 1),
	}
	return d, nil
}

// Run starts the scheduler and HTTP server and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	store, err := history.NewSQLiteStore(d.cfg.Daemon.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	d.store = store
	defer func() { _ = d.store.Close() }()

	if d.cfg.Events != nil && d.cfg.Events.Enabled {
		publisher, err := events.NewPublisher(d.cfg.Events)
		if err != nil {
			return err
		}
		d.publisher = publisher
		defer d.publisher.Close()
	}

	if err := d.startHTTP(); err != nil {
		return err
	}

	interval := d.cfg.Daemon.IntervalDuration()
	if _, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.scheduledRun, ctx),
		gocron.WithName("matrix-run"),
	); err != nil {
		return fmt.Errorf("failed to create scheduled run: %w", err)
	}

	slog.Info("Daemon started",
		slog.String("listen_addr", d.cfg.Daemon.ListenAddr),
		slog.Duration("interval", interval))
	d.scheduler.Start()

	<-ctx.Done()
	return d.shutdown()
}

func (d *Daemon) startHTTP() error {
	mux := http.NewServeMux()
	mux.Handle(d.cfg.Daemon.MetricsPath, metrics.HTTPHandler(d.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.server = &http.Server{
		Addr:              d.cfg.Daemon.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Surface immediate bind failures instead of scheduling against a dead server.
	select {
	case err := <-errCh:
		return fmt.Errorf("daemon HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (d *Daemon) shutdown() error {
	slog.Info("Shutting down daemon")
	if err := d.scheduler.Shutdown(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.server.Shutdown(shutdownCtx)
}

// scheduledRun executes one full matrix run. Overlapping runs are skipped:
// a tick that fires while the previous run is still active is dropped.
func (d *Daemon) scheduledRun(ctx context.Context) {
	select {
	case d.running <- struct{}{}:
	default:
		slog.Warn("Previous scheduled run still active; skipping tick")
		return
	}
	defer func() { <-d.running }()

	m, err := matrix.Load(d.cfg.Matrix.File)
	if err != nil {
		slog.Error("Failed to load matrix", logfields.Path(d.cfg.Matrix.File), logfields.Error(err))
		return
	}

	observers := []runner.Observer{
		history.NewRecorder(d.store),
		d.recorder,
	}
	if d.publisher != nil {
		observers = append(observers, d.publisher)
	}

	report, err := runner.New(m, runner.Options{
		Event:       "cron",
		MaxParallel: d.cfg.Matrix.MaxParallel,
		Observers:   observers,
	}).Run(ctx)
	if err != nil {
		slog.Error("Scheduled run failed to execute", logfields.Error(err))
		return
	}
	if report.Failed() {
		slog.Warn("Scheduled run finished with failures", logfields.RunID(report.RunID))
		return
	}
	slog.Info("Scheduled run passed", logfields.RunID(report.RunID))
}
