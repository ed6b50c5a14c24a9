package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/podium/internal/adapters/feed"
	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/http/swagger"
	"github.com/okian/podium/internal/adapters/roster"
	"github.com/okian/podium/internal/adapters/snapshot"
	"github.com/okian/podium/internal/adapters/upstream"
	app "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/reconcile"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// One badger DB shared by the roster cache and the snapshot store.
	db, err := badger.Open(badger.DefaultOptions(cfg.DataDir).WithLogger(nil))
	if err != nil {
		os.Stderr.WriteString("failed to open data dir: " + err.Error() + "\n")
		return
	}
	defer func() { _ = db.Close() }()

	requestTimeout := time.Duration(cfg.RequestTimeoutMS) * time.Millisecond

	feedManager := buildFeed(cfg, requestTimeout)
	rosterStore := roster.New(db, cfg.RosterURL,
		roster.WithTTL(time.Duration(cfg.RosterTTLHours)*time.Hour),
		roster.WithFetchTimeout(requestTimeout),
	)
	snapshotStore := snapshot.New(db)

	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithFeed(feedManager),
		app.WithRoster(rosterStore),
		app.WithSnapshots(snapshotStore),
		app.WithSnapshotsEnabled(cfg.SnapshotEnabled),
		app.WithEngine(reconcile.New(reconcile.WithMinVisible(cfg.MinVisible))),
		app.WithChangeEventTTL(time.Duration(cfg.ChangeEventTTLMS)*time.Millisecond),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc,
		api.WithStreamKeepalive(time.Duration(cfg.SSEKeepaliveMS)*time.Millisecond),
	)
	apiServer.Register(ctx, mux)

	// Prometheus exposition from the custom registry.
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
		// WriteTimeout stays zero: /stream connections are long-lived.
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildFeed assembles the live connection manager for the configured mode.
func buildFeed(cfg *config.Config, requestTimeout time.Duration) *feed.Manager {
	opts := []feed.Option{
		feed.WithMode(cfg.UpstreamMode),
		feed.WithPollInterval(time.Duration(cfg.PollIntervalMS) * time.Millisecond),
		feed.WithBackoff(
			time.Duration(cfg.ReconnectFloorMS)*time.Millisecond,
			time.Duration(cfg.ReconnectCeilingMS)*time.Millisecond,
		),
	}
	if cfg.UpstreamMode == config.ModeSSE {
		opts = append(opts, feed.WithStreamer(feed.NewSSEClient(cfg.UpstreamURL)))
	} else {
		opts = append(opts, feed.WithFetcher(upstream.New(cfg.UpstreamURL, upstream.WithTimeout(requestTimeout))))
	}
	return feed.New(opts...)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average pause over the process lifetime.
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if records, ok := stats["rosterRecords"].(int); ok {
		metrics.UpdateRosterRecords(records)
	}
	if entries, ok := stats["entries"].(int); ok {
		metrics.UpdateBoardEntries(entries)
	}
}
