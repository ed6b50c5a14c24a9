// Command feed-sim runs a fake upstream leaderboard for local development.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/podium/internal/feedsim"
	"github.com/okian/podium/pkg/logger"
)

// Default simulator flags.
const (
	defaultAddr           = ":9081"
	defaultAgents         = 14
	defaultChurnInterval  = 10 * time.Second
	defaultStreamInterval = 5 * time.Second
	shutdownTimeout       = 5 * time.Second
	readHeaderTimeout     = 5 * time.Second
)

func main() {
	var (
		addr           = flag.String("addr", defaultAddr, "Listen address")
		agents         = flag.Int("agents", defaultAgents, "Number of live agents on the board")
		churnInterval  = flag.Duration("churn", defaultChurnInterval, "How often the board mutates")
		streamInterval = flag.Duration("stream", defaultStreamInterval, "SSE emission cadence")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	lg := logger.Get().Named("feedsim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := feedsim.New(
		feedsim.WithAgentCount(*agents),
		feedsim.WithChurnInterval(*churnInterval),
		feedsim.WithStreamInterval(*streamInterval),
	)

	srv := &http.Server{
		Addr:    *addr,
		Handler: sim.Handler(),
		// WriteTimeout stays zero: the stream endpoint is long-lived.
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		lg.Info(ctx, "feed simulator listening",
			logger.String("addr", *addr),
			logger.Int("agents", *agents),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("feed simulator failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	lg.Info(context.Background(), "feed simulator stopped")
}
