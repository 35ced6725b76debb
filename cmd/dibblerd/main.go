// dibblerd runs the address manager as a long-lived daemon: it loads a
// snapshot, serves a Prometheus /metrics endpoint, and periodically
// flushes the tree back to disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mudinlove/dibbler/pkg/addrmgr"
	"github.com/mudinlove/dibbler/pkg/config"
	"github.com/mudinlove/dibbler/pkg/logging"
	"github.com/mudinlove/dibbler/pkg/metrics"
)

func main() {
	configFile := flag.String("config", "/etc/dibbler/dibblerd.conf", "settings file path")
	apiAddr := flag.String("api-addr", "127.0.0.1:8080", "HTTP metrics listen address (empty to disable)")
	flushInterval := flag.Duration("flush-interval", 30*time.Second, "snapshot flush period")
	sweepInterval := flag.Duration("sweep-interval", 60*time.Second, "expired lease sweep period")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if err := run(*configFile, *apiAddr, *flushInterval, *sweepInterval); err != nil {
		fmt.Fprintf(os.Stderr, "dibblerd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, apiAddr string, flushInterval, sweepInterval time.Duration) error {
	settings := config.DefaultSettings()
	if data, err := os.ReadFile(configFile); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read settings: %w", err)
		}
		slog.Warn("no settings file, using defaults", "path", configFile)
	} else {
		parsed, err := config.Parse(string(data))
		if err != nil {
			return fmt.Errorf("parse settings: %w", err)
		}
		settings = parsed
	}

	store := addrmgr.NewStore(settings.SnapshotPath, settings.DeleteEmptyClients)

	events := logging.NewLeaseEventBuffer(1000)
	store.OnLeaseEvent = events.Add

	if store.Load() {
		slog.Info("snapshot loaded", "path", settings.SnapshotPath, "clients", store.CountClients())
	} else {
		slog.Info("starting with an empty address database", "path", settings.SnapshotPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var wg sync.WaitGroup

	if apiAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(metrics.NewCollector(store))

		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "clients=%d\n", store.CountClients())
		})

		httpServer := &http.Server{Addr: apiAddr, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("metrics listening", "addr", apiAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "err", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runFlushLoop(ctx, store, flushInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runSweepLoop(ctx, store, sweepInterval)
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	wg.Wait()

	if err := store.Flush(); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	slog.Info("final snapshot written", "path", settings.SnapshotPath)
	return nil
}

// runFlushLoop periodically persists the tree so a crash between
// scheduled flushes loses at most one interval of lease state.
func runFlushLoop(ctx context.Context, store *addrmgr.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Flush(); err != nil {
				slog.Error("periodic flush failed", "err", err)
			}
		}
	}
}

// runSweepLoop periodically removes resources whose valid lifetime has
// elapsed (§3 Lifecycle), independent of any renew/rebind traffic the
// message-handling layer may or may not be driving.
func runSweepLoop(ctx context.Context, store *addrmgr.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(time.Now().Unix()); n > 0 {
				slog.Info("expiry sweep removed resources", "count", n)
			}
		}
	}
}
