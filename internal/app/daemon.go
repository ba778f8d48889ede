package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"steamlink/internal/credential"
	"steamlink/internal/metrics"
	"steamlink/pkg/logging"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// Notifier reports service state to the init system.
type Notifier func(state string) error

func systemdNotify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

type refreshDaemon struct {
	services *Services
	notify   Notifier
	reload   chan struct{}
}

// runDaemon checks the stored credential on startup, on every refresh
// interval and whenever the credential file changes, refreshing and
// persisting it when it is about to expire.
func runDaemon(ctx context.Context, services *Services, notify Notifier) error {
	d := &refreshDaemon{
		services: services,
		notify:   notify,
		reload:   make(chan struct{}, 1),
	}

	if err := os.MkdirAll(services.Config.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	watcher := credential.NewWatcher(credential.WatcherConfig{
		Path:     services.Store.Path(),
		OnChange: d.requestReload,
	})
	if err := watcher.Start(); err != nil {
		logging.Warn("Daemon", "Credential file watching disabled: %v", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	if addr := services.Config.Daemon.MetricsAddress; addr != "" {
		stop, err := d.serveHTTP(addr)
		if err != nil {
			return err
		}
		defer stop()
	}

	d.check(ctx, "startup")
	d.sendNotify(daemon.SdNotifyReady)
	logging.Info("Daemon", "Checking the stored credential every %s", services.Config.Daemon.RefreshInterval)

	ticker := time.NewTicker(services.Config.Daemon.RefreshInterval)
	defer ticker.Stop()

	var watchdog <-chan time.Time
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		watchdog = t.C
	}

	for {
		select {
		case <-ctx.Done():
			d.sendNotify(daemon.SdNotifyStopping)
			logging.Info("Daemon", "Shutting down")
			return nil
		case <-ticker.C:
			d.check(ctx, "interval")
		case <-d.reload:
			d.check(ctx, "file change")
		case <-watchdog:
			d.sendNotify(daemon.SdNotifyWatchdog)
		}
	}
}

func (d *refreshDaemon) requestReload() {
	select {
	case d.reload <- struct{}{}:
	default:
	}
}

func (d *refreshDaemon) sendNotify(state string) {
	if err := d.notify(state); err != nil {
		logging.Debug("Daemon", "Init system notification failed: %v", err)
	}
}

// check refreshes the stored credential when it expires within the refresh
// skew. It reports whether the stored credential is usable afterwards.
func (d *refreshDaemon) check(ctx context.Context, reason string) bool {
	stored, status := d.services.Store.LoadIncludingExpired()
	if stored == nil {
		logging.Info("Daemon", "No usable credential (%s, checked on %s); run steamlink auth login", status, reason)
		return false
	}

	refreshed := d.services.Session.RefreshIfNeeded(ctx, stored)
	if refreshed == nil {
		logging.Warn("Daemon", "Credential for %s could not be renewed; run steamlink auth login", stored.AccountName)
		return false
	}
	if refreshed == stored {
		logging.Debug("Daemon", "Credential for %s is fresh (checked on %s)", stored.AccountName, reason)
		return true
	}

	if err := d.services.Session.Persist(refreshed); err != nil {
		logging.Error("Daemon", err, "Failed to persist refreshed credential")
		return false
	}
	logging.Info("Daemon", "Renewed credential for %s", refreshed.AccountName)
	return true
}

// serveHTTP exposes /metrics, /status and /healthz on addr. The returned
// function shuts the server down.
func (d *refreshDaemon) serveHTTP(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           d.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Daemon", err, "HTTP server stopped")
		}
	}()
	logging.Info("Daemon", "Serving metrics on http://%s/metrics", ln.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}

func (d *refreshDaemon) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.services.Session.Status())
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
