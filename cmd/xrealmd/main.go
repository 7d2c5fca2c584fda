// Cross-realm authorization daemon.
// Serves the per-request decision hook and the admin API over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crossrealm/xrealmd/internal/api"
	"github.com/crossrealm/xrealmd/internal/config"
	"github.com/crossrealm/xrealmd/internal/version"
	"github.com/crossrealm/xrealmd/pkg/audit"
	"github.com/crossrealm/xrealmd/pkg/store"
	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

var (
	configPath = flag.String("config", "", "Config file path (default: /etc/xrealmd/xrealmd.yaml)")
	listenAddr = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath     = flag.String("db", "", "Database path (overrides config; default: XDG data dir)")
)

func main() {
	flag.CommandLine.SetOutput(os.Stdout)
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "xrealmd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		path = "/etc/xrealmd/xrealmd.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("xrealmd starting", "version", version.String())

	storePath := cfg.DBPath
	if storePath == "" {
		storePath = store.DefaultPath()
	}
	db, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sinks := []xrealm.DecisionLogger{
		xrealm.NewSlogDecisionLogger(logger),
		xrealm.NewStoreDecisionLogger(db),
	}
	if cfg.Syslog.Enabled {
		writer, err := audit.NewSyslogWriter(audit.SyslogConfig{
			SocketPath: cfg.Syslog.Socket,
		})
		if err != nil {
			// Syslog is an additional sink, not the system of record.
			logger.Warn("syslog sink unavailable, continuing without it", "error", err)
		} else {
			defer writer.Close()
			sinks = append(sinks, writer)
		}
	}

	engine, err := xrealm.NewEngine(xrealm.Config{
		Enforcing:     cfg.Enforcing,
		AllowedRealms: cfg.AllowedRealms,
		Source:        db,
		Logger:        logger,
		Audit:         xrealm.NewMultiDecisionLogger(sinks...),
	})
	if err != nil {
		return err
	}

	mode := "enabled"
	if !engine.Enforcing() {
		mode = "disabled"
	}
	logger.Info(fmt.Sprintf("cross-realm authorization policy loaded (enforcing mode: %s, pre-approved realms: %d)",
		mode, engine.PreApprovedCount()))

	server := api.NewServer(db, engine, logger)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
