package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/ecs_exec_agent/internal/agent"
	"github.com/dgnsrekt/ecs_exec_agent/internal/api"
	"github.com/dgnsrekt/ecs_exec_agent/internal/augment"
	"github.com/dgnsrekt/ecs_exec_agent/internal/cdpbridge"
	"github.com/dgnsrekt/ecs_exec_agent/internal/config"
	"github.com/dgnsrekt/ecs_exec_agent/internal/netutil"
	"github.com/dgnsrekt/ecs_exec_agent/internal/recorder"
	"github.com/dgnsrekt/ecs_exec_agent/internal/storage"
	"github.com/dgnsrekt/ecs_exec_agent/internal/watcher"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.LoadAgent()
	if err != nil {
		slog.Error("failed to load agent config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("agent config loaded",
		"bind_addr", cfg.BindAddr,
		"tab_url_filter", cfg.TabURLFilter,
		"destination_host", cfg.DestinationHost,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"nav_poll_interval_ms", cfg.NavPollIntervalMS,
		"table_poll_interval_ms", cfg.TablePollIntervalMS,
		"table_max_attempts", cfg.TableMaxAttempts,
		"watch_on_start", cfg.WatchOnStart,
		"recorder_enabled", cfg.RecorderEnabled,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	bridge := cdpbridge.NewClient(cfg.AgentCDPURL(), cfg.TabURLFilter, time.Duration(cfg.EvalTimeoutMS)*time.Millisecond)
	if err := bridge.Connect(context.Background()); err != nil {
		slog.Error("failed to connect CDP bridge", "cdp_url", cfg.AgentCDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() { _ = bridge.Close() }()

	var sink augment.Sink
	if cfg.RecorderEnabled {
		registry := storage.NewWriterRegistry(cfg.DataDir, cfg.BufferSize, cfg.MaxFileSizeMB)
		defer func() { _ = registry.Close() }()

		rec := recorder.New(cfg.AgentCDPURL(), cfg.TabURLFilter, registry)
		if err := rec.Connect(context.Background()); err != nil {
			slog.Warn("recorder connect failed, continuing without it", "error", err)
		} else {
			defer func() { _ = rec.Close() }()
			sink = rec
		}
	}

	augmenter := augment.New(bridge, cfg.DestinationHost, sink, slog.Default())
	watch := watcher.New(bridge, augmenter.Attempt, watcher.Config{
		NavPollInterval:   time.Duration(cfg.NavPollIntervalMS) * time.Millisecond,
		TablePollInterval: time.Duration(cfg.TablePollIntervalMS) * time.Millisecond,
		TableMaxAttempts:  cfg.TableMaxAttempts,
	}, slog.Default())
	if cfg.WatchOnStart {
		watch.Start()
	}
	defer watch.Stop()

	svc := agent.NewService(bridge, augmenter, watch, cfg.DestinationHost)
	h := api.NewServer(svc)

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("agent listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("agent server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("agent shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
