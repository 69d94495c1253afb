package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/ecs_exec_agent/internal/browser"
	"github.com/dgnsrekt/ecs_exec_agent/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.LoadBrowser()
	if err != nil {
		slog.Error("failed to load browser config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("browser config loaded",
		"cdp_address", cfg.CDPAddress,
		"cdp_port", cfg.CDPPort,
		"start_url", cfg.StartURL,
		"profile_dir", cfg.ProfileDir,
	)

	launcher := browser.NewLauncher(browser.Config{
		CDPAddress:          cfg.CDPAddress,
		CDPPort:             cfg.CDPPort,
		StartURL:            cfg.StartURL,
		ProfileDir:          cfg.ProfileDir,
		LogFileDir:          cfg.LogFileDir,
		CrashDumpDir:        cfg.CrashDumpDir,
		EnableCrashReporter: cfg.EnableCrashReporter,
		WindowSize:          cfg.WindowSize,
	})

	if err := launcher.Launch(context.Background()); err != nil {
		slog.Error("browser launch failed", "error", err)
		os.Exit(1)
	}

	if !launcher.Running() {
		// An existing browser answered on the CDP port; nothing to babysit.
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	launcher.Stop()
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
