// Package main is the entry point for hoststat, a single-machine sampler that
// prints CPU utilization, memory saturation and new disk I/O errors once per
// interval as a fixed-width table on stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/hoststat/internal/collector"
	"github.com/Guliveer/hoststat/internal/config"
	"github.com/Guliveer/hoststat/internal/models"
	"github.com/Guliveer/hoststat/internal/platform"
	"github.com/Guliveer/hoststat/internal/privilege"
	"github.com/Guliveer/hoststat/internal/render"
	"github.com/Guliveer/hoststat/internal/scheduler"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: search standard locations)")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("hoststat %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if cfg.Privileges.Drop {
		creds := privilege.Credentials{UID: cfg.Privileges.UID, GID: cfg.Privileges.GID}
		dropped, err := privilege.Drop(creds)
		if err != nil {
			logger.Fatal("Failed to drop privileges", zap.Error(err))
		}
		if dropped {
			logger.Info("Dropped root privileges",
				zap.Int("uid", creds.UID),
				zap.Int("gid", creds.GID))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	if info, err := collector.DescribeHost(ctx); err == nil {
		logger.Info("Starting hoststat", append(info.Fields(), zap.String("version", version))...)
	} else {
		logger.Warn("Could not describe host", zap.Error(err))
	}

	run(ctx, cfg, logger)
}

// run wires the estimators to the scheduler and prints rows until ctx is
// cancelled.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	root := os.DirFS(cfg.Collection.Root)
	cpuReader, memReader := readers(cfg.Collection.Source, root)

	sampler := collector.NewSampler(ctx,
		collector.NewCPUEstimator(cpuReader),
		collector.NewMemoryEstimator(memReader),
		collector.NewDiskErrorTracker(
			collector.NewBlockReader(root, cfg.Disk.ErrorSource, cfg.Disk.ErrorFields),
			cfg.Disk.PiDevice,
			logger),
		platform.New(root),
		logger,
	)

	table := render.New(os.Stdout, cfg.Output.Color)
	if err := table.Header(); err != nil {
		logger.Error("Failed to write table header", zap.Error(err))
	}

	sched := scheduler.New(sampler, cfg.Collection.Interval.Duration, logger)
	sched.OnSample(func(snap models.Snapshot) {
		if err := table.Row(snap); err != nil {
			logger.Error("Failed to write table row", zap.Error(err))
		}
	})

	logger.Info("Sampler running",
		zap.Duration("interval", cfg.Collection.Interval.Duration),
		zap.String("source", cfg.Collection.Source),
		zap.Stringer("topology", sampler.Topology()))
	sched.Start(ctx)
	logger.Info("Sampler stopped")
}

// readers selects the CPU and memory readers for the configured source.
func readers(source string, root fs.FS) (collector.CPUReader, collector.MemoryReader) {
	if source == config.SourceGopsutil {
		return collector.NewGopsutilCPUReader(), collector.NewGopsutilMemoryReader()
	}
	return collector.NewProcStatReader(root), collector.NewProcMeminfoReader(root)
}

// initLogger creates a zap logger based on the configuration. Console output
// goes to stderr so that stdout carries only the table; an optional JSON log
// file is added when configured.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.WarnLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
