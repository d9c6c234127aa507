package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/apollo"
	"codeberg.org/mutker/apollo-exporter/internal/collector"
	"codeberg.org/mutker/apollo-exporter/internal/config"
	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"codeberg.org/mutker/apollo-exporter/internal/metrics"
	"codeberg.org/mutker/apollo-exporter/internal/pid"
	"codeberg.org/mutker/apollo-exporter/internal/server"
	"codeberg.org/mutker/apollo-exporter/internal/telemetry"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if cfg.PIDFile != "" {
		if err := pid.Write(cfg.PIDFile); err != nil {
			logger.FatalWithCode(err).Str("pid_file", cfg.PIDFile).Msg("Failed to write PID file")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.ErrorWithCode(err).Msg("Exporter stopped with error")
		cleanup()
		os.Exit(1)
	}
	cleanup()
}

func run(ctx context.Context) error {
	errFactory := errors.New()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info().
		Int("devices", len(cfg.Hosts)).
		Int("port", cfg.Port).
		Int("poll_interval", cfg.PollInterval).
		Msg("Starting Apollo Air-1 Prometheus Exporter")

	store, err := metrics.NewStore(metrics.Config{Namespace: cfg.Namespace})
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	mirror := newMirror(ctx)
	defer func() {
		if err := mirror.Close(); err != nil {
			logger.ErrorWithCode(err).Msg("Failed to close snapshot mirror")
		}
	}()

	devices, err := registerDevices(ctx)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	coll, err := collector.New(collector.Config{Interval: cfg.PollIntervalDuration()}, devices, store, mirror)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	srv := server.NewServer(cfg.MetricsBindAddress(), coll)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	loopDone := make(chan error, 1)
	go func() { loopDone <- coll.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
		cancel()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.ErrorWithCode(err).Msg("Failed to stop metrics server")
	}

	if err := <-loopDone; err != nil {
		return errFactory.Wrap(errors.ErrMainLoop, err)
	}

	return runErr
}

// newMirror returns the Redis snapshot mirror. The mirror is optional, so
// a rejected config only disables it.
func newMirror(ctx context.Context) telemetry.Collector {
	mirror, err := telemetry.NewService(ctx, telemetry.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Key:      cfg.RedisKey,
		TTL:      cfg.RedisTTLDuration(),
	})
	if err != nil {
		logger.Warn().
			Str("error_code", string(errors.ErrInitMirror)).
			Err(err).
			Msg("Snapshot mirror disabled")
		return telemetry.NewNoop()
	}

	return mirror
}

// registerDevices creates a client per configured device and registers
// the ones that answer a connectivity test.
func registerDevices(ctx context.Context) (*collector.Registry, error) {
	registry := collector.NewRegistry()

	for _, d := range cfg.Devices() {
		dev := apollo.Device{Host: d.Host, Name: d.Name}

		client, err := apollo.NewClient(d.Host, cfg.HTTPTimeoutDuration())
		if err != nil {
			return nil, err
		}

		if !client.TestConnection(ctx) {
			logger.Warn().Str("device", dev.Name).Str("host", dev.Host).Msg("Device is not responding")
			continue
		}

		registry.Register(dev, client)
		logger.Info().Str("device", dev.Name).Str("host", dev.Host).Msg("Added device")
	}

	if registry.Len() == 0 {
		logger.ErrorWithCode(errors.New().New(errors.ErrNoDevices)).
			Msg("No devices responded, serving empty metrics")
	}

	return registry, nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func cleanup() {
	if cfg.PIDFile != "" {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			logger.ErrorWithCode(err).Msg("Failed to remove PID file")
		}
	}
	logger.Info().Msg("Exiting...")
}
