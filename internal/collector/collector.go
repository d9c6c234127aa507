// Package collector drives the periodic poll of every registered device,
// folds the results into the metrics store and publishes the rendered
// snapshot for scrapers.
package collector

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/apollo"
	"codeberg.org/mutker/apollo-exporter/internal/aqi"
	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"codeberg.org/mutker/apollo-exporter/internal/telemetry"
)

// Store receives device results and renders the exposition text.
type Store interface {
	UpdateDevice(snap *apollo.Snapshot, result *aqi.Result) error
	MarkDeviceDown(dev apollo.Device) error
	Render() (string, error)
}

// Mirror receives every published snapshot.
type Mirror interface {
	Record(ctx context.Context, snapshot *telemetry.Snapshot) error
}

type Config struct {
	Interval time.Duration
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New().WithData(ErrInvalidInterval, c.Interval)
	}
	return nil
}

type Collector struct {
	devices  *Registry
	store    Store
	mirror   Mirror
	interval time.Duration
	current  atomic.Pointer[string]
	log      logger.Logger
}

// New creates a collector over devices. mirror may be nil.
func New(cfg Config, devices *Registry, store Store, mirror Mirror) (*Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if store == nil {
		return nil, errFactory.New(ErrMissingStore)
	}
	if devices == nil {
		devices = NewRegistry()
	}

	return &Collector{
		devices:  devices,
		store:    store,
		mirror:   mirror,
		interval: cfg.Interval,
		log:      logger.Component("collector"),
	}, nil
}

// Devices returns the registry the collector polls.
func (c *Collector) Devices() *Registry {
	return c.devices
}

// Current returns the last published snapshot, or "" before the first
// successful render.
func (c *Collector) Current() string {
	if body := c.current.Load(); body != nil {
		return *body
	}
	return ""
}

// Run ticks every interval until ctx is cancelled. The first tick fires
// one full interval after Run starts. The timer is re-armed only after a
// tick completes, so ticks never overlap, and a tick in progress is not
// interrupted by cancellation.
func (c *Collector) Run(ctx context.Context) error {
	c.log.Info().
		Dur("interval", c.interval).
		Int("devices", c.devices.Len()).
		Msg("Starting metrics collection")

	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Msg("Metrics collection stopped")
			return nil
		case <-timer.C:
			c.Tick(context.WithoutCancel(ctx))
			timer.Reset(c.interval)
		}
	}
}

// Tick polls every registered device in order, then renders the store once
// and publishes the result. A failed render keeps the previous snapshot.
func (c *Collector) Tick(ctx context.Context) {
	for _, e := range c.devices.snapshot() {
		c.collect(ctx, e)
	}

	body, err := c.store.Render()
	if err != nil {
		c.log.ErrorWithCode(err).Msg("Failed to render metrics, serving previous snapshot")
		return
	}

	c.current.Store(&body)

	if c.mirror == nil {
		return
	}
	if err := c.mirror.Record(ctx, &telemetry.Snapshot{Body: body, UpdatedAt: time.Now()}); err != nil {
		c.log.Warn().Err(err).Msg("Failed to mirror snapshot")
	}
}

func (c *Collector) collect(ctx context.Context, e entry) {
	snap, err := e.prober.Probe(ctx, e.device)
	if err != nil {
		c.log.Warn().
			Str("device", e.device.Name).
			Str("host", e.device.Host).
			Err(err).
			Msg("Failed to fetch status")

		if err := c.store.MarkDeviceDown(e.device); err != nil {
			c.log.ErrorWithCode(err).Str("device", e.device.Name).Msg("Failed to mark device down")
		}
		return
	}

	var result *aqi.Result
	if r, ok := aqi.Calculate(snap.Particulates()); ok {
		result = &r
		c.log.Debug().
			Str("device", e.device.Name).
			Float64("aqi", r.AQI).
			Str("category", r.Category.String()).
			Str("primary_pollutant", string(r.PrimaryPollutant)).
			Msg("Calculated AQI")
	}

	if err := c.store.UpdateDevice(snap, result); err != nil {
		c.log.ErrorWithCode(err).Str("device", e.device.Name).Msg("Failed to update metrics")
	}
}
