// Package telemetry mirrors each published metrics snapshot into Redis so
// other services can read the latest values without scraping.
package telemetry

import (
	"context"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopCollector struct{}

// NewService returns the Redis mirror, or a no-op collector when cfg has
// no address. It fails only on an invalid config; connection problems are
// reported by Record.
func NewService(ctx context.Context, cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled() {
		logger.Debug().Msg("Snapshot mirror disabled, using no-op collector")
		return NewNoop(), nil
	}

	repo := NewRepository(ctx, cfg)

	logger.Info().
		Str("addr", cfg.Addr).
		Str("key", cfg.Key).
		Dur("ttl", cfg.TTL).
		Msg("Snapshot mirror enabled")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidSnapshot)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.Store(ctx, snapshot)
	}
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// NewNoop returns a collector that discards every snapshot.
func NewNoop() Collector {
	return &noopCollector{}
}

func (*noopCollector) Record(_ context.Context, _ *Snapshot) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}
