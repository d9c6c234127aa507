package telemetry

import (
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
)

const (
	defaultKey = "apollo:metrics"
	defaultTTL = 120 * time.Second

	updatedAtSuffix = ":updated_at"

	// Writes against an unreachable server give up after one retry.
	dialTimeout = 2 * time.Second
	maxRetries  = 1
)

// Config controls the Redis snapshot mirror. An empty Addr disables it.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Key: defaultKey,
		TTL: defaultTTL,
	}
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled() {
		return nil
	}
	if c.Key == "" {
		return errFactory.New(ErrInvalidKey)
	}
	if c.TTL < 0 {
		return errFactory.WithData(ErrInvalidTTL, c.TTL)
	}
	if c.DB < 0 {
		return errFactory.WithData(ErrInvalidDB, c.DB)
	}
	return nil
}
