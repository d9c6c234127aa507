package collector

import "codeberg.org/mutker/apollo-exporter/internal/errors"

const (
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidInterval = errors.ErrInvalidInterval
	ErrMissingStore    = errors.ErrorCode("collector_missing_store")
)
