package metrics

import "codeberg.org/mutker/apollo-exporter/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig    = errors.ErrInvalidConfig
	ErrInvalidNamespace = errors.ErrorCode("metrics_invalid_namespace")

	// Series Errors
	ErrRegisterFailed = errors.ErrorCode("metrics_register_failed")
	ErrInvalidLabels  = errors.ErrorCode("metrics_invalid_labels")

	// Exposition Errors
	ErrRenderFailed = errors.ErrorCode("metrics_render_failed")
)
