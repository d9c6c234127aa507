package telemetry

import "codeberg.org/mutker/apollo-exporter/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidKey    = errors.ErrorCode("telemetry_invalid_key")
	ErrInvalidTTL    = errors.ErrorCode("telemetry_invalid_ttl")
	ErrInvalidDB     = errors.ErrorCode("telemetry_invalid_db")

	// Collection Errors
	ErrInvalidSnapshot = errors.ErrorCode("telemetry_invalid_snapshot")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit   = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose  = errors.ErrorCode("telemetry_storage_close_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
	ErrServiceShutdown  = errors.ErrorCode("telemetry_service_shutdown_failed")
)
