package apollo

import "codeberg.org/mutker/apollo-exporter/internal/errors"

const (
	// Channel Errors
	ErrChannelUnavailable = errors.ErrorCode("apollo_channel_unavailable")
	ErrChannelStatus      = errors.ErrorCode("apollo_channel_bad_status")
	ErrChannelDecode      = errors.ErrorCode("apollo_channel_decode_failed")

	// Device Errors
	ErrNoSensors      = errors.ErrorCode("apollo_no_sensors")
	ErrInvalidBaseURL = errors.ErrorCode("apollo_invalid_base_url")
)
