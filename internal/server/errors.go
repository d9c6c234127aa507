package server

import "codeberg.org/mutker/apollo-exporter/internal/errors"

const (
	ErrServeHTTP      = errors.ErrServeHTTP
	ErrShutdownFailed = errors.ErrShutdownFailed
)
