package telemetry

import (
	"context"
	"time"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Snapshot is one published exposition body.
type Snapshot struct {
	Body      string
	UpdatedAt time.Time
}
