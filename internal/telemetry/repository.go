package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"github.com/go-redis/redis/v8"
)

type Repository interface {
	Store(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

type redisRepository struct {
	client       *redis.Client
	key          string
	updatedAtKey string
	ttl          time.Duration
}

// NewRepository creates the Redis client and checks the server with PING.
// An unreachable server is only logged: go-redis dials again on every
// command, so the mirror starts working once Redis comes up.
func NewRepository(ctx context.Context, cfg Config) Repository {
	logger.Debug().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Str("key", cfg.Key).
		Msg("Initializing telemetry repository")

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
		MaxRetries:  maxRetries,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().
			Str("addr", cfg.Addr).
			Str("error_code", string(ErrStorageInit)).
			Err(err).
			Msg("Redis not reachable, snapshots will be mirrored once it is")
	}

	return &redisRepository{
		client:       client,
		key:          cfg.Key,
		updatedAtKey: cfg.Key + updatedAtSuffix,
		ttl:          cfg.TTL,
	}
}

// Store writes the body and its timestamp in one MULTI/EXEC so readers
// never see a body paired with another snapshot's timestamp.
func (r *redisRepository) Store(ctx context.Context, snapshot *Snapshot) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key, snapshot.Body, r.ttl)
		pipe.Set(ctx, r.updatedAtKey, snapshot.UpdatedAt.UTC().Format(time.RFC3339), r.ttl)
		return nil
	})
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (r *redisRepository) Close() error {
	if err := r.client.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
