package telemetry_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/telemetry"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMirror(t *testing.T) (*miniredis.Miniredis, telemetry.Collector) {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := telemetry.DefaultConfig()
	cfg.Addr = mr.Addr()

	svc, err := telemetry.NewService(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return mr, svc
}

func TestRecordWritesBodyAndTimestamp(t *testing.T) {
	mr, svc := setupMirror(t)

	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	body := "apollo_air1_device_up{device=\"office\",host=\"h\"} 1\n"

	require.NoError(t, svc.Record(context.Background(), &telemetry.Snapshot{Body: body, UpdatedAt: at}))

	got, err := mr.Get("apollo:metrics")
	require.NoError(t, err)
	assert.Equal(t, body, got)

	ts, err := mr.Get("apollo:metrics:updated_at")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:30:00Z", ts)

	assert.Equal(t, 120*time.Second, mr.TTL("apollo:metrics"))
	assert.Equal(t, 120*time.Second, mr.TTL("apollo:metrics:updated_at"))
}

func TestRecordOverwritesPrevious(t *testing.T) {
	mr, svc := setupMirror(t)

	require.NoError(t, svc.Record(context.Background(), &telemetry.Snapshot{Body: "first", UpdatedAt: time.Now()}))
	require.NoError(t, svc.Record(context.Background(), &telemetry.Snapshot{Body: "second", UpdatedAt: time.Now()}))

	got, err := mr.Get("apollo:metrics")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestRecordExpires(t *testing.T) {
	mr, svc := setupMirror(t)

	require.NoError(t, svc.Record(context.Background(), &telemetry.Snapshot{Body: "body", UpdatedAt: time.Now()}))
	mr.FastForward(121 * time.Second)

	assert.False(t, mr.Exists("apollo:metrics"))
	assert.False(t, mr.Exists("apollo:metrics:updated_at"))
}

func TestRecordNilSnapshot(t *testing.T) {
	_, svc := setupMirror(t)

	err := svc.Record(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidSnapshot))
}

func TestRecordCancelledContext(t *testing.T) {
	_, svc := setupMirror(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Record(ctx, &telemetry.Snapshot{Body: "body"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrOperationTimeout))
	assert.True(t, errors.HasCode(err, errors.ErrTimeout))
}

func TestRecordAfterServerGone(t *testing.T) {
	mr, svc := setupMirror(t)
	mr.Close()

	err := svc.Record(context.Background(), &telemetry.Snapshot{Body: "body", UpdatedAt: time.Now()})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrStorageAccess))
}

func TestDisabledIsNoop(t *testing.T) {
	svc, err := telemetry.NewService(context.Background(), telemetry.DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, svc.Record(context.Background(), &telemetry.Snapshot{Body: "x"}))
	assert.NoError(t, svc.Close())
}

func TestNewServiceStartsWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := telemetry.DefaultConfig()
	cfg.Addr = addr

	svc, err := telemetry.NewService(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	err = svc.Record(context.Background(), &telemetry.Snapshot{Body: "early", UpdatedAt: time.Now()})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrStorageAccess))

	require.NoError(t, mr.Restart())

	require.NoError(t, svc.Record(context.Background(), &telemetry.Snapshot{Body: "late", UpdatedAt: time.Now()}))
	got, err := mr.Get("apollo:metrics")
	require.NoError(t, err)
	assert.Equal(t, "late", got)
}

func TestConfigValidate(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	require.NoError(t, cfg.Validate(), "disabled config is always valid")

	cfg.Addr = "localhost:6379"
	cfg.Key = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidKey))

	cfg.Key = "k"
	cfg.TTL = -time.Second
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidTTL))
}
