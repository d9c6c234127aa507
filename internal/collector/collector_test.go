package collector_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/apollo"
	"codeberg.org/mutker/apollo-exporter/internal/aqi"
	"codeberg.org/mutker/apollo-exporter/internal/collector"
	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/metrics"
	"codeberg.org/mutker/apollo-exporter/internal/server"
	"codeberg.org/mutker/apollo-exporter/internal/telemetry"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProber returns readings from a mutable map, or fails when fail is set.
type fakeProber struct {
	mu     sync.Mutex
	values map[string]float64
	fail   bool
	calls  int
}

func (p *fakeProber) Probe(_ context.Context, dev apollo.Device) (*apollo.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.fail {
		return nil, errors.New().WithData(apollo.ErrNoSensors, dev.Host)
	}

	snap := &apollo.Snapshot{Device: dev, Readings: make(map[string]apollo.Reading)}
	for id, v := range p.values {
		snap.Readings[id] = apollo.Reading{ChannelID: id, Value: v}
	}
	return snap, nil
}

func (p *fakeProber) set(id string, v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[id] = v
}

func (p *fakeProber) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recordingMirror struct {
	mu        sync.Mutex
	snapshots []*telemetry.Snapshot
}

func (m *recordingMirror) Record(_ context.Context, s *telemetry.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return nil
}

// failingStore renders successfully until broken is set.
type failingStore struct {
	*metrics.Store
	broken bool
}

func (s *failingStore) Render() (string, error) {
	if s.broken {
		return "", errors.New().New(metrics.ErrRenderFailed)
	}
	return s.Store.Render()
}

// gaugeValue parses body and returns the value of the series with the
// given name and device label.
func gaugeValue(t *testing.T, body, name, device string) (float64, bool) {
	t.Helper()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(body))
	require.NoError(t, err)

	mf, ok := families[name]
	if !ok {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == metrics.LabelDevice && lp.GetValue() == device {
				return m.GetGauge().GetValue(), true
			}
		}
	}
	return 0, false
}

func newStore(t *testing.T) *metrics.Store {
	t.Helper()

	s, err := metrics.NewStore(metrics.DefaultConfig())
	require.NoError(t, err)
	return s
}

func newCollector(t *testing.T, interval time.Duration, store collector.Store, mirror collector.Mirror) *collector.Collector {
	t.Helper()

	c, err := collector.New(collector.Config{Interval: interval}, collector.NewRegistry(), store, mirror)
	require.NoError(t, err)
	return c
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := collector.New(collector.Config{}, nil, newStore(t), nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, collector.ErrInvalidConfig))

	_, err = collector.New(collector.Config{Interval: time.Second}, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, collector.ErrMissingStore))
}

func TestCurrentBeforeFirstTick(t *testing.T) {
	c := newCollector(t, time.Second, newStore(t), nil)
	assert.Equal(t, "", c.Current())
}

func TestTickIsolatesFailingDevice(t *testing.T) {
	c := newCollector(t, time.Second, newStore(t), nil)

	broken := &fakeProber{values: map[string]float64{}, fail: true}
	healthy := &fakeProber{values: map[string]float64{apollo.ChannelCO2: 500}}

	// The failing device is registered first so it is polled first.
	c.Devices().Register(apollo.Device{Host: "http://10.0.0.1", Name: "attic"}, broken)
	c.Devices().Register(apollo.Device{Host: "http://10.0.0.2", Name: "office"}, healthy)

	for i, co2 := range []float64{500, 650, 800} {
		healthy.set(apollo.ChannelCO2, co2)
		c.Tick(context.Background())

		body := c.Current()
		v, ok := gaugeValue(t, body, "apollo_air1_co2_ppm", "office")
		require.True(t, ok, "tick %d", i)
		assert.InDelta(t, co2, v, 1e-9)

		up, ok := gaugeValue(t, body, "apollo_air1_device_up", "attic")
		require.True(t, ok)
		assert.InDelta(t, 0.0, up, 1e-9)

		up, ok = gaugeValue(t, body, "apollo_air1_device_up", "office")
		require.True(t, ok)
		assert.InDelta(t, 1.0, up, 1e-9)
	}

	assert.Equal(t, 3, broken.callCount())
	assert.Equal(t, 3, healthy.callCount())
}

func TestTickKeepsStaleValuesWhenDeviceFails(t *testing.T) {
	c := newCollector(t, time.Second, newStore(t), nil)

	p := &fakeProber{values: map[string]float64{apollo.ChannelCO2: 500, apollo.ChannelPM25: 5}}
	c.Devices().Register(apollo.Device{Host: "h", Name: "office"}, p)

	c.Tick(context.Background())
	p.setFail(true)
	c.Tick(context.Background())

	body := c.Current()
	up, _ := gaugeValue(t, body, "apollo_air1_device_up", "office")
	assert.InDelta(t, 0.0, up, 1e-9)

	co2, ok := gaugeValue(t, body, "apollo_air1_co2_ppm", "office")
	require.True(t, ok)
	assert.InDelta(t, 500.0, co2, 1e-9)

	assert.Contains(t, body, `category="Good"`)
}

func TestTickPublishesAQI(t *testing.T) {
	c := newCollector(t, time.Second, newStore(t), nil)

	p := &fakeProber{values: map[string]float64{apollo.ChannelPM25: 20, apollo.ChannelPM10: 30}}
	c.Devices().Register(apollo.Device{Host: "h", Name: "office"}, p)
	c.Tick(context.Background())

	body := c.Current()
	v, _ := gaugeValue(t, body, "apollo_air1_aqi", "office")
	assert.InDelta(t, 71.0, v, 1e-9)
	v, _ = gaugeValue(t, body, "apollo_air1_aqi_pm10", "office")
	assert.InDelta(t, 28.0, v, 1e-9)
	assert.Contains(t, body, `category="`+aqi.Moderate.String()+`"`)
	assert.Contains(t, body, `primary_pollutant="PM2.5"`)

	p.set(apollo.ChannelPM25, 5)
	p.set(apollo.ChannelPM10, 5)
	c.Tick(context.Background())

	body = c.Current()
	assert.Contains(t, body, `category="Good"`)
	assert.NotContains(t, body, `category="Moderate"`)
}

func TestTickRenderFailureKeepsPreviousSnapshot(t *testing.T) {
	store := &failingStore{Store: newStore(t)}
	c := newCollector(t, time.Second, store, nil)

	p := &fakeProber{values: map[string]float64{apollo.ChannelCO2: 500}}
	c.Devices().Register(apollo.Device{Host: "h", Name: "office"}, p)

	c.Tick(context.Background())
	previous := c.Current()
	require.NotEmpty(t, previous)

	store.broken = true
	p.set(apollo.ChannelCO2, 900)
	c.Tick(context.Background())

	assert.Equal(t, previous, c.Current())
}

func TestTickMirrorsSnapshot(t *testing.T) {
	mirror := &recordingMirror{}
	c := newCollector(t, time.Second, newStore(t), mirror)

	c.Devices().Register(apollo.Device{Host: "h", Name: "office"}, &fakeProber{values: map[string]float64{apollo.ChannelCO2: 1}})
	c.Tick(context.Background())

	require.Len(t, mirror.snapshots, 1)
	assert.Equal(t, c.Current(), mirror.snapshots[0].Body)
	assert.False(t, mirror.snapshots[0].UpdatedAt.IsZero())
}

func TestPublishesWhileRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := telemetry.DefaultConfig()
	cfg.Addr = addr
	mirror, err := telemetry.NewService(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })

	c := newCollector(t, time.Second, newStore(t), mirror)
	c.Devices().Register(apollo.Device{Host: "h", Name: "office"}, &fakeProber{values: map[string]float64{apollo.ChannelCO2: 640}})
	c.Tick(context.Background())

	rec := httptest.NewRecorder()
	server.NewServer("127.0.0.1:0", c).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	v, ok := gaugeValue(t, rec.Body.String(), "apollo_air1_co2_ppm", "office")
	require.True(t, ok)
	assert.InDelta(t, 640.0, v, 1e-9)

	require.NoError(t, mr.Restart())
	c.Tick(context.Background())

	mirrored, err := mr.Get("apollo:metrics")
	require.NoError(t, err)
	assert.Equal(t, c.Current(), mirrored)
}

func TestRunWaitsOnePeriodAndStopsOnCancel(t *testing.T) {
	interval := 50 * time.Millisecond
	c := newCollector(t, interval, newStore(t), nil)

	p := &fakeProber{values: map[string]float64{apollo.ChannelCO2: 500}}
	c.Devices().Register(apollo.Device{Host: "h", Name: "office"}, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(interval / 5)
	assert.Equal(t, 0, p.callCount(), "no tick before the first period")

	assert.Eventually(t, func() bool { return p.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, c.Current())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRegistryReplacesByHost(t *testing.T) {
	r := collector.NewRegistry()
	r.Register(apollo.Device{Host: "a", Name: "one"}, &fakeProber{})
	r.Register(apollo.Device{Host: "b", Name: "two"}, &fakeProber{})
	r.Register(apollo.Device{Host: "a", Name: "renamed"}, &fakeProber{})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []apollo.Device{
		{Host: "a", Name: "renamed"},
		{Host: "b", Name: "two"},
	}, r.Devices())
}
