// Package apollo polls Apollo Air-1 air quality sensors through the
// ESPHome web server REST API (GET /sensor/{id}).
package apollo

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"github.com/go-resty/resty/v2"
)

// sensorResponse is the ESPHome sensor state document.
type sensorResponse struct {
	ID    string   `json:"id"`
	Value *float64 `json:"value"`
	State string   `json:"state"`
}

// Client fetches sensor channels from a single device.
type Client struct {
	http    *resty.Client
	baseURL string
	log     logger.Logger
}

// NewClient creates a client for the device at baseURL. A missing scheme
// defaults to http; only http and https are accepted. Every request is
// bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	errFactory := errors.New()

	raw := strings.TrimSpace(baseURL)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errFactory.WithData(ErrInvalidBaseURL, baseURL)
	}
	// "host:" with an empty port has no usable address either.
	if u.Hostname() == "" || strings.HasSuffix(u.Host, ":") {
		return nil, errFactory.WithData(ErrInvalidBaseURL, baseURL)
	}

	base := strings.TrimRight(raw, "/")

	log := logger.Component("apollo")

	http := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: log})

	return &Client{
		http:    http,
		baseURL: base,
		log:     log,
	}, nil
}

// BaseURL returns the normalized device URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchChannel reads one sensor channel. Transport failures, non-2xx
// statuses and undecodable bodies are all reported as errors.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (Reading, error) {
	errFactory := errors.New()

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", channelID).
		Get("/sensor/{id}")
	if err != nil {
		return Reading{}, errFactory.Wrap(ErrChannelUnavailable, err)
	}

	if !resp.IsSuccess() {
		return Reading{}, errFactory.WithData(ErrChannelStatus, struct {
			Channel string
			Status  int
		}{
			Channel: channelID,
			Status:  resp.StatusCode(),
		})
	}

	var body sensorResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Reading{}, errFactory.Wrap(ErrChannelDecode, err)
	}
	if body.Value == nil {
		return Reading{}, errFactory.WithData(ErrChannelDecode, struct {
			Channel string
			Reason  string
		}{
			Channel: channelID,
			Reason:  "missing value",
		})
	}

	return Reading{
		ChannelID: channelID,
		Name:      channelName(channelID),
		Value:     *body.Value,
		RawState:  body.State,
		Unit:      ExtractUnit(body.State, *body.Value),
	}, nil
}

// Probe fetches every catalog channel from the device. Channels that fail
// are logged and left out; Probe fails only when none succeed.
func (c *Client) Probe(ctx context.Context, dev Device) (*Snapshot, error) {
	c.log.Debug().Str("host", dev.Host).Msg("Fetching status")

	readings := make(map[string]Reading, len(Channels))
	for _, ch := range Channels {
		r, err := c.FetchChannel(ctx, ch.ID)
		if err != nil {
			c.log.Debug().
				Str("host", dev.Host).
				Str("channel", ch.ID).
				Err(err).
				Msg("Sensor not available")
			continue
		}

		readings[ch.ID] = r
		c.log.Debug().
			Str("host", dev.Host).
			Str("channel", ch.ID).
			Float64("value", r.Value).
			Str("unit", r.Unit).
			Msg("Read sensor")
	}

	if len(readings) == 0 {
		return nil, errors.New().WithData(ErrNoSensors, dev.Host)
	}

	c.log.Debug().
		Str("device", dev.Name).
		Int("sensors", len(readings)).
		Msg("Retrieved sensors")

	return &Snapshot{Device: dev, Readings: readings}, nil
}

// TestConnection reports whether the device answers on any of a few
// always-present channels.
func (c *Client) TestConnection(ctx context.Context) bool {
	var lastErr error
	for _, id := range connectivityChannels {
		if _, err := c.FetchChannel(ctx, id); err != nil {
			lastErr = err
			continue
		}
		return true
	}

	c.log.Warn().Str("host", c.baseURL).Err(lastErr).Msg("Connection test failed")

	return false
}

// restyLogger routes resty's internal messages into the component logger.
type restyLogger struct {
	log logger.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Msgf(format, v...)
}
