// Package metrics holds the current value of every exported series and
// renders them in the Prometheus text exposition format.
package metrics

import (
	"bytes"
	"io"
	"math"
	"sync"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// infoKey identifies the device an info series belongs to.
type infoKey struct {
	device string
	host   string
}

// Store is a label-indexed set of gauges backed by a private registry.
// Vectors are created on first use. For info metrics the store keeps at
// most one series per (device, host): setting a new label combination
// retracts the previous one in the same critical section.
type Store struct {
	mu        sync.RWMutex
	namespace string
	registry  *prometheus.Registry
	vecs      map[string]*prometheus.GaugeVec
	info      map[string]map[infoKey]Labels
	log       logger.Logger
}

func NewStore(cfg Config) (*Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	s := &Store{
		namespace: cfg.Namespace,
		registry:  prometheus.NewRegistry(),
		vecs:      make(map[string]*prometheus.GaugeVec),
		info:      make(map[string]map[infoKey]Labels),
		log:       logger.Component("metrics"),
	}

	s.log.Debug().
		Str("namespace", cfg.Namespace).
		Msg("Metrics store initialized")

	return s, nil
}

// Set upserts the series identified by name and labels.
func (s *Store) Set(name string, labels Labels, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.set(name, labels, value)
}

// Remove deletes exactly the series with the given labels. It reports
// whether a series was removed; an absent series is not an error.
func (s *Store) Remove(name string, labels Labels) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(name, labels)
}

// Render returns the exposition text of every current series. Families
// are sorted by name and series by label values.
func (s *Store) Render() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	families, err := s.registry.Gather()
	if err != nil {
		return "", errors.New().Wrap(ErrRenderFailed, err)
	}

	var buf bytes.Buffer
	if err := writeFamilies(&buf, families); err != nil {
		return "", errors.New().Wrap(ErrRenderFailed, err)
	}

	return buf.String(), nil
}

func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) set(name string, labels Labels, value float64) error {
	errFactory := errors.New()

	desc := describe(name, labels)
	vec, err := s.vec(desc)
	if err != nil {
		return err
	}

	gauge, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		return errFactory.Wrap(ErrInvalidLabels, err)
	}

	switch desc.kind {
	case kindInt:
		value = math.Trunc(value)
	case kindInfo:
		value = 1
		s.retract(desc.name, vec, labels)
	}

	gauge.Set(value)

	return nil
}

// retract removes the info series previously exposed for the same device
// when its label combination differs from labels, then records labels as
// the current one.
func (s *Store) retract(name string, vec *prometheus.GaugeVec, labels Labels) {
	key := infoKey{device: labels[LabelDevice], host: labels[LabelHost]}

	states, ok := s.info[name]
	if !ok {
		states = make(map[infoKey]Labels)
		s.info[name] = states
	}

	if prev, ok := states[key]; ok && !sameLabels(prev, labels) {
		vec.Delete(prometheus.Labels(prev))
		s.log.Debug().
			Str("metric", name).
			Str("device", key.device).
			Str("host", key.host).
			Str("category", prev[LabelCategory]).
			Str("primary_pollutant", prev[LabelPrimaryPollutant]).
			Msg("Removed stale info series")
	}

	states[key] = copyLabels(labels)
}

func (s *Store) remove(name string, labels Labels) bool {
	vec, ok := s.vecs[name]
	if !ok {
		return false
	}

	if !vec.Delete(prometheus.Labels(labels)) {
		return false
	}

	if states, ok := s.info[name]; ok {
		key := infoKey{device: labels[LabelDevice], host: labels[LabelHost]}
		if prev, ok := states[key]; ok && sameLabels(prev, labels) {
			delete(states, key)
		}
	}

	return true
}

func (s *Store) vec(desc descriptor) (*prometheus.GaugeVec, error) {
	if vec, ok := s.vecs[desc.name]; ok {
		return vec, nil
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: s.namespace,
		Name:      desc.name,
		Help:      desc.help,
	}, desc.labels)

	if err := s.registry.Register(vec); err != nil {
		return nil, errors.New().Wrap(ErrRegisterFailed, err)
	}

	s.vecs[desc.name] = vec

	return vec, nil
}

func sameLabels(a, b Labels) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func copyLabels(l Labels) Labels {
	c := make(Labels, len(l))
	for k, v := range l {
		c[k] = v
	}
	return c
}
