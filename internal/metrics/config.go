package metrics

import (
	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"github.com/prometheus/common/model"
)

const defaultNamespace = "apollo_air1"

type Config struct {
	// Namespace prefixes every metric name. Empty means no prefix.
	Namespace string
}

func DefaultConfig() Config {
	return Config{
		Namespace: defaultNamespace,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Namespace != "" && !model.IsValidMetricName(model.LabelValue(c.Namespace)) {
		return errFactory.WithData(ErrInvalidNamespace, c.Namespace)
	}
	return nil
}
