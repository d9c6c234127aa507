package metrics

import (
	"codeberg.org/mutker/apollo-exporter/internal/apollo"
	"codeberg.org/mutker/apollo-exporter/internal/aqi"
)

// channelMetrics maps device channels to the metric they are exported as.
var channelMetrics = map[string]string{
	apollo.ChannelCO2:            MetricCO2,
	apollo.ChannelPM1:            MetricPM1,
	apollo.ChannelPM25:           MetricPM25,
	apollo.ChannelPM10:           MetricPM10,
	apollo.ChannelVOC:            MetricVOC,
	apollo.ChannelNOx:            MetricNOx,
	apollo.ChannelTemperature:    MetricTemperature,
	apollo.ChannelHumidity:       MetricHumidity,
	apollo.ChannelPressure:       MetricPressure,
	apollo.ChannelIlluminance:    MetricIlluminance,
	apollo.ChannelESPTemperature: MetricESPTemperature,
	apollo.ChannelRSSI:           MetricWiFiRSSI,
}

func deviceLabels(dev apollo.Device) Labels {
	return Labels{LabelDevice: dev.Name, LabelHost: dev.Host}
}

// UpdateDevice folds a successful probe into the store: the device is
// marked up, every known channel is set, and when result is non-nil the
// AQI series are updated. The whole fold happens under one write lock, so
// a concurrent Render sees either none or all of it.
func (s *Store) UpdateDevice(snap *apollo.Snapshot, result *aqi.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := deviceLabels(snap.Device)

	s.log.Debug().
		Str("device", snap.Device.Name).
		Str("host", snap.Device.Host).
		Msg("Updating metrics for device")

	if err := s.set(MetricDeviceUp, labels, 1); err != nil {
		return err
	}

	for id, reading := range snap.Readings {
		name, ok := channelMetrics[id]
		if !ok {
			s.log.Debug().
				Str("channel", id).
				Float64("value", reading.Value).
				Msg("Unknown sensor")
			continue
		}

		if err := s.set(name, labels, reading.Value); err != nil {
			return err
		}
	}

	if result == nil {
		return nil
	}

	return s.setAQI(snap.Device, result)
}

func (s *Store) setAQI(dev apollo.Device, result *aqi.Result) error {
	labels := deviceLabels(dev)

	if err := s.set(MetricAQI, labels, result.AQI); err != nil {
		return err
	}

	if result.PM25AQI != nil {
		if err := s.set(MetricAQIPM25, labels, *result.PM25AQI); err != nil {
			return err
		}
	}
	if result.PM10AQI != nil {
		if err := s.set(MetricAQIPM10, labels, *result.PM10AQI); err != nil {
			return err
		}
	}

	info := Labels{
		LabelDevice:           dev.Name,
		LabelHost:             dev.Host,
		LabelCategory:         result.Category.String(),
		LabelPrimaryPollutant: string(result.PrimaryPollutant),
	}

	return s.set(MetricAQIInfo, info, 1)
}

// MarkDeviceDown sets device_up to 0 and leaves the device's other series
// at their last values.
func (s *Store) MarkDeviceDown(dev apollo.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug().
		Str("device", dev.Name).
		Str("host", dev.Host).
		Msg("Marking device as down")

	return s.set(MetricDeviceUp, deviceLabels(dev), 0)
}
