package metrics

import "sort"

// Labels maps label names to values for one series.
type Labels map[string]string

// Metric names, relative to the store namespace.
const (
	MetricDeviceUp       = "device_up"
	MetricCO2            = "co2_ppm"
	MetricPM1            = "pm1_0_ugm3"
	MetricPM25           = "pm2_5_ugm3"
	MetricPM10           = "pm10_0_ugm3"
	MetricVOC            = "voc_index"
	MetricNOx            = "nox_index"
	MetricTemperature    = "temperature_celsius"
	MetricHumidity       = "humidity_percent"
	MetricPressure       = "pressure_hpa"
	MetricIlluminance    = "illuminance_lux"
	MetricESPTemperature = "esp_temperature_celsius"
	MetricWiFiRSSI       = "wifi_rssi_dbm"
	MetricAQI            = "aqi"
	MetricAQIPM25        = "aqi_pm25"
	MetricAQIPM10        = "aqi_pm10"
	MetricAQIInfo        = "aqi_info"
)

// Label names.
const (
	LabelDevice           = "device"
	LabelHost             = "host"
	LabelCategory         = "category"
	LabelPrimaryPollutant = "primary_pollutant"
)

type kind int

const (
	kindGauge kind = iota
	// kindInt gauges hold whole numbers; values are truncated toward zero.
	kindInt
	// kindInfo gauges always hold 1 and carry their content in labels.
	kindInfo
)

type descriptor struct {
	name   string
	help   string
	kind   kind
	labels []string
}

var deviceLabelNames = []string{LabelDevice, LabelHost}

var catalog = map[string]descriptor{
	MetricDeviceUp:       {MetricDeviceUp, "Whether the Apollo Air-1 device is reachable (1) or not (0)", kindInt, deviceLabelNames},
	MetricCO2:            {MetricCO2, "CO2 concentration in parts per million", kindGauge, deviceLabelNames},
	MetricPM1:            {MetricPM1, "PM1.0 particulate matter in micrograms per cubic meter", kindGauge, deviceLabelNames},
	MetricPM25:           {MetricPM25, "PM2.5 particulate matter in micrograms per cubic meter", kindGauge, deviceLabelNames},
	MetricPM10:           {MetricPM10, "PM10 particulate matter in micrograms per cubic meter", kindGauge, deviceLabelNames},
	MetricVOC:            {MetricVOC, "Volatile Organic Compounds index", kindGauge, deviceLabelNames},
	MetricNOx:            {MetricNOx, "Nitrogen Oxides index", kindGauge, deviceLabelNames},
	MetricTemperature:    {MetricTemperature, "Temperature in degrees Celsius", kindGauge, deviceLabelNames},
	MetricHumidity:       {MetricHumidity, "Relative humidity percentage", kindGauge, deviceLabelNames},
	MetricPressure:       {MetricPressure, "Atmospheric pressure in hectopascals", kindGauge, deviceLabelNames},
	MetricIlluminance:    {MetricIlluminance, "Illuminance in lux", kindGauge, deviceLabelNames},
	MetricESPTemperature: {MetricESPTemperature, "ESP32 internal temperature in degrees Celsius", kindGauge, deviceLabelNames},
	MetricWiFiRSSI:       {MetricWiFiRSSI, "WiFi signal strength in dBm", kindInt, deviceLabelNames},
	MetricAQI:            {MetricAQI, "Air Quality Index based on PM2.5 and PM10", kindGauge, deviceLabelNames},
	MetricAQIPM25:        {MetricAQIPM25, "Air Quality Index for PM2.5", kindGauge, deviceLabelNames},
	MetricAQIPM10:        {MetricAQIPM10, "Air Quality Index for PM10", kindGauge, deviceLabelNames},
	MetricAQIInfo: {
		MetricAQIInfo,
		"AQI category information (value always 1, use labels for category)",
		kindInfo,
		[]string{LabelDevice, LabelHost, LabelCategory, LabelPrimaryPollutant},
	},
}

// describe returns the catalog entry for name, or a plain gauge keyed by
// the sorted label names when the metric is not in the catalog.
func describe(name string, labels Labels) descriptor {
	if d, ok := catalog[name]; ok {
		return d
	}

	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)

	return descriptor{name: name, help: name, kind: kindGauge, labels: names}
}
