package apollo

// Channel is one sensor exposed by the device's ESPHome web server.
type Channel struct {
	ID   string
	Name string
}

// Channel identifiers as published by the Apollo Air-1 firmware.
const (
	ChannelCO2            = "co2"
	ChannelTemperature    = "sen55_temperature"
	ChannelHumidity       = "sen55_humidity"
	ChannelPM1            = "pm__1_m_weight_concentration"
	ChannelPM25           = "pm__2_5_m_weight_concentration"
	ChannelPM10           = "pm__10_m_weight_concentration"
	ChannelVOC            = "sen55_voc"
	ChannelNOx            = "sen55_nox"
	ChannelPressure       = "dps310_pressure"
	ChannelIlluminance    = "illuminance"
	ChannelESPTemperature = "esp_temperature"
	ChannelRSSI           = "rssi"
	ChannelUptime         = "uptime"
)

// Channels is the catalog probed on every poll.
var Channels = []Channel{
	{ChannelCO2, "CO2"},
	{ChannelTemperature, "Temperature"},
	{ChannelHumidity, "Humidity"},
	{ChannelPM1, "PM1.0"},
	{ChannelPM25, "PM2.5"},
	{ChannelPM10, "PM10"},
	{ChannelVOC, "VOC"},
	{ChannelNOx, "NOx"},
	{ChannelPressure, "Pressure"},
	{ChannelIlluminance, "Illuminance"},
	{ChannelESPTemperature, "ESP Temperature"},
	{ChannelRSSI, "WiFi RSSI"},
}

// connectivityChannels are tried in order by TestConnection.
var connectivityChannels = []string{ChannelCO2, ChannelESPTemperature, ChannelUptime}

// Device identifies a polled device. Host is the identity; Name is only a
// display label.
type Device struct {
	Host string
	Name string
}

// Reading is one successfully fetched channel.
type Reading struct {
	ChannelID string
	Name      string
	Value     float64
	RawState  string
	Unit      string
}

// Snapshot is the result of one probe of a device.
type Snapshot struct {
	Device   Device
	Readings map[string]Reading
}

// Value returns the reading for a channel, if it was fetched.
func (s *Snapshot) Value(channelID string) (float64, bool) {
	r, ok := s.Readings[channelID]
	return r.Value, ok
}

// Particulates returns the PM2.5 and PM10 concentrations, nil when absent.
func (s *Snapshot) Particulates() (pm25, pm10 *float64) {
	if v, ok := s.Value(ChannelPM25); ok {
		pm25 = &v
	}
	if v, ok := s.Value(ChannelPM10); ok {
		pm10 = &v
	}

	return pm25, pm10
}

func channelName(id string) string {
	for _, ch := range Channels {
		if ch.ID == id {
			return ch.Name
		}
	}

	return id
}
