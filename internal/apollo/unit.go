package apollo

import (
	"strconv"
	"strings"
)

// knownUnits are matched by containment, in order, when the numeric value
// cannot be located in the state string.
var knownUnits = []struct {
	needle string
	unit   string
}{
	{"°C", "°C"},
	{"°F", "°F"},
	{"%", "%"},
	{"ppm", "ppm"},
	{"µg/m³", "µg/m³"},
	{"hPa", "hPa"},
	{"lx", "lx"},
	{"dBm", "dBm"},
	{" s", "s"},
}

// ExtractUnit returns the unit suffix of a state string such as "22.5 °C".
// It looks for the value's shortest decimal rendering first, then its
// one-decimal rendering, and takes the trimmed text after it. A match that
// is only a prefix of a longer number ("20" in "20.0 µg/m³") is skipped.
func ExtractUnit(state string, value float64) string {
	for _, rendered := range []string{
		strconv.FormatFloat(value, 'f', -1, 64),
		strconv.FormatFloat(value, 'f', 1, 64),
	} {
		i := strings.Index(state, rendered)
		if i < 0 {
			continue
		}

		rest := state[i+len(rendered):]
		if rest != "" && (rest[0] == '.' || (rest[0] >= '0' && rest[0] <= '9')) {
			continue
		}

		return strings.TrimSpace(rest)
	}

	for _, u := range knownUnits {
		if strings.Contains(state, u.needle) {
			return u.unit
		}
	}

	return ""
}
