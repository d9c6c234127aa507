// Package aqi derives the US EPA Air Quality Index from particulate
// concentrations using piecewise-linear breakpoint tables.
package aqi

import "math"

// MaxIndex is the top of the AQI scale. Concentrations above a table's last
// breakpoint saturate to it.
const MaxIndex = 500

// truncationEpsilon absorbs binary representation error so that values such
// as 35.4 truncate to 35.4 and not 35.3.
const truncationEpsilon = 1e-9

// Category is the health category of an overall AQI value.
type Category int

const (
	Good Category = iota
	Moderate
	UnhealthyForSensitiveGroups
	Unhealthy
	VeryUnhealthy
	Hazardous
)

var categoryNames = [...]string{
	Good:                        "Good",
	Moderate:                    "Moderate",
	UnhealthyForSensitiveGroups: "Unhealthy for Sensitive Groups",
	Unhealthy:                   "Unhealthy",
	VeryUnhealthy:               "Very Unhealthy",
	Hazardous:                   "Hazardous",
}

func (c Category) String() string {
	if c < Good || c > Hazardous {
		return "Unknown"
	}
	return categoryNames[c]
}

// Pollutant names the pollutant that drives the overall index.
type Pollutant string

const (
	PM25 Pollutant = "PM2.5"
	PM10 Pollutant = "PM10"
)

// Result is the outcome of an AQI calculation. PM25AQI and PM10AQI are nil
// when the pollutant was absent or unusable.
type Result struct {
	AQI              float64
	Category         Category
	PrimaryPollutant Pollutant
	PM25AQI          *float64
	PM10AQI          *float64
}

// CategoryFor maps an overall AQI onto its category.
func CategoryFor(aqi float64) Category {
	switch v := int(aqi); {
	case v <= 50:
		return Good
	case v <= 100:
		return Moderate
	case v <= 150:
		return UnhealthyForSensitiveGroups
	case v <= 200:
		return Unhealthy
	case v <= 300:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}

// TruncatePM25 floors a PM2.5 concentration to one decimal place.
func TruncatePM25(v float64) float64 {
	return math.Floor(v*10+truncationEpsilon) / 10
}

// TruncatePM10 floors a PM10 concentration to an integer.
func TruncatePM10(v float64) float64 {
	return math.Floor(v + truncationEpsilon)
}

// Index interpolates the sub-index for an already truncated concentration.
// It reports false for concentrations below the table's floor or inside a
// gap between breakpoints.
func (t Table) Index(c float64) (float64, bool) {
	if len(t) == 0 {
		return 0, false
	}

	for _, bp := range t {
		if c >= bp.ConcLo && c <= bp.ConcHi {
			idx := (bp.IndexHi-bp.IndexLo)/(bp.ConcHi-bp.ConcLo)*(c-bp.ConcLo) + bp.IndexLo
			return math.Round(idx), true
		}
	}

	if c > t[len(t)-1].ConcHi {
		return MaxIndex, true
	}

	return 0, false
}

// Calculate computes the AQI from optional PM2.5 and PM10 concentrations in
// µg/m³ using DefaultTables. It reports false when neither pollutant
// yields a sub-index.
func Calculate(pm25, pm10 *float64) (Result, bool) {
	return DefaultTables.Calculate(pm25, pm10)
}

// Calculate computes the AQI against these tables. The overall index is the
// larger sub-index; PM2.5 wins ties.
func (t Tables) Calculate(pm25, pm10 *float64) (Result, bool) {
	var (
		res   Result
		found bool
	)

	if pm25 != nil {
		if idx, ok := t.PM25.Index(TruncatePM25(*pm25)); ok {
			res.PM25AQI = &idx
			res.AQI = idx
			res.PrimaryPollutant = PM25
			found = true
		}
	}

	if pm10 != nil {
		if idx, ok := t.PM10.Index(TruncatePM10(*pm10)); ok {
			res.PM10AQI = &idx
			if !found || idx > res.AQI {
				res.AQI = idx
				res.PrimaryPollutant = PM10
			}
			found = true
		}
	}

	if !found {
		return Result{}, false
	}

	res.Category = CategoryFor(res.AQI)

	return res, true
}
