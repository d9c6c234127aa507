package aqi

// Breakpoint maps an inclusive concentration range onto an index range.
type Breakpoint struct {
	ConcLo  float64
	ConcHi  float64
	IndexLo float64
	IndexHi float64
}

// Table is an ordered list of breakpoints, lowest concentration first.
type Table []Breakpoint

// Tables holds the breakpoint table used for each pollutant.
type Tables struct {
	PM25 Table
	PM10 Table
}

// PM25Breakpoints is the EPA PM2.5 24-hour table as revised in 2024
// (effective May 6, 2024), in µg/m³.
var PM25Breakpoints = Table{
	{0.0, 9.0, 0, 50},
	{9.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 125.4, 151, 200},
	{125.5, 225.4, 201, 300},
	{225.5, 325.4, 301, 500},
}

// PM10Breakpoints is the EPA PM10 24-hour table, in µg/m³.
var PM10Breakpoints = Table{
	{0, 54, 0, 50},
	{55, 154, 51, 100},
	{155, 254, 101, 150},
	{255, 354, 151, 200},
	{355, 424, 201, 300},
	{425, 604, 301, 500},
}

// DefaultTables are the tables Calculate uses.
var DefaultTables = Tables{
	PM25: PM25Breakpoints,
	PM10: PM10Breakpoints,
}
