package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

// hourly builds a series of values at the given hour offsets from testNow
func hourly(points map[int]float64) TimeSeries {
	var series TimeSeries
	for h := -48; h <= 48; h++ {
		if v, ok := points[h]; ok {
			series = append(series, Sample{Time: testNow.Add(time.Duration(h) * time.Hour), Value: v})
		}
	}
	return series
}

func TestPressureRule(t *testing.T) {
	tests := []struct {
		name     string
		points   map[int]float64
		severity Severity
		contains string
	}{
		{"sharp rise", map[int]float64{-2: 1000, -1: 1008, 3: 1016}, SeverityHigh, "рост"},
		{"sharp drop", map[int]float64{-5: 1020, 6: 1005}, SeverityHigh, "падение"},
		{"moderate rise", map[int]float64{-1: 1000, 1: 1005}, SeverityMedium, "4 мм рт. ст."},
		{"boundary is not medium", map[int]float64{-1: 1000, 1: 1004}, 0, ""},
		{"calm", map[int]float64{-1: 1012, 1: 1013}, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding, err := pressureRule(Snapshot{HourlyPressure: hourly(tt.points)}, testNow)
			require.NoError(t, err)
			if tt.severity == 0 {
				assert.Nil(t, finding)
				return
			}
			require.NotNil(t, finding)
			assert.Equal(t, tt.severity, finding.Severity)
			assert.Equal(t, RulePressure, finding.Rule)
			assert.Contains(t, finding.Description, tt.contains)
		})
	}
}

func TestPressureRuleHighDelta(t *testing.T) {
	finding, err := pressureRule(Snapshot{HourlyPressure: hourly(map[int]float64{-2: 1000, -1: 1008, 3: 1016})}, testNow)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Contains(t, finding.Description, "12 мм рт. ст.")
}

func TestPressureRuleIgnoresSamplesOutsideWindows(t *testing.T) {
	// Only the samples beyond 24h differ sharply.
	series := hourly(map[int]float64{-30: 960, -1: 1010, 2: 1011, 30: 1060})
	finding, err := pressureRule(Snapshot{HourlyPressure: series}, testNow)
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestPressureRuleInsufficientData(t *testing.T) {
	_, err := pressureRule(Snapshot{}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = pressureRule(Snapshot{HourlyPressure: hourly(map[int]float64{-3: 1000, -1: 1001})}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientData, "future window is empty")
}

func TestTemperatureRule(t *testing.T) {
	tests := []struct {
		name     string
		daily    []float64
		severity Severity
	}{
		{"high", []float64{10, 21}, SeverityHigh},
		{"medium", []float64{10, 16}, SeverityMedium},
		{"none", []float64{10, 14}, 0},
		{"cooling counts too", []float64{25, 13}, SeverityHigh},
		{"only first two days matter", []float64{10, 12, 40}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding, err := temperatureRule(Snapshot{DailyTemperatureMax: tt.daily}, testNow)
			require.NoError(t, err)
			if tt.severity == 0 {
				assert.Nil(t, finding)
				return
			}
			require.NotNil(t, finding)
			assert.Equal(t, tt.severity, finding.Severity)
		})
	}

	_, err := temperatureRule(Snapshot{DailyTemperatureMax: []float64{10}}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestHumidityRule(t *testing.T) {
	// The future sample must not be part of the trailing average.
	humid := hourly(map[int]float64{-3: 88, -2: 90, -1: 92, 5: 10})
	finding, err := humidityRule(Snapshot{HourlyHumidity: humid}, testNow)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, SeverityLow, finding.Severity)
	assert.Contains(t, finding.Description, "высокая влажность")
	assert.Contains(t, finding.Description, "90%")

	dry := hourly(map[int]float64{-2: 20, -1: 24})
	finding, err = humidityRule(Snapshot{HourlyHumidity: dry}, testNow)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, SeverityLow, finding.Severity)
	assert.Contains(t, finding.Description, "низкая влажность")

	normal := hourly(map[int]float64{-2: 50, -1: 60})
	finding, err = humidityRule(Snapshot{HourlyHumidity: normal}, testNow)
	require.NoError(t, err)
	assert.Nil(t, finding)

	_, err = humidityRule(Snapshot{HourlyHumidity: hourly(map[int]float64{3: 50})}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func kpAt(hours int, kp float64) KpEntry {
	return KpEntry{Time: testNow.Add(time.Duration(hours) * time.Hour), Kp: kp, Status: "predicted"}
}

func TestGeomagneticRule(t *testing.T) {
	entries := []KpEntry{
		kpAt(-6, 8), // already over
		kpAt(3, 2),
		kpAt(6, 5),
		kpAt(9, 3),
		kpAt(30, 9), // beyond the next 24h
	}
	finding, err := geomagneticRule(Snapshot{GeomagneticForecast: entries}, testNow)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, SeverityHigh, finding.Severity)
	assert.Contains(t, finding.Description, "5")
	assert.NotContains(t, finding.Description, "9")

	finding, err = geomagneticRule(Snapshot{GeomagneticForecast: []KpEntry{kpAt(3, 3.67), kpAt(6, 2)}}, testNow)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, SeverityMedium, finding.Severity)
	assert.Contains(t, finding.Description, "3.67")

	finding, err = geomagneticRule(Snapshot{GeomagneticForecast: []KpEntry{kpAt(3, 2.33)}}, testNow)
	require.NoError(t, err)
	assert.Nil(t, finding)

	_, err = geomagneticRule(Snapshot{GeomagneticForecast: []KpEntry{kpAt(-3, 7)}}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

// solarSeries returns 24 background samples followed by 12 recent ones
func solarSeries(background, recent float64) []float64 {
	var speeds []float64
	for i := 0; i < 24; i++ {
		speeds = append(speeds, background)
	}
	for i := 0; i < 12; i++ {
		speeds = append(speeds, recent)
	}
	return speeds
}

func TestSolarWindRule(t *testing.T) {
	// mean of all 36 samples is 400, recent mean 650: ratio 1.625
	finding, err := solarWindRule(Snapshot{SolarWindSpeed: solarSeries(275, 650)}, testNow)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, SeverityLow, finding.Severity)
	assert.Contains(t, finding.Description, "650")
	assert.Contains(t, finding.Description, "400")

	// mean 400, recent mean 560: ratio 1.4
	finding, err = solarWindRule(Snapshot{SolarWindSpeed: solarSeries(320, 560)}, testNow)
	require.NoError(t, err)
	assert.Nil(t, finding)

	_, err = solarWindRule(Snapshot{SolarWindSpeed: []float64{400, 800, 900}}, testNow)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
