// Package forecast contains the analysis engine: it merges source data into a
// snapshot, evaluates the risk rules against it and renders the summary text.
package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/entities"
)

var (
	// ErrSourceUnavailable is returned by source adapters that could not produce data.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInsufficientData is returned by rules whose inputs are absent or empty.
	ErrInsufficientData = errors.New("insufficient data")
)

// Sample is a single point of a time series. Time is always UTC.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// TimeSeries is ordered by Time ascending.
type TimeSeries []Sample

// Between returns the values with from <= Time <= to.
func (ts TimeSeries) Between(from, to time.Time) []float64 {
	var values []float64
	for _, s := range ts {
		if s.Time.Before(from) || s.Time.After(to) {
			continue
		}
		values = append(values, s.Value)
	}
	return values
}

// KpEntry is one row of the planetary Kp-index forecast.
type KpEntry struct {
	Time   time.Time `json:"time"`
	Kp     float64   `json:"kp"`
	Status string    `json:"status"`
}

// AtmosphericData is the normalized weather forecast for a coordinate.
type AtmosphericData struct {
	Timezone          string
	HourlyTemperature TimeSeries
	HourlyPressure    TimeSeries
	HourlyHumidity    TimeSeries
	// DailyTemperatureMax[0] is yesterday, [1] is today.
	DailyTemperatureMax []float64
}

// AtmosphericSource fetches weather for a coordinate
type AtmosphericSource interface {
	FetchAtmospheric(ctx context.Context, coord entities.Coordinate) (AtmosphericData, error)
}

// GeomagneticSource fetches the Kp-index forecast
type GeomagneticSource interface {
	FetchGeomagnetic(ctx context.Context) ([]KpEntry, error)
}

// SolarWindSource fetches solar wind plasma speed, most recent last
type SolarWindSource interface {
	FetchSolarWind(ctx context.Context) ([]float64, error)
}

// Snapshot is the merged view of all sources for one evaluation run.
// It is built once by the Aggregator and must not be modified afterwards.
// Empty fields mean the data is absent.
type Snapshot struct {
	Timezone            string
	HourlyTemperature   TimeSeries
	HourlyPressure      TimeSeries
	HourlyHumidity      TimeSeries
	DailyTemperatureMax []float64
	GeomagneticForecast []KpEntry
	SolarWindSpeed      []float64
}

// Empty reports whether no source contributed any data.
func (s Snapshot) Empty() bool {
	return len(s.Sources()) == 0
}

// Sources lists the names of the sources that contributed data.
func (s Snapshot) Sources() []string {
	var sources []string
	if len(s.HourlyTemperature) > 0 || len(s.HourlyPressure) > 0 ||
		len(s.HourlyHumidity) > 0 || len(s.DailyTemperatureMax) > 0 {
		sources = append(sources, SourceAtmospheric)
	}
	if len(s.GeomagneticForecast) > 0 {
		sources = append(sources, SourceGeomagnetic)
	}
	if len(s.SolarWindSpeed) > 0 {
		sources = append(sources, SourceSolarWind)
	}
	return sources
}

// Source names used in logs and API responses.
const (
	SourceAtmospheric = "atmospheric"
	SourceGeomagnetic = "geomagnetic"
	SourceSolarWind   = "solar_wind"
)
