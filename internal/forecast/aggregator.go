package forecast

import (
	"context"
	"log"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	"golang.org/x/sync/errgroup"
)

// Aggregator queries all sources concurrently and merges whatever succeeds
type Aggregator struct {
	atmospheric AtmosphericSource
	geomagnetic GeomagneticSource
	solarWind   SolarWindSource
}

// NewAggregator creates a new aggregator. Nil sources are treated as unavailable.
func NewAggregator(atmospheric AtmosphericSource, geomagnetic GeomagneticSource, solarWind SolarWindSource) *Aggregator {
	return &Aggregator{
		atmospheric: atmospheric,
		geomagnetic: geomagnetic,
		solarWind:   solarWind,
	}
}

// Aggregate never fails: a failing source leaves its fields empty.
func (a *Aggregator) Aggregate(ctx context.Context, coord entities.Coordinate) Snapshot {
	var (
		g     errgroup.Group
		atmo  AtmosphericData
		kp    []KpEntry
		speed []float64
	)

	// Each goroutine writes only its own variable, so no locking is needed.
	if a.atmospheric != nil {
		g.Go(func() error {
			data, err := a.atmospheric.FetchAtmospheric(ctx, coord)
			if err != nil {
				log.Printf("Warning: %s source unavailable for %s: %v", SourceAtmospheric, coord, err)
				return nil
			}
			atmo = data
			return nil
		})
	}
	if a.geomagnetic != nil {
		g.Go(func() error {
			data, err := a.geomagnetic.FetchGeomagnetic(ctx)
			if err != nil {
				log.Printf("Warning: %s source unavailable: %v", SourceGeomagnetic, err)
				return nil
			}
			kp = data
			return nil
		})
	}
	if a.solarWind != nil {
		g.Go(func() error {
			data, err := a.solarWind.FetchSolarWind(ctx)
			if err != nil {
				log.Printf("Warning: %s source unavailable: %v", SourceSolarWind, err)
				return nil
			}
			speed = data
			return nil
		})
	}
	_ = g.Wait()

	snapshot := Snapshot{
		Timezone:            atmo.Timezone,
		HourlyTemperature:   atmo.HourlyTemperature,
		HourlyPressure:      atmo.HourlyPressure,
		HourlyHumidity:      atmo.HourlyHumidity,
		DailyTemperatureMax: atmo.DailyTemperatureMax,
		GeomagneticForecast: kp,
		SolarWindSpeed:      speed,
	}
	log.Printf("Aggregated snapshot for %s from sources %v", coord, snapshot.Sources())
	return snapshot
}
