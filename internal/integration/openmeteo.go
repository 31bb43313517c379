package integration

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
)

// DefaultOpenMeteoURL is the public Open-Meteo forecast endpoint
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoClient fetches hourly and daily weather from Open-Meteo
type OpenMeteoClient struct {
	endpoint *endpoint
}

// NewOpenMeteoClient creates a new Open-Meteo client
func NewOpenMeteoClient(baseURL string, client *http.Client) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoClient{endpoint: newEndpoint("open-meteo", baseURL, client)}
}

type openMeteoResponse struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Hourly           *struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
		Pressure    []*float64 `json:"surface_pressure"`
		Humidity    []*float64 `json:"relative_humidity_2m"`
	} `json:"hourly"`
	Daily *struct {
		Time           []string   `json:"time"`
		TemperatureMax []*float64 `json:"temperature_2m_max"`
	} `json:"daily"`
}

// FetchAtmospheric returns yesterday, today and tomorrow's weather for coord.
// Timestamps are converted to UTC; the coordinate's timezone is kept in the result.
func (c *OpenMeteoClient) FetchAtmospheric(ctx context.Context, coord entities.Coordinate) (forecast.AtmosphericData, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', 4, 64))
	params.Set("hourly", "temperature_2m,surface_pressure,relative_humidity_2m")
	params.Set("daily", "temperature_2m_max")
	params.Set("past_days", "1")
	params.Set("forecast_days", "2")
	params.Set("timezone", "auto")

	body, err := c.endpoint.get(ctx, params.Encode())
	if err != nil {
		return forecast.AtmosphericData{}, err
	}
	return parseOpenMeteo(body)
}

func parseOpenMeteo(body []byte) (forecast.AtmosphericData, error) {
	var payload openMeteoResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return forecast.AtmosphericData{}, unavailable("open-meteo", "malformed body: %v", err)
	}
	if payload.Hourly == nil && payload.Daily == nil {
		return forecast.AtmosphericData{}, unavailable("open-meteo", "response has neither hourly nor daily data")
	}

	zone := time.FixedZone(payload.Timezone, payload.UTCOffsetSeconds)
	data := forecast.AtmosphericData{Timezone: payload.Timezone}

	if h := payload.Hourly; h != nil {
		times := make([]time.Time, len(h.Time))
		for i, raw := range h.Time {
			t, err := time.ParseInLocation(openMeteoTimeLayout, raw, zone)
			if err != nil {
				return forecast.AtmosphericData{}, unavailable("open-meteo", "invalid hourly time %q: %v", raw, err)
			}
			times[i] = t.UTC()
		}
		data.HourlyTemperature = toSeries(times, h.Temperature)
		data.HourlyPressure = toSeries(times, h.Pressure)
		data.HourlyHumidity = toSeries(times, h.Humidity)
	}

	if d := payload.Daily; d != nil {
		// Indexes carry meaning (0 = yesterday), so stop at the first gap.
		for _, v := range d.TemperatureMax {
			if v == nil {
				break
			}
			data.DailyTemperatureMax = append(data.DailyTemperatureMax, *v)
		}
	}

	log.Printf("Open-Meteo data parsed: timezone %s, %d hourly pressure samples, %d daily maximums",
		data.Timezone, len(data.HourlyPressure), len(data.DailyTemperatureMax))
	return data, nil
}

// toSeries pairs times with values, dropping null values.
func toSeries(times []time.Time, values []*float64) forecast.TimeSeries {
	var series forecast.TimeSeries
	for i, v := range values {
		if v == nil || i >= len(times) {
			continue
		}
		series = append(series, forecast.Sample{Time: times[i], Value: *v})
	}
	return series
}
