package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/forecast"
)

// Default NOAA Space Weather Prediction Center products
const (
	DefaultNOAAKpURL     = "https://services.swpc.noaa.gov/products/noaa-planetary-k-index-forecast.json"
	DefaultNOAAPlasmaURL = "https://services.swpc.noaa.gov/products/solar-wind/plasma-3-day.json"
)

// solarWindNoData is the value SWPC puts in place of a missing measurement.
const solarWindNoData = -9999.9

const noaaTimeLayout = "2006-01-02 15:04:05"

// plasma rows are [time_tag, density, speed, temperature]
const plasmaSpeedColumn = 2

// NOAAClient fetches geomagnetic and solar wind products from NOAA SWPC
type NOAAClient struct {
	kp     *endpoint
	plasma *endpoint
}

// NewNOAAClient creates a new NOAA client. Empty URLs select the public defaults.
func NewNOAAClient(kpURL, plasmaURL string, client *http.Client) *NOAAClient {
	if kpURL == "" {
		kpURL = DefaultNOAAKpURL
	}
	if plasmaURL == "" {
		plasmaURL = DefaultNOAAPlasmaURL
	}
	return &NOAAClient{
		kp:     newEndpoint("noaa-kp", kpURL, client),
		plasma: newEndpoint("noaa-plasma", plasmaURL, client),
	}
}

// FetchGeomagnetic returns the planetary Kp-index forecast
func (c *NOAAClient) FetchGeomagnetic(ctx context.Context) ([]forecast.KpEntry, error) {
	body, err := c.kp.get(ctx, "")
	if err != nil {
		return nil, err
	}
	return parseKpForecast(body)
}

// FetchSolarWind returns plasma speeds in km/s, oldest first
func (c *NOAAClient) FetchSolarWind(ctx context.Context) ([]float64, error) {
	body, err := c.plasma.get(ctx, "")
	if err != nil {
		return nil, err
	}
	return parsePlasma(body)
}

// decodeRows decodes a table product and drops its header row.
func decodeRows(source string, body []byte) ([][]any, error) {
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, unavailable(source, "unexpected document shape: %v", err)
	}
	if len(rows) == 0 {
		return nil, unavailable(source, "empty document")
	}
	return rows[1:], nil
}

func parseKpForecast(body []byte) ([]forecast.KpEntry, error) {
	rows, err := decodeRows("noaa-kp", body)
	if err != nil {
		return nil, err
	}

	var entries []forecast.KpEntry
	skipped := 0
	for _, row := range rows {
		if len(row) < 3 {
			skipped++
			continue
		}

		rawTime, ok := row[0].(string)
		if !ok {
			skipped++
			continue
		}
		t, err := time.ParseInLocation(noaaTimeLayout, rawTime, time.UTC)
		if err != nil {
			log.Printf("Warning: Skipping Kp row with invalid time %q: %v", rawTime, err)
			skipped++
			continue
		}

		kp, err := toFloat(row[1])
		if err != nil {
			log.Printf("Warning: Skipping Kp row at %s: %v", rawTime, err)
			skipped++
			continue
		}

		status, _ := row[2].(string)
		entries = append(entries, forecast.KpEntry{Time: t, Kp: kp, Status: status})
	}

	log.Printf("NOAA Kp forecast: parsed %d entries, skipped %d rows", len(entries), skipped)
	if len(entries) == 0 {
		return nil, unavailable("noaa-kp", "no valid rows")
	}
	return entries, nil
}

func parsePlasma(body []byte) ([]float64, error) {
	rows, err := decodeRows("noaa-plasma", body)
	if err != nil {
		return nil, err
	}

	var speeds []float64
	for _, row := range rows {
		if len(row) <= plasmaSpeedColumn || row[plasmaSpeedColumn] == nil {
			continue
		}
		speed, err := toFloat(row[plasmaSpeedColumn])
		if err != nil || speed == solarWindNoData {
			continue
		}
		speeds = append(speeds, speed)
	}

	log.Printf("NOAA plasma: kept %d of %d rows", len(speeds), len(rows))
	if len(speeds) == 0 {
		return nil, unavailable("noaa-plasma", "no valid speed samples")
	}
	return speeds, nil
}

// toFloat accepts both quoted and bare JSON numbers, which SWPC mixes across products.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return 0, fmt.Errorf("empty value")
		}
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
}
