package forecast

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	window = 24 * time.Hour

	hPaToMmHg              = 0.750062
	pressureHighMmHg       = 7.0
	pressureMediumMmHg     = 3.0
	temperatureHighC       = 10.0
	temperatureMediumC     = 5.0
	humidityHighPct        = 85.0
	humidityLowPct         = 30.0
	kpHigh                 = 5.0
	kpMedium               = 3.0
	solarWindRecentSamples = 12 // about one hour at 5-minute cadence
	solarWindSurgeRatio    = 1.5
)

// Rule names, in evaluation order.
const (
	RulePressure    = "pressure"
	RuleTemperature = "temperature"
	RuleHumidity    = "humidity"
	RuleGeomagnetic = "geomagnetic"
	RuleSolarWind   = "solar_wind"
)

// ruleFunc returns a nil finding when conditions are normal, and an error
// when its inputs are missing.
type ruleFunc func(s Snapshot, now time.Time) (*Finding, error)

type rule struct {
	name string
	eval ruleFunc
}

// defaultRules is the fixed evaluation order; it also decides tie order in reports.
var defaultRules = []rule{
	{RulePressure, pressureRule},
	{RuleTemperature, temperatureRule},
	{RuleHumidity, humidityRule},
	{RuleGeomagnetic, geomagneticRule},
	{RuleSolarWind, solarWindRule},
}

func pressureRule(s Snapshot, now time.Time) (*Finding, error) {
	past := s.HourlyPressure.Between(now.Add(-window), now)
	future := s.HourlyPressure.Between(now.Add(time.Nanosecond), now.Add(window))
	if len(past) == 0 || len(future) == 0 {
		return nil, fmt.Errorf("%w: pressure windows past=%d future=%d", ErrInsufficientData, len(past), len(future))
	}

	delta := (maxOf(future) - minOf(past)) * hPaToMmHg
	// Thresholds apply to the value as shown to the user, one decimal.
	delta = math.Round(delta*10) / 10

	var severity Severity
	switch abs := math.Abs(delta); {
	case abs > pressureHighMmHg:
		severity = SeverityHigh
	case abs > pressureMediumMmHg:
		severity = SeverityMedium
	default:
		return nil, nil
	}

	direction := "рост"
	if delta < 0 {
		direction = "падение"
	}
	return &Finding{
		Rule:        RulePressure,
		Severity:    severity,
		Description: fmt.Sprintf("%s атмосферного давления на %.0f мм рт. ст. за сутки", direction, math.Abs(delta)),
	}, nil
}

func temperatureRule(s Snapshot, _ time.Time) (*Finding, error) {
	if len(s.DailyTemperatureMax) < 2 {
		return nil, fmt.Errorf("%w: %d daily maximums", ErrInsufficientData, len(s.DailyTemperatureMax))
	}

	diff := math.Abs(s.DailyTemperatureMax[1] - s.DailyTemperatureMax[0])

	var severity Severity
	switch {
	case diff > temperatureHighC:
		severity = SeverityHigh
	case diff > temperatureMediumC:
		severity = SeverityMedium
	default:
		return nil, nil
	}

	return &Finding{
		Rule:        RuleTemperature,
		Severity:    severity,
		Description: fmt.Sprintf("перепад температуры на %.0f°C по сравнению со вчерашним днём", diff),
	}, nil
}

func humidityRule(s Snapshot, now time.Time) (*Finding, error) {
	past := s.HourlyHumidity.Between(now.Add(-window), now)
	if len(past) == 0 {
		return nil, fmt.Errorf("%w: no humidity in the last 24h", ErrInsufficientData)
	}

	avg := mean(past)
	var description string
	switch {
	case avg > humidityHighPct:
		description = fmt.Sprintf("высокая влажность воздуха (в среднем %.0f%%)", avg)
	case avg < humidityLowPct:
		description = fmt.Sprintf("низкая влажность воздуха (в среднем %.0f%%)", avg)
	default:
		return nil, nil
	}

	return &Finding{Rule: RuleHumidity, Severity: SeverityLow, Description: description}, nil
}

func geomagneticRule(s Snapshot, now time.Time) (*Finding, error) {
	found := false
	maxKp := 0.0
	for _, e := range s.GeomagneticForecast {
		if e.Time.Before(now) || e.Time.After(now.Add(window)) {
			continue
		}
		if !found || e.Kp > maxKp {
			maxKp = e.Kp
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w: no Kp forecast for the next 24h", ErrInsufficientData)
	}

	kp := strconv.FormatFloat(maxKp, 'f', -1, 64)
	switch {
	case maxKp >= kpHigh:
		return &Finding{
			Rule:        RuleGeomagnetic,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("магнитная буря, Kp-индекс до %s", kp),
		}, nil
	case maxKp >= kpMedium:
		return &Finding{
			Rule:        RuleGeomagnetic,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("повышенная геомагнитная активность, Kp-индекс до %s", kp),
		}, nil
	default:
		return nil, nil
	}
}

func solarWindRule(s Snapshot, _ time.Time) (*Finding, error) {
	if len(s.SolarWindSpeed) < solarWindRecentSamples {
		return nil, fmt.Errorf("%w: %d solar wind samples", ErrInsufficientData, len(s.SolarWindSpeed))
	}

	recent := mean(s.SolarWindSpeed[len(s.SolarWindSpeed)-solarWindRecentSamples:])
	historical := mean(s.SolarWindSpeed)
	if historical <= 0 {
		return nil, fmt.Errorf("%w: non-positive mean solar wind speed", ErrInsufficientData)
	}
	if recent/historical <= solarWindSurgeRatio {
		return nil, nil
	}

	return &Finding{
		Rule:        RuleSolarWind,
		Severity:    SeverityLow,
		Description: fmt.Sprintf("усиление солнечного ветра до %.0f км/с (обычно %.0f км/с)", recent, historical),
	}, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}
