// Package entities contains the core domain objects for the ache-o-meter application
package entities

import (
	"fmt"
	"time"
)

// Coordinate is a point on the map the forecast is built for
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Subscriber represents a user who receives daily forecasts
type Subscriber struct {
	UserID           int64
	ChatID           int64
	Location         Coordinate
	Timezone         string // IANA name, e.g. Europe/Moscow
	NotificationTime string // local time of day in HH:MM
	IsActive         bool
	UpdatedAt        time.Time
}

// LocalClock returns the subscriber's wall clock reading for the given instant
// in HH:MM. Unknown timezones fall back to UTC.
func (s Subscriber) LocalClock(now time.Time) (string, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return now.UTC().Format("15:04"), fmt.Errorf("unknown timezone %q: %v", s.Timezone, err)
	}
	return now.In(loc).Format("15:04"), nil
}
