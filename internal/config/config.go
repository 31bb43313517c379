// Package config loads the application configuration from the environment
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the settings shared by the bot and the notifier
type Config struct {
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true" validate:"required"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`

	DatabasePath string `envconfig:"DATABASE_PATH" default:"data/users.db" validate:"required"`

	// HTTPTimeout bounds every request to a forecast source.
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	OpenMeteoURL  string        `envconfig:"OPEN_METEO_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"required,url"`
	NOAAKpURL     string        `envconfig:"NOAA_KP_URL" default:"https://services.swpc.noaa.gov/products/noaa-planetary-k-index-forecast.json" validate:"required,url"`
	NOAAPlasmaURL string        `envconfig:"NOAA_PLASMA_URL" default:"https://services.swpc.noaa.gov/products/solar-wind/plasma-3-day.json" validate:"required,url"`
	// SpaceWeatherCacheTTL shares the NOAA feeds between forecasts; 0 disables it.
	SpaceWeatherCacheTTL time.Duration `envconfig:"SPACE_WEATHER_CACHE_TTL" default:"0s" validate:"gte=0"`

	NotifySchedule          string `envconfig:"NOTIFY_SCHEDULE" default:"* * * * *" validate:"required"`
	MaxConcurrentDeliveries int    `envconfig:"MAX_CONCURRENT_DELIVERIES" default:"8" validate:"min=1"`
	DefaultNotificationTime string `envconfig:"DEFAULT_NOTIFICATION_TIME" default:"08:00" validate:"required,datetime=15:04"`

	// HTTPAddr enables the HTTP API when set, e.g. ":8080".
	HTTPAddr string `envconfig:"HTTP_ADDR"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv reads and validates the configuration from the process environment
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
