package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/abelzeko/ache-o-meter/internal/api"
	"github.com/abelzeko/ache-o-meter/internal/config"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/abelzeko/ache-o-meter/internal/integration"
	"github.com/abelzeko/ache-o-meter/internal/repository"
	"github.com/abelzeko/ache-o-meter/internal/usecases"
	"github.com/robfig/cron/v3"
)

// cycleTimeout bounds one scheduled pass over all subscribers
const cycleTimeout = 5 * time.Minute

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Ache-o-Meter notifier...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize repository
	repo, err := repository.NewSQLiteSubscriberRepository(cfg.DatabasePath, cfg.DefaultNotificationTime)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer repo.Close()

	// Initialize forecast sources and the analysis pipeline
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	openMeteo := integration.NewOpenMeteoClient(cfg.OpenMeteoURL, httpClient)
	noaa := integration.NewCachedSpaceWeather(
		integration.NewNOAAClient(cfg.NOAAKpURL, cfg.NOAAPlasmaURL, httpClient),
		cfg.SpaceWeatherCacheTTL,
	)
	forecasts := forecast.NewService(
		forecast.NewAggregator(openMeteo, noaa, noaa),
		forecast.NewEvaluator(nil),
		forecast.NewComposer(nil),
	)

	botAPI, err := api.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram messenger: %v", err)
	}

	useCase := usecases.NewForecastUseCase(repo, forecasts, api.NewTelegramMessenger(botAPI), nil, cfg.MaxConcurrentDeliveries)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up cron scheduler; the default schedule checks every minute so any HH:MM can match
	c := cron.New(cron.WithLocation(time.UTC))
	_, err = c.AddFunc(cfg.NotifySchedule, func() {
		cycleCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
		defer cancel()
		useCase.DeliverDue(cycleCtx, time.Now())
	})
	if err != nil {
		log.Fatalf("Failed to set up cron job: %v", err)
	}

	log.Printf("Notifier has been scheduled with %q", cfg.NotifySchedule)
	c.Start()

	<-ctx.Done()
	log.Println("Stopping notifier, waiting for running deliveries...")
	<-c.Stop().Done()
	log.Println("Notifier stopped")
}
