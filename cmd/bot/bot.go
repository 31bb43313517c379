package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/abelzeko/ache-o-meter/internal/api"
	httpapi "github.com/abelzeko/ache-o-meter/internal/api/http"
	"github.com/abelzeko/ache-o-meter/internal/config"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/abelzeko/ache-o-meter/internal/integration"
	"github.com/abelzeko/ache-o-meter/internal/integration/openai"
	"github.com/abelzeko/ache-o-meter/internal/repository"
	"github.com/abelzeko/ache-o-meter/internal/usecases"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting Ache-o-Meter bot...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// OpenAI is optional: without it free text gets the help message
	var openAIService openai.OpenAIService
	if cfg.OpenAIAPIKey != "" {
		openAIService, err = openai.NewOpenAIService(cfg.OpenAIAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize OpenAI service: %v", err)
		}
	} else {
		log.Println("OPENAI_API_KEY is not set, free-text interpretation is disabled")
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
		log.Fatalf("Failed to initialize Telegram bot: %v", err)
	}

	useCase := usecases.NewForecastUseCase(repo, forecasts, api.NewTelegramMessenger(botAPI), openAIService, cfg.MaxConcurrentDeliveries)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		app := httpapi.NewApp(forecasts)
		go func() {
			log.Printf("HTTP API listening on %s", cfg.HTTPAddr)
			if err := app.Listen(cfg.HTTPAddr); err != nil {
				log.Printf("HTTP API stopped: %v", err)
			}
		}()
		defer func() {
			if err := app.Shutdown(); err != nil {
				log.Printf("Error during HTTP API shutdown: %v", err)
			}
		}()
	}

	// Start the bot
	api.NewTelegramBot(botAPI, useCase).Start(ctx)
	log.Println("Bot stopped")
}
