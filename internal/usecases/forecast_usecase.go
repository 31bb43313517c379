// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/abelzeko/ache-o-meter/internal/integration/openai"
	"github.com/abelzeko/ache-o-meter/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrDeliveryFailed is returned by a Messenger that could not send a message.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrNotSubscribed is returned for operations on unknown users.
	ErrNotSubscribed = errors.New("user is not subscribed")
	// ErrInvalidNotificationTime is returned for times not in HH:MM.
	ErrInvalidNotificationTime = errors.New("invalid notification time")
	// ErrInvalidLocation is returned for coordinates out of range.
	ErrInvalidLocation = errors.New("invalid location")
)

// User-facing texts
const (
	NotSubscribedMessage = "Сначала пришли мне свою геопозицию 📍, чтобы я знал, для какого места строить прогноз."
	HelpMessage          = "Вот что я умею:\n" +
		"✅ Каждый день присылаю прогноз для метеочувствительных людей: перепады давления и температуры, влажность, магнитные бури и солнечный ветер.\n\n" +
		"Команды:\n" +
		"/forecast - прогноз прямо сейчас\n" +
		"/time ЧЧ:ММ - изменить время уведомлений\n" +
		"/stop - приостановить рассылку\n" +
		"/help - это сообщение\n\n" +
		"Чтобы подписаться или сменить место, просто пришли мне геопозицию."
	StoppedMessage = "Я понял, больше не буду беспокоить. 😴\nЕсли передумаешь, просто пришли геопозицию, и подписка возобновится."
	TimeFormatHelp = "Ой, формат неправильный. Пожалуйста, попробуй ещё раз в формате ЧЧ:ММ (например, 09:00)."
)

var clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// Messenger delivers text to a chat
type Messenger interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// ForecastService produces the forecast text for a coordinate
type ForecastService interface {
	Text(ctx context.Context, coord entities.Coordinate) string
	ResolveTimezone(ctx context.Context, coord entities.Coordinate) (string, error)
}

// ForecastUseCase orchestrates subscriptions and forecast delivery
type ForecastUseCase struct {
	repo          repository.SubscriberRepository
	forecasts     ForecastService
	messenger     Messenger
	openAIService openai.OpenAIService
	validate      *validator.Validate
	maxConcurrent int
}

// NewForecastUseCase creates a new forecast use case. openAIService may be nil.
func NewForecastUseCase(
	repo repository.SubscriberRepository,
	forecasts ForecastService,
	messenger Messenger,
	openAIService openai.OpenAIService,
	maxConcurrent int,
) *ForecastUseCase {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ForecastUseCase{
		repo:          repo,
		forecasts:     forecasts,
		messenger:     messenger,
		openAIService: openAIService,
		validate:      validator.New(),
		maxConcurrent: maxConcurrent,
	}
}

// DeliverForecast sends the forecast to one subscriber. Unknown or inactive
// users are skipped; failures are logged and never returned to the caller.
func (uc *ForecastUseCase) DeliverForecast(ctx context.Context, userID, chatID int64) {
	if err := uc.deliverForecast(ctx, userID, chatID); err != nil {
		log.Printf("Failed to deliver forecast to user %d: %v", userID, err)
	}
}

func (uc *ForecastUseCase) deliverForecast(ctx context.Context, userID, chatID int64) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during delivery: %v", p)
		}
	}()

	sub, err := uc.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil || !sub.IsActive {
		log.Printf("Warning: skipping forecast for user %d: not subscribed or inactive", userID)
		return nil
	}

	log.Printf("Preparing forecast for user %d at %s", userID, sub.Location)
	text := uc.forecasts.Text(ctx, sub.Location)
	if err := uc.messenger.Deliver(ctx, chatID, text); err != nil {
		return err
	}
	log.Printf("Forecast delivered to user %d", userID)
	return nil
}

// DeliverDue sends forecasts to every active subscriber whose local time of
// day equals their notification time. It returns the number of users dispatched.
func (uc *ForecastUseCase) DeliverDue(ctx context.Context, now time.Time) int {
	cycle := uuid.NewString()
	log.Printf("Cycle %s: checking subscribers due at %s", cycle, now.UTC().Format(time.RFC3339))

	subs, err := uc.repo.ListActive(ctx)
	if err != nil {
		log.Printf("Cycle %s: failed to list active subscribers: %v", cycle, err)
		return 0
	}

	var g errgroup.Group
	g.SetLimit(uc.maxConcurrent)

	dispatched := 0
	for _, sub := range subs {
		local, err := sub.LocalClock(now)
		if err != nil {
			log.Printf("Warning: cycle %s: user %d: %v, using UTC", cycle, sub.UserID, err)
		}
		if local != sub.NotificationTime {
			continue
		}

		dispatched++
		g.Go(func() error {
			uc.DeliverForecast(ctx, sub.UserID, sub.ChatID)
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("Cycle %s: %d of %d active subscribers were due", cycle, dispatched, len(subs))
	return dispatched
}

// Subscribe stores the user's location and activates the subscription.
// It returns the timezone the location was resolved to.
func (uc *ForecastUseCase) Subscribe(ctx context.Context, userID, chatID int64, coord entities.Coordinate) (string, error) {
	if err := uc.validate.Struct(coord); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	timezone, err := uc.forecasts.ResolveTimezone(ctx, coord)
	if err != nil {
		log.Printf("Warning: could not resolve timezone for %s, using UTC: %v", coord, err)
		timezone = "UTC"
	}

	err = uc.repo.Upsert(ctx, entities.Subscriber{
		UserID:   userID,
		ChatID:   chatID,
		Location: coord,
		Timezone: timezone,
	})
	if err != nil {
		return "", err
	}
	return timezone, nil
}

// Unsubscribe deactivates the subscription
func (uc *ForecastUseCase) Unsubscribe(ctx context.Context, userID int64) error {
	return uc.mapNotFound(uc.repo.SetActive(ctx, userID, false))
}

// SetNotificationTime changes when the daily forecast is sent. Single-digit
// hours are accepted and normalized, so "7:30" is stored as "07:30".
func (uc *ForecastUseCase) SetNotificationTime(ctx context.Context, userID int64, hhmm string) (string, error) {
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) == 4 {
		hhmm = "0" + hhmm
	}
	if err := uc.validate.Var(hhmm, "required,datetime=15:04"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidNotificationTime, hhmm)
	}
	if err := uc.mapNotFound(uc.repo.SetNotificationTime(ctx, userID, hhmm)); err != nil {
		return "", err
	}
	return hhmm, nil
}

// OnDemandForecast always returns a text for the user, even when no forecast can be built.
func (uc *ForecastUseCase) OnDemandForecast(ctx context.Context, userID int64) string {
	sub, err := uc.repo.Get(ctx, userID)
	if err != nil {
		log.Printf("Error fetching subscriber %d: %v", userID, err)
		return NotSubscribedMessage
	}
	if sub == nil {
		return NotSubscribedMessage
	}
	return uc.forecasts.Text(ctx, sub.Location)
}

// HandleFreeText interprets a non-command message and returns the reply.
func (uc *ForecastUseCase) HandleFreeText(ctx context.Context, userID int64, text string) string {
	text = strings.TrimSpace(text)
	if clockPattern.MatchString(text) {
		return uc.SetTimeReply(ctx, userID, text)
	}

	if uc.openAIService == nil {
		return HelpMessage
	}

	agentResp, err := uc.openAIService.InterpretUserQuery(ctx, text)
	if err != nil {
		log.Printf("Error interpreting user query via OpenAI: %v", err)
		return HelpMessage
	}

	log.Printf("Agent response: Command='%s', Time='%s', Message='%s'",
		agentResp.CommandName, agentResp.NotificationTime, agentResp.UserMessage)

	switch agentResp.CommandName {
	case openai.IntentGetForecast:
		return joinReply(forecast.Escape(agentResp.UserMessage), uc.OnDemandForecast(ctx, userID))
	case openai.IntentSetNotificationTime:
		if agentResp.NotificationTime == "" {
			return joinReply(forecast.Escape(agentResp.UserMessage), "Во сколько присылать прогноз? Напиши время в формате ЧЧ:ММ.")
		}
		return uc.SetTimeReply(ctx, userID, agentResp.NotificationTime)
	case openai.IntentUnsubscribe:
		return uc.StopReply(ctx, userID)
	case openai.IntentGeneralQuery:
		if agentResp.UserMessage != "" {
			return forecast.Escape(agentResp.UserMessage)
		}
		return HelpMessage
	default:
		log.Printf("Agent returned unexpected command: %s", agentResp.CommandName)
		return HelpMessage
	}
}

// StopReply unsubscribes the user and returns the reply text
func (uc *ForecastUseCase) StopReply(ctx context.Context, userID int64) string {
	if err := uc.Unsubscribe(ctx, userID); err != nil {
		if errors.Is(err, ErrNotSubscribed) {
			return NotSubscribedMessage
		}
		log.Printf("Error unsubscribing user %d: %v", userID, err)
		return "Не получилось отписаться, попробуй ещё раз чуть позже."
	}
	return StoppedMessage
}

// SetTimeReply changes the notification time and returns the reply text
func (uc *ForecastUseCase) SetTimeReply(ctx context.Context, userID int64, hhmm string) string {
	normalized, err := uc.SetNotificationTime(ctx, userID, hhmm)
	switch {
	case err == nil:
		return fmt.Sprintf("Отлично! Новое время уведомлений: <b>%s</b>.", normalized)
	case errors.Is(err, ErrInvalidNotificationTime):
		return TimeFormatHelp
	case errors.Is(err, ErrNotSubscribed):
		return NotSubscribedMessage
	default:
		log.Printf("Error setting notification time for user %d: %v", userID, err)
		return "Не получилось сохранить время, попробуй ещё раз чуть позже."
	}
}

func (uc *ForecastUseCase) mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotSubscribed, err)
	}
	return err
}

func joinReply(prefix, body string) string {
	if prefix == "" {
		return body
	}
	return prefix + "\n\n" + body
}
