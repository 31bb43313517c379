// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/abelzeko/ache-o-meter/internal/usecases"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeMessage = "Привет! Я бот «Ache-o-Meter». 🌦️\n\n" +
	"Я помогу тебе узнать, будешь ли ты страдать сегодня от своей метеочувствительности 😔 или нет 😊.\n\n" +
	"Для начала пришли мне свою геопозицию кнопкой ниже."

// requestTimeout bounds the handling of a single update
const requestTimeout = 45 * time.Second

// TelegramMessenger sends messages through the Telegram Bot API
type TelegramMessenger struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramMessenger creates a messenger over an authorized bot
func NewTelegramMessenger(bot *tgbotapi.BotAPI) *TelegramMessenger {
	return &TelegramMessenger{bot: bot}
}

// NewBotAPI authorizes the bot token
func NewBotAPI(botToken string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}
	log.Printf("Authorized on Telegram account %s", bot.Self.UserName)
	return bot, nil
}

// Deliver sends an HTML formatted message to the chat
func (m *TelegramMessenger) Deliver(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", usecases.ErrDeliveryFailed, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = forecast.ParseMode
	if _, err := m.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: chat %d: %v", usecases.ErrDeliveryFailed, chatID, err)
	}
	return nil
}

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.ForecastUseCase
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(bot *tgbotapi.BotAPI, useCase *usecases.ForecastUseCase) *TelegramBot {
	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
	}
}

// Start begins listening for and handling Telegram messages until ctx is done
func (t *TelegramBot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	log.Println("Bot is now listening for messages...")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			log.Println("Bot stopped listening for messages")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}

			// Log incoming messages
			log.Printf("Received message from %s (ID: %d): %s",
				update.Message.From.UserName,
				update.Message.From.ID,
				update.Message.Text)

			// Forecasts take a few network round trips; don't block other users.
			go t.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage processes a Telegram message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	msg := tgbotapi.NewMessage(message.Chat.ID, "")
	msg.ParseMode = forecast.ParseMode

	switch {
	case message.Location != nil:
		t.handleLocation(ctx, message, &msg)
	case message.IsCommand():
		t.handleCommand(ctx, message, &msg)
	default:
		log.Printf("Received non-command message from user %s: %s", message.From.UserName, message.Text)
		msg.Text = t.useCase.HandleFreeText(ctx, message.From.ID, message.Text)
	}

	log.Printf("Sending response to user %s", message.From.UserName)
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	userID := message.From.ID
	switch message.Command() {
	case "start":
		log.Printf("Handling /start command for user %s", message.From.UserName)
		msg.Text = welcomeMessage
		msg.ReplyMarkup = locationKeyboard()

	case "help":
		log.Printf("Handling /help command for user %s", message.From.UserName)
		msg.Text = usecases.HelpMessage

	case "forecast":
		log.Printf("Handling /forecast command for user %s", message.From.UserName)
		msg.Text = t.useCase.OnDemandForecast(ctx, userID)

	case "time", "settings":
		args := message.CommandArguments()
		log.Printf("Handling /%s command with args '%s' for user %s", message.Command(), args, message.From.UserName)
		if args == "" {
			msg.Text = "Отправь новое время уведомлений так: /time ЧЧ:ММ (например, /time 07:30). " +
				"Чтобы сменить место, просто пришли геопозицию."
			msg.ReplyMarkup = locationKeyboard()
			return
		}
		msg.Text = t.useCase.SetTimeReply(ctx, userID, args)

	case "stop":
		log.Printf("Handling /stop command for user %s", message.From.UserName)
		msg.Text = t.useCase.StopReply(ctx, userID)

	default:
		log.Printf("Received unknown command /%s from user %s", message.Command(), message.From.UserName)
		msg.Text = "Неизвестная команда. Напиши /help, чтобы увидеть список команд."
	}
}

// handleLocation subscribes the user to forecasts for the shared location
func (t *TelegramBot) handleLocation(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	coord := entities.Coordinate{
		Latitude:  message.Location.Latitude,
		Longitude: message.Location.Longitude,
	}
	log.Printf("Handling location %s from user %s", coord, message.From.UserName)

	timezone, err := t.useCase.Subscribe(ctx, message.From.ID, message.Chat.ID, coord)
	if err != nil {
		log.Printf("Error subscribing user %d: %v", message.From.ID, err)
		if errors.Is(err, usecases.ErrInvalidLocation) {
			msg.Text = "Ой, с этой геопозицией что-то не так. 😔 Попробуй отправить её ещё раз."
			return
		}
		msg.Text = "Не получилось сохранить подписку, попробуй ещё раз чуть позже."
		return
	}

	msg.Text = fmt.Sprintf("Отлично! Я запомнил место (часовой пояс <b>%s</b>). 😎\n\n"+
		"Теперь ты в деле! Время уведомлений можно поменять командой /time, прогноз прямо сейчас: /forecast.",
		forecast.Escape(timezone))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
}

func locationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation("📍 Отправить геопозицию")),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	return keyboard
}
