package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shareit/internal/database"
	"shareit/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier sends one-way notifications about booking lifecycle changes
// to users who registered a telegram id. Send failures are logged and never
// propagate to the operation that raised the event.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	db     *database.DB
	logger zerolog.Logger
}

func NewTelegramNotifier(token string, db *database.DB, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot api: %w", err)
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notify").Logger()
	}

	return &TelegramNotifier{api: api, db: db, logger: base}, nil
}

// Register subscribes the notifier to the booking lifecycle events.
func (n *TelegramNotifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.onBookingEvent)
	bus.Subscribe(events.EventBookingApproved, n.onBookingEvent)
	bus.Subscribe(events.EventBookingRejected, n.onBookingEvent)
	bus.Subscribe(events.EventBookingCanceled, n.onBookingEvent)
	bus.Subscribe(events.EventCommentAdded, n.onCommentEvent)
}

func (n *TelegramNotifier) onBookingEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("decode event payload")
		return err
	}

	period := fmt.Sprintf("%s — %s",
		payload.Start.Format("02.01.2006 15:04"),
		payload.End.Format("02.01.2006 15:04"))

	var recipientID int64
	var text string
	switch event.Type {
	case events.EventBookingCreated:
		recipientID = payload.OwnerID
		text = fmt.Sprintf("📋 Новая заявка №%d на вашу вещь\nПериод: %s", payload.BookingID, period)
	case events.EventBookingApproved:
		recipientID = payload.BookerID
		text = fmt.Sprintf("✅ Заявка №%d подтверждена\nПериод: %s", payload.BookingID, period)
	case events.EventBookingRejected:
		recipientID = payload.BookerID
		text = fmt.Sprintf("❌ Заявка №%d отклонена", payload.BookingID)
	case events.EventBookingCanceled:
		recipientID = payload.OwnerID
		text = fmt.Sprintf("🚫 Заявка №%d отменена арендатором", payload.BookingID)
	default:
		return nil
	}

	n.send(recipientID, text)
	return nil
}

func (n *TelegramNotifier) onCommentEvent(event *events.Event) error {
	var payload events.CommentEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Str("event", event.Type).Msg("decode event payload")
		return err
	}

	n.send(payload.OwnerID, fmt.Sprintf("💬 Новый отзыв о вашей вещи:\n%s", payload.Text))
	return nil
}

func (n *TelegramNotifier) send(userID int64, text string) {
	if userID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, err := n.db.GetUserByID(ctx, userID)
	if err != nil {
		n.logger.Error().Err(err).Int64("user_id", userID).Msg("lookup notification recipient")
		return
	}
	if user.TelegramID == 0 {
		return
	}

	msg := tgbotapi.NewMessage(user.TelegramID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error().Err(err).Int64("user_id", userID).Msg("send telegram notification")
	}
}
