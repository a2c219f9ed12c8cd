package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/auditorium_booking/internal/model"
	"github.com/go-telegram/bot"
)

// TelegramNotifier пишет администратору в Telegram о новых заявках HOD
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramNotifier создаёт бота только для отправки сообщений, без обработчиков
func NewTelegramNotifier(token string, adminChatID int64) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: adminChatID}, nil
}

// Notify отправляет администратору только новые заявки HOD
func (n *TelegramNotifier) Notify(ctx context.Context, event model.BookingEvent) error {
	// Остальные события администратор порождает сам
	if event.Type != model.EventBookingSubmitted {
		return nil
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   formatSubmitted(event.Booking),
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func formatSubmitted(b *model.Booking) string {
	var sb strings.Builder
	sb.WriteString("📥 New auditorium booking request\n\n")
	fmt.Fprintf(&sb, "🏛 Department: %s\n", b.Requester.Department.Label())
	fmt.Fprintf(&sb, "🎤 Event: %s (%s)\n", b.EventName, b.EventType.Label())
	fmt.Fprintf(&sb, "📅 %s, %s - %s\n", b.Window.Date, b.Window.Start(), b.Window.End())
	if len(b.Requirements) > 0 {
		reqs := make([]string, 0, len(b.Requirements))
		for _, r := range b.Requirements {
			reqs = append(reqs, string(r))
		}
		fmt.Fprintf(&sb, "🧰 Requirements: %s\n", strings.Join(reqs, ", "))
	}
	if b.Comments != "" {
		fmt.Fprintf(&sb, "💬 %s\n", b.Comments)
	}
	fmt.Fprintf(&sb, "\nID: %s", b.ID)
	return sb.String()
}
