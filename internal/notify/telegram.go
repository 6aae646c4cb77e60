// Package notify pushes new alerts to chat channels.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
)

// sender is the part of the bot API used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends each alert to a fixed chat.
type TelegramNotifier struct {
	bot    sender
	chatID int64
}

// NewTelegramNotifier authorizes the bot token.
func NewTelegramNotifier(botToken string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	log.Printf("INFO: authorized on Telegram account %s", bot.Self.UserName)
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Notify sends a.
func (n *TelegramNotifier) Notify(_ context.Context, a alerts.Alert) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(a))
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FormatAlert renders a as a plain-text message.
func FormatAlert(a alerts.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Alerta de riesgo %s en %s (%g%%)\n", strings.ToUpper(a.RiskLevel), a.Location, a.Probability)
	b.WriteString(a.Message)
	if len(a.Actions) > 0 {
		b.WriteString("\n\nAcciones recomendadas:")
		for _, act := range a.Actions {
			b.WriteString("\n• ")
			b.WriteString(act)
		}
	}
	return b.String()
}
