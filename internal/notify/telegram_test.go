package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, b.err
}

func TestFormatAlert(t *testing.T) {
	got := FormatAlert(alerts.Alert{
		Location:    "Latacunga",
		RiskLevel:   "alto",
		Probability: 85,
		Message:     "Posible caída de ceniza",
		Actions:     []string{"Usar mascarilla", "Cubrir tanques de agua"},
	})
	assert.Equal(t, "⚠️ Alerta de riesgo ALTO en Latacunga (85%)\nPosible caída de ceniza\n\nAcciones recomendadas:\n• Usar mascarilla\n• Cubrir tanques de agua", got)

	assert.NotContains(t, FormatAlert(alerts.Alert{Message: "m"}), "Acciones")
}

func TestNotifySendsToChat(t *testing.T) {
	bot := &fakeBot{}
	n := &TelegramNotifier{bot: bot, chatID: 42}

	require.NoError(t, n.Notify(context.Background(), alerts.Alert{Location: "Quito", Message: "m"}))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.EqualValues(t, 42, msg.ChatID)
	assert.Contains(t, msg.Text, "Quito")

	bot.err = errors.New("forbidden")
	assert.ErrorContains(t, n.Notify(context.Background(), alerts.Alert{}), "forbidden")
}
