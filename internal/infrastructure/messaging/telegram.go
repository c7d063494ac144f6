package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"superlot/internal/ports"
)

// TelegramMessenger delivers winner notifications as Telegram direct
// messages. The recipient handle is the numeric chat id.
type TelegramMessenger struct {
	bot *telego.Bot
}

var _ ports.Messenger = (*TelegramMessenger)(nil)

func NewTelegramMessenger(token string) (*TelegramMessenger, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is required")
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramMessenger{bot: bot}, nil
}

func (m *TelegramMessenger) SendDirectMessage(ctx context.Context, recipient string, text string) (string, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil {
		return "", fmt.Errorf("parse recipient chat id %q: %w", recipient, err)
	}
	if text == "" {
		return "", errors.New("message text is required")
	}

	msg, err := m.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: tu.ID(chatID),
		Text:   text,
	})
	if err != nil {
		return "", fmt.Errorf("send telegram message: %w", err)
	}
	return strconv.Itoa(msg.MessageID), nil
}

// DisabledMessenger rejects every send. Wired when no channel is
// configured, so queue processing fails loudly instead of dropping sends.
type DisabledMessenger struct{}

var _ ports.Messenger = DisabledMessenger{}

func (DisabledMessenger) SendDirectMessage(context.Context, string, string) (string, error) {
	return "", errors.New("messaging channel is not configured")
}
