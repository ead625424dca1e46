package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	botmodels "github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// telegramSender is the subset of bot.Bot used for delivery, swappable for tests
type telegramSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*botmodels.Message, error)
}

// TelegramChannel delivers notifications as Telegram bot messages.
// The recipient is the customer's chat ID.
type TelegramChannel struct {
	sender telegramSender
	logger *zap.Logger
}

// NewTelegramChannel creates a channel on an authenticated bot token
func NewTelegramChannel(token string, logger *zap.Logger) (*TelegramChannel, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramChannel{sender: b, logger: logger.Named("notify.telegram")}, nil
}

// Name returns the channel identifier
func (c *TelegramChannel) Name() string {
	return "CHAT"
}

// Send delivers one message to the recipient chat
func (c *TelegramChannel) Send(ctx context.Context, recipient string, msg Message) error {
	if recipient == "" {
		return fmt.Errorf("empty telegram chat id")
	}

	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}

	_, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: recipient,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram send to %s: %w", recipient, err)
	}

	c.logger.Debug("telegram message sent", zap.String("chat_id", recipient))
	return nil
}
