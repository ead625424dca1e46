package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// EmailConfig holds SMTP relay settings
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailChannel delivers notifications over SMTP
type EmailChannel struct {
	config EmailConfig
	logger *zap.Logger

	// sendMail is swappable for tests
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an SMTP-backed email channel
func NewEmailChannel(config EmailConfig, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{
		config:   config,
		logger:   logger.Named("notify.email"),
		sendMail: smtp.SendMail,
	}
}

// Name returns the channel identifier
func (c *EmailChannel) Name() string {
	return "EMAIL"
}

// Send delivers one message to the recipient address
func (c *EmailChannel) Send(ctx context.Context, recipient string, msg Message) error {
	if !strings.Contains(recipient, "@") {
		return fmt.Errorf("invalid email recipient %q", recipient)
	}

	var auth smtp.Auth
	if c.config.Username != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	if err := c.sendMail(addr, auth, c.config.From, []string{recipient}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", recipient, err)
	}

	c.logger.Debug("email sent", zap.String("recipient", recipient), zap.String("subject", msg.Subject))
	return nil
}
