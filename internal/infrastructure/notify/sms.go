package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SMSConfig holds HTTP SMS gateway settings
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
}

// SMSChannel delivers notifications through an HTTP SMS gateway.
// The gateway takes form-encoded POSTs and answers 2xx on accepted messages.
type SMSChannel struct {
	config SMSConfig
	client *http.Client
	logger *zap.Logger
}

// NewSMSChannel creates an SMS channel against the configured gateway
func NewSMSChannel(config SMSConfig, logger *zap.Logger) *SMSChannel {
	return &SMSChannel{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.Named("notify.sms"),
	}
}

// Name returns the channel identifier
func (c *SMSChannel) Name() string {
	return "SMS"
}

// Send delivers one message to the recipient phone number.
// The subject is dropped; SMS carries the body only.
func (c *SMSChannel) Send(ctx context.Context, recipient string, msg Message) error {
	if recipient == "" {
		return fmt.Errorf("empty sms recipient")
	}

	form := url.Values{}
	form.Set("api_key", c.config.APIKey)
	form.Set("from", c.config.Sender)
	form.Set("to", recipient)
	form.Set("message", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.GatewayURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("sms sent", zap.String("recipient", recipient))
	return nil
}
