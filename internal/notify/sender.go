package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/observability"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// messageCreator is the subset of the Twilio API used for delivery.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends SMS through the Twilio messages API.
type TwilioSender struct {
	api        messageCreator
	fromNumber string
}

// NewTwilioSender creates a sender authenticated with the account SID and token.
func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, fromNumber: fromNumber}
}

// SendSMS implements Sender. The Twilio client has no context support, so the
// call runs in its own goroutine and ctx only bounds how long we wait.
func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(body)

	done := make(chan error, 1)
	go func() {
		_, err := t.api.CreateMessage(params)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send sms: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send sms: %w", ctx.Err())
	}
}

// LogSender records that a message was due without sending it.
// Message bodies are never logged.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a development sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendSMS implements Sender.
func (l *LogSender) SendSMS(_ context.Context, to, body string) error {
	l.logger.Info("sms delivery skipped, no provider configured",
		observability.Contact(to), zap.Int("bodyBytes", len(body)))
	return nil
}

// NewSender picks Twilio when credentials are configured and the log sender otherwise.
func NewSender(cfg config.NotificationConfig, logger *zap.Logger) Sender {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		logger.Warn("twilio not configured, sms messages will not be delivered")
		return NewLogSender(logger)
	}
	return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
}
