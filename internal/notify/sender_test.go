package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nabha-health/telehealth-auth/internal/config"
)

type fakeCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
	block  chan struct{}
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.params = params
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestTwilioSenderBuildsParams(t *testing.T) {
	api := &fakeCreator{}
	s := &TwilioSender{api: api, fromNumber: "+15550001111"}

	require.NoError(t, s.SendSMS(context.Background(), "+91-9999900001", "code 123456"))
	require.NotNil(t, api.params)
	assert.Equal(t, "+91-9999900001", *api.params.To)
	assert.Equal(t, "+15550001111", *api.params.From)
	assert.Equal(t, "code 123456", *api.params.Body)
}

func TestTwilioSenderWrapsError(t *testing.T) {
	boom := errors.New("boom")
	s := &TwilioSender{api: &fakeCreator{err: boom}, fromNumber: "+1"}
	assert.ErrorIs(t, s.SendSMS(context.Background(), "+2", "x"), boom)
}

func TestTwilioSenderHonoursContext(t *testing.T) {
	api := &fakeCreator{block: make(chan struct{})}
	defer close(api.block)
	s := &TwilioSender{api: api, fromNumber: "+1"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.SendSMS(ctx, "+2", "x"), context.DeadlineExceeded)
}

func TestLogSenderMasksContact(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.SendSMS(context.Background(), "+91-9999900001", "code 123456"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "**********0001", entry.ContextMap()["contact"])
	assert.NotContains(t, entry.Message, "123456")
}

func TestLogSenderNeverLogsBody(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.SendSMS(context.Background(), "+91-9999900001", "Your Nabha login code is 482913"))
	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, "482913")
		for _, v := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "482913")
		}
	}
}

func TestNewSenderFallsBackToLog(t *testing.T) {
	s := NewSender(config.NotificationConfig{}, zap.NewNop())
	_, ok := s.(*LogSender)
	assert.True(t, ok)

	s = NewSender(config.NotificationConfig{
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
		TwilioFromNumber: "+15550001111",
	}, zap.NewNop())
	_, ok = s.(*TwilioSender)
	assert.True(t, ok)
}
