package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nabha-health/telehealth-auth/internal/events"
	"github.com/nabha-health/telehealth-auth/internal/observability"
	"github.com/nabha-health/telehealth-auth/internal/worker"
)

// MessageQueue accepts outbound messages without blocking.
type MessageQueue interface {
	Enqueue(msg worker.Message) bool
}

// NotificationService turns domain events into code deliveries and audit logs.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      MessageQueue
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue MessageQueue, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCodeIssued, n.handleCodeIssued)
	n.dispatcher.Subscribe(events.EventIdentityCreated, n.handleIdentityCreated)
	n.dispatcher.Subscribe(events.EventLoginSucceeded, n.handleLoginSucceeded)
}

func (n *NotificationService) handleCodeIssued(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CodeIssuedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if !n.queue.Enqueue(worker.Message{To: payload.Contact, Body: n.codeMessage(payload)}) {
		return nil
	}
	n.logger.Info("CodeIssued", observability.Contact(payload.Contact), zap.String("role", string(payload.Role)))
	return nil
}

func (n *NotificationService) handleIdentityCreated(_ context.Context, event events.Event) error {
	n.logger.Info("IdentityCreated", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	n.logger.Info("LoginSucceeded", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) codeMessage(p events.CodeIssuedPayload) string {
	minutes := int(p.ExpiresAt.Sub(n.now()).Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your Nabha Health verification code is %s. It expires in %d minutes. Do not share it with anyone.", p.Code, minutes)
}
