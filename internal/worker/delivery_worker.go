package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nabha-health/telehealth-auth/internal/notify"
	"github.com/nabha-health/telehealth-auth/internal/observability"
)

// Message is a queued SMS delivery.
type Message struct {
	To   string
	Body string
}

// DeliveryPool sends queued messages on a fixed number of workers.
// Enqueue never blocks: when the queue is full the message is dropped.
type DeliveryPool struct {
	sender  notify.Sender
	logger  *zap.Logger
	metrics *observability.Metrics
	timeout time.Duration
	workers int
	queue   chan Message
}

// NewDeliveryPool creates a pool with the given queue size and worker count.
func NewDeliveryPool(sender notify.Sender, logger *zap.Logger, metrics *observability.Metrics, queueSize, workers int, timeout time.Duration) *DeliveryPool {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DeliveryPool{
		sender:  sender,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
		workers: workers,
		queue:   make(chan Message, queueSize),
	}
}

// Enqueue schedules msg for delivery and reports whether it was accepted.
func (p *DeliveryPool) Enqueue(msg Message) bool {
	select {
	case p.queue <- msg:
		return true
	default:
		p.metrics.Inc(observability.CounterDeliveryDropped)
		p.logger.Warn("delivery queue full, message dropped", observability.Contact(msg.To))
		return false
	}
}

// Run starts the workers and blocks until ctx is cancelled and they exit.
// Messages still queued at shutdown are discarded.
func (p *DeliveryPool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.loop(ctx)
		}()
	}
	wg.Wait()
	return nil
}

func (p *DeliveryPool) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		}
	}
}

func (p *DeliveryPool) deliver(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sender.SendSMS(sendCtx, msg.To, msg.Body); err != nil {
		p.metrics.Inc(observability.CounterDeliveryFailed)
		p.logger.Warn("sms delivery failed", observability.Contact(msg.To), zap.Error(err))
		return
	}
	p.metrics.Inc(observability.CounterDeliverySent)
}
