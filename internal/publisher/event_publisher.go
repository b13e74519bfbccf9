package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/pubsub"
	"github.com/chronobill/chronobill/internal/types"
)

// EventPublisher is the notification sink seen from the scheduler's side.
// Emission is fire-and-forget: a failure to publish is logged and retried in
// the background but never blocks or fails invoice generation.
type EventPublisher interface {
	Publish(ctx context.Context, event *types.WebhookEvent)
	Close() error
}

type eventPublisher struct {
	pubSub pubsub.Publisher
	config *config.WebhookConfig
	logger *logger.Logger
}

// NewEventPublisher creates a publisher over the configured pubsub
func NewEventPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) EventPublisher {
	return &eventPublisher{
		pubSub: pubSub,
		config: &cfg.Webhook,
		logger: logger,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *types.WebhookEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorw("failed to marshal notification event",
			"error", err,
			"event_name", event.EventName,
		)
		return
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("event_name", event.EventName)

	// Detach from the caller's context so a cancelled scheduler run does not
	// drop an event for work that already completed.
	go p.publishWithRetry(msg, event.EventName)
}

func (p *eventPublisher) publishWithRetry(msg *message.Message, eventName string) {
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.config.MaxRetries)

	operation := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return p.pubSub.Publish(ctx, p.config.Topic, msg)
	}

	if err := backoff.Retry(operation, policy); err != nil {
		p.logger.Errorw("failed to publish notification event",
			"error", err,
			"event_name", eventName,
			"message_id", msg.UUID,
			"topic", p.config.Topic,
		)
		return
	}

	p.logger.Debugw("published notification event",
		"event_name", eventName,
		"message_id", msg.UUID,
		"topic", p.config.Topic,
	)
}

// Close closes the underlying publisher
func (p *eventPublisher) Close() error {
	return p.pubSub.Close()
}
