package webhook

import (
	"context"
	"fmt"

	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/publisher"
	pubsubRouter "github.com/chronobill/chronobill/internal/pubsub/router"
	"github.com/chronobill/chronobill/internal/webhook/handler"
)

// WebhookService orchestrates webhook delivery: the publisher side pushes
// events onto the topic and the handler side consumes and forwards them.
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.EventPublisher
	handler   handler.Handler
	router    *pubsubRouter.Router
	logger    *logger.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Configuration,
	pub publisher.EventPublisher,
	h handler.Handler,
	r *pubsubRouter.Router,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: pub,
		handler:   h,
		router:    r,
		logger:    l,
	}
}

// Start registers the consumer and runs the message router until Stop
func (s *WebhookService) Start(ctx context.Context) error {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook service disabled")
		return nil
	}

	s.logger.Debug("starting webhook service")
	s.handler.RegisterHandler(s.router)

	go func() {
		if err := s.router.Run(); err != nil {
			s.logger.Errorw("webhook router stopped", "error", err)
		}
	}()

	s.logger.Info("webhook service started successfully")
	return nil
}

// Stop stops the webhook service
func (s *WebhookService) Stop() error {
	if !s.config.Webhook.Enabled {
		return nil
	}

	s.logger.Debug("stopping webhook service")

	// Stop consuming before closing the publisher side
	if err := s.router.Close(); err != nil {
		s.logger.Errorw("failed to close webhook router", "error", err)
		return fmt.Errorf("failed to close webhook router: %w", err)
	}

	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return fmt.Errorf("failed to close webhook publisher: %w", err)
	}

	s.logger.Info("webhook service stopped successfully")
	return nil
}
