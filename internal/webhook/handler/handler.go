package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/chronobill/chronobill/internal/config"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/httpclient"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/pubsub"
	pubsubRouter "github.com/chronobill/chronobill/internal/pubsub/router"
	"github.com/chronobill/chronobill/internal/types"
)

// Handler interface for processing webhook events
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub pubsub.PubSub
	config *config.WebhookConfig
	client httpclient.Client
	logger *logger.Logger
}

// NewHandler creates a new webhook event handler
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
) Handler {
	return &handler{
		pubSub: pubSub,
		config: &cfg.Webhook,
		client: client,
		logger: logger,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage processes a single webhook message
func (h *handler) processMessage(msg *message.Message) error {
	var event types.WebhookEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal webhook event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil // Don't retry on unmarshal errors
	}

	h.logger.Infow("received webhook event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"message_uuid", msg.UUID,
	)

	if h.config.SinkURL == "" {
		return nil
	}

	return h.forward(msg, &event)
}

// forward delivers an event to the configured sink via HTTP POST
func (h *handler) forward(msg *message.Message, event *types.WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req := &httpclient.Request{
		Method: http.MethodPost,
		URL:    h.config.SinkURL,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Event-Name": event.EventName,
			"X-Event-ID":   event.ID,
		},
		Body: body,
	}

	resp, err := h.client.Send(msg.Context(), req)
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return ierr.NewError("webhook sink rejected event").
			WithReportableDetails(map[string]any{
				"event_id":    event.ID,
				"event_name":  event.EventName,
				"status_code": resp.StatusCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	h.logger.Debugw("webhook delivered",
		"event_id", event.ID,
		"event_name", event.EventName,
		"status_code", resp.StatusCode,
	)
	return nil
}
