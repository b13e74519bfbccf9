package webhook

import (
	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/pubsub"
	"github.com/chronobill/chronobill/internal/pubsub/memory"
	pubsubRouter "github.com/chronobill/chronobill/internal/pubsub/router"
	"github.com/chronobill/chronobill/internal/publisher"
	"github.com/chronobill/chronobill/internal/webhook/handler"
	"go.uber.org/fx"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		pubsubRouter.NewRouter,
		publisher.NewEventPublisher,
		handler.NewHandler,
		NewWebhookService,
	),
)

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
) pubsub.PubSub {
	return memory.NewPubSub(cfg, logger)
}
