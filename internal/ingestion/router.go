package ingestion

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// MessageHandler processes the payload of one ingestion message
type MessageHandler func(ctx context.Context, channel model.Channel, metadata *model.MessageMetadata, data []byte) error

// Router dispatches ingestion messages by the channel token at the end of the subject
type Router struct {
	handlers       map[model.Channel]MessageHandler
	defaultHandler MessageHandler
}

// NewRouter creates a new channel router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[model.Channel]MessageHandler),
	}
}

// Register registers a handler for a channel
func (r *Router) Register(channel model.Channel, handler MessageHandler) {
	r.handlers[channel] = handler
}

// RegisterDefault registers a handler for subjects without a registered channel
func (r *Router) RegisterDefault(handler MessageHandler) {
	r.defaultHandler = handler
}

// Route hands the message to its channel handler. Unknown channels go to the
// default handler; without one they fail with a fatal validation error.
func (r *Router) Route(ctx context.Context, metadata *model.MessageMetadata, data []byte) error {
	log := logger.FromContext(ctx).With(
		zap.String("subject", metadata.MessageSubject),
		zap.String("nats_message_id", metadata.MessageID),
	)
	ctx = logger.WithLogger(ctx, log)

	channel, err := model.ChannelFromSubject(metadata.MessageSubject)
	if err != nil {
		log.Warn("Could not map subject to a channel", zap.Error(err))
	}

	log.Debug("Message received",
		zap.String("channel", string(channel)),
		zap.String("payload_size", utils.ByteCountSI(len(data))),
	)

	handler, ok := r.handlers[channel]
	if !ok || err != nil {
		if r.defaultHandler != nil {
			return r.defaultHandler(ctx, channel, metadata, data)
		}
		if err == nil {
			err = apperrors.ErrValidation
		}
		log.Error("No handler registered for channel", zap.String("channel", string(channel)))
		return apperrors.NewFatal(err, "no handler for subject %s", metadata.MessageSubject)
	}

	return handler(ctx, channel, metadata, data)
}
