package ingestion

import (
	"context"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

// RouterInterface defines the interface for a channel router
type RouterInterface interface {
	// Register registers a handler for a channel
	Register(channel model.Channel, handler MessageHandler)

	// RegisterDefault registers a handler for subjects without a registered channel
	RegisterDefault(handler MessageHandler)

	// Route routes a message to the handler of the channel named by its subject
	Route(ctx context.Context, metadata *model.MessageMetadata, data []byte) error
}

// ConsumerInterface defines the lifecycle of a NATS consumer
type ConsumerInterface interface {
	// Setup creates or updates the stream and the durable consumer
	Setup() error

	// Start subscribes and begins delivering messages
	Start() error

	// Stop drains the subscription
	Stop()
}

var _ RouterInterface = (*Router)(nil)

var _ ConsumerInterface = (*IngestConsumer)(nil)
