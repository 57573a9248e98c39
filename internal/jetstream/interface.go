package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"
)

// ClientInterface defines the JetStream operations used by the service
type ClientInterface interface {
	// SetupStream creates the stream or updates it when the managed settings differ
	SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error

	// SetupConsumer creates the durable consumer on streamName, recreating it when its settings differ
	SetupConsumer(ctx context.Context, streamName string, consumerConfig *nats.ConsumerConfig) error

	// SubscribePush binds a queue subscription to an existing push consumer
	SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error)

	// Publish publishes a message to a subject with optional headers
	Publish(subject string, data []byte, headers map[string]string) error

	// IsConnected reports whether the underlying connection is usable
	IsConnected() bool

	// Close drains and closes the NATS connection
	Close()
}
