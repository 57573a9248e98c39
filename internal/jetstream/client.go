package jetstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

const reconnectWait = 2 * time.Second

// Client is the JetStream connection shared by the ingest consumer, the
// event notifier and the load generator.
type Client struct {
	name string
	nc   *nats.Conn
	js   nats.JetStreamContext
}

var _ ClientInterface = (*Client)(nil)

// NewClient connects to url and opens a JetStream context. The connection
// reconnects without limit; /ready reports it while it is down.
func NewClient(url, name string) (*Client, error) {
	log := logger.Log.With(zap.String("nats_client", name))

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS connection lost", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS connection restored", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			log.Error("NATS async error", fields...)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{name: name, nc: nc, js: js}, nil
}

// SetupStream creates the stream, or updates it when the managed settings drifted.
func (c *Client) SetupStream(ctx context.Context, cfg *nats.StreamConfig) error {
	log := logger.FromContext(ctx).With(zap.String("stream", cfg.Name), zap.Strings("subjects", cfg.Subjects))

	info, err := c.js.StreamInfo(cfg.Name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := c.js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to add stream %q: %w", cfg.Name, err)
		}
		log.Info("Created stream")
	case err != nil:
		return fmt.Errorf("failed to get stream info for %q: %w", cfg.Name, err)
	case utils.StreamConfigEqual(info.Config, *cfg):
		log.Debug("Stream is up to date")
	default:
		if _, err := c.js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("failed to update stream %q: %w", cfg.Name, err)
		}
		log.Info("Updated stream")
	}
	return nil
}

// SetupConsumer creates the durable consumer on stream. A push consumer cannot
// change its deliver subject in place, so a drifted consumer is recreated.
func (c *Client) SetupConsumer(ctx context.Context, stream string, cfg *nats.ConsumerConfig) error {
	log := logger.FromContext(ctx).With(
		zap.String("stream", stream),
		zap.String("consumer", cfg.Durable),
		zap.String("queue_group", cfg.DeliverGroup),
		zap.Strings("filter_subjects", cfg.FilterSubjects),
	)

	info, err := c.js.ConsumerInfo(stream, cfg.Durable)
	switch {
	case errors.Is(err, nats.ErrConsumerNotFound):
		if _, err := c.js.AddConsumer(stream, cfg); err != nil {
			return fmt.Errorf("failed to add consumer %q to stream %q: %w", cfg.Durable, stream, err)
		}
		log.Info("Created consumer")
		return nil
	case err != nil:
		return fmt.Errorf("failed to get consumer info for %q on %q: %w", cfg.Durable, stream, err)
	case utils.ConsumerConfigEqual(info.Config, *cfg):
		log.Debug("Consumer is up to date")
		return nil
	}

	log.Warn("Consumer settings drifted, recreating",
		zap.String("current_cfg", fmt.Sprintf("%+v", info.Config)),
		zap.String("wanted_cfg", fmt.Sprintf("%+v", *cfg)),
	)
	if err := c.js.DeleteConsumer(stream, cfg.Durable); err != nil {
		return fmt.Errorf("failed to delete consumer %q on %q: %w", cfg.Durable, stream, err)
	}
	if _, err := c.js.AddConsumer(stream, cfg); err != nil {
		return fmt.Errorf("failed to recreate consumer %q on %q: %w", cfg.Durable, stream, err)
	}
	log.Info("Recreated consumer")
	return nil
}

// SubscribePush binds a queue subscription to the durable push consumer with manual acks.
func (c *Client) SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.js.QueueSubscribe(subject, group, handler,
		nats.Durable(consumer),
		nats.ManualAck(),
		nats.BindStream(stream),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s via %s: %w", subject, consumer, err)
	}
	return sub, nil
}

// Publish sends data to subject and waits for the stream acknowledgement.
func (c *Client) Publish(subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if _, err := c.js.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the connection is currently established.
func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// Close drains subscriptions and pending publishes, falling back to a hard close.
func (c *Client) Close() {
	if c.nc == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		logger.Log.Warn("NATS drain failed, closing connection", zap.String("nats_client", c.name), zap.Error(err))
		c.nc.Close()
	}
}
