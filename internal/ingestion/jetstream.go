package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/jetstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// AckNakAction represents the decision made after processing a message
type AckNakAction int

const (
	ActionAck      AckNakAction = iota // processed, ACK
	ActionNakDelay                     // retryable failure with attempts left
	ActionTerm                         // fatal failure or attempts exhausted
)

func (a AckNakAction) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionNakDelay:
		return "nak_retry"
	case ActionTerm:
		return "term"
	default:
		return "unknown"
	}
}

const (
	ingestAckWait       = 30 * time.Second
	ingestMaxAckPending = 1000
	ingestDupWindow     = 2 * time.Minute
)

// IngestConsumer consumes channel reports published on <prefix>.<channel>.
type IngestConsumer struct {
	client jetstream.ClientInterface
	router RouterInterface
	cfg    config.ConsumerNatsConfig
	ctx    context.Context
	cancel context.CancelFunc
	sub    *nats.Subscription
}

// NewIngestConsumer creates the ingestion consumer
func NewIngestConsumer(client jetstream.ClientInterface, router RouterInterface, cfg config.ConsumerNatsConfig) *IngestConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(
		zap.String("stream", cfg.Stream),
		zap.String("consumer", cfg.Consumer),
	))
	return &IngestConsumer{
		client: client,
		router: router,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *IngestConsumer) subjectFilter() string {
	return model.SubjectFor(c.cfg.SubjectPrefix, "*")
}

func (c *IngestConsumer) streamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:       c.cfg.Stream,
		Subjects:   []string{c.subjectFilter()},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxAge:     time.Duration(c.cfg.MaxAge*24) * time.Hour,
		Duplicates: ingestDupWindow,
	}
}

func (c *IngestConsumer) consumerConfig() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:        c.cfg.Consumer,
		DeliverGroup:   c.cfg.QueueGroup,
		FilterSubjects: []string{c.subjectFilter()},
		AckPolicy:      nats.AckExplicitPolicy,
		DeliverSubject: nats.NewInbox(),
		MaxDeliver:     c.cfg.MaxDeliver,
		AckWait:        ingestAckWait,
		MaxAckPending:  ingestMaxAckPending,
		ReplayPolicy:   nats.ReplayInstantPolicy,
		DeliverPolicy:  nats.DeliverAllPolicy,
	}
}

// Setup creates or updates the ingest stream and its durable consumer
func (c *IngestConsumer) Setup() error {
	log := logger.FromContext(c.ctx)
	log.Info("Setting up ingest consumer", zap.String("subjects", c.subjectFilter()))

	if err := c.client.SetupStream(c.ctx, c.streamConfig()); err != nil {
		log.Error("Failed to setup ingest stream", zap.Error(err))
		return fmt.Errorf("failed to setup ingest stream '%s': %w", c.cfg.Stream, err)
	}
	if err := c.client.SetupConsumer(c.ctx, c.cfg.Stream, c.consumerConfig()); err != nil {
		log.Error("Failed to setup ingest consumer", zap.Error(err))
		return fmt.Errorf("failed to setup ingest consumer '%s' for stream '%s': %w", c.cfg.Consumer, c.cfg.Stream, err)
	}

	log.Info("Ingest consumer setup complete")
	return nil
}

// Start binds the queue subscription
func (c *IngestConsumer) Start() error {
	log := logger.FromContext(c.ctx)
	sub, err := c.client.SubscribePush(c.subjectFilter(), c.cfg.Consumer, c.cfg.QueueGroup, c.cfg.Stream, c.handleMessage)
	if err != nil {
		log.Error("Failed to subscribe ingest consumer", zap.Error(err), zap.String("group", c.cfg.QueueGroup))
		return fmt.Errorf("failed to subscribe ingest consumer '%s': %w", c.cfg.Consumer, err)
	}
	c.sub = sub
	log.Info("Ingest consumer subscribed", zap.String("group", c.cfg.QueueGroup))
	return nil
}

// Stop drains the subscription and cancels in-flight handlers
func (c *IngestConsumer) Stop() {
	log := logger.FromContext(c.ctx)
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Error("Error draining ingest subscription", zap.Error(err))
		}
	}
	if c.cancel != nil {
		c.cancel()
	}
	log.Info("Ingest consumer stopped")
}

// determineAckNakAction decides the fate of a message from its processing result.
// Retryable errors are redelivered after base*2^(n-1), capped at maxDelay, until
// maxDeliver attempts have been made. Everything else is terminated.
func determineAckNakAction(
	processingErr error,
	numDelivered uint64,
	maxDeliver int,
	baseDelay time.Duration,
	maxDelay time.Duration,
) (AckNakAction, time.Duration) {
	if processingErr == nil {
		return ActionAck, 0
	}
	if !apperrors.IsRetryable(processingErr) || numDelivered >= uint64(maxDeliver) {
		return ActionTerm, 0
	}

	delay := baseDelay
	if numDelivered > 1 {
		delay = baseDelay * time.Duration(1<<(numDelivered-1))
	}
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return ActionNakDelay, delay
}

func toMessageMetadata(msg *nats.Msg, md *nats.MsgMetadata) *model.MessageMetadata {
	var msgID string
	if msg.Header != nil {
		msgID = msg.Header.Get(nats.MsgIdHdr)
	}
	if msgID == "" {
		msgID = fmt.Sprintf("msg-%d", md.Sequence.Stream)
	}
	return &model.MessageMetadata{
		ConsumerSequence: md.Sequence.Consumer,
		StreamSequence:   md.Sequence.Stream,
		NumDelivered:     md.NumDelivered,
		NumPending:       md.NumPending,
		Timestamp:        md.Timestamp,
		Stream:           md.Stream,
		Consumer:         md.Consumer,
		MessageID:        msgID,
		MessageSubject:   msg.Subject,
	}
}

// process routes one message and returns what should happen to it.
func (c *IngestConsumer) process(metadata *model.MessageMetadata, data []byte) (AckNakAction, time.Duration, error) {
	ctx := logger.WithLogger(c.ctx, logger.FromContext(c.ctx).With(
		zap.String("nats_message_id", metadata.MessageID),
		zap.Uint64("stream_sequence", metadata.StreamSequence),
		zap.Uint64("num_delivered", metadata.NumDelivered),
	))
	err := c.router.Route(ctx, metadata, data)
	action, delay := determineAckNakAction(err, metadata.NumDelivered, c.cfg.MaxDeliver, c.cfg.NakBaseDelay, c.cfg.NakMaxDelay)
	return action, delay, err
}

func (c *IngestConsumer) handleMessage(msg *nats.Msg) {
	startTime := utils.Now()
	log := logger.FromContext(c.ctx).With(zap.String("subject", msg.Subject))
	channel, _ := model.ChannelFromSubject(msg.Subject)
	label := string(channel)

	defer func() {
		if r := recover(); r != nil {
			log.Error("[panic] Recovered from panic in message handler",
				zap.Any("panic", r),
				zap.Duration("duration", time.Since(startTime)),
				zap.Stack("stack"),
			)
			observer.IncEventsFailed(label)
			observer.IncEventProcessingAction(label, "panic_nak", "panic")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error("Failed to NAK message after panic", zap.Error(nakErr))
			}
		}
	}()

	md, err := msg.Metadata()
	if err != nil {
		log.Error("Failed to read message metadata", zap.Error(err))
		observer.IncEventProcessingAction(label, "term_metadata_error", "metadata")
		if termErr := msg.Term(); termErr != nil {
			log.Error("Failed to TERM message", zap.Error(termErr))
		}
		return
	}
	observer.IncEventsReceived(label)

	action, delay, processingErr := c.process(toMessageMetadata(msg, md), msg.Data)

	errorType := "none"
	if processingErr != nil {
		errorType = processingErr.Error()
	}
	observer.IncEventProcessingAction(label, action.String(), errorType)

	switch action {
	case ActionAck:
		log.Info("Successfully processed message", zap.Duration("duration", time.Since(startTime)))
		observer.IncEventsProcessed(label)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error("Failed to ACK message", zap.Error(ackErr))
		}
	case ActionNakDelay:
		log.Info("NAKing message for redelivery",
			zap.Error(processingErr),
			zap.Uint64("num_delivered", md.NumDelivered),
			zap.Int("max_deliver", c.cfg.MaxDeliver),
			zap.Duration("nak_delay", delay),
		)
		observer.IncEventsFailed(label)
		if nakErr := msg.NakWithDelay(delay); nakErr != nil {
			log.Error("Failed to NAK message with delay", zap.Error(nakErr))
		}
	case ActionTerm:
		log.Warn("Terminating message",
			zap.Error(processingErr),
			zap.Bool("is_retryable", apperrors.IsRetryable(processingErr)),
			zap.Uint64("num_delivered", md.NumDelivered),
		)
		observer.IncEventsFailed(label)
		if termErr := msg.Term(); termErr != nil {
			log.Error("Failed to TERM message", zap.Error(termErr))
		}
	}
}
