package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

// EventPublisher is the publish side of the JetStream client.
type EventPublisher interface {
	Publish(subject string, data []byte, headers map[string]string) error
}

// EventNotifier announces stored reports to downstream consumers.
type EventNotifier interface {
	Notify(ctx context.Context, event model.IngestedEvent)
	Stop()
}

// NoopNotifier is used when NATS is disabled.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, model.IngestedEvent) {}
func (NoopNotifier) Stop()                                        {}

// notifyTask holds the data for one publish.
type notifyTask struct {
	Ctx   context.Context // detached from the request, keeps only the logger
	Event model.IngestedEvent
}

// PoolNotifier publishes ingested events from a nonblocking ants worker pool.
// When every worker is busy the event is dropped and counted as "overload".
type PoolNotifier struct {
	pool          *ants.PoolWithFunc
	publisher     EventPublisher
	subjectPrefix string
	baseLogger    *zap.Logger
}

var _ EventNotifier = (*PoolNotifier)(nil)

// NewPoolNotifier creates the notifier worker pool.
func NewPoolNotifier(cfg config.WorkerPoolConfig, publisher EventPublisher, subjectPrefix string, baseLogger *zap.Logger) (*PoolNotifier, error) {
	n := &PoolNotifier{
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
		baseLogger:    baseLogger.Named("event_notifier"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(notifyTask)
		if !ok {
			n.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		n.publish(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			n.baseLogger.Error("Panic recovered in event notifier", zap.Any("panic_error", p), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier pool: %w", err)
	}
	n.pool = pool
	n.baseLogger.Info("Event notifier pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
		zap.String("subject_prefix", subjectPrefix),
	)
	return n, nil
}

// Notify hands the event to the pool without waiting for a free worker.
// Failures are logged and counted only.
func (n *PoolNotifier) Notify(ctx context.Context, event model.IngestedEvent) {
	channel := string(event.Channel)
	observer.IncNotifierTasksSubmitted(channel)
	observer.SetNotifierBusyWorkers(n.pool.Running())

	task := notifyTask{
		Ctx:   logger.WithLogger(context.Background(), logger.FromContextOr(ctx, n.baseLogger)),
		Event: event,
	}
	if err := n.pool.Invoke(task); err != nil {
		status := "submit_error"
		if errors.Is(err, ants.ErrPoolOverload) {
			status = "overload"
		} else if errors.Is(err, ants.ErrPoolClosed) {
			status = "closed"
		}
		n.baseLogger.Warn("Failed to submit notify task",
			zap.String("channel", channel),
			zap.Int64("report_id", event.ReportID),
			zap.Error(err),
		)
		observer.IncNotifierTasksProcessed(channel, status)
	}
}

func (n *PoolNotifier) publish(task notifyTask) {
	channel := string(task.Event.Channel)
	log := logger.FromContextOr(task.Ctx, n.baseLogger).With(
		zap.String("channel", channel),
		zap.Int64("report_id", task.Event.ReportID),
	)

	data, err := json.Marshal(task.Event)
	if err != nil {
		log.Error("Failed to encode ingested event", zap.Error(err))
		observer.IncNotifierTasksProcessed(channel, "encode_error")
		return
	}

	subject := model.SubjectFor(n.subjectPrefix, task.Event.Channel)
	headers := map[string]string{"Nats-Msg-Id": uuid.NewString()}

	start := time.Now()
	if err := n.publisher.Publish(subject, data, headers); err != nil {
		log.Warn("Failed to publish ingested event", zap.String("subject", subject), zap.Error(err))
		observer.IncNotifierTasksProcessed(channel, "publish_error")
		return
	}
	observer.IncNotifierTasksProcessed(channel, "success")
	log.Debug("Published ingested event", zap.String("subject", subject), zap.Duration("duration", time.Since(start)))
}

// Stop waits for in-flight publishes to finish, then releases the pool.
func (n *PoolNotifier) Stop() {
	if n.pool == nil {
		return
	}
	n.baseLogger.Info("Releasing event notifier pool")
	start := time.Now()
	if err := n.pool.ReleaseTimeout(5 * time.Second); err != nil {
		n.baseLogger.Warn("Event notifier pool did not drain in time", zap.Error(err))
	}
	n.baseLogger.Info("Event notifier pool released", zap.Duration("duration", time.Since(start)))
}
