package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/ingestion"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/jetstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// ReportIngester stores one channel report.
type ReportIngester interface {
	Ingest(ctx context.Context, channel model.Channel, payload model.RawPayload, source string) (model.Report, error)
}

// Processor wires the NATS ingest consumer to the ingestion service.
type Processor struct {
	ingester  ReportIngester
	jsClient  jetstream.ClientInterface
	consumer  ingestion.ConsumerInterface
	router    ingestion.RouterInterface
	eventsCfg config.EventsNatsConfig
}

// NewProcessor creates a processor consuming cfg.NATS.Ingest.
func NewProcessor(ingester ReportIngester, jsClient jetstream.ClientInterface, cfg *config.Config) *Processor {
	router := ingestion.NewRouter()
	return &Processor{
		ingester:  ingester,
		jsClient:  jsClient,
		consumer:  ingestion.NewIngestConsumer(jsClient, router, cfg.NATS.Ingest),
		router:    router,
		eventsCfg: cfg.NATS.Events,
	}
}

// GetRouter returns the processor's channel router.
func (p *Processor) GetRouter() ingestion.RouterInterface {
	return p.router
}

// HandleMessage decodes a report and ingests it for channel. Malformed or
// invalid reports are fatal; anything else may succeed on redelivery.
func (p *Processor) HandleMessage(ctx context.Context, channel model.Channel, metadata *model.MessageMetadata, data []byte) error {
	start := utils.Now()
	payload, err := model.ParsePayload(data)
	if err != nil {
		observer.ObserveIngestion(string(channel), SourceNATS, "invalid", time.Since(start))
		return apperrors.NewFatal(err, "decode %s report", channel)
	}

	report, err := p.ingester.Ingest(ctx, channel, payload, SourceNATS)
	if err != nil {
		if apperrors.IsValidationError(err) {
			return apperrors.NewFatal(err, "ingest %s report", channel)
		}
		return apperrors.NewRetryable(err, "ingest %s report", channel)
	}

	logger.FromContext(ctx).Debug("Report ingested from stream",
		zap.String("channel", string(channel)),
		zap.Int64("report_id", report.ReportID()),
	)
	return nil
}

// Setup registers channel handlers and creates the streams.
func (p *Processor) Setup() error {
	for _, ch := range model.AgentChannels {
		p.router.Register(ch, p.HandleMessage)
	}
	p.router.Register(model.ChannelNewsletter, p.HandleMessage)

	if err := p.consumer.Setup(); err != nil {
		return fmt.Errorf("failed to setup ingest consumer: %w", err)
	}

	if p.eventsCfg.Stream != "" {
		streamCfg := &nats.StreamConfig{
			Name:      p.eventsCfg.Stream,
			Subjects:  []string{model.SubjectFor(p.eventsCfg.SubjectPrefix, "*")},
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
			MaxAge:    time.Duration(p.eventsCfg.MaxAge*24) * time.Hour,
		}
		if err := p.jsClient.SetupStream(context.Background(), streamCfg); err != nil {
			return fmt.Errorf("failed to setup events stream: %w", err)
		}
	}

	logger.Log.Info("Processor setup complete")
	return nil
}

// Start begins consuming.
func (p *Processor) Start() error {
	if err := p.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start ingest consumer: %w", err)
	}
	logger.Log.Info("Processor started")
	return nil
}

// Stop drains the consumer.
func (p *Processor) Stop() {
	p.consumer.Stop()
	logger.Log.Info("Processor stopped")
}
