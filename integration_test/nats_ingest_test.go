//go:build integration

package integration_test

import (
	"encoding/json"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/jetstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/upstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/usecase"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

const (
	ingestPrefix = "v1.metrics.ingest"
	eventsPrefix = "v1.metrics.events"
)

func (s *IntegrationSuite) natsConfig() *config.Config {
	cfg := &config.Config{}
	cfg.NATS.Enabled = true
	cfg.NATS.URL = s.NATSURL
	cfg.NATS.Ingest = config.ConsumerNatsConfig{
		MaxAge:        1,
		Stream:        "metrics_ingest_stream",
		Consumer:      "metrics-ingest-consumer",
		QueueGroup:    "metrics-ingest-group",
		SubjectPrefix: ingestPrefix,
		MaxDeliver:    3,
		NakBaseDelay:  100 * time.Millisecond,
		NakMaxDelay:   time.Second,
	}
	cfg.NATS.Events = config.EventsNatsConfig{
		Stream:        "metrics_events_stream",
		SubjectPrefix: eventsPrefix,
		MaxAge:        1,
	}
	cfg.WorkerPools.Notifier = config.WorkerPoolConfig{
		PoolSize:   2,
		ExpiryTime: time.Minute,
	}
	cfg.Upstream = config.UpstreamConfig{
		Timeout:        2 * time.Second,
		Fallback:       config.FallbackNone,
		DefaultChannel: string(model.ChannelLinkedIn),
	}
	return cfg
}

// startProcessor runs the stream consumer and the event notifier against the suite containers.
func (s *IntegrationSuite) startProcessor() *jetstream.Client {
	cfg := s.natsConfig()

	client, err := jetstream.NewClient(s.NATSURL, "integration-processor")
	s.Require().NoError(err)

	notifier, err := usecase.NewPoolNotifier(cfg.WorkerPools.Notifier, client, cfg.NATS.Events.SubjectPrefix, logger.Log)
	s.Require().NoError(err)

	ingest := usecase.NewIngestService(s.Repo, s.Repo, s.Repo, s.Repo, upstream.NewClient(cfg.Upstream.Timeout), notifier, cfg.Upstream)
	processor := usecase.NewProcessor(ingest, client, cfg)
	s.Require().NoError(processor.Setup())
	s.Require().NoError(processor.Start())

	s.T().Cleanup(func() {
		processor.Stop()
		notifier.Stop()
		client.Close()
	})
	return client
}

func (s *IntegrationSuite) TestNATS_AgentReportIsStored() {
	s.startProcessor()

	nc, err := natsgo.Connect(s.NATSURL)
	s.Require().NoError(err)
	defer nc.Close()
	events := make(chan *natsgo.Msg, 4)
	sub, err := nc.ChanSubscribe(model.SubjectFor(eventsPrefix, model.ChannelLinkedIn), events)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	payload := []byte(`{"dailySent":40,"dailyAccepted":10,"total_sent":400,"total_accepted":100}`)
	s.Require().NoError(publishJetStream(s.NATSURL, model.SubjectFor(ingestPrefix, model.ChannelLinkedIn), payload))

	s.Eventually(func() bool {
		n, err := s.CountRows("agent_leads_reports", "channel = $1", "linkedin")
		return err == nil && n == 1
	}, 15*time.Second, 200*time.Millisecond, "linkedin report should be persisted")

	var sent, accepted int64
	s.Require().NoError(s.QueryRowScan("SELECT daily_sent, daily_accepted FROM agent_leads_reports WHERE channel = $1",
		[]interface{}{&sent, &accepted}, "linkedin"))
	s.Equal(int64(40), sent)
	s.Equal(int64(10), accepted)

	select {
	case msg := <-events:
		var event model.IngestedEvent
		s.Require().NoError(json.Unmarshal(msg.Data, &event))
		s.Equal(model.ChannelLinkedIn, event.Channel)
		s.NotZero(event.ReportID)
	case <-time.After(10 * time.Second):
		s.Fail("no ingested event published")
	}
}

func (s *IntegrationSuite) TestNATS_NewsletterReportIsStored() {
	s.startProcessor()

	payload := []byte(`{"campaign_name":"March digest","sendTime":"2025-03-10T08:00:00Z","emails_sent":1000,"unique_opens":250,"unique_clicks":40}`)
	s.Require().NoError(publishJetStream(s.NATSURL, model.SubjectFor(ingestPrefix, model.ChannelNewsletter), payload))

	s.Eventually(func() bool {
		n, err := s.CountRows("newsletter_campaign_reports", "campaign_name = $1", "March digest")
		return err == nil && n == 1
	}, 15*time.Second, 200*time.Millisecond)

	var openRate float64
	s.Require().NoError(s.QueryRowScan("SELECT open_rate FROM newsletter_campaign_reports WHERE campaign_name = $1",
		[]interface{}{&openRate}, "March digest"))
	s.InDelta(0.25, openRate, 0.0001)
}

func (s *IntegrationSuite) TestNATS_InvalidPayloadIsDropped() {
	s.startProcessor()

	s.Require().NoError(publishJetStream(s.NATSURL, model.SubjectFor(ingestPrefix, model.ChannelFacebook), []byte(`{not json`)))
	s.Require().NoError(publishJetStream(s.NATSURL, model.SubjectFor(ingestPrefix, model.ChannelInstagram), []byte(`{"dailySent":5}`)))

	s.Eventually(func() bool {
		n, err := s.CountRows("agent_leads_reports", "channel = $1", "instagram")
		return err == nil && n == 1
	}, 15*time.Second, 200*time.Millisecond, "the valid report behind the malformed one is still processed")

	n, err := s.CountRows("agent_leads_reports", "channel = $1", "facebook")
	s.Require().NoError(err)
	s.Zero(n)
}
