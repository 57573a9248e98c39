package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/storage"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/upstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/validator"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// Ingestion sources, recorded in metrics and published events.
const (
	SourceAPI      = "api"
	SourceWebhook  = "webhook"
	SourceNATS     = "nats"
	SourceSchedule = "schedule"
	SourceSample   = "sample"
)

// Reasons recorded when the fallback policy synthesizes counts.
const (
	reasonUpstreamError   = "upstream_error"
	reasonUpstreamTimeout = "upstream_timeout"
	reasonUnparseable     = "unparseable_response"
	reasonMissingFields   = "missing_fields"
)

// Triggerer calls an upstream automation webhook.
type Triggerer interface {
	Trigger(ctx context.Context, webhookURL string, req upstream.TriggerRequest) (*upstream.Response, error)
}

// TriggerInput selects the channel for a trigger. WebhookURL is honored only
// for SourceSchedule; other sources use the configured upstream.
type TriggerInput struct {
	Channel    string `json:"channel"`
	WebhookURL string `json:"webhookUrl"`
	Source     string `json:"-"`
}

// TriggerResult is returned to the caller of a webhook trigger.
type TriggerResult struct {
	Message     string                  `json:"message"`
	Report      *model.AgentLeadsReport `json:"report"`
	Synthesized bool                    `json:"synthesized"`
}

// IngestService normalizes and stores reports from every entry point.
type IngestService struct {
	metricRepo     storage.MetricSampleRepo
	agentRepo      storage.AgentLeadsRepo
	activityRepo   storage.ActivityLogRepo
	newsletterRepo storage.NewsletterRepo
	upstream       Triggerer
	notifier       EventNotifier
	cfg            config.UpstreamConfig
	faker          *gofakeit.Faker
	now            func() time.Time
}

// NewIngestService creates the ingestion service. A nil notifier disables event publishing.
func NewIngestService(
	metricRepo storage.MetricSampleRepo,
	agentRepo storage.AgentLeadsRepo,
	activityRepo storage.ActivityLogRepo,
	newsletterRepo storage.NewsletterRepo,
	trigger Triggerer,
	notifier EventNotifier,
	cfg config.UpstreamConfig,
) *IngestService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &IngestService{
		metricRepo:     metricRepo,
		agentRepo:      agentRepo,
		activityRepo:   activityRepo,
		newsletterRepo: newsletterRepo,
		upstream:       trigger,
		notifier:       notifier,
		cfg:            cfg,
		faker:          gofakeit.New(time.Now().UnixNano()),
		now:            utils.Now,
	}
}

// Ingest stores one report for channel. Newsletter payloads become campaign reports,
// every agent channel an agent leads report.
func (s *IngestService) Ingest(ctx context.Context, channel model.Channel, payload model.RawPayload, source string) (model.Report, error) {
	switch {
	case channel == model.ChannelNewsletter:
		report, err := s.IngestNewsletter(ctx, payload, source)
		if err != nil {
			return nil, err
		}
		return report, nil
	case channel.IsAgent():
		report, err := s.IngestAgentLeads(ctx, channel, payload, source)
		if err != nil {
			return nil, err
		}
		return report, nil
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", apperrors.ErrValidation, channel)
	}
}

// IngestAgentLeads normalizes payload and appends it with its activity entries.
func (s *IngestService) IngestAgentLeads(ctx context.Context, channel model.Channel, payload model.RawPayload, source string) (*model.AgentLeadsReport, error) {
	start := time.Now()
	report, _, err := NormalizeAgentLeads(channel, payload, s.now())
	if err != nil {
		observer.ObserveIngestion(string(channel), source, apperrors.Kind(err), time.Since(start))
		logger.FromContext(ctx).Warn("Rejected agent leads payload", zap.String("channel", string(channel)), zap.Error(err))
		return nil, err
	}
	if err := s.storeAgentLeads(ctx, report, source, ""); err != nil {
		observer.ObserveIngestion(string(channel), source, apperrors.Kind(err), time.Since(start))
		return nil, err
	}
	observer.ObserveIngestion(string(channel), source, "success", time.Since(start))
	return report, nil
}

// storeAgentLeads writes the report together with the agent activity and any warnings.
// synthReason is non-empty when the counts were produced by the fallback policy.
func (s *IngestService) storeAgentLeads(ctx context.Context, report *model.AgentLeadsReport, source, synthReason string) error {
	log := logger.FromContext(ctx).With(zap.String("channel", string(report.Channel)), zap.String("source", source))
	name := report.Channel.DisplayName()

	activities := []*model.ActivityLogEntry{{
		Timestamp: s.now(),
		Type:      model.ActivityAgent,
		Message:   fmt.Sprintf("%s agent reported %d sent and %d accepted", name, report.DailySent, report.DailyAccepted),
		Metadata: jsonBlob(map[string]interface{}{
			"channel":       report.Channel,
			"source":        source,
			"dailySent":     report.DailySent,
			"dailyAccepted": report.DailyAccepted,
			"synthesized":   synthReason != "",
		}),
	}}

	if report.AcceptedExceedsSent() {
		log.Warn("Agent reported more accepted than sent invitations",
			zap.Int64("daily_sent", report.DailySent),
			zap.Int64("daily_accepted", report.DailyAccepted),
			zap.Int64("total_sent", report.TotalSent),
			zap.Int64("total_accepted", report.TotalAccepted),
		)
		activities = append(activities, &model.ActivityLogEntry{
			Timestamp: s.now(),
			Type:      model.ActivityWarning,
			Message: fmt.Sprintf("%s agent reported more accepted than sent invitations (daily %d/%d, total %d/%d)",
				name, report.DailyAccepted, report.DailySent, report.TotalAccepted, report.TotalSent),
		})
	}

	if synthReason != "" {
		activities = append(activities, &model.ActivityLogEntry{
			Timestamp: s.now(),
			Type:      model.ActivityWarning,
			Message:   fmt.Sprintf("%s webhook data unavailable (%s), stored synthesized values", name, strings.ReplaceAll(synthReason, "_", " ")),
			Metadata:  jsonBlob(map[string]interface{}{"reason": synthReason}),
		})
	}

	if err := s.agentRepo.SaveAgentLeadsReport(ctx, report, activities...); err != nil {
		return err
	}

	log.Info("Stored agent leads report",
		zap.Int64("report_id", report.ID),
		zap.Int64("daily_sent", report.DailySent),
		zap.Int64("daily_accepted", report.DailyAccepted),
		zap.Bool("synthesized", synthReason != ""),
	)
	s.notifier.Notify(ctx, model.IngestedEvent{
		Channel:     report.Channel,
		ReportID:    report.ID,
		Timestamp:   report.Timestamp,
		Source:      source,
		Synthesized: synthReason != "",
	})
	return nil
}

// IngestNewsletter normalizes one campaign report and stores it.
func (s *IngestService) IngestNewsletter(ctx context.Context, payload model.RawPayload, source string) (*model.NewsletterCampaignReport, error) {
	start := time.Now()
	channel := string(model.ChannelNewsletter)

	report, err := NormalizeNewsletter(payload, s.now())
	if err != nil {
		observer.ObserveIngestion(channel, source, apperrors.Kind(err), time.Since(start))
		return nil, err
	}

	activity := &model.ActivityLogEntry{
		Timestamp: s.now(),
		Type:      model.ActivityRefresh,
		Message: fmt.Sprintf("Newsletter campaign %q recorded: %d sent, %.1f%% opened",
			report.CampaignName, report.EmailsSent, report.OpenRate*100),
	}
	if err := s.newsletterRepo.SaveNewsletterReports(ctx, []*model.NewsletterCampaignReport{report}, activity); err != nil {
		observer.ObserveIngestion(channel, source, apperrors.Kind(err), time.Since(start))
		return nil, err
	}
	observer.ObserveIngestion(channel, source, "success", time.Since(start))

	s.notifier.Notify(ctx, model.IngestedEvent{
		Channel:   model.ChannelNewsletter,
		ReportID:  report.ID,
		Timestamp: report.SendTime,
		Source:    source,
	})
	return report, nil
}

// sampleCampaigns are the fixed campaigns stored by SeedNewsletterSamples.
var sampleCampaigns = []struct {
	name, subject                         string
	recipients, hard, soft, syntax        int64
	sent, opens, uniqueOpens              int64
	clicks, uniqueClicks, unsubs, daysAgo int64
}{
	{"Monthly Product Update", "What's new this month", 512, 8, 3, 1, 500, 61, 44, 15, 11, 2, 2},
	{"Webinar Invitation", "Join our live outreach masterclass", 1240, 21, 12, 2, 1205, 298, 241, 77, 60, 5, 9},
	{"Customer Success Stories", "How teams doubled their reply rate", 980, 10, 6, 0, 964, 205, 173, 41, 29, 3, 16},
}

// SeedNewsletterSamples stores the fixed set of sample campaigns in one transaction.
func (s *IngestService) SeedNewsletterSamples(ctx context.Context) ([]*model.NewsletterCampaignReport, error) {
	now := s.now()
	reports := make([]*model.NewsletterCampaignReport, 0, len(sampleCampaigns))
	for _, c := range sampleCampaigns {
		r := &model.NewsletterCampaignReport{
			CampaignName:    c.name,
			Subject:         c.subject,
			TotalRecipients: c.recipients,
			EmailsSent:      c.sent,
			HardBounces:     c.hard,
			SoftBounces:     c.soft,
			SyntaxBounces:   c.syntax,
			TotalBounces:    c.hard + c.soft + c.syntax,
			TotalOpens:      c.opens,
			UniqueOpens:     c.uniqueOpens,
			TotalClicks:     c.clicks,
			UniqueClicks:    c.uniqueClicks,
			Unsubscribes:    c.unsubs,
			SendTime:        utils.StartOfDay(now).AddDate(0, 0, -int(c.daysAgo)).Add(10 * time.Hour),
			RawData:         jsonBlob(map[string]interface{}{"sample": true}),
		}
		r.ComputeRates()
		reports = append(reports, r)
	}

	activity := &model.ActivityLogEntry{
		Timestamp: now,
		Type:      model.ActivityRefresh,
		Message:   fmt.Sprintf("Seeded %d sample newsletter campaigns", len(reports)),
	}
	if err := s.newsletterRepo.SaveNewsletterReports(ctx, reports, activity); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Seeded sample newsletter campaigns", zap.Int("count", len(reports)))
	return reports, nil
}

// RecordMetricSample appends a manually posted metric sample with a refresh activity.
func (s *IngestService) RecordMetricSample(ctx context.Context, payload model.RawPayload) (*model.MetricSample, error) {
	start := time.Now()
	sample, err := NormalizeMetricSample(payload, s.now())
	if err != nil {
		observer.ObserveIngestion("metrics", SourceAPI, apperrors.Kind(err), time.Since(start))
		return nil, err
	}

	activities := []*model.ActivityLogEntry{{
		Timestamp: s.now(),
		Type:      model.ActivityRefresh,
		Message:   fmt.Sprintf("Manual metrics recorded: %d sent, %d accepted", sample.InvitesSent, sample.InvitesAccepted),
	}}
	if sample.InvitesAccepted > sample.InvitesSent {
		logger.FromContext(ctx).Warn("Metric sample has more accepted than sent invitations",
			zap.Int64("invites_sent", sample.InvitesSent),
			zap.Int64("invites_accepted", sample.InvitesAccepted),
		)
		activities = append(activities, &model.ActivityLogEntry{
			Timestamp: s.now(),
			Type:      model.ActivityWarning,
			Message: fmt.Sprintf("Manual metrics report more accepted than sent invitations (%d/%d)",
				sample.InvitesAccepted, sample.InvitesSent),
		})
	}
	if err := s.metricRepo.SaveMetricSample(ctx, sample, activities...); err != nil {
		observer.ObserveIngestion("metrics", SourceAPI, apperrors.Kind(err), time.Since(start))
		return nil, err
	}
	observer.ObserveIngestion("metrics", SourceAPI, "success", time.Since(start))
	return sample, nil
}

// RecordActivity appends one activity entry.
func (s *IngestService) RecordActivity(ctx context.Context, payload model.RawPayload) (*model.ActivityLogEntry, error) {
	entry, err := NormalizeActivity(payload, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.activityRepo.SaveActivity(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// TriggerWebhook calls the upstream agent webhook and stores its answer.
//
// With the synthesize fallback, an unreachable, failing or unparseable upstream
// yields a fully synthesized report, and counts absent from a usable answer are
// filled in. Synthesized reports carry "synthesized": true in processData.
func (s *IngestService) TriggerWebhook(ctx context.Context, in TriggerInput) (*TriggerResult, error) {
	start := time.Now()
	source := in.Source
	if source == "" {
		source = SourceWebhook
	}

	channelName := in.Channel
	if strings.TrimSpace(channelName) == "" {
		channelName = s.cfg.DefaultChannel
	}
	channel, err := model.ParseChannel(channelName)
	if err != nil {
		return nil, err
	}
	if !channel.IsAgent() {
		return nil, fmt.Errorf("%w: channel %q has no agent webhook", apperrors.ErrValidation, channel)
	}

	webhookURL, err := s.resolveWebhookURL(in, source)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(zap.String("channel", string(channel)), zap.String("source", source))
	fail := func(err error) (*TriggerResult, error) {
		observer.ObserveIngestion(string(channel), source, apperrors.Kind(err), time.Since(start))
		return nil, err
	}

	resp, err := s.upstream.Trigger(ctx, webhookURL, upstream.TriggerRequest{
		Channel:     channel,
		TriggeredAt: s.now(),
		Source:      source,
	})

	var (
		payload model.RawPayload
		reason  string
	)
	switch {
	case err != nil:
		if !s.cfg.SynthesizeOnFailure() || apperrors.IsValidationError(err) {
			return fail(err)
		}
		reason = reasonUpstreamError
		if apperrors.IsUpstreamTimeoutError(err) {
			reason = reasonUpstreamTimeout
		}
		log.Warn("Upstream webhook failed, synthesizing report", zap.Error(err))
	case resp.ParseErr != nil:
		if !s.cfg.SynthesizeOnFailure() {
			return fail(fmt.Errorf("%w: unusable webhook response: %v", apperrors.ErrUpstream, resp.ParseErr))
		}
		reason = reasonUnparseable
		log.Warn("Upstream webhook answer unusable, synthesizing report", zap.Error(resp.ParseErr))
	default:
		payload = resp.Payload
	}

	var report *model.AgentLeadsReport
	if payload == nil {
		report, err = s.synthesizeAgentLeads(channel, nil)
	} else {
		var missing []string
		report, missing, err = NormalizeAgentLeads(channel, payload, s.now())
		if err == nil && len(missing) > 0 && s.cfg.SynthesizeOnFailure() {
			reason = reasonMissingFields
			log.Warn("Upstream webhook answer lacks counts, synthesizing them", zap.Strings("missing", missing))
			report, err = s.synthesizeAgentLeads(channel, payload, missing...)
		}
	}
	if err != nil {
		return fail(err)
	}

	if reason != "" {
		report.ProcessData = markSynthesized(report.ProcessData, reason)
		observer.IncFallbackSynthesized(string(channel), reason)
	}

	if err := s.storeAgentLeads(ctx, report, source, reason); err != nil {
		return fail(err)
	}
	observer.ObserveIngestion(string(channel), source, "success", time.Since(start))

	msg := fmt.Sprintf("%s agent data refreshed", channel.DisplayName())
	if reason != "" {
		msg = fmt.Sprintf("%s agent data refreshed with synthesized values", channel.DisplayName())
	}
	return &TriggerResult{Message: msg, Report: report, Synthesized: reason != ""}, nil
}

// resolveWebhookURL picks the trigger target. Only schedules carry their own
// URL; every other caller is bound to the configured upstream.
func (s *IngestService) resolveWebhookURL(in TriggerInput, source string) (string, error) {
	webhookURL := s.cfg.WebhookURL
	if override := strings.TrimSpace(in.WebhookURL); override != "" {
		if source != SourceSchedule {
			return "", fmt.Errorf("%w: webhookUrl cannot be set on a %s trigger", apperrors.ErrValidation, source)
		}
		webhookURL = override
	}
	if webhookURL == "" {
		return "", fmt.Errorf("%w: no webhook url configured", apperrors.ErrValidation)
	}
	if err := validator.ValidateVar(webhookURL, "required,http_url"); err != nil {
		return "", fmt.Errorf("%w: webhook url %q is not an http(s) url", apperrors.ErrValidation, webhookURL)
	}
	return webhookURL, nil
}

// synthesizeAgentLeads builds a report from plausible random counts. With a base
// payload only the listed fields are replaced; without one every count is generated.
func (s *IngestService) synthesizeAgentLeads(channel model.Channel, base model.RawPayload, fields ...string) (*model.AgentLeadsReport, error) {
	fake := model.RawPayload(model.FakeAgentPayload(s.faker, channel))
	delete(fake, "csvLink")
	fake["timestamp"] = utils.FormatISO8601(s.now())

	merged := fake
	if base != nil {
		merged = make(model.RawPayload, len(base)+len(fields))
		for k, v := range base {
			merged[k] = v
		}
		for _, f := range fields {
			v, _, _ := fake.Int(f)
			merged[f] = v
		}
	}

	report, _, err := NormalizeAgentLeads(channel, merged, s.now())
	return report, err
}

func jsonBlob(fields map[string]interface{}) datatypes.JSON {
	return datatypes.JSON(utils.MarshalObject(fields))
}

// markSynthesized merges the fallback marker into an existing processData object.
func markSynthesized(processData datatypes.JSON, reason string) datatypes.JSON {
	fields := map[string]interface{}{}
	if len(processData) > 0 {
		if err := json.Unmarshal(processData, &fields); err != nil {
			fields = map[string]interface{}{"original": json.RawMessage(processData)}
		}
	}
	fields["synthesized"] = true
	fields["synthesisReason"] = reason
	return jsonBlob(fields)
}
