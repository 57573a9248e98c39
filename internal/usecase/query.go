package usecase

import (
	"context"
	"fmt"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/storage"
)

// QueryService serves read-only views of the stored series. Nothing here writes.
type QueryService struct {
	metricRepo     storage.MetricSampleRepo
	agentRepo      storage.AgentLeadsRepo
	activityRepo   storage.ActivityLogRepo
	newsletterRepo storage.NewsletterRepo
}

func NewQueryService(
	metricRepo storage.MetricSampleRepo,
	agentRepo storage.AgentLeadsRepo,
	activityRepo storage.ActivityLogRepo,
	newsletterRepo storage.NewsletterRepo,
) *QueryService {
	return &QueryService{
		metricRepo:     metricRepo,
		agentRepo:      agentRepo,
		activityRepo:   activityRepo,
		newsletterRepo: newsletterRepo,
	}
}

// LatestMetricSample returns the newest sample or nil.
func (q *QueryService) LatestMetricSample(ctx context.Context) (*model.MetricSample, error) {
	sample, err := q.metricRepo.LatestMetricSample(ctx)
	if err != nil || sample == nil {
		return nil, err
	}
	sample.Recompute()
	return sample, nil
}

// MetricSamplesInRange returns samples dated within r, oldest first.
func (q *QueryService) MetricSamplesInRange(ctx context.Context, r DateRange) ([]model.MetricSample, error) {
	samples, err := q.metricRepo.FindMetricSamplesInRange(ctx, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	for i := range samples {
		samples[i].Recompute()
	}
	return samples, nil
}

// MetricsSummary totals the samples within r.
func (q *QueryService) MetricsSummary(ctx context.Context, r DateRange) (model.MetricsSummary, error) {
	samples, err := q.metricRepo.FindMetricSamplesInRange(ctx, r.Start, r.End)
	if err != nil {
		return model.MetricsSummary{}, err
	}
	return model.Summarize(samples, r.Start, r.End), nil
}

// LatestAgentLeads returns the newest report for an agent channel or nil.
func (q *QueryService) LatestAgentLeads(ctx context.Context, channel model.Channel) (*model.AgentLeadsReport, error) {
	if !channel.IsAgent() {
		return nil, fmt.Errorf("%w: channel %q does not carry agent reports", apperrors.ErrValidation, channel)
	}
	return q.agentRepo.LatestAgentLeadsReport(ctx, channel)
}

// AgentLeadsInRange returns the reports of an agent channel within r, oldest first.
func (q *QueryService) AgentLeadsInRange(ctx context.Context, channel model.Channel, r DateRange) ([]model.AgentLeadsReport, error) {
	if !channel.IsAgent() {
		return nil, fmt.Errorf("%w: channel %q does not carry agent reports", apperrors.ErrValidation, channel)
	}
	return q.agentRepo.FindAgentLeadsReportsInRange(ctx, channel, r.Start, r.End)
}

// Latest returns the newest report of any channel. A channel without rows yields nil.
func (q *QueryService) Latest(ctx context.Context, channel model.Channel) (model.Report, error) {
	switch {
	case channel == model.ChannelNewsletter:
		r, err := q.newsletterRepo.LatestNewsletterReport(ctx)
		if err != nil || r == nil {
			return nil, err
		}
		return r, nil
	case channel.IsAgent():
		r, err := q.agentRepo.LatestAgentLeadsReport(ctx, channel)
		if err != nil || r == nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", apperrors.ErrValidation, channel)
	}
}

// Range returns the reports of any channel within r, oldest first.
func (q *QueryService) Range(ctx context.Context, channel model.Channel, r DateRange) ([]model.Report, error) {
	var out []model.Report
	switch {
	case channel == model.ChannelNewsletter:
		rows, err := q.newsletterRepo.FindNewsletterReportsInRange(ctx, r.Start, r.End)
		if err != nil {
			return nil, err
		}
		out = make([]model.Report, 0, len(rows))
		for i := range rows {
			out = append(out, &rows[i])
		}
	case channel.IsAgent():
		rows, err := q.agentRepo.FindAgentLeadsReportsInRange(ctx, channel, r.Start, r.End)
		if err != nil {
			return nil, err
		}
		out = make([]model.Report, 0, len(rows))
		for i := range rows {
			out = append(out, &rows[i])
		}
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", apperrors.ErrValidation, channel)
	}
	return out, nil
}

// RecentActivity returns the newest limit entries, newest first.
func (q *QueryService) RecentActivity(ctx context.Context, limit int) ([]model.ActivityLogEntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", apperrors.ErrValidation)
	}
	return q.activityRepo.RecentActivities(ctx, limit)
}

// LatestNewsletter returns the campaign with the newest send time or nil.
func (q *QueryService) LatestNewsletter(ctx context.Context) (*model.NewsletterCampaignReport, error) {
	return q.newsletterRepo.LatestNewsletterReport(ctx)
}

// RecentNewsletters lists campaigns newest first.
func (q *QueryService) RecentNewsletters(ctx context.Context, limit int) ([]model.NewsletterCampaignReport, error) {
	return q.newsletterRepo.RecentNewsletterReports(ctx, limit)
}

// NewslettersInRange lists campaigns sent within r, oldest first.
func (q *QueryService) NewslettersInRange(ctx context.Context, r DateRange) ([]model.NewsletterCampaignReport, error) {
	return q.newsletterRepo.FindNewsletterReportsInRange(ctx, r.Start, r.End)
}
