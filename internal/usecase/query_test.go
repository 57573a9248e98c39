package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	storagemock "gitlab.com/timkado/api/outreach-metrics-service/internal/storage/mock"
)

func newTestQueryService() (*QueryService, *storagemock.RepositoryMock) {
	repo := new(storagemock.RepositoryMock)
	return NewQueryService(repo, repo, repo, repo), repo
}

func TestQuery_LatestMetricSample(t *testing.T) {
	ctx := testCtx(t)

	t.Run("recomputes the ratio", func(t *testing.T) {
		q, repo := newTestQueryService()
		repo.On("LatestMetricSample", mock.Anything).Return(&model.MetricSample{InvitesSent: 40, InvitesAccepted: 10}, nil)

		s, err := q.LatestMetricSample(ctx)
		require.NoError(t, err)
		assert.Equal(t, 25.0, s.AcceptanceRatio)
	})

	t.Run("empty series", func(t *testing.T) {
		q, repo := newTestQueryService()
		repo.On("LatestMetricSample", mock.Anything).Return(nil, nil)

		s, err := q.LatestMetricSample(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}

func TestQuery_MetricsSummary(t *testing.T) {
	ctx := testCtx(t)
	q, repo := newTestQueryService()
	r := DateRange{Start: day(2025, 3, 1), End: day(2025, 3, 8).Add(-time.Nanosecond)}
	repo.On("FindMetricSamplesInRange", mock.Anything, r.Start, r.End).Return([]model.MetricSample{
		{InvitesSent: 10, InvitesAccepted: 1},
		{InvitesSent: 30, InvitesAccepted: 9},
	}, nil)

	s, err := q.MetricsSummary(ctx, r)

	require.NoError(t, err)
	assert.Equal(t, 2, s.Samples)
	assert.Equal(t, int64(40), s.InvitesSent)
	assert.Equal(t, 25.0, s.AcceptanceRatio)
	assert.Equal(t, r.Start, s.From)
}

func TestQuery_MetricSamplesInRange(t *testing.T) {
	ctx := testCtx(t)
	q, repo := newTestQueryService()
	r := DateRange{Start: day(2025, 3, 1), End: day(2025, 3, 2)}
	repo.On("FindMetricSamplesInRange", mock.Anything, r.Start, r.End).Return([]model.MetricSample{
		{InvitesSent: 4, InvitesAccepted: 1},
		{InvitesSent: 0, InvitesAccepted: 0},
	}, nil)

	samples, err := q.MetricSamplesInRange(ctx, r)

	require.NoError(t, err)
	assert.Equal(t, 25.0, samples[0].AcceptanceRatio)
	assert.Zero(t, samples[1].AcceptanceRatio)
}

func TestQuery_AgentLeads(t *testing.T) {
	ctx := testCtx(t)
	q, repo := newTestQueryService()
	latest := &model.AgentLeadsReport{ID: 3, Channel: model.ChannelInstagram}
	repo.On("LatestAgentLeadsReport", mock.Anything, model.ChannelInstagram).Return(latest, nil)
	repo.On("LatestAgentLeadsReport", mock.Anything, model.ChannelVideo).Return(nil, nil)

	got, err := q.LatestAgentLeads(ctx, model.ChannelInstagram)
	require.NoError(t, err)
	assert.Equal(t, latest, got)

	report, err := q.Latest(ctx, model.ChannelVideo)
	require.NoError(t, err)
	assert.Nil(t, report, "no rows yields a nil interface")

	_, err = q.LatestAgentLeads(ctx, model.ChannelNewsletter)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestQuery_Range(t *testing.T) {
	ctx := testCtx(t)
	q, repo := newTestQueryService()
	r := DateRange{Start: day(2025, 3, 1), End: day(2025, 3, 31)}
	repo.On("FindAgentLeadsReportsInRange", mock.Anything, model.ChannelLinkedIn, r.Start, r.End).Return([]model.AgentLeadsReport{
		{ID: 1, Channel: model.ChannelLinkedIn, Timestamp: day(2025, 3, 2)},
		{ID: 2, Channel: model.ChannelLinkedIn, Timestamp: day(2025, 3, 5)},
	}, nil)
	repo.On("FindNewsletterReportsInRange", mock.Anything, r.Start, r.End).Return([]model.NewsletterCampaignReport{
		{ID: 8, SendTime: day(2025, 3, 3)},
	}, nil)

	reports, err := q.Range(ctx, model.ChannelLinkedIn, r)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(1), reports[0].ReportID())
	assert.True(t, reports[0].ReportTime().Before(reports[1].ReportTime()))

	reports, err = q.Range(ctx, model.ChannelNewsletter, r)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, model.ChannelNewsletter, reports[0].ReportChannel())

	_, err = q.Range(ctx, model.Channel("fax"), r)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestQuery_RecentActivity(t *testing.T) {
	ctx := testCtx(t)
	q, repo := newTestQueryService()
	entries := []model.ActivityLogEntry{{ID: 2}, {ID: 1}}
	repo.On("RecentActivities", mock.Anything, 2).Return(entries, nil)
	repo.On("RecentActivities", mock.Anything, 0).Return([]model.ActivityLogEntry{}, nil)

	got, err := q.RecentActivity(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	got, err = q.RecentActivity(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = q.RecentActivity(ctx, -1)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestQuery_Newsletters(t *testing.T) {
	ctx := testCtx(t)
	q, repo := newTestQueryService()
	repo.On("LatestNewsletterReport", mock.Anything).Return(&model.NewsletterCampaignReport{ID: 5}, nil)
	repo.On("RecentNewsletterReports", mock.Anything, 10).Return([]model.NewsletterCampaignReport{{ID: 5}, {ID: 4}}, nil)

	latest, err := q.LatestNewsletter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), latest.ID)

	recent, err := q.RecentNewsletters(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
