//go:build integration

package integration_test

import (
	"context"
	"strings"
	"time"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

func (s *IntegrationSuite) TestRepo_MetricSamplesLatestAndRange() {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sample := model.NewMetricSample(&model.MetricSample{
			Date:            base.AddDate(0, 0, i),
			InvitesSent:     int64(10 * (i + 1)),
			InvitesAccepted: int64(i + 1),
		})
		s.Require().NoError(s.Repo.SaveMetricSample(ctx, sample))
		s.NotZero(sample.ID)
	}

	latest, err := s.Repo.LatestMetricSample(ctx)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(base.AddDate(0, 0, 4), latest.Date.UTC())

	inRange, err := s.Repo.FindMetricSamplesInRange(ctx, base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	s.Require().NoError(err)
	s.Require().Len(inRange, 3, "bounds are inclusive")
	for i := 1; i < len(inRange); i++ {
		s.True(inRange[i-1].Date.Before(inRange[i].Date), "range is ascending")
	}
}

func (s *IntegrationSuite) TestRepo_EmptyLatestIsNil() {
	ctx := context.Background()

	sample, err := s.Repo.LatestMetricSample(ctx)
	s.Require().NoError(err)
	s.Nil(sample)

	report, err := s.Repo.LatestAgentLeadsReport(ctx, model.ChannelLinkedIn)
	s.Require().NoError(err)
	s.Nil(report)
}

func (s *IntegrationSuite) TestRepo_ReportAndActivitiesShareTransaction() {
	ctx := context.Background()
	report := model.NewAgentLeadsReport(&model.AgentLeadsReport{Channel: model.ChannelInstagram})
	activity := model.NewActivityLogEntry(&model.ActivityLogEntry{Type: model.ActivityAgent, Message: "Instagram agent reported"})

	s.Require().NoError(s.Repo.SaveAgentLeadsReport(ctx, report, activity))

	n, err := s.CountRows("agent_leads_reports", "channel = $1", "instagram")
	s.Require().NoError(err)
	s.Equal(1, n)
	n, err = s.CountRows("activity_logs", "message = $1", "Instagram agent reported")
	s.Require().NoError(err)
	s.Equal(1, n)

	// type overflows varchar(32), so the activity insert fails after the report insert
	invalid := model.NewActivityLogEntry(&model.ActivityLogEntry{Type: model.ActivityType(strings.Repeat("x", 40))})
	second := model.NewAgentLeadsReport(&model.AgentLeadsReport{Channel: model.ChannelInstagram})

	err = s.Repo.SaveAgentLeadsReport(ctx, second, invalid)
	s.Require().Error(err)
	n, err = s.CountRows("agent_leads_reports", "channel = $1", "instagram")
	s.Require().NoError(err)
	s.Equal(1, n, "a rejected report leaves no partial rows")
}

func (s *IntegrationSuite) TestRepo_AgentChannelsAreIsolated() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	s.Require().NoError(s.Repo.SaveAgentLeadsReport(ctx, model.NewAgentLeadsReport(&model.AgentLeadsReport{
		Channel: model.ChannelLinkedIn, Timestamp: now.Add(-time.Hour), DailySent: 11,
	})))
	s.Require().NoError(s.Repo.SaveAgentLeadsReport(ctx, model.NewAgentLeadsReport(&model.AgentLeadsReport{
		Channel: model.ChannelFacebook, Timestamp: now, DailySent: 22,
	})))

	latest, err := s.Repo.LatestAgentLeadsReport(ctx, model.ChannelLinkedIn)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(int64(11), latest.DailySent)

	reports, err := s.Repo.FindAgentLeadsReportsInRange(ctx, model.ChannelFacebook, now.Add(-2*time.Hour), now)
	s.Require().NoError(err)
	s.Require().Len(reports, 1)
	s.Equal(model.ChannelFacebook, reports[0].Channel)
}

func (s *IntegrationSuite) TestRepo_RecentActivitiesNewestFirst() {
	ctx := context.Background()
	base := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		s.Require().NoError(s.Repo.SaveActivity(ctx, model.NewActivityLogEntry(&model.ActivityLogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Type:      model.ActivityRefresh,
			Message:   "refresh",
		})))
	}

	entries, err := s.Repo.RecentActivities(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(base.Add(3*time.Minute), entries[0].Timestamp.UTC())
	s.Equal(base.Add(2*time.Minute), entries[1].Timestamp.UTC())
}

func (s *IntegrationSuite) TestRepo_NewsletterOrdering() {
	ctx := context.Background()
	base := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	reports := []*model.NewsletterCampaignReport{
		model.NewNewsletterCampaignReport(&model.NewsletterCampaignReport{CampaignName: "older", SendTime: base}),
		model.NewNewsletterCampaignReport(&model.NewsletterCampaignReport{CampaignName: "newer", SendTime: base.AddDate(0, 0, 7)}),
	}
	s.Require().NoError(s.Repo.SaveNewsletterReports(ctx, reports))

	latest, err := s.Repo.LatestNewsletterReport(ctx)
	s.Require().NoError(err)
	s.Equal("newer", latest.CampaignName)

	recent, err := s.Repo.RecentNewsletterReports(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("newer", recent[0].CampaignName)

	inRange, err := s.Repo.FindNewsletterReportsInRange(ctx, base, base.AddDate(0, 0, 7))
	s.Require().NoError(err)
	s.Require().Len(inRange, 2)
	s.Equal("older", inRange[0].CampaignName)
}

func (s *IntegrationSuite) TestRepo_ScheduleLifecycle() {
	ctx := context.Background()
	schedule := model.NewScheduleConfig()
	s.Require().NoError(s.Repo.CreateSchedule(ctx, schedule))
	s.Require().NotZero(schedule.ID)

	ranAt := time.Now().UTC().Truncate(time.Second)
	next := ranAt.Add(time.Hour)
	s.Require().NoError(s.Repo.RecordScheduleRun(ctx, schedule.ID, ranAt, &next))

	stored, err := s.Repo.FindScheduleByID(ctx, schedule.ID)
	s.Require().NoError(err)
	s.Equal(schedule.RunCount+1, stored.RunCount)
	s.Require().NotNil(stored.LastRun)
	s.Equal(ranAt, stored.LastRun.UTC())

	s.Require().NoError(s.Repo.DeleteSchedule(ctx, schedule.ID))
	_, err = s.Repo.FindScheduleByID(ctx, schedule.ID)
	s.True(apperrors.IsNotFoundError(err))

	err = s.Repo.DeleteSchedule(ctx, schedule.ID)
	s.True(apperrors.IsNotFoundError(err))
}
