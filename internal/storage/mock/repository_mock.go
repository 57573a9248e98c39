package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

// RepositoryMock mocks the storage.Repository interface.
// Variadic activity arguments are recorded as a single []*model.ActivityLogEntry.
type RepositoryMock struct {
	mock.Mock
}

// --- Metric samples ---

func (m *RepositoryMock) SaveMetricSample(ctx context.Context, sample *model.MetricSample, activities ...*model.ActivityLogEntry) error {
	args := m.Called(ctx, sample, activities)
	return args.Error(0)
}

func (m *RepositoryMock) LatestMetricSample(ctx context.Context) (*model.MetricSample, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MetricSample), args.Error(1)
}

func (m *RepositoryMock) FindMetricSamplesInRange(ctx context.Context, start, end time.Time) ([]model.MetricSample, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MetricSample), args.Error(1)
}

// --- Agent leads ---

func (m *RepositoryMock) SaveAgentLeadsReport(ctx context.Context, report *model.AgentLeadsReport, activities ...*model.ActivityLogEntry) error {
	args := m.Called(ctx, report, activities)
	return args.Error(0)
}

func (m *RepositoryMock) LatestAgentLeadsReport(ctx context.Context, channel model.Channel) (*model.AgentLeadsReport, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AgentLeadsReport), args.Error(1)
}

func (m *RepositoryMock) FindAgentLeadsReportsInRange(ctx context.Context, channel model.Channel, start, end time.Time) ([]model.AgentLeadsReport, error) {
	args := m.Called(ctx, channel, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AgentLeadsReport), args.Error(1)
}

// --- Activity log ---

func (m *RepositoryMock) SaveActivity(ctx context.Context, entry *model.ActivityLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *RepositoryMock) RecentActivities(ctx context.Context, limit int) ([]model.ActivityLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ActivityLogEntry), args.Error(1)
}

// --- Newsletter ---

func (m *RepositoryMock) SaveNewsletterReports(ctx context.Context, reports []*model.NewsletterCampaignReport, activities ...*model.ActivityLogEntry) error {
	args := m.Called(ctx, reports, activities)
	return args.Error(0)
}

func (m *RepositoryMock) LatestNewsletterReport(ctx context.Context) (*model.NewsletterCampaignReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NewsletterCampaignReport), args.Error(1)
}

func (m *RepositoryMock) RecentNewsletterReports(ctx context.Context, limit int) ([]model.NewsletterCampaignReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NewsletterCampaignReport), args.Error(1)
}

func (m *RepositoryMock) FindNewsletterReportsInRange(ctx context.Context, start, end time.Time) ([]model.NewsletterCampaignReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NewsletterCampaignReport), args.Error(1)
}

// --- Schedules ---

func (m *RepositoryMock) CreateSchedule(ctx context.Context, schedule *model.ScheduleConfig) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *RepositoryMock) UpdateSchedule(ctx context.Context, schedule *model.ScheduleConfig) error {
	args := m.Called(ctx, schedule)
	return args.Error(0)
}

func (m *RepositoryMock) DeleteSchedule(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RepositoryMock) FindScheduleByID(ctx context.Context, id int64) (*model.ScheduleConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleConfig), args.Error(1)
}

func (m *RepositoryMock) ListSchedules(ctx context.Context) ([]model.ScheduleConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScheduleConfig), args.Error(1)
}

func (m *RepositoryMock) RecordScheduleRun(ctx context.Context, id int64, ranAt time.Time, nextRun *time.Time) error {
	args := m.Called(ctx, id, ranAt, nextRun)
	return args.Error(0)
}

// --- Lifecycle ---

func (m *RepositoryMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *RepositoryMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
