package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

// MetricSampleRepo defines metric sample storage operations
type MetricSampleRepo interface {
	SaveMetricSample(ctx context.Context, sample *model.MetricSample, activities ...*model.ActivityLogEntry) error
	LatestMetricSample(ctx context.Context) (*model.MetricSample, error)
	FindMetricSamplesInRange(ctx context.Context, start, end time.Time) ([]model.MetricSample, error)
}

// AgentLeadsRepo defines per-channel agent report storage operations
type AgentLeadsRepo interface {
	SaveAgentLeadsReport(ctx context.Context, report *model.AgentLeadsReport, activities ...*model.ActivityLogEntry) error
	LatestAgentLeadsReport(ctx context.Context, channel model.Channel) (*model.AgentLeadsReport, error)
	FindAgentLeadsReportsInRange(ctx context.Context, channel model.Channel, start, end time.Time) ([]model.AgentLeadsReport, error)
}

// ActivityLogRepo defines activity log storage operations
type ActivityLogRepo interface {
	SaveActivity(ctx context.Context, entry *model.ActivityLogEntry) error
	RecentActivities(ctx context.Context, limit int) ([]model.ActivityLogEntry, error)
}

// NewsletterRepo defines newsletter campaign storage operations
type NewsletterRepo interface {
	SaveNewsletterReports(ctx context.Context, reports []*model.NewsletterCampaignReport, activities ...*model.ActivityLogEntry) error
	LatestNewsletterReport(ctx context.Context) (*model.NewsletterCampaignReport, error)
	RecentNewsletterReports(ctx context.Context, limit int) ([]model.NewsletterCampaignReport, error)
	FindNewsletterReportsInRange(ctx context.Context, start, end time.Time) ([]model.NewsletterCampaignReport, error)
}

// ScheduleRepo defines schedule configuration storage operations
type ScheduleRepo interface {
	CreateSchedule(ctx context.Context, schedule *model.ScheduleConfig) error
	UpdateSchedule(ctx context.Context, schedule *model.ScheduleConfig) error
	DeleteSchedule(ctx context.Context, id int64) error
	FindScheduleByID(ctx context.Context, id int64) (*model.ScheduleConfig, error)
	ListSchedules(ctx context.Context) ([]model.ScheduleConfig, error)
	RecordScheduleRun(ctx context.Context, id int64, ranAt time.Time, nextRun *time.Time) error
}

// Repository is the full storage surface used by the service.
type Repository interface {
	MetricSampleRepo
	AgentLeadsRepo
	ActivityLogRepo
	NewsletterRepo
	ScheduleRepo
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Repository = (*PostgresRepo)(nil)
