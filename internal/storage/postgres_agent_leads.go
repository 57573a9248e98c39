package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// SaveAgentLeadsReport appends a report and its activity entries in one transaction.
func (r *PostgresRepo) SaveAgentLeadsReport(ctx context.Context, report *model.AgentLeadsReport, activities ...*model.ActivityLogEntry) error {
	startTime := utils.Now()
	err := r.insertWithActivities(ctx, report, activities)
	observer.ObserveDbOperationDuration("insert", "agent_leads_report", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to save agent leads report",
			zap.String("channel", string(report.Channel)),
			zap.Time("timestamp", report.Timestamp),
			zap.Error(err))
		return err
	}
	return nil
}

// LatestAgentLeadsReport returns the report with the greatest timestamp for channel, or nil.
func (r *PostgresRepo) LatestAgentLeadsReport(ctx context.Context, channel model.Channel) (*model.AgentLeadsReport, error) {
	var rows []model.AgentLeadsReport
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("channel = ?", channel).
			Order("timestamp DESC").Order("id DESC").
			Limit(1).
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "LatestAgentLeadsReport", operation)
	observer.ObserveDbOperationDuration("latest", "agent_leads_report", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindAgentLeadsReportsInRange returns the channel's reports with start <= timestamp <= end, oldest first.
func (r *PostgresRepo) FindAgentLeadsReportsInRange(ctx context.Context, channel model.Channel, start, end time.Time) ([]model.AgentLeadsReport, error) {
	var rows []model.AgentLeadsReport
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("channel = ? AND timestamp >= ? AND timestamp <= ?", channel, start, end).
			Order("timestamp ASC").Order("id ASC").
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "FindAgentLeadsReportsInRange", operation)
	observer.ObserveDbOperationDuration("range", "agent_leads_report", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.AgentLeadsReport{}
	}
	return rows, nil
}
