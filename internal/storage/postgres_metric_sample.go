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

// SaveMetricSample appends a sample, together with any activity entries, in one transaction.
func (r *PostgresRepo) SaveMetricSample(ctx context.Context, sample *model.MetricSample, activities ...*model.ActivityLogEntry) error {
	startTime := utils.Now()
	err := r.insertWithActivities(ctx, sample, activities)
	observer.ObserveDbOperationDuration("insert", "metric_sample", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to save metric sample",
			zap.Time("date", sample.Date),
			zap.Int64("invites_sent", sample.InvitesSent),
			zap.Error(err))
		return err
	}
	return nil
}

// LatestMetricSample returns the sample with the greatest date, or nil when the table is empty.
// Samples sharing a date are ordered by insertion.
func (r *PostgresRepo) LatestMetricSample(ctx context.Context) (*model.MetricSample, error) {
	var rows []model.MetricSample
	operation := func() error {
		return r.db.WithContext(ctx).
			Order("date DESC").Order("id DESC").
			Limit(1).
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "LatestMetricSample", operation)
	observer.ObserveDbOperationDuration("latest", "metric_sample", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// FindMetricSamplesInRange returns samples with start <= date <= end, oldest first.
func (r *PostgresRepo) FindMetricSamplesInRange(ctx context.Context, start, end time.Time) ([]model.MetricSample, error) {
	var rows []model.MetricSample
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("date >= ? AND date <= ?", start, end).
			Order("date ASC").Order("id ASC").
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "FindMetricSamplesInRange", operation)
	observer.ObserveDbOperationDuration("range", "metric_sample", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.MetricSample{}
	}
	return rows, nil
}
