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

// SaveActivity appends one activity entry.
func (r *PostgresRepo) SaveActivity(ctx context.Context, entry *model.ActivityLogEntry) error {
	startTime := utils.Now()
	err := r.insertWithActivities(ctx, entry, nil)
	observer.ObserveDbOperationDuration("insert", "activity_log", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to save activity",
			zap.String("type", string(entry.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

// RecentActivities returns up to limit entries, newest first. Entries sharing a
// timestamp come back in reverse insertion order.
func (r *PostgresRepo) RecentActivities(ctx context.Context, limit int) ([]model.ActivityLogEntry, error) {
	limit = clampLimit(limit)

	var rows []model.ActivityLogEntry
	operation := func() error {
		return r.db.WithContext(ctx).
			Order("timestamp DESC").Order("id DESC").
			Limit(limit).
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "RecentActivities", operation)
	observer.ObserveDbOperationDuration("recent", "activity_log", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.ActivityLogEntry{}
	}
	return rows, nil
}
