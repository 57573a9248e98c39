package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// CreateSchedule inserts a schedule and fills its generated fields.
func (r *PostgresRepo) CreateSchedule(ctx context.Context, schedule *model.ScheduleConfig) error {
	startTime := utils.Now()
	err := r.insertWithActivities(ctx, schedule, nil)
	observer.ObserveDbOperationDuration("insert", "schedule", time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create schedule", zap.String("name", schedule.Name), zap.Error(err))
	}
	return err
}

// UpdateSchedule overwrites the writable fields of an existing schedule.
func (r *PostgresRepo) UpdateSchedule(ctx context.Context, schedule *model.ScheduleConfig) error {
	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleConfig{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]interface{}{
			"name":            schedule.Name,
			"description":     schedule.Description,
			"cron_expression": schedule.CronExpression,
			"webhook_url":     schedule.WebhookURL,
			"channel":         schedule.Channel,
			"is_active":       schedule.IsActive,
			"next_run":        schedule.NextRun,
			"updated_at":      utils.Now(),
		})

	err := checkConstraintViolation(result.Error)
	if err == nil && result.RowsAffected == 0 {
		err = fmt.Errorf("%w: schedule %d", apperrors.ErrNotFound, schedule.ID)
	}
	observer.ObserveDbOperationDuration("update", "schedule", time.Since(startTime), err)
	return err
}

// DeleteSchedule removes a schedule. A missing id is ErrNotFound.
func (r *PostgresRepo) DeleteSchedule(ctx context.Context, id int64) error {
	startTime := utils.Now()
	result := r.db.WithContext(ctx).Delete(&model.ScheduleConfig{}, id)

	err := checkConstraintViolation(result.Error)
	if err == nil && result.RowsAffected == 0 {
		err = fmt.Errorf("%w: schedule %d", apperrors.ErrNotFound, id)
	}
	observer.ObserveDbOperationDuration("delete", "schedule", time.Since(startTime), err)
	return err
}

// FindScheduleByID returns one schedule or ErrNotFound.
func (r *PostgresRepo) FindScheduleByID(ctx context.Context, id int64) (*model.ScheduleConfig, error) {
	var schedule model.ScheduleConfig
	operation := func() error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "FindScheduleByID", operation)
	observer.ObserveDbOperationDuration("find", "schedule", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListSchedules returns every schedule, most recently created first.
func (r *PostgresRepo) ListSchedules(ctx context.Context) ([]model.ScheduleConfig, error) {
	var rows []model.ScheduleConfig
	operation := func() error {
		return r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "ListSchedules", operation)
	observer.ObserveDbOperationDuration("list", "schedule", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.ScheduleConfig{}
	}
	return rows, nil
}

// RecordScheduleRun increments run_count atomically and stores the run times.
func (r *PostgresRepo) RecordScheduleRun(ctx context.Context, id int64, ranAt time.Time, nextRun *time.Time) error {
	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleConfig{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"run_count":  gorm.Expr("run_count + 1"),
			"last_run":   ranAt,
			"next_run":   nextRun,
			"updated_at": utils.Now(),
		})

	err := checkConstraintViolation(result.Error)
	if err == nil && result.RowsAffected == 0 {
		err = fmt.Errorf("%w: schedule %d", apperrors.ErrNotFound, id)
	}
	observer.ObserveDbOperationDuration("record_run", "schedule", time.Since(startTime), err)
	return err
}
