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

// SaveNewsletterReports appends campaign reports and activity entries in one transaction.
func (r *PostgresRepo) SaveNewsletterReports(ctx context.Context, reports []*model.NewsletterCampaignReport, activities ...*model.ActivityLogEntry) error {
	if len(reports) == 0 {
		return nil
	}

	startTime := utils.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Create(&reports)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected != int64(len(reports)) {
			return fmt.Errorf("%w: inserted %d of %d newsletter reports", apperrors.ErrDatabase, result.RowsAffected, len(reports))
		}
		for _, a := range activities {
			if a == nil {
				continue
			}
			if err := tx.Create(a).Error; err != nil {
				return checkConstraintViolation(err)
			}
		}
		return nil
	})
	observer.ObserveDbOperationDuration("insert", "newsletter_report", time.Since(startTime), err)

	if err != nil {
		logger.FromContext(ctx).Error("Failed to save newsletter reports",
			zap.Int("count", len(reports)),
			zap.Error(err))
		return err
	}
	return nil
}

// LatestNewsletterReport returns the campaign with the greatest send time, or nil.
func (r *PostgresRepo) LatestNewsletterReport(ctx context.Context) (*model.NewsletterCampaignReport, error) {
	rows, err := r.RecentNewsletterReports(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// RecentNewsletterReports returns up to limit campaigns, newest send time first.
func (r *PostgresRepo) RecentNewsletterReports(ctx context.Context, limit int) ([]model.NewsletterCampaignReport, error) {
	limit = clampLimit(limit)

	var rows []model.NewsletterCampaignReport
	operation := func() error {
		return r.db.WithContext(ctx).
			Order("send_time DESC").Order("id DESC").
			Limit(limit).
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "RecentNewsletterReports", operation)
	observer.ObserveDbOperationDuration("recent", "newsletter_report", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.NewsletterCampaignReport{}
	}
	return rows, nil
}

// FindNewsletterReportsInRange returns campaigns with start <= send_time <= end, oldest first.
func (r *PostgresRepo) FindNewsletterReportsInRange(ctx context.Context, start, end time.Time) ([]model.NewsletterCampaignReport, error) {
	var rows []model.NewsletterCampaignReport
	operation := func() error {
		return r.db.WithContext(ctx).
			Where("send_time >= ? AND send_time <= ?", start, end).
			Order("send_time ASC").Order("id ASC").
			Find(&rows).Error
	}

	startTime := utils.Now()
	err := r.readWithRetry(ctx, "FindNewsletterReportsInRange", operation)
	observer.ObserveDbOperationDuration("range", "newsletter_report", time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.NewsletterCampaignReport{}
	}
	return rows, nil
}
