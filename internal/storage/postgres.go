package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

const (
	defaultRetryInitialInterval = 50 * time.Millisecond
	defaultRetryMaxInterval     = 2 * time.Second
	readRetryMaxElapsedTime     = 5 * time.Second

	defaultActivityLimit = 10
	maxActivityLimit     = 100
)

// PostgresRepo stores every entity of the service in one PostgreSQL database.
// Report tables are append-only: there is no update path for samples, reports or activity entries.
type PostgresRepo struct {
	db *gorm.DB
}

// indexes backing the latest/range queries. Created after AutoMigrate.
var indexDDL = map[string]string{
	"idx_metric_samples_date":           "CREATE INDEX IF NOT EXISTS idx_metric_samples_date ON metric_samples USING btree (date DESC, id DESC);",
	"idx_agent_leads_channel_timestamp": "CREATE INDEX IF NOT EXISTS idx_agent_leads_channel_timestamp ON agent_leads_reports USING btree (channel, timestamp DESC, id DESC);",
	"idx_activity_logs_timestamp":       "CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON activity_logs USING btree (timestamp DESC, id DESC);",
	"idx_newsletter_reports_send_time":  "CREATE INDEX IF NOT EXISTS idx_newsletter_reports_send_time ON newsletter_campaign_reports USING btree (send_time DESC, id DESC);",
	"idx_schedule_configs_active_next":  "CREATE INDEX IF NOT EXISTS idx_schedule_configs_active_next ON schedule_configs USING btree (is_active, next_run);",
}

// NewPostgresRepo connects to dsn, retrying transient failures for up to a minute,
// and migrates the schema when autoMigrate is set.
func NewPostgresRepo(dsn string, autoMigrate bool) (*PostgresRepo, error) {
	connect := func() (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Warn),
		})
		if err != nil {
			if isTransientError(err) {
				logger.Log.Warn("Failed to connect to postgres (transient), retrying...", zap.Error(err))
				return nil, err
			}
			return nil, backoff.Permanent(fmt.Errorf("failed to connect to postgres: %w", err))
		}
		return db, nil
	}

	notify := func(err error, d time.Duration) {
		logger.Log.Warn("Retrying DB connection", zap.Error(err), zap.Duration("after", d))
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 15 * time.Second
	b.MaxElapsedTime = 1 * time.Minute

	db, err := backoff.RetryNotifyWithData(connect, b, notify)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres after retries: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	repo := &PostgresRepo{db: db}

	if autoMigrate {
		if err := repo.Migrate(context.Background()); err != nil {
			_ = repo.Close(context.Background())
			return nil, err
		}
	} else {
		logger.Log.Info("Auto-migration disabled")
	}

	return repo, nil
}

// Migrate creates or updates the tables and their indexes.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info("Running auto-migration")

	err := r.db.WithContext(ctx).AutoMigrate(
		&model.MetricSample{},
		&model.AgentLeadsReport{},
		&model.ActivityLogEntry{},
		&model.NewsletterCampaignReport{},
		&model.ScheduleConfig{},
	)
	if err != nil {
		return fmt.Errorf("%w: auto-migration failed: %w", apperrors.ErrDatabase, err)
	}

	for indexName, indexSQL := range indexDDL {
		if err := r.db.WithContext(ctx).Exec(indexSQL).Error; err != nil {
			log.Warn("Failed to create index", zap.String("indexName", indexName), zap.Error(err))
		}
	}
	return nil
}

// Ping checks that the database answers.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrDatabase, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping failed: %w", apperrors.ErrDatabase, err)
	}
	return nil
}

// Close closes the database connection
func (r *PostgresRepo) Close(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to get underlying SQL DB for closing", zap.Error(err))
		return nil
	}

	if closeErr := sqlDB.Close(); closeErr != nil {
		logger.FromContext(ctx).Error("Failed to close database connection", zap.Error(closeErr))
		return fmt.Errorf("failed to close SQL DB: %w", closeErr)
	}

	logger.FromContext(ctx).Info("Database connection closed successfully")
	return nil
}

// insertWithActivities inserts row and the activity entries in one transaction.
// Inserts are attempted once; the caller decides whether to retry.
func (r *PostgresRepo) insertWithActivities(ctx context.Context, row interface{}, activities []*model.ActivityLogEntry) error {
	create := func(tx *gorm.DB) error {
		result := tx.Create(row)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: create operation affected 0 rows", apperrors.ErrDatabase)
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
	}

	if len(activities) == 0 {
		return create(r.db.WithContext(ctx))
	}
	return r.db.WithContext(ctx).Transaction(create)
}

// newRetryPolicy creates a new exponential backoff policy with context awareness.
func newRetryPolicy(ctx context.Context, maxElapsedTime time.Duration) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultRetryInitialInterval
	b.MaxInterval = defaultRetryMaxInterval
	b.MaxElapsedTime = maxElapsedTime
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// retryableOperation retries operation while it fails with a transient error.
func retryableOperation(ctx context.Context, policy backoff.BackOffContext, opName string, operation func() error) error {
	notify := func(err error, d time.Duration) {
		logger.FromContext(ctx).Warn("Retrying DB operation",
			zap.String("operation", opName),
			zap.Error(err),
			zap.Duration("after", d),
		)
	}

	return backoff.RetryNotify(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrInvalidTransaction) {
			return backoff.Permanent(err)
		}
		if isTransientError(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, notify)
}

// readWithRetry runs a read under the read retry policy and maps the final error.
func (r *PostgresRepo) readWithRetry(ctx context.Context, opName string, operation func() error) error {
	err := retryableOperation(ctx, newRetryPolicy(ctx, readRetryMaxElapsedTime), opName, operation)
	if err != nil {
		return checkConstraintViolation(err)
	}
	return nil
}

// isTransientError checks if the error suggests a temporary issue like a network problem.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 connection exception, class 53 insufficient resources,
		// 40P01 deadlock, 40001 serialization failure
		if strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			pgErr.Code == "40P01" ||
			pgErr.Code == "40001" {
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	transientIndicators := []string{
		"connection refused",
		"network is unreachable",
		"i/o timeout",
		"broken pipe",
		"connection reset",
		"could not translate host name",
		"no route to host",
		"database system is starting up",
		"connection timed out",
	}
	for _, indicator := range transientIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// checkConstraintViolation inspects database errors and maps them to standard apperrors.
func checkConstraintViolation(err error) error {
	if err == nil {
		return nil
	}

	// already classified
	if apperrors.IsNotFoundError(err) || apperrors.IsDuplicateError(err) ||
		apperrors.IsBadRequestError(err) || apperrors.IsDatabaseError(err) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrDuplicate, pgErr.ConstraintName, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrBadRequest, pgErr.ConstraintName, err)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: null value in column %s: %w", apperrors.ErrBadRequest, pgErr.ColumnName, err)
		case "23514": // check_violation
			return fmt.Errorf("%w: constraint %s: %w", apperrors.ErrBadRequest, pgErr.ConstraintName, err)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%w: value too long for column %s: %w", apperrors.ErrBadRequest, pgErr.ColumnName, err)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%w: invalid input syntax for type %s: %w", apperrors.ErrBadRequest, pgErr.DataTypeName, err)
		default:
			return fmt.Errorf("%w: pgcode %s: %w", apperrors.ErrDatabase, pgErr.Code, err)
		}
	}

	return fmt.Errorf("%w: %w", apperrors.ErrDatabase, err)
}

// clampLimit bounds a caller-supplied page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	if limit > maxActivityLimit {
		return maxActivityLimit
	}
	return limit
}
