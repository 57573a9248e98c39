package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/storage"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/validator"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// WebhookTrigger runs one webhook ingestion.
type WebhookTrigger interface {
	TriggerWebhook(ctx context.Context, in TriggerInput) (*TriggerResult, error)
}

// ScheduleRunResult is the outcome of a manual run. Result is nil when the ingestion failed.
type ScheduleRunResult struct {
	Schedule *model.ScheduleConfig `json:"schedule"`
	Result   *TriggerResult        `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// ScheduleService manages schedule configurations. Schedules are not executed
// in-process; Run triggers one ingestion on demand.
type ScheduleService struct {
	repo    storage.ScheduleRepo
	trigger WebhookTrigger
	now     func() time.Time
}

func NewScheduleService(repo storage.ScheduleRepo, trigger WebhookTrigger) *ScheduleService {
	return &ScheduleService{repo: repo, trigger: trigger, now: utils.Now}
}

// nextRun returns the next activation after from, or nil for inactive schedules.
func nextRun(expr string, active bool, from time.Time) (*time.Time, error) {
	if !active {
		return nil, nil
	}
	sched, err := validator.CronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cron expression %q: %v", apperrors.ErrValidation, expr, err)
	}
	next := sched.Next(from).UTC()
	return &next, nil
}

func (s *ScheduleService) apply(schedule *model.ScheduleConfig, in model.ScheduleInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.CronExpression = strings.TrimSpace(in.CronExpression)
	in.WebhookURL = strings.TrimSpace(in.WebhookURL)
	if err := validator.Validate(in); err != nil {
		return err
	}

	schedule.Name = in.Name
	schedule.Description = in.Description
	schedule.CronExpression = in.CronExpression
	schedule.WebhookURL = in.WebhookURL
	if in.Channel != "" {
		schedule.Channel = in.Channel
	}
	if schedule.Channel == "" {
		schedule.Channel = model.ChannelLinkedIn
	}
	if in.IsActive != nil {
		schedule.IsActive = *in.IsActive
	}

	next, err := nextRun(schedule.CronExpression, schedule.IsActive, s.now())
	if err != nil {
		return err
	}
	schedule.NextRun = next
	return validator.Validate(schedule)
}

// Create stores a new schedule. Schedules are active unless isActive is false.
func (s *ScheduleService) Create(ctx context.Context, in model.ScheduleInput) (*model.ScheduleConfig, error) {
	schedule := &model.ScheduleConfig{IsActive: true}
	if err := s.apply(schedule, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Schedule created",
		zap.Int64("schedule_id", schedule.ID),
		zap.String("cron", schedule.CronExpression),
	)
	return schedule, nil
}

// Update replaces the writable fields of a schedule and recomputes nextRun.
func (s *ScheduleService) Update(ctx context.Context, id int64, in model.ScheduleInput) (*model.ScheduleConfig, error) {
	schedule, err := s.repo.FindScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(schedule, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSchedule(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *ScheduleService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteSchedule(ctx, id)
}

func (s *ScheduleService) Get(ctx context.Context, id int64) (*model.ScheduleConfig, error) {
	return s.repo.FindScheduleByID(ctx, id)
}

func (s *ScheduleService) List(ctx context.Context) ([]model.ScheduleConfig, error) {
	return s.repo.ListSchedules(ctx)
}

// Run triggers the schedule's webhook ingestion once. The run is recorded whether
// or not the ingestion succeeded; an ingestion failure is returned alongside the result.
func (s *ScheduleService) Run(ctx context.Context, id int64) (*ScheduleRunResult, error) {
	schedule, err := s.repo.FindScheduleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With(zap.Int64("schedule_id", id), zap.String("channel", string(schedule.Channel)))

	result, runErr := s.trigger.TriggerWebhook(ctx, TriggerInput{
		Channel:    string(schedule.Channel),
		WebhookURL: schedule.WebhookURL,
		Source:     SourceSchedule,
	})

	ranAt := s.now()
	next, err := nextRun(schedule.CronExpression, schedule.IsActive, ranAt)
	if err != nil {
		// stored expressions were validated on write
		log.Warn("Stored cron expression no longer parses", zap.Error(err))
		next = nil
	}
	if err := s.repo.RecordScheduleRun(ctx, id, ranAt, next); err != nil {
		return nil, err
	}

	schedule.RunCount++
	schedule.LastRun = &ranAt
	schedule.NextRun = next

	out := &ScheduleRunResult{Schedule: schedule, Result: result}
	if runErr != nil {
		log.Warn("Scheduled ingestion failed", zap.Error(runErr))
		out.Error = runErr.Error()
		return out, runErr
	}
	log.Info("Scheduled ingestion completed", zap.Int64("run_count", schedule.RunCount))
	return out, nil
}
