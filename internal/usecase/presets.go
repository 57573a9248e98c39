package usecase

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// Range presets accepted by the range endpoints.
const (
	PresetLast7Days  = "last_7_days"
	PresetLast14Days = "last_14_days"
	PresetLast30Days = "last_30_days"
	PresetThisMonth  = "this_month"
	PresetLastMonth  = "last_month"
)

// DateRange is an inclusive [Start, End] interval in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange validates that start does not come after end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, fmt.Errorf("%w: startDate and endDate are required", apperrors.ErrValidation)
	}
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: startDate %s is after endDate %s",
			apperrors.ErrValidation, utils.FormatISO8601(start), utils.FormatISO8601(end))
	}
	return DateRange{Start: start, End: end}, nil
}

// ResolvePreset turns a preset name into concrete bounds relative to now.
// Rolling presets include today; last_month covers the whole previous calendar month.
func ResolvePreset(name string, now time.Time) (DateRange, error) {
	now = now.UTC()
	today := utils.StartOfDay(now)
	endOfToday := utils.EndOfDay(now)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetLast7Days:
		return DateRange{Start: today.AddDate(0, 0, -6), End: endOfToday}, nil
	case PresetLast14Days:
		return DateRange{Start: today.AddDate(0, 0, -13), End: endOfToday}, nil
	case PresetLast30Days:
		return DateRange{Start: today.AddDate(0, 0, -29), End: endOfToday}, nil
	case PresetThisMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: first, End: endOfToday}, nil
	case PresetLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: first.AddDate(0, -1, 0), End: first.Add(-time.Nanosecond)}, nil
	default:
		return DateRange{}, fmt.Errorf("%w: unknown preset %q", apperrors.ErrValidation, name)
	}
}

// ParseDateRange reads explicit bounds as sent by API callers. A date-only
// endDate covers that whole day.
func ParseDateRange(startDate, endDate string) (DateRange, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return DateRange{}, fmt.Errorf("%w: startDate and endDate are required", apperrors.ErrValidation)
	}
	start, err := utils.ParseFlexibleTime(startDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid startDate %q", apperrors.ErrValidation, startDate)
	}
	end, err := utils.ParseFlexibleTime(endDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: invalid endDate %q", apperrors.ErrValidation, endDate)
	}
	if isDateOnly(endDate) {
		end = utils.EndOfDay(end)
	}
	return NewDateRange(start, end)
}

func isDateOnly(v string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	return err == nil
}
