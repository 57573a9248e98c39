package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

func TestValidate_ActivityLogEntry(t *testing.T) {
	ok := &model.ActivityLogEntry{Timestamp: time.Now(), Type: model.ActivityRefresh, Message: "refreshed"}
	assert.NoError(t, Validate(ok))

	bad := &model.ActivityLogEntry{Timestamp: time.Now(), Type: "gossip"}
	err := Validate(bad)
	assert.True(t, apperrors.IsValidationError(err))
	assert.ErrorContains(t, err, "field 'type' must be one of")
	assert.ErrorContains(t, err, "field 'message' is required")
}

func TestValidate_ScheduleInput(t *testing.T) {
	tests := []struct {
		name    string
		input   model.ScheduleInput
		wantErr string
	}{
		{
			name:  "valid",
			input: model.ScheduleInput{Name: "hourly", CronExpression: "0 * * * *", WebhookURL: "https://hooks.example.com/a"},
		},
		{
			name:  "descriptor",
			input: model.ScheduleInput{Name: "daily", CronExpression: "@daily", WebhookURL: "https://hooks.example.com/a", Channel: model.ChannelVideo},
		},
		{
			name:    "six fields rejected",
			input:   model.ScheduleInput{Name: "x", CronExpression: "0 0 * * * *", WebhookURL: "https://hooks.example.com/a"},
			wantErr: "cronExpression",
		},
		{
			name:    "bad url",
			input:   model.ScheduleInput{Name: "x", CronExpression: "*/5 * * * *", WebhookURL: "not a url"},
			wantErr: "webhookUrl",
		},
		{
			name:    "newsletter is not an agent channel",
			input:   model.ScheduleInput{Name: "x", CronExpression: "*/5 * * * *", WebhookURL: "https://a.example.com", Channel: model.ChannelNewsletter},
			wantErr: "channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsValidationError(err))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar("https://example.com/x.csv", "url"))
	assert.True(t, apperrors.IsValidationError(ValidateVar("nope", "url")))
}
