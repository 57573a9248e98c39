package model

import "time"

// ScheduleConfig describes a recurring webhook-triggered ingestion.
type ScheduleConfig struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name           string     `json:"name" gorm:"column:name;type:varchar(255);not null" validate:"required,max=255"`
	Description    *string    `json:"description" gorm:"column:description;type:text"`
	CronExpression string     `json:"cronExpression" gorm:"column:cron_expression;type:varchar(128);not null" validate:"required,cron"`
	WebhookURL     string     `json:"webhookUrl" gorm:"column:webhook_url;type:text;not null" validate:"required,url"`
	Channel        Channel    `json:"channel" gorm:"column:channel;type:varchar(32);not null;default:'linkedin'" validate:"required,agentchannel"`
	IsActive       bool       `json:"isActive" gorm:"column:is_active;not null;default:true"`
	LastRun        *time.Time `json:"lastRun" gorm:"column:last_run"`
	NextRun        *time.Time `json:"nextRun" gorm:"column:next_run"`
	RunCount       int64      `json:"runCount" gorm:"column:run_count;not null;default:0"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

func (ScheduleConfig) TableName() string {
	return "schedule_configs"
}

// ScheduleInput is the writable subset of a schedule accepted by create and update.
type ScheduleInput struct {
	Name           string  `json:"name" validate:"required,max=255"`
	Description    *string `json:"description"`
	CronExpression string  `json:"cronExpression" validate:"required,cron"`
	WebhookURL     string  `json:"webhookUrl" validate:"required,url"`
	Channel        Channel `json:"channel" validate:"omitempty,agentchannel"`
	IsActive       *bool   `json:"isActive"`
}
