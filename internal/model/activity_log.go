package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType tags an activity log entry.
type ActivityType string

const (
	ActivityInviteSent     ActivityType = "invite_sent"
	ActivityInviteAccepted ActivityType = "invite_accepted"
	ActivityRefresh        ActivityType = "refresh"
	ActivityWarning        ActivityType = "warning"
	ActivityAgent          ActivityType = "agent"
)

// ActivityLogEntry is one line of the append-only audit trail.
type ActivityLogEntry struct {
	ID        int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time      `json:"timestamp" gorm:"column:timestamp;not null"`
	Type      ActivityType   `json:"type" gorm:"column:type;type:varchar(32);not null" validate:"required,oneof=invite_sent invite_accepted refresh warning agent"`
	Message   string         `json:"message" gorm:"column:message;type:text;not null" validate:"required,max=2000"`
	Metadata  datatypes.JSON `json:"metadata,omitempty" gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time      `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (ActivityLogEntry) TableName() string {
	return "activity_logs"
}
