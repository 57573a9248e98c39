package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// AgentLeadsReport is one snapshot reported by an outreach agent for a channel.
type AgentLeadsReport struct {
	ID                int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Channel           Channel        `json:"channel" gorm:"column:channel;type:varchar(32);not null" validate:"required"`
	Timestamp         time.Time      `json:"timestamp" gorm:"column:timestamp;not null"`
	DailySent         int64          `json:"dailySent" gorm:"column:daily_sent;not null;default:0" validate:"gte=0"`
	DailyAccepted     int64          `json:"dailyAccepted" gorm:"column:daily_accepted;not null;default:0" validate:"gte=0"`
	TotalSent         int64          `json:"totalSent" gorm:"column:total_sent;not null;default:0" validate:"gte=0"`
	TotalAccepted     int64          `json:"totalAccepted" gorm:"column:total_accepted;not null;default:0" validate:"gte=0"`
	ProcessedProfiles *int64         `json:"processedProfiles" gorm:"column:processed_profiles" validate:"omitempty,gte=0"`
	MaxInvitations    int64          `json:"maxInvitations" gorm:"column:max_invitations;not null;default:0" validate:"gte=0"`
	Status            string         `json:"status" gorm:"column:status;type:text"`
	ConnectionStatus  string         `json:"connectionStatus" gorm:"column:connection_status;type:text"`
	CSVLink           *string        `json:"csvLink" gorm:"column:csv_link;type:text" validate:"omitempty,url"`
	JSONLink          *string        `json:"jsonLink" gorm:"column:json_link;type:text" validate:"omitempty,url"`
	RawLog            *string        `json:"rawLog,omitempty" gorm:"column:raw_log;type:text"`
	ProcessData       datatypes.JSON `json:"processData,omitempty" gorm:"column:process_data;type:jsonb"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (AgentLeadsReport) TableName() string {
	return "agent_leads_reports"
}

func (r *AgentLeadsReport) ReportChannel() Channel { return r.Channel }
func (r *AgentLeadsReport) ReportID() int64        { return r.ID }
func (r *AgentLeadsReport) ReportTime() time.Time  { return r.Timestamp }

// DailyAcceptanceRatio is computed on read from the daily counts.
func (r *AgentLeadsReport) DailyAcceptanceRatio() float64 {
	return AcceptanceRatio(r.DailySent, r.DailyAccepted)
}

// TotalAcceptanceRatio is computed on read from the cumulative counts.
func (r *AgentLeadsReport) TotalAcceptanceRatio() float64 {
	return AcceptanceRatio(r.TotalSent, r.TotalAccepted)
}

// AcceptedExceedsSent flags counts the upstream agent got wrong. They are stored as reported.
func (r *AgentLeadsReport) AcceptedExceedsSent() bool {
	return r.DailyAccepted > r.DailySent || r.TotalAccepted > r.TotalSent
}

// MarshalJSON adds the derived acceptance ratios to the stored fields.
func (r AgentLeadsReport) MarshalJSON() ([]byte, error) {
	type alias AgentLeadsReport
	return json.Marshal(struct {
		alias
		DailyAcceptanceRatio float64 `json:"dailyAcceptanceRatio"`
		TotalAcceptanceRatio float64 `json:"totalAcceptanceRatio"`
	}{
		alias:                alias(r),
		DailyAcceptanceRatio: r.DailyAcceptanceRatio(),
		TotalAcceptanceRatio: r.TotalAcceptanceRatio(),
	})
}
