package model

import (
	"time"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// MetricSample is one point of the aggregated invitation metrics series.
type MetricSample struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Date            time.Time `json:"date" gorm:"column:date;not null"`
	InvitesSent     int64     `json:"invitesSent" gorm:"column:invites_sent;not null;default:0" validate:"gte=0"`
	InvitesAccepted int64     `json:"invitesAccepted" gorm:"column:invites_accepted;not null;default:0" validate:"gte=0"`
	AcceptanceRatio float64   `json:"acceptanceRatio" gorm:"column:acceptance_ratio;not null;default:0"`
	CreatedAt       time.Time `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (MetricSample) TableName() string {
	return "metric_samples"
}

// Recompute derives AcceptanceRatio from the raw counts.
func (m *MetricSample) Recompute() {
	m.AcceptanceRatio = AcceptanceRatio(m.InvitesSent, m.InvitesAccepted)
}

// AcceptanceRatio returns accepted/sent*100, or 0 when nothing was sent.
func AcceptanceRatio(sent, accepted int64) float64 {
	return utils.Percent(accepted, sent)
}

// MetricsSummary totals a set of samples.
type MetricsSummary struct {
	Samples         int       `json:"samples"`
	InvitesSent     int64     `json:"invitesSent"`
	InvitesAccepted int64     `json:"invitesAccepted"`
	AcceptanceRatio float64   `json:"acceptanceRatio"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
}

// Summarize totals samples over [from, to]. The ratio is derived from the summed counts.
func Summarize(samples []MetricSample, from, to time.Time) MetricsSummary {
	s := MetricsSummary{Samples: len(samples), From: from, To: to}
	for _, m := range samples {
		s.InvitesSent += m.InvitesSent
		s.InvitesAccepted += m.InvitesAccepted
	}
	s.AcceptanceRatio = AcceptanceRatio(s.InvitesSent, s.InvitesAccepted)
	return s
}
