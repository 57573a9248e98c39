package model

import "time"

// Report is a stored row produced by one ingestion, whatever its channel.
type Report interface {
	ReportChannel() Channel
	ReportID() int64
	ReportTime() time.Time
}

var (
	_ Report = (*AgentLeadsReport)(nil)
	_ Report = (*NewsletterCampaignReport)(nil)
)
