package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// fixtureJSON encodes data as a JSON blob for fixtures.
func fixtureJSON(data map[string]interface{}) datatypes.JSON {
	return datatypes.JSON(utils.MarshalObject(data))
}

// NewMetricSample creates a MetricSample with fake counts.
func NewMetricSample(overrideDefaults ...*MetricSample) *MetricSample {
	sent := int64(gofakeit.Number(1, 200))
	base := &MetricSample{
		Date:            utils.StartOfDay(utils.Now().AddDate(0, 0, -gofakeit.Number(0, 30))),
		InvitesSent:     sent,
		InvitesAccepted: int64(gofakeit.Number(0, int(sent))),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.InvitesSent = ovr.InvitesSent
		base.InvitesAccepted = ovr.InvitesAccepted
		if !ovr.Date.IsZero() {
			base.Date = ovr.Date
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
	}
	base.Recompute()
	return base
}

// NewAgentLeadsReport creates an AgentLeadsReport with fake counts for a random agent channel.
func NewAgentLeadsReport(overrideDefaults ...*AgentLeadsReport) *AgentLeadsReport {
	dailySent := int64(gofakeit.Number(5, 80))
	totalSent := dailySent + int64(gofakeit.Number(100, 2000))
	processed := int64(gofakeit.Number(10, 500))
	csv := gofakeit.URL() + "/export.csv"
	base := &AgentLeadsReport{
		Channel:           AgentChannels[gofakeit.Number(0, len(AgentChannels)-1)],
		Timestamp:         utils.Now().Add(-time.Duration(gofakeit.Number(1, 600)) * time.Minute),
		DailySent:         dailySent,
		DailyAccepted:     int64(gofakeit.Number(0, int(dailySent))),
		TotalSent:         totalSent,
		TotalAccepted:     int64(gofakeit.Number(0, int(totalSent)/2)),
		ProcessedProfiles: &processed,
		MaxInvitations:    int64(gofakeit.RandomInt([]int{50, 100, 150})),
		Status:            gofakeit.RandomString([]string{"completed", "running", "idle"}),
		ConnectionStatus:  gofakeit.RandomString([]string{"connected", "disconnected"}),
		CSVLink:           &csv,
		ProcessData:       fixtureJSON(map[string]interface{}{"run": gofakeit.UUID()}),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.DailySent = ovr.DailySent
		base.DailyAccepted = ovr.DailyAccepted
		base.TotalSent = ovr.TotalSent
		base.TotalAccepted = ovr.TotalAccepted
		base.ProcessedProfiles = ovr.ProcessedProfiles
		base.CSVLink = ovr.CSVLink
		base.JSONLink = ovr.JSONLink
		base.RawLog = ovr.RawLog

		if ovr.Channel != "" {
			base.Channel = ovr.Channel
		}
		if !ovr.Timestamp.IsZero() {
			base.Timestamp = ovr.Timestamp
		}
		if ovr.MaxInvitations != 0 {
			base.MaxInvitations = ovr.MaxInvitations
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.ConnectionStatus != "" {
			base.ConnectionStatus = ovr.ConnectionStatus
		}
		if ovr.ProcessData != nil {
			base.ProcessData = ovr.ProcessData
		}
	}
	return base
}

// NewActivityLogEntry creates an ActivityLogEntry with a fake message.
func NewActivityLogEntry(overrideDefaults ...*ActivityLogEntry) *ActivityLogEntry {
	base := &ActivityLogEntry{
		Timestamp: utils.Now().Add(-time.Duration(gofakeit.Number(1, 120)) * time.Minute),
		Type:      ActivityType(gofakeit.RandomString([]string{"invite_sent", "invite_accepted", "refresh", "agent"})),
		Message:   gofakeit.Sentence(8),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.Metadata = ovr.Metadata
		if !ovr.Timestamp.IsZero() {
			base.Timestamp = ovr.Timestamp
		}
		if ovr.Type != "" {
			base.Type = ovr.Type
		}
		if ovr.Message != "" {
			base.Message = ovr.Message
		}
	}
	return base
}

// NewScheduleConfig creates an active ScheduleConfig firing at a random minute of every hour.
func NewScheduleConfig(overrideDefaults ...*ScheduleConfig) *ScheduleConfig {
	base := &ScheduleConfig{
		Name:           gofakeit.BuzzWord() + " refresh",
		CronExpression: "0 * * * *",
		WebhookURL:     gofakeit.URL(),
		Channel:        ChannelLinkedIn,
		IsActive:       true,
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.Description = ovr.Description
		base.IsActive = ovr.IsActive
		base.LastRun = ovr.LastRun
		base.NextRun = ovr.NextRun
		base.RunCount = ovr.RunCount
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.CronExpression != "" {
			base.CronExpression = ovr.CronExpression
		}
		if ovr.WebhookURL != "" {
			base.WebhookURL = ovr.WebhookURL
		}
		if ovr.Channel != "" {
			base.Channel = ovr.Channel
		}
	}
	return base
}

// NewNewsletterCampaignReport creates a campaign report with consistent fake counts and computed rates.
func NewNewsletterCampaignReport(overrideDefaults ...*NewsletterCampaignReport) *NewsletterCampaignReport {
	recipients := int64(gofakeit.Number(200, 5000))
	hard, soft := int64(gofakeit.Number(0, 10)), int64(gofakeit.Number(0, 20))
	sent := recipients - hard - soft
	opens := int64(gofakeit.Number(0, int(sent)/2))
	clicks := int64(gofakeit.Number(0, int(opens)))
	base := &NewsletterCampaignReport{
		CampaignName:    gofakeit.HipsterSentence(3),
		Subject:         gofakeit.Sentence(6),
		TotalRecipients: recipients,
		EmailsSent:      sent,
		HardBounces:     hard,
		SoftBounces:     soft,
		TotalBounces:    hard + soft,
		TotalOpens:      opens + int64(gofakeit.Number(0, 50)),
		UniqueOpens:     opens,
		TotalClicks:     clicks + int64(gofakeit.Number(0, 20)),
		UniqueClicks:    clicks,
		Unsubscribes:    int64(gofakeit.Number(0, 15)),
		SendTime:        utils.Now().Add(-time.Duration(gofakeit.Number(1, 30*24)) * time.Hour),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = ovr.ID
		base.RawData = ovr.RawData
		if ovr.CampaignName != "" {
			base.CampaignName = ovr.CampaignName
		}
		if ovr.Subject != "" {
			base.Subject = ovr.Subject
		}
		if ovr.EmailsSent != 0 {
			base.EmailsSent = ovr.EmailsSent
		}
		if ovr.UniqueOpens != 0 {
			base.UniqueOpens = ovr.UniqueOpens
		}
		if ovr.UniqueClicks != 0 {
			base.UniqueClicks = ovr.UniqueClicks
		}
		if !ovr.SendTime.IsZero() {
			base.SendTime = ovr.SendTime
		}
	}
	base.ComputeRates()
	return base
}

// FakeAgentPayload builds a webhook-shaped body for an agent channel using f.
// Keys deliberately mix camelCase and snake_case.
func FakeAgentPayload(f *gofakeit.Faker, channel Channel) map[string]interface{} {
	dailySent := f.Number(5, 80)
	totalSent := dailySent + f.Number(100, 2000)
	return map[string]interface{}{
		"channel":            string(channel),
		"timestamp":          utils.FormatISO8601(utils.Now()),
		"dailySent":          dailySent,
		"daily_accepted":     f.Number(0, dailySent),
		"totalSent":          totalSent,
		"total_accepted":     f.Number(0, totalSent/2),
		"processed_profiles": f.Number(10, 500),
		"maxInvitations":     100,
		"status":             f.RandomString([]string{"completed", "running"}),
		"connection_status":  "connected",
		"csvLink":            f.URL() + "/export.csv",
	}
}
