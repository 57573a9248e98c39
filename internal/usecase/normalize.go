package usecase

import (
	"fmt"
	"time"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/validator"
)

// Agent count fields that must come from the upstream. When one is missing the
// stored value is 0, or a synthesized value under the synthesize policy.
var requiredAgentCounts = []string{"dailySent", "dailyAccepted", "totalSent", "totalAccepted"}

// Alternate names seen in agent payloads, tried in order after the canonical key.
var agentFieldAliases = map[string][]string{
	"dailySent":         {"dailySent", "invitesSent", "stats.dailySent"},
	"dailyAccepted":     {"dailyAccepted", "invitesAccepted", "stats.dailyAccepted"},
	"totalSent":         {"totalSent", "stats.totalSent"},
	"totalAccepted":     {"totalAccepted", "stats.totalAccepted"},
	"processedProfiles": {"processedProfiles", "profilesProcessed", "stats.processedProfiles"},
	"maxInvitations":    {"maxInvitations", "invitationLimit"},
	"timestamp":         {"timestamp", "reportedAt", "createdAt", "date"},
}

// firstInt returns the first present alias. Unparseable values fail immediately.
func firstInt(p model.RawPayload, keys ...string) (int64, bool, error) {
	for _, k := range keys {
		v, ok, err := p.Int(k)
		if err != nil {
			return 0, true, err
		}
		if ok {
			return v, true, nil
		}
	}
	return 0, false, nil
}

func firstTime(p model.RawPayload, keys ...string) (time.Time, bool, error) {
	for _, k := range keys {
		v, ok, err := p.Time(k)
		if err != nil {
			return time.Time{}, true, err
		}
		if ok {
			return v, true, nil
		}
	}
	return time.Time{}, false, nil
}

func firstString(p model.RawPayload, keys ...string) string {
	for _, k := range keys {
		if v, ok := p.String(k); ok {
			return v
		}
	}
	return ""
}

// NormalizeAgentLeads maps a loosely typed agent payload onto a report for channel.
// It returns the canonical names of the required counts that were absent.
func NormalizeAgentLeads(channel model.Channel, p model.RawPayload, now time.Time) (*model.AgentLeadsReport, []string, error) {
	if !channel.IsAgent() {
		return nil, nil, fmt.Errorf("%w: channel %q does not carry agent reports", apperrors.ErrValidation, channel)
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: payload must be a JSON object", apperrors.ErrValidation)
	}

	report := &model.AgentLeadsReport{Channel: channel}
	var missing []string

	counts := map[string]*int64{
		"dailySent":      &report.DailySent,
		"dailyAccepted":  &report.DailyAccepted,
		"totalSent":      &report.TotalSent,
		"totalAccepted":  &report.TotalAccepted,
		"maxInvitations": &report.MaxInvitations,
	}
	for _, field := range append(append([]string{}, requiredAgentCounts...), "maxInvitations") {
		v, ok, err := firstInt(p, agentFieldAliases[field]...)
		if err != nil {
			return nil, nil, err
		}
		if !ok && field != "maxInvitations" {
			missing = append(missing, field)
		}
		*counts[field] = v
	}

	if v, ok, err := firstInt(p, agentFieldAliases["processedProfiles"]...); err != nil {
		return nil, nil, err
	} else if ok {
		report.ProcessedProfiles = &v
	}

	ts, ok, err := firstTime(p, agentFieldAliases["timestamp"]...)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		ts = now
	}
	report.Timestamp = ts.UTC()

	report.Status = firstString(p, "status", "agentStatus")
	report.ConnectionStatus = firstString(p, "connectionStatus", "connection")
	report.CSVLink = p.StringPtr("csvLink")
	report.JSONLink = p.StringPtr("jsonLink")

	if raw := p.StringPtr("rawLog"); raw != nil {
		report.RawLog = raw
	} else if blob := p.Raw(); blob != nil {
		s := string(blob)
		report.RawLog = &s
	}
	if pd, ok := p.JSON("processData"); ok {
		report.ProcessData = pd
	}

	if err := validator.Validate(report); err != nil {
		return nil, nil, err
	}
	return report, missing, nil
}

// NormalizeNewsletter maps a campaign payload onto a report with rates computed.
// Bounce, open and click figures may be flat or nested ("bounces.hard", "opens.unique").
func NormalizeNewsletter(p model.RawPayload, now time.Time) (*model.NewsletterCampaignReport, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", apperrors.ErrValidation)
	}

	r := &model.NewsletterCampaignReport{
		CampaignName: firstString(p, "campaignName", "name", "campaign"),
		Subject:      firstString(p, "subject"),
	}

	fields := []struct {
		dst  *int64
		keys []string
	}{
		{&r.TotalRecipients, []string{"totalRecipients", "recipients"}},
		{&r.HardBounces, []string{"hardBounces", "bounces.hard"}},
		{&r.SoftBounces, []string{"softBounces", "bounces.soft"}},
		{&r.SyntaxBounces, []string{"syntaxBounces", "bounces.syntax"}},
		{&r.TotalOpens, []string{"totalOpens", "opens.total"}},
		{&r.UniqueOpens, []string{"uniqueOpens", "opens.unique"}},
		{&r.TotalClicks, []string{"totalClicks", "clicks.total"}},
		{&r.UniqueClicks, []string{"uniqueClicks", "clicks.unique"}},
		{&r.Unsubscribes, []string{"unsubscribes", "unsubscribed"}},
	}
	for _, f := range fields {
		v, _, err := firstInt(p, f.keys...)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	totalBounces, ok, err := firstInt(p, "totalBounces", "bounces.total")
	if err != nil {
		return nil, err
	}
	if !ok {
		totalBounces = r.HardBounces + r.SoftBounces + r.SyntaxBounces
	}
	r.TotalBounces = totalBounces

	sent, ok, err := firstInt(p, "emailsSent", "sent", "delivered")
	if err != nil {
		return nil, err
	}
	if !ok {
		sent = r.TotalRecipients - r.TotalBounces
		if sent < 0 {
			sent = 0
		}
	}
	r.EmailsSent = sent

	sendTime, ok, err := firstTime(p, "sendTime", "sentAt", "date")
	if err != nil {
		return nil, err
	}
	if !ok {
		sendTime = now
	}
	r.SendTime = sendTime.UTC()
	r.RawData = p.Raw()
	r.ComputeRates()

	if err := validator.Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// NormalizeMetricSample reads a manual metrics body. Both counts are required.
func NormalizeMetricSample(p model.RawPayload, now time.Time) (*model.MetricSample, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", apperrors.ErrValidation)
	}
	sent, ok, err := firstInt(p, "invitesSent")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: field 'invitesSent' is required", apperrors.ErrValidation)
	}
	accepted, ok, err := firstInt(p, "invitesAccepted")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: field 'invitesAccepted' is required", apperrors.ErrValidation)
	}

	date, ok, err := firstTime(p, "date", "timestamp")
	if err != nil {
		return nil, err
	}
	if !ok {
		date = now
	}

	sample := &model.MetricSample{Date: date.UTC(), InvitesSent: sent, InvitesAccepted: accepted}
	sample.Recompute()
	if err := validator.Validate(sample); err != nil {
		return nil, err
	}
	return sample, nil
}

// NormalizeActivity reads an activity body. Type and message are required.
func NormalizeActivity(p model.RawPayload, now time.Time) (*model.ActivityLogEntry, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", apperrors.ErrValidation)
	}
	ts, ok, err := firstTime(p, "timestamp")
	if err != nil {
		return nil, err
	}
	if !ok {
		ts = now
	}

	entry := &model.ActivityLogEntry{
		Timestamp: ts.UTC(),
		Type:      model.ActivityType(firstString(p, "type")),
		Message:   firstString(p, "message"),
	}
	if md, ok := p.JSON("metadata"); ok {
		entry.Metadata = md
	}
	if err := validator.Validate(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
