package model

import (
	"time"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// NewsletterCampaignReport holds the delivery and engagement figures of one campaign send.
// Rates are fractions in [0,1] stored at write time.
type NewsletterCampaignReport struct {
	ID              int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignName    string         `json:"campaignName" gorm:"column:campaign_name;type:text;not null" validate:"required"`
	Subject         string         `json:"subject" gorm:"column:subject;type:text"`
	TotalRecipients int64          `json:"totalRecipients" gorm:"column:total_recipients;not null;default:0" validate:"gte=0"`
	EmailsSent      int64          `json:"emailsSent" gorm:"column:emails_sent;not null;default:0" validate:"gte=0"`
	HardBounces     int64          `json:"hardBounces" gorm:"column:hard_bounces;not null;default:0" validate:"gte=0"`
	SoftBounces     int64          `json:"softBounces" gorm:"column:soft_bounces;not null;default:0" validate:"gte=0"`
	SyntaxBounces   int64          `json:"syntaxBounces" gorm:"column:syntax_bounces;not null;default:0" validate:"gte=0"`
	TotalBounces    int64          `json:"totalBounces" gorm:"column:total_bounces;not null;default:0" validate:"gte=0"`
	TotalOpens      int64          `json:"totalOpens" gorm:"column:total_opens;not null;default:0" validate:"gte=0"`
	UniqueOpens     int64          `json:"uniqueOpens" gorm:"column:unique_opens;not null;default:0" validate:"gte=0"`
	TotalClicks     int64          `json:"totalClicks" gorm:"column:total_clicks;not null;default:0" validate:"gte=0"`
	UniqueClicks    int64          `json:"uniqueClicks" gorm:"column:unique_clicks;not null;default:0" validate:"gte=0"`
	Unsubscribes    int64          `json:"unsubscribes" gorm:"column:unsubscribes;not null;default:0" validate:"gte=0"`
	OpenRate        float64        `json:"openRate" gorm:"column:open_rate;not null;default:0"`
	ClickRate       float64        `json:"clickRate" gorm:"column:click_rate;not null;default:0"`
	ClickToOpenRate float64        `json:"clickToOpenRate" gorm:"column:click_to_open_rate;not null;default:0"`
	SendTime        time.Time      `json:"sendTime" gorm:"column:send_time;not null"`
	DayOfWeek       string         `json:"dayOfWeek" gorm:"column:day_of_week;type:varchar(16)"`
	RawData         datatypes.JSON `json:"rawData,omitempty" gorm:"column:raw_data;type:jsonb"`
	CreatedAt       time.Time      `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
}

func (NewsletterCampaignReport) TableName() string {
	return "newsletter_campaign_reports"
}

func (n *NewsletterCampaignReport) ReportChannel() Channel { return ChannelNewsletter }
func (n *NewsletterCampaignReport) ReportID() int64        { return n.ID }
func (n *NewsletterCampaignReport) ReportTime() time.Time  { return n.SendTime }

// ComputeRates fills the derived rates and the weekday from the raw counts.
// Rates are stored unrounded.
func (n *NewsletterCampaignReport) ComputeRates() {
	sent := float64(n.EmailsSent)
	n.OpenRate = utils.SafeDiv(float64(n.UniqueOpens), sent)
	n.ClickRate = utils.SafeDiv(float64(n.UniqueClicks), sent)
	n.ClickToOpenRate = utils.SafeDiv(float64(n.UniqueClicks), float64(n.UniqueOpens))
	if !n.SendTime.IsZero() {
		n.DayOfWeek = n.SendTime.UTC().Weekday().String()
	}
}
