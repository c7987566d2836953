package domain

import "time"

// FunnelStage is a contact's furthest-reached point in the
// lead -> booked -> qualified -> shown -> closed progression.
type FunnelStage string

const (
	StageLead         FunnelStage = "lead"
	StageBooked       FunnelStage = "booked"
	StageQualified    FunnelStage = "qualified"
	StageDisqualified FunnelStage = "disqualified"
	StageShowed       FunnelStage = "showed"
	StageNoShow       FunnelStage = "no_show"
	StageClosed       FunnelStage = "closed"
)

// stageRank orders funnel stages by pipeline depth. Later stages outrank
// earlier ones regardless of the order timestamps arrived in.
var stageRank = map[FunnelStage]int{
	StageLead:         0,
	StageBooked:       1,
	StageQualified:    2,
	StageDisqualified: 2,
	StageShowed:       3,
	StageNoShow:       4,
	StageClosed:       5,
}

// Rank returns the pipeline depth of the stage (0 = lead).
func (s FunnelStage) Rank() int { return stageRank[s] }

// Contact is a CRM contact with denormalized ad attribution and the funnel
// timestamps that drive stage derivation. Upserted by external CRM ID; syncs
// may add or overwrite fields but never clear an already-set funnel timestamp.
type Contact struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`

	// Ad attribution (denormalized from the first-touch event)
	AdID         string `json:"ad_id" db:"ad_id"`
	AdName       string `json:"ad_name" db:"ad_name"`
	CampaignID   string `json:"campaign_id" db:"campaign_id"`
	CampaignName string `json:"campaign_name" db:"campaign_name"`
	AdsetID      string `json:"adset_id" db:"adset_id"`
	AdsetName    string `json:"adset_name" db:"adset_name"`
	UTMSource    string `json:"utm_source" db:"utm_source"`
	UTMMedium    string `json:"utm_medium" db:"utm_medium"`
	UTMCampaign  string `json:"utm_campaign" db:"utm_campaign"`

	// Business fields from CRM custom fields
	DealValue        *float64 `json:"deal_value" db:"deal_value"`
	CashCollected    *float64 `json:"cash_collected" db:"cash_collected"`
	InvestmentAbility string  `json:"investment_ability" db:"investment_ability"`
	ScalingChallenge  string  `json:"scaling_challenge" db:"scaling_challenge"`
	CalendarType      string  `json:"calendar_type" db:"calendar_type"`

	// Funnel timestamps. Each is nullable and set at most once by the
	// corresponding external event.
	FormSubmittedAt *time.Time `json:"form_submitted_at" db:"form_submitted_at"`
	CallBookedAt    *time.Time `json:"call_booked_at" db:"call_booked_at"`
	QualifiedAt     *time.Time `json:"qualified_at" db:"qualified_at"`
	DisqualifiedAt  *time.Time `json:"disqualified_at" db:"disqualified_at"`
	IsQualified     *bool      `json:"is_qualified" db:"is_qualified"`
	ShowedUpAt      *time.Time `json:"showed_up_at" db:"showed_up_at"`
	NoShowAt        *time.Time `json:"no_show_at" db:"no_show_at"`
	DealClosedAt    *time.Time `json:"deal_closed_at" db:"deal_closed_at"`

	// Stage history, most recent last. Stored alongside the derived stage so
	// the dashboard can show progression without replaying events.
	StageHistory []StageChange `json:"stage_history" db:"stage_history"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StageChange records one entry in a contact's stage history.
type StageChange struct {
	Stage     FunnelStage `json:"stage"`
	ChangedAt time.Time   `json:"changed_at"`
}

// FunnelStage derives the contact's current stage from whichever timestamps
// are non-nil. Precedence: closed > no_show > showed > disqualified >
// qualified > booked > lead. Derived, never stored.
func (c *Contact) FunnelStage() FunnelStage {
	switch {
	case c.DealClosedAt != nil:
		return StageClosed
	case c.NoShowAt != nil:
		return StageNoShow
	case c.ShowedUpAt != nil:
		return StageShowed
	case c.DisqualifiedAt != nil || (c.IsQualified != nil && !*c.IsQualified):
		return StageDisqualified
	case c.QualifiedAt != nil || (c.IsQualified != nil && *c.IsQualified):
		return StageQualified
	case c.CallBookedAt != nil:
		return StageBooked
	default:
		return StageLead
	}
}

// Revenue returns the contact's attributable revenue: cash collected when
// present, else deal value, else zero.
func (c *Contact) Revenue() float64 {
	if c.CashCollected != nil {
		return *c.CashCollected
	}
	if c.DealValue != nil {
		return *c.DealValue
	}
	return 0
}
