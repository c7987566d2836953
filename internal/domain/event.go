package domain

import (
	"encoding/json"
	"time"
)

// ConversionEvent is one normalized webhook notification. Append-only: rows
// are never updated or deleted; all derived state lives on Contact.
type ConversionEvent struct {
	ID        string `json:"id" db:"id"`
	ContactID string `json:"contact_id" db:"contact_id"`

	// EventType is free text driven by external workflow names
	// (e.g. "form_submitted", "booked_call", "showed_up", "deal_closed").
	EventType string `json:"event_type" db:"event_type"`

	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
	Phone string `json:"phone" db:"phone"`

	// Optional ad attribution carried on the payload
	AdID         string `json:"ad_id" db:"ad_id"`
	CampaignID   string `json:"campaign_id" db:"campaign_id"`
	AdsetID      string `json:"adset_id" db:"adset_id"`
	UTMSource    string `json:"utm_source" db:"utm_source"`
	UTMMedium    string `json:"utm_medium" db:"utm_medium"`
	UTMCampaign  string `json:"utm_campaign" db:"utm_campaign"`

	// Optional monetary fields
	CashCollected     *float64 `json:"cash_collected" db:"cash_collected"`
	Revenue           *float64 `json:"revenue" db:"revenue"`
	CalendarType      string   `json:"calendar_type" db:"calendar_type"`
	InvestmentAbility string   `json:"investment_ability" db:"investment_ability"`

	// RawPayload preserves the original webhook body verbatim so extraction
	// bugs are recoverable by reprocessing.
	RawPayload json.RawMessage `json:"raw_payload" db:"raw_payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Stage maps a workflow event type to the funnel stage it advances, or ""
// when the event does not move the funnel.
func (e *ConversionEvent) Stage() FunnelStage {
	switch e.EventType {
	case "form_submitted", "lead", "opt_in":
		return StageLead
	case "booked_call", "call_booked", "appointment_booked":
		return StageBooked
	case "qualified":
		return StageQualified
	case "disqualified":
		return StageDisqualified
	case "showed_up", "call_showed":
		return StageShowed
	case "no_show", "noshow":
		return StageNoShow
	case "deal_closed", "closed_won":
		return StageClosed
	default:
		return ""
	}
}
