package crm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/attribution-monitor/internal/domain"
)

var (
	ErrMissingContactID = errors.New("missing contact identifier")
	ErrMissingEventType = errors.New("missing event type")
)

// Webhook payloads arrive with inconsistent key spellings depending on which
// workflow fired them. Each logical field is an ordered list of dot paths,
// evaluated first-match-wins: top-level camelCase, top-level snake_case, then
// contact.*, then customData.*/custom_data.*.
var eventPaths = map[string][]string{
	"contact_id": {"contactId", "contact_id", "contact.id", "customData.contactId", "custom_data.contact_id"},
	"event_type": {"eventType", "event_type", "workflowName", "workflow_name", "customData.eventType", "custom_data.event_type"},

	"email": {"email", "contact.email", "customData.email", "custom_data.email"},
	"name":  {"name", "fullName", "full_name", "contact.name", "customData.name"},
	"phone": {"phone", "contact.phone", "customData.phone", "custom_data.phone"},

	"ad_id":        {"adId", "ad_id", "contact.adId", "customData.adId", "custom_data.ad_id"},
	"campaign_id":  {"campaignId", "campaign_id", "contact.campaignId", "customData.campaignId", "custom_data.campaign_id"},
	"adset_id":     {"adsetId", "adset_id", "adSetId", "contact.adsetId", "customData.adsetId", "custom_data.adset_id"},
	"utm_source":   {"utmSource", "utm_source", "contact.utmSource", "customData.utmSource", "custom_data.utm_source"},
	"utm_medium":   {"utmMedium", "utm_medium", "contact.utmMedium", "customData.utmMedium", "custom_data.utm_medium"},
	"utm_campaign": {"utmCampaign", "utm_campaign", "contact.utmCampaign", "customData.utmCampaign", "custom_data.utm_campaign"},

	"cash_collected": {"cashCollected", "cash_collected", "customData.cashCollected", "custom_data.cash_collected"},
	"revenue":        {"revenue", "dealValue", "deal_value", "customData.revenue", "custom_data.revenue", "customData.dealValue", "custom_data.deal_value"},

	"calendar_type":      {"calendarType", "calendar_type", "calendar", "customData.calendarType", "custom_data.calendar_type"},
	"investment_ability": {"investmentAbility", "investment_ability", "customData.investmentAbility", "custom_data.investment_ability"},
}

// lookup walks one dot path through nested JSON objects.
func lookup(payload map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = payload
	for _, part := range parts {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// firstString returns the first non-empty string value among the field's
// candidate paths.
func firstString(payload map[string]interface{}, field string) string {
	for _, path := range eventPaths[field] {
		v, ok := lookup(payload, path)
		if !ok {
			continue
		}
		s := stringify(v)
		if s != "" {
			return s
		}
	}
	return ""
}

// firstMoney returns the first parsable monetary value among the field's
// candidate paths, nil when none parses.
func firstMoney(payload map[string]interface{}, field string) *float64 {
	for _, path := range eventPaths[field] {
		v, ok := lookup(payload, path)
		if !ok {
			continue
		}
		if f := ParseMoney(v); f != nil {
			return f
		}
	}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// ParseMoney parses a monetary amount from a JSON value, stripping currency
// symbols and thousands separators first. Unparsable values yield nil, never
// an error.
func ParseMoney(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case string:
		cleaned := strings.TrimSpace(t)
		cleaned = strings.Map(func(r rune) rune {
			switch r {
			case '$', '€', '£', ',', ' ':
				return -1
			}
			return r
		}, cleaned)
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ExtractEvent builds a ConversionEvent from a raw webhook body. The body is
// kept verbatim in RawPayload. Contact ID and event type are mandatory; every
// other field is best-effort.
func ExtractEvent(raw []byte) (*domain.ConversionEvent, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	contactID := firstString(payload, "contact_id")
	if contactID == "" {
		return nil, ErrMissingContactID
	}
	eventType := firstString(payload, "event_type")
	if eventType == "" {
		return nil, ErrMissingEventType
	}

	return &domain.ConversionEvent{
		ID:        uuid.New().String(),
		ContactID: contactID,
		EventType: eventType,

		Email: firstString(payload, "email"),
		Name:  firstString(payload, "name"),
		Phone: firstString(payload, "phone"),

		AdID:        firstString(payload, "ad_id"),
		CampaignID:  firstString(payload, "campaign_id"),
		AdsetID:     firstString(payload, "adset_id"),
		UTMSource:   firstString(payload, "utm_source"),
		UTMMedium:   firstString(payload, "utm_medium"),
		UTMCampaign: firstString(payload, "utm_campaign"),

		CashCollected:     firstMoney(payload, "cash_collected"),
		Revenue:           firstMoney(payload, "revenue"),
		CalendarType:      firstString(payload, "calendar_type"),
		InvestmentAbility: firstString(payload, "investment_ability"),

		RawPayload: json.RawMessage(raw),
		CreatedAt:  time.Now().UTC(),
	}, nil
}
