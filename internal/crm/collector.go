package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/pkg/logger"
	"github.com/ignite/attribution-monitor/internal/repository/postgres"
)

type contactAPI interface {
	ListContacts(ctx context.Context) ([]APIContact, error)
	GetContact(ctx context.Context, id string) (*APIContact, error)
}

type contactStore interface {
	Get(ctx context.Context, id string) (*domain.Contact, error)
	Upsert(ctx context.Context, c *domain.Contact) error
}

// SyncResult reports a contact sync run. Skipped counts contacts fetched but
// not upserted because neither known custom-field value was present.
type SyncResult struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// Collector syncs CRM contacts into Postgres and applies webhook events to
// contact funnel state.
type Collector struct {
	client   contactAPI
	contacts contactStore

	cashFieldID      string
	dealValueFieldID string
}

func NewCollector(client contactAPI, contacts contactStore, cashFieldID, dealValueFieldID string) *Collector {
	return &Collector{
		client:           client,
		contacts:         contacts,
		cashFieldID:      cashFieldID,
		dealValueFieldID: dealValueFieldID,
	}
}

// customFieldValue finds a custom-field value by field ID or key name.
func customFieldValue(fields []CustomField, fieldID, keyName string) *float64 {
	for _, f := range fields {
		if f.ID == fieldID || strings.EqualFold(f.Key, keyName) {
			return ParseMoney(f.Value)
		}
	}
	return nil
}

// toContact maps an API contact to the domain entity. Returns false when
// neither cash-collected nor deal-value is present: such contacts are skipped
// so a blank-looking sync row cannot shadow richer existing data.
func (c *Collector) toContact(api *APIContact) (*domain.Contact, bool) {
	cash := customFieldValue(api.CustomFields, c.cashFieldID, "cash_collected")
	deal := customFieldValue(api.CustomFields, c.dealValueFieldID, "deal_value")
	if cash == nil && deal == nil {
		return nil, false
	}

	contact := &domain.Contact{
		ID:            api.ID,
		Email:         api.Email,
		Name:          api.Name(),
		Phone:         api.Phone,
		CashCollected: cash,
		DealValue:     deal,
	}
	if attr := api.AttributionSource; attr != nil {
		contact.AdID = attr.AdID
		contact.CampaignID = attr.CampaignID
		contact.CampaignName = attr.Campaign
		contact.AdsetID = attr.AdGroupID
		contact.UTMSource = attr.UTMSource
		contact.UTMMedium = attr.UTMMedium
	}
	return contact, true
}

// SyncContacts pages through every contact for the location and upserts the
// ones carrying a known custom-field value.
func (c *Collector) SyncContacts(ctx context.Context) (*SyncResult, error) {
	apiContacts, err := c.client.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	result := &SyncResult{Fetched: len(apiContacts)}
	for i := range apiContacts {
		contact, ok := c.toContact(&apiContacts[i])
		if !ok {
			result.Skipped++
			continue
		}
		if err := c.contacts.Upsert(ctx, contact); err != nil {
			return result, fmt.Errorf("upsert contact %s: %w", contact.ID, err)
		}
		result.Upserted++
	}
	return result, nil
}

// SyncContact syncs a single contact by its CRM ID.
func (c *Collector) SyncContact(ctx context.Context, id string) (*SyncResult, error) {
	api, err := c.client.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch contact %s: %w", id, err)
	}
	result := &SyncResult{Fetched: 1}
	contact, ok := c.toContact(api)
	if !ok {
		result.Skipped = 1
		return result, nil
	}
	if err := c.contacts.Upsert(ctx, contact); err != nil {
		return result, fmt.Errorf("upsert contact %s: %w", id, err)
	}
	result.Upserted = 1
	return result, nil
}

// ApplyEvent advances a contact's funnel state from a webhook event. Unknown
// event types only refresh identity fields. An event whose stage ranks below
// the contact's current stage is logged and NOT applied: funnel timestamps
// move forward only. Storage-level COALESCE additionally guarantees an
// already-set timestamp is never overwritten.
func (c *Collector) ApplyEvent(ctx context.Context, e *domain.ConversionEvent) error {
	contact, err := c.contacts.Get(ctx, e.ContactID)
	if errors.Is(err, postgres.ErrNotFound) {
		contact = &domain.Contact{ID: e.ContactID}
	} else if err != nil {
		return fmt.Errorf("load contact %s: %w", e.ContactID, err)
	}

	stage := e.Stage()
	if stage != "" {
		if current := contact.FunnelStage(); stage.Rank() < current.Rank() {
			logger.Warn("ignoring funnel regression",
				"contact_id", e.ContactID,
				"event_type", e.EventType,
				"current_stage", string(current))
			stage = ""
		}
	}

	patch := &domain.Contact{
		ID:    e.ContactID,
		Email: e.Email,
		Name:  e.Name,
		Phone: e.Phone,

		AdID:        e.AdID,
		CampaignID:  e.CampaignID,
		AdsetID:     e.AdsetID,
		UTMSource:   e.UTMSource,
		UTMMedium:   e.UTMMedium,
		UTMCampaign: e.UTMCampaign,

		CashCollected:     e.CashCollected,
		CalendarType:      e.CalendarType,
		InvestmentAbility: e.InvestmentAbility,
	}
	if e.Revenue != nil {
		patch.DealValue = e.Revenue
	}

	if stage != "" {
		at := e.CreatedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		setStageTimestamp(patch, stage, at)
		patch.StageHistory = append(contact.StageHistory, domain.StageChange{Stage: stage, ChangedAt: at})
	}

	if err := c.contacts.Upsert(ctx, patch); err != nil {
		return fmt.Errorf("upsert contact %s: %w", e.ContactID, err)
	}
	return nil
}

func setStageTimestamp(c *domain.Contact, stage domain.FunnelStage, at time.Time) {
	switch stage {
	case domain.StageLead:
		c.FormSubmittedAt = &at
	case domain.StageBooked:
		c.CallBookedAt = &at
	case domain.StageQualified:
		c.QualifiedAt = &at
		qualified := true
		c.IsQualified = &qualified
	case domain.StageDisqualified:
		c.DisqualifiedAt = &at
		qualified := false
		c.IsQualified = &qualified
	case domain.StageShowed:
		c.ShowedUpAt = &at
	case domain.StageNoShow:
		c.NoShowAt = &at
	case domain.StageClosed:
		c.DealClosedAt = &at
	}
}
