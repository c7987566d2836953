package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
)

// ContactRepo persists CRM contacts keyed by their external CRM ID.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

const contactColumns = `id, email, name, phone,
	ad_id, ad_name, campaign_id, campaign_name, adset_id, adset_name,
	utm_source, utm_medium, utm_campaign,
	deal_value, cash_collected, investment_ability, scaling_challenge, calendar_type,
	form_submitted_at, call_booked_at, qualified_at, disqualified_at, is_qualified,
	showed_up_at, no_show_at, deal_closed_at, stage_history, created_at, updated_at`

// Get returns one contact by external CRM ID.
func (r *ContactRepo) Get(ctx context.Context, id string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM contacts WHERE id = $1
	`, contactColumns), id)

	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// Upsert inserts or updates a contact by external CRM ID. Text fields take
// the incoming value only when non-empty; funnel timestamps take the
// incoming value only when the stored one is NULL, so an already-set
// timestamp is never cleared or moved by a later sync.
func (r *ContactRepo) Upsert(ctx context.Context, c *domain.Contact) error {
	history, err := json.Marshal(c.StageHistory)
	if err != nil {
		return fmt.Errorf("marshal stage history: %w", err)
	}
	if c.StageHistory == nil {
		history = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO contacts (
			id, email, name, phone,
			ad_id, ad_name, campaign_id, campaign_name, adset_id, adset_name,
			utm_source, utm_medium, utm_campaign,
			deal_value, cash_collected, investment_ability, scaling_challenge, calendar_type,
			form_submitted_at, call_booked_at, qualified_at, disqualified_at, is_qualified,
			showed_up_at, no_show_at, deal_closed_at, stage_history, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE contacts.email END,
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE contacts.name END,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE contacts.phone END,
			ad_id = CASE WHEN EXCLUDED.ad_id <> '' THEN EXCLUDED.ad_id ELSE contacts.ad_id END,
			ad_name = CASE WHEN EXCLUDED.ad_name <> '' THEN EXCLUDED.ad_name ELSE contacts.ad_name END,
			campaign_id = CASE WHEN EXCLUDED.campaign_id <> '' THEN EXCLUDED.campaign_id ELSE contacts.campaign_id END,
			campaign_name = CASE WHEN EXCLUDED.campaign_name <> '' THEN EXCLUDED.campaign_name ELSE contacts.campaign_name END,
			adset_id = CASE WHEN EXCLUDED.adset_id <> '' THEN EXCLUDED.adset_id ELSE contacts.adset_id END,
			adset_name = CASE WHEN EXCLUDED.adset_name <> '' THEN EXCLUDED.adset_name ELSE contacts.adset_name END,
			utm_source = CASE WHEN EXCLUDED.utm_source <> '' THEN EXCLUDED.utm_source ELSE contacts.utm_source END,
			utm_medium = CASE WHEN EXCLUDED.utm_medium <> '' THEN EXCLUDED.utm_medium ELSE contacts.utm_medium END,
			utm_campaign = CASE WHEN EXCLUDED.utm_campaign <> '' THEN EXCLUDED.utm_campaign ELSE contacts.utm_campaign END,
			deal_value = COALESCE(EXCLUDED.deal_value, contacts.deal_value),
			cash_collected = COALESCE(EXCLUDED.cash_collected, contacts.cash_collected),
			investment_ability = CASE WHEN EXCLUDED.investment_ability <> '' THEN EXCLUDED.investment_ability ELSE contacts.investment_ability END,
			scaling_challenge = CASE WHEN EXCLUDED.scaling_challenge <> '' THEN EXCLUDED.scaling_challenge ELSE contacts.scaling_challenge END,
			calendar_type = CASE WHEN EXCLUDED.calendar_type <> '' THEN EXCLUDED.calendar_type ELSE contacts.calendar_type END,
			form_submitted_at = COALESCE(contacts.form_submitted_at, EXCLUDED.form_submitted_at),
			call_booked_at = COALESCE(contacts.call_booked_at, EXCLUDED.call_booked_at),
			qualified_at = COALESCE(contacts.qualified_at, EXCLUDED.qualified_at),
			disqualified_at = COALESCE(contacts.disqualified_at, EXCLUDED.disqualified_at),
			is_qualified = COALESCE(contacts.is_qualified, EXCLUDED.is_qualified),
			showed_up_at = COALESCE(contacts.showed_up_at, EXCLUDED.showed_up_at),
			no_show_at = COALESCE(contacts.no_show_at, EXCLUDED.no_show_at),
			deal_closed_at = COALESCE(contacts.deal_closed_at, EXCLUDED.deal_closed_at),
			stage_history = CASE WHEN EXCLUDED.stage_history <> '[]'::jsonb THEN EXCLUDED.stage_history ELSE contacts.stage_history END,
			updated_at = NOW()
	`,
		c.ID, c.Email, c.Name, c.Phone,
		c.AdID, c.AdName, c.CampaignID, c.CampaignName, c.AdsetID, c.AdsetName,
		c.UTMSource, c.UTMMedium, c.UTMCampaign,
		c.DealValue, c.CashCollected, c.InvestmentAbility, c.ScalingChallenge, c.CalendarType,
		c.FormSubmittedAt, c.CallBookedAt, c.QualifiedAt, c.DisqualifiedAt, c.IsQualified,
		c.ShowedUpAt, c.NoShowAt, c.DealClosedAt, history,
	)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// ListByFormSubmitted returns contacts whose form_submitted_at falls inside
// the inclusive range. This is the contact-side filter of every dashboard
// query: spend is dated by calendar day, contacts by form submission.
func (r *ContactRepo) ListByFormSubmitted(ctx context.Context, from, to time.Time) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM contacts
		WHERE form_submitted_at >= $1 AND form_submitted_at < $2
		ORDER BY form_submitted_at
	`, contactColumns), from, to.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	c := &domain.Contact{}
	var history []byte
	err := row.Scan(
		&c.ID, &c.Email, &c.Name, &c.Phone,
		&c.AdID, &c.AdName, &c.CampaignID, &c.CampaignName, &c.AdsetID, &c.AdsetName,
		&c.UTMSource, &c.UTMMedium, &c.UTMCampaign,
		&c.DealValue, &c.CashCollected, &c.InvestmentAbility, &c.ScalingChallenge, &c.CalendarType,
		&c.FormSubmittedAt, &c.CallBookedAt, &c.QualifiedAt, &c.DisqualifiedAt, &c.IsQualified,
		&c.ShowedUpAt, &c.NoShowAt, &c.DealClosedAt, &history, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &c.StageHistory); err != nil {
			return nil, fmt.Errorf("unmarshal stage history: %w", err)
		}
	}
	return c, nil
}
