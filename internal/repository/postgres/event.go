package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/attribution-monitor/internal/domain"
)

// EventRepo persists conversion events. Append-only: no update or delete
// methods exist on purpose.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed conversion-event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Insert writes exactly one event row, raw payload preserved verbatim.
func (r *EventRepo) Insert(ctx context.Context, e *domain.ConversionEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversion_events (
			id, contact_id, event_type, email, name, phone,
			ad_id, campaign_id, adset_id, utm_source, utm_medium, utm_campaign,
			cash_collected, revenue, calendar_type, investment_ability,
			raw_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		e.ID, e.ContactID, e.EventType, e.Email, e.Name, e.Phone,
		e.AdID, e.CampaignID, e.AdsetID, e.UTMSource, e.UTMMedium, e.UTMCampaign,
		e.CashCollected, e.Revenue, e.CalendarType, e.InvestmentAbility,
		[]byte(e.RawPayload), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversion event: %w", err)
	}
	return nil
}

// ListRange returns events created inside the inclusive day range.
func (r *EventRepo) ListRange(ctx context.Context, from, to time.Time) ([]domain.ConversionEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, contact_id, event_type, email, name, phone,
		       ad_id, campaign_id, adset_id, utm_source, utm_medium, utm_campaign,
		       cash_collected, revenue, calendar_type, investment_ability,
		       raw_payload, created_at
		FROM conversion_events
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
	`, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list conversion events: %w", err)
	}
	defer rows.Close()

	var out []domain.ConversionEvent
	for rows.Next() {
		var e domain.ConversionEvent
		var raw []byte
		if err := rows.Scan(
			&e.ID, &e.ContactID, &e.EventType, &e.Email, &e.Name, &e.Phone,
			&e.AdID, &e.CampaignID, &e.AdsetID, &e.UTMSource, &e.UTMMedium, &e.UTMCampaign,
			&e.CashCollected, &e.Revenue, &e.CalendarType, &e.InvestmentAbility,
			&raw, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversion event: %w", err)
		}
		e.RawPayload = raw
		out = append(out, e)
	}
	return out, rows.Err()
}
