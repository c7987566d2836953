package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
)

// SpendRepo persists daily ad-spend rows keyed by (ad_id, date).
type SpendRepo struct{ db *sql.DB }

// NewSpendRepo creates a Postgres-backed spend repository.
func NewSpendRepo(db *sql.DB) *SpendRepo { return &SpendRepo{db: db} }

const spendColumns = `ad_id, ad_name, campaign_id, campaign_name, adset_id, adset_name,
	date, spend, impressions, clicks, reach, cpm, cpc, ctr, leads, purchases,
	video_views, video_p25, video_p50, video_p75, video_p100, outbound_clicks, synced_at`

// UpsertBatch writes records in one multi-row INSERT. Same-day rows for the
// same ad are overwritten wholesale (last-write-wins, no versioning).
func (r *SpendRepo) UpsertBatch(ctx context.Context, records []domain.AdSpendRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	const cols = 23
	placeholders := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*cols)
	for i, rec := range records {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		args = append(args,
			rec.AdID, rec.AdName, rec.CampaignID, rec.CampaignName, rec.AdsetID, rec.AdsetName,
			rec.Date, rec.Spend, rec.Impressions, rec.Clicks, rec.Reach, rec.CPM, rec.CPC, rec.CTR,
			rec.Leads, rec.Purchases, rec.VideoViews, rec.VideoP25, rec.VideoP50, rec.VideoP75,
			rec.VideoP100, rec.OutboundClicks, time.Now().UTC(),
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO ad_spend (%s)
		VALUES %s
		ON CONFLICT (ad_id, date) DO UPDATE SET
			ad_name = EXCLUDED.ad_name,
			campaign_id = EXCLUDED.campaign_id,
			campaign_name = EXCLUDED.campaign_name,
			adset_id = EXCLUDED.adset_id,
			adset_name = EXCLUDED.adset_name,
			spend = EXCLUDED.spend,
			impressions = EXCLUDED.impressions,
			clicks = EXCLUDED.clicks,
			reach = EXCLUDED.reach,
			cpm = EXCLUDED.cpm,
			cpc = EXCLUDED.cpc,
			ctr = EXCLUDED.ctr,
			leads = EXCLUDED.leads,
			purchases = EXCLUDED.purchases,
			video_views = EXCLUDED.video_views,
			video_p25 = EXCLUDED.video_p25,
			video_p50 = EXCLUDED.video_p50,
			video_p75 = EXCLUDED.video_p75,
			video_p100 = EXCLUDED.video_p100,
			outbound_clicks = EXCLUDED.outbound_clicks,
			synced_at = EXCLUDED.synced_at
	`, spendColumns, strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("upsert ad spend batch: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListRange returns all spend rows whose date falls inside the inclusive range.
func (r *SpendRepo) ListRange(ctx context.Context, from, to time.Time) ([]domain.AdSpendRecord, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM ad_spend
		WHERE date >= $1 AND date <= $2
		ORDER BY date, ad_id
	`, spendColumns), from, to)
	if err != nil {
		return nil, fmt.Errorf("list ad spend: %w", err)
	}
	defer rows.Close()

	var out []domain.AdSpendRecord
	for rows.Next() {
		var rec domain.AdSpendRecord
		if err := rows.Scan(
			&rec.AdID, &rec.AdName, &rec.CampaignID, &rec.CampaignName, &rec.AdsetID, &rec.AdsetName,
			&rec.Date, &rec.Spend, &rec.Impressions, &rec.Clicks, &rec.Reach, &rec.CPM, &rec.CPC,
			&rec.CTR, &rec.Leads, &rec.Purchases, &rec.VideoViews, &rec.VideoP25, &rec.VideoP50,
			&rec.VideoP75, &rec.VideoP100, &rec.OutboundClicks, &rec.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ad spend: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
