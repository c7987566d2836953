package domain

import "time"

// AdSpendRecord is one ad's performance for one calendar day, as reported by
// the ad platform's insights endpoint. Uniquely identified by (AdID, Date);
// repeated syncs overwrite same-day values (upsert, last-write-wins).
type AdSpendRecord struct {
	AdID         string `json:"ad_id" db:"ad_id"`
	AdName       string `json:"ad_name" db:"ad_name"`
	CampaignID   string `json:"campaign_id" db:"campaign_id"`
	CampaignName string `json:"campaign_name" db:"campaign_name"`
	AdsetID      string `json:"adset_id" db:"adset_id"`
	AdsetName    string `json:"adset_name" db:"adset_name"`

	// Date is the reporting day (midnight UTC, date component only).
	Date time.Time `json:"date" db:"date"`

	Spend       float64 `json:"spend" db:"spend"`
	Impressions int64   `json:"impressions" db:"impressions"`
	Clicks      int64   `json:"clicks" db:"clicks"`

	// Extended metrics. Optional on the wire; absent values are stored as zero.
	Reach          int64   `json:"reach" db:"reach"`
	CPM            float64 `json:"cpm" db:"cpm"`
	CPC            float64 `json:"cpc" db:"cpc"`
	CTR            float64 `json:"ctr" db:"ctr"`
	Leads          int64   `json:"leads" db:"leads"`
	Purchases      int64   `json:"purchases" db:"purchases"`
	VideoViews     int64   `json:"video_views" db:"video_views"`
	VideoP25       int64   `json:"video_p25" db:"video_p25"`
	VideoP50       int64   `json:"video_p50" db:"video_p50"`
	VideoP75       int64   `json:"video_p75" db:"video_p75"`
	VideoP100      int64   `json:"video_p100" db:"video_p100"`
	OutboundClicks int64   `json:"outbound_clicks" db:"outbound_clicks"`

	SyncedAt time.Time `json:"synced_at" db:"synced_at"`
}

// DateRange is an inclusive calendar-day window used by sync jobs and queries.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether d falls inside the range (inclusive on both ends).
// Only the date component is compared.
func (r DateRange) Contains(d time.Time) bool {
	day := d.Truncate(24 * time.Hour)
	return !day.Before(r.From.Truncate(24*time.Hour)) && !day.After(r.To.Truncate(24*time.Hour))
}

// Empty reports whether the range selects no days (from after to).
func (r DateRange) Empty() bool {
	return r.From.Truncate(24 * time.Hour).After(r.To.Truncate(24 * time.Hour))
}

// SyncLog tracks one sync-job run so external schedulers can correlate results.
type SyncLog struct {
	ID          string     `json:"id" db:"id"`
	JobType     string     `json:"job_type" db:"job_type"`
	Status      string     `json:"status" db:"status"`
	Message     string     `json:"message" db:"message"`
	RowsWritten int        `json:"rows_written" db:"rows_written"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
}

const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)
