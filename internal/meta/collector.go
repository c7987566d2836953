package meta

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
)

// upsertChunkSize keeps the multi-row INSERT well under the Postgres
// placeholder limit (23 columns per row).
const upsertChunkSize = 200

type insightsFetcher interface {
	GetInsights(ctx context.Context, rng domain.DateRange, campaignIDs []string) ([]InsightRow, error)
}

type spendStore interface {
	UpsertBatch(ctx context.Context, records []domain.AdSpendRecord) (int, error)
}

type syncLogStore interface {
	Finish(ctx context.Context, id, status, message string, rowsWritten int) error
}

// SyncResult reports what a spend sync accomplished. Errors holds per-chunk
// failures; a sync with some failed chunks still counts its successful rows.
type SyncResult struct {
	RowsFetched  int      `json:"rows_fetched"`
	RowsUpserted int      `json:"rows_upserted"`
	Errors       []string `json:"errors,omitempty"`
}

// Collector pulls ad spend from the Marketing API into Postgres.
type Collector struct {
	client   insightsFetcher
	spend    spendStore
	syncLogs syncLogStore
}

func NewCollector(client insightsFetcher, spend spendStore, syncLogs syncLogStore) *Collector {
	return &Collector{client: client, spend: spend, syncLogs: syncLogs}
}

// SyncSpend fetches per-ad/per-day insights for the range and upserts them in
// chunks. A failed chunk is recorded and processing continues with the next
// chunk. When logID is set the matching sync-log row is finished with the
// outcome; a log-update failure is logged but never fails an otherwise
// successful sync.
func (c *Collector) SyncSpend(ctx context.Context, from, to time.Time, logID string) (*SyncResult, error) {
	rows, err := c.client.GetInsights(ctx, domain.DateRange{From: from, To: to}, nil)
	if err != nil {
		c.finishLog(ctx, logID, domain.SyncStatusFailed, err.Error(), 0)
		return nil, fmt.Errorf("fetch insights: %w", err)
	}

	result := &SyncResult{RowsFetched: len(rows)}

	records := make([]domain.AdSpendRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.ToSpendRecord()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("ad %s: %v", row.AdID, err))
			continue
		}
		records = append(records, rec)
	}

	for start := 0; start < len(records); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(records) {
			end = len(records)
		}
		n, err := c.spend.UpsertBatch(ctx, records[start:end])
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("chunk %d-%d: %v", start, end, err))
			continue
		}
		result.RowsUpserted += n
	}

	status := domain.SyncStatusSuccess
	message := ""
	if len(result.Errors) > 0 {
		status = domain.SyncStatusFailed
		message = strings.Join(result.Errors, "; ")
	}
	c.finishLog(ctx, logID, status, message, result.RowsUpserted)

	return result, nil
}

func (c *Collector) finishLog(ctx context.Context, logID, status, message string, rows int) {
	if logID == "" || c.syncLogs == nil {
		return
	}
	if err := c.syncLogs.Finish(ctx, logID, status, message, rows); err != nil {
		log.Printf("meta: sync log %s update failed: %v", logID, err)
	}
}
