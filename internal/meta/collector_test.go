package meta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/attribution-monitor/internal/domain"
)

type fakeFetcher struct {
	rows []InsightRow
	err  error
}

func (f *fakeFetcher) GetInsights(context.Context, domain.DateRange, []string) ([]InsightRow, error) {
	return f.rows, f.err
}

type fakeSpendStore struct {
	batches [][]domain.AdSpendRecord
	failOn  int // 1-based batch index that errors, 0 = never
}

func (s *fakeSpendStore) UpsertBatch(_ context.Context, records []domain.AdSpendRecord) (int, error) {
	s.batches = append(s.batches, records)
	if s.failOn == len(s.batches) {
		return 0, errors.New("deadlock detected")
	}
	return len(records), nil
}

type fakeSyncLog struct {
	id, status, message string
	rows                int
	err                 error
	calls               int
}

func (l *fakeSyncLog) Finish(_ context.Context, id, status, message string, rows int) error {
	l.calls++
	l.id, l.status, l.message, l.rows = id, status, message, rows
	return l.err
}

func insightRows(n int) []InsightRow {
	rows := make([]InsightRow, n)
	for i := range rows {
		rows[i] = InsightRow{AdID: "A1", DateStart: "2024-01-05", Spend: "1.00"}
	}
	return rows
}

func TestSyncSpendChunksAndLogs(t *testing.T) {
	store := &fakeSpendStore{}
	logs := &fakeSyncLog{}
	c := NewCollector(&fakeFetcher{rows: insightRows(450)}, store, logs)

	res, err := c.SyncSpend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now(), "log-1")
	require.NoError(t, err)

	assert.Equal(t, 450, res.RowsFetched)
	assert.Equal(t, 450, res.RowsUpserted)
	assert.Empty(t, res.Errors)
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 200)
	assert.Len(t, store.batches[2], 50)

	assert.Equal(t, "log-1", logs.id)
	assert.Equal(t, domain.SyncStatusSuccess, logs.status)
	assert.Equal(t, 450, logs.rows)
}

func TestSyncSpendContinuesPastFailedChunk(t *testing.T) {
	store := &fakeSpendStore{failOn: 1}
	logs := &fakeSyncLog{}
	c := NewCollector(&fakeFetcher{rows: insightRows(450)}, store, logs)

	res, err := c.SyncSpend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now(), "log-1")
	require.NoError(t, err)

	// first chunk failed, the remaining two still ran
	require.Len(t, store.batches, 3)
	assert.Equal(t, 250, res.RowsUpserted)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "deadlock detected")
	assert.Equal(t, domain.SyncStatusFailed, logs.status)
}

func TestSyncSpendFetchFailureFinishesLog(t *testing.T) {
	logs := &fakeSyncLog{}
	c := NewCollector(&fakeFetcher{err: errors.New("rate limited after 5 retries")}, &fakeSpendStore{}, logs)

	_, err := c.SyncSpend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now(), "log-1")
	require.Error(t, err)
	assert.Equal(t, domain.SyncStatusFailed, logs.status)
	assert.Contains(t, logs.message, "rate limited")
}

func TestSyncSpendLogUpdateFailureIsNotFatal(t *testing.T) {
	logs := &fakeSyncLog{err: errors.New("connection reset")}
	c := NewCollector(&fakeFetcher{rows: insightRows(3)}, &fakeSpendStore{}, logs)

	res, err := c.SyncSpend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now(), "log-1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsUpserted)
	assert.Equal(t, 1, logs.calls)
}

func TestSyncSpendSkipsUnparsableRows(t *testing.T) {
	rows := insightRows(2)
	rows = append(rows, InsightRow{AdID: "A9", DateStart: "bogus"})
	c := NewCollector(&fakeFetcher{rows: rows}, &fakeSpendStore{}, nil)

	res, err := c.SyncSpend(context.Background(), time.Now().AddDate(0, 0, -7), time.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowsFetched)
	assert.Equal(t, 2, res.RowsUpserted)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "A9")
}
