package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/attribution-monitor/internal/domain"
)

// TranscriptRepo persists transcript records, one per ad.
type TranscriptRepo struct{ db *sql.DB }

// NewTranscriptRepo creates a Postgres-backed transcript repository.
func NewTranscriptRepo(db *sql.DB) *TranscriptRepo { return &TranscriptRepo{db: db} }

const transcriptColumns = `ad_id, media_type, status, video_id, media_url, poster_url,
	duration_secs, transcript, segments, ad_copy, error, created_at, updated_at`

// Get returns the transcript record for an ad, or ErrNotFound.
func (r *TranscriptRepo) Get(ctx context.Context, adID string) (*domain.TranscriptRecord, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM ad_transcripts WHERE ad_id = $1
	`, transcriptColumns), adID)

	t, err := scanTranscript(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return t, nil
}

// Upsert writes the record, replacing any existing row for the ad.
func (r *TranscriptRepo) Upsert(ctx context.Context, t *domain.TranscriptRecord) error {
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	if t.Segments == nil {
		segments = []byte("[]")
	}
	adCopy, err := json.Marshal(t.AdCopy)
	if err != nil {
		return fmt.Errorf("marshal ad copy: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ad_transcripts (
			ad_id, media_type, status, video_id, media_url, poster_url,
			duration_secs, transcript, segments, ad_copy, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (ad_id) DO UPDATE SET
			media_type = EXCLUDED.media_type,
			status = EXCLUDED.status,
			video_id = EXCLUDED.video_id,
			media_url = EXCLUDED.media_url,
			poster_url = EXCLUDED.poster_url,
			duration_secs = EXCLUDED.duration_secs,
			transcript = EXCLUDED.transcript,
			segments = EXCLUDED.segments,
			ad_copy = EXCLUDED.ad_copy,
			error = EXCLUDED.error,
			updated_at = NOW()
	`,
		t.AdID, t.MediaType, t.Status, t.VideoID, t.MediaURL, t.PosterURL,
		t.DurationSecs, t.Transcript, segments, adCopy, t.Error,
	)
	if err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

// ClaimPending atomically moves up to limit pending jobs to processing and
// returns them, oldest first. SKIP LOCKED keeps a second worker instance
// from claiming the same rows.
func (r *TranscriptRepo) ClaimPending(ctx context.Context, limit int) ([]domain.TranscriptRecord, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		UPDATE ad_transcripts SET status = 'processing', updated_at = NOW()
		WHERE ad_id IN (
			SELECT ad_id FROM ad_transcripts
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, transcriptColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending transcripts: %w", err)
	}
	defer rows.Close()

	var out []domain.TranscriptRecord
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed transcript: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// MarkCompleted stores the transcript text and segments and finalizes the job.
func (r *TranscriptRepo) MarkCompleted(ctx context.Context, adID, transcript string, segments []domain.TranscriptSegment) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	if segments == nil {
		data = []byte("[]")
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE ad_transcripts
		SET status = 'completed', transcript = $2, segments = $3, error = '', updated_at = NOW()
		WHERE ad_id = $1
	`, adID, transcript, data)
	if err != nil {
		return fmt.Errorf("mark transcript completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure message on the job.
func (r *TranscriptRepo) MarkFailed(ctx context.Context, adID, message string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ad_transcripts
		SET status = 'failed', error = $2, updated_at = NOW()
		WHERE ad_id = $1
	`, adID, message)
	if err != nil {
		return fmt.Errorf("mark transcript failed: %w", err)
	}
	return nil
}

func scanTranscript(row rowScanner) (*domain.TranscriptRecord, error) {
	t := &domain.TranscriptRecord{}
	var segments, adCopy []byte
	err := row.Scan(
		&t.AdID, &t.MediaType, &t.Status, &t.VideoID, &t.MediaURL, &t.PosterURL,
		&t.DurationSecs, &t.Transcript, &segments, &adCopy, &t.Error, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &t.Segments); err != nil {
			return nil, fmt.Errorf("unmarshal segments: %w", err)
		}
	}
	if len(adCopy) > 0 {
		if err := json.Unmarshal(adCopy, &t.AdCopy); err != nil {
			return nil, fmt.Errorf("unmarshal ad copy: %w", err)
		}
	}
	return t, nil
}
