package domain

import "time"

// TranscriptStatus enumerates the transcript job lifecycle.
// Transitions are one-directional (pending -> processing -> completed|failed)
// except for explicit force-regeneration, which resets to processing.
type TranscriptStatus string

const (
	TranscriptPending    TranscriptStatus = "pending"
	TranscriptProcessing TranscriptStatus = "processing"
	TranscriptCompleted  TranscriptStatus = "completed"
	TranscriptFailed     TranscriptStatus = "failed"
)

// MediaType enumerates ad creative media types.
type MediaType string

const (
	MediaVideo    MediaType = "video"
	MediaImage    MediaType = "image"
	MediaCarousel MediaType = "carousel"
)

// TranscriptSegment is one timed slice of a video transcript.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// AdCopy holds the text fields extracted from an ad creative.
type AdCopy struct {
	Headline    string `json:"headline"`
	Body        string `json:"body"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
}

// TranscriptRecord caches transcription results per ad. One row per ad,
// upserted on conflict. For completed video records Segments should be
// non-empty; for completed image records AdCopy carries the content. That
// is a writer convention, not a constraint.
type TranscriptRecord struct {
	AdID      string           `json:"ad_id" db:"ad_id"`
	MediaType MediaType        `json:"media_type" db:"media_type"`
	Status    TranscriptStatus `json:"status" db:"status"`

	VideoID       string  `json:"video_id" db:"video_id"`
	MediaURL      string  `json:"media_url" db:"media_url"`
	PosterURL     string  `json:"poster_url" db:"poster_url"`
	DurationSecs  float64 `json:"duration_secs" db:"duration_secs"`

	Transcript string              `json:"transcript" db:"transcript"`
	Segments   []TranscriptSegment `json:"segments" db:"segments"`
	AdCopy     AdCopy              `json:"ad_copy" db:"ad_copy"`

	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsReusable reports whether a cached record satisfies a non-forced request.
func (t *TranscriptRecord) IsReusable() bool {
	return t.Status == TranscriptCompleted || t.Status == TranscriptPending ||
		t.Status == TranscriptProcessing
}
