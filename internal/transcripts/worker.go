package transcripts

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ignite/attribution-monitor/internal/deepgram"
	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/metrics"
)

type jobStore interface {
	ClaimPending(ctx context.Context, limit int) ([]domain.TranscriptRecord, error)
	MarkCompleted(ctx context.Context, adID, transcript string, segments []domain.TranscriptSegment) error
	MarkFailed(ctx context.Context, adID, message string) error
}

type transcriber interface {
	TranscribeFile(ctx context.Context, path string) (*deepgram.Result, error)
}

// Worker drives pending transcript jobs to completion. One claim batch per
// poll cycle, jobs processed sequentially; a slow transcription simply delays
// the next cycle.
type Worker struct {
	store       jobStore
	transcriber transcriber

	interval  time.Duration
	batchSize int
	tempDir   string

	// downloads use a bare client so redirects are followed manually
	httpClient *http.Client
}

// NewWorker builds a transcript worker. tempDir holds media downloads; empty
// means the OS default temp directory.
func NewWorker(store jobStore, tr transcriber, interval time.Duration, batchSize int, tempDir string) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Worker{
		store:       store,
		transcriber: tr,
		interval:    interval,
		batchSize:   batchSize,
		tempDir:     tempDir,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("transcript worker: polling every %s, batch size %d", w.interval, w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("transcript worker: stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce claims and processes a single batch.
func (w *Worker) RunOnce(ctx context.Context) {
	jobs, err := w.store.ClaimPending(ctx, w.batchSize)
	if err != nil {
		log.Printf("transcript worker: claim failed: %v", err)
		return
	}
	for i := range jobs {
		w.processJob(ctx, &jobs[i])
	}
}

func (w *Worker) processJob(ctx context.Context, job *domain.TranscriptRecord) {
	segments, err := w.transcribe(ctx, job)
	if err != nil {
		log.Printf("transcript worker: ad %s failed: %v", job.AdID, err)
		metrics.RecordTranscriptJob("failed")
		if markErr := w.store.MarkFailed(ctx, job.AdID, err.Error()); markErr != nil {
			log.Printf("transcript worker: ad %s: mark failed errored: %v", job.AdID, markErr)
		}
		return
	}

	if err := w.store.MarkCompleted(ctx, job.AdID, joinSegments(segments), segments); err != nil {
		log.Printf("transcript worker: ad %s: mark completed errored: %v", job.AdID, err)
		return
	}
	metrics.RecordTranscriptJob("completed")
	log.Printf("transcript worker: ad %s completed, %d segments", job.AdID, len(segments))
}

func (w *Worker) transcribe(ctx context.Context, job *domain.TranscriptRecord) ([]domain.TranscriptSegment, error) {
	if job.MediaURL == "" {
		return nil, fmt.Errorf("no media URL on record")
	}

	path, err := w.download(ctx, job.MediaURL)
	if path != "" {
		defer os.Remove(path)
	}
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}

	result, err := w.transcriber.TranscribeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return normalizeSegments(result, job.DurationSecs), nil
}

// download fetches the media URL to a temp file, following at most one
// redirect. CDN-signed video URLs redirect once to the edge host; anything
// deeper is treated as an error.
func (w *Worker) download(ctx context.Context, mediaURL string) (string, error) {
	resp, err := w.fetch(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			return "", fmt.Errorf("redirect without location from %s", mediaURL)
		}
		if resp, err = w.fetch(ctx, location); err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(w.tempDir, "ad-media-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer tmp.Close()

	limited := io.LimitReader(resp.Body, deepgram.MaxUploadBytes+1)
	n, err := io.Copy(tmp, limited)
	if err != nil {
		return tmp.Name(), fmt.Errorf("write temp file: %w", err)
	}
	if n > deepgram.MaxUploadBytes {
		return tmp.Name(), fmt.Errorf("media exceeds %d byte limit", deepgram.MaxUploadBytes)
	}
	return tmp.Name(), nil
}

func (w *Worker) fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return w.httpClient.Do(req)
}
