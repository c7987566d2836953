package transcripts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/meta"
	"github.com/ignite/attribution-monitor/internal/repository/postgres"
)

type transcriptStore interface {
	Get(ctx context.Context, adID string) (*domain.TranscriptRecord, error)
	Upsert(ctx context.Context, t *domain.TranscriptRecord) error
}

type creativeAPI interface {
	GetAdCreative(ctx context.Context, adID string) (*meta.AdCreativeResponse, error)
	GetVideoMeta(ctx context.Context, videoID string) (*meta.VideoMetaResponse, error)
}

// Service resolves transcript requests. Actual speech-to-text is deferred:
// video ads are queued as pending rows for the polling worker, image ads are
// completed immediately from their creative text.
type Service struct {
	store transcriptStore
	ads   creativeAPI
}

func NewService(store transcriptStore, ads creativeAPI) *Service {
	return &Service{store: store, ads: ads}
}

// GetOrGenerate returns the ad's transcript record. A stored record in a
// live state (completed, pending, or processing) is returned as-is unless
// force is set; force bypasses the cache and requeues from fresh creative
// metadata.
func (s *Service) GetOrGenerate(ctx context.Context, adID string, force bool) (*domain.TranscriptRecord, error) {
	existing, err := s.store.Get(ctx, adID)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if existing != nil && existing.IsReusable() && !force {
		return existing, nil
	}

	creative, err := s.ads.GetAdCreative(ctx, adID)
	if err != nil {
		return nil, fmt.Errorf("fetch creative: %w", err)
	}

	var rec *domain.TranscriptRecord
	if videoID := creative.VideoID(); videoID != "" {
		rec, err = s.queueVideo(ctx, adID, videoID)
	} else {
		rec, err = s.completeImage(adID, creative)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store transcript: %w", err)
	}
	return rec, nil
}

// queueVideo resolves the video's source URL and queues a pending row for
// the worker.
func (s *Service) queueVideo(ctx context.Context, adID, videoID string) (*domain.TranscriptRecord, error) {
	video, err := s.ads.GetVideoMeta(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch video meta: %w", err)
	}
	return &domain.TranscriptRecord{
		AdID:         adID,
		MediaType:    domain.MediaVideo,
		Status:       domain.TranscriptPending,
		VideoID:      videoID,
		MediaURL:     video.Source,
		PosterURL:    video.Picture,
		DurationSecs: video.Length,
	}, nil
}

// completeImage extracts ad-copy text from the creative. Image ads need no
// transcription, so the record is completed immediately.
func (s *Service) completeImage(adID string, creative *meta.AdCreativeResponse) (*domain.TranscriptRecord, error) {
	link := creative.Creative.ObjectStorySpec.LinkData

	copyFields := domain.AdCopy{
		Headline:    creative.Creative.Title,
		Body:        creative.Creative.Body,
		Description: link.Description,
		CTA:         link.CallToAction.Type,
	}
	if copyFields.Headline == "" {
		copyFields.Headline = link.Name
	}
	if copyFields.Body == "" {
		copyFields.Body = link.Message
	}

	return &domain.TranscriptRecord{
		AdID:      adID,
		MediaType: domain.MediaImage,
		Status:    domain.TranscriptCompleted,
		PosterURL: creative.Creative.ImageURL,
		AdCopy:    copyFields,
	}, nil
}
