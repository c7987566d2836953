package transcripts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/meta"
	"github.com/ignite/attribution-monitor/internal/repository/postgres"
)

type fakeStore struct {
	records  map[string]*domain.TranscriptRecord
	upserted []*domain.TranscriptRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*domain.TranscriptRecord{}}
}

func (s *fakeStore) Get(_ context.Context, adID string) (*domain.TranscriptRecord, error) {
	r, ok := s.records[adID]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) Upsert(_ context.Context, t *domain.TranscriptRecord) error {
	s.records[t.AdID] = t
	s.upserted = append(s.upserted, t)
	return nil
}

type fakeAds struct {
	creative *meta.AdCreativeResponse
	video    *meta.VideoMetaResponse
	err      error

	creativeCalls int
}

func (f *fakeAds) GetAdCreative(context.Context, string) (*meta.AdCreativeResponse, error) {
	f.creativeCalls++
	return f.creative, f.err
}

func (f *fakeAds) GetVideoMeta(context.Context, string) (*meta.VideoMetaResponse, error) {
	return f.video, f.err
}

func videoCreative(videoID string) *meta.AdCreativeResponse {
	c := &meta.AdCreativeResponse{}
	c.Creative.VideoID = videoID
	c.Creative.Title = "Hook"
	return c
}

func imageCreative() *meta.AdCreativeResponse {
	c := &meta.AdCreativeResponse{}
	c.Creative.Title = "Big Headline"
	c.Creative.Body = "Body copy"
	c.Creative.ImageURL = "https://cdn/image.jpg"
	c.Creative.ObjectStorySpec.LinkData.Description = "More detail"
	c.Creative.ObjectStorySpec.LinkData.CallToAction.Type = "LEARN_MORE"
	return c
}

func TestGetOrGenerateVideoQueuesPending(t *testing.T) {
	store := newFakeStore()
	ads := &fakeAds{
		creative: videoCreative("V9"),
		video:    &meta.VideoMetaResponse{Source: "https://cdn/video.mp4", Length: 31.5, Picture: "https://cdn/poster.jpg"},
	}

	rec, err := NewService(store, ads).GetOrGenerate(context.Background(), "A1", false)
	require.NoError(t, err)

	assert.Equal(t, domain.MediaVideo, rec.MediaType)
	assert.Equal(t, domain.TranscriptPending, rec.Status)
	assert.Equal(t, "https://cdn/video.mp4", rec.MediaURL)
	assert.Equal(t, 31.5, rec.DurationSecs)
	assert.Empty(t, rec.Transcript)
	require.Len(t, store.upserted, 1)
}

func TestGetOrGenerateImageCompletesImmediately(t *testing.T) {
	store := newFakeStore()
	ads := &fakeAds{creative: imageCreative()}

	rec, err := NewService(store, ads).GetOrGenerate(context.Background(), "A2", false)
	require.NoError(t, err)

	assert.Equal(t, domain.MediaImage, rec.MediaType)
	assert.Equal(t, domain.TranscriptCompleted, rec.Status)
	assert.Empty(t, rec.Transcript)
	assert.Empty(t, rec.Segments)
	assert.Equal(t, "Big Headline", rec.AdCopy.Headline)
	assert.Equal(t, "Body copy", rec.AdCopy.Body)
	assert.Equal(t, "LEARN_MORE", rec.AdCopy.CTA)
}

func TestGetOrGenerateReturnsCachedRecord(t *testing.T) {
	store := newFakeStore()
	store.records["A1"] = &domain.TranscriptRecord{
		AdID: "A1", Status: domain.TranscriptCompleted, Transcript: "cached text",
	}
	ads := &fakeAds{creative: videoCreative("V9")}

	rec, err := NewService(store, ads).GetOrGenerate(context.Background(), "A1", false)
	require.NoError(t, err)
	assert.Equal(t, "cached text", rec.Transcript)
	assert.Zero(t, ads.creativeCalls, "cached hit must not refetch the creative")
}

func TestGetOrGeneratePendingIsReusable(t *testing.T) {
	store := newFakeStore()
	store.records["A1"] = &domain.TranscriptRecord{AdID: "A1", Status: domain.TranscriptPending}
	ads := &fakeAds{creative: videoCreative("V9")}

	rec, err := NewService(store, ads).GetOrGenerate(context.Background(), "A1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptPending, rec.Status)
	assert.Zero(t, ads.creativeCalls)
}

func TestGetOrGenerateFailedRecordRegenerates(t *testing.T) {
	store := newFakeStore()
	store.records["A1"] = &domain.TranscriptRecord{AdID: "A1", Status: domain.TranscriptFailed, Error: "boom"}
	ads := &fakeAds{
		creative: videoCreative("V9"),
		video:    &meta.VideoMetaResponse{Source: "https://cdn/video.mp4"},
	}

	rec, err := NewService(store, ads).GetOrGenerate(context.Background(), "A1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptPending, rec.Status)
	assert.Empty(t, rec.Error)
	assert.Equal(t, 1, ads.creativeCalls)
}

func TestGetOrGenerateForceBypassesCache(t *testing.T) {
	store := newFakeStore()
	store.records["A1"] = &domain.TranscriptRecord{
		AdID: "A1", Status: domain.TranscriptCompleted, Transcript: "stale",
	}
	ads := &fakeAds{
		creative: videoCreative("V9"),
		video:    &meta.VideoMetaResponse{Source: "https://cdn/video.mp4"},
	}

	rec, err := NewService(store, ads).GetOrGenerate(context.Background(), "A1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.TranscriptPending, rec.Status)
	assert.Equal(t, 1, ads.creativeCalls)
}

func TestGetOrGenerateCreativeFetchError(t *testing.T) {
	store := newFakeStore()
	ads := &fakeAds{err: errors.New("creative fetch (code 100): unsupported get request")}

	_, err := NewService(store, ads).GetOrGenerate(context.Background(), "A1", false)
	require.Error(t, err)
	assert.Empty(t, store.upserted)
}
