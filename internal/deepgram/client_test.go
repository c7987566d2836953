package deepgram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempMedia(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "media.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestTranscribeFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token key", r.Header.Get("Authorization"))
		assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
		assert.Equal(t, "true", r.URL.Query().Get("utterances"))
		fmt.Fprint(w, `{"results":{
			"utterances":[{"start":0,"end":2.5,"transcript":"hello world"}],
			"channels":[{"alternatives":[{"transcript":"hello world","words":[
				{"word":"hello","start":0,"end":1.2},{"word":"world","start":1.2,"end":2.5}
			]}]}]
		}}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	c.SetHTTPClient(srv.Client())

	res, err := c.TranscribeFile(context.Background(), writeTempMedia(t, 1024))
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Transcript())
	require.Len(t, res.Results.Utterances, 1)
	require.Len(t, res.Words(), 2)
	assert.Equal(t, "world", res.Words()[1].Word)
}

func TestTranscribeFileRejectsOversizedMedia(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	c.SetHTTPClient(srv.Client())

	_, err := c.TranscribeFile(context.Background(), writeTempMedia(t, MaxUploadBytes+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
	assert.False(t, called, "oversized media must be rejected before upload")
}

func TestTranscribeFileAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"err_code":"INVALID_AUDIO","err_msg":"unsupported codec"}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{APIKey: "key", BaseURL: srv.URL})
	c.SetHTTPClient(srv.Client())

	_, err := c.TranscribeFile(context.Background(), writeTempMedia(t, 64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
