package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ignite/attribution-monitor/internal/pkg/httpretry"
)

// MaxUploadBytes caps media uploads; the speech API rejects larger bodies
// anyway, so oversized files fail fast before any network transfer.
const MaxUploadBytes = 25 * 1024 * 1024

// Config holds the client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the Deepgram speech-to-text API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new transcription client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	model := cfg.Model
	if model == "" {
		model = "nova-2"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.deepgram.com"
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

// Result is the transcription response, reduced to the parts we read.
type Result struct {
	Results struct {
		Utterances []Utterance `json:"utterances"`
		Channels   []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Words      []Word `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Utterance is one speaker-turn segment.
type Utterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Transcript string  `json:"transcript"`
}

// Word is one word-level timestamp.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript returns the full transcript text, or "".
func (r *Result) Transcript() string {
	chans := r.Results.Channels
	if len(chans) == 0 || len(chans[0].Alternatives) == 0 {
		return ""
	}
	return chans[0].Alternatives[0].Transcript
}

// Words returns the word-level timestamps, or nil.
func (r *Result) Words() []Word {
	chans := r.Results.Channels
	if len(chans) == 0 || len(chans[0].Alternatives) == 0 {
		return nil
	}
	return chans[0].Alternatives[0].Words
}

// TranscribeFile uploads a local media file and returns the transcription.
// Files over MaxUploadBytes are rejected before upload.
func (c *Client) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("deepgram: stat media: %w", err)
	}
	if info.Size() > MaxUploadBytes {
		return nil, fmt.Errorf("deepgram: media is %d bytes, limit is %d", info.Size(), MaxUploadBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deepgram: open media: %w", err)
	}
	defer f.Close()

	reqURL := fmt.Sprintf("%s/v1/listen?model=%s&punctuate=true&utterances=true", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, f)
	if err != nil {
		return nil, fmt.Errorf("deepgram: create request: %w", err)
	}
	req.ContentLength = info.Size()
	// reopen the file on retry; a half-read handle cannot be resent
	req.GetBody = func() (io.ReadCloser, error) { return os.Open(path) }
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Result
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("deepgram: parse response: %w", err)
	}
	return &out, nil
}
