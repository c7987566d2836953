package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/pkg/httpretry"
)

// Config holds the client settings (mirrors config.MetaConfig).
type Config struct {
	AccessToken string
	AdAccountID string
	BaseURL     string
	APIVersion  string
	PageSize    int
	MaxRetries  int
	Timeout     time.Duration
}

// Client is the Meta Marketing API client.
type Client struct {
	baseURL     string
	apiVersion  string
	accessToken string
	accountID   string
	pageSize    int
	maxRetries  int
	httpClient  httpretry.HTTPDoer

	// sleep is swapped out in tests to avoid real rate-limit waits
	sleep func(time.Duration)
}

// NewClient creates a new Marketing API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 500
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 5
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiVersion:  cfg.APIVersion,
		accessToken: cfg.AccessToken,
		accountID:   cfg.AdAccountID,
		pageSize:    pageSize,
		maxRetries:  maxRetries,
		httpClient:  httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 3),
		sleep:       time.Sleep,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetSleep overrides the rate-limit wait function (useful for testing).
func (c *Client) SetSleep(fn func(time.Duration)) { c.sleep = fn }

// GetInsights fetches every per-ad/per-day insight row for the range,
// following next-page links until exhausted. `time_increment=1` forces one
// row per ad per calendar day. campaignIDs optionally narrows the fetch.
//
// Rate-limit errors retry the SAME page after retryCount × 30s, up to the
// retry ceiling; any other API error aborts the whole fetch and no partial
// result is returned.
func (c *Client) GetInsights(ctx context.Context, rng domain.DateRange, campaignIDs []string) ([]InsightRow, error) {
	timeRange, err := json.Marshal(map[string]string{
		"since": rng.From.Format("2006-01-02"),
		"until": rng.To.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal time_range: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("fields", strings.Join(insightFields, ","))
	params.Set("level", "ad")
	params.Set("time_range", string(timeRange))
	params.Set("time_increment", "1")
	params.Set("limit", strconv.Itoa(c.pageSize))
	if len(campaignIDs) > 0 {
		filtering, err := json.Marshal([]map[string]interface{}{
			{"field": "campaign.id", "operator": "IN", "value": campaignIDs},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal filtering: %w", err)
		}
		params.Set("filtering", string(filtering))
	}

	pageURL := fmt.Sprintf("%s/%s/%s/insights?%s", c.baseURL, c.apiVersion, c.accountID, params.Encode())

	var rows []InsightRow
	retries := 0
	for pageURL != "" {
		page, err := c.fetchInsightsPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		if page.Error != nil {
			if page.Error.IsRateLimit() {
				retries++
				if retries > c.maxRetries {
					return nil, fmt.Errorf("meta: rate limited after %d retries: %s", c.maxRetries, page.Error.Message)
				}
				c.sleep(time.Duration(retries) * 30 * time.Second)
				continue // retry the same page
			}
			return nil, fmt.Errorf("meta: API error (code %d): %s", page.Error.Code, page.Error.Message)
		}
		retries = 0

		rows = append(rows, page.Data...)
		if page.Paging != nil {
			pageURL = page.Paging.Next
		} else {
			pageURL = ""
		}
	}
	return rows, nil
}

func (c *Client) fetchInsightsPage(ctx context.Context, pageURL string) (*InsightsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("meta: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("meta: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("meta: read response: %w", err)
	}

	var page InsightsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("meta: parse response (status %d): %w", resp.StatusCode, err)
	}
	return &page, nil
}

// doGet performs a GET on an API path with the access token appended and
// decodes the body into dst.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, dst interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.apiVersion, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("meta: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("meta: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("meta: read response: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("meta: parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// GetAdCreative fetches creative metadata for one ad.
func (c *Client) GetAdCreative(ctx context.Context, adID string) (*AdCreativeResponse, error) {
	params := url.Values{}
	params.Set("fields", "creative{id,video_id,title,body,image_url,thumbnail_url,object_story_spec}")

	var out AdCreativeResponse
	if err := c.doGet(ctx, adID, params, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("meta: creative fetch (code %d): %s", out.Error.Code, out.Error.Message)
	}
	return &out, nil
}

// GetVideoMeta fetches source URL, duration, and poster for an ad video.
func (c *Client) GetVideoMeta(ctx context.Context, videoID string) (*VideoMetaResponse, error) {
	params := url.Values{}
	params.Set("fields", "source,length,picture")

	var out VideoMetaResponse
	if err := c.doGet(ctx, videoID, params, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("meta: video fetch (code %d): %s", out.Error.Code, out.Error.Message)
	}
	return &out, nil
}
