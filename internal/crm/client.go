package crm

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

	"github.com/ignite/attribution-monitor/internal/pkg/httpretry"
)

// Config holds the client settings (mirrors config.CRMConfig).
type Config struct {
	APIKey     string
	LocationID string
	BaseURL    string
	APIVersion string
	PageSize   int
	PageDelay  time.Duration
	Timeout    time.Duration
}

// Client talks to the CRM contacts API.
type Client struct {
	baseURL    string
	apiKey     string
	locationID string
	apiVersion string
	pageSize   int
	pageDelay  time.Duration
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new CRM API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		locationID: cfg.LocationID,
		apiVersion: cfg.APIVersion,
		pageSize:   pageSize,
		pageDelay:  cfg.PageDelay,
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) { c.httpClient = client }

func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("crm: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("crm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("crm: API error (status %d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("crm: unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("crm: parse response: %w", err)
	}
	return nil
}

// ListContacts pages through every contact for the configured location.
// Pagination is cursor-based: each page's meta carries the startAfter /
// startAfterId pair for the next page. A page error halts the whole listing
// since the next cursor is only known from a successful response. A courtesy
// delay separates pages.
func (c *Client) ListContacts(ctx context.Context) ([]APIContact, error) {
	var (
		contacts     []APIContact
		startAfter   int64
		startAfterID string
	)
	for {
		params := url.Values{}
		params.Set("locationId", c.locationID)
		params.Set("limit", strconv.Itoa(c.pageSize))
		if startAfterID != "" {
			params.Set("startAfter", strconv.FormatInt(startAfter, 10))
			params.Set("startAfterId", startAfterID)
		}

		var page ContactsResponse
		if err := c.get(ctx, "/contacts/", params, &page); err != nil {
			return nil, err
		}

		contacts = append(contacts, page.Contacts...)
		if len(page.Contacts) == 0 || page.Meta.StartAfterID == "" {
			return contacts, nil
		}
		startAfter = page.Meta.StartAfter
		startAfterID = page.Meta.StartAfterID

		if c.pageDelay > 0 {
			select {
			case <-time.After(c.pageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
}

// GetContact fetches one contact by its CRM ID.
func (c *Client) GetContact(ctx context.Context, id string) (*APIContact, error) {
	var out ContactResponse
	if err := c.get(ctx, "/contacts/"+id, url.Values{}, &out); err != nil {
		return nil, err
	}
	return &out.Contact, nil
}
