package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/attribution-monitor/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		AccessToken: "tok",
		AdAccountID: "act_123",
		BaseURL:     srv.URL,
		APIVersion:  "v19.0",
		PageSize:    2,
		MaxRetries:  3,
	})
	c.SetHTTPClient(srv.Client())
	c.SetSleep(func(time.Duration) {})
	return c, srv
}

func janRange() domain.DateRange {
	return domain.DateRange{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	}
}

func TestGetInsightsPagination(t *testing.T) {
	var calls int
	var srv *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/act_123/insights", func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "ad", r.URL.Query().Get("level"))
		assert.Equal(t, "1", r.URL.Query().Get("time_increment"))

		page := InsightsResponse{
			Data: []InsightRow{{AdID: "A1", DateStart: "2024-01-01", Spend: "10.50"}},
		}
		if calls == 1 {
			page.Paging = &Paging{Next: srv.URL + "/v19.0/act_123/insights?access_token=tok&after=c2"}
		} else {
			page.Data[0].AdID = "A2"
		}
		json.NewEncoder(w).Encode(page)
	})

	c, s := testClient(t, mux)
	srv = s

	rows, err := c.GetInsights(context.Background(), janRange(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0].AdID)
	assert.Equal(t, "A2", rows[1].AdID)
	assert.Equal(t, 2, calls)
}

func TestGetInsightsRateLimitRetriesSamePage(t *testing.T) {
	var calls int
	var waits []time.Duration

	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/act_123/insights", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			json.NewEncoder(w).Encode(InsightsResponse{
				Error: &APIError{Code: 17, Message: "User request limit reached"},
			})
			return
		}
		json.NewEncoder(w).Encode(InsightsResponse{
			Data: []InsightRow{{AdID: "A1", DateStart: "2024-01-01", Spend: "5"}},
		})
	})

	c, _ := testClient(t, mux)
	c.SetSleep(func(d time.Duration) { waits = append(waits, d) })

	rows, err := c.GetInsights(context.Background(), janRange(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, calls)
	// linear backoff: 30s then 60s
	require.Len(t, waits, 2)
	assert.Equal(t, 30*time.Second, waits[0])
	assert.Equal(t, 60*time.Second, waits[1])
}

func TestGetInsightsRateLimitExhausted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/act_123/insights", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(InsightsResponse{
			Error: &APIError{Code: 4, ErrorSubcode: 80004, Message: "throttled"},
		})
	})

	c, _ := testClient(t, mux)

	_, err := c.GetInsights(context.Background(), janRange(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited after 3 retries")
}

func TestGetInsightsOtherErrorAborts(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/act_123/insights", func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(InsightsResponse{
			Error: &APIError{Code: 190, Message: "Invalid OAuth access token"},
		})
	})

	c, _ := testClient(t, mux)

	_, err := c.GetInsights(context.Background(), janRange(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Equal(t, 1, calls)
}

func TestGetInsightsCampaignFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/act_123/insights", func(w http.ResponseWriter, r *http.Request) {
		var filters []map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("filtering")), &filters))
		require.Len(t, filters, 1)
		assert.Equal(t, "campaign.id", filters[0]["field"])
		json.NewEncoder(w).Encode(InsightsResponse{})
	})

	c, _ := testClient(t, mux)

	rows, err := c.GetInsights(context.Background(), janRange(), []string{"C1", "C2"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGetAdCreativeVideoID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/AD1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"AD1","creative":{"id":"CR1","object_story_spec":{"video_data":{"video_id":"V77","title":"Hook","message":"Body copy"}}}}`)
	})

	c, _ := testClient(t, mux)

	creative, err := c.GetAdCreative(context.Background(), "AD1")
	require.NoError(t, err)
	assert.Equal(t, "V77", creative.VideoID())
	assert.Equal(t, "Hook", creative.Creative.ObjectStorySpec.VideoData.Title)
}

func TestGetVideoMeta(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v19.0/V77", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "source,length,picture", r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"id":"V77","source":"https://cdn/video.mp4","length":31.5,"picture":"https://cdn/poster.jpg"}`)
	})

	c, _ := testClient(t, mux)

	meta, err := c.GetVideoMeta(context.Background(), "V77")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/video.mp4", meta.Source)
	assert.Equal(t, 31.5, meta.Length)
}
