package meta

// InsightsResponse is one page of the ads-insights endpoint.
type InsightsResponse struct {
	Data   []InsightRow `json:"data"`
	Paging *Paging      `json:"paging,omitempty"`
	Error  *APIError    `json:"error,omitempty"`
}

// Paging carries the opaque next-page URL. Absent on the last page.
type Paging struct {
	Next string `json:"next,omitempty"`
	Cursors struct {
		Before string `json:"before,omitempty"`
		After  string `json:"after,omitempty"`
	} `json:"cursors,omitempty"`
}

// APIError is the Graph API error envelope.
type APIError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id,omitempty"`
}

// rate-limit codes per the Marketing API docs: 4 (app), 17 (user),
// 32 (page), 613 (custom throttling), 80000-range subcodes (ads insights).
func (e *APIError) IsRateLimit() bool {
	switch e.Code {
	case 4, 17, 32, 613:
		return true
	}
	return e.ErrorSubcode >= 80000 && e.ErrorSubcode < 80010
}

// ActionValue is one entry of a per-action-type value array.
type ActionValue struct {
	ActionType string `json:"action_type"`
	Value      string `json:"value"`
}

// InsightRow is one ad/day insight row. The Graph API serializes all
// numbers as strings.
type InsightRow struct {
	AdID         string `json:"ad_id"`
	AdName       string `json:"ad_name"`
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	AdsetID      string `json:"adset_id"`
	AdsetName    string `json:"adset_name"`
	DateStart    string `json:"date_start"`
	DateStop     string `json:"date_stop"`

	Spend       string `json:"spend"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Reach       string `json:"reach"`
	CPM         string `json:"cpm"`
	CPC         string `json:"cpc"`
	CTR         string `json:"ctr"`

	Actions              []ActionValue `json:"actions,omitempty"`
	ActionValues         []ActionValue `json:"action_values,omitempty"`
	OutboundClicks       []ActionValue `json:"outbound_clicks,omitempty"`
	VideoPlayActions     []ActionValue `json:"video_play_actions,omitempty"`
	VideoP25Watched      []ActionValue `json:"video_p25_watched_actions,omitempty"`
	VideoP50Watched      []ActionValue `json:"video_p50_watched_actions,omitempty"`
	VideoP75Watched      []ActionValue `json:"video_p75_watched_actions,omitempty"`
	VideoP100Watched     []ActionValue `json:"video_p100_watched_actions,omitempty"`
}

// insightFields is the fixed field list requested from the insights endpoint.
var insightFields = []string{
	"ad_id", "ad_name", "campaign_id", "campaign_name", "adset_id", "adset_name",
	"spend", "impressions", "clicks", "reach", "cpm", "cpc", "ctr",
	"actions", "action_values", "outbound_clicks",
	"video_play_actions",
	"video_p25_watched_actions", "video_p50_watched_actions",
	"video_p75_watched_actions", "video_p100_watched_actions",
}

// AdCreativeResponse is the creative metadata for one ad.
type AdCreativeResponse struct {
	ID       string `json:"id"`
	Creative struct {
		ID              string `json:"id"`
		VideoID         string `json:"video_id,omitempty"`
		Title           string `json:"title,omitempty"`
		Body            string `json:"body,omitempty"`
		ImageURL        string `json:"image_url,omitempty"`
		ThumbnailURL    string `json:"thumbnail_url,omitempty"`
		ObjectStorySpec struct {
			VideoData struct {
				VideoID     string `json:"video_id,omitempty"`
				Title       string `json:"title,omitempty"`
				Message     string `json:"message,omitempty"`
				LinkDescription string `json:"link_description,omitempty"`
				CallToAction struct {
					Type string `json:"type,omitempty"`
				} `json:"call_to_action,omitempty"`
			} `json:"video_data,omitempty"`
			LinkData struct {
				Name        string `json:"name,omitempty"`
				Message     string `json:"message,omitempty"`
				Description string `json:"description,omitempty"`
				Picture     string `json:"picture,omitempty"`
				CallToAction struct {
					Type string `json:"type,omitempty"`
				} `json:"call_to_action,omitempty"`
			} `json:"link_data,omitempty"`
		} `json:"object_story_spec,omitempty"`
	} `json:"creative"`
	Error *APIError `json:"error,omitempty"`
}

// VideoID returns the creative's video ID from either location, or "".
func (r *AdCreativeResponse) VideoID() string {
	if r.Creative.VideoID != "" {
		return r.Creative.VideoID
	}
	return r.Creative.ObjectStorySpec.VideoData.VideoID
}

// VideoMetaResponse is the metadata for one ad video.
type VideoMetaResponse struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Length  float64 `json:"length"`
	Picture string  `json:"picture"`
	Error   *APIError `json:"error,omitempty"`
}
