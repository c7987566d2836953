package meta

import (
	"strconv"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
)

// actionValue returns the numeric value of the first entry matching the
// action type. Missing actions yield 0, not an error; most ads simply
// never record most action types.
func actionValue(actions []ActionValue, actionType string) int64 {
	for _, a := range actions {
		if a.ActionType == actionType {
			n, err := strconv.ParseFloat(a.Value, 64)
			if err != nil {
				return 0
			}
			return int64(n)
		}
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some count fields arrive as "1234.0"
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return n
}

// ToSpendRecord flattens one insight row into a domain record, reducing the
// nested per-action-type arrays to scalar fields by first-match lookup.
func (r InsightRow) ToSpendRecord() (domain.AdSpendRecord, error) {
	date, err := time.Parse("2006-01-02", r.DateStart)
	if err != nil {
		return domain.AdSpendRecord{}, err
	}

	return domain.AdSpendRecord{
		AdID:         r.AdID,
		AdName:       r.AdName,
		CampaignID:   r.CampaignID,
		CampaignName: r.CampaignName,
		AdsetID:      r.AdsetID,
		AdsetName:    r.AdsetName,
		Date:         date,

		Spend:       parseFloat(r.Spend),
		Impressions: parseInt(r.Impressions),
		Clicks:      parseInt(r.Clicks),
		Reach:       parseInt(r.Reach),
		CPM:         parseFloat(r.CPM),
		CPC:         parseFloat(r.CPC),
		CTR:         parseFloat(r.CTR),

		Leads:          actionValue(r.Actions, "lead"),
		Purchases:      actionValue(r.Actions, "purchase"),
		VideoViews:     actionValue(r.VideoPlayActions, "video_view"),
		VideoP25:       actionValue(r.VideoP25Watched, "video_view"),
		VideoP50:       actionValue(r.VideoP50Watched, "video_view"),
		VideoP75:       actionValue(r.VideoP75Watched, "video_view"),
		VideoP100:      actionValue(r.VideoP100Watched, "video_view"),
		OutboundClicks: actionValue(r.OutboundClicks, "outbound_click"),
	}, nil
}
