package analytics

// BreakdownLevel selects the grouping for a source breakdown.
type BreakdownLevel string

const (
	LevelCampaign BreakdownLevel = "campaign"
	LevelAdset    BreakdownLevel = "adset"
	LevelAd       BreakdownLevel = "ad"
)

func (l BreakdownLevel) Valid() bool {
	switch l {
	case LevelCampaign, LevelAdset, LevelAd:
		return true
	}
	return false
}

// Overview is the aggregate KPI block for a date range.
type Overview struct {
	TotalSpend  float64 `json:"total_spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`

	Leads        int `json:"leads"`
	Booked       int `json:"booked"`
	Qualified    int `json:"qualified"`
	Disqualified int `json:"disqualified"`
	Shown        int `json:"shown"`
	NoShows      int `json:"no_shows"`
	Closed       int `json:"closed"`

	BookingRate   float64 `json:"booking_rate"`
	QualifiedRate float64 `json:"qualified_rate"`
	ShowRate      float64 `json:"show_rate"`
	CloseRate     float64 `json:"close_rate"`

	CostPerLead      float64 `json:"cost_per_lead"`
	CostPerBooked    float64 `json:"cost_per_booked"`
	CostPerQualified float64 `json:"cost_per_qualified"`
	CostPerShow      float64 `json:"cost_per_show"`
	CostPerClose     float64 `json:"cost_per_close"`

	Revenue    float64 `json:"revenue"`
	ROAS       float64 `json:"roas"`
	ROIPercent float64 `json:"roi_percentage"`
}

// TimePoint is one day of the time series. Days without activity are present
// with zero values.
type TimePoint struct {
	Date        string  `json:"date"`
	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Leads       int     `json:"leads"`
	Booked      int     `json:"booked"`
	Shown       int     `json:"shown"`
	Closed      int     `json:"closed"`
	Revenue     float64 `json:"revenue"`
}

// BreakdownRow is one grouped row of the source breakdown. ID is the grouping
// key: the ad ID at ad level (display names collide across ads), the
// campaign/adset ID otherwise.
type BreakdownRow struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Spend       float64 `json:"spend"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`

	Leads  int `json:"leads"`
	Booked int `json:"booked"`
	Shown  int `json:"shown"`
	Closed int `json:"closed"`

	BookingRate float64 `json:"booking_rate"`
	ShowRate    float64 `json:"show_rate"`
	CloseRate   float64 `json:"close_rate"`

	CostPerLead   float64 `json:"cost_per_lead"`
	CostPerBooked float64 `json:"cost_per_booked"`
	CostPerClose  float64 `json:"cost_per_close"`

	Revenue float64 `json:"revenue"`
	ROAS    float64 `json:"roas"`
}

// safeDiv divides, mapping a zero denominator to 0 rather than NaN/Inf.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// safePct is safeDiv expressed as a percentage.
func safePct(num, den float64) float64 {
	return safeDiv(num, den) * 100
}
