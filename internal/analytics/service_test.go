package analytics

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/attribution-monitor/internal/domain"
)

type fixture struct {
	spend    []domain.AdSpendRecord
	contacts []domain.Contact
}

func (f *fixture) ListRange(context.Context, time.Time, time.Time) ([]domain.AdSpendRecord, error) {
	return f.spend, nil
}

func (f *fixture) ListByFormSubmitted(context.Context, time.Time, time.Time) ([]domain.Contact, error) {
	return f.contacts, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tp(s string) *time.Time {
	t := day(s)
	return &t
}

func money(v float64) *float64 { return &v }

func testContacts() []domain.Contact {
	closedRevenue := money(10000)
	return []domain.Contact{
		{ID: "ct_1", AdID: "A1", CampaignID: "C1", FormSubmittedAt: tp("2024-01-01")},
		{ID: "ct_2", AdID: "A1", CampaignID: "C1", FormSubmittedAt: tp("2024-01-02"), CallBookedAt: tp("2024-01-03")},
		{ID: "ct_3", AdID: "A2", CampaignID: "C1", FormSubmittedAt: tp("2024-01-02"), CallBookedAt: tp("2024-01-03"),
			ShowedUpAt: tp("2024-01-04")},
		{ID: "ct_4", AdID: "A2", CampaignID: "C1", FormSubmittedAt: tp("2024-01-03"), CallBookedAt: tp("2024-01-04"),
			ShowedUpAt: tp("2024-01-05"), DealClosedAt: tp("2024-01-06"), CashCollected: closedRevenue},
	}
}

func testSpend() []domain.AdSpendRecord {
	return []domain.AdSpendRecord{
		{AdID: "A1", AdName: "Promo", CampaignID: "C1", CampaignName: "Jan", Date: day("2024-01-01"), Spend: 100, Impressions: 1000, Clicks: 50},
		{AdID: "A1", AdName: "Promo", CampaignID: "C1", CampaignName: "Jan", Date: day("2024-01-02"), Spend: 150, Impressions: 1500, Clicks: 60},
		{AdID: "A2", AdName: "Promo", CampaignID: "C1", CampaignName: "Jan", Date: day("2024-01-02"), Spend: 250, Impressions: 2000, Clicks: 90},
	}
}

func TestOverview(t *testing.T) {
	svc := NewService(&fixture{spend: testSpend()}, &fixture{contacts: testContacts()})

	o, err := svc.Overview(context.Background(), day("2024-01-01"), day("2024-01-07"))
	require.NoError(t, err)

	assert.Equal(t, 500.0, o.TotalSpend)
	assert.Equal(t, int64(4500), o.Impressions)
	assert.Equal(t, 4, o.Leads)
	assert.Equal(t, 3, o.Booked)
	assert.Equal(t, 2, o.Shown)
	assert.Equal(t, 1, o.Closed)

	assert.InDelta(t, 75.0, o.BookingRate, 1e-9)
	assert.InDelta(t, 66.666, o.ShowRate, 0.01)
	// close rate over shown calls
	assert.InDelta(t, 50.0, o.CloseRate, 1e-9)

	assert.InDelta(t, 125.0, o.CostPerLead, 1e-9)
	assert.InDelta(t, 500.0, o.CostPerClose, 1e-9)

	assert.Equal(t, 10000.0, o.Revenue)
	assert.InDelta(t, 20.0, o.ROAS, 1e-9)
	assert.InDelta(t, 1900.0, o.ROIPercent, 1e-9)
}

func TestOverviewInvertedRangeIsEmpty(t *testing.T) {
	svc := NewService(&fixture{spend: testSpend()}, &fixture{contacts: testContacts()})

	o, err := svc.Overview(context.Background(), day("2024-01-07"), day("2024-01-01"))
	require.NoError(t, err)
	assert.Zero(t, o.TotalSpend)
	assert.Zero(t, o.Leads)
}

func TestOverviewZeroDenominatorsNeverNaN(t *testing.T) {
	svc := NewService(&fixture{}, &fixture{})

	o, err := svc.Overview(context.Background(), day("2024-01-01"), day("2024-01-07"))
	require.NoError(t, err)

	for name, v := range map[string]float64{
		"booking_rate": o.BookingRate, "show_rate": o.ShowRate, "close_rate": o.CloseRate,
		"cost_per_lead": o.CostPerLead, "cost_per_close": o.CostPerClose,
		"roas": o.ROAS, "roi": o.ROIPercent,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s must be finite", name)
		assert.Zero(t, v, name)
	}
}

func TestOverviewSumOrderIndependent(t *testing.T) {
	spend := testSpend()
	rand.New(rand.NewSource(42)).Shuffle(len(spend), func(i, j int) {
		spend[i], spend[j] = spend[j], spend[i]
	})
	svc := NewService(&fixture{spend: spend}, &fixture{contacts: testContacts()})

	o, err := svc.Overview(context.Background(), day("2024-01-01"), day("2024-01-07"))
	require.NoError(t, err)
	assert.Equal(t, 500.0, o.TotalSpend)
}

func TestTimeSeriesZeroFillsDays(t *testing.T) {
	svc := NewService(&fixture{spend: testSpend()}, &fixture{contacts: testContacts()})

	points, err := svc.TimeSeries(context.Background(), day("2024-01-01"), day("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, points, 5)

	assert.Equal(t, "2024-01-01", points[0].Date)
	assert.Equal(t, 100.0, points[0].Spend)
	assert.Equal(t, 1, points[0].Leads)

	assert.Equal(t, 400.0, points[1].Spend)
	assert.Equal(t, 2, points[1].Leads)

	// nothing happened on the 4th and 5th
	assert.Zero(t, points[3].Spend)
	assert.Zero(t, points[3].Leads)
	assert.Zero(t, points[4].Spend)
}

func TestBreakdownByAdKeysOnID(t *testing.T) {
	// two distinct ads share the display name "Promo"
	svc := NewService(&fixture{spend: testSpend()}, &fixture{contacts: testContacts()})

	rows, err := svc.Breakdown(context.Background(), day("2024-01-01"), day("2024-01-07"), LevelAd)
	require.NoError(t, err)
	require.Len(t, rows, 2, "same-name ads must not merge")

	byID := map[string]BreakdownRow{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.Equal(t, 250.0, byID["A1"].Spend)
	assert.Equal(t, 2, byID["A1"].Leads)
	assert.Equal(t, 250.0, byID["A2"].Spend)
	assert.Equal(t, 1, byID["A2"].Closed)
	assert.InDelta(t, 40.0, byID["A2"].ROAS, 1e-9)
}

func TestBreakdownKeepsSpendOnlyAndContactOnlyRows(t *testing.T) {
	spend := []domain.AdSpendRecord{
		{AdID: "A1", AdName: "Active", Date: day("2024-01-01"), Spend: 100},
	}
	contacts := []domain.Contact{
		{ID: "ct_1", AdID: "A9", FormSubmittedAt: tp("2024-01-01")},
	}
	svc := NewService(&fixture{spend: spend}, &fixture{contacts: contacts})

	rows, err := svc.Breakdown(context.Background(), day("2024-01-01"), day("2024-01-07"), LevelAd)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]BreakdownRow{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	// spend with no conversions still shows
	assert.Equal(t, 100.0, byID["A1"].Spend)
	assert.Zero(t, byID["A1"].Leads)
	// contact attribution with no spend still aggregates
	assert.Equal(t, 1, byID["A9"].Leads)
	assert.Zero(t, byID["A9"].Spend)
}

func TestBreakdownByCampaign(t *testing.T) {
	svc := NewService(&fixture{spend: testSpend()}, &fixture{contacts: testContacts()})

	rows, err := svc.Breakdown(context.Background(), day("2024-01-01"), day("2024-01-07"), LevelCampaign)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1", rows[0].ID)
	assert.Equal(t, "Jan", rows[0].Name)
	assert.Equal(t, 500.0, rows[0].Spend)
	assert.Equal(t, 4, rows[0].Leads)
}

func TestTopPerformersExcludesZeroDenominators(t *testing.T) {
	spend := []domain.AdSpendRecord{
		{AdID: "A1", Date: day("2024-01-01"), Spend: 100},
		{AdID: "A2", Date: day("2024-01-01"), Spend: 200},
	}
	contacts := []domain.Contact{
		{ID: "ct_1", AdID: "A1", FormSubmittedAt: tp("2024-01-01"), CallBookedAt: tp("2024-01-02")},
		// A2 has spend but zero booked calls
	}
	svc := NewService(&fixture{spend: spend}, &fixture{contacts: contacts})

	rows, err := svc.TopPerformers(context.Background(), day("2024-01-01"), day("2024-01-07"), LevelAd, "cost_per_booked", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1, "zero-booked rows are excluded, not ranked as 0 or infinity")
	assert.Equal(t, "A1", rows[0].ID)
}

func TestTopPerformersOrdering(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "ct_1", AdID: "A1", FormSubmittedAt: tp("2024-01-01"), CallBookedAt: tp("2024-01-02")},
		{ID: "ct_2", AdID: "A2", FormSubmittedAt: tp("2024-01-01"), CallBookedAt: tp("2024-01-02")},
	}
	spend := []domain.AdSpendRecord{
		{AdID: "A1", Date: day("2024-01-01"), Spend: 300},
		{AdID: "A2", Date: day("2024-01-01"), Spend: 100},
	}
	svc := NewService(&fixture{spend: spend}, &fixture{contacts: contacts})

	rows, err := svc.TopPerformers(context.Background(), day("2024-01-01"), day("2024-01-07"), LevelAd, "cost_per_booked", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// cost metrics rank ascending: cheapest booked call wins
	assert.Equal(t, "A2", rows[0].ID)
}

func TestSafeDiv(t *testing.T) {
	assert.Zero(t, safeDiv(10, 0))
	assert.Equal(t, 2.5, safeDiv(5, 2))
	assert.Zero(t, safePct(3, 0))
	assert.Equal(t, 50.0, safePct(1, 2))
}
