package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/attribution-monitor/internal/domain"
)

type spendReader interface {
	ListRange(ctx context.Context, from, to time.Time) ([]domain.AdSpendRecord, error)
}

type contactReader interface {
	ListByFormSubmitted(ctx context.Context, from, to time.Time) ([]domain.Contact, error)
}

// Service computes dashboard aggregates by joining spend rows (filtered by
// calendar date) with contacts (filtered by form_submitted_at) in memory.
// Read-only: it owns no entity and never writes.
type Service struct {
	spend    spendReader
	contacts contactReader
}

func NewService(spend spendReader, contacts contactReader) *Service {
	return &Service{spend: spend, contacts: contacts}
}

func (s *Service) load(ctx context.Context, from, to time.Time) ([]domain.AdSpendRecord, []domain.Contact, error) {
	spend, err := s.spend.ListRange(ctx, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("load spend: %w", err)
	}
	contacts, err := s.contacts.ListByFormSubmitted(ctx, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("load contacts: %w", err)
	}
	return spend, contacts, nil
}

// Overview returns the aggregate KPIs for the range. An inverted range is an
// empty result, not an error.
//
// close_rate uses shown calls as the denominator: a closed deal presupposes a
// call that happened, so closed/shown measures sales execution while
// show_rate already covers booked-to-shown drop-off.
func (s *Service) Overview(ctx context.Context, from, to time.Time) (*Overview, error) {
	o := &Overview{}
	if from.After(to) {
		return o, nil
	}
	spend, contacts, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}

	for _, r := range spend {
		o.TotalSpend += r.Spend
		o.Impressions += r.Impressions
		o.Clicks += r.Clicks
	}

	for i := range contacts {
		c := &contacts[i]
		o.Leads++
		if c.CallBookedAt != nil {
			o.Booked++
		}
		if c.QualifiedAt != nil || (c.IsQualified != nil && *c.IsQualified) {
			o.Qualified++
		}
		if c.DisqualifiedAt != nil || (c.IsQualified != nil && !*c.IsQualified) {
			o.Disqualified++
		}
		if c.ShowedUpAt != nil {
			o.Shown++
		}
		if c.NoShowAt != nil {
			o.NoShows++
		}
		if c.DealClosedAt != nil {
			o.Closed++
			o.Revenue += c.Revenue()
		}
	}

	o.BookingRate = safePct(float64(o.Booked), float64(o.Leads))
	o.QualifiedRate = safePct(float64(o.Qualified), float64(o.Booked))
	o.ShowRate = safePct(float64(o.Shown), float64(o.Booked))
	o.CloseRate = safePct(float64(o.Closed), float64(o.Shown))

	o.CostPerLead = safeDiv(o.TotalSpend, float64(o.Leads))
	o.CostPerBooked = safeDiv(o.TotalSpend, float64(o.Booked))
	o.CostPerQualified = safeDiv(o.TotalSpend, float64(o.Qualified))
	o.CostPerShow = safeDiv(o.TotalSpend, float64(o.Shown))
	o.CostPerClose = safeDiv(o.TotalSpend, float64(o.Closed))

	o.ROAS = safeDiv(o.Revenue, o.TotalSpend)
	o.ROIPercent = safePct(o.Revenue-o.TotalSpend, o.TotalSpend)
	return o, nil
}

// TimeSeries returns one point per calendar day in the range, inclusive, with
// zero-filled days where nothing happened. Contact activity is attributed to
// the contact's form-submission day.
func (s *Service) TimeSeries(ctx context.Context, from, to time.Time) ([]TimePoint, error) {
	if from.After(to) {
		return []TimePoint{}, nil
	}
	spend, contacts, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byDay := map[string]*TimePoint{}
	var days []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		byDay[key] = &TimePoint{Date: key}
		days = append(days, key)
	}

	for _, r := range spend {
		p, ok := byDay[r.Date.Format("2006-01-02")]
		if !ok {
			continue
		}
		p.Spend += r.Spend
		p.Impressions += r.Impressions
		p.Clicks += r.Clicks
	}

	for i := range contacts {
		c := &contacts[i]
		if c.FormSubmittedAt == nil {
			continue
		}
		p, ok := byDay[c.FormSubmittedAt.Format("2006-01-02")]
		if !ok {
			continue
		}
		p.Leads++
		if c.CallBookedAt != nil {
			p.Booked++
		}
		if c.ShowedUpAt != nil {
			p.Shown++
		}
		if c.DealClosedAt != nil {
			p.Closed++
			p.Revenue += c.Revenue()
		}
	}

	points := make([]TimePoint, 0, len(days))
	for _, key := range days {
		points = append(points, *byDay[key])
	}
	return points, nil
}

// groupingKey returns the (id, name) a spend row groups under at the level.
// Ad level MUST key on the ad ID: distinct ads can share a display name and
// keying on the name would silently merge them.
func groupingKey(r *domain.AdSpendRecord, level BreakdownLevel) (string, string) {
	switch level {
	case LevelCampaign:
		return r.CampaignID, r.CampaignName
	case LevelAdset:
		return r.AdsetID, r.AdsetName
	default:
		return r.AdID, r.AdName
	}
}

func contactKey(c *domain.Contact, level BreakdownLevel) string {
	switch level {
	case LevelCampaign:
		return c.CampaignID
	case LevelAdset:
		return c.AdsetID
	default:
		return c.AdID
	}
}

// Breakdown returns per-source rows at the level. Spend rows with no contact
// activity still appear with zero conversion counts, and contacts whose
// attribution ID never spent in the range aggregate under that ID with zero
// spend.
func (s *Service) Breakdown(ctx context.Context, from, to time.Time, level BreakdownLevel) ([]BreakdownRow, error) {
	if from.After(to) {
		return []BreakdownRow{}, nil
	}
	spend, contacts, err := s.load(ctx, from, to)
	if err != nil {
		return nil, err
	}

	rows := map[string]*BreakdownRow{}
	var order []string
	row := func(id, name string) *BreakdownRow {
		if r, ok := rows[id]; ok {
			if r.Name == "" {
				r.Name = name
			}
			return r
		}
		r := &BreakdownRow{ID: id, Name: name}
		rows[id] = r
		order = append(order, id)
		return r
	}

	for i := range spend {
		id, name := groupingKey(&spend[i], level)
		if id == "" {
			continue
		}
		r := row(id, name)
		r.Spend += spend[i].Spend
		r.Impressions += spend[i].Impressions
		r.Clicks += spend[i].Clicks
	}

	for i := range contacts {
		c := &contacts[i]
		id := contactKey(c, level)
		if id == "" {
			continue
		}
		r := row(id, "")
		r.Leads++
		if c.CallBookedAt != nil {
			r.Booked++
		}
		if c.ShowedUpAt != nil {
			r.Shown++
		}
		if c.DealClosedAt != nil {
			r.Closed++
			r.Revenue += c.Revenue()
		}
	}

	out := make([]BreakdownRow, 0, len(order))
	for _, id := range order {
		r := rows[id]
		r.BookingRate = safePct(float64(r.Booked), float64(r.Leads))
		r.ShowRate = safePct(float64(r.Shown), float64(r.Booked))
		r.CloseRate = safePct(float64(r.Closed), float64(r.Shown))
		r.CostPerLead = safeDiv(r.Spend, float64(r.Leads))
		r.CostPerBooked = safeDiv(r.Spend, float64(r.Booked))
		r.CostPerClose = safeDiv(r.Spend, float64(r.Closed))
		r.ROAS = safeDiv(r.Revenue, r.Spend)
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Spend > out[j].Spend })
	return out, nil
}

// rankable extracts the ranking value for a metric, with ok=false when the
// row has a zero denominator for that metric and must be excluded rather
// than shown as 0 or infinity.
func rankable(r *BreakdownRow, metric string) (value float64, ascending, ok bool) {
	switch metric {
	case "spend":
		return r.Spend, false, true
	case "leads":
		return float64(r.Leads), false, true
	case "roas":
		return r.ROAS, false, r.Spend > 0
	case "close_rate":
		return r.CloseRate, false, r.Shown > 0
	case "booking_rate":
		return r.BookingRate, false, r.Leads > 0
	case "cost_per_lead":
		return r.CostPerLead, true, r.Leads > 0
	case "cost_per_booked":
		return r.CostPerBooked, true, r.Booked > 0
	case "cost_per_close":
		return r.CostPerClose, true, r.Closed > 0
	default:
		return 0, false, false
	}
}

// ValidTopMetric reports whether the metric name is rankable.
func ValidTopMetric(metric string) bool {
	_, _, ok := rankable(&BreakdownRow{Spend: 1, Leads: 1, Booked: 1, Shown: 1, Closed: 1}, metric)
	return ok
}

// TopPerformers ranks breakdown rows by the metric and returns the best n.
// Cost metrics rank ascending (cheaper is better), everything else
// descending.
func (s *Service) TopPerformers(ctx context.Context, from, to time.Time, level BreakdownLevel, metric string, n int) ([]BreakdownRow, error) {
	all, err := s.Breakdown(ctx, from, to, level)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		row   BreakdownRow
		value float64
	}
	var ascending bool
	var kept []ranked
	for i := range all {
		value, asc, ok := rankable(&all[i], metric)
		if !ok {
			continue
		}
		ascending = asc
		kept = append(kept, ranked{row: all[i], value: value})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if ascending {
			return kept[i].value < kept[j].value
		}
		return kept[i].value > kept[j].value
	})

	if n > 0 && len(kept) > n {
		kept = kept[:n]
	}
	out := make([]BreakdownRow, len(kept))
	for i, k := range kept {
		out[i] = k.row
	}
	return out, nil
}
