package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/attribution-monitor/internal/analytics"
	"github.com/ignite/attribution-monitor/internal/cache"
	"github.com/ignite/attribution-monitor/internal/pkg/httputil"
)

type dashboardService interface {
	Overview(ctx context.Context, from, to time.Time) (*analytics.Overview, error)
	TimeSeries(ctx context.Context, from, to time.Time) ([]analytics.TimePoint, error)
	Breakdown(ctx context.Context, from, to time.Time, level analytics.BreakdownLevel) ([]analytics.BreakdownRow, error)
	TopPerformers(ctx context.Context, from, to time.Time, level analytics.BreakdownLevel, metric string, n int) ([]analytics.BreakdownRow, error)
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

// DashboardOverview serves the aggregate KPI block.
func (h *Handlers) DashboardOverview(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseRange(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var out analytics.Overview
	key := cache.Key("overview", dayKey(from), dayKey(to))
	err = h.cache.GetOrCompute(r.Context(), key, &out, func() (interface{}, error) {
		return h.dashboard.Overview(r.Context(), from, to)
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, out)
}

// DashboardTimeSeries serves per-day rows for the range.
func (h *Handlers) DashboardTimeSeries(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseRange(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var out []analytics.TimePoint
	key := cache.Key("timeseries", dayKey(from), dayKey(to))
	err = h.cache.GetOrCompute(r.Context(), key, &out, func() (interface{}, error) {
		return h.dashboard.TimeSeries(r.Context(), from, to)
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, out)
}

func breakdownLevel(r *http.Request) (analytics.BreakdownLevel, bool) {
	level := analytics.BreakdownLevel(r.URL.Query().Get("level"))
	if level == "" {
		level = analytics.LevelCampaign
	}
	return level, level.Valid()
}

// DashboardBreakdown serves the per-source breakdown at the requested level.
func (h *Handlers) DashboardBreakdown(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseRange(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	level, ok := breakdownLevel(r)
	if !ok {
		httputil.BadRequest(w, "level must be campaign, adset or ad")
		return
	}

	var out []analytics.BreakdownRow
	key := cache.Key("breakdown", dayKey(from), dayKey(to), string(level))
	err = h.cache.GetOrCompute(r.Context(), key, &out, func() (interface{}, error) {
		return h.dashboard.Breakdown(r.Context(), from, to, level)
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, out)
}

// DashboardTop serves the ranked top performers for a metric.
func (h *Handlers) DashboardTop(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseRange(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	level, ok := breakdownLevel(r)
	if !ok {
		httputil.BadRequest(w, "level must be campaign, adset or ad")
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "roas"
	}
	if !analytics.ValidTopMetric(metric) {
		httputil.BadRequest(w, "unknown metric "+metric)
		return
	}

	var out []analytics.BreakdownRow
	key := cache.Key("top", dayKey(from), dayKey(to), string(level), metric)
	err = h.cache.GetOrCompute(r.Context(), key, &out, func() (interface{}, error) {
		return h.dashboard.TopPerformers(r.Context(), from, to, level, metric, h.topLimit)
	})
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, out)
}
