package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ignite/attribution-monitor/internal/archive"
	"github.com/ignite/attribution-monitor/internal/cache"
	"github.com/ignite/attribution-monitor/internal/crm"
	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/meta"
	"github.com/ignite/attribution-monitor/internal/metrics"
	"github.com/ignite/attribution-monitor/internal/pkg/distlock"
	"github.com/ignite/attribution-monitor/internal/pkg/httputil"
	"github.com/ignite/attribution-monitor/internal/pkg/logger"
)

// LockFactory builds a distributed lock for a sync job key. Nil disables
// overlap protection.
type LockFactory func(key string) distlock.DistLock

type spendSyncer interface {
	SyncSpend(ctx context.Context, from, to time.Time, logID string) (*meta.SyncResult, error)
}

type contactSyncer interface {
	SyncContacts(ctx context.Context) (*crm.SyncResult, error)
	SyncContact(ctx context.Context, id string) (*crm.SyncResult, error)
	ApplyEvent(ctx context.Context, e *domain.ConversionEvent) error
}

type eventStore interface {
	Insert(ctx context.Context, e *domain.ConversionEvent) error
}

type syncLogStarter interface {
	Start(ctx context.Context, jobType string) (string, error)
}

type transcriptService interface {
	GetOrGenerate(ctx context.Context, adID string, force bool) (*domain.TranscriptRecord, error)
}

// Handlers carries the wired dependencies for every route.
type Handlers struct {
	events      eventStore
	spendSync   spendSyncer
	contactSync contactSyncer
	syncLogs    syncLogStarter
	transcripts transcriptService
	dashboard   dashboardService
	cache       *cache.Cache
	archiver    *archive.Archiver
	locks       LockFactory

	defaultDays int
	topLimit    int
}

// NewHandlers wires the route handlers. cache, archiver, and locks may be nil.
func NewHandlers(
	events eventStore,
	spendSync spendSyncer,
	contactSync contactSyncer,
	syncLogs syncLogStarter,
	transcripts transcriptService,
	dashboard dashboardService,
	c *cache.Cache,
	archiver *archive.Archiver,
	locks LockFactory,
	defaultDays, topLimit int,
) *Handlers {
	if defaultDays <= 0 {
		defaultDays = 7
	}
	if topLimit <= 0 {
		topLimit = 10
	}
	return &Handlers{
		events:      events,
		spendSync:   spendSync,
		contactSync: contactSync,
		syncLogs:    syncLogs,
		transcripts: transcripts,
		dashboard:   dashboard,
		cache:       c,
		archiver:    archiver,
		locks:       locks,
		defaultDays: defaultDays,
		topLimit:    topLimit,
	}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// CRMWebhook ingests one conversion event. The raw body is stored verbatim
// on the event row and optionally archived to S3; 400 when the contact ID or
// event type cannot be extracted under any known key spelling.
func (h *Handlers) CRMWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.BadRequest(w, "read body: "+err.Error())
		return
	}

	event, err := crm.ExtractEvent(body)
	if err != nil {
		switch {
		case errors.Is(err, crm.ErrMissingContactID), errors.Is(err, crm.ErrMissingEventType):
			httputil.BadRequest(w, err.Error())
		default:
			httputil.BadRequest(w, "invalid payload: "+err.Error())
		}
		return
	}

	if err := h.events.Insert(r.Context(), event); err != nil {
		httputil.InternalError(w, fmt.Errorf("store event: %w", err))
		return
	}

	if h.archiver != nil {
		go h.archiver.StorePayload(context.Background(), body)
	}

	logger.Info("webhook event received",
		"event_type", event.EventType,
		"contact_id", event.ContactID,
		"email", event.Email)

	// Funnel state is derivable from stored events, so a failed contact
	// update is logged rather than failing the webhook.
	if err := h.contactSync.ApplyEvent(r.Context(), event); err != nil {
		logger.Error("apply webhook event to contact failed",
			"event_type", event.EventType,
			"contact_id", event.ContactID,
			"error", err.Error())
	}

	httputil.OK(w, map[string]interface{}{"success": true, "event": event})
}

// parseRange reads start_date/end_date query params, defaulting to the
// trailing window of defaultDays.
func (h *Handlers) parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	from := now.AddDate(0, 0, -(h.defaultDays - 1))
	to := now

	if s := r.URL.Query().Get("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, fmt.Errorf("invalid start_date %q, expected YYYY-MM-DD", s)
		}
		from = parsed
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, fmt.Errorf("invalid end_date %q, expected YYYY-MM-DD", s)
		}
		to = parsed
	}
	return from, to, nil
}

// acquireJobLock takes the distributed lock for a sync job, writing a 409
// when another run holds it. The returned release func is non-nil iff ok.
func (h *Handlers) acquireJobLock(w http.ResponseWriter, r *http.Request, key string) (func(), bool) {
	if h.locks == nil {
		return func() {}, true
	}
	lock := h.locks(key)
	ok, err := lock.Acquire(r.Context())
	if err != nil {
		httputil.InternalError(w, fmt.Errorf("acquire %s lock: %w", key, err))
		return nil, false
	}
	if !ok {
		httputil.Conflict(w, key+" is already running")
		return nil, false
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Printf("release %s lock: %v", key, err)
		}
	}, true
}

// SyncSpend runs the ad-spend sync for the requested range. A log_id param
// correlates to an existing sync-log row; without one a new row is started.
func (h *Handlers) SyncSpend(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.parseRange(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	release, ok := h.acquireJobLock(w, r, "spend_sync")
	if !ok {
		return
	}
	defer release()

	logID := r.URL.Query().Get("log_id")
	if logID == "" && h.syncLogs != nil {
		if logID, err = h.syncLogs.Start(r.Context(), "spend_sync"); err != nil {
			log.Printf("sync spend: start log: %v", err)
			logID = ""
		}
	}

	result, err := h.spendSync.SyncSpend(r.Context(), from, to, logID)
	if err != nil {
		metrics.RecordSyncFailure("spend")
		httputil.InternalError(w, err)
		return
	}
	metrics.RecordSyncRows("spend", result.RowsUpserted)
	if len(result.Errors) > 0 {
		metrics.RecordSyncFailure("spend")
	}

	httputil.OK(w, map[string]interface{}{
		"success": len(result.Errors) == 0,
		"log_id":  logID,
		"result":  result,
	})
}

// SyncContacts runs a full contact sync, or a single-contact sync when
// contact_id is given.
func (h *Handlers) SyncContacts(w http.ResponseWriter, r *http.Request) {
	var (
		result *crm.SyncResult
		err    error
	)
	if id := r.URL.Query().Get("contact_id"); id != "" {
		result, err = h.contactSync.SyncContact(r.Context(), id)
	} else {
		release, ok := h.acquireJobLock(w, r, "contact_sync")
		if !ok {
			return
		}
		defer release()
		result, err = h.contactSync.SyncContacts(r.Context())
	}
	if err != nil {
		metrics.RecordSyncFailure("contacts")
		httputil.InternalError(w, err)
		return
	}
	metrics.RecordSyncRows("contacts", result.Upserted)
	httputil.OK(w, map[string]interface{}{"success": true, "result": result})
}

// Transcripts returns the transcript record for an ad, generating or
// queueing one when needed.
func (h *Handlers) Transcripts(w http.ResponseWriter, r *http.Request) {
	adID := r.URL.Query().Get("ad_id")
	if adID == "" {
		httputil.BadRequest(w, "ad_id is required")
		return
	}
	force := r.URL.Query().Get("force_regenerate") == "true" || r.URL.Query().Get("force_regenerate") == "1"

	rec, err := h.transcripts.GetOrGenerate(r.Context(), adID, force)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, rec)
}
