package crm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/attribution-monitor/internal/domain"
	"github.com/ignite/attribution-monitor/internal/repository/postgres"
)

const (
	cashFieldID = "11111111-aaaa-bbbb-cccc-000000000001"
	dealFieldID = "11111111-aaaa-bbbb-cccc-000000000002"
)

type fakeAPI struct {
	contacts []APIContact
	byID     map[string]*APIContact
	err      error
}

func (f *fakeAPI) ListContacts(context.Context) ([]APIContact, error) {
	return f.contacts, f.err
}

func (f *fakeAPI) GetContact(_ context.Context, id string) (*APIContact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

type fakeContactStore struct {
	stored map[string]*domain.Contact
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{stored: map[string]*domain.Contact{}}
}

func (s *fakeContactStore) Get(_ context.Context, id string) (*domain.Contact, error) {
	c, ok := s.stored[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return c, nil
}

func (s *fakeContactStore) Upsert(_ context.Context, c *domain.Contact) error {
	s.stored[c.ID] = c
	return nil
}

func TestSyncContactsSkipsContactsWithoutKnownFields(t *testing.T) {
	api := &fakeAPI{contacts: []APIContact{
		{ID: "ct_1", Email: "rich@example.com", CustomFields: []CustomField{
			{ID: cashFieldID, Value: "$2,500"},
		}},
		{ID: "ct_2", Email: "other@example.com", CustomFields: []CustomField{
			{ID: "unrelated-field", Value: "hello"},
		}},
		{ID: "ct_3", CustomFields: []CustomField{
			{ID: "x", Key: "deal_value", Value: 9000.0},
		}},
	}}
	store := newFakeContactStore()
	c := NewCollector(api, store, cashFieldID, dealFieldID)

	res, err := c.SyncContacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Upserted)
	assert.Equal(t, 1, res.Skipped)

	require.Contains(t, store.stored, "ct_1")
	require.NotNil(t, store.stored["ct_1"].CashCollected)
	assert.Equal(t, 2500.0, *store.stored["ct_1"].CashCollected)

	// key-name match works when the field ID is unknown
	require.Contains(t, store.stored, "ct_3")
	require.NotNil(t, store.stored["ct_3"].DealValue)
	assert.Equal(t, 9000.0, *store.stored["ct_3"].DealValue)

	assert.NotContains(t, store.stored, "ct_2")
}

func TestSyncContactsCarriesAttribution(t *testing.T) {
	api := &fakeAPI{contacts: []APIContact{
		{
			ID:           "ct_1",
			CustomFields: []CustomField{{ID: dealFieldID, Value: "100"}},
			AttributionSource: &Attribution{
				UTMSource:  "facebook",
				Campaign:   "Jan Launch",
				CampaignID: "C1",
				AdID:       "A1",
			},
		},
	}}
	store := newFakeContactStore()

	_, err := NewCollector(api, store, cashFieldID, dealFieldID).SyncContacts(context.Background())
	require.NoError(t, err)

	c := store.stored["ct_1"]
	assert.Equal(t, "A1", c.AdID)
	assert.Equal(t, "C1", c.CampaignID)
	assert.Equal(t, "Jan Launch", c.CampaignName)
	assert.Equal(t, "facebook", c.UTMSource)
}

func TestSyncContactSingle(t *testing.T) {
	api := &fakeAPI{byID: map[string]*APIContact{
		"ct_5": {ID: "ct_5", CustomFields: []CustomField{{ID: cashFieldID, Value: "50"}}},
	}}
	store := newFakeContactStore()

	res, err := NewCollector(api, store, cashFieldID, dealFieldID).SyncContact(context.Background(), "ct_5")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Contains(t, store.stored, "ct_5")
}

func TestApplyEventSetsStageTimestamp(t *testing.T) {
	store := newFakeContactStore()
	c := NewCollector(&fakeAPI{}, store, cashFieldID, dealFieldID)

	now := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	err := c.ApplyEvent(context.Background(), &domain.ConversionEvent{
		ContactID: "ct_1",
		EventType: "booked_call",
		Email:     "lead@example.com",
		CreatedAt: now,
	})
	require.NoError(t, err)

	stored := store.stored["ct_1"]
	require.NotNil(t, stored.CallBookedAt)
	assert.Equal(t, now, *stored.CallBookedAt)
	require.Len(t, stored.StageHistory, 1)
	assert.Equal(t, domain.StageBooked, stored.StageHistory[0].Stage)
}

func TestApplyEventRejectsStageRegression(t *testing.T) {
	store := newFakeContactStore()
	showed := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	store.stored["ct_1"] = &domain.Contact{ID: "ct_1", ShowedUpAt: &showed}

	c := NewCollector(&fakeAPI{}, store, cashFieldID, dealFieldID)
	err := c.ApplyEvent(context.Background(), &domain.ConversionEvent{
		ContactID: "ct_1",
		EventType: "booked_call",
		CreatedAt: showed.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	// the regressive booked timestamp must not be written
	assert.Nil(t, store.stored["ct_1"].CallBookedAt)
	assert.Empty(t, store.stored["ct_1"].StageHistory)
}

func TestApplyEventUnknownTypeOnlyRefreshesIdentity(t *testing.T) {
	store := newFakeContactStore()
	c := NewCollector(&fakeAPI{}, store, cashFieldID, dealFieldID)

	err := c.ApplyEvent(context.Background(), &domain.ConversionEvent{
		ContactID: "ct_1",
		EventType: "note_added",
		Email:     "x@example.com",
	})
	require.NoError(t, err)

	stored := store.stored["ct_1"]
	assert.Equal(t, "x@example.com", stored.Email)
	assert.Nil(t, stored.FormSubmittedAt)
	assert.Nil(t, stored.CallBookedAt)
}
