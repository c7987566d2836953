package crm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEventCamelCaseKeys(t *testing.T) {
	raw := []byte(`{"contactId":"ct_42","workflow_name":"booked_call","email":"a@example.com"}`)

	e, err := ExtractEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "ct_42", e.ContactID)
	assert.Equal(t, "booked_call", e.EventType)
	assert.Equal(t, "a@example.com", e.Email)
}

func TestExtractEventNestedContactAndCustomData(t *testing.T) {
	raw := []byte(`{
		"eventType": "deal_closed",
		"contact": {"id": "ct_9", "email": "deep@example.com", "phone": "+15550001111"},
		"customData": {"cashCollected": "$12,500.00", "utmSource": "facebook"}
	}`)

	e, err := ExtractEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "ct_9", e.ContactID)
	assert.Equal(t, "deep@example.com", e.Email)
	assert.Equal(t, "facebook", e.UTMSource)
	require.NotNil(t, e.CashCollected)
	assert.Equal(t, 12500.0, *e.CashCollected)
}

func TestExtractEventTopLevelWinsOverNested(t *testing.T) {
	raw := []byte(`{"contactId":"top","contact":{"id":"nested"},"event_type":"qualified"}`)

	e, err := ExtractEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "top", e.ContactID)
}

func TestExtractEventMissingMandatoryFields(t *testing.T) {
	_, err := ExtractEvent([]byte(`{"event_type":"lead"}`))
	assert.ErrorIs(t, err, ErrMissingContactID)

	_, err = ExtractEvent([]byte(`{"contactId":"ct_1"}`))
	assert.ErrorIs(t, err, ErrMissingEventType)

	_, err = ExtractEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestExtractEventRawPayloadRoundTrip(t *testing.T) {
	raw := []byte(`{"contactId":"ct_1","eventType":"lead","extra":{"kept":true}}`)

	e, err := ExtractEvent(raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(e.RawPayload))

	var reparsed map[string]interface{}
	require.NoError(t, json.Unmarshal(e.RawPayload, &reparsed))
	assert.Equal(t, true, reparsed["extra"].(map[string]interface{})["kept"])
}

func TestExtractEventUnparsableMoneyIsNil(t *testing.T) {
	raw := []byte(`{"contactId":"ct_1","eventType":"deal_closed","cashCollected":"call me"}`)

	e, err := ExtractEvent(raw)
	require.NoError(t, err)
	assert.Nil(t, e.CashCollected)
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in   interface{}
		want *float64
	}{
		{"$1,234.56", f(1234.56)},
		{"€500", f(500)},
		{" 42 ", f(42)},
		{1250.0, f(1250)},
		{"", nil},
		{"n/a", nil},
		{true, nil},
		{nil, nil},
	}
	for _, tc := range cases {
		got := ParseMoney(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %v", tc.in)
		} else {
			require.NotNil(t, got, "input %v", tc.in)
			assert.Equal(t, *tc.want, *got)
		}
	}
}

func f(v float64) *float64 { return &v }
