package crm

// ContactsResponse is one page of the contacts endpoint.
type ContactsResponse struct {
	Contacts []APIContact `json:"contacts"`
	Meta     PageMeta     `json:"meta"`
}

// PageMeta carries the cursor for the next page. StartAfter/StartAfterID are
// both zero-valued on the last page.
type PageMeta struct {
	Total        int    `json:"total"`
	StartAfter   int64  `json:"startAfter"`
	StartAfterID string `json:"startAfterId"`
	NextPageURL  string `json:"nextPageUrl"`
}

// ContactResponse wraps a single-contact fetch.
type ContactResponse struct {
	Contact APIContact `json:"contact"`
}

// APIContact is the CRM's contact representation.
type APIContact struct {
	ID          string `json:"id"`
	LocationID  string `json:"locationId"`
	Email       string `json:"email"`
	ContactName string `json:"contactName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
	DateAdded   string `json:"dateAdded"`

	CustomFields []CustomField `json:"customFields"`

	AttributionSource *Attribution `json:"attributionSource,omitempty"`
}

// CustomField is one custom-field value on a contact. Value is loosely typed
// upstream (string or number).
type CustomField struct {
	ID    string      `json:"id"`
	Key   string      `json:"key,omitempty"`
	Value interface{} `json:"value"`
}

// Attribution is the CRM's first-touch ad attribution blob.
type Attribution struct {
	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	Campaign    string `json:"campaign"`
	CampaignID  string `json:"campaignId"`
	AdID        string `json:"adId"`
	AdGroupID   string `json:"adGroupId"`
}

// Name returns the best display name available on the contact.
func (c *APIContact) Name() string {
	if c.ContactName != "" {
		return c.ContactName
	}
	full := c.FirstName
	if c.LastName != "" {
		if full != "" {
			full += " "
		}
		full += c.LastName
	}
	return full
}

// APIError is the CRM error envelope.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}
