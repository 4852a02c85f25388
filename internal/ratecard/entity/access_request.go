package entity

import "time"

// Status is the derived lifecycle state of a request. It is never stored:
// expiry is computed from TokenExpiresAt at read time.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusExpired  Status = "expired"
)

// AccessRequest represents one person's request to view the rate card
// (a row in the `rate_card_requests` table).
type AccessRequest struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	SubmittedAt time.Time `json:"submitted_at"`

	// optional profile fields from the intake form
	Email           *string `json:"email,omitempty"`
	BrandName       *string `json:"brand_name,omitempty"`
	InstagramHandle *string `json:"instagram_handle,omitempty"`
	AboutBusiness   *string `json:"about_business,omitempty"`
	ServiceInterest *string `json:"service_interest,omitempty"`
	HelpNeeded      *string `json:"help_needed,omitempty"`
	AdditionalInfo  *string `json:"additional_info,omitempty"`
	Notes           *string `json:"notes,omitempty"`

	IsApproved     bool       `json:"is_approved"`
	Token          *string    `json:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	WasAccessed    bool       `json:"was_accessed"`
	AccessedAt     *time.Time `json:"accessed_at,omitempty"`
}

// Expired reports whether an approved request's token is past its expiry at now.
// A token is still valid at the exact expiry instant.
func (r *AccessRequest) Expired(now time.Time) bool {
	return r.TokenExpiresAt != nil && now.After(*r.TokenExpiresAt)
}

// Status derives the lifecycle state at now.
func (r *AccessRequest) Status(now time.Time) Status {
	switch {
	case !r.IsApproved:
		return StatusPending
	case r.Expired(now):
		return StatusExpired
	default:
		return StatusApproved
	}
}

// Consistent reports whether the approval, token and access fields agree with each other.
func (r *AccessRequest) Consistent() bool {
	if (r.Token == nil) != (r.TokenExpiresAt == nil) {
		return false
	}
	if r.IsApproved != (r.Token != nil) {
		return false
	}
	if r.WasAccessed && !r.IsApproved {
		return false
	}
	if r.WasAccessed != (r.AccessedAt != nil) {
		return false
	}
	return true
}

// NewAccessRequest is the intake payload; only FullName and PhoneNumber are required.
type NewAccessRequest struct {
	FullName        string
	PhoneNumber     string
	Email           string
	BrandName       string
	InstagramHandle string
	AboutBusiness   string
	ServiceInterest string
	HelpNeeded      string
	AdditionalInfo  string
	Notes           string
}

// Issued is the result of an approval: the secret and when it stops working.
type Issued struct {
	RequestID string    `json:"request_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"token_expires_at"`
}

// Validation is the outcome of presenting a token. FullName and RequestID are
// only set when Valid is true.
type Validation struct {
	Valid     bool
	FullName  string
	RequestID string
	ExpiresAt time.Time
}

// Filter selects requests for the operator dashboard.
type Filter struct {
	Status string // all, pending, approved, accessed, expired
	Query  string
	Limit  int
	Offset int
}

// Stats are the per-tab counts shown to the operator.
type Stats struct {
	Total    int `json:"total" db:"total"`
	Pending  int `json:"pending" db:"pending"`
	Approved int `json:"approved" db:"approved"`
	Accessed int `json:"accessed" db:"accessed"`
	Expired  int `json:"expired" db:"expired"`
}
