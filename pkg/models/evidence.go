package models

import "time"

// EvidenceSignificance grades how much an evidence item matters
type EvidenceSignificance string

const (
	SignificanceCritical EvidenceSignificance = "critical"
	SignificanceHigh     EvidenceSignificance = "high"
	SignificanceMedium   EvidenceSignificance = "medium"
	SignificanceLow      EvidenceSignificance = "low"
)

// VerificationStatus is the evidence vetting state
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// Evidence is a new evidentiary fact attached to a cold case. Unprocessed or
// newly-verified items contribute to the revival priority score; critical
// items may open a special review.
type Evidence struct {
	ID           string               `json:"id" db:"id"`
	TenantID     string               `json:"tenant_id" db:"tenant_id"`
	ProfileID    string               `json:"profile_id" db:"profile_id"`
	Description  string               `json:"description" db:"description"`
	Significance EvidenceSignificance `json:"significance" db:"significance"`
	Verification VerificationStatus   `json:"verification" db:"verification"`
	Source       *string              `json:"source,omitempty" db:"source"`

	Processed   bool       `json:"processed" db:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	VerifiedBy  *string    `json:"verified_by,omitempty" db:"verified_by"`
	ReceivedAt  time.Time  `json:"received_at" db:"received_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateEvidenceRequest records a new evidence item
type CreateEvidenceRequest struct {
	Description  string               `json:"description" validate:"required"`
	Significance EvidenceSignificance `json:"significance" validate:"required,oneof=critical high medium low"`
	Source       string               `json:"source,omitempty"`
	ReceivedAt   *time.Time           `json:"received_at,omitempty"`
}

// UpdateEvidenceVerificationRequest sets the vetting outcome
type UpdateEvidenceVerificationRequest struct {
	Verification VerificationStatus `json:"verification" validate:"required,oneof=verified rejected"`
	VerifiedBy   string             `json:"verified_by" validate:"required"`
}

// EvidenceListResponse lists evidence for a profile
type EvidenceListResponse struct {
	Items      []Evidence `json:"items"`
	TotalCount int        `json:"total_count"`
}
