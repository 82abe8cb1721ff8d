package models

import "time"

// DNAStatus is the forensic submission lifecycle state
type DNAStatus string

const (
	DNANotSubmitted        DNAStatus = "not_submitted"
	DNAPendingSubmission   DNAStatus = "pending_submission"
	DNASubmitted           DNAStatus = "submitted"
	DNAMatchFound          DNAStatus = "match_found"
	DNANoMatch             DNAStatus = "no_match"
	DNAResubmissionPending DNAStatus = "resubmission_pending"
	DNAResubmitted         DNAStatus = "resubmitted"
)

// dnaTransitions holds the allowed forward edges of the DNA lifecycle
var dnaTransitions = map[DNAStatus][]DNAStatus{
	DNANotSubmitted:        {DNAPendingSubmission},
	DNAPendingSubmission:   {DNASubmitted},
	DNASubmitted:           {DNAMatchFound, DNANoMatch},
	DNAMatchFound:          {DNAResubmissionPending},
	DNANoMatch:             {DNAResubmissionPending},
	DNAResubmissionPending: {DNAResubmitted},
	DNAResubmitted:         {DNAMatchFound, DNANoMatch},
}

// CanTransitionTo reports whether the status may advance to next
func (s DNAStatus) CanTransitionTo(next DNAStatus) bool {
	for _, allowed := range dnaTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DNASubmission tracks one forensic sample through the lab lifecycle
type DNASubmission struct {
	ID             string     `json:"id" db:"id"`
	TenantID       string     `json:"tenant_id" db:"tenant_id"`
	ProfileID      string     `json:"profile_id" db:"profile_id"`
	Status         DNAStatus  `json:"status" db:"status"`
	LabReferenceID *string    `json:"lab_reference_id,omitempty" db:"lab_reference_id"`
	SampleType     *string    `json:"sample_type,omitempty" db:"sample_type"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	ResultAt       *time.Time `json:"result_at,omitempty" db:"result_at"`
	Notes          *string    `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateDNASubmissionRequest registers a sample for submission
type CreateDNASubmissionRequest struct {
	LabReferenceID string `json:"lab_reference_id,omitempty"`
	SampleType     string `json:"sample_type,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// DNASubmissionListResponse lists a profile's submissions, newest first
type DNASubmissionListResponse struct {
	Items      []DNASubmission `json:"items"`
	TotalCount int             `json:"total_count"`
}

// UpdateDNAStatusRequest advances a submission's lifecycle state
type UpdateDNAStatusRequest struct {
	Status DNAStatus `json:"status" validate:"required,oneof=pending_submission submitted match_found no_match resubmission_pending resubmitted"`
	Notes  string    `json:"notes,omitempty"`
}
