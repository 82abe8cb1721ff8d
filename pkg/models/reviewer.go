package models

import (
	"time"

	"github.com/lib/pq"
)

// Reviewer is a registry entry for the rotation scheduler. rotation_priority
// ascends as a reviewer accumulates assignments, keeping the rotation fair.
type Reviewer struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`

	IsActive             bool           `json:"is_active" db:"is_active"`
	MaxConcurrentReviews int            `json:"max_concurrent_reviews" db:"max_concurrent_reviews"`
	CurrentAssignments   int            `json:"current_assignments" db:"current_assignments"`
	Specializations      pq.StringArray `json:"specializations" db:"specializations"`
	ExcludedJurisdictions pq.StringArray `json:"excluded_jurisdictions" db:"excluded_jurisdictions"`
	RotationPriority     int            `json:"rotation_priority" db:"rotation_priority"`
	NextAvailableDate    *time.Time     `json:"next_available_date,omitempty" db:"next_available_date"`

	TotalReviews     int     `json:"total_reviews" db:"total_reviews"`
	CompletedReviews int     `json:"completed_reviews" db:"completed_reviews"`
	SuccessRate      float64 `json:"success_rate" db:"success_rate"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateReviewerRequest registers a reviewer
type CreateReviewerRequest struct {
	Name                  string     `json:"name" validate:"required"`
	Email                 string     `json:"email" validate:"required,email"`
	MaxConcurrentReviews  int        `json:"max_concurrent_reviews" validate:"required,min=1"`
	Specializations       []string   `json:"specializations,omitempty"`
	ExcludedJurisdictions []string   `json:"excluded_jurisdictions,omitempty"`
	NextAvailableDate     *time.Time `json:"next_available_date,omitempty"`
}

// UpdateReviewerRequest updates a reviewer registry entry
type UpdateReviewerRequest struct {
	Name                  *string    `json:"name,omitempty"`
	Email                 *string    `json:"email,omitempty" validate:"omitempty,email"`
	IsActive              *bool      `json:"is_active,omitempty"`
	MaxConcurrentReviews  *int       `json:"max_concurrent_reviews,omitempty" validate:"omitempty,min=1"`
	Specializations       []string   `json:"specializations,omitempty"`
	ExcludedJurisdictions []string   `json:"excluded_jurisdictions,omitempty"`
	NextAvailableDate     *time.Time `json:"next_available_date,omitempty"`
}

// ReviewerListResponse lists registered reviewers
type ReviewerListResponse struct {
	Items      []Reviewer `json:"items"`
	TotalCount int        `json:"total_count"`
}
