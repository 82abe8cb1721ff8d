package models

import "time"

// ReviewType distinguishes scheduled reviews from out-of-band ones.
// Out-of-band reviews (special, tip_triggered) never consume the periodic slot.
type ReviewType string

const (
	ReviewTypePeriodic     ReviewType = "periodic"
	ReviewTypeAnniversary  ReviewType = "anniversary"
	ReviewTypeTipTriggered ReviewType = "tip_triggered"
	ReviewTypeSpecial      ReviewType = "special"
)

// ReviewStatus is the review lifecycle state
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewInProgress ReviewStatus = "in_progress"
	ReviewCompleted  ReviewStatus = "completed"
	ReviewDeferred   ReviewStatus = "deferred"
)

// IsOpen reports whether the status counts against the one-open-review rule
func (s ReviewStatus) IsOpen() bool {
	return s == ReviewPending || s == ReviewInProgress
}

// ReviewRecommendation is the reviewer's disposition for the case
type ReviewRecommendation string

const (
	RecommendContinueCold ReviewRecommendation = "continue_cold"
	RecommendRevive       ReviewRecommendation = "revive"
	RecommendArchive      ReviewRecommendation = "archive"
)

// CaseReview is one review cycle for a profile. review_number is sequential
// per profile; at most one review per profile is pending or in_progress.
type CaseReview struct {
	ID           string       `json:"id" db:"id"`
	TenantID     string       `json:"tenant_id" db:"tenant_id"`
	ProfileID    string       `json:"profile_id" db:"profile_id"`
	ReviewNumber int          `json:"review_number" db:"review_number"`
	ReviewType   ReviewType   `json:"review_type" db:"review_type"`
	Status       ReviewStatus `json:"status" db:"status"`
	DueDate      time.Time    `json:"due_date" db:"due_date"`

	AssignedReviewerID *string    `json:"assigned_reviewer_id,omitempty" db:"assigned_reviewer_id"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	StartedAt          *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	OutcomeSummary     *string               `json:"outcome_summary,omitempty" db:"outcome_summary"`
	Recommendation     *ReviewRecommendation `json:"recommendation,omitempty" db:"recommendation"`
	Findings           *string               `json:"findings,omitempty" db:"findings"`
	RevivalRecommended bool                  `json:"revival_recommended" db:"revival_recommended"`
	DeferredReason     *string               `json:"deferred_reason,omitempty" db:"deferred_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateReviewRequest creates an out-of-band review. Periodic and anniversary
// reviews are created by the scheduler, not through the API.
type CreateReviewRequest struct {
	ReviewType ReviewType `json:"review_type" validate:"required,oneof=special tip_triggered"`
	Reason     string     `json:"reason,omitempty"`
}

// AssignReviewRequest manually assigns a reviewer
type AssignReviewRequest struct {
	ReviewerID string `json:"reviewer_id" validate:"required"`
}

// CompleteReviewRequest completes a review. Rejected while any checklist
// item is still pending or in_progress.
type CompleteReviewRequest struct {
	OutcomeSummary     string               `json:"outcome_summary" validate:"required"`
	Recommendation     ReviewRecommendation `json:"recommendation" validate:"required,oneof=continue_cold revive archive"`
	Findings           string               `json:"findings,omitempty"`
	RevivalRecommended bool                 `json:"revival_recommended"`
}

// DeferReviewRequest defers an open review
type DeferReviewRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CaseReviewListResponse lists reviews for a profile
type CaseReviewListResponse struct {
	Items      []CaseReview `json:"items"`
	TotalCount int          `json:"total_count"`
}
