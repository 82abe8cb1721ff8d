package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
)

// ClassificationState is the lifecycle state of a case profile
type ClassificationState string

const (
	ClassificationActive ClassificationState = "active"
	ClassificationCold   ClassificationState = "cold"
)

// ClassificationReason records why a case was classified cold
type ClassificationReason string

const (
	ReasonAutoClassified     ClassificationReason = "auto_classified"
	ReasonManual             ClassificationReason = "manual"
	ReasonResourceConstraint ClassificationReason = "resource_constraint"
)

// ReviewFrequency is the cadence of periodic cold-case reviews
type ReviewFrequency string

const (
	FrequencyQuarterly  ReviewFrequency = "quarterly"
	FrequencySemiAnnual ReviewFrequency = "semi_annual"
	FrequencyAnnual     ReviewFrequency = "annual"
)

// Months returns the review interval in months
func (f ReviewFrequency) Months() int {
	switch f {
	case FrequencyQuarterly:
		return 3
	case FrequencyAnnual:
		return 12
	default:
		return 6
	}
}

// FamilyContactState tracks whether the family liaison link is still live
type FamilyContactState string

const (
	FamilyContactCurrent FamilyContactState = "current"
	FamilyContactStale   FamilyContactState = "stale"
	FamilyContactLost    FamilyContactState = "lost"
)

// CaseFacts is the local mirror of case attributes consumed from the case
// repository. Updated from the case-activity CDC stream; the matcher and
// classifier read it, nothing here writes back to the source system.
type CaseFacts struct {
	PersonName         string     `json:"person_name,omitempty"`
	AgeAtDisappearance *int       `json:"age_at_disappearance,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	IsMinor            bool       `json:"is_minor"`
	IsIndigenous       bool       `json:"is_indigenous"`
	HighVulnerability  bool       `json:"high_vulnerability"`
	Jurisdiction       string     `json:"jurisdiction,omitempty"`
	Locality           string     `json:"locality,omitempty"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	DisappearedOn      *time.Time `json:"disappeared_on,omitempty"`
	CircumstanceTags   []string   `json:"circumstance_tags,omitempty"`
}

// ScoreFactor is one audited contribution to the revival priority score
type ScoreFactor struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
}

// CaseProfile is the cold-case lifecycle record. One active profile per case;
// history persists across reclassification.
type CaseProfile struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	CaseID   string `json:"case_id" db:"case_id"`

	ClassificationState  ClassificationState   `json:"classification_state" db:"classification_state"`
	ClassificationReason *ClassificationReason `json:"classification_reason,omitempty" db:"classification_reason"`
	ClassifiedAt         *time.Time            `json:"classified_at,omitempty" db:"classified_at"`
	BecameColdAt         *time.Time            `json:"became_cold_at,omitempty" db:"became_cold_at"`

	// The five classification criteria, as evaluated at the last pass
	NoLeadThresholdMet     bool `json:"no_lead_threshold_met" db:"no_lead_threshold_met"`
	NoTipThresholdMet      bool `json:"no_tip_threshold_met" db:"no_tip_threshold_met"`
	NoActivityThresholdMet bool `json:"no_activity_threshold_met" db:"no_activity_threshold_met"`
	ManuallyMarkedCold     bool `json:"manually_marked_cold" db:"manually_marked_cold"`
	ResourceConstrained    bool `json:"resource_constrained" db:"resource_constrained"`

	ReviewFrequency    *ReviewFrequency `json:"review_frequency,omitempty" db:"review_frequency"`
	LastReviewDate     *time.Time       `json:"last_review_date,omitempty" db:"last_review_date"`
	NextReviewDate     *time.Time       `json:"next_review_date,omitempty" db:"next_review_date"`
	TotalReviews       int              `json:"total_reviews" db:"total_reviews"`
	CompletedReviews   int              `json:"completed_reviews" db:"completed_reviews"`
	AssignedReviewerID *string          `json:"assigned_reviewer_id,omitempty" db:"assigned_reviewer_id"`

	DNAStatus       DNAStatus  `json:"dna_status" db:"dna_status"`
	AnniversaryDate *time.Time `json:"anniversary_date,omitempty" db:"anniversary_date"`

	Facts             database.JSONB[CaseFacts] `json:"facts" db:"case_facts"`
	PatternClusterIDs pq.StringArray            `json:"pattern_cluster_ids,omitempty" db:"pattern_cluster_ids"`

	RevivalPriorityScore   float64                       `json:"revival_priority_score" db:"revival_priority_score"`
	RevivalPriorityFactors database.JSONB[[]ScoreFactor] `json:"revival_priority_factors" db:"revival_priority_factors"`
	ScoreComputedAt        *time.Time                    `json:"score_computed_at,omitempty" db:"score_computed_at"`

	FamilyContactState  FamilyContactState `json:"family_contact_state" db:"family_contact_state"`
	FamilyLastContactAt *time.Time         `json:"family_last_contact_at,omitempty" db:"family_last_contact_at"`

	// Activity mirror from the case repository, refreshed by CDC and by
	// tip/lead and campaign feedback
	LastLeadAt     *time.Time `json:"last_lead_at,omitempty" db:"last_lead_at"`
	LastTipAt      *time.Time `json:"last_tip_at,omitempty" db:"last_tip_at"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DaysSinceCold returns whole days since became_cold_at, 0 when not cold
func (p *CaseProfile) DaysSinceCold(now time.Time) int {
	if p.BecameColdAt == nil {
		return 0
	}
	d := int(now.Sub(*p.BecameColdAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// NextAnniversary returns the next anniversary of the disappearance on or
// after now, or nil when no anniversary date is known
func (p *CaseProfile) NextAnniversary(now time.Time) *time.Time {
	if p.AnniversaryDate == nil {
		return nil
	}
	next := time.Date(now.Year(), p.AnniversaryDate.Month(), p.AnniversaryDate.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(now.Truncate(24 * time.Hour)) {
		next = next.AddDate(1, 0, 0)
	}
	return &next
}

// CreateCaseProfileRequest registers a case with the cold-case subsystem
type CreateCaseProfileRequest struct {
	CaseID          string     `json:"case_id" validate:"required"`
	Facts           CaseFacts  `json:"facts"`
	AnniversaryDate *time.Time `json:"anniversary_date,omitempty"`
	LastLeadAt      *time.Time `json:"last_lead_at,omitempty"`
	LastTipAt       *time.Time `json:"last_tip_at,omitempty"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty"`
}

// MarkColdRequest is a manual or resource-constraint cold marking
type MarkColdRequest struct {
	Reason ClassificationReason `json:"reason" validate:"required,oneof=manual resource_constraint"`
	Note   string               `json:"note,omitempty"`
}

// ApproveRevivalRequest is the human approval returning a case to active
type ApproveRevivalRequest struct {
	ApprovedBy string `json:"approved_by" validate:"required"`
	Note       string `json:"note,omitempty"`
}

// CaseProfileListResponse is the ranked cold-case listing
type CaseProfileListResponse struct {
	Items      []CaseProfile `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}
