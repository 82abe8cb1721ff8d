package models

import (
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
)

// ConfidenceBucket maps a similarity score into a reviewable band
type ConfidenceBucket string

const (
	ConfidenceLow      ConfidenceBucket = "low"
	ConfidenceMedium   ConfidenceBucket = "medium"
	ConfidenceHigh     ConfidenceBucket = "high"
	ConfidenceVeryHigh ConfidenceBucket = "very_high"
)

// BucketForSimilarity buckets a similarity in [0,1]:
// low < 0.4 <= medium < 0.65 <= high < 0.85 <= very_high
func BucketForSimilarity(similarity float64) ConfidenceBucket {
	switch {
	case similarity >= 0.85:
		return ConfidenceVeryHigh
	case similarity >= 0.65:
		return ConfidenceHigh
	case similarity >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// rank orders buckets for minimum-confidence filtering
func (b ConfidenceBucket) rank() int {
	switch b {
	case ConfidenceVeryHigh:
		return 3
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the bucket meets the given minimum
func (b ConfidenceBucket) AtLeast(min ConfidenceBucket) bool {
	return b.rank() >= min.rank()
}

// MatchReviewStatus is the human disposition of a pattern match
type MatchReviewStatus string

const (
	MatchUnreviewed MatchReviewStatus = "unreviewed"
	MatchConfirmed  MatchReviewStatus = "confirmed"
	MatchPossible   MatchReviewStatus = "possible"
	MatchRejected   MatchReviewStatus = "rejected"
)

// PatternSubScores is the per-dimension breakdown behind a similarity score
type PatternSubScores struct {
	Geographic  float64 `json:"geographic"`
	Temporal    float64 `json:"temporal"`
	Demographic float64 `json:"demographic"`
	Tags        float64 `json:"tags"`
}

// PatternMatch is a directed similarity edge from a source cold case to a
// candidate. Persisted only at or above the minimum confidence; unreviewed
// until a human confirms, and only confirmed matches feed the priority score.
type PatternMatch struct {
	ID               string                           `json:"id" db:"id"`
	TenantID         string                           `json:"tenant_id" db:"tenant_id"`
	SourceProfileID  string                           `json:"source_profile_id" db:"source_profile_id"`
	MatchedProfileID string                           `json:"matched_profile_id" db:"matched_profile_id"`
	Similarity       float64                          `json:"similarity" db:"similarity"`
	Confidence       ConfidenceBucket                 `json:"confidence" db:"confidence"`
	SubScores        database.JSONB[PatternSubScores] `json:"sub_scores" db:"sub_scores"`

	ReviewStatus    MatchReviewStatus `json:"review_status" db:"review_status"`
	ReviewedBy      *string           `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNote      *string           `json:"review_note,omitempty" db:"review_note"`
	InvestigationID *string           `json:"investigation_id,omitempty" db:"investigation_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ReviewPatternMatchRequest records the human disposition of a match
type ReviewPatternMatchRequest struct {
	Status            MatchReviewStatus `json:"status" validate:"required,oneof=confirmed possible rejected"`
	ReviewedBy        string            `json:"reviewed_by" validate:"required"`
	Note              string            `json:"note,omitempty"`
	OpenInvestigation bool              `json:"open_investigation"`
}

// PatternScanResponse reports the outcome of a corpus scan
type PatternScanResponse struct {
	SourceProfileID  string         `json:"source_profile_id"`
	CandidatesScored int            `json:"candidates_scored"`
	Persisted        []PatternMatch `json:"persisted"`
}

// PatternMatchListResponse lists matches for a profile
type PatternMatchListResponse struct {
	Items      []PatternMatch `json:"items"`
	TotalCount int            `json:"total_count"`
}
