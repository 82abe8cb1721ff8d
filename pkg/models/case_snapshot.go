package models

import (
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
)

// CaseSnapshot is an explicit, timestamped snapshot of a profile's derived
// statistics, recomputed on demand or by the batch pass. Readers take the
// latest snapshot instead of re-deriving counts inline.
type CaseSnapshot struct {
	ID        string `json:"id" db:"id"`
	TenantID  string `json:"tenant_id" db:"tenant_id"`
	ProfileID string `json:"profile_id" db:"profile_id"`

	DaysCold            int     `json:"days_cold" db:"days_cold"`
	OpenReviewID        *string `json:"open_review_id,omitempty" db:"open_review_id"`
	ReviewOverdue       bool    `json:"review_overdue" db:"review_overdue"`
	UnprocessedEvidence int     `json:"unprocessed_evidence" db:"unprocessed_evidence"`
	ConfirmedPatterns   int     `json:"confirmed_patterns" db:"confirmed_patterns"`
	UnreviewedPatterns  int     `json:"unreviewed_patterns" db:"unreviewed_patterns"`
	LinkedCases         int     `json:"linked_cases" db:"linked_cases"`
	ActiveCampaigns     int     `json:"active_campaigns" db:"active_campaigns"`

	TriggerCounts database.JSONB[map[string]int] `json:"trigger_counts" db:"trigger_counts"`

	Score        float64                       `json:"score" db:"score"`
	ScoreFactors database.JSONB[[]ScoreFactor] `json:"score_factors" db:"score_factors"`

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}
