package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
)

// CampaignType is the outreach campaign kind
type CampaignType string

const (
	CampaignAnniversary   CampaignType = "anniversary"
	CampaignRenewedAppeal CampaignType = "renewed_appeal"
	CampaignTargeted      CampaignType = "targeted"
)

// CampaignStatus is the campaign lifecycle state
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// campaignTransitions holds the allowed lifecycle edges
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignCancelled},
	CampaignScheduled: {CampaignActive, CampaignCancelled},
	CampaignActive:    {CampaignCompleted, CampaignCancelled},
}

// CanTransitionTo reports whether the status may advance to next
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CampaignMetrics holds reach/engagement/tip/lead counts, used for both
// targets and recorded actuals
type CampaignMetrics struct {
	Reach      int64 `json:"reach"`
	Engagement int64 `json:"engagement"`
	Tips       int   `json:"tips"`
	Leads      int   `json:"leads"`
}

// Campaign is one outreach push for a cold case. Anniversary campaigns are
// auto-proposed once per anniversary year; completion requires actuals, and
// engagement_rate is derived from them, never input.
type Campaign struct {
	ID        string         `json:"id" db:"id"`
	TenantID  string         `json:"tenant_id" db:"tenant_id"`
	ProfileID string         `json:"profile_id" db:"profile_id"`
	Type      CampaignType   `json:"type" db:"campaign_type"`
	Status    CampaignStatus `json:"status" db:"status"`

	Headline string         `json:"headline" db:"headline"`
	Channels pq.StringArray `json:"channels" db:"channels"`

	AnniversaryYear *int       `json:"anniversary_year,omitempty" db:"anniversary_year"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	TargetMetrics   database.JSONB[CampaignMetrics] `json:"target_metrics" db:"target_metrics"`
	ActualMetrics   database.JSONB[CampaignMetrics] `json:"actual_metrics" db:"actual_metrics"`
	ActualsRecorded bool                            `json:"actuals_recorded" db:"actuals_recorded"`
	EngagementRate  float64                         `json:"engagement_rate" db:"engagement_rate"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateCampaignRequest drafts a campaign
type CreateCampaignRequest struct {
	Type          CampaignType    `json:"type" validate:"required,oneof=anniversary renewed_appeal targeted"`
	Headline      string          `json:"headline" validate:"required"`
	Channels      []string        `json:"channels" validate:"required,min=1"`
	ScheduledFor  *time.Time      `json:"scheduled_for,omitempty"`
	TargetMetrics CampaignMetrics `json:"target_metrics"`
}

// ScheduleCampaignRequest moves a draft to scheduled
type ScheduleCampaignRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
}

// CompleteCampaignRequest completes an active campaign with actuals
type CompleteCampaignRequest struct {
	Actuals CampaignMetrics `json:"actuals" validate:"required"`
}

// CampaignListResponse lists campaigns for a profile
type CampaignListResponse struct {
	Items      []Campaign `json:"items"`
	TotalCount int        `json:"total_count"`
}
