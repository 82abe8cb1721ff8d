package models

import (
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
)

// TriggerType is why revival was considered
type TriggerType string

const (
	TriggerNewEvidence  TriggerType = "new_evidence"
	TriggerDNAMatch     TriggerType = "dna_match"
	TriggerPatternMatch TriggerType = "pattern_match"
	TriggerAnniversary  TriggerType = "anniversary"
	TriggerTip          TriggerType = "tip"
	TriggerCampaign     TriggerType = "campaign"
	TriggerManual       TriggerType = "manual"
)

// RevivalTrigger is an append-only record of why and when revival was
// considered for a profile. Immutable once created.
type RevivalTrigger struct {
	ID             string                          `json:"id" db:"id"`
	TenantID       string                          `json:"tenant_id" db:"tenant_id"`
	ProfileID      string                          `json:"profile_id" db:"profile_id"`
	TriggerType    TriggerType                     `json:"trigger_type" db:"trigger_type"`
	SourceEntityID *string                         `json:"source_entity_id,omitempty" db:"source_entity_id"`
	Detail         database.JSONB[map[string]any]  `json:"detail" db:"detail"`
	TriggeredBy    string                          `json:"triggered_by" db:"triggered_by"`
	CreatedAt      time.Time                       `json:"created_at" db:"created_at"`
}

// RevivalTriggerListResponse lists triggers for a profile, newest first
type RevivalTriggerListResponse struct {
	Items      []RevivalTrigger `json:"items"`
	TotalCount int              `json:"total_count"`
}
