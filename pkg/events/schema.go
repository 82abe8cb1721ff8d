package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// Lifecycle events
	EventTypeCaseClassified EventType = "coldcase.classified"
	EventTypeCaseRevived    EventType = "coldcase.revived"
	EventTypeReviewCreated  EventType = "coldcase.review.created"
	EventTypeReviewComplete EventType = "coldcase.review.completed"

	// Signal-driven events
	EventTypeRevivalTrigger   EventType = "coldcase.revival.trigger"
	EventTypeCampaignDispatch EventType = "coldcase.campaign.dispatch"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// CaseClassifiedEvent is emitted when a profile changes classification state
type CaseClassifiedEvent struct {
	BaseEvent
	ProfileID string                      `json:"profile_id"`
	CaseID    string                      `json:"case_id"`
	State     models.ClassificationState  `json:"state"`
	Reason    models.ClassificationReason `json:"reason,omitempty"`
	Criteria  []string                    `json:"criteria,omitempty"`
}

// CaseRevivedEvent is emitted when a revival is approved and the case
// returns to active
type CaseRevivedEvent struct {
	BaseEvent
	ProfileID  string `json:"profile_id"`
	CaseID     string `json:"case_id"`
	ApprovedBy string `json:"approved_by"`
	Note       string `json:"note,omitempty"`
}

// ReviewCreatedEvent is emitted when a review is opened
type ReviewCreatedEvent struct {
	BaseEvent
	ProfileID    string            `json:"profile_id"`
	CaseID       string            `json:"case_id"`
	ReviewID     string            `json:"review_id"`
	ReviewType   models.ReviewType `json:"review_type"`
	ReviewNumber int               `json:"review_number"`
	DueDate      *time.Time        `json:"due_date,omitempty"`
	ReviewerID   *string           `json:"reviewer_id,omitempty"`
}

// ReviewCompletedEvent is emitted when a review closes
type ReviewCompletedEvent struct {
	BaseEvent
	ProfileID      string               `json:"profile_id"`
	CaseID         string               `json:"case_id"`
	ReviewID       string                      `json:"review_id"`
	ReviewNumber   int                         `json:"review_number"`
	Recommendation models.ReviewRecommendation `json:"recommendation"`
	NextReviewDate *time.Time                  `json:"next_review_date,omitempty"`
}

// RevivalTriggerEvent is emitted when a signal records a revival trigger
// against a cold profile
type RevivalTriggerEvent struct {
	BaseEvent
	ProfileID      string               `json:"profile_id"`
	CaseID         string               `json:"case_id"`
	TriggerID      string               `json:"trigger_id"`
	TriggerType    models.TriggerType   `json:"trigger_type"`
	SourceEntityID *string              `json:"source_entity_id,omitempty"`
	Detail         map[string]any       `json:"detail,omitempty"`
	PriorityScore  float64              `json:"priority_score"`
}

// CampaignDispatchEvent is emitted when a campaign activates, for the
// outreach channels to act on
type CampaignDispatchEvent struct {
	BaseEvent
	CampaignID   string              `json:"campaign_id"`
	ProfileID    string              `json:"profile_id"`
	CaseID       string              `json:"case_id"`
	CampaignType models.CampaignType `json:"campaign_type"`
	TypeLabel    string              `json:"type_label"`
	Headline     string              `json:"headline"`
	Channels     []string            `json:"channels"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
