// Package events publishes cold-case lifecycle events. Emission is
// best-effort: failures are logged and never fail the database write that
// produced the event.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/config"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/display"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/kafka"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes lifecycle, revival-trigger and campaign-dispatch events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger

	lifecycleTopic string
	revivalTopic   string
	dispatchTopic  string
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, cfg config.Config, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer:       producer,
		logger:         logger,
		lifecycleTopic: cfg.KafkaLifecycleTopic,
		revivalTopic:   cfg.KafkaRevivalTriggerTopic,
		dispatchTopic:  cfg.KafkaCampaignDispatchTopic,
	}
}

func (e *Emitter) publish(ctx context.Context, topic, key string, eventType EventType, tenantID string, payload any) {
	headers := map[string]string{
		"event_type":     string(eventType),
		"tenant_id":      tenantID,
		"schema_version": SchemaVersion,
	}
	if err := e.producer.Publish(ctx, topic, key, payload, headers); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"topic":      topic,
		}).Error("Failed to emit event")
	}
}

// EmitCaseClassified announces a classification state change
func (e *Emitter) EmitCaseClassified(ctx context.Context, profile *models.CaseProfile, criteria []string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCaseClassified")
	defer span.End()

	event := CaseClassifiedEvent{
		BaseEvent: NewBaseEvent(EventTypeCaseClassified, profile.TenantID),
		ProfileID: profile.ID,
		CaseID:    profile.CaseID,
		State:     profile.ClassificationState,
		Criteria:  criteria,
	}
	if profile.ClassificationReason != nil {
		event.Reason = *profile.ClassificationReason
	}

	e.publish(ctx, e.lifecycleTopic, profile.CaseID, event.EventType, profile.TenantID, event)
}

// EmitCaseRevived announces an approved revival
func (e *Emitter) EmitCaseRevived(ctx context.Context, profile *models.CaseProfile, approvedBy, note string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCaseRevived")
	defer span.End()

	event := CaseRevivedEvent{
		BaseEvent:  NewBaseEvent(EventTypeCaseRevived, profile.TenantID),
		ProfileID:  profile.ID,
		CaseID:     profile.CaseID,
		ApprovedBy: approvedBy,
		Note:       note,
	}

	e.publish(ctx, e.lifecycleTopic, profile.CaseID, event.EventType, profile.TenantID, event)
}

// EmitReviewCreated announces a newly opened review
func (e *Emitter) EmitReviewCreated(ctx context.Context, profile *models.CaseProfile, review *models.CaseReview) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewCreated")
	defer span.End()

	event := ReviewCreatedEvent{
		BaseEvent:    NewBaseEvent(EventTypeReviewCreated, profile.TenantID),
		ProfileID:    profile.ID,
		CaseID:       profile.CaseID,
		ReviewID:     review.ID,
		ReviewType:   review.ReviewType,
		ReviewNumber: review.ReviewNumber,
		DueDate:      &review.DueDate,
		ReviewerID:   review.AssignedReviewerID,
	}

	e.publish(ctx, e.lifecycleTopic, profile.CaseID, event.EventType, profile.TenantID, event)
}

// EmitReviewCompleted announces a closed review
func (e *Emitter) EmitReviewCompleted(ctx context.Context, profile *models.CaseProfile, review *models.CaseReview) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReviewCompleted")
	defer span.End()

	event := ReviewCompletedEvent{
		BaseEvent:      NewBaseEvent(EventTypeReviewComplete, profile.TenantID),
		ProfileID:      profile.ID,
		CaseID:         profile.CaseID,
		ReviewID:       review.ID,
		ReviewNumber:   review.ReviewNumber,
		NextReviewDate: profile.NextReviewDate,
	}
	if review.Recommendation != nil {
		event.Recommendation = *review.Recommendation
	}

	e.publish(ctx, e.lifecycleTopic, profile.CaseID, event.EventType, profile.TenantID, event)
}

// EmitRevivalTrigger announces a recorded revival trigger
func (e *Emitter) EmitRevivalTrigger(ctx context.Context, profile *models.CaseProfile, trigger *models.RevivalTrigger) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRevivalTrigger")
	defer span.End()

	event := RevivalTriggerEvent{
		BaseEvent:      NewBaseEvent(EventTypeRevivalTrigger, profile.TenantID),
		ProfileID:      profile.ID,
		CaseID:         profile.CaseID,
		TriggerID:      trigger.ID,
		TriggerType:    trigger.TriggerType,
		SourceEntityID: trigger.SourceEntityID,
		Detail:         trigger.Detail.GetValue(),
		PriorityScore:  profile.RevivalPriorityScore,
	}

	e.publish(ctx, e.revivalTopic, profile.CaseID, event.EventType, profile.TenantID, event)
}

// EmitCampaignDispatch announces an activated campaign to outreach channels
func (e *Emitter) EmitCampaignDispatch(ctx context.Context, profile *models.CaseProfile, campaign *models.Campaign) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCampaignDispatch")
	defer span.End()

	event := CampaignDispatchEvent{
		BaseEvent:    NewBaseEvent(EventTypeCampaignDispatch, profile.TenantID),
		CampaignID:   campaign.ID,
		ProfileID:    profile.ID,
		CaseID:       profile.CaseID,
		CampaignType: campaign.Type,
		TypeLabel:    display.CampaignTypes[campaign.Type],
		Headline:     campaign.Headline,
		Channels:     []string(campaign.Channels),
	}

	e.publish(ctx, e.dispatchTopic, profile.CaseID, event.EventType, profile.TenantID, event)
}
