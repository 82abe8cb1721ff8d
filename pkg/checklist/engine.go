// Package checklist instantiates review checklists from templates and
// enforces item lifecycle rules. The default template always applies;
// conditional templates add their items when every condition matches the
// profile. A review cannot complete while any item is non-terminal.
package checklist

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklistitem"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklisttemplate"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/criteria"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Engine builds checklists for new reviews and answers whether a review's
// checklist still blocks completion.
type Engine struct {
	log       ectologger.Logger
	templates *checklisttemplate.Repository
	items     *checklistitem.Repository
}

// NewEngine creates a checklist engine.
func NewEngine(log ectologger.Logger, templates *checklisttemplate.Repository, items *checklistitem.Repository) *Engine {
	return &Engine{
		log:       log,
		templates: templates,
		items:     items,
	}
}

// InstantiateForReview selects the applicable active templates for the
// profile and creates the review's checklist items in one batch. Returns the
// created items in category, display-order sequence.
func (e *Engine) InstantiateForReview(ctx context.Context, profile *models.CaseProfile, review *models.CaseReview, now time.Time) ([]*models.ChecklistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "checklist.Engine.InstantiateForReview")
	defer span.End()

	log := e.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  profile.TenantID,
		"profile_id": profile.ID,
		"review_id":  review.ID,
	})

	templates, err := e.templates.ListActive(ctx, profile.TenantID)
	if err != nil {
		return nil, err
	}

	doc := ProfileDocument(profile, review, now)
	selected := SelectTemplates(templates, doc)
	items := BuildItems(selected, review)

	if len(items) == 0 {
		log.Warn("No checklist templates applied to review")
		return nil, nil
	}

	if err := e.items.CreateBatch(ctx, items); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"templates": len(selected),
		"items":     len(items),
	}).Info("Instantiated review checklist")

	return items, nil
}

// BlocksCompletion reports whether any checklist item for the review is
// still pending or in_progress.
func (e *Engine) BlocksCompletion(ctx context.Context, tenantID string, reviewID string) (bool, error) {
	open, err := e.items.CountOpen(ctx, tenantID, reviewID)
	if err != nil {
		return false, err
	}
	return open > 0, nil
}

// ProfileDocument flattens the profile into the attribute document template
// conditions are evaluated against.
func ProfileDocument(profile *models.CaseProfile, review *models.CaseReview, now time.Time) map[string]any {
	facts := profile.Facts.GetValue()

	doc := map[string]any{
		"review_type":          string(review.ReviewType),
		"classification_state": string(profile.ClassificationState),
		"dna_status":           string(profile.DNAStatus),
		"family_contact_state": string(profile.FamilyContactState),
		"days_since_cold":      profile.DaysSinceCold(now),
		"total_reviews":        profile.TotalReviews,
		"is_minor":             facts.IsMinor,
		"is_indigenous":        facts.IsIndigenous,
		"high_vulnerability":   facts.HighVulnerability,
		"gender":               facts.Gender,
		"jurisdiction":         facts.Jurisdiction,
		"locality":             facts.Locality,
		"circumstance_tags":    facts.CircumstanceTags,
	}
	if profile.ClassificationReason != nil {
		doc["classification_reason"] = string(*profile.ClassificationReason)
	}
	if facts.AgeAtDisappearance != nil {
		doc["age_at_disappearance"] = *facts.AgeAtDisappearance
	}
	return doc
}

// SelectTemplates returns the templates that apply to the document: default
// templates unconditionally, conditional templates when every condition
// matches.
func SelectTemplates(templates []models.ChecklistTemplate, doc map[string]any) []models.ChecklistTemplate {
	var selected []models.ChecklistTemplate
	for _, t := range templates {
		if t.IsDefault {
			selected = append(selected, t)
			continue
		}
		if criteria.MatchesDocument(doc, conditionsOf(t)) {
			selected = append(selected, t)
		}
	}
	return selected
}

// BuildItems expands the selected templates into checklist item rows for the
// review, preserving each template's category and display order. Duplicate
// (category, title) pairs across templates collapse to the first occurrence.
func BuildItems(templates []models.ChecklistTemplate, review *models.CaseReview) []*models.ChecklistItem {
	seen := make(map[string]bool)
	var items []*models.ChecklistItem

	for _, t := range templates {
		for _, def := range t.Items.GetValue() {
			key := def.Category + "\x00" + def.Title
			if seen[key] {
				continue
			}
			seen[key] = true

			items = append(items, &models.ChecklistItem{
				TenantID:     review.TenantID,
				ReviewID:     review.ID,
				Category:     def.Category,
				Title:        def.Title,
				DisplayOrder: def.DisplayOrder,
				Status:       models.ChecklistPending,
			})
		}
	}
	return items
}

func conditionsOf(t models.ChecklistTemplate) []criteria.Condition {
	defs := t.Conditions.GetValue()
	conds := make([]criteria.Condition, 0, len(defs))
	for _, c := range defs {
		conds = append(conds, criteria.Condition{
			Field:    c.Field,
			Operator: c.Operator,
			Value:    c.Value,
		})
	}
	return conds
}
