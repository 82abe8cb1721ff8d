package checklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

func template(name string, isDefault bool, conds []models.TemplateCondition, items []models.TemplateItem) models.ChecklistTemplate {
	return models.ChecklistTemplate{
		ID:         "tpl-" + name,
		TenantID:   "t1",
		Name:       name,
		IsDefault:  isDefault,
		IsActive:   true,
		Conditions: database.JSONB[[]models.TemplateCondition]{Data: conds},
		Items:      database.JSONB[[]models.TemplateItem]{Data: items},
	}
}

func coldProfile(facts models.CaseFacts) *models.CaseProfile {
	coldAt := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	return &models.CaseProfile{
		ID:                  "p1",
		TenantID:            "t1",
		CaseID:              "c1",
		ClassificationState: models.ClassificationCold,
		BecameColdAt:        &coldAt,
		DNAStatus:           models.DNANotSubmitted,
		FamilyContactState:  models.FamilyContactCurrent,
		Facts:               database.JSONB[models.CaseFacts]{Data: facts},
	}
}

func TestSelectTemplates(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	review := &models.CaseReview{ID: "r1", TenantID: "t1", ReviewType: models.ReviewTypePeriodic}

	base := template("standard", true, nil, []models.TemplateItem{
		{Category: "evidence", Title: "Re-examine physical evidence", DisplayOrder: 1},
	})
	minors := template("minors", false,
		[]models.TemplateCondition{{Field: "is_minor", Operator: "eq", Value: true}},
		[]models.TemplateItem{{Category: "welfare", Title: "Contact child protection liaison", DisplayOrder: 1}},
	)
	dna := template("dna-outstanding", false,
		[]models.TemplateCondition{{Field: "dna_status", Operator: "in", Value: []string{"not_submitted", "pending_submission"}}},
		[]models.TemplateItem{{Category: "dna", Title: "Collect family reference samples", DisplayOrder: 1}},
	)
	all := []models.ChecklistTemplate{base, minors, dna}

	t.Run("default template always applies", func(t *testing.T) {
		doc := ProfileDocument(coldProfile(models.CaseFacts{}), review, now)
		selected := SelectTemplates(all, doc)

		require.Len(t, selected, 2) // standard + dna (status not_collected)
		assert.Equal(t, "standard", selected[0].Name)
		assert.Equal(t, "dna-outstanding", selected[1].Name)
	})

	t.Run("conditional template applies when every condition matches", func(t *testing.T) {
		doc := ProfileDocument(coldProfile(models.CaseFacts{IsMinor: true}), review, now)
		selected := SelectTemplates(all, doc)

		names := make([]string, 0, len(selected))
		for _, s := range selected {
			names = append(names, s.Name)
		}
		assert.Contains(t, names, "minors")
	})

	t.Run("failed condition excludes the template", func(t *testing.T) {
		profile := coldProfile(models.CaseFacts{})
		profile.DNAStatus = models.DNAMatchFound

		doc := ProfileDocument(profile, review, now)
		selected := SelectTemplates(all, doc)

		require.Len(t, selected, 1)
		assert.Equal(t, "standard", selected[0].Name)
	})
}

func TestBuildItems(t *testing.T) {
	review := &models.CaseReview{ID: "r1", TenantID: "t1"}

	t.Run("preserves category and display order", func(t *testing.T) {
		items := BuildItems([]models.ChecklistTemplate{
			template("standard", true, nil, []models.TemplateItem{
				{Category: "evidence", Title: "Re-examine physical evidence", DisplayOrder: 1},
				{Category: "evidence", Title: "Re-run database searches", DisplayOrder: 2},
				{Category: "family", Title: "Confirm family contact details", DisplayOrder: 1},
			}),
		}, review)

		require.Len(t, items, 3)
		for _, item := range items {
			assert.Equal(t, "r1", item.ReviewID)
			assert.Equal(t, "t1", item.TenantID)
			assert.Equal(t, models.ChecklistPending, item.Status)
		}
		assert.Equal(t, 2, items[1].DisplayOrder)
		assert.Equal(t, "family", items[2].Category)
	})

	t.Run("duplicate category and title across templates collapse", func(t *testing.T) {
		items := BuildItems([]models.ChecklistTemplate{
			template("a", true, nil, []models.TemplateItem{
				{Category: "dna", Title: "Collect family reference samples", DisplayOrder: 1},
			}),
			template("b", false, nil, []models.TemplateItem{
				{Category: "dna", Title: "Collect family reference samples", DisplayOrder: 4},
				{Category: "dna", Title: "Chase lab backlog", DisplayOrder: 5},
			}),
		}, review)

		require.Len(t, items, 2)
		assert.Equal(t, 1, items[0].DisplayOrder) // first occurrence wins
		assert.Equal(t, "Chase lab backlog", items[1].Title)
	})
}

func TestApplyTransition(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	pending := func() *models.ChecklistItem {
		return &models.ChecklistItem{ID: "i1", Status: models.ChecklistPending}
	}

	t.Run("pending to in_progress stamps started_at", func(t *testing.T) {
		item := pending()
		err := ApplyTransition(item, models.UpdateChecklistItemStatusRequest{Status: models.ChecklistInProgress}, now)

		require.NoError(t, err)
		assert.Equal(t, models.ChecklistInProgress, item.Status)
		require.NotNil(t, item.StartedAt)
		assert.Equal(t, now, *item.StartedAt)
	})

	t.Run("completed requires result_summary", func(t *testing.T) {
		err := ApplyTransition(pending(), models.UpdateChecklistItemStatusRequest{Status: models.ChecklistCompleted}, now)
		assert.Error(t, err)
	})

	t.Run("completed with summary stamps completion", func(t *testing.T) {
		item := pending()
		err := ApplyTransition(item, models.UpdateChecklistItemStatusRequest{
			Status:        models.ChecklistCompleted,
			ResultSummary: "no new material",
			CompletedBy:   "rev-9",
		}, now)

		require.NoError(t, err)
		assert.Equal(t, models.ChecklistCompleted, item.Status)
		require.NotNil(t, item.CompletedAt)
		assert.Equal(t, "rev-9", *item.CompletedBy)
	})

	t.Run("action_required needs a description", func(t *testing.T) {
		err := ApplyTransition(pending(), models.UpdateChecklistItemStatusRequest{
			Status:         models.ChecklistCompleted,
			ResultSummary:  "fibre analysis outdated",
			ActionRequired: true,
		}, now)
		assert.Error(t, err)

		item := pending()
		err = ApplyTransition(item, models.UpdateChecklistItemStatusRequest{
			Status:            models.ChecklistCompleted,
			ResultSummary:     "fibre analysis outdated",
			ActionRequired:    true,
			ActionDescription: "resubmit fibres with current techniques",
		}, now)
		require.NoError(t, err)
		assert.True(t, item.ActionRequired)
	})

	t.Run("terminal items never move again", func(t *testing.T) {
		item := pending()
		item.Status = models.ChecklistSkipped

		err := ApplyTransition(item, models.UpdateChecklistItemStatusRequest{Status: models.ChecklistInProgress}, now)
		assert.Error(t, err)
	})

	t.Run("skipped and not_applicable reachable from in_progress", func(t *testing.T) {
		item := pending()
		item.Status = models.ChecklistInProgress

		err := ApplyTransition(item, models.UpdateChecklistItemStatusRequest{Status: models.ChecklistNotApplicable}, now)
		require.NoError(t, err)
		assert.Equal(t, models.ChecklistNotApplicable, item.Status)
	})
}
