package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

func reviewerFixture(id string, mutate func(*models.Reviewer)) models.Reviewer {
	r := models.Reviewer{
		ID:                   id,
		TenantID:             "t1",
		Name:                 "Reviewer " + id,
		IsActive:             true,
		MaxConcurrentReviews: 5,
		RotationPriority:     10,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestSelect_Eligibility(t *testing.T) {
	need := Need{Jurisdiction: "NT"}

	t.Run("inactive and saturated reviewers are excluded", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("a", func(r *models.Reviewer) { r.IsActive = false }),
			reviewerFixture("b", func(r *models.Reviewer) { r.CurrentAssignments = 5 }),
			reviewerFixture("c", nil),
		}, need)

		require.NotNil(t, picked)
		assert.Equal(t, "c", picked.ID)
	})

	t.Run("jurisdiction exclusion is hard", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("a", func(r *models.Reviewer) {
				r.RotationPriority = 1
				r.ExcludedJurisdictions = []string{"NT", "WA"}
			}),
			reviewerFixture("b", func(r *models.Reviewer) { r.RotationPriority = 20 }),
		}, need)

		require.NotNil(t, picked)
		assert.Equal(t, "b", picked.ID)
	})

	t.Run("nobody eligible returns nil", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("a", func(r *models.Reviewer) { r.IsActive = false }),
		}, need)
		assert.Nil(t, picked)

		assert.Nil(t, Select(nil, need))
	})
}

func TestSelect_SpecializationPreference(t *testing.T) {
	need := Need{Jurisdiction: "QLD", Specializations: []string{"indigenous_liaison"}}

	t.Run("specialized reviewer preferred over lower rotation priority", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("generalist", func(r *models.Reviewer) { r.RotationPriority = 1 }),
			reviewerFixture("liaison", func(r *models.Reviewer) {
				r.RotationPriority = 50
				r.Specializations = []string{"indigenous_liaison", "minors"}
			}),
		}, need)

		require.NotNil(t, picked)
		assert.Equal(t, "liaison", picked.ID)
	})

	t.Run("preference never blocks assignment when no specialist exists", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("generalist", nil),
		}, need)

		require.NotNil(t, picked)
		assert.Equal(t, "generalist", picked.ID)
	})
}

func TestSelect_Deterministic(t *testing.T) {
	soon := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	later := soon.AddDate(0, 1, 0)

	t.Run("lowest rotation priority wins", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("a", func(r *models.Reviewer) { r.RotationPriority = 3 }),
			reviewerFixture("b", func(r *models.Reviewer) { r.RotationPriority = 1 }),
		}, Need{})

		require.NotNil(t, picked)
		assert.Equal(t, "b", picked.ID)
	})

	t.Run("tie broken by earliest next_available_date, unset first", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("later", func(r *models.Reviewer) { r.NextAvailableDate = &later }),
			reviewerFixture("soon", func(r *models.Reviewer) { r.NextAvailableDate = &soon }),
		}, Need{})
		require.NotNil(t, picked)
		assert.Equal(t, "soon", picked.ID)

		picked = Select([]models.Reviewer{
			reviewerFixture("soon", func(r *models.Reviewer) { r.NextAvailableDate = &soon }),
			reviewerFixture("unset", nil),
		}, Need{})
		require.NotNil(t, picked)
		assert.Equal(t, "unset", picked.ID)
	})

	t.Run("then fewest current assignments, then id", func(t *testing.T) {
		picked := Select([]models.Reviewer{
			reviewerFixture("busy", func(r *models.Reviewer) { r.CurrentAssignments = 3 }),
			reviewerFixture("idle", func(r *models.Reviewer) { r.CurrentAssignments = 1 }),
		}, Need{})
		require.NotNil(t, picked)
		assert.Equal(t, "idle", picked.ID)

		// full tie collapses to id order, so repeated runs agree
		for i := 0; i < 5; i++ {
			picked = Select([]models.Reviewer{
				reviewerFixture("zz", nil),
				reviewerFixture("aa", nil),
			}, Need{})
			require.NotNil(t, picked)
			assert.Equal(t, "aa", picked.ID)
		}
	})
}

func TestNeedsForProfile(t *testing.T) {
	profile := &models.CaseProfile{
		Facts: database.JSONB[models.CaseFacts]{Data: models.CaseFacts{
			Jurisdiction:      "NT",
			IsIndigenous:      true,
			IsMinor:           true,
			HighVulnerability: false,
		}},
	}

	need := NeedsForProfile(profile)
	assert.Equal(t, "NT", need.Jurisdiction)
	assert.Equal(t, []string{"indigenous_liaison", "minors"}, need.Specializations)
}

func TestConfig_DueWindow(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*24*time.Hour, cfg.DueWindow(models.ReviewTypePeriodic))
	assert.Equal(t, 30*24*time.Hour, cfg.DueWindow(models.ReviewTypeSpecial))
	assert.Equal(t, 7*24*time.Hour, cfg.DueWindow(models.ReviewTypeAnniversary))
	assert.Equal(t, 7*24*time.Hour, cfg.DueWindow(models.ReviewTypeTipTriggered))
}
