package campaigns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0.0, EngagementRate(models.CampaignMetrics{Reach: 0, Engagement: 50}))
	assert.Equal(t, 0.0, EngagementRate(models.CampaignMetrics{Reach: -1, Engagement: 50}))
	assert.Equal(t, 0.05, EngagementRate(models.CampaignMetrics{Reach: 1000, Engagement: 50}))
	assert.Equal(t, 1.0, EngagementRate(models.CampaignMetrics{Reach: 200, Engagement: 200}))
}

func TestCheckTransition(t *testing.T) {
	c := &models.Campaign{ID: "c1", Status: models.CampaignDraft}

	assert.NoError(t, checkTransition(c, models.CampaignScheduled))
	assert.NoError(t, checkTransition(c, models.CampaignCancelled))
	assert.Error(t, checkTransition(c, models.CampaignActive))
	assert.Error(t, checkTransition(c, models.CampaignCompleted))

	c.Status = models.CampaignActive
	assert.NoError(t, checkTransition(c, models.CampaignCompleted))
	assert.Error(t, checkTransition(c, models.CampaignScheduled))

	c.Status = models.CampaignCompleted
	assert.Error(t, checkTransition(c, models.CampaignCancelled))

	c.Status = models.CampaignCancelled
	assert.Error(t, checkTransition(c, models.CampaignActive))
}

func TestYearsSince(t *testing.T) {
	disappeared := time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC)
	profile := &models.CaseProfile{
		Facts: database.JSONB[models.CaseFacts]{Data: models.CaseFacts{DisappearedOn: &disappeared}},
	}

	anniversary := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, yearsSince(profile, anniversary))

	// Fall back to profile creation when the disappearance date is unknown
	profile.Facts = database.JSONB[models.CaseFacts]{Data: models.CaseFacts{}}
	profile.CreatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, yearsSince(profile, anniversary))
}
