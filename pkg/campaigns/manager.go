// Package campaigns manages outreach campaigns for cold cases: drafting,
// the scheduled lifecycle, anniversary auto-proposals and outcome recording.
package campaigns

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/campaign"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/events"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Config holds campaign manager settings
type Config struct {
	// AnniversaryLeadDays is how far ahead of an anniversary the manager
	// proposes a campaign
	AnniversaryLeadDays int
	// PassPageSize bounds the anniversary pass page size
	PassPageSize int
}

// DefaultConfig returns the default campaign configuration
func DefaultConfig() Config {
	return Config{
		AnniversaryLeadDays: 30,
		PassPageSize:        200,
	}
}

// Manager coordinates campaign lifecycle and the anniversary pass
type Manager struct {
	log       ectologger.Logger
	profiles  *caseprofile.Repository
	campaigns *campaign.Repository
	emitter   *events.Emitter
	cfg       Config
}

// NewManager creates a campaign manager
func NewManager(log ectologger.Logger, profiles *caseprofile.Repository, campaigns *campaign.Repository, emitter *events.Emitter, cfg Config) *Manager {
	return &Manager{
		log:       log,
		profiles:  profiles,
		campaigns: campaigns,
		emitter:   emitter,
		cfg:       cfg,
	}
}

// Create drafts a campaign for a cold profile
func (m *Manager) Create(ctx context.Context, tenantID string, profileID string, req models.CreateCampaignRequest) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.Create")
	defer span.End()

	profile, err := m.profiles.Get(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}
	if profile.ClassificationState != models.ClassificationCold {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "campaigns can only be created for cold cases")
	}

	c := &models.Campaign{
		TenantID:      tenantID,
		ProfileID:     profileID,
		Type:          req.Type,
		Status:        models.CampaignDraft,
		Headline:      req.Headline,
		Channels:      req.Channels,
		ScheduledFor:  req.ScheduledFor,
		TargetMetrics: database.JSONB[models.CampaignMetrics]{Data: req.TargetMetrics},
		ActualMetrics: database.JSONB[models.CampaignMetrics]{Data: models.CampaignMetrics{}},
	}

	if req.Type == models.CampaignAnniversary {
		next := profile.NextAnniversary(time.Now().UTC())
		if next == nil {
			return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "profile has no anniversary date")
		}
		year := next.Year()
		c.AnniversaryYear = &year
	}

	return m.campaigns.Create(ctx, c)
}

// Schedule moves a draft to scheduled
func (m *Manager) Schedule(ctx context.Context, tenantID string, id string, req models.ScheduleCampaignRequest) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.Schedule")
	defer span.End()

	c, err := m.campaigns.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(c, models.CampaignScheduled); err != nil {
		return nil, err
	}

	from := c.Status
	c.Status = models.CampaignScheduled
	c.ScheduledFor = &req.ScheduledFor
	if err := m.campaigns.Update(ctx, c, from); err != nil {
		return nil, err
	}

	return c, nil
}

// Activate moves a scheduled campaign to active and emits the dispatch event
func (m *Manager) Activate(ctx context.Context, tenantID string, id string, now time.Time) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.Activate")
	defer span.End()

	c, err := m.campaigns.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(c, models.CampaignActive); err != nil {
		return nil, err
	}

	from := c.Status
	c.Status = models.CampaignActive
	c.StartedAt = &now
	if err := m.campaigns.Update(ctx, c, from); err != nil {
		return nil, err
	}

	if profile, perr := m.profiles.Get(ctx, tenantID, c.ProfileID); perr == nil {
		m.emitter.EmitCampaignDispatch(ctx, profile, c)
	} else {
		m.log.WithContext(ctx).WithError(perr).WithFields(map[string]any{"campaign_id": c.ID}).Error("Failed to load profile for dispatch event")
	}

	return c, nil
}

// Cancel cancels a campaign from any non-terminal state
func (m *Manager) Cancel(ctx context.Context, tenantID string, id string) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.Cancel")
	defer span.End()

	c, err := m.campaigns.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(c, models.CampaignCancelled); err != nil {
		return nil, err
	}

	from := c.Status
	c.Status = models.CampaignCancelled
	now := time.Now().UTC()
	c.EndedAt = &now
	if err := m.campaigns.Update(ctx, c, from); err != nil {
		return nil, err
	}

	return c, nil
}

// Complete closes an active campaign with recorded actuals. Engagement rate
// is derived, never input; tip and lead counts refresh the profile's
// activity watermarks.
func (m *Manager) Complete(ctx context.Context, tenantID string, id string, req models.CompleteCampaignRequest, now time.Time) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.Complete")
	defer span.End()

	c, err := m.campaigns.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(c, models.CampaignCompleted); err != nil {
		return nil, err
	}
	if req.Actuals.Reach < 0 || req.Actuals.Engagement < 0 || req.Actuals.Tips < 0 || req.Actuals.Leads < 0 {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "actual metrics cannot be negative")
	}

	from := c.Status
	c.Status = models.CampaignCompleted
	c.EndedAt = &now
	c.ActualMetrics = database.JSONB[models.CampaignMetrics]{Data: req.Actuals}
	c.ActualsRecorded = true
	c.EngagementRate = EngagementRate(req.Actuals)
	if err := m.campaigns.Update(ctx, c, from); err != nil {
		return nil, err
	}

	var leadAt, tipAt *time.Time
	if req.Actuals.Leads > 0 {
		leadAt = &now
	}
	if req.Actuals.Tips > 0 {
		tipAt = &now
	}
	if leadAt != nil || tipAt != nil {
		if err := m.profiles.RecordActivity(ctx, tenantID, c.ProfileID, leadAt, tipAt, &now); err != nil {
			m.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"campaign_id": c.ID}).Error("Failed to record campaign activity on profile")
		}
	}

	return c, nil
}

// EngagementRate derives the engagement rate from recorded actuals
func EngagementRate(actuals models.CampaignMetrics) float64 {
	if actuals.Reach <= 0 {
		return 0
	}
	return float64(actuals.Engagement) / float64(actuals.Reach)
}

// AnniversaryPassResult summarizes one anniversary proposal pass
type AnniversaryPassResult struct {
	Scanned  int `json:"scanned"`
	Proposed int `json:"proposed"`
	Skipped  int `json:"skipped"`
}

// RunAnniversaryPass proposes anniversary campaigns for cold profiles whose
// next anniversary falls within the lead window. One proposal per profile
// per anniversary year; reruns are no-ops.
func (m *Manager) RunAnniversaryPass(ctx context.Context, tenantID string, now time.Time) (*AnniversaryPassResult, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.RunAnniversaryPass")
	defer span.End()

	result := &AnniversaryPassResult{}
	afterID := ""
	for {
		page, err := m.profiles.ListColdWithAnniversary(ctx, tenantID, afterID, m.cfg.PassPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			profile := &page[i]
			afterID = profile.ID
			result.Scanned++

			next := profile.NextAnniversary(now)
			if next == nil || next.Sub(now) > time.Duration(m.cfg.AnniversaryLeadDays)*24*time.Hour {
				continue
			}

			proposed, err := m.proposeAnniversary(ctx, profile, *next)
			if err != nil {
				m.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).Error("Failed to propose anniversary campaign")
				result.Skipped++
				continue
			}
			if proposed {
				result.Proposed++
			}
		}

		if len(page) < m.cfg.PassPageSize {
			break
		}
	}

	m.log.WithContext(ctx).WithFields(map[string]any{
		"scanned":  result.Scanned,
		"proposed": result.Proposed,
		"skipped":  result.Skipped,
	}).Info("Anniversary campaign pass finished")

	return result, nil
}

func (m *Manager) proposeAnniversary(ctx context.Context, profile *models.CaseProfile, anniversary time.Time) (bool, error) {
	year := anniversary.Year()

	exists, err := m.campaigns.ExistsForAnniversaryYear(ctx, profile.TenantID, profile.ID, year)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	facts := profile.Facts.GetValue()
	headline := fmt.Sprintf("%d years missing", yearsSince(profile, anniversary))
	if facts.PersonName != "" {
		headline = fmt.Sprintf("Help find %s: %d years missing", facts.PersonName, yearsSince(profile, anniversary))
	}

	c := &models.Campaign{
		TenantID:        profile.TenantID,
		ProfileID:       profile.ID,
		Type:            models.CampaignAnniversary,
		Status:          models.CampaignDraft,
		Headline:        headline,
		Channels:        []string{"media", "social"},
		AnniversaryYear: &year,
		ScheduledFor:    &anniversary,
		TargetMetrics:   database.JSONB[models.CampaignMetrics]{Data: models.CampaignMetrics{}},
		ActualMetrics:   database.JSONB[models.CampaignMetrics]{Data: models.CampaignMetrics{}},
	}

	if _, err := m.campaigns.Create(ctx, c); err != nil {
		// Conflict means another pass already proposed this year
		if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusConflict {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// RunActivationPass starts scheduled campaigns whose start time has arrived
func (m *Manager) RunActivationPass(ctx context.Context, tenantID string, now time.Time) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "campaigns.Manager.RunActivationPass")
	defer span.End()

	due, err := m.campaigns.ListDueToActivate(ctx, tenantID, now, m.cfg.PassPageSize)
	if err != nil {
		return 0, err
	}

	activated := 0
	for i := range due {
		if _, err := m.Activate(ctx, tenantID, due[i].ID, now); err != nil {
			m.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"campaign_id": due[i].ID}).Error("Failed to activate due campaign")
			continue
		}
		activated++
	}

	return activated, nil
}

func yearsSince(profile *models.CaseProfile, anniversary time.Time) int {
	facts := profile.Facts.GetValue()
	if facts.DisappearedOn == nil {
		return anniversary.Year() - profile.CreatedAt.Year()
	}
	return anniversary.Year() - facts.DisappearedOn.Year()
}

func checkTransition(c *models.Campaign, next models.CampaignStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("campaign %s cannot move from %s to %s", c.ID, c.Status, next))
	}
	return nil
}
