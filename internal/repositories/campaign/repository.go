package campaign

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

var campaignColumns = []string{
	"id", "tenant_id", "profile_id", "campaign_type", "status", "headline", "channels",
	"anniversary_year", "scheduled_for", "started_at", "ended_at",
	"target_metrics", "actual_metrics", "actuals_recorded", "engagement_rate",
	"created_at", "updated_at",
}

// Repository handles campaign persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new campaign repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying handle so callers can run repository methods
// inside a shared transaction.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create drafts a campaign. The partial unique index on anniversary campaigns
// makes the yearly auto-proposal idempotent under races.
func (r *Repository) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.Create")
	defer span.End()

	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	if campaign.Status == "" {
		campaign.Status = models.CampaignDraft
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("campaigns")
	sb.Cols(campaignColumns...)
	sb.Values(
		campaign.ID, campaign.TenantID, campaign.ProfileID, campaign.Type, campaign.Status,
		campaign.Headline, campaign.Channels,
		campaign.AnniversaryYear, campaign.ScheduledFor, campaign.StartedAt, campaign.EndedAt,
		campaign.TargetMetrics, campaign.ActualMetrics, campaign.ActualsRecorded, campaign.EngagementRate,
		campaign.CreatedAt, campaign.UpdatedAt,
	)

	query, args := sb.Build()
	query += " ON CONFLICT DO NOTHING"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": campaign.ProfileID}).Error("Failed to create campaign")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create campaign")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, "an anniversary campaign already exists for that year")
	}

	return campaign, nil
}

// Get retrieves a campaign by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(campaignColumns...)
	sb.From("campaigns")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var campaign models.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("campaign %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get campaign")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get campaign")
	}

	return &campaign, nil
}

// ListByProfile lists a profile's campaigns, newest first
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string) ([]models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.ListByProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(campaignColumns...)
	sb.From("campaigns")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var campaigns []models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list campaigns")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list campaigns")
	}

	return campaigns, nil
}

// ExistsForAnniversaryYear reports whether a non-cancelled anniversary
// campaign already covers the year
func (r *Repository) ExistsForAnniversaryYear(ctx context.Context, tenantID string, profileID string, year int) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.ExistsForAnniversaryYear")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("campaigns")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
		sb.Equal("campaign_type", models.CampaignAnniversary),
		sb.Equal("anniversary_year", year),
		sb.NotEqual("status", models.CampaignCancelled),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check anniversary campaign existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check campaigns")
	}

	return count > 0, nil
}

// CountActive counts a profile's active or scheduled campaigns, for snapshots
func (r *Repository) CountActive(ctx context.Context, tenantID string, profileID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.CountActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("campaigns")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
		sb.In("status", models.CampaignScheduled, models.CampaignActive),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count active campaigns")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count campaigns")
	}

	return count, nil
}

// ListDueToActivate returns scheduled campaigns whose start time has arrived
func (r *Repository) ListDueToActivate(ctx context.Context, tenantID string, now time.Time, limit int) ([]models.Campaign, error) {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.ListDueToActivate")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(campaignColumns...)
	sb.From("campaigns")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.CampaignScheduled),
		sb.LessEqualThan("scheduled_for", now),
	)
	sb.OrderBy("scheduled_for ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var campaigns []models.Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list campaigns due to activate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list campaigns")
	}

	return campaigns, nil
}

// Update writes a campaign's advanced state back. The status guard keeps two
// concurrent transitions from both landing.
func (r *Repository) Update(ctx context.Context, campaign *models.Campaign, fromStatus models.CampaignStatus) error {
	ctx, span := tracing.StartSpan(ctx, "campaign.Repository.Update")
	defer span.End()

	campaign.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("campaigns")
	ub.Set(
		ub.Assign("status", campaign.Status),
		ub.Assign("headline", campaign.Headline),
		ub.Assign("channels", campaign.Channels),
		ub.Assign("scheduled_for", campaign.ScheduledFor),
		ub.Assign("started_at", campaign.StartedAt),
		ub.Assign("ended_at", campaign.EndedAt),
		ub.Assign("target_metrics", campaign.TargetMetrics),
		ub.Assign("actual_metrics", campaign.ActualMetrics),
		ub.Assign("actuals_recorded", campaign.ActualsRecorded),
		ub.Assign("engagement_rate", campaign.EngagementRate),
		ub.Assign("updated_at", campaign.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", campaign.ID),
		ub.Equal("tenant_id", campaign.TenantID),
		ub.Equal("status", fromStatus),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"campaign_id": campaign.ID}).Error("Failed to update campaign")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update campaign")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("campaign %s is no longer %s", campaign.ID, fromStatus))
	}

	return nil
}
