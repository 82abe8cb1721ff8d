package linkedcase

import (
	"context"
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

var linkColumns = []string{
	"id", "tenant_id", "profile_a_id", "profile_b_id", "origin", "pattern_match_id", "created_at",
}

// Repository handles the undirected linked-case relation records
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new linked case repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Link records a link between two profiles. The pair is stored ordered and
// the call is idempotent.
func (r *Repository) Link(ctx context.Context, tenantID string, profileA, profileB string, origin models.LinkOrigin, patternMatchID *string) (*models.LinkedCase, error) {
	ctx, span := tracing.StartSpan(ctx, "linkedcase.Repository.Link")
	defer span.End()

	a, b := models.OrderedPair(profileA, profileB)
	link := &models.LinkedCase{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		ProfileAID:     a,
		ProfileBID:     b,
		Origin:         origin,
		PatternMatchID: patternMatchID,
		CreatedAt:      time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("linked_cases")
	sb.Cols(linkColumns...)
	sb.Values(link.ID, link.TenantID, link.ProfileAID, link.ProfileBID, link.Origin, link.PatternMatchID, link.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (tenant_id, profile_a_id, profile_b_id) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_a": a, "profile_b": b}).Error("Failed to link cases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to link cases")
	}

	return link, nil
}

// ListByProfile lists links where the profile is either endpoint
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string) ([]models.LinkedCase, error) {
	ctx, span := tracing.StartSpan(ctx, "linkedcase.Repository.ListByProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(linkColumns...)
	sb.From("linked_cases")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Or(
			sb.Equal("profile_a_id", profileID),
			sb.Equal("profile_b_id", profileID),
		),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var links []models.LinkedCase
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list linked cases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list linked cases")
	}

	return links, nil
}

// Count counts a profile's links, for snapshots
func (r *Repository) Count(ctx context.Context, tenantID string, profileID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "linkedcase.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("linked_cases")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Or(
			sb.Equal("profile_a_id", profileID),
			sb.Equal("profile_b_id", profileID),
		),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count linked cases")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count linked cases")
	}

	return count, nil
}
