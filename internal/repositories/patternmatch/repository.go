package patternmatch

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

var matchColumns = []string{
	"id", "tenant_id", "source_profile_id", "matched_profile_id", "similarity", "confidence", "sub_scores",
	"review_status", "reviewed_by", "reviewed_at", "review_note", "investigation_id",
	"created_at", "updated_at",
}

// Repository handles pattern match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pattern match repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertBatch persists scan results. A rescan refreshes similarity on the
// existing edge but never touches a human's review disposition.
func (r *Repository) UpsertBatch(ctx context.Context, matches []*models.PatternMatch) error {
	ctx, span := tracing.StartSpan(ctx, "patternmatch.Repository.UpsertBatch")
	defer span.End()

	if len(matches) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("pattern_matches")
	sb.Cols(matchColumns...)

	for _, m := range matches {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.ReviewStatus == "" {
			m.ReviewStatus = models.MatchUnreviewed
		}
		m.CreatedAt = now
		m.UpdatedAt = now
		sb.Values(
			m.ID, m.TenantID, m.SourceProfileID, m.MatchedProfileID, m.Similarity, m.Confidence, m.SubScores,
			m.ReviewStatus, m.ReviewedBy, m.ReviewedAt, m.ReviewNote, m.InvestigationID,
			m.CreatedAt, m.UpdatedAt,
		)
	}

	query, args := sb.Build()
	query += ` ON CONFLICT (tenant_id, source_profile_id, matched_profile_id) DO UPDATE SET
		similarity = EXCLUDED.similarity,
		confidence = EXCLUDED.confidence,
		sub_scores = EXCLUDED.sub_scores,
		updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"count": len(matches)}).Error("Failed to upsert pattern matches")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to persist pattern matches")
	}

	return nil
}

// Get retrieves a pattern match by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.PatternMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "patternmatch.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("pattern_matches")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var match models.PatternMatch
	if err := r.db.GetContext(ctx, &match, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pattern match %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pattern match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pattern match")
	}

	return &match, nil
}

// ListByProfile lists matches where the profile is either endpoint
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string, status string) ([]models.PatternMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "patternmatch.Repository.ListByProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("pattern_matches")
	conds := []string{
		sb.Equal("tenant_id", tenantID),
		sb.Or(
			sb.Equal("source_profile_id", profileID),
			sb.Equal("matched_profile_id", profileID),
		),
	}
	if status != "" {
		conds = append(conds, sb.Equal("review_status", status))
	}
	sb.Where(conds...)
	sb.OrderBy("similarity DESC", "created_at DESC")

	query, args := sb.Build()
	var matches []models.PatternMatch
	if err := r.db.SelectContext(ctx, &matches, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pattern matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pattern matches")
	}

	return matches, nil
}

// ListConfirmed returns the human-confirmed matches feeding the scorer
func (r *Repository) ListConfirmed(ctx context.Context, tenantID string, profileID string) ([]models.PatternMatch, error) {
	return r.ListByProfile(ctx, tenantID, profileID, string(models.MatchConfirmed))
}

// CountByStatus counts a profile's matches by review status, for snapshots
func (r *Repository) CountByStatus(ctx context.Context, tenantID string, profileID string, status models.MatchReviewStatus) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "patternmatch.Repository.CountByStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("pattern_matches")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Or(
			sb.Equal("source_profile_id", profileID),
			sb.Equal("matched_profile_id", profileID),
		),
		sb.Equal("review_status", status),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pattern matches")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count pattern matches")
	}

	return count, nil
}

// SetReview records the human disposition of a match. Only unreviewed matches
// may be reviewed; re-review goes through a fresh scan.
func (r *Repository) SetReview(ctx context.Context, tenantID string, id string, status models.MatchReviewStatus, reviewedBy string, note *string, investigationID *string) error {
	ctx, span := tracing.StartSpan(ctx, "patternmatch.Repository.SetReview")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("pattern_matches")
	ub.Set(
		ub.Assign("review_status", status),
		ub.Assign("reviewed_by", reviewedBy),
		ub.Assign("reviewed_at", now),
		ub.Assign("review_note", note),
		ub.Assign("investigation_id", investigationID),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
		ub.Equal("review_status", models.MatchUnreviewed),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": id}).Error("Failed to review pattern match")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to review pattern match")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("pattern match %s is not awaiting review", id))
	}

	return nil
}
