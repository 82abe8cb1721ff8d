package casesnapshot

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

var snapshotColumns = []string{
	"id", "tenant_id", "profile_id",
	"days_cold", "open_review_id", "review_overdue",
	"unprocessed_evidence", "confirmed_patterns", "unreviewed_patterns",
	"linked_cases", "active_campaigns", "trigger_counts",
	"score", "score_factors", "computed_at",
}

// Repository handles the explicit derived-statistics snapshots. Snapshots are
// insert-only; readers take the latest.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new case snapshot repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a snapshot
func (r *Repository) Create(ctx context.Context, snapshot *models.CaseSnapshot) (*models.CaseSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "casesnapshot.Repository.Create")
	defer span.End()

	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	if snapshot.ComputedAt.IsZero() {
		snapshot.ComputedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("case_snapshots")
	sb.Cols(snapshotColumns...)
	sb.Values(
		snapshot.ID, snapshot.TenantID, snapshot.ProfileID,
		snapshot.DaysCold, snapshot.OpenReviewID, snapshot.ReviewOverdue,
		snapshot.UnprocessedEvidence, snapshot.ConfirmedPatterns, snapshot.UnreviewedPatterns,
		snapshot.LinkedCases, snapshot.ActiveCampaigns, snapshot.TriggerCounts,
		snapshot.Score, snapshot.ScoreFactors, snapshot.ComputedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": snapshot.ProfileID}).Error("Failed to create case snapshot")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create snapshot")
	}

	return snapshot, nil
}

// GetLatest returns the most recent snapshot for a profile
func (r *Repository) GetLatest(ctx context.Context, tenantID string, profileID string) (*models.CaseSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "casesnapshot.Repository.GetLatest")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(snapshotColumns...)
	sb.From("case_snapshots")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
	)
	sb.OrderBy("computed_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var snapshot models.CaseSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no snapshot for profile %s", profileID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest snapshot")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get snapshot")
	}

	return &snapshot, nil
}

// PruneOlderThan drops snapshots past the retention horizon
func (r *Repository) PruneOlderThan(ctx context.Context, tenantID string, cutoff time.Time) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "casesnapshot.Repository.PruneOlderThan")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("case_snapshots")
	db.Where(
		db.Equal("tenant_id", tenantID),
		db.LessThan("computed_at", cutoff),
	)

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to prune case snapshots")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to prune snapshots")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
