package casereview

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

var reviewColumns = []string{
	"id", "tenant_id", "profile_id", "review_number", "review_type", "status", "due_date",
	"assigned_reviewer_id", "assigned_at", "started_at", "completed_at",
	"outcome_summary", "recommendation", "findings", "revival_recommended", "deferred_reason",
	"created_at", "updated_at",
}

// Repository handles case review persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new case review repository
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

// Create creates a review. The partial unique index on open reviews turns a
// racing second open review into a 409; review_number is taken transactionally
// from the current maximum.
func (r *Repository) Create(ctx context.Context, review *models.CaseReview) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.Create")
	defer span.End()

	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now
	if review.Status == "" {
		review.Status = models.ReviewPending
	}

	query := `
		INSERT INTO case_reviews (
			id, tenant_id, profile_id, review_number, review_type, status, due_date,
			assigned_reviewer_id, assigned_at, revival_recommended, created_at, updated_at
		)
		SELECT $1, $2, $3,
			COALESCE(MAX(review_number), 0) + 1,
			$4, $5, $6, $7, $8, false, $9, $9
		FROM case_reviews
		WHERE tenant_id = $2 AND profile_id = $3
		RETURNING review_number
	`

	err := r.db.GetContext(ctx, &review.ReviewNumber, query,
		review.ID, review.TenantID, review.ProfileID,
		review.ReviewType, review.Status, review.DueDate,
		review.AssignedReviewerID, review.AssignedAt, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("profile %s already has an open review", review.ProfileID))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": review.ProfileID}).Error("Failed to create case review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review")
	}

	return review, nil
}

// Get retrieves a review by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("case_reviews")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var review models.CaseReview
	if err := r.db.GetContext(ctx, &review, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get case review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review")
	}

	return &review, nil
}

// GetOpen returns the profile's open review (pending or in_progress), or nil
// when none is open.
func (r *Repository) GetOpen(ctx context.Context, tenantID string, profileID string) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.GetOpen")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("case_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
		sb.In("status", models.ReviewPending, models.ReviewInProgress),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var review models.CaseReview
	if err := r.db.GetContext(ctx, &review, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get open review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get open review")
	}

	return &review, nil
}

// ListByProfile lists a profile's reviews, newest first
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string) ([]models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.ListByProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("case_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
	)
	sb.OrderBy("review_number DESC")

	query, args := sb.Build()
	var reviews []models.CaseReview
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list case reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reviews")
	}

	return reviews, nil
}

// ListOverdue lists open reviews past their due date. Surfaced for humans and
// metrics, never auto-escalated.
func (r *Repository) ListOverdue(ctx context.Context, tenantID string, now time.Time, limit int) ([]models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.ListOverdue")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("case_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("status", models.ReviewPending, models.ReviewInProgress),
		sb.LessThan("due_date", now),
	)
	sb.OrderBy("due_date ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var reviews []models.CaseReview
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list overdue reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list overdue reviews")
	}

	return reviews, nil
}

// ListUnassigned lists open reviews with no reviewer, oldest due first, for
// the scheduler's retry pass.
func (r *Repository) ListUnassigned(ctx context.Context, tenantID string, limit int) ([]models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.ListUnassigned")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewColumns...)
	sb.From("case_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.ReviewPending),
		sb.IsNull("assigned_reviewer_id"),
	)
	sb.OrderBy("due_date ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var reviews []models.CaseReview
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list unassigned reviews")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list unassigned reviews")
	}

	return reviews, nil
}

// CountOverdue counts open reviews past their due date
func (r *Repository) CountOverdue(ctx context.Context, tenantID string, now time.Time) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.CountOverdue")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("case_reviews")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.In("status", models.ReviewPending, models.ReviewInProgress),
		sb.LessThan("due_date", now),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count overdue reviews")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count overdue reviews")
	}

	return count, nil
}

// Assign sets the reviewer on a pending review
func (r *Repository) Assign(ctx context.Context, tenantID string, reviewID string, reviewerID string) error {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.Assign")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_reviews")
	ub.Set(
		ub.Assign("assigned_reviewer_id", reviewerID),
		ub.Assign("assigned_at", time.Now().UTC()),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", reviewID),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": reviewID}).Error("Failed to assign review")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to assign review")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review %s not found", reviewID))
	}

	return nil
}

// Start moves a pending review to in_progress
func (r *Repository) Start(ctx context.Context, tenantID string, reviewID string) error {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.Start")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_reviews")
	ub.Set(
		ub.Assign("status", models.ReviewInProgress),
		ub.Assign("started_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", reviewID),
		ub.Equal("tenant_id", tenantID),
		ub.Equal("status", models.ReviewPending),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": reviewID}).Error("Failed to start review")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start review")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("review %s is not pending", reviewID))
	}

	return nil
}

// Complete closes an open review with its outcome. The caller validates the
// checklist first; this only flips the row.
func (r *Repository) Complete(ctx context.Context, tenantID string, reviewID string, req models.CompleteReviewRequest) error {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.Complete")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_reviews")
	ub.Set(
		ub.Assign("status", models.ReviewCompleted),
		ub.Assign("outcome_summary", req.OutcomeSummary),
		ub.Assign("recommendation", req.Recommendation),
		ub.Assign("findings", req.Findings),
		ub.Assign("revival_recommended", req.RevivalRecommended),
		ub.Assign("completed_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", reviewID),
		ub.Equal("tenant_id", tenantID),
		ub.In("status", models.ReviewPending, models.ReviewInProgress),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": reviewID}).Error("Failed to complete review")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete review")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("review %s is not open", reviewID))
	}

	return nil
}

// Defer closes an open review without an outcome
func (r *Repository) Defer(ctx context.Context, tenantID string, reviewID string, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "casereview.Repository.Defer")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_reviews")
	ub.Set(
		ub.Assign("status", models.ReviewDeferred),
		ub.Assign("deferred_reason", reason),
		ub.Assign("completed_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", reviewID),
		ub.Equal("tenant_id", tenantID),
		ub.In("status", models.ReviewPending, models.ReviewInProgress),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": reviewID}).Error("Failed to defer review")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to defer review")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("review %s is not open", reviewID))
	}

	return nil
}
