package reviewer

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
	"github.com/lib/pq"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

var reviewerColumns = []string{
	"id", "tenant_id", "name", "email", "is_active",
	"max_concurrent_reviews", "current_assignments", "specializations", "excluded_jurisdictions",
	"rotation_priority", "next_available_date",
	"total_reviews", "completed_reviews", "success_rate",
	"created_at", "updated_at",
}

// Repository handles the reviewer registry
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reviewer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a reviewer
func (r *Repository) Create(ctx context.Context, reviewer *models.Reviewer) (*models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.Create")
	defer span.End()

	if reviewer.ID == "" {
		reviewer.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	reviewer.CreatedAt = now
	reviewer.UpdatedAt = now
	reviewer.IsActive = true
	if reviewer.Specializations == nil {
		reviewer.Specializations = pq.StringArray{}
	}
	if reviewer.ExcludedJurisdictions == nil {
		reviewer.ExcludedJurisdictions = pq.StringArray{}
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("reviewers")
	sb.Cols(reviewerColumns...)
	sb.Values(
		reviewer.ID, reviewer.TenantID, reviewer.Name, reviewer.Email, reviewer.IsActive,
		reviewer.MaxConcurrentReviews, reviewer.CurrentAssignments, reviewer.Specializations, reviewer.ExcludedJurisdictions,
		reviewer.RotationPriority, reviewer.NextAvailableDate,
		reviewer.TotalReviews, reviewer.CompletedReviews, reviewer.SuccessRate,
		reviewer.CreatedAt, reviewer.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"email": reviewer.Email}).Error("Failed to create reviewer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create reviewer")
	}

	return reviewer, nil
}

// Get retrieves a reviewer by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewerColumns...)
	sb.From("reviewers")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var reviewer models.Reviewer
	if err := r.db.GetContext(ctx, &reviewer, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reviewer %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get reviewer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reviewer")
	}

	return &reviewer, nil
}

// List lists all of a tenant's reviewers
func (r *Repository) List(ctx context.Context, tenantID string) ([]models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reviewerColumns...)
	sb.From("reviewers")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("rotation_priority ASC", "name ASC")

	query, args := sb.Build()
	var reviewers []models.Reviewer
	if err := r.db.SelectContext(ctx, &reviewers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list reviewers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reviewers")
	}

	return reviewers, nil
}

// ListActive returns the candidate pool for assignment: active reviewers
// under their concurrency cap. Jurisdiction and specialization filtering is
// the selector's job.
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.ListActive")
	defer span.End()

	query := `
		SELECT ` + joinColumns(reviewerColumns) + `
		FROM reviewers
		WHERE tenant_id = $1 AND is_active = true AND current_assignments < max_concurrent_reviews
		ORDER BY rotation_priority ASC
	`

	var reviewers []models.Reviewer
	if err := r.db.SelectContext(ctx, &reviewers, query, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active reviewers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list reviewers")
	}

	return reviewers, nil
}

// Update writes a modified registry entry back
func (r *Repository) Update(ctx context.Context, reviewer *models.Reviewer) (*models.Reviewer, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.Update")
	defer span.End()

	reviewer.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("reviewers")
	ub.Set(
		ub.Assign("name", reviewer.Name),
		ub.Assign("email", reviewer.Email),
		ub.Assign("is_active", reviewer.IsActive),
		ub.Assign("max_concurrent_reviews", reviewer.MaxConcurrentReviews),
		ub.Assign("specializations", reviewer.Specializations),
		ub.Assign("excluded_jurisdictions", reviewer.ExcludedJurisdictions),
		ub.Assign("next_available_date", reviewer.NextAvailableDate),
		ub.Assign("updated_at", reviewer.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", reviewer.ID),
		ub.Equal("tenant_id", reviewer.TenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"reviewer_id": reviewer.ID}).Error("Failed to update reviewer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update reviewer")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reviewer %s not found", reviewer.ID))
	}

	return reviewer, nil
}

// Deactivate removes a reviewer from the rotation without losing history
func (r *Repository) Deactivate(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.Deactivate")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("reviewers")
	ub.Set(
		ub.Assign("is_active", false),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"reviewer_id": id}).Error("Failed to deactivate reviewer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate reviewer")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("reviewer %s not found", id))
	}

	return nil
}

// RecordAssignment bumps the assignment counters when a review is handed to
// a reviewer. rotation_priority climbs so the rotation stays fair.
func (r *Repository) RecordAssignment(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.RecordAssignment")
	defer span.End()

	query := `
		UPDATE reviewers SET
			current_assignments = current_assignments + 1,
			total_reviews = total_reviews + 1,
			rotation_priority = rotation_priority + 1,
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, id, tenantID); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"reviewer_id": id}).Error("Failed to record reviewer assignment")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record assignment")
	}

	return nil
}

// RecordRelease drops the live assignment count when a review closes.
// Completed reviews also feed the success rate.
func (r *Repository) RecordRelease(ctx context.Context, tenantID string, id string, completed bool) error {
	ctx, span := tracing.StartSpan(ctx, "reviewer.Repository.RecordRelease")
	defer span.End()

	query := `
		UPDATE reviewers SET
			current_assignments = GREATEST(current_assignments - 1, 0),
			completed_reviews = completed_reviews + CASE WHEN $3 THEN 1 ELSE 0 END,
			success_rate = CASE WHEN total_reviews > 0
				THEN (completed_reviews + CASE WHEN $3 THEN 1 ELSE 0 END)::float / total_reviews
				ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, id, tenantID, completed); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"reviewer_id": id}).Error("Failed to record reviewer release")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record release")
	}

	return nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
