package evidence

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

var evidenceColumns = []string{
	"id", "tenant_id", "profile_id", "description", "significance", "verification", "source",
	"processed", "processed_at", "verified_at", "verified_by", "received_at",
	"created_at", "updated_at",
}

// Repository handles evidence persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new evidence repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records an evidence item
func (r *Repository) Create(ctx context.Context, item *models.Evidence) (*models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.Create")
	defer span.End()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Verification == "" {
		item.Verification = models.VerificationUnverified
	}
	if item.ReceivedAt.IsZero() {
		item.ReceivedAt = now
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("evidence")
	sb.Cols(evidenceColumns...)
	sb.Values(
		item.ID, item.TenantID, item.ProfileID, item.Description, item.Significance, item.Verification, item.Source,
		item.Processed, item.ProcessedAt, item.VerifiedAt, item.VerifiedBy, item.ReceivedAt,
		item.CreatedAt, item.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": item.ProfileID}).Error("Failed to create evidence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create evidence")
	}

	return item, nil
}

// Get retrieves an evidence item by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(evidenceColumns...)
	sb.From("evidence")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var item models.Evidence
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("evidence %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get evidence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get evidence")
	}

	return &item, nil
}

// ListByProfile lists a profile's evidence, newest first
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string) ([]models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.ListByProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(evidenceColumns...)
	sb.From("evidence")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
	)
	sb.OrderBy("received_at DESC")

	query, args := sb.Build()
	var items []models.Evidence
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list evidence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list evidence")
	}

	return items, nil
}

// ListScorable returns the evidence the scorer considers: anything
// unprocessed plus items verified inside the recency window.
func (r *Repository) ListScorable(ctx context.Context, tenantID string, profileID string, verifiedSince time.Time) ([]models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.ListScorable")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(evidenceColumns...)
	sb.From("evidence")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
		sb.Or(
			sb.Equal("processed", false),
			sb.And(
				sb.Equal("verification", models.VerificationVerified),
				sb.GreaterEqualThan("verified_at", verifiedSince),
			),
		),
	)
	sb.OrderBy("received_at DESC")

	query, args := sb.Build()
	var items []models.Evidence
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list scorable evidence")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list evidence")
	}

	return items, nil
}

// CountUnprocessed counts a profile's unprocessed evidence, for snapshots
func (r *Repository) CountUnprocessed(ctx context.Context, tenantID string, profileID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.CountUnprocessed")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("evidence")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
		sb.Equal("processed", false),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count unprocessed evidence")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count evidence")
	}

	return count, nil
}

// SetVerification records the vetting outcome for an item
func (r *Repository) SetVerification(ctx context.Context, tenantID string, id string, verification models.VerificationStatus, verifiedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.SetVerification")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("evidence")
	ub.Set(
		ub.Assign("verification", verification),
		ub.Assign("verified_at", now),
		ub.Assign("verified_by", verifiedBy),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"evidence_id": id}).Error("Failed to set evidence verification")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set verification")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("evidence %s not found", id))
	}

	return nil
}

// MarkProcessed flags an item as consumed by a completed review. Processed
// items stop contributing to the score unless freshly re-verified.
func (r *Repository) MarkProcessed(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "evidence.Repository.MarkProcessed")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("evidence")
	ub.Set(
		ub.Assign("processed", true),
		ub.Assign("processed_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"evidence_id": id}).Error("Failed to mark evidence processed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark evidence processed")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("evidence %s not found", id))
	}

	return nil
}
