package checklistitem

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

var itemColumns = []string{
	"id", "tenant_id", "review_id", "category", "title", "display_order", "status",
	"result_summary", "action_required", "action_description",
	"started_at", "completed_at", "completed_by", "created_at", "updated_at",
}

// Repository handles checklist item persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new checklist item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch instantiates a review's checklist in one insert
func (r *Repository) CreateBatch(ctx context.Context, items []*models.ChecklistItem) error {
	ctx, span := tracing.StartSpan(ctx, "checklistitem.Repository.CreateBatch")
	defer span.End()

	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("checklist_items")
	sb.Cols(itemColumns...)

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		if item.Status == "" {
			item.Status = models.ChecklistPending
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		sb.Values(
			item.ID, item.TenantID, item.ReviewID, item.Category, item.Title, item.DisplayOrder, item.Status,
			item.ResultSummary, item.ActionRequired, item.ActionDescription,
			item.StartedAt, item.CompletedAt, item.CompletedBy, item.CreatedAt, item.UpdatedAt,
		)
	}

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"review_id": items[0].ReviewID, "count": len(items)}).Error("Failed to create checklist items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create checklist items")
	}

	return nil
}

// Get retrieves a checklist item by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ChecklistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "checklistitem.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("checklist_items")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var item models.ChecklistItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("checklist item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get checklist item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get checklist item")
	}

	return &item, nil
}

// ListByReview lists a review's checklist in display order
func (r *Repository) ListByReview(ctx context.Context, tenantID string, reviewID string) ([]models.ChecklistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "checklistitem.Repository.ListByReview")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("checklist_items")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("review_id", reviewID),
	)
	sb.OrderBy("category ASC", "display_order ASC")

	query, args := sb.Build()
	var items []models.ChecklistItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list checklist items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list checklist items")
	}

	return items, nil
}

// CountOpen counts a review's non-terminal items. Zero means the review may
// complete.
func (r *Repository) CountOpen(ctx context.Context, tenantID string, reviewID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "checklistitem.Repository.CountOpen")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("checklist_items")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("review_id", reviewID),
		sb.In("status", models.ChecklistPending, models.ChecklistInProgress),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count open checklist items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count checklist items")
	}

	return count, nil
}

// Update writes an item's advanced state back
func (r *Repository) Update(ctx context.Context, item *models.ChecklistItem) error {
	ctx, span := tracing.StartSpan(ctx, "checklistitem.Repository.Update")
	defer span.End()

	item.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("checklist_items")
	ub.Set(
		ub.Assign("status", item.Status),
		ub.Assign("result_summary", item.ResultSummary),
		ub.Assign("action_required", item.ActionRequired),
		ub.Assign("action_description", item.ActionDescription),
		ub.Assign("started_at", item.StartedAt),
		ub.Assign("completed_at", item.CompletedAt),
		ub.Assign("completed_by", item.CompletedBy),
		ub.Assign("updated_at", item.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", item.ID),
		ub.Equal("tenant_id", item.TenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": item.ID}).Error("Failed to update checklist item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update checklist item")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("checklist item %s not found", item.ID))
	}

	return nil
}
