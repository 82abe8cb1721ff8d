package checklisttemplate

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

var templateColumns = []string{
	"id", "tenant_id", "name", "description", "is_default", "is_active",
	"conditions", "items", "created_at", "updated_at",
}

// Repository handles checklist template persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new checklist template repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a checklist template
func (r *Repository) Create(ctx context.Context, template *models.ChecklistTemplate) (*models.ChecklistTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "checklisttemplate.Repository.Create")
	defer span.End()

	if template.ID == "" {
		template.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("checklist_templates")
	sb.Cols(templateColumns...)
	sb.Values(
		template.ID, template.TenantID, template.Name, template.Description, template.IsDefault, template.IsActive,
		template.Conditions, template.Items, template.CreatedAt, template.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": template.Name}).Error("Failed to create checklist template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create checklist template")
	}

	return template, nil
}

// Get retrieves a checklist template by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ChecklistTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "checklisttemplate.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(templateColumns...)
	sb.From("checklist_templates")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var template models.ChecklistTemplate
	if err := r.db.GetContext(ctx, &template, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("checklist template %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get checklist template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get checklist template")
	}

	return &template, nil
}

// ListActive lists the active templates the checklist engine evaluates
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]models.ChecklistTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "checklisttemplate.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(templateColumns...)
	sb.From("checklist_templates")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_active", true),
	)
	sb.OrderBy("is_default DESC", "name ASC")

	query, args := sb.Build()
	var templates []models.ChecklistTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list checklist templates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list checklist templates")
	}

	return templates, nil
}

// List lists all of a tenant's templates
func (r *Repository) List(ctx context.Context, tenantID string) ([]models.ChecklistTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "checklisttemplate.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(templateColumns...)
	sb.From("checklist_templates")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("is_default DESC", "name ASC")

	query, args := sb.Build()
	var templates []models.ChecklistTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list checklist templates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list checklist templates")
	}

	return templates, nil
}

// Update writes a modified template back
func (r *Repository) Update(ctx context.Context, template *models.ChecklistTemplate) (*models.ChecklistTemplate, error) {
	ctx, span := tracing.StartSpan(ctx, "checklisttemplate.Repository.Update")
	defer span.End()

	template.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("checklist_templates")
	ub.Set(
		ub.Assign("name", template.Name),
		ub.Assign("description", template.Description),
		ub.Assign("is_default", template.IsDefault),
		ub.Assign("is_active", template.IsActive),
		ub.Assign("conditions", template.Conditions),
		ub.Assign("items", template.Items),
		ub.Assign("updated_at", template.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", template.ID),
		ub.Equal("tenant_id", template.TenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"template_id": template.ID}).Error("Failed to update checklist template")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update checklist template")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("checklist template %s not found", template.ID))
	}

	return template, nil
}

// Delete deactivates a template. Instantiated checklists keep their copied
// items, so nothing cascades.
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "checklisttemplate.Repository.Delete")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("checklist_templates")
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
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"template_id": id}).Error("Failed to deactivate checklist template")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to deactivate checklist template")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("checklist template %s not found", id))
	}

	return nil
}
