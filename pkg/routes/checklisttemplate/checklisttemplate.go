package checklisttemplate

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklisttemplate"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var validate = validator.New()

// Register registers checklist template routes
func Register(api *echo.Group) {
	api.GET("/checklist-templates", List)
	api.POST("/checklist-templates", Create)
	api.GET("/checklist-templates/:id", Get)
	api.PUT("/checklist-templates/:id", Update)
	api.DELETE("/checklist-templates/:id", Delete)
}

// List lists checklist templates. active=true narrows to active templates.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*checklisttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var templates []models.ChecklistTemplate
	if c.QueryParam("active") == "true" {
		templates, err = repo.ListActive(ctx, tenantID)
	} else {
		templates, err = repo.List(ctx, tenantID)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, templates)
}

// Get returns one template
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*checklisttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	template, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, template)
}

// Create creates a checklist template
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateChecklistTemplateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*checklisttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	template := &models.ChecklistTemplate{
		TenantID:   tenantID,
		Name:       req.Name,
		IsDefault:  req.IsDefault,
		IsActive:   true,
		Conditions: database.JSONB[[]models.TemplateCondition]{Data: req.Conditions},
		Items:      database.JSONB[[]models.TemplateItem]{Data: req.Items},
	}
	if req.Description != "" {
		template.Description = &req.Description
	}

	created, err := repo.Create(ctx, template)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// Update updates a checklist template
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.UpdateChecklistTemplateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*checklisttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	template, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = req.Description
	}
	if req.IsDefault != nil {
		template.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.Conditions != nil {
		template.Conditions = database.JSONB[[]models.TemplateCondition]{Data: req.Conditions}
	}
	if req.Items != nil {
		template.Items = database.JSONB[[]models.TemplateItem]{Data: req.Items}
	}

	updated, err := repo.Update(ctx, template)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Delete deactivates a template. Existing checklists keep their copied items.
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*checklisttemplate.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
