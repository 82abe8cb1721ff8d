package checklist

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklistitem"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var validate = validator.New()

// Register registers checklist routes
func Register(api *echo.Group) {
	api.GET("/reviews/:id/checklist", GetChecklist)
	api.PUT("/checklist-items/:id/status", UpdateItemStatus)
}

// GetChecklist returns the checklist for a review
func GetChecklist(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	reviewID := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*checklistitem.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.ListByReview(ctx, tenantID, reviewID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ChecklistResponse{
		ReviewID: reviewID,
		Items:    items,
	})
}

// UpdateItemStatus advances one checklist item through its lifecycle
func UpdateItemStatus(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.UpdateChecklistItemStatusRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*lifecycle.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	item, err := service.UpdateChecklistItem(ctx, tenantID, c.Param("id"), req, time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}
