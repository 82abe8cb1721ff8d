package campaign

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	campaignrepo "github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/campaign"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/campaigns"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var validate = validator.New()

// Register registers campaign routes
func Register(api *echo.Group) {
	api.GET("/cold-cases/:id/campaigns", ListByProfile)
	api.POST("/cold-cases/:id/campaigns", Create)
	api.GET("/campaigns/:id", Get)
	api.POST("/campaigns/:id/schedule", Schedule)
	api.POST("/campaigns/:id/activate", Activate)
	api.POST("/campaigns/:id/complete", Complete)
	api.POST("/campaigns/:id/cancel", Cancel)
}

// ListByProfile lists campaigns for one profile
func ListByProfile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*campaignrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.ListByProfile(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.CampaignListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}

// Get returns one campaign
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*campaignrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// Create drafts a campaign for a cold profile
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*campaigns.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := manager.Create(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// Schedule sets a start date on a draft campaign
func Schedule(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.ScheduleCampaignRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*campaigns.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	scheduled, err := manager.Schedule(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, scheduled)
}

// Activate activates a campaign and emits the dispatch payload
func Activate(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, manager, err := ectoinject.GetContext[*campaigns.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	activated, err := manager.Activate(ctx, tenantID, c.Param("id"), time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, activated)
}

// Complete records actuals and closes a campaign
func Complete(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CompleteCampaignRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*campaigns.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	completed, err := manager.Complete(ctx, tenantID, c.Param("id"), req, time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, completed)
}

// Cancel cancels a draft, scheduled or active campaign
func Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, manager, err := ectoinject.GetContext[*campaigns.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	cancelled, err := manager.Cancel(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, cancelled)
}
