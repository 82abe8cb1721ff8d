package reviewer

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	reviewerrepo "github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/reviewer"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var validate = validator.New()

// Register registers reviewer registry routes
func Register(api *echo.Group) {
	api.GET("/reviewers", List)
	api.POST("/reviewers", Create)
	api.GET("/reviewers/:id", Get)
	api.PUT("/reviewers/:id", Update)
	api.DELETE("/reviewers/:id", Deactivate)
}

// List lists reviewers. active=true narrows to the current rotation.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*reviewerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var reviewers []models.Reviewer
	if c.QueryParam("active") == "true" {
		reviewers, err = repo.ListActive(ctx, tenantID)
	} else {
		reviewers, err = repo.List(ctx, tenantID)
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ReviewerListResponse{
		Items:      reviewers,
		TotalCount: len(reviewers),
	})
}

// Get returns one reviewer
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*reviewerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// Create registers a reviewer
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateReviewerRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*reviewerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, &models.Reviewer{
		TenantID:              tenantID,
		Name:                  req.Name,
		Email:                 req.Email,
		IsActive:              true,
		MaxConcurrentReviews:  req.MaxConcurrentReviews,
		Specializations:       req.Specializations,
		ExcludedJurisdictions: req.ExcludedJurisdictions,
		NextAvailableDate:     req.NextAvailableDate,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// Update updates a reviewer registry entry
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.UpdateReviewerRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*reviewerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	if req.Name != nil {
		found.Name = *req.Name
	}
	if req.Email != nil {
		found.Email = *req.Email
	}
	if req.IsActive != nil {
		found.IsActive = *req.IsActive
	}
	if req.MaxConcurrentReviews != nil {
		found.MaxConcurrentReviews = *req.MaxConcurrentReviews
	}
	if req.Specializations != nil {
		found.Specializations = req.Specializations
	}
	if req.ExcludedJurisdictions != nil {
		found.ExcludedJurisdictions = req.ExcludedJurisdictions
	}
	if req.NextAvailableDate != nil {
		found.NextAvailableDate = req.NextAvailableDate
	}

	updated, err := repo.Update(ctx, found)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Deactivate removes a reviewer from the rotation, keeping history
func Deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*reviewerrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Deactivate(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
