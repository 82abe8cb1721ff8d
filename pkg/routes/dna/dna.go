package dna

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/dnasubmission"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var validate = validator.New()

// Register registers DNA submission routes
func Register(api *echo.Group) {
	api.GET("/cold-cases/:id/dna-submissions", ListByProfile)
	api.POST("/cold-cases/:id/dna-submissions", Create)
	api.PUT("/dna-submissions/:id/status", UpdateStatus)
}

// ListByProfile lists a profile's submissions, newest first
func ListByProfile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*dnasubmission.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	submissions, err := repo.ListByProfile(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.DNASubmissionListResponse{
		Items:      submissions,
		TotalCount: len(submissions),
	})
}

// Create registers a forensic sample against a profile
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateDNASubmissionRequest
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

	submission, err := service.CreateDNASubmission(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, submission)
}

// UpdateStatus advances a submission's lifecycle state
func UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.UpdateDNAStatusRequest
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

	submission, err := service.UpdateDNAStatus(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, submission)
}
