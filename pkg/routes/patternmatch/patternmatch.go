package patternmatch

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	caseprofilerepo "github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/patternmatch"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/patterns"
)

var validate = validator.New()

// Register registers pattern match routes
func Register(api *echo.Group) {
	api.GET("/cold-cases/:id/pattern-matches", ListByProfile)
	api.POST("/cold-cases/:id/pattern-scan", Scan)
	api.PUT("/pattern-matches/:id/review", Review)
}

// ListByProfile lists pattern matches where this profile is the source.
// status filters by review disposition.
func ListByProfile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*patternmatch.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := repo.ListByProfile(ctx, tenantID, c.Param("id"), c.QueryParam("status"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.PatternMatchListResponse{
		Items:      matches,
		TotalCount: len(matches),
	})
}

// Scan runs an on-demand corpus scan for one profile
func Scan(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, profiles, err := ectoinject.GetContext[*caseprofilerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	profile, err := profiles.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[*patterns.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := matcher.ScanProfile(ctx, profile)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Review records the human disposition of a match candidate
func Review(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.ReviewPatternMatchRequest
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

	match, err := service.ReviewPatternMatch(ctx, tenantID, c.Param("id"), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, match)
}
