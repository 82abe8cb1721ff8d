package caseprofile

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	caseprofilerepo "github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/graph"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var validate = validator.New()

// Register registers cold-case profile routes
func Register(api *echo.Group) {
	api.GET("/cold-cases", List)
	api.POST("/cold-cases", Create)
	api.GET("/cold-cases/:id", Get)
	api.POST("/cold-cases/:id/evaluate", Evaluate)
	api.POST("/cold-cases/:id/mark-cold", MarkCold)
	api.POST("/cold-cases/:id/approve-revival", ApproveRevival)
	api.GET("/cold-cases/:id/statistics", GetStatistics)
	api.POST("/cold-cases/:id/statistics/refresh", RefreshStatistics)
	api.GET("/cold-cases/:id/related", GetRelated)
}

// List returns cold cases ranked by revival priority score
func List(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	filter := caseprofilerepo.ListColdFilter{}

	if v := c.QueryParam("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "min_score must be a number")
		}
		filter.MinScore = &score
	}
	if v := c.QueryParam("reason"); v != "" {
		reason := models.ClassificationReason(v)
		filter.Reason = &reason
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		filter.Limit = limit
	}
	if v := c.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "offset must be an integer")
		}
		filter.Offset = offset
	}

	ctx, repo, err := ectoinject.GetContext[*caseprofilerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	profiles, total, err := repo.ListCold(ctx, tenantID, filter)
	if err != nil {
		return err
	}

	pageSize := filter.Limit
	if pageSize <= 0 {
		pageSize = len(profiles)
	}
	page := 1
	if pageSize > 0 {
		page = filter.Offset/pageSize + 1
	}

	return c.JSON(http.StatusOK, models.CaseProfileListResponse{
		Items:      profiles,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create registers a case with the cold-case subsystem
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateCaseProfileRequest
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

	profile, err := service.CreateProfile(ctx, tenantID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, profile)
}

// Get returns one profile
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*caseprofilerepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	profile, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// Evaluate forces a classification evaluation against latest state
func Evaluate(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, service, err := ectoinject.GetContext[*lifecycle.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	profile, err := service.Evaluate(ctx, tenantID, c.Param("id"), time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// MarkCold marks a case cold by human decision
func MarkCold(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.MarkColdRequest
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

	profile, err := service.MarkCold(ctx, tenantID, c.Param("id"), req, time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// ApproveRevival returns a cold case to active by human approval
func ApproveRevival(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.ApproveRevivalRequest
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

	profile, err := service.ApproveRevival(ctx, tenantID, c.Param("id"), req, time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profile)
}

// GetStatistics returns the latest statistics snapshot, computing one when
// none exists yet
func GetStatistics(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, service, err := ectoinject.GetContext[*lifecycle.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	snapshot, err := service.LatestSnapshot(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, snapshot)
}

// RefreshStatistics recomputes the statistics snapshot on demand
func RefreshStatistics(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, service, err := ectoinject.GetContext[*lifecycle.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	snapshot, err := service.ComputeSnapshot(ctx, tenantID, c.Param("id"), time.Now().UTC())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, snapshot)
}

// GetRelated returns cases linked to this one, read from the graph projection
func GetRelated(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	hops := 1
	if v := c.QueryParam("hops"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "hops must be an integer")
		}
		hops = parsed
	}

	ctx, queries, err := ectoinject.GetContext[*graph.QueryService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "graph service unavailable")
	}

	result, err := queries.RelatedCases(ctx, tenantID, c.Param("id"), hops)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
