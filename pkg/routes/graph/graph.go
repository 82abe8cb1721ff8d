package graph

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	graphpkg "github.com/PresidentAnderson/locate-connect-sub007/pkg/graph"
)

var validate = validator.New()

// Register registers graph query routes
func Register(api *echo.Group) {
	api.POST("/graph/query", ExecuteQuery)
	api.GET("/graph/path", LinkPath)
	api.GET("/cold-cases/:id/cluster", Cluster)
}

// requireQueryService resolves the graph query service. 503 rather than 500
// because the graph store is an optional dependency.
func requireQueryService(c echo.Context) (*graphpkg.QueryService, error) {
	ctx := c.Request().Context()
	_, svc, err := ectoinject.GetContext[*graphpkg.QueryService](ctx)
	if err != nil || svc == nil {
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "graph query service unavailable")
	}
	return svc, nil
}

// QueryRequest is the request body for executing a Cypher query
type QueryRequest struct {
	Query  string         `json:"query" validate:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// ExecuteQuery runs a read-only Cypher query against the case-link graph.
// Queries are tenant-scoped: $tenant_id is always bound.
func ExecuteQuery(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	svc, err := requireQueryService(c)
	if err != nil {
		return err
	}

	result, err := svc.ExecuteQuery(ctx, tenantID, req.Query, req.Params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// LinkPath finds the shortest confirmed-link path between two cases
func LinkPath(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" || to == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "from and to are required")
	}

	maxHops := 6
	if raw := c.QueryParam("max_hops"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "max_hops must be a positive integer")
		}
		maxHops = parsed
	}

	svc, err := requireQueryService(c)
	if err != nil {
		return err
	}

	result, err := svc.LinkPath(ctx, tenantID, from, to, maxHops)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Cluster returns the full connected component around a case
func Cluster(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	svc, err := requireQueryService(c)
	if err != nil {
		return err
	}

	result, err := svc.Cluster(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
