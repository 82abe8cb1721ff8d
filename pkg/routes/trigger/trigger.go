package trigger

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/revivaltrigger"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/context"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// Register registers revival trigger routes
func Register(api *echo.Group) {
	api.GET("/cold-cases/:id/revival-triggers", ListByProfile)
}

// ListByProfile lists a profile's revival triggers, newest first.
// limit caps the page and defaults to 100.
func ListByProfile(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*revivaltrigger.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	triggers, err := repo.ListByProfile(ctx, tenantID, c.Param("id"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.RevivalTriggerListResponse{
		Items:      triggers,
		TotalCount: len(triggers),
	})
}
