package checklist

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// ApplyTransition validates the requested status change against the item's
// lifecycle and, when valid, mutates the item in place. Terminal items never
// move again; completed needs a result summary; flagging action_required
// needs a description of the action.
func ApplyTransition(item *models.ChecklistItem, req models.UpdateChecklistItemStatusRequest, now time.Time) error {
	if item.Status.IsTerminal() {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("checklist item is already %s", item.Status))
	}

	switch req.Status {
	case models.ChecklistInProgress:
		if item.Status != models.ChecklistPending {
			return httperror.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("cannot move a %s item to in_progress", item.Status))
		}
	case models.ChecklistCompleted:
		if strings.TrimSpace(req.ResultSummary) == "" {
			return httperror.NewHTTPError(http.StatusUnprocessableEntity,
				"completing a checklist item requires a result_summary")
		}
	case models.ChecklistSkipped, models.ChecklistNotApplicable:
		// always reachable from a non-terminal state
	default:
		return httperror.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("invalid checklist status %q", req.Status))
	}

	if req.ActionRequired && strings.TrimSpace(req.ActionDescription) == "" {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity,
			"action_required needs an action_description")
	}

	if req.Status == models.ChecklistInProgress && item.StartedAt == nil {
		item.StartedAt = &now
	}

	item.Status = req.Status
	item.ActionRequired = req.ActionRequired
	if req.ResultSummary != "" {
		item.ResultSummary = &req.ResultSummary
	}
	if req.ActionDescription != "" {
		item.ActionDescription = &req.ActionDescription
	}
	if req.Status.IsTerminal() {
		item.CompletedAt = &now
		if req.CompletedBy != "" {
			item.CompletedBy = &req.CompletedBy
		}
	}
	item.UpdatedAt = now

	return nil
}
