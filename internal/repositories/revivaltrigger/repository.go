package revivaltrigger

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

var triggerColumns = []string{
	"id", "tenant_id", "profile_id", "trigger_type", "source_entity_id", "detail", "triggered_by", "created_at",
}

// Repository handles the append-only revival trigger log. Triggers are never
// updated or deleted.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new revival trigger repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends a trigger record
func (r *Repository) Create(ctx context.Context, trigger *models.RevivalTrigger) (*models.RevivalTrigger, error) {
	ctx, span := tracing.StartSpan(ctx, "revivaltrigger.Repository.Create")
	defer span.End()

	if trigger.ID == "" {
		trigger.ID = uuid.New().String()
	}
	trigger.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("revival_triggers")
	sb.Cols(triggerColumns...)
	sb.Values(
		trigger.ID, trigger.TenantID, trigger.ProfileID, trigger.TriggerType,
		trigger.SourceEntityID, trigger.Detail, trigger.TriggeredBy, trigger.CreatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": trigger.ProfileID, "trigger_type": trigger.TriggerType}).Error("Failed to append revival trigger")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record revival trigger")
	}

	return trigger, nil
}

// ListByProfile lists a profile's triggers, newest first
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string, limit int) ([]models.RevivalTrigger, error) {
	ctx, span := tracing.StartSpan(ctx, "revivaltrigger.Repository.ListByProfile")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(triggerColumns...)
	sb.From("revival_triggers")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var triggers []models.RevivalTrigger
	if err := r.db.SelectContext(ctx, &triggers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list revival triggers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list revival triggers")
	}

	return triggers, nil
}

// CountByType counts a profile's triggers grouped by type, for snapshots
func (r *Repository) CountByType(ctx context.Context, tenantID string, profileID string) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "revivaltrigger.Repository.CountByType")
	defer span.End()

	query := `
		SELECT trigger_type, COUNT(*) AS count
		FROM revival_triggers
		WHERE tenant_id = $1 AND profile_id = $2
		GROUP BY trigger_type
	`

	rows, err := r.db.QueryxContext(ctx, query, tenantID, profileID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count revival triggers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count revival triggers")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var triggerType string
		var count int
		if err := rows.Scan(&triggerType, &count); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count revival triggers")
		}
		counts[triggerType] = count
	}

	return counts, nil
}
