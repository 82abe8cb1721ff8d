package caseprofile

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

var profileColumns = []string{
	"id", "tenant_id", "case_id",
	"classification_state", "classification_reason", "classified_at", "became_cold_at",
	"no_lead_threshold_met", "no_tip_threshold_met", "no_activity_threshold_met",
	"manually_marked_cold", "resource_constrained",
	"review_frequency", "last_review_date", "next_review_date",
	"total_reviews", "completed_reviews", "assigned_reviewer_id",
	"dna_status", "anniversary_date", "case_facts", "pattern_cluster_ids",
	"revival_priority_score", "revival_priority_factors", "score_computed_at",
	"family_contact_state", "family_last_contact_at",
	"last_lead_at", "last_tip_at", "last_activity_at",
	"version", "created_at", "updated_at",
}

// ListColdFilter narrows the ranked cold-case listing
type ListColdFilter struct {
	MinScore *float64
	Reason   *models.ClassificationReason
	Limit    int
	Offset   int
}

// Repository handles case profile persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new case profile repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying handle so callers can run repository methods
// inside a shared transaction.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create creates a new case profile. One active profile per case is enforced
// by the unique (tenant_id, case_id) index.
func (r *Repository) Create(ctx context.Context, profile *models.CaseProfile) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.Create")
	defer span.End()

	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	profile.Version = 1
	if profile.ClassificationState == "" {
		profile.ClassificationState = models.ClassificationActive
	}
	if profile.DNAStatus == "" {
		profile.DNAStatus = models.DNANotSubmitted
	}
	if profile.FamilyContactState == "" {
		profile.FamilyContactState = models.FamilyContactCurrent
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("case_profiles")
	sb.Cols(profileColumns...)
	sb.Values(
		profile.ID, profile.TenantID, profile.CaseID,
		profile.ClassificationState, profile.ClassificationReason, profile.ClassifiedAt, profile.BecameColdAt,
		profile.NoLeadThresholdMet, profile.NoTipThresholdMet, profile.NoActivityThresholdMet,
		profile.ManuallyMarkedCold, profile.ResourceConstrained,
		profile.ReviewFrequency, profile.LastReviewDate, profile.NextReviewDate,
		profile.TotalReviews, profile.CompletedReviews, profile.AssignedReviewerID,
		profile.DNAStatus, profile.AnniversaryDate, profile.Facts, profile.PatternClusterIDs,
		profile.RevivalPriorityScore, profile.RevivalPriorityFactors, profile.ScoreComputedAt,
		profile.FamilyContactState, profile.FamilyLastContactAt,
		profile.LastLeadAt, profile.LastTipAt, profile.LastActivityAt,
		profile.Version, profile.CreatedAt, profile.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("case %s already has a profile", profile.CaseID))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"case_id": profile.CaseID}).Error("Failed to create case profile")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create case profile")
	}

	return profile, nil
}

// Get retrieves a case profile by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var profile models.CaseProfile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("case profile %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get case profile")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get case profile")
	}

	return &profile, nil
}

// GetByCaseID retrieves the profile tracking a platform case
func (r *Repository) GetByCaseID(ctx context.Context, tenantID string, caseID string) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.GetByCaseID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	sb.Where(
		sb.Equal("case_id", caseID),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var profile models.CaseProfile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no profile for case %s", caseID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get case profile by case id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get case profile")
	}

	return &profile, nil
}

// ListCold lists cold profiles ranked by revival priority score
func (r *Repository) ListCold(ctx context.Context, tenantID string, filter ListColdFilter) ([]models.CaseProfile, int, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.ListCold")
	defer span.End()

	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where := func(sb *sqlbuilder.SelectBuilder) []string {
		conds := []string{
			sb.Equal("tenant_id", tenantID),
			sb.Equal("classification_state", models.ClassificationCold),
		}
		if filter.MinScore != nil {
			conds = append(conds, sb.GreaterEqualThan("revival_priority_score", *filter.MinScore))
		}
		if filter.Reason != nil {
			conds = append(conds, sb.Equal("classification_reason", *filter.Reason))
		}
		return conds
	}

	countSB := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSB.Select("COUNT(*)")
	countSB.From("case_profiles")
	countSB.Where(where(countSB)...)

	countQuery, countArgs := countSB.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count cold case profiles")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cold cases")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	sb.Where(where(sb)...)
	sb.OrderBy("revival_priority_score DESC", "became_cold_at ASC")
	sb.Limit(filter.Limit)
	sb.Offset(filter.Offset)

	query, args := sb.Build()
	var profiles []models.CaseProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list cold case profiles")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cold cases")
	}

	return profiles, total, nil
}

// ListForClassification pages through profiles for the batch classification
// sweep, keyed past the last seen id for stable iteration.
func (r *Repository) ListForClassification(ctx context.Context, tenantID string, afterID string, limit int) ([]models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.ListForClassification")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	conds := []string{sb.Equal("tenant_id", tenantID)}
	if afterID != "" {
		conds = append(conds, sb.GreaterThan("id", afterID))
	}
	sb.Where(conds...)
	sb.OrderBy("id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var profiles []models.CaseProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list profiles for classification pass")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list profiles")
	}

	return profiles, nil
}

// ListTenants returns every tenant that has at least one registered profile
func (r *Repository) ListTenants(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.ListTenants")
	defer span.End()

	var tenants []string
	if err := r.db.SelectContext(ctx, &tenants, "SELECT DISTINCT tenant_id FROM case_profiles ORDER BY tenant_id"); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list tenants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list tenants")
	}

	return tenants, nil
}

// ListDueForReview returns cold profiles whose next review date has arrived
func (r *Repository) ListDueForReview(ctx context.Context, tenantID string, now time.Time, limit int) ([]models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.ListDueForReview")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("classification_state", models.ClassificationCold),
		sb.IsNotNull("next_review_date"),
		sb.LessEqualThan("next_review_date", now),
	)
	sb.OrderBy("next_review_date ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var profiles []models.CaseProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list profiles due for review")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list due profiles")
	}

	return profiles, nil
}

// ListColdForScan returns the cold corpus slice the pattern matcher scans
// against, keyed past the last seen id.
func (r *Repository) ListColdForScan(ctx context.Context, tenantID string, afterID string, limit int) ([]models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.ListColdForScan")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	conds := []string{
		sb.Equal("tenant_id", tenantID),
		sb.Equal("classification_state", models.ClassificationCold),
	}
	if afterID != "" {
		conds = append(conds, sb.GreaterThan("id", afterID))
	}
	sb.Where(conds...)
	sb.OrderBy("id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var profiles []models.CaseProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list cold corpus page")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list cold corpus")
	}

	return profiles, nil
}

// ListColdWithAnniversary pages cold profiles that have an anniversary date,
// keyed past the last seen id. Window filtering happens in the caller since
// anniversaries recur yearly.
func (r *Repository) ListColdWithAnniversary(ctx context.Context, tenantID string, afterID string, limit int) ([]models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.ListColdWithAnniversary")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(profileColumns...)
	sb.From("case_profiles")
	conds := []string{
		sb.Equal("tenant_id", tenantID),
		sb.Equal("classification_state", models.ClassificationCold),
		sb.IsNotNull("anniversary_date"),
	}
	if afterID != "" {
		conds = append(conds, sb.GreaterThan("id", afterID))
	}
	sb.Where(conds...)
	sb.OrderBy("id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var profiles []models.CaseProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list anniversary profiles")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list anniversary profiles")
	}

	return profiles, nil
}

// Update writes the full profile row guarded by the optimistic version check.
// Returns 409 when a concurrent writer got there first.
func (r *Repository) Update(ctx context.Context, profile *models.CaseProfile) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.Update")
	defer span.End()

	expectedVersion := profile.Version
	profile.Version++
	profile.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_profiles")
	ub.Set(
		ub.Assign("classification_state", profile.ClassificationState),
		ub.Assign("classification_reason", profile.ClassificationReason),
		ub.Assign("classified_at", profile.ClassifiedAt),
		ub.Assign("became_cold_at", profile.BecameColdAt),
		ub.Assign("no_lead_threshold_met", profile.NoLeadThresholdMet),
		ub.Assign("no_tip_threshold_met", profile.NoTipThresholdMet),
		ub.Assign("no_activity_threshold_met", profile.NoActivityThresholdMet),
		ub.Assign("manually_marked_cold", profile.ManuallyMarkedCold),
		ub.Assign("resource_constrained", profile.ResourceConstrained),
		ub.Assign("review_frequency", profile.ReviewFrequency),
		ub.Assign("last_review_date", profile.LastReviewDate),
		ub.Assign("next_review_date", profile.NextReviewDate),
		ub.Assign("total_reviews", profile.TotalReviews),
		ub.Assign("completed_reviews", profile.CompletedReviews),
		ub.Assign("assigned_reviewer_id", profile.AssignedReviewerID),
		ub.Assign("dna_status", profile.DNAStatus),
		ub.Assign("anniversary_date", profile.AnniversaryDate),
		ub.Assign("case_facts", profile.Facts),
		ub.Assign("pattern_cluster_ids", profile.PatternClusterIDs),
		ub.Assign("revival_priority_score", profile.RevivalPriorityScore),
		ub.Assign("revival_priority_factors", profile.RevivalPriorityFactors),
		ub.Assign("score_computed_at", profile.ScoreComputedAt),
		ub.Assign("family_contact_state", profile.FamilyContactState),
		ub.Assign("family_last_contact_at", profile.FamilyLastContactAt),
		ub.Assign("last_lead_at", profile.LastLeadAt),
		ub.Assign("last_tip_at", profile.LastTipAt),
		ub.Assign("last_activity_at", profile.LastActivityAt),
		ub.Assign("version", profile.Version),
		ub.Assign("updated_at", profile.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", profile.ID),
		ub.Equal("tenant_id", profile.TenantID),
		ub.Equal("version", expectedVersion),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).Error("Failed to update case profile")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update case profile")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update case profile")
	}
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("case profile %s was modified concurrently", profile.ID))
	}

	return profile, nil
}

// RecordActivity refreshes the activity mirror for a profile. Nil timestamps
// are left untouched; activity only ever moves forward.
func (r *Repository) RecordActivity(ctx context.Context, tenantID string, profileID string, leadAt, tipAt, activityAt *time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.RecordActivity")
	defer span.End()

	query := `
		UPDATE case_profiles SET
			last_lead_at = GREATEST(COALESCE(last_lead_at, 'epoch'::timestamptz), COALESCE($3, last_lead_at, 'epoch'::timestamptz)),
			last_tip_at = GREATEST(COALESCE(last_tip_at, 'epoch'::timestamptz), COALESCE($4, last_tip_at, 'epoch'::timestamptz)),
			last_activity_at = GREATEST(COALESCE(last_activity_at, 'epoch'::timestamptz), COALESCE($5, last_activity_at, 'epoch'::timestamptz)),
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, profileID, tenantID, leadAt, tipAt, activityAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to record case activity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record activity")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("case profile %s not found", profileID))
	}

	return nil
}

// SetScore persists a recomputed revival priority score with its factors
func (r *Repository) SetScore(ctx context.Context, tenantID string, profileID string, score float64, factors []models.ScoreFactor, computedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.SetScore")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_profiles")
	ub.Set(
		ub.Assign("revival_priority_score", score),
		ub.Assign("revival_priority_factors", database.JSONB[[]models.ScoreFactor]{Data: factors}),
		ub.Assign("score_computed_at", computedAt),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", profileID),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to persist revival priority score")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to persist score")
	}

	return nil
}

// SetDNAStatus mirrors the latest DNA submission status onto the profile
func (r *Repository) SetDNAStatus(ctx context.Context, tenantID string, profileID string, status models.DNAStatus) error {
	ctx, span := tracing.StartSpan(ctx, "caseprofile.Repository.SetDNAStatus")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("case_profiles")
	ub.Set(
		ub.Assign("dna_status", status),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", profileID),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).Error("Failed to set DNA status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to set DNA status")
	}

	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
