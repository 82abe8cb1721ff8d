package dnasubmission

import (
	"context"
	"fmt"
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

var submissionColumns = []string{
	"id", "tenant_id", "profile_id", "status", "lab_reference_id", "sample_type",
	"submitted_at", "result_at", "notes", "created_at", "updated_at",
}

// Repository handles DNA submission persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new DNA submission repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a submission
func (r *Repository) Create(ctx context.Context, submission *models.DNASubmission) (*models.DNASubmission, error) {
	ctx, span := tracing.StartSpan(ctx, "dnasubmission.Repository.Create")
	defer span.End()

	if submission.ID == "" {
		submission.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	if submission.Status == "" {
		submission.Status = models.DNANotSubmitted
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("dna_submissions")
	sb.Cols(submissionColumns...)
	sb.Values(
		submission.ID, submission.TenantID, submission.ProfileID, submission.Status,
		submission.LabReferenceID, submission.SampleType,
		submission.SubmittedAt, submission.ResultAt, submission.Notes,
		submission.CreatedAt, submission.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": submission.ProfileID}).Error("Failed to create DNA submission")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create DNA submission")
	}

	return submission, nil
}

// Get retrieves a submission by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.DNASubmission, error) {
	ctx, span := tracing.StartSpan(ctx, "dnasubmission.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(submissionColumns...)
	sb.From("dna_submissions")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var submission models.DNASubmission
	if err := r.db.GetContext(ctx, &submission, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("DNA submission %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get DNA submission")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get DNA submission")
	}

	return &submission, nil
}

// GetByLabReference retrieves a submission by the forensic lab's reference id.
// This is how lab result events find their submission.
func (r *Repository) GetByLabReference(ctx context.Context, tenantID string, labReferenceID string) (*models.DNASubmission, error) {
	ctx, span := tracing.StartSpan(ctx, "dnasubmission.Repository.GetByLabReference")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(submissionColumns...)
	sb.From("dna_submissions")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("lab_reference_id", labReferenceID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var submission models.DNASubmission
	if err := r.db.GetContext(ctx, &submission, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no DNA submission for lab reference %s", labReferenceID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get DNA submission by lab reference")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get DNA submission")
	}

	return &submission, nil
}

// ListByProfile lists a profile's submissions, newest first
func (r *Repository) ListByProfile(ctx context.Context, tenantID string, profileID string) ([]models.DNASubmission, error) {
	ctx, span := tracing.StartSpan(ctx, "dnasubmission.Repository.ListByProfile")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(submissionColumns...)
	sb.From("dna_submissions")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("profile_id", profileID),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var submissions []models.DNASubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list DNA submissions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list DNA submissions")
	}

	return submissions, nil
}

// UpdateStatus advances a submission's lifecycle state. Transition legality
// is checked by the caller against the current row.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID string, id string, status models.DNAStatus, notes *string) error {
	ctx, span := tracing.StartSpan(ctx, "dnasubmission.Repository.UpdateStatus")
	defer span.End()

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("dna_submissions")
	assigns := []string{
		ub.Assign("status", status),
		ub.Assign("updated_at", now),
	}
	switch status {
	case models.DNASubmitted, models.DNAResubmitted:
		assigns = append(assigns, ub.Assign("submitted_at", now))
	case models.DNAMatchFound, models.DNANoMatch:
		assigns = append(assigns, ub.Assign("result_at", now))
	}
	if notes != nil {
		assigns = append(assigns, ub.Assign("notes", notes))
	}
	ub.Set(assigns...)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"submission_id": id}).Error("Failed to update DNA submission status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update DNA submission")
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("DNA submission %s not found", id))
	}

	return nil
}
