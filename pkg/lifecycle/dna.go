package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// CreateDNASubmission registers a forensic sample against a profile. A
// submission created with a lab reference starts in the submitted state;
// without one it waits in pending_submission until the lab reference arrives
// through UpdateDNAStatus.
func (s *Service) CreateDNASubmission(ctx context.Context, tenantID string, profileID string, req models.CreateDNASubmissionRequest) (*models.DNASubmission, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.CreateDNASubmission")
	defer span.End()

	profile, err := s.profiles.Get(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}

	submission := &models.DNASubmission{
		TenantID:       tenantID,
		ProfileID:      profile.ID,
		Status:         models.DNAPendingSubmission,
		LabReferenceID: optional(req.LabReferenceID),
		SampleType:     optional(req.SampleType),
		Notes:          optional(req.Notes),
	}
	if req.LabReferenceID != "" {
		now := time.Now().UTC()
		submission.Status = models.DNASubmitted
		submission.SubmittedAt = &now
	}

	err = s.withProfileLock(ctx, tenantID, profile.ID, func(ctx context.Context) error {
		created, err := s.dna.Create(ctx, submission)
		if err != nil {
			return err
		}
		submission = created

		if err := s.profiles.SetDNAStatus(ctx, tenantID, profile.ID, submission.Status); err != nil {
			return err
		}

		s.enqueueRecompute(ctx, tenantID, profile.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return submission, nil
}

// UpdateDNAStatus advances a submission along its lifecycle. Illegal
// transitions are rejected rather than dropped: unlike lab results arriving
// on the intake stream, a manual update has a caller to answer to.
func (s *Service) UpdateDNAStatus(ctx context.Context, tenantID string, submissionID string, req models.UpdateDNAStatusRequest) (*models.DNASubmission, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.UpdateDNAStatus")
	defer span.End()

	submission, err := s.dna.Get(ctx, tenantID, submissionID)
	if err != nil {
		return nil, err
	}

	if !submission.Status.CanTransitionTo(req.Status) {
		return nil, httperror.NewHTTPError(http.StatusConflict,
			fmt.Sprintf("submission cannot move from %s to %s", submission.Status, req.Status))
	}

	err = s.withProfileLock(ctx, tenantID, submission.ProfileID, func(ctx context.Context) error {
		if err := s.dna.UpdateStatus(ctx, tenantID, submission.ID, req.Status, optional(req.Notes)); err != nil {
			return err
		}
		if err := s.profiles.SetDNAStatus(ctx, tenantID, submission.ProfileID, req.Status); err != nil {
			return err
		}

		if req.Status == models.DNAMatchFound {
			profile, err := s.profiles.Get(ctx, tenantID, submission.ProfileID)
			if err != nil {
				return err
			}
			if profile.ClassificationState == models.ClassificationCold {
				s.recordTrigger(ctx, profile, models.TriggerDNAMatch, &submission.ID, map[string]any{
					"source": "manual",
				}, "api")
				s.openOutOfBandReview(ctx, profile, models.ReviewTypeSpecial, time.Now().UTC())
			}
		}

		s.enqueueRecompute(ctx, tenantID, submission.ProfileID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.dna.Get(ctx, tenantID, submissionID)
}
