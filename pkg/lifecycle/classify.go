package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/classification"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Evaluate runs the classification engine for a profile and applies its
// decision. Idempotent: unchanged inputs persist refreshed criteria flags
// and nothing else.
func (s *Service) Evaluate(ctx context.Context, tenantID string, profileID string, now time.Time) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Evaluate")
	defer span.End()

	var result *models.CaseProfile
	err := s.withProfileLock(ctx, tenantID, profileID, func(ctx context.Context) error {
		profile, err := s.profiles.Get(ctx, tenantID, profileID)
		if err != nil {
			return err
		}
		result, err = s.evaluateLocked(ctx, profile, now)
		return err
	})
	return result, err
}

// evaluateLocked applies the engine decision to an already-locked profile
func (s *Service) evaluateLocked(ctx context.Context, profile *models.CaseProfile, now time.Time) (*models.CaseProfile, error) {
	facts := profile.Facts.GetValue()

	decision := s.classifier.Evaluate(classification.Input{
		State:               profile.ClassificationState,
		LastLeadAt:          profile.LastLeadAt,
		LastTipAt:           profile.LastTipAt,
		LastActivityAt:      profile.LastActivityAt,
		ManuallyMarkedCold:  profile.ManuallyMarkedCold,
		ResourceConstrained: profile.ResourceConstrained,
		IsMinor:             facts.IsMinor,
		HighVulnerability:   facts.HighVulnerability,
	}, now)

	profile.NoLeadThresholdMet = decision.Criteria.NoLeadThresholdMet
	profile.NoTipThresholdMet = decision.Criteria.NoTipThresholdMet
	profile.NoActivityThresholdMet = decision.Criteria.NoActivityThresholdMet

	switch decision.Action {
	case classification.ActionMarkCold:
		reason := decision.Reason
		profile.ClassificationState = models.ClassificationCold
		profile.ClassificationReason = &reason
		profile.ClassifiedAt = &now
		profile.BecameColdAt = &now
		freq := decision.ReviewFrequency
		profile.ReviewFrequency = &freq
		next := now.AddDate(0, freq.Months(), 0)
		profile.NextReviewDate = &next

	case classification.ActionReactivate:
		profile.ClassificationState = models.ClassificationActive
		profile.ClassificationReason = nil
		profile.ClassifiedAt = &now
		// Scheduling pauses; cold history stays on the row
		profile.NextReviewDate = nil
	}

	updated, err := s.profiles.Update(ctx, profile)
	if err != nil {
		return nil, err
	}

	if decision.Action != classification.ActionNone {
		s.log.WithContext(ctx).WithFields(map[string]any{
			"profile_id": updated.ID,
			"action":     decision.Action,
			"state":      updated.ClassificationState,
		}).Info("Classification changed")
		if s.emitter != nil {
			s.emitter.EmitCaseClassified(ctx, updated, criteriaNames(decision.Criteria))
		}
		s.projectProfile(ctx, updated)
	}

	return updated, nil
}

// MarkCold applies a manual or resource-constraint cold marking
func (s *Service) MarkCold(ctx context.Context, tenantID string, profileID string, req models.MarkColdRequest, now time.Time) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.MarkCold")
	defer span.End()

	if req.Reason != models.ReasonManual && req.Reason != models.ReasonResourceConstraint {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("reason %q cannot be set manually", req.Reason))
	}

	var result *models.CaseProfile
	err := s.withProfileLock(ctx, tenantID, profileID, func(ctx context.Context) error {
		profile, err := s.profiles.Get(ctx, tenantID, profileID)
		if err != nil {
			return err
		}
		if profile.ClassificationState == models.ClassificationCold {
			return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("case %s is already cold", profile.CaseID))
		}

		switch req.Reason {
		case models.ReasonManual:
			profile.ManuallyMarkedCold = true
		case models.ReasonResourceConstraint:
			profile.ResourceConstrained = true
		}

		result, err = s.evaluateLocked(ctx, profile, now)
		return err
	})
	return result, err
}

// ApproveRevival is the human approval that returns a cold case to active.
// Manual flags are cleared so the next automated pass does not immediately
// re-cold the case.
func (s *Service) ApproveRevival(ctx context.Context, tenantID string, profileID string, req models.ApproveRevivalRequest, now time.Time) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.ApproveRevival")
	defer span.End()

	var result *models.CaseProfile
	err := s.withProfileLock(ctx, tenantID, profileID, func(ctx context.Context) error {
		profile, err := s.profiles.Get(ctx, tenantID, profileID)
		if err != nil {
			return err
		}
		if profile.ClassificationState != models.ClassificationCold {
			return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("case %s is not cold", profile.CaseID))
		}

		profile.ClassificationState = models.ClassificationActive
		profile.ClassificationReason = nil
		profile.ClassifiedAt = &now
		profile.ManuallyMarkedCold = false
		profile.ResourceConstrained = false
		profile.NextReviewDate = nil

		updated, err := s.profiles.Update(ctx, profile)
		if err != nil {
			return err
		}

		s.recordTrigger(ctx, updated, models.TriggerManual, nil, map[string]any{
			"approved_by": req.ApprovedBy,
			"note":        req.Note,
		}, req.ApprovedBy)

		if s.emitter != nil {
			s.emitter.EmitCaseRevived(ctx, updated, req.ApprovedBy, req.Note)
		}
		s.projectProfile(ctx, updated)

		s.log.WithContext(ctx).WithFields(map[string]any{
			"profile_id":  updated.ID,
			"approved_by": req.ApprovedBy,
		}).Info("Revival approved")

		result = updated
		return nil
	})
	return result, err
}

// RunClassificationPass evaluates every profile in pages. Single-profile
// failures are logged and skipped.
func (s *Service) RunClassificationPass(ctx context.Context, tenantID string, now time.Time) (evaluated, changed, skipped int, err error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.RunClassificationPass")
	defer span.End()

	afterID := ""
	for {
		page, err := s.profiles.ListForClassification(ctx, tenantID, afterID, 200)
		if err != nil {
			return evaluated, changed, skipped, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			afterID = page[i].ID
			before := page[i].ClassificationState

			updated, err := s.Evaluate(ctx, tenantID, page[i].ID, now)
			if err != nil {
				skipped++
				s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": page[i].ID}).
					Warn("Skipping profile in classification pass")
				continue
			}
			evaluated++
			if updated.ClassificationState != before {
				changed++
			}
		}

		if len(page) < 200 {
			break
		}
	}

	return evaluated, changed, skipped, nil
}

func criteriaNames(c classification.Criteria) []string {
	var names []string
	if c.NoLeadThresholdMet {
		names = append(names, "no_lead_threshold")
	}
	if c.NoTipThresholdMet {
		names = append(names, "no_tip_threshold")
	}
	if c.NoActivityThresholdMet {
		names = append(names, "no_activity_threshold")
	}
	if c.ManuallyMarkedCold {
		names = append(names, "manually_marked_cold")
	}
	if c.ResourceConstrained {
		names = append(names, "resource_constrained")
	}
	return names
}
