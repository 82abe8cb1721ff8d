package lifecycle

import (
	"context"
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// AddEvidence records an evidence item submitted through the API. It shares
// a code path with the intake stream, so a cold case gets its new_evidence
// trigger and a critical item opens a special review either way.
func (s *Service) AddEvidence(ctx context.Context, tenantID string, profileID string, req models.CreateEvidenceRequest) (*models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.AddEvidence")
	defer span.End()

	profile, err := s.profiles.Get(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}

	var item *models.Evidence
	err = s.withProfileLock(ctx, tenantID, profile.ID, func(ctx context.Context) error {
		item, err = s.addEvidenceLocked(ctx, tenantID, profile.ID, req, "api")
		return err
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// VerifyEvidence records the vetting outcome for an evidence item. A newly
// verified item changes the evidence component of the score, so a recompute
// is enqueued either way.
func (s *Service) VerifyEvidence(ctx context.Context, tenantID string, evidenceID string, req models.UpdateEvidenceVerificationRequest) (*models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.VerifyEvidence")
	defer span.End()

	item, err := s.evidence.Get(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, err
	}

	if err := s.evidence.SetVerification(ctx, tenantID, item.ID, req.Verification, req.VerifiedBy); err != nil {
		return nil, err
	}

	s.enqueueRecompute(ctx, tenantID, item.ProfileID)
	return s.evidence.Get(ctx, tenantID, evidenceID)
}

// MarkEvidenceProcessed flags an item as folded into the investigation so it
// stops counting toward the unprocessed-evidence score component.
func (s *Service) MarkEvidenceProcessed(ctx context.Context, tenantID string, evidenceID string) (*models.Evidence, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.MarkEvidenceProcessed")
	defer span.End()

	item, err := s.evidence.Get(ctx, tenantID, evidenceID)
	if err != nil {
		return nil, err
	}

	if err := s.evidence.MarkProcessed(ctx, tenantID, item.ID); err != nil {
		return nil, err
	}

	s.enqueueRecompute(ctx, tenantID, item.ProfileID)
	return s.evidence.Get(ctx, tenantID, evidenceID)
}

// addEvidenceLocked creates the item, refreshes the activity watermark and
// re-evaluates classification. Callers hold the profile lock.
func (s *Service) addEvidenceLocked(ctx context.Context, tenantID string, profileID string, req models.CreateEvidenceRequest, origin string) (*models.Evidence, error) {
	now := time.Now().UTC()
	receivedAt := now
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	item, err := s.evidence.Create(ctx, &models.Evidence{
		TenantID:     tenantID,
		ProfileID:    profileID,
		Description:  req.Description,
		Significance: req.Significance,
		Verification: models.VerificationUnverified,
		Source:       optional(req.Source),
		ReceivedAt:   receivedAt,
	})
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}
	profile.LastActivityAt = laterOf(profile.LastActivityAt, &receivedAt)

	wasCold := profile.ClassificationState == models.ClassificationCold

	updated, err := s.evaluateLocked(ctx, profile, now)
	if err != nil {
		return nil, err
	}

	if wasCold {
		s.recordTrigger(ctx, updated, models.TriggerNewEvidence, &item.ID, map[string]any{
			"significance": string(item.Significance),
		}, origin)

		if item.Significance == models.SignificanceCritical {
			s.openOutOfBandReview(ctx, updated, models.ReviewTypeSpecial, now)
		}
	}

	s.enqueueRecompute(ctx, tenantID, updated.ID)
	return item, nil
}
