package lifecycle

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// HandleCaseActivity refreshes a profile's fact mirror and activity
// watermarks from a case-repository change event, then re-evaluates
// classification. Cases not registered with the subsystem are ignored.
func (s *Service) HandleCaseActivity(ctx context.Context, tenantID string, caseID string, facts models.CaseFacts, lastLead, lastTip, lastActivity *time.Time, deleted bool) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.HandleCaseActivity")
	defer span.End()

	profile, err := s.profiles.GetByCaseID(ctx, tenantID, caseID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	if deleted {
		s.log.WithContext(ctx).WithFields(map[string]any{"case_id": caseID}).
			Info("Source case deleted, leaving profile untouched")
		return nil
	}

	return s.withProfileLock(ctx, tenantID, profile.ID, func(ctx context.Context) error {
		profile, err := s.profiles.Get(ctx, tenantID, profile.ID)
		if err != nil {
			return err
		}

		profile.Facts = database.JSONB[models.CaseFacts]{Data: facts}
		if profile.AnniversaryDate == nil && facts.DisappearedOn != nil {
			profile.AnniversaryDate = facts.DisappearedOn
		}
		profile.LastLeadAt = laterOf(profile.LastLeadAt, lastLead)
		profile.LastTipAt = laterOf(profile.LastTipAt, lastTip)
		profile.LastActivityAt = laterOf(profile.LastActivityAt, lastActivity)

		updated, err := s.evaluateLocked(ctx, profile, time.Now().UTC())
		if err != nil {
			return err
		}

		s.enqueueRecompute(ctx, tenantID, updated.ID)
		return nil
	})
}

// HandleEvidenceAdded records a new evidence item from the ingestion stream.
// On a cold case it writes a new_evidence trigger, and critical evidence
// opens a special review when none is open.
func (s *Service) HandleEvidenceAdded(ctx context.Context, tenantID string, caseID string, req models.CreateEvidenceRequest) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.HandleEvidenceAdded")
	defer span.End()

	profile, err := s.profiles.GetByCaseID(ctx, tenantID, caseID)
	if err != nil {
		if isNotFound(err) {
			s.log.WithContext(ctx).WithFields(map[string]any{"case_id": caseID}).
				Warn("Evidence for unregistered case dropped")
			return nil
		}
		return err
	}

	return s.withProfileLock(ctx, tenantID, profile.ID, func(ctx context.Context) error {
		_, err := s.addEvidenceLocked(ctx, tenantID, profile.ID, req, "evidence-intake")
		return err
	})
}

// HandleTipReceived refreshes the tip watermark and, on a cold case, records
// a tip trigger (attributed to its campaign when one is named) and opens a
// tip-triggered review when none is open.
func (s *Service) HandleTipReceived(ctx context.Context, tenantID string, caseID string, tipID string, campaignID string, receivedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.HandleTipReceived")
	defer span.End()

	return s.handleContact(ctx, tenantID, caseID, tipID, campaignID, receivedAt, false)
}

// HandleLeadReceived refreshes the lead watermark and records the trigger on
// cold cases, same shape as tips.
func (s *Service) HandleLeadReceived(ctx context.Context, tenantID string, caseID string, leadID string, campaignID string, receivedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.HandleLeadReceived")
	defer span.End()

	return s.handleContact(ctx, tenantID, caseID, leadID, campaignID, receivedAt, true)
}

func (s *Service) handleContact(ctx context.Context, tenantID, caseID, sourceID, campaignID string, receivedAt time.Time, isLead bool) error {
	profile, err := s.profiles.GetByCaseID(ctx, tenantID, caseID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	return s.withProfileLock(ctx, tenantID, profile.ID, func(ctx context.Context) error {
		profile, err := s.profiles.Get(ctx, tenantID, profile.ID)
		if err != nil {
			return err
		}

		if isLead {
			profile.LastLeadAt = laterOf(profile.LastLeadAt, &receivedAt)
		} else {
			profile.LastTipAt = laterOf(profile.LastTipAt, &receivedAt)
		}
		profile.LastActivityAt = laterOf(profile.LastActivityAt, &receivedAt)

		wasCold := profile.ClassificationState == models.ClassificationCold

		updated, err := s.evaluateLocked(ctx, profile, time.Now().UTC())
		if err != nil {
			return err
		}

		if wasCold {
			triggerType := models.TriggerTip
			detail := map[string]any{}
			if isLead {
				detail["kind"] = "lead"
			} else {
				detail["kind"] = "tip"
			}
			if campaignID != "" {
				triggerType = models.TriggerCampaign
				detail["campaign_id"] = campaignID
			}
			src := sourceID
			s.recordTrigger(ctx, updated, triggerType, &src, detail, "signal-intake")

			s.openOutOfBandReview(ctx, updated, models.ReviewTypeTipTriggered, time.Now().UTC())
		}

		return nil
	})
}

// HandleDNAResult applies a lab outcome to the submission it references and
// to the profile's DNA status. Unknown references and illegal transitions
// are dropped with a warning so the intake stream never wedges.
func (s *Service) HandleDNAResult(ctx context.Context, tenantID string, labReferenceID string, outcome models.DNAStatus, notes string, resultAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.HandleDNAResult")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{"lab_reference_id": labReferenceID})

	if outcome != models.DNAMatchFound && outcome != models.DNANoMatch {
		log.WithFields(map[string]any{"outcome": outcome}).Warn("Unrecognized DNA outcome dropped")
		return nil
	}

	submission, err := s.dna.GetByLabReference(ctx, tenantID, labReferenceID)
	if err != nil {
		if isNotFound(err) {
			log.Warn("DNA result for unknown lab reference dropped")
			return nil
		}
		return err
	}

	if !submission.Status.CanTransitionTo(outcome) {
		log.WithFields(map[string]any{
			"from": submission.Status,
			"to":   outcome,
		}).Warn("Illegal DNA transition dropped")
		return nil
	}

	return s.withProfileLock(ctx, tenantID, submission.ProfileID, func(ctx context.Context) error {
		if err := s.dna.UpdateStatus(ctx, tenantID, submission.ID, outcome, optional(notes)); err != nil {
			return err
		}
		if err := s.profiles.SetDNAStatus(ctx, tenantID, submission.ProfileID, outcome); err != nil {
			return err
		}

		profile, err := s.profiles.Get(ctx, tenantID, submission.ProfileID)
		if err != nil {
			return err
		}

		if outcome == models.DNAMatchFound && profile.ClassificationState == models.ClassificationCold {
			s.recordTrigger(ctx, profile, models.TriggerDNAMatch, &submission.ID, map[string]any{
				"lab_reference_id": labReferenceID,
				"result_at":        resultAt,
			}, "lab-intake")

			s.openOutOfBandReview(ctx, profile, models.ReviewTypeSpecial, time.Now().UTC())
		}

		s.enqueueRecompute(ctx, tenantID, profile.ID)
		return nil
	})
}

// ReviewPatternMatch records the human disposition of a pattern match. A
// confirmation links the cases, writes a pattern_match trigger against the
// source profile, projects the edge to the graph, and recomputes both scores.
func (s *Service) ReviewPatternMatch(ctx context.Context, tenantID string, matchID string, req models.ReviewPatternMatchRequest) (*models.PatternMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.ReviewPatternMatch")
	defer span.End()

	match, err := s.matches.Get(ctx, tenantID, matchID)
	if err != nil {
		return nil, err
	}
	if match.ReviewStatus != models.MatchUnreviewed && match.ReviewStatus != req.Status {
		return nil, httperror.NewHTTPError(http.StatusConflict, "match has already been reviewed")
	}

	var investigationID *string
	if req.OpenInvestigation && req.Status == models.MatchConfirmed {
		id := uuid.New().String()
		investigationID = &id
	}

	if err := s.matches.SetReview(ctx, tenantID, matchID, req.Status, req.ReviewedBy, optional(req.Note), investigationID); err != nil {
		return nil, err
	}
	match.ReviewStatus = req.Status
	match.ReviewedBy = &req.ReviewedBy
	match.InvestigationID = investigationID

	if req.Status != models.MatchConfirmed {
		return match, nil
	}

	link, err := s.links.Link(ctx, tenantID, match.SourceProfileID, match.MatchedProfileID, models.LinkOriginPattern, &match.ID)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": match.ID}).
			Error("Failed to link confirmed match")
	} else if s.graph != nil {
		if err := s.graph.ProjectLink(ctx, link, match.Similarity); err != nil {
			s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": match.ID}).
				Error("Failed to project confirmed link to graph")
		}
	}

	if source, err := s.profiles.Get(ctx, tenantID, match.SourceProfileID); err == nil {
		if source.ClassificationState == models.ClassificationCold {
			s.recordTrigger(ctx, source, models.TriggerPatternMatch, &match.ID, map[string]any{
				"matched_profile_id": match.MatchedProfileID,
				"similarity":         match.Similarity,
				"confidence":         string(match.Confidence),
			}, req.ReviewedBy)
		}
	}

	s.enqueueRecompute(ctx, tenantID, match.SourceProfileID)
	s.enqueueRecompute(ctx, tenantID, match.MatchedProfileID)

	return match, nil
}

// openOutOfBandReview opens a special or tip-triggered review, tolerating an
// existing open review
func (s *Service) openOutOfBandReview(ctx context.Context, profile *models.CaseProfile, reviewType models.ReviewType, now time.Time) {
	if _, err := s.reviews.GetOpen(ctx, profile.TenantID, profile.ID); err == nil {
		return
	} else if !isNotFound(err) {
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).
			Error("Failed to check open review")
		return
	}

	review, err := s.scheduler.OpenReview(ctx, profile, reviewType, now)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"profile_id":  profile.ID,
			"review_type": reviewType,
		}).Warn("Failed to open out-of-band review")
		return
	}

	if s.emitter != nil {
		s.emitter.EmitReviewCreated(ctx, profile, review)
	}
}

func isNotFound(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func laterOf(current, incoming *time.Time) *time.Time {
	if incoming == nil {
		return current
	}
	if current == nil || incoming.After(*current) {
		return incoming
	}
	return current
}
