package lifecycle

import (
	"context"
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/scoring"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// RecomputeScore recomputes the revival priority score from the latest
// stored factors and persists it with its audit breakdown. Active profiles
// score zero.
func (s *Service) RecomputeScore(ctx context.Context, tenantID string, profileID string, now time.Time) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.RecomputeScore")
	defer span.End()

	profile, err := s.profiles.Get(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}

	if profile.ClassificationState != models.ClassificationCold {
		if err := s.profiles.SetScore(ctx, tenantID, profileID, 0, nil, now); err != nil {
			return nil, err
		}
		profile.RevivalPriorityScore = 0
		return profile, nil
	}

	facts := profile.Facts.GetValue()

	evidenceItems, err := s.evidence.ListScorable(ctx, tenantID, profileID, now.Add(-s.scorer.VerifiedWindow()))
	if err != nil {
		return nil, err
	}
	confirmed, err := s.matches.ListConfirmed(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}

	result := s.scorer.Score(scoring.Input{
		Evidence:        evidenceItems,
		PatternMatches:  confirmed,
		DNAStatus:       profile.DNAStatus,
		AnniversaryDate: profile.AnniversaryDate,
		BecameColdAt:    profile.BecameColdAt,
		IsMinor:         facts.IsMinor,
		IsIndigenous:    facts.IsIndigenous,
	}, now)

	if err := s.profiles.SetScore(ctx, tenantID, profileID, result.Score, result.Factors, now); err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).WithFields(map[string]any{
		"profile_id": profileID,
		"score":      result.Score,
		"factors":    len(result.Factors),
	}).Debug("Recomputed revival priority score")

	profile.RevivalPriorityScore = result.Score
	profile.RevivalPriorityFactors = database.JSONB[[]models.ScoreFactor]{Data: result.Factors}
	profile.ScoreComputedAt = &now

	return profile, nil
}

// ComputeSnapshot derives and stores a fresh statistics snapshot for the
// profile
func (s *Service) ComputeSnapshot(ctx context.Context, tenantID string, profileID string, now time.Time) (*models.CaseSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.ComputeSnapshot")
	defer span.End()

	profile, err := s.profiles.Get(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}

	snapshot := &models.CaseSnapshot{
		TenantID:     tenantID,
		ProfileID:    profileID,
		DaysCold:     profile.DaysSinceCold(now),
		Score:        profile.RevivalPriorityScore,
		ScoreFactors: profile.RevivalPriorityFactors,
		ComputedAt:   now,
	}

	if open, err := s.reviews.GetOpen(ctx, tenantID, profileID); err == nil {
		snapshot.OpenReviewID = &open.ID
		snapshot.ReviewOverdue = open.DueDate.Before(now)
	} else if !isNotFound(err) {
		return nil, err
	}

	if snapshot.UnprocessedEvidence, err = s.evidence.CountUnprocessed(ctx, tenantID, profileID); err != nil {
		return nil, err
	}
	if snapshot.ConfirmedPatterns, err = s.matches.CountByStatus(ctx, tenantID, profileID, models.MatchConfirmed); err != nil {
		return nil, err
	}
	if snapshot.UnreviewedPatterns, err = s.matches.CountByStatus(ctx, tenantID, profileID, models.MatchUnreviewed); err != nil {
		return nil, err
	}
	if snapshot.LinkedCases, err = s.links.Count(ctx, tenantID, profileID); err != nil {
		return nil, err
	}
	if snapshot.ActiveCampaigns, err = s.campaigns.CountActive(ctx, tenantID, profileID); err != nil {
		return nil, err
	}

	counts, err := s.triggers.CountByType(ctx, tenantID, profileID)
	if err != nil {
		return nil, err
	}
	snapshot.TriggerCounts = database.JSONB[map[string]int]{Data: counts}

	return s.snapshots.Create(ctx, snapshot)
}

// LatestSnapshot returns the newest stored snapshot, computing one when none
// exists yet
func (s *Service) LatestSnapshot(ctx context.Context, tenantID string, profileID string) (*models.CaseSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.LatestSnapshot")
	defer span.End()

	snapshot, err := s.snapshots.GetLatest(ctx, tenantID, profileID)
	if err == nil {
		return snapshot, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return s.ComputeSnapshot(ctx, tenantID, profileID, time.Now().UTC())
}
