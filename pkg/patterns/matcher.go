package patterns

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/patternmatch"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Matcher scans the cold corpus for a source case and persists the
// candidates that clear the minimum confidence.
type Matcher struct {
	log      ectologger.Logger
	engine   *Engine
	profiles *caseprofile.Repository
	matches  *patternmatch.Repository
	pageSize int
}

// NewMatcher creates a corpus matcher.
func NewMatcher(
	log ectologger.Logger,
	engine *Engine,
	profiles *caseprofile.Repository,
	matches *patternmatch.Repository,
	pageSize int,
) *Matcher {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Matcher{
		log:      log,
		engine:   engine,
		profiles: profiles,
		matches:  matches,
		pageSize: pageSize,
	}
}

// ScanProfile scores the source case against every other cold profile,
// upserting candidates at or above the minimum confidence and discarding
// the rest. Re-scanning refreshes similarity on existing pairs without
// touching their review disposition.
func (m *Matcher) ScanProfile(ctx context.Context, source *models.CaseProfile) (*models.PatternScanResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "patterns.Matcher.ScanProfile")
	defer span.End()

	log := m.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  source.TenantID,
		"profile_id": source.ID,
	})

	sourceFacts := source.Facts.GetValue()

	result := &models.PatternScanResponse{SourceProfileID: source.ID}
	var persist []*models.PatternMatch

	afterID := ""
	for {
		page, err := m.profiles.ListColdForScan(ctx, source.TenantID, afterID, m.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		for i := range page {
			candidate := &page[i]
			if candidate.ID == source.ID {
				continue
			}

			result.CandidatesScored++

			similarity, sub := m.engine.Score(sourceFacts, candidate.Facts.GetValue())
			if !m.engine.Meets(similarity) {
				continue
			}

			persist = append(persist, &models.PatternMatch{
				TenantID:         source.TenantID,
				SourceProfileID:  source.ID,
				MatchedProfileID: candidate.ID,
				Similarity:       similarity,
				Confidence:       models.BucketForSimilarity(similarity),
				SubScores:        database.JSONB[models.PatternSubScores]{Data: sub},
				ReviewStatus:     models.MatchUnreviewed,
			})
		}

		if len(page) < m.pageSize {
			break
		}
	}

	if len(persist) > 0 {
		if err := m.matches.UpsertBatch(ctx, persist); err != nil {
			return nil, err
		}
		for _, p := range persist {
			result.Persisted = append(result.Persisted, *p)
		}
	}

	log.WithFields(map[string]any{
		"scored":    result.CandidatesScored,
		"persisted": len(result.Persisted),
	}).Info("Pattern scan finished")

	return result, nil
}
