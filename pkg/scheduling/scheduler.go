package scheduling

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/casereview"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/reviewer"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/checklist"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Config contains configuration for the review scheduler.
type Config struct {
	PeriodicDueWindowDays  int // due window for periodic and special reviews
	TriggeredDueWindowDays int // due window for anniversary and tip_triggered reviews
	PassPageSize           int // profiles handled per due pass
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PeriodicDueWindowDays:  30,
		TriggeredDueWindowDays: 7,
		PassPageSize:           100,
	}
}

// DueWindow returns how long after creation a review of the given type is
// due. Anniversary and tip-triggered reviews are time-sensitive and get the
// short window.
func (c Config) DueWindow(reviewType models.ReviewType) time.Duration {
	days := c.PeriodicDueWindowDays
	if reviewType == models.ReviewTypeAnniversary || reviewType == models.ReviewTypeTipTriggered {
		days = c.TriggeredDueWindowDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Scheduler opens reviews and runs the rotation. The periodic due pass walks
// profiles whose next_review_date has arrived; out-of-band reviews are opened
// on demand by signal handlers and never touch the periodic slot.
type Scheduler struct {
	log        ectologger.Logger
	profiles   *caseprofile.Repository
	reviews    *casereview.Repository
	reviewers  *reviewer.Repository
	checklists *checklist.Engine
	cfg        Config
}

// NewScheduler creates a review scheduler.
func NewScheduler(
	log ectologger.Logger,
	profiles *caseprofile.Repository,
	reviews *casereview.Repository,
	reviewers *reviewer.Repository,
	checklists *checklist.Engine,
	cfg Config,
) *Scheduler {
	return &Scheduler{
		log:        log,
		profiles:   profiles,
		reviews:    reviews,
		reviewers:  reviewers,
		checklists: checklists,
		cfg:        cfg,
	}
}

// PassResult summarizes one scheduler pass.
type PassResult struct {
	Due      int `json:"due"`
	Opened   int `json:"opened"`
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
}

// RunDuePass opens a periodic review for every cold profile whose
// next_review_date has arrived and has no open review. Failures on a single
// profile are logged and skipped; the profile stays due and is retried on
// the next pass.
func (s *Scheduler) RunDuePass(ctx context.Context, tenantID string, now time.Time) (PassResult, error) {
	ctx, span := tracing.StartSpan(ctx, "scheduling.Scheduler.RunDuePass")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID})

	var result PassResult

	due, err := s.profiles.ListDueForReview(ctx, tenantID, now, s.cfg.PassPageSize)
	if err != nil {
		return result, err
	}
	result.Due = len(due)

	for i := range due {
		profile := &due[i]

		review, err := s.OpenReview(ctx, profile, models.ReviewTypePeriodic, now)
		if err != nil {
			result.Skipped++
			log.WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).
				Warn("Skipping profile in due pass")
			continue
		}

		result.Opened++
		if review.AssignedReviewerID != nil {
			result.Assigned++
		}
	}

	log.WithFields(map[string]any{
		"due":      result.Due,
		"opened":   result.Opened,
		"assigned": result.Assigned,
		"skipped":  result.Skipped,
	}).Info("Review due pass finished")

	return result, nil
}

// OpenReview creates a review of the given type for the profile, instantiates
// its checklist, and attempts a reviewer assignment, all in one transaction.
// Returns a conflict error when the profile already has an open review. A
// review with no eligible reviewer persists pending and unassigned.
func (s *Scheduler) OpenReview(ctx context.Context, profile *models.CaseProfile, reviewType models.ReviewType, now time.Time) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "scheduling.Scheduler.OpenReview")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":   profile.TenantID,
		"profile_id":  profile.ID,
		"review_type": reviewType,
	})

	ctxTx, tx, err := s.reviews.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	dueDate := now.Add(s.cfg.DueWindow(reviewType))
	review, err := s.reviews.Create(ctxTx, &models.CaseReview{
		TenantID:   profile.TenantID,
		ProfileID:  profile.ID,
		ReviewType: reviewType,
		Status:     models.ReviewPending,
		DueDate:    dueDate,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.checklists.InstantiateForReview(ctxTx, profile, review, now); err != nil {
		return nil, err
	}

	picked, err := s.tryAssign(ctxTx, profile, review, now)
	if err != nil {
		return nil, err
	}

	profile.TotalReviews++
	profile.AssignedReviewerID = nil
	if picked != nil {
		profile.AssignedReviewerID = &picked.ID
	}
	if _, err := s.profiles.Update(ctxTx, profile); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	fields := map[string]any{"review_id": review.ID, "due_date": dueDate}
	if picked != nil {
		fields["reviewer_id"] = picked.ID
	}
	log.WithFields(fields).Info("Opened review")

	return review, nil
}

// AssignPendingPass retries assignment for pending reviews that have no
// reviewer, picking up reviewers who have since freed capacity.
func (s *Scheduler) AssignPendingPass(ctx context.Context, tenantID string, now time.Time) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "scheduling.Scheduler.AssignPendingPass")
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID})

	unassigned, err := s.reviews.ListUnassigned(ctx, tenantID, s.cfg.PassPageSize)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for i := range unassigned {
		review := &unassigned[i]

		profile, err := s.profiles.Get(ctx, tenantID, review.ProfileID)
		if err != nil {
			log.WithError(err).WithFields(map[string]any{"review_id": review.ID}).
				Warn("Skipping unassigned review, profile lookup failed")
			continue
		}

		ctxTx, tx, err := s.reviews.DB().GetTx(ctx, &sql.TxOptions{})
		if err != nil {
			return assigned, err
		}

		picked, err := s.tryAssign(ctxTx, profile, review, now)
		if err != nil {
			tx.Rollback(ctxTx)
			log.WithError(err).WithFields(map[string]any{"review_id": review.ID}).
				Warn("Skipping unassigned review, assignment failed")
			continue
		}
		if picked == nil {
			tx.Rollback(ctxTx)
			continue
		}

		if err := tx.Commit(ctxTx); err != nil {
			return assigned, err
		}
		assigned++
	}

	if assigned > 0 {
		log.WithFields(map[string]any{"assigned": assigned}).Info("Assigned pending reviews")
	}

	return assigned, nil
}

// tryAssign picks a reviewer for the review and records the assignment.
// Returns nil with no error when nobody is eligible.
func (s *Scheduler) tryAssign(ctx context.Context, profile *models.CaseProfile, review *models.CaseReview, now time.Time) (*models.Reviewer, error) {
	candidates, err := s.reviewers.ListActive(ctx, profile.TenantID)
	if err != nil {
		return nil, err
	}

	picked := Select(candidates, NeedsForProfile(profile))
	if picked == nil {
		return nil, nil
	}

	if err := s.reviews.Assign(ctx, profile.TenantID, review.ID, picked.ID); err != nil {
		return nil, err
	}
	if err := s.reviewers.RecordAssignment(ctx, profile.TenantID, picked.ID); err != nil {
		return nil, err
	}

	review.AssignedReviewerID = &picked.ID
	review.AssignedAt = &now

	return picked, nil
}
