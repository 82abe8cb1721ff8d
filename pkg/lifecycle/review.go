package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/checklist"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// CreateReview opens an out-of-band review through the API. Periodic and
// anniversary reviews come from the scheduler, never from here.
func (s *Service) CreateReview(ctx context.Context, tenantID string, profileID string, req models.CreateReviewRequest, now time.Time) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.CreateReview")
	defer span.End()

	if req.ReviewType != models.ReviewTypeSpecial && req.ReviewType != models.ReviewTypeTipTriggered {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("review type %q cannot be created manually", req.ReviewType))
	}

	var review *models.CaseReview
	err := s.withProfileLock(ctx, tenantID, profileID, func(ctx context.Context) error {
		profile, err := s.profiles.Get(ctx, tenantID, profileID)
		if err != nil {
			return err
		}
		if profile.ClassificationState != models.ClassificationCold {
			return httperror.NewHTTPError(http.StatusUnprocessableEntity, "reviews are only held for cold cases")
		}

		review, err = s.scheduler.OpenReview(ctx, profile, req.ReviewType, now)
		if err != nil {
			return err
		}

		if s.emitter != nil {
			s.emitter.EmitReviewCreated(ctx, profile, review)
		}
		return nil
	})
	return review, err
}

// StartReview moves a pending review to in_progress
func (s *Service) StartReview(ctx context.Context, tenantID string, reviewID string) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.StartReview")
	defer span.End()

	if err := s.reviews.Start(ctx, tenantID, reviewID); err != nil {
		return nil, err
	}
	return s.reviews.Get(ctx, tenantID, reviewID)
}

// AssignReview manually assigns a reviewer to an open review
func (s *Service) AssignReview(ctx context.Context, tenantID string, reviewID string, req models.AssignReviewRequest) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.AssignReview")
	defer span.End()

	review, err := s.reviews.Get(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.Status.IsOpen() {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("review %s is not open", reviewID))
	}

	picked, err := s.reviewers.Get(ctx, tenantID, req.ReviewerID)
	if err != nil {
		return nil, err
	}
	if !picked.IsActive {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("reviewer %s is inactive", picked.ID))
	}

	ctxTx, tx, err := s.reviews.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	if err := s.reviews.Assign(ctxTx, tenantID, reviewID, picked.ID); err != nil {
		return nil, err
	}
	if err := s.reviewers.RecordAssignment(ctxTx, tenantID, picked.ID); err != nil {
		return nil, err
	}
	if review.AssignedReviewerID != nil && *review.AssignedReviewerID != picked.ID {
		if err := s.reviewers.RecordRelease(ctxTx, tenantID, *review.AssignedReviewerID, false); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	return s.reviews.Get(ctx, tenantID, reviewID)
}

// CompleteReview closes an open review. The whole checklist must be terminal
// first; completion and the profile's schedule reset land in one transaction.
// Out-of-band reviews never touch the periodic slot.
func (s *Service) CompleteReview(ctx context.Context, tenantID string, reviewID string, req models.CompleteReviewRequest, now time.Time) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.CompleteReview")
	defer span.End()

	review, err := s.reviews.Get(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if !review.Status.IsOpen() {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("review %s is not open", reviewID))
	}

	blocked, err := s.checklists.BlocksCompletion(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "review has checklist items that are not yet terminal")
	}

	var profile *models.CaseProfile
	err = s.withProfileLock(ctx, tenantID, review.ProfileID, func(ctx context.Context) error {
		profile, err = s.profiles.Get(ctx, tenantID, review.ProfileID)
		if err != nil {
			return err
		}

		ctxTx, tx, err := s.reviews.DB().GetTx(ctx, &sql.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctxTx)

		if err := s.reviews.Complete(ctxTx, tenantID, reviewID, req); err != nil {
			return err
		}

		profile.CompletedReviews++
		profile.AssignedReviewerID = nil
		if isPeriodicSlot(review.ReviewType) {
			profile.LastReviewDate = &now
			if profile.ReviewFrequency != nil {
				next := now.AddDate(0, profile.ReviewFrequency.Months(), 0)
				profile.NextReviewDate = &next
			}
		}
		if profile, err = s.profiles.Update(ctxTx, profile); err != nil {
			return err
		}

		if review.AssignedReviewerID != nil {
			if err := s.reviewers.RecordRelease(ctxTx, tenantID, *review.AssignedReviewerID, true); err != nil {
				return err
			}
		}

		return tx.Commit(ctxTx)
	})
	if err != nil {
		return nil, err
	}

	completed, err := s.reviews.Get(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		s.emitter.EmitReviewCompleted(ctx, profile, completed)
	}

	s.log.WithContext(ctx).WithFields(map[string]any{
		"review_id":      reviewID,
		"profile_id":     profile.ID,
		"recommendation": req.Recommendation,
	}).Info("Review completed")

	return completed, nil
}

// DeferReview closes an open review without an outcome and frees its reviewer
func (s *Service) DeferReview(ctx context.Context, tenantID string, reviewID string, req models.DeferReviewRequest) (*models.CaseReview, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.DeferReview")
	defer span.End()

	review, err := s.reviews.Get(ctx, tenantID, reviewID)
	if err != nil {
		return nil, err
	}

	ctxTx, tx, err := s.reviews.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	if err := s.reviews.Defer(ctxTx, tenantID, reviewID, req.Reason); err != nil {
		return nil, err
	}
	if review.AssignedReviewerID != nil {
		if err := s.reviewers.RecordRelease(ctxTx, tenantID, *review.AssignedReviewerID, false); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	return s.reviews.Get(ctx, tenantID, reviewID)
}

// UpdateChecklistItem advances one checklist item through its lifecycle
func (s *Service) UpdateChecklistItem(ctx context.Context, tenantID string, itemID string, req models.UpdateChecklistItemStatusRequest, now time.Time) (*models.ChecklistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.UpdateChecklistItem")
	defer span.End()

	item, err := s.items.Get(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}

	if err := checklist.ApplyTransition(item, req, now); err != nil {
		return nil, err
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// isPeriodicSlot reports whether completing the review resets the periodic
// schedule
func isPeriodicSlot(t models.ReviewType) bool {
	return t == models.ReviewTypePeriodic || t == models.ReviewTypeAnniversary
}
