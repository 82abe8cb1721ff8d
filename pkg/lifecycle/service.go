// Package lifecycle orchestrates cold-case state: it applies classification
// decisions transactionally, routes incoming signals into triggers and
// recomputes, and guards the review and revival invariants. The engines in
// pkg/classification, pkg/scoring and pkg/patterns stay pure; this package
// owns the persistence side effects.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/campaign"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/casereview"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/casesnapshot"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/checklistitem"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/dnasubmission"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/evidence"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/linkedcase"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/patternmatch"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/reviewer"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/revivaltrigger"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/checklist"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/classification"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/database"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/events"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/scheduling"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/scoring"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Locker serializes per-profile transitions across instances
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// RecomputeQueue enqueues a score recomputation instead of computing inline
type RecomputeQueue interface {
	Enqueue(ctx context.Context, tenantID string, profileID string) error
}

// Graph projects profiles and confirmed links to the graph store
type Graph interface {
	ProjectProfile(ctx context.Context, profile *models.CaseProfile) error
	ProjectLink(ctx context.Context, link *models.LinkedCase, similarity float64) error
}

// Service applies lifecycle transitions
type Service struct {
	log ectologger.Logger

	classifier *classification.Engine
	scorer     *scoring.Engine
	scheduler  *scheduling.Scheduler
	checklists *checklist.Engine

	profiles  *caseprofile.Repository
	reviews   *casereview.Repository
	reviewers *reviewer.Repository
	items     *checklistitem.Repository
	triggers  *revivaltrigger.Repository
	evidence  *evidence.Repository
	dna       *dnasubmission.Repository
	matches   *patternmatch.Repository
	links     *linkedcase.Repository
	snapshots *casesnapshot.Repository
	campaigns *campaign.Repository

	emitter *events.Emitter
	locker  Locker
	queue   RecomputeQueue
	graph   Graph
}

// Deps bundles the service's collaborators
type Deps struct {
	Classifier *classification.Engine
	Scorer     *scoring.Engine
	Scheduler  *scheduling.Scheduler
	Checklists *checklist.Engine

	Profiles  *caseprofile.Repository
	Reviews   *casereview.Repository
	Reviewers *reviewer.Repository
	Items     *checklistitem.Repository
	Triggers  *revivaltrigger.Repository
	Evidence  *evidence.Repository
	DNA       *dnasubmission.Repository
	Matches   *patternmatch.Repository
	Links     *linkedcase.Repository
	Snapshots *casesnapshot.Repository
	Campaigns *campaign.Repository

	Emitter *events.Emitter
	Locker  Locker
	Queue   RecomputeQueue
	Graph   Graph
}

// NewService creates the lifecycle service
func NewService(log ectologger.Logger, deps Deps) *Service {
	return &Service{
		log:        log,
		classifier: deps.Classifier,
		scorer:     deps.Scorer,
		scheduler:  deps.Scheduler,
		checklists: deps.Checklists,
		profiles:   deps.Profiles,
		reviews:    deps.Reviews,
		reviewers:  deps.Reviewers,
		items:      deps.Items,
		triggers:   deps.Triggers,
		evidence:   deps.Evidence,
		dna:        deps.DNA,
		matches:    deps.Matches,
		links:      deps.Links,
		snapshots:  deps.Snapshots,
		campaigns:  deps.Campaigns,
		emitter:    deps.Emitter,
		locker:     deps.Locker,
		queue:      deps.Queue,
		graph:      deps.Graph,
	}
}

// CreateProfile registers a case with the subsystem
func (s *Service) CreateProfile(ctx context.Context, tenantID string, req models.CreateCaseProfileRequest) (*models.CaseProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.CreateProfile")
	defer span.End()

	anniversary := req.AnniversaryDate
	if anniversary == nil && req.Facts.DisappearedOn != nil {
		anniversary = req.Facts.DisappearedOn
	}

	profile := &models.CaseProfile{
		TenantID:            tenantID,
		CaseID:              req.CaseID,
		ClassificationState: models.ClassificationActive,
		DNAStatus:           models.DNANotSubmitted,
		FamilyContactState:  models.FamilyContactCurrent,
		AnniversaryDate:     anniversary,
		Facts:               database.JSONB[models.CaseFacts]{Data: req.Facts},
		LastLeadAt:          req.LastLeadAt,
		LastTipAt:           req.LastTipAt,
		LastActivityAt:      req.LastActivityAt,
	}

	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		return nil, err
	}

	s.projectProfile(ctx, created)

	return created, nil
}

// withProfileLock serializes a transition on one profile
func (s *Service) withProfileLock(ctx context.Context, tenantID, profileID string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	key := fmt.Sprintf("coldcase:profile:%s:%s", tenantID, profileID)
	return s.locker.WithLock(ctx, key, fn)
}

// enqueueRecompute schedules a score recomputation, falling back to an inline
// compute when no queue is wired (tests, one-shot tools)
func (s *Service) enqueueRecompute(ctx context.Context, tenantID, profileID string) {
	if s.queue == nil {
		if _, err := s.RecomputeScore(ctx, tenantID, profileID, time.Now().UTC()); err != nil {
			s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).
				Error("Inline score recompute failed")
		}
		return
	}
	if err := s.queue.Enqueue(ctx, tenantID, profileID); err != nil {
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profileID}).
			Error("Failed to enqueue score recompute")
	}
}

func (s *Service) projectProfile(ctx context.Context, profile *models.CaseProfile) {
	if s.graph == nil {
		return
	}
	if err := s.graph.ProjectProfile(ctx, profile); err != nil {
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": profile.ID}).
			Error("Failed to project profile to graph")
	}
}

// recordTrigger appends a revival trigger and emits its audit event
func (s *Service) recordTrigger(ctx context.Context, profile *models.CaseProfile, triggerType models.TriggerType, sourceEntityID *string, detail map[string]any, triggeredBy string) {
	trigger, err := s.triggers.Create(ctx, &models.RevivalTrigger{
		TenantID:       profile.TenantID,
		ProfileID:      profile.ID,
		TriggerType:    triggerType,
		SourceEntityID: sourceEntityID,
		Detail:         database.JSONB[map[string]any]{Data: detail},
		TriggeredBy:    triggeredBy,
	})
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"profile_id":   profile.ID,
			"trigger_type": triggerType,
		}).Error("Failed to record revival trigger")
		return
	}
	if s.emitter != nil {
		s.emitter.EmitRevivalTrigger(ctx, profile, trigger)
	}
}
