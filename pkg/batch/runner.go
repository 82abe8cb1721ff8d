// Package batch runs the daily maintenance passes: classification sweep,
// due-review scan, reviewer assignment, anniversary campaign proposal and
// activation, corpus pattern scan, and snapshot refresh. Item failures are
// logged and retried on the next pass; a pass never aborts because one case
// misbehaved.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/caseprofile"
	"github.com/PresidentAnderson/locate-connect-sub007/internal/repositories/casereview"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/campaigns"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/lifecycle"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/metrics"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/patterns"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/scheduling"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/tracing"
)

// Config holds the batch runner settings
type Config struct {
	// Interval between full passes
	Interval time.Duration

	// PageSize bounds how many profiles are loaded per page
	PageSize int

	// CaseTimeout bounds how long one case may take before it is skipped
	CaseTimeout time.Duration

	// WorkerCount bounds fanout concurrency for per-case work
	WorkerCount int
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		Interval:    24 * time.Hour,
		PageSize:    200,
		CaseTimeout: 30 * time.Second,
		WorkerCount: 8,
	}
}

// Runner executes the periodic maintenance passes
type Runner struct {
	logger    ectologger.Logger
	service   *lifecycle.Service
	scheduler *scheduling.Scheduler
	campaigns *campaigns.Manager
	matcher   *patterns.Matcher
	profiles  *caseprofile.Repository
	reviews   *casereview.Repository
	cfg       Config

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.Mutex
}

// NewRunner creates a new batch runner
func NewRunner(
	logger ectologger.Logger,
	service *lifecycle.Service,
	scheduler *scheduling.Scheduler,
	campaignManager *campaigns.Manager,
	matcher *patterns.Matcher,
	profiles *caseprofile.Repository,
	reviews *casereview.Repository,
	cfg Config,
) *Runner {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = def.CaseTimeout
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}

	return &Runner{
		logger:    logger,
		service:   service,
		scheduler: scheduler,
		campaigns: campaignManager,
		matcher:   matcher,
		profiles:  profiles,
		reviews:   reviews,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedC:  make(chan struct{}),
	}
}

// Start runs an initial pass and then repeats on the configured interval
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("batch runner already running")
	}
	r.running = true
	r.mu.Unlock()

	r.logger.WithContext(ctx).Infof("Starting batch runner: interval=%s workers=%d", r.cfg.Interval, r.cfg.WorkerCount)

	go func() {
		defer close(r.stoppedC)

		r.RunOnce(ctx)

		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()

	return nil
}

// Stop stops the runner, waiting for an in-flight pass to finish
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.stoppedC:
		r.logger.WithContext(ctx).Info("Batch runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.WithContext(ctx).Warn("Batch runner shutdown timed out")
		return ctx.Err()
	}
}

// RunOnce executes one full pass across every tenant
func (r *Runner) RunOnce(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "batch.Runner.RunOnce")
	defer span.End()

	now := time.Now().UTC()
	log := r.logger.WithContext(ctx)

	tenants, err := r.profiles.ListTenants(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list tenants, skipping pass")
		return
	}

	log.Infof("Batch pass starting for %d tenants", len(tenants))

	for _, tenantID := range tenants {
		r.runTenant(ctx, tenantID, now)
	}

	log.Infof("Batch pass finished in %s", time.Since(now))
}

func (r *Runner) runTenant(ctx context.Context, tenantID string, now time.Time) {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID})

	r.timed("classification", func() {
		evaluated, changed, skipped, err := r.service.RunClassificationPass(ctx, tenantID, now)
		if err != nil {
			log.WithError(err).Error("Classification pass failed")
			return
		}
		metrics.PassItemsTotal.WithLabelValues("classification", "evaluated").Add(float64(evaluated))
		metrics.PassItemsTotal.WithLabelValues("classification", "changed").Add(float64(changed))
		metrics.PassItemsTotal.WithLabelValues("classification", "skipped").Add(float64(skipped))
		log.Infof("Classification pass: evaluated=%d changed=%d skipped=%d", evaluated, changed, skipped)
	})

	r.timed("due_reviews", func() {
		result, err := r.scheduler.RunDuePass(ctx, tenantID, now)
		if err != nil {
			log.WithError(err).Error("Due-review pass failed")
			return
		}
		metrics.PassItemsTotal.WithLabelValues("due_reviews", "opened").Add(float64(result.Opened))
		metrics.PassItemsTotal.WithLabelValues("due_reviews", "skipped").Add(float64(result.Skipped))
		log.Infof("Due-review pass: opened=%d skipped=%d", result.Opened, result.Skipped)
	})

	r.timed("assignment", func() {
		assigned, err := r.scheduler.AssignPendingPass(ctx, tenantID, now)
		if err != nil {
			log.WithError(err).Error("Assignment pass failed")
			return
		}
		metrics.PassItemsTotal.WithLabelValues("assignment", "assigned").Add(float64(assigned))
		log.Infof("Assignment pass: assigned=%d", assigned)
	})

	r.timed("anniversaries", func() {
		result, err := r.campaigns.RunAnniversaryPass(ctx, tenantID, now)
		if err != nil {
			log.WithError(err).Error("Anniversary pass failed")
			return
		}
		metrics.PassItemsTotal.WithLabelValues("anniversaries", "proposed").Add(float64(result.Proposed))
		log.Infof("Anniversary pass: scanned=%d proposed=%d", result.Scanned, result.Proposed)
	})

	r.timed("campaign_activation", func() {
		activated, err := r.campaigns.RunActivationPass(ctx, tenantID, now)
		if err != nil {
			log.WithError(err).Error("Campaign activation pass failed")
			return
		}
		metrics.PassItemsTotal.WithLabelValues("campaign_activation", "activated").Add(float64(activated))
	})

	r.timed("pattern_scan", func() {
		r.patternScanPass(ctx, tenantID)
	})

	r.timed("snapshots", func() {
		r.snapshotPass(ctx, tenantID, now)
	})

	if overdue, err := r.reviews.CountOverdue(ctx, tenantID, now); err == nil {
		metrics.ReviewsOverdue.WithLabelValues(tenantID).Set(float64(overdue))
	}
}

// patternScanPass rescans every cold profile against the corpus
func (r *Runner) patternScanPass(ctx context.Context, tenantID string) {
	r.forEachCold(ctx, tenantID, "pattern_scan", func(itemCtx context.Context, profile *models.CaseProfile) error {
		result, err := r.matcher.ScanProfile(itemCtx, profile)
		if err != nil {
			return err
		}
		if len(result.Persisted) > 0 {
			metrics.PatternMatchesFound.WithLabelValues(tenantID).Add(float64(len(result.Persisted)))
		}
		return nil
	})
}

// snapshotPass refreshes the daily statistics snapshot for every cold profile
func (r *Runner) snapshotPass(ctx context.Context, tenantID string, now time.Time) {
	r.forEachCold(ctx, tenantID, "snapshots", func(itemCtx context.Context, profile *models.CaseProfile) error {
		_, err := r.service.ComputeSnapshot(itemCtx, tenantID, profile.ID, now)
		return err
	})
}

// forEachCold pages through the cold corpus and fans each profile out to a
// bounded worker pool. Each item gets its own deadline; items that fail or
// time out are logged and retried next pass.
func (r *Runner) forEachCold(ctx context.Context, tenantID, pass string, fn func(ctx context.Context, profile *models.CaseProfile) error) {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{"tenant_id": tenantID, "pass": pass})

	jobs := make(chan models.CaseProfile)
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for profile := range jobs {
				itemCtx, cancel := context.WithTimeout(ctx, r.cfg.CaseTimeout)
				err := fn(itemCtx, &profile)
				cancel()

				if err != nil {
					metrics.PassItemsTotal.WithLabelValues(pass, "failed").Inc()
					log.WithError(err).Warnf("Skipping profile %s", profile.ID)
					continue
				}
				metrics.PassItemsTotal.WithLabelValues(pass, "ok").Inc()
			}
		}()
	}

	afterID := ""
	for {
		page, err := r.profiles.ListColdForScan(ctx, tenantID, afterID, r.cfg.PageSize)
		if err != nil {
			log.WithError(err).Error("Failed to page cold profiles")
			break
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		for _, profile := range page {
			jobs <- profile
		}

		if len(page) < r.cfg.PageSize {
			break
		}
	}

	close(jobs)
	wg.Wait()
}

// timed runs one pass stage and records its duration
func (r *Runner) timed(pass string, fn func()) {
	start := time.Now()
	fn()
	metrics.PassDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())
}
