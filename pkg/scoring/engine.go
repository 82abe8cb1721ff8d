// Package scoring computes the revival priority score. The engine is a pure
// function of its inputs: identical factors always reproduce the identical
// score, and every contribution is recorded for audit.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// Additive weights per signal
const (
	WeightEvidenceCritical = 25.0
	WeightEvidenceHigh     = 15.0
	WeightEvidenceMedium   = 8.0
	WeightEvidenceLow      = 3.0

	WeightPatternVeryHigh = 20.0
	WeightPatternHigh     = 12.0
	WeightPatternMedium   = 6.0
	WeightPatternLow      = 2.0

	WeightDNAMatchFound   = 30.0
	WeightDNAResubmission = 5.0

	WeightAnniversary = 10.0

	MultiplierMinor      = 1.2
	MultiplierIndigenous = 1.15

	MaxScore = 100.0
)

// Config holds the scorer's windows. Weights are fixed; only the windows
// around them are tunable.
type Config struct {
	// AnniversaryWindowDays is how close to the anniversary the proximity
	// boost applies
	AnniversaryWindowDays int
	// NewlyVerifiedWindowDays is how long after verification already-processed
	// evidence still contributes
	NewlyVerifiedWindowDays int
	// DecayGraceYears is how many full years cold pass before stagnation
	// decay starts
	DecayGraceYears int
}

// DefaultConfig returns the standard scorer windows
func DefaultConfig() Config {
	return Config{
		AnniversaryWindowDays:   30,
		NewlyVerifiedWindowDays: 30,
		DecayGraceYears:         2,
	}
}

// Input is the full set of signals the score derives from
type Input struct {
	Evidence       []models.Evidence
	PatternMatches []models.PatternMatch
	DNAStatus      models.DNAStatus

	AnniversaryDate *time.Time
	BecameColdAt    *time.Time

	IsMinor      bool
	IsIndigenous bool
}

// Result is the computed score with its audited factor breakdown
type Result struct {
	Score   float64
	Factors []models.ScoreFactor
}

// Engine computes revival priority scores
type Engine struct {
	config Config
}

// NewEngine creates a scoring engine
func NewEngine(config Config) *Engine {
	if config.AnniversaryWindowDays <= 0 {
		config.AnniversaryWindowDays = 30
	}
	if config.NewlyVerifiedWindowDays <= 0 {
		config.NewlyVerifiedWindowDays = 30
	}
	if config.DecayGraceYears <= 0 {
		config.DecayGraceYears = 2
	}
	return &Engine{config: config}
}

// VerifiedWindow returns how long freshly-verified evidence keeps scoring,
// so callers can prefilter their evidence queries to the same window.
func (e *Engine) VerifiedWindow() time.Duration {
	return time.Duration(e.config.NewlyVerifiedWindowDays) * 24 * time.Hour
}

// Score computes the revival priority score in [0,100]. Order is fixed:
// additive sum, then stagnation decay (floored at zero), then vulnerability
// multipliers, then the clamp.
func (e *Engine) Score(input Input, now time.Time) Result {
	var factors []models.ScoreFactor
	sum := 0.0

	add := func(factor string, weight float64) {
		factors = append(factors, models.ScoreFactor{Factor: factor, Weight: weight})
		sum += weight
	}

	for _, ev := range input.Evidence {
		if !e.evidenceQualifies(ev, now) {
			continue
		}
		if w := evidenceWeight(ev.Significance); w > 0 {
			add(fmt.Sprintf("evidence_%s", ev.Significance), w)
		}
	}

	for _, match := range input.PatternMatches {
		if match.ReviewStatus != models.MatchConfirmed {
			continue
		}
		if w := patternWeight(match.Confidence); w > 0 {
			add(fmt.Sprintf("pattern_%s", match.Confidence), w)
		}
	}

	switch input.DNAStatus {
	case models.DNAMatchFound:
		add("dna_match_found", WeightDNAMatchFound)
	case models.DNAResubmissionPending, models.DNAResubmitted:
		add(fmt.Sprintf("dna_%s", input.DNAStatus), WeightDNAResubmission)
	}

	if e.nearAnniversary(input.AnniversaryDate, now) {
		add("anniversary_proximity", WeightAnniversary)
	}

	if decay := e.stagnationDecay(input.BecameColdAt, now); decay > 0 {
		// The decayed total never goes negative
		applied := math.Min(decay, sum)
		factors = append(factors, models.ScoreFactor{Factor: "stagnation_decay", Weight: -applied})
		sum -= applied
	}

	if input.IsMinor {
		factors = append(factors, models.ScoreFactor{Factor: "vulnerability_multiplier_minor", Weight: MultiplierMinor})
		sum *= MultiplierMinor
	}
	if input.IsIndigenous {
		factors = append(factors, models.ScoreFactor{Factor: "vulnerability_multiplier_indigenous", Weight: MultiplierIndigenous})
		sum *= MultiplierIndigenous
	}

	score := math.Min(MaxScore, math.Max(0, sum))

	return Result{Score: score, Factors: factors}
}

// evidenceQualifies reports whether an evidence item contributes: unprocessed
// items do (unless vetting rejected them), and already-processed items do
// again for a window after fresh verification.
func (e *Engine) evidenceQualifies(ev models.Evidence, now time.Time) bool {
	if ev.Verification == models.VerificationRejected {
		return false
	}
	if !ev.Processed {
		return true
	}
	if ev.Verification == models.VerificationVerified && ev.VerifiedAt != nil {
		window := time.Duration(e.config.NewlyVerifiedWindowDays) * 24 * time.Hour
		return now.Sub(*ev.VerifiedAt) <= window
	}
	return false
}

// nearAnniversary reports whether now is within the window of the nearest
// anniversary of the disappearance, on either side.
func (e *Engine) nearAnniversary(anniversary *time.Time, now time.Time) bool {
	if anniversary == nil {
		return false
	}
	window := time.Duration(e.config.AnniversaryWindowDays) * 24 * time.Hour

	this := time.Date(now.Year(), anniversary.Month(), anniversary.Day(), 0, 0, 0, 0, time.UTC)
	for _, candidate := range []time.Time{this.AddDate(-1, 0, 0), this, this.AddDate(1, 0, 0)} {
		diff := now.Sub(candidate)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	return false
}

// stagnationDecay returns the positive decay amount: one point per full year
// cold beyond the grace years.
func (e *Engine) stagnationDecay(becameColdAt *time.Time, now time.Time) float64 {
	if becameColdAt == nil {
		return 0
	}
	years := 0
	cursor := becameColdAt.AddDate(1, 0, 0)
	for !cursor.After(now) {
		years++
		cursor = cursor.AddDate(1, 0, 0)
	}
	if years <= e.config.DecayGraceYears {
		return 0
	}
	return float64(years - e.config.DecayGraceYears)
}

func evidenceWeight(s models.EvidenceSignificance) float64 {
	switch s {
	case models.SignificanceCritical:
		return WeightEvidenceCritical
	case models.SignificanceHigh:
		return WeightEvidenceHigh
	case models.SignificanceMedium:
		return WeightEvidenceMedium
	case models.SignificanceLow:
		return WeightEvidenceLow
	}
	return 0
}

func patternWeight(c models.ConfidenceBucket) float64 {
	switch c {
	case models.ConfidenceVeryHigh:
		return WeightPatternVeryHigh
	case models.ConfidenceHigh:
		return WeightPatternHigh
	case models.ConfidenceMedium:
		return WeightPatternMedium
	case models.ConfidenceLow:
		return WeightPatternLow
	}
	return 0
}
