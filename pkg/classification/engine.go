// Package classification decides when a case turns cold and when it returns
// to active investigation. The engine is pure: the lifecycle service applies
// its decisions transactionally.
package classification

import (
	"time"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

const (
	DefaultLeadThresholdDays     = 90
	DefaultTipThresholdDays      = 60
	DefaultActivityThresholdDays = 180
)

// Config holds the automated classification thresholds in days
type Config struct {
	LeadThresholdDays     int
	TipThresholdDays      int
	ActivityThresholdDays int
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		LeadThresholdDays:     DefaultLeadThresholdDays,
		TipThresholdDays:      DefaultTipThresholdDays,
		ActivityThresholdDays: DefaultActivityThresholdDays,
	}
}

// Action is the engine's verdict relative to the current state
type Action string

const (
	ActionNone       Action = "none"
	ActionMarkCold   Action = "mark_cold"
	ActionReactivate Action = "reactivate"
)

// Input is everything the engine looks at for one evaluation
type Input struct {
	State models.ClassificationState

	LastLeadAt     *time.Time
	LastTipAt      *time.Time
	LastActivityAt *time.Time

	ManuallyMarkedCold  bool
	ResourceConstrained bool
	RevivalApproved     bool

	IsMinor           bool
	HighVulnerability bool
}

// Criteria is the evaluated state of the five classification criteria,
// persisted on the profile after every pass
type Criteria struct {
	NoLeadThresholdMet     bool
	NoTipThresholdMet      bool
	NoActivityThresholdMet bool
	ManuallyMarkedCold     bool
	ResourceConstrained    bool
}

// Decision is the evaluation outcome. Reason and ReviewFrequency are only
// meaningful when Action is mark_cold.
type Decision struct {
	Action          Action
	Reason          models.ClassificationReason
	Criteria        Criteria
	ReviewFrequency models.ReviewFrequency
}

// Engine evaluates activity signals against the cold-case criteria
type Engine struct {
	config Config
}

// NewEngine creates a classification engine
func NewEngine(config Config) *Engine {
	if config.LeadThresholdDays <= 0 {
		config.LeadThresholdDays = DefaultLeadThresholdDays
	}
	if config.TipThresholdDays <= 0 {
		config.TipThresholdDays = DefaultTipThresholdDays
	}
	if config.ActivityThresholdDays <= 0 {
		config.ActivityThresholdDays = DefaultActivityThresholdDays
	}
	return &Engine{config: config}
}

// Evaluate decides the classification action for a profile. Precedence,
// first match wins, manual dominating automated:
//
//  1. human-approved revival -> active
//  2. manual cold marking -> cold (manual)
//  3. resource-constraint marking -> cold (resource_constraint)
//  4. all three automated criteria -> cold (auto_classified)
//
// Cold under the automated rule requires no lead, no tip, AND no activity
// past their thresholds jointly; a single criterion never suffices.
// Idempotent: unchanged inputs produce ActionNone.
func (e *Engine) Evaluate(input Input, now time.Time) Decision {
	criteria := Criteria{
		NoLeadThresholdMet:     e.quietFor(input.LastLeadAt, e.config.LeadThresholdDays, now),
		NoTipThresholdMet:      e.quietFor(input.LastTipAt, e.config.TipThresholdDays, now),
		NoActivityThresholdMet: e.quietFor(input.LastActivityAt, e.config.ActivityThresholdDays, now),
		ManuallyMarkedCold:     input.ManuallyMarkedCold,
		ResourceConstrained:    input.ResourceConstrained,
	}

	target, reason := e.targetState(input, criteria)

	decision := Decision{
		Action:   ActionNone,
		Criteria: criteria,
	}

	switch {
	case target == models.ClassificationCold && input.State != models.ClassificationCold:
		decision.Action = ActionMarkCold
		decision.Reason = reason
		decision.ReviewFrequency = FrequencyForSeverity(input.IsMinor, input.HighVulnerability)
	case target == models.ClassificationActive && input.State == models.ClassificationCold:
		decision.Action = ActionReactivate
	}

	return decision
}

// targetState resolves the precedence chain to a desired state
func (e *Engine) targetState(input Input, criteria Criteria) (models.ClassificationState, models.ClassificationReason) {
	if input.RevivalApproved {
		return models.ClassificationActive, ""
	}
	if criteria.ManuallyMarkedCold {
		return models.ClassificationCold, models.ReasonManual
	}
	if criteria.ResourceConstrained {
		return models.ClassificationCold, models.ReasonResourceConstraint
	}
	if criteria.NoLeadThresholdMet && criteria.NoTipThresholdMet && criteria.NoActivityThresholdMet {
		return models.ClassificationCold, models.ReasonAutoClassified
	}
	return models.ClassificationActive, ""
}

// quietFor reports whether the signal has been silent for at least
// thresholdDays. A signal never recorded counts as silent.
func (e *Engine) quietFor(last *time.Time, thresholdDays int, now time.Time) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= time.Duration(thresholdDays)*24*time.Hour
}

// FrequencyForSeverity picks the review cadence stamped at cold transition:
// minors and high-vulnerability cases review quarterly, everything else
// semi-annually.
func FrequencyForSeverity(isMinor, highVulnerability bool) models.ReviewFrequency {
	if isMinor || highVulnerability {
		return models.FrequencyQuarterly
	}
	return models.FrequencySemiAnnual
}
