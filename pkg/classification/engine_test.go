package classification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestEngine_AutomatedColdClassification(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("all three thresholds met marks cold", func(t *testing.T) {
		decision := engine.Evaluate(Input{
			State:          models.ClassificationActive,
			LastLeadAt:     daysAgo(now, 91),
			LastTipAt:      daysAgo(now, 61),
			LastActivityAt: daysAgo(now, 181),
		}, now)

		assert.Equal(t, ActionMarkCold, decision.Action)
		assert.Equal(t, models.ReasonAutoClassified, decision.Reason)
		assert.Equal(t, models.FrequencySemiAnnual, decision.ReviewFrequency)
		assert.True(t, decision.Criteria.NoLeadThresholdMet)
		assert.True(t, decision.Criteria.NoTipThresholdMet)
		assert.True(t, decision.Criteria.NoActivityThresholdMet)
	})

	t.Run("no single criterion suffices", func(t *testing.T) {
		cases := map[string]Input{
			"only leads stale": {
				State:          models.ClassificationActive,
				LastLeadAt:     daysAgo(now, 120),
				LastTipAt:      daysAgo(now, 10),
				LastActivityAt: daysAgo(now, 10),
			},
			"only tips stale": {
				State:          models.ClassificationActive,
				LastLeadAt:     daysAgo(now, 10),
				LastTipAt:      daysAgo(now, 70),
				LastActivityAt: daysAgo(now, 10),
			},
			"only activity stale": {
				State:          models.ClassificationActive,
				LastLeadAt:     daysAgo(now, 10),
				LastTipAt:      daysAgo(now, 10),
				LastActivityAt: daysAgo(now, 200),
			},
			"two of three": {
				State:          models.ClassificationActive,
				LastLeadAt:     daysAgo(now, 120),
				LastTipAt:      daysAgo(now, 70),
				LastActivityAt: daysAgo(now, 100),
			},
		}

		for name, input := range cases {
			t.Run(name, func(t *testing.T) {
				decision := engine.Evaluate(input, now)
				assert.Equal(t, ActionNone, decision.Action)
			})
		}
	})

	t.Run("thresholds are inclusive", func(t *testing.T) {
		decision := engine.Evaluate(Input{
			State:          models.ClassificationActive,
			LastLeadAt:     daysAgo(now, 90),
			LastTipAt:      daysAgo(now, 60),
			LastActivityAt: daysAgo(now, 180),
		}, now)

		assert.Equal(t, ActionMarkCold, decision.Action)
	})

	t.Run("signals never recorded count as silent", func(t *testing.T) {
		decision := engine.Evaluate(Input{State: models.ClassificationActive}, now)

		assert.Equal(t, ActionMarkCold, decision.Action)
		assert.Equal(t, models.ReasonAutoClassified, decision.Reason)
	})
}

func TestEngine_ManualPrecedence(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	recent := Input{
		State:          models.ClassificationActive,
		LastLeadAt:     daysAgo(now, 1),
		LastTipAt:      daysAgo(now, 1),
		LastActivityAt: daysAgo(now, 1),
	}

	t.Run("manual marking dominates fresh activity", func(t *testing.T) {
		input := recent
		input.ManuallyMarkedCold = true

		decision := engine.Evaluate(input, now)
		assert.Equal(t, ActionMarkCold, decision.Action)
		assert.Equal(t, models.ReasonManual, decision.Reason)
	})

	t.Run("resource constraint dominates fresh activity", func(t *testing.T) {
		input := recent
		input.ResourceConstrained = true

		decision := engine.Evaluate(input, now)
		assert.Equal(t, ActionMarkCold, decision.Action)
		assert.Equal(t, models.ReasonResourceConstraint, decision.Reason)
	})

	t.Run("manual outranks resource constraint", func(t *testing.T) {
		input := recent
		input.ManuallyMarkedCold = true
		input.ResourceConstrained = true

		decision := engine.Evaluate(input, now)
		assert.Equal(t, models.ReasonManual, decision.Reason)
	})

	t.Run("approved revival outranks manual marking", func(t *testing.T) {
		input := Input{
			State:              models.ClassificationCold,
			LastLeadAt:         daysAgo(now, 400),
			LastTipAt:          daysAgo(now, 400),
			LastActivityAt:     daysAgo(now, 400),
			ManuallyMarkedCold: true,
			RevivalApproved:    true,
		}

		decision := engine.Evaluate(input, now)
		assert.Equal(t, ActionReactivate, decision.Action)
	})
}

func TestEngine_Reactivation(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("fresh activity reactivates an auto-classified case", func(t *testing.T) {
		decision := engine.Evaluate(Input{
			State:          models.ClassificationCold,
			LastLeadAt:     daysAgo(now, 400),
			LastTipAt:      daysAgo(now, 2), // campaign produced tips
			LastActivityAt: daysAgo(now, 2),
		}, now)

		assert.Equal(t, ActionReactivate, decision.Action)
	})

	t.Run("fresh activity does not reactivate a manually marked case", func(t *testing.T) {
		decision := engine.Evaluate(Input{
			State:              models.ClassificationCold,
			LastLeadAt:         daysAgo(now, 1),
			LastTipAt:          daysAgo(now, 1),
			LastActivityAt:     daysAgo(now, 1),
			ManuallyMarkedCold: true,
		}, now)

		assert.Equal(t, ActionNone, decision.Action)
	})
}

func TestEngine_Idempotence(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("already cold stays unchanged", func(t *testing.T) {
		input := Input{
			State:          models.ClassificationCold,
			LastLeadAt:     daysAgo(now, 91),
			LastTipAt:      daysAgo(now, 61),
			LastActivityAt: daysAgo(now, 181),
		}

		first := engine.Evaluate(input, now)
		second := engine.Evaluate(input, now)

		assert.Equal(t, ActionNone, first.Action)
		assert.Equal(t, first, second)
	})

	t.Run("already active stays unchanged", func(t *testing.T) {
		input := Input{
			State:          models.ClassificationActive,
			LastLeadAt:     daysAgo(now, 5),
			LastTipAt:      daysAgo(now, 5),
			LastActivityAt: daysAgo(now, 5),
		}

		decision := engine.Evaluate(input, now)
		assert.Equal(t, ActionNone, decision.Action)
	})
}

func TestFrequencyForSeverity(t *testing.T) {
	assert.Equal(t, models.FrequencyQuarterly, FrequencyForSeverity(true, false))
	assert.Equal(t, models.FrequencyQuarterly, FrequencyForSeverity(false, true))
	assert.Equal(t, models.FrequencySemiAnnual, FrequencyForSeverity(false, false))
}
