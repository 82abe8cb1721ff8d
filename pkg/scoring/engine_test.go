package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func unprocessed(sig models.EvidenceSignificance) models.Evidence {
	return models.Evidence{
		Significance: sig,
		Verification: models.VerificationUnverified,
		Processed:    false,
	}
}

func confirmedMatch(c models.ConfidenceBucket) models.PatternMatch {
	return models.PatternMatch{Confidence: c, ReviewStatus: models.MatchConfirmed}
}

func TestEngine_CriticalEvidencePlusDNAMatch(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	result := engine.Score(Input{
		Evidence:  []models.Evidence{unprocessed(models.SignificanceCritical)},
		DNAStatus: models.DNAMatchFound,
	}, testNow)

	assert.Equal(t, 55.0, result.Score)
	require.Len(t, result.Factors, 2)
	assert.Equal(t, models.ScoreFactor{Factor: "evidence_critical", Weight: 25}, result.Factors[0])
	assert.Equal(t, models.ScoreFactor{Factor: "dna_match_found", Weight: 30}, result.Factors[1])
}

func TestEngine_EvidenceWeights(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	cases := []struct {
		significance models.EvidenceSignificance
		want         float64
	}{
		{models.SignificanceCritical, 25},
		{models.SignificanceHigh, 15},
		{models.SignificanceMedium, 8},
		{models.SignificanceLow, 3},
	}

	for _, tc := range cases {
		t.Run(string(tc.significance), func(t *testing.T) {
			result := engine.Score(Input{
				Evidence: []models.Evidence{unprocessed(tc.significance)},
			}, testNow)
			assert.Equal(t, tc.want, result.Score)
		})
	}
}

func TestEngine_EvidenceQualification(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("processed evidence is ignored", func(t *testing.T) {
		ev := unprocessed(models.SignificanceCritical)
		ev.Processed = true

		result := engine.Score(Input{Evidence: []models.Evidence{ev}}, testNow)
		assert.Equal(t, 0.0, result.Score)
		assert.Empty(t, result.Factors)
	})

	t.Run("rejected evidence never contributes", func(t *testing.T) {
		ev := unprocessed(models.SignificanceCritical)
		ev.Verification = models.VerificationRejected

		result := engine.Score(Input{Evidence: []models.Evidence{ev}}, testNow)
		assert.Equal(t, 0.0, result.Score)
	})

	t.Run("newly verified evidence contributes again", func(t *testing.T) {
		verifiedAt := testNow.Add(-10 * 24 * time.Hour)
		ev := models.Evidence{
			Significance: models.SignificanceHigh,
			Verification: models.VerificationVerified,
			Processed:    true,
			VerifiedAt:   &verifiedAt,
		}

		result := engine.Score(Input{Evidence: []models.Evidence{ev}}, testNow)
		assert.Equal(t, 15.0, result.Score)
	})

	t.Run("stale verification does not", func(t *testing.T) {
		verifiedAt := testNow.Add(-90 * 24 * time.Hour)
		ev := models.Evidence{
			Significance: models.SignificanceHigh,
			Verification: models.VerificationVerified,
			Processed:    true,
			VerifiedAt:   &verifiedAt,
		}

		result := engine.Score(Input{Evidence: []models.Evidence{ev}}, testNow)
		assert.Equal(t, 0.0, result.Score)
	})
}

func TestEngine_PatternMatches(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("only confirmed matches count", func(t *testing.T) {
		matches := []models.PatternMatch{
			{Confidence: models.ConfidenceVeryHigh, ReviewStatus: models.MatchUnreviewed},
			{Confidence: models.ConfidenceVeryHigh, ReviewStatus: models.MatchPossible},
			{Confidence: models.ConfidenceVeryHigh, ReviewStatus: models.MatchRejected},
			{Confidence: models.ConfidenceMedium, ReviewStatus: models.MatchConfirmed},
		}

		result := engine.Score(Input{PatternMatches: matches}, testNow)
		assert.Equal(t, 6.0, result.Score)
		require.Len(t, result.Factors, 1)
		assert.Equal(t, "pattern_medium", result.Factors[0].Factor)
	})

	t.Run("confidence weights", func(t *testing.T) {
		cases := []struct {
			confidence models.ConfidenceBucket
			want       float64
		}{
			{models.ConfidenceVeryHigh, 20},
			{models.ConfidenceHigh, 12},
			{models.ConfidenceMedium, 6},
			{models.ConfidenceLow, 2},
		}
		for _, tc := range cases {
			result := engine.Score(Input{
				PatternMatches: []models.PatternMatch{confirmedMatch(tc.confidence)},
			}, testNow)
			assert.Equal(t, tc.want, result.Score)
		}
	})
}

func TestEngine_DNAStatus(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	cases := []struct {
		status models.DNAStatus
		want   float64
	}{
		{models.DNAMatchFound, 30},
		{models.DNAResubmissionPending, 5},
		{models.DNAResubmitted, 5},
		{models.DNASubmitted, 0},
		{models.DNANoMatch, 0},
		{models.DNANotSubmitted, 0},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			result := engine.Score(Input{DNAStatus: tc.status}, testNow)
			assert.Equal(t, tc.want, result.Score)
		})
	}
}

func TestEngine_AnniversaryProximity(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("within thirty days before", func(t *testing.T) {
		anniversary := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
		result := engine.Score(Input{AnniversaryDate: &anniversary}, testNow)
		assert.Equal(t, 10.0, result.Score)
	})

	t.Run("within thirty days after", func(t *testing.T) {
		anniversary := time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC)
		result := engine.Score(Input{AnniversaryDate: &anniversary}, testNow)
		assert.Equal(t, 10.0, result.Score)
	})

	t.Run("outside the window", func(t *testing.T) {
		anniversary := time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC)
		result := engine.Score(Input{AnniversaryDate: &anniversary}, testNow)
		assert.Equal(t, 0.0, result.Score)
	})
}

func TestEngine_StagnationDecay(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("no decay within the first two years", func(t *testing.T) {
		becameColdAt := testNow.AddDate(-2, 0, 0).Add(24 * time.Hour)
		result := engine.Score(Input{
			Evidence:     []models.Evidence{unprocessed(models.SignificanceMedium)},
			BecameColdAt: &becameColdAt,
		}, testNow)
		assert.Equal(t, 8.0, result.Score)
	})

	t.Run("one point per full year beyond two", func(t *testing.T) {
		becameColdAt := testNow.AddDate(-5, 0, -1)
		result := engine.Score(Input{
			Evidence:     []models.Evidence{unprocessed(models.SignificanceCritical)},
			BecameColdAt: &becameColdAt,
		}, testNow)
		// 25 - 3 years of decay
		assert.Equal(t, 22.0, result.Score)

		last := result.Factors[len(result.Factors)-1]
		assert.Equal(t, models.ScoreFactor{Factor: "stagnation_decay", Weight: -3}, last)
	})

	t.Run("decay never drives the total negative", func(t *testing.T) {
		becameColdAt := testNow.AddDate(-12, 0, -1)
		result := engine.Score(Input{
			Evidence:     []models.Evidence{unprocessed(models.SignificanceLow)},
			BecameColdAt: &becameColdAt,
		}, testNow)
		assert.Equal(t, 0.0, result.Score)
	})
}

func TestEngine_VulnerabilityMultipliers(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	base := Input{Evidence: []models.Evidence{unprocessed(models.SignificanceCritical)}}

	t.Run("minor multiplier", func(t *testing.T) {
		input := base
		input.IsMinor = true
		result := engine.Score(input, testNow)
		assert.InDelta(t, 30.0, result.Score, 0.0001)
	})

	t.Run("indigenous multiplier", func(t *testing.T) {
		input := base
		input.IsIndigenous = true
		result := engine.Score(input, testNow)
		assert.InDelta(t, 28.75, result.Score, 0.0001)
	})

	t.Run("multipliers compound", func(t *testing.T) {
		input := base
		input.IsMinor = true
		input.IsIndigenous = true
		result := engine.Score(input, testNow)
		assert.InDelta(t, 34.5, result.Score, 0.0001)
	})

	t.Run("multiplier applies after decay", func(t *testing.T) {
		becameColdAt := testNow.AddDate(-3, 0, -1)
		input := Input{
			Evidence:     []models.Evidence{unprocessed(models.SignificanceCritical)},
			BecameColdAt: &becameColdAt,
			IsMinor:      true,
		}
		result := engine.Score(input, testNow)
		// (25 - 1) * 1.2, not 25*1.2 - 1
		assert.InDelta(t, 28.8, result.Score, 0.0001)
	})
}

func TestEngine_ClampAndDeterminism(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("score clamps at one hundred", func(t *testing.T) {
		input := Input{
			Evidence: []models.Evidence{
				unprocessed(models.SignificanceCritical),
				unprocessed(models.SignificanceCritical),
				unprocessed(models.SignificanceCritical),
			},
			DNAStatus: models.DNAMatchFound,
			IsMinor:   true,
		}
		result := engine.Score(input, testNow)
		assert.Equal(t, 100.0, result.Score)
	})

	t.Run("identical inputs reproduce the identical result", func(t *testing.T) {
		anniversary := time.Date(2018, 6, 20, 0, 0, 0, 0, time.UTC)
		becameColdAt := testNow.AddDate(-4, 0, 0)
		input := Input{
			Evidence: []models.Evidence{
				unprocessed(models.SignificanceHigh),
				unprocessed(models.SignificanceLow),
			},
			PatternMatches:  []models.PatternMatch{confirmedMatch(models.ConfidenceHigh)},
			DNAStatus:       models.DNAResubmitted,
			AnniversaryDate: &anniversary,
			BecameColdAt:    &becameColdAt,
			IsIndigenous:    true,
		}

		first := engine.Score(input, testNow)
		second := engine.Score(input, testNow)

		assert.Equal(t, first.Score, second.Score)
		assert.Equal(t, first.Factors, second.Factors)
		assert.GreaterOrEqual(t, first.Score, 0.0)
		assert.LessOrEqual(t, first.Score, 100.0)
	})
}
