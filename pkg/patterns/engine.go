package patterns

import (
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
	"github.com/PresidentAnderson/locate-connect-sub007/pkg/normalizers"
)

// Weights are the dimension weights behind the combined similarity.
// They sum to 1 so the combined score stays in [0,1].
type Weights struct {
	Geographic  float64
	Temporal    float64
	Demographic float64
	Tags        float64
}

// DefaultWeights returns the production weighting: geography and shared
// circumstance tags carry most of the signal.
func DefaultWeights() Weights {
	return Weights{
		Geographic:  0.35,
		Temporal:    0.15,
		Demographic: 0.20,
		Tags:        0.30,
	}
}

// Config contains configuration for the pattern engine.
type Config struct {
	Weights       Weights
	RadiusKm      float64                 // geographic saturation radius
	MinConfidence models.ConfidenceBucket // matches below this are discarded
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Weights:       DefaultWeights(),
		RadiusKm:      50,
		MinConfidence: models.ConfidenceMedium,
	}
}

// Engine computes pairwise case similarity. Pure: no IO, deterministic.
type Engine struct {
	cfg Config
}

// NewEngine creates a pattern engine.
func NewEngine(cfg Config) *Engine {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = DefaultConfig().RadiusKm
	}
	return &Engine{cfg: cfg}
}

// Score compares two cases and returns the combined similarity in [0,1]
// with its per-dimension breakdown.
func (e *Engine) Score(source, candidate models.CaseFacts) (float64, models.PatternSubScores) {
	sub := models.PatternSubScores{
		Geographic:  e.geographic(source, candidate),
		Temporal:    e.temporal(source, candidate),
		Demographic: e.demographic(source, candidate),
		Tags:        e.tags(source, candidate),
	}

	w := e.cfg.Weights
	combined := sub.Geographic*w.Geographic +
		sub.Temporal*w.Temporal +
		sub.Demographic*w.Demographic +
		sub.Tags*w.Tags

	if combined < 0 {
		combined = 0
	}
	if combined > 1 {
		combined = 1
	}
	return combined, sub
}

// Meets reports whether a similarity clears the configured minimum
// confidence bucket.
func (e *Engine) Meets(similarity float64) bool {
	return models.BucketForSimilarity(similarity).AtLeast(e.cfg.MinConfidence)
}

// geographic scores haversine proximity, saturating past the radius. When
// either side lacks coordinates it falls back to fuzzy locality comparison,
// and to 0 when that is missing too.
func (e *Engine) geographic(a, b models.CaseFacts) float64 {
	if a.Latitude != nil && a.Longitude != nil && b.Latitude != nil && b.Longitude != nil {
		dist := HaversineKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
		if dist >= e.cfg.RadiusKm {
			return 0.0
		}
		return 1.0 - dist/e.cfg.RadiusKm
	}

	if a.Locality != "" && b.Locality != "" {
		return JaroWinkler(
			normalizers.NormalizeLocality(a.Locality),
			normalizers.NormalizeLocality(b.Locality),
		)
	}

	return 0.0
}

// temporal boosts same-season and same-day-of-week disappearances
func (e *Engine) temporal(a, b models.CaseFacts) float64 {
	if a.DisappearedOn == nil || b.DisappearedOn == nil {
		return 0.0
	}

	score := 0.0
	if season(*a.DisappearedOn) == season(*b.DisappearedOn) {
		score += 0.6
	}
	if a.DisappearedOn.Weekday() == b.DisappearedOn.Weekday() {
		score += 0.4
	}
	return score
}

// demographic scores age-bracket proximity and gender match
func (e *Engine) demographic(a, b models.CaseFacts) float64 {
	score := 0.0

	if a.AgeAtDisappearance != nil && b.AgeAtDisappearance != nil {
		gap := ageBracket(*a.AgeAtDisappearance) - ageBracket(*b.AgeAtDisappearance)
		if gap < 0 {
			gap = -gap
		}
		switch gap {
		case 0:
			score += 0.6
		case 1:
			score += 0.3
		}
	}

	if a.Gender != "" && a.Gender == b.Gender {
		score += 0.4
	}

	return score
}

// tags scores Jaccard overlap of the normalized tag sets
func (e *Engine) tags(a, b models.CaseFacts) float64 {
	return Jaccard(
		normalizers.NormalizeTags(a.CircumstanceTags),
		normalizers.NormalizeTags(b.CircumstanceTags),
	)
}
