package patterns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func factsAt(lat, lon float64, mutate func(*models.CaseFacts)) models.CaseFacts {
	f := models.CaseFacts{Latitude: ptrF(lat), Longitude: ptrF(lon)}
	if mutate != nil {
		mutate(&f)
	}
	return f
}

func TestHaversineKm(t *testing.T) {
	// Darwin to Katherine is roughly 270 km
	dist := HaversineKm(-12.4634, 130.8456, -14.4652, 132.2635)
	assert.InDelta(t, 270, dist, 15)

	assert.Zero(t, HaversineKm(-12.46, 130.84, -12.46, 130.84))
}

func TestEngine_Geographic(t *testing.T) {
	engine := NewEngine(DefaultConfig()) // 50km radius

	t.Run("proximity saturates past the radius", func(t *testing.T) {
		near := factsAt(-12.4634, 130.8456, nil)
		same := factsAt(-12.4634, 130.8456, nil)
		far := factsAt(-14.4652, 132.2635, nil)

		assert.InDelta(t, 1.0, engine.geographic(near, same), 0.001)
		assert.Zero(t, engine.geographic(near, far))
	})

	t.Run("locality fallback is fuzzy", func(t *testing.T) {
		a := models.CaseFacts{Locality: "Mt. Isa"}
		b := models.CaseFacts{Locality: "Mount Isa"}
		c := models.CaseFacts{Locality: "Cairns"}

		assert.InDelta(t, 1.0, engine.geographic(a, b), 0.001)
		assert.Less(t, engine.geographic(a, c), 0.7)
	})

	t.Run("no coordinates and no locality scores zero", func(t *testing.T) {
		assert.Zero(t, engine.geographic(models.CaseFacts{}, models.CaseFacts{Locality: "Cairns"}))
	})
}

func TestEngine_Temporal(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	jan6 := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)  // Monday, summer bucket
	feb3 := time.Date(2020, 2, 3, 0, 0, 0, 0, time.UTC)  // Monday, same bucket
	jul1 := time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)  // Wednesday, winter bucket

	t.Run("same season and weekday compound", func(t *testing.T) {
		a := models.CaseFacts{DisappearedOn: &jan6}
		b := models.CaseFacts{DisappearedOn: &feb3}
		assert.InDelta(t, 1.0, engine.temporal(a, b), 0.001)
	})

	t.Run("neither shared scores zero", func(t *testing.T) {
		a := models.CaseFacts{DisappearedOn: &jan6}
		b := models.CaseFacts{DisappearedOn: &jul1}
		assert.Zero(t, engine.temporal(a, b))
	})

	t.Run("missing dates score zero", func(t *testing.T) {
		assert.Zero(t, engine.temporal(models.CaseFacts{}, models.CaseFacts{DisappearedOn: &jan6}))
	})
}

func TestEngine_Demographic(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("same bracket and gender is full score", func(t *testing.T) {
		a := models.CaseFacts{AgeAtDisappearance: ptrI(15), Gender: "female"}
		b := models.CaseFacts{AgeAtDisappearance: ptrI(16), Gender: "female"}
		assert.InDelta(t, 1.0, engine.demographic(a, b), 0.001)
	})

	t.Run("adjacent bracket scores half", func(t *testing.T) {
		a := models.CaseFacts{AgeAtDisappearance: ptrI(15)}
		b := models.CaseFacts{AgeAtDisappearance: ptrI(20)}
		assert.InDelta(t, 0.3, engine.demographic(a, b), 0.001)
	})

	t.Run("unknown gender never matches", func(t *testing.T) {
		assert.Zero(t, engine.demographic(models.CaseFacts{}, models.CaseFacts{}))
	})
}

func TestEngine_Tags(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("normalization unifies formatting", func(t *testing.T) {
		a := models.CaseFacts{CircumstanceTags: []string{"Night-time", "near water"}}
		b := models.CaseFacts{CircumstanceTags: []string{"night time", "Near Water"}}
		assert.InDelta(t, 1.0, engine.tags(a, b), 0.001)
	})

	t.Run("partial overlap is jaccard", func(t *testing.T) {
		a := models.CaseFacts{CircumstanceTags: []string{"hitchhiking", "highway"}}
		b := models.CaseFacts{CircumstanceTags: []string{"highway", "vehicle"}}
		assert.InDelta(t, 1.0/3.0, engine.tags(a, b), 0.001)
	})

	t.Run("empty tag sets score zero", func(t *testing.T) {
		assert.Zero(t, engine.tags(models.CaseFacts{}, models.CaseFacts{CircumstanceTags: []string{"x"}}))
	})
}

func TestEngine_ScoreAndThreshold(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	t.Run("identical cases score near one", func(t *testing.T) {
		on := time.Date(2019, 8, 10, 0, 0, 0, 0, time.UTC)
		f := factsAt(-12.4634, 130.8456, func(f *models.CaseFacts) {
			f.AgeAtDisappearance = ptrI(24)
			f.Gender = "male"
			f.DisappearedOn = &on
			f.CircumstanceTags = []string{"fishing", "remote"}
		})

		similarity, sub := engine.Score(f, f)
		assert.InDelta(t, 1.0, similarity, 0.001)
		assert.InDelta(t, 1.0, sub.Geographic, 0.001)
		assert.InDelta(t, 1.0, sub.Tags, 0.001)
		assert.Equal(t, models.ConfidenceVeryHigh, models.BucketForSimilarity(similarity))
	})

	t.Run("deterministic", func(t *testing.T) {
		a := factsAt(-16.92, 145.77, func(f *models.CaseFacts) { f.Gender = "female" })
		b := factsAt(-16.95, 145.75, func(f *models.CaseFacts) { f.Gender = "female" })

		first, _ := engine.Score(a, b)
		for i := 0; i < 10; i++ {
			again, _ := engine.Score(a, b)
			assert.Equal(t, first, again)
		}
	})

	t.Run("below minimum confidence is discarded", func(t *testing.T) {
		assert.False(t, engine.Meets(0.39))
		assert.True(t, engine.Meets(0.4))
	})
}
