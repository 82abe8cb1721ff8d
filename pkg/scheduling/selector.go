// Package scheduling creates and assigns cold-case reviews: a periodic pass
// driven by next_review_date, out-of-band reviews opened by signal triggers,
// and a deterministic reviewer rotation.
package scheduling

import (
	"sort"

	"github.com/Gobusters/ectolinq"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// Need describes what a case asks of its reviewer: the jurisdiction the
// reviewer must not be excluded from, and specializations that are preferred
// but never required.
type Need struct {
	Jurisdiction    string
	Specializations []string
}

// NeedsForProfile derives reviewer needs from the profile's case facts.
func NeedsForProfile(profile *models.CaseProfile) Need {
	facts := profile.Facts.GetValue()

	need := Need{Jurisdiction: facts.Jurisdiction}
	if facts.IsIndigenous {
		need.Specializations = append(need.Specializations, "indigenous_liaison")
	}
	if facts.IsMinor {
		need.Specializations = append(need.Specializations, "minors")
	}
	if facts.HighVulnerability {
		need.Specializations = append(need.Specializations, "high_vulnerability")
	}
	return need
}

// Select picks a reviewer for the case, or nil when nobody is eligible.
// Eligible means active, under max_concurrent_reviews, and not excluded for
// the case's jurisdiction. When any eligible reviewer shares a preferred
// specialization, the pool narrows to those. The pick is the lowest
// rotation_priority, tie-broken by earliest next_available_date (unset sorts
// first), then fewest current_assignments, then id. Same inputs, same pick.
func Select(reviewers []models.Reviewer, need Need) *models.Reviewer {
	pool := ectolinq.Filter(reviewers, func(r models.Reviewer) bool {
		if !r.IsActive || r.CurrentAssignments >= r.MaxConcurrentReviews {
			return false
		}
		return need.Jurisdiction == "" || !ectolinq.Contains(r.ExcludedJurisdictions, need.Jurisdiction)
	})
	if len(pool) == 0 {
		return nil
	}

	if len(need.Specializations) > 0 {
		specialized := ectolinq.Filter(pool, func(r models.Reviewer) bool {
			return hasOverlap(r.Specializations, need.Specializations)
		})
		if len(specialized) > 0 {
			pool = specialized
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.RotationPriority != b.RotationPriority {
			return a.RotationPriority < b.RotationPriority
		}
		switch {
		case a.NextAvailableDate == nil && b.NextAvailableDate != nil:
			return true
		case a.NextAvailableDate != nil && b.NextAvailableDate == nil:
			return false
		case a.NextAvailableDate != nil && b.NextAvailableDate != nil:
			if !a.NextAvailableDate.Equal(*b.NextAvailableDate) {
				return a.NextAvailableDate.Before(*b.NextAvailableDate)
			}
		}
		if a.CurrentAssignments != b.CurrentAssignments {
			return a.CurrentAssignments < b.CurrentAssignments
		}
		return a.ID < b.ID
	})

	picked := pool[0]
	return &picked
}

func hasOverlap(a, b []string) bool {
	for _, s := range a {
		if ectolinq.Contains(b, s) {
			return true
		}
	}
	return false
}
