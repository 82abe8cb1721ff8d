package models

import "time"

// LinkOrigin records how a linked-case edge came to exist
type LinkOrigin string

const (
	LinkOriginPattern LinkOrigin = "pattern"
	LinkOriginManual  LinkOrigin = "manual"
)

// LinkedCase is an undirected relation record between two profiles. The pair
// is stored ordered (profile_a_id < profile_b_id) so each link exists once.
type LinkedCase struct {
	ID             string     `json:"id" db:"id"`
	TenantID       string     `json:"tenant_id" db:"tenant_id"`
	ProfileAID     string     `json:"profile_a_id" db:"profile_a_id"`
	ProfileBID     string     `json:"profile_b_id" db:"profile_b_id"`
	Origin         LinkOrigin `json:"origin" db:"origin"`
	PatternMatchID *string    `json:"pattern_match_id,omitempty" db:"pattern_match_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// OrderedPair returns the two profile ids in storage order
func OrderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
