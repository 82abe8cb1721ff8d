// Package normalizers provides field normalization for pattern matching:
// person names, locality names and circumstance tags are normalized before
// any comparison so that formatting noise never shows up as dissimilarity.
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("remove_whitespace", RemoveWhitespace)
	Register("remove_punctuation", RemovePunctuation)
	Register("nname", NormalizeName)
	Register("nlocality", NormalizeLocality)
	Register("ntag", NormalizeTag)
	Register("alphanumeric", Alphanumeric)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// RemovePunctuation removes all punctuation characters
func RemovePunctuation(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsPunct(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeName normalizes a person's name for comparison
// - Lowercase
// - Remove extra whitespace
// - Remove common suffixes (Jr., Sr., III, etc.)
// - Remove punctuation
func NormalizeName(s string) string {
	// Lowercase
	s = strings.ToLower(s)

	// Remove common suffixes
	suffixes := []string{" jr.", " jr", " sr.", " sr", " iii", " ii", " iv"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			s = s[:len(s)-len(suffix)]
		}
	}

	// Remove punctuation
	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// localityWords expands the abbreviated tokens that commonly diverge between
// the case repository and free-text locality fields.
var localityWords = map[string]string{
	"mt":  "mount",
	"st":  "saint",
	"pt":  "point",
	"nth": "north",
	"sth": "south",
	"upr": "upper",
	"lwr": "lower",
}

var localitySpaceRe = regexp.MustCompile(`\s+`)

// NormalizeLocality normalizes a locality/place name so fuzzy comparison
// sees "Mt. Isa" and "Mount Isa" as the same place.
func NormalizeLocality(s string) string {
	s = strings.ToLower(s)

	var cleaned strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			cleaned.WriteRune(r)
		}
	}

	words := strings.Fields(localitySpaceRe.ReplaceAllString(cleaned.String(), " "))
	for i, w := range words {
		if full, ok := localityWords[w]; ok {
			words[i] = full
		}
	}

	return strings.Join(words, " ")
}

// NormalizeTag canonicalizes a circumstance/modus-operandi tag to
// snake_case so Jaccard overlap compares meaning, not formatting.
func NormalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var result strings.Builder
	prevSep := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
			prevSep = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			if !prevSep && result.Len() > 0 {
				result.WriteRune('_')
				prevSep = true
			}
		}
	}

	return strings.TrimSuffix(result.String(), "_")
}

// NormalizeTags normalizes a tag set, dropping empties and duplicates while
// preserving first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var result []string
	for _, tag := range tags {
		n := NormalizeTag(tag)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
	}
	return result
}
