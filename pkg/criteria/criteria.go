// Package criteria evaluates field conditions against attribute documents.
// Fields use dot notation for nested paths; conditions AND together.
// Checklist templates use it to decide which templates apply to a profile.
package criteria

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Supported operators
const (
	OpEquals   = "eq"
	OpNe       = "ne"
	OpContains = "contains" // array field contains value
	OpIn       = "in"       // field value is one of the options
	OpGte      = "gte"
	OpGt       = "gt"
	OpLte      = "lte"
	OpLt       = "lt"
	OpExists   = "exists" // field exists (value should be bool)
)

// Condition is a single field condition. An empty operator means equality.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// MatchesDocument reports whether the document satisfies every condition.
// An empty condition list matches everything.
func MatchesDocument(doc map[string]any, conditions []Condition) bool {
	for _, cond := range conditions {
		if !evaluateCondition(doc, cond) {
			return false
		}
	}
	return true
}

// MatchesJSON unmarshals raw JSON and evaluates the conditions against it.
// Malformed JSON matches nothing.
func MatchesJSON(raw json.RawMessage, conditions []Condition) bool {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false
	}
	return MatchesDocument(doc, conditions)
}

// getNestedValue retrieves a value from a nested map using dot notation
func getNestedValue(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")

	var current any = data
	for _, part := range parts {
		switch v := current.(type) {
		case map[string]any:
			val, exists := v[part]
			if !exists {
				return nil, false
			}
			current = val
		default:
			return nil, false
		}
	}

	return current, true
}

func evaluateCondition(data map[string]any, cond Condition) bool {
	value, exists := getNestedValue(data, cond.Field)

	switch cond.Operator {
	case OpEquals, "":
		if !exists {
			return false
		}
		return valuesEqual(value, cond.Value)

	case OpNe:
		if !exists {
			return true // non-existent != any value
		}
		return !valuesEqual(value, cond.Value)

	case OpExists:
		expectExists, ok := cond.Value.(bool)
		if !ok {
			return false
		}
		return exists == expectExists

	case OpContains:
		if !exists {
			return false
		}
		arr, ok := toSlice(value)
		if !ok {
			return false
		}
		for _, item := range arr {
			if valuesEqual(item, cond.Value) {
				return true
			}
		}
		return false

	case OpIn:
		if !exists {
			return false
		}
		options, ok := toSlice(cond.Value)
		if !ok {
			return false
		}
		for _, opt := range options {
			if valuesEqual(value, opt) {
				return true
			}
		}
		return false

	case OpGte, OpGt, OpLte, OpLt:
		if !exists {
			return false
		}
		return compareNumeric(value, cond.Operator, cond.Value)

	default:
		// Unknown operator
		return false
	}
}

// valuesEqual compares two values with type coercion
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	if reflect.DeepEqual(a, b) {
		return true
	}

	// Convert both to strings for comparison (handles type differences like float64 vs int)
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// toSlice converts an interface to []any
func toSlice(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		result := make([]any, len(arr))
		for i, s := range arr {
			result[i] = s
		}
		return result, true
	case []int:
		result := make([]any, len(arr))
		for i, n := range arr {
			result[i] = n
		}
		return result, true
	case []float64:
		result := make([]any, len(arr))
		for i, n := range arr {
			result[i] = n
		}
		return result, true
	default:
		val := reflect.ValueOf(v)
		if val.Kind() == reflect.Slice {
			result := make([]any, val.Len())
			for i := 0; i < val.Len(); i++ {
				result[i] = val.Index(i).Interface()
			}
			return result, true
		}
		return nil, false
	}
}

// compareNumeric performs numeric comparison
func compareNumeric(actual any, op string, expected any) bool {
	actualNum, ok := toFloat64(actual)
	if !ok {
		return false
	}

	expectedNum, ok := toFloat64(expected)
	if !ok {
		return false
	}

	switch op {
	case OpGte:
		return actualNum >= expectedNum
	case OpGt:
		return actualNum > expectedNum
	case OpLte:
		return actualNum <= expectedNum
	case OpLt:
		return actualNum < expectedNum
	default:
		return false
	}
}

// toFloat64 converts various types to float64
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
