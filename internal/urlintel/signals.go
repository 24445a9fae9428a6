package urlintel

import (
	"encoding/json"
	"fmt"
)

// signals reads typed values out of an opaque raw-signal map. Missing keys
// read as zero values; present keys of the wrong type are errors. Numbers are
// accepted in any of the forms they take before and after a JSON round trip.
type signals map[string]any

func (s signals) has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s signals) flag(key string) (bool, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected bool, got %T", key, v)
	}
	return b, nil
}

func (s signals) num(key string) (float64, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("%s: expected number, got %T", key, v)
	}
}

func (s signals) listLen(key string) (int, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch l := v.(type) {
	case []string:
		return len(l), nil
	case []any:
		return len(l), nil
	default:
		return 0, fmt.Errorf("%s: expected list, got %T", key, v)
	}
}
