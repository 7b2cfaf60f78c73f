package alerting

import (
	"fmt"
	"strconv"
)

// Snapshot is an opaque metrics snapshot handed to rule conditions. Producers
// populate whatever keys they have; conditions read them through the typed
// accessors, which apply best-effort numeric coercion.
type Snapshot map[string]any

// Float returns the value under key coerced to float64. Missing or
// non-numeric values return ok=false.
func (s Snapshot) Float(key string) (float64, bool) {
	v, exists := s[key]
	if !exists {
		return 0, false
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int returns the value under key coerced to int64.
func (s Snapshot) Int(key string) (int64, bool) {
	f, ok := s.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// String returns the value under key rendered as a string.
func (s Snapshot) String(key string) (string, bool) {
	v, exists := s[key]
	if !exists {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}
