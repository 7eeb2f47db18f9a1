// Package params reads typed values out of resolved action configs.
// Configs come from JSON documents or Go literals, so numbers may be any numeric kind.
package params

import (
	"fmt"
	"strconv"
	"time"
)

// String returns the string at key or def.
func String(config map[string]any, key, def string) string {
	if v, ok := config[key].(string); ok && v != "" {
		return v
	}

	return def
}

// Int returns the integer at key or def.
func Int(config map[string]any, key string, def int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}

// Bool reports whether the value at key is true or the string "true".
func Bool(config map[string]any, key string) bool {
	switch v := config[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)

		return b
	}

	return false
}

// StringSlice returns the strings at key. Non-string items are skipped.
func StringSlice(config map[string]any, key string) ([]string, bool) {
	switch v := config[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out, true
	}

	return nil, false
}

// Duration reads a Go duration string ("90s", "2h") or a number of seconds.
func Duration(config map[string]any, key string) (time.Duration, error) {
	switch v := config[key].(type) {
	case nil:
		return 0, fmt.Errorf("missing '%s'", key)
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			seconds, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return 0, fmt.Errorf("invalid duration '%s': %w", v, err)
			}

			d = time.Duration(seconds * float64(time.Second))
		}

		if d < 0 {
			return 0, fmt.Errorf("negative duration '%s'", v)
		}

		return d, nil
	case int, int32, int64, float32, float64:
		seconds := toFloat(v)
		if seconds < 0 {
			return 0, fmt.Errorf("negative duration %v", v)
		}

		return time.Duration(seconds * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

// Time parses an RFC 3339 timestamp at key.
func Time(config map[string]any, key string) (time.Time, error) {
	switch v := config[key].(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp '%s': %w", v, err)
		}

		return t.UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("missing '%s'", key)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}

	return 0
}
