package hr

import (
	"strconv"
	"strings"
	"time"
)

// Args is the free-form argument object delivered by the model. The
// accessors below tolerate the type drift JSON decoding introduces
// (numbers arrive as float64, ids sometimes as strings).
type Args map[string]any

func (a Args) str(key string) (string, bool) {
	value, ok := a[key]
	if !ok {
		return "", false
	}
	text, ok := value.(string)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

func (a Args) id(key string) (uint, bool) {
	value, ok := a[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, false
		}
		return uint(parsed), true
	default:
		return 0, false
	}
}

func (a Args) number(key string) (float64, bool) {
	value, ok := a[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func (a Args) integer(key string) (int, bool) {
	value, ok := a.number(key)
	if !ok {
		return 0, false
	}
	return int(value), true
}

func (a Args) boolean(key string) (bool, bool) {
	value, ok := a[key]
	if !ok || value == nil {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}

// date accepts "2006-01-02" and RFC 3339 timestamps.
func (a Args) date(key string) (time.Time, bool) {
	text, ok := a.str(key)
	if !ok {
		return time.Time{}, false
	}
	if parsed, err := time.Parse("2006-01-02", text); err == nil {
		return parsed.UTC(), true
	}
	if parsed, err := time.Parse(time.RFC3339, text); err == nil {
		return parsed.UTC(), true
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05", text); err == nil {
		return parsed.UTC(), true
	}
	return time.Time{}, false
}

// limit returns the list cap, defaulting to 20.
func (a Args) limit() int {
	value, ok := a.integer("limit")
	if !ok || value <= 0 {
		return 20
	}
	return value
}
