package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
)

// Accessors for store records. Records are column-keyed maps; pointer
// columns are already dereferenced or nil.

func recStr(rec erp.Record, key string) string {
	value, _ := rec[key].(string)
	return value
}

func recUint(rec erp.Record, key string) uint {
	switch v := rec[key].(type) {
	case uint:
		return v
	case uint64:
		return uint(v)
	case int64:
		return uint(v)
	case int:
		return uint(v)
	case float64:
		return uint(v)
	default:
		return 0
	}
}

func recFloat(rec erp.Record, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	default:
		return 0
	}
}

func recBool(rec erp.Record, key string) bool {
	value, _ := rec[key].(bool)
	return value
}

func recTime(rec erp.Record, key string) (time.Time, bool) {
	value, ok := rec[key].(time.Time)
	return value, ok
}

func formatDate(rec erp.Record, key string) any {
	value, ok := recTime(rec, key)
	if !ok || value.IsZero() {
		return nil
	}
	return value.Format("2006-01-02")
}

func formatTime(rec erp.Record, key string) any {
	value, ok := recTime(rec, key)
	if !ok || value.IsZero() {
		return nil
	}
	return value.Format("15:04")
}

// nameOf resolves a foreign key to the related record's name for display.
// Missing or dangling references render as nil.
func (r *Registry) nameOf(ctx context.Context, model string, rec erp.Record, key string) any {
	if rec[key] == nil {
		return nil
	}
	id := recUint(rec, key)
	if id == 0 {
		return nil
	}
	related, err := r.store.Read(ctx, model, id, []string{"name"})
	if err != nil {
		return nil
	}
	return recStr(related, "name")
}

// storeError converts a store failure into a tool error payload,
// preserving NotFound phrasing for single-record lookups.
func storeError(model string, err error) map[string]any {
	return map[string]any{"error": fmt.Sprintf("%s operation failed: %v", model, err)}
}

func notFoundPayload(entity string) map[string]any {
	return map[string]any{"error": fmt.Sprintf("%s not found", entity)}
}
