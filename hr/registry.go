// Package hr holds the tool catalog the model may invoke and the operation
// handlers behind it. Handlers never panic across the dispatch boundary;
// domain failures come back as {"error": ...} payloads the model can read.
package hr

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

type handlerFunc func(ctx context.Context, args Args) map[string]any

type toolEntry struct {
	def llm.ToolDefinition
	fn  handlerFunc
}

// Registry is the immutable name→handler catalog, built once at module
// init and read-only afterwards.
type Registry struct {
	store   *erp.Store
	logger  *zap.Logger
	reports *ReportCache
	tools   map[string]toolEntry
	catalog []llm.ToolDefinition
}

// NewRegistry wires every HR domain's tools into one catalog.
func NewRegistry(store *erp.Store, reports *ReportCache, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		store:   store,
		logger:  logger.Named("hr"),
		reports: reports,
		tools:   make(map[string]toolEntry),
	}

	groups := [][]toolEntry{
		r.employeeTools(),
		r.departmentTools(),
		r.jobTools(),
		r.contractTools(),
		r.attendanceTools(),
		r.leaveTools(),
		r.payrollTools(),
		r.insuranceTools(),
		r.recruitmentTools(),
		r.skillTools(),
		r.timesheetTools(),
		r.reportTools(),
	}
	for _, group := range groups {
		for _, entry := range group {
			if _, exists := r.tools[entry.def.Name]; exists {
				return nil, fmt.Errorf("hr: duplicate tool %q", entry.def.Name)
			}
			r.tools[entry.def.Name] = entry
			r.catalog = append(r.catalog, entry.def)
		}
	}

	return r, nil
}

// Catalog returns the full descriptor list for the completion request.
func (r *Registry) Catalog() []llm.ToolDefinition {
	return r.catalog
}

// Dispatch runs the named tool. Unknown names and schema violations come
// back as error payloads, never as raised errors.
func (r *Registry) Dispatch(ctx context.Context, name string, args Args) map[string]any {
	entry, ok := r.tools[name]
	if !ok {
		return errorf("Unknown function: %s", name)
	}

	if payload := checkSchema(entry.def, args); payload != nil {
		return payload
	}

	result := entry.fn(ctx, args)
	if msg, failed := result["error"]; failed {
		r.logger.Debug("tool returned error", zap.String("tool", name), zap.Any("error", msg))
	}
	return result
}

// ExecuteTool parses a raw JSON argument string and dispatches. Malformed
// JSON is tolerated by substituting empty arguments; the schema check then
// reports any missing required fields back to the model.
func (r *Registry) ExecuteTool(ctx context.Context, name, argumentsJSON string) string {
	args := Args{}
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			args = Args{}
		}
	}

	payload := r.Dispatch(ctx, name, args)
	serialized, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("marshal tool result", zap.String("tool", name), zap.Error(err))
		return `{"error": "failed to serialize tool result"}`
	}
	return string(serialized)
}

// checkSchema validates arguments against the descriptor: required keys
// must be present, unknown keys are dropped for tolerance to model drift.
func checkSchema(def llm.ToolDefinition, args Args) map[string]any {
	properties, _ := def.Parameters["properties"].(map[string]any)
	required, _ := def.Parameters["required"].([]string)

	for _, field := range required {
		value, ok := args[field]
		if !ok || value == nil {
			return errorf("%s is required", field)
		}
		if text, isString := value.(string); isString && text == "" {
			return errorf("%s is required", field)
		}
	}

	for key := range args {
		if _, known := properties[key]; !known {
			delete(args, key)
		}
	}
	return nil
}

func errorf(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}
