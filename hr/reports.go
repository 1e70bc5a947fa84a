package hr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

const (
	dashboardCacheKey     = "hr:dashboard"
	dashboardCacheTTL     = 30 * time.Second
	dashboardCacheTimeout = 300 * time.Millisecond
)

// ReportCache keeps aggregate report payloads in Redis for a short window
// so repeated dashboard questions within one conversation stay cheap.
// All operations are nil-safe: without Redis the reports recompute.
type ReportCache struct {
	client *redis.Client
}

// NewReportCache wraps a Redis client for report caching. A nil client
// yields a cache that always misses.
func NewReportCache(client *redis.Client) *ReportCache {
	if client == nil {
		return nil
	}
	return &ReportCache{client: client}
}

func (c *ReportCache) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), dashboardCacheTimeout)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= dashboardCacheTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, dashboardCacheTimeout)
}

func (c *ReportCache) get(ctx context.Context, key string) (map[string]any, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func (c *ReportCache) store(ctx context.Context, key string, payload map[string]any) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ctx, cancel := c.cacheContext(ctx)
	defer cancel()
	_ = c.client.Set(ctx, key, data, dashboardCacheTTL).Err()
}

func (r *Registry) reportTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_dashboard_stats",
				"Company-wide HR dashboard: headcount, check-ins, pending leaves, attendance rate",
				nil,
				nil,
			),
			fn: r.getDashboardStats,
		},
		{
			def: llm.NewToolDefinition(
				"search_hr_global",
				"Search employees and leave requests by a free-text query",
				map[string]llm.ParameterProperty{
					"query": {Type: "string", Description: "Text to search for"},
				},
				[]string{"query"},
			),
			fn: r.searchHRGlobal,
		},
	}
}

func (r *Registry) getDashboardStats(ctx context.Context, args Args) map[string]any {
	if cached, ok := r.reports.get(ctx, dashboardCacheKey); ok {
		return cached
	}

	totalEmployees, err := r.store.Count(ctx, "employee", erp.Domain{erp.F("active", "=", true)})
	if err != nil {
		return storeError("employee", err)
	}
	totalDepartments, err := r.store.Count(ctx, "department", erp.Domain{erp.F("active", "=", true)})
	if err != nil {
		return storeError("department", err)
	}

	today := startOfDay(time.Now())
	todayCheckins, err := r.store.Count(ctx, "attendance", erp.Domain{
		erp.F("check_in", ">=", today),
	})
	if err != nil {
		return storeError("attendance", err)
	}

	pendingLeaves, err := r.store.Count(ctx, "leave_request", erp.Domain{
		erp.F("state", "in", []string{"draft", "confirm"}),
	})
	if err != nil {
		return storeError("leave_request", err)
	}

	rate := 0.0
	if totalEmployees > 0 {
		rate = float64(todayCheckins) / float64(totalEmployees) * 100
	}

	payload := map[string]any{
		"success":           true,
		"total_employees":   totalEmployees,
		"total_departments": totalDepartments,
		"today_checkins":    todayCheckins,
		"pending_leaves":    pendingLeaves,
		"attendance_rate":   fmt.Sprintf("%.1f%%", rate),
	}
	r.reports.store(ctx, dashboardCacheKey, payload)
	return payload
}

func (r *Registry) searchHRGlobal(ctx context.Context, args Args) map[string]any {
	query, _ := args.str("query")

	employees, err := r.store.Search(ctx, "employee", erp.Domain{
		erp.Or(),
		erp.F("name", "ilike", query),
		erp.F("work_email", "ilike", query),
	}, 5, "name")
	if err != nil {
		return storeError("employee", err)
	}
	employeeData := make([]map[string]any, 0, len(employees))
	for _, rec := range employees {
		employeeData = append(employeeData, map[string]any{
			"id":         recUint(rec, "id"),
			"name":       recStr(rec, "name"),
			"work_email": recStr(rec, "work_email"),
			"job_title":  recStr(rec, "job_title"),
		})
	}

	leaves, err := r.store.Search(ctx, "leave_request", erp.Domain{
		erp.F("name", "ilike", query),
	}, 5, "date_from desc")
	if err != nil {
		return storeError("leave_request", err)
	}
	leaveData := make([]map[string]any, 0, len(leaves))
	for _, rec := range leaves {
		leaveData = append(leaveData, map[string]any{
			"id":        recUint(rec, "id"),
			"name":      recStr(rec, "name"),
			"employee":  r.nameOf(ctx, "employee", rec, "employee_id"),
			"state":     recStr(rec, "state"),
			"date_from": formatDate(rec, "date_from"),
		})
	}

	return map[string]any{
		"success":        true,
		"query":          query,
		"employees":      employeeData,
		"leave_requests": leaveData,
		"result_count":   len(employeeData) + len(leaveData),
	}
}
