package hr

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hrassist_back/erp"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := erp.NewStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())

	registry, err := NewRegistry(store, nil, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return registry
}

func dispatch(t *testing.T, r *Registry, name string, args Args) map[string]any {
	t.Helper()
	return r.Dispatch(context.Background(), name, args)
}

func requireSuccess(t *testing.T, payload map[string]any) {
	t.Helper()
	require.NotContains(t, payload, "error", "payload: %v", payload)
	require.Equal(t, true, payload["success"], "payload: %v", payload)
}

func createEmployee(t *testing.T, r *Registry, name string) uint {
	t.Helper()
	payload := dispatch(t, r, "create_employee", Args{"name": name})
	requireSuccess(t, payload)
	id, ok := payload["id"].(uint)
	require.True(t, ok)
	return id
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newTestRegistry(t)

	payload := dispatch(t, r, "launch_rocket", Args{})
	assert.Equal(t, "Unknown function: launch_rocket", payload["error"])
}

func TestDispatchMissingRequiredDoesNotMutate(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	payload := dispatch(t, r, "create_employee", Args{"work_email": "x@example.com"})
	assert.Equal(t, "name is required", payload["error"])

	count, err := r.store.Count(ctx, "employee", nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDispatchEmptyStringCountsAsMissing(t *testing.T) {
	r := newTestRegistry(t)

	payload := dispatch(t, r, "create_employee", Args{"name": ""})
	assert.Equal(t, "name is required", payload["error"])
}

func TestDispatchToleratesUnknownArguments(t *testing.T) {
	r := newTestRegistry(t)

	payload := dispatch(t, r, "create_employee", Args{
		"name":           "Alice Nguyen",
		"favorite_color": "green",
	})
	requireSuccess(t, payload)
}

func TestExecuteToolMalformedJSON(t *testing.T) {
	r := newTestRegistry(t)

	result := r.ExecuteTool(context.Background(), "create_employee", "{not json")
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &payload))
	assert.Equal(t, "name is required", payload["error"])
}

func TestGetEmployeesIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)

	createEmployee(t, r, "Alice Nguyen")
	createEmployee(t, r, "Bob Tran")

	first := dispatch(t, r, "get_employees", Args{})
	second := dispatch(t, r, "get_employees", Args{})
	requireSuccess(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first["count"])
}

func TestGetEmployeesFiltersInactive(t *testing.T) {
	r := newTestRegistry(t)

	id := createEmployee(t, r, "Alice Nguyen")
	createEmployee(t, r, "Bob Tran")

	requireSuccess(t, dispatch(t, r, "archive_employee", Args{"employee_id": float64(id)}))

	payload := dispatch(t, r, "get_employees", Args{})
	requireSuccess(t, payload)
	assert.Equal(t, 1, payload["count"])

	archived := dispatch(t, r, "get_employees", Args{"active": false})
	requireSuccess(t, archived)
	assert.Equal(t, 1, archived["count"])
}

func TestEmployeeDetailNotFound(t *testing.T) {
	r := newTestRegistry(t)

	payload := dispatch(t, r, "get_employee_detail", Args{"employee_id": float64(77)})
	assert.Equal(t, "employee not found", payload["error"])
}

func TestLeaveRequestLifecycle(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")
	typePayload := dispatch(t, r, "create_leave_type", Args{"name": "Annual Leave"})
	requireSuccess(t, typePayload)
	typeID := typePayload["id"].(uint)

	created := dispatch(t, r, "create_leave_request", Args{
		"employee_id":   float64(employeeID),
		"leave_type_id": float64(typeID),
		"date_from":     "2026-03-02",
		"date_to":       "2026-03-04",
	})
	requireSuccess(t, created)
	assert.Equal(t, "draft", created["state"])
	assert.Equal(t, 3.0, created["number_of_days"])
	requestID := created["id"].(uint)

	// Approval is not reachable from draft.
	blocked := dispatch(t, r, "approve_leave_request", Args{"request_id": float64(requestID)})
	assert.Contains(t, blocked["error"], "cannot be approved")

	submitted := dispatch(t, r, "submit_leave_request", Args{"request_id": float64(requestID)})
	requireSuccess(t, submitted)
	assert.Equal(t, "confirm", submitted["state"])

	again := dispatch(t, r, "submit_leave_request", Args{"request_id": float64(requestID)})
	assert.Contains(t, again["error"], "only draft requests can be submitted")

	first := dispatch(t, r, "approve_leave_request", Args{
		"request_id":   float64(requestID),
		"second_level": true,
	})
	requireSuccess(t, first)
	assert.Equal(t, "validate1", first["state"])

	final := dispatch(t, r, "approve_leave_request", Args{"request_id": float64(requestID)})
	requireSuccess(t, final)
	assert.Equal(t, "validate", final["state"])

	cancelled := dispatch(t, r, "cancel_leave_request", Args{"request_id": float64(requestID)})
	assert.Contains(t, cancelled["error"], "can no longer be cancelled")
}

func TestLeaveBalance(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")
	typePayload := dispatch(t, r, "create_leave_type", Args{"name": "Annual Leave"})
	requireSuccess(t, typePayload)
	typeID := typePayload["id"].(uint)

	requireSuccess(t, dispatch(t, r, "allocate_leave", Args{
		"employee_id":   float64(employeeID),
		"leave_type_id": float64(typeID),
		"days":          12.0,
	}))

	created := dispatch(t, r, "create_leave_request", Args{
		"employee_id":   float64(employeeID),
		"leave_type_id": float64(typeID),
		"date_from":     "2026-04-06",
		"date_to":       "2026-04-07",
	})
	requireSuccess(t, created)
	requestID := created["id"].(uint)
	requireSuccess(t, dispatch(t, r, "submit_leave_request", Args{"request_id": float64(requestID)}))
	requireSuccess(t, dispatch(t, r, "approve_leave_request", Args{"request_id": float64(requestID)}))

	payload := dispatch(t, r, "get_leave_balance", Args{"employee_id": float64(employeeID)})
	requireSuccess(t, payload)
	balances := payload["balances"].([]map[string]any)
	require.Len(t, balances, 1)
	assert.Equal(t, "Annual Leave", balances[0]["leave_type"])
	assert.Equal(t, 12.0, balances[0]["allocated"])
	assert.Equal(t, 2.0, balances[0]["taken"])
	assert.Equal(t, 10.0, balances[0]["remaining"])
}

func TestCheckinTwiceRejected(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")

	first := dispatch(t, r, "checkin_employee", Args{"employee_id": float64(employeeID)})
	requireSuccess(t, first)

	second := dispatch(t, r, "checkin_employee", Args{"employee_id": float64(employeeID)})
	assert.Contains(t, second["error"], "already checked in today")

	// After checking out, the same day allows a fresh check-in.
	requireSuccess(t, dispatch(t, r, "checkout_employee", Args{"employee_id": float64(employeeID)}))
	requireSuccess(t, dispatch(t, r, "checkin_employee", Args{"employee_id": float64(employeeID)}))
}

func TestCheckoutIgnoresStaleOpenAttendance(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02 15:04:05")
	requireSuccess(t, dispatch(t, r, "create_attendance_manual", Args{
		"employee_id": float64(employeeID),
		"check_in":    yesterday,
	}))

	payload := dispatch(t, r, "checkout_employee", Args{"employee_id": float64(employeeID)})
	assert.Contains(t, payload["error"], "no open attendance")
}

func TestCheckoutWithoutCheckin(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")

	payload := dispatch(t, r, "checkout_employee", Args{"employee_id": float64(employeeID)})
	assert.Contains(t, payload["error"], "no open attendance")
}

func TestMissingAttendanceReport(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")

	// Yesterday closed, today open, the day before yesterday absent.
	day := startOfDay(time.Now()).AddDate(0, 0, -1)
	requireSuccess(t, dispatch(t, r, "create_attendance_manual", Args{
		"employee_id": float64(employeeID),
		"check_in":    day.Add(8 * time.Hour).Format("2006-01-02 15:04:05"),
		"check_out":   day.Add(17 * time.Hour).Format("2006-01-02 15:04:05"),
	}))
	requireSuccess(t, dispatch(t, r, "checkin_employee", Args{"employee_id": float64(employeeID)}))

	payload := dispatch(t, r, "get_missing_attendance", Args{
		"employee_id": float64(employeeID),
		"date_from":   day.AddDate(0, 0, -1).Format("2006-01-02"),
	})
	requireSuccess(t, payload)
	missing := payload["missing_records"].([]map[string]any)
	require.Len(t, missing, 2)
	assert.Equal(t, "no check-in", missing[0]["reason"])
	assert.Equal(t, "no check-out", missing[1]["reason"])
}

func TestLeaveAnalytics(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")
	typePayload := dispatch(t, r, "create_leave_type", Args{"name": "Annual Leave"})
	requireSuccess(t, typePayload)
	typeID := typePayload["id"].(uint)

	first := dispatch(t, r, "create_leave_request", Args{
		"employee_id":   float64(employeeID),
		"leave_type_id": float64(typeID),
		"date_from":     "2026-05-04",
		"date_to":       "2026-05-06",
	})
	requireSuccess(t, first)
	firstID := first["id"].(uint)
	requireSuccess(t, dispatch(t, r, "submit_leave_request", Args{"request_id": float64(firstID)}))
	requireSuccess(t, dispatch(t, r, "approve_leave_request", Args{"request_id": float64(firstID)}))

	second := dispatch(t, r, "create_leave_request", Args{
		"employee_id":   float64(employeeID),
		"leave_type_id": float64(typeID),
		"date_from":     "2026-06-01",
		"date_to":       "2026-06-01",
	})
	requireSuccess(t, second)
	requireSuccess(t, dispatch(t, r, "submit_leave_request", Args{"request_id": float64(second["id"].(uint))}))

	payload := dispatch(t, r, "get_leave_analytics", Args{"employee_id": float64(employeeID)})
	requireSuccess(t, payload)
	assert.Equal(t, 2, payload["request_count"])
	assert.Equal(t, 4.0, payload["total_days"])
	assert.Equal(t, 3.0, payload["approved_days"])
	assert.Equal(t, 1.0, payload["pending_days"])
	byType := payload["by_type"].([]map[string]any)
	require.Len(t, byType, 1)
	assert.Equal(t, "Annual Leave", byType[0]["leave_type"])
}

func TestSkillCatalogAndAnalytics(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")
	typePayload := dispatch(t, r, "create_skill_type", Args{"name": "Languages"})
	requireSuccess(t, typePayload)
	typeID := typePayload["id"].(uint)

	junior := dispatch(t, r, "create_skill_level", Args{
		"skill_type_id": float64(typeID), "name": "Junior", "level_progress": float64(25),
	})
	requireSuccess(t, junior)
	requireSuccess(t, dispatch(t, r, "create_skill_level", Args{
		"skill_type_id": float64(typeID), "name": "Senior", "level_progress": float64(75),
	}))

	goSkill := dispatch(t, r, "create_skill", Args{"skill_type_id": float64(typeID), "name": "Go"})
	requireSuccess(t, goSkill)
	requireSuccess(t, dispatch(t, r, "create_skill", Args{"skill_type_id": float64(typeID), "name": "Python"}))

	requireSuccess(t, dispatch(t, r, "assign_employee_skill", Args{
		"employee_id":    float64(employeeID),
		"skill_id":       float64(goSkill["id"].(uint)),
		"skill_level_id": float64(junior["id"].(uint)),
	}))

	skills := dispatch(t, r, "get_skills", Args{"query": "go"})
	requireSuccess(t, skills)
	assert.Equal(t, 1, skills["count"])

	levels := dispatch(t, r, "get_skill_levels", Args{"skill_type_id": float64(typeID)})
	requireSuccess(t, levels)
	levelData := levels["skill_levels"].([]map[string]any)
	require.Len(t, levelData, 2)
	assert.Equal(t, "Junior", levelData[0]["name"])

	analytics := dispatch(t, r, "get_skills_analytics", Args{"skill_type_id": float64(typeID)})
	requireSuccess(t, analytics)
	assert.Equal(t, 2, analytics["skill_count"])
	assert.Equal(t, 1, analytics["assignment_count"])
	assert.Equal(t, 1, analytics["employee_count"])
}

func TestTimesheetAnalytics(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")
	for _, entry := range []struct {
		date  string
		hours float64
	}{
		{"2026-07-06", 4},
		{"2026-07-06", 3},
		{"2026-07-07", 8},
	} {
		requireSuccess(t, dispatch(t, r, "log_timesheet", Args{
			"employee_id": float64(employeeID),
			"date":        entry.date,
			"hours":       entry.hours,
			"description": "feature work",
		}))
	}

	payload := dispatch(t, r, "get_timesheet_analytics", Args{"employee_id": float64(employeeID)})
	requireSuccess(t, payload)
	assert.Equal(t, 15.0, payload["total_hours"])
	assert.Equal(t, 3, payload["entry_count"])
	assert.Equal(t, 7.5, payload["average_daily_hours"])
	byDay := payload["by_day"].([]map[string]any)
	require.Len(t, byDay, 2)
	assert.Equal(t, "2026-07-06", byDay[0]["date"])
	assert.Equal(t, 7.0, byDay[0]["hours"])
}

func TestSalaryRuleListing(t *testing.T) {
	r := newTestRegistry(t)

	structure := dispatch(t, r, "create_salary_structure", Args{"name": "Base Structure"})
	requireSuccess(t, structure)
	structureID := structure["id"].(uint)

	requireSuccess(t, dispatch(t, r, "add_salary_rule", Args{
		"structure_id":      float64(structureID),
		"name":              "Basic salary",
		"code":              "BASIC",
		"category":          "basic",
		"sequence":          float64(1),
		"amount_percentage": 100.0,
	}))
	requireSuccess(t, dispatch(t, r, "add_salary_rule", Args{
		"structure_id":      float64(structureID),
		"name":              "Income tax",
		"code":              "TAX",
		"category":          "deduction",
		"sequence":          float64(50),
		"amount_percentage": -10.0,
	}))

	payload := dispatch(t, r, "get_salary_rules", Args{"structure_id": float64(structureID)})
	requireSuccess(t, payload)
	rules := payload["rules"].([]map[string]any)
	require.Len(t, rules, 2)
	assert.Equal(t, "BASIC", rules[0]["code"])
	assert.Equal(t, "Base Structure", rules[0]["structure"])

	deductions := dispatch(t, r, "get_salary_rules", Args{"category": "deduction"})
	requireSuccess(t, deductions)
	assert.Equal(t, 1, deductions["count"])

	missing := dispatch(t, r, "get_salary_rules", Args{"structure_id": float64(4242)})
	assert.Equal(t, "salary structure not found", missing["error"])
}

func TestContractLifecycle(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")

	created := dispatch(t, r, "create_contract", Args{
		"employee_id": float64(employeeID),
		"name":        "CDI 2026",
		"date_start":  "2026-01-01",
		"wage":        2500.0,
	})
	requireSuccess(t, created)
	contractID := created["id"].(uint)

	// Termination is only reachable from open.
	blocked := dispatch(t, r, "terminate_contract", Args{"contract_id": float64(contractID)})
	require.Contains(t, blocked, "error")

	activated := dispatch(t, r, "activate_contract", Args{"contract_id": float64(contractID)})
	requireSuccess(t, activated)

	again := dispatch(t, r, "activate_contract", Args{"contract_id": float64(contractID)})
	require.Contains(t, again, "error")

	raised := dispatch(t, r, "update_contract_salary", Args{
		"contract_id": float64(contractID),
		"wage":        2800.0,
	})
	requireSuccess(t, raised)
	assert.Equal(t, 2500.0, raised["previous_wage"])

	terminated := dispatch(t, r, "terminate_contract", Args{
		"contract_id": float64(contractID),
		"reason":      "position eliminated",
	})
	requireSuccess(t, terminated)

	cancelled := dispatch(t, r, "cancel_contract", Args{"contract_id": float64(contractID)})
	require.Contains(t, cancelled, "error")
}

func TestHireApplicantIsTerminal(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	created := dispatch(t, r, "create_applicant", Args{
		"name":  "Carol Pham",
		"email": "carol@example.com",
	})
	requireSuccess(t, created)
	applicantID := created["id"].(uint)

	hired := dispatch(t, r, "hire_applicant", Args{"applicant_id": float64(applicantID)})
	requireSuccess(t, hired)
	employeeID := hired["employee_id"].(uint)
	require.NotZero(t, employeeID)

	employee, err := r.store.Read(ctx, "employee", employeeID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Carol Pham", employee["name"])
	assert.Equal(t, "carol@example.com", employee["work_email"])

	applicant, err := r.store.Read(ctx, "applicant", applicantID, nil)
	require.NoError(t, err)
	assert.Equal(t, false, applicant["active"])
	assert.Equal(t, employeeID, applicant["employee_id"])

	// Hired is terminal.
	again := dispatch(t, r, "hire_applicant", Args{"applicant_id": float64(applicantID)})
	assert.Contains(t, again["error"], "already been hired")
}

func TestRefuseApplicant(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	created := dispatch(t, r, "create_applicant", Args{"name": "Dan Vo"})
	requireSuccess(t, created)
	applicantID := created["id"].(uint)

	refused := dispatch(t, r, "refuse_applicant", Args{
		"applicant_id": float64(applicantID),
		"reason":       "position filled",
	})
	requireSuccess(t, refused)

	applicant, err := r.store.Read(ctx, "applicant", applicantID, nil)
	require.NoError(t, err)
	assert.Equal(t, false, applicant["active"])
	assert.Contains(t, applicant["description"], "position filled")

	hired := dispatch(t, r, "hire_applicant", Args{"applicant_id": float64(applicantID)})
	assert.Contains(t, hired["error"], "refused")
}

func TestNewReportCacheWithoutRedis(t *testing.T) {
	var cache *ReportCache = NewReportCache(nil)
	assert.Nil(t, cache)
}

func TestDashboardStats(t *testing.T) {
	r := newTestRegistry(t)

	employeeID := createEmployee(t, r, "Alice Nguyen")
	createEmployee(t, r, "Bob Tran")
	requireSuccess(t, dispatch(t, r, "create_department", Args{"name": "Engineering"}))
	requireSuccess(t, dispatch(t, r, "checkin_employee", Args{"employee_id": float64(employeeID)}))

	payload := dispatch(t, r, "get_dashboard_stats", Args{})
	requireSuccess(t, payload)
	assert.Equal(t, int64(2), payload["total_employees"])
	assert.Equal(t, int64(1), payload["total_departments"])
	assert.Equal(t, int64(1), payload["today_checkins"])
	assert.Equal(t, int64(0), payload["pending_leaves"])
	assert.Equal(t, "50.0%", payload["attendance_rate"])
}

func TestGlobalSearch(t *testing.T) {
	r := newTestRegistry(t)

	createEmployee(t, r, "Nguyen Van An")
	createEmployee(t, r, "Tran Thi Binh")

	payload := dispatch(t, r, "search_hr_global", Args{"query": "nguyen"})
	requireSuccess(t, payload)
	employees := payload["employees"].([]map[string]any)
	require.Len(t, employees, 1)
	assert.Equal(t, "Nguyen Van An", employees[0]["name"])
}
