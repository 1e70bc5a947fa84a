package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

const standardWorkday = 8.0

func (r *Registry) attendanceTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"checkin_employee",
				"Check an employee in for today",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.checkinEmployee,
		},
		{
			def: llm.NewToolDefinition(
				"checkout_employee",
				"Check an employee out and compute worked hours",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.checkoutEmployee,
		},
		{
			def: llm.NewToolDefinition(
				"get_attendance_records",
				"List attendance records, optionally for one employee or date range",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"date_from":   {Type: "string", Description: "Earliest check-in date (YYYY-MM-DD)"},
					"date_to":     {Type: "string", Description: "Latest check-in date (YYYY-MM-DD)"},
					"limit":       {Type: "integer", Description: "Maximum number of records to return (default 20)"},
				},
				nil,
			),
			fn: r.getAttendanceRecords,
		},
		{
			def: llm.NewToolDefinition(
				"get_attendance_summary",
				"Summarize an employee's attendance with totals and recent records",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
					"date_from":   {Type: "string", Description: "Earliest check-in date (YYYY-MM-DD)"},
					"date_to":     {Type: "string", Description: "Latest check-in date (YYYY-MM-DD)"},
				},
				[]string{"employee_id"},
			),
			fn: r.getAttendanceSummary,
		},
		{
			def: llm.NewToolDefinition(
				"create_attendance_manual",
				"Create an attendance record with explicit check-in and check-out times",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
					"check_in":    {Type: "string", Description: "Check-in time (YYYY-MM-DD HH:MM:SS)"},
					"check_out":   {Type: "string", Description: "Check-out time (YYYY-MM-DD HH:MM:SS)"},
				},
				[]string{"employee_id", "check_in"},
			),
			fn: r.createAttendanceManual,
		},
		{
			def: llm.NewToolDefinition(
				"update_attendance",
				"Correct the times on an attendance record",
				map[string]llm.ParameterProperty{
					"attendance_id": {Type: "integer", Description: "The attendance record id"},
					"check_in":      {Type: "string", Description: "New check-in time (YYYY-MM-DD HH:MM:SS)"},
					"check_out":     {Type: "string", Description: "New check-out time (YYYY-MM-DD HH:MM:SS)"},
				},
				[]string{"attendance_id"},
			),
			fn: r.updateAttendance,
		},
		{
			def: llm.NewToolDefinition(
				"get_missing_attendance",
				"Report days in a range where an employee has no check-in or left a record without check-out",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
					"date_from":   {Type: "string", Description: "First day of the range (YYYY-MM-DD), defaults to a week ago"},
					"date_to":     {Type: "string", Description: "Last day of the range (YYYY-MM-DD), defaults to today"},
				},
				[]string{"employee_id"},
			),
			fn: r.getMissingAttendance,
		},
		{
			def: llm.NewToolDefinition(
				"get_overtime_records",
				"List attendance records that exceed the standard workday",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"limit":       {Type: "integer", Description: "Maximum number of records to return (default 20)"},
				},
				nil,
			),
			fn: r.getOvertimeRecords,
		},
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func (r *Registry) attendancePayload(ctx context.Context, rec erp.Record) map[string]any {
	payload := map[string]any{
		"id":           recUint(rec, "id"),
		"employee":     r.nameOf(ctx, "employee", rec, "employee_id"),
		"check_in":     nil,
		"check_out":    nil,
		"worked_hours": recFloat(rec, "worked_hours"),
	}
	if in, ok := recTime(rec, "check_in"); ok && !in.IsZero() {
		payload["check_in"] = in.Format("2006-01-02 15:04")
	}
	if out, ok := recTime(rec, "check_out"); ok && !out.IsZero() {
		payload["check_out"] = out.Format("2006-01-02 15:04")
	}
	return payload
}

func (r *Registry) checkinEmployee(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}
	name := recStr(employee, "name")

	// Only an open attendance blocks a new check-in; a completed one earlier
	// in the day does not.
	today := startOfDay(time.Now())
	count, err := r.store.Count(ctx, "attendance", erp.Domain{
		erp.F("employee_id", "=", employeeID),
		erp.F("check_in", ">=", today),
		erp.F("check_out", "=", nil),
	})
	if err != nil {
		return storeError("attendance", err)
	}
	if count > 0 {
		return errorf("%s already checked in today", name)
	}

	now := time.Now().UTC()
	id, err := r.store.Create(ctx, "attendance", erp.Record{
		"employee_id": employeeID,
		"check_in":    now,
	})
	if err != nil {
		return storeError("attendance", err)
	}
	return map[string]any{
		"success":  true,
		"id":       id,
		"check_in": now.Format("2006-01-02 15:04"),
		"summary":  fmt.Sprintf("%s checked in at %s", name, now.Format("15:04")),
	}
}

func (r *Registry) checkoutEmployee(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}
	name := recStr(employee, "name")

	// Checkout closes the open attendance from today only; stale open
	// records from earlier days are left for manual correction.
	open, err := r.store.Search(ctx, "attendance", erp.Domain{
		erp.F("employee_id", "=", employeeID),
		erp.F("check_in", ">=", startOfDay(time.Now())),
		erp.F("check_out", "=", nil),
	}, 1, "check_in desc")
	if err != nil {
		return storeError("attendance", err)
	}
	if len(open) == 0 {
		return errorf("%s has no open attendance to check out", name)
	}

	rec := open[0]
	checkIn, _ := recTime(rec, "check_in")
	now := time.Now().UTC()
	worked := now.Sub(checkIn).Hours()

	if err := r.store.Write(ctx, "attendance", recUint(rec, "id"), erp.Record{
		"check_out":    now,
		"worked_hours": worked,
	}); err != nil {
		return storeError("attendance", err)
	}

	result := map[string]any{
		"success":      true,
		"check_out":    now.Format("2006-01-02 15:04"),
		"worked_hours": worked,
		"overtime":     worked > standardWorkday,
		"summary":      fmt.Sprintf("%s checked out after %.1f hours", name, worked),
	}
	if worked > standardWorkday {
		result["overtime_hours"] = worked - standardWorkday
	}
	return result
}

func (r *Registry) getAttendanceRecords(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}
	if from, ok := args.date("date_from"); ok {
		domain = append(domain, erp.F("check_in", ">=", startOfDay(from)))
	}
	if to, ok := args.date("date_to"); ok {
		domain = append(domain, erp.F("check_in", "<", startOfDay(to).AddDate(0, 0, 1)))
	}

	records, err := r.store.Search(ctx, "attendance", domain, args.limit(), "check_in desc")
	if err != nil {
		return storeError("attendance", err)
	}

	data := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		data = append(data, r.attendancePayload(ctx, rec))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) getAttendanceSummary(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}

	domain := erp.Domain{erp.F("employee_id", "=", employeeID)}
	if from, ok := args.date("date_from"); ok {
		domain = append(domain, erp.F("check_in", ">=", startOfDay(from)))
	}
	if to, ok := args.date("date_to"); ok {
		domain = append(domain, erp.F("check_in", "<", startOfDay(to).AddDate(0, 0, 1)))
	}

	records, err := r.store.Search(ctx, "attendance", domain, 0, "check_in desc")
	if err != nil {
		return storeError("attendance", err)
	}

	var total, overtime float64
	days := 0
	for _, rec := range records {
		worked := recFloat(rec, "worked_hours")
		total += worked
		if worked > 0 {
			days++
		}
		if worked > standardWorkday {
			overtime += worked - standardWorkday
		}
	}
	average := 0.0
	if days > 0 {
		average = total / float64(days)
	}

	recent := make([]map[string]any, 0, 10)
	for i, rec := range records {
		if i >= 10 {
			break
		}
		recent = append(recent, r.attendancePayload(ctx, rec))
	}

	return map[string]any{
		"success":        true,
		"employee":       recStr(employee, "name"),
		"record_count":   len(records),
		"total_hours":    total,
		"average_hours":  average,
		"overtime_hours": overtime,
		"recent":         recent,
	}
}

func (r *Registry) createAttendanceManual(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "employee", employeeID, nil); err != nil {
		return notFoundPayload("employee")
	}

	checkIn, ok := args.date("check_in")
	if !ok {
		return errorf("check_in must be a timestamp (YYYY-MM-DD HH:MM:SS)")
	}

	values := erp.Record{"employee_id": employeeID, "check_in": checkIn}
	if checkOut, ok := args.date("check_out"); ok {
		if !checkOut.After(checkIn) {
			return errorf("check_out must be after check_in")
		}
		values["check_out"] = checkOut
		values["worked_hours"] = checkOut.Sub(checkIn).Hours()
	}

	id, err := r.store.Create(ctx, "attendance", values)
	if err != nil {
		return storeError("attendance", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Attendance record #%d created", id)}
}

func (r *Registry) updateAttendance(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("attendance_id")
	if !ok {
		return errorf("attendance_id must be a positive integer")
	}
	rec, err := r.store.Read(ctx, "attendance", id, nil)
	if err != nil {
		return notFoundPayload("attendance record")
	}

	checkIn, hasIn := recTime(rec, "check_in")
	checkOut, hasOut := recTime(rec, "check_out")
	values := erp.Record{}
	if value, ok := args.date("check_in"); ok {
		checkIn, hasIn = value, true
		values["check_in"] = value
	}
	if value, ok := args.date("check_out"); ok {
		checkOut, hasOut = value, true
		values["check_out"] = value
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}
	if hasIn && hasOut && !checkOut.IsZero() {
		if !checkOut.After(checkIn) {
			return errorf("check_out must be after check_in")
		}
		values["worked_hours"] = checkOut.Sub(checkIn).Hours()
	}

	if err := r.store.Write(ctx, "attendance", id, values); err != nil {
		return storeError("attendance", err)
	}
	return map[string]any{"success": true, "summary": fmt.Sprintf("Attendance record #%d updated", id)}
}

func (r *Registry) getMissingAttendance(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}

	to, ok := args.date("date_to")
	if !ok {
		to = time.Now()
	}
	to = startOfDay(to)
	from, ok := args.date("date_from")
	if !ok {
		from = to.AddDate(0, 0, -6)
	}
	from = startOfDay(from)
	if to.Before(from) {
		return errorf("date_to must not be before date_from")
	}

	records, err := r.store.Search(ctx, "attendance", erp.Domain{
		erp.F("employee_id", "=", employeeID),
		erp.F("check_in", ">=", from),
		erp.F("check_in", "<", to.AddDate(0, 0, 1)),
	}, 0, "check_in")
	if err != nil {
		return storeError("attendance", err)
	}

	type dayState struct{ present, closed bool }
	days := map[string]*dayState{}
	for _, rec := range records {
		in, ok := recTime(rec, "check_in")
		if !ok {
			continue
		}
		key := startOfDay(in).Format("2006-01-02")
		state := days[key]
		if state == nil {
			state = &dayState{}
			days[key] = state
		}
		state.present = true
		if out, ok := recTime(rec, "check_out"); ok && !out.IsZero() {
			state.closed = true
		}
	}

	missing := make([]map[string]any, 0)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		switch state := days[key]; {
		case state == nil:
			missing = append(missing, map[string]any{"date": key, "reason": "no check-in"})
		case !state.closed:
			missing = append(missing, map[string]any{"date": key, "reason": "no check-out"})
		}
	}

	return map[string]any{
		"success":         true,
		"employee":        recStr(employee, "name"),
		"date_from":       from.Format("2006-01-02"),
		"date_to":         to.Format("2006-01-02"),
		"missing_records": missing,
		"count":           len(missing),
	}
}

func (r *Registry) getOvertimeRecords(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{erp.F("worked_hours", ">", standardWorkday)}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}

	records, err := r.store.Search(ctx, "attendance", domain, args.limit(), "check_in desc")
	if err != nil {
		return storeError("attendance", err)
	}

	data := make([]map[string]any, 0, len(records))
	var total float64
	for _, rec := range records {
		payload := r.attendancePayload(ctx, rec)
		extra := recFloat(rec, "worked_hours") - standardWorkday
		payload["overtime_hours"] = extra
		total += extra
		data = append(data, payload)
	}
	return map[string]any{"success": true, "data": data, "count": len(data), "total_overtime_hours": total}
}
