package hr

import (
	"context"
	"fmt"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) leaveTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_leave_types",
				"List the configured leave types",
				nil,
				nil,
			),
			fn: r.getLeaveTypes,
		},
		{
			def: llm.NewToolDefinition(
				"create_leave_type",
				"Create a leave type",
				map[string]llm.ParameterProperty{
					"name":            {Type: "string", Description: "Leave type name"},
					"allocation_type": {Type: "string", Description: "How days are granted", Enum: []string{"fixed", "accrual", "no_limit"}},
				},
				[]string{"name"},
			),
			fn: r.createLeaveType,
		},
		{
			def: llm.NewToolDefinition(
				"allocate_leave",
				"Grant leave days to an employee for one leave type",
				map[string]llm.ParameterProperty{
					"employee_id":   {Type: "integer", Description: "The employee id"},
					"leave_type_id": {Type: "integer", Description: "The leave type id"},
					"days":          {Type: "number", Description: "Number of days to allocate"},
				},
				[]string{"employee_id", "leave_type_id", "days"},
			),
			fn: r.allocateLeave,
		},
		{
			def: llm.NewToolDefinition(
				"get_leave_requests",
				"List leave requests, optionally by employee or state",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"state":       {Type: "string", Description: "Request state to filter by", Enum: []string{"draft", "confirm", "validate1", "validate", "refuse", "cancel"}},
					"limit":       {Type: "integer", Description: "Maximum number of requests to return (default 20)"},
				},
				nil,
			),
			fn: r.getLeaveRequests,
		},
		{
			def: llm.NewToolDefinition(
				"create_leave_request",
				"Create a leave request in draft state",
				map[string]llm.ParameterProperty{
					"employee_id":   {Type: "integer", Description: "The employee id"},
					"leave_type_id": {Type: "integer", Description: "The leave type id"},
					"date_from":     {Type: "string", Description: "First day of leave (YYYY-MM-DD)"},
					"date_to":       {Type: "string", Description: "Last day of leave (YYYY-MM-DD)"},
					"reason":        {Type: "string", Description: "Reason for the leave"},
				},
				[]string{"employee_id", "leave_type_id", "date_from", "date_to"},
			),
			fn: r.createLeaveRequest,
		},
		{
			def: llm.NewToolDefinition(
				"submit_leave_request",
				"Submit a draft leave request for approval (draft to confirm)",
				map[string]llm.ParameterProperty{
					"request_id": {Type: "integer", Description: "The leave request id"},
				},
				[]string{"request_id"},
			),
			fn: r.submitLeaveRequest,
		},
		{
			def: llm.NewToolDefinition(
				"approve_leave_request",
				"Approve a submitted leave request",
				map[string]llm.ParameterProperty{
					"request_id":   {Type: "integer", Description: "The leave request id"},
					"second_level": {Type: "boolean", Description: "Route through a second approval step"},
				},
				[]string{"request_id"},
			),
			fn: r.approveLeaveRequest,
		},
		{
			def: llm.NewToolDefinition(
				"refuse_leave_request",
				"Refuse a submitted leave request",
				map[string]llm.ParameterProperty{
					"request_id": {Type: "integer", Description: "The leave request id"},
				},
				[]string{"request_id"},
			),
			fn: r.refuseLeaveRequest,
		},
		{
			def: llm.NewToolDefinition(
				"cancel_leave_request",
				"Cancel a leave request that has not been finalized",
				map[string]llm.ParameterProperty{
					"request_id": {Type: "integer", Description: "The leave request id"},
				},
				[]string{"request_id"},
			),
			fn: r.cancelLeaveRequest,
		},
		{
			def: llm.NewToolDefinition(
				"get_leave_analytics",
				"Aggregate leave days by type with approved, pending, and refused totals",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"date_from":   {Type: "string", Description: "Earliest leave start (YYYY-MM-DD)"},
					"date_to":     {Type: "string", Description: "Latest leave end (YYYY-MM-DD)"},
				},
				nil,
			),
			fn: r.getLeaveAnalytics,
		},
		{
			def: llm.NewToolDefinition(
				"get_leave_balance",
				"Report an employee's allocated, taken, and remaining leave days per type",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getLeaveBalance,
		},
	}
}

func (r *Registry) leavePayload(ctx context.Context, rec erp.Record) map[string]any {
	return map[string]any{
		"id":             recUint(rec, "id"),
		"name":           recStr(rec, "name"),
		"employee":       r.nameOf(ctx, "employee", rec, "employee_id"),
		"leave_type":     r.nameOf(ctx, "leave_type", rec, "leave_type_id"),
		"date_from":      formatDate(rec, "date_from"),
		"date_to":        formatDate(rec, "date_to"),
		"number_of_days": recFloat(rec, "number_of_days"),
		"state":          recStr(rec, "state"),
	}
}

func (r *Registry) getLeaveTypes(ctx context.Context, args Args) map[string]any {
	types, err := r.store.Search(ctx, "leave_type", nil, 0, "name")
	if err != nil {
		return storeError("leave_type", err)
	}

	data := make([]map[string]any, 0, len(types))
	for _, rec := range types {
		data = append(data, map[string]any{
			"id":              recUint(rec, "id"),
			"name":            recStr(rec, "name"),
			"allocation_type": recStr(rec, "allocation_type"),
		})
	}
	return map[string]any{"success": true, "leave_types": data, "count": len(data)}
}

func (r *Registry) createLeaveType(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	allocation, ok := args.str("allocation_type")
	if !ok {
		allocation = "fixed"
	}

	id, err := r.store.Create(ctx, "leave_type", erp.Record{
		"name":            name,
		"allocation_type": allocation,
	})
	if err != nil {
		return storeError("leave_type", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Leave type %s created (ID: %d)", name, id)}
}

func (r *Registry) allocateLeave(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	leaveTypeID, ok := args.id("leave_type_id")
	if !ok {
		return errorf("leave_type_id must be a positive integer")
	}
	days, ok := args.number("days")
	if !ok || days <= 0 {
		return errorf("days must be a positive number")
	}

	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}
	leaveType, err := r.store.Read(ctx, "leave_type", leaveTypeID, []string{"name"})
	if err != nil {
		return notFoundPayload("leave type")
	}

	id, err := r.store.Create(ctx, "leave_allocation", erp.Record{
		"employee_id":    employeeID,
		"leave_type_id":  leaveTypeID,
		"number_of_days": days,
	})
	if err != nil {
		return storeError("leave_allocation", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("Allocated %.1f days of %s to %s", days, recStr(leaveType, "name"), recStr(employee, "name")),
	}
}

func (r *Registry) getLeaveRequests(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}
	if state, ok := args.str("state"); ok {
		domain = append(domain, erp.F("state", "=", state))
	}

	requests, err := r.store.Search(ctx, "leave_request", domain, args.limit(), "date_from desc")
	if err != nil {
		return storeError("leave_request", err)
	}

	data := make([]map[string]any, 0, len(requests))
	for _, rec := range requests {
		data = append(data, r.leavePayload(ctx, rec))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) createLeaveRequest(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	leaveTypeID, ok := args.id("leave_type_id")
	if !ok {
		return errorf("leave_type_id must be a positive integer")
	}
	from, ok := args.date("date_from")
	if !ok {
		return errorf("date_from must be a date (YYYY-MM-DD)")
	}
	to, ok := args.date("date_to")
	if !ok {
		return errorf("date_to must be a date (YYYY-MM-DD)")
	}
	if to.Before(from) {
		return errorf("date_to must not be before date_from")
	}

	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}
	leaveType, err := r.store.Read(ctx, "leave_type", leaveTypeID, []string{"name"})
	if err != nil {
		return notFoundPayload("leave type")
	}

	days := to.Sub(from).Hours()/24 + 1
	name, ok := args.str("reason")
	if !ok {
		name = fmt.Sprintf("%s: %s", recStr(leaveType, "name"), recStr(employee, "name"))
	}

	id, err := r.store.Create(ctx, "leave_request", erp.Record{
		"name":           name,
		"employee_id":    employeeID,
		"leave_type_id":  leaveTypeID,
		"date_from":      from,
		"date_to":        to,
		"number_of_days": days,
		"state":          "draft",
	})
	if err != nil {
		return storeError("leave_request", err)
	}
	return map[string]any{
		"success":        true,
		"id":             id,
		"state":          "draft",
		"number_of_days": days,
		"summary":        fmt.Sprintf("Leave request for %s created (ID: %d, %.0f days)", recStr(employee, "name"), id, days),
	}
}

func (r *Registry) submitLeaveRequest(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("request_id")
	if !ok {
		return errorf("request_id must be a positive integer")
	}

	request, err := r.store.Read(ctx, "leave_request", id, nil)
	if err != nil {
		return notFoundPayload("leave request")
	}
	if state := recStr(request, "state"); state != "draft" {
		return errorf("leave request is in state %s, only draft requests can be submitted", state)
	}

	if err := r.store.Write(ctx, "leave_request", id, erp.Record{"state": "confirm"}); err != nil {
		return storeError("leave_request", err)
	}
	return map[string]any{"success": true, "state": "confirm", "summary": fmt.Sprintf("Leave request #%d submitted for approval", id)}
}

func (r *Registry) approveLeaveRequest(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("request_id")
	if !ok {
		return errorf("request_id must be a positive integer")
	}

	request, err := r.store.Read(ctx, "leave_request", id, nil)
	if err != nil {
		return notFoundPayload("leave request")
	}
	state := recStr(request, "state")
	if state != "confirm" && state != "validate1" {
		return errorf("leave request is in state %s and cannot be approved", state)
	}

	next := "validate"
	if secondLevel, _ := args.boolean("second_level"); secondLevel && state == "confirm" {
		next = "validate1"
	}

	if err := r.store.Write(ctx, "leave_request", id, erp.Record{"state": next}); err != nil {
		return storeError("leave_request", err)
	}
	summary := fmt.Sprintf("Leave request #%d approved", id)
	if next == "validate1" {
		summary = fmt.Sprintf("Leave request #%d passed first approval, awaiting final validation", id)
	}
	return map[string]any{"success": true, "state": next, "summary": summary}
}

func (r *Registry) refuseLeaveRequest(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("request_id")
	if !ok {
		return errorf("request_id must be a positive integer")
	}

	request, err := r.store.Read(ctx, "leave_request", id, nil)
	if err != nil {
		return notFoundPayload("leave request")
	}
	state := recStr(request, "state")
	if state != "confirm" && state != "validate1" {
		return errorf("leave request is in state %s and cannot be refused", state)
	}

	if err := r.store.Write(ctx, "leave_request", id, erp.Record{"state": "refuse"}); err != nil {
		return storeError("leave_request", err)
	}
	return map[string]any{"success": true, "state": "refuse", "summary": fmt.Sprintf("Leave request #%d refused", id)}
}

func (r *Registry) cancelLeaveRequest(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("request_id")
	if !ok {
		return errorf("request_id must be a positive integer")
	}

	request, err := r.store.Read(ctx, "leave_request", id, nil)
	if err != nil {
		return notFoundPayload("leave request")
	}
	state := recStr(request, "state")
	if state == "validate" || state == "refuse" || state == "cancel" {
		return errorf("leave request is in state %s and can no longer be cancelled", state)
	}

	if err := r.store.Write(ctx, "leave_request", id, erp.Record{"state": "cancel"}); err != nil {
		return storeError("leave_request", err)
	}
	return map[string]any{"success": true, "state": "cancel", "summary": fmt.Sprintf("Leave request #%d cancelled", id)}
}

func (r *Registry) getLeaveAnalytics(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}
	if from, ok := args.date("date_from"); ok {
		domain = append(domain, erp.F("date_from", ">=", from))
	}
	if to, ok := args.date("date_to"); ok {
		domain = append(domain, erp.F("date_to", "<=", to))
	}

	requests, err := r.store.Search(ctx, "leave_request", domain, 0, "date_from")
	if err != nil {
		return storeError("leave_request", err)
	}

	type bucket struct {
		count                             int
		total, approved, pending, refused float64
	}
	perType := map[uint]*bucket{}
	var overall bucket
	for _, rec := range requests {
		typeID := recUint(rec, "leave_type_id")
		b := perType[typeID]
		if b == nil {
			b = &bucket{}
			perType[typeID] = b
		}
		days := recFloat(rec, "number_of_days")
		for _, target := range []*bucket{b, &overall} {
			target.count++
			target.total += days
			switch recStr(rec, "state") {
			case "validate":
				target.approved += days
			case "confirm", "validate1":
				target.pending += days
			case "refuse":
				target.refused += days
			}
		}
	}

	byType := make([]map[string]any, 0, len(perType))
	for typeID, b := range perType {
		name := any(nil)
		if leaveType, err := r.store.Read(ctx, "leave_type", typeID, []string{"name"}); err == nil {
			name = recStr(leaveType, "name")
		}
		byType = append(byType, map[string]any{
			"leave_type":    name,
			"request_count": b.count,
			"total_days":    b.total,
			"approved_days": b.approved,
			"pending_days":  b.pending,
			"refused_days":  b.refused,
		})
	}

	return map[string]any{
		"success":       true,
		"request_count": overall.count,
		"total_days":    overall.total,
		"approved_days": overall.approved,
		"pending_days":  overall.pending,
		"refused_days":  overall.refused,
		"by_type":       byType,
	}
}

func (r *Registry) getLeaveBalance(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}

	types, err := r.store.Search(ctx, "leave_type", nil, 0, "name")
	if err != nil {
		return storeError("leave_type", err)
	}

	balances := make([]map[string]any, 0, len(types))
	for _, leaveType := range types {
		typeID := recUint(leaveType, "id")

		allocations, err := r.store.Search(ctx, "leave_allocation", erp.Domain{
			erp.F("employee_id", "=", employeeID),
			erp.F("leave_type_id", "=", typeID),
		}, 0, "id")
		if err != nil {
			return storeError("leave_allocation", err)
		}
		var allocated float64
		for _, rec := range allocations {
			allocated += recFloat(rec, "number_of_days")
		}

		taken := 0.0
		requests, err := r.store.Search(ctx, "leave_request", erp.Domain{
			erp.F("employee_id", "=", employeeID),
			erp.F("leave_type_id", "=", typeID),
			erp.F("state", "=", "validate"),
		}, 0, "id")
		if err != nil {
			return storeError("leave_request", err)
		}
		for _, rec := range requests {
			taken += recFloat(rec, "number_of_days")
		}

		if allocated == 0 && taken == 0 {
			continue
		}
		balances = append(balances, map[string]any{
			"leave_type": recStr(leaveType, "name"),
			"allocated":  allocated,
			"taken":      taken,
			"remaining":  allocated - taken,
		})
	}

	return map[string]any{
		"success":  true,
		"employee": recStr(employee, "name"),
		"balances": balances,
	}
}
