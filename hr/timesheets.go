package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) timesheetTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_projects",
				"List projects available for timesheet booking",
				map[string]llm.ParameterProperty{
					"active": {Type: "boolean", Description: "Filter by active flag (default true)"},
				},
				nil,
			),
			fn: r.getProjects,
		},
		{
			def: llm.NewToolDefinition(
				"create_project",
				"Create a project",
				map[string]llm.ParameterProperty{
					"name": {Type: "string", Description: "Project name"},
				},
				[]string{"name"},
			),
			fn: r.createProject,
		},
		{
			def: llm.NewToolDefinition(
				"archive_project",
				"Archive (deactivate) a project",
				map[string]llm.ParameterProperty{
					"project_id": {Type: "integer", Description: "The project id"},
				},
				[]string{"project_id"},
			),
			fn: r.archiveProject,
		},
		{
			def: llm.NewToolDefinition(
				"log_timesheet",
				"Log hours an employee worked on a task",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
					"date":        {Type: "string", Description: "Work date (YYYY-MM-DD), defaults to today"},
					"hours":       {Type: "number", Description: "Hours worked"},
					"description": {Type: "string", Description: "What was worked on"},
					"project_id":  {Type: "integer", Description: "Project the work belongs to"},
				},
				[]string{"employee_id", "hours", "description"},
			),
			fn: r.logTimesheet,
		},
		{
			def: llm.NewToolDefinition(
				"get_timesheets",
				"List timesheet entries by employee, project, or date range",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"project_id":  {Type: "integer", Description: "Project id to filter by"},
					"date_from":   {Type: "string", Description: "Earliest work date (YYYY-MM-DD)"},
					"date_to":     {Type: "string", Description: "Latest work date (YYYY-MM-DD)"},
					"limit":       {Type: "integer", Description: "Maximum number of entries to return (default 20)"},
				},
				nil,
			),
			fn: r.getTimesheets,
		},
		{
			def: llm.NewToolDefinition(
				"update_timesheet",
				"Correct a timesheet entry",
				map[string]llm.ParameterProperty{
					"timesheet_id": {Type: "integer", Description: "The timesheet entry id"},
					"hours":        {Type: "number", Description: "Corrected hours"},
					"description":  {Type: "string", Description: "Corrected description"},
					"date":         {Type: "string", Description: "Corrected work date (YYYY-MM-DD)"},
				},
				[]string{"timesheet_id"},
			),
			fn: r.updateTimesheet,
		},
		{
			def: llm.NewToolDefinition(
				"get_timesheet_analytics",
				"Aggregate booked hours per day for an employee, project, or date range",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"project_id":  {Type: "integer", Description: "Project id to filter by"},
					"date_from":   {Type: "string", Description: "Earliest work date (YYYY-MM-DD)"},
					"date_to":     {Type: "string", Description: "Latest work date (YYYY-MM-DD)"},
				},
				nil,
			),
			fn: r.getTimesheetAnalytics,
		},
		{
			def: llm.NewToolDefinition(
				"get_project_hours",
				"Summarize booked hours on a project per employee",
				map[string]llm.ParameterProperty{
					"project_id": {Type: "integer", Description: "The project id"},
				},
				[]string{"project_id"},
			),
			fn: r.getProjectHours,
		},
	}
}

func (r *Registry) getProjects(ctx context.Context, args Args) map[string]any {
	active, ok := args.boolean("active")
	if !ok {
		active = true
	}

	projects, err := r.store.Search(ctx, "project", erp.Domain{erp.F("active", "=", active)}, 0, "name")
	if err != nil {
		return storeError("project", err)
	}

	data := make([]map[string]any, 0, len(projects))
	for _, rec := range projects {
		data = append(data, map[string]any{
			"id":     recUint(rec, "id"),
			"name":   recStr(rec, "name"),
			"active": recBool(rec, "active"),
		})
	}
	return map[string]any{"success": true, "projects": data, "count": len(data)}
}

func (r *Registry) createProject(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	id, err := r.store.Create(ctx, "project", erp.Record{"name": name, "active": true})
	if err != nil {
		return storeError("project", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Project %s created (ID: %d)", name, id)}
}

func (r *Registry) archiveProject(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("project_id")
	if !ok {
		return errorf("project_id must be a positive integer")
	}
	project, err := r.store.Read(ctx, "project", id, []string{"name"})
	if err != nil {
		return notFoundPayload("project")
	}
	if err := r.store.Archive(ctx, "project", id); err != nil {
		return storeError("project", err)
	}
	return map[string]any{"success": true, "summary": fmt.Sprintf("Project %s archived", recStr(project, "name"))}
}

func (r *Registry) logTimesheet(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}

	hours, ok := args.number("hours")
	if !ok || hours <= 0 || hours > 24 {
		return errorf("hours must be between 0 and 24")
	}
	description, _ := args.str("description")

	date, ok := args.date("date")
	if !ok {
		date = startOfDay(time.Now())
	}

	values := erp.Record{
		"employee_id": employeeID,
		"date":        date,
		"name":        description,
		"unit_amount": hours,
	}
	if projectID, ok := args.id("project_id"); ok {
		project, err := r.store.Read(ctx, "project", projectID, nil)
		if err != nil {
			return notFoundPayload("project")
		}
		if !recBool(project, "active") {
			return errorf("project is archived, hours cannot be booked on it")
		}
		values["project_id"] = projectID
	}

	id, err := r.store.Create(ctx, "timesheet_line", values)
	if err != nil {
		return storeError("timesheet_line", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("%.1f hours logged for %s on %s", hours, recStr(employee, "name"), date.Format("2006-01-02")),
	}
}

func (r *Registry) getTimesheets(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}
	if projectID, ok := args.id("project_id"); ok {
		domain = append(domain, erp.F("project_id", "=", projectID))
	}
	if from, ok := args.date("date_from"); ok {
		domain = append(domain, erp.F("date", ">=", from))
	}
	if to, ok := args.date("date_to"); ok {
		domain = append(domain, erp.F("date", "<=", to))
	}

	entries, err := r.store.Search(ctx, "timesheet_line", domain, args.limit(), "date desc")
	if err != nil {
		return storeError("timesheet_line", err)
	}

	var total float64
	data := make([]map[string]any, 0, len(entries))
	for _, rec := range entries {
		hours := recFloat(rec, "unit_amount")
		total += hours
		data = append(data, map[string]any{
			"id":          recUint(rec, "id"),
			"employee":    r.nameOf(ctx, "employee", rec, "employee_id"),
			"project":     r.nameOf(ctx, "project", rec, "project_id"),
			"date":        formatDate(rec, "date"),
			"description": recStr(rec, "name"),
			"hours":       hours,
		})
	}
	return map[string]any{"success": true, "data": data, "count": len(data), "total_hours": total}
}

func (r *Registry) updateTimesheet(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("timesheet_id")
	if !ok {
		return errorf("timesheet_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "timesheet_line", id, nil); err != nil {
		return notFoundPayload("timesheet entry")
	}

	values := erp.Record{}
	if hours, ok := args.number("hours"); ok {
		if hours <= 0 || hours > 24 {
			return errorf("hours must be between 0 and 24")
		}
		values["unit_amount"] = hours
	}
	if description, ok := args.str("description"); ok {
		values["name"] = description
	}
	if date, ok := args.date("date"); ok {
		values["date"] = date
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "timesheet_line", id, values); err != nil {
		return storeError("timesheet_line", err)
	}
	return map[string]any{"success": true, "summary": fmt.Sprintf("Timesheet entry #%d updated", id)}
}

func (r *Registry) getTimesheetAnalytics(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}
	if projectID, ok := args.id("project_id"); ok {
		domain = append(domain, erp.F("project_id", "=", projectID))
	}
	if from, ok := args.date("date_from"); ok {
		domain = append(domain, erp.F("date", ">=", from))
	}
	if to, ok := args.date("date_to"); ok {
		domain = append(domain, erp.F("date", "<=", to))
	}

	entries, err := r.store.Search(ctx, "timesheet_line", domain, 0, "date")
	if err != nil {
		return storeError("timesheet_line", err)
	}

	type bucket struct {
		hours   float64
		entries int
	}
	perDay := map[string]*bucket{}
	var order []string
	var total float64
	for _, rec := range entries {
		date, ok := recTime(rec, "date")
		if !ok {
			continue
		}
		key := date.Format("2006-01-02")
		b := perDay[key]
		if b == nil {
			b = &bucket{}
			perDay[key] = b
			order = append(order, key)
		}
		hours := recFloat(rec, "unit_amount")
		b.hours += hours
		b.entries++
		total += hours
	}

	byDay := make([]map[string]any, 0, len(order))
	for _, key := range order {
		byDay = append(byDay, map[string]any{
			"date":    key,
			"hours":   perDay[key].hours,
			"entries": perDay[key].entries,
		})
	}
	average := 0.0
	if len(order) > 0 {
		average = total / float64(len(order))
	}

	return map[string]any{
		"success":             true,
		"by_day":              byDay,
		"day_count":           len(order),
		"entry_count":         len(entries),
		"total_hours":         total,
		"average_daily_hours": average,
	}
}

func (r *Registry) getProjectHours(ctx context.Context, args Args) map[string]any {
	projectID, ok := args.id("project_id")
	if !ok {
		return errorf("project_id must be a positive integer")
	}
	project, err := r.store.Read(ctx, "project", projectID, []string{"name"})
	if err != nil {
		return notFoundPayload("project")
	}

	entries, err := r.store.Search(ctx, "timesheet_line", erp.Domain{
		erp.F("project_id", "=", projectID),
	}, 0, "date")
	if err != nil {
		return storeError("timesheet_line", err)
	}

	perEmployee := map[uint]float64{}
	var total float64
	for _, rec := range entries {
		hours := recFloat(rec, "unit_amount")
		perEmployee[recUint(rec, "employee_id")] += hours
		total += hours
	}

	data := make([]map[string]any, 0, len(perEmployee))
	for employeeID, hours := range perEmployee {
		name := any(nil)
		if employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"}); err == nil {
			name = recStr(employee, "name")
		}
		data = append(data, map[string]any{"employee": name, "hours": hours})
	}

	return map[string]any{
		"success":      true,
		"project":      recStr(project, "name"),
		"total_hours":  total,
		"per_employee": data,
	}
}
