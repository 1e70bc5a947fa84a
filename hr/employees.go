package hr

import (
	"context"
	"fmt"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) employeeTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_employees",
				"List employees with optional department, name and active filters",
				map[string]llm.ParameterProperty{
					"department": {Type: "string", Description: "Department name to filter by (substring match)"},
					"name":       {Type: "string", Description: "Employee name to search for (substring match)"},
					"active":     {Type: "boolean", Description: "Filter by active flag (default true)"},
					"limit":      {Type: "integer", Description: "Maximum number of employees to return (default 20)"},
				},
				nil,
			),
			fn: r.getEmployees,
		},
		{
			def: llm.NewToolDefinition(
				"get_employee_detail",
				"Get detailed information about one employee",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getEmployeeDetail,
		},
		{
			def: llm.NewToolDefinition(
				"create_employee",
				"Create a new employee record",
				map[string]llm.ParameterProperty{
					"name":          {Type: "string", Description: "Full name of the employee"},
					"work_email":    {Type: "string", Description: "Work email address"},
					"work_phone":    {Type: "string", Description: "Work phone number"},
					"job_title":     {Type: "string", Description: "Job title"},
					"department_id": {Type: "integer", Description: "Department id to assign"},
					"job_id":        {Type: "integer", Description: "Job position id to assign"},
				},
				[]string{"name"},
			),
			fn: r.createEmployee,
		},
		{
			def: llm.NewToolDefinition(
				"update_employee",
				"Update fields on an existing employee",
				map[string]llm.ParameterProperty{
					"employee_id":   {Type: "integer", Description: "The employee id"},
					"name":          {Type: "string", Description: "New full name"},
					"work_email":    {Type: "string", Description: "New work email"},
					"work_phone":    {Type: "string", Description: "New work phone"},
					"job_title":     {Type: "string", Description: "New job title"},
					"department_id": {Type: "integer", Description: "New department id"},
					"job_id":        {Type: "integer", Description: "New job position id"},
					"manager_id":    {Type: "integer", Description: "New manager employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.updateEmployee,
		},
		{
			def: llm.NewToolDefinition(
				"archive_employee",
				"Archive (deactivate) an employee",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.archiveEmployee,
		},
		{
			def: llm.NewToolDefinition(
				"get_employee_status",
				"Get the current status of an employee: activity, presence, contract status, last attendance",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getEmployeeStatus,
		},
		{
			def: llm.NewToolDefinition(
				"update_employee_status",
				"Update employee status fields such as the active flag or departure date",
				map[string]llm.ParameterProperty{
					"employee_id":    {Type: "integer", Description: "The employee id"},
					"active":         {Type: "boolean", Description: "New active flag"},
					"departure_date": {Type: "string", Description: "Departure date (YYYY-MM-DD)"},
				},
				[]string{"employee_id"},
			),
			fn: r.updateEmployeeStatus,
		},
		{
			def: llm.NewToolDefinition(
				"get_employee_codes",
				"Get the social insurance (BHXH) and personal tax codes of an employee",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getEmployeeCodes,
		},
	}
}

func (r *Registry) getEmployees(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}

	active, ok := args.boolean("active")
	if !ok {
		active = true
	}
	domain = append(domain, erp.F("active", "=", active))

	if name, ok := args.str("name"); ok {
		domain = append(domain, erp.F("name", "ilike", name))
	}

	if department, ok := args.str("department"); ok {
		ids, err := r.departmentIDsByName(ctx, department)
		if err != nil {
			return storeError("employee", err)
		}
		if len(ids) == 0 {
			return map[string]any{"success": true, "data": []any{}, "count": 0}
		}
		domain = append(domain, erp.F("department_id", "in", ids))
	}

	employees, err := r.store.Search(ctx, "employee", domain, args.limit(), "name")
	if err != nil {
		return storeError("employee", err)
	}

	data := make([]map[string]any, 0, len(employees))
	for _, emp := range employees {
		data = append(data, map[string]any{
			"id":         recUint(emp, "id"),
			"name":       recStr(emp, "name"),
			"work_email": recStr(emp, "work_email"),
			"department": r.nameOf(ctx, "department", emp, "department_id"),
			"job_title":  recStr(emp, "job_title"),
			"active":     recBool(emp, "active"),
		})
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) departmentIDsByName(ctx context.Context, name string) ([]uint, error) {
	departments, err := r.store.Search(ctx, "department", erp.Domain{erp.F("name", "ilike", name)}, 0, "")
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(departments))
	for _, dept := range departments {
		ids = append(ids, recUint(dept, "id"))
	}
	return ids, nil
}

func (r *Registry) getEmployeeDetail(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}

	emp, err := r.store.Read(ctx, "employee", id, nil)
	if err != nil {
		return notFoundPayload("employee")
	}

	return map[string]any{
		"success": true,
		"employee": map[string]any{
			"id":                recUint(emp, "id"),
			"name":              recStr(emp, "name"),
			"work_email":        recStr(emp, "work_email"),
			"work_phone":        recStr(emp, "work_phone"),
			"job_title":         recStr(emp, "job_title"),
			"department":        r.nameOf(ctx, "department", emp, "department_id"),
			"job":               r.nameOf(ctx, "job", emp, "job_id"),
			"manager":           r.nameOf(ctx, "employee", emp, "manager_id"),
			"active":            recBool(emp, "active"),
			"hire_date":         formatDate(emp, "hire_date"),
			"departure_date":    formatDate(emp, "departure_date"),
			"bhxh_code":         recStr(emp, "bhxh_code"),
			"personal_tax_code": recStr(emp, "personal_tax_code"),
		},
	}
}

func (r *Registry) createEmployee(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	values := erp.Record{"name": name, "active": true}

	if email, ok := args.str("work_email"); ok {
		values["work_email"] = email
	}
	if phone, ok := args.str("work_phone"); ok {
		values["work_phone"] = phone
	}
	if title, ok := args.str("job_title"); ok {
		values["job_title"] = title
	}
	if deptID, ok := args.id("department_id"); ok {
		if _, err := r.store.Read(ctx, "department", deptID, nil); err != nil {
			return notFoundPayload("department")
		}
		values["department_id"] = deptID
	}
	if jobID, ok := args.id("job_id"); ok {
		if _, err := r.store.Read(ctx, "job", jobID, nil); err != nil {
			return notFoundPayload("job")
		}
		values["job_id"] = jobID
	}

	id, err := r.store.Create(ctx, "employee", values)
	if err != nil {
		return storeError("employee", err)
	}

	emp, err := r.store.Read(ctx, "employee", id, nil)
	if err != nil {
		return storeError("employee", err)
	}
	return map[string]any{
		"success":    true,
		"id":         id,
		"name":       recStr(emp, "name"),
		"department": r.nameOf(ctx, "department", emp, "department_id"),
		"job":        r.nameOf(ctx, "job", emp, "job_id"),
		"work_email": recStr(emp, "work_email"),
		"created":    true,
		"summary":    fmt.Sprintf("Employee %s created (ID: %d)", name, id),
	}
}

func (r *Registry) updateEmployee(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "employee", id, nil); err != nil {
		return notFoundPayload("employee")
	}

	values := erp.Record{}
	for _, key := range []string{"name", "work_email", "work_phone", "job_title"} {
		if value, ok := args.str(key); ok {
			values[key] = value
		}
	}
	for _, key := range []string{"department_id", "job_id", "manager_id"} {
		if value, ok := args.id(key); ok {
			values[key] = value
		}
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "employee", id, values); err != nil {
		return storeError("employee", err)
	}

	emp, _ := r.store.Read(ctx, "employee", id, []string{"name"})
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("Employee %s updated", recStr(emp, "name")),
	}
}

func (r *Registry) archiveEmployee(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}

	emp, err := r.store.Read(ctx, "employee", id, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}
	if err := r.store.Archive(ctx, "employee", id); err != nil {
		return storeError("employee", err)
	}
	return map[string]any{
		"success": true,
		"summary": fmt.Sprintf("Employee %s archived", recStr(emp, "name")),
	}
}

func (r *Registry) getEmployeeStatus(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}

	emp, err := r.store.Read(ctx, "employee", id, nil)
	if err != nil {
		return notFoundPayload("employee")
	}

	openCount, err := r.store.Count(ctx, "contract", erp.Domain{
		erp.F("employee_id", "=", id),
		erp.F("state", "=", "open"),
	})
	if err != nil {
		return storeError("contract", err)
	}
	contractStatus := "inactive"
	if openCount > 0 {
		contractStatus = "active"
	}

	openAttendance, err := r.store.Search(ctx, "attendance", erp.Domain{
		erp.F("employee_id", "=", id),
		erp.F("check_out", "=", nil),
	}, 1, "check_in desc")
	if err != nil {
		return storeError("attendance", err)
	}
	presence := "absent"
	if len(openAttendance) > 0 {
		presence = "present"
	}

	var lastAttendance any
	lastRecords, err := r.store.Search(ctx, "attendance", erp.Domain{
		erp.F("employee_id", "=", id),
	}, 1, "check_in desc")
	if err == nil && len(lastRecords) > 0 {
		if checkIn, ok := recTime(lastRecords[0], "check_in"); ok {
			lastAttendance = checkIn.Format("2006-01-02 15:04")
		}
	}

	return map[string]any{
		"success": true,
		"status": map[string]any{
			"active":          recBool(emp, "active"),
			"presence_state":  presence,
			"departure_date":  formatDate(emp, "departure_date"),
			"contract_status": contractStatus,
			"last_attendance": lastAttendance,
			"status_summary":  fmt.Sprintf("%s is %s with an %s contract", recStr(emp, "name"), presence, contractStatus),
		},
	}
}

func (r *Registry) updateEmployeeStatus(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "employee", id, nil); err != nil {
		return notFoundPayload("employee")
	}

	values := erp.Record{}
	if active, ok := args.boolean("active"); ok {
		values["active"] = active
	}
	if departure, ok := args.date("departure_date"); ok {
		values["departure_date"] = departure
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "employee", id, values); err != nil {
		return storeError("employee", err)
	}
	return map[string]any{"success": true, "summary": "Employee status updated"}
}

func (r *Registry) getEmployeeCodes(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}

	emp, err := r.store.Read(ctx, "employee", id, []string{"name", "bhxh_code", "personal_tax_code"})
	if err != nil {
		return notFoundPayload("employee")
	}
	return map[string]any{
		"success":           true,
		"name":              recStr(emp, "name"),
		"bhxh_code":         recStr(emp, "bhxh_code"),
		"personal_tax_code": recStr(emp, "personal_tax_code"),
	}
}
