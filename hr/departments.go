package hr

import (
	"context"
	"fmt"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) departmentTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_departments",
				"List departments with manager and employee count",
				map[string]llm.ParameterProperty{
					"active": {Type: "boolean", Description: "Filter by active flag (default true)"},
				},
				nil,
			),
			fn: r.getDepartments,
		},
		{
			def: llm.NewToolDefinition(
				"create_department",
				"Create a new department",
				map[string]llm.ParameterProperty{
					"name":       {Type: "string", Description: "Department name"},
					"manager_id": {Type: "integer", Description: "Employee id of the department manager"},
				},
				[]string{"name"},
			),
			fn: r.createDepartment,
		},
		{
			def: llm.NewToolDefinition(
				"update_department",
				"Update a department's name or manager",
				map[string]llm.ParameterProperty{
					"department_id": {Type: "integer", Description: "The department id"},
					"name":          {Type: "string", Description: "New department name"},
					"manager_id":    {Type: "integer", Description: "New manager employee id"},
				},
				[]string{"department_id"},
			),
			fn: r.updateDepartment,
		},
		{
			def: llm.NewToolDefinition(
				"archive_department",
				"Archive (deactivate) a department",
				map[string]llm.ParameterProperty{
					"department_id": {Type: "integer", Description: "The department id"},
				},
				[]string{"department_id"},
			),
			fn: r.archiveDepartment,
		},
	}
}

func (r *Registry) getDepartments(ctx context.Context, args Args) map[string]any {
	active, ok := args.boolean("active")
	if !ok {
		active = true
	}

	departments, err := r.store.Search(ctx, "department", erp.Domain{erp.F("active", "=", active)}, 0, "name")
	if err != nil {
		return storeError("department", err)
	}

	data := make([]map[string]any, 0, len(departments))
	for _, dept := range departments {
		id := recUint(dept, "id")
		count, err := r.store.Count(ctx, "employee", erp.Domain{
			erp.F("department_id", "=", id),
			erp.F("active", "=", true),
		})
		if err != nil {
			return storeError("employee", err)
		}
		data = append(data, map[string]any{
			"id":             id,
			"name":           recStr(dept, "name"),
			"manager":        r.nameOf(ctx, "employee", dept, "manager_id"),
			"employee_count": count,
			"active":         recBool(dept, "active"),
		})
	}
	return map[string]any{"success": true, "departments": data, "count": len(data)}
}

func (r *Registry) createDepartment(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	values := erp.Record{"name": name, "active": true}

	if managerID, ok := args.id("manager_id"); ok {
		if _, err := r.store.Read(ctx, "employee", managerID, nil); err != nil {
			return notFoundPayload("employee")
		}
		values["manager_id"] = managerID
	}

	id, err := r.store.Create(ctx, "department", values)
	if err != nil {
		return storeError("department", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("Department %s created (ID: %d)", name, id),
	}
}

func (r *Registry) updateDepartment(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("department_id")
	if !ok {
		return errorf("department_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "department", id, nil); err != nil {
		return notFoundPayload("department")
	}

	values := erp.Record{}
	if name, ok := args.str("name"); ok {
		values["name"] = name
	}
	if managerID, ok := args.id("manager_id"); ok {
		if _, err := r.store.Read(ctx, "employee", managerID, nil); err != nil {
			return notFoundPayload("employee")
		}
		values["manager_id"] = managerID
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "department", id, values); err != nil {
		return storeError("department", err)
	}
	return map[string]any{"success": true, "summary": "Department updated"}
}

func (r *Registry) archiveDepartment(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("department_id")
	if !ok {
		return errorf("department_id must be a positive integer")
	}

	dept, err := r.store.Read(ctx, "department", id, []string{"name"})
	if err != nil {
		return notFoundPayload("department")
	}
	if err := r.store.Archive(ctx, "department", id); err != nil {
		return storeError("department", err)
	}
	return map[string]any{
		"success": true,
		"summary": fmt.Sprintf("Department %s archived", recStr(dept, "name")),
	}
}
