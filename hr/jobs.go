package hr

import (
	"context"
	"fmt"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) jobTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_jobs",
				"List job positions, optionally filtered by department",
				map[string]llm.ParameterProperty{
					"department_id": {Type: "integer", Description: "Department id to filter by"},
					"active":        {Type: "boolean", Description: "Filter by active flag (default true)"},
					"limit":         {Type: "integer", Description: "Maximum number of jobs to return (default 20)"},
				},
				nil,
			),
			fn: r.getJobs,
		},
		{
			def: llm.NewToolDefinition(
				"get_job_detail",
				"Get a job position including its description and requirements",
				map[string]llm.ParameterProperty{
					"job_id": {Type: "integer", Description: "The job id"},
				},
				[]string{"job_id"},
			),
			fn: r.getJobDetail,
		},
		{
			def: llm.NewToolDefinition(
				"create_job",
				"Create a new job position",
				map[string]llm.ParameterProperty{
					"name":               {Type: "string", Description: "Job position name"},
					"department_id":      {Type: "integer", Description: "Department id"},
					"expected_employees": {Type: "integer", Description: "Number of expected new hires (default 1)"},
					"description":        {Type: "string", Description: "Job description"},
					"requirements":       {Type: "string", Description: "Job requirements"},
				},
				[]string{"name"},
			),
			fn: r.createJob,
		},
		{
			def: llm.NewToolDefinition(
				"update_job",
				"Update a job position",
				map[string]llm.ParameterProperty{
					"job_id":             {Type: "integer", Description: "The job id"},
					"name":               {Type: "string", Description: "New name"},
					"department_id":      {Type: "integer", Description: "New department id"},
					"expected_employees": {Type: "integer", Description: "New expected hire count"},
					"description":        {Type: "string", Description: "New description"},
					"requirements":       {Type: "string", Description: "New requirements"},
				},
				[]string{"job_id"},
			),
			fn: r.updateJob,
		},
		{
			def: llm.NewToolDefinition(
				"archive_job",
				"Archive (deactivate) a job position",
				map[string]llm.ParameterProperty{
					"job_id": {Type: "integer", Description: "The job id"},
				},
				[]string{"job_id"},
			),
			fn: r.archiveJob,
		},
	}
}

func (r *Registry) getJobs(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if deptID, ok := args.id("department_id"); ok {
		domain = append(domain, erp.F("department_id", "=", deptID))
	}
	active, ok := args.boolean("active")
	if !ok {
		active = true
	}
	domain = append(domain, erp.F("active", "=", active))

	jobs, err := r.store.Search(ctx, "job", domain, args.limit(), "name")
	if err != nil {
		return storeError("job", err)
	}

	data := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		data = append(data, map[string]any{
			"id":                 recUint(job, "id"),
			"name":               recStr(job, "name"),
			"department":         r.nameOf(ctx, "department", job, "department_id"),
			"expected_employees": recUint(job, "expected_employees"),
			"active":             recBool(job, "active"),
		})
	}
	return map[string]any{"success": true, "jobs": data, "count": len(data)}
}

func (r *Registry) getJobDetail(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("job_id")
	if !ok {
		return errorf("job_id must be a positive integer")
	}

	job, err := r.store.Read(ctx, "job", id, nil)
	if err != nil {
		return notFoundPayload("job")
	}
	return map[string]any{
		"success": true,
		"job": map[string]any{
			"id":                 recUint(job, "id"),
			"name":               recStr(job, "name"),
			"department":         r.nameOf(ctx, "department", job, "department_id"),
			"expected_employees": recUint(job, "expected_employees"),
			"description":        recStr(job, "description"),
			"requirements":       recStr(job, "requirements"),
			"active":             recBool(job, "active"),
		},
	}
}

func (r *Registry) createJob(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	values := erp.Record{"name": name, "active": true, "expected_employees": 1}

	if deptID, ok := args.id("department_id"); ok {
		if _, err := r.store.Read(ctx, "department", deptID, nil); err != nil {
			return notFoundPayload("department")
		}
		values["department_id"] = deptID
	}
	if expected, ok := args.integer("expected_employees"); ok && expected > 0 {
		values["expected_employees"] = expected
	}
	if description, ok := args.str("description"); ok {
		values["description"] = description
	}
	if requirements, ok := args.str("requirements"); ok {
		values["requirements"] = requirements
	}

	id, err := r.store.Create(ctx, "job", values)
	if err != nil {
		return storeError("job", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("Job position %s created (ID: %d)", name, id),
	}
}

func (r *Registry) updateJob(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("job_id")
	if !ok {
		return errorf("job_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "job", id, nil); err != nil {
		return notFoundPayload("job")
	}

	values := erp.Record{}
	for _, key := range []string{"name", "description", "requirements"} {
		if value, ok := args.str(key); ok {
			values[key] = value
		}
	}
	if deptID, ok := args.id("department_id"); ok {
		values["department_id"] = deptID
	}
	if expected, ok := args.integer("expected_employees"); ok && expected > 0 {
		values["expected_employees"] = expected
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "job", id, values); err != nil {
		return storeError("job", err)
	}
	return map[string]any{"success": true, "summary": "Job position updated"}
}

func (r *Registry) archiveJob(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("job_id")
	if !ok {
		return errorf("job_id must be a positive integer")
	}

	job, err := r.store.Read(ctx, "job", id, []string{"name"})
	if err != nil {
		return notFoundPayload("job")
	}
	if err := r.store.Archive(ctx, "job", id); err != nil {
		return storeError("job", err)
	}
	return map[string]any{
		"success": true,
		"summary": fmt.Sprintf("Job position %s archived", recStr(job, "name")),
	}
}
