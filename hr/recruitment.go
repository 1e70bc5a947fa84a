package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) recruitmentTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_recruitment_stages",
				"List the recruitment pipeline stages in order",
				nil,
				nil,
			),
			fn: r.getRecruitmentStages,
		},
		{
			def: llm.NewToolDefinition(
				"get_applicants",
				"List applicants, optionally by job, stage, or active flag",
				map[string]llm.ParameterProperty{
					"job_id":   {Type: "integer", Description: "Job position id to filter by"},
					"stage_id": {Type: "integer", Description: "Recruitment stage id to filter by"},
					"active":   {Type: "boolean", Description: "Filter by active flag (default true)"},
					"limit":    {Type: "integer", Description: "Maximum number of applicants to return (default 20)"},
				},
				nil,
			),
			fn: r.getApplicants,
		},
		{
			def: llm.NewToolDefinition(
				"create_applicant",
				"Register a new applicant for a job position",
				map[string]llm.ParameterProperty{
					"name":   {Type: "string", Description: "Applicant full name"},
					"email":  {Type: "string", Description: "Applicant email"},
					"phone":  {Type: "string", Description: "Applicant phone"},
					"job_id": {Type: "integer", Description: "Job position applied for"},
				},
				[]string{"name"},
			),
			fn: r.createApplicant,
		},
		{
			def: llm.NewToolDefinition(
				"update_applicant",
				"Update an applicant's contact details or notes",
				map[string]llm.ParameterProperty{
					"applicant_id": {Type: "integer", Description: "The applicant id"},
					"name":         {Type: "string", Description: "New name"},
					"email":        {Type: "string", Description: "New email"},
					"phone":        {Type: "string", Description: "New phone"},
					"description":  {Type: "string", Description: "Interview notes"},
				},
				[]string{"applicant_id"},
			),
			fn: r.updateApplicant,
		},
		{
			def: llm.NewToolDefinition(
				"update_applicant_stage",
				"Move an applicant to another pipeline stage",
				map[string]llm.ParameterProperty{
					"applicant_id": {Type: "integer", Description: "The applicant id"},
					"stage_id":     {Type: "integer", Description: "The target stage id"},
				},
				[]string{"applicant_id", "stage_id"},
			),
			fn: r.updateApplicantStage,
		},
		{
			def: llm.NewToolDefinition(
				"hire_applicant",
				"Hire an applicant, creating the employee record",
				map[string]llm.ParameterProperty{
					"applicant_id": {Type: "integer", Description: "The applicant id"},
				},
				[]string{"applicant_id"},
			),
			fn: r.hireApplicant,
		},
		{
			def: llm.NewToolDefinition(
				"refuse_applicant",
				"Refuse an applicant with a reason",
				map[string]llm.ParameterProperty{
					"applicant_id": {Type: "integer", Description: "The applicant id"},
					"reason":       {Type: "string", Description: "Refusal reason"},
				},
				[]string{"applicant_id"},
			),
			fn: r.refuseApplicant,
		},
		{
			def: llm.NewToolDefinition(
				"get_recruitment_analytics",
				"Aggregate applicant counts per stage and per job",
				nil,
				nil,
			),
			fn: r.getRecruitmentAnalytics,
		},
	}
}

func (r *Registry) applicantPayload(ctx context.Context, rec erp.Record) map[string]any {
	payload := map[string]any{
		"id":     recUint(rec, "id"),
		"name":   recStr(rec, "name"),
		"email":  recStr(rec, "email"),
		"phone":  recStr(rec, "phone"),
		"job":    r.nameOf(ctx, "job", rec, "job_id"),
		"stage":  r.nameOf(ctx, "recruitment_stage", rec, "stage_id"),
		"active": recBool(rec, "active"),
	}
	if employeeID := recUint(rec, "employee_id"); employeeID != 0 {
		payload["hired_employee_id"] = employeeID
	}
	return payload
}

func (r *Registry) getRecruitmentStages(ctx context.Context, args Args) map[string]any {
	stages, err := r.store.Search(ctx, "recruitment_stage", nil, 0, "sequence")
	if err != nil {
		return storeError("recruitment_stage", err)
	}

	data := make([]map[string]any, 0, len(stages))
	for _, rec := range stages {
		data = append(data, map[string]any{
			"id":       recUint(rec, "id"),
			"name":     recStr(rec, "name"),
			"sequence": recUint(rec, "sequence"),
		})
	}
	return map[string]any{"success": true, "stages": data, "count": len(data)}
}

func (r *Registry) getApplicants(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if jobID, ok := args.id("job_id"); ok {
		domain = append(domain, erp.F("job_id", "=", jobID))
	}
	if stageID, ok := args.id("stage_id"); ok {
		domain = append(domain, erp.F("stage_id", "=", stageID))
	}
	active, ok := args.boolean("active")
	if !ok {
		active = true
	}
	domain = append(domain, erp.F("active", "=", active))

	applicants, err := r.store.Search(ctx, "applicant", domain, args.limit(), "id desc")
	if err != nil {
		return storeError("applicant", err)
	}

	data := make([]map[string]any, 0, len(applicants))
	for _, rec := range applicants {
		data = append(data, r.applicantPayload(ctx, rec))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

// firstStage returns the id of the lowest-sequence pipeline stage, 0 when none exist.
func (r *Registry) firstStage(ctx context.Context) (uint, error) {
	stages, err := r.store.Search(ctx, "recruitment_stage", nil, 1, "sequence")
	if err != nil {
		return 0, err
	}
	if len(stages) == 0 {
		return 0, nil
	}
	return recUint(stages[0], "id"), nil
}

func (r *Registry) createApplicant(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	values := erp.Record{"name": name, "active": true}

	if email, ok := args.str("email"); ok {
		values["email"] = email
	}
	if phone, ok := args.str("phone"); ok {
		values["phone"] = phone
	}
	if jobID, ok := args.id("job_id"); ok {
		job, err := r.store.Read(ctx, "job", jobID, nil)
		if err != nil {
			return notFoundPayload("job")
		}
		values["job_id"] = jobID
		if deptID := recUint(job, "department_id"); deptID != 0 {
			values["department_id"] = deptID
		}
	}
	if stageID, err := r.firstStage(ctx); err != nil {
		return storeError("recruitment_stage", err)
	} else if stageID != 0 {
		values["stage_id"] = stageID
	}

	id, err := r.store.Create(ctx, "applicant", values)
	if err != nil {
		return storeError("applicant", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Applicant %s registered (ID: %d)", name, id)}
}

func (r *Registry) updateApplicant(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("applicant_id")
	if !ok {
		return errorf("applicant_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "applicant", id, nil); err != nil {
		return notFoundPayload("applicant")
	}

	values := erp.Record{}
	for _, key := range []string{"name", "email", "phone", "description"} {
		if value, ok := args.str(key); ok {
			values[key] = value
		}
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "applicant", id, values); err != nil {
		return storeError("applicant", err)
	}
	return map[string]any{"success": true, "summary": "Applicant updated"}
}

func (r *Registry) updateApplicantStage(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("applicant_id")
	if !ok {
		return errorf("applicant_id must be a positive integer")
	}
	stageID, ok := args.id("stage_id")
	if !ok {
		return errorf("stage_id must be a positive integer")
	}

	applicant, err := r.store.Read(ctx, "applicant", id, nil)
	if err != nil {
		return notFoundPayload("applicant")
	}
	if !recBool(applicant, "active") {
		return errorf("applicant is no longer active")
	}
	if recUint(applicant, "employee_id") != 0 {
		return errorf("applicant has already been hired")
	}
	stage, err := r.store.Read(ctx, "recruitment_stage", stageID, []string{"name"})
	if err != nil {
		return notFoundPayload("recruitment stage")
	}

	if err := r.store.Write(ctx, "applicant", id, erp.Record{"stage_id": stageID}); err != nil {
		return storeError("applicant", err)
	}
	return map[string]any{
		"success": true,
		"stage":   recStr(stage, "name"),
		"summary": fmt.Sprintf("%s moved to stage %s", recStr(applicant, "name"), recStr(stage, "name")),
	}
}

func (r *Registry) hireApplicant(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("applicant_id")
	if !ok {
		return errorf("applicant_id must be a positive integer")
	}

	applicant, err := r.store.Read(ctx, "applicant", id, nil)
	if err != nil {
		return notFoundPayload("applicant")
	}
	if recUint(applicant, "employee_id") != 0 {
		return errorf("applicant has already been hired")
	}
	if !recBool(applicant, "active") {
		return errorf("applicant has been refused and cannot be hired")
	}

	values := erp.Record{
		"name":      recStr(applicant, "name"),
		"active":    true,
		"hire_date": time.Now().UTC().Truncate(24 * time.Hour),
	}
	if email := recStr(applicant, "email"); email != "" {
		values["work_email"] = email
	}
	if phone := recStr(applicant, "phone"); phone != "" {
		values["work_phone"] = phone
	}
	if deptID := recUint(applicant, "department_id"); deptID != 0 {
		values["department_id"] = deptID
	}
	if jobID := recUint(applicant, "job_id"); jobID != 0 {
		values["job_id"] = jobID
		if job, err := r.store.Read(ctx, "job", jobID, []string{"name"}); err == nil {
			values["job_title"] = recStr(job, "name")
		}
	}

	employeeID, err := r.store.Create(ctx, "employee", values)
	if err != nil {
		return storeError("employee", err)
	}
	if err := r.store.Write(ctx, "applicant", id, erp.Record{
		"employee_id": employeeID,
		"active":      false,
	}); err != nil {
		return storeError("applicant", err)
	}

	return map[string]any{
		"success":     true,
		"employee_id": employeeID,
		"summary":     fmt.Sprintf("%s hired as employee #%d", recStr(applicant, "name"), employeeID),
	}
}

func (r *Registry) refuseApplicant(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("applicant_id")
	if !ok {
		return errorf("applicant_id must be a positive integer")
	}

	applicant, err := r.store.Read(ctx, "applicant", id, nil)
	if err != nil {
		return notFoundPayload("applicant")
	}
	if recUint(applicant, "employee_id") != 0 {
		return errorf("applicant has already been hired")
	}
	if !recBool(applicant, "active") {
		return errorf("applicant has already been refused")
	}

	description := recStr(applicant, "description")
	if reason, ok := args.str("reason"); ok {
		if description != "" {
			description += "\n"
		}
		description += "Refused: " + reason
	}

	if err := r.store.Write(ctx, "applicant", id, erp.Record{
		"active":      false,
		"description": description,
	}); err != nil {
		return storeError("applicant", err)
	}
	return map[string]any{"success": true, "summary": fmt.Sprintf("%s refused", recStr(applicant, "name"))}
}

func (r *Registry) getRecruitmentAnalytics(ctx context.Context, args Args) map[string]any {
	stages, err := r.store.Search(ctx, "recruitment_stage", nil, 0, "sequence")
	if err != nil {
		return storeError("recruitment_stage", err)
	}

	perStage := make([]map[string]any, 0, len(stages))
	for _, stage := range stages {
		count, err := r.store.Count(ctx, "applicant", erp.Domain{
			erp.F("stage_id", "=", recUint(stage, "id")),
			erp.F("active", "=", true),
		})
		if err != nil {
			return storeError("applicant", err)
		}
		perStage = append(perStage, map[string]any{
			"stage": recStr(stage, "name"),
			"count": count,
		})
	}

	hired, err := r.store.Count(ctx, "applicant", erp.Domain{erp.F("employee_id", "!=", nil)})
	if err != nil {
		return storeError("applicant", err)
	}
	refused, err := r.store.Count(ctx, "applicant", erp.Domain{
		erp.F("active", "=", false),
		erp.F("employee_id", "=", nil),
	})
	if err != nil {
		return storeError("applicant", err)
	}
	total, err := r.store.Count(ctx, "applicant", nil)
	if err != nil {
		return storeError("applicant", err)
	}

	return map[string]any{
		"success":          true,
		"total_applicants": total,
		"hired":            hired,
		"refused":          refused,
		"per_stage":        perStage,
	}
}
