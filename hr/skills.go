package hr

import (
	"context"
	"fmt"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) skillTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_skill_types",
				"List skill types with their levels and skills",
				nil,
				nil,
			),
			fn: r.getSkillTypes,
		},
		{
			def: llm.NewToolDefinition(
				"create_skill_type",
				"Create a skill type grouping related skills",
				map[string]llm.ParameterProperty{
					"name": {Type: "string", Description: "Skill type name, e.g. Languages"},
				},
				[]string{"name"},
			),
			fn: r.createSkillType,
		},
		{
			def: llm.NewToolDefinition(
				"create_skill_level",
				"Add a proficiency level to a skill type",
				map[string]llm.ParameterProperty{
					"skill_type_id":  {Type: "integer", Description: "The skill type id"},
					"name":           {Type: "string", Description: "Level name, e.g. Advanced"},
					"level_progress": {Type: "integer", Description: "Progress percentage from 0 to 100"},
				},
				[]string{"skill_type_id", "name", "level_progress"},
			),
			fn: r.createSkillLevel,
		},
		{
			def: llm.NewToolDefinition(
				"create_skill",
				"Add a skill under a skill type",
				map[string]llm.ParameterProperty{
					"skill_type_id": {Type: "integer", Description: "The skill type id"},
					"name":          {Type: "string", Description: "Skill name, e.g. Go"},
				},
				[]string{"skill_type_id", "name"},
			),
			fn: r.createSkill,
		},
		{
			def: llm.NewToolDefinition(
				"get_skills",
				"List skills, optionally restricted to one skill type or a name search",
				map[string]llm.ParameterProperty{
					"skill_type_id": {Type: "integer", Description: "Skill type id to filter by"},
					"query":         {Type: "string", Description: "Text to match against skill names"},
				},
				nil,
			),
			fn: r.getSkills,
		},
		{
			def: llm.NewToolDefinition(
				"get_skill_levels",
				"List proficiency levels, optionally for one skill type",
				map[string]llm.ParameterProperty{
					"skill_type_id": {Type: "integer", Description: "Skill type id to filter by"},
				},
				nil,
			),
			fn: r.getSkillLevels,
		},
		{
			def: llm.NewToolDefinition(
				"get_skills_analytics",
				"Summarize how many employees hold each skill",
				map[string]llm.ParameterProperty{
					"skill_type_id": {Type: "integer", Description: "Skill type id to filter by"},
				},
				nil,
			),
			fn: r.getSkillsAnalytics,
		},
		{
			def: llm.NewToolDefinition(
				"assign_employee_skill",
				"Assign a skill and level to an employee, updating the level if already assigned",
				map[string]llm.ParameterProperty{
					"employee_id":    {Type: "integer", Description: "The employee id"},
					"skill_id":       {Type: "integer", Description: "The skill id"},
					"skill_level_id": {Type: "integer", Description: "The proficiency level id"},
				},
				[]string{"employee_id", "skill_id", "skill_level_id"},
			),
			fn: r.assignEmployeeSkill,
		},
		{
			def: llm.NewToolDefinition(
				"get_employee_skills",
				"List an employee's skills with levels",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getEmployeeSkills,
		},
		{
			def: llm.NewToolDefinition(
				"find_employees_by_skill",
				"Find employees who have a given skill",
				map[string]llm.ParameterProperty{
					"skill_id": {Type: "integer", Description: "The skill id"},
				},
				[]string{"skill_id"},
			),
			fn: r.findEmployeesBySkill,
		},
	}
}

func (r *Registry) getSkillTypes(ctx context.Context, args Args) map[string]any {
	types, err := r.store.Search(ctx, "skill_type", nil, 0, "name")
	if err != nil {
		return storeError("skill_type", err)
	}

	data := make([]map[string]any, 0, len(types))
	for _, skillType := range types {
		typeID := recUint(skillType, "id")

		levels, err := r.store.Search(ctx, "skill_level", erp.Domain{
			erp.F("skill_type_id", "=", typeID),
		}, 0, "level_progress")
		if err != nil {
			return storeError("skill_level", err)
		}
		levelData := make([]map[string]any, 0, len(levels))
		for _, level := range levels {
			levelData = append(levelData, map[string]any{
				"id":       recUint(level, "id"),
				"name":     recStr(level, "name"),
				"progress": recUint(level, "level_progress"),
			})
		}

		skills, err := r.store.Search(ctx, "skill", erp.Domain{
			erp.F("skill_type_id", "=", typeID),
		}, 0, "name")
		if err != nil {
			return storeError("skill", err)
		}
		skillData := make([]map[string]any, 0, len(skills))
		for _, skill := range skills {
			skillData = append(skillData, map[string]any{
				"id":   recUint(skill, "id"),
				"name": recStr(skill, "name"),
			})
		}

		data = append(data, map[string]any{
			"id":     typeID,
			"name":   recStr(skillType, "name"),
			"levels": levelData,
			"skills": skillData,
		})
	}
	return map[string]any{"success": true, "skill_types": data, "count": len(data)}
}

func (r *Registry) createSkillType(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	id, err := r.store.Create(ctx, "skill_type", erp.Record{"name": name})
	if err != nil {
		return storeError("skill_type", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Skill type %s created (ID: %d)", name, id)}
}

func (r *Registry) createSkillLevel(ctx context.Context, args Args) map[string]any {
	typeID, ok := args.id("skill_type_id")
	if !ok {
		return errorf("skill_type_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "skill_type", typeID, nil); err != nil {
		return notFoundPayload("skill type")
	}
	name, _ := args.str("name")
	progress, ok := args.integer("level_progress")
	if !ok || progress < 0 || progress > 100 {
		return errorf("level_progress must be between 0 and 100")
	}

	id, err := r.store.Create(ctx, "skill_level", erp.Record{
		"skill_type_id":  typeID,
		"name":           name,
		"level_progress": progress,
	})
	if err != nil {
		return storeError("skill_level", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Skill level %s created (ID: %d)", name, id)}
}

func (r *Registry) createSkill(ctx context.Context, args Args) map[string]any {
	typeID, ok := args.id("skill_type_id")
	if !ok {
		return errorf("skill_type_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "skill_type", typeID, nil); err != nil {
		return notFoundPayload("skill type")
	}
	name, _ := args.str("name")

	id, err := r.store.Create(ctx, "skill", erp.Record{
		"skill_type_id": typeID,
		"name":          name,
	})
	if err != nil {
		return storeError("skill", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Skill %s created (ID: %d)", name, id)}
}

func (r *Registry) getSkills(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if typeID, ok := args.id("skill_type_id"); ok {
		domain = append(domain, erp.F("skill_type_id", "=", typeID))
	}
	if query, ok := args.str("query"); ok {
		domain = append(domain, erp.F("name", "ilike", query))
	}

	skills, err := r.store.Search(ctx, "skill", domain, 0, "name")
	if err != nil {
		return storeError("skill", err)
	}

	data := make([]map[string]any, 0, len(skills))
	for _, rec := range skills {
		data = append(data, map[string]any{
			"id":         recUint(rec, "id"),
			"name":       recStr(rec, "name"),
			"skill_type": r.nameOf(ctx, "skill_type", rec, "skill_type_id"),
		})
	}
	return map[string]any{"success": true, "skills": data, "count": len(data)}
}

func (r *Registry) getSkillLevels(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if typeID, ok := args.id("skill_type_id"); ok {
		domain = append(domain, erp.F("skill_type_id", "=", typeID))
	}

	levels, err := r.store.Search(ctx, "skill_level", domain, 0, "level_progress")
	if err != nil {
		return storeError("skill_level", err)
	}

	data := make([]map[string]any, 0, len(levels))
	for _, rec := range levels {
		data = append(data, map[string]any{
			"id":         recUint(rec, "id"),
			"name":       recStr(rec, "name"),
			"progress":   recUint(rec, "level_progress"),
			"skill_type": r.nameOf(ctx, "skill_type", rec, "skill_type_id"),
		})
	}
	return map[string]any{"success": true, "skill_levels": data, "count": len(data)}
}

func (r *Registry) getSkillsAnalytics(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if typeID, ok := args.id("skill_type_id"); ok {
		domain = append(domain, erp.F("skill_type_id", "=", typeID))
	}

	skills, err := r.store.Search(ctx, "skill", domain, 0, "name")
	if err != nil {
		return storeError("skill", err)
	}

	employees := map[uint]struct{}{}
	assignmentCount := 0
	data := make([]map[string]any, 0, len(skills))
	for _, skill := range skills {
		assignments, err := r.store.Search(ctx, "employee_skill", erp.Domain{
			erp.F("skill_id", "=", recUint(skill, "id")),
		}, 0, "id")
		if err != nil {
			return storeError("employee_skill", err)
		}
		for _, rec := range assignments {
			employees[recUint(rec, "employee_id")] = struct{}{}
		}
		assignmentCount += len(assignments)
		data = append(data, map[string]any{
			"skill":          recStr(skill, "name"),
			"skill_type":     r.nameOf(ctx, "skill_type", skill, "skill_type_id"),
			"employee_count": len(assignments),
		})
	}

	return map[string]any{
		"success":          true,
		"skills":           data,
		"skill_count":      len(data),
		"assignment_count": assignmentCount,
		"employee_count":   len(employees),
	}
}

func (r *Registry) assignEmployeeSkill(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	skillID, ok := args.id("skill_id")
	if !ok {
		return errorf("skill_id must be a positive integer")
	}
	levelID, ok := args.id("skill_level_id")
	if !ok {
		return errorf("skill_level_id must be a positive integer")
	}

	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}
	skill, err := r.store.Read(ctx, "skill", skillID, nil)
	if err != nil {
		return notFoundPayload("skill")
	}
	level, err := r.store.Read(ctx, "skill_level", levelID, nil)
	if err != nil {
		return notFoundPayload("skill level")
	}
	if recUint(level, "skill_type_id") != recUint(skill, "skill_type_id") {
		return errorf("skill level belongs to a different skill type")
	}

	existing, err := r.store.Search(ctx, "employee_skill", erp.Domain{
		erp.F("employee_id", "=", employeeID),
		erp.F("skill_id", "=", skillID),
	}, 1, "id")
	if err != nil {
		return storeError("employee_skill", err)
	}

	if len(existing) > 0 {
		if err := r.store.Write(ctx, "employee_skill", recUint(existing[0], "id"), erp.Record{
			"skill_level_id": levelID,
		}); err != nil {
			return storeError("employee_skill", err)
		}
		return map[string]any{
			"success": true,
			"summary": fmt.Sprintf("%s now has %s at level %s", recStr(employee, "name"), recStr(skill, "name"), recStr(level, "name")),
		}
	}

	if _, err := r.store.Create(ctx, "employee_skill", erp.Record{
		"employee_id":    employeeID,
		"skill_id":       skillID,
		"skill_level_id": levelID,
	}); err != nil {
		return storeError("employee_skill", err)
	}
	return map[string]any{
		"success": true,
		"summary": fmt.Sprintf("%s assigned %s at level %s", recStr(employee, "name"), recStr(skill, "name"), recStr(level, "name")),
	}
}

func (r *Registry) getEmployeeSkills(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}

	assignments, err := r.store.Search(ctx, "employee_skill", erp.Domain{
		erp.F("employee_id", "=", employeeID),
	}, 0, "id")
	if err != nil {
		return storeError("employee_skill", err)
	}

	data := make([]map[string]any, 0, len(assignments))
	for _, rec := range assignments {
		entry := map[string]any{
			"skill": r.nameOf(ctx, "skill", rec, "skill_id"),
			"level": r.nameOf(ctx, "skill_level", rec, "skill_level_id"),
		}
		if level, err := r.store.Read(ctx, "skill_level", recUint(rec, "skill_level_id"), nil); err == nil {
			entry["progress"] = recUint(level, "level_progress")
		}
		data = append(data, entry)
	}
	return map[string]any{
		"success":  true,
		"employee": recStr(employee, "name"),
		"skills":   data,
		"count":    len(data),
	}
}

func (r *Registry) findEmployeesBySkill(ctx context.Context, args Args) map[string]any {
	skillID, ok := args.id("skill_id")
	if !ok {
		return errorf("skill_id must be a positive integer")
	}
	skill, err := r.store.Read(ctx, "skill", skillID, []string{"name"})
	if err != nil {
		return notFoundPayload("skill")
	}

	assignments, err := r.store.Search(ctx, "employee_skill", erp.Domain{
		erp.F("skill_id", "=", skillID),
	}, 0, "id")
	if err != nil {
		return storeError("employee_skill", err)
	}

	data := make([]map[string]any, 0, len(assignments))
	for _, rec := range assignments {
		employee, err := r.store.Read(ctx, "employee", recUint(rec, "employee_id"), nil)
		if err != nil || !recBool(employee, "active") {
			continue
		}
		data = append(data, map[string]any{
			"id":    recUint(employee, "id"),
			"name":  recStr(employee, "name"),
			"level": r.nameOf(ctx, "skill_level", rec, "skill_level_id"),
		})
	}
	return map[string]any{
		"success": true,
		"skill":   recStr(skill, "name"),
		"data":    data,
		"count":   len(data),
	}
}
