package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) payrollTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_salary_structures",
				"List salary structures and their rule counts",
				nil,
				nil,
			),
			fn: r.getSalaryStructures,
		},
		{
			def: llm.NewToolDefinition(
				"create_salary_structure",
				"Create a salary structure",
				map[string]llm.ParameterProperty{
					"name": {Type: "string", Description: "Structure name"},
				},
				[]string{"name"},
			),
			fn: r.createSalaryStructure,
		},
		{
			def: llm.NewToolDefinition(
				"add_salary_rule",
				"Add a computation rule to a salary structure",
				map[string]llm.ParameterProperty{
					"structure_id":      {Type: "integer", Description: "The salary structure id"},
					"name":              {Type: "string", Description: "Rule name"},
					"code":              {Type: "string", Description: "Short rule code, e.g. BASIC or TAX"},
					"category":          {Type: "string", Description: "Rule category", Enum: []string{"basic", "allowance", "deduction", "net"}},
					"sequence":          {Type: "integer", Description: "Computation order (default 10)"},
					"amount_fixed":      {Type: "number", Description: "Fixed amount added by the rule"},
					"amount_percentage": {Type: "number", Description: "Percentage of the contract wage, deductions negative"},
				},
				[]string{"structure_id", "name", "code", "category"},
			),
			fn: r.addSalaryRule,
		},
		{
			def: llm.NewToolDefinition(
				"get_salary_rules",
				"List salary rules, optionally for one structure or category",
				map[string]llm.ParameterProperty{
					"structure_id": {Type: "integer", Description: "Salary structure id to filter by"},
					"category":     {Type: "string", Description: "Rule category to filter by", Enum: []string{"basic", "allowance", "deduction", "net"}},
				},
				nil,
			),
			fn: r.getSalaryRules,
		},
		{
			def: llm.NewToolDefinition(
				"get_payslips",
				"List payslips, optionally by employee or state",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "Employee id to filter by"},
					"state":       {Type: "string", Description: "Payslip state to filter by", Enum: []string{"draft", "verify", "done", "cancel"}},
					"limit":       {Type: "integer", Description: "Maximum number of payslips to return (default 20)"},
				},
				nil,
			),
			fn: r.getPayslips,
		},
		{
			def: llm.NewToolDefinition(
				"get_payslip_detail",
				"Get one payslip with its computed lines",
				map[string]llm.ParameterProperty{
					"payslip_id": {Type: "integer", Description: "The payslip id"},
				},
				[]string{"payslip_id"},
			),
			fn: r.getPayslipDetail,
		},
		{
			def: llm.NewToolDefinition(
				"create_payslip",
				"Create a draft payslip for an employee's pay period",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
					"date_from":   {Type: "string", Description: "Period start (YYYY-MM-DD)"},
					"date_to":     {Type: "string", Description: "Period end (YYYY-MM-DD)"},
				},
				[]string{"employee_id", "date_from", "date_to"},
			),
			fn: r.createPayslip,
		},
		{
			def: llm.NewToolDefinition(
				"compute_payslip",
				"Compute payslip lines from the contract's salary structure",
				map[string]llm.ParameterProperty{
					"payslip_id": {Type: "integer", Description: "The payslip id"},
				},
				[]string{"payslip_id"},
			),
			fn: r.computePayslip,
		},
		{
			def: llm.NewToolDefinition(
				"confirm_payslip",
				"Move a computed payslip to verification (draft to verify)",
				map[string]llm.ParameterProperty{
					"payslip_id": {Type: "integer", Description: "The payslip id"},
				},
				[]string{"payslip_id"},
			),
			fn: r.confirmPayslip,
		},
		{
			def: llm.NewToolDefinition(
				"validate_payslip",
				"Finalize a verified payslip (verify to done)",
				map[string]llm.ParameterProperty{
					"payslip_id": {Type: "integer", Description: "The payslip id"},
				},
				[]string{"payslip_id"},
			),
			fn: r.validatePayslip,
		},
		{
			def: llm.NewToolDefinition(
				"update_payslip",
				"Change the pay period of a payslip that is not finalized",
				map[string]llm.ParameterProperty{
					"payslip_id": {Type: "integer", Description: "The payslip id"},
					"date_from":  {Type: "string", Description: "New period start (YYYY-MM-DD)"},
					"date_to":    {Type: "string", Description: "New period end (YYYY-MM-DD)"},
				},
				[]string{"payslip_id"},
			),
			fn: r.updatePayslip,
		},
		{
			def: llm.NewToolDefinition(
				"cancel_payslip",
				"Cancel a payslip that is not finalized",
				map[string]llm.ParameterProperty{
					"payslip_id": {Type: "integer", Description: "The payslip id"},
				},
				[]string{"payslip_id"},
			),
			fn: r.cancelPayslip,
		},
		{
			def: llm.NewToolDefinition(
				"get_payroll_summary",
				"Summarize finalized payroll cost for a period",
				map[string]llm.ParameterProperty{
					"date_from": {Type: "string", Description: "Period start (YYYY-MM-DD)"},
					"date_to":   {Type: "string", Description: "Period end (YYYY-MM-DD)"},
				},
				nil,
			),
			fn: r.getPayrollSummary,
		},
	}
}

func (r *Registry) payslipPayload(ctx context.Context, rec erp.Record) map[string]any {
	return map[string]any{
		"id":        recUint(rec, "id"),
		"employee":  r.nameOf(ctx, "employee", rec, "employee_id"),
		"date_from": formatDate(rec, "date_from"),
		"date_to":   formatDate(rec, "date_to"),
		"state":     recStr(rec, "state"),
		"net_wage":  recFloat(rec, "net_wage"),
	}
}

func (r *Registry) getSalaryStructures(ctx context.Context, args Args) map[string]any {
	structures, err := r.store.Search(ctx, "salary_structure", nil, 0, "name")
	if err != nil {
		return storeError("salary_structure", err)
	}

	data := make([]map[string]any, 0, len(structures))
	for _, rec := range structures {
		id := recUint(rec, "id")
		rules, err := r.store.Count(ctx, "salary_rule", erp.Domain{erp.F("structure_id", "=", id)})
		if err != nil {
			return storeError("salary_rule", err)
		}
		data = append(data, map[string]any{
			"id":         id,
			"name":       recStr(rec, "name"),
			"rule_count": rules,
		})
	}
	return map[string]any{"success": true, "structures": data, "count": len(data)}
}

func (r *Registry) createSalaryStructure(ctx context.Context, args Args) map[string]any {
	name, _ := args.str("name")
	id, err := r.store.Create(ctx, "salary_structure", erp.Record{"name": name})
	if err != nil {
		return storeError("salary_structure", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Salary structure %s created (ID: %d)", name, id)}
}

func (r *Registry) addSalaryRule(ctx context.Context, args Args) map[string]any {
	structureID, ok := args.id("structure_id")
	if !ok {
		return errorf("structure_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "salary_structure", structureID, nil); err != nil {
		return notFoundPayload("salary structure")
	}

	name, _ := args.str("name")
	code, _ := args.str("code")
	category, _ := args.str("category")

	sequence, ok := args.integer("sequence")
	if !ok || sequence <= 0 {
		sequence = 10
	}
	values := erp.Record{
		"structure_id": structureID,
		"name":         name,
		"code":         code,
		"category":     category,
		"sequence":     sequence,
	}
	if fixed, ok := args.number("amount_fixed"); ok {
		values["amount_fixed"] = fixed
	}
	if pct, ok := args.number("amount_percentage"); ok {
		values["amount_percentage"] = pct
	}

	id, err := r.store.Create(ctx, "salary_rule", values)
	if err != nil {
		return storeError("salary_rule", err)
	}
	return map[string]any{"success": true, "id": id, "summary": fmt.Sprintf("Salary rule %s added to structure #%d", code, structureID)}
}

func (r *Registry) getSalaryRules(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{erp.F("active", "=", true)}
	if structureID, ok := args.id("structure_id"); ok {
		if _, err := r.store.Read(ctx, "salary_structure", structureID, nil); err != nil {
			return notFoundPayload("salary structure")
		}
		domain = append(domain, erp.F("structure_id", "=", structureID))
	}
	if category, ok := args.str("category"); ok {
		domain = append(domain, erp.F("category", "=", category))
	}

	rules, err := r.store.Search(ctx, "salary_rule", domain, 0, "sequence")
	if err != nil {
		return storeError("salary_rule", err)
	}

	data := make([]map[string]any, 0, len(rules))
	for _, rec := range rules {
		data = append(data, map[string]any{
			"id":                recUint(rec, "id"),
			"name":              recStr(rec, "name"),
			"code":              recStr(rec, "code"),
			"category":          recStr(rec, "category"),
			"sequence":          recUint(rec, "sequence"),
			"structure":         r.nameOf(ctx, "salary_structure", rec, "structure_id"),
			"amount_fixed":      recFloat(rec, "amount_fixed"),
			"amount_percentage": recFloat(rec, "amount_percentage"),
		})
	}
	return map[string]any{"success": true, "rules": data, "count": len(data)}
}

func (r *Registry) getPayslips(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if employeeID, ok := args.id("employee_id"); ok {
		domain = append(domain, erp.F("employee_id", "=", employeeID))
	}
	if state, ok := args.str("state"); ok {
		domain = append(domain, erp.F("state", "=", state))
	}

	payslips, err := r.store.Search(ctx, "payslip", domain, args.limit(), "date_from desc")
	if err != nil {
		return storeError("payslip", err)
	}

	data := make([]map[string]any, 0, len(payslips))
	for _, rec := range payslips {
		data = append(data, r.payslipPayload(ctx, rec))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) getPayslipDetail(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("payslip_id")
	if !ok {
		return errorf("payslip_id must be a positive integer")
	}
	payslip, err := r.store.Read(ctx, "payslip", id, nil)
	if err != nil {
		return notFoundPayload("payslip")
	}

	lines, err := r.store.Search(ctx, "payslip_line", erp.Domain{
		erp.F("payslip_id", "=", id),
	}, 0, "sequence")
	if err != nil {
		return storeError("payslip_line", err)
	}

	lineData := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		lineData = append(lineData, map[string]any{
			"code":     recStr(line, "code"),
			"name":     recStr(line, "name"),
			"category": recStr(line, "category"),
			"total":    recFloat(line, "total"),
		})
	}

	payload := r.payslipPayload(ctx, payslip)
	payload["lines"] = lineData
	return map[string]any{"success": true, "payslip": payload}
}

// openContract returns the employee's single open contract, if any.
func (r *Registry) openContract(ctx context.Context, employeeID uint) (erp.Record, error) {
	contracts, err := r.store.Search(ctx, "contract", erp.Domain{
		erp.F("employee_id", "=", employeeID),
		erp.F("state", "=", "open"),
	}, 1, "date_start desc")
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, nil
	}
	return contracts[0], nil
}

func (r *Registry) createPayslip(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
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

	contract, err := r.openContract(ctx, employeeID)
	if err != nil {
		return storeError("contract", err)
	}
	if contract == nil {
		return errorf("%s has no open contract", recStr(employee, "name"))
	}

	values := erp.Record{
		"name":        fmt.Sprintf("Salary slip %s %s", recStr(employee, "name"), from.Format("2006-01")),
		"employee_id": employeeID,
		"contract_id": recUint(contract, "id"),
		"date_from":   from,
		"date_to":     to,
		"state":       "draft",
	}
	id, err := r.store.Create(ctx, "payslip", values)
	if err != nil {
		return storeError("payslip", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"state":   "draft",
		"summary": fmt.Sprintf("Payslip for %s created (ID: %d)", recStr(employee, "name"), id),
	}
}

func (r *Registry) computePayslip(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("payslip_id")
	if !ok {
		return errorf("payslip_id must be a positive integer")
	}
	payslip, err := r.store.Read(ctx, "payslip", id, nil)
	if err != nil {
		return notFoundPayload("payslip")
	}
	state := recStr(payslip, "state")
	if state != "draft" && state != "verify" {
		return errorf("payslip is in state %s and can no longer be computed", state)
	}

	contractID := recUint(payslip, "contract_id")
	if contractID == 0 {
		return errorf("payslip has no contract to compute from")
	}
	contract, err := r.store.Read(ctx, "contract", contractID, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	wage := recFloat(contract, "wage")

	structureID := recUint(contract, "structure_id")
	var rules []erp.Record
	if structureID != 0 {
		rules, err = r.store.Search(ctx, "salary_rule", erp.Domain{
			erp.F("structure_id", "=", structureID),
		}, 0, "sequence")
		if err != nil {
			return storeError("salary_rule", err)
		}
	}

	// Recompute from scratch: drop lines from a previous run.
	stale, err := r.store.Search(ctx, "payslip_line", erp.Domain{erp.F("payslip_id", "=", id)}, 0, "id")
	if err != nil {
		return storeError("payslip_line", err)
	}
	for _, line := range stale {
		if err := r.store.Write(ctx, "payslip_line", recUint(line, "id"), erp.Record{"total": 0, "payslip_id": 0}); err != nil {
			return storeError("payslip_line", err)
		}
	}

	net := 0.0
	lineData := make([]map[string]any, 0, len(rules)+1)
	if len(rules) == 0 {
		// No structure configured, fall back to the bare contract wage.
		if _, err := r.store.Create(ctx, "payslip_line", erp.Record{
			"payslip_id": id,
			"name":       "Basic salary",
			"code":       "BASIC",
			"category":   "basic",
			"sequence":   1,
			"total":      wage,
		}); err != nil {
			return storeError("payslip_line", err)
		}
		net = wage
		lineData = append(lineData, map[string]any{"code": "BASIC", "total": wage})
	}
	for _, rule := range rules {
		total := recFloat(rule, "amount_fixed") + wage*recFloat(rule, "amount_percentage")/100
		if _, err := r.store.Create(ctx, "payslip_line", erp.Record{
			"payslip_id": id,
			"name":       recStr(rule, "name"),
			"code":       recStr(rule, "code"),
			"category":   recStr(rule, "category"),
			"sequence":   recUint(rule, "sequence"),
			"total":      total,
		}); err != nil {
			return storeError("payslip_line", err)
		}
		net += total
		lineData = append(lineData, map[string]any{"code": recStr(rule, "code"), "total": total})
	}

	if err := r.store.Write(ctx, "payslip", id, erp.Record{"net_wage": net}); err != nil {
		return storeError("payslip", err)
	}
	return map[string]any{
		"success":  true,
		"net_wage": net,
		"lines":    lineData,
		"summary":  fmt.Sprintf("Payslip #%d computed, net wage %.2f", id, net),
	}
}

func (r *Registry) confirmPayslip(ctx context.Context, args Args) map[string]any {
	return r.movePayslip(ctx, args, "draft", "verify", "sent for verification")
}

func (r *Registry) validatePayslip(ctx context.Context, args Args) map[string]any {
	return r.movePayslip(ctx, args, "verify", "done", "finalized")
}

func (r *Registry) movePayslip(ctx context.Context, args Args, from, to, verb string) map[string]any {
	id, ok := args.id("payslip_id")
	if !ok {
		return errorf("payslip_id must be a positive integer")
	}
	payslip, err := r.store.Read(ctx, "payslip", id, nil)
	if err != nil {
		return notFoundPayload("payslip")
	}
	if state := recStr(payslip, "state"); state != from {
		return errorf("payslip is in state %s, expected %s", state, from)
	}

	if err := r.store.Write(ctx, "payslip", id, erp.Record{"state": to}); err != nil {
		return storeError("payslip", err)
	}
	return map[string]any{"success": true, "state": to, "summary": fmt.Sprintf("Payslip #%d %s", id, verb)}
}

func (r *Registry) updatePayslip(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("payslip_id")
	if !ok {
		return errorf("payslip_id must be a positive integer")
	}
	payslip, err := r.store.Read(ctx, "payslip", id, nil)
	if err != nil {
		return notFoundPayload("payslip")
	}
	state := recStr(payslip, "state")
	if state != "draft" && state != "verify" {
		return errorf("payslip is in state %s and can no longer be updated", state)
	}

	values := erp.Record{}
	if from, ok := args.date("date_from"); ok {
		values["date_from"] = from
	}
	if to, ok := args.date("date_to"); ok {
		values["date_to"] = to
	}
	if len(values) == 0 {
		return errorf("no fields to update")
	}

	if err := r.store.Write(ctx, "payslip", id, values); err != nil {
		return storeError("payslip", err)
	}
	return map[string]any{"success": true, "summary": fmt.Sprintf("Payslip #%d updated", id)}
}

func (r *Registry) cancelPayslip(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("payslip_id")
	if !ok {
		return errorf("payslip_id must be a positive integer")
	}
	payslip, err := r.store.Read(ctx, "payslip", id, nil)
	if err != nil {
		return notFoundPayload("payslip")
	}
	state := recStr(payslip, "state")
	if state == "done" || state == "cancel" {
		return errorf("payslip is in state %s and can no longer be cancelled", state)
	}

	if err := r.store.Write(ctx, "payslip", id, erp.Record{"state": "cancel"}); err != nil {
		return storeError("payslip", err)
	}
	return map[string]any{"success": true, "state": "cancel", "summary": fmt.Sprintf("Payslip #%d cancelled", id)}
}

func (r *Registry) getPayrollSummary(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{erp.F("state", "=", "done")}
	if from, ok := args.date("date_from"); ok {
		domain = append(domain, erp.F("date_from", ">=", from))
	}
	if to, ok := args.date("date_to"); ok {
		domain = append(domain, erp.F("date_to", "<=", to))
	}

	payslips, err := r.store.Search(ctx, "payslip", domain, 0, "date_from desc")
	if err != nil {
		return storeError("payslip", err)
	}

	var total float64
	employees := map[uint]struct{}{}
	for _, rec := range payslips {
		total += recFloat(rec, "net_wage")
		employees[recUint(rec, "employee_id")] = struct{}{}
	}

	return map[string]any{
		"success":        true,
		"payslip_count":  len(payslips),
		"employee_count": len(employees),
		"total_net_wage": total,
		"generated_at":   time.Now().UTC().Format("2006-01-02 15:04"),
	}
}
