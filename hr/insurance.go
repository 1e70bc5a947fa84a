package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) insuranceTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_insurances",
				"List insurance policies, optionally by kind or state",
				map[string]llm.ParameterProperty{
					"kind":  {Type: "string", Description: "Policy kind", Enum: []string{"bhxh", "bhyt", "bhtn"}},
					"state": {Type: "string", Description: "Policy state", Enum: []string{"active", "suspended", "closed"}},
					"limit": {Type: "integer", Description: "Maximum number of policies to return (default 20)"},
				},
				nil,
			),
			fn: r.getInsurances,
		},
		{
			def: llm.NewToolDefinition(
				"get_employee_insurances",
				"List the insurance policies of one employee",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getEmployeeInsurances,
		},
		{
			def: llm.NewToolDefinition(
				"create_insurance",
				"Register an insurance policy for an employee",
				map[string]llm.ParameterProperty{
					"employee_id":   {Type: "integer", Description: "The employee id"},
					"kind":          {Type: "string", Description: "Policy kind", Enum: []string{"bhxh", "bhyt", "bhtn"}},
					"policy_number": {Type: "string", Description: "Policy number"},
					"date_start":    {Type: "string", Description: "Coverage start (YYYY-MM-DD)"},
					"premium":       {Type: "number", Description: "Monthly premium"},
				},
				[]string{"employee_id", "kind", "policy_number", "date_start"},
			),
			fn: r.createInsurance,
		},
		{
			def: llm.NewToolDefinition(
				"update_insurance_status",
				"Change an insurance policy's state",
				map[string]llm.ParameterProperty{
					"insurance_id": {Type: "integer", Description: "The policy id"},
					"state":        {Type: "string", Description: "New state", Enum: []string{"active", "suspended", "closed"}},
				},
				[]string{"insurance_id", "state"},
			),
			fn: r.updateInsuranceStatus,
		},
		{
			def: llm.NewToolDefinition(
				"record_insurance_payment",
				"Record a premium payment against a policy",
				map[string]llm.ParameterProperty{
					"insurance_id": {Type: "integer", Description: "The policy id"},
					"amount":       {Type: "number", Description: "Payment amount"},
					"date":         {Type: "string", Description: "Payment date (YYYY-MM-DD), defaults to today"},
				},
				[]string{"insurance_id", "amount"},
			),
			fn: r.recordInsurancePayment,
		},
		{
			def: llm.NewToolDefinition(
				"get_insurance_payments",
				"List payments recorded against a policy",
				map[string]llm.ParameterProperty{
					"insurance_id": {Type: "integer", Description: "The policy id"},
				},
				[]string{"insurance_id"},
			),
			fn: r.getInsurancePayments,
		},
		{
			def: llm.NewToolDefinition(
				"get_insurance_analytics",
				"Aggregate policy counts and premium totals by kind and state",
				nil,
				nil,
			),
			fn: r.getInsuranceAnalytics,
		},
	}
}

func (r *Registry) insurancePayload(ctx context.Context, rec erp.Record) map[string]any {
	return map[string]any{
		"id":            recUint(rec, "id"),
		"employee":      r.nameOf(ctx, "employee", rec, "employee_id"),
		"kind":          recStr(rec, "kind"),
		"policy_number": recStr(rec, "policy_number"),
		"state":         recStr(rec, "state"),
		"date_start":    formatDate(rec, "date_start"),
		"date_end":      formatDate(rec, "date_end"),
		"premium":       recFloat(rec, "premium"),
	}
}

func (r *Registry) getInsurances(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if kind, ok := args.str("kind"); ok {
		domain = append(domain, erp.F("kind", "=", kind))
	}
	if state, ok := args.str("state"); ok {
		domain = append(domain, erp.F("state", "=", state))
	}

	policies, err := r.store.Search(ctx, "insurance", domain, args.limit(), "date_start desc")
	if err != nil {
		return storeError("insurance", err)
	}

	data := make([]map[string]any, 0, len(policies))
	for _, rec := range policies {
		data = append(data, r.insurancePayload(ctx, rec))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) getEmployeeInsurances(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "employee", employeeID, nil); err != nil {
		return notFoundPayload("employee")
	}

	policies, err := r.store.Search(ctx, "insurance", erp.Domain{
		erp.F("employee_id", "=", employeeID),
	}, 0, "date_start desc")
	if err != nil {
		return storeError("insurance", err)
	}

	data := make([]map[string]any, 0, len(policies))
	for _, rec := range policies {
		data = append(data, r.insurancePayload(ctx, rec))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) createInsurance(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	employee, err := r.store.Read(ctx, "employee", employeeID, []string{"name"})
	if err != nil {
		return notFoundPayload("employee")
	}

	kind, _ := args.str("kind")
	if kind != "bhxh" && kind != "bhyt" && kind != "bhtn" {
		return errorf("kind must be one of bhxh, bhyt, bhtn")
	}
	policyNumber, _ := args.str("policy_number")
	start, ok := args.date("date_start")
	if !ok {
		return errorf("date_start must be a date (YYYY-MM-DD)")
	}

	values := erp.Record{
		"employee_id":   employeeID,
		"kind":          kind,
		"policy_number": policyNumber,
		"date_start":    start,
		"state":         "active",
	}
	if premium, ok := args.number("premium"); ok && premium > 0 {
		values["premium"] = premium
	}

	id, err := r.store.Create(ctx, "insurance", values)
	if err != nil {
		return storeError("insurance", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("%s policy %s registered for %s", kind, policyNumber, recStr(employee, "name")),
	}
}

func (r *Registry) updateInsuranceStatus(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("insurance_id")
	if !ok {
		return errorf("insurance_id must be a positive integer")
	}
	state, _ := args.str("state")
	if state != "active" && state != "suspended" && state != "closed" {
		return errorf("state must be one of active, suspended, closed")
	}

	policy, err := r.store.Read(ctx, "insurance", id, nil)
	if err != nil {
		return notFoundPayload("insurance policy")
	}
	if current := recStr(policy, "state"); current == "closed" {
		return errorf("insurance policy is closed and can no longer change state")
	}

	values := erp.Record{"state": state}
	if state == "closed" {
		values["date_end"] = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if err := r.store.Write(ctx, "insurance", id, values); err != nil {
		return storeError("insurance", err)
	}
	return map[string]any{"success": true, "state": state, "summary": fmt.Sprintf("Insurance policy #%d is now %s", id, state)}
}

func (r *Registry) recordInsurancePayment(ctx context.Context, args Args) map[string]any {
	insuranceID, ok := args.id("insurance_id")
	if !ok {
		return errorf("insurance_id must be a positive integer")
	}
	amount, ok := args.number("amount")
	if !ok || amount <= 0 {
		return errorf("amount must be a positive number")
	}

	policy, err := r.store.Read(ctx, "insurance", insuranceID, nil)
	if err != nil {
		return notFoundPayload("insurance policy")
	}
	if state := recStr(policy, "state"); state != "active" {
		return errorf("insurance policy is %s, payments can only be recorded on active policies", state)
	}

	date, ok := args.date("date")
	if !ok {
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	id, err := r.store.Create(ctx, "insurance_payment", erp.Record{
		"insurance_id": insuranceID,
		"amount":       amount,
		"date":         date,
	})
	if err != nil {
		return storeError("insurance_payment", err)
	}
	return map[string]any{
		"success": true,
		"id":      id,
		"summary": fmt.Sprintf("Payment of %.2f recorded on policy #%d", amount, insuranceID),
	}
}

func (r *Registry) getInsurancePayments(ctx context.Context, args Args) map[string]any {
	insuranceID, ok := args.id("insurance_id")
	if !ok {
		return errorf("insurance_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "insurance", insuranceID, nil); err != nil {
		return notFoundPayload("insurance policy")
	}

	payments, err := r.store.Search(ctx, "insurance_payment", erp.Domain{
		erp.F("insurance_id", "=", insuranceID),
	}, 0, "date desc")
	if err != nil {
		return storeError("insurance_payment", err)
	}

	var total float64
	data := make([]map[string]any, 0, len(payments))
	for _, rec := range payments {
		amount := recFloat(rec, "amount")
		total += amount
		data = append(data, map[string]any{
			"id":     recUint(rec, "id"),
			"amount": amount,
			"date":   formatDate(rec, "date"),
		})
	}
	return map[string]any{"success": true, "data": data, "count": len(data), "total_paid": total}
}

func (r *Registry) getInsuranceAnalytics(ctx context.Context, args Args) map[string]any {
	policies, err := r.store.Search(ctx, "insurance", nil, 0, "id")
	if err != nil {
		return storeError("insurance", err)
	}

	byKind := map[string]int{}
	byState := map[string]int{}
	var monthlyPremium float64
	for _, rec := range policies {
		byKind[recStr(rec, "kind")]++
		state := recStr(rec, "state")
		byState[state]++
		if state == "active" {
			monthlyPremium += recFloat(rec, "premium")
		}
	}

	return map[string]any{
		"success":                true,
		"total_policies":         len(policies),
		"by_kind":                byKind,
		"by_state":               byState,
		"active_monthly_premium": monthlyPremium,
	}
}
