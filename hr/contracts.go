package hr

import (
	"context"
	"fmt"
	"time"

	"hrassist_back/erp"
	"hrassist_back/llm"
)

func (r *Registry) contractTools() []toolEntry {
	return []toolEntry{
		{
			def: llm.NewToolDefinition(
				"get_contracts",
				"List employment contracts with optional state filter",
				map[string]llm.ParameterProperty{
					"state": {Type: "string", Description: "Contract state to filter by", Enum: []string{"draft", "open", "close", "cancel"}},
					"limit": {Type: "integer", Description: "Maximum number of contracts to return (default 20)"},
				},
				nil,
			),
			fn: r.getContracts,
		},
		{
			def: llm.NewToolDefinition(
				"get_contract_detail",
				"Get one contract including duration and remaining days",
				map[string]llm.ParameterProperty{
					"contract_id": {Type: "integer", Description: "The contract id"},
				},
				[]string{"contract_id"},
			),
			fn: r.getContractDetail,
		},
		{
			def: llm.NewToolDefinition(
				"get_employee_contracts",
				"List all contracts of one employee",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
				},
				[]string{"employee_id"},
			),
			fn: r.getEmployeeContracts,
		},
		{
			def: llm.NewToolDefinition(
				"create_contract",
				"Create a new employment contract in draft state",
				map[string]llm.ParameterProperty{
					"employee_id": {Type: "integer", Description: "The employee id"},
					"name":        {Type: "string", Description: "Contract reference name"},
					"date_start":  {Type: "string", Description: "Start date (YYYY-MM-DD)"},
					"date_end":    {Type: "string", Description: "End date (YYYY-MM-DD), omit for open-ended"},
					"wage":        {Type: "number", Description: "Monthly wage"},
				},
				[]string{"employee_id", "name", "date_start", "wage"},
			),
			fn: r.createContract,
		},
		{
			def: llm.NewToolDefinition(
				"activate_contract",
				"Activate a draft contract (draft to open)",
				map[string]llm.ParameterProperty{
					"contract_id": {Type: "integer", Description: "The contract id"},
				},
				[]string{"contract_id"},
			),
			fn: r.activateContract,
		},
		{
			def: llm.NewToolDefinition(
				"terminate_contract",
				"Terminate an open contract (open to close)",
				map[string]llm.ParameterProperty{
					"contract_id": {Type: "integer", Description: "The contract id"},
					"date_end":    {Type: "string", Description: "Termination date (YYYY-MM-DD), defaults to today"},
					"reason":      {Type: "string", Description: "Termination reason"},
				},
				[]string{"contract_id"},
			),
			fn: r.terminateContract,
		},
		{
			def: llm.NewToolDefinition(
				"cancel_contract",
				"Cancel a contract that is not yet closed",
				map[string]llm.ParameterProperty{
					"contract_id": {Type: "integer", Description: "The contract id"},
				},
				[]string{"contract_id"},
			),
			fn: r.cancelContract,
		},
		{
			def: llm.NewToolDefinition(
				"renew_contract",
				"Renew a contract by closing it and creating a draft successor",
				map[string]llm.ParameterProperty{
					"contract_id": {Type: "integer", Description: "The contract id to renew"},
					"date_start":  {Type: "string", Description: "Start date of the new contract (YYYY-MM-DD)"},
					"date_end":    {Type: "string", Description: "End date of the new contract (YYYY-MM-DD)"},
					"wage":        {Type: "number", Description: "New wage, defaults to the current wage"},
				},
				[]string{"contract_id", "date_start"},
			),
			fn: r.renewContract,
		},
		{
			def: llm.NewToolDefinition(
				"update_contract_salary",
				"Update the wage on a draft or open contract",
				map[string]llm.ParameterProperty{
					"contract_id": {Type: "integer", Description: "The contract id"},
					"wage":        {Type: "number", Description: "New monthly wage"},
				},
				[]string{"contract_id", "wage"},
			),
			fn: r.updateContractSalary,
		},
	}
}

// durationDisplay renders the elapsed span between start and end-or-today.
func durationDisplay(start time.Time, end *time.Time) string {
	until := time.Now().UTC()
	if end != nil {
		until = *end
	}
	days := int(until.Sub(start).Hours() / 24)
	if days < 0 {
		days = 0
	}
	years := days / 365
	months := (days % 365) / 30
	switch {
	case years > 0:
		return fmt.Sprintf("%d years %d months (%d days)", years, months, days)
	case months > 0:
		return fmt.Sprintf("%d months (%d days)", months, days)
	default:
		return fmt.Sprintf("%d days", days)
	}
}

func remainingDisplay(end *time.Time) string {
	if end == nil {
		return "open-ended"
	}
	days := int(time.Until(*end).Hours() / 24)
	if days < 0 {
		return "expired"
	}
	return fmt.Sprintf("%d days remaining", days)
}

func (r *Registry) contractPayload(ctx context.Context, contract erp.Record) map[string]any {
	start, _ := recTime(contract, "date_start")
	var end *time.Time
	if value, ok := recTime(contract, "date_end"); ok && !value.IsZero() {
		end = &value
	}

	return map[string]any{
		"id":         recUint(contract, "id"),
		"name":       recStr(contract, "name"),
		"employee":   r.nameOf(ctx, "employee", contract, "employee_id"),
		"date_start": formatDate(contract, "date_start"),
		"date_end":   formatDate(contract, "date_end"),
		"wage":       recFloat(contract, "wage"),
		"state":      recStr(contract, "state"),
		"duration":   durationDisplay(start, end),
		"remaining":  remainingDisplay(end),
	}
}

func (r *Registry) getContracts(ctx context.Context, args Args) map[string]any {
	domain := erp.Domain{}
	if state, ok := args.str("state"); ok {
		domain = append(domain, erp.F("state", "=", state))
	}

	contracts, err := r.store.Search(ctx, "contract", domain, args.limit(), "date_start desc")
	if err != nil {
		return storeError("contract", err)
	}

	data := make([]map[string]any, 0, len(contracts))
	for _, contract := range contracts {
		data = append(data, r.contractPayload(ctx, contract))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) getContractDetail(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("contract_id")
	if !ok {
		return errorf("contract_id must be a positive integer")
	}

	contract, err := r.store.Read(ctx, "contract", id, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	return map[string]any{"success": true, "contract": r.contractPayload(ctx, contract)}
}

func (r *Registry) getEmployeeContracts(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "employee", employeeID, nil); err != nil {
		return notFoundPayload("employee")
	}

	contracts, err := r.store.Search(ctx, "contract", erp.Domain{
		erp.F("employee_id", "=", employeeID),
	}, 0, "date_start desc")
	if err != nil {
		return storeError("contract", err)
	}

	data := make([]map[string]any, 0, len(contracts))
	for _, contract := range contracts {
		data = append(data, r.contractPayload(ctx, contract))
	}
	return map[string]any{"success": true, "data": data, "count": len(data)}
}

func (r *Registry) createContract(ctx context.Context, args Args) map[string]any {
	employeeID, ok := args.id("employee_id")
	if !ok {
		return errorf("employee_id must be a positive integer")
	}
	if _, err := r.store.Read(ctx, "employee", employeeID, nil); err != nil {
		return notFoundPayload("employee")
	}

	name, _ := args.str("name")
	start, ok := args.date("date_start")
	if !ok {
		return errorf("date_start must be a date (YYYY-MM-DD)")
	}
	wage, ok := args.number("wage")
	if !ok || wage <= 0 {
		return errorf("wage must be a positive number")
	}

	values := erp.Record{
		"employee_id": employeeID,
		"name":        name,
		"date_start":  start,
		"wage":        wage,
		"state":       "draft",
	}
	var end *time.Time
	if value, ok := args.date("date_end"); ok {
		if value.Before(start) {
			return errorf("date_end must be after date_start")
		}
		values["date_end"] = value
		end = &value
	}

	id, err := r.store.Create(ctx, "contract", values)
	if err != nil {
		return storeError("contract", err)
	}
	return map[string]any{
		"success":   true,
		"id":        id,
		"state":     "draft",
		"duration":  durationDisplay(start, end),
		"remaining": remainingDisplay(end),
		"summary":   fmt.Sprintf("Contract %s created (ID: %d)", name, id),
	}
}

func (r *Registry) activateContract(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("contract_id")
	if !ok {
		return errorf("contract_id must be a positive integer")
	}

	contract, err := r.store.Read(ctx, "contract", id, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	if state := recStr(contract, "state"); state != "draft" {
		return errorf("contract is in state %s, only draft contracts can be activated", state)
	}

	if err := r.store.Write(ctx, "contract", id, erp.Record{"state": "open"}); err != nil {
		return storeError("contract", err)
	}
	return map[string]any{"success": true, "state": "open", "summary": fmt.Sprintf("Contract #%d activated", id)}
}

func (r *Registry) terminateContract(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("contract_id")
	if !ok {
		return errorf("contract_id must be a positive integer")
	}

	contract, err := r.store.Read(ctx, "contract", id, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	if state := recStr(contract, "state"); state != "open" {
		return errorf("contract is in state %s, only open contracts can be terminated", state)
	}

	end, ok := args.date("date_end")
	if !ok {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	values := erp.Record{"state": "close", "date_end": end}
	if reason, ok := args.str("reason"); ok {
		values["notes"] = recStr(contract, "notes") + "\nTerminated: " + reason
	}

	if err := r.store.Write(ctx, "contract", id, values); err != nil {
		return storeError("contract", err)
	}
	return map[string]any{
		"success":  true,
		"state":    "close",
		"date_end": end.Format("2006-01-02"),
		"summary":  fmt.Sprintf("Contract #%d terminated", id),
	}
}

func (r *Registry) cancelContract(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("contract_id")
	if !ok {
		return errorf("contract_id must be a positive integer")
	}

	contract, err := r.store.Read(ctx, "contract", id, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	state := recStr(contract, "state")
	if state == "close" || state == "cancel" {
		return errorf("contract is in state %s and can no longer be cancelled", state)
	}

	if err := r.store.Write(ctx, "contract", id, erp.Record{"state": "cancel"}); err != nil {
		return storeError("contract", err)
	}
	return map[string]any{"success": true, "state": "cancel", "summary": fmt.Sprintf("Contract #%d cancelled", id)}
}

func (r *Registry) renewContract(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("contract_id")
	if !ok {
		return errorf("contract_id must be a positive integer")
	}

	contract, err := r.store.Read(ctx, "contract", id, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	state := recStr(contract, "state")
	if state != "open" && state != "close" {
		return errorf("contract is in state %s and cannot be renewed", state)
	}

	start, ok := args.date("date_start")
	if !ok {
		return errorf("date_start must be a date (YYYY-MM-DD)")
	}
	wage, ok := args.number("wage")
	if !ok {
		wage = recFloat(contract, "wage")
	}

	values := erp.Record{
		"employee_id": recUint(contract, "employee_id"),
		"name":        recStr(contract, "name") + " (renewal)",
		"date_start":  start,
		"wage":        wage,
		"state":       "draft",
	}
	if end, ok := args.date("date_end"); ok {
		if end.Before(start) {
			return errorf("date_end must be after date_start")
		}
		values["date_end"] = end
	}

	if state == "open" {
		if err := r.store.Write(ctx, "contract", id, erp.Record{"state": "close", "date_end": start}); err != nil {
			return storeError("contract", err)
		}
	}

	newID, err := r.store.Create(ctx, "contract", values)
	if err != nil {
		return storeError("contract", err)
	}
	return map[string]any{
		"success":         true,
		"id":              newID,
		"previous_id":     id,
		"state":           "draft",
		"summary":         fmt.Sprintf("Contract #%d renewed as #%d", id, newID),
		"activation_hint": "activate_contract moves the renewal to open",
	}
}

func (r *Registry) updateContractSalary(ctx context.Context, args Args) map[string]any {
	id, ok := args.id("contract_id")
	if !ok {
		return errorf("contract_id must be a positive integer")
	}
	wage, ok := args.number("wage")
	if !ok || wage <= 0 {
		return errorf("wage must be a positive number")
	}

	contract, err := r.store.Read(ctx, "contract", id, nil)
	if err != nil {
		return notFoundPayload("contract")
	}
	state := recStr(contract, "state")
	if state != "draft" && state != "open" {
		return errorf("contract is in state %s, salary can only change on draft or open contracts", state)
	}

	previous := recFloat(contract, "wage")
	if err := r.store.Write(ctx, "contract", id, erp.Record{"wage": wage}); err != nil {
		return storeError("contract", err)
	}
	return map[string]any{
		"success":       true,
		"previous_wage": previous,
		"wage":          wage,
		"summary":       fmt.Sprintf("Contract #%d wage updated from %.2f to %.2f", id, previous, wage),
	}
}
