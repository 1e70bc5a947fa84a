package erp

import (
	"fmt"
	"strings"
)

// A Domain is a filter expression in Polish notation: a sequence mixing the
// logical prefix tokens "&", "|", "!" with (field, operator, value) triples.
// A bare list of triples is an implicit AND, matching the record layer's
// native dialect.
type Term struct {
	Logic string // "&", "|" or "!" for prefix tokens, empty for triples
	Field string
	Op    string
	Value any
}

type Domain []Term

// F builds a (field, operator, value) triple.
func F(field, op string, value any) Term {
	return Term{Field: field, Op: op, Value: value}
}

func And() Term { return Term{Logic: "&"} }
func Or() Term  { return Term{Logic: "|"} }
func Not() Term { return Term{Logic: "!"} }

var allowedOperators = map[string]string{
	"=":  "=",
	"!=": "<>",
	"<":  "<",
	"<=": "<=",
	">":  ">",
	">=": ">=",
}

type condition struct {
	sql  string
	args []any
}

// compileDomain translates a domain into a SQL condition against the given
// column whitelist. Trailing expressions at the top level are ANDed.
func compileDomain(domain Domain, columns map[string]bool) (condition, error) {
	if len(domain) == 0 {
		return condition{sql: ""}, nil
	}

	var parts []condition
	pos := 0
	for pos < len(domain) {
		cond, next, err := compileExpr(domain, pos, columns)
		if err != nil {
			return condition{}, err
		}
		parts = append(parts, cond)
		pos = next
	}

	return joinConditions(parts, " AND "), nil
}

func compileExpr(domain Domain, pos int, columns map[string]bool) (condition, int, error) {
	if pos >= len(domain) {
		return condition{}, pos, ValidationError("filter expression is truncated")
	}

	term := domain[pos]
	switch term.Logic {
	case "&", "|":
		left, next, err := compileExpr(domain, pos+1, columns)
		if err != nil {
			return condition{}, pos, err
		}
		right, next, err := compileExpr(domain, next, columns)
		if err != nil {
			return condition{}, pos, err
		}
		sep := " AND "
		if term.Logic == "|" {
			sep = " OR "
		}
		return joinConditions([]condition{left, right}, sep), next, nil
	case "!":
		inner, next, err := compileExpr(domain, pos+1, columns)
		if err != nil {
			return condition{}, pos, err
		}
		return condition{sql: "NOT (" + inner.sql + ")", args: inner.args}, next, nil
	case "":
		cond, err := compileTriple(term, columns)
		if err != nil {
			return condition{}, pos, err
		}
		return cond, pos + 1, nil
	default:
		return condition{}, pos, ValidationError("unknown logical operator %q", term.Logic)
	}
}

func compileTriple(term Term, columns map[string]bool) (condition, error) {
	field := strings.TrimSpace(term.Field)
	if !columns[field] {
		return condition{}, ValidationError("unknown field %q", term.Field)
	}

	switch term.Op {
	case "in":
		return condition{sql: field + " IN (?)", args: []any{term.Value}}, nil
	case "ilike":
		pattern := fmt.Sprintf("%v", term.Value)
		if !strings.Contains(pattern, "%") {
			pattern = "%" + pattern + "%"
		}
		return condition{sql: "LOWER(" + field + ") LIKE LOWER(?)", args: []any{pattern}}, nil
	default:
		op, ok := allowedOperators[term.Op]
		if !ok {
			return condition{}, ValidationError("unknown operator %q", term.Op)
		}
		if term.Value == nil {
			if term.Op == "=" {
				return condition{sql: field + " IS NULL"}, nil
			}
			if term.Op == "!=" {
				return condition{sql: field + " IS NOT NULL"}, nil
			}
			return condition{}, ValidationError("operator %q does not accept null", term.Op)
		}
		return condition{sql: field + " " + op + " ?", args: []any{term.Value}}, nil
	}
}

func joinConditions(parts []condition, sep string) condition {
	if len(parts) == 0 {
		return condition{}
	}
	if len(parts) == 1 {
		return parts[0]
	}

	clauses := make([]string, 0, len(parts))
	var args []any
	for _, part := range parts {
		clauses = append(clauses, "("+part.sql+")")
		args = append(args, part.args...)
	}
	return condition{sql: strings.Join(clauses, sep), args: args}
}
