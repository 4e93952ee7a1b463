package query

import (
	"fmt"
	"strings"

	"offlinetasks/backend"
)

var opAliases = map[string]backend.Operator{
	"=":  backend.OpEq,
	"==": backend.OpEq,
	"!=": backend.OpNe,
	">":  backend.OpGt,
	">=": backend.OpGte,
	"<":  backend.OpLt,
	"<=": backend.OpLte,
	"~":  backend.OpContains,
}

// ParseCondition parses "field:op:value" or "field:op" (for the null checks).
// Values for in are comma separated; between takes "low,high".
func ParseCondition(expr string) (backend.Condition, error) {
	parts := strings.SplitN(expr, ":", 3)
	if len(parts) < 2 {
		return backend.Condition{}, fmt.Errorf("%w: filter %q must look like field:op:value", backend.ErrValidation, expr)
	}

	field := backend.Field(strings.ToLower(strings.TrimSpace(parts[0])))
	rawOp := strings.ToLower(strings.TrimSpace(parts[1]))
	op, ok := opAliases[rawOp]
	if !ok {
		op = backend.Operator(rawOp)
	}

	cond := backend.Condition{Field: field, Op: op}
	switch op {
	case backend.OpIsNull, backend.OpIsNotNull:
		if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
			return backend.Condition{}, fmt.Errorf("%w: %s takes no value", backend.ErrValidation, op)
		}
		return cond, nil
	}
	if len(parts) < 3 {
		return backend.Condition{}, fmt.Errorf("%w: filter %q is missing a value", backend.ErrValidation, expr)
	}
	cond.Value = parts[2]
	return cond, nil
}

// ParseConditions parses several expressions.
func ParseConditions(exprs []string) ([]backend.Condition, error) {
	conds := make([]backend.Condition, 0, len(exprs))
	for _, expr := range exprs {
		c, err := ParseCondition(expr)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// ParseSort parses "priority:desc,title" into sort keys.
func ParseSort(expr string) ([]backend.SortKey, error) {
	var keys []backend.SortKey
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, _ := strings.Cut(part, ":")
		key := backend.SortKey{Field: backend.Field(strings.ToLower(strings.TrimSpace(field)))}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			key.Desc = true
		default:
			return nil, fmt.Errorf("%w: sort direction %q must be asc or desc", backend.ErrValidation, dir)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
