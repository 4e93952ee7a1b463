package sqlite

import (
	"fmt"
	"strings"
	"time"

	"offlinetasks/backend"
)

// pushdownColumns maps filterable fields to their SQL column expression.
// Nullable text columns are coalesced so empty and NULL compare alike.
var pushdownColumns = map[backend.Field]string{
	backend.FieldID:             "id",
	backend.FieldBlockedMinutes: "blocked_minutes",
	backend.FieldSortOrder:      "sort_order",
	backend.FieldSyncVersion:    "sync_version",
	backend.FieldTitle:          "title",
	backend.FieldDescription:    "COALESCE(description, '')",
	backend.FieldCategory:       "COALESCE(category, '')",
	backend.FieldComplexity:     "COALESCE(complexity, '')",
	backend.FieldStatus:         "status",
	backend.FieldPriority:       "priority",
	backend.FieldBlocked:        "blocked",
	backend.FieldIsSynced:       "is_synced",
	backend.FieldCreatedAt:      "created_at",
	backend.FieldStartedAt:      "started_at",
	backend.FieldCompletedAt:    "completed_at",
}

var sqlOperators = map[backend.Operator]string{
	backend.OpEq:  "=",
	backend.OpNe:  "<>",
	backend.OpGt:  ">",
	backend.OpGte: ">=",
	backend.OpLt:  "<",
	backend.OpLte: "<=",
}

// buildWhere translates the predicates SQLite evaluates exactly like the
// in-memory engine. The rest (text search, tags, priority ordering, string
// ranges) are left to the caller, which re-applies every predicate anyway.
func buildWhere(preds []backend.Predicate) (string, []any, int) {
	clauses := []string{"is_active = 1"}
	var args []any
	pushed := 0
	for _, p := range preds {
		clause, clauseArgs, ok := pushdown(p)
		if !ok {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
		pushed++
	}
	return strings.Join(clauses, " AND "), args, pushed
}

func pushdown(p backend.Predicate) (string, []any, bool) {
	col, ok := pushdownColumns[p.Field]
	if !ok {
		return "", nil, false
	}

	switch p.Kind {
	case backend.KindInt, backend.KindTime:
		return orderedClause(col, p)
	case backend.KindString, backend.KindStatus, backend.KindPriority, backend.KindBool:
		switch p.Op {
		case backend.OpEq, backend.OpNe, backend.OpIn:
			return orderedClause(col, p)
		case backend.OpIsNull:
			return col + " = ''", nil, p.Kind == backend.KindString
		case backend.OpIsNotNull:
			return col + " <> ''", nil, p.Kind == backend.KindString
		}
	}
	return "", nil, false
}

func orderedClause(col string, p backend.Predicate) (string, []any, bool) {
	args := make([]any, len(p.Values))
	for i, v := range p.Values {
		args[i] = sqlValue(v)
	}
	switch p.Op {
	case backend.OpIsNull:
		return col + " IS NULL", nil, true
	case backend.OpIsNotNull:
		return col + " IS NOT NULL", nil, true
	case backend.OpIn:
		return fmt.Sprintf("%s IN (%s)", col, placeholders(len(args))), args, true
	case backend.OpBetween:
		return col + " BETWEEN ? AND ?", args, true
	}
	if op, ok := sqlOperators[p.Op]; ok {
		return fmt.Sprintf("%s %s ?", col, op), args, true
	}
	return "", nil, false
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return toNanos(x)
	case backend.Status:
		return string(x)
	case backend.Priority:
		return string(x)
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return v
}
