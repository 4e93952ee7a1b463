package backend

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Field names a filterable or sortable task attribute.
type Field string

const (
	FieldID             Field = "id"
	FieldTitle          Field = "title"
	FieldDescription    Field = "description"
	FieldText           Field = "text" // title or description
	FieldStatus         Field = "status"
	FieldPriority       Field = "priority"
	FieldCategory       Field = "category"
	FieldComplexity     Field = "complexity"
	FieldTags           Field = "tags"
	FieldBlocked        Field = "blocked"
	FieldBlockedMinutes Field = "blocked_minutes"
	FieldCreatedAt      Field = "created_at"
	FieldStartedAt      Field = "started_at"
	FieldCompletedAt    Field = "completed_at"
	FieldSortOrder      Field = "sort_order"
	FieldSyncVersion    Field = "sync_version"
	FieldIsSynced       Field = "is_synced"
)

// FieldKind groups fields that share comparison rules.
type FieldKind int

const (
	KindInt FieldKind = iota
	KindString
	KindText
	KindStatus
	KindPriority
	KindTags
	KindBool
	KindTime
)

var fieldKinds = map[Field]FieldKind{
	FieldID:             KindInt,
	FieldTitle:          KindString,
	FieldDescription:    KindString,
	FieldText:           KindText,
	FieldStatus:         KindStatus,
	FieldPriority:       KindPriority,
	FieldCategory:       KindString,
	FieldComplexity:     KindString,
	FieldTags:           KindTags,
	FieldBlocked:        KindBool,
	FieldBlockedMinutes: KindInt,
	FieldCreatedAt:      KindTime,
	FieldStartedAt:      KindTime,
	FieldCompletedAt:    KindTime,
	FieldSortOrder:      KindInt,
	FieldSyncVersion:    KindInt,
	FieldIsSynced:       KindBool,
}

// Kind returns the comparison kind of f.
func (f Field) Kind() (FieldKind, bool) {
	k, ok := fieldKinds[f]
	return k, ok
}

// Operator is a filter comparison.
type Operator string

const (
	OpEq        Operator = "eq"
	OpNe        Operator = "ne"
	OpGt        Operator = "gt"
	OpGte       Operator = "gte"
	OpLt        Operator = "lt"
	OpLte       Operator = "lte"
	OpContains  Operator = "contains"
	OpIn        Operator = "in"
	OpBetween   Operator = "between"
	OpIsNull    Operator = "is_null"
	OpIsNotNull Operator = "is_not_null"
)

var kindOperators = map[FieldKind][]Operator{
	KindInt:      {OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpBetween},
	KindString:   {OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpIn, OpBetween, OpIsNull, OpIsNotNull},
	KindText:     {OpContains},
	KindStatus:   {OpEq, OpNe, OpIn},
	KindPriority: {OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpBetween},
	KindTags:     {OpEq, OpNe, OpContains, OpIn, OpIsNull, OpIsNotNull},
	KindBool:     {OpEq, OpNe},
	KindTime:     {OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpBetween, OpIsNull, OpIsNotNull},
}

// Condition is one field/operator/value triple. Conditions in a Filter are ANDed.
type Condition struct {
	Field Field    `json:"field" yaml:"field"`
	Op    Operator `json:"op" yaml:"op"`
	Value any      `json:"value,omitempty" yaml:"value,omitempty"`
}

func (c Condition) String() string {
	if c.Op == OpIsNull || c.Op == OpIsNotNull {
		return fmt.Sprintf("%s %s", c.Field, c.Op)
	}
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Filter selects active tasks. Shorthand fields are translated into conditions.
type Filter struct {
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Statuses   []Status    `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Priorities []Priority  `json:"priorities,omitempty" yaml:"priorities,omitempty"`
	Tags       []string    `json:"tags,omitempty" yaml:"tags,omitempty"` // task must carry all
	Text       string      `json:"text,omitempty" yaml:"text,omitempty"`
	Blocked    *bool       `json:"blocked,omitempty" yaml:"blocked,omitempty"`
}

// IsEmpty reports whether the filter selects every active task.
func (f Filter) IsEmpty() bool {
	return len(f.Conditions) == 0 && len(f.Statuses) == 0 && len(f.Priorities) == 0 &&
		len(f.Tags) == 0 && strings.TrimSpace(f.Text) == "" && f.Blocked == nil
}

// Predicate is a validated condition with values coerced to the field's Go type:
// int64, string, Status, Priority, bool or time.Time.
type Predicate struct {
	Field  Field
	Kind   FieldKind
	Op     Operator
	Values []any
}

// Compile validates the filter and returns its predicates.
func (f Filter) Compile() ([]Predicate, error) {
	conds := slices.Clone(f.Conditions)
	if len(f.Statuses) > 0 {
		conds = append(conds, Condition{Field: FieldStatus, Op: OpIn, Value: f.Statuses})
	}
	if len(f.Priorities) > 0 {
		conds = append(conds, Condition{Field: FieldPriority, Op: OpIn, Value: f.Priorities})
	}
	for _, tag := range f.Tags {
		conds = append(conds, Condition{Field: FieldTags, Op: OpEq, Value: tag})
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		conds = append(conds, Condition{Field: FieldText, Op: OpContains, Value: text})
	}
	if f.Blocked != nil {
		conds = append(conds, Condition{Field: FieldBlocked, Op: OpEq, Value: *f.Blocked})
	}

	preds := make([]Predicate, 0, len(conds))
	for _, c := range conds {
		p, err := compileCondition(c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

func compileCondition(c Condition) (Predicate, error) {
	kind, ok := c.Field.Kind()
	if !ok {
		return Predicate{}, fmt.Errorf("%w: unknown filter field %q", ErrValidation, c.Field)
	}
	if !slices.Contains(kindOperators[kind], c.Op) {
		return Predicate{}, fmt.Errorf("%w: operator %q not supported for field %q", ErrValidation, c.Op, c.Field)
	}

	p := Predicate{Field: c.Field, Kind: kind, Op: c.Op}
	var raw []any
	switch c.Op {
	case OpIsNull, OpIsNotNull:
		return p, nil
	case OpIn:
		raw = listValues(c.Value)
		if len(raw) == 0 {
			return Predicate{}, fmt.Errorf("%w: %s in needs at least one value", ErrValidation, c.Field)
		}
	case OpBetween:
		raw = listValues(c.Value)
		if len(raw) != 2 {
			return Predicate{}, fmt.Errorf("%w: %s between needs exactly two values", ErrValidation, c.Field)
		}
	default:
		if c.Value == nil {
			return Predicate{}, fmt.Errorf("%w: %s %s needs a value", ErrValidation, c.Field, c.Op)
		}
		raw = []any{c.Value}
	}

	p.Values = make([]any, 0, len(raw))
	for _, v := range raw {
		coerced, err := coerceValue(kind, c.Op, v)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: field %q: %v", ErrValidation, c.Field, err)
		}
		p.Values = append(p.Values, coerced)
	}
	return p, nil
}

// listValues accepts any slice or a comma-separated string.
func listValues(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		var out []any
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func coerceValue(kind FieldKind, op Operator, v any) (any, error) {
	switch kind {
	case KindInt:
		return toInt64(v)
	case KindString, KindText, KindTags:
		s, ok := toString(v)
		if !ok {
			return nil, fmt.Errorf("expected text, got %T", v)
		}
		if kind == KindTags && op != OpContains {
			s = strings.ToLower(strings.TrimSpace(s))
		}
		return s, nil
	case KindStatus:
		s, ok := toString(v)
		if !ok {
			return nil, fmt.Errorf("expected status, got %T", v)
		}
		return ParseStatus(s)
	case KindPriority:
		s, ok := toString(v)
		if !ok {
			return nil, fmt.Errorf("expected priority, got %T", v)
		}
		return ParsePriority(s)
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(b))
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)
	case KindTime:
		return toTime(v)
	}
	return nil, fmt.Errorf("unsupported field kind %d", kind)
}

func toString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// toTime accepts time values, RFC 3339 strings, YYYY-MM-DD dates (local time)
// and integer unix seconds.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed, nil
		}
		if parsed, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
			return parsed, nil
		}
		return time.Time{}, fmt.Errorf("invalid date %q: expected RFC 3339 or YYYY-MM-DD", t)
	}
	secs, err := toInt64(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected date, got %T", v)
	}
	return time.Unix(secs, 0), nil
}

// SortKey orders results by one field.
type SortKey struct {
	Field Field `json:"field" yaml:"field"`
	Desc  bool  `json:"desc,omitempty" yaml:"desc,omitempty"`
}

var sortableFields = []Field{
	FieldTitle, FieldPriority, FieldCreatedAt, FieldStartedAt, FieldCompletedAt,
	FieldID, FieldSortOrder, FieldStatus,
}

// DefaultPageSize is used when a pagination descriptor has no limit.
const DefaultPageSize = 20

// Pagination selects a 1-based page of the sorted, filtered results.
// A zero Limit means DefaultPageSize and a negative Limit returns everything.
type Pagination struct {
	Page  int       `json:"page" yaml:"page"`
	Limit int       `json:"limit" yaml:"limit"`
	Sort  []SortKey `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// Normalize applies defaults and validates sort keys.
func (p Pagination) Normalize() (Pagination, error) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultPageSize
	}
	for _, key := range p.Sort {
		if !slices.Contains(sortableFields, key.Field) {
			return p, fmt.Errorf("%w: cannot sort by %q", ErrValidation, key.Field)
		}
	}
	return p, nil
}

// Page is one slice of a search result.
type Page struct {
	Items      []Task `json:"items" yaml:"items"`
	Page       int    `json:"page" yaml:"page"`
	Size       int    `json:"size" yaml:"size"`
	Total      int    `json:"total" yaml:"total"`
	TotalPages int    `json:"total_pages" yaml:"total_pages"`
	HasNext    bool   `json:"has_next" yaml:"has_next"`
	HasPrev    bool   `json:"has_prev" yaml:"has_prev"`
}
