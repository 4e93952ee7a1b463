package query

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"offlinetasks/backend"
)

func makeTask(id int64, title string, priority backend.Priority) backend.Task {
	return backend.Task{
		ID:        id,
		Title:     title,
		Status:    backend.StatusTodo,
		Priority:  priority,
		CreatedAt: time.Date(2024, 1, int(id), 9, 0, 0, 0, time.UTC),
		SortOrder: int(id),
		Active:    true,
	}
}

func TestRun_PriorityFilterPagination(t *testing.T) {
	var tasks []backend.Task
	for i := int64(1); i <= 10; i++ {
		p := backend.PriorityHigh
		if i > 7 {
			p = backend.PriorityLow
		}
		tasks = append(tasks, makeTask(i, fmt.Sprintf("Task %d", i), p))
	}

	page, err := Run(tasks,
		backend.Filter{Priorities: []backend.Priority{backend.PriorityHigh}},
		backend.Pagination{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(page.Items) != 5 {
		t.Errorf("Expected 5 items, got %d", len(page.Items))
	}
	if page.Total != 7 {
		t.Errorf("Expected total 7, got %d", page.Total)
	}
	if !page.HasNext {
		t.Error("Expected HasNext to be true")
	}
	if page.HasPrev {
		t.Error("Expected HasPrev to be false on page 1")
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 pages, got %d", page.TotalPages)
	}
}

func TestRun_EmptyFilterSkipsInactive(t *testing.T) {
	tasks := []backend.Task{
		makeTask(1, "a", backend.PriorityNormal),
		makeTask(2, "b", backend.PriorityNormal),
		makeTask(3, "c", backend.PriorityNormal),
	}
	tasks[1].Active = false

	page, err := Run(tasks, backend.Filter{}, backend.Pagination{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Expected 2 active tasks, got %d", page.Total)
	}
	for _, task := range page.Items {
		if task.ID == 2 {
			t.Error("Deleted task should not be returned")
		}
	}
	if page.Size != backend.DefaultPageSize {
		t.Errorf("Expected default size %d, got %d", backend.DefaultPageSize, page.Size)
	}
}

func TestRun_PageBeyondEnd(t *testing.T) {
	tasks := []backend.Task{makeTask(1, "a", backend.PriorityNormal), makeTask(2, "b", backend.PriorityNormal)}

	page, err := Run(tasks, backend.Filter{}, backend.Pagination{Page: 4, Limit: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(page.Items))
	}
	if page.Total != 2 || page.HasNext {
		t.Errorf("Expected total 2 and no next page, got total=%d hasNext=%v", page.Total, page.HasNext)
	}
	if !page.HasPrev {
		t.Error("Expected HasPrev beyond the last page")
	}
}

func TestRun_HugePageNumber(t *testing.T) {
	var tasks []backend.Task
	for i := int64(1); i <= 6; i++ {
		tasks = append(tasks, makeTask(i, fmt.Sprintf("t%d", i), backend.PriorityNormal))
	}

	for _, pageNum := range []int{math.MaxInt / 2, math.MaxInt} {
		page, err := Run(tasks, backend.Filter{}, backend.Pagination{Page: pageNum, Limit: 4})
		if err != nil {
			t.Fatalf("page %d: Run failed: %v", pageNum, err)
		}
		if len(page.Items) != 0 {
			t.Errorf("page %d: expected no items, got %d", pageNum, len(page.Items))
		}
		if page.Total != 6 || page.TotalPages != 2 || page.HasNext {
			t.Errorf("page %d: got total=%d totalPages=%d hasNext=%v", pageNum, page.Total, page.TotalPages, page.HasNext)
		}
	}

	page, err := Run(tasks, backend.Filter{}, backend.Pagination{Page: 1, Limit: math.MaxInt})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(page.Items) != 6 || page.TotalPages != 1 || page.HasNext {
		t.Errorf("A huge limit should return everything on one page: items=%d totalPages=%d", len(page.Items), page.TotalPages)
	}
}

func TestRun_PaginationPartition(t *testing.T) {
	var tasks []backend.Task
	for i := int64(1); i <= 23; i++ {
		tasks = append(tasks, makeTask(i, fmt.Sprintf("Task %02d", 24-i), backend.Priorities[i%4]))
	}
	filter := backend.Filter{Conditions: []backend.Condition{{Field: backend.FieldID, Op: backend.OpNe, Value: 5}}}
	sortKeys := []backend.SortKey{{Field: backend.FieldPriority, Desc: true}, {Field: backend.FieldTitle}}

	full, err := Run(tasks, filter, backend.Pagination{Limit: -1, Sort: sortKeys})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, limit := range []int{1, 4, 5, 22, 30} {
		var collected []backend.Task
		first, err := Run(tasks, filter, backend.Pagination{Page: 1, Limit: limit, Sort: sortKeys})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		for p := 1; p <= first.TotalPages; p++ {
			page, err := Run(tasks, filter, backend.Pagination{Page: p, Limit: limit, Sort: sortKeys})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			collected = append(collected, page.Items...)
		}

		if len(collected) != len(full.Items) {
			t.Fatalf("limit %d: expected %d items across pages, got %d", limit, len(full.Items), len(collected))
		}
		for i := range collected {
			if collected[i].ID != full.Items[i].ID {
				t.Errorf("limit %d: item %d is task %d, want %d", limit, i, collected[i].ID, full.Items[i].ID)
			}
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	tasks := []backend.Task{
		makeTask(1, "beta", backend.PriorityHigh),
		makeTask(2, "Alpha", backend.PriorityHigh),
		makeTask(3, "gamma", backend.PriorityLow),
	}
	pagination := backend.Pagination{Page: 1, Limit: 2, Sort: []backend.SortKey{{Field: backend.FieldTitle}}}

	first, err := Run(tasks, backend.Filter{}, pagination)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := Run(tasks, backend.Filter{}, pagination)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := range first.Items {
		if first.Items[i].ID != second.Items[i].ID {
			t.Errorf("Item %d differs between runs", i)
		}
	}
}

func TestRun_InvalidFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter backend.Filter
	}{
		{"unknown field", backend.Filter{Conditions: []backend.Condition{{Field: "owner", Op: backend.OpEq, Value: "x"}}}},
		{"unsupported operator", backend.Filter{Conditions: []backend.Condition{{Field: backend.FieldStatus, Op: backend.OpGt, Value: "todo"}}}},
		{"between arity", backend.Filter{Conditions: []backend.Condition{{Field: backend.FieldID, Op: backend.OpBetween, Value: []int{1}}}}},
		{"bad int", backend.Filter{Conditions: []backend.Condition{{Field: backend.FieldID, Op: backend.OpEq, Value: "abc"}}}},
		{"bad status", backend.Filter{Statuses: []backend.Status{"archived"}}},
		{"missing value", backend.Filter{Conditions: []backend.Condition{{Field: backend.FieldTitle, Op: backend.OpEq}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(nil, tt.filter, backend.Pagination{})
			if !errors.Is(err, backend.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestRun_InvalidSortField(t *testing.T) {
	_, err := Run(nil, backend.Filter{}, backend.Pagination{Sort: []backend.SortKey{{Field: backend.FieldTags}}})
	if !errors.Is(err, backend.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestMatch_Operators(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	task := backend.Task{
		ID:          7,
		Title:       "Write Quarterly Report",
		Description: "numbers for finance",
		Status:      backend.StatusInProgress,
		Priority:    backend.PriorityMedium,
		Tags:        []string{"work", "finance"},
		Category:    "office",
		CreatedAt:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		StartedAt:   &started,
		Active:      true,
	}

	tests := []struct {
		name string
		cond backend.Condition
		want bool
	}{
		{"id eq", backend.Condition{Field: backend.FieldID, Op: backend.OpEq, Value: 7}, true},
		{"id gt", backend.Condition{Field: backend.FieldID, Op: backend.OpGt, Value: "7"}, false},
		{"id between", backend.Condition{Field: backend.FieldID, Op: backend.OpBetween, Value: "5,7"}, true},
		{"id in", backend.Condition{Field: backend.FieldID, Op: backend.OpIn, Value: []int64{1, 7}}, true},
		{"title contains case-insensitive", backend.Condition{Field: backend.FieldTitle, Op: backend.OpContains, Value: "quarterly"}, true},
		{"title eq exact", backend.Condition{Field: backend.FieldTitle, Op: backend.OpEq, Value: "write quarterly report"}, false},
		{"text contains description", backend.Condition{Field: backend.FieldText, Op: backend.OpContains, Value: "FINANCE"}, true},
		{"status alias", backend.Condition{Field: backend.FieldStatus, Op: backend.OpEq, Value: "doing"}, true},
		{"status ne", backend.Condition{Field: backend.FieldStatus, Op: backend.OpNe, Value: "em_progresso"}, false},
		{"priority gte ordinal", backend.Condition{Field: backend.FieldPriority, Op: backend.OpGte, Value: "normal"}, true},
		{"priority lt ordinal", backend.Condition{Field: backend.FieldPriority, Op: backend.OpLt, Value: "media"}, false},
		{"tag eq", backend.Condition{Field: backend.FieldTags, Op: backend.OpEq, Value: "WORK"}, true},
		{"tag ne", backend.Condition{Field: backend.FieldTags, Op: backend.OpNe, Value: "work"}, false},
		{"tag contains", backend.Condition{Field: backend.FieldTags, Op: backend.OpContains, Value: "fin"}, true},
		{"tags not null", backend.Condition{Field: backend.FieldTags, Op: backend.OpIsNotNull}, true},
		{"category in", backend.Condition{Field: backend.FieldCategory, Op: backend.OpIn, Value: "home,office"}, true},
		{"complexity is null", backend.Condition{Field: backend.FieldComplexity, Op: backend.OpIsNull}, true},
		{"blocked eq", backend.Condition{Field: backend.FieldBlocked, Op: backend.OpEq, Value: "false"}, true},
		{"started after", backend.Condition{Field: backend.FieldStartedAt, Op: backend.OpGt, Value: "2024-02-15"}, true},
		{"completed is null", backend.Condition{Field: backend.FieldCompletedAt, Op: backend.OpIsNull}, true},
		{"completed compare missing", backend.Condition{Field: backend.FieldCompletedAt, Op: backend.OpLt, Value: "2030-01-01"}, false},
		{"created between", backend.Condition{Field: backend.FieldCreatedAt, Op: backend.OpBetween, Value: []string{"2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preds, err := backend.Filter{Conditions: []backend.Condition{tt.cond}}.Compile()
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if got := Match(&task, preds); got != tt.want {
				t.Errorf("Match(%s) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	base := func() []backend.Task {
		a := makeTask(1, "banana", backend.PriorityLow)
		b := makeTask(2, "Apple", backend.PriorityHigh)
		c := makeTask(3, "cherry", backend.PriorityHigh)
		d := makeTask(4, "apple", backend.PriorityNormal)
		a.CompletedAt = &late
		c.CompletedAt = &early
		return []backend.Task{c, a, d, b}
	}

	tests := []struct {
		name string
		keys []backend.SortKey
		want []int64
	}{
		{"no keys uses sort order", nil, []int64{1, 2, 3, 4}},
		{"title case-insensitive stable", []backend.SortKey{{Field: backend.FieldTitle}}, []int64{2, 4, 1, 3}},
		{"priority desc", []backend.SortKey{{Field: backend.FieldPriority, Desc: true}}, []int64{2, 3, 4, 1}},
		{"priority then title desc", []backend.SortKey{{Field: backend.FieldPriority, Desc: true}, {Field: backend.FieldTitle, Desc: true}}, []int64{3, 2, 4, 1}},
		{"completed nil as epoch", []backend.SortKey{{Field: backend.FieldCompletedAt}}, []int64{2, 4, 3, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := base()
			Sort(tasks, tt.keys)
			for i, id := range tt.want {
				if tasks[i].ID != id {
					t.Fatalf("Position %d: got task %d, want %d (order %v)", i, tasks[i].ID, id, ids(tasks))
				}
			}
		})
	}
}

func ids(tasks []backend.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestPaginate_All(t *testing.T) {
	tasks := []backend.Task{makeTask(1, "a", backend.PriorityNormal), makeTask(2, "b", backend.PriorityNormal)}
	page := Paginate(tasks, backend.Pagination{Page: 1, Limit: -1})
	if len(page.Items) != 2 || page.TotalPages != 1 || page.HasNext {
		t.Errorf("Unexpected page for limit -1: %+v", page)
	}
}
