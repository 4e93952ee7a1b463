// Package query evaluates task filters, sorting and pagination in memory.
package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"offlinetasks/backend"
)

// Run filters, sorts and paginates tasks. Inactive tasks are never returned.
func Run(tasks []backend.Task, filter backend.Filter, page backend.Pagination) (*backend.Page, error) {
	preds, err := filter.Compile()
	if err != nil {
		return nil, err
	}
	page, err = page.Normalize()
	if err != nil {
		return nil, err
	}

	matched := Apply(tasks, preds)
	Sort(matched, page.Sort)
	return Paginate(matched, page), nil
}

// Apply returns the active tasks matching every predicate, in input order.
func Apply(tasks []backend.Task, preds []backend.Predicate) []backend.Task {
	out := make([]backend.Task, 0, len(tasks))
	for i := range tasks {
		if Match(&tasks[i], preds) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// Match reports whether an active task satisfies all predicates.
func Match(t *backend.Task, preds []backend.Predicate) bool {
	if !t.Active {
		return false
	}
	for _, p := range preds {
		if !matchPredicate(t, p) {
			return false
		}
	}
	return true
}

func matchPredicate(t *backend.Task, p backend.Predicate) bool {
	switch p.Kind {
	case backend.KindInt:
		return compareOrdered(intField(t, p.Field), p)
	case backend.KindString:
		return matchString(stringField(t, p.Field), p)
	case backend.KindText:
		needle := strings.ToLower(p.Values[0].(string))
		return strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle)
	case backend.KindStatus:
		return matchEnum(t.Status, p)
	case backend.KindPriority:
		return matchPriority(t.Priority, p)
	case backend.KindTags:
		return matchTags(t.Tags, p)
	case backend.KindBool:
		got := boolField(t, p.Field)
		want := p.Values[0].(bool)
		if p.Op == backend.OpNe {
			return got != want
		}
		return got == want
	case backend.KindTime:
		return matchTime(timeField(t, p.Field), p)
	}
	return false
}

func intField(t *backend.Task, f backend.Field) int64 {
	switch f {
	case backend.FieldID:
		return t.ID
	case backend.FieldBlockedMinutes:
		return int64(t.BlockedMinutes)
	case backend.FieldSortOrder:
		return int64(t.SortOrder)
	case backend.FieldSyncVersion:
		return t.Sync.Version
	}
	return 0
}

func stringField(t *backend.Task, f backend.Field) string {
	switch f {
	case backend.FieldTitle:
		return t.Title
	case backend.FieldDescription:
		return t.Description
	case backend.FieldCategory:
		return t.Category
	case backend.FieldComplexity:
		return t.Complexity
	}
	return ""
}

func boolField(t *backend.Task, f backend.Field) bool {
	switch f {
	case backend.FieldBlocked:
		return t.Blocked
	case backend.FieldIsSynced:
		return t.Sync.IsSynced
	}
	return false
}

func timeField(t *backend.Task, f backend.Field) *time.Time {
	switch f {
	case backend.FieldCreatedAt:
		created := t.CreatedAt
		return &created
	case backend.FieldStartedAt:
		return t.StartedAt
	case backend.FieldCompletedAt:
		return t.CompletedAt
	}
	return nil
}

// compareOrdered handles eq/ne/gt/gte/lt/lte/in/between for ordered values.
func compareOrdered[T cmp.Ordered](v T, p backend.Predicate) bool {
	at := func(i int) T { return p.Values[i].(T) }
	switch p.Op {
	case backend.OpEq:
		return v == at(0)
	case backend.OpNe:
		return v != at(0)
	case backend.OpGt:
		return v > at(0)
	case backend.OpGte:
		return v >= at(0)
	case backend.OpLt:
		return v < at(0)
	case backend.OpLte:
		return v <= at(0)
	case backend.OpIn:
		for i := range p.Values {
			if v == at(i) {
				return true
			}
		}
		return false
	case backend.OpBetween:
		return v >= at(0) && v <= at(1)
	}
	return false
}

func matchString(v string, p backend.Predicate) bool {
	switch p.Op {
	case backend.OpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(p.Values[0].(string)))
	case backend.OpIsNull:
		return v == ""
	case backend.OpIsNotNull:
		return v != ""
	}
	return compareOrdered(v, p)
}

func matchEnum(v backend.Status, p backend.Predicate) bool {
	switch p.Op {
	case backend.OpEq:
		return v == p.Values[0].(backend.Status)
	case backend.OpNe:
		return v != p.Values[0].(backend.Status)
	case backend.OpIn:
		for _, want := range p.Values {
			if v == want.(backend.Status) {
				return true
			}
		}
	}
	return false
}

// matchPriority compares priorities by ordinal, not by their names.
func matchPriority(v backend.Priority, p backend.Predicate) bool {
	ordinals := backend.Predicate{Op: p.Op, Values: make([]any, len(p.Values))}
	for i, want := range p.Values {
		ordinals.Values[i] = want.(backend.Priority).Ordinal()
	}
	return compareOrdered(v.Ordinal(), ordinals)
}

func matchTags(tags []string, p backend.Predicate) bool {
	has := func(tag string) bool { return slices.Contains(tags, tag) }
	switch p.Op {
	case backend.OpEq:
		return has(p.Values[0].(string))
	case backend.OpNe:
		return !has(p.Values[0].(string))
	case backend.OpContains:
		needle := strings.ToLower(p.Values[0].(string))
		for _, tag := range tags {
			if strings.Contains(tag, needle) {
				return true
			}
		}
		return false
	case backend.OpIn:
		for _, want := range p.Values {
			if has(want.(string)) {
				return true
			}
		}
		return false
	case backend.OpIsNull:
		return len(tags) == 0
	case backend.OpIsNotNull:
		return len(tags) > 0
	}
	return false
}

// matchTime follows SQL semantics: a missing date fails every comparison.
func matchTime(v *time.Time, p backend.Predicate) bool {
	switch p.Op {
	case backend.OpIsNull:
		return v == nil
	case backend.OpIsNotNull:
		return v != nil
	}
	if v == nil {
		return false
	}
	nanos := backend.Predicate{Op: p.Op, Values: make([]any, len(p.Values))}
	for i, want := range p.Values {
		nanos.Values[i] = want.(time.Time).UnixNano()
	}
	return compareOrdered(v.UnixNano(), nanos)
}

// Sort orders tasks by keys. The base order is sort_order then id, and the
// sort is stable so ties keep that order.
func Sort(tasks []backend.Task, keys []backend.SortKey) {
	slices.SortStableFunc(tasks, func(a, b backend.Task) int {
		return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.ID, b.ID))
	})
	if len(keys) == 0 {
		return
	}
	slices.SortStableFunc(tasks, func(a, b backend.Task) int {
		for _, key := range keys {
			c := compareBy(&a, &b, key.Field)
			if key.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareBy(a, b *backend.Task, f backend.Field) int {
	switch f {
	case backend.FieldTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case backend.FieldPriority:
		return cmp.Compare(a.Priority.Ordinal(), b.Priority.Ordinal())
	case backend.FieldStatus:
		return cmp.Compare(a.Status.Ordinal(), b.Status.Ordinal())
	case backend.FieldCreatedAt, backend.FieldStartedAt, backend.FieldCompletedAt:
		return cmp.Compare(epochNanos(timeField(a, f)), epochNanos(timeField(b, f)))
	case backend.FieldID, backend.FieldSortOrder:
		return cmp.Compare(intField(a, f), intField(b, f))
	}
	return 0
}

// epochNanos sorts missing dates as the unix epoch.
func epochNanos(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// Paginate slices an already filtered and sorted result. A page beyond the
// end has no items but still reports the total.
func Paginate(tasks []backend.Task, p backend.Pagination) *backend.Page {
	total := len(tasks)
	page := &backend.Page{
		Page:  max(p.Page, 1),
		Size:  p.Limit,
		Total: total,
	}

	if p.Limit < 0 {
		page.Size = total
		page.Items = append([]backend.Task{}, tasks...)
		if total > 0 {
			page.TotalPages = 1
		}
		page.HasPrev = page.Page > 1
		return page
	}
	if p.Limit == 0 {
		p.Limit = backend.DefaultPageSize
		page.Size = p.Limit
	}

	page.TotalPages = total / p.Limit
	if total%p.Limit != 0 {
		page.TotalPages++
	}
	page.HasPrev = page.Page > 1
	// Compare page numbers before multiplying so huge pages cannot overflow.
	if page.Page > page.TotalPages {
		page.Items = []backend.Task{}
		return page
	}
	start := (page.Page - 1) * p.Limit
	end := min(start+p.Limit, total)
	page.Items = append([]backend.Task{}, tasks[start:end]...)
	page.HasNext = end < total
	return page
}
