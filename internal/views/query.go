package views

import (
	"offlinetasks/backend"
	"offlinetasks/internal/query"
)

// Build turns the view's query into a filter and a pagination for page.
func (v *View) Build(page int) (backend.Filter, backend.Pagination, error) {
	q := v.Query
	filter := backend.Filter{
		Tags:    q.Tags,
		Text:    q.Text,
		Blocked: q.Blocked,
	}

	for _, s := range q.Status {
		status, err := backend.ParseStatus(s)
		if err != nil {
			return filter, backend.Pagination{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range q.Priority {
		priority, err := backend.ParsePriority(p)
		if err != nil {
			return filter, backend.Pagination{}, err
		}
		filter.Priorities = append(filter.Priorities, priority)
	}

	conds, err := query.ParseConditions(q.Where)
	if err != nil {
		return filter, backend.Pagination{}, err
	}
	filter.Conditions = conds
	if _, err := filter.Compile(); err != nil {
		return filter, backend.Pagination{}, err
	}

	sortKeys, err := query.ParseSort(q.Sort)
	if err != nil {
		return filter, backend.Pagination{}, err
	}
	pagination, err := backend.Pagination{Page: page, Limit: q.Limit, Sort: sortKeys}.Normalize()
	if err != nil {
		return filter, backend.Pagination{}, err
	}
	return filter, pagination, nil
}
