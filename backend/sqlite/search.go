package sqlite

import (
	"context"

	"offlinetasks/backend"
	"offlinetasks/internal/query"
	"offlinetasks/internal/utils"
)

// Search returns one page of the active tasks matching filter. Predicates
// SQLite can answer exactly narrow the rows in SQL; the in-memory engine then
// applies the full filter, sorts and paginates.
func (s *Store) Search(ctx context.Context, filter backend.Filter, page backend.Pagination) (*backend.Page, error) {
	tasks, err := s.candidates(ctx, "Search", filter)
	if err != nil {
		return nil, err
	}
	result, err := query.Run(tasks, filter, page)
	if err != nil {
		return nil, backend.NewStoreError("Search", 0, err)
	}
	return result, nil
}

// Count returns the number of active tasks matching filter.
func (s *Store) Count(ctx context.Context, filter backend.Filter) (int, error) {
	preds, err := filter.Compile()
	if err != nil {
		return 0, backend.NewStoreError("Count", 0, err)
	}

	where, args, pushed := buildWhere(preds)
	if pushed == len(preds) {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE "+where, args...).Scan(&n); err != nil {
			return 0, backend.NewStoreError("Count", 0, err)
		}
		return n, nil
	}

	tasks, err := s.candidates(ctx, "Count", filter)
	if err != nil {
		return 0, err
	}
	return len(query.Apply(tasks, preds)), nil
}

// candidates loads the rows selected by the pushed-down part of filter.
func (s *Store) candidates(ctx context.Context, op string, filter backend.Filter) ([]backend.Task, error) {
	preds, err := filter.Compile()
	if err != nil {
		return nil, backend.NewStoreError(op, 0, err)
	}

	where, args, pushed := buildWhere(preds)
	utils.Debugf("%s: %d of %d predicates pushed down (%s)", op, pushed, len(preds), where)

	tasks, err := queryTasks(ctx, s.db, "SELECT "+taskColumns+" FROM tasks WHERE "+where+" ORDER BY sort_order, id", args...)
	if err != nil {
		return nil, backend.NewStoreError(op, 0, err)
	}
	return tasks, nil
}
