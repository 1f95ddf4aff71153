package dashboard

import (
	"context"

	"cpq-console/internal/models"
)

// WindowSize is how many records a dashboard view pulls from the backend
// before filtering, sorting and paging them locally.
const WindowSize = 500

// Source is the part of a store slice a dashboard reads.
type Source[T any] interface {
	List(ctx context.Context, p models.ListParams) error
	Items() []T
}

// Window loads the first WindowSize records matching q's free-text search.
// The search runs on the backend, so the returned query has it cleared and
// only field filters and sorting remain to apply locally.
func Window[T any](ctx context.Context, src Source[T], q Query) ([]T, Query, error) {
	if err := src.List(ctx, models.ListParams{Page: 1, Limit: WindowSize, Query: q.Search}); err != nil {
		return nil, q, err
	}
	q.Search = ""
	return src.Items(), q, nil
}
