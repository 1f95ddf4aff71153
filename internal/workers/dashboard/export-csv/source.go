// internal/workers/dashboard/export-csv/source.go
package exportcsv

import (
	"context"
	"io"

	"cpq-console/internal/dashboard"
)

// Source writes one collection's filtered and sorted rows as CSV and
// returns the row count.
type Source interface {
	WriteCSV(ctx context.Context, q dashboard.Query, columns []dashboard.Column, w io.Writer) (int, error)
}

type windowSource[T any] struct {
	src dashboard.Source[T]
}

// FromSlice adapts a store slice into a Source using the same window the
// dashboard list views use.
func FromSlice[T any](src dashboard.Source[T]) Source {
	return windowSource[T]{src: src}
}

func (s windowSource[T]) WriteCSV(ctx context.Context, q dashboard.Query, columns []dashboard.Column, w io.Writer) (int, error) {
	items, q, err := dashboard.Window(ctx, s.src, q)
	if err != nil {
		return 0, err
	}
	items = dashboard.Filter(items, q)
	dashboard.Sort(items, q.SortBy, q.Desc)
	if err := dashboard.WriteCSV(w, columns, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
