// Package store keeps one in-memory "slice" of state per backend collection
// and funnels every CRUD call through it, so list views always reflect the
// last successful response and the last failure message.
package store

import (
	"context"
	"sync"
	"time"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/dashboard"
	"cpq-console/internal/models"
)

// State is the normalized view of one collection.
type State[T any] struct {
	Data        []T    `json:"data"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalItems  int    `json:"totalItems"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
}

// Slice wraps a Backend with list state. Failures are returned to the caller
// and also kept as a readable message in State().Error.
type Slice[T models.Entity] struct {
	name     string
	backend  Backend[T]
	pageSize int
	logger   logger.Logger

	mu         sync.RWMutex
	state      State[T]
	lastParams models.ListParams
	inflight   int

	search *dashboard.Debouncer
}

// SliceOptions configure a Slice.
type SliceOptions struct {
	PageSize       int
	SearchDebounce time.Duration
}

func NewSlice[T models.Entity](name string, backend Backend[T], opts SliceOptions, log logger.Logger) *Slice[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	s := &Slice[T]{
		name:     name,
		backend:  backend,
		pageSize: opts.PageSize,
		logger:   log.WithFields(map[string]interface{}{"component": "store", "entity": name}),
		state:    State[T]{Data: []T{}},
	}
	if opts.SearchDebounce > 0 {
		s.search = dashboard.NewDebouncer(opts.SearchDebounce)
	}
	return s
}

func (s *Slice[T]) Name() string { return s.name }

// State returns a copy of the current state.
func (s *Slice[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Data = append([]T(nil), s.state.Data...)
	return out
}

// Items returns a copy of the loaded records.
func (s *Slice[T]) Items() []T {
	return s.State().Data
}

// Find looks a record up in the loaded page.
func (s *Slice[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.Data {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (s *Slice[T]) pending() {
	s.mu.Lock()
	s.inflight++
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
}

// settle ends a pending operation, applying mutate on success or recording
// the failure message.
func (s *Slice[T]) settle(op string, err error, mutate func(st *State[T])) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.state.Loading = s.inflight > 0
	if err != nil {
		s.state.Error = errorMessage(err)
		s.logger.Warn("Store operation failed", map[string]interface{}{"op": op, "error": err.Error()})
		return err
	}
	if mutate != nil {
		mutate(&s.state)
	}
	return nil
}

func errorMessage(err error) string {
	if stdErr, ok := errors.As(err); ok {
		if stdErr.Details != "" {
			return stdErr.Message + ": " + stdErr.Details
		}
		return stdErr.Message
	}
	return err.Error()
}

// List loads one page and replaces Data.
func (s *Slice[T]) List(ctx context.Context, p models.ListParams) error {
	p = p.Normalize(s.pageSize)
	s.mu.Lock()
	s.lastParams = p
	s.mu.Unlock()

	s.pending()
	page, err := s.backend.List(ctx, p)
	return s.settle("list", err, func(st *State[T]) {
		st.Data = append([]T{}, page.Data...)
		st.CurrentPage = page.Page
		if st.CurrentPage == 0 {
			st.CurrentPage = p.Page
		}
		st.TotalPages = page.TotalPages
		st.TotalItems = page.Total
	})
}

// Refresh reloads the last requested page.
func (s *Slice[T]) Refresh(ctx context.Context) error {
	s.mu.RLock()
	p := s.lastParams
	s.mu.RUnlock()
	return s.List(ctx, p)
}

// Search schedules a trailing-edge refetch of page 1 filtered by q. Only the
// last call within the debounce window reaches the backend. Without a
// debounce delay the fetch runs synchronously.
func (s *Slice[T]) Search(q string) {
	s.mu.RLock()
	limit := s.lastParams.Limit
	s.mu.RUnlock()

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = s.List(ctx, models.ListParams{Page: 1, Limit: limit, Query: q})
	}
	if s.search == nil {
		run()
		return
	}
	s.search.Trigger(run)
}

// GetOne fetches a record and refreshes it in Data when already loaded.
func (s *Slice[T]) GetOne(ctx context.Context, id string) (T, error) {
	s.pending()
	item, err := s.backend.Get(ctx, id)
	err = s.settle("get", err, func(st *State[T]) {
		replaceByID(st.Data, item)
	})
	return item, err
}

// Create posts payload and prepends the created record.
func (s *Slice[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	s.pending()
	item, err := s.backend.Create(ctx, payload)
	err = s.settle("create", err, func(st *State[T]) {
		st.Data = append([]T{item}, st.Data...)
		st.TotalItems++
	})
	return item, err
}

// Update patches a record and replaces it in place.
func (s *Slice[T]) Update(ctx context.Context, id string, payload interface{}) (T, error) {
	s.pending()
	item, err := s.backend.Update(ctx, id, payload)
	err = s.settle("update", err, func(st *State[T]) {
		replaceByID(st.Data, item)
	})
	return item, err
}

// TransitionStatus calls the status route and replaces the record in place.
func (s *Slice[T]) TransitionStatus(ctx context.Context, id string, status models.Status) (T, error) {
	s.pending()
	item, err := s.backend.SetStatus(ctx, id, status)
	err = s.settle("status", err, func(st *State[T]) {
		if item.GetID() == "" {
			return
		}
		replaceByID(st.Data, item)
	})
	return item, err
}

// Delete removes a record and drops it from Data.
func (s *Slice[T]) Delete(ctx context.Context, id string) error {
	s.pending()
	err := s.backend.Delete(ctx, id)
	return s.settle("delete", err, func(st *State[T]) {
		kept := st.Data[:0]
		removed := false
		for _, item := range st.Data {
			if item.GetID() == id {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		st.Data = kept
		if removed && st.TotalItems > 0 {
			st.TotalItems--
		}
	})
}

// Close stops any pending debounced search.
func (s *Slice[T]) Close() {
	if s.search != nil {
		s.search.Stop()
	}
}

func replaceByID[T models.Entity](items []T, item T) {
	for i := range items {
		if items[i].GetID() == item.GetID() {
			items[i] = item
			return
		}
	}
}
