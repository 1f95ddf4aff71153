package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/dashboard"
	"cpq-console/internal/models"
	"cpq-console/internal/store"
)

type collectionOptions struct {
	create bool
	update bool
	delete bool
	// lifecycle marks resources whose status only moves through the
	// advance and status routes.
	lifecycle bool
}

// listPage is the list response: the locally paged view plus the slice
// state it was computed from.
type listPage[T any] struct {
	dashboard.Result[T]
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

func mountCollection[T models.Entity](r chi.Router, s *Server, slice *store.Slice[T], opts collectionOptions) {
	r.Get("/", listHandler(s, slice))
	r.Get("/export.csv", csvHandler(s, slice))
	r.Get("/chart", chartHandler(s, slice))
	r.Get("/{id}", getHandler(slice))
	if opts.create {
		r.Post("/", createHandler(slice))
	}
	if opts.update {
		r.Patch("/{id}", updateHandler(slice, opts.lifecycle))
	}
	if opts.delete {
		r.Delete("/{id}", deleteHandler(slice))
	}
}

func listHandler[T models.Entity](s *Server, slice *store.Slice[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := dashboard.ParseQuery(r.URL.Query(), s.Dashboard.PageSize)
		items, q, err := dashboard.Window[T](r.Context(), slice, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		st := slice.State()
		writeSuccess(w, http.StatusOK, listPage[T]{Result: dashboard.Apply(items, q), Loading: st.Loading, Error: st.Error})
	}
}

// csvHandler exports the filtered, sorted window as CSV with the columns
// named by ?fields= (id,name by default). Every value is quoted and line
// breaks inside a value are written as spaces, one record per line.
func csvHandler[T models.Entity](s *Server, slice *store.Slice[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := dashboard.ParseQuery(r.URL.Query(), s.Dashboard.PageSize)
		items, q, err := dashboard.Window[T](r.Context(), slice, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		items = dashboard.Filter(items, q)
		dashboard.Sort(items, q.SortBy, q.Desc)

		fields := []string{"id", "name"}
		if f := r.URL.Query().Get("fields"); f != "" {
			fields = strings.Split(f, ",")
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+slice.Name()+`.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := dashboard.WriteCSV(w, dashboard.Columns(fields...), items); err != nil {
			s.logger.Warn("CSV export interrupted", map[string]interface{}{"entity": slice.Name(), "error": err.Error()})
			return
		}
		metrics.Exports.WithLabelValues("csv", slice.Name()).Inc()
	}
}

// chartHandler returns a series grouped by ?by=, counting records or, with
// ?sum=, summing that numeric field.
func chartHandler[T models.Entity](s *Server, slice *store.Slice[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := dashboard.ParseQuery(r.URL.Query(), s.Dashboard.PageSize)
		items, q, err := dashboard.Window[T](r.Context(), slice, q)
		if err != nil {
			writeError(w, r, err)
			return
		}
		items = dashboard.Filter(items, q)

		by := r.URL.Query().Get("by")
		if by == "" {
			by = "status"
		}
		var points []dashboard.Point
		if sum := r.URL.Query().Get("sum"); sum != "" {
			points = dashboard.SumBy(items, by, sum)
		} else {
			points = dashboard.CountBy(items, by)
		}
		writeSuccess(w, http.StatusOK, map[string]interface{}{"by": by, "series": points})
	}
}

func getHandler[T models.Entity](slice *store.Slice[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := slice.GetOne(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, item)
	}
}

func createHandler[T models.Entity](slice *store.Slice[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
		item, err := slice.Create(r.Context(), payload)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusCreated, item)
	}
}

func updateHandler[T models.Entity](slice *store.Slice[T], lifecycle bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
		if _, ok := payload["status"]; ok && lifecycle {
			writeError(w, r, errors.NewValidationFailedError(
				"status cannot be changed by an update",
				map[string]string{"status": "Use POST /{id}/advance or PUT /{id}/status"},
			))
			return
		}
		item, err := slice.Update(r.Context(), chi.URLParam(r, "id"), payload)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, item)
	}
}

func deleteHandler[T models.Entity](slice *store.Slice[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := slice.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
