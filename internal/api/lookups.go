package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/dashboard"
	"cpq-console/internal/models"
	"cpq-console/internal/search"
)

// lookup serves search-as-you-type for accounts and product offerings. Without
// a search index it falls back to matching names in the loaded slice.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	kind := search.Kind(chi.URLParam(r, "kind"))
	if kind != search.KindAccount && kind != search.KindProductOffering {
		writeError(w, r, errors.NewResourceNotFoundError("lookup", string(kind)))
		return
	}
	q := r.URL.Query().Get("q")
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	if s.Search != nil {
		hits, err := s.Search.Lookup(r.Context(), kind, q, size)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, hits)
		return
	}

	var hits []search.Hit
	switch kind {
	case search.KindAccount:
		hits = matchNames(s.Store.Accounts.Items(), q, size)
	case search.KindProductOffering:
		hits = matchNames(s.Store.ProductOfferings.Items(), q, size)
	}
	writeSuccess(w, http.StatusOK, hits)
}

func matchNames[T models.Named](items []T, q string, size int) []search.Hit {
	if size <= 0 {
		size = 10
	}
	needle := strings.ToLower(strings.TrimSpace(q))
	hits := []search.Hit{}
	for _, item := range items {
		if needle != "" && !strings.Contains(strings.ToLower(item.GetName()), needle) {
			continue
		}
		hits = append(hits, search.Hit{ID: item.GetID(), Name: item.GetName()})
		if len(hits) == size {
			break
		}
	}
	return hits
}

// Reindex pushes the accounts and product offerings currently in the
// backend into the lookup index and returns how many of each were sent.
func (s *Server) Reindex(ctx context.Context) (map[string]int, error) {
	if s.Search == nil {
		return nil, errors.NewValidationFailedError("search indexing is disabled", nil)
	}
	params := models.ListParams{Page: 1, Limit: dashboard.WindowSize}

	if err := s.Store.Accounts.List(ctx, params); err != nil {
		return nil, err
	}
	accounts := s.Store.Accounts.Items()
	if err := s.Search.IndexAccounts(ctx, accounts); err != nil {
		return nil, err
	}

	if err := s.Store.ProductOfferings.List(ctx, params); err != nil {
		return nil, err
	}
	offerings := s.Store.ProductOfferings.Items()
	if err := s.Search.IndexOfferings(ctx, offerings); err != nil {
		return nil, err
	}

	return map[string]int{
		string(search.KindAccount):         len(accounts),
		string(search.KindProductOffering): len(offerings),
	}, nil
}

func (s *Server) reindex(w http.ResponseWriter, r *http.Request) {
	counts, err := s.Reindex(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, counts)
}

func (s *Server) submissions(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		writeSuccess(w, http.StatusOK, []interface{}{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.Journal.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

func (s *Server) opportunitySubmissions(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		writeSuccess(w, http.StatusOK, []interface{}{})
		return
	}
	entries, err := s.Journal.ForOpportunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, entries)
}

func (s *Server) priceListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.Store.PricesByPriceList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, prices)
}
