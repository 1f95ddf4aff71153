package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cpq-console/internal/lifecycle"
	"cpq-console/internal/models"
)

type statusRequest struct {
	Status          models.Status `json:"status"`
	ParentCatalogID string        `json:"parentCatalogId,omitempty"`
}

type actionsResponse struct {
	Actions []lifecycle.Action `json:"actions"`
	Lock    *lifecycle.Lock    `json:"lock,omitempty"`
}

func (s *Server) catalogActions(w http.ResponseWriter, r *http.Request) {
	c, err := s.Store.Catalogs.GetOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	lock := lifecycle.CatalogLock(c)
	writeSuccess(w, http.StatusOK, actionsResponse{Actions: lifecycle.CatalogActions(c), Lock: &lock})
}

func (s *Server) advanceCatalog(w http.ResponseWriter, r *http.Request) {
	c, err := s.Lifecycle.AdvanceCatalog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (s *Server) transitionCatalog(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Lifecycle.TransitionCatalog(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (s *Server) deleteCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.Lifecycle.DeleteCatalog(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) categoryActions(w http.ResponseWriter, r *http.Request) {
	c, err := s.Store.Categories.GetOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, actionsResponse{Actions: lifecycle.CategoryActions(c)})
}

func (s *Server) advanceCategory(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Lifecycle.AdvanceCategory(r.Context(), chi.URLParam(r, "id"), req.ParentCatalogID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}

func (s *Server) transitionCategory(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.Lifecycle.TransitionCategory(r.Context(), chi.URLParam(r, "id"), req.Status, req.ParentCatalogID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, c)
}
