package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/export"
	"cpq-console/internal/wizard"
)

const ownerHeader = "X-User-Id"

type createSessionRequest struct {
	OpportunityID string `json:"opportunityId,omitempty"`
	// Async hands the submit to the BPMN engine instead of calling the
	// backend inline.
	Async bool `json:"async,omitempty"`
}

type updateFormRequest struct {
	Form    wizard.FormState `json:"form"`
	Touched []string         `json:"touched,omitempty"`
}

type resetRequest struct {
	Confirmed bool `json:"confirmed"`
}

func owner(r *http.Request) string {
	if o := r.Header.Get(ownerHeader); o != "" {
		return o
	}
	return "anonymous"
}

// Sources are the store slices wizard sessions load reference data from.
func (s *Server) Sources() wizard.Sources {
	return wizard.Sources{
		SalesCycleTypes:  s.Store.SalesCycleTypes,
		Stages:           s.Store.Stages,
		Accounts:         s.Store.Accounts,
		UnitsOfMeasure:   s.Store.UnitsOfMeasure,
		ProductOfferings: s.Store.ProductOfferings,
		PriceLists:       s.Store.PriceLists,
		Opportunities:    s.Store.Opportunities,
		PriceList:        s.Store.PriceLists,
		Limit:            100,
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	refs, err := wizard.LoadReferences(ctx, s.Sources(), req.OpportunityID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var submitter wizard.Submitter = wizard.SliceSubmitter{Opportunities: s.Store.Opportunities}
	if req.Async {
		if s.Processes == nil {
			writeError(w, r, errors.NewValidationFailedError("async submit is not available", nil))
			return
		}
		submitter = ProcessSubmitter{Processes: s.Processes}
	}

	opts := wizard.Options{
		OpportunityID:               req.OpportunityID,
		References:                  refs,
		Drafts:                      s.Drafts(owner(r)),
		Submitter:                   submitter,
		Notifier:                    s.Notifier,
		NewCustomerSalesCycleTypeID: s.Wizard.NewCustomerSalesCycleTypeID,
		Clock:                       s.Clock,
		Logger:                      logger.FromContext(ctx, s.logger),
	}
	if s.Journal != nil {
		opts.Recorder = s.Journal
	}
	if refs.Opportunity != nil {
		initial := wizard.FormFromOpportunity(*refs.Opportunity)
		opts.Initial = &initial
	}

	wz, err := wizard.New(ctx, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.Sessions.Put(ctx, wz)
	writeSuccess(w, http.StatusCreated, wz.Snapshot())
}

// session resolves the {sessionID} parameter, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*wizard.Wizard, bool) {
	id := chi.URLParam(r, "sessionID")
	wz, ok := s.Sessions.Get(id)
	if !ok {
		writeError(w, r, errors.NewResourceNotFoundError("wizard session", id))
		return nil, false
	}
	return wz, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	if wz, ok := s.session(w, r); ok {
		writeSuccess(w, http.StatusOK, wz.Snapshot())
	}
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.Sessions.Remove(r.Context(), id) {
		writeError(w, r, errors.NewResourceNotFoundError("wizard session", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionReferences(w http.ResponseWriter, r *http.Request) {
	if wz, ok := s.session(w, r); ok {
		writeSuccess(w, http.StatusOK, wz.References())
	}
}

func (s *Server) updateForm(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.session(w, r)
	if !ok {
		return
	}
	var req updateFormRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, wz.Replace(r.Context(), req.Form, req.Touched...))
}

func (s *Server) nextStep(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, advanced := wz.NextStep()
	writeSuccess(w, http.StatusOK, map[string]interface{}{"session": snap, "moved": advanced})
}

func (s *Server) prevStep(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, moved := wz.PrevStep()
	writeSuccess(w, http.StatusOK, map[string]interface{}{"session": snap, "moved": moved})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.session(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	mode := wizard.ModeCreate
	if wz.EditMode() {
		mode = wizard.ModeEdit
	}

	started := s.Clock()
	res, err := wz.Submit(ctx)
	elapsed := s.Clock().Sub(started)
	if err != nil {
		outcome := "failed"
		if errors.HasCode(err, errors.ErrCodeValidationFailed) {
			outcome = "invalid"
		}
		s.Observability.RecordSubmission(ctx, mode, outcome, elapsed)
		writeError(w, r, err)
		return
	}
	s.Observability.RecordSubmission(ctx, mode, "succeeded", elapsed)
	writeSuccess(w, http.StatusOK, map[string]interface{}{"result": res, "session": wz.Snapshot()})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.session(w, r)
	if !ok {
		return
	}
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := wz.Reset(r.Context(), req.Confirmed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, snap)
}

func (s *Server) sessionSummary(wz *wizard.Wizard) wizard.Summary {
	return wizard.Summarize(wz.Snapshot().Form, wz.References(), s.Wizard.NewCustomerSalesCycleTypeID)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	if wz, ok := s.session(w, r); ok {
		writeSuccess(w, http.StatusOK, s.sessionSummary(wz))
	}
}

func (s *Server) summaryPDF(w http.ResponseWriter, r *http.Request) {
	wz, ok := s.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.SummaryPDF(&buf, s.sessionSummary(wz)); err != nil {
		writeError(w, r, err)
		return
	}
	metrics.Exports.WithLabelValues("pdf", "opportunity").Inc()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="opportunity-summary.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
