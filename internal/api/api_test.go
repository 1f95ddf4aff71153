package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/common/auth"
	commonhttp "cpq-console/internal/common/http"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/servicenow"
	"cpq-console/internal/journal"
	"cpq-console/internal/lifecycle"
	"cpq-console/internal/models"
	"cpq-console/internal/store"
	"cpq-console/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeBackend serves canned JSON per path and records every call.
type fakeBackend struct {
	mu        sync.Mutex
	responses map[string]interface{}
	calls     []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	resp, ok := b.responses[r.Method+" "+r.URL.Path]
	if !ok {
		resp, ok = b.responses[r.URL.Path]
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case ok:
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"data":[],"page":1,"totalPages":0,"total":0}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}
}

func (b *fakeBackend) called(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == call {
			return true
		}
	}
	return false
}

func page(items interface{}, total int) map[string]interface{} {
	return map[string]interface{}{"data": items, "page": 1, "totalPages": 1, "total": total}
}

var testCatalogs = []models.Catalog{
	{ID: "c-1", Name: "Retail", Code: "RETAIL", Status: models.StatusDraft},
	{ID: "c-2", Name: "Enterprise", Code: "ENTERPRISE", Status: models.StatusPublished,
		Categories: []models.CategoryRef{{ID: "k-1", Name: "Phones", Status: models.StatusPublished}}},
	{ID: "c-3", Name: "Business", Code: "BUSINESS", Status: models.StatusDraft},
}

type testEnv struct {
	server  *httptest.Server
	backend *fakeBackend
	api     *Server
}

type fakeJournal struct {
	entries []journal.Entry
	records []wizard.Submission
}

func (f *fakeJournal) Record(_ context.Context, s wizard.Submission) error {
	f.records = append(f.records, s)
	return nil
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	return f.entries, nil
}

func (f *fakeJournal) ForOpportunity(_ context.Context, id string) ([]journal.Entry, error) {
	out := []journal.Entry{}
	for _, e := range f.entries {
		if e.OpportunityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func newEnv(t *testing.T, mutate func(d *Deps)) *testEnv {
	backend := &fakeBackend{responses: map[string]interface{}{
		"/api/product-offering-catalog":          page(testCatalogs, 3),
		"/api/product-offering-catalog/c-1":      testCatalogs[0],
		"/api/product-offering-catalog/c-2":      testCatalogs[1],
		"DELETE /api/product-offering-catalog/c-1": map[string]string{},
		"/api/product-offering-category/k-9":     models.Category{ID: "k-9", Name: "Tablets", Status: models.StatusDraft},
		"/api/account": page([]models.Account{
			{ID: "a-1", Name: "Acme Corp"}, {ID: "a-2", Name: "Globex"}, {ID: "a-3", Name: "Acme Labs"},
		}, 3),
	}}
	be := httptest.NewServer(backend)
	t.Cleanup(be.Close)

	log := logger.NewTestLogger(t)
	client := servicenow.NewClient(be.URL, commonhttp.NewClient(5*time.Second, 0), auth.StaticTokenSource("token"), log)
	st := store.New(client, store.Options{}, log)
	t.Cleanup(st.Close)

	deps := Deps{
		Store:     st,
		Lifecycle: lifecycle.NewService(st.Catalogs, st.Categories, st, nil, log),
		Sessions:  NewSessionRegistry(time.Hour, nil, log),
		Logger:    log,
		Clock:     func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
	}
	deps.Wizard.NewCustomerSalesCycleTypeID = "new_customer"
	if mutate != nil {
		mutate(&deps)
	}
	srv := NewServer(deps)
	api := httptest.NewServer(srv.Router())
	t.Cleanup(api.Close)
	return &testEnv{server: api, backend: backend, api: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	return e.doAs(t, "", method, path, body)
}

// doAs sends the request on behalf of owner; an empty owner sends no
// identity header.
func (e *testEnv) doAs(t *testing.T, owner, method, path, body string) (*http.Response, map[string]interface{}) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out = map[string]interface{}{"raw": string(raw)}
	}
	return resp, out
}

func data(body map[string]interface{}) map[string]interface{} {
	m, _ := body["data"].(map[string]interface{})
	return m
}

func errorOf(body map[string]interface{}) map[string]interface{} {
	m, _ := body["error"].(map[string]interface{})
	return m
}

// ==========================
// Health & Middleware
// ==========================

func TestHealth(t *testing.T) {
	env := newEnv(t, func(d *Deps) {
		d.Checks = []HealthCheck{
			{Name: "redis", Check: func(context.Context) error { return nil }},
			{Name: "postgres", Check: func(context.Context) error { return errors.New("connection refused") }},
		}
	})

	resp, _ := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, body := env.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "ok", data(body)["redis"])
	assert.Equal(t, "connection refused", data(body)["postgres"])
}

func TestRequestID_IsEchoed(t *testing.T) {
	env := newEnv(t, nil)
	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-Id"))
}

func TestErrorBoundary(t *testing.T) {
	h := requestIDMiddleware(errorBoundary(logger.NewTestLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("render failed")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Something went wrong", body["error"]["message"])
	assert.Equal(t, true, body["error"]["retryable"])
	assert.NotEmpty(t, body["error"]["requestId"])
}

// ==========================
// Dashboards
// ==========================

func TestCatalogList_FiltersSortsAndPages(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/v1/catalogs?status__exact=draft&sort=name&limit=1&page=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	d := data(body)
	assert.EqualValues(t, 2, d["total"])
	assert.EqualValues(t, 2, d["totalPages"])
	assert.EqualValues(t, 2, d["page"])
	items := d["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Retail", items[0].(map[string]interface{})["name"])
}

func TestCatalogCSV(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/v1/catalogs/export.csv?fields=name,status&sort=name", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "product-offering-catalog.csv")
	assert.Equal(t,
		"\"name\",\"status\"\n\"Business\",\"draft\"\n\"Enterprise\",\"published\"\n\"Retail\",\"draft\"\n",
		body["raw"])
}

func TestCatalogChart(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/v1/catalogs/chart?by=status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	series := data(body)["series"].([]interface{})
	require.Len(t, series, 2)
	assert.Equal(t, "draft", series[0].(map[string]interface{})["label"])
	assert.Equal(t, "2", series[0].(map[string]interface{})["value"])
}

// ==========================
// Lifecycle
// ==========================

func TestDeleteCatalog(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodDelete, "/v1/catalogs/c-2", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Catalog has published categories: Phones", errorOf(body)["message"])
	assert.False(t, env.backend.called("DELETE /api/product-offering-catalog/c-2"))

	resp, _ = env.do(t, http.MethodDelete, "/v1/catalogs/c-1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, env.backend.called("DELETE /api/product-offering-catalog/c-1"))
}

func TestCatalogActions(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/v1/catalogs/c-2/actions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lock := data(body)["lock"].(map[string]interface{})
	assert.Equal(t, true, lock["locked"])
	actions := data(body)["actions"].([]interface{})
	require.Len(t, actions, 2)
	assert.Equal(t, "Archive", actions[0].(map[string]interface{})["label"])
	assert.Equal(t, false, actions[0].(map[string]interface{})["enabled"])
}

func TestUpdate_StatusOnlyThroughLifecycleRoutes(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		call string
	}{
		{"locked catalog back to draft", "/v1/catalogs/c-2", `{"status":"draft"}`, "PATCH /api/product-offering-catalog/c-2"},
		{"draft category to retired", "/v1/categories/k-9", `{"status":"retired","description":"old"}`, "PATCH /api/product-offering-category/k-9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, nil)

			resp, body := env.do(t, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", errorOf(body)["code"])
			assert.Contains(t, errorOf(body)["fields"], "status")
			assert.False(t, env.backend.called(tt.call))
		})
	}
}

func TestUpdate_CatalogWithoutStatus(t *testing.T) {
	env := newEnv(t, nil)

	resp, _ := env.do(t, http.MethodPatch, "/v1/catalogs/c-1", `{"description":"Retail stores"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.backend.called("PATCH /api/product-offering-catalog/c-1"))
}

func TestAdvanceCategory_RequiresParent(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/v1/categories/k-9/advance", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields := errorOf(body)["fields"].(map[string]interface{})
	assert.Equal(t, "Please select a catalog", fields["catalog"])
	assert.False(t, env.backend.called("POST /api/catalog-category-relationship"))
}

// ==========================
// Wizard Sessions
// ==========================

func TestWizardSession_Lifecycle(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/v1/wizard/sessions", `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := data(body)
	id := snap["sessionId"].(string)
	assert.EqualValues(t, 0, snap["step"])
	assert.Equal(t, "opportunity", snap["stepName"])
	assert.Equal(t, false, snap["editMode"])
	assert.Equal(t, 1, env.api.Sessions.Len())

	resp, body = env.do(t, http.MethodPost, "/v1/wizard/sessions/"+id+"/next", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, data(body)["moved"])
	errs := data(body)["session"].(map[string]interface{})["errors"].(map[string]interface{})
	assert.Equal(t, "Short description is required", errs["opportunity.short_description"])

	resp, body = env.do(t, http.MethodPost, "/v1/wizard/sessions/"+id+"/reset", `{"confirmed":false}`)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)
	assert.Equal(t, "CONFIRMATION_REQUIRED", errorOf(body)["code"])

	resp, _ = env.do(t, http.MethodPost, "/v1/wizard/sessions/"+id+"/reset", `{"confirmed":true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/v1/wizard/sessions/"+id+"/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(t, errorOf(body)["fields"])

	resp, body = env.do(t, http.MethodGet, "/v1/wizard/sessions/"+id+"/summary.pdf", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body["raw"].(string), "%PDF-"))

	resp, _ = env.do(t, http.MethodDelete, "/v1/wizard/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, "/v1/wizard/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errorOf(body)["code"])
}

func TestWizardSession_DraftSurvivesSessionPerOwner(t *testing.T) {
	env := newEnv(t, nil)

	resp, body := env.doAs(t, "alice", http.MethodPost, "/v1/wizard/sessions", `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := data(body)["sessionId"].(string)

	resp, _ = env.doAs(t, "alice", http.MethodPut, "/v1/wizard/sessions/"+first+"/form",
		`{"form":{"opportunity":{"short_description":"Fleet renewal","probability":40},"createNewPriceList":true,"priceList":{"currency":"USD","state":"draft"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.doAs(t, "alice", http.MethodDelete, "/v1/wizard/sessions/"+first, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.doAs(t, "alice", http.MethodPost, "/v1/wizard/sessions", `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	form := data(body)["form"].(map[string]interface{})
	assert.Equal(t, "Fleet renewal", form["opportunity"].(map[string]interface{})["short_description"])

	resp, body = env.doAs(t, "bob", http.MethodPost, "/v1/wizard/sessions", `{}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	form = data(body)["form"].(map[string]interface{})
	assert.Equal(t, "", form["opportunity"].(map[string]interface{})["short_description"])
}

func TestWizardSession_AsyncNeedsEngine(t *testing.T) {
	env := newEnv(t, nil)
	resp, _ := env.do(t, http.MethodPost, "/v1/wizard/sessions", `{"async":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSessionRegistry_Sweep(t *testing.T) {
	log := logger.NewTestLogger(t)
	reg := NewSessionRegistry(time.Minute, nil, log)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	reg.clock = func() time.Time { return now }

	stale, err := wizard.New(context.Background(), wizard.Options{
		Submitter: wizard.SliceSubmitter{},
		Clock:     func() time.Time { return now.Add(-2 * time.Minute) },
	})
	require.NoError(t, err)
	fresh, err := wizard.New(context.Background(), wizard.Options{
		Submitter: wizard.SliceSubmitter{},
		Clock:     func() time.Time { return now },
	})
	require.NoError(t, err)

	reg.Put(context.Background(), stale)
	reg.Put(context.Background(), fresh)
	assert.Equal(t, 1, reg.Sweep(context.Background()))

	_, ok := reg.Get(fresh.ID())
	assert.True(t, ok)
	_, ok = reg.Get(stale.ID())
	assert.False(t, ok)
}

// ==========================
// Lookups & Journal
// ==========================

func TestLookup_FallsBackToSlice(t *testing.T) {
	env := newEnv(t, nil)

	// load the accounts slice first
	resp, _ := env.do(t, http.MethodGet, "/v1/accounts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/v1/lookups/accounts?q=acme", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hits := body["data"].([]interface{})
	require.Len(t, hits, 2)
	assert.Equal(t, "a-1", hits[0].(map[string]interface{})["id"])

	resp, _ = env.do(t, http.MethodGet, "/v1/lookups/planets", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmissions(t *testing.T) {
	j := &fakeJournal{entries: []journal.Entry{{ID: "s-1", Outcome: "succeeded"}}}
	env := newEnv(t, func(d *Deps) { d.Journal = j })

	resp, body := env.do(t, http.MethodGet, "/v1/submissions?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := body["data"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "s-1", entries[0].(map[string]interface{})["id"])
}

func TestOpportunitySubmissions(t *testing.T) {
	j := &fakeJournal{entries: []journal.Entry{
		{ID: "s-1", OpportunityID: "o-1", Outcome: "failed"},
		{ID: "s-2", OpportunityID: "o-2", Outcome: "succeeded"},
		{ID: "s-3", OpportunityID: "o-1", Outcome: "succeeded"},
	}}
	env := newEnv(t, func(d *Deps) { d.Journal = j })

	resp, body := env.do(t, http.MethodGet, "/v1/opportunities/o-1/submissions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := body["data"].([]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, "s-3", entries[1].(map[string]interface{})["id"])
}

// ==========================
// Process submitter
// ==========================

type fakeStarter struct {
	process string
	vars    interface{}
}

func (f *fakeStarter) StartProcess(_ context.Context, id string, vars interface{}) (int64, error) {
	f.process, f.vars = id, vars
	return 2251799813685249, nil
}

func TestProcessSubmitter(t *testing.T) {
	starter := &fakeStarter{}
	p := ProcessSubmitter{Processes: starter}
	var sub wizard.Submitter = p
	_, deferred := sub.(wizard.DeferredSubmitter)
	assert.True(t, deferred)
	assert.True(t, p.Deferred())

	_, err := p.CreateOpportunity(context.Background(), wizard.WorkflowPayload{})
	require.NoError(t, err)
	assert.Equal(t, ProcessOpportunitySubmission, starter.process)

	opp, err := p.UpdatePricing(context.Background(), "opp-1", wizard.PricingUpdatePayload{})
	require.NoError(t, err)
	assert.Equal(t, "opp-1", opp.ID)
	assert.Equal(t, ProcessPricingUpdate, starter.process)
	assert.Equal(t, "opp-1", starter.vars.(map[string]interface{})["opportunityId"])
}
