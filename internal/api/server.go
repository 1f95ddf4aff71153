// Package api serves the console's JSON API: wizard sessions, entity CRUD
// and status changes, dashboards and exports, lookups and health.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"cpq-console/internal/common/config"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/observability"
	"cpq-console/internal/journal"
	"cpq-console/internal/lifecycle"
	"cpq-console/internal/models"
	"cpq-console/internal/search"
	"cpq-console/internal/store"
	"cpq-console/internal/wizard"
)

// Search is the lookup index.
type Search interface {
	Lookup(ctx context.Context, kind search.Kind, q string, size int) ([]search.Hit, error)
	IndexAccounts(ctx context.Context, accounts []models.Account) error
	IndexOfferings(ctx context.Context, offerings []models.ProductOffering) error
}

// Journal records and lists submit attempts.
type Journal interface {
	wizard.Recorder
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	ForOpportunity(ctx context.Context, opportunityID string) ([]journal.Entry, error)
}

// ProcessStarter starts BPMN process instances.
type ProcessStarter interface {
	StartProcess(ctx context.Context, bpmnProcessID string, vars interface{}) (int64, error)
}

// DraftFactory returns the draft store of one owner.
type DraftFactory func(owner string) wizard.DraftStore

// MemoryDrafts is the DraftFactory used when no Redis is configured. Each
// owner gets one in-process store, so a draft outlives the session that
// saved it but not the process.
func MemoryDrafts() DraftFactory {
	var mu sync.Mutex
	stores := map[string]*wizard.MemoryDraftStore{}
	return func(owner string) wizard.DraftStore {
		mu.Lock()
		defer mu.Unlock()
		ds, ok := stores[owner]
		if !ok {
			ds = &wizard.MemoryDraftStore{}
			stores[owner] = ds
		}
		return ds
	}
}

// HealthCheck is one readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators of the API. Store, Lifecycle and Sessions are
// required; the rest switch features off when nil.
type Deps struct {
	Store     *store.Store
	Lifecycle *lifecycle.Service
	Sessions  *SessionRegistry
	Drafts    DraftFactory
	Journal   Journal
	Search    Search
	Notifier  wizard.Notifier
	Processes ProcessStarter

	Observability *observability.Observability
	Wizard        config.WizardConfig
	Dashboard     config.DashboardConfig
	Checks        []HealthCheck
	Clock         func() time.Time
	Logger        logger.Logger
}

type Server struct {
	Deps
	logger logger.Logger
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.NewNoOpLogger()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Observability == nil {
		d.Observability = observability.NewNoop()
	}
	if d.Sessions == nil {
		d.Sessions = NewSessionRegistry(0, d.Observability, d.Logger)
	}
	if d.Drafts == nil {
		d.Drafts = MemoryDrafts()
	}
	if d.Dashboard.PageSize <= 0 {
		d.Dashboard.PageSize = 10
	}
	return &Server{Deps: d, logger: logger.Component(d.Logger, "api")}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(contextLogger(s.logger))
	r.Use(accessLog(s.logger))
	r.Use(errorBoundary(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", s.ready)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/wizard/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.closeSession)
				r.Put("/form", s.updateForm)
				r.Post("/next", s.nextStep)
				r.Post("/prev", s.prevStep)
				r.Post("/submit", s.submit)
				r.Post("/reset", s.reset)
				r.Get("/references", s.sessionReferences)
				r.Get("/summary", s.summary)
				r.Get("/summary.pdf", s.summaryPDF)
			})
		})

		r.Route("/opportunities", func(r chi.Router) {
			mountCollection(r, s, s.Store.Opportunities, collectionOptions{create: true, update: true, delete: true})
			r.Get("/{id}/submissions", s.opportunitySubmissions)
		})
		r.Route("/price-lists", func(r chi.Router) {
			mountCollection(r, s, s.Store.PriceLists, collectionOptions{create: true, update: true, delete: true})
			r.Get("/{id}/prices", s.priceListPrices)
		})
		r.Route("/product-offerings", func(r chi.Router) {
			mountCollection(r, s, s.Store.ProductOfferings, collectionOptions{create: true, update: true, delete: true})
		})
		r.Route("/product-offering-prices", func(r chi.Router) {
			mountCollection(r, s, s.Store.ProductOfferingPrices, collectionOptions{create: true, update: true, delete: true})
		})
		r.Route("/catalogs", func(r chi.Router) {
			mountCollection(r, s, s.Store.Catalogs, collectionOptions{create: true, update: true, lifecycle: true})
			r.Delete("/{id}", s.deleteCatalog)
			r.Get("/{id}/actions", s.catalogActions)
			r.Post("/{id}/advance", s.advanceCatalog)
			r.Put("/{id}/status", s.transitionCatalog)
		})
		r.Route("/categories", func(r chi.Router) {
			mountCollection(r, s, s.Store.Categories, collectionOptions{create: true, update: true, delete: true, lifecycle: true})
			r.Get("/{id}/actions", s.categoryActions)
			r.Post("/{id}/advance", s.advanceCategory)
			r.Put("/{id}/status", s.transitionCategory)
		})
		r.Route("/accounts", func(r chi.Router) { mountCollection(r, s, s.Store.Accounts, collectionOptions{}) })
		r.Route("/sales-cycle-types", func(r chi.Router) { mountCollection(r, s, s.Store.SalesCycleTypes, collectionOptions{}) })
		r.Route("/stages", func(r chi.Router) { mountCollection(r, s, s.Store.Stages, collectionOptions{}) })
		r.Route("/units-of-measure", func(r chi.Router) { mountCollection(r, s, s.Store.UnitsOfMeasure, collectionOptions{}) })

		r.Get("/lookups/{kind}", s.lookup)
		r.Post("/lookups/reindex", s.reindex)
		r.Get("/submissions", s.submissions)
	})
	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := map[string]string{}
	for _, c := range s.Checks {
		if err := c.Check(ctx); err != nil {
			results[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}
	writeSuccess(w, status, results)
}
