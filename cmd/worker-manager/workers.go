// cmd/worker-manager/workers.go
package main

import (
	"go.uber.org/zap"

	"cpq-console/internal/common/camunda"
	"cpq-console/internal/common/config"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/lifecycle"
	"cpq-console/internal/models"
	"cpq-console/internal/store"
	"cpq-console/internal/wizard"

	ts "cpq-console/internal/workers/catalog/transition-status"
	ec "cpq-console/internal/workers/dashboard/export-csv"
	esp "cpq-console/internal/workers/opportunity/export-summary-pdf"
	sw "cpq-console/internal/workers/opportunity/submit-workflow"
)

type workerDeps struct {
	store     *store.Store
	lifecycle *lifecycle.Service
	sources   wizard.Sources
	journal   wizard.Recorder
	notifier  wizard.Notifier
}

// registerWorkers opens a job subscription for every enabled task type.
// Handler construction errors are fatal.
func registerWorkers(cfg *config.Config, zeebe *camunda.Client, d workerDeps, log logger.Logger, zapLog *zap.Logger) []*camunda.CamundaWorker {
	var workers []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		wc := config.GetWorkerConfig(cfg, taskType)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), taskType, camunda.WorkerOptions{
			MaxJobsActive: wc.MaxJobsActive,
			Timeout:       config.GetDuration(wc.Timeout),
		}, handler, log))
	}

	// Opportunity submission
	submit, err := sw.NewHandler(sw.HandlerOptions{
		Config:    sw.ConfigFrom(cfg),
		Submitter: wizard.SliceSubmitter{Opportunities: d.store.Opportunities},
		Recorder:  d.journal,
		Notifier:  d.notifier,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create submit-workflow handler", zap.Error(err))
	}
	start(sw.TaskType, submit)

	// Catalog / category status
	transition, err := ts.NewHandler(ts.ConfigFrom(cfg), d.lifecycle, log)
	if err != nil {
		zapLog.Fatal("failed to create transition-status handler", zap.Error(err))
	}
	start(ts.TaskType, transition)

	// Dashboard CSV export
	csv, err := ec.NewHandler(ec.HandlerOptions{
		Config: ec.ConfigFrom(cfg),
		Sources: map[string]ec.Source{
			d.store.Opportunities.Name():         ec.FromSlice[models.Opportunity](d.store.Opportunities),
			d.store.PriceLists.Name():            ec.FromSlice[models.PriceList](d.store.PriceLists),
			d.store.ProductOfferings.Name():      ec.FromSlice[models.ProductOffering](d.store.ProductOfferings),
			d.store.ProductOfferingPrices.Name(): ec.FromSlice[models.ProductOfferingPrice](d.store.ProductOfferingPrices),
			d.store.Catalogs.Name():              ec.FromSlice[models.Catalog](d.store.Catalogs),
			d.store.Categories.Name():            ec.FromSlice[models.Category](d.store.Categories),
			d.store.Accounts.Name():              ec.FromSlice[models.Account](d.store.Accounts),
		},
		Logger: log,
	})
	if err != nil {
		zapLog.Fatal("failed to create export-csv handler", zap.Error(err))
	}
	start(ec.TaskType, csv)

	// Opportunity summary PDF
	pdf, err := esp.NewHandler(esp.ConfigFrom(cfg), d.sources, log)
	if err != nil {
		zapLog.Fatal("failed to create export-summary-pdf handler", zap.Error(err))
	}
	start(esp.TaskType, pdf)

	return workers
}
