// internal/workers/opportunity/export-summary-pdf/handler.go
package exportsummarypdf

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cpq-console/internal/common/camunda"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/export"
	"cpq-console/internal/wizard"
)

const TaskType = "opportunity.summary.pdf"

type Handler struct {
	config  *Config
	sources wizard.Sources
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

// NewHandler needs sources.Opportunities to be set; the collections are
// used to resolve reference ids to names.
func NewHandler(cfg *Config, sources wizard.Sources, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if sources.Opportunities == nil {
		return nil, fmt.Errorf("%s: opportunity source is required", TaskType)
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: create export dir: %w", TaskType, err)
	}
	return &Handler{
		config:  cfg,
		sources: sources,
		errors:  errors.NewErrorHandler(log),
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.fail(ctx, client, job, errors.NewValidationFailedError("parse job variables: "+err.Error(), nil))
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		return h.fail(ctx, client, job, err)
	}
	return camunda.Complete(ctx, client, job, output)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
	return nil
}

// Execute renders the review summary of a stored opportunity to
// <export dir>/opportunity-<id>.pdf, replacing an earlier export.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.OpportunityID == "" {
		return nil, errors.NewValidationFailedError("opportunityId is required", map[string]string{"opportunityId": "required"})
	}

	refs, err := wizard.LoadReferences(ctx, h.sources, input.OpportunityID)
	if err != nil {
		return nil, err
	}
	if refs.Opportunity == nil {
		return nil, errors.NewResourceNotFoundError("opportunity", input.OpportunityID)
	}

	summary := wizard.Summarize(wizard.FormFromOpportunity(*refs.Opportunity), refs, h.config.NewCustomerSalesCycleTypeID)

	path := filepath.Join(h.config.ExportDir, "opportunity-"+filepath.Base(input.OpportunityID)+".pdf")
	tmp, err := os.CreateTemp(h.config.ExportDir, ".opportunity-*.pdf")
	if err != nil {
		return nil, errors.NewExportFailedError("pdf", err)
	}
	err = export.SummaryPDF(tmp, summary)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = errors.NewExportFailedError("pdf", closeErr)
	}
	if err == nil {
		if renameErr := os.Rename(tmp.Name(), path); renameErr != nil {
			err = errors.NewExportFailedError("pdf", renameErr)
		}
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, err
	}

	pages := export.PageCount(summary)
	metrics.Exports.WithLabelValues("pdf", "opportunity").Inc()
	h.logger.Info("Summary PDF written", map[string]interface{}{
		"opportunityId": input.OpportunityID,
		"pages":         pages,
	})
	return &Output{OpportunityID: input.OpportunityID, Path: path, Pages: pages}, nil
}
