// internal/workers/catalog/transition-status/handler.go
package transitionstatus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cpq-console/internal/common/camunda"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/models"
)

const TaskType = "catalog.status.transition"

// StatusService is the part of lifecycle.Service this worker drives.
type StatusService interface {
	AdvanceCatalog(ctx context.Context, id string) (models.Catalog, error)
	TransitionCatalog(ctx context.Context, id string, target models.Status) (models.Catalog, error)
	AdvanceCategory(ctx context.Context, id, parentCatalogID string) (models.Category, error)
	TransitionCategory(ctx context.Context, id string, target models.Status, parentCatalogID string) (models.Category, error)
}

type Handler struct {
	config  *Config
	service StatusService
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(cfg *Config, service StatusService, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	return &Handler{
		config:  cfg,
		service: service,
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

// Execute applies the status change. Lock and ordering rules are enforced
// by the service, so a refused change surfaces as a non-retryable error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	target := models.Status(input.Status)

	var (
		out *Output
		err error
	)
	switch input.Entity {
	case EntityCatalog:
		var c models.Catalog
		if target == "" {
			c, err = h.service.AdvanceCatalog(ctx, input.ID)
		} else {
			c, err = h.service.TransitionCatalog(ctx, input.ID, target)
		}
		if err == nil {
			out = &Output{Entity: input.Entity, ID: c.ID, Name: c.Name, Status: string(c.Status)}
		}
	case EntityCategory:
		var c models.Category
		if target == "" {
			c, err = h.service.AdvanceCategory(ctx, input.ID, input.ParentCatalogID)
		} else {
			c, err = h.service.TransitionCategory(ctx, input.ID, target, input.ParentCatalogID)
		}
		if err == nil {
			out = &Output{Entity: input.Entity, ID: c.ID, Name: c.Name, Status: string(c.Status)}
		}
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("Status changed", map[string]interface{}{
		"entity": out.Entity,
		"id":     out.ID,
		"status": out.Status,
	})
	return out, nil
}

func validateInput(input *Input) error {
	fields := map[string]string{}
	if input.Entity != EntityCatalog && input.Entity != EntityCategory {
		fields["entity"] = fmt.Sprintf("must be %q or %q", EntityCatalog, EntityCategory)
	}
	if input.ID == "" {
		fields["id"] = "required"
	}
	switch models.Status(input.Status) {
	case "", models.StatusDraft, models.StatusPublished, models.StatusArchived, models.StatusRetired:
	default:
		fields["status"] = "unknown status " + input.Status
	}
	if len(fields) > 0 {
		return errors.NewValidationFailedError("invalid status transition variables", fields)
	}
	return nil
}
