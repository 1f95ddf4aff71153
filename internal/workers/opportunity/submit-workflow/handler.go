// internal/workers/opportunity/submit-workflow/handler.go
package submitworkflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"cpq-console/internal/common/camunda"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/models"
	"cpq-console/internal/wizard"
)

const TaskType = "opportunity.workflow.submit"

type Handler struct {
	config    *Config
	submitter wizard.Submitter
	recorder  wizard.Recorder
	notifier  wizard.Notifier
	errors    *errors.ErrorHandler
	clock     func() time.Time
	logger    logger.Logger
}

type HandlerOptions struct {
	Config    *Config
	Submitter wizard.Submitter
	Recorder  wizard.Recorder
	Notifier  wizard.Notifier
	Clock     func() time.Time
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Submitter == nil {
		return nil, fmt.Errorf("%s: submitter is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Handler{
		config:    cfg,
		submitter: opts.Submitter,
		recorder:  opts.Recorder,
		notifier:  opts.Notifier,
		errors:    errors.NewErrorHandler(log),
		clock:     clock,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing submission", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.fail(ctx, client, job, errors.NewValidationFailedError("parse job variables: "+err.Error(), nil))
	}
	if input.SessionID == "" {
		input.SessionID = fmt.Sprintf("process-%d", job.ProcessInstanceKey)
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

// Execute sends the payload to the backend, then journals and announces
// the outcome the same way an interactive submit does.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	started := h.clock()
	var (
		opp     models.Opportunity
		payload interface{}
		err     error
	)
	switch input.Mode {
	case wizard.ModeEdit:
		var p wizard.PricingUpdatePayload
		if err = json.Unmarshal(input.Payload, &p); err != nil {
			return nil, errors.NewValidationFailedError("payload is not a pricing update: "+err.Error(), nil)
		}
		if err = wizard.CheckPricingUpdatePayload(p); err != nil {
			return nil, err
		}
		payload = p
		opp, err = h.submitter.UpdatePricing(ctx, input.OpportunityID, p)
	default:
		var p wizard.WorkflowPayload
		if err = json.Unmarshal(input.Payload, &p); err != nil {
			return nil, errors.NewValidationFailedError("payload is not a workflow create: "+err.Error(), nil)
		}
		if err = wizard.CheckWorkflowPayload(p); err != nil {
			return nil, err
		}
		payload = p
		opp, err = h.submitter.CreateOpportunity(ctx, p)
	}

	sub := wizard.Submission{
		ID:            uuid.NewString(),
		SessionID:     input.SessionID,
		Mode:          input.Mode,
		OpportunityID: input.OpportunityID,
		Payload:       payload,
		Duration:      h.clock().Sub(started),
		At:            started,
	}
	if opp.ID != "" {
		sub.OpportunityID = opp.ID
	}

	if err != nil {
		sub.Outcome, sub.Error = "failed", err.Error()
		h.record(ctx, sub)
		h.publish(ctx, wizard.Notification{Level: wizard.LevelError, Message: "Failed to " + verb(input.Mode) + " opportunity"})
		metrics.WizardSubmissions.WithLabelValues(input.Mode, "failed").Inc()
		return nil, err
	}

	sub.Outcome = "succeeded"
	message := "Opportunity " + verb(input.Mode) + "d successfully"
	h.record(ctx, sub)
	h.publish(ctx, wizard.Notification{Level: wizard.LevelSuccess, Message: message, OpportunityID: sub.OpportunityID})
	metrics.WizardSubmissions.WithLabelValues(input.Mode, "succeeded").Inc()

	h.logger.Info("Submission completed", map[string]interface{}{
		"opportunityId": sub.OpportunityID,
		"mode":          input.Mode,
	})
	return &Output{OpportunityID: sub.OpportunityID, Outcome: sub.Outcome, Message: message}, nil
}

func validateInput(input *Input) error {
	fields := map[string]string{}
	switch input.Mode {
	case wizard.ModeCreate:
	case wizard.ModeEdit:
		if input.OpportunityID == "" {
			fields["opportunityId"] = "required in edit mode"
		}
	default:
		fields["mode"] = fmt.Sprintf("must be %q or %q", wizard.ModeCreate, wizard.ModeEdit)
	}
	if len(input.Payload) == 0 || string(input.Payload) == "null" {
		fields["payload"] = "required"
	}
	if len(fields) > 0 {
		return errors.NewValidationFailedError("invalid submission variables", fields)
	}
	return nil
}

func verb(mode string) string {
	if mode == wizard.ModeEdit {
		return "update"
	}
	return "create"
}

func (h *Handler) record(ctx context.Context, s wizard.Submission) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(ctx, s); err != nil {
		h.logger.Warn("Submission journal write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) publish(ctx context.Context, n wizard.Notification) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Publish(ctx, n); err != nil {
		h.logger.Warn("Notification publish failed", map[string]interface{}{"error": err.Error()})
	}
}
