package api

import (
	"context"

	"cpq-console/internal/models"
	"cpq-console/internal/wizard"
)

// BPMN process ids started for asynchronous submits.
const (
	ProcessOpportunitySubmission = "opportunity-submission"
	ProcessPricingUpdate         = "opportunity-pricing-update"
)

// ProcessSubmitter implements wizard.Submitter by starting a process
// instance that carries the payload. The returned opportunity is empty;
// the record is created by the submit-workflow job worker.
type ProcessSubmitter struct {
	Processes ProcessStarter
}

// Deferred reports that a nil error only means the process started.
func (ProcessSubmitter) Deferred() bool { return true }

func (p ProcessSubmitter) CreateOpportunity(ctx context.Context, payload wizard.WorkflowPayload) (models.Opportunity, error) {
	_, err := p.Processes.StartProcess(ctx, ProcessOpportunitySubmission, map[string]interface{}{
		"mode":    wizard.ModeCreate,
		"payload": payload,
	})
	return models.Opportunity{}, err
}

func (p ProcessSubmitter) UpdatePricing(ctx context.Context, opportunityID string, payload wizard.PricingUpdatePayload) (models.Opportunity, error) {
	_, err := p.Processes.StartProcess(ctx, ProcessPricingUpdate, map[string]interface{}{
		"mode":          wizard.ModeEdit,
		"opportunityId": opportunityID,
		"payload":       payload,
	})
	return models.Opportunity{ID: opportunityID}, err
}
