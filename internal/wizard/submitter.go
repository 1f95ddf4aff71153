package wizard

import (
	"context"

	"cpq-console/internal/models"
)

// OpportunityWriter is the part of the opportunity slice a submit needs.
type OpportunityWriter interface {
	Create(ctx context.Context, payload interface{}) (models.Opportunity, error)
	Update(ctx context.Context, id string, payload interface{}) (models.Opportunity, error)
}

// SliceSubmitter sends creates to the workflow endpoint (the slice's create
// path) and pricing updates as a patch of the opportunity.
type SliceSubmitter struct {
	Opportunities OpportunityWriter
}

func (s SliceSubmitter) CreateOpportunity(ctx context.Context, p WorkflowPayload) (models.Opportunity, error) {
	return s.Opportunities.Create(ctx, p)
}

func (s SliceSubmitter) UpdatePricing(ctx context.Context, opportunityID string, p PricingUpdatePayload) (models.Opportunity, error) {
	return s.Opportunities.Update(ctx, opportunityID, p)
}
