// internal/workers/opportunity/submit-workflow/models.go
package submitworkflow

import "encoding/json"

// Input is what the submission processes carry. Payload is a
// wizard.WorkflowPayload in create mode and a wizard.PricingUpdatePayload
// in edit mode.
type Input struct {
	Mode          string          `json:"mode"`
	OpportunityID string          `json:"opportunityId,omitempty"`
	SessionID     string          `json:"sessionId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type Output struct {
	OpportunityID string `json:"opportunityId"`
	Outcome       string `json:"submissionOutcome"`
	Message       string `json:"submissionMessage"`
}
