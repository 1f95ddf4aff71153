// internal/workers/opportunity/export-summary-pdf/models.go
package exportsummarypdf

type Input struct {
	OpportunityID string `json:"opportunityId"`
}

type Output struct {
	OpportunityID string `json:"opportunityId"`
	Path          string `json:"summaryPdfPath"`
	Pages         int    `json:"summaryPdfPages"`
}
