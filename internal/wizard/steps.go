package wizard

import "cpq-console/internal/common/validation"

// Wizard steps.
const (
	StepOpportunity = iota
	StepPriceList
	StepLineItems
	StepSummary

	LastStep = StepSummary
)

// Step names a wizard step and the field paths that gate leaving it.
// Array elements are written with "[]".
type Step struct {
	Name   string
	Fields []string
}

// Steps is the only place the step to field mapping lives.
var Steps = []Step{
	StepOpportunity: {
		Name: "opportunity",
		Fields: []string{
			"opportunity.short_description",
			"opportunity.estimated_closed_date",
			"opportunity.sales_cycle_type",
			"opportunity.account",
			"opportunity.probability",
		},
	},
	StepPriceList: {
		Name: "price-list",
		Fields: []string{
			"createNewPriceList",
			"priceList.name",
			"priceList.currency",
			"priceList.state",
			"priceList.start_date",
			"selectedPriceList",
		},
	},
	StepLineItems: {
		Name: "line-items",
		Fields: []string{
			"productOfferings",
			"productOfferings[].productOffering.id",
			"productOfferings[].price.value",
			"productOfferings[].unitOfMeasure.id",
			"productOfferings[].priceType",
		},
	},
	StepSummary: {Name: "summary"},
}

// StepName returns the name of step, or "" when out of range.
func StepName(step int) string {
	if step < 0 || step >= len(Steps) {
		return ""
	}
	return Steps[step].Name
}

// StepErrors narrows a full validation result to the fields of step.
func StepErrors(r *validation.Result, step int) *validation.Result {
	if step < 0 || step >= len(Steps) {
		return validation.NewResult()
	}
	return r.Only(Steps[step].Fields...)
}
