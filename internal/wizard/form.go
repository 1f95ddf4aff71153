// Package wizard implements the four-step opportunity wizard: one form
// state shared by every step, one validation schema evaluated per step or
// in full, draft persistence outside edit mode, and the composite
// submission payloads.
package wizard

import "cpq-console/internal/models"

// OpportunityFields are the step-0 fields.
type OpportunityFields struct {
	ShortDescription    string `json:"short_description"`
	EstimatedClosedDate string `json:"estimated_closed_date"`
	Description         string `json:"description"`
	TermMonth           string `json:"term_month"`
	SalesCycleType      string `json:"sales_cycle_type"`
	Probability         int    `json:"probability"`
	Stage               string `json:"stage"`
	Industry            string `json:"industry"`
	Account             string `json:"account"`
}

// PriceListFields describe a price list created inline with the opportunity.
type PriceListFields struct {
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	State       string `json:"state"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

// FormState holds every field of every step. When CreateNewPriceList is
// set PriceList is used and SelectedPriceList ignored, and the other way
// round otherwise.
type FormState struct {
	Opportunity        OpportunityFields `json:"opportunity"`
	Account            models.NewAccount `json:"account"`
	CreateNewPriceList bool              `json:"createNewPriceList"`
	PriceList          PriceListFields   `json:"priceList"`
	SelectedPriceList  string            `json:"selectedPriceList"`
	ProductOfferings   []models.LineItem `json:"productOfferings"`
}

// DefaultFormState is the form a new wizard starts from.
func DefaultFormState() FormState {
	return FormState{
		Opportunity:        OpportunityFields{Probability: 50},
		CreateNewPriceList: true,
		PriceList:          PriceListFields{Currency: "USD", State: "draft"},
		ProductOfferings:   []models.LineItem{NewLineItem("USD")},
	}
}

// NewLineItem returns an empty line item priced in currency.
func NewLineItem(currency string) models.LineItem {
	return models.LineItem{
		Price:    models.FormPrice{Unit: currency},
		Quantity: 1,
	}
}

// Clone returns a deep copy.
func (f FormState) Clone() FormState {
	out := f
	out.ProductOfferings = append([]models.LineItem(nil), f.ProductOfferings...)
	return out
}

// ActiveCurrency is the currency of the inline price list, or of the
// selected existing one when it is among lists.
func (f FormState) ActiveCurrency(lists []models.PriceList) string {
	if pl := f.activePriceList(lists); pl != nil {
		return pl.Currency
	}
	return ""
}

// activePriceList returns the bounds line items must respect, or nil when
// the selected price list is not among the loaded ones.
func (f FormState) activePriceList(lists []models.PriceList) *models.PriceList {
	if f.CreateNewPriceList {
		return &models.PriceList{
			Name:      f.PriceList.Name,
			Currency:  f.PriceList.Currency,
			StartDate: f.PriceList.StartDate,
			EndDate:   f.PriceList.EndDate,
		}
	}
	for i := range lists {
		if lists[i].ID == f.SelectedPriceList {
			return &lists[i]
		}
	}
	return nil
}
