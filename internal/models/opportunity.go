package models

// Opportunity is a sales-pipeline record.
type Opportunity struct {
	ID                  string     `json:"id"`
	Number              string     `json:"number,omitempty"`
	ShortDescription    string     `json:"short_description"`
	EstimatedClosedDate string     `json:"estimated_closed_date"`
	Description         string     `json:"description,omitempty"`
	TermMonth           string     `json:"term_month,omitempty"`
	SalesCycleType      string     `json:"sales_cycle_type"`
	Probability         int        `json:"probability"`
	Stage               string     `json:"stage,omitempty"`
	Industry            string     `json:"industry,omitempty"`
	Account             string     `json:"account,omitempty"`
	PriceList           string     `json:"price_list,omitempty"`
	LineItems           []LineItem `json:"line_items,omitempty"`
	CreatedAt           string     `json:"created_at,omitempty"`
}

func (o Opportunity) GetID() string { return o.ID }

// NewAccount is the inline account created with a new-customer opportunity.
type NewAccount struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LineItem is one priced product offering attached to an opportunity.
// Price.Value stays a string here because it is user input until submit.
type LineItem struct {
	Name                      string    `json:"name"`
	Price                     FormPrice `json:"price"`
	ProductOffering           Ref       `json:"productOffering"`
	UnitOfMeasure             Ref       `json:"unitOfMeasure"`
	PriceType                 string    `json:"priceType"`
	RecurringChargePeriodType string    `json:"recurringChargePeriodType,omitempty"`
	ValidFor                  ValidFor  `json:"validFor"`
	TermMonth                 string    `json:"term_month,omitempty"`
	Quantity                  int       `json:"quantity"`
}

// FormPrice is a price as typed into the wizard.
type FormPrice struct {
	Unit  string `json:"unit"`
	Value string `json:"value"`
}
