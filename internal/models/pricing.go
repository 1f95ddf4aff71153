package models

// Currencies accepted on price lists.
var Currencies = []string{"USD", "EUR", "GBP"}

// IsCurrency reports whether c is an accepted currency.
func IsCurrency(c string) bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// Pricing types.
const (
	PriceTypeRecurring = "recurring"
	PriceTypeOneTime   = "one_time"
)

// PriceList is a currency-scoped, time-bounded price container.
type PriceList struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	State       string `json:"state"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

func (p PriceList) GetID() string   { return p.ID }
func (p PriceList) GetName() string { return p.Name }

// ProductOffering is a sellable catalog item.
type ProductOffering struct {
	ID                   string                 `json:"id"`
	Name                 string                 `json:"name"`
	Code                 string                 `json:"code,omitempty"`
	Status               Status                 `json:"status,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Category             []Ref                  `json:"category,omitempty"`
	ProductOfferingPrice []ProductOfferingPrice `json:"productOfferingPrice,omitempty"`
}

func (p ProductOffering) GetID() string   { return p.ID }
func (p ProductOffering) GetName() string { return p.Name }

// PricingType returns the price type declared by the offering's first price
// record, or "" when it declares none.
func (p ProductOffering) PricingType() string {
	for _, pop := range p.ProductOfferingPrice {
		if pop.PriceType != "" {
			return pop.PriceType
		}
	}
	return ""
}

// ProductOfferingPrice prices an offering within a price list.
type ProductOfferingPrice struct {
	ID                        string   `json:"id"`
	Name                      string   `json:"name,omitempty"`
	PriceType                 string   `json:"priceType"`
	Price                     Price    `json:"price"`
	RecurringChargePeriodType string   `json:"recurringChargePeriodType,omitempty"`
	UnitOfMeasure             Ref      `json:"unitOfMeasure,omitempty"`
	PriceList                 Ref      `json:"priceList,omitempty"`
	ProductOffering           Ref      `json:"productOffering,omitempty"`
	ValidFor                  ValidFor `json:"validFor,omitempty"`
	LifecycleStatus           string   `json:"lifecycleStatus,omitempty"`
}

func (p ProductOfferingPrice) GetID() string { return p.ID }
