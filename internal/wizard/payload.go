package wizard

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/validation"
	"cpq-console/internal/models"
)

// LinePayload is a line item as sent to the backend, with a parsed price.
type LinePayload struct {
	Name                      string          `json:"name"`
	Price                     models.Price    `json:"price"`
	ProductOffering           models.Ref      `json:"productOffering"`
	UnitOfMeasure             models.Ref      `json:"unitOfMeasure"`
	PriceType                 string          `json:"priceType"`
	RecurringChargePeriodType string          `json:"recurringChargePeriodType,omitempty"`
	ValidFor                  models.ValidFor `json:"validFor"`
	TermMonth                 string          `json:"term_month,omitempty"`
	Quantity                  int             `json:"quantity"`
}

// WorkflowPayload is the composite body of POST /api/opportunity-workflow.
type WorkflowPayload struct {
	Opportunity        OpportunityFields  `json:"opportunity"`
	Account            *models.NewAccount `json:"account,omitempty"`
	CreateNewPriceList bool               `json:"createNewPriceList"`
	PriceList          *PriceListFields   `json:"priceList,omitempty"`
	PriceListID        string             `json:"priceListId,omitempty"`
	ProductOfferings   []LinePayload      `json:"productOfferings"`
}

// PricingUpdatePayload is the body of PATCH /api/opportunity/:id.
type PricingUpdatePayload struct {
	Opportunity        OpportunityFields `json:"opportunity"`
	CreateNewPriceList bool              `json:"createNewPriceList"`
	PriceList          *PriceListFields  `json:"priceList,omitempty"`
	PriceListID        string            `json:"priceListId,omitempty"`
	ProductOfferings   []LinePayload     `json:"productOfferings"`
}

const lineItemsSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["productOffering", "unitOfMeasure", "price", "priceType", "validFor", "quantity"],
    "properties": {
      "productOffering": {"type": "object", "required": ["id"], "properties": {"id": {"type": "string", "minLength": 1}}},
      "unitOfMeasure": {"type": "object", "required": ["id"], "properties": {"id": {"type": "string", "minLength": 1}}},
      "price": {"type": "object", "required": ["unit", "value"], "properties": {"unit": {"enum": ["USD", "EUR", "GBP"]}}},
      "priceType": {"enum": ["recurring", "one_time"]},
      "validFor": {"type": "object", "required": ["startDateTime", "endDateTime"]},
      "quantity": {"type": "integer", "minimum": 1}
    }
  }
}`

var workflowSchema = validation.MustCompileDocumentSchema(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["opportunity", "createNewPriceList", "productOfferings"],
  "properties": {
    "opportunity": {
      "type": "object",
      "required": ["short_description", "estimated_closed_date", "sales_cycle_type", "probability"],
      "properties": {
        "short_description": {"type": "string", "minLength": 1},
        "probability": {"type": "integer", "minimum": 0, "maximum": 100}
      }
    },
    "account": {
      "type": "object",
      "required": ["name", "email"],
      "properties": {"email": {"type": "string", "minLength": 3}}
    },
    "priceList": {
      "type": "object",
      "required": ["name", "currency", "state", "start_date"],
      "properties": {"currency": {"enum": ["USD", "EUR", "GBP"]}}
    },
    "productOfferings": ` + lineItemsSchema + `
  },
  "oneOf": [
    {"properties": {"createNewPriceList": {"const": true}}, "required": ["priceList"]},
    {"properties": {"createNewPriceList": {"const": false}}, "required": ["priceListId"]}
  ]
}`)

var pricingUpdateSchema = validation.MustCompileDocumentSchema(`{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["opportunity", "productOfferings"],
  "properties": {
    "productOfferings": ` + lineItemsSchema + `
  }
}`)

// BuildWorkflowPayload assembles the create body. newCustomer selects the
// inline account instead of the account reference.
func BuildWorkflowPayload(f FormState, newCustomer bool) (WorkflowPayload, error) {
	lines, err := linePayloads(f.ProductOfferings)
	if err != nil {
		return WorkflowPayload{}, err
	}

	p := WorkflowPayload{
		Opportunity:        f.Opportunity,
		CreateNewPriceList: f.CreateNewPriceList,
		ProductOfferings:   lines,
	}
	if newCustomer {
		account := f.Account
		p.Account = &account
		p.Opportunity.Account = ""
	}
	if f.CreateNewPriceList {
		pl := f.PriceList
		p.PriceList = &pl
	} else {
		p.PriceListID = f.SelectedPriceList
	}

	if err := CheckWorkflowPayload(p); err != nil {
		return WorkflowPayload{}, err
	}
	return p, nil
}

// BuildPricingUpdatePayload assembles the edit body.
func BuildPricingUpdatePayload(f FormState) (PricingUpdatePayload, error) {
	lines, err := linePayloads(f.ProductOfferings)
	if err != nil {
		return PricingUpdatePayload{}, err
	}

	p := PricingUpdatePayload{
		Opportunity:        f.Opportunity,
		CreateNewPriceList: f.CreateNewPriceList,
		ProductOfferings:   lines,
	}
	if f.CreateNewPriceList {
		pl := f.PriceList
		p.PriceList = &pl
	} else {
		p.PriceListID = f.SelectedPriceList
	}

	if err := CheckPricingUpdatePayload(p); err != nil {
		return PricingUpdatePayload{}, err
	}
	return p, nil
}

// CheckWorkflowPayload validates a create body against its JSON schema.
// Payloads that did not come from BuildWorkflowPayload must pass it before
// they are sent.
func CheckWorkflowPayload(p WorkflowPayload) error {
	return checkDocument(workflowSchema, p)
}

// CheckPricingUpdatePayload validates an edit body against its JSON schema.
func CheckPricingUpdatePayload(p PricingUpdatePayload) error {
	return checkDocument(pricingUpdateSchema, p)
}

func linePayloads(items []models.LineItem) ([]LinePayload, error) {
	out := make([]LinePayload, 0, len(items))
	for i, item := range items {
		value, err := decimal.NewFromString(strings.TrimSpace(item.Price.Value))
		if err != nil {
			return nil, errors.NewValidationFailedError(
				fmt.Sprintf("line item %d has an invalid price", i),
				map[string]string{fmt.Sprintf("productOfferings[%d].price.value", i): "Price must be a non-negative number"},
			)
		}
		out = append(out, LinePayload{
			Name:                      item.Name,
			Price:                     models.Price{Unit: item.Price.Unit, Value: value},
			ProductOffering:           item.ProductOffering,
			UnitOfMeasure:             item.UnitOfMeasure,
			PriceType:                 item.PriceType,
			RecurringChargePeriodType: item.RecurringChargePeriodType,
			ValidFor:                  item.ValidFor,
			TermMonth:                 item.TermMonth,
			Quantity:                  item.Quantity,
		})
	}
	return out, nil
}

func checkDocument(schema *validation.DocumentSchema, doc interface{}) error {
	res, err := schema.Validate(doc)
	if err != nil {
		return errors.NewValidationFailedError(err.Error(), nil)
	}
	if !res.Valid {
		return errors.NewValidationFailedError(strings.Join(res.GetErrorMessages(), "; "), res.FieldMessages())
	}
	return nil
}
