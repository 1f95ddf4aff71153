package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cpq-console/internal/common/validation"
	"cpq-console/internal/models"
)

// Context is the read-only data the schema needs besides the form itself.
type Context struct {
	PriceLists       []models.PriceList
	ProductOfferings []models.ProductOffering
	EditMode         bool
	Now              time.Time
	// NewCustomerSalesCycleTypeID is the sales cycle type that switches the
	// account from a reference to an inline new account.
	NewCustomerSalesCycleTypeID string
}

func (c Context) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// IsNewCustomer reports whether the form takes the inline new-account path.
func (c Context) IsNewCustomer(f FormState) bool {
	return c.NewCustomerSalesCycleTypeID != "" && f.Opportunity.SalesCycleType == c.NewCustomerSalesCycleTypeID
}

// Validation codes.
const (
	CodeRequired = "REQUIRED"
	CodeFormat   = "FORMAT"
	CodeRange    = "RANGE"
	CodeMismatch = "MISMATCH"
	CodeMinItems = "MIN_ITEMS"
)

// Validate evaluates the whole schema. Per-step checks filter the result
// through StepErrors instead of running a separate schema.
func Validate(f FormState, c Context) *validation.Result {
	r := validation.NewResult()
	validateOpportunity(r, f, c)
	validateAccount(r, f, c)
	validatePriceList(r, f, c.now().Location())
	validateLineItems(r, f, c)
	return r
}

func validateOpportunity(r *validation.Result, f FormState, c Context) {
	o := f.Opportunity
	if strings.TrimSpace(o.ShortDescription) == "" {
		r.Add("opportunity.short_description", CodeRequired, "Short description is required")
	}

	if o.EstimatedClosedDate == "" {
		r.Add("opportunity.estimated_closed_date", CodeRequired, "Estimated close date is required")
	} else if closeDate, err := parseDate(o.EstimatedClosedDate, c.now().Location()); err != nil {
		r.Add("opportunity.estimated_closed_date", CodeFormat, "Invalid date")
	} else if !c.EditMode && !midnight(closeDate).After(midnight(c.now())) {
		r.Add("opportunity.estimated_closed_date", CodeRange, "Estimated close date must be in the future")
	}

	if o.SalesCycleType == "" {
		r.Add("opportunity.sales_cycle_type", CodeRequired, "Sales cycle type is required")
	}
	if o.Probability < 0 || o.Probability > 100 {
		r.Add("opportunity.probability", CodeRange, "Probability must be between 0 and 100")
	}
	if !c.IsNewCustomer(f) && o.Account == "" {
		r.Add("opportunity.account", CodeRequired, "Account is required")
	}
}

func validateAccount(r *validation.Result, f FormState, c Context) {
	if !c.IsNewCustomer(f) {
		return
	}
	if strings.TrimSpace(f.Account.Name) == "" {
		r.Add("account.name", CodeRequired, "Account name is required")
	}
	switch {
	case strings.TrimSpace(f.Account.Email) == "":
		r.Add("account.email", CodeRequired, "Email is required")
	case !validation.ValidateEmail(f.Account.Email):
		r.Add("account.email", CodeFormat, "Invalid email address")
	}
}

func validatePriceList(r *validation.Result, f FormState, loc *time.Location) {
	if !f.CreateNewPriceList {
		if f.SelectedPriceList == "" {
			r.Add("selectedPriceList", CodeRequired, "Please select a price list")
		}
		return
	}

	pl := f.PriceList
	if strings.TrimSpace(pl.Name) == "" {
		r.Add("priceList.name", CodeRequired, "Price list name is required")
	}
	switch {
	case pl.Currency == "":
		r.Add("priceList.currency", CodeRequired, "Currency is required")
	case !models.IsCurrency(pl.Currency):
		r.Add("priceList.currency", CodeFormat, fmt.Sprintf("Currency must be one of %s", strings.Join(models.Currencies, ", ")))
	}
	if pl.State == "" {
		r.Add("priceList.state", CodeRequired, "State is required")
	}

	start, startErr := parseDate(pl.StartDate, loc)
	if pl.StartDate == "" {
		r.Add("priceList.start_date", CodeRequired, "Start date is required")
	} else if startErr != nil {
		r.Add("priceList.start_date", CodeFormat, "Invalid date")
	}
	if pl.EndDate == "" {
		return
	}
	end, err := parseDate(pl.EndDate, loc)
	if err != nil {
		r.Add("priceList.end_date", CodeFormat, "Invalid date")
		return
	}
	if startErr == nil && pl.StartDate != "" && !end.After(start) {
		r.Add("priceList.end_date", CodeRange, "End date must be after start date")
	}
}

func validateLineItems(r *validation.Result, f FormState, c Context) {
	if len(f.ProductOfferings) == 0 {
		r.Add("productOfferings", CodeMinItems, "At least one product offering is required")
		return
	}

	active := f.activePriceList(c.PriceLists)
	bounds := priceListBounds(active, c.now().Location())

	for i, item := range f.ProductOfferings {
		path := fmt.Sprintf("productOfferings[%d]", i)

		if item.ProductOffering.ID == "" {
			r.Add(path+".productOffering.id", CodeRequired, "Product offering is required")
		}

		switch {
		case strings.TrimSpace(item.Price.Value) == "":
			r.Add(path+".price.value", CodeRequired, "Price is required")
		default:
			if d, err := decimal.NewFromString(strings.TrimSpace(item.Price.Value)); err != nil || d.IsNegative() {
				r.Add(path+".price.value", CodeFormat, "Price must be a non-negative number")
			}
		}
		if active != nil && item.Price.Unit != active.Currency {
			r.Add(path+".price.unit", CodeMismatch, "Currency must match Price List currency")
		}

		if item.UnitOfMeasure.ID == "" {
			r.Add(path+".unitOfMeasure.id", CodeRequired, "Unit of measure is required")
		}

		switch {
		case item.PriceType == "":
			r.Add(path+".priceType", CodeRequired, "Price type is required")
		case item.PriceType != models.PriceTypeRecurring && item.PriceType != models.PriceTypeOneTime:
			r.Add(path+".priceType", CodeFormat, "Price type must be recurring or one_time")
		default:
			// An offering that is not among the loaded ones passes.
			if offering := findOffering(c.ProductOfferings, item.ProductOffering.ID); offering != nil {
				if declared := offering.PricingType(); declared != "" && declared != item.PriceType {
					r.Add(path+".priceType", CodeMismatch, "Price type must match the product offering's pricing type")
				}
			}
		}

		if item.Quantity < 1 {
			r.Add(path+".quantity", CodeRange, "Quantity must be at least 1")
		}

		validateValidFor(r, path+".validFor", item.ValidFor, bounds, c)
	}
}

func validateValidFor(r *validation.Result, path string, vf models.ValidFor, bounds *dateBounds, c Context) {
	loc := c.now().Location()

	var start, end time.Time
	startOK, endOK := false, false

	if vf.StartDateTime == "" {
		r.Add(path+".startDateTime", CodeRequired, "Start date is required")
	} else if t, err := parseDate(vf.StartDateTime, loc); err != nil {
		r.Add(path+".startDateTime", CodeFormat, "Invalid date")
	} else {
		start, startOK = t, true
		if start.After(c.now()) {
			r.Add(path+".startDateTime", CodeRange, "Start date cannot be in the future")
		} else if bounds != nil && !bounds.contains(start) {
			r.Add(path+".startDateTime", CodeRange, "Start date must be within the price list's validity period")
		}
	}

	if vf.EndDateTime == "" {
		r.Add(path+".endDateTime", CodeRequired, "End date is required")
	} else if t, err := parseDate(vf.EndDateTime, loc); err != nil {
		r.Add(path+".endDateTime", CodeFormat, "Invalid date")
	} else {
		end, endOK = t, true
	}

	if !endOK {
		return
	}
	if startOK && !end.After(start) {
		r.Add(path+".endDateTime", CodeRange, "End date must be after start date")
		return
	}
	if bounds != nil && !bounds.contains(end) {
		r.Add(path+".endDateTime", CodeRange, "End date must be within the price list's validity period")
	}
}

func findOffering(offerings []models.ProductOffering, id string) *models.ProductOffering {
	if id == "" {
		return nil
	}
	for i := range offerings {
		if offerings[i].ID == id {
			return &offerings[i]
		}
	}
	return nil
}

// UnresolvedOfferings lists line-item offering ids the context cannot
// resolve, so their price type went unchecked.
func UnresolvedOfferings(f FormState, c Context) []string {
	var out []string
	for _, item := range f.ProductOfferings {
		if item.ProductOffering.ID != "" && findOffering(c.ProductOfferings, item.ProductOffering.ID) == nil {
			out = append(out, item.ProductOffering.ID)
		}
	}
	return out
}

// dateBounds is a price list validity window compared by calendar day. A
// zero end is open.
type dateBounds struct {
	start time.Time
	end   time.Time
}

func priceListBounds(pl *models.PriceList, loc *time.Location) *dateBounds {
	if pl == nil || pl.StartDate == "" {
		return nil
	}
	start, err := parseDate(pl.StartDate, loc)
	if err != nil {
		return nil
	}
	b := &dateBounds{start: midnight(start)}
	if pl.EndDate != "" {
		if end, err := parseDate(pl.EndDate, loc); err == nil {
			b.end = midnight(end)
		}
	}
	return b
}

func (b *dateBounds) contains(t time.Time) bool {
	day := midnight(t)
	if day.Before(b.start) {
		return false
	}
	return b.end.IsZero() || !day.After(b.end)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts ISO dates and date-times. Values without an offset are
// read in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
