package wizard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cpq-console/internal/models"
)

// Row is one label/value line of the review step.
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Section groups rows under a heading.
type Section struct {
	Heading string `json:"heading"`
	Rows    []Row  `json:"rows"`
}

// Summary is the review step with every reference id resolved to a name.
type Summary struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	// Totals maps currency to the sum of price × quantity.
	Totals map[string]decimal.Decimal `json:"totals"`
}

// Summarize renders the review step. refs may be nil, in which case ids are
// shown as they are.
func Summarize(f FormState, refs *References, newCustomerID string) Summary {
	if refs == nil {
		refs = &References{}
	}
	title := f.Opportunity.ShortDescription
	if title == "" {
		title = "New opportunity"
	}
	s := Summary{Title: title, Totals: map[string]decimal.Decimal{}}

	opp := Section{Heading: "Opportunity", Rows: []Row{
		{"Short description", f.Opportunity.ShortDescription},
		{"Estimated close date", f.Opportunity.EstimatedClosedDate},
		{"Sales cycle type", nameOf(refs.SalesCycleTypes, f.Opportunity.SalesCycleType)},
		{"Stage", nameOf(refs.Stages, f.Opportunity.Stage)},
		{"Probability", strconv.Itoa(f.Opportunity.Probability) + "%"},
		{"Industry", f.Opportunity.Industry},
		{"Term (months)", f.Opportunity.TermMonth},
		{"Description", f.Opportunity.Description},
	}}
	if newCustomerID != "" && f.Opportunity.SalesCycleType == newCustomerID {
		opp.Rows = append(opp.Rows, Row{"New account", f.Account.Name}, Row{"Account email", f.Account.Email})
	} else {
		opp.Rows = append(opp.Rows, Row{"Account", nameOf(refs.Accounts, f.Opportunity.Account)})
	}
	s.Sections = append(s.Sections, opp)

	pl := Section{Heading: "Price list"}
	if f.CreateNewPriceList {
		pl.Rows = []Row{
			{"Name", f.PriceList.Name},
			{"Currency", f.PriceList.Currency},
			{"State", f.PriceList.State},
			{"Valid", dateRange(f.PriceList.StartDate, f.PriceList.EndDate)},
		}
	} else {
		lists := refs.PriceLists
		if refs.PriceList != nil {
			lists = append(append([]models.PriceList(nil), lists...), *refs.PriceList)
		}
		if existing := findPriceList(lists, f.SelectedPriceList); existing != nil {
			pl.Rows = []Row{
				{"Name", existing.Name},
				{"Currency", existing.Currency},
				{"Valid", dateRange(existing.StartDate, existing.EndDate)},
			}
		} else {
			pl.Rows = []Row{{"Price list", f.SelectedPriceList}}
		}
	}
	s.Sections = append(s.Sections, pl)

	for i, item := range f.ProductOfferings {
		name := item.Name
		if name == "" {
			name = nameOf(refs.ProductOfferings, item.ProductOffering.ID)
		}
		sec := Section{Heading: fmt.Sprintf("Line item %d", i+1), Rows: []Row{
			{"Product offering", name},
			{"Price", strings.TrimSpace(item.Price.Value + " " + item.Price.Unit)},
			{"Quantity", strconv.Itoa(item.Quantity)},
			{"Unit of measure", nameOf(refs.UnitsOfMeasure, item.UnitOfMeasure.ID)},
			{"Price type", item.PriceType},
			{"Valid", dateRange(item.ValidFor.StartDateTime, item.ValidFor.EndDateTime)},
		}}
		if item.RecurringChargePeriodType != "" {
			sec.Rows = append(sec.Rows, Row{"Charge period", item.RecurringChargePeriodType})
		}
		s.Sections = append(s.Sections, sec)

		if v, err := decimal.NewFromString(strings.TrimSpace(item.Price.Value)); err == nil && item.Price.Unit != "" {
			s.Totals[item.Price.Unit] = s.Totals[item.Price.Unit].Add(v.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	if len(s.Totals) > 0 {
		totals := Section{Heading: "Totals"}
		for _, cur := range sortedKeys(s.Totals) {
			totals.Rows = append(totals.Rows, Row{cur, s.Totals[cur].StringFixed(2)})
		}
		s.Sections = append(s.Sections, totals)
	}
	return s
}

func nameOf[T models.Named](items []T, id string) string {
	if id == "" {
		return ""
	}
	for _, item := range items {
		if item.GetID() == id {
			return item.GetName()
		}
	}
	return id
}

func dateRange(start, end string) string {
	if end == "" {
		return start + " onwards"
	}
	return start + " to " + end
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
