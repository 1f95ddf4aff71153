package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/models"
)

func TestSummarize(t *testing.T) {
	f := validForm()
	f.ProductOfferings = append(f.ProductOfferings, models.LineItem{
		Price:           models.FormPrice{Unit: "USD", Value: "49.99"},
		ProductOffering: models.Ref{ID: "po-2"},
		UnitOfMeasure:   models.Ref{ID: "uom-each"},
		PriceType:       models.PriceTypeOneTime,
		Quantity:        1,
	})
	refs := testRefs()
	refs.Accounts = []models.Account{{ID: "acc-1", Name: "Acme Corp"}}
	refs.UnitsOfMeasure = []models.UnitOfMeasure{{ID: "uom-month", Name: "Month"}}

	s := Summarize(f, refs, "new_customer")

	assert.Equal(t, "Fibre rollout", s.Title)
	require.Len(t, s.Sections, 5)
	assert.Contains(t, s.Sections[0].Rows, Row{"Account", "Acme Corp"})
	assert.Contains(t, s.Sections[1].Rows, Row{"Valid", "2025-01-01 to 2026-12-31"})
	assert.Contains(t, s.Sections[2].Rows, Row{"Unit of measure", "Month"})
	assert.Contains(t, s.Sections[3].Rows, Row{"Product offering", "Router"}, "falls back to the offering name")
	assert.Contains(t, s.Sections[3].Rows, Row{"Unit of measure", "uom-each"}, "unresolved ids are shown as is")
	assert.Equal(t, "249.99", s.Totals["USD"].String())
	assert.Equal(t, []Row{{"USD", "249.99"}}, s.Sections[4].Rows)
}

func TestSummarize_NewCustomerAndExistingList(t *testing.T) {
	f := validForm()
	f.Opportunity.SalesCycleType = "new_customer"
	f.Account = models.NewAccount{Name: "Globex", Email: "ops@globex.example"}
	f.CreateNewPriceList = false
	f.SelectedPriceList = "pl-eur"

	s := Summarize(f, testRefs(), "new_customer")
	assert.Contains(t, s.Sections[0].Rows, Row{"New account", "Globex"})
	assert.Contains(t, s.Sections[1].Rows, Row{"Valid", "2025-01-01 onwards"})

	untitled := Summarize(DefaultFormState(), nil, "")
	assert.Equal(t, "New opportunity", untitled.Title)
}
