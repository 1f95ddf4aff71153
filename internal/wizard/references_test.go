package wizard

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/models"
)

// fakeCollection counts concurrent List calls so tests can tell the
// fetches overlap.
type fakeCollection[T any] struct {
	items    []T
	err      error
	delay    time.Duration
	inflight *int32
	peak     *int32
}

func (f *fakeCollection[T]) List(ctx context.Context, p models.ListParams) error {
	if f.inflight != nil {
		n := atomic.AddInt32(f.inflight, 1)
		defer atomic.AddInt32(f.inflight, -1)
		for {
			old := atomic.LoadInt32(f.peak)
			if n <= old || atomic.CompareAndSwapInt32(f.peak, old, n) {
				break
			}
		}
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return f.err
}

func (f *fakeCollection[T]) Items() []T { return f.items }

type fakeRecord[T models.Entity] struct {
	items map[string]T
	calls []string
}

func (f *fakeRecord[T]) GetOne(_ context.Context, id string) (T, error) {
	f.calls = append(f.calls, id)
	item, ok := f.items[id]
	if !ok {
		return item, errors.NewResourceNotFoundError("record", id)
	}
	return item, nil
}

func TestLoadReferences_FetchesConcurrently(t *testing.T) {
	var inflight, peak int32
	delay := 30 * time.Millisecond
	src := Sources{
		SalesCycleTypes:  &fakeCollection[models.SalesCycleType]{items: []models.SalesCycleType{{ID: "new_customer", Name: "New customer"}}, delay: delay, inflight: &inflight, peak: &peak},
		Stages:           &fakeCollection[models.Stage]{delay: delay, inflight: &inflight, peak: &peak},
		Accounts:         &fakeCollection[models.Account]{items: []models.Account{{ID: "acc-1", Name: "Acme"}}, delay: delay, inflight: &inflight, peak: &peak},
		UnitsOfMeasure:   &fakeCollection[models.UnitOfMeasure]{delay: delay, inflight: &inflight, peak: &peak},
		ProductOfferings: &fakeCollection[models.ProductOffering]{delay: delay, inflight: &inflight, peak: &peak},
		PriceLists:       &fakeCollection[models.PriceList]{delay: delay, inflight: &inflight, peak: &peak},
	}

	refs, err := LoadReferences(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme", refs.Accounts[0].Name)
	assert.Equal(t, "New customer", refs.SalesCycleTypes[0].Name)
	assert.Nil(t, refs.Opportunity)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestLoadReferences_EditModeLoadsPriceListAfterOpportunity(t *testing.T) {
	opps := &fakeRecord[models.Opportunity]{items: map[string]models.Opportunity{
		"opp-1": {ID: "opp-1", ShortDescription: "Renewal", PriceList: "pl-old"},
	}}
	lists := &fakeRecord[models.PriceList]{items: map[string]models.PriceList{
		"pl-old": {ID: "pl-old", Name: "Legacy", Currency: "GBP", StartDate: "2020-01-01"},
	}}
	src := Sources{Opportunities: opps, PriceList: lists}

	refs, err := LoadReferences(context.Background(), src, "opp-1")
	require.NoError(t, err)
	require.NotNil(t, refs.Opportunity)
	require.NotNil(t, refs.PriceList)
	assert.Equal(t, []string{"pl-old"}, lists.calls)

	c := refs.ValidationContext(true, fixedNow, "new_customer")
	require.Len(t, c.PriceLists, 1)
	assert.Equal(t, "GBP", c.PriceLists[0].Currency)
	assert.True(t, c.EditMode)
}

func TestLoadReferences_FirstErrorWins(t *testing.T) {
	src := Sources{
		Stages:     &fakeCollection[models.Stage]{err: fmt.Errorf("stage lookup down")},
		PriceLists: &fakeCollection[models.PriceList]{delay: time.Second},
	}

	start := time.Now()
	_, err := LoadReferences(context.Background(), src, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage lookup down")
	assert.Less(t, time.Since(start), 500*time.Millisecond, "remaining fetches are cancelled")
}

func TestFormFromOpportunity(t *testing.T) {
	opp := models.Opportunity{
		ID:                  "opp-3",
		ShortDescription:    "Upgrade",
		EstimatedClosedDate: "2025-09-30",
		SalesCycleType:      "sct-upsell",
		Probability:         80,
		Account:             "acc-2",
		PriceList:           "pl-eur",
		LineItems:           []models.LineItem{{Name: "Router", Quantity: 3}},
	}

	f := FormFromOpportunity(opp)
	assert.False(t, f.CreateNewPriceList)
	assert.Equal(t, "pl-eur", f.SelectedPriceList)
	assert.Equal(t, 80, f.Opportunity.Probability)
	assert.Equal(t, opp.LineItems, f.ProductOfferings)

	empty := FormFromOpportunity(models.Opportunity{ID: "opp-4"})
	assert.Len(t, empty.ProductOfferings, 1)
}
