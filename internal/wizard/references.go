package wizard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cpq-console/internal/models"
)

// Collection is the part of a store slice reference loading needs.
type Collection[T any] interface {
	List(ctx context.Context, p models.ListParams) error
	Items() []T
}

// Record fetches one record by id.
type Record[T any] interface {
	GetOne(ctx context.Context, id string) (T, error)
}

// Sources are the collections the wizard reads reference data from.
type Sources struct {
	SalesCycleTypes  Collection[models.SalesCycleType]
	Stages           Collection[models.Stage]
	Accounts         Collection[models.Account]
	UnitsOfMeasure   Collection[models.UnitOfMeasure]
	ProductOfferings Collection[models.ProductOffering]
	PriceLists       Collection[models.PriceList]

	Opportunities Record[models.Opportunity]
	PriceList     Record[models.PriceList]

	// Limit is the page size requested for each collection.
	Limit int
}

// References is the reference data a wizard session validates and renders
// against.
type References struct {
	SalesCycleTypes  []models.SalesCycleType  `json:"salesCycleTypes"`
	Stages           []models.Stage           `json:"stages"`
	Accounts         []models.Account         `json:"accounts"`
	UnitsOfMeasure   []models.UnitOfMeasure   `json:"unitsOfMeasure"`
	ProductOfferings []models.ProductOffering `json:"productOfferings"`
	PriceLists       []models.PriceList       `json:"priceLists"`

	// Set in edit mode only.
	Opportunity *models.Opportunity `json:"opportunity,omitempty"`
	PriceList   *models.PriceList   `json:"priceList,omitempty"`
}

// LoadReferences fetches the six reference collections concurrently. When
// opportunityID is set the opportunity is fetched alongside them and its
// price list right after it, since that id is only known once the
// opportunity has loaded. The first failure cancels the rest.
func LoadReferences(ctx context.Context, src Sources, opportunityID string) (*References, error) {
	limit := src.Limit
	if limit <= 0 {
		limit = 100
	}
	params := models.ListParams{Page: 1, Limit: limit}
	refs := &References{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { refs.SalesCycleTypes, err = load(gctx, src.SalesCycleTypes, params); return })
	g.Go(func() (err error) { refs.Stages, err = load(gctx, src.Stages, params); return })
	g.Go(func() (err error) { refs.Accounts, err = load(gctx, src.Accounts, params); return })
	g.Go(func() (err error) { refs.UnitsOfMeasure, err = load(gctx, src.UnitsOfMeasure, params); return })
	g.Go(func() (err error) { refs.ProductOfferings, err = load(gctx, src.ProductOfferings, params); return })
	g.Go(func() (err error) { refs.PriceLists, err = load(gctx, src.PriceLists, params); return })

	if opportunityID != "" && src.Opportunities != nil {
		g.Go(func() error {
			opp, err := src.Opportunities.GetOne(gctx, opportunityID)
			if err != nil {
				return err
			}
			refs.Opportunity = &opp
			if opp.PriceList == "" || src.PriceList == nil {
				return nil
			}
			pl, err := src.PriceList.GetOne(gctx, opp.PriceList)
			if err != nil {
				return err
			}
			refs.PriceList = &pl
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func load[T any](ctx context.Context, c Collection[T], p models.ListParams) ([]T, error) {
	if c == nil {
		return []T{}, nil
	}
	if err := c.List(ctx, p); err != nil {
		return nil, err
	}
	return c.Items(), nil
}

// ValidationContext builds the schema context. The edit-mode price list is
// added to the loaded lists when the page did not include it.
func (r *References) ValidationContext(editMode bool, now time.Time, newCustomerID string) Context {
	lists := r.PriceLists
	if r.PriceList != nil && findPriceList(lists, r.PriceList.ID) == nil {
		lists = append(append([]models.PriceList(nil), lists...), *r.PriceList)
	}
	return Context{
		PriceLists:                  lists,
		ProductOfferings:            r.ProductOfferings,
		EditMode:                    editMode,
		Now:                         now,
		NewCustomerSalesCycleTypeID: newCustomerID,
	}
}

func findPriceList(lists []models.PriceList, id string) *models.PriceList {
	for i := range lists {
		if lists[i].ID == id {
			return &lists[i]
		}
	}
	return nil
}

// FormFromOpportunity maps an existing opportunity onto the form for an
// edit session. The price list is always the existing one.
func FormFromOpportunity(o models.Opportunity) FormState {
	f := DefaultFormState()
	f.Opportunity = OpportunityFields{
		ShortDescription:    o.ShortDescription,
		EstimatedClosedDate: o.EstimatedClosedDate,
		Description:         o.Description,
		TermMonth:           o.TermMonth,
		SalesCycleType:      o.SalesCycleType,
		Probability:         o.Probability,
		Stage:               o.Stage,
		Industry:            o.Industry,
		Account:             o.Account,
	}
	f.CreateNewPriceList = false
	f.SelectedPriceList = o.PriceList
	if len(o.LineItems) > 0 {
		f.ProductOfferings = append([]models.LineItem(nil), o.LineItems...)
	}
	return f
}
