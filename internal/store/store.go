package store

import (
	"context"
	"time"

	"cpq-console/internal/common/database"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/servicenow"
	"cpq-console/internal/models"
)

// Store groups one Slice per backend collection. It is process-wide: every
// API request and worker shares the same slices.
type Store struct {
	client *servicenow.Client

	Opportunities         *Slice[models.Opportunity]
	PriceLists            *Slice[models.PriceList]
	ProductOfferings      *Slice[models.ProductOffering]
	ProductOfferingPrices *Slice[models.ProductOfferingPrice]
	Catalogs              *Slice[models.Catalog]
	Categories            *Slice[models.Category]
	Accounts              *Slice[models.Account]
	SalesCycleTypes       *Slice[models.SalesCycleType]
	Stages                *Slice[models.Stage]
	UnitsOfMeasure        *Slice[models.UnitOfMeasure]
}

// Options configure New.
type Options struct {
	Slice SliceOptions
	// Cache, when set, fronts the reference collections (accounts, sales
	// cycle types, stages, units of measure).
	Cache    *database.RedisClient
	CacheTTL time.Duration
}

func New(client *servicenow.Client, opts Options, log logger.Logger) *Store {
	return &Store{
		client:                client,
		Opportunities:         NewSlice[models.Opportunity](servicenow.Opportunities.Name, NewRESTBackend[models.Opportunity](client, servicenow.Opportunities), opts.Slice, log),
		PriceLists:            NewSlice[models.PriceList](servicenow.PriceLists.Name, NewRESTBackend[models.PriceList](client, servicenow.PriceLists), opts.Slice, log),
		ProductOfferings:      NewSlice[models.ProductOffering](servicenow.ProductOfferings.Name, NewRESTBackend[models.ProductOffering](client, servicenow.ProductOfferings), opts.Slice, log),
		ProductOfferingPrices: NewSlice[models.ProductOfferingPrice](servicenow.ProductOfferingPrices.Name, NewRESTBackend[models.ProductOfferingPrice](client, servicenow.ProductOfferingPrices), opts.Slice, log),
		Catalogs:              NewSlice[models.Catalog](servicenow.Catalogs.Name, NewRESTBackend[models.Catalog](client, servicenow.Catalogs), opts.Slice, log),
		Categories:            NewSlice[models.Category](servicenow.Categories.Name, NewRESTBackend[models.Category](client, servicenow.Categories), opts.Slice, log),
		Accounts:              NewSlice[models.Account](servicenow.Accounts.Name, referenceBackend[models.Account](client, servicenow.Accounts, opts, log), opts.Slice, log),
		SalesCycleTypes:       NewSlice[models.SalesCycleType](servicenow.SalesCycleTypes.Name, referenceBackend[models.SalesCycleType](client, servicenow.SalesCycleTypes, opts, log), opts.Slice, log),
		Stages:                NewSlice[models.Stage](servicenow.Stages.Name, referenceBackend[models.Stage](client, servicenow.Stages, opts, log), opts.Slice, log),
		UnitsOfMeasure:        NewSlice[models.UnitOfMeasure](servicenow.UnitsOfMeasure.Name, referenceBackend[models.UnitOfMeasure](client, servicenow.UnitsOfMeasure, opts, log), opts.Slice, log),
	}
}

func referenceBackend[T any](client *servicenow.Client, res servicenow.Resource, opts Options, log logger.Logger) Backend[T] {
	rest := NewRESTBackend[T](client, res)
	if opts.Cache == nil {
		return rest
	}
	return NewCachedBackend[T](rest, opts.Cache, res.Name, opts.CacheTTL, log)
}

// PricesByPriceList returns the offering prices of one price list.
func (s *Store) PricesByPriceList(ctx context.Context, priceListID string) ([]models.ProductOfferingPrice, error) {
	return servicenow.PricesByPriceList(ctx, s.client, priceListID)
}

// LinkCategory creates the catalog/category relationship record.
func (s *Store) LinkCategory(ctx context.Context, catalogID, categoryID string) (models.CatalogCategoryRelationship, error) {
	rel, err := servicenow.CreateCatalogCategoryRelationship(ctx, s.client, catalogID, categoryID)
	if err != nil {
		return rel, errors.NewRelationshipCreateFailedError(catalogID, categoryID, err)
	}
	return rel, nil
}

// Close stops pending debounced searches on every slice.
func (s *Store) Close() {
	s.Opportunities.Close()
	s.PriceLists.Close()
	s.ProductOfferings.Close()
	s.ProductOfferingPrices.Close()
	s.Catalogs.Close()
	s.Categories.Close()
	s.Accounts.Close()
	s.SalesCycleTypes.Close()
	s.Stages.Close()
	s.UnitsOfMeasure.Close()
}
