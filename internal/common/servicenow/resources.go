package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/models"
)

// Resource describes one backend collection.
type Resource struct {
	Name       string
	Path       string
	CreatePath string
	StatusPath string
}

var (
	Opportunities = Resource{
		Name:       "opportunity",
		Path:       "/api/opportunity",
		CreatePath: "/api/opportunity-workflow",
	}
	PriceLists            = Resource{Name: "price-list", Path: "/api/price-list"}
	ProductOfferings      = Resource{Name: "product-offering", Path: "/api/product-offering"}
	ProductOfferingPrices = Resource{Name: "product-offering-price", Path: "/api/product-offering-price"}
	Catalogs              = Resource{
		Name:       "product-offering-catalog",
		Path:       "/api/product-offering-catalog",
		StatusPath: "/api/product-offering-catalog-status",
	}
	Categories = Resource{
		Name:       "product-offering-category",
		Path:       "/api/product-offering-category",
		StatusPath: "/api/product-offering-category-status",
	}
	CatalogCategoryRelationships = Resource{Name: "catalog-category-relationship", Path: "/api/catalog-category-relationship"}

	Accounts        = Resource{Name: "account", Path: "/api/account"}
	SalesCycleTypes = Resource{Name: "sales-cycle-type", Path: "/api/sales-cycle-type"}
	Stages          = Resource{Name: "stage", Path: "/api/stage"}
	UnitsOfMeasure  = Resource{Name: "unit-of-measure", Path: "/api/unit-of-measure"}
)

const pricesByPriceListPath = "/api/product-offering-price-pl"

func (r Resource) itemPath(id string) string {
	return r.Path + "/" + url.PathEscape(id)
}

// List fetches one page. A bare JSON array response is accepted and wrapped
// into a single page.
func List[T any](ctx context.Context, c *Client, res Resource, p models.ListParams) (*models.Page[T], error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Query != "" {
		q.Set("q", p.Query)
	}

	body, err := c.do(ctx, call{method: http.MethodGet, resource: res.Name, path: res.Path, query: q})
	if err != nil {
		return nil, err
	}
	return decodePage[T](res.Name, body)
}

func decodePage[T any](resource string, body []byte) (*models.Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.NewBackendRequestFailedError(resource, http.StatusOK, fmt.Errorf("decode list: %w", err))
		}
		return &models.Page[T]{Data: items, Page: 1, TotalPages: 1, Total: len(items)}, nil
	}

	var page models.Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, errors.NewBackendRequestFailedError(resource, http.StatusOK, fmt.Errorf("decode page: %w", err))
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

func Get[T any](ctx context.Context, c *Client, res Resource, id string) (T, error) {
	var out T
	body, err := c.do(ctx, call{method: http.MethodGet, resource: res.Name, path: res.itemPath(id)})
	if err != nil {
		return out, err
	}
	if err := decodeRecord(body, &out); err != nil {
		return out, errors.NewBackendRequestFailedError(res.Name, http.StatusOK, fmt.Errorf("decode record: %w", err))
	}
	return out, nil
}

// Create posts payload to the resource's create route.
func Create[T any](ctx context.Context, c *Client, res Resource, payload interface{}) (T, error) {
	path := res.Path
	if res.CreatePath != "" {
		path = res.CreatePath
	}
	return send[T](ctx, c, http.MethodPost, res.Name, path, payload)
}

func Update[T any](ctx context.Context, c *Client, res Resource, id string, payload interface{}) (T, error) {
	return send[T](ctx, c, http.MethodPatch, res.Name, res.itemPath(id), payload)
}

func Delete(ctx context.Context, c *Client, res Resource, id string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, resource: res.Name, path: res.itemPath(id)})
	return err
}

// SetStatus calls the resource's dedicated status route.
func SetStatus[T any](ctx context.Context, c *Client, res Resource, id string, status models.Status) (T, error) {
	if res.StatusPath == "" {
		var zero T
		return zero, fmt.Errorf("%s has no status route", res.Name)
	}
	return send[T](ctx, c, http.MethodPatch, res.Name, res.StatusPath+"/"+url.PathEscape(id), models.StatusChange{Status: status})
}

func send[T any](ctx context.Context, c *Client, method, resource, path string, payload interface{}) (T, error) {
	var out T
	body, err := c.do(ctx, call{method: method, resource: resource, path: path, body: payload})
	if err != nil {
		return out, err
	}
	if err := decodeRecord(body, &out); err != nil {
		return out, errors.NewBackendRequestFailedError(resource, http.StatusOK, fmt.Errorf("decode record: %w", err))
	}
	return out, nil
}

// PricesByPriceList lists the product offering prices of one price list.
func PricesByPriceList(ctx context.Context, c *Client, priceListID string) ([]models.ProductOfferingPrice, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		resource: ProductOfferingPrices.Name,
		path:     pricesByPriceListPath + "/" + url.PathEscape(priceListID),
	})
	if err != nil {
		return nil, err
	}
	page, err := decodePage[models.ProductOfferingPrice](ProductOfferingPrices.Name, body)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// CreateCatalogCategoryRelationship links categoryID under catalogID.
func CreateCatalogCategoryRelationship(ctx context.Context, c *Client, catalogID, categoryID string) (models.CatalogCategoryRelationship, error) {
	return Create[models.CatalogCategoryRelationship](ctx, c, CatalogCategoryRelationships, models.CatalogCategoryRelationship{
		Catalog:  catalogID,
		Category: categoryID,
	})
}
