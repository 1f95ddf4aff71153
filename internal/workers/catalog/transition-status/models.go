// internal/workers/catalog/transition-status/models.go
package transitionstatus

const (
	EntityCatalog  = "catalog"
	EntityCategory = "category"
)

// Input names the record to move. An empty Status advances it one step
// along draft, published, retired.
type Input struct {
	Entity          string `json:"entity"`
	ID              string `json:"id"`
	Status          string `json:"status,omitempty"`
	ParentCatalogID string `json:"parentCatalogId,omitempty"`
}

type Output struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
