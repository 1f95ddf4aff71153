// internal/workers/dashboard/export-csv/models.go
package exportcsv

type Input struct {
	Collection string            `json:"collection"`
	Search     string            `json:"search,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	SortBy     string            `json:"sortBy,omitempty"`
	Desc       bool              `json:"desc,omitempty"`
	Fields     []string          `json:"fields,omitempty"`
}

type Output struct {
	Collection string `json:"collection"`
	Path       string `json:"exportPath"`
	Rows       int    `json:"exportRows"`
}
