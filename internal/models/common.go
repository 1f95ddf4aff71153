package models

import "github.com/shopspring/decimal"

// Entity is anything the backend addresses by id.
type Entity interface {
	GetID() string
}

// Named is an entity with a display name.
type Named interface {
	Entity
	GetName() string
}

// Ref is a reference to another backend record.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Price is a monetary amount as stored by the backend.
type Price struct {
	Unit  string          `json:"unit"`
	Value decimal.Decimal `json:"value"`
}

// ValidFor is a validity window. Values are ISO dates or date-times.
type ValidFor struct {
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime,omitempty"`
}

// ListParams are the query parameters every list endpoint accepts.
type ListParams struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Query string `json:"q,omitempty"`
}

// Normalize fills in page 1 and the given default limit.
func (p ListParams) Normalize(defaultLimit int) ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	return p
}

// Page is the list envelope returned by the backend.
type Page[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}
