package models

import (
	"strings"
	"unicode"
)

// Status is the lifecycle status of catalogs and categories.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusRetired   Status = "retired"
)

// CategoryRef is the nested category summary carried on a catalog.
type CategoryRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

type Catalog struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date,omitempty"`
	Status      Status        `json:"status"`
	Description string        `json:"description,omitempty"`
	Categories  []CategoryRef `json:"categories,omitempty"`
}

func (c Catalog) GetID() string   { return c.ID }
func (c Catalog) GetName() string { return c.Name }

type Category struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Code             string `json:"code"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	Status           Status `json:"status"`
	Description      string `json:"description,omitempty"`
	Catalog          string `json:"catalog,omitempty"`
	ProductOfferings []Ref  `json:"productOfferings,omitempty"`
}

func (c Category) GetID() string   { return c.ID }
func (c Category) GetName() string { return c.Name }

// CatalogCategoryRelationship links a category under a catalog.
type CatalogCategoryRelationship struct {
	ID       string `json:"id,omitempty"`
	Catalog  string `json:"catalog"`
	Category string `json:"category"`
}

// StatusChange is the body of a status endpoint call.
type StatusChange struct {
	Status Status `json:"status"`
}

// DeriveCode builds a catalog/category code from its name: upper-cased,
// with every run of non-alphanumerics collapsed to a single underscore.
func DeriveCode(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}
