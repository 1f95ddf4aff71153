// Package lifecycle holds the catalog and category status rules:
// draft → published → archived → retired, one step at a time, never back.
package lifecycle

import (
	"fmt"
	"strings"

	"cpq-console/internal/models"
)

var order = []models.Status{
	models.StatusDraft,
	models.StatusPublished,
	models.StatusArchived,
	models.StatusRetired,
}

func rank(s models.Status) int {
	for i, o := range order {
		if o == s {
			return i
		}
	}
	return -1
}

// Next returns the status after s. ok is false for retired and unknown
// statuses.
func Next(s models.Status) (models.Status, bool) {
	r := rank(s)
	if r < 0 || r == len(order)-1 {
		return "", false
	}
	return order[r+1], true
}

// CanTransition reports whether to is exactly one step after from.
func CanTransition(from, to models.Status) bool {
	next, ok := Next(from)
	return ok && next == to
}

// ActionLabel is the button text for advancing from s, or "" when no action
// is offered.
func ActionLabel(s models.Status) string {
	switch s {
	case models.StatusDraft:
		return "Publish"
	case models.StatusPublished:
		return "Archive"
	case models.StatusArchived:
		return "Retire"
	}
	return ""
}

// Lock explains why a catalog cannot be changed.
type Lock struct {
	Locked bool     `json:"locked"`
	Reason string   `json:"reason,omitempty"`
	Blocks []string `json:"blockingCategories,omitempty"`
}

// CatalogLock inspects the nested categories: a catalog with any published
// category is locked against delete and status changes.
func CatalogLock(c models.Catalog) Lock {
	var names []string
	for _, cat := range c.Categories {
		if cat.Status == models.StatusPublished {
			names = append(names, cat.Name)
		}
	}
	if len(names) == 0 {
		return Lock{}
	}
	return Lock{
		Locked: true,
		Reason: fmt.Sprintf("Catalog has published categories: %s", strings.Join(names, ", ")),
		Blocks: names,
	}
}

// Action is one control on a catalog or category row.
type Action struct {
	Name    string        `json:"name"`
	Label   string        `json:"label"`
	Enabled bool          `json:"enabled"`
	Target  models.Status `json:"target,omitempty"`
	Reason  string        `json:"reason,omitempty"`
}

// CatalogActions lists the row controls of a catalog and why any are
// disabled. Retired catalogs get no status action at all.
func CatalogActions(c models.Catalog) []Action {
	lock := CatalogLock(c)
	var actions []Action
	if next, ok := Next(c.Status); ok {
		a := Action{Name: "status", Label: ActionLabel(c.Status), Target: next, Enabled: !lock.Locked}
		if lock.Locked {
			a.Reason = lock.Reason
		}
		actions = append(actions, a)
	}
	del := Action{Name: "delete", Label: "Delete", Enabled: !lock.Locked}
	if lock.Locked {
		del.Reason = lock.Reason
	}
	return append(actions, del)
}

// CategoryActions lists the row controls of a category. Publishing a draft
// category needs a parent catalog, which the caller supplies.
func CategoryActions(c models.Category) []Action {
	var actions []Action
	if next, ok := Next(c.Status); ok {
		a := Action{Name: "status", Label: ActionLabel(c.Status), Target: next, Enabled: true}
		if c.Status == models.StatusDraft {
			a.Reason = "Select a parent catalog to publish"
		}
		actions = append(actions, a)
	}
	return append(actions, Action{Name: "delete", Label: "Delete", Enabled: true})
}
