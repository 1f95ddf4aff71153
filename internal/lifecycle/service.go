package lifecycle

import (
	"context"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/models"
)

// Records is the slice surface the service drives for one entity type.
type Records[T models.Entity] interface {
	GetOne(ctx context.Context, id string) (T, error)
	Find(id string) (T, bool)
	TransitionStatus(ctx context.Context, id string, status models.Status) (T, error)
	Delete(ctx context.Context, id string) error
}

// Linker creates the catalog/category relationship.
type Linker interface {
	LinkCategory(ctx context.Context, catalogID, categoryID string) (models.CatalogCategoryRelationship, error)
}

// Observer is told about every completed transition.
type Observer interface {
	StatusChanged(ctx context.Context, entity, id, name string, from, to models.Status)
}

// Service applies status changes and deletes, refusing anything the rules
// forbid before a request is made.
type Service struct {
	catalogs   Records[models.Catalog]
	categories Records[models.Category]
	linker     Linker
	observer   Observer
	logger     logger.Logger
}

func NewService(catalogs Records[models.Catalog], categories Records[models.Category], linker Linker, observer Observer, log logger.Logger) *Service {
	return &Service{
		catalogs:   catalogs,
		categories: categories,
		linker:     linker,
		observer:   observer,
		logger:     logger.Component(log, "lifecycle"),
	}
}

func (s *Service) loadCatalog(ctx context.Context, id string) (models.Catalog, error) {
	if c, ok := s.catalogs.Find(id); ok {
		return c, nil
	}
	return s.catalogs.GetOne(ctx, id)
}

func (s *Service) loadCategory(ctx context.Context, id string) (models.Category, error) {
	if c, ok := s.categories.Find(id); ok {
		return c, nil
	}
	return s.categories.GetOne(ctx, id)
}

// AdvanceCatalog moves a catalog one step forward. Locked catalogs are
// refused without calling the backend.
func (s *Service) AdvanceCatalog(ctx context.Context, id string) (models.Catalog, error) {
	c, err := s.loadCatalog(ctx, id)
	if err != nil {
		return c, err
	}
	next, ok := Next(c.Status)
	if !ok {
		metrics.StatusTransitions.WithLabelValues("catalog", "", "refused").Inc()
		return c, errors.NewStatusTransitionNotAllowedError(string(c.Status), "")
	}
	if lock := CatalogLock(c); lock.Locked {
		metrics.StatusTransitions.WithLabelValues("catalog", string(next), "locked").Inc()
		return c, errors.NewCatalogLockedError(id, lock.Reason)
	}

	updated, err := s.catalogs.TransitionStatus(ctx, id, next)
	if err != nil {
		metrics.StatusTransitions.WithLabelValues("catalog", string(next), "failed").Inc()
		return c, err
	}
	metrics.StatusTransitions.WithLabelValues("catalog", string(next), "succeeded").Inc()
	s.changed(ctx, "catalog", id, c.Name, c.Status, next)
	return updated, nil
}

// TransitionCatalog moves a catalog to target, which must be the next status.
func (s *Service) TransitionCatalog(ctx context.Context, id string, target models.Status) (models.Catalog, error) {
	c, err := s.loadCatalog(ctx, id)
	if err != nil {
		return c, err
	}
	if !CanTransition(c.Status, target) {
		return c, errors.NewStatusTransitionNotAllowedError(string(c.Status), string(target))
	}
	return s.AdvanceCatalog(ctx, id)
}

// DeleteCatalog deletes a catalog unless it is locked.
func (s *Service) DeleteCatalog(ctx context.Context, id string) error {
	c, err := s.loadCatalog(ctx, id)
	if err != nil {
		return err
	}
	if lock := CatalogLock(c); lock.Locked {
		return errors.NewCatalogLockedError(id, lock.Reason)
	}
	return s.catalogs.Delete(ctx, id)
}

// AdvanceCategory moves a category one step forward. Publishing a draft
// category first links it to parentCatalogID; when that fails the status
// call is not made.
func (s *Service) AdvanceCategory(ctx context.Context, id, parentCatalogID string) (models.Category, error) {
	c, err := s.loadCategory(ctx, id)
	if err != nil {
		return c, err
	}
	next, ok := Next(c.Status)
	if !ok {
		metrics.StatusTransitions.WithLabelValues("category", "", "refused").Inc()
		return c, errors.NewStatusTransitionNotAllowedError(string(c.Status), "")
	}

	if c.Status == models.StatusDraft {
		if parentCatalogID == "" {
			return c, errors.NewValidationFailedError("a parent catalog is required to publish a category",
				map[string]string{"catalog": "Please select a catalog"})
		}
		if _, err := s.linker.LinkCategory(ctx, parentCatalogID, id); err != nil {
			s.logger.Error("Category link failed, status left unchanged", map[string]interface{}{
				"categoryId": id,
				"catalogId":  parentCatalogID,
				"error":      err.Error(),
			})
			metrics.StatusTransitions.WithLabelValues("category", string(next), "link_failed").Inc()
			return c, err
		}
	}

	updated, err := s.categories.TransitionStatus(ctx, id, next)
	if err != nil {
		metrics.StatusTransitions.WithLabelValues("category", string(next), "failed").Inc()
		return c, err
	}
	metrics.StatusTransitions.WithLabelValues("category", string(next), "succeeded").Inc()
	s.changed(ctx, "category", id, c.Name, c.Status, next)
	return updated, nil
}

// TransitionCategory moves a category to target, which must be the next
// status.
func (s *Service) TransitionCategory(ctx context.Context, id string, target models.Status, parentCatalogID string) (models.Category, error) {
	c, err := s.loadCategory(ctx, id)
	if err != nil {
		return c, err
	}
	if !CanTransition(c.Status, target) {
		return c, errors.NewStatusTransitionNotAllowedError(string(c.Status), string(target))
	}
	return s.AdvanceCategory(ctx, id, parentCatalogID)
}

func (s *Service) changed(ctx context.Context, entity, id, name string, from, to models.Status) {
	s.logger.Info("Status changed", map[string]interface{}{"entity": entity, "id": id, "from": from, "to": to})
	if s.observer != nil {
		s.observer.StatusChanged(ctx, entity, id, name, from, to)
	}
}
