package store

import (
	"context"

	"cpq-console/internal/common/servicenow"
	"cpq-console/internal/models"
)

// Backend is the CRUD surface a Slice drives.
type Backend[T any] interface {
	List(ctx context.Context, p models.ListParams) (*models.Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload interface{}) (T, error)
	Update(ctx context.Context, id string, payload interface{}) (T, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status models.Status) (T, error)
}

// RESTBackend binds a servicenow resource to a record type.
type RESTBackend[T any] struct {
	client   *servicenow.Client
	resource servicenow.Resource
}

func NewRESTBackend[T any](client *servicenow.Client, resource servicenow.Resource) *RESTBackend[T] {
	return &RESTBackend[T]{client: client, resource: resource}
}

func (b *RESTBackend[T]) List(ctx context.Context, p models.ListParams) (*models.Page[T], error) {
	return servicenow.List[T](ctx, b.client, b.resource, p)
}

func (b *RESTBackend[T]) Get(ctx context.Context, id string) (T, error) {
	return servicenow.Get[T](ctx, b.client, b.resource, id)
}

func (b *RESTBackend[T]) Create(ctx context.Context, payload interface{}) (T, error) {
	return servicenow.Create[T](ctx, b.client, b.resource, payload)
}

func (b *RESTBackend[T]) Update(ctx context.Context, id string, payload interface{}) (T, error) {
	return servicenow.Update[T](ctx, b.client, b.resource, id, payload)
}

func (b *RESTBackend[T]) Delete(ctx context.Context, id string) error {
	return servicenow.Delete(ctx, b.client, b.resource, id)
}

func (b *RESTBackend[T]) SetStatus(ctx context.Context, id string, status models.Status) (T, error) {
	return servicenow.SetStatus[T](ctx, b.client, b.resource, id, status)
}
