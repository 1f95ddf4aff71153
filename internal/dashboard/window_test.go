package dashboard

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/models"
)

type fakeSource struct {
	items []models.Catalog
	err   error
	got   models.ListParams
}

func (f *fakeSource) List(_ context.Context, p models.ListParams) error {
	f.got = p
	return f.err
}

func (f *fakeSource) Items() []models.Catalog { return f.items }

func TestWindow(t *testing.T) {
	src := &fakeSource{items: sampleCatalogs()}
	q := Query{Search: "enterprise", Filters: url.Values{"status": {"draft"}}, SortBy: "name", Page: 2, Limit: 10}

	items, rest, err := Window[models.Catalog](context.Background(), src, q)
	require.NoError(t, err)

	assert.Equal(t, models.ListParams{Page: 1, Limit: WindowSize, Query: "enterprise"}, src.got)
	assert.Len(t, items, 4)
	assert.Empty(t, rest.Search)
	assert.Equal(t, q.Filters, rest.Filters)
	assert.Equal(t, "name", rest.SortBy)
	assert.Equal(t, 2, rest.Page)
}

func TestWindow_ListError(t *testing.T) {
	boom := errors.New("backend down")
	src := &fakeSource{err: boom}

	items, rest, err := Window[models.Catalog](context.Background(), src, Query{Search: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, items)
	assert.Equal(t, "x", rest.Search)
}
