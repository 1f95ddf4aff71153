// internal/workers/opportunity/export-summary-pdf/handler_test.go
package exportsummarypdf

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/models"
	"cpq-console/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCollection[T any] struct {
	items []T
}

func (f fakeCollection[T]) List(context.Context, models.ListParams) error { return nil }
func (f fakeCollection[T]) Items() []T                                     { return f.items }

type fakeOpportunities map[string]models.Opportunity

func (f fakeOpportunities) GetOne(_ context.Context, id string) (models.Opportunity, error) {
	if o, ok := f[id]; ok {
		return o, nil
	}
	return models.Opportunity{}, errors.NewResourceNotFoundError("opportunity", id)
}

func createTestSources() wizard.Sources {
	return wizard.Sources{
		SalesCycleTypes: fakeCollection[models.SalesCycleType]{items: []models.SalesCycleType{{ID: "sct-1", Name: "Renewal"}}},
		Stages:          fakeCollection[models.Stage]{items: []models.Stage{{ID: "st-1", Name: "Qualify"}}},
		Accounts:        fakeCollection[models.Account]{items: []models.Account{{ID: "acc-1", Name: "Acme"}}},
		Opportunities: fakeOpportunities{"opp-1": {
			ID:                  "opp-1",
			ShortDescription:    "Acme renewal",
			EstimatedClosedDate: "2024-09-30",
			SalesCycleType:      "sct-1",
			Stage:               "st-1",
			Account:             "acc-1",
			Probability:         40,
		}},
	}
}

func createTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	h, err := NewHandler(&Config{Timeout: DefaultConfig().Timeout, ExportDir: dir}, createTestSources(), logger.NewTestLogger(t))
	require.NoError(t, err)
	return h, dir
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_WritesPDF(t *testing.T) {
	h, dir := createTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{OpportunityID: "opp-1"})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "opportunity-opp-1.pdf"), out.Path)
	assert.Equal(t, 1, out.Pages)

	body, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed into place")
}

func TestHandler_Execute_ReplacesEarlierExport(t *testing.T) {
	h, dir := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{OpportunityID: "opp-1"})
	require.NoError(t, err)
	_, err = h.Execute(context.Background(), &Input{OpportunityID: "opp-1"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// ==========================
// Failure Tests
// ==========================

func TestHandler_Execute_MissingID(t *testing.T) {
	h, _ := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{})

	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestHandler_Execute_UnknownOpportunity(t *testing.T) {
	h, dir := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{OpportunityID: "opp-404"})

	assert.True(t, errors.HasCode(err, errors.ErrCodeResourceNotFound))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestNewHandler_RequiresOpportunities(t *testing.T) {
	_, err := NewHandler(nil, wizard.Sources{}, logger.NewTestLogger(t))
	assert.Error(t, err)
}
