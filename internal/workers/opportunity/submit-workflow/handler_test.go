// internal/workers/opportunity/submit-workflow/handler_test.go
package submitworkflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/journal"
	"cpq-console/internal/models"
	"cpq-console/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) CreateOpportunity(ctx context.Context, p wizard.WorkflowPayload) (models.Opportunity, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(models.Opportunity), args.Error(1)
}

func (m *mockSubmitter) UpdatePricing(ctx context.Context, id string, p wizard.PricingUpdatePayload) (models.Opportunity, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(models.Opportunity), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Publish(ctx context.Context, n wizard.Notification) error {
	return m.Called(ctx, n).Error(0)
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func createTestHandler(t *testing.T, sub wizard.Submitter, rec wizard.Recorder, n wizard.Notifier) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		Submitter: sub,
		Recorder:  rec,
		Notifier:  n,
		Clock:     func() time.Time { return fixedNow },
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func createPayload(t *testing.T) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(wizard.WorkflowPayload{
		Opportunity:      wizard.OpportunityFields{ShortDescription: "Renewal", SalesCycleType: "renewal", Probability: 50},
		PriceListID:      "pl-1",
		ProductOfferings: lines(),
	})
	require.NoError(t, err)
	return b
}

func editPayload(t *testing.T) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(wizard.PricingUpdatePayload{
		Opportunity:      wizard.OpportunityFields{ShortDescription: "x"},
		PriceListID:      "pl-1",
		ProductOfferings: lines(),
	})
	require.NoError(t, err)
	return b
}

func lines() []wizard.LinePayload {
	return []wizard.LinePayload{{
		Name:            "Fiber 1G",
		Price:           models.Price{Unit: "USD", Value: decimal.RequireFromString("99.50")},
		ProductOffering: models.Ref{ID: "po-1"},
		UnitOfMeasure:   models.Ref{ID: "uom-1"},
		PriceType:       "recurring",
		ValidFor:        models.ValidFor{StartDateTime: "2025-01-01", EndDateTime: "2025-12-31"},
		Quantity:        1,
	}}
}

func expectJournalInsert(mock sqlmock.Sqlmock, mode, opportunityID, outcome string) {
	var errArg interface{}
	if outcome == "failed" {
		errArg = sqlmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO wizard_submissions`).
		WithArgs(
			sqlmock.AnyArg(), // submission id
			"session-1",
			mode,
			opportunityID,
			outcome,
			errArg,
			sqlmock.AnyArg(), // payload JSON
			int64(0),
			fixedNow,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CreateSuccess(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sub := new(mockSubmitter)
	sub.On("CreateOpportunity", mock.Anything, mock.MatchedBy(func(p wizard.WorkflowPayload) bool {
		return p.PriceListID == "pl-1" && p.Opportunity.ShortDescription == "Renewal"
	})).Return(models.Opportunity{ID: "opp-9"}, nil)

	n := new(mockNotifier)
	n.On("Publish", mock.Anything, wizard.Notification{
		Level:         wizard.LevelSuccess,
		Message:       "Opportunity created successfully",
		OpportunityID: "opp-9",
	}).Return(nil)

	expectJournalInsert(sqlMock, wizard.ModeCreate, "opp-9", "succeeded")

	h := createTestHandler(t, sub, journal.NewRepository(db, logger.NewTestLogger(t)), n)
	out, err := h.Execute(context.Background(), &Input{
		Mode:      wizard.ModeCreate,
		SessionID: "session-1",
		Payload:   createPayload(t),
	})

	require.NoError(t, err)
	assert.Equal(t, "opp-9", out.OpportunityID)
	assert.Equal(t, "succeeded", out.Outcome)
	sub.AssertExpectations(t)
	n.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_EditUsesPricingUpdate(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("UpdatePricing", mock.Anything, "opp-1", mock.AnythingOfType("wizard.PricingUpdatePayload")).
		Return(models.Opportunity{ID: "opp-1"}, nil)

	h := createTestHandler(t, sub, nil, nil)
	out, err := h.Execute(context.Background(), &Input{
		Mode:          wizard.ModeEdit,
		OpportunityID: "opp-1",
		Payload:       editPayload(t),
	})

	require.NoError(t, err)
	assert.Equal(t, "opp-1", out.OpportunityID)
	assert.Equal(t, "Opportunity updated successfully", out.Message)
	sub.AssertNotCalled(t, "CreateOpportunity", mock.Anything, mock.Anything)
}

func TestHandler_Execute_BackendFailure(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	backendErr := errors.NewBackendRequestFailedError("opportunity-workflow", 500, nil)
	sub := new(mockSubmitter)
	sub.On("CreateOpportunity", mock.Anything, mock.Anything).Return(models.Opportunity{}, backendErr)

	n := new(mockNotifier)
	n.On("Publish", mock.Anything, mock.MatchedBy(func(note wizard.Notification) bool {
		return note.Level == wizard.LevelError
	})).Return(nil)

	sqlMock.ExpectExec(`INSERT INTO wizard_submissions`).
		WithArgs(sqlmock.AnyArg(), "session-1", wizard.ModeCreate, nil, "failed",
			sqlmock.AnyArg(), sqlmock.AnyArg(), int64(0), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	h := createTestHandler(t, sub, journal.NewRepository(db, logger.NewTestLogger(t)), n)
	out, err := h.Execute(context.Background(), &Input{
		Mode:      wizard.ModeCreate,
		SessionID: "session-1",
		Payload:   createPayload(t),
	})

	assert.Nil(t, out)
	assert.True(t, errors.HasCode(err, errors.ErrCodeBackendRequestFailed))
	n.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandler_Execute_JournalFailureDoesNotFailJob(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sub := new(mockSubmitter)
	sub.On("CreateOpportunity", mock.Anything, mock.Anything).Return(models.Opportunity{ID: "opp-2"}, nil)
	sqlMock.ExpectExec(`INSERT INTO wizard_submissions`).WillReturnError(assert.AnError)

	h := createTestHandler(t, sub, journal.NewRepository(db, logger.NewTestLogger(t)), nil)
	out, err := h.Execute(context.Background(), &Input{
		Mode:      wizard.ModeCreate,
		SessionID: "session-1",
		Payload:   createPayload(t),
	})

	require.NoError(t, err)
	assert.Equal(t, "opp-2", out.OpportunityID)
}

// ==========================
// Input Validation Tests
// ==========================

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		field string
	}{
		{"unknown mode", Input{Mode: "merge", Payload: json.RawMessage(`{}`)}, "mode"},
		{"missing payload", Input{Mode: wizard.ModeCreate}, "payload"},
		{"null payload", Input{Mode: wizard.ModeCreate, Payload: json.RawMessage(`null`)}, "payload"},
		{"edit without opportunity", Input{Mode: wizard.ModeEdit, Payload: json.RawMessage(`{}`)}, "opportunityId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := new(mockSubmitter)
			h := createTestHandler(t, sub, nil, nil)

			_, err := h.Execute(context.Background(), &tt.input)

			require.Error(t, err)
			stdErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
			fields, _ := stdErr.Metadata["fields"].(map[string]string)
			assert.Contains(t, fields, tt.field)
			sub.AssertNotCalled(t, "CreateOpportunity", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_Execute_MalformedPayload(t *testing.T) {
	h := createTestHandler(t, new(mockSubmitter), nil, nil)

	_, err := h.Execute(context.Background(), &Input{Mode: wizard.ModeCreate, Payload: json.RawMessage(`"not an object"`)})

	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
}

func TestHandler_Execute_PayloadFailsSchema(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		field string
	}{
		{"empty create", Input{Mode: wizard.ModeCreate, Payload: json.RawMessage(`{}`)}, "productOfferings"},
		{"create without line items", Input{Mode: wizard.ModeCreate, Payload: json.RawMessage(`{"opportunity":{"short_description":"x"},"priceListId":"pl-1","productOfferings":[]}`)}, "productOfferings"},
		{"edit without line items", Input{Mode: wizard.ModeEdit, OpportunityID: "opp-1", Payload: json.RawMessage(`{"opportunity":{"short_description":"x"},"priceListId":"pl-1","productOfferings":[]}`)}, "productOfferings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := new(mockSubmitter)
			h := createTestHandler(t, sub, nil, nil)

			out, err := h.Execute(context.Background(), &tt.input)

			assert.Nil(t, out)
			stdErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
			fields, _ := stdErr.Metadata["fields"].(map[string]string)
			assert.Contains(t, fields, tt.field)
			sub.AssertNotCalled(t, "CreateOpportunity", mock.Anything, mock.Anything)
			sub.AssertNotCalled(t, "UpdatePricing", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewTestLogger(t)})
	assert.Error(t, err)

	_, err = NewHandler(HandlerOptions{
		Config:    &Config{MaxJobsActive: 0, Timeout: time.Second},
		Submitter: new(mockSubmitter),
	})
	assert.Error(t, err)
}
