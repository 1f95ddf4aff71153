package journal

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, logger.NewTestLogger(t)), mock
}

var at = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func submission() wizard.Submission {
	return wizard.Submission{
		ID:            "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		SessionID:     "session-1",
		Mode:          wizard.ModeCreate,
		OpportunityID: "opp-1",
		Outcome:       "succeeded",
		Payload:       map[string]string{"priceListId": "pl-1"},
		Duration:      1500 * time.Millisecond,
		At:            at,
	}
}

// ==========================
// Record
// ==========================

func TestRepository_Record(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec(`INSERT INTO wizard_submissions`).
		WithArgs(
			"1b4e28ba-2fa1-11d2-883f-0016d3cca427", "session-1", "create", "opp-1", "succeeded",
			nil, []byte(`{"priceListId":"pl-1"}`), int64(1500), at,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), submission()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Record_Failure(t *testing.T) {
	repo, mock := newRepo(t)

	s := submission()
	s.Outcome, s.Error, s.OpportunityID, s.Payload = "failed", "backend down", "", nil

	mock.ExpectExec(`INSERT INTO wizard_submissions`).
		WithArgs(s.ID, "session-1", "create", nil, "failed", "backend down", nil, int64(1500), at).
		WillReturnError(errors.New("connection refused"))

	err := repo.Record(context.Background(), s)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeJournalWriteFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Queries
// ==========================

var columns = []string{"id", "session_id", "mode", "opportunity_id", "outcome", "error", "payload", "duration_ms", "submitted_at"}

func TestRepository_Recent(t *testing.T) {
	repo, mock := newRepo(t)

	rows := sqlmock.NewRows(columns).
		AddRow("a", "s1", "create", "opp-1", "succeeded", nil, []byte(`{"x":1}`), int64(20), at).
		AddRow("b", "s2", "edit", nil, "failed", "boom", nil, int64(5), at.Add(-time.Hour))
	mock.ExpectQuery(`SELECT .* FROM wizard_submissions\s+ORDER BY submitted_at DESC\s+LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "opp-1", entries[0].OpportunityID)
	assert.JSONEq(t, `{"x":1}`, string(entries[0].Payload))
	assert.Equal(t, "", entries[1].OpportunityID)
	assert.Equal(t, "boom", entries[1].Error)
	assert.Nil(t, entries[1].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ForOpportunity_Empty(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(`WHERE opportunity_id = \$1`).
		WithArgs("opp-9").
		WillReturnRows(sqlmock.NewRows(columns))

	entries, err := repo.ForOpportunity(context.Background(), "opp-9")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRepository_QueryError(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(driver.ErrBadConn)

	_, err := repo.Recent(context.Background(), 5)
	assert.Error(t, err)
}
