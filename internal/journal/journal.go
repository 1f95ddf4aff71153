// Package journal keeps an append-only PostgreSQL record of wizard submit
// attempts.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/wizard"
)

// Migrations create the journal table. They are idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS wizard_submissions (
		id             UUID PRIMARY KEY,
		session_id     TEXT NOT NULL,
		mode           TEXT NOT NULL,
		opportunity_id TEXT,
		outcome        TEXT NOT NULL,
		error          TEXT,
		payload        JSONB,
		duration_ms    BIGINT NOT NULL,
		submitted_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS wizard_submissions_submitted_at_idx ON wizard_submissions (submitted_at DESC)`,
	`CREATE INDEX IF NOT EXISTS wizard_submissions_opportunity_idx ON wizard_submissions (opportunity_id)`,
}

const insertSubmission = `
	INSERT INTO wizard_submissions
		(id, session_id, mode, opportunity_id, outcome, error, payload, duration_ms, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const selectRecent = `
	SELECT id, session_id, mode, opportunity_id, outcome, error, payload, duration_ms, submitted_at
	FROM wizard_submissions
	ORDER BY submitted_at DESC
	LIMIT $1`

const selectByOpportunity = `
	SELECT id, session_id, mode, opportunity_id, outcome, error, payload, duration_ms, submitted_at
	FROM wizard_submissions
	WHERE opportunity_id = $1
	ORDER BY submitted_at DESC`

// Entry is a stored submission. Payload is kept as raw JSON.
type Entry struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"sessionId"`
	Mode          string          `json:"mode"`
	OpportunityID string          `json:"opportunityId,omitempty"`
	Outcome       string          `json:"outcome"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	DurationMs    int64           `json:"durationMs"`
	SubmittedAt   time.Time       `json:"submittedAt"`
}

// Repository implements wizard.Recorder on top of *sql.DB.
type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Repository{db: db, logger: logger.Component(log, "journal")}
}

// Record appends s.
func (r *Repository) Record(ctx context.Context, s wizard.Submission) error {
	var payload interface{}
	if s.Payload != nil {
		b, err := json.Marshal(s.Payload)
		if err != nil {
			return errors.NewJournalWriteFailedError(err)
		}
		payload = b
	}

	_, err := r.db.ExecContext(ctx, insertSubmission,
		s.ID, s.SessionID, s.Mode, nullString(s.OpportunityID), s.Outcome,
		nullString(s.Error), payload, s.Duration.Milliseconds(), s.At.UTC(),
	)
	if err != nil {
		r.logger.Error("Journal insert failed", map[string]interface{}{"submissionId": s.ID, "error": err.Error()})
		return errors.NewJournalWriteFailedError(err)
	}
	return nil
}

// Recent returns the latest limit entries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.query(ctx, selectRecent, limit)
}

// ForOpportunity returns every attempt that touched opportunityID.
func (r *Repository) ForOpportunity(ctx context.Context, opportunityID string) ([]Entry, error) {
	return r.query(ctx, selectByOpportunity, opportunityID)
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.NewJournalWriteFailedError(err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e           Entry
			opportunity sql.NullString
			errText     sql.NullString
			payload     []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Mode, &opportunity, &e.Outcome, &errText, &payload, &e.DurationMs, &e.SubmittedAt); err != nil {
			return nil, errors.NewJournalWriteFailedError(err)
		}
		e.OpportunityID = opportunity.String
		e.Error = errText.String
		if len(payload) > 0 {
			e.Payload = json.RawMessage(payload)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewJournalWriteFailedError(err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
