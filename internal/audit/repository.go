// Package audit keeps a durable trail of lock actions in the SQLite
// action_log table. Inputs are stored with the PIN redacted.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// Fixed-width UTC so TEXT columns sort chronologically.
	timeFormat = "2006-01-02T15:04:05.000000000Z"
)

// Entry is one audited action.
type Entry struct {
	ID            string          `json:"id"`
	ActionID      string          `json:"action_id"`
	Action        string          `json:"action"`
	Status        string          `json:"status"`
	Source        string          `json:"source,omitempty"`
	Input         json.RawMessage `json:"input"`
	Error         string          `json:"error,omitempty"`
	TimeRequested time.Time       `json:"time_requested"`
	TimeCompleted *time.Time      `json:"time_completed,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// FromAction builds an entry for a, redacting its input.
func FromAction(a action.Action) Entry {
	e := Entry{
		ActionID:      a.ID,
		Action:        a.Name,
		Status:        string(a.Status),
		Source:        a.Source,
		Input:         RedactInput(a.Input),
		Error:         a.Error,
		TimeRequested: a.TimeRequested,
	}
	if a.TimeCompleted != nil {
		t := *a.TimeCompleted
		e.TimeCompleted = &t
	}
	return e
}

// Filter controls which entries List returns.
type Filter struct {
	Action string // optional: addUser, removeUser, setPinCode
	Status string // optional: completed, failed, cancelled
	Limit  int    // default 50, max 200
	Offset int
}

// ListResult is one page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores and queries audit entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository is a Repository backed by the action_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository using db. The action_log
// migration must already be applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts e. ID and CreatedAt are filled in when empty, and the
// input is redacted again in case the caller built the entry by hand.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Input = RedactInput(e.Input)

	var completed any
	if e.TimeCompleted != nil {
		completed = e.TimeCompleted.UTC().Format(timeFormat)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO action_log (id, action_id, action, status, source, input, error, time_requested, time_completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ActionID, e.Action, e.Status, e.Source,
		string(e.Input), e.Error,
		e.TimeRequested.UTC().Format(timeFormat),
		completed,
		e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, most recently requested first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM action_log " + where //nolint:gosec // conditions are fixed strings with ? placeholders
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT id, action_id, action, status, source, input, error, time_requested, time_completed, created_at
		FROM action_log ` + where + ` ORDER BY time_requested DESC, rowid DESC LIMIT ? OFFSET ?` //nolint:gosec // as above
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var input, requested, created string
	var completed sql.NullString

	if err := rows.Scan(&e.ID, &e.ActionID, &e.Action, &e.Status, &e.Source,
		&input, &e.Error, &requested, &completed, &created); err != nil {
		return Entry{}, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.Input = json.RawMessage(input)

	var err error
	if e.TimeRequested, err = time.Parse(time.RFC3339Nano, requested); err != nil {
		return Entry{}, fmt.Errorf("parsing time_requested %q: %w", requested, err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Entry{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing time_completed %q: %w", completed.String, err)
		}
		e.TimeCompleted = &t
	}
	return e, nil
}
