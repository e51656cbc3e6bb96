// Package history journals dispatched goals and their outcomes in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PhamBao-egn/BAOPHAM/internal/nav"
	"github.com/PhamBao-egn/BAOPHAM/internal/storage"
)

// ErrGoalNotFound is returned by Get for an id that was never recorded.
var ErrGoalNotFound = errors.New("goal not found")

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 20

// timestampLayout keeps every fraction nine digits wide so text order is time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one journaled goal.
type Entry struct {
	ID            string      `json:"id"`
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	Z             float64     `json:"z"`
	W             float64     `json:"w"`
	Frame         string      `json:"frame"`
	Action        string      `json:"action"`
	Outcome       nav.Outcome `json:"-"`
	OutcomeText   string      `json:"outcome"`
	Reason        nav.Reason  `json:"reason,omitempty"`
	StatusCode    *int        `json:"status_code,omitempty"`
	LastDistance  *float64    `json:"last_distance,omitempty"`
	FeedbackCount int         `json:"feedback_count"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// Store is the goal journal.
type Store struct {
	db    *sql.DB
	owned bool
}

// NewStore wraps an already bootstrapped database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens the journal at path, creating it if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, owned: true}, nil
}

// Close releases the database if Open created it.
func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// Begin records a submitted goal with an unknown outcome.
func (s *Store) Begin(ctx context.Context, goalID, action string, goal nav.PoseGoal) error {
	if goalID == "" {
		return fmt.Errorf("goal id is empty")
	}
	created := goal.Stamp
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO goal_log(id, x, y, z, w, frame, action, outcome, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`, goalID, goal.X, goal.Y, goal.Z, goal.W, goal.Frame, action,
		nav.OutcomeUnknown.String(), created.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// Finish stores the resolved outcome of a goal recorded by Begin.
func (s *Store) Finish(ctx context.Context, res nav.Result) error {
	completed := res.Finished
	if completed.IsZero() {
		completed = time.Now()
	}

	var lastDistance any
	if res.LastDistance >= 0 {
		lastDistance = res.LastDistance
	}
	var statusCode any
	if res.Reason != nav.ReasonServerUnavailable && res.Reason != nav.ReasonRejected {
		statusCode = int(res.Status)
	}

	out, err := s.db.ExecContext(ctx, `
UPDATE goal_log
SET outcome = ?, reason = ?, status_code = ?, last_distance = ?, feedback_count = ?, completed_at = ?
WHERE id = ?;
`, res.Outcome.String(), string(res.Reason), statusCode, lastDistance, res.FeedbackCount,
		completed.UTC().Format(timestampLayout), res.GoalID)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", res.GoalID, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return fmt.Errorf("update goal %s: %w", res.GoalID, err)
	}
	if n == 0 {
		return fmt.Errorf("update goal %s: %w", res.GoalID, ErrGoalNotFound)
	}
	return nil
}

const selectColumns = `id, x, y, z, w, frame, action, outcome, reason, status_code, last_distance, feedback_count, created_at, completed_at`

// Get returns one journaled goal.
func (s *Store) Get(ctx context.Context, goalID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM goal_log WHERE id = ?;`, goalID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", goalID, ErrGoalNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns the most recent goals, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM goal_log ORDER BY created_at DESC, id LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e          Entry
		outcome    string
		reason     sql.NullString
		statusCode sql.NullInt64
		lastDist   sql.NullFloat64
		created    string
		completed  sql.NullString
	)
	err := sc.Scan(&e.ID, &e.X, &e.Y, &e.Z, &e.W, &e.Frame, &e.Action,
		&outcome, &reason, &statusCode, &lastDist, &e.FeedbackCount, &created, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}

	e.Outcome = nav.ParseOutcome(outcome)
	e.OutcomeText = e.Outcome.String()
	e.Reason = nav.Reason(reason.String)
	if statusCode.Valid {
		code := int(statusCode.Int64)
		e.StatusCode = &code
	}
	if lastDist.Valid {
		d := lastDist.Float64
		e.LastDistance = &d
	}

	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", e.ID, err)
	}
	if completed.Valid && completed.String != "" {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at for %s: %w", e.ID, err)
		}
		e.CompletedAt = &t
	}
	return &e, nil
}
