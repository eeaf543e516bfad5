// Package audit persists the human-readable trail of watchkeeper cycles:
// one record per cycle with its summary line, inferred mode, final actions,
// dropped proposals and dispatch results.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/watchkeeper/internal/safety"
)

// Advice statuses recorded per cycle.
const (
	AdviceReceived = "received"
	AdviceSilent   = "silent"
	AdviceInvalid  = "invalid"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// CycleRecord is one audited poll cycle.
type CycleRecord struct {
	ID        string          `json:"id"`
	VesselID  string          `json:"vessel_id"`
	Mode      string          `json:"mode"`
	Advice    string          `json:"advice"`
	Summary   string          `json:"summary"`
	Actions   []safety.Wire   `json:"actions"`
	Dropped   []DroppedAction `json:"dropped"`
	Results   []ActionResult  `json:"results"`
	Duration  time.Duration   `json:"duration"`
	CreatedAt time.Time       `json:"created_at"`
}

// DroppedAction records a proposal the engine removed.
type DroppedAction struct {
	ActionID string `json:"action_id,omitempty"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// ActionResult records what the command applier did with a final action.
type ActionResult struct {
	ActionID string `json:"action_id"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// Filter controls which records List returns.
type Filter struct {
	VesselID string    // optional
	Mode     string    // optional: anchor, underway, in_port
	Since    time.Time // optional: records created at or after
	Limit    int       // default 50, max 200
	Offset   int
}

// ListResult is one page of records, newest first.
type ListResult struct {
	Records []CycleRecord `json:"records"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// Repository stores cycle records.
type Repository interface {
	Create(ctx context.Context, rec *CycleRecord) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores cycle records in the cycle_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// NewCycleID returns a fresh cycle identifier.
func NewCycleID() string {
	return "cyc-" + uuid.NewString()[:8]
}

// Create inserts a record. ID and CreatedAt are generated when empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *CycleRecord) error {
	if rec.VesselID == "" {
		return ErrMissingVessel
	}
	if rec.ID == "" {
		rec.ID = NewCycleID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Advice == "" {
		rec.Advice = AdviceSilent
	}

	actions, err := marshalList(rec.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}
	dropped, err := marshalList(rec.Dropped)
	if err != nil {
		return fmt.Errorf("marshalling dropped actions: %w", err)
	}
	results, err := marshalList(rec.Results)
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO cycle_log (id, vessel_id, mode, advice, summary, actions, dropped, results, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.VesselID, rec.Mode, rec.Advice, rec.Summary,
		actions, dropped, results,
		rec.Duration.Milliseconds(),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting cycle record: %w", err)
	}
	return nil
}

// marshalList encodes a slice as JSON, writing [] for nil.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// List returns records matching the filter, newest first.
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
	if filter.VesselID != "" {
		conditions = append(conditions, "vessel_id = ?")
		args = append(args, filter.VesselID)
	}
	if filter.Mode != "" {
		conditions = append(conditions, "mode = ?")
		args = append(args, filter.Mode)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM cycle_log " + where //nolint:gosec // WHERE built from fixed, parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting cycle records: %w", err)
	}

	query := "SELECT id, vessel_id, mode, advice, summary, actions, dropped, results, duration_ms, created_at FROM cycle_log " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cycle records: %w", err)
	}
	defer rows.Close()

	records := []CycleRecord{}
	for rows.Next() {
		var rec CycleRecord
		var actions, dropped, results, createdAt string
		var durationMS int64

		if err := rows.Scan(&rec.ID, &rec.VesselID, &rec.Mode, &rec.Advice, &rec.Summary,
			&actions, &dropped, &results, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning cycle record: %w", err)
		}

		if err := json.Unmarshal([]byte(actions), &rec.Actions); err != nil {
			return nil, fmt.Errorf("decoding actions of %s: %w", rec.ID, err)
		}
		// Dropped and results are informational; a bad column is left empty.
		_ = json.Unmarshal([]byte(dropped), &rec.Dropped) //nolint:errcheck // informational column
		_ = json.Unmarshal([]byte(results), &rec.Results) //nolint:errcheck // informational column

		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing cycle timestamp %q: %w", createdAt, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycle records: %w", err)
	}

	return &ListResult{
		Records: records,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
