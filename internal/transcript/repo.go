package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
}

type Entry struct {
	RunID     string
	Seq       int
	Kind      string
	InputID   string
	Body      string
	Version   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) StartRun(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO runs (id, started_at) VALUES (?, ?)`, id, formatTimestamp(at))
	if err != nil {
		return fmt.Errorf("failed to start run %q: %w", id, err)
	}
	return nil
}

func (r *Repo) FinishRun(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, formatTimestamp(at), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %q: %w", id, err)
	}
	return nil
}

func (r *Repo) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var startedRaw, finishedRaw string
	err := r.db.QueryRowContext(ctx, `SELECT id, started_at, finished_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &startedRaw, &finishedRaw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %q: %w", id, err)
	}
	if run.StartedAt, err = parseTimestamp(startedRaw); err != nil {
		return nil, err
	}
	if finishedRaw != "" {
		if run.FinishedAt, err = parseTimestamp(finishedRaw); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

// PutEntry inserts the line at e.Seq or replaces its body when the line
// grew after being recorded. A write older than the stored version keeps
// the stored body and only fills in a missing input id.
func (r *Repo) PutEntry(ctx context.Context, e Entry) error {
	ts := formatTimestamp(e.UpdatedAt)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO entries (run_id, seq, kind, input_id, body, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, seq) DO UPDATE SET
	body = CASE WHEN excluded.version > entries.version THEN excluded.body ELSE entries.body END,
	updated_at = CASE WHEN excluded.version > entries.version THEN excluded.updated_at ELSE entries.updated_at END,
	input_id = CASE WHEN entries.input_id = '' THEN excluded.input_id ELSE entries.input_id END,
	version = MAX(entries.version, excluded.version)
`, e.RunID, e.Seq, e.Kind, e.InputID, e.Body, int64(e.Version), ts, ts)
	if err != nil {
		return fmt.Errorf("failed to record entry %d of run %q: %w", e.Seq, e.RunID, err)
	}
	return nil
}

func (r *Repo) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT run_id, seq, kind, input_id, body, version, created_at, updated_at
FROM entries
WHERE run_id = ?
ORDER BY seq ASC
`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdRaw, updatedRaw string
		var version int64
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Kind, &e.InputID, &e.Body, &version, &createdRaw, &updatedRaw); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Version = uint64(version)
		if e.CreatedAt, err = parseTimestamp(createdRaw); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTimestamp(updatedRaw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return out, nil
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", v, err)
	}
	return ts, nil
}
