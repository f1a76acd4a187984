// Package sqlite provides a SQLite-backed document store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paideialabs/paideia/pkg/docstore"
	"github.com/paideialabs/paideia/pkg/memory"
)

// Schema notes: all three tables are append-only and carry created_at for
// the ModifiedSince probe. Timestamps are stored as RFC3339Nano strings so
// lexical and temporal order agree.
const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	subtask_id TEXT NOT NULL,
	step_id TEXT NOT NULL,
	role TEXT NOT NULL,
	persona_id TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	ts TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_user_created ON turns (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_turns_step ON turns (user_id, task_id, subtask_id, step_id);

CREATE TABLE IF NOT EXISTS progress (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	subtask_id TEXT NOT NULL,
	step_id TEXT NOT NULL,
	submission TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progress_user_created ON progress (user_id, created_at);

CREATE TABLE IF NOT EXISTS insights (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	persona_id TEXT NOT NULL,
	note TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_insights_user_created ON insights (user_id, created_at);
`

// Store implements docstore.Store on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database at dbPath (":memory:" for in-memory)
// and applies the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", docstore.ErrConnection, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) AppendTurn(ctx context.Context, key memory.StepKey, turn memory.ConversationTurn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, user_id, task_id, subtask_id, step_id, role, persona_id, content, ts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, key.UserID, key.TaskID, key.SubtaskID, key.StepID,
		string(turn.Role), turn.PersonaID, turn.Content,
		turn.Timestamp.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending turn %s: %w", turn.ID, err)
	}
	return nil
}

func (s *Store) TurnsByStep(ctx context.Context, key memory.StepKey) ([]memory.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, persona_id, content, ts FROM turns
		 WHERE user_id = ? AND task_id = ? AND subtask_id = ? AND step_id = ?
		 ORDER BY created_at`,
		key.UserID, key.TaskID, key.SubtaskID, key.StepID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying step turns: %w", err)
	}
	defer rows.Close()

	var turns []memory.ConversationTurn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (s *Store) TurnsByUser(ctx context.Context, userID string) ([]docstore.TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, subtask_id, step_id, role, persona_id, content, ts, created_at
		 FROM turns WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying user turns: %w", err)
	}
	defer rows.Close()

	var records []docstore.TurnRecord
	for rows.Next() {
		var rec docstore.TurnRecord
		var role, ts, createdAt string
		rec.Key.UserID = userID
		if err := rows.Scan(&rec.Turn.ID, &rec.Key.TaskID, &rec.Key.SubtaskID, &rec.Key.StepID,
			&role, &rec.Turn.PersonaID, &rec.Turn.Content, &ts, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn record: %w", err)
		}
		rec.Turn.Role = memory.Role(role)
		rec.Turn.Timestamp = parseTime(ts)
		rec.WrittenAt = parseTime(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) AppendProgress(ctx context.Context, rec docstore.ProgressRecord) error {
	writtenAt := rec.WrittenAt
	if writtenAt.IsZero() {
		writtenAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress (id, user_id, task_id, subtask_id, step_id, submission, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Key.UserID, rec.Key.TaskID, rec.Key.SubtaskID, rec.Key.StepID,
		rec.Submission, rec.Status, writtenAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending progress %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) ProgressByUser(ctx context.Context, userID string) ([]docstore.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, subtask_id, step_id, submission, status, created_at
		 FROM progress WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	var records []docstore.ProgressRecord
	for rows.Next() {
		var rec docstore.ProgressRecord
		var createdAt string
		rec.Key.UserID = userID
		if err := rows.Scan(&rec.ID, &rec.Key.TaskID, &rec.Key.SubtaskID, &rec.Key.StepID,
			&rec.Submission, &rec.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning progress record: %w", err)
		}
		rec.WrittenAt = parseTime(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) AppendInsight(ctx context.Context, rec docstore.InsightRecord) error {
	writtenAt := rec.WrittenAt
	if writtenAt.IsZero() {
		writtenAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO insights (id, user_id, persona_id, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.PersonaID, rec.Note, writtenAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending insight %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) InsightsByUser(ctx context.Context, userID string) ([]docstore.InsightRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, persona_id, note, created_at FROM insights WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying insights: %w", err)
	}
	defer rows.Close()

	var records []docstore.InsightRecord
	for rows.Next() {
		var rec docstore.InsightRecord
		var createdAt string
		rec.UserID = userID
		if err := rows.Scan(&rec.ID, &rec.PersonaID, &rec.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning insight record: %w", err)
		}
		rec.WrittenAt = parseTime(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) ModifiedSince(ctx context.Context, userID string, since time.Time) (bool, error) {
	cutoff := since.UTC().Format(time.RFC3339Nano)
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM turns WHERE user_id = ? AND created_at > ?
			UNION ALL
			SELECT 1 FROM progress WHERE user_id = ? AND created_at > ?
			UNION ALL
			SELECT 1 FROM insights WHERE user_id = ? AND created_at > ?
		)`,
		userID, cutoff, userID, cutoff, userID, cutoff,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking modifications: %w", err)
	}
	return exists, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTurn(row rowScanner) (memory.ConversationTurn, error) {
	var turn memory.ConversationTurn
	var role, ts string
	if err := row.Scan(&turn.ID, &role, &turn.PersonaID, &turn.Content, &ts); err != nil {
		return turn, fmt.Errorf("scanning turn: %w", err)
	}
	turn.Role = memory.Role(role)
	turn.Timestamp = parseTime(ts)
	return turn, nil
}

// parseTime tolerates malformed timestamps: a bad record keeps its zero
// time rather than aborting a whole load.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ docstore.Store = (*Store)(nil)
