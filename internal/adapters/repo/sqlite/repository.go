package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/oneiro/internal/domain"
	"github.com/bnema/oneiro/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dreams (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	text           TEXT NOT NULL,
	status         TEXT NOT NULL,
	thread_id      TEXT NOT NULL DEFAULT '',
	degraded       INTEGER NOT NULL DEFAULT 0,
	questions      TEXT NOT NULL DEFAULT '[]',
	answers        TEXT NOT NULL DEFAULT '[]',
	interpretation TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dreams_owner ON dreams(owner_id, created_at);
`

// addedColumns are appended to tables created before they existed.
var addedColumns = []struct{ name, definition string }{
	{"pending_answer", "TEXT NOT NULL DEFAULT ''"},
	{"pending_posted", "INTEGER NOT NULL DEFAULT 0"},
	{"strikes", "INTEGER NOT NULL DEFAULT 0"},
}

const selectColumns = `id, owner_id, text, status, thread_id, degraded, questions, answers, interpretation, pending_answer, pending_posted, strikes, created_at, updated_at`

// Repository stores dream records in a single SQLite table keyed by id.
type Repository struct {
	db *sql.DB
}

var _ ports.DreamRepository = (*Repository)(nil)

func Open(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of concurrent upserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create dreams table: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func migrate(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('dreams')`)
	if err != nil {
		return fmt.Errorf("read dreams columns: %w", err)
	}
	existing := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("read dreams columns: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("read dreams columns: %w", err)
	}

	for _, column := range addedColumns {
		if existing[column.name] {
			continue
		}
		if _, err := db.Exec(`ALTER TABLE dreams ADD COLUMN ` + column.name + ` ` + column.definition); err != nil {
			return fmt.Errorf("add dreams column %s: %w", column.name, err)
		}
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetByID(ctx context.Context, id domain.DreamID) (domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM dreams WHERE id = ?`, string(id))

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrDreamNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("get dream %s: %w", id, err)
	}
	return record, nil
}

func (r *Repository) ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM dreams WHERE owner_id = ? ORDER BY created_at, id`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("list dreams: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dream: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list dreams: %w", err)
	}
	return records, nil
}

func (r *Repository) Insert(ctx context.Context, record domain.Record) error {
	args, err := recordArgs(record)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO dreams (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, args...)
	if err != nil {
		return fmt.Errorf("insert dream %s: %w", record.ID, err)
	}

	return expectOneRow(result, fmt.Errorf("insert dream %s: %w", record.ID, domain.ErrDreamExists))
}

func (r *Repository) Update(ctx context.Context, record domain.Record) error {
	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	// id goes last for the WHERE clause.
	args = append(args[1:], args[0])

	result, err := r.db.ExecContext(ctx, `
		UPDATE dreams SET owner_id = ?, text = ?, status = ?, thread_id = ?, degraded = ?,
			questions = ?, answers = ?, interpretation = ?,
			pending_answer = ?, pending_posted = ?, strikes = ?, created_at = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update dream %s: %w", record.ID, err)
	}

	return expectOneRow(result, fmt.Errorf("update dream %s: %w", record.ID, domain.ErrDreamNotFound))
}

func expectOneRow(result sql.Result, missing error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return missing
	}
	return nil
}

func recordArgs(record domain.Record) ([]any, error) {
	questions, err := encodeList(record.Questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	answers, err := encodeList(record.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	return []any{
		string(record.ID),
		string(record.OwnerID),
		record.Text,
		string(record.Status),
		record.ThreadID,
		record.Degraded,
		questions,
		answers,
		record.Interpretation,
		record.Pending.Answer,
		record.Pending.Posted,
		record.Pending.Strikes,
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.Record, error) {
	var (
		id, owner, text, status, threadID string
		degraded                          bool
		questions, answers                string
		interpretation                    string
		pending                           domain.PendingTurn
		createdAt, updatedAt              string
	)
	err := row.Scan(&id, &owner, &text, &status, &threadID, &degraded, &questions, &answers, &interpretation,
		&pending.Answer, &pending.Posted, &pending.Strikes, &createdAt, &updatedAt)
	if err != nil {
		return domain.Record{}, err
	}

	record := domain.Record{
		ID:             domain.DreamID(id),
		OwnerID:        domain.UserID(owner),
		Text:           text,
		Status:         domain.DreamStatus(status),
		ThreadID:       threadID,
		Degraded:       degraded,
		Interpretation: interpretation,
		Pending:        pending,
	}

	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Record{}, fmt.Errorf("decode created_at: %w", err)
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Record{}, fmt.Errorf("decode updated_at: %w", err)
	}
	if record.Questions, err = decodeList(questions); err != nil {
		return domain.Record{}, fmt.Errorf("decode questions: %w", err)
	}
	if record.Answers, err = decodeList(answers); err != nil {
		return domain.Record{}, fmt.Errorf("decode answers: %w", err)
	}
	return record, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}
