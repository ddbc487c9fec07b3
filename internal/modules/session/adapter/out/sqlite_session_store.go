package out

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"
	apperrors "pomo/internal/platform/errors"
	"pomo/internal/platform/sqlitemigrate"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sessionColumns = `id, owner, focus_minutes, rest_minutes, period_type, period_start, period_end,
  is_active, is_paused, paused_at, completed_focus_periods, created_at, updated_at, version`

type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(ctx context.Context, dbPath string) (*SQLiteSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := filepath.Clean(dbPath) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := sqlitemigrate.Apply(ctx, db, migrationFS, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return &SQLiteSessionStore{db: db}, nil
}

var _ sessionout.SessionStore = (*SQLiteSessionStore)(nil)

func (s *SQLiteSessionStore) Insert(ctx context.Context, session domain.Session) error {
	if session.Version == 0 {
		session.Version = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, rowArgs(session)...)
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return fmt.Errorf("%w: session %s already exists", apperrors.ErrConflict, session.ID)
	}
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLiteSessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return session, nil
}

func (s *SQLiteSessionStore) Update(ctx context.Context, id string, mutate sessionout.Mutator) (domain.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Session{}, fmt.Errorf("begin session update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session %s: %w", id, err)
	}

	next, err := mutate(current)
	if err != nil {
		return domain.Session{}, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET
  owner = ?, focus_minutes = ?, rest_minutes = ?, period_type = ?, period_start = ?, period_end = ?,
  is_active = ?, is_paused = ?, paused_at = ?, completed_focus_periods = ?, created_at = ?, updated_at = ?, version = ?
WHERE id = ? AND version = ?`, append(rowArgs(next)[1:], id, current.Version)...)
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	if affected == 0 {
		return domain.Session{}, fmt.Errorf("%w: %s at version %d", apperrors.ErrConflict, id, current.Version)
	}
	if err := tx.Commit(); err != nil {
		return domain.Session{}, fmt.Errorf("commit session %s: %w", id, err)
	}
	return next, nil
}

func (s *SQLiteSessionStore) ListActive(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE is_active = 1 ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

// rowArgs follows sessionColumns order.
func rowArgs(s domain.Session) []any {
	var owner, pausedAt any
	if id, ok := s.Owner.ID(); ok {
		owner = id
	}
	if !s.PausedAt.IsZero() {
		pausedAt = formatTime(s.PausedAt)
	}
	return []any{
		s.ID, owner, s.FocusMinutes, s.RestMinutes, string(s.PeriodType),
		formatTime(s.PeriodStart), formatTime(s.PeriodEnd),
		boolInt(s.Active), boolInt(s.Paused), pausedAt, s.CompletedFocusPeriods,
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt), s.Version,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		session                domain.Session
		owner, pausedAt        sql.NullString
		periodType             string
		periodStart, periodEnd string
		createdAt, updatedAt   string
		active, paused         int
	)
	if err := row.Scan(&session.ID, &owner, &session.FocusMinutes, &session.RestMinutes, &periodType,
		&periodStart, &periodEnd, &active, &paused, &pausedAt, &session.CompletedFocusPeriods,
		&createdAt, &updatedAt, &session.Version); err != nil {
		return domain.Session{}, err
	}
	if owner.Valid {
		session.Owner = domain.NewOwner(owner.String)
	}
	session.PeriodType = domain.PeriodType(periodType)
	session.Active = active == 1
	session.Paused = paused == 1

	var err error
	if session.PeriodStart, err = parseTime(periodStart); err != nil {
		return domain.Session{}, err
	}
	if session.PeriodEnd, err = parseTime(periodEnd); err != nil {
		return domain.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Session{}, err
	}
	if pausedAt.Valid {
		if session.PausedAt, err = parseTime(pausedAt.String); err != nil {
			return domain.Session{}, err
		}
	}
	return session, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
