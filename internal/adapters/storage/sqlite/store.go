package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

var (
	_ domain.SessionStore = (*Store)(nil)
	_ domain.MessageStore = (*Store)(nil)
)

// Store implements domain.SessionStore and domain.MessageStore on a single
// SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and runs the schema
// migration.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// single writer keeps message sequence numbers strictly ordered
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			title            TEXT NOT NULL DEFAULT '',
			mode             TEXT NOT NULL,
			pending_target   TEXT,
			pending_label    TEXT NOT NULL DEFAULT '',
			pending_progress INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at);

		CREATE TABLE IF NOT EXISTS messages (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL,
			session_id TEXT NOT NULL,
			author     TEXT NOT NULL,
			text       TEXT NOT NULL,
			mode       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	target, label, progress := pendingColumns(session.View.Pending)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, title, mode, pending_target, pending_label, pending_progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(session.ID), string(session.UserID), session.Title, string(session.View.Mode),
		target, label, progress,
		formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("sqlite CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	target, label, progress := pendingColumns(session.View.Pending)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions
		 SET title = ?, mode = ?, pending_target = ?, pending_label = ?, pending_progress = ?, updated_at = ?
		 WHERE id = ?`,
		session.Title, string(session.View.Mode), target, label, progress,
		formatTime(session.UpdatedAt), string(session.ID),
	)
	if err != nil {
		return fmt.Errorf("sqlite UpdateSession: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite UpdateSession rows: %w", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

const sessionColumns = `id, user_id, title, mode, pending_target, pending_label, pending_progress, created_at, updated_at`

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", string(id))
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetSession: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE user_id = ? ORDER BY created_at DESC"
	args := []any{string(userID)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListSessionsByUser: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, author, text, mode, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(msg.ID), string(msg.SessionID), string(msg.Author), msg.Text, string(msg.Mode), formatTime(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite AppendMessage: %w", err)
	}
	return nil
}

// GetMessagesBySession returns the last `limit` messages of a session, oldest
// first. Ordering follows insertion, not timestamps.
func (s *Store) GetMessagesBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	query := `SELECT id, session_id, author, text, mode, created_at FROM messages WHERE session_id = ? ORDER BY seq DESC`
	args := []any{string(sessionID)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite GetMessagesBySession: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var (
			m                                    domain.Message
			id, sid, author, mode, createdAtText string
		)
		if err := rows.Scan(&id, &sid, &author, &m.Text, &mode, &createdAtText); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ID = domain.MessageID(id)
		m.SessionID = domain.SessionID(sid)
		m.Author = domain.Role(author)
		m.Mode = domain.ViewMode(mode)
		createdAt, err := parseTime(createdAtText)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", id, err)
		}
		m.CreatedAt = createdAt
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// rows came newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.Session, error) {
	var (
		id, userID, title, mode    string
		target                     sql.NullString
		label                      string
		progress                   int
		createdAtText, updatedText string
	)
	if err := row.Scan(&id, &userID, &title, &mode, &target, &label, &progress, &createdAtText, &updatedText); err != nil {
		return nil, err
	}

	createdAt, err := parseTime(createdAtText)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	updatedAt, err := parseTime(updatedText)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	sess := &domain.Session{
		ID:        domain.SessionID(id),
		UserID:    domain.UserID(userID),
		Title:     title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		View:      domain.ViewState{Mode: domain.ViewMode(mode)},
	}
	if target.Valid {
		sess.View.Pending = &domain.PendingTransition{
			Target:   domain.ViewMode(target.String),
			Label:    label,
			Progress: progress,
		}
	}
	return sess, nil
}

func pendingColumns(p *domain.PendingTransition) (sql.NullString, string, int) {
	if p == nil {
		return sql.NullString{}, "", 0
	}
	return sql.NullString{String: string(p.Target), Valid: true}, p.Label, p.Progress
}

// fixed width so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
