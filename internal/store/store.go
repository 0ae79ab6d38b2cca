// Package store persists dose events and health notes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pills-bot/internal/records"
)

var (
	ErrInvalidRecord     = errors.New("invalid record")
	ErrUnsupportedScheme = errors.New("unsupported database url")
)

// Store is the record store used by the bot and the report service.
// Implementations must be safe for concurrent use.
type Store interface {
	AddDose(ctx context.Context, ev records.DoseEvent) error
	AddNote(ctx context.Context, n records.HealthNote) error
	FetchAll(ctx context.Context, userID int64) (records.UserRecordSet, error)
	Ping(ctx context.Context) error
	Close() error
}

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (p PoolConfig) apply(db *sql.DB) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}

// Open picks a backend from the URL scheme:
// postgres:// and postgresql:// go to PostgreSQL, sqlite://<path> and :memory: to SQLite.
func Open(ctx context.Context, databaseURL string, pool PoolConfig) (*SQLStore, error) {
	switch {
	case IsPostgres(databaseURL):
		return OpenPostgres(ctx, databaseURL, pool)
	case databaseURL == ":memory:":
		return OpenSQLite(":memory:")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, databaseURL)
	}
}

func IsPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}

type dialect interface {
	name() string
	rebind(query string) string
	timeArg(t time.Time) any
}

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, now: time.Now}
}

// DB exposes the pool for health checks and pool metrics.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Dialect() string { return s.dialect.name() }

// AddDose stores ev. A zero TakenAt means "now".
func (s *SQLStore) AddDose(ctx context.Context, ev records.DoseEvent) error {
	if strings.TrimSpace(ev.PillName) == "" || strings.TrimSpace(ev.Dose) == "" {
		return fmt.Errorf("%w: pill name and dose are required", ErrInvalidRecord)
	}
	takenAt := ev.TakenAt
	if takenAt.IsZero() {
		takenAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO pills (user_id, pill_name, dose, taken_at) VALUES (?, ?, ?, ?)`),
		ev.UserID, ev.PillName, ev.Dose, s.dialect.timeArg(takenAt),
	)
	if err != nil {
		return fmt.Errorf("insert pill: %w", err)
	}
	return nil
}

// AddNote stores n. A zero CreatedAt means "now".
func (s *SQLStore) AddNote(ctx context.Context, n records.HealthNote) error {
	if strings.TrimSpace(n.Note) == "" {
		return fmt.Errorf("%w: note is required", ErrInvalidRecord)
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO health_notes (user_id, note, created_at) VALUES (?, ?, ?)`),
		n.UserID, n.Note, s.dialect.timeArg(createdAt),
	)
	if err != nil {
		return fmt.Errorf("insert health note: %w", err)
	}
	return nil
}

// FetchAll returns both record kinds for userID in ascending time order.
// Both reads share one pooled connection, released on every return path.
func (s *SQLStore) FetchAll(ctx context.Context, userID int64) (records.UserRecordSet, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return records.UserRecordSet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	pills, err := s.fetchPills(ctx, conn, userID)
	if err != nil {
		return records.UserRecordSet{}, err
	}
	notes, err := s.fetchNotes(ctx, conn, userID)
	if err != nil {
		return records.UserRecordSet{}, err
	}
	return records.UserRecordSet{Pills: pills, Notes: notes}, nil
}

func (s *SQLStore) fetchPills(ctx context.Context, conn *sql.Conn, userID int64) ([]records.DoseEvent, error) {
	rows, err := conn.QueryContext(ctx,
		s.dialect.rebind(`SELECT pill_name, dose, taken_at FROM pills WHERE user_id = ? ORDER BY taken_at, id`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pills: %w", err)
	}
	defer rows.Close()

	var out []records.DoseEvent
	for rows.Next() {
		ev := records.DoseEvent{UserID: userID}
		var takenAt dbTime
		if err := rows.Scan(&ev.PillName, &ev.Dose, &takenAt); err != nil {
			return nil, fmt.Errorf("scan pill: %w", err)
		}
		ev.TakenAt = takenAt.Time
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pills: %w", err)
	}
	return out, nil
}

func (s *SQLStore) fetchNotes(ctx context.Context, conn *sql.Conn, userID int64) ([]records.HealthNote, error) {
	rows, err := conn.QueryContext(ctx,
		s.dialect.rebind(`SELECT note, created_at FROM health_notes WHERE user_id = ? ORDER BY created_at, id`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query health notes: %w", err)
	}
	defer rows.Close()

	var out []records.HealthNote
	for rows.Next() {
		n := records.HealthNote{UserID: userID}
		var createdAt dbTime
		if err := rows.Scan(&n.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan health note: %w", err)
		}
		n.CreatedAt = createdAt.Time
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health notes: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// dbTime scans timestamps stored natively (postgres) or as text (sqlite).
type dbTime struct {
	time.Time
}

var textTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return fmt.Errorf("timestamp is NULL")
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range textTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
