package theme

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	preferenceKey = "theme"
)

func Parse(s string) (Theme, bool) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), true
	default:
		return "", false
	}
}

func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// GlamourStyle maps the theme to a glamour standard style name.
func (t Theme) GlamourStyle() string {
	if t == Light {
		return "light"
	}
	return "dark"
}

// Notifier reports a theme change to the backend.
type Notifier interface {
	NotifyTheme(ctx context.Context, theme string) error
}

type Store struct {
	db       *sql.DB
	notifier Notifier
	log      *zap.Logger
	mu       sync.Mutex
}

func Open(dbPath string, notifier Notifier, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{db: db, notifier: notifier, log: log}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Stored returns the saved preference, if any.
func (s *Store) Stored() (Theme, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, preferenceKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read theme preference: %w", err)
	}
	t, ok := Parse(v)
	return t, ok, nil
}

// Initial resolves the theme at startup: the stored preference, otherwise
// the terminal background.
func (s *Store) Initial(detectDark func() bool) Theme {
	if t, ok, err := s.Stored(); err == nil && ok {
		return t
	} else if err != nil {
		s.log.Warn("theme preference unreadable", zap.Error(err))
	}
	if detectDark != nil && !detectDark() {
		return Light
	}
	return Dark
}

// Set persists t and notifies the backend. Notification failures are
// logged only.
func (s *Store) Set(ctx context.Context, t Theme) error {
	if _, ok := Parse(string(t)); !ok {
		return fmt.Errorf("unknown theme %q", t)
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		preferenceKey, string(t))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save theme preference: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyTheme(ctx, string(t)); err != nil {
			s.log.Warn("theme notify failed", zap.String("theme", string(t)), zap.Error(err))
		}
	}
	return nil
}
