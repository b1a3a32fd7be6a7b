package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"hublocal/internal/model"
)

// Logger writes access-log entries to a SQLite DB path. The log is
// append-only: entries are never updated or deleted through this
// package.
type Logger struct {
	DBPath string
}

// NewLogger returns a Logger bound to the provided DB path.
func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath}
}

// LogAction appends one entry describing actor, action, target, and
// severity class.
func (l *Logger) LogAction(user model.User, action, details string, severity model.Severity) error {
	now := time.Now()
	entry := model.AccessLog{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.Name,
		Action:    action,
		Details:   details,
		Type:      severity,
		Timestamp: now.UnixMilli(),
		Date:      now.Format("2006-01-02"),
		Time:      now.Format("15:04:05"),
	}
	return l.append(entry)
}

func (l *Logger) append(entry model.AccessLog) error {
	db, err := l.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(
		"INSERT INTO access_logs (id, user_id, user_name, action, details, type, ts, date, time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.UserID, entry.UserName, entry.Action, entry.Details, string(entry.Type), entry.Timestamp, entry.Date, entry.Time,
	)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, newest first.
func (l *Logger) ListRecent(limit int) ([]model.AccessLog, error) {
	db, err := l.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query(
		"SELECT id, user_id, user_name, action, details, type, ts, date, time FROM access_logs ORDER BY ts DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query access logs: %w", err)
	}
	defer rows.Close()

	var entries []model.AccessLog
	for rows.Next() {
		var e model.AccessLog
		var severity string
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action, &e.Details, &severity, &e.Timestamp, &e.Date, &e.Time); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		e.Type = model.Severity(severity)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access logs: %w", err)
	}
	return entries, nil
}

func (l *Logger) open() (*sql.DB, error) {
	if l == nil || l.DBPath == "" {
		return nil, fmt.Errorf("audit db path is required")
	}
	absPath, err := filepath.Abs(l.DBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure audit db dir: %w", err)
	}
	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS access_logs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			type TEXT NOT NULL,
			ts INTEGER NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}
