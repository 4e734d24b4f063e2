// Package mysql archives timer sessions into a MySQL table.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/five82/taskclock/internal/archive"
	"github.com/five82/taskclock/internal/timer"
)

// Sink implements archive.Sink by upserting into timer_sessions.
type Sink struct {
	db  *sql.DB
	log *slog.Logger
}

var _ archive.Sink = (*Sink)(nil)

// Open connects to dsn, applies migrations and returns a Sink.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, archive.ErrNoDSN
	}
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if err := Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Sink{db: db, log: log}, nil
}

// Record upserts sessions keyed by (task id, start).
func (s *Sink) Record(ctx context.Context, sessions []timer.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	const q = `
INSERT INTO timer_sessions
  (task_id, started_at, ended_at, duration_ms, recorded_at)
VALUES
  (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  ended_at=VALUES(ended_at),
  duration_ms=VALUES(duration_ms),
  recorded_at=VALUES(recorded_at);
`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, sess := range sessions {
		if _, err := stmt.ExecContext(
			ctx,
			sess.TaskID,
			sess.Start.UTC(),
			sess.End.UTC(),
			sess.Duration().Milliseconds(),
			now,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("mysql sink upserted sessions", slog.Int("count", len(sessions)))
	return nil
}

// TotalFor sums archived milliseconds for taskID.
func (s *Sink) TotalFor(ctx context.Context, taskID string) (time.Duration, error) {
	var ms sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT SUM(duration_ms) FROM timer_sessions WHERE task_id = ?", taskID).Scan(&ms)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms.Int64) * time.Millisecond, nil
}

// Close closes the underlying DB.
func (s *Sink) Close() error { return s.db.Close() }
