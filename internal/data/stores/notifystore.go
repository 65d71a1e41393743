package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/prism/internal/core/notify"
	"github.com/colonyops/prism/internal/data/db"
)

// NotifyStore persists notification history for the TUI's history panel.
type NotifyStore struct {
	db *db.DB
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore creates a notification store.
func NewNotifyStore(database *db.DB) *NotifyStore {
	return &NotifyStore{db: database}
}

// Save persists a notification and returns its id.
func (s *NotifyStore) Save(ctx context.Context, n notify.Notification) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO notifications (level, message, created_at) VALUES (?, ?, ?)`,
		string(n.Level), n.Message, n.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("save notification: %w", err)
	}
	return res.LastInsertId()
}

// List returns all notifications, newest first.
func (s *NotifyStore) List(ctx context.Context) ([]notify.Notification, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, level, message, created_at FROM notifications ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var (
			n       notify.Notification
			level   string
			created string
		)
		if err := rows.Scan(&n.ID, &level, &n.Message, &created); err != nil {
			return nil, err
		}
		n.Level = notify.Level(level)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			n.CreatedAt = t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Clear deletes all persisted notifications.
func (s *NotifyStore) Clear(ctx context.Context) error {
	_, err := s.db.Conn().ExecContext(ctx, `DELETE FROM notifications`)
	if err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

// Count returns the number of persisted notifications.
func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}
