// Package stores implements the sqlite-backed persistence for review
// sessions, feedback state, custom feedback, highlights, and notifications.
// The backend service is always the store of record; these stores only make
// the client's view recoverable across process runs.
package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/data/db"
)

// ErrNoSession is returned when no live session is mirrored locally.
var ErrNoSession = errors.New("no active review session")

// SessionStore mirrors the single live session.
type SessionStore struct {
	db *db.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(database *db.DB) *SessionStore {
	return &SessionStore{db: database}
}

// Save mirrors the session, replacing any previous one. Exactly one session
// is live at a time, matching the one-session-per-tab model.
func (s *SessionStore) Save(ctx context.Context, session review.Session) error {
	sections, err := json.Marshal(session.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear previous session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, document_name, sections, current_index, guidelines_uploaded, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.DocumentName,
		string(sections),
		session.CurrentIndex,
		session.GuidelinesUploaded,
		session.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return tx.Commit()
}

// Load recovers the mirrored session. Returns ErrNoSession if none exists.
func (s *SessionStore) Load(ctx context.Context) (review.Session, error) {
	row := s.db.Conn().QueryRowContext(ctx, `
		SELECT id, document_name, sections, current_index, guidelines_uploaded, created_at
		FROM sessions LIMIT 1`)

	var (
		session  review.Session
		sections string
		created  string
	)
	err := row.Scan(&session.ID, &session.DocumentName, &sections, &session.CurrentIndex, &session.GuidelinesUploaded, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return review.Session{}, ErrNoSession
	}
	if err != nil {
		return review.Session{}, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal([]byte(sections), &session.Sections); err != nil {
		return review.Session{}, fmt.Errorf("unmarshal sections: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		session.CreatedAt = t
	}

	return session, nil
}

// SetCurrentIndex persists a navigation change.
func (s *SessionStore) SetCurrentIndex(ctx context.Context, sessionID string, index int) error {
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE sessions SET current_index = ? WHERE id = ?`, index, sessionID)
	if err != nil {
		return fmt.Errorf("update current index: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSession
	}
	return nil
}

// Clear removes the mirrored session and every row tied to it. Called on
// reset after the backend has confirmed discarding the server-side session.
func (s *SessionStore) Clear(ctx context.Context) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM sessions`,
		`DELETE FROM feedback_status`,
		`DELETE FROM custom_feedback`,
		`DELETE FROM highlights`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear session data: %w", err)
		}
	}

	return tx.Commit()
}
