package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/data/db"
)

// FeedbackStore persists AI feedback statuses and the custom feedback log.
type FeedbackStore struct {
	db *db.DB
}

// NewFeedbackStore creates a feedback store.
func NewFeedbackStore(database *db.DB) *FeedbackStore {
	return &FeedbackStore{db: database}
}

// SetStatus mirrors one item's review status.
func (s *FeedbackStore) SetStatus(ctx context.Context, sessionID, feedbackID string, status review.Status) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO feedback_status (session_id, feedback_id, status)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id, feedback_id) DO UPDATE SET status = excluded.status`,
		sessionID, feedbackID, string(status))
	if err != nil {
		return fmt.Errorf("set feedback status: %w", err)
	}
	return nil
}

// Statuses returns the mirrored status map for a session.
func (s *FeedbackStore) Statuses(ctx context.Context, sessionID string) (map[string]review.Status, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT feedback_id, status FROM feedback_status WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list feedback statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]review.Status)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		statuses[id] = review.Status(status)
	}
	return statuses, rows.Err()
}

// ResetStatuses returns every mirrored status for the session to pending.
func (s *FeedbackStore) ResetStatuses(ctx context.Context, sessionID string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`UPDATE feedback_status SET status = ? WHERE session_id = ?`,
		string(review.StatusPending), sessionID)
	if err != nil {
		return fmt.Errorf("reset feedback statuses: %w", err)
	}
	return nil
}

// SaveCustom appends a server-confirmed custom feedback entry.
func (s *FeedbackStore) SaveCustom(ctx context.Context, sessionID string, item review.CustomFeedbackItem) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO custom_feedback
			(id, session_id, section, type, category, description, ai_reference_id, highlight_id, highlighted_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, sessionID, item.Section, string(item.Type), item.Category, item.Description,
		item.AIReferenceID, item.HighlightID, item.HighlightedText,
		item.Timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save custom feedback: %w", err)
	}
	return nil
}

// ListCustom returns the custom feedback log in insertion order.
func (s *FeedbackStore) ListCustom(ctx context.Context, sessionID string) ([]review.CustomFeedbackItem, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, section, type, category, description, ai_reference_id, highlight_id, highlighted_text, created_at
		FROM custom_feedback WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list custom feedback: %w", err)
	}
	defer rows.Close()

	var items []review.CustomFeedbackItem
	for rows.Next() {
		var (
			item    review.CustomFeedbackItem
			created string
			ftype   string
		)
		if err := rows.Scan(&item.ID, &item.Section, &ftype, &item.Category, &item.Description,
			&item.AIReferenceID, &item.HighlightID, &item.HighlightedText, &created); err != nil {
			return nil, err
		}
		item.Type = review.FeedbackType(ftype)
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			item.Timestamp = t
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateCustom edits a custom feedback entry in place.
func (s *FeedbackStore) UpdateCustom(ctx context.Context, item review.CustomFeedbackItem) error {
	res, err := s.db.Conn().ExecContext(ctx, `
		UPDATE custom_feedback SET type = ?, category = ?, description = ? WHERE id = ?`,
		string(item.Type), item.Category, item.Description, item.ID)
	if err != nil {
		return fmt.Errorf("update custom feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return review.ErrCustomNotFound
	}
	return nil
}

// DeleteCustom removes a custom feedback entry.
func (s *FeedbackStore) DeleteCustom(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, `DELETE FROM custom_feedback WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete custom feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return review.ErrCustomNotFound
	}
	return nil
}

// DeleteCustomByHighlight removes all entries anchored to a highlight,
// returning how many were removed.
func (s *FeedbackStore) DeleteCustomByHighlight(ctx context.Context, highlightID string) (int, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM custom_feedback WHERE highlight_id = ?`, highlightID)
	if err != nil {
		return 0, fmt.Errorf("delete custom feedback by highlight: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
