package stores

import (
	"context"
	"fmt"

	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/data/db"
)

// HighlightStore persists highlight spans per section so they can be
// restored when the user navigates away and back.
type HighlightStore struct {
	db *db.DB
}

// NewHighlightStore creates a highlight store.
func NewHighlightStore(database *db.DB) *HighlightStore {
	return &HighlightStore{db: database}
}

// Save persists one span.
func (s *HighlightStore) Save(ctx context.Context, sessionID string, span highlight.Span) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO highlights (id, session_id, section, start, length, text, color)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		span.ID, sessionID, span.Section, span.Start, span.Length, span.Text, string(span.Color))
	if err != nil {
		return fmt.Errorf("save highlight: %w", err)
	}
	return nil
}

// ListBySection returns the persisted spans for one section, ordered by
// start offset.
func (s *HighlightStore) ListBySection(ctx context.Context, sessionID, section string) ([]highlight.Span, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, section, start, length, text, color
		FROM highlights WHERE session_id = ? AND section = ? ORDER BY start`, sessionID, section)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	var spans []highlight.Span
	for rows.Next() {
		var (
			span  highlight.Span
			color string
		)
		if err := rows.Scan(&span.ID, &span.Section, &span.Start, &span.Length, &span.Text, &color); err != nil {
			return nil, err
		}
		span.Color = highlight.Color(color)
		spans = append(spans, span)
	}
	return spans, rows.Err()
}

// Delete removes one span. Deleting an absent span is a no-op, keeping
// highlight removal idempotent.
func (s *HighlightStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Conn().ExecContext(ctx, `DELETE FROM highlights WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete highlight: %w", err)
	}
	return nil
}

// Recolor updates the persisted color only.
func (s *HighlightStore) Recolor(ctx context.Context, id string, color highlight.Color) error {
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE highlights SET color = ? WHERE id = ?`, string(color), id)
	if err != nil {
		return fmt.Errorf("recolor highlight: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return highlight.ErrSpanNotFound
	}
	return nil
}

// ClearSection removes all spans for a section, returning their ids so the
// caller can cascade comment deletion.
func (s *HighlightStore) ClearSection(ctx context.Context, sessionID, section string) ([]string, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id FROM highlights WHERE session_id = ? AND section = ?`, sessionID, section)
	if err != nil {
		return nil, fmt.Errorf("list section highlights: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM highlights WHERE session_id = ? AND section = ?`, sessionID, section); err != nil {
		return nil, fmt.Errorf("clear section highlights: %w", err)
	}
	return ids, nil
}
