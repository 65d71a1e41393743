package prism

import (
	"context"
	"errors"

	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/pkg/randid"
)

// highlightSet returns the lazily loaded span set for a section. Spans are
// pruned against the cached content so stale anchors never render. Callers
// hold s.mu.
func (s *Service) highlightSet(ctx context.Context, section string) (*highlight.Set, error) {
	if s.session == nil {
		return nil, ErrNoActiveSession
	}
	if set, ok := s.highlights[section]; ok {
		return set, nil
	}

	spans, err := s.spans.ListBySection(ctx, s.session.ID, section)
	if err != nil {
		return nil, err
	}
	set := highlight.NewSet(spans...)

	if record, ok := s.cache.Get(section); ok {
		for _, dropped := range set.Prune(record.Content) {
			s.log.Debug().Str("highlight", dropped.ID).Str("section", section).Msg("dropped stale highlight anchor")
			if err := s.spans.Delete(ctx, dropped.ID); err != nil {
				s.log.Warn().Err(err).Str("highlight", dropped.ID).Msg("failed to drop stale highlight")
			}
		}
	}

	s.highlights[section] = set
	return set, nil
}

// Highlights returns the spans for a section ordered by start offset.
func (s *Service) Highlights(ctx context.Context, section string) ([]highlight.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.highlightSet(ctx, section)
	if err != nil {
		return nil, err
	}
	return set.Spans(), nil
}

// AddHighlight anchors a new span to the current content of a section.
// Overlapping selections are rejected; the span persists across restarts.
func (s *Service) AddHighlight(ctx context.Context, section string, start, length int, color highlight.Color) (highlight.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.cache.Get(section)
	if !ok {
		return highlight.Span{}, errors.New("section not loaded")
	}

	span, err := highlight.NewSpan("hl-"+randid.Generate(12), section, record.Content, start, length, color)
	if err != nil {
		return highlight.Span{}, err
	}

	set, err := s.highlightSet(ctx, section)
	if err != nil {
		return highlight.Span{}, err
	}
	if err := set.Add(span); err != nil {
		return highlight.Span{}, err
	}

	if err := s.spans.Save(ctx, s.session.ID, span); err != nil {
		set.Remove(span.ID)
		return highlight.Span{}, err
	}
	return span, nil
}

// RemoveHighlight deletes a span and cascades to any custom feedback
// anchored to it. Feedback removal is confirmed with the backend first, so
// a backend failure leaves both the span and its feedback intact.
func (s *Service) RemoveHighlight(ctx context.Context, section, highlightID string) (removedFeedback []review.CustomFeedbackItem, err error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	sessionID := s.session.ID

	set, err := s.highlightSet(ctx, section)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	linked := s.customLog.ByHighlight(highlightID)
	s.mu.Unlock()

	for _, item := range linked {
		if err := s.backend.DeleteUserFeedback(ctx, sessionID, item.ID); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	removedFeedback = s.customLog.RemoveByHighlight(highlightID)
	set.Remove(highlightID)
	s.mu.Unlock()

	if err := s.spans.Delete(ctx, highlightID); err != nil {
		s.log.Warn().Err(err).Str("highlight", highlightID).Msg("failed to mirror highlight delete")
	}
	if _, err := s.feedback.DeleteCustomByHighlight(ctx, highlightID); err != nil {
		s.log.Warn().Err(err).Str("highlight", highlightID).Msg("failed to mirror cascade delete")
	}
	return removedFeedback, nil
}

// RecolorHighlight changes only the color of a span.
func (s *Service) RecolorHighlight(ctx context.Context, section, highlightID string, color highlight.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.highlightSet(ctx, section)
	if err != nil {
		return err
	}
	if err := set.Recolor(highlightID, color); err != nil {
		return err
	}
	return s.spans.Recolor(ctx, highlightID, color)
}

// ClearHighlights removes every span in a section, cascading to any custom
// feedback anchored to them. All anchored feedback is deleted backend-first,
// so a refusal leaves the section untouched; the mirror then clears in one
// sweep.
func (s *Service) ClearHighlights(ctx context.Context, section string) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	sessionID := s.session.ID

	set, err := s.highlightSet(ctx, section)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	spans := set.Spans()
	var linked []review.CustomFeedbackItem
	for _, span := range spans {
		linked = append(linked, s.customLog.ByHighlight(span.ID)...)
	}
	s.mu.Unlock()

	if len(spans) == 0 {
		return nil
	}

	for _, item := range linked {
		if err := s.backend.DeleteUserFeedback(ctx, sessionID, item.ID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	for _, span := range spans {
		s.customLog.RemoveByHighlight(span.ID)
	}
	set.Clear()
	s.mu.Unlock()

	if _, err := s.spans.ClearSection(ctx, sessionID, section); err != nil {
		s.log.Warn().Err(err).Str("section", section).Msg("failed to mirror highlight clear")
	}
	for _, span := range spans {
		if _, err := s.feedback.DeleteCustomByHighlight(ctx, span.ID); err != nil {
			s.log.Warn().Err(err).Str("highlight", span.ID).Msg("failed to mirror cascade delete")
		}
	}
	return nil
}

// RenderSection returns the section content with highlight decoration
// applied via wrap. Content with no highlights passes through untouched.
func (s *Service) RenderSection(ctx context.Context, section string, wrap func(text string, color highlight.Color) string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.cache.Get(section)
	if !ok {
		return "", errors.New("section not loaded")
	}
	set, err := s.highlightSet(ctx, section)
	if err != nil {
		return "", err
	}
	return set.Render(record.Content, wrap), nil
}
