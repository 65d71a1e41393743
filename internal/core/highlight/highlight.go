// Package highlight anchors user highlights to sub-spans of section content.
//
// Spans are stored as offset/length anchors against the immutable section
// content string, and the highlighted rendering is derived purely from those
// offsets. This avoids re-locating highlighted substrings in re-rendered
// content, which breaks on duplicate or ambiguous text.
//
// Known limitation: anchors are only valid against the exact content string
// they were created from. Re-analyzing a section invalidates its spans, so
// callers drop spans whose text no longer matches the content at the anchor.
package highlight

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Color is one of the selectable highlight colors.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

// Colors lists the selectable highlight colors in display order.
func Colors() []Color {
	return []Color{ColorYellow, ColorGreen, ColorBlue, ColorRed, ColorGray}
}

// Valid reports whether c is a known color.
func (c Color) Valid() bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorRed, ColorGray:
		return true
	}
	return false
}

// MinSelection is the minimum selection length that can become a highlight.
const MinSelection = 3

// Sentinel errors for span creation and mutation.
var (
	ErrSelectionTooShort = errors.New("selection too short to highlight")
	ErrOutOfRange        = errors.New("selection outside section content")
	ErrOverlap           = errors.New("selection overlaps an existing highlight")
	ErrUnknownColor      = errors.New("unknown highlight color")
	ErrSpanNotFound      = errors.New("highlight not found")
	ErrStaleAnchor       = errors.New("highlight anchor no longer matches content")
)

// Span is a single highlighted region of a section.
type Span struct {
	ID      string `json:"id"`
	Section string `json:"section"`
	Start   int    `json:"start"`
	Length  int    `json:"length"`
	Text    string `json:"text"`
	Color   Color  `json:"color"`
}

// End returns the exclusive end offset of the span.
func (s Span) End() int { return s.Start + s.Length }

// overlaps reports whether two spans share any content range.
func (s Span) overlaps(o Span) bool {
	return s.Start < o.End() && o.Start < s.End()
}

// NewSpan validates a selection against the section content and returns the
// anchored span. The captured Text is kept alongside the offsets so stale
// anchors can be detected when content changes between visits.
func NewSpan(id, section, content string, start, length int, color Color) (Span, error) {
	if !color.Valid() {
		return Span{}, fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	if length < MinSelection {
		return Span{}, fmt.Errorf("%w: %d chars (minimum %d)", ErrSelectionTooShort, length, MinSelection)
	}
	if start < 0 || start+length > len(content) {
		return Span{}, fmt.Errorf("%w: [%d,%d) in %d chars", ErrOutOfRange, start, start+length, len(content))
	}
	return Span{
		ID:      id,
		Section: section,
		Start:   start,
		Length:  length,
		Text:    content[start : start+length],
		Color:   color,
	}, nil
}

// Set is the ordered collection of highlights for one section.
type Set struct {
	spans []Span
}

// NewSet creates a set, optionally seeded from persisted spans. Seeded spans
// are assumed to have been validated when created.
func NewSet(spans ...Span) *Set {
	set := &Set{}
	set.spans = append(set.spans, spans...)
	set.sort()
	return set
}

// Add inserts a span, rejecting overlaps with existing highlights.
func (s *Set) Add(span Span) error {
	for _, existing := range s.spans {
		if span.overlaps(existing) {
			return fmt.Errorf("%w: %s", ErrOverlap, existing.ID)
		}
	}
	s.spans = append(s.spans, span)
	s.sort()
	return nil
}

// Remove deletes the span with the given id, returning it. Removing an
// absent span reports ok=false, making removal idempotent for callers.
func (s *Set) Remove(id string) (Span, bool) {
	for i, span := range s.spans {
		if span.ID == id {
			s.spans = append(s.spans[:i], s.spans[i+1:]...)
			return span, true
		}
	}
	return Span{}, false
}

// Recolor updates only the visual color of a span; the anchor is untouched.
func (s *Set) Recolor(id string, color Color) error {
	if !color.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownColor, color)
	}
	for i := range s.spans {
		if s.spans[i].ID == id {
			s.spans[i].Color = color
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSpanNotFound, id)
}

// Get returns the span with the given id.
func (s *Set) Get(id string) (Span, bool) {
	for _, span := range s.spans {
		if span.ID == id {
			return span, true
		}
	}
	return Span{}, false
}

// Spans returns all spans ordered by start offset.
func (s *Set) Spans() []Span {
	out := make([]Span, len(s.spans))
	copy(out, s.spans)
	return out
}

// Len returns the number of spans.
func (s *Set) Len() int { return len(s.spans) }

// Clear removes all spans.
func (s *Set) Clear() { s.spans = nil }

// Prune drops spans whose anchored text no longer matches the content and
// returns the dropped spans. Called when restoring highlights against
// freshly fetched content.
func (s *Set) Prune(content string) []Span {
	var dropped []Span
	kept := s.spans[:0]
	for _, span := range s.spans {
		if span.End() > len(content) || content[span.Start:span.End()] != span.Text {
			dropped = append(dropped, span)
			continue
		}
		kept = append(kept, span)
	}
	s.spans = kept
	return dropped
}

func (s *Set) sort() {
	sort.Slice(s.spans, func(i, j int) bool { return s.spans[i].Start < s.spans[j].Start })
}

// Render derives the highlighted view of content purely from the span
// offsets. wrap decorates each highlighted region; the plain text is always
// recoverable because content itself is never mutated.
func (s *Set) Render(content string, wrap func(text string, color Color) string) string {
	if len(s.spans) == 0 {
		return content
	}

	var b strings.Builder
	cursor := 0
	for _, span := range s.spans {
		if span.End() > len(content) {
			continue
		}
		b.WriteString(content[cursor:span.Start])
		b.WriteString(wrap(content[span.Start:span.End()], span.Color))
		cursor = span.End()
	}
	b.WriteString(content[cursor:])
	return b.String()
}
