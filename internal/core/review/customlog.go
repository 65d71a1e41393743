package review

import (
	"errors"
	"strings"
)

// Sentinel errors for custom feedback operations.
var (
	ErrEmptyDescription = errors.New("custom feedback description is empty")
	ErrNoSection        = errors.New("no section selected")
	ErrCustomNotFound   = errors.New("custom feedback entry not found")
)

// ValidateCustom checks a custom feedback entry before any network call is
// made. Validation failures abort the operation client-side.
func ValidateCustom(section, description string) error {
	if strings.TrimSpace(section) == "" {
		return ErrNoSection
	}
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	return nil
}

// CustomLog is the append-only ordered log of user-authored feedback.
// Entries are appended only after the backend has confirmed them, edited and
// removed in place, and never auto-expired.
type CustomLog struct {
	items []CustomFeedbackItem
}

// NewCustomLog creates a log, optionally seeded from persisted entries.
func NewCustomLog(items ...CustomFeedbackItem) *CustomLog {
	log := &CustomLog{}
	log.items = append(log.items, items...)
	return log
}

// Append adds a server-confirmed entry to the end of the log.
func (l *CustomLog) Append(item CustomFeedbackItem) {
	l.items = append(l.items, item)
}

// Items returns the log entries in insertion order.
func (l *CustomLog) Items() []CustomFeedbackItem {
	out := make([]CustomFeedbackItem, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of entries.
func (l *CustomLog) Len() int {
	return len(l.items)
}

// BySection returns entries for the named section, in insertion order.
func (l *CustomLog) BySection(section string) []CustomFeedbackItem {
	var out []CustomFeedbackItem
	for _, item := range l.items {
		if item.Section == section {
			out = append(out, item)
		}
	}
	return out
}

// CountForAIItem returns the number of notes anchored to the given AI
// feedback item. Multiple notes per item are supported.
func (l *CustomLog) CountForAIItem(aiID string) int {
	n := 0
	for _, item := range l.items {
		if item.AIReferenceID == aiID {
			n++
		}
	}
	return n
}

// Update replaces the entry with the given id in place.
func (l *CustomLog) Update(item CustomFeedbackItem) error {
	for i := range l.items {
		if l.items[i].ID == item.ID {
			l.items[i] = item
			return nil
		}
	}
	return ErrCustomNotFound
}

// Remove deletes the entry with the given id.
func (l *CustomLog) Remove(id string) error {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return nil
		}
	}
	return ErrCustomNotFound
}

// ByHighlight returns entries anchored to the given highlight.
func (l *CustomLog) ByHighlight(highlightID string) []CustomFeedbackItem {
	var out []CustomFeedbackItem
	for _, item := range l.items {
		if item.HighlightID == highlightID {
			out = append(out, item)
		}
	}
	return out
}

// RemoveByHighlight deletes every entry anchored to the given highlight and
// returns the removed entries. Used when a highlight is removed, which
// cascades to its comments.
func (l *CustomLog) RemoveByHighlight(highlightID string) []CustomFeedbackItem {
	var removed []CustomFeedbackItem
	kept := l.items[:0]
	for _, item := range l.items {
		if item.HighlightID == highlightID {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	l.items = kept
	return removed
}
