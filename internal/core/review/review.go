// Package review defines the document-review domain: sessions, sections,
// AI feedback items and their accept/reject lifecycle, and user-authored
// custom feedback.
package review

import "time"

// Status is the review state of an AI feedback item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// FeedbackType classifies an AI feedback item.
type FeedbackType string

const (
	TypeSuggestion    FeedbackType = "suggestion"
	TypeImportant     FeedbackType = "important"
	TypeCritical      FeedbackType = "critical"
	TypePositive      FeedbackType = "positive"
	TypeQuestion      FeedbackType = "question"
	TypeClarification FeedbackType = "clarification"
)

// RiskLevel is the backend-assigned risk for a feedback item.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Session represents one active document-review workflow. The backend issues
// the ID at upload time; exactly one session is live per client at a time.
type Session struct {
	ID                 string    `json:"id"`
	DocumentName       string    `json:"document_name"`
	Sections           []string  `json:"sections"`
	CurrentIndex       int       `json:"current_index"`
	GuidelinesUploaded bool      `json:"guidelines_uploaded"`
	CreatedAt          time.Time `json:"created_at"`
}

// NoSection is the CurrentIndex value before any section has been selected.
const NoSection = -1

// ValidIndex reports whether i addresses a section of this session.
func (s *Session) ValidIndex(i int) bool {
	return i >= 0 && i < len(s.Sections)
}

// SectionAt returns the section name at index i, or "" if out of range.
func (s *Session) SectionAt(i int) string {
	if !s.ValidIndex(i) {
		return ""
	}
	return s.Sections[i]
}

// CurrentSection returns the currently selected section name, or "" if none.
func (s *Session) CurrentSection() string {
	return s.SectionAt(s.CurrentIndex)
}

// FeedbackItem is a single AI-generated observation about a section.
// Items are created when a section is analyzed and are never deleted within
// a session; reverting returns them to pending.
type FeedbackItem struct {
	ID          string       `json:"id"`
	Type        FeedbackType `json:"type"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Suggestion  string       `json:"suggestion,omitempty"`
	RiskLevel   RiskLevel    `json:"risk_level"`
	Confidence  float64      `json:"confidence"`
	HawkeyeRefs []string     `json:"hawkeye_refs,omitempty"`
	Status      Status       `json:"status"`
}

// SectionRecord is the cached result of analyzing one section. Content is
// immutable once fetched; it is only replaced by an explicit re-analysis.
type SectionRecord struct {
	Name     string         `json:"name"`
	Content  string         `json:"content"`
	Feedback []FeedbackItem `json:"feedback_items"`
}

// CustomFeedbackItem is a user-authored note, optionally anchored to an AI
// feedback item (AIReferenceID) or a highlighted text span (HighlightID).
type CustomFeedbackItem struct {
	ID              string       `json:"id"`
	Section         string       `json:"section"`
	Type            FeedbackType `json:"type"`
	Category        string       `json:"category"`
	Description     string       `json:"description"`
	Timestamp       time.Time    `json:"timestamp"`
	AIReferenceID   string       `json:"ai_reference_id,omitempty"`
	HighlightID     string       `json:"highlight_id,omitempty"`
	HighlightedText string       `json:"highlighted_text,omitempty"`
}
