package api

import "github.com/colonyops/prism/internal/core/review"

// Envelope carries the success flag and error string present on every JSON
// response from the review service. Success is a pointer because a few
// read-only report endpoints omit the flag entirely; absent means success.
type Envelope struct {
	Success  *bool  `json:"success"`
	ErrorMsg string `json:"error"`
}

// UploadRequest describes the documents sent to POST /upload.
type UploadRequest struct {
	DocumentPath         string
	GuidelinesPath       string // optional
	GuidelinesPreference string // "both", "new_only", "old_only"
}

// UploadResult is the response to a successful upload.
type UploadResult struct {
	Envelope
	SessionID            string   `json:"session_id"`
	DocumentName         string   `json:"document_name"`
	Sections             []string `json:"sections"`
	TotalSections        int      `json:"total_sections"`
	GuidelinesUploaded   bool     `json:"guidelines_uploaded"`
	GuidelinesPreference string   `json:"guidelines_preference"`
}

// AnalyzeResult is the response to POST /analyze_section. The service
// answers either synchronously with feedback items, or asynchronously with a
// task id to poll; section content is included in both shapes.
type AnalyzeResult struct {
	Envelope
	TaskID         string                `json:"task_id"`
	Async          bool                  `json:"async"`
	SectionContent string                `json:"section_content"`
	FeedbackItems  []review.FeedbackItem `json:"feedback_items"`
	Message        string                `json:"message"`
}

// Task states reported by GET /task_status.
const (
	TaskPending  = "PENDING"
	TaskProgress = "PROGRESS"
	TaskSuccess  = "SUCCESS"
	TaskFailure  = "FAILURE"
)

// TaskStatus is the response to GET /task_status/{task_id}.
type TaskStatus struct {
	Envelope
	State          string                `json:"state"`
	Ready          bool                  `json:"ready"`
	SectionContent string                `json:"section_content"`
	FeedbackItems  []review.FeedbackItem `json:"feedback_items"`
}

// CustomFeedbackRequest is the payload for POST /add_custom_feedback.
type CustomFeedbackRequest struct {
	SessionID       string `json:"session_id"`
	Section         string `json:"section_name"`
	Type            string `json:"feedback_type"`
	Category        string `json:"category"`
	Description     string `json:"description"`
	AIReferenceID   string `json:"ai_reference_id,omitempty"`
	HighlightID     string `json:"highlight_id,omitempty"`
	HighlightedText string `json:"highlighted_text,omitempty"`
}

// CustomFeedbackResult carries the server-confirmed id for a new entry.
type CustomFeedbackResult struct {
	Envelope
	FeedbackID string `json:"feedback_id"`
}

// Statistics is the response to GET /get_statistics.
type Statistics struct {
	Envelope
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	Pending        int     `json:"pending"`
	CustomCount    int     `json:"custom_count"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// StatisticsBreakdown is the response to GET /get_statistics_breakdown,
// keyed by section name.
type StatisticsBreakdown struct {
	Envelope
	Sections map[string]Statistics `json:"sections"`
}

// Patterns is the response to GET /get_patterns.
type Patterns struct {
	Envelope
	MostAcceptedType  string             `json:"most_accepted_type"`
	MostRejectedType  string             `json:"most_rejected_type"`
	AcceptanceByType  map[string]float64 `json:"acceptance_by_type"`
	AcceptanceByRisk  map[string]float64 `json:"acceptance_by_risk"`
	EngagementSummary string             `json:"engagement_summary"`
}

// LearningStatus is the response to GET /get_learning_status.
type LearningStatus struct {
	Envelope
	Insights    []string `json:"insights"`
	Suggestions []string `json:"suggestions"`
}

// DashboardData is the response to GET /get_dashboard_data.
type DashboardData struct {
	Envelope
	TotalSessions  int `json:"total_sessions"`
	TotalFeedback  int `json:"total_feedback"`
	TotalAccepted  int `json:"total_accepted"`
	TotalRejected  int `json:"total_rejected"`
	ActiveSessions int `json:"active_sessions"`
}

// CompleteResult is the response to POST /complete_review: the service
// generates the final annotated document and returns where to fetch it.
type CompleteResult struct {
	Envelope
	DownloadURL   string `json:"download_url"`
	Filename      string `json:"filename"`
	AcceptedCount int    `json:"accepted_count"`
}

// AcceptedCount is the response to GET /get_accepted_feedback_count, used
// for the pre-flight check before generating the final document.
type AcceptedCount struct {
	Envelope
	Accepted int `json:"accepted_count"`
	Custom   int `json:"custom_count"`
}

// S3ExportResult is the response to POST /export_to_s3.
type S3ExportResult struct {
	Envelope
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	URL    string `json:"url"`
}

// ConnectionStatus is the response to the /health, /test_s3_connection and
// /test_claude_connection probes.
type ConnectionStatus struct {
	Envelope
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChatResult is the response to POST /chat.
type ChatResult struct {
	Envelope
	Response string `json:"response"`
}
