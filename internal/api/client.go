// Package api is the HTTP client for the AI-Prism review service. All
// functionality of the client is mediated by this service; the client treats
// its local state as a cache of server-confirmed mutations.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/prism/internal/core/review"
)

// Timeout classes. Analysis, chat and export calls run model inference or
// document generation server-side and get the extended budget.
const (
	DefaultTimeout  = 30 * time.Second
	ExtendedTimeout = 240 * time.Second
)

// Client talks to the review service. Methods apply their timeout class via
// context deadlines; a deadline race stands in for request cancellation,
// matching the service's fire-and-forget call model.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	extended   time.Duration
	log        zerolog.Logger
}

// Options tune client behavior. Zero values use the defaults.
type Options struct {
	Timeout         time.Duration
	ExtendedTimeout time.Duration
}

// New creates a client for the service at baseURL.
func New(baseURL string, logger zerolog.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ExtendedTimeout <= 0 {
		opts.ExtendedTimeout = ExtendedTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    opts.Timeout,
		extended:   opts.ExtendedTimeout,
		log:        logger,
	}
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// checker is implemented by all response types embedding Envelope.
type checker interface {
	ok() (bool, string)
}

func (e Envelope) ok() (bool, string) {
	if e.ErrorMsg != "" {
		return false, e.ErrorMsg
	}
	return e.Success == nil || *e.Success, ""
}

// Upload sends the analysis document (and optional guidelines document) to
// POST /upload and returns the new session descriptor.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	var result UploadResult

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := attachFile(writer, "document", req.DocumentPath); err != nil {
		return result, err
	}
	if req.GuidelinesPath != "" {
		if err := attachFile(writer, "guidelines", req.GuidelinesPath); err != nil {
			return result, err
		}
	}
	pref := req.GuidelinesPreference
	if pref == "" {
		pref = "both"
	}
	if err := writer.WriteField("guidelines_preference", pref); err != nil {
		return result, fmt.Errorf("write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return result, fmt.Errorf("finalize form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.extended)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return result, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	err = c.do(httpReq, &result)
	return result, err
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy %s: %w", field, err)
	}
	return nil
}

// AnalyzeSection requests analysis of one section. The response is either
// synchronous (feedback items inline) or asynchronous (task id to poll).
func (c *Client) AnalyzeSection(ctx context.Context, sessionID, section string) (AnalyzeResult, error) {
	var result AnalyzeResult
	err := c.postJSON(ctx, c.extended, "/analyze_section", map[string]any{
		"session_id":   sessionID,
		"section_name": section,
	}, &result)
	return result, err
}

// TaskStatus polls the status of an asynchronous analysis task.
func (c *Client) TaskStatus(ctx context.Context, taskID, sessionID string) (TaskStatus, error) {
	var result TaskStatus
	path := "/task_status/" + url.PathEscape(taskID) + "?session_id=" + url.QueryEscape(sessionID)
	err := c.getJSON(ctx, path, &result)
	return result, err
}

// AcceptFeedback records acceptance of an AI feedback item server-side.
func (c *Client) AcceptFeedback(ctx context.Context, sessionID, section, feedbackID string) error {
	return c.feedbackAction(ctx, "/accept_feedback", sessionID, section, feedbackID)
}

// RejectFeedback records rejection of an AI feedback item server-side.
func (c *Client) RejectFeedback(ctx context.Context, sessionID, section, feedbackID string) error {
	return c.feedbackAction(ctx, "/reject_feedback", sessionID, section, feedbackID)
}

// RevertFeedback returns a previously actioned item to pending server-side,
// keeping aggregate statistics correct.
func (c *Client) RevertFeedback(ctx context.Context, sessionID, section, feedbackID string) error {
	return c.feedbackAction(ctx, "/revert_feedback", sessionID, section, feedbackID)
}

func (c *Client) feedbackAction(ctx context.Context, path, sessionID, section, feedbackID string) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, path, map[string]any{
		"session_id":   sessionID,
		"section_name": section,
		"feedback_id":  feedbackID,
	}, &result)
}

// RevertAllFeedback bulk-reverts every feedback item of the session.
func (c *Client) RevertAllFeedback(ctx context.Context, sessionID string) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, "/revert_all_feedback", map[string]any{
		"session_id": sessionID,
	}, &result)
}

// AddCustomFeedback submits a user-authored note and returns the
// server-confirmed id. Callers must not treat the entry as committed until
// this returns successfully.
func (c *Client) AddCustomFeedback(ctx context.Context, req CustomFeedbackRequest) (string, error) {
	var result CustomFeedbackResult
	if err := c.postJSON(ctx, c.timeout, "/add_custom_feedback", req, &result); err != nil {
		return "", err
	}
	return result.FeedbackID, nil
}

// UpdateUserFeedback edits an existing custom feedback entry server-side.
func (c *Client) UpdateUserFeedback(ctx context.Context, sessionID string, item review.CustomFeedbackItem) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, "/update_user_feedback", map[string]any{
		"session_id":  sessionID,
		"feedback_id": item.ID,
		"description": item.Description,
		"category":    item.Category,
		"type":        string(item.Type),
	}, &result)
}

// DeleteUserFeedback removes a custom feedback entry server-side.
func (c *Client) DeleteUserFeedback(ctx context.Context, sessionID, feedbackID string) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, "/delete_user_feedback", map[string]any{
		"session_id":  sessionID,
		"feedback_id": feedbackID,
	}, &result)
}

// GetAcceptedFeedbackCount returns the pre-flight counts consulted before
// generating the final document.
func (c *Client) GetAcceptedFeedbackCount(ctx context.Context, sessionID string) (AcceptedCount, error) {
	var result AcceptedCount
	err := c.getJSON(ctx, "/get_accepted_feedback_count?session_id="+url.QueryEscape(sessionID), &result)
	return result, err
}

// CompleteReview asks the service to generate the final annotated document.
func (c *Client) CompleteReview(ctx context.Context, sessionID string) (CompleteResult, error) {
	var result CompleteResult
	err := c.postJSON(ctx, c.extended, "/complete_review", map[string]any{
		"session_id": sessionID,
	}, &result)
	return result, err
}

// ExportToS3 uploads the review artifacts to the configured S3 bucket.
func (c *Client) ExportToS3(ctx context.Context, sessionID string) (S3ExportResult, error) {
	var result S3ExportResult
	err := c.postJSON(ctx, c.extended, "/export_to_s3", map[string]any{
		"session_id": sessionID,
	}, &result)
	return result, err
}

// Chat sends a free-form question about the document under review.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (string, error) {
	var result ChatResult
	err := c.postJSON(ctx, c.extended, "/chat", map[string]any{
		"session_id": sessionID,
		"message":    message,
	}, &result)
	return result.Response, err
}

// DeleteDocument discards the uploaded document server-side.
func (c *Client) DeleteDocument(ctx context.Context, sessionID string) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, "/delete_document", map[string]any{
		"session_id": sessionID,
	}, &result)
}

// ResetSession discards all server-side session data.
func (c *Client) ResetSession(ctx context.Context, sessionID string) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, "/reset_session", map[string]any{
		"session_id": sessionID,
	}, &result)
}

// SubmitToolFeedback sends user feedback about the review tool itself.
func (c *Client) SubmitToolFeedback(ctx context.Context, rating int, comments string) error {
	var result struct{ Envelope }
	return c.postJSON(ctx, c.timeout, "/submit_tool_feedback", map[string]any{
		"rating":   rating,
		"comments": comments,
	}, &result)
}

// GetStatistics returns session-wide accept/reject statistics.
func (c *Client) GetStatistics(ctx context.Context, sessionID string) (Statistics, error) {
	var result Statistics
	err := c.getJSON(ctx, "/get_statistics?session_id="+url.QueryEscape(sessionID), &result)
	return result, err
}

// GetStatisticsBreakdown returns per-section statistics.
func (c *Client) GetStatisticsBreakdown(ctx context.Context, sessionID string) (StatisticsBreakdown, error) {
	var result StatisticsBreakdown
	err := c.getJSON(ctx, "/get_statistics_breakdown?session_id="+url.QueryEscape(sessionID), &result)
	return result, err
}

// GetPatterns returns the feedback-pattern analysis for the session.
func (c *Client) GetPatterns(ctx context.Context, sessionID string) (Patterns, error) {
	var result Patterns
	err := c.getJSON(ctx, "/get_patterns?session_id="+url.QueryEscape(sessionID), &result)
	return result, err
}

// GetLearningStatus returns learning-system insights for the session.
func (c *Client) GetLearningStatus(ctx context.Context, sessionID string) (LearningStatus, error) {
	var result LearningStatus
	err := c.getJSON(ctx, "/get_learning_status?session_id="+url.QueryEscape(sessionID), &result)
	return result, err
}

// GetDashboardData returns the cross-session dashboard report.
func (c *Client) GetDashboardData(ctx context.Context) (DashboardData, error) {
	var result DashboardData
	err := c.getJSON(ctx, "/get_dashboard_data", &result)
	return result, err
}

// Health probes service liveness.
func (c *Client) Health(ctx context.Context) (ConnectionStatus, error) {
	var result ConnectionStatus
	err := c.getJSON(ctx, "/health", &result)
	return result, err
}

// TestS3Connection probes S3 export connectivity.
func (c *Client) TestS3Connection(ctx context.Context) (ConnectionStatus, error) {
	var result ConnectionStatus
	err := c.getJSON(ctx, "/test_s3_connection", &result)
	return result, err
}

// TestClaudeConnection probes model connectivity.
func (c *Client) TestClaudeConnection(ctx context.Context) (ConnectionStatus, error) {
	var result ConnectionStatus
	err := c.getJSON(ctx, "/test_claude_connection", &result)
	return result, err
}

// Download fetches a file endpoint (/download_guidelines,
// /download_statistics, /export_user_feedback) into destPath.
func (c *Client) Download(ctx context.Context, endpoint, sessionID, format, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.extended)
	defer cancel()

	q := url.Values{"session_id": {sessionID}}
	if format != "" {
		q.Set("format", format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, timeout time.Duration, path string, payload any, dest checker) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, dest)
}

func (c *Client) getJSON(ctx context.Context, path string, dest checker) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest checker) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", req.URL.Path).Msg("request failed")
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if ok, msg := dest.ok(); !ok {
		return &BackendError{Message: msg}
	}
	return nil
}

// decodeError surfaces the service's error string when present, with the
// HTTP status as the generic fallback.
func (c *Client) decodeError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var env Envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.ErrorMsg != "" {
		return &BackendError{Message: env.ErrorMsg}
	}
	return &BackendError{Message: fmt.Sprintf("server error %s", resp.Status)}
}
