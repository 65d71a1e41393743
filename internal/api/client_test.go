package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, zerolog.Nop(), Options{})
}

func TestClient_Upload(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "report.docx")
	require.NoError(t, os.WriteFile(docPath, []byte("doc-bytes"), 0o644))

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "both", r.FormValue("guidelines_preference"))

		_, header, err := r.FormFile("document")
		require.NoError(t, err)
		assert.Equal(t, "report.docx", header.Filename)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    true,
			"session_id": "sess-1",
			"sections":   []string{"Intro", "Body"},
		})
	}))

	result, err := client.Upload(context.Background(), UploadRequest{DocumentPath: docPath})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", result.SessionID)
	assert.Equal(t, []string{"Intro", "Body"}, result.Sections)
}

func TestClient_AnalyzeSection(t *testing.T) {
	t.Run("synchronous result", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "sess-1", payload["session_id"])
			assert.Equal(t, "Intro", payload["section_name"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":         true,
				"section_content": "Intro text",
				"feedback_items": []map[string]any{
					{"id": "f1", "type": "suggestion", "risk_level": "Low", "confidence": 0.9},
				},
			})
		}))

		result, err := client.AnalyzeSection(context.Background(), "sess-1", "Intro")
		require.NoError(t, err)
		assert.Empty(t, result.TaskID)
		require.Len(t, result.FeedbackItems, 1)
		assert.Equal(t, "f1", result.FeedbackItems[0].ID)
	})

	t.Run("asynchronous task handoff", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":         true,
				"task_id":         "task-9",
				"async":           true,
				"section_content": "Intro text",
			})
		}))

		result, err := client.AnalyzeSection(context.Background(), "sess-1", "Intro")
		require.NoError(t, err)
		assert.Equal(t, "task-9", result.TaskID)
		assert.True(t, result.Async)
		assert.Equal(t, "Intro text", result.SectionContent)
	})
}

func TestClient_BackendError(t *testing.T) {
	t.Run("success false envelope", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "Invalid or expired session",
			})
		}))

		err := client.AcceptFeedback(context.Background(), "sess-x", "Intro", "f1")
		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, "Invalid or expired session", backendErr.Message)
	})

	t.Run("http error status with error body", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "No session ID provided"})
		}))

		err := client.ResetSession(context.Background(), "")
		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, "No session ID provided", backendErr.Message)
	})

	t.Run("http error status without body", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		err := client.RevertAllFeedback(context.Background(), "sess-1")
		var backendErr *BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Contains(t, backendErr.Message, "500")
	})
}

func TestClient_ProbeWithoutSuccessFlag(t *testing.T) {
	// The health probe responds without a success field; that must not be
	// treated as a failure.
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "healthy"})
	}))

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
}

func TestClient_AddCustomFeedback(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CustomFeedbackRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Needs more detail", req.Description)

		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "feedback_id": "cf-42"})
	}))

	id, err := client.AddCustomFeedback(context.Background(), CustomFeedbackRequest{
		SessionID:   "sess-1",
		Section:     "Body",
		Type:        "suggestion",
		Category:    "Quality Control",
		Description: "Needs more detail",
	})
	require.NoError(t, err)
	assert.Equal(t, "cf-42", id)
}

func TestClient_TaskStatus(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task_status/task-9", r.URL.Path)
		assert.Equal(t, "sess-1", r.URL.Query().Get("session_id"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"state":   TaskSuccess,
			"ready":   true,
			"feedback_items": []map[string]any{
				{"id": "f1", "type": "critical", "risk_level": "High", "confidence": 0.8},
			},
		})
	}))

	status, err := client.TaskStatus(context.Background(), "task-9", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, TaskSuccess, status.State)
	require.Len(t, status.FeedbackItems, 1)
}

func TestClient_Download(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/download_statistics", r.URL.Path)
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte("stats-bytes"))
	}))

	dest := filepath.Join(t.TempDir(), "stats.csv")
	err := client.Download(context.Background(), "/download_statistics", "sess-1", "csv", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "stats-bytes", string(data))
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "Invalid session", UserMessage(&BackendError{Message: "Invalid session"}))
	assert.Contains(t, UserMessage(context.DeadlineExceeded), "timed out")
}

func TestRetry(t *testing.T) {
	t.Run("stops on success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
			calls++
			if calls < 2 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("backend errors are not retried", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
			calls++
			return &BackendError{Message: "bad request"}
		})
		var backendErr *BackendError
		assert.ErrorAs(t, err, &backendErr)
		assert.Equal(t, 1, calls)
	})

	t.Run("bounded attempts", func(t *testing.T) {
		calls := 0
		boom := errors.New("still down")
		err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})
}
