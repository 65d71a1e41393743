package prism

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/config"
	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/core/poll"
	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/data/db"
	"github.com/colonyops/prism/internal/data/stores"
)

// fakeBackend implements Backend with overridable hooks and call counters.
type fakeBackend struct {
	uploadCalls  int
	analyzeCalls int
	statusCalls  int
	acceptCalls  int
	customCalls  int

	uploadFn  func(req api.UploadRequest) (api.UploadResult, error)
	analyzeFn func(section string) (api.AnalyzeResult, error)
	statusFn  func(taskID string) (api.TaskStatus, error)
	acceptErr error
	rejectErr error
	revertErr error
	customFn  func(req api.CustomFeedbackRequest) (string, error)
	countsFn  func() (api.AcceptedCount, error)
	deleteErr error
}

func (f *fakeBackend) Upload(_ context.Context, req api.UploadRequest) (api.UploadResult, error) {
	f.uploadCalls++
	if f.uploadFn != nil {
		return f.uploadFn(req)
	}
	return api.UploadResult{
		SessionID:    "sess-1",
		DocumentName: "contract.docx",
		Sections:     []string{"Introduction", "Terms", "Appendix"},
	}, nil
}

func (f *fakeBackend) AnalyzeSection(_ context.Context, _, section string) (api.AnalyzeResult, error) {
	f.analyzeCalls++
	if f.analyzeFn != nil {
		return f.analyzeFn(section)
	}
	return api.AnalyzeResult{
		SectionContent: "content of " + section,
		FeedbackItems: []review.FeedbackItem{
			{ID: section + "-fb-1", Type: review.TypeSuggestion, Description: "tighten wording"},
			{ID: section + "-fb-2", Type: review.TypeImportant, Description: "missing clause"},
		},
	}, nil
}

func (f *fakeBackend) TaskStatus(_ context.Context, taskID, _ string) (api.TaskStatus, error) {
	f.statusCalls++
	if f.statusFn != nil {
		return f.statusFn(taskID)
	}
	return api.TaskStatus{State: api.TaskSuccess}, nil
}

func (f *fakeBackend) AcceptFeedback(_ context.Context, _, _, _ string) error {
	f.acceptCalls++
	return f.acceptErr
}

func (f *fakeBackend) RejectFeedback(_ context.Context, _, _, _ string) error {
	return f.rejectErr
}

func (f *fakeBackend) RevertFeedback(_ context.Context, _, _, _ string) error {
	return f.revertErr
}

func (f *fakeBackend) RevertAllFeedback(_ context.Context, _ string) error { return nil }

func (f *fakeBackend) AddCustomFeedback(_ context.Context, req api.CustomFeedbackRequest) (string, error) {
	f.customCalls++
	if f.customFn != nil {
		return f.customFn(req)
	}
	return "custom-1", nil
}

func (f *fakeBackend) UpdateUserFeedback(_ context.Context, _ string, _ review.CustomFeedbackItem) error {
	return nil
}

func (f *fakeBackend) DeleteUserFeedback(_ context.Context, _, _ string) error {
	return f.deleteErr
}

func (f *fakeBackend) GetAcceptedFeedbackCount(_ context.Context, _ string) (api.AcceptedCount, error) {
	if f.countsFn != nil {
		return f.countsFn()
	}
	return api.AcceptedCount{}, nil
}

func (f *fakeBackend) CompleteReview(_ context.Context, _ string) (api.CompleteResult, error) {
	return api.CompleteResult{DownloadURL: "/download/final"}, nil
}

func (f *fakeBackend) ResetSession(_ context.Context, _ string) error { return nil }

func (f *fakeBackend) DeleteDocument(_ context.Context, _ string) error { return nil }

func newTestService(t *testing.T, backend Backend) *Service {
	t.Helper()

	database, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.DefaultConfig()
	svc := NewService(
		&cfg,
		backend,
		stores.NewSessionStore(database),
		stores.NewFeedbackStore(database),
		stores.NewHighlightStore(database),
		zerolog.Nop(),
	)
	svc.pollOpts = poll.Options{Interval: time.Millisecond, MaxAttempts: 10}
	return svc
}

func startSession(t *testing.T, svc *Service) review.Session {
	t.Helper()
	session, err := svc.StartSession(context.Background(), api.UploadRequest{DocumentPath: "contract.docx"})
	require.NoError(t, err)
	return session
}

func TestServiceSessionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("start session replaces previous state", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})
		session := startSession(t, svc)

		assert.Equal(t, "sess-1", session.ID)
		assert.Equal(t, review.NoSection, session.CurrentIndex)
		assert.True(t, svc.HasSession())

		_, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)

		startSession(t, svc)
		got, err := svc.Session()
		require.NoError(t, err)
		assert.Equal(t, review.NoSection, got.CurrentIndex)
		_, ok := svc.CurrentSection()
		assert.False(t, ok)
	})

	t.Run("operations without a session fail", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})

		_, err := svc.LoadSection(ctx, 0)
		assert.ErrorIs(t, err, ErrNoActiveSession)
		_, err = svc.Accept(ctx, "fb-1")
		assert.ErrorIs(t, err, ErrNoActiveSession)
		assert.ErrorIs(t, svc.ResetSession(ctx), ErrNoActiveSession)
	})

	t.Run("reset clears everything", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})
		startSession(t, svc)
		_, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)

		require.NoError(t, svc.ResetSession(ctx))
		assert.False(t, svc.HasSession())
		assert.Equal(t, 0, svc.Statistics().Total())
	})

	t.Run("restore recovers the mirrored session", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := newTestService(t, backend)
		startSession(t, svc)

		fresh := NewService(svc.cfg, backend, svc.sessions, svc.feedback, svc.spans, zerolog.Nop())
		require.NoError(t, fresh.Restore(ctx))
		session, err := fresh.Session()
		require.NoError(t, err)
		assert.Equal(t, "sess-1", session.ID)
		assert.Len(t, session.Sections, 3)
	})

	t.Run("restore keeps feedback decisions across restarts", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := newTestService(t, backend)
		startSession(t, svc)
		_, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)

		_, err = svc.Accept(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		_, err = svc.Reject(ctx, "Introduction-fb-2")
		require.NoError(t, err)

		// Fresh process over the same store; the backend hands the section
		// back with everything pending again.
		fresh := NewService(svc.cfg, backend, svc.sessions, svc.feedback, svc.spans, zerolog.Nop())
		fresh.pollOpts = svc.pollOpts
		require.NoError(t, fresh.Restore(ctx))

		record, err := fresh.LoadSection(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, review.StatusAccepted, record.Feedback[0].Status)
		assert.Equal(t, review.StatusRejected, record.Feedback[1].Status)

		stats := fresh.Statistics()
		assert.Equal(t, 1, stats.Accepted)
		assert.Equal(t, 1, stats.Rejected)
	})

	t.Run("upload retries transport failures but not rejections", func(t *testing.T) {
		backend := &fakeBackend{}
		backend.uploadFn = func(req api.UploadRequest) (api.UploadResult, error) {
			if backend.uploadCalls < 3 {
				return api.UploadResult{}, errors.New("connection refused")
			}
			return api.UploadResult{SessionID: "sess-1", DocumentName: "contract.docx", Sections: []string{"A"}}, nil
		}
		svc := newTestService(t, backend)
		svc.cfg.Retry.DelaySeconds = 0

		session, err := svc.StartSession(ctx, api.UploadRequest{DocumentPath: "contract.docx"})
		require.NoError(t, err)
		assert.Equal(t, "sess-1", session.ID)
		assert.Equal(t, 3, backend.uploadCalls)

		backend.uploadCalls = 0
		backend.uploadFn = func(req api.UploadRequest) (api.UploadResult, error) {
			return api.UploadResult{}, &api.BackendError{Message: "unsupported file type"}
		}
		_, err = svc.StartSession(ctx, api.UploadRequest{DocumentPath: "notes.txt"})
		require.Error(t, err)
		assert.Equal(t, 1, backend.uploadCalls)
	})

	t.Run("delete document clears the session like a reset", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})
		startSession(t, svc)
		_, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteDocument(ctx))
		assert.False(t, svc.HasSession())
		assert.Equal(t, 0, svc.Statistics().Total())
		assert.ErrorIs(t, svc.DeleteDocument(ctx), ErrNoActiveSession)
	})
}

func TestServiceSections(t *testing.T) {
	ctx := context.Background()

	t.Run("cached section is fetched at most once", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := newTestService(t, backend)
		startSession(t, svc)

		first, err := svc.LoadSection(ctx, 1)
		require.NoError(t, err)
		second, err := svc.LoadSection(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, backend.analyzeCalls)
	})

	t.Run("failed analysis is retried on next visit", func(t *testing.T) {
		backend := &fakeBackend{}
		fail := true
		backend.analyzeFn = func(section string) (api.AnalyzeResult, error) {
			if fail {
				return api.AnalyzeResult{}, &api.BackendError{Message: "overloaded"}
			}
			return api.AnalyzeResult{SectionContent: "ok"}, nil
		}
		svc := newTestService(t, backend)
		startSession(t, svc)

		_, err := svc.LoadSection(ctx, 0)
		require.Error(t, err)

		fail = false
		record, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "ok", record.Content)
		assert.Equal(t, 2, backend.analyzeCalls)
	})

	t.Run("async analysis polls until success", func(t *testing.T) {
		backend := &fakeBackend{}
		backend.analyzeFn = func(section string) (api.AnalyzeResult, error) {
			return api.AnalyzeResult{TaskID: "task-9", Async: true}, nil
		}
		backend.statusFn = func(taskID string) (api.TaskStatus, error) {
			if backend.statusCalls < 3 {
				return api.TaskStatus{State: api.TaskProgress}, nil
			}
			return api.TaskStatus{
				State:          api.TaskSuccess,
				SectionContent: "async content",
				FeedbackItems:  []review.FeedbackItem{{ID: "fb-async"}},
			}, nil
		}
		svc := newTestService(t, backend)
		startSession(t, svc)

		record, err := svc.LoadSection(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "async content", record.Content)
		require.Len(t, record.Feedback, 1)
		assert.Equal(t, review.StatusPending, record.Feedback[0].Status)
		assert.Equal(t, 3, backend.statusCalls)
	})

	t.Run("async task failure surfaces the backend message", func(t *testing.T) {
		backend := &fakeBackend{}
		backend.analyzeFn = func(section string) (api.AnalyzeResult, error) {
			return api.AnalyzeResult{TaskID: "task-9", Async: true}, nil
		}
		backend.statusFn = func(taskID string) (api.TaskStatus, error) {
			return api.TaskStatus{Envelope: api.Envelope{ErrorMsg: "model error"}, State: api.TaskFailure}, nil
		}
		svc := newTestService(t, backend)
		startSession(t, svc)

		_, err := svc.LoadSection(ctx, 0)
		var backendErr *api.BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Contains(t, backendErr.Message, "model error")
	})

	t.Run("polling gives up after max attempts", func(t *testing.T) {
		backend := &fakeBackend{}
		backend.analyzeFn = func(section string) (api.AnalyzeResult, error) {
			return api.AnalyzeResult{TaskID: "task-9", Async: true}, nil
		}
		backend.statusFn = func(taskID string) (api.TaskStatus, error) {
			return api.TaskStatus{State: api.TaskPending}, nil
		}
		svc := newTestService(t, backend)
		startSession(t, svc)

		_, err := svc.LoadSection(ctx, 0)
		assert.ErrorIs(t, err, poll.ErrExhausted)
		assert.Equal(t, 10, backend.statusCalls)
	})

	t.Run("navigation clamps at the edges", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})
		startSession(t, svc)

		record, err := svc.PrevSection(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Introduction", record.Name)

		// Step past the end; the index sticks at the last section.
		for range 5 {
			record, err = svc.NextSection(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, "Appendix", record.Name)

		_, err = svc.LoadSection(ctx, 7)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})
}

func TestServiceFeedback(t *testing.T) {
	ctx := context.Background()

	load := func(t *testing.T, backend *fakeBackend) *Service {
		svc := newTestService(t, backend)
		startSession(t, svc)
		_, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)
		return svc
	}

	t.Run("accept commits only after backend confirms", func(t *testing.T) {
		backend := &fakeBackend{acceptErr: &api.BackendError{Message: "boom"}}
		svc := load(t, backend)

		_, err := svc.Accept(ctx, "Introduction-fb-1")
		require.Error(t, err)
		assert.Equal(t, 0, svc.Statistics().Accepted)

		backend.acceptErr = nil
		changed, err := svc.Accept(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 1, svc.Statistics().Accepted)

		record, ok := svc.CurrentSection()
		require.True(t, ok)
		assert.Equal(t, review.StatusAccepted, record.Feedback[0].Status)
	})

	t.Run("double accept is a no-op with no network call", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := load(t, backend)

		_, err := svc.Accept(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		calls := backend.acceptCalls

		changed, err := svc.Accept(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, calls, backend.acceptCalls)
	})

	t.Run("accept then revert then reject ends rejected", func(t *testing.T) {
		svc := load(t, &fakeBackend{})

		_, err := svc.Accept(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		_, err = svc.Reject(ctx, "Introduction-fb-1")
		assert.ErrorIs(t, err, review.ErrInvalidTransition)

		_, err = svc.Revert(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		_, err = svc.Reject(ctx, "Introduction-fb-1")
		require.NoError(t, err)

		stats := svc.Statistics()
		assert.Equal(t, 0, stats.Accepted)
		assert.Equal(t, 1, stats.Rejected)
	})

	t.Run("revert all reaches a fixed point", func(t *testing.T) {
		svc := load(t, &fakeBackend{})

		_, err := svc.Accept(ctx, "Introduction-fb-1")
		require.NoError(t, err)
		_, err = svc.Reject(ctx, "Introduction-fb-2")
		require.NoError(t, err)

		n, err := svc.RevertAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = svc.RevertAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		record, ok := svc.CurrentSection()
		require.True(t, ok)
		for _, item := range record.Feedback {
			assert.Equal(t, review.StatusPending, item.Status)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		svc := load(t, &fakeBackend{})
		_, err := svc.Accept(ctx, "nope")
		assert.ErrorIs(t, err, review.ErrItemNotFound)
	})
}

func TestServiceCustomFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("empty description never reaches the network", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := newTestService(t, backend)
		startSession(t, svc)

		_, err := svc.AddCustomFeedback(ctx, CustomFeedbackParams{Section: "Terms", Description: "   "})
		assert.ErrorIs(t, err, review.ErrEmptyDescription)
		assert.Equal(t, 0, backend.customCalls)
		assert.Empty(t, svc.CustomFeedback())
	})

	t.Run("appended with the server-confirmed id", func(t *testing.T) {
		backend := &fakeBackend{customFn: func(req api.CustomFeedbackRequest) (string, error) {
			return "srv-42", nil
		}}
		svc := newTestService(t, backend)
		startSession(t, svc)

		item, err := svc.AddCustomFeedback(ctx, CustomFeedbackParams{
			Section:     "Terms",
			Description: "please clarify renewal window",
		})
		require.NoError(t, err)
		assert.Equal(t, "srv-42", item.ID)
		assert.Equal(t, review.TypeSuggestion, item.Type)
		assert.Len(t, svc.CustomFeedbackFor("Terms"), 1)
	})

	t.Run("backend failure leaves the log untouched", func(t *testing.T) {
		backend := &fakeBackend{customFn: func(req api.CustomFeedbackRequest) (string, error) {
			return "", &api.BackendError{Message: "nope"}
		}}
		svc := newTestService(t, backend)
		startSession(t, svc)

		_, err := svc.AddCustomFeedback(ctx, CustomFeedbackParams{Section: "Terms", Description: "note"})
		require.Error(t, err)
		assert.Empty(t, svc.CustomFeedback())
	})

	t.Run("notes anchored to an AI item are counted", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{customFn: func(req api.CustomFeedbackRequest) (string, error) {
			return "", nil // older builds confirm without an id
		}})
		startSession(t, svc)

		for range 2 {
			item, err := svc.AddCustomFeedback(ctx, CustomFeedbackParams{
				Section:       "Terms",
				Description:   "related note",
				AIReferenceID: "Terms-fb-1",
			})
			require.NoError(t, err)
			assert.NotEmpty(t, item.ID)
		}
		assert.Equal(t, 2, svc.CustomCountForAIItem("Terms-fb-1"))
	})

	t.Run("edit and delete round-trip", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})
		startSession(t, svc)

		item, err := svc.AddCustomFeedback(ctx, CustomFeedbackParams{Section: "Terms", Description: "first draft"})
		require.NoError(t, err)

		item.Description = "second draft"
		require.NoError(t, svc.UpdateCustomFeedback(ctx, item))
		assert.Equal(t, "second draft", svc.CustomFeedback()[0].Description)

		require.NoError(t, svc.DeleteCustomFeedback(ctx, item.ID))
		assert.Empty(t, svc.CustomFeedback())

		err = svc.DeleteCustomFeedback(ctx, item.ID)
		assert.ErrorIs(t, err, review.ErrCustomNotFound)
	})
}

func TestServiceHighlights(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, backend *fakeBackend) *Service {
		svc := newTestService(t, backend)
		startSession(t, svc)
		_, err := svc.LoadSection(ctx, 0)
		require.NoError(t, err)
		return svc
	}

	t.Run("add and render", func(t *testing.T) {
		svc := setup(t, &fakeBackend{})

		// Content is "content of Introduction".
		span, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)
		assert.Equal(t, "content", span.Text)

		rendered, err := svc.RenderSection(ctx, "Introduction", func(text string, _ highlight.Color) string {
			return "[" + text + "]"
		})
		require.NoError(t, err)
		assert.Equal(t, "[content] of Introduction", rendered)
	})

	t.Run("overlap and short selections rejected", func(t *testing.T) {
		svc := setup(t, &fakeBackend{})

		_, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)

		_, err = svc.AddHighlight(ctx, "Introduction", 5, 4, highlight.ColorGreen)
		assert.ErrorIs(t, err, highlight.ErrOverlap)

		_, err = svc.AddHighlight(ctx, "Introduction", 10, 2, highlight.ColorGreen)
		assert.ErrorIs(t, err, highlight.ErrSelectionTooShort)
	})

	t.Run("remove cascades to anchored feedback", func(t *testing.T) {
		svc := setup(t, &fakeBackend{})

		span, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)

		_, err = svc.AddCustomFeedback(ctx, CustomFeedbackParams{
			Section:         "Introduction",
			Description:     "about this phrase",
			HighlightID:     span.ID,
			HighlightedText: span.Text,
		})
		require.NoError(t, err)

		removed, err := svc.RemoveHighlight(ctx, "Introduction", span.ID)
		require.NoError(t, err)
		assert.Len(t, removed, 1)
		assert.Empty(t, svc.CustomFeedback())

		spans, err := svc.Highlights(ctx, "Introduction")
		require.NoError(t, err)
		assert.Empty(t, spans)
	})

	t.Run("cascade aborts when backend refuses the delete", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := setup(t, backend)

		span, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)
		_, err = svc.AddCustomFeedback(ctx, CustomFeedbackParams{
			Section:     "Introduction",
			Description: "about this phrase",
			HighlightID: span.ID,
		})
		require.NoError(t, err)

		backend.deleteErr = &api.BackendError{Message: "locked"}
		_, err = svc.RemoveHighlight(ctx, "Introduction", span.ID)
		require.Error(t, err)

		assert.Len(t, svc.CustomFeedback(), 1)
		spans, err := svc.Highlights(ctx, "Introduction")
		require.NoError(t, err)
		assert.Len(t, spans, 1)
	})

	t.Run("clear sweeps every span and anchored note", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := setup(t, backend)

		first, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)
		_, err = svc.AddHighlight(ctx, "Introduction", 11, 12, highlight.ColorGreen)
		require.NoError(t, err)
		_, err = svc.AddCustomFeedback(ctx, CustomFeedbackParams{
			Section:     "Introduction",
			Description: "about this phrase",
			HighlightID: first.ID,
		})
		require.NoError(t, err)

		require.NoError(t, svc.ClearHighlights(ctx, "Introduction"))

		spans, err := svc.Highlights(ctx, "Introduction")
		require.NoError(t, err)
		assert.Empty(t, spans)
		assert.Empty(t, svc.CustomFeedback())

		// The mirror cleared too: a fresh process restores no spans.
		fresh := NewService(svc.cfg, backend, svc.sessions, svc.feedback, svc.spans, zerolog.Nop())
		fresh.pollOpts = svc.pollOpts
		require.NoError(t, fresh.Restore(ctx))
		_, err = fresh.LoadSection(ctx, 0)
		require.NoError(t, err)
		spans, err = fresh.Highlights(ctx, "Introduction")
		require.NoError(t, err)
		assert.Empty(t, spans)
	})

	t.Run("clear aborts when backend refuses an anchored delete", func(t *testing.T) {
		backend := &fakeBackend{}
		svc := setup(t, backend)

		span, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)
		_, err = svc.AddCustomFeedback(ctx, CustomFeedbackParams{
			Section:     "Introduction",
			Description: "about this phrase",
			HighlightID: span.ID,
		})
		require.NoError(t, err)

		backend.deleteErr = &api.BackendError{Message: "locked"}
		require.Error(t, svc.ClearHighlights(ctx, "Introduction"))

		assert.Len(t, svc.CustomFeedback(), 1)
		spans, err := svc.Highlights(ctx, "Introduction")
		require.NoError(t, err)
		assert.Len(t, spans, 1)
	})

	t.Run("recolor keeps the anchor", func(t *testing.T) {
		svc := setup(t, &fakeBackend{})

		span, err := svc.AddHighlight(ctx, "Introduction", 0, 7, highlight.ColorYellow)
		require.NoError(t, err)
		require.NoError(t, svc.RecolorHighlight(ctx, "Introduction", span.ID, highlight.ColorBlue))

		spans, err := svc.Highlights(ctx, "Introduction")
		require.NoError(t, err)
		require.Len(t, spans, 1)
		assert.Equal(t, highlight.ColorBlue, spans[0].Color)
		assert.Equal(t, span.Start, spans[0].Start)
	})
}

func TestServiceCompleteReview(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses with nothing accepted", func(t *testing.T) {
		svc := newTestService(t, &fakeBackend{})
		startSession(t, svc)

		_, err := svc.CompleteReview(ctx)
		assert.ErrorIs(t, err, ErrNothingAccepted)
	})

	t.Run("completes once something is accepted", func(t *testing.T) {
		backend := &fakeBackend{countsFn: func() (api.AcceptedCount, error) {
			return api.AcceptedCount{Accepted: 2}, nil
		}}
		svc := newTestService(t, backend)
		startSession(t, svc)

		result, err := svc.CompleteReview(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/download/final", result.DownloadURL)
	})

	t.Run("custom feedback alone is enough", func(t *testing.T) {
		backend := &fakeBackend{countsFn: func() (api.AcceptedCount, error) {
			return api.AcceptedCount{Custom: 1}, nil
		}}
		svc := newTestService(t, backend)
		startSession(t, svc)

		_, err := svc.CompleteReview(ctx)
		assert.NoError(t, err)
	})
}
