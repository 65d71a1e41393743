package prism

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/config"
	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/core/poll"
	"github.com/colonyops/prism/internal/core/review"
	"github.com/colonyops/prism/internal/data/stores"
	"github.com/colonyops/prism/pkg/kv"
)

// Sentinel errors for service operations.
var (
	ErrNoActiveSession  = errors.New("no active review session")
	ErrIndexOutOfRange  = errors.New("section index out of range")
	ErrAnalysisInFlight = errors.New("analysis already running for this section")
)

// Backend is the slice of the review-service client the state store needs.
// Every mutation round-trips through it before local state is committed.
type Backend interface {
	Upload(ctx context.Context, req api.UploadRequest) (api.UploadResult, error)
	AnalyzeSection(ctx context.Context, sessionID, section string) (api.AnalyzeResult, error)
	TaskStatus(ctx context.Context, taskID, sessionID string) (api.TaskStatus, error)
	AcceptFeedback(ctx context.Context, sessionID, section, feedbackID string) error
	RejectFeedback(ctx context.Context, sessionID, section, feedbackID string) error
	RevertFeedback(ctx context.Context, sessionID, section, feedbackID string) error
	RevertAllFeedback(ctx context.Context, sessionID string) error
	AddCustomFeedback(ctx context.Context, req api.CustomFeedbackRequest) (string, error)
	UpdateUserFeedback(ctx context.Context, sessionID string, item review.CustomFeedbackItem) error
	DeleteUserFeedback(ctx context.Context, sessionID, feedbackID string) error
	GetAcceptedFeedbackCount(ctx context.Context, sessionID string) (api.AcceptedCount, error)
	CompleteReview(ctx context.Context, sessionID string) (api.CompleteResult, error)
	ResetSession(ctx context.Context, sessionID string) error
	DeleteDocument(ctx context.Context, sessionID string) error
}

var _ Backend = (*api.Client)(nil)

// Service is the authoritative client-side state store for the live review
// session: session descriptor, section cache, feedback tracker, custom
// feedback log, and highlight sets all live here behind one mutation path.
type Service struct {
	cfg      *config.Config
	backend  Backend
	sessions *stores.SessionStore
	feedback *stores.FeedbackStore
	spans    *stores.HighlightStore
	log      zerolog.Logger

	// pollOpts is overridable in tests; zero values use poll defaults.
	pollOpts poll.Options

	mu         sync.Mutex
	session    *review.Session
	cache      *kv.Store[string, review.SectionRecord]
	tracker    *review.Tracker
	customLog  *review.CustomLog
	highlights map[string]*highlight.Set
	inflight   map[string]string // section -> task id (or "sync") while analyzing

	// mirrored holds feedback decisions recovered from the local store;
	// they overlay freshly analyzed items so restarts keep decisions.
	mirrored map[string]review.Status
}

// NewService creates the state store.
func NewService(
	cfg *config.Config,
	backend Backend,
	sessions *stores.SessionStore,
	feedback *stores.FeedbackStore,
	spans *stores.HighlightStore,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		backend:    backend,
		sessions:   sessions,
		feedback:   feedback,
		spans:      spans,
		log:        logger,
		cache:      kv.New[string, review.SectionRecord](),
		tracker:    review.NewTracker(),
		customLog:  review.NewCustomLog(),
		highlights: make(map[string]*highlight.Set),
		inflight:   make(map[string]string),
		mirrored:   make(map[string]review.Status),
	}
}

// Restore recovers the mirrored session from the local store, if any.
// Section content is not mirrored, so the cache starts cold; feedback
// decisions and the custom log are recovered, and the decisions overlay
// whatever statuses the next analysis returns.
func (s *Service) Restore(ctx context.Context) error {
	session, err := s.sessions.Load(ctx)
	if errors.Is(err, stores.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	customs, err := s.feedback.ListCustom(ctx, session.ID)
	if err != nil {
		return err
	}

	statuses, err := s.feedback.Statuses(ctx, session.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	s.customLog = review.NewCustomLog(customs...)
	s.mirrored = statuses
	s.log.Info().
		Str("session", session.ID).
		Int("sections", len(session.Sections)).
		Int("decisions", len(statuses)).
		Msg("restored session")
	return nil
}

// HasSession reports whether a session is live.
func (s *Service) HasSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Session returns a copy of the live session descriptor.
func (s *Service) Session() (review.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return review.Session{}, ErrNoActiveSession
	}
	return *s.session, nil
}

// StartSession uploads the document (and optional guidelines) and replaces
// any previous session with the new one. Transient transport failures are
// retried within the configured bounds; backend rejections are not.
func (s *Service) StartSession(ctx context.Context, req api.UploadRequest) (review.Session, error) {
	var result api.UploadResult
	err := api.Retry(ctx, s.cfg.Retry.Attempts, s.cfg.Retry.Delay(), func(ctx context.Context) error {
		var err error
		result, err = s.backend.Upload(ctx, req)
		return err
	})
	if err != nil {
		return review.Session{}, err
	}

	session := review.Session{
		ID:                 result.SessionID,
		DocumentName:       result.DocumentName,
		Sections:           result.Sections,
		CurrentIndex:       review.NoSection,
		GuidelinesUploaded: result.GuidelinesUploaded,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return review.Session{}, fmt.Errorf("mirror session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	s.cache.Clear()
	s.tracker = review.NewTracker()
	s.customLog = review.NewCustomLog()
	s.highlights = make(map[string]*highlight.Set)
	s.inflight = make(map[string]string)
	s.mirrored = make(map[string]review.Status)

	s.log.Info().
		Str("session", session.ID).
		Str("document", session.DocumentName).
		Int("sections", len(session.Sections)).
		Msg("session started")
	return session, nil
}

// ResetSession discards the server-side session, then clears all local
// state and the mirror.
func (s *Service) ResetSession(ctx context.Context) error {
	return s.discard(ctx, s.backend.ResetSession, "session reset")
}

// DeleteDocument discards the uploaded document server-side. The session is
// unusable without its document, so local state clears the same way a reset
// does.
func (s *Service) DeleteDocument(ctx context.Context) error {
	return s.discard(ctx, s.backend.DeleteDocument, "document deleted")
}

func (s *Service) discard(ctx context.Context, fn func(ctx context.Context, sessionID string) error, msg string) error {
	session, err := s.Session()
	if err != nil {
		return err
	}

	if err := fn(ctx, session.ID); err != nil {
		return err
	}

	if err := s.sessions.Clear(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.cache.Clear()
	s.tracker = review.NewTracker()
	s.customLog = review.NewCustomLog()
	s.highlights = make(map[string]*highlight.Set)
	s.inflight = make(map[string]string)
	s.mirrored = make(map[string]review.Status)
	s.log.Info().Str("session", session.ID).Msg(msg)
	return nil
}

// LoadSection navigates to the section at index and returns its record.
// Cached sections render without a network call; uncached sections are
// analyzed (synchronously or by polling an async task). A failed analysis
// leaves the cache unset so the next visit retries.
func (s *Service) LoadSection(ctx context.Context, index int) (review.SectionRecord, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return review.SectionRecord{}, ErrNoActiveSession
	}
	if !s.session.ValidIndex(index) {
		s.mu.Unlock()
		return review.SectionRecord{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(s.session.Sections))
	}

	session := *s.session
	section := session.Sections[index]
	s.session.CurrentIndex = index

	if record, ok := s.cache.Get(section); ok {
		s.mu.Unlock()
		s.mirrorIndex(ctx, session.ID, index)
		return record, nil
	}

	if _, running := s.inflight[section]; running {
		s.mu.Unlock()
		return review.SectionRecord{}, fmt.Errorf("%w: %s", ErrAnalysisInFlight, section)
	}
	s.inflight[section] = "sync"
	s.mu.Unlock()

	s.mirrorIndex(ctx, session.ID, index)

	record, err := s.analyze(ctx, session.ID, section)

	s.mu.Lock()
	delete(s.inflight, section)
	if err == nil {
		// Restored decisions win over whatever status the analysis returned.
		for i, item := range record.Feedback {
			if st, ok := s.mirrored[item.ID]; ok && st.Valid() {
				record.Feedback[i].Status = st
			}
		}
		s.cache.Set(section, record)
		s.tracker.Register(record.Feedback...)
	}
	s.mu.Unlock()

	if err != nil {
		return review.SectionRecord{}, err
	}

	s.persistStatuses(ctx, session.ID, record.Feedback)
	return record, nil
}

// CurrentSection returns the cached record of the current section.
func (s *Service) CurrentSection() (review.SectionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return review.SectionRecord{}, false
	}
	return s.cache.Get(s.session.CurrentSection())
}

// NextSection navigates forward, clamping at the last section.
func (s *Service) NextSection(ctx context.Context) (review.SectionRecord, error) {
	return s.step(ctx, 1)
}

// PrevSection navigates backward, clamping at the first section.
func (s *Service) PrevSection(ctx context.Context) (review.SectionRecord, error) {
	return s.step(ctx, -1)
}

func (s *Service) step(ctx context.Context, delta int) (review.SectionRecord, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return review.SectionRecord{}, ErrNoActiveSession
	}

	index := s.session.CurrentIndex + delta
	if index < 0 {
		index = 0
	}
	if last := len(s.session.Sections) - 1; index > last {
		index = last
	}
	s.mu.Unlock()

	return s.LoadSection(ctx, index)
}

// analyze runs one section analysis, polling when the service hands back a
// task id instead of an inline result.
func (s *Service) analyze(ctx context.Context, sessionID, section string) (review.SectionRecord, error) {
	result, err := s.backend.AnalyzeSection(ctx, sessionID, section)
	if err != nil {
		return review.SectionRecord{}, err
	}

	if result.TaskID == "" {
		return sectionRecord(section, result.SectionContent, result.FeedbackItems), nil
	}

	s.mu.Lock()
	s.inflight[section] = result.TaskID
	s.mu.Unlock()

	s.log.Debug().Str("section", section).Str("task", result.TaskID).Msg("polling analysis task")

	status, err := poll.Poll(ctx, func(ctx context.Context) (api.TaskStatus, bool, error) {
		ts, err := s.backend.TaskStatus(ctx, result.TaskID, sessionID)
		if err != nil {
			var backendErr *api.BackendError
			if errors.As(err, &backendErr) {
				return api.TaskStatus{}, true, err
			}
			// Transient network failure; keep polling.
			return api.TaskStatus{}, false, err
		}
		switch ts.State {
		case api.TaskSuccess:
			return ts, true, nil
		case api.TaskFailure:
			return api.TaskStatus{}, true, &api.BackendError{Message: "section analysis failed: " + ts.ErrorMsg}
		default:
			return api.TaskStatus{}, false, nil
		}
	}, s.pollOpts)
	if err != nil {
		if errors.Is(err, poll.ErrExhausted) {
			return review.SectionRecord{}, fmt.Errorf("analysis of %q timed out: %w", section, err)
		}
		return review.SectionRecord{}, err
	}

	content := status.SectionContent
	if content == "" {
		content = result.SectionContent
	}
	return sectionRecord(section, content, status.FeedbackItems), nil
}

func sectionRecord(section, content string, items []review.FeedbackItem) review.SectionRecord {
	for i := range items {
		if !items[i].Status.Valid() {
			items[i].Status = review.StatusPending
		}
	}
	return review.SectionRecord{Name: section, Content: content, Feedback: items}
}

func (s *Service) mirrorIndex(ctx context.Context, sessionID string, index int) {
	if err := s.sessions.SetCurrentIndex(ctx, sessionID, index); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Int("index", index).Msg("failed to mirror current index")
	}
}

func (s *Service) persistStatuses(ctx context.Context, sessionID string, items []review.FeedbackItem) {
	for _, item := range items {
		if err := s.feedback.SetStatus(ctx, sessionID, item.ID, item.Status); err != nil {
			s.log.Warn().Err(err).Str("feedback", item.ID).Msg("failed to mirror feedback status")
		}
	}
}
