package prism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/review"
)

// ErrNothingAccepted guards the final-document generation: completing a
// review with no accepted or custom feedback would produce an empty export.
var ErrNothingAccepted = errors.New("no accepted or custom feedback to include in the final document")

// Accept marks an AI feedback item accepted. The backend is asked first; a
// backend failure leaves the local status untouched. Accepting an already
// accepted item is a no-op with no network call.
func (s *Service) Accept(ctx context.Context, feedbackID string) (changed bool, err error) {
	return s.applyStatus(ctx, feedbackID, review.StatusAccepted)
}

// Reject marks an AI feedback item rejected, with the same contract as
// Accept.
func (s *Service) Reject(ctx context.Context, feedbackID string) (changed bool, err error) {
	return s.applyStatus(ctx, feedbackID, review.StatusRejected)
}

// Revert returns an item to pending, notifying the backend so server-side
// aggregate statistics stay correct.
func (s *Service) Revert(ctx context.Context, feedbackID string) (changed bool, err error) {
	return s.applyStatus(ctx, feedbackID, review.StatusPending)
}

func (s *Service) applyStatus(ctx context.Context, feedbackID string, to review.Status) (bool, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return false, ErrNoActiveSession
	}
	sessionID := s.session.ID

	current, err := s.tracker.Status(feedbackID)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if current == to {
		s.mu.Unlock()
		return false, nil
	}
	if to != review.StatusPending && current != review.StatusPending {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s -> %s (revert first)", review.ErrInvalidTransition, current, to)
	}

	section := s.sectionOf(feedbackID)
	s.mu.Unlock()

	// Backend confirms before any local commit.
	switch to {
	case review.StatusAccepted:
		err = s.backend.AcceptFeedback(ctx, sessionID, section, feedbackID)
	case review.StatusRejected:
		err = s.backend.RejectFeedback(ctx, sessionID, section, feedbackID)
	default:
		err = s.backend.RevertFeedback(ctx, sessionID, section, feedbackID)
	}
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	var changed bool
	switch to {
	case review.StatusAccepted:
		changed, err = s.tracker.Accept(feedbackID)
	case review.StatusRejected:
		changed, err = s.tracker.Reject(feedbackID)
	default:
		changed, err = s.tracker.Revert(feedbackID)
	}
	if changed {
		s.setCachedStatus(section, feedbackID, to)
	}
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	if mirrorErr := s.feedback.SetStatus(ctx, sessionID, feedbackID, to); mirrorErr != nil {
		s.log.Warn().Err(mirrorErr).Str("feedback", feedbackID).Msg("failed to mirror feedback status")
	}
	return changed, nil
}

// RevertAll returns every feedback item across all sections to pending.
// The caller is responsible for the destructive-action confirmation.
func (s *Service) RevertAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return 0, ErrNoActiveSession
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	if err := s.backend.RevertAllFeedback(ctx, sessionID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	n := s.tracker.RevertAll()
	for _, section := range s.cache.Keys() {
		s.cache.Update(section, func(record review.SectionRecord) review.SectionRecord {
			for i := range record.Feedback {
				record.Feedback[i].Status = review.StatusPending
			}
			return record
		})
	}
	s.mu.Unlock()

	if err := s.feedback.ResetStatuses(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Msg("failed to mirror bulk revert")
	}
	return n, nil
}

// Statistics derives accept/reject/pending counts from the tracker.
func (s *Service) Statistics() review.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Counts()
}

// sectionOf locates the cached section containing a feedback item. Callers
// hold s.mu.
func (s *Service) sectionOf(feedbackID string) string {
	for _, name := range s.cache.Keys() {
		record, _ := s.cache.Get(name)
		for _, item := range record.Feedback {
			if item.ID == feedbackID {
				return name
			}
		}
	}
	return ""
}

// setCachedStatus updates the rendered copy of one item. Callers hold s.mu.
func (s *Service) setCachedStatus(section, feedbackID string, to review.Status) {
	s.cache.Update(section, func(record review.SectionRecord) review.SectionRecord {
		for i := range record.Feedback {
			if record.Feedback[i].ID == feedbackID {
				record.Feedback[i].Status = to
			}
		}
		return record
	})
}

// CustomFeedbackParams describe a user-authored note.
type CustomFeedbackParams struct {
	Section         string
	Type            review.FeedbackType
	Category        string
	Description     string
	AIReferenceID   string
	HighlightID     string
	HighlightedText string
}

// AddCustomFeedback validates the note, submits it, and appends it to the
// log with the server-confirmed id. On any failure nothing is appended.
func (s *Service) AddCustomFeedback(ctx context.Context, params CustomFeedbackParams) (review.CustomFeedbackItem, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return review.CustomFeedbackItem{}, ErrNoActiveSession
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	if err := review.ValidateCustom(params.Section, params.Description); err != nil {
		return review.CustomFeedbackItem{}, err
	}

	if params.Type == "" {
		params.Type = review.TypeSuggestion
	}

	id, err := s.backend.AddCustomFeedback(ctx, api.CustomFeedbackRequest{
		SessionID:       sessionID,
		Section:         params.Section,
		Type:            string(params.Type),
		Category:        params.Category,
		Description:     params.Description,
		AIReferenceID:   params.AIReferenceID,
		HighlightID:     params.HighlightID,
		HighlightedText: params.HighlightedText,
	})
	if err != nil {
		return review.CustomFeedbackItem{}, err
	}
	if id == "" {
		// Older service builds confirm without returning an id.
		id = uuid.NewString()
	}

	item := review.CustomFeedbackItem{
		ID:              id,
		Section:         params.Section,
		Type:            params.Type,
		Category:        params.Category,
		Description:     params.Description,
		Timestamp:       time.Now().UTC(),
		AIReferenceID:   params.AIReferenceID,
		HighlightID:     params.HighlightID,
		HighlightedText: params.HighlightedText,
	}

	s.mu.Lock()
	s.customLog.Append(item)
	s.mu.Unlock()

	if err := s.feedback.SaveCustom(ctx, sessionID, item); err != nil {
		s.log.Warn().Err(err).Str("feedback", item.ID).Msg("failed to mirror custom feedback")
	}
	return item, nil
}

// CustomFeedback returns the log in insertion order.
func (s *Service) CustomFeedback() []review.CustomFeedbackItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customLog.Items()
}

// CustomFeedbackFor returns the log entries for one section.
func (s *Service) CustomFeedbackFor(section string) []review.CustomFeedbackItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customLog.BySection(section)
}

// CustomCountForAIItem returns how many notes are anchored to an AI item.
func (s *Service) CustomCountForAIItem(aiID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customLog.CountForAIItem(aiID)
}

// UpdateCustomFeedback edits a log entry after backend confirmation.
func (s *Service) UpdateCustomFeedback(ctx context.Context, item review.CustomFeedbackItem) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	if err := review.ValidateCustom(item.Section, item.Description); err != nil {
		return err
	}

	if err := s.backend.UpdateUserFeedback(ctx, sessionID, item); err != nil {
		return err
	}

	s.mu.Lock()
	err := s.customLog.Update(item)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if mirrorErr := s.feedback.UpdateCustom(ctx, item); mirrorErr != nil {
		s.log.Warn().Err(mirrorErr).Str("feedback", item.ID).Msg("failed to mirror custom feedback edit")
	}
	return nil
}

// DeleteCustomFeedback removes a log entry after backend confirmation.
func (s *Service) DeleteCustomFeedback(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	if err := s.backend.DeleteUserFeedback(ctx, sessionID, id); err != nil {
		return err
	}

	s.mu.Lock()
	err := s.customLog.Remove(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if mirrorErr := s.feedback.DeleteCustom(ctx, id); mirrorErr != nil && !errors.Is(mirrorErr, review.ErrCustomNotFound) {
		s.log.Warn().Err(mirrorErr).Str("feedback", id).Msg("failed to mirror custom feedback delete")
	}
	return nil
}

// CompleteReview generates the final annotated document. The defensive
// pre-flight check refuses to complete a review with nothing accepted.
func (s *Service) CompleteReview(ctx context.Context) (api.CompleteResult, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return api.CompleteResult{}, ErrNoActiveSession
	}
	sessionID := s.session.ID
	s.mu.Unlock()

	counts, err := s.backend.GetAcceptedFeedbackCount(ctx, sessionID)
	if err != nil {
		return api.CompleteResult{}, err
	}
	if counts.Accepted+counts.Custom == 0 {
		return api.CompleteResult{}, ErrNothingAccepted
	}

	return s.backend.CompleteReview(ctx, sessionID)
}
