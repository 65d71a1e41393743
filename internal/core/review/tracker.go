package review

import (
	"errors"
	"fmt"
)

// Sentinel errors for feedback status transitions.
var (
	ErrItemNotFound      = errors.New("feedback item not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Tracker holds the review status of every AI feedback item in the session.
// It is the single source of truth for item status; accepted/rejected/pending
// counts are always derived from it, never stored elsewhere.
//
// The tracker is pure local state. Callers must confirm mutations with the
// backend before applying them here, so a backend failure never flips a
// status.
type Tracker struct {
	statuses map[string]Status
	order    []string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]Status)}
}

// Register adds items in pending state. Items already known keep their
// current status, so re-rendering a cached section is harmless.
func (t *Tracker) Register(items ...FeedbackItem) {
	for _, item := range items {
		if _, ok := t.statuses[item.ID]; ok {
			continue
		}
		status := item.Status
		if !status.Valid() {
			status = StatusPending
		}
		t.statuses[item.ID] = status
		t.order = append(t.order, item.ID)
	}
}

// Status returns the current status of an item.
func (t *Tracker) Status(id string) (Status, error) {
	s, ok := t.statuses[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return s, nil
}

// Accept transitions an item from pending to accepted. Accepting an already
// accepted item is a no-op (changed=false). Accepting a rejected item is
// invalid; it must be reverted first.
func (t *Tracker) Accept(id string) (changed bool, err error) {
	return t.transition(id, StatusAccepted)
}

// Reject transitions an item from pending to rejected. Rejecting an already
// rejected item is a no-op (changed=false).
func (t *Tracker) Reject(id string) (changed bool, err error) {
	return t.transition(id, StatusRejected)
}

// Revert returns an accepted or rejected item to pending. Reverting a
// pending item is a no-op.
func (t *Tracker) Revert(id string) (changed bool, err error) {
	s, ok := t.statuses[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if s == StatusPending {
		return false, nil
	}
	t.statuses[id] = StatusPending
	return true, nil
}

// RevertAll returns every item to pending and reports how many changed.
// Applying it twice yields the same state as once.
func (t *Tracker) RevertAll() int {
	n := 0
	for id, s := range t.statuses {
		if s != StatusPending {
			t.statuses[id] = StatusPending
			n++
		}
	}
	return n
}

func (t *Tracker) transition(id string, to Status) (bool, error) {
	s, ok := t.statuses[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if s == to {
		return false, nil
	}
	if s != StatusPending {
		return false, fmt.Errorf("%w: %s -> %s (revert first)", ErrInvalidTransition, s, to)
	}
	t.statuses[id] = to
	return true, nil
}

// Len returns the number of tracked items.
func (t *Tracker) Len() int {
	return len(t.statuses)
}

// IDs returns tracked item ids in registration order.
func (t *Tracker) IDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Stats are derived accept/reject/pending counts over the tracker.
type Stats struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// Total returns the number of items the stats cover.
func (s Stats) Total() int {
	return s.Accepted + s.Rejected + s.Pending
}

// AcceptanceRate returns accepted / (accepted + rejected), or 0 when no
// item has been actioned yet.
func (s Stats) AcceptanceRate() float64 {
	actioned := s.Accepted + s.Rejected
	if actioned == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(actioned)
}

// Counts derives statistics from the current status map.
func (t *Tracker) Counts() Stats {
	var st Stats
	for _, s := range t.statuses {
		switch s {
		case StatusAccepted:
			st.Accepted++
		case StatusRejected:
			st.Rejected++
		default:
			st.Pending++
		}
	}
	return st
}
