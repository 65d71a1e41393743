package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(ids ...string) []FeedbackItem {
	out := make([]FeedbackItem, len(ids))
	for i, id := range ids {
		out[i] = FeedbackItem{ID: id, Type: TypeSuggestion, RiskLevel: RiskMedium, Status: StatusPending}
	}
	return out
}

func TestTracker_Transitions(t *testing.T) {
	t.Run("accept then revert then reject ends rejected", func(t *testing.T) {
		tr := NewTracker()
		tr.Register(items("f1")...)

		changed, err := tr.Accept("f1")
		require.NoError(t, err)
		assert.True(t, changed)
		assertStatus(t, tr, "f1", StatusAccepted)

		changed, err = tr.Revert("f1")
		require.NoError(t, err)
		assert.True(t, changed)
		assertStatus(t, tr, "f1", StatusPending)

		changed, err = tr.Reject("f1")
		require.NoError(t, err)
		assert.True(t, changed)
		assertStatus(t, tr, "f1", StatusRejected)
	})

	t.Run("accept is idempotent", func(t *testing.T) {
		tr := NewTracker()
		tr.Register(items("f1")...)

		_, err := tr.Accept("f1")
		require.NoError(t, err)

		changed, err := tr.Accept("f1")
		require.NoError(t, err)
		assert.False(t, changed, "re-accepting an accepted item should be a no-op")
		assertStatus(t, tr, "f1", StatusAccepted)
	})

	t.Run("reject of accepted item requires revert", func(t *testing.T) {
		tr := NewTracker()
		tr.Register(items("f1")...)

		_, err := tr.Accept("f1")
		require.NoError(t, err)

		_, err = tr.Reject("f1")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assertStatus(t, tr, "f1", StatusAccepted)
	})

	t.Run("revert of pending item is a no-op", func(t *testing.T) {
		tr := NewTracker()
		tr.Register(items("f1")...)

		changed, err := tr.Revert("f1")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("unknown item", func(t *testing.T) {
		tr := NewTracker()

		_, err := tr.Accept("ghost")
		assert.ErrorIs(t, err, ErrItemNotFound)

		_, err = tr.Status("ghost")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestTracker_Register(t *testing.T) {
	t.Run("re-registering keeps existing status", func(t *testing.T) {
		tr := NewTracker()
		tr.Register(items("f1", "f2")...)

		_, err := tr.Accept("f1")
		require.NoError(t, err)

		// Simulates re-rendering a cached section
		tr.Register(items("f1", "f2")...)

		assertStatus(t, tr, "f1", StatusAccepted)
		assert.Equal(t, 2, tr.Len())
		assert.Equal(t, []string{"f1", "f2"}, tr.IDs())
	})

	t.Run("invalid status registers as pending", func(t *testing.T) {
		tr := NewTracker()
		tr.Register(FeedbackItem{ID: "f1", Status: Status("weird")})
		assertStatus(t, tr, "f1", StatusPending)
	})
}

func TestTracker_RevertAll(t *testing.T) {
	tr := NewTracker()
	tr.Register(items("f1", "f2", "f3", "f4")...)

	_, err := tr.Accept("f1")
	require.NoError(t, err)
	_, err = tr.Reject("f2")
	require.NoError(t, err)

	n := tr.RevertAll()
	assert.Equal(t, 2, n)
	assert.Equal(t, Stats{Pending: 4}, tr.Counts())

	// Fixed point: a second application changes nothing
	assert.Equal(t, 0, tr.RevertAll())
	assert.Equal(t, Stats{Pending: 4}, tr.Counts())
}

func TestTracker_Counts(t *testing.T) {
	tr := NewTracker()
	tr.Register(items("f1", "f2")...)

	assert.Equal(t, Stats{Pending: 2}, tr.Counts())

	_, err := tr.Accept("f1")
	require.NoError(t, err)
	assert.Equal(t, Stats{Accepted: 1, Pending: 1}, tr.Counts())

	_, err = tr.Revert("f1")
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 2}, tr.Counts())
}

func TestStats(t *testing.T) {
	assert.Equal(t, 0.0, Stats{Pending: 5}.AcceptanceRate(), "no actioned items")
	assert.InDelta(t, 0.75, Stats{Accepted: 3, Rejected: 1}.AcceptanceRate(), 0.0001)
	assert.Equal(t, 6, Stats{Accepted: 3, Rejected: 1, Pending: 2}.Total())
}

func assertStatus(t *testing.T, tr *Tracker, id string, want Status) {
	t.Helper()
	got, err := tr.Status(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
