package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCustom(t *testing.T) {
	assert.ErrorIs(t, ValidateCustom("Body", ""), ErrEmptyDescription)
	assert.ErrorIs(t, ValidateCustom("Body", "   \n"), ErrEmptyDescription)
	assert.ErrorIs(t, ValidateCustom("", "needs detail"), ErrNoSection)
	assert.NoError(t, ValidateCustom("Body", "needs detail"))
}

func TestCustomLog_AppendAndQuery(t *testing.T) {
	log := NewCustomLog()

	log.Append(CustomFeedbackItem{ID: "c1", Section: "Intro", Description: "first", Timestamp: time.Now()})
	log.Append(CustomFeedbackItem{ID: "c2", Section: "Body", Description: "second", AIReferenceID: "f1"})
	log.Append(CustomFeedbackItem{ID: "c3", Section: "Body", Description: "third", AIReferenceID: "f1"})

	assert.Equal(t, 3, log.Len())

	body := log.BySection("Body")
	require.Len(t, body, 2)
	assert.Equal(t, "c2", body[0].ID, "insertion order preserved")

	assert.Equal(t, 2, log.CountForAIItem("f1"))
	assert.Equal(t, 0, log.CountForAIItem("f9"))
}

func TestCustomLog_UpdateRemove(t *testing.T) {
	log := NewCustomLog(
		CustomFeedbackItem{ID: "c1", Section: "Intro", Description: "first"},
		CustomFeedbackItem{ID: "c2", Section: "Intro", Description: "second"},
	)

	err := log.Update(CustomFeedbackItem{ID: "c1", Section: "Intro", Description: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", log.Items()[0].Description)

	assert.ErrorIs(t, log.Update(CustomFeedbackItem{ID: "ghost"}), ErrCustomNotFound)

	require.NoError(t, log.Remove("c1"))
	assert.Equal(t, 1, log.Len())
	assert.ErrorIs(t, log.Remove("c1"), ErrCustomNotFound)
}

func TestCustomLog_RemoveByHighlight(t *testing.T) {
	log := NewCustomLog(
		CustomFeedbackItem{ID: "c1", Section: "Body", HighlightID: "h1", Description: "a"},
		CustomFeedbackItem{ID: "c2", Section: "Body", Description: "b"},
		CustomFeedbackItem{ID: "c3", Section: "Body", HighlightID: "h1", Description: "c"},
	)

	removed := log.RemoveByHighlight("h1")
	assert.Len(t, removed, 2)
	assert.Equal(t, 1, log.Len())
	assert.Equal(t, "c2", log.Items()[0].ID)

	// Idempotent: nothing left to cascade
	assert.Empty(t, log.RemoveByHighlight("h1"))
	assert.Equal(t, 1, log.Len())
}
