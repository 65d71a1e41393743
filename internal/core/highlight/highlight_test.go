package highlight

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const content = "the quick brown fox jumps over the lazy dog"

func TestNewSpan(t *testing.T) {
	t.Run("valid selection", func(t *testing.T) {
		span, err := NewSpan("h1", "Body", content, 4, 15, ColorYellow)
		require.NoError(t, err)
		assert.Equal(t, "quick brown fox", span.Text)
		assert.Equal(t, 19, span.End())
	})

	t.Run("selection below minimum", func(t *testing.T) {
		_, err := NewSpan("h1", "Body", content, 0, 2, ColorYellow)
		assert.ErrorIs(t, err, ErrSelectionTooShort)
	})

	t.Run("selection out of range", func(t *testing.T) {
		_, err := NewSpan("h1", "Body", content, 40, 10, ColorYellow)
		assert.ErrorIs(t, err, ErrOutOfRange)

		_, err = NewSpan("h1", "Body", content, -1, 5, ColorYellow)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("unknown color", func(t *testing.T) {
		_, err := NewSpan("h1", "Body", content, 0, 5, Color("purple"))
		assert.ErrorIs(t, err, ErrUnknownColor)
	})
}

func TestSet_AddOverlap(t *testing.T) {
	set := NewSet()

	a, err := NewSpan("h1", "Body", content, 4, 11, ColorYellow) // "quick brown"
	require.NoError(t, err)
	require.NoError(t, set.Add(a))

	// Overlapping range is rejected
	b, err := NewSpan("h2", "Body", content, 10, 9, ColorGreen) // "brown fox"
	require.NoError(t, err)
	assert.ErrorIs(t, set.Add(b), ErrOverlap)

	// Adjacent range is fine
	c, err := NewSpan("h3", "Body", content, 16, 3, ColorBlue) // "fox"
	require.NoError(t, err)
	assert.NoError(t, set.Add(c))
	assert.Equal(t, 2, set.Len())
}

func TestSet_RemoveIdempotent(t *testing.T) {
	span, err := NewSpan("h1", "Body", content, 4, 5, ColorRed)
	require.NoError(t, err)
	set := NewSet(span)

	removed, ok := set.Remove("h1")
	require.True(t, ok)
	assert.Equal(t, "quick", removed.Text)

	// Second removal is a no-op
	_, ok = set.Remove("h1")
	assert.False(t, ok)
	assert.Equal(t, 0, set.Len())
}

func TestSet_Recolor(t *testing.T) {
	span, err := NewSpan("h1", "Body", content, 4, 5, ColorYellow)
	require.NoError(t, err)
	set := NewSet(span)

	require.NoError(t, set.Recolor("h1", ColorGray))

	got, ok := set.Get("h1")
	require.True(t, ok)
	assert.Equal(t, ColorGray, got.Color)
	assert.Equal(t, 4, got.Start, "anchor must not move on recolor")

	assert.ErrorIs(t, set.Recolor("h1", Color("mauve")), ErrUnknownColor)
	assert.ErrorIs(t, set.Recolor("ghost", ColorRed), ErrSpanNotFound)
}

func TestSet_Render(t *testing.T) {
	wrap := func(text string, color Color) string {
		return fmt.Sprintf("[%s:%s]", color, text)
	}

	t.Run("no spans returns content unchanged", func(t *testing.T) {
		assert.Equal(t, content, NewSet().Render(content, wrap))
	})

	t.Run("spans rendered in offset order", func(t *testing.T) {
		fox, err := NewSpan("h2", "Body", content, 16, 3, ColorGreen)
		require.NoError(t, err)
		quick, err := NewSpan("h1", "Body", content, 4, 5, ColorYellow)
		require.NoError(t, err)

		set := NewSet()
		require.NoError(t, set.Add(fox))
		require.NoError(t, set.Add(quick))

		got := set.Render(content, wrap)
		assert.Equal(t, "the [yellow:quick] brown [green:fox] jumps over the lazy dog", got)
	})

	t.Run("removal restores plain text", func(t *testing.T) {
		span, err := NewSpan("h1", "Body", content, 4, 15, ColorYellow)
		require.NoError(t, err)
		set := NewSet(span)

		set.Remove("h1")
		assert.Equal(t, content, set.Render(content, wrap))
	})

	t.Run("duplicate words highlight independently", func(t *testing.T) {
		text := "foo bar foo"
		second, err := NewSpan("h1", "Body", text, 8, 3, ColorBlue)
		require.NoError(t, err)

		set := NewSet(second)
		assert.Equal(t, "foo bar [blue:foo]", set.Render(text, wrap))
	})
}

func TestSet_Prune(t *testing.T) {
	span, err := NewSpan("h1", "Body", content, 4, 5, ColorYellow)
	require.NoError(t, err)
	set := NewSet(span)

	// Same content: nothing pruned
	assert.Empty(t, set.Prune(content))
	assert.Equal(t, 1, set.Len())

	// Changed content invalidates the anchor
	changed := strings.Replace(content, "quick", "swift", 1)
	dropped := set.Prune(changed)
	require.Len(t, dropped, 1)
	assert.Equal(t, "h1", dropped[0].ID)
	assert.Equal(t, 0, set.Len())

	// Shorter content than the anchor range
	set = NewSet(span)
	dropped = set.Prune("tiny")
	assert.Len(t, dropped, 1)
}
