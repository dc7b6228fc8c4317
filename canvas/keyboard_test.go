package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docplace/placement"
)

func selectedController(t *testing.T, it placement.Item) (*Controller, *placement.Store) {
	t.Helper()
	c, store := newTestController(it, placement.Item{ComponentID: "other", X: 1, Y: 1})
	first, _ := store.At(0)
	require.True(t, c.Select(first.ID))
	return c, store
}

func TestArrowNudge(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a", X: 10, Y: 10})

	assert.True(t, c.HandleKey(KeyEvent{Key: KeyRight}))
	assert.True(t, c.HandleKey(KeyEvent{Key: KeyDown, Shift: true}))
	assert.True(t, c.HandleKey(KeyEvent{Key: KeyLeft, Shift: true}))
	assert.True(t, c.HandleKey(KeyEvent{Key: KeyUp}))

	it, _ := store.At(0)
	assert.InDelta(t, 9.5, it.X, 1e-9)
	assert.InDelta(t, 10.5, it.Y, 1e-9)

	other, _ := store.At(1)
	assert.Equal(t, 1.0, other.X)
}

func TestKeysIgnoredInTextField(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a", X: 10, Y: 10})
	assert.False(t, c.HandleKey(KeyEvent{Key: KeyRight, TextFocus: true}))
	it, _ := store.At(0)
	assert.Equal(t, 10.0, it.X)
}

func TestKeysIgnoredWithoutSelection(t *testing.T) {
	c, _ := newTestController(placement.Item{ComponentID: "a"})
	assert.False(t, c.HandleKey(KeyEvent{Key: KeyRight}))
}

func TestFontSizeClampUp(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a", FontSize: 71.8})
	for i := 0; i < 4; i++ {
		assert.True(t, c.HandleKey(KeyEvent{Key: KeyPlus, Ctrl: true}))
		it, _ := store.At(0)
		assert.LessOrEqual(t, it.FontSize, 72.0)
	}
	it, _ := store.At(0)
	assert.Equal(t, 72.0, it.FontSize)
}

func TestFontSizeClampDown(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a", FontSize: 4.2})
	for i := 0; i < 4; i++ {
		assert.True(t, c.HandleKey(KeyEvent{Key: KeyMinus, Meta: true}))
	}
	it, _ := store.At(0)
	assert.Equal(t, 4.0, it.FontSize)
}

func TestFontSizeFromDefault(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a"})
	assert.True(t, c.HandleKey(KeyEvent{Key: ParseKey("="), Ctrl: true}))
	it, _ := store.At(0)
	assert.Equal(t, 11.0, it.FontSize)
}

func TestFontSizeFromConfiguredDefault(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a"})
	c.SetDefaultFontSize(12)
	assert.True(t, c.HandleKey(KeyEvent{Key: KeyMinus, Ctrl: true}))
	it, _ := store.At(0)
	assert.Equal(t, 11.5, it.FontSize)
}

func TestDeleteAndEscape(t *testing.T) {
	c, store := selectedController(t, placement.Item{ComponentID: "a"})
	assert.True(t, c.HandleKey(KeyEvent{Key: ParseKey("Backspace")}))
	assert.Equal(t, 1, store.Len())
	assert.Zero(t, c.Selected())

	other, _ := store.At(0)
	require.True(t, c.Select(other.ID))
	assert.True(t, c.HandleKey(KeyEvent{Key: KeyEscape}))
	assert.Zero(t, c.Selected())
	assert.Equal(t, 1, store.Len())
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, KeyLeft, ParseKey("ArrowLeft"))
	assert.Equal(t, KeyMinus, ParseKey("-"))
	assert.Equal(t, KeyNone, ParseKey("a"))
}
