package canvas

import "github.com/lvillar/docplace/placement"

// Nudge steps in millimeters.
const (
	NudgeStep       = 0.5
	NudgeStepCoarse = 1.0
)

// Key identifies a key relevant to the canvas.
type Key int

const (
	KeyNone Key = iota
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyPlus // "+" or "="
	KeyMinus
	KeyDelete // Delete or Backspace
	KeyEscape
)

// KeyEvent is a key press delivered to the canvas.
type KeyEvent struct {
	Key       Key
	Shift     bool // coarse nudge modifier
	Ctrl      bool // Ctrl on Windows/Linux
	Meta      bool // Cmd on macOS
	TextFocus bool // the focused element is a text input
}

// ParseKey maps a DOM KeyboardEvent.key value to a Key.
func ParseKey(s string) Key {
	switch s {
	case "ArrowLeft":
		return KeyLeft
	case "ArrowRight":
		return KeyRight
	case "ArrowUp":
		return KeyUp
	case "ArrowDown":
		return KeyDown
	case "+", "=":
		return KeyPlus
	case "-", "_":
		return KeyMinus
	case "Delete", "Backspace":
		return KeyDelete
	case "Escape":
		return KeyEscape
	default:
		return KeyNone
	}
}

// HandleKey applies a key press to the selected item. It reports whether the
// key was consumed. Keys are ignored while a text field has focus or nothing
// is selected.
func (c *Controller) HandleKey(ev KeyEvent) bool {
	if ev.TextFocus {
		return false
	}
	id := c.Selected()
	if id == 0 {
		return false
	}

	if ev.Ctrl || ev.Meta {
		switch ev.Key {
		case KeyPlus:
			return c.StepFontSize(id, placement.FontStep)
		case KeyMinus:
			return c.StepFontSize(id, -placement.FontStep)
		}
		return false
	}

	step := NudgeStep
	if ev.Shift {
		step = NudgeStepCoarse
	}
	switch ev.Key {
	case KeyLeft:
		return c.Nudge(id, -step, 0)
	case KeyRight:
		return c.Nudge(id, step, 0)
	case KeyUp:
		return c.Nudge(id, 0, -step)
	case KeyDown:
		return c.Nudge(id, 0, step)
	case KeyDelete:
		return c.RemoveID(id)
	case KeyEscape:
		c.ClearSelection()
		return true
	}
	return false
}

// Nudge moves item id by (dx, dy) millimeters.
func (c *Controller) Nudge(id placement.ID, dx, dy float64) bool {
	index := c.store.IndexOf(id)
	it, ok := c.store.At(index)
	if !ok {
		return false
	}
	return c.store.Update(index, placement.Position(it.X+dx, it.Y+dy))
}

// StepFontSize changes item id's font size by delta points, clamped to
// [4, 72].
func (c *Controller) StepFontSize(id placement.ID, delta float64) bool {
	index := c.store.IndexOf(id)
	it, ok := c.store.At(index)
	if !ok {
		return false
	}
	return c.store.Update(index, placement.FontSize(it.FontSizeOr(c.fontSize)+delta))
}
