// Package canvas implements the pointer and keyboard controller for the
// placement canvas.
//
// Each drag gesture is an explicit state: idle, creating (a catalog entry is
// being dragged onto the page) or moving (a placed item is being dragged).
// A drop is only meaningful in one of the two drag states, so the controller
// rejects drops while idle and pointer-downs while a gesture is active.
//
// All positions handed to the controller are canvas-local logical pixels;
// they may lie outside the canvas while the pointer is off the page.
package canvas

import (
	"log/slog"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/units"
)

// Point is a canvas-local position in logical pixels.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// State names the controller's gesture state.
type State int

const (
	Idle State = iota
	CreatingDrag
	MovingDrag
)

func (s State) String() string {
	switch s {
	case CreatingDrag:
		return "creating"
	case MovingDrag:
		return "moving"
	default:
		return "idle"
	}
}

// gesture is the per-state data of an active drag.
type gesture interface {
	state() State
	track(p Point)
	drag(delta Point)
}

type creatingState struct {
	componentID string
	origin      Point  // pointer-down position
	pointer     *Point // last tracked pointer position
	delta       *Point // accumulated drag delta
}

func (g *creatingState) state() State { return CreatingDrag }

func (g *creatingState) track(p Point) { g.pointer = &p }

func (g *creatingState) drag(d Point) { g.delta = accumulate(g.delta, d) }

type movingState struct {
	itemID       placement.ID
	startPx      Point  // item position when the gesture began
	pointerStart Point  // pointer-down position
	pointer      *Point // last tracked pointer position
	delta        *Point // accumulated drag delta
}

func (g *movingState) state() State { return MovingDrag }

func (g *movingState) track(p Point) { g.pointer = &p }

func (g *movingState) drag(d Point) { g.delta = accumulate(g.delta, d) }

func accumulate(total *Point, d Point) *Point {
	if total == nil {
		return &d
	}
	sum := total.Add(d)
	return &sum
}

// DropEvent describes a pointer-up. Pointer and Delta are optional; a
// synthetic or keyboard-driven drop may carry neither.
type DropEvent struct {
	Pointer    *Point // live pointer position, canvas-local
	Delta      *Point // total pointer delta reported by the drag source
	OverCanvas bool   // whether the pointer-up landed on the drop target
}

// Outcome reports what a drop did.
type Outcome struct {
	Created   bool
	Moved     bool
	Discarded bool
	ItemID    placement.ID
	Index     int
}

// Controller translates pointer and keyboard input into placement store
// mutations.
type Controller struct {
	store    *placement.Store
	geom     units.Geometry
	log      *slog.Logger
	active   gesture
	selected placement.ID
	page     int
	numPages int
	fontSize float64
}

// NewController returns an idle controller editing store on geom.
func NewController(store *placement.Store, geom units.Geometry, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: store, geom: geom, log: logger, numPages: 1}
}

// State reports the current gesture state.
func (c *Controller) State() State {
	if c.active == nil {
		return Idle
	}
	return c.active.state()
}

// Geometry returns the geometry used for conversions.
func (c *Controller) Geometry() units.Geometry { return c.geom }

// SetDefaultFontSize sets the size font steps start from for items without one.
func (c *Controller) SetDefaultFontSize(pt float64) { c.fontSize = pt }

// SetGeometry replaces the conversion geometry. Any active gesture is
// cancelled since its pixel positions refer to the old canvas.
func (c *Controller) SetGeometry(g units.Geometry) {
	c.active = nil
	c.geom = g
}

// SetPageCount sets the number of pages available for placement.
func (c *Controller) SetPageCount(n int) {
	if n < 1 {
		n = 1
	}
	c.numPages = n
	if c.page >= n {
		c.page = n - 1
	}
}

// SetPage sets the page new items are dropped on.
func (c *Controller) SetPage(i int) {
	if i < 0 {
		i = 0
	}
	if i >= c.numPages {
		i = c.numPages - 1
	}
	c.page = i
}

// Page returns the page new items are dropped on.
func (c *Controller) Page() int { return c.page }

// BeginCreate starts dragging a catalog entry from at.
func (c *Controller) BeginCreate(componentID string, at Point) error {
	if c.active != nil {
		return c.rejectBusy("BeginCreate")
	}
	if componentID == "" {
		return docplace.NewOpError("BeginCreate", docplace.ErrInvalidParam)
	}
	c.active = &creatingState{componentID: componentID, origin: at}
	return nil
}

// BeginMove starts dragging the placed item id; at is the pointer-down
// position on its drag handle.
func (c *Controller) BeginMove(id placement.ID, at Point) error {
	if c.active != nil {
		return c.rejectBusy("BeginMove")
	}
	it, ok := c.store.ByID(id)
	if !ok {
		return docplace.NewOpError("BeginMove", docplace.ErrOutOfRange)
	}
	x, y := c.geom.MmToPxPoint(it.X, it.Y)
	c.active = &movingState{itemID: id, startPx: Point{x, y}, pointerStart: at}
	return nil
}

// Track records the global pointer position during a gesture.
func (c *Controller) Track(p Point) {
	if c.active != nil {
		c.active.track(p)
	}
}

// Drag adds delta to the gesture's total pointer delta.
func (c *Controller) Drag(delta Point) {
	if c.active != nil {
		c.active.drag(delta)
	}
}

// Cancel abandons the active gesture without mutating the store.
func (c *Controller) Cancel() {
	c.active = nil
}

// Drop ends the active gesture. The controller always returns to idle.
// ErrNoCoordinates is returned, with the store untouched, when no position
// can be resolved for the drop.
func (c *Controller) Drop(ev DropEvent) (Outcome, error) {
	g := c.active
	c.active = nil

	switch g := g.(type) {
	case *creatingState:
		return c.dropCreate(g, ev)
	case *movingState:
		return c.dropMove(g, ev)
	default:
		return Outcome{}, docplace.NewOpError("Drop", docplace.ErrNoGesture)
	}
}

func (c *Controller) dropCreate(g *creatingState, ev DropEvent) (Outcome, error) {
	if !ev.OverCanvas {
		return Outcome{Discarded: true, Index: -1}, nil
	}

	var at Point
	switch {
	case ev.Pointer != nil:
		at = *ev.Pointer
	case g.pointer != nil:
		at = *g.pointer
	case ev.Delta != nil:
		at = g.origin.Add(*ev.Delta)
	case g.delta != nil:
		at = g.origin.Add(*g.delta)
	default:
		c.log.Debug("drop without coordinates", "component", g.componentID)
		return Outcome{Index: -1}, docplace.NewOpError("Drop", docplace.ErrNoCoordinates)
	}

	x, y := c.geom.PxToMmPoint(at.X, at.Y)
	id := c.store.Append(placement.Item{
		ComponentID: g.componentID,
		X:           x,
		Y:           y,
		PageIndex:   c.page,
	})
	return Outcome{Created: true, ItemID: id, Index: c.store.IndexOf(id)}, nil
}

func (c *Controller) dropMove(g *movingState, ev DropEvent) (Outcome, error) {
	var delta Point
	switch {
	case ev.Delta != nil:
		delta = *ev.Delta
	case g.delta != nil:
		delta = *g.delta
	case ev.Pointer != nil:
		delta = ev.Pointer.Sub(g.pointerStart)
	case g.pointer != nil:
		delta = g.pointer.Sub(g.pointerStart)
	default:
		c.log.Debug("drop without coordinates", "item", g.itemID)
		return Outcome{Index: -1}, docplace.NewOpError("Drop", docplace.ErrNoCoordinates)
	}

	index := c.store.IndexOf(g.itemID)
	if index < 0 {
		// removed mid-gesture
		return Outcome{Discarded: true, Index: -1}, nil
	}
	at := g.startPx.Add(delta)
	x, y := c.geom.PxToMmPoint(at.X, at.Y)
	c.store.Update(index, placement.Position(x, y))
	return Outcome{Moved: true, ItemID: g.itemID, Index: index}, nil
}

func (c *Controller) rejectBusy(op string) error {
	c.log.Debug("pointer-down ignored during gesture", "op", op, "state", c.State().String())
	return docplace.NewOpError(op, docplace.ErrGestureActive)
}

// Select marks id as the selected item.
func (c *Controller) Select(id placement.ID) bool {
	if c.store.IndexOf(id) < 0 {
		return false
	}
	c.selected = id
	return true
}

// ClearSelection deselects any item.
func (c *Controller) ClearSelection() { c.selected = 0 }

// ClickEmpty handles a click on empty canvas space.
func (c *Controller) ClickEmpty() { c.ClearSelection() }

// Selected returns the selected item id, or 0. A selection whose item has
// been removed reads as none.
func (c *Controller) Selected() placement.ID {
	if c.selected != 0 && c.store.IndexOf(c.selected) < 0 {
		c.selected = 0
	}
	return c.selected
}

// SelectedIndex returns the current index of the selected item, or -1.
func (c *Controller) SelectedIndex() int {
	return c.store.IndexOf(c.Selected())
}

// Remove deletes the item at index, clearing the selection if it pointed
// there.
func (c *Controller) Remove(index int) bool {
	it, ok := c.store.At(index)
	if !ok {
		return false
	}
	if it.ID == c.selected {
		c.selected = 0
	}
	return c.store.Remove(index)
}

// RemoveID deletes the item id.
func (c *Controller) RemoveID(id placement.ID) bool {
	return c.Remove(c.store.IndexOf(id))
}
