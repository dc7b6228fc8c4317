// Package render lays placed items out over a page at the fixed logical
// canvas size and composites page previews.
//
// A Frame is what an editor front end draws: the page box in pixels plus one
// Label per item on the displayed page. Items on other pages are not part of
// the frame at all, so they can never be hit-tested or dragged.
package render

import (
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/units"
)

// Label is a placed item positioned in frame pixels.
type Label struct {
	ItemID      placement.ID `json:"itemId"`
	Index       int          `json:"index"`
	ComponentID string       `json:"componentId"`
	Text        string       `json:"text"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Width       float64      `json:"width"`
	Height      float64      `json:"height"`
	FontPt      float64      `json:"fontPt"`
	FontPx      float64      `json:"fontPx"`
	Unresolved  bool         `json:"unresolved,omitempty"`
}

// Contains reports whether the pixel position (x, y) falls inside the label box.
func (l Label) Contains(x, y float64) bool {
	return x >= l.X && x <= l.X+l.Width && y >= l.Y && y <= l.Y+l.Height
}

// Frame is one page of overlay at a given pixel budget.
type Frame struct {
	Page   int     `json:"page"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
	Labels []Label `json:"labels"`
}

// Renderer maps placed items to frames.
type Renderer struct {
	geom       units.Geometry
	resolver   placement.Resolver
	printScale float64
	fontSize   float64
}

// NewRenderer returns a renderer for geom. printScale multiplies the pixel
// budget of PrintFrame; values <= 0 mean 2.
func NewRenderer(geom units.Geometry, resolver placement.Resolver, printScale float64) *Renderer {
	if printScale <= 0 {
		printScale = 2
	}
	return &Renderer{geom: geom, resolver: resolver, printScale: printScale}
}

// Geometry returns the editing geometry.
func (r *Renderer) Geometry() units.Geometry { return r.geom }

// SetGeometry replaces the editing geometry.
func (r *Renderer) SetGeometry(g units.Geometry) { r.geom = g }

// SetDefaultFontSize sets the size used for items without one.
func (r *Renderer) SetDefaultFontSize(pt float64) { r.fontSize = pt }

// SetResolver replaces the value resolver, typically after the business
// record was reloaded.
func (r *Renderer) SetResolver(res placement.Resolver) { r.resolver = res }

// Frame lays out items on page at the given scale. A scale of 1 is the
// on-screen editing canvas.
func (r *Renderer) Frame(items []placement.Item, page int, scale float64) Frame {
	g := r.geom.Scaled(scale)
	f := Frame{
		Page:   page,
		Width:  g.WidthPx(),
		Height: g.HeightPx(),
		Scale:  g.ScaleFactor(),
	}
	for i, it := range items {
		if it.PageIndex != page {
			continue
		}
		x, y := g.MmToPxPoint(it.X, it.Y)
		pt := it.FontSizeOr(r.fontSize)
		px := units.PtToPx(pt) * g.ScaleFactor()
		text := it.Text(r.resolver)
		f.Labels = append(f.Labels, Label{
			ItemID:      it.ID,
			Index:       i,
			ComponentID: it.ComponentID,
			Text:        text,
			X:           x,
			Y:           y,
			Width:       textWidth(text, px),
			Height:      px,
			FontPt:      pt,
			FontPx:      px,
			Unresolved:  it.Unresolved(r.resolver),
		})
	}
	return f
}

// PrintFrame is Frame at the configured print multiplier.
func (r *Renderer) PrintFrame(items []placement.Item, page int) Frame {
	return r.Frame(items, page, r.printScale)
}

// Hit returns the topmost label containing (x, y). Later items are drawn
// over earlier ones, so the search runs back to front.
func Hit(f Frame, x, y float64) (Label, bool) {
	for i := len(f.Labels) - 1; i >= 0; i-- {
		if f.Labels[i].Contains(x, y) {
			return f.Labels[i], true
		}
	}
	return Label{}, false
}
