// Package placement holds the ordered list of placed items, the single source
// of truth for what is drawn on a document.
//
// Array order is the persisted and rendered order. Interaction code keys off
// the synthetic ID each item receives when it enters a Store, which stays
// stable across insertions and removals.
package placement

import (
	"fmt"
	"math"
)

// Font size bounds and defaults, in points.
const (
	DefaultFontSize = 10.5
	MinFontSize     = 4.0
	MaxFontSize     = 72.0
	FontStep        = 0.5
)

// ID identifies an item within a Store for the duration of a session.
// The zero ID is never assigned.
type ID uint64

// Item is a catalog field stamped at a position on a page.
type Item struct {
	ID          ID      `json:"-"`
	ComponentID string  `json:"componentId"`
	X           float64 `json:"x"` // mm from the left page edge
	Y           float64 `json:"y"` // mm from the top page edge
	FontSize    float64 `json:"fontSize,omitempty"`
	PageIndex   int     `json:"pageIndex,omitempty"`
	Value       string  `json:"value,omitempty"` // display override when the field cannot be resolved
}

// EffectiveFontSize returns FontSize or the 10.5pt default.
func (it Item) EffectiveFontSize() float64 {
	return it.FontSizeOr(DefaultFontSize)
}

// FontSizeOr returns FontSize, or def when no size is stored. A non-positive
// def falls back to DefaultFontSize.
func (it Item) FontSizeOr(def float64) float64 {
	switch {
	case it.FontSize > 0:
		return it.FontSize
	case def > 0:
		return def
	}
	return DefaultFontSize
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	X         *float64
	Y         *float64
	FontSize  *float64
	PageIndex *int
	Value     *string
}

// Position returns a Patch moving an item to (x, y).
func Position(x, y float64) Patch {
	return Patch{X: &x, Y: &y}
}

// FontSize returns a Patch setting the font size, clamped to [4, 72].
func FontSize(pt float64) Patch {
	pt = ClampFontSize(pt)
	return Patch{FontSize: &pt}
}

func (p Patch) apply(it Item) Item {
	if p.X != nil {
		it.X = *p.X
	}
	if p.Y != nil {
		it.Y = *p.Y
	}
	if p.FontSize != nil {
		it.FontSize = *p.FontSize
	}
	if p.PageIndex != nil {
		it.PageIndex = *p.PageIndex
	}
	if p.Value != nil {
		it.Value = *p.Value
	}
	return it
}

// ClampFontSize limits pt to [MinFontSize, MaxFontSize] and drops float noise
// introduced by repeated half-point steps.
func ClampFontSize(pt float64) float64 {
	pt = math.Round(pt*1000) / 1000
	return math.Max(MinFontSize, math.Min(MaxFontSize, pt))
}

// Validate reports the first item whose page index is outside [0, numPages).
func Validate(items []Item, numPages int) error {
	for i, it := range items {
		if it.PageIndex < 0 || it.PageIndex >= numPages {
			return fmt.Errorf("placement: item %d (%s) is on page %d of %d", i, it.ComponentID, it.PageIndex, numPages)
		}
	}
	return nil
}

// Resolver looks up the current display value of a catalog field id.
type Resolver interface {
	ResolveValue(componentID string) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(componentID string) (string, bool)

// ResolveValue calls f.
func (f ResolverFunc) ResolveValue(componentID string) (string, bool) { return f(componentID) }

// Text returns the string drawn for it: the live value from r, then the
// item's cached Value, then an "<unresolved:id>" marker.
func (it Item) Text(r Resolver) string {
	if r != nil {
		if v, ok := r.ResolveValue(it.ComponentID); ok {
			return v
		}
	}
	if it.Value != "" {
		return it.Value
	}
	return "<unresolved:" + it.ComponentID + ">"
}

// Unresolved reports whether Text would fall back to the marker.
func (it Item) Unresolved(r Resolver) bool {
	if r != nil {
		if _, ok := r.ResolveValue(it.ComponentID); ok {
			return false
		}
	}
	return it.Value == ""
}
