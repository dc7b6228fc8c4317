// Package units converts between the three measurement spaces used when
// placing fields on a page: logical screen pixels, physical millimeters and
// export points.
//
// Pixel coordinates are always expressed against a fixed logical canvas width,
// never a measured on-screen size, so that placements stay stable regardless
// of viewport or zoom. Print renders multiply that logical size by a scale
// factor; the millimeter-per-logical-pixel ratio does not change.
package units

import "math"

// MmPerPt is the length of one PDF point in millimeters.
const MmPerPt = 0.352778

// ScreenDPI is the dpi used to convert font points to screen pixels.
const ScreenDPI = 96.0

// A4 physical dimensions and the default logical canvas width.
const (
	A4WidthMm           = 210.0
	A4HeightMm          = 297.0
	DefaultRenderWidth  = 800.0
	ptPerInch           = 72.0
	defaultCompareDelta = 1e-9
)

// Axis selects the horizontal or vertical dimension of a page.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Geometry declares a page's fixed logical render width and its physical
// size. The render height is derived from the physical aspect ratio.
type Geometry struct {
	RenderWidthPx float64 // logical canvas width in pixels
	WidthMm       float64 // physical page width
	HeightMm      float64 // physical page height
	scale         float64 // print resolution multiplier, 0 means 1
}

// A4 returns the default 800px-wide A4 geometry.
func A4() Geometry {
	return Geometry{RenderWidthPx: DefaultRenderWidth, WidthMm: A4WidthMm, HeightMm: A4HeightMm}
}

// New returns a geometry for the given canvas width and physical size.
// Non-positive arguments fall back to the A4 defaults.
func New(renderWidthPx, widthMm, heightMm float64) Geometry {
	g := A4()
	if renderWidthPx > 0 {
		g.RenderWidthPx = renderWidthPx
	}
	if widthMm > 0 && heightMm > 0 {
		g.WidthMm = widthMm
		g.HeightMm = heightMm
	}
	return g
}

// FromPoints builds a geometry from a page's real size in points, so that the
// editing canvas has the same aspect ratio as the exported page.
func FromPoints(widthPt, heightPt, renderWidthPx float64) Geometry {
	if widthPt <= 0 || heightPt <= 0 {
		return New(renderWidthPx, 0, 0)
	}
	return New(renderWidthPx, PtToMm(widthPt), PtToMm(heightPt))
}

// RenderHeightPx is the logical canvas height, derived from the physical
// aspect ratio.
func (g Geometry) RenderHeightPx() float64 {
	return g.RenderWidthPx * g.HeightMm / g.WidthMm
}

// ScaleFactor reports the print multiplier applied to this geometry.
func (g Geometry) ScaleFactor() float64 {
	if g.scale <= 0 {
		return 1
	}
	return g.scale
}

// Scaled returns a geometry whose pixel budget is multiplied by factor.
// The logical-pixel to millimeter ratio is unchanged.
func (g Geometry) Scaled(factor float64) Geometry {
	if factor <= 0 {
		factor = 1
	}
	g.scale = factor
	return g
}

// WidthPx returns the pixel width including the print multiplier.
func (g Geometry) WidthPx() float64 {
	return g.RenderWidthPx * g.ScaleFactor()
}

// HeightPx returns the pixel height including the print multiplier.
func (g Geometry) HeightPx() float64 {
	return g.RenderHeightPx() * g.ScaleFactor()
}

// MmToPx converts a millimeter value on the given axis to pixels.
func (g Geometry) MmToPx(mm float64, axis Axis) float64 {
	if axis == AxisX {
		return mm / g.WidthMm * g.WidthPx()
	}
	return mm / g.HeightMm * g.HeightPx()
}

// PxToMm is the exact inverse of MmToPx.
func (g Geometry) PxToMm(px float64, axis Axis) float64 {
	if axis == AxisX {
		return px / g.WidthPx() * g.WidthMm
	}
	return px / g.HeightPx() * g.HeightMm
}

// MmToPxPoint converts both coordinates of a millimeter position.
func (g Geometry) MmToPxPoint(xMm, yMm float64) (float64, float64) {
	return g.MmToPx(xMm, AxisX), g.MmToPx(yMm, AxisY)
}

// PxToMmPoint converts both coordinates of a pixel position.
func (g Geometry) PxToMmPoint(xPx, yPx float64) (float64, float64) {
	return g.PxToMm(xPx, AxisX), g.PxToMm(yPx, AxisY)
}

// ContainsPx reports whether a pixel position lies on the canvas.
func (g Geometry) ContainsPx(xPx, yPx float64) bool {
	return xPx >= 0 && yPx >= 0 && xPx <= g.WidthPx() && yPx <= g.HeightPx()
}

// Valid reports whether the geometry can be used for conversions.
func (g Geometry) Valid() bool {
	return g.RenderWidthPx > 0 && g.WidthMm > 0 && g.HeightMm > 0
}

// PtToMm converts points to millimeters.
func PtToMm(pt float64) float64 { return pt * MmPerPt }

// MmToPt converts millimeters to points.
func MmToPt(mm float64) float64 { return mm / MmPerPt }

// PtToPx converts a font size in points to screen pixels at 96 dpi.
func PtToPx(pt float64) float64 { return pt * ScreenDPI / ptPerInch }

// Equal reports whether a and b are within tol of each other.
// A non-positive tol uses a 1e-9 default.
func Equal(a, b, tol float64) bool {
	if tol <= 0 {
		tol = defaultCompareDelta
	}
	return math.Abs(a-b) <= tol
}
