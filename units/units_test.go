package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTripMmPx(t *testing.T) {
	geometries := []Geometry{
		A4(),
		New(1024, 210, 297),
		New(640, 297, 210),
		FromPoints(612, 792, 800),
		A4().Scaled(2),
		A4().Scaled(3.5),
	}
	for _, g := range geometries {
		for mm := -20.0; mm <= 320; mm += 0.7 {
			assert.InDelta(t, mm, g.PxToMm(g.MmToPx(mm, AxisX), AxisX), 1e-6)
			assert.InDelta(t, mm, g.PxToMm(g.MmToPx(mm, AxisY), AxisY), 1e-6)
		}
	}
}

func TestRoundTripPtMm(t *testing.T) {
	for pt := 0.0; pt <= 1000; pt += 3.3 {
		assert.InDelta(t, pt, MmToPt(PtToMm(pt)), 1e-6)
	}
}

func TestA4Geometry(t *testing.T) {
	g := A4()
	assert.InDelta(t, 1131.43, g.RenderHeightPx(), 0.01)
	assert.InDelta(t, 26.25, g.PxToMm(100, AxisX), 1e-9)
	assert.InDelta(t, 26.25, g.PxToMm(100, AxisY), 1e-6)
	assert.InDelta(t, 400, g.MmToPx(105, AxisX), 1e-9)
}

func TestScaledKeepsRatio(t *testing.T) {
	g := A4()
	p := g.Scaled(2)

	assert.InDelta(t, 1600, p.WidthPx(), 1e-9)
	assert.InDelta(t, 2*g.HeightPx(), p.HeightPx(), 1e-9)
	assert.InDelta(t, 2*g.MmToPx(30, AxisY), p.MmToPx(30, AxisY), 1e-9)
	assert.Equal(t, 2.0, p.ScaleFactor())
	assert.Equal(t, 1.0, g.ScaleFactor())
}

func TestFromPoints(t *testing.T) {
	g := FromPoints(612, 792, 800) // US Letter
	assert.InDelta(t, 215.9, g.WidthMm, 0.01)
	assert.InDelta(t, 279.4, g.HeightMm, 0.01)
	assert.InDelta(t, 800*792.0/612.0, g.RenderHeightPx(), 1e-6)

	fallback := FromPoints(0, 0, 0)
	assert.Equal(t, A4(), fallback)
}

func TestPtToPx(t *testing.T) {
	assert.InDelta(t, 14, PtToPx(10.5), 1e-9)
}

func TestContainsPx(t *testing.T) {
	g := A4()
	assert.True(t, g.ContainsPx(0, 0))
	assert.True(t, g.ContainsPx(800, 1131))
	assert.False(t, g.ContainsPx(-1, 10))
	assert.False(t, g.ContainsPx(10, 1200))
}
