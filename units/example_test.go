package units_test

import (
	"fmt"

	"github.com/lvillar/docplace/units"
)

func ExampleGeometry() {
	g := units.A4()
	fmt.Printf("canvas %.1f x %.1f px\n", g.WidthPx(), g.HeightPx())

	x, y := g.MmToPxPoint(105, 148.5)
	fmt.Printf("page center at (%.1f, %.1f) px\n", x, y)

	print := g.Scaled(2)
	x, y = print.MmToPxPoint(105, 148.5)
	fmt.Printf("print center at (%.1f, %.1f) px\n", x, y)

	fmt.Printf("10.5pt renders at %.1fpx\n", units.PtToPx(10.5))
	// Output:
	// canvas 800.0 x 1131.4 px
	// page center at (400.0, 565.7) px
	// print center at (800.0, 1131.4) px
	// 10.5pt renders at 14.0px
}
