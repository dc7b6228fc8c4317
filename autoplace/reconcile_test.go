package autoplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/raster"
)

var a4At200 = raster.Metrics{WidthPx: 1654, HeightPx: 2339, PdfWidthMm: 210, PdfHeightMm: 297}

func page(i int) *int { return &i }

func kinds(ws []Warning) []WarningKind {
	out := make([]WarningKind, len(ws))
	for i, w := range ws {
		out[i] = w.Kind
	}
	return out
}

func TestReconcileConvertsToMm(t *testing.T) {
	res := Result{Items: []Detection{
		{ComponentID: "s_name", ImageX: 827, ImageY: 1169, Confidence: 0.9, PageIndex: page(0)},
	}}

	items, warnings := Reconcile(res, []raster.Metrics{a4At200}, ReconcileOptions{})
	require.Len(t, items, 1)
	assert.Empty(t, warnings)
	assert.InDelta(t, 105, items[0].X, 0.01)
	assert.InDelta(t, 148.5, items[0].Y, 0.1)
	assert.Equal(t, "s_name", items[0].ComponentID)
	assert.Equal(t, 0, items[0].PageIndex)
}

func TestReconcileUsesPageMetrics(t *testing.T) {
	letter := raster.Metrics{WidthPx: 1700, HeightPx: 2200, PdfWidthMm: 215.9, PdfHeightMm: 279.4}
	res := Result{Items: []Detection{
		{ComponentID: "a", ImageX: 850, ImageY: 1100, Confidence: 1, PageIndex: page(1)},
		{ComponentID: "b", ImageX: 100, ImageY: 100, Confidence: 1, PageIndex: page(0)},
	}}

	items, _ := Reconcile(res, []raster.Metrics{a4At200, letter}, ReconcileOptions{})
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].PageIndex)
	assert.InDelta(t, 107.95, items[0].X, 1e-9)
	assert.InDelta(t, 139.7, items[0].Y, 1e-9)
}

func TestReconcileCorrectionFactor(t *testing.T) {
	res := Result{Items: []Detection{
		{ComponentID: "a", ImageX: 827, ImageY: 1169, Confidence: 1, PageIndex: page(0)},
	}}
	items, _ := Reconcile(res, []raster.Metrics{a4At200}, ReconcileOptions{CorrectionFactor: 0.5})
	assert.InDelta(t, 52.5, items[0].X, 0.01)
	assert.InDelta(t, 74.25, items[0].Y, 0.1)
}

func TestReconcileDegenerate(t *testing.T) {
	res := Result{Items: []Detection{
		{ComponentID: "a", ImageX: 500, ImageY: 100, Confidence: 0.5, PageIndex: page(0)},
		{ComponentID: "b", ImageX: 500, ImageY: 200, Confidence: 0.5, PageIndex: page(0)},
		{ComponentID: "c", ImageX: 500, ImageY: 300, Confidence: 0.5, PageIndex: page(0)},
	}}

	items, warnings := Reconcile(res, []raster.Metrics{a4At200}, ReconcileOptions{})
	require.Len(t, items, 3)
	assert.Equal(t, items[0].X, items[2].X)
	require.Len(t, warnings, 1)
	assert.Equal(t, Degenerate, warnings[0].Kind)
	assert.Equal(t, -1, warnings[0].Index)
}

func TestReconcileMissingAndInvalidPage(t *testing.T) {
	res := Result{Items: []Detection{
		{ComponentID: "a", ImageX: 100, ImageY: 100, Confidence: 1},
		{ComponentID: "b", ImageX: 200, ImageY: 100, Confidence: 1, PageIndex: page(7)},
		{ComponentID: "c", ImageX: 300, ImageY: 100, Confidence: 1, PageIndex: page(-1)},
	}}

	items, warnings := Reconcile(res, []raster.Metrics{a4At200}, ReconcileOptions{})
	require.Len(t, items, 3)
	for _, it := range items {
		assert.Equal(t, 0, it.PageIndex)
	}
	assert.Equal(t, []WarningKind{MissingPage, InvalidPage, InvalidPage}, kinds(warnings))
}

func TestReconcileOutOfBoundsKept(t *testing.T) {
	res := Result{Items: []Detection{
		{ComponentID: "a", ImageX: 2000, ImageY: -10, Confidence: 1.4, PageIndex: page(0)},
		{ComponentID: "b", ImageX: 10, ImageY: 10, Confidence: 1, PageIndex: page(0)},
	}}

	items, warnings := Reconcile(res, []raster.Metrics{a4At200}, ReconcileOptions{})
	require.Len(t, items, 2)
	assert.Greater(t, items[0].X, 210.0, "not clamped")
	assert.Less(t, items[0].Y, 0.0, "not clamped")
	assert.Equal(t, []WarningKind{OutOfBounds, BadConfidence}, kinds(warnings))
}

func TestReconcileCatalogCheck(t *testing.T) {
	fields := []catalog.Field{{ID: "s_name", Label: "現場名", Value: "本社ビル"}}
	res := Result{Items: []Detection{
		{ComponentID: "s_name", ImageX: 10, ImageY: 10, Confidence: 1, PageIndex: page(0)},
		{ComponentID: "nope", ImageX: 20, ImageY: 10, Confidence: 1, PageIndex: page(0)},
	}}

	items, warnings := Reconcile(res, []raster.Metrics{a4At200}, ReconcileOptions{Catalog: fields, FontSize: 9})
	require.Len(t, items, 2)
	assert.Equal(t, "本社ビル", items[0].Value)
	assert.Equal(t, 9.0, items[0].FontSize)
	require.Len(t, warnings, 1)
	assert.Equal(t, UnknownComponent, warnings[0].Kind)
	assert.Equal(t, "nope", warnings[0].ComponentID)
}

func TestReconcileWithoutMetrics(t *testing.T) {
	res := Result{Items: []Detection{{ComponentID: "a", PageIndex: page(0)}}}
	items, warnings := Reconcile(res, nil, ReconcileOptions{})
	assert.Empty(t, items)
	assert.Equal(t, []WarningKind{InvalidPage}, kinds(warnings))
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: OutOfBounds, Index: 2, ComponentID: "s_name", Message: "off page"}
	assert.Equal(t, "out_of_bounds: item 2 (s_name): off page", w.String())
	w = Warning{Kind: Degenerate, Index: -1, Message: "collapsed"}
	assert.Equal(t, "degenerate: collapsed", w.String())
}
