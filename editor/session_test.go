package editor

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/autoplace"
	"github.com/lvillar/docplace/canvas"
	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/export"
	"github.com/lvillar/docplace/internal/testpdf"
	"github.com/lvillar/docplace/layout"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/raster"
)

func testSite() *catalog.Site {
	return &catalog.Site{
		ID:        "site1",
		Name:      "North Bridge",
		Address:   "1-2-3 Chuo",
		Amount:    1200000,
		StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Staff:     []catalog.Staff{{ID: "st1", Name: "Sato", Age: 40}},
	}
}

type fakeRasterizer struct {
	sizes []raster.PageSize
}

func (f fakeRasterizer) PageSizes(ctx context.Context, pdf []byte) ([]raster.PageSize, error) {
	return f.sizes, nil
}

func (f fakeRasterizer) Render(ctx context.Context, pdf []byte, dpi float64) ([]raster.PageImage, error) {
	out := make([]raster.PageImage, len(f.sizes))
	for i, s := range f.sizes {
		w, h := s.Mm()
		out[i] = raster.PageImage{
			Index:   i,
			Image:   image.NewRGBA(image.Rect(0, 0, 4, 4)),
			Metrics: raster.Metrics{WidthPx: 1000, HeightPx: 1414, PdfWidthMm: w, PdfHeightMm: h},
		}
	}
	return out, nil
}

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	return New(testSite(), nil, docplace.NewConfig(), opts...)
}

func TestPlaceConvertsToMm(t *testing.T) {
	s := newSession(t)
	out, err := s.Place("s_name", canvas.Point{X: 100, Y: 100})
	require.NoError(t, err)
	require.True(t, out.Created)

	items := s.Items()
	require.Len(t, items, 1)
	assert.InDelta(t, 26.25, items[0].X, 1e-9)
	assert.InDelta(t, 26.25, items[0].Y, 1e-9)
	assert.Equal(t, out.ItemID, items[0].ID)
}

func TestPlacePx(t *testing.T) {
	s := newSession(t, WithPageCount(2))
	it, err := s.PlacePx("s_address", canvas.Point{X: 400, Y: 200}, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, it.PageIndex)
	assert.InDelta(t, 105, it.X, 1e-9)
	assert.Equal(t, 12.0, it.FontSize)

	_, err = s.PlacePx("s_address", canvas.Point{X: 900, Y: 200}, 0, 0)
	assert.ErrorIs(t, err, docplace.ErrInvalidParam)
	_, err = s.PlacePx("s_address", canvas.Point{X: 10, Y: 10}, 2, 0)
	assert.ErrorIs(t, err, docplace.ErrOutOfRange)
	assert.Len(t, s.Items(), 1)
}

func TestPlaceOutsideCanvasDiscarded(t *testing.T) {
	s := newSession(t)
	out, err := s.Place("s_name", canvas.Point{X: -5, Y: 10})
	require.NoError(t, err)
	assert.True(t, out.Discarded)
	assert.Empty(t, s.Items())
}

func TestPlaceUnknownField(t *testing.T) {
	s := newSession(t)
	_, err := s.Place("nope", canvas.Point{X: 1, Y: 1})
	assert.ErrorIs(t, err, docplace.ErrUnknownField)
	_, err = s.PlaceMm("nope", 1, 1, 0, 0)
	assert.ErrorIs(t, err, docplace.ErrUnknownField)
}

func TestPlaceMmChecksPage(t *testing.T) {
	s := newSession(t, WithPageCount(2))
	it, err := s.PlaceMm("staff_st1_name", 40, 80, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, it.PageIndex)
	assert.Equal(t, placement.MaxFontSize, it.FontSize)
	assert.NotZero(t, it.ID)

	_, err = s.PlaceMm("s_name", 1, 1, 2, 0)
	assert.ErrorIs(t, err, docplace.ErrOutOfRange)
}

func TestPlaceUsesDisplayedPage(t *testing.T) {
	s := newSession(t)
	s.SetPageCount(3)
	assert.Equal(t, 2, s.GoPage(5))
	_, err := s.Place("s_name", canvas.Point{X: 10, Y: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Items()[0].PageIndex)

	assert.Len(t, s.Frame().Labels, 1)
	s.GoPage(0)
	assert.Empty(t, s.Frame().Labels)
}

func TestMoveNudgeFontRemove(t *testing.T) {
	s := newSession(t)
	it, err := s.PlaceMm("s_name", 10, 10, 0, 0)
	require.NoError(t, err)

	out, err := s.Move(it.ID, canvas.Point{X: 80, Y: 0})
	require.NoError(t, err)
	assert.True(t, out.Moved)
	got, _ := s.Store().ByID(it.ID)
	assert.InDelta(t, 31.0, got.X, 1e-9)
	assert.InDelta(t, 10.0, got.Y, 1e-9)

	assert.True(t, s.Nudge(it.ID, -0.5, 1))
	got, _ = s.Store().ByID(it.ID)
	assert.InDelta(t, 30.5, got.X, 1e-9)
	assert.InDelta(t, 11.0, got.Y, 1e-9)

	assert.True(t, s.SetFontSize(it.ID, 2))
	got, _ = s.Store().ByID(it.ID)
	assert.Equal(t, placement.MinFontSize, got.FontSize)

	assert.True(t, s.Select(it.ID))
	assert.True(t, s.HandleKey(canvas.KeyEvent{Key: canvas.KeyRight, Shift: true}))
	got, _ = s.Store().ByID(it.ID)
	assert.InDelta(t, 31.5, got.X, 1e-9)

	assert.True(t, s.Remove(it.ID))
	assert.False(t, s.Remove(it.ID))
	assert.Empty(t, s.Items())

	_, err = s.Move(it.ID, canvas.Point{X: 1})
	assert.ErrorIs(t, err, docplace.ErrOutOfRange)
}

func TestSetSiteReresolves(t *testing.T) {
	s := newSession(t)
	_, err := s.PlaceMm("s_name", 10, 10, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "North Bridge", s.Frame().Labels[0].Text)

	next := testSite()
	next.Name = "South Bridge"
	s.SetSite(next)
	assert.Equal(t, "South Bridge", s.Frame().Labels[0].Text)

	next = testSite()
	next.Staff = nil
	s.SetSite(next)
	for _, f := range s.Catalog() {
		assert.NotContains(t, f.ID, "staff_")
	}
}

func TestLoadSourceTakesRealGeometry(t *testing.T) {
	s := newSession(t)
	sizes, err := s.LoadSource(context.Background(), fakeRasterizer{sizes: []raster.PageSize{{WidthPt: 612, HeightPt: 792}, {WidthPt: 612, HeightPt: 792}}}, nil)
	require.NoError(t, err)
	assert.Len(t, sizes, 2)

	g := s.Geometry()
	assert.InDelta(t, 215.9, g.WidthMm, 0.01)
	assert.InDelta(t, 279.4, g.HeightMm, 0.01)
	_, count := s.Page()
	assert.Equal(t, 2, count)

	doc := s.Document()
	assert.InDelta(t, 215.9, doc.PageWidthMm, 0.01)

	_, err = s.LoadSource(context.Background(), fakeRasterizer{}, nil)
	assert.ErrorIs(t, err, docplace.ErrNoPages)
}

func TestDocumentRoundTrip(t *testing.T) {
	s := newSession(t)
	s.SetDocumentMeta("d1", "Roster", "https://example.com/r.pdf")
	_, err := s.PlaceMm("s_name", 10, 20, 0, 9)
	require.NoError(t, err)

	doc := s.Document()
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "site1", doc.SiteID)
	assert.Equal(t, "https://example.com/r.pdf", doc.Template())
	require.Len(t, doc.Items, 1)

	reopened := New(testSite(), doc, docplace.NewConfig(), WithBuilder(catalog.NewBuilder()))
	items := reopened.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 9.0, items[0].FontSize)
	assert.NotZero(t, items[0].ID)
	assert.Equal(t, 210.0, reopened.Geometry().WidthMm)
}

func TestNewKeepsRecordedGeometry(t *testing.T) {
	doc := &layout.Document{ID: "d", PageWidthMm: 215.9, PageHeightMm: 279.4}
	s := New(testSite(), doc, docplace.NewConfig())
	assert.Equal(t, 215.9, s.Geometry().WidthMm)
}

func TestAutoPlaceMergesIntoSession(t *testing.T) {
	s := newSession(t)
	det := autoplace.DetectorFunc(func(ctx context.Context, req autoplace.Request) (autoplace.Result, error) {
		assert.Contains(t, req.Context, "North Bridge")
		assert.NotEmpty(t, req.Catalog)
		page := 1
		return autoplace.Result{Items: []autoplace.Detection{
			{ComponentID: "s_name", ImageX: 500, ImageY: 707, Confidence: 0.9},
			{ComponentID: "s_address", ImageX: 100, ImageY: 100, Confidence: 0.8, PageIndex: &page},
		}}, nil
	})
	rast := fakeRasterizer{sizes: []raster.PageSize{{WidthPt: 595.28, HeightPt: 841.89}, {WidthPt: 595.28, HeightPt: 841.89}}}
	p := autoplace.Pipeline{Rasterizer: rast, Detector: det, Config: docplace.NewConfig()}

	out, err := s.AutoPlace(context.Background(), p, nil, autoplace.ModeAppend)
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	require.Len(t, s.Items(), 2)
	assert.InDelta(t, 105.0, s.Items()[0].X, 0.05)
	_, count := s.Page()
	assert.Equal(t, 2, count)
}

func TestConfiguredDefaultFontSize(t *testing.T) {
	s := New(testSite(), nil, docplace.NewConfig(docplace.WithDefaultFontSize(12)))
	it, err := s.PlaceMm("s_name", 10, 10, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 12.0, s.DefaultFontSize())

	f := s.Frame()
	require.Len(t, f.Labels, 1)
	assert.Equal(t, 12.0, f.Labels[0].FontPt)

	require.True(t, s.Select(it.ID))
	assert.True(t, s.HandleKey(canvas.KeyEvent{Key: canvas.KeyPlus, Ctrl: true}))
	got, _ := s.Store().ByID(it.ID)
	assert.Equal(t, 12.5, got.FontSize)

	assert.Equal(t, placement.DefaultFontSize, New(testSite(), nil, docplace.NewConfig(docplace.WithDefaultFontSize(0))).DefaultFontSize())
}

func TestExport(t *testing.T) {
	s := newSession(t)
	_, err := s.PlaceMm("s_name", 20, 30, 0, 0)
	require.NoError(t, err)
	_, err = s.PlaceMm("staff_st1_age", 20, 40, 0, 0)
	require.NoError(t, err)

	out, rep, err := s.Export(context.Background(), export.New(docplace.NewConfig()), testpdf.New(t), export.Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, 2, rep.Drawn)
	assert.Equal(t, 1, rep.Pages)
}

func TestOverlay(t *testing.T) {
	s := newSession(t)
	_, err := s.PlaceMm("s_name", 20, 30, 0, 0)
	require.NoError(t, err)

	img, err := s.Overlay(0, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())

	img, err = s.Overlay(0, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1600, img.Bounds().Dx())
}
