// Package editor ties the placement packages into one editing session: a site
// snapshot and its catalog, the item store, the drag controller, the overlay
// renderer and the page navigator, all sharing one geometry.
//
// A Session is the unit an editor front end, the CLI or the MCP server drives.
// It is safe for concurrent use; every method takes the session lock.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/autoplace"
	"github.com/lvillar/docplace/canvas"
	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/export"
	"github.com/lvillar/docplace/layout"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/raster"
	"github.com/lvillar/docplace/render"
	"github.com/lvillar/docplace/units"
)

// Session is one open layout document.
type Session struct {
	mu       sync.Mutex
	cfg      docplace.Config
	site     *catalog.Site
	builder  *catalog.Builder
	doc      layout.Document // metadata; items live in store
	store    *placement.Store
	ctrl     *canvas.Controller
	renderer *render.Renderer
	nav      *render.Navigator
}

// Option configures a Session.
type Option func(*Session)

// WithBuilder sets the catalog builder used to format values.
func WithBuilder(b *catalog.Builder) Option {
	return func(s *Session) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithPageCount sets the number of source pages known up front.
func WithPageCount(n int) Option {
	return func(s *Session) {
		s.nav.SetCount(n)
		s.ctrl.SetPageCount(n)
	}
}

// New opens doc for editing against site. A nil doc starts an empty layout.
// The geometry recorded on doc wins over the configured page size.
func New(site *catalog.Site, doc *layout.Document, cfg docplace.Config, opts ...Option) *Session {
	s := &Session{cfg: cfg, site: site, builder: catalog.NewBuilder()}
	if doc != nil {
		s.doc = *doc
		s.doc.Items = nil
	}
	if site != nil && s.doc.SiteID == "" {
		s.doc.SiteID = site.ID
	}

	geom := units.New(cfg.RenderWidthPx, cfg.PageWidthMm, cfg.PageHeightMm)
	if s.doc.PageWidthMm > 0 && s.doc.PageHeightMm > 0 {
		geom = s.doc.Geometry(cfg.RenderWidthPx)
	}

	var items []placement.Item
	if doc != nil {
		items = doc.Items
	}
	s.store = placement.NewStore(items...)
	s.ctrl = canvas.NewController(s.store, geom, cfg.Log())
	s.ctrl.SetDefaultFontSize(cfg.DefaultFontSize)
	s.nav = render.NewNavigator(1)
	for _, opt := range opts {
		opt(s)
	}
	s.renderer = render.NewRenderer(geom, catalog.NewResolver(site, s.builder), cfg.PrintScale)
	s.renderer.SetDefaultFontSize(cfg.DefaultFontSize)
	return s
}

// Store returns the session's item store.
func (s *Session) Store() *placement.Store { return s.store }

// Geometry returns the editing geometry.
func (s *Session) Geometry() units.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Geometry()
}

// Site returns the current site snapshot.
func (s *Session) Site() *catalog.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.site
}

// SetSite swaps in a newer site snapshot. Placed items keep their component
// ids and resolve against the new record.
func (s *Session) SetSite(site *catalog.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.site = site
	if site != nil {
		s.doc.SiteID = site.ID
	}
	s.renderer.SetResolver(s.resolver())
}

// Catalog returns the placeable fields of the current site, rebuilt on every
// call.
func (s *Session) Catalog() []catalog.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Build(s.site)
}

// DefaultFontSize is the size in points shown and exported for items without one.
func (s *Session) DefaultFontSize() float64 {
	return placement.Item{}.FontSizeOr(s.cfg.DefaultFontSize)
}

// Resolver returns a resolver over the current site snapshot.
func (s *Session) Resolver() placement.Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver()
}

func (s *Session) resolver() placement.Resolver {
	return catalog.NewResolver(s.site, s.builder)
}

// Items returns the placed items in order.
func (s *Session) Items() []placement.Item { return s.store.Items() }

// Page returns the displayed page and the page count.
func (s *Session) Page() (current, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current(), s.nav.Count()
}

// GoPage shows page i, clamped into range, and returns the page shown.
func (s *Session) GoPage(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.nav.Go(i)
	s.ctrl.SetPage(p)
	return p
}

// SetPageCount sets the number of source pages.
func (s *Session) SetPageCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPageCount(n)
}

func (s *Session) setPageCount(n int) {
	s.nav.SetCount(n)
	s.ctrl.SetPageCount(n)
	s.ctrl.SetPage(s.nav.Current())
}

// UseSourceGeometry rebuilds the editing geometry from the source page's real
// size in points, keeping the configured canvas width.
func (s *Session) UseSourceGeometry(widthPt, heightPt float64) units.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := units.FromPoints(widthPt, heightPt, s.cfg.RenderWidthPx)
	s.setGeometry(g)
	return g
}

func (s *Session) setGeometry(g units.Geometry) {
	s.ctrl.SetGeometry(g)
	s.renderer.SetGeometry(g)
	s.doc.SetGeometry(g)
}

// LoadSource reads the page sizes of pdf, sets the page count and takes the
// editing geometry from the first page.
func (s *Session) LoadSource(ctx context.Context, r raster.Rasterizer, pdf []byte) ([]raster.PageSize, error) {
	sizes, err := r.PageSizes(ctx, pdf)
	if err != nil {
		return nil, docplace.NewOpError("editor.LoadSource", err)
	}
	if len(sizes) == 0 {
		return nil, docplace.NewOpError("editor.LoadSource", docplace.ErrNoPages)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPageCount(len(sizes))
	s.setGeometry(sizes[0].Geometry(s.cfg.RenderWidthPx))
	return sizes, nil
}

// Frame returns the on-screen overlay of the displayed page.
func (s *Session) Frame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Frame(s.store.Items(), s.nav.Current(), 1)
}

// PrintFrame returns the print-resolution overlay of the displayed page.
func (s *Session) PrintFrame() render.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.PrintFrame(s.store.Items(), s.nav.Current())
}

// Overlay composites the labels of page onto its background image.
// A nil background renders the labels over white.
func (s *Session) Overlay(page int, background image.Image, printRes bool) (*image.RGBA, error) {
	s.mu.Lock()
	items := s.store.Items()
	var f render.Frame
	if printRes {
		f = s.renderer.PrintFrame(items, page)
	} else {
		f = s.renderer.Frame(items, page, 1)
	}
	s.mu.Unlock()
	return render.Compose(background, f)
}

// Place drops catalog field componentID at canvas position at on the
// displayed page, exactly as a catalog drag would. A drop outside the canvas
// is discarded.
func (s *Session) Place(componentID string, at canvas.Point) (canvas.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := catalog.Lookup(s.builder.Build(s.site), componentID); !ok {
		return canvas.Outcome{Index: -1}, docplace.NewOpError("Place", fmt.Errorf("%w: %s", docplace.ErrUnknownField, componentID))
	}
	if err := s.ctrl.BeginCreate(componentID, at); err != nil {
		return canvas.Outcome{Index: -1}, err
	}
	return s.ctrl.Drop(canvas.DropEvent{Pointer: &at, OverCanvas: s.ctrl.Geometry().ContainsPx(at.X, at.Y)})
}

// PlacePx switches to page and drops componentID at canvas position at. A
// drop outside the canvas is an ErrInvalidParam error here, since the caller
// asked for a concrete position.
func (s *Session) PlacePx(componentID string, at canvas.Point, page int, fontSize float64) (placement.Item, error) {
	if _, count := s.Page(); page < 0 || page >= count {
		return placement.Item{}, docplace.NewOpError("PlacePx", fmt.Errorf("%w: page %d of %d", docplace.ErrOutOfRange, page, count))
	}
	s.GoPage(page)
	out, err := s.Place(componentID, at)
	if err != nil {
		return placement.Item{}, err
	}
	if out.Discarded {
		return placement.Item{}, docplace.NewOpError("PlacePx", fmt.Errorf("%w: (%g, %g) is outside the page", docplace.ErrInvalidParam, at.X, at.Y))
	}
	if fontSize > 0 {
		s.SetFontSize(out.ItemID, fontSize)
	}
	it, _ := s.Store().ByID(out.ItemID)
	return it, nil
}

// PlaceMm appends componentID at a millimeter position on page.
func (s *Session) PlaceMm(componentID string, xMm, yMm float64, page int, fontSize float64) (placement.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := catalog.Lookup(s.builder.Build(s.site), componentID); !ok {
		return placement.Item{}, docplace.NewOpError("PlaceMm", fmt.Errorf("%w: %s", docplace.ErrUnknownField, componentID))
	}
	if page < 0 || page >= s.nav.Count() {
		return placement.Item{}, docplace.NewOpError("PlaceMm", fmt.Errorf("%w: page %d of %d", docplace.ErrOutOfRange, page, s.nav.Count()))
	}
	it := placement.Item{ComponentID: componentID, X: xMm, Y: yMm, PageIndex: page}
	if fontSize > 0 {
		it.FontSize = placement.ClampFontSize(fontSize)
	}
	id := s.store.Append(it)
	it, _ = s.store.ByID(id)
	return it, nil
}

// Move drags item id by delta canvas pixels.
func (s *Session) Move(id placement.ID, delta canvas.Point) (canvas.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctrl.BeginMove(id, canvas.Point{}); err != nil {
		return canvas.Outcome{Index: -1}, err
	}
	return s.ctrl.Drop(canvas.DropEvent{Delta: &delta, OverCanvas: true})
}

// Nudge moves item id by (dx, dy) millimeters.
func (s *Session) Nudge(id placement.ID, dx, dy float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Nudge(id, dx, dy)
}

// SetFontSize sets item id's font size, clamped to the allowed range.
func (s *Session) SetFontSize(id placement.ID, pt float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdateByID(id, placement.FontSize(pt))
}

// Select marks item id as selected for keyboard editing.
func (s *Session) Select(id placement.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Select(id)
}

// HandleKey applies a key press to the selected item.
func (s *Session) HandleKey(ev canvas.KeyEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.HandleKey(ev)
}

// Remove deletes item id.
func (s *Session) Remove(id placement.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.RemoveID(id)
}

// AutoPlace runs p against the session's store with the current catalog and
// site context. The pipeline's own Store is ignored. The session lock is not
// held while the detector runs, so edits made in the meantime make the run
// fail with ErrStaleResult instead of being overwritten.
func (s *Session) AutoPlace(ctx context.Context, p autoplace.Pipeline, pdf []byte, mode autoplace.Mode) (autoplace.Outcome, error) {
	s.mu.Lock()
	fields := s.builder.Build(s.site)
	bizContext := autoplace.ContextText(s.site)
	s.mu.Unlock()

	p.Store = s.store
	out, err := p.Run(ctx, pdf, fields, bizContext, mode)
	if err != nil {
		return out, err
	}
	s.mu.Lock()
	if out.Pages > s.nav.Count() {
		s.setPageCount(out.Pages)
	}
	s.mu.Unlock()
	return out, nil
}

// Export burns the session's items into pdf.
func (s *Session) Export(ctx context.Context, e *export.Exporter, pdf []byte, opts export.Options) ([]byte, export.Report, error) {
	s.mu.Lock()
	items := s.store.Items()
	r := s.resolver()
	geom := s.ctrl.Geometry()
	s.mu.Unlock()
	return e.Export(ctx, bytes.NewReader(pdf), items, r, geom, opts)
}

// Document returns the layout record for saving: the document metadata,
// the editing geometry and the full item array.
func (s *Session) Document() *layout.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.doc
	doc.SetGeometry(s.ctrl.Geometry())
	doc.Items = s.store.Items()
	return &doc
}

// SetDocumentMeta updates the name and template of the record returned by
// Document.
func (s *Session) SetDocumentMeta(id, name, template string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		s.doc.ID = id
	}
	if name != "" {
		s.doc.Name = name
	}
	if template != "" {
		s.doc.SetTemplate(template)
	}
}
