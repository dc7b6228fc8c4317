package autoplace

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/raster"
)

// ReconcileOptions tune Reconcile. The zero value applies no correction.
type ReconcileOptions struct {
	// CorrectionFactor multiplies both converted coordinates. Values <= 0 mean 1.
	CorrectionFactor float64
	// Catalog, when set, is used to flag unknown component ids and to cache
	// each field's current value on the item.
	Catalog []catalog.Field
	// FontSize is stored on every item when > 0.
	FontSize float64
	Logger   *slog.Logger
}

// Reconcile converts detections to placed items. Every detection that can be
// mapped onto a page is kept, including suspicious ones; problems are
// returned as warnings and logged.
func Reconcile(res Result, metrics []raster.Metrics, opts ReconcileOptions) ([]placement.Item, []Warning) {
	corr := opts.CorrectionFactor
	if corr <= 0 {
		corr = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		items    []placement.Item
		warnings []Warning
	)
	warn := func(kind WarningKind, i int, id, format string, args ...any) {
		w := Warning{Kind: kind, Index: i, ComponentID: id, Message: fmt.Sprintf(format, args...)}
		warnings = append(warnings, w)
		log.Warn("auto-placement", "kind", kind.String(), "index", i, "component", id, "detail", w.Message)
	}

	if len(metrics) == 0 {
		if len(res.Items) > 0 {
			warn(InvalidPage, -1, "", "no page metrics; %d detections dropped", len(res.Items))
		}
		return nil, warnings
	}

	for i, d := range res.Items {
		page := 0
		switch {
		case d.PageIndex == nil:
			warn(MissingPage, i, d.ComponentID, "pageIndex missing, using page 0")
		case *d.PageIndex < 0 || *d.PageIndex >= len(metrics):
			warn(InvalidPage, i, d.ComponentID, "pageIndex %d outside [0,%d), using page 0", *d.PageIndex, len(metrics))
		default:
			page = *d.PageIndex
		}

		m := metrics[page]
		if m.WidthPx <= 0 || m.HeightPx <= 0 {
			warn(InvalidPage, i, d.ComponentID, "page %d has no pixel size, dropped", page)
			continue
		}

		if d.ImageX < 0 || d.ImageY < 0 || d.ImageX > float64(m.WidthPx) || d.ImageY > float64(m.HeightPx) {
			warn(OutOfBounds, i, d.ComponentID, "(%g,%g) outside %dx%d image", d.ImageX, d.ImageY, m.WidthPx, m.HeightPx)
		}
		if d.Confidence < 0 || d.Confidence > 1 || math.IsNaN(d.Confidence) {
			warn(BadConfidence, i, d.ComponentID, "confidence %g outside [0,1]", d.Confidence)
		}

		it := placement.Item{
			ComponentID: d.ComponentID,
			X:           d.ImageX / float64(m.WidthPx) * m.PdfWidthMm * corr,
			Y:           d.ImageY / float64(m.HeightPx) * m.PdfHeightMm * corr,
			PageIndex:   page,
			FontSize:    opts.FontSize,
		}
		if opts.Catalog != nil {
			if f, ok := catalog.Lookup(opts.Catalog, d.ComponentID); ok {
				it.Value = f.Value
			} else {
				warn(UnknownComponent, i, d.ComponentID, "not in catalog")
			}
		}
		items = append(items, it)
	}

	if collapsed(items) {
		warn(Degenerate, -1, "", "all %d detections share x=%g mm; detection likely failed", len(items), items[0].X)
	}
	return items, warnings
}

// collapsed reports whether every item of a multi-item result shares one x
// coordinate.
func collapsed(items []placement.Item) bool {
	if len(items) < 2 {
		return false
	}
	for _, it := range items[1:] {
		if math.Abs(it.X-items[0].X) > 1e-9 {
			return false
		}
	}
	return true
}
