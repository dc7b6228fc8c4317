// Package export burns placed items into a copy of the source PDF.
//
// Every source page is imported as a template at its real MediaBox size, then
// each item's resolved text is drawn on top. Item positions are millimeters
// against the editing geometry with a top-left origin; they are mapped onto
// the page's own point size and flipped to a bottom-left baseline exactly once,
// in Position.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/units"
)

// A4 fallback page size in points, used when a page reports no MediaBox.
const (
	a4WidthPt  = 595.28
	a4HeightPt = 841.89
)

// Options adjust a single export.
type Options struct {
	Stamps        []Stamp
	FontBytes     []byte // overrides the exporter's font for this call
	NoCompression bool   // write page content streams uncompressed
}

// Skipped records an item that was not drawn.
type Skipped struct {
	Index       int    `json:"index"`
	ComponentID string `json:"componentId"`
	Reason      string `json:"reason"`
}

// Report summarizes an export.
type Report struct {
	Pages        int       `json:"pages"`
	Drawn        int       `json:"drawn"`
	Blank        int       `json:"blank"`
	Skipped      []Skipped `json:"skipped,omitempty"`
	FontFallback bool      `json:"fontFallback,omitempty"`
}

// Exporter renders placed items onto source documents.
type Exporter struct {
	Config    docplace.Config
	Logger    *slog.Logger
	FontBytes []byte // optional UTF-8 TrueType font; Config.FontPath is used when empty
}

// New returns an exporter for cfg.
func New(cfg docplace.Config) *Exporter {
	return &Exporter{Config: cfg, Logger: cfg.Log()}
}

func (e *Exporter) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return e.Config.Log()
}

// Export draws items over src and returns the new document. Items whose
// text resolves blank are skipped silently; items that cannot be drawn are
// logged and listed in the report. A failure to read src aborts the export
// and returns no bytes.
func (e *Exporter) Export(ctx context.Context, src io.ReadSeeker, items []placement.Item, resolver placement.Resolver, geom units.Geometry, opts Options) ([]byte, Report, error) {
	var rep Report
	if err := ctx.Err(); err != nil {
		return nil, rep, err
	}
	if !geom.Valid() {
		return nil, rep, docplace.NewOpError("Export", fmt.Errorf("%w: invalid geometry", docplace.ErrInvalidParam))
	}
	log := e.log()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCompression(!opts.NoCompression)
	imp := gofpdi.NewImporter()
	rs := src

	first, sizes, err := importFirst(pdf, imp, &rs)
	if err != nil {
		return nil, rep, docplace.NewOpError("Export", err)
	}
	rep.Pages = len(sizes)

	fontBytes := opts.FontBytes
	if fontBytes == nil {
		fontBytes = e.FontBytes
	}
	if fontBytes == nil && e.Config.FontPath != "" {
		fontBytes = loadFontFile(e.Config.FontPath, log)
	}
	face := registerFont(pdf, fontBytes, log)
	rep.FontFallback = face.fallback && fontBytes != nil

	byPage := make(map[int][]int, rep.Pages)
	for i, it := range items {
		if it.PageIndex < 0 || it.PageIndex >= rep.Pages {
			rep.Skipped = append(rep.Skipped, Skipped{Index: i, ComponentID: it.ComponentID, Reason: fmt.Sprintf("page %d not in document", it.PageIndex)})
			log.Warn("export: item on missing page", "index", i, "component", it.ComponentID, "page", it.PageIndex, "pages", rep.Pages)
			continue
		}
		byPage[it.PageIndex] = append(byPage[it.PageIndex], i)
	}

	for p := 0; p < rep.Pages; p++ {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		tpl := first
		if p > 0 {
			tpl, err = importPage(pdf, imp, &rs, p+1)
			if err != nil {
				return nil, Report{}, docplace.NewOpError("Export", err)
			}
		}
		pw, ph := sizes[p].w, sizes[p].h
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: pw, Ht: ph})
		imp.UseImportedTemplate(pdf, tpl, 0, 0, pw, ph)
		if pdf.Err() {
			return nil, Report{}, docplace.NewOpError("Export", fmt.Errorf("placing page %d: %w", p+1, pdf.Error()))
		}

		for _, i := range byPage[p] {
			it := items[i]
			it.FontSize = it.FontSizeOr(e.Config.DefaultFontSize)
			text := it.Text(resolver)
			if strings.TrimSpace(text) == "" {
				rep.Blank++
				continue
			}
			x, yBaseline := Position(it, geom, pw, ph)
			if err := face.draw(pdf, x, ph-yBaseline, it.EffectiveFontSize(), text); err != nil {
				rep.Skipped = append(rep.Skipped, Skipped{Index: i, ComponentID: it.ComponentID, Reason: err.Error()})
				log.Warn("export: item skipped", "index", i, "component", it.ComponentID, "error", err)
				continue
			}
			rep.Drawn++
		}

		for _, s := range opts.Stamps {
			if s.PageIndex != p {
				continue
			}
			if err := drawStamp(pdf, s, geom, pw, ph); err != nil {
				log.Warn("export: stamp skipped", "kind", s.Kind, "page", p, "error", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Report{}, docplace.NewOpError("Export", err)
	}
	log.Info("export complete", "pages", rep.Pages, "drawn", rep.Drawn, "skipped", len(rep.Skipped), "blank", rep.Blank)
	return buf.Bytes(), rep, nil
}

// Position maps an item onto a page of pageW x pageH points. It returns the
// x offset and the text baseline in bottom-left PDF point space.
func Position(it placement.Item, geom units.Geometry, pageW, pageH float64) (x, yBaseline float64) {
	x = it.X / geom.WidthMm * pageW
	yBaseline = (geom.HeightMm-it.Y)/geom.HeightMm*pageH - it.EffectiveFontSize()
	return x, yBaseline
}

type pageSize struct{ w, h float64 }

// importFirst imports page 1 and reads the MediaBox of every page.
func importFirst(pdf *fpdf.Fpdf, imp *gofpdi.Importer, rs *io.ReadSeeker) (int, []pageSize, error) {
	tpl, err := importPage(pdf, imp, rs, 1)
	if err != nil {
		return 0, nil, err
	}
	boxes := imp.GetPageSizes()
	if len(boxes) == 0 {
		return 0, nil, docplace.ErrNoPages
	}
	sizes := make([]pageSize, len(boxes))
	for i := range sizes {
		w, h := a4WidthPt, a4HeightPt
		if dims, ok := boxes[i+1]; ok {
			if mb, ok := dims["/MediaBox"]; ok && mb["w"] > 0 && mb["h"] > 0 {
				w, h = mb["w"], mb["h"]
			}
		}
		sizes[i] = pageSize{w: w, h: h}
	}
	return tpl, sizes, nil
}

// importPage imports a 1-based page. rs must be the same pointer for every
// page of a document so the importer reuses one parsed source. The importer
// panics on some malformed inputs, which is reported as an error.
func importPage(pdf *fpdf.Fpdf, imp *gofpdi.Importer, rs *io.ReadSeeker, pageNum int) (tpl int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("importing page %d: %v", pageNum, r)
		}
	}()
	tpl = imp.ImportPageFromStream(pdf, rs, pageNum, "/MediaBox")
	if pdf.Err() {
		return 0, fmt.Errorf("importing page %d: %w", pageNum, pdf.Error())
	}
	return tpl, nil
}
