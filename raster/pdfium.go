package raster

import (
	"context"
	"image"
	"image/draw"
	"math"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/pkg/errors"
)

// Config sizes the pdfium worker pool.
type Config struct {
	MaxInstances    int
	InstanceTimeout time.Duration
}

// PdfiumRasterizer renders pages with pdfium running in a webassembly runtime.
type PdfiumRasterizer struct {
	pool    pdfium.Pool
	timeout time.Duration
}

// NewPdfium starts a pdfium pool. Close releases it.
func NewPdfium(cfg Config) (*PdfiumRasterizer, error) {
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = 1
	}
	if cfg.InstanceTimeout <= 0 {
		cfg.InstanceTimeout = 30 * time.Second
	}
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  cfg.MaxInstances,
		MaxTotal: cfg.MaxInstances,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start pdfium")
	}
	return &PdfiumRasterizer{pool: pool, timeout: cfg.InstanceTimeout}, nil
}

// Close shuts the pool down.
func (r *PdfiumRasterizer) Close() error {
	return r.pool.Close()
}

func (r *PdfiumRasterizer) withDocument(ctx context.Context, pdf []byte, fn func(pdfium.Pdfium, references.FPDF_DOCUMENT, int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	instance, err := r.pool.GetInstance(r.timeout)
	if err != nil {
		return errors.Wrap(err, "failed to get pdfium instance")
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{
		File: &pdf,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open PDF document")
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return errors.Wrap(err, "failed to get page count")
	}
	return fn(instance, doc.Document, count.PageCount)
}

// PageSizes returns the size of every page in points.
func (r *PdfiumRasterizer) PageSizes(ctx context.Context, pdf []byte) ([]PageSize, error) {
	var sizes []PageSize
	err := r.withDocument(ctx, pdf, func(instance pdfium.Pdfium, doc references.FPDF_DOCUMENT, count int) error {
		sizes = make([]PageSize, 0, count)
		for i := 0; i < count; i++ {
			size, err := pageSize(instance, doc, i)
			if err != nil {
				return err
			}
			sizes = append(sizes, size)
		}
		return nil
	})
	return sizes, err
}

// Render rasterizes every page at dpi. Results are index-aligned with the
// document's pages.
func (r *PdfiumRasterizer) Render(ctx context.Context, pdf []byte, dpi float64) ([]PageImage, error) {
	var pages []PageImage
	err := r.withDocument(ctx, pdf, func(instance pdfium.Pdfium, doc references.FPDF_DOCUMENT, count int) error {
		pages = make([]PageImage, 0, count)
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, err := renderPage(instance, doc, i, dpi)
			if err != nil {
				return err
			}
			pages = append(pages, page)
		}
		return nil
	})
	return pages, err
}

// RenderPage rasterizes a single page.
func (r *PdfiumRasterizer) RenderPage(ctx context.Context, pdf []byte, index int, dpi float64) (PageImage, error) {
	var page PageImage
	err := r.withDocument(ctx, pdf, func(instance pdfium.Pdfium, doc references.FPDF_DOCUMENT, count int) error {
		if index < 0 || index >= count {
			return errors.Errorf("page %d out of range (document has %d pages)", index, count)
		}
		var err error
		page, err = renderPage(instance, doc, index, dpi)
		return err
	})
	return page, err
}

func pageSize(instance pdfium.Pdfium, doc references.FPDF_DOCUMENT, index int) (PageSize, error) {
	pageResp, err := instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: doc,
		Index:    index,
	})
	if err != nil {
		return PageSize{}, errors.Wrapf(err, "failed to load page %d", index)
	}
	defer instance.FPDF_ClosePage(&requests.FPDF_ClosePage{
		Page: pageResp.Page,
	})

	width, err := instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{
		Page: requests.Page{
			ByReference: &pageResp.Page,
		},
	})
	if err != nil {
		return PageSize{}, errors.Wrap(err, "failed to get page width")
	}
	height, err := instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{
		Page: requests.Page{
			ByReference: &pageResp.Page,
		},
	})
	if err != nil {
		return PageSize{}, errors.Wrap(err, "failed to get page height")
	}
	return PageSize{WidthPt: float64(width.PageWidth), HeightPt: float64(height.PageHeight)}, nil
}

func renderPage(instance pdfium.Pdfium, doc references.FPDF_DOCUMENT, index int, dpi float64) (PageImage, error) {
	size, err := pageSize(instance, doc, index)
	if err != nil {
		return PageImage{}, err
	}

	resp, err := instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(math.Round(dpi)),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc,
				Index:    index,
			},
		},
	})
	if err != nil {
		return PageImage{}, errors.Wrapf(err, "failed to render page %d", index)
	}

	// The rendered buffer belongs to the instance; copy it out before the
	// instance goes back to the pool.
	src := resp.Result.Image
	img := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)

	wMm, hMm := size.Mm()
	return PageImage{
		Index: index,
		Image: img,
		Metrics: Metrics{
			WidthPx:     img.Bounds().Dx(),
			HeightPx:    img.Bounds().Dy(),
			PdfWidthMm:  wMm,
			PdfHeightMm: hMm,
		},
	}, nil
}
