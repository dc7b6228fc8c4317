// Package raster turns PDF pages into images and reports the metrics needed to
// map image pixels back onto the page in millimeters.
package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/pkg/errors"

	"github.com/lvillar/docplace/units"
)

// PageSize is a page's MediaBox size in points.
type PageSize struct {
	WidthPt  float64 `json:"widthPt"`
	HeightPt float64 `json:"heightPt"`
}

// Mm returns the page size in millimeters.
func (p PageSize) Mm() (width, height float64) {
	return units.PtToMm(p.WidthPt), units.PtToMm(p.HeightPt)
}

// Geometry returns an editing geometry matching the page's real aspect ratio.
func (p PageSize) Geometry(renderWidthPx float64) units.Geometry {
	return units.FromPoints(p.WidthPt, p.HeightPt, renderWidthPx)
}

// Metrics pairs a rasterized page with its physical size.
type Metrics struct {
	WidthPx     int     `json:"widthPx"`
	HeightPx    int     `json:"heightPx"`
	PdfWidthMm  float64 `json:"pdfWidthMm"`
	PdfHeightMm float64 `json:"pdfHeightMm"`
}

// PageImage is one rasterized page. Index is the 0-based page it came from.
type PageImage struct {
	Index   int
	Image   *image.RGBA
	Metrics Metrics
}

// Rasterizer renders PDF documents to page images.
type Rasterizer interface {
	PageSizes(ctx context.Context, pdf []byte) ([]PageSize, error)
	Render(ctx context.Context, pdf []byte, dpi float64) ([]PageImage, error)
}

// MetricsOf returns the metrics of pages in page order.
func MetricsOf(pages []PageImage) []Metrics {
	out := make([]Metrics, len(pages))
	for i, p := range pages {
		out[i] = p.Metrics
	}
	return out
}

// EncodeBase64PNG encodes img as a base64 PNG string.
func EncodeBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "failed to encode page image")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
