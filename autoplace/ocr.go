//go:build ocr

package autoplace

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// OCRDetector finds catalog labels printed on the form with Tesseract and
// proposes each field just right of its label. It needs no network access.
type OCRDetector struct {
	Language string  // Tesseract languages, e.g. "jpn+eng"
	Gap      float64 // pixels between label and proposed position
}

// NewOCRDetector returns a detector for the given Tesseract languages.
func NewOCRDetector(language string) *OCRDetector {
	return &OCRDetector{Language: language, Gap: 8}
}

// Detect runs OCR on every page of req.
func (d *OCRDetector) Detect(ctx context.Context, req Request) (Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if d.Language != "" {
		if err := client.SetLanguage(d.Language); err != nil {
			return Result{}, fmt.Errorf("autoplace: setting OCR language: %w", err)
		}
	}

	var res Result
	for _, page := range req.Pages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		data, err := base64.StdEncoding.DecodeString(page.Image)
		if err != nil {
			return Result{}, fmt.Errorf("autoplace: decoding page %d: %w", page.Index, err)
		}
		if err := client.SetImageFromBytes(data); err != nil {
			return Result{}, fmt.Errorf("autoplace: failed to set image: %w", err)
		}
		found, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
		if err != nil {
			return Result{}, fmt.Errorf("autoplace: OCR failed: %w", err)
		}

		boxes := make([]TextBox, len(found))
		for i, b := range found {
			boxes[i] = TextBox{Rect: b.Box, Text: b.Word, Confidence: b.Confidence / 100}
		}
		res.Items = append(res.Items, matchLabels(req.Catalog, boxes, page.Index, d.Gap)...)
	}
	return res, nil
}
