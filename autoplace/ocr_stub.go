//go:build !ocr

package autoplace

import "context"

// OCRDetector is the stub used when the "ocr" build tag is not set.
type OCRDetector struct {
	Language string
	Gap      float64
}

// NewOCRDetector returns a stub detector.
func NewOCRDetector(language string) *OCRDetector {
	return &OCRDetector{Language: language, Gap: 8}
}

// Detect returns ErrOCRNotEnabled.
func (d *OCRDetector) Detect(ctx context.Context, req Request) (Result, error) {
	return Result{}, ErrOCRNotEnabled
}
