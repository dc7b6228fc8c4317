// Package autoplace proposes field positions from page images and reconciles
// them into the editing coordinate space.
//
// A Detector sees rasterized pages and answers in image pixels. Reconcile
// turns those answers into millimeter items using the metrics of the exact
// page each image came from, and flags anything suspicious instead of
// dropping it. Pipeline ties rasterization, detection, reconciliation and the
// guarded merge into the placement store together.
package autoplace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/raster"
)

// Detection is one field position proposed by a detector, in image pixels
// with a top-left origin.
type Detection struct {
	ComponentID string  `json:"componentId"`
	ImageX      float64 `json:"imageX"`
	ImageY      float64 `json:"imageY"`
	Confidence  float64 `json:"confidence"`
	FieldType   string  `json:"fieldType,omitempty"`
	PageIndex   *int    `json:"pageIndex,omitempty"`
}

// Result is a detector response.
type Result struct {
	Items    []Detection     `json:"items"`
	Metadata json.RawMessage `json:"analysisMetadata,omitempty"`
}

// Page is a rasterized page sent to a detector.
type Page struct {
	Index   int            `json:"pageIndex"`
	Image   string         `json:"image"` // base64 PNG
	Metrics raster.Metrics `json:"metrics"`
}

// Request is everything a detector is given.
type Request struct {
	Pages   []Page          `json:"pages"`
	Catalog []catalog.Field `json:"catalog"`
	Context string          `json:"context"`
}

// Detector finds catalog fields on page images.
type Detector interface {
	Detect(ctx context.Context, req Request) (Result, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, req Request) (Result, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// WarningKind classifies a reconciliation warning.
type WarningKind int

const (
	MissingPage WarningKind = iota
	InvalidPage
	OutOfBounds
	Degenerate
	BadConfidence
	UnknownComponent
	EmptyResult
)

func (k WarningKind) String() string {
	switch k {
	case MissingPage:
		return "missing_page"
	case InvalidPage:
		return "invalid_page"
	case OutOfBounds:
		return "out_of_bounds"
	case Degenerate:
		return "degenerate"
	case BadConfidence:
		return "bad_confidence"
	case UnknownComponent:
		return "unknown_component"
	case EmptyResult:
		return "empty_result"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k WarningKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Warning is a non-fatal problem found while reconciling a result. Index is
// the detection's position in the result, or -1 for result-wide warnings.
type Warning struct {
	Kind        WarningKind `json:"kind"`
	Index       int         `json:"index"`
	ComponentID string      `json:"componentId,omitempty"`
	Message     string      `json:"message"`
}

func (w Warning) String() string {
	if w.Index < 0 {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: item %d (%s): %s", w.Kind, w.Index, w.ComponentID, w.Message)
}
