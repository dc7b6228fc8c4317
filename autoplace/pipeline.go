package autoplace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/raster"
)

// Mode selects how reconciled items enter the store.
type Mode int

const (
	ModeAppend Mode = iota
	ModeReplace
)

// ParseMode maps "append" and "replace" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "append":
		return ModeAppend, nil
	case "replace":
		return ModeReplace, nil
	}
	return ModeAppend, fmt.Errorf("%w: mode %q", docplace.ErrInvalidParam, s)
}

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// Outcome reports what a pipeline run merged.
type Outcome struct {
	Items    []placement.Item `json:"items"`
	Warnings []Warning        `json:"warnings,omitempty"`
	Pages    int              `json:"pages"`
	Metadata json.RawMessage  `json:"analysisMetadata,omitempty"`
}

// Pipeline runs rasterize, detect, reconcile and merge against one store.
type Pipeline struct {
	Rasterizer raster.Rasterizer
	Detector   Detector
	Store      *placement.Store
	Config     docplace.Config
}

// Run detects fields on pdf and merges them into the store. A detector or
// rasterizer failure leaves the store untouched. If the store was edited
// while detection was in flight the result is discarded with ErrStaleResult.
// A replace run that reconciles to no items keeps the existing layout and
// reports an EmptyResult warning instead.
func (p *Pipeline) Run(ctx context.Context, pdf []byte, fields []catalog.Field, businessContext string, mode Mode) (Outcome, error) {
	log := p.Config.Log()
	gen := p.Store.Generation()

	if p.Config.DetectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.DetectTimeout)
		defer cancel()
	}

	pages, err := p.Rasterizer.Render(ctx, pdf, p.Config.RasterDPI)
	if err != nil {
		return Outcome{}, docplace.NewOpError("autoplace.rasterize", err)
	}
	if len(pages) == 0 {
		return Outcome{}, docplace.NewOpError("autoplace.rasterize", docplace.ErrNoPages)
	}

	req := Request{Catalog: fields, Context: businessContext}
	for _, pg := range pages {
		encoded, err := raster.EncodeBase64PNG(pg.Image)
		if err != nil {
			return Outcome{}, docplace.NewOpError("autoplace.encode", err)
		}
		req.Pages = append(req.Pages, Page{Index: pg.Index, Image: encoded, Metrics: pg.Metrics})
	}

	log.Info("auto-placement request", "pages", len(req.Pages), "fields", len(fields))
	res, err := p.Detector.Detect(ctx, req)
	if err != nil {
		return Outcome{}, docplace.NewOpError("autoplace.detect", err)
	}

	items, warnings := Reconcile(res, raster.MetricsOf(pages), ReconcileOptions{
		CorrectionFactor: p.Config.CorrectionFactor,
		Catalog:          fields,
		Logger:           log,
	})

	if mode == ModeReplace && len(items) == 0 && p.Store.Len() > 0 {
		log.Warn("auto-placement replace skipped", "reason", "empty result", "kept", p.Store.Len())
		warnings = append(warnings, Warning{Kind: EmptyResult, Index: -1, Message: "no items detected; existing layout kept"})
		return Outcome{Warnings: warnings, Pages: len(pages), Metadata: res.Metadata}, nil
	}

	if !p.Store.MergeIf(gen, items, mode == ModeReplace) {
		log.Warn("auto-placement result discarded", "reason", "store changed during detection")
		return Outcome{}, docplace.NewOpError("autoplace.merge", docplace.ErrStaleResult)
	}
	log.Info("auto-placement merged", "items", len(items), "warnings", len(warnings), "mode", mode.String())

	return Outcome{Items: items, Warnings: warnings, Pages: len(pages), Metadata: res.Metadata}, nil
}
