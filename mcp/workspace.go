package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/autoplace"
	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/editor"
	"github.com/lvillar/docplace/export"
	"github.com/lvillar/docplace/layout"
	"github.com/lvillar/docplace/raster"
)

// Workspace holds the open editing sessions behind the tools. Sessions stay
// open for the life of the server, so item ids returned by one call remain
// valid in the next.
type Workspace struct {
	Config     docplace.Config
	Layouts    *layout.FileRepository
	Rasterizer raster.Rasterizer  // nil disables auto_place and page backgrounds
	Detector   autoplace.Detector // nil means an HTTP detector built from Config
	Exporter   *export.Exporter

	mu       sync.Mutex
	sessions map[string]*editor.Session
}

// NewWorkspace returns a workspace storing layouts under cfg.LayoutDir.
func NewWorkspace(cfg docplace.Config, r raster.Rasterizer) *Workspace {
	return &Workspace{
		Config:     cfg,
		Layouts:    layout.NewFileRepository(cfg.LayoutDir),
		Rasterizer: r,
		Exporter:   export.New(cfg),
		sessions:   make(map[string]*editor.Session),
	}
}

func (w *Workspace) detector() autoplace.Detector {
	if w.Detector != nil {
		return w.Detector
	}
	return autoplace.NewHTTPDetector(w.Config.VisionEndpoint, w.Config.VisionAPIKey, w.Config.DetectTimeout)
}

// Session returns the open session for docID, loading it on first use. When
// create is set a missing document is started empty; an empty docID then
// gets a fresh id. A non-empty siteID rebinds the session to that site.
func (w *Workspace) Session(ctx context.Context, docID, siteID string, create bool) (string, *editor.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if docID == "" {
		if !create {
			return "", nil, fmt.Errorf("%w: document id required", docplace.ErrInvalidParam)
		}
		docID = uuid.NewString()
	}

	if s, ok := w.sessions[docID]; ok {
		if siteID != "" && (s.Site() == nil || s.Site().ID != siteID) {
			site, err := w.Layouts.LoadSite(ctx, siteID)
			if err != nil {
				return "", nil, err
			}
			s.SetSite(site)
		}
		return docID, s, nil
	}

	doc, err := w.Layouts.Load(ctx, docID)
	switch {
	case errors.Is(err, layout.ErrNotFound) && create:
		if err := layout.ValidateID(docID); err != nil {
			return "", nil, err
		}
		doc = &layout.Document{ID: docID, SiteID: siteID}
	case err != nil:
		return "", nil, err
	}

	if siteID == "" {
		siteID = doc.SiteID
	}
	var site *catalog.Site
	if siteID != "" {
		if site, err = w.Layouts.LoadSite(ctx, siteID); err != nil {
			return "", nil, err
		}
	}

	pages := 1
	for _, it := range doc.Items {
		if it.PageIndex+1 > pages {
			pages = it.PageIndex + 1
		}
	}
	s := editor.New(site, doc, w.Config, editor.WithPageCount(pages))
	if src := doc.Template(); src != "" && w.Rasterizer != nil {
		if pdf, err := export.Fetch(ctx, src, w.Config.FetchTimeout); err == nil {
			if _, err := s.LoadSource(ctx, w.Rasterizer, pdf); err != nil {
				w.Config.Log().Warn("mcp: reading template pages", "document", docID, "error", err)
			}
		} else {
			w.Config.Log().Warn("mcp: fetching template", "document", docID, "error", err)
		}
	}
	w.sessions[docID] = s
	return docID, s, nil
}

// Save persists the session's full layout record.
func (w *Workspace) Save(ctx context.Context, s *editor.Session) error {
	return w.Layouts.Save(ctx, s.Document())
}

// Source returns the template bytes for s: src when given, otherwise the
// document's own template location.
func (w *Workspace) Source(ctx context.Context, s *editor.Session, src string) ([]byte, error) {
	if src == "" {
		src = s.Document().Template()
	}
	return export.Fetch(ctx, src, w.Config.FetchTimeout)
}

// UpdateSite stores site and rebinds every open session that uses it.
func (w *Workspace) UpdateSite(ctx context.Context, site *catalog.Site) error {
	if err := w.Layouts.SaveSite(ctx, site); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sessions {
		if cur := s.Site(); cur != nil && cur.ID == site.ID {
			s.SetSite(site)
		}
	}
	return nil
}
