package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/autoplace"
	"github.com/lvillar/docplace/canvas"
	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/editor"
	"github.com/lvillar/docplace/export"
	"github.com/lvillar/docplace/layout"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/render"
	"github.com/lvillar/docplace/roster"
)

// RegisterTools adds the layout tools backed by w to the server.
func RegisterTools(s *Server, w *Workspace) {
	s.AddTool(listFieldsTool(w))
	s.AddTool(listItemsTool(w))
	s.AddTool(placeFieldTool(w))
	s.AddTool(moveItemTool(w))
	s.AddTool(nudgeItemTool(w))
	s.AddTool(setFontSizeTool(w))
	s.AddTool(removeItemTool(w))
	s.AddTool(pageOverlayTool(w))
	s.AddTool(autoPlaceTool(w))
	s.AddTool(exportPDFTool(w))
	s.AddTool(proofSheetTool(w))
	s.AddTool(importRosterTool(w))
}

func schema(required []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

var (
	documentProp = prop("string", "Layout document id")
	itemProp     = prop("integer", "Item id as returned by list_items or place_field")
	sourceProp   = prop("string", "PDF template path or URL. Defaults to the document's pdfTemplateUrl")
)

func listFieldsTool(w *Workspace) Tool {
	return Tool{
		Name:        "list_fields",
		Description: "List the placeable catalog fields of a site: id, label, current value and group.",
		InputSchema: schema([]string{"site"}, map[string]interface{}{
			"site": prop("string", "Site id"),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			siteID, err := requireString(args, "site")
			if err != nil {
				return ToolResult{}, err
			}
			site, err := w.Layouts.LoadSite(ctx, siteID)
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(catalog.Build(site))
		},
	}
}

// itemView is an item as reported to clients, with its session id and the
// text it renders as.
type itemView struct {
	ID          placement.ID `json:"id"`
	Index       int          `json:"index"`
	ComponentID string       `json:"componentId"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	FontSize    float64      `json:"fontSize"`
	PageIndex   int          `json:"pageIndex"`
	Text        string       `json:"text"`
	Unresolved  bool         `json:"unresolved,omitempty"`
}

func viewItems(s *editor.Session) []itemView {
	r := s.Resolver()
	items := s.Items()
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = viewItem(i, it, r, s.DefaultFontSize())
	}
	return out
}

func viewItem(index int, it placement.Item, r placement.Resolver, defaultSize float64) itemView {
	return itemView{
		ID:          it.ID,
		Index:       index,
		ComponentID: it.ComponentID,
		X:           it.X,
		Y:           it.Y,
		FontSize:    it.FontSizeOr(defaultSize),
		PageIndex:   it.PageIndex,
		Text:        it.Text(r),
		Unresolved:  it.Unresolved(r),
	}
}

func listItemsTool(w *Workspace) Tool {
	return Tool{
		Name:        "list_items",
		Description: "List the placed items of a layout document in render order, with positions in millimeters from the top-left page corner.",
		InputSchema: schema([]string{"document"}, map[string]interface{}{
			"document": documentProp,
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			_, s, err := w.openSession(ctx, args, false)
			if err != nil {
				return ToolResult{}, err
			}
			return jsonResult(viewItems(s))
		},
	}
}

func placeFieldTool(w *Workspace) Tool {
	return Tool{
		Name:        "place_field",
		Description: "Place a catalog field on a page. Creates the document when it does not exist yet.",
		InputSchema: schema([]string{"componentId", "x", "y"}, map[string]interface{}{
			"document":    documentProp,
			"site":        prop("string", "Site id; required when creating a document"),
			"componentId": prop("string", "Catalog field id, e.g. s_name or staff_{id}_name"),
			"x":           prop("number", "Horizontal position"),
			"y":           prop("number", "Vertical position"),
			"unit":        map[string]interface{}{"type": "string", "enum": []string{"mm", "px"}, "description": "Unit of x and y (default mm)"},
			"page":        prop("integer", "0-based page index (default 0)"),
			"fontSize":    prop("number", "Font size in points (default 10.5)"),
			"name":        prop("string", "Document name, applied when creating"),
			"template":    prop("string", "Template location, applied when creating"),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			componentID, err := requireString(args, "componentId")
			if err != nil {
				return ToolResult{}, err
			}
			x, err := requireNumber(args, "x")
			if err != nil {
				return ToolResult{}, err
			}
			y, err := requireNumber(args, "y")
			if err != nil {
				return ToolResult{}, err
			}
			docID, s, err := w.openSession(ctx, args, true)
			if err != nil {
				return ToolResult{}, err
			}
			s.SetDocumentMeta(docID, optString(args, "name"), optString(args, "template"))

			page := optInt(args, "page", 0)
			var it placement.Item
			switch unit := optString(args, "unit"); unit {
			case "", "mm":
				it, err = s.PlaceMm(componentID, x, y, page, optNumber(args, "fontSize", 0))
			case "px":
				it, err = s.PlacePx(componentID, canvas.Point{X: x, Y: y}, page, optNumber(args, "fontSize", 0))
			default:
				err = fmt.Errorf("%w: unit %q", docplace.ErrInvalidParam, unit)
			}
			if err != nil {
				return ToolResult{}, err
			}
			if err := w.Save(ctx, s); err != nil {
				return ToolResult{}, err
			}
			return jsonResult(map[string]interface{}{
				"document": docID,
				"item":     viewItem(s.Store().IndexOf(it.ID), it, s.Resolver(), s.DefaultFontSize()),
			})
		},
	}
}

func moveItemTool(w *Workspace) Tool {
	return Tool{
		Name:        "move_item",
		Description: "Drag an item by a delta in canvas pixels (800px page width by default).",
		InputSchema: schema([]string{"document", "item", "dx", "dy"}, map[string]interface{}{
			"document": documentProp,
			"item":     itemProp,
			"dx":       prop("number", "Horizontal delta in pixels"),
			"dy":       prop("number", "Vertical delta in pixels"),
		}),
		Handler: w.itemHandler(func(s *editor.Session, id placement.ID, args map[string]interface{}) error {
			_, err := s.Move(id, canvas.Point{X: optNumber(args, "dx", 0), Y: optNumber(args, "dy", 0)})
			return err
		}),
	}
}

func nudgeItemTool(w *Workspace) Tool {
	return Tool{
		Name:        "nudge_item",
		Description: "Move an item by a delta in millimeters. Positions are not clamped to the page.",
		InputSchema: schema([]string{"document", "item"}, map[string]interface{}{
			"document": documentProp,
			"item":     itemProp,
			"dx":       prop("number", "Horizontal delta in mm"),
			"dy":       prop("number", "Vertical delta in mm"),
		}),
		Handler: w.itemHandler(func(s *editor.Session, id placement.ID, args map[string]interface{}) error {
			if !s.Nudge(id, optNumber(args, "dx", 0), optNumber(args, "dy", 0)) {
				return fmt.Errorf("%w: item %d", docplace.ErrOutOfRange, id)
			}
			return nil
		}),
	}
}

func setFontSizeTool(w *Workspace) Tool {
	return Tool{
		Name:        "set_font_size",
		Description: "Set an item's font size in points, clamped to 4-72.",
		InputSchema: schema([]string{"document", "item", "size"}, map[string]interface{}{
			"document": documentProp,
			"item":     itemProp,
			"size":     prop("number", "Font size in points"),
		}),
		Handler: w.itemHandler(func(s *editor.Session, id placement.ID, args map[string]interface{}) error {
			size, err := requireNumber(args, "size")
			if err != nil {
				return err
			}
			if !s.SetFontSize(id, size) {
				return fmt.Errorf("%w: item %d", docplace.ErrOutOfRange, id)
			}
			return nil
		}),
	}
}

func removeItemTool(w *Workspace) Tool {
	return Tool{
		Name:        "remove_item",
		Description: "Remove an item from the layout.",
		InputSchema: schema([]string{"document", "item"}, map[string]interface{}{
			"document": documentProp,
			"item":     itemProp,
		}),
		Handler: w.itemHandler(func(s *editor.Session, id placement.ID, args map[string]interface{}) error {
			if !s.Remove(id) {
				return fmt.Errorf("%w: item %d", docplace.ErrOutOfRange, id)
			}
			return nil
		}),
	}
}

// itemHandler wraps a mutation of one item: it opens the session, applies fn,
// saves the layout and reports the resulting item list.
func (w *Workspace) itemHandler(fn func(s *editor.Session, id placement.ID, args map[string]interface{}) error) ToolHandler {
	return func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
		_, s, err := w.openSession(ctx, args, false)
		if err != nil {
			return ToolResult{}, err
		}
		n, err := requireNumber(args, "item")
		if err != nil {
			return ToolResult{}, err
		}
		if n < 1 {
			return ToolResult{}, fmt.Errorf("%w: item %g", docplace.ErrInvalidParam, n)
		}
		if err := fn(s, placement.ID(n), args); err != nil {
			return ToolResult{}, err
		}
		if err := w.Save(ctx, s); err != nil {
			return ToolResult{}, err
		}
		return jsonResult(viewItems(s))
	}
}

func pageOverlayTool(w *Workspace) Tool {
	return Tool{
		Name:        "page_overlay",
		Description: "Render a page with its placed labels as a PNG. The page background is drawn when a template is available.",
		InputSchema: schema([]string{"document"}, map[string]interface{}{
			"document": documentProp,
			"page":     prop("integer", "0-based page index (default 0)"),
			"print":    prop("boolean", "Render at print resolution"),
			"source":   sourceProp,
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			_, s, err := w.openSession(ctx, args, false)
			if err != nil {
				return ToolResult{}, err
			}
			page := optInt(args, "page", 0)

			var background image.Image
			if w.Rasterizer != nil {
				if pdf, err := w.Source(ctx, s, optString(args, "source")); err == nil {
					pages, err := w.Rasterizer.Render(ctx, pdf, w.Config.RasterDPI)
					if err != nil {
						return ToolResult{}, err
					}
					if page >= 0 && page < len(pages) {
						background = pages[page].Image
					}
				}
			}

			img, err := s.Overlay(page, background, optBool(args, "print"))
			if err != nil {
				return ToolResult{}, err
			}
			var buf bytes.Buffer
			if err := render.EncodePNG(&buf, img); err != nil {
				return ToolResult{}, err
			}
			return ToolResult{Content: []ContentBlock{{
				Type:     "image",
				MIMEType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
			}}}, nil
		},
	}
}

func autoPlaceTool(w *Workspace) Tool {
	return Tool{
		Name:        "auto_place",
		Description: "Detect where catalog fields belong on the template pages with the vision endpoint and merge the result into the layout.",
		InputSchema: schema([]string{"document"}, map[string]interface{}{
			"document": documentProp,
			"source":   sourceProp,
			"mode":     map[string]interface{}{"type": "string", "enum": []string{"append", "replace"}, "description": "append (default) or replace existing items"},
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			if w.Rasterizer == nil {
				return ToolResult{}, fmt.Errorf("%w: no rasterizer configured", docplace.ErrInvalidParam)
			}
			mode, err := autoplace.ParseMode(optString(args, "mode"))
			if err != nil {
				return ToolResult{}, err
			}
			_, s, err := w.openSession(ctx, args, false)
			if err != nil {
				return ToolResult{}, err
			}
			pdf, err := w.Source(ctx, s, optString(args, "source"))
			if err != nil {
				return ToolResult{}, err
			}
			p := autoplace.Pipeline{Rasterizer: w.Rasterizer, Detector: w.detector(), Config: w.Config}
			out, err := s.AutoPlace(ctx, p, pdf, mode)
			if err != nil {
				return ToolResult{}, err
			}
			if err := w.Save(ctx, s); err != nil {
				return ToolResult{}, err
			}
			return jsonResult(out)
		},
	}
}

func exportPDFTool(w *Workspace) Tool {
	return Tool{
		Name:        "export_pdf",
		Description: "Burn the placed items into a copy of the template. Writes outputPath when given, otherwise returns the PDF as base64.",
		InputSchema: schema([]string{"document"}, map[string]interface{}{
			"document":   documentProp,
			"source":     sourceProp,
			"outputPath": prop("string", "File or directory to write. A directory receives the document's file name"),
			"qr":         prop("string", "Optional content for a QR stamp in the bottom-right corner of page 1"),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			_, s, err := w.openSession(ctx, args, false)
			if err != nil {
				return ToolResult{}, err
			}
			pdf, err := w.Source(ctx, s, optString(args, "source"))
			if err != nil {
				return ToolResult{}, err
			}

			var opts export.Options
			if qr := optString(args, "qr"); qr != "" {
				g := s.Geometry()
				opts.Stamps = append(opts.Stamps, export.Stamp{Kind: export.StampQR, Content: qr, X: g.WidthMm - 30, Y: g.HeightMm - 30, Width: 20})
			}
			out, rep, err := s.Export(ctx, w.Exporter, pdf, opts)
			if err != nil {
				return ToolResult{}, err
			}
			report, _ := json.MarshalIndent(rep, "", "  ")

			if path := optString(args, "outputPath"); path != "" {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					path = filepath.Join(path, export.FileName(s.Document().Name))
				}
				if err := os.WriteFile(path, out, 0o644); err != nil {
					return ToolResult{}, fmt.Errorf("writing file: %w", err)
				}
				return textResult(fmt.Sprintf("PDF exported: %s (%d bytes)\n%s", path, len(out), report)), nil
			}
			return textResult(fmt.Sprintf("PDF exported (%d bytes)\n%s\nBase64 data:\n%s", len(out), report, base64.StdEncoding.EncodeToString(out))), nil
		},
	}
}

func proofSheetTool(w *Workspace) Tool {
	return Tool{
		Name:        "proof_sheet",
		Description: "Render an A4 table of every placed item and the text it will be exported with.",
		InputSchema: schema([]string{"document"}, map[string]interface{}{
			"document":   documentProp,
			"outputPath": prop("string", "Optional file path; returns base64 when omitted"),
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			_, s, err := w.openSession(ctx, args, false)
			if err != nil {
				return ToolResult{}, err
			}
			var buf bytes.Buffer
			if err := layout.WriteSheet(&buf, s.Document(), s.Resolver(), layout.SheetOptions{DefaultFontSize: s.DefaultFontSize()}); err != nil {
				return ToolResult{}, err
			}
			if path := optString(args, "outputPath"); path != "" {
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return ToolResult{}, fmt.Errorf("writing file: %w", err)
				}
				return textResult(fmt.Sprintf("Proof sheet written: %s (%d bytes)", path, buf.Len())), nil
			}
			return textResult(fmt.Sprintf("Proof sheet (%d bytes). Base64 data:\n%s", buf.Len(), base64.StdEncoding.EncodeToString(buf.Bytes()))), nil
		},
	}
}

func importRosterTool(w *Workspace) Tool {
	return Tool{
		Name:        "import_roster",
		Description: "Replace a site's staff or vehicle list from an .xlsx or .xls spreadsheet whose first row is a header (English or Japanese).",
		InputSchema: schema([]string{"site", "path", "kind"}, map[string]interface{}{
			"site": prop("string", "Site id"),
			"path": prop("string", "Spreadsheet path"),
			"kind": map[string]interface{}{"type": "string", "enum": []string{"staff", "vehicles"}},
		}),
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			siteID, err := requireString(args, "site")
			if err != nil {
				return ToolResult{}, err
			}
			path, err := requireString(args, "path")
			if err != nil {
				return ToolResult{}, err
			}
			site, err := w.Layouts.LoadSite(ctx, siteID)
			if err != nil {
				return ToolResult{}, err
			}

			f, err := os.Open(path)
			if err != nil {
				return ToolResult{}, fmt.Errorf("opening roster: %w", err)
			}
			defer f.Close()
			rows, err := roster.ReadRows(f, path)
			if err != nil {
				return ToolResult{}, err
			}

			var count int
			switch kind := optString(args, "kind"); kind {
			case "staff":
				staff, err := roster.ImportStaff(rows)
				if err != nil {
					return ToolResult{}, err
				}
				site, count = roster.Apply(site, staff, nil), len(staff)
			case "vehicles":
				vehicles, err := roster.ImportVehicles(rows)
				if err != nil {
					return ToolResult{}, err
				}
				site, count = roster.Apply(site, nil, vehicles), len(vehicles)
			default:
				return ToolResult{}, fmt.Errorf("%w: kind %q", docplace.ErrInvalidParam, kind)
			}
			if err := w.UpdateSite(ctx, site); err != nil {
				return ToolResult{}, err
			}
			return textResult(fmt.Sprintf("Imported %d %s rows into site %s", count, optString(args, "kind"), siteID)), nil
		},
	}
}

func (w *Workspace) openSession(ctx context.Context, args map[string]interface{}, create bool) (string, *editor.Session, error) {
	return w.Session(ctx, optString(args, "document"), optString(args, "site"), create)
}

func jsonResult(v interface{}) (ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding result: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(s string) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: s}}}
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("missing '%s' argument", key)
	}
	return v, nil
}

func optString(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func requireNumber(args map[string]interface{}, key string) (float64, error) {
	v, ok := args[key].(float64)
	if !ok {
		return 0, fmt.Errorf("missing '%s' argument", key)
	}
	return v, nil
}

func optNumber(args map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func optInt(args map[string]interface{}, key string, fallback int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func optBool(args map[string]interface{}, key string) bool {
	v, _ := args[key].(bool)
	return v
}
