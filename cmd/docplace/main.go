// Command docplace edits, previews and exports field layouts over PDF
// templates, and serves the same operations to AI assistants over MCP.
//
// # Installation
//
//	go install github.com/lvillar/docplace/cmd/docplace@latest
//
// # Commands
//
//   - fields: list the placeable catalog fields of a site
//   - place: place a field on a page, creating the layout when needed
//   - items: list the placed items of a layout
//   - preview: render a page with its labels to PNG
//   - autoplace: detect field positions on the template and merge them
//   - export: burn the layout into a copy of the template
//   - sheet: write an A4 proof sheet of every placed item
//   - import: replace a site's staff or vehicle list from a spreadsheet
//   - mcp: serve the tools over stdio
//
// Settings are read from DOCPLACE_* variables and an optional .env file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/autoplace"
	"github.com/lvillar/docplace/canvas"
	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/editor"
	"github.com/lvillar/docplace/export"
	"github.com/lvillar/docplace/internal/envutil"
	"github.com/lvillar/docplace/layout"
	"github.com/lvillar/docplace/mcp"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/raster"
	"github.com/lvillar/docplace/render"
	"github.com/lvillar/docplace/roster"
)

func main() {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "docplace: reading .env: %v\n", err)
	}

	cmd := &cli.Command{
		Name:  "docplace",
		Usage: "Place business-data fields on PDF templates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "layout-dir",
				Usage: "Directory holding layout documents and sites (default: $DOCPLACE_LAYOUT_DIR or ./layouts)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug messages to stderr",
			},
		},
		Commands: []*cli.Command{
			fieldsCommand(),
			placeCommand(),
			itemsCommand(),
			previewCommand(),
			autoplaceCommand(),
			exportCommand(),
			sheetCommand(),
			importCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "docplace: %v\n", err)
		os.Exit(1)
	}
}

func config(cmd *cli.Command) docplace.Config {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	opts := []docplace.Option{docplace.WithLogger(logger)}
	if dir := cmd.String("layout-dir"); dir != "" {
		opts = append(opts, docplace.WithLayoutDir(dir))
	}
	return docplace.ConfigFromEnv(opts...)
}

// workspace opens the layout store. withRaster also starts pdfium; the
// returned close func releases it.
func workspace(cmd *cli.Command, withRaster bool) (*mcp.Workspace, func(), error) {
	cfg := config(cmd)
	if !withRaster {
		return mcp.NewWorkspace(cfg, nil), func() {}, nil
	}
	r, err := raster.NewPdfium(raster.Config{})
	if err != nil {
		return nil, nil, err
	}
	return mcp.NewWorkspace(cfg, r), func() { _ = r.Close() }, nil
}

// Flags hold parsed state, so each command gets its own instances.
func documentFlag() cli.Flag {
	return &cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Layout document id", Required: true}
}

func sourceFlag() cli.Flag {
	return &cli.StringFlag{Name: "source", Usage: "PDF template path or URL (default: the document's template)"}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path (default: stdout)"}
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Written %s (%d bytes)\n", path, len(data))
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fields",
		Usage: "List the placeable catalog fields of a site",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "site", Aliases: []string{"s"}, Usage: "Site id", Required: true},
			&cli.BoolFlag{Name: "groups", Usage: "List field groups only"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			site, err := w.Layouts.LoadSite(ctx, cmd.String("site"))
			if err != nil {
				return err
			}
			fields := catalog.Build(site)
			if cmd.Bool("groups") {
				return printJSON(catalog.Groups(fields))
			}
			return printJSON(fields)
		},
	}
}

func placeCommand() *cli.Command {
	return &cli.Command{
		Name:  "place",
		Usage: "Place a field at a position measured from the top-left page corner",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Layout document id (default: a new id)"},
			&cli.StringFlag{Name: "site", Aliases: []string{"s"}, Usage: "Site id"},
			&cli.StringFlag{Name: "field", Aliases: []string{"f"}, Usage: "Catalog field id", Required: true},
			&cli.FloatFlag{Name: "x", Usage: "Horizontal position", Required: true},
			&cli.FloatFlag{Name: "y", Usage: "Vertical position", Required: true},
			&cli.StringFlag{Name: "unit", Usage: "mm, or px on the 800px editing canvas", Value: "mm"},
			&cli.IntFlag{Name: "page", Usage: "0-based page index"},
			&cli.FloatFlag{Name: "font-size", Usage: "Font size in points"},
			&cli.StringFlag{Name: "name", Usage: "Document name"},
			&cli.StringFlag{Name: "template", Usage: "PDF template path or URL"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, cmd.String("template") != "")
			if err != nil {
				return err
			}
			defer done()
			id, s, err := w.Session(ctx, cmd.String("document"), cmd.String("site"), true)
			if err != nil {
				return err
			}
			s.SetDocumentMeta(id, cmd.String("name"), cmd.String("template"))
			if src := cmd.String("template"); src != "" && w.Rasterizer != nil {
				// Page count and geometry come from the template.
				pdf, err := w.Source(ctx, s, src)
				if err != nil {
					return err
				}
				if _, err := s.LoadSource(ctx, w.Rasterizer, pdf); err != nil {
					return err
				}
			}
			it, err := placeAt(s, cmd)
			if err != nil {
				return err
			}
			if err := w.Save(ctx, s); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Placed %s on page %d of document %s\n", it.ComponentID, it.PageIndex+1, id)
			return nil
		},
	}
}

func placeAt(s *editor.Session, cmd *cli.Command) (placement.Item, error) {
	field, page, size := cmd.String("field"), cmd.Int("page"), cmd.Float("font-size")
	switch unit := cmd.String("unit"); unit {
	case "mm":
		return s.PlaceMm(field, cmd.Float("x"), cmd.Float("y"), page, size)
	case "px":
		return s.PlacePx(field, canvas.Point{X: cmd.Float("x"), Y: cmd.Float("y")}, page, size)
	default:
		return placement.Item{}, fmt.Errorf("%w: unit %q", docplace.ErrInvalidParam, unit)
	}
}

func itemsCommand() *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "List the placed items of a layout document",
		Flags: []cli.Flag{documentFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			doc, err := w.Layouts.Load(ctx, cmd.String("document"))
			if err != nil {
				return err
			}
			return printJSON(doc.Items)
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Render a page with its placed labels to PNG",
		Flags: []cli.Flag{
			documentFlag(),
			sourceFlag(),
			outputFlag(),
			&cli.IntFlag{Name: "page", Usage: "0-based page index"},
			&cli.BoolFlag{Name: "print", Usage: "Render at print resolution"},
			&cli.BoolFlag{Name: "blank", Usage: "Skip the page background"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, !cmd.Bool("blank"))
			if err != nil {
				return err
			}
			defer done()
			_, s, err := w.Session(ctx, cmd.String("document"), "", false)
			if err != nil {
				return err
			}
			page := cmd.Int("page")

			var pages []raster.PageImage
			if w.Rasterizer != nil {
				pdf, err := w.Source(ctx, s, cmd.String("source"))
				if err != nil {
					return err
				}
				if pages, err = w.Rasterizer.Render(ctx, pdf, w.Config.RasterDPI); err != nil {
					return err
				}
			}
			img, err := s.Overlay(page, pageImage(pages, page), cmd.Bool("print"))
			if err != nil {
				return err
			}
			f := os.Stdout
			if path := cmd.String("output"); path != "" {
				if f, err = os.Create(path); err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
			}
			return render.EncodePNG(f, img)
		},
	}
}

func autoplaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplace",
		Usage: "Detect field positions on the template and merge them into the layout",
		Flags: []cli.Flag{
			documentFlag(),
			sourceFlag(),
			&cli.StringFlag{Name: "mode", Usage: "append or replace", Value: "append"},
			&cli.StringFlag{Name: "detector", Usage: "vision (HTTP endpoint) or ocr (requires the ocr build tag)", Value: "vision"},
			&cli.StringFlag{Name: "lang", Usage: "OCR languages", Value: "jpn+eng"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mode, err := autoplace.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			w, done, err := workspace(cmd, true)
			if err != nil {
				return err
			}
			defer done()
			switch d := cmd.String("detector"); d {
			case "vision":
			case "ocr":
				w.Detector = autoplace.NewOCRDetector(cmd.String("lang"))
			default:
				return fmt.Errorf("%w: detector %q", docplace.ErrInvalidParam, d)
			}

			_, s, err := w.Session(ctx, cmd.String("document"), "", false)
			if err != nil {
				return err
			}
			pdf, err := w.Source(ctx, s, cmd.String("source"))
			if err != nil {
				return err
			}
			detector := w.Detector
			if detector == nil {
				detector = autoplace.NewHTTPDetector(w.Config.VisionEndpoint, w.Config.VisionAPIKey, w.Config.DetectTimeout)
			}
			out, err := s.AutoPlace(ctx, autoplace.Pipeline{Rasterizer: w.Rasterizer, Detector: detector, Config: w.Config}, pdf, mode)
			if err != nil {
				return err
			}
			if err := w.Save(ctx, s); err != nil {
				return err
			}
			for _, warn := range out.Warnings {
				w.Config.Log().Warn("autoplace", "warning", warn.String())
			}
			return printJSON(out)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Burn the layout into a copy of the template",
		Flags: []cli.Flag{
			documentFlag(),
			sourceFlag(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file or directory (default: the document's file name)"},
			&cli.StringFlag{Name: "qr", Usage: "Content of a QR stamp in the bottom-right corner of page 1"},
			&cli.StringFlag{Name: "code128", Usage: "Content of a Code 128 stamp along the bottom of page 1"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			_, s, err := w.Session(ctx, cmd.String("document"), "", false)
			if err != nil {
				return err
			}
			pdf, err := w.Source(ctx, s, cmd.String("source"))
			if err != nil {
				return err
			}

			g := s.Geometry()
			var opts export.Options
			if qr := cmd.String("qr"); qr != "" {
				opts.Stamps = append(opts.Stamps, export.Stamp{Kind: export.StampQR, Content: qr, X: g.WidthMm - 30, Y: g.HeightMm - 30, Width: 20})
			}
			if code := cmd.String("code128"); code != "" {
				opts.Stamps = append(opts.Stamps, export.Stamp{Kind: export.StampCode128, Content: code, X: 10, Y: g.HeightMm - 20, Width: 60, Height: 10})
			}
			out, rep, err := s.Export(ctx, w.Exporter, pdf, opts)
			if err != nil {
				return err
			}
			for _, sk := range rep.Skipped {
				w.Config.Log().Warn("export: item skipped", "item", sk)
			}

			path := cmd.String("output")
			if path == "" {
				path = export.FileName(s.Document().Name)
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, export.FileName(s.Document().Name))
			}
			fmt.Fprintf(os.Stderr, "Drew %d items over %d pages (%d blank)\n", rep.Drawn, rep.Pages, rep.Blank)
			return writeOutput(path, out)
		},
	}
}

func sheetCommand() *cli.Command {
	return &cli.Command{
		Name:  "sheet",
		Usage: "Write an A4 proof sheet listing every placed item",
		Flags: []cli.Flag{documentFlag(), outputFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			_, s, err := w.Session(ctx, cmd.String("document"), "", false)
			if err != nil {
				return err
			}
			opts := layout.SheetOptions{DefaultFontSize: s.DefaultFontSize()}
			if path := w.Config.FontPath; path != "" {
				if opts.FontBytes, err = os.ReadFile(path); err != nil {
					return fmt.Errorf("reading font: %w", err)
				}
			}
			f := os.Stdout
			if path := cmd.String("output"); path != "" {
				if f, err = os.Create(path); err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
			}
			return layout.WriteSheet(f, s.Document(), s.Resolver(), opts)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Replace a site's staff or vehicle list from an .xlsx or .xls file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "site", Aliases: []string{"s"}, Usage: "Site id", Required: true},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Spreadsheet path", Required: true},
			&cli.StringFlag{Name: "kind", Usage: "staff or vehicles", Value: "staff"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w, done, err := workspace(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			site, err := w.Layouts.LoadSite(ctx, cmd.String("site"))
			if err != nil {
				return err
			}
			path := cmd.String("file")
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening roster: %w", err)
			}
			defer f.Close()
			rows, err := roster.ReadRows(f, path)
			if err != nil {
				return err
			}

			var count int
			switch kind := cmd.String("kind"); kind {
			case "staff":
				staff, err := roster.ImportStaff(rows)
				if err != nil {
					return err
				}
				site, count = roster.Apply(site, staff, nil), len(staff)
			case "vehicles":
				vehicles, err := roster.ImportVehicles(rows)
				if err != nil {
					return err
				}
				site, count = roster.Apply(site, nil, vehicles), len(vehicles)
			default:
				return fmt.Errorf("%w: kind %q", docplace.ErrInvalidParam, kind)
			}
			if err := w.UpdateSite(ctx, site); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Imported %d %s rows into site %s\n", count, cmd.String("kind"), site.ID)
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the layout tools over stdio (Model Context Protocol)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-raster", Usage: "Do not start pdfium; disables auto_place and page backgrounds"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config(cmd)
			var r raster.Rasterizer
			if !cmd.Bool("no-raster") {
				p, err := raster.NewPdfium(raster.Config{MaxInstances: 2})
				if err != nil {
					cfg.Log().Warn("mcp: pdfium unavailable, continuing without page rendering", "error", err)
				} else {
					defer p.Close()
					r = p
				}
			}
			w := mcp.NewWorkspace(cfg, r)
			server := mcp.NewServer(cfg.Log())
			mcp.RegisterTools(server, w)
			mcp.RegisterResources(server, w)
			return server.Run(ctx)
		},
	}
}

func pageImage(pages []raster.PageImage, i int) image.Image {
	if i < 0 || i >= len(pages) {
		return nil
	}
	return pages[i].Image
}
