// Package docplace places labelled business-data fields onto fixed-page PDF
// templates and burns them into exported documents.
//
// The root package holds the shared configuration and error values. The work
// is split across subpackages:
//
//   - units: pixel, millimeter and point conversions for a page geometry
//   - catalog: placeable fields derived from a site record
//   - placement: the ordered store of placed items
//   - canvas: the drag-and-drop and keyboard controller
//   - render: on-screen and print overlays
//   - raster: page sizes and images via pdfium
//   - autoplace: vision-assisted placement
//   - export: text burn-in onto the source PDF
//   - layout: stored layout documents and proof sheets
//   - roster: staff and vehicle import from spreadsheets
//   - editor: one editing session over a layout
//   - mcp: the editing operations as MCP tools
package docplace

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the settings shared by the editor, the auto-placement
// pipeline and the exporter.
type Config struct {
	RenderWidthPx    float64       // fixed logical canvas width
	PageWidthMm      float64       // physical page width used for editing
	PageHeightMm     float64       // physical page height used for editing
	DefaultFontSize  float64       // points
	PrintScale       float64       // resolution multiplier for print renders
	CorrectionFactor float64       // scalar applied to auto-detected positions
	RasterDPI        float64       // DPI used to rasterize pages for detection
	FetchTimeout     time.Duration // bound on fetching template bytes
	DetectTimeout    time.Duration // bound on the vision call
	FontPath         string        // optional UTF-8 TTF used on export
	VisionEndpoint   string
	VisionAPIKey     string
	LayoutDir        string
	Logger           *slog.Logger
}

// Option is a functional option for configuring a Config via NewConfig.
type Option func(*Config)

// WithRenderWidth sets the fixed logical canvas width in pixels.
func WithRenderWidth(px float64) Option {
	return func(c *Config) {
		c.RenderWidthPx = px
	}
}

// WithPageSizeMm sets the physical page size used while editing.
func WithPageSizeMm(width, height float64) Option {
	return func(c *Config) {
		c.PageWidthMm = width
		c.PageHeightMm = height
	}
}

// WithPrintScale sets the resolution multiplier for print renders.
func WithPrintScale(scale float64) Option {
	return func(c *Config) {
		c.PrintScale = scale
	}
}

// WithDefaultFontSize sets the size in points used for items without one.
func WithDefaultFontSize(pt float64) Option {
	return func(c *Config) {
		c.DefaultFontSize = pt
	}
}

// WithCorrectionFactor sets the scalar applied to both axes of auto-detected
// positions.
func WithCorrectionFactor(f float64) Option {
	return func(c *Config) {
		c.CorrectionFactor = f
	}
}

// WithRasterDPI sets the DPI used to rasterize pages for detection.
func WithRasterDPI(dpi float64) Option {
	return func(c *Config) {
		c.RasterDPI = dpi
	}
}

// WithFontPath sets a TrueType font used to draw exported text.
func WithFontPath(path string) Option {
	return func(c *Config) {
		c.FontPath = path
	}
}

// WithVision sets the vision endpoint and its API key.
func WithVision(endpoint, apiKey string) Option {
	return func(c *Config) {
		c.VisionEndpoint = endpoint
		c.VisionAPIKey = apiKey
	}
}

// WithLayoutDir sets the directory holding layout and site records.
func WithLayoutDir(dir string) Option {
	return func(c *Config) {
		c.LayoutDir = dir
	}
}

// WithTimeouts sets the fetch and detection timeouts.
func WithTimeouts(fetch, detect time.Duration) Option {
	return func(c *Config) {
		c.FetchTimeout = fetch
		c.DetectTimeout = detect
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// NewConfig returns a Config with defaults applied, then opts.
// If no options are specified, editing uses an 800px canvas over A4.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		RenderWidthPx:    800,
		PageWidthMm:      210,
		PageHeightMm:     297,
		DefaultFontSize:  10.5,
		PrintScale:       2,
		CorrectionFactor: 1.0,
		RasterDPI:        200,
		FetchTimeout:     60 * time.Second,
		DetectTimeout:    120 * time.Second,
		LayoutDir:        "layouts",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// ConfigFromEnv returns NewConfig defaults overridden by DOCPLACE_* variables,
// then opts.
func ConfigFromEnv(opts ...Option) Config {
	cfg := NewConfig()
	cfg.RenderWidthPx = envFloat("DOCPLACE_RENDER_WIDTH", cfg.RenderWidthPx)
	cfg.PrintScale = envFloat("DOCPLACE_PRINT_SCALE", cfg.PrintScale)
	cfg.DefaultFontSize = envFloat("DOCPLACE_DEFAULT_FONT_SIZE", cfg.DefaultFontSize)
	cfg.CorrectionFactor = envFloat("DOCPLACE_CORRECTION_FACTOR", cfg.CorrectionFactor)
	cfg.RasterDPI = envFloat("DOCPLACE_RASTER_DPI", cfg.RasterDPI)
	cfg.FetchTimeout = envDuration("DOCPLACE_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.DetectTimeout = envDuration("DOCPLACE_DETECT_TIMEOUT", cfg.DetectTimeout)
	cfg.FontPath = envOrDefault("DOCPLACE_FONT_PATH", cfg.FontPath)
	cfg.VisionEndpoint = envOrDefault("DOCPLACE_VISION_ENDPOINT", cfg.VisionEndpoint)
	cfg.VisionAPIKey = strings.TrimSpace(os.Getenv("DOCPLACE_VISION_API_KEY"))
	cfg.LayoutDir = envOrDefault("DOCPLACE_LAYOUT_DIR", cfg.LayoutDir)
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Log returns the configured logger or slog.Default.
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
