package docplace

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 800.0, cfg.RenderWidthPx)
	assert.Equal(t, 210.0, cfg.PageWidthMm)
	assert.Equal(t, 297.0, cfg.PageHeightMm)
	assert.Equal(t, 10.5, cfg.DefaultFontSize)
	assert.Equal(t, 2.0, cfg.PrintScale)
	assert.Equal(t, 1.0, cfg.CorrectionFactor)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "layouts", cfg.LayoutDir)
	assert.NotNil(t, cfg.Log())
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithRenderWidth(1000),
		WithPageSizeMm(216, 279),
		WithPrintScale(3),
		WithCorrectionFactor(0.98),
		WithDefaultFontSize(12),
		WithVision("http://vision.local", "k"),
		WithTimeouts(time.Second, 2*time.Second),
	)
	assert.Equal(t, 1000.0, cfg.RenderWidthPx)
	assert.Equal(t, 216.0, cfg.PageWidthMm)
	assert.Equal(t, 3.0, cfg.PrintScale)
	assert.Equal(t, 0.98, cfg.CorrectionFactor)
	assert.Equal(t, 12.0, cfg.DefaultFontSize)
	assert.Equal(t, "http://vision.local", cfg.VisionEndpoint)
	assert.Equal(t, 2*time.Second, cfg.DetectTimeout)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DOCPLACE_RENDER_WIDTH", "1200")
	t.Setenv("DOCPLACE_CORRECTION_FACTOR", "not-a-number")
	t.Setenv("DOCPLACE_FETCH_TIMEOUT", "5s")
	t.Setenv("DOCPLACE_VISION_API_KEY", " secret ")
	t.Setenv("DOCPLACE_LAYOUT_DIR", "/srv/layouts")
	t.Setenv("DOCPLACE_DEFAULT_FONT_SIZE", "9")

	cfg := ConfigFromEnv(WithLayoutDir("/override"))
	assert.Equal(t, 1200.0, cfg.RenderWidthPx)
	assert.Equal(t, 1.0, cfg.CorrectionFactor, "invalid values keep the default")
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "secret", cfg.VisionAPIKey)
	assert.Equal(t, 9.0, cfg.DefaultFontSize)
	assert.Equal(t, "/override", cfg.LayoutDir, "options win over the environment")
}

func TestOpError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewOpError("Drop", ErrNoGesture))
	assert.True(t, errors.Is(err, ErrNoGesture))
	assert.EqualError(t, NewOpError("Drop", ErrNoGesture), "docplace.Drop: docplace: no drag gesture in progress")
	assert.Equal(t, "docplace.Export: unknown error", NewOpError("Export", nil).Error())

	var op *OpError
	assert.True(t, errors.As(err, &op))
	assert.Equal(t, "Drop", op.Op)
}
