package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Colors used for overlay text.
var (
	LabelColor      = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}
	UnresolvedColor = color.RGBA{R: 0xc0, G: 0x1c, B: 0x28, A: 0xff}
)

type faceCache struct {
	mu    sync.Mutex
	font  *opentype.Font
	err   error
	once  sync.Once
	faces map[int]font.Face
}

var faces = &faceCache{faces: make(map[int]font.Face)}

// face returns a goregular face at px, quantized to quarter pixels.
func (c *faceCache) face(px float64) (font.Face, error) {
	c.once.Do(func() {
		c.font, c.err = opentype.Parse(goregular.TTF)
	})
	if c.err != nil {
		return nil, c.err
	}
	key := int(math.Round(px * 4))
	if key < 1 {
		key = 1
	}
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(key) / 4,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	c.faces[key] = f
	return f, nil
}

// textWidth measures s at px. Glyphs missing from the face still advance, so
// the estimate never collapses to zero for non-Latin text.
func textWidth(s string, px float64) float64 {
	faces.mu.Lock()
	defer faces.mu.Unlock()
	f, err := faces.face(px)
	if err != nil {
		return float64(len([]rune(s))) * px * 0.6
	}
	w := float64(font.MeasureString(f, s)) / 64
	if floor := float64(len([]rune(s))) * px * 0.5; w < floor {
		w = floor
	}
	return w
}

// Compose draws frame over page. The page raster is scaled to the frame's
// pixel size; a nil page yields a white sheet.
func Compose(page image.Image, frame Frame) (*image.RGBA, error) {
	w := int(math.Round(frame.Width))
	h := int(math.Round(frame.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid frame size %gx%g", frame.Width, frame.Height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if page != nil {
		draw.CatmullRom.Scale(dst, dst.Bounds(), page, page.Bounds(), draw.Over, nil)
	}

	faces.mu.Lock()
	defer faces.mu.Unlock()
	for _, l := range frame.Labels {
		f, err := faces.face(l.FontPx)
		if err != nil {
			return nil, fmt.Errorf("render: loading face: %w", err)
		}
		src := image.NewUniform(LabelColor)
		if l.Unresolved {
			src = image.NewUniform(UnresolvedColor)
		}
		d := &font.Drawer{
			Dst:  dst,
			Src:  src,
			Face: f,
			Dot:  fixed.Point26_6{X: toFixed(l.X), Y: toFixed(l.Y) + f.Metrics().Ascent},
		}
		d.DrawString(l.Text)
	}
	return dst, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("render: encoding png: %w", err)
	}
	return nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
