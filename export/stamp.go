package export

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"strconv"
	"sync/atomic"

	"codeberg.org/go-pdf/fpdf"
	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"

	"github.com/lvillar/docplace/units"
)

// StampKind selects the code symbology.
type StampKind string

const (
	StampQR      StampKind = "qr"
	StampCode128 StampKind = "code128"
)

// Stamp is a machine-readable code drawn on an exported page, typically the
// layout id so a printed form can be traced back to its record. Position and
// size are millimeters in the editing geometry, origin top-left.
type Stamp struct {
	Kind      StampKind `json:"kind"`
	Content   string    `json:"content"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height,omitempty"` // code128 only; qr is square
	PageIndex int       `json:"pageIndex,omitempty"`
}

var stampSeq atomic.Uint64

// encodeStamp renders s to a PNG of roughly pxPerMm resolution.
func encodeStamp(s Stamp, wMm, hMm float64) ([]byte, error) {
	var (
		code barcode.Barcode
		err  error
	)
	switch s.Kind {
	case StampQR, "":
		code, err = qr.Encode(s.Content, qr.M, qr.Auto)
	case StampCode128:
		code, err = code128.Encode(s.Content)
	default:
		return nil, fmt.Errorf("unknown stamp kind %q", s.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", s.Kind, err)
	}

	const pxPerMm = 12
	w := int(math.Max(math.Ceil(wMm*pxPerMm), float64(code.Bounds().Dx())))
	h := int(math.Max(math.Ceil(hMm*pxPerMm), float64(code.Bounds().Dy())))
	scaled, err := barcode.Scale(code, w, h)
	if err != nil {
		return nil, fmt.Errorf("scaling %s: %w", s.Kind, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawStamp(pdf *fpdf.Fpdf, s Stamp, geom units.Geometry, pageW, pageH float64) (err error) {
	if s.Content == "" {
		return fmt.Errorf("empty stamp content")
	}
	if s.Width <= 0 {
		s.Width = 20
	}
	hMm := s.Width
	if s.Kind == StampCode128 {
		hMm = s.Height
		if hMm <= 0 {
			hMm = s.Width / 4
		}
	}

	data, err := encodeStamp(s, s.Width, hMm)
	if err != nil {
		return err
	}

	defer func() {
		if pdf.Err() {
			err = pdf.Error()
			pdf.ClearError()
		}
	}()
	name := "stamp" + strconv.FormatUint(stampSeq.Add(1), 10)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	pdf.ImageOptions(name,
		s.X/geom.WidthMm*pageW,
		s.Y/geom.HeightMm*pageH,
		s.Width/geom.WidthMm*pageW,
		hMm/geom.HeightMm*pageH,
		false, opts, 0, "")
	return nil
}
