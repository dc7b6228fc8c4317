package export

import (
	"fmt"
	"log/slog"
	"os"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	utf8Family     = "docplace"
	fallbackFamily = "Helvetica"
)

// textFace draws strings with either a registered UTF-8 font or the core
// Helvetica font, which only covers latin-1.
type textFace struct {
	family   string
	fallback bool
}

func loadFontFile(path string, log *slog.Logger) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("export: font not readable, using fallback", "path", path, "error", err)
		return nil
	}
	return data
}

// registerFont adds ttf to pdf as a UTF-8 font. Anything that fails to load
// degrades to Helvetica. The font is parsed in a scratch document first
// because fpdf errors are sticky and would otherwise poison the export.
func registerFont(pdf *fpdf.Fpdf, ttf []byte, log *slog.Logger) textFace {
	if len(ttf) == 0 {
		return textFace{family: fallbackFamily, fallback: true}
	}
	if err := probeFont(ttf); err != nil {
		log.Warn("export: font failed to load, using fallback", "error", err)
		return textFace{family: fallbackFamily, fallback: true}
	}
	pdf.AddUTF8FontFromBytes(utf8Family, "", ttf)
	if pdf.Err() {
		log.Warn("export: font failed to register, using fallback", "error", pdf.Error())
		pdf.ClearError()
		return textFace{family: fallbackFamily, fallback: true}
	}
	return textFace{family: utf8Family}
}

func probeFont(ttf []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing font: %v", r)
		}
	}()
	probe := fpdf.New("P", "pt", "A4", "")
	probe.AddUTF8FontFromBytes(utf8Family, "", ttf)
	if probe.Err() {
		return probe.Error()
	}
	probe.AddPage()
	probe.SetFont(utf8Family, "", 10)
	probe.Text(10, 10, "A")
	if probe.Err() {
		return probe.Error()
	}
	return nil
}

// draw writes text with its baseline at (x, y) in fpdf's top-left space.
// A failure affects only this call.
func (f textFace) draw(pdf *fpdf.Fpdf, x, y, size float64, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("drawing text: %v", r)
		}
		if pdf.Err() {
			if err == nil {
				err = pdf.Error()
			}
			pdf.ClearError()
		}
	}()

	if f.fallback {
		latin1, encErr := charmap.ISO8859_1.NewEncoder().String(text)
		if encErr != nil {
			return fmt.Errorf("text not representable in fallback font: %w", encErr)
		}
		text = latin1
	}
	pdf.SetFont(f.family, "", size)
	pdf.Text(x, y, text)
	return nil
}
