package autoplace

import (
	"errors"
	"image"
	"strings"
	"unicode"

	"github.com/lvillar/docplace/catalog"
)

// ErrOCRNotEnabled is returned by the OCR detector when the binary was built
// without the "ocr" tag.
var ErrOCRNotEnabled = errors.New("autoplace: OCR support not enabled; rebuild with -tags ocr")

// TextBox is a recognized line of text on a page image.
type TextBox struct {
	Rect       image.Rectangle
	Text       string
	Confidence float64 // 0..1
}

// matchLabels proposes a position to the right of the first unused box whose
// text contains a field's label. Each box anchors at most one field.
func matchLabels(fields []catalog.Field, boxes []TextBox, page int, gap float64) []Detection {
	used := make([]bool, len(boxes))
	normBoxes := make([]string, len(boxes))
	for i, b := range boxes {
		normBoxes[i] = normalizeLabel(b.Text)
	}

	var out []Detection
	for _, f := range fields {
		label := normalizeLabel(f.Label)
		if len([]rune(label)) < 2 {
			continue
		}
		for i, text := range normBoxes {
			if used[i] || !strings.Contains(text, label) {
				continue
			}
			used[i] = true
			p := page
			out = append(out, Detection{
				ComponentID: f.ID,
				ImageX:      float64(boxes[i].Rect.Max.X) + gap,
				ImageY:      float64(boxes[i].Rect.Min.Y),
				Confidence:  boxes[i].Confidence,
				FieldType:   "text",
				PageIndex:   &p,
			})
			break
		}
	}
	return out
}

func normalizeLabel(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' || r == '：' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
