package layout

import (
	"fmt"
	"io"
	"strconv"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/lvillar/docplace/placement"
)

const sheetFont = "sheet"

// SheetOptions adjust the proof sheet.
type SheetOptions struct {
	Title           string  // defaults to the document name
	FontBytes       []byte  // UTF-8 TrueType font; Go Regular when nil
	DefaultFontSize float64 // size listed for items without one
}

type sheetColumn struct {
	header string
	width  float64
	align  string
}

var sheetColumns = []sheetColumn{
	{"#", 10, "R"},
	{"page", 12, "R"},
	{"field", 42, "L"},
	{"value", 62, "L"},
	{"x mm", 18, "R"},
	{"y mm", 18, "R"},
	{"pt", 14, "R"},
}

// WriteSheet renders a proof sheet listing every item of doc and the text it
// will be exported with. The sheet is an A4 table, independent of the
// template, that can be checked before burning the values in.
func WriteSheet(w io.Writer, doc *Document, r placement.Resolver, opts SheetOptions) (err error) {
	// the font parser panics on some malformed files
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("layout: rendering sheet: %v", p)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)

	fontBytes := opts.FontBytes
	if fontBytes == nil {
		fontBytes = goregular.TTF
	}
	pdf.AddUTF8FontFromBytes(sheetFont, "", fontBytes)
	if pdf.Err() {
		return fmt.Errorf("layout: loading sheet font: %w", pdf.Error())
	}

	title := opts.Title
	if title == "" {
		title = doc.Name
	}
	if title == "" {
		title = doc.ID
	}
	pdf.SetTitle(title, true)

	header := func() {
		pdf.SetFont(sheetFont, "", 9)
		pdf.SetFillColor(63, 81, 181)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range sheetColumns {
			pdf.CellFormat(c.width, 7, c.header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont(sheetFont, "", 18)
	pdf.MultiCell(0, 9, title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(sheetFont, "", 10)
	info := fmt.Sprintf("items: %d", len(doc.Items))
	if doc.SiteID != "" {
		info += "   site: " + doc.SiteID
	}
	if t := doc.Template(); t != "" {
		info += "\ntemplate: " + t
	}
	if !doc.UpdatedAt.IsZero() {
		info += "\nupdated: " + doc.UpdatedAt.Format("2006-01-02 15:04")
	}
	pdf.MultiCell(0, 5, info, "", "L", false)
	pdf.Ln(4)

	header()
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, it := range doc.Items {
		if pdf.GetY()+6 > pageH-bottom {
			pdf.AddPage()
			header()
		}
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		if it.Unresolved(r) {
			pdf.SetTextColor(198, 40, 40)
		}
		cells := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(it.PageIndex + 1),
			it.ComponentID,
			it.Text(r),
			strconv.FormatFloat(it.X, 'f', 1, 64),
			strconv.FormatFloat(it.Y, 'f', 1, 64),
			strconv.FormatFloat(it.FontSizeOr(opts.DefaultFontSize), 'f', 1, 64),
		}
		for j, c := range sheetColumns {
			pdf.CellFormat(c.width, 6, fitCell(pdf, cells[j], c.width-2), "1", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}

	if pdf.Err() {
		return fmt.Errorf("layout: rendering sheet: %w", pdf.Error())
	}
	return pdf.Output(w)
}

// fitCell truncates s with an ellipsis so that it fits in width.
func fitCell(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if t := string(runes) + "…"; pdf.GetStringWidth(t) <= width {
			return t
		}
	}
	return ""
}
