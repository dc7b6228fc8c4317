// Package testpdf builds small PDF fixtures for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// A4 page size in points.
var A4 = fpdf.SizeType{Wd: 595.28, Ht: 841.89}

// Letter page size in points.
var Letter = fpdf.SizeType{Wd: 612, Ht: 792}

// New returns a PDF with one page per size, each labelled with its number.
// With no sizes it returns a single A4 page.
func New(tb testing.TB, sizes ...fpdf.SizeType) []byte {
	tb.Helper()
	if len(sizes) == 0 {
		sizes = []fpdf.SizeType{A4}
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i, size := range sizes {
		pdf.AddPageFormat("P", size)
		pdf.Text(40, 40, fmt.Sprintf("Page %d", i+1))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		tb.Fatalf("building fixture: %v", err)
	}
	return buf.Bytes()
}

// Pages returns an n-page A4 PDF.
func Pages(tb testing.TB, n int) []byte {
	tb.Helper()
	sizes := make([]fpdf.SizeType, n)
	for i := range sizes {
		sizes[i] = A4
	}
	return New(tb, sizes...)
}
