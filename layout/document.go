// Package layout persists placement documents and the site records they are
// rendered against.
//
// A Document stores where its source template lives and the full ordered item
// array. Saves always write the whole record.
//
// Example JSON:
//
//	{
//	  "id": "3f1c9e2a-...",
//	  "name": "作業員名簿",
//	  "siteId": "site-001",
//	  "pdfTemplateUrl": "https://example.com/forms/roster.pdf",
//	  "pageWidthMm": 210,
//	  "pageHeightMm": 297,
//	  "items": [
//	    {"componentId": "s_name", "x": 26.25, "y": 26.25},
//	    {"componentId": "staff_1_name", "x": 40, "y": 80, "fontSize": 9, "pageIndex": 1}
//	  ],
//	  "updatedAt": "2024-04-01T09:00:00Z"
//	}
package layout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/placement"
	"github.com/lvillar/docplace/units"
)

// ErrNotFound is returned when a document or site does not exist.
var ErrNotFound = errors.New("layout: not found")

// Document is a placement layout over one PDF template.
type Document struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	SiteID         string           `json:"siteId,omitempty"`
	PdfTemplateURL *string          `json:"pdfTemplateUrl"`
	PageWidthMm    float64          `json:"pageWidthMm,omitempty"` // editing geometry the items were placed against
	PageHeightMm   float64          `json:"pageHeightMm,omitempty"`
	Items          []placement.Item `json:"items"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Template returns the template location, or "" when none is set.
func (d *Document) Template() string {
	if d.PdfTemplateURL == nil {
		return ""
	}
	return *d.PdfTemplateURL
}

// SetTemplate sets the template location; "" clears it.
func (d *Document) SetTemplate(url string) {
	if url == "" {
		d.PdfTemplateURL = nil
		return
	}
	d.PdfTemplateURL = &url
}

// Geometry returns the editing geometry recorded on the document, or A4 when
// none was recorded.
func (d *Document) Geometry(renderWidthPx float64) units.Geometry {
	return units.New(renderWidthPx, d.PageWidthMm, d.PageHeightMm)
}

// SetGeometry records g's physical size on the document.
func (d *Document) SetGeometry(g units.Geometry) {
	d.PageWidthMm = g.WidthMm
	d.PageHeightMm = g.HeightMm
}

// Repository stores documents.
type Repository interface {
	Load(ctx context.Context, id string) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

// Summary is a document listing entry.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SiteID    string    `json:"siteId,omitempty"`
	Items     int       `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// ValidateID reports whether id is safe to use as a file name.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: id %q", docplace.ErrInvalidParam, id)
	}
	return nil
}
