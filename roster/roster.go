// Package roster imports staff and vehicle lists from spreadsheets into site
// records. Legacy .xls workbooks are read with extrame/xls; everything else
// goes through excelize.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/lvillar/docplace/catalog"
)

// maxXLSRows bounds the rows read from a legacy workbook.
const maxXLSRows = 100000

var (
	ErrEmptySheet    = errors.New("roster: worksheet is empty")
	ErrNoWorksheet   = errors.New("roster: no worksheet found")
	ErrMissingColumn = errors.New("roster: missing required column")
)

// ReadRows returns the cells of the first worksheet. filename only selects
// the decoder by extension.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("roster: reading %s: %w", filename, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("roster: opening %s: %w", filename, err)
		}
		if wb.NumSheets() == 0 {
			return nil, ErrNoWorksheet
		}
		rows := wb.ReadAllCells(maxXLSRows)
		if len(rows) == 0 {
			return nil, ErrEmptySheet
		}
		return rows, nil
	default:
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("roster: opening %s: %w", filename, err)
		}
		defer func() { _ = f.Close() }()

		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, ErrNoWorksheet
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("roster: reading sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			return nil, ErrEmptySheet
		}
		return rows, nil
	}
}

// columns maps each attribute to the header spellings that select it.
var (
	staffColumns = map[string][]string{
		"id":     {"id", "staff id", "社員番号", "番号"},
		"name":   {"name", "staff name", "employee name", "氏名", "名前"},
		"age":    {"age", "年齢"},
		"birth":  {"birth date", "birthdate", "birthday", "生年月日"},
		"gender": {"gender", "sex", "性別"},
		"term":   {"term", "period", "期間"},
		"start":  {"start", "start date", "入場日", "開始日"},
		"end":    {"end", "end date", "退場日", "終了日"},
	}
	vehicleColumns = map[string][]string{
		"id":    {"id", "vehicle id", "車両番号", "番号"},
		"plate": {"plate", "plate number", "license plate", "ナンバー", "登録番号"},
		"term":  {"term", "period", "期間"},
		"start": {"start", "start date", "入場日", "開始日"},
		"end":   {"end", "end date", "退場日", "終了日"},
	}
)

type header map[string]int

func parseHeader(row []string, columns map[string][]string) header {
	idx := make(map[string]int, len(row))
	for i, h := range row {
		idx[normalizeHeader(h)] = i
	}
	out := header{}
	for attr, names := range columns {
		for _, n := range names {
			if i, ok := idx[n]; ok {
				out[attr] = i
				break
			}
		}
	}
	return out
}

func (h header) cell(row []string, attr string) string {
	i, ok := h[attr]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Options adjust imports.
type Options struct {
	AsOf       time.Time // reference date for ages computed from birth dates; now when zero
	DateLayout string    // layout for normalized dates, "2006-01-02" when empty
}

func (o Options) asOf() time.Time {
	if o.AsOf.IsZero() {
		return time.Now()
	}
	return o.AsOf
}

func (o Options) layout() string {
	if o.DateLayout == "" {
		return "2006-01-02"
	}
	return o.DateLayout
}

// ImportStaff maps rows, whose first row is the header, to staff records.
// Rows without a name are skipped. Records without an id column get
// "staff-{row}" ids so that catalog field ids stay stable.
func ImportStaff(rows [][]string) ([]catalog.Staff, error) {
	return ImportStaffWith(rows, Options{})
}

// ImportStaffWith is ImportStaff with explicit options.
func ImportStaffWith(rows [][]string, opts Options) ([]catalog.Staff, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	h := parseHeader(rows[0], staffColumns)
	if _, ok := h["name"]; !ok {
		return nil, fmt.Errorf("%w: name", ErrMissingColumn)
	}

	var out []catalog.Staff
	for i, row := range rows[1:] {
		name := h.cell(row, "name")
		if name == "" {
			continue
		}
		st := catalog.Staff{
			ID:     h.cell(row, "id"),
			Name:   name,
			Gender: h.cell(row, "gender"),
			Term:   term(h, row, opts),
		}
		if st.ID == "" {
			st.ID = "staff-" + strconv.Itoa(i+1)
		}
		if n, err := strconv.Atoi(h.cell(row, "age")); err == nil {
			st.Age = n
		} else if birth, ok := ParseDate(h.cell(row, "birth")); ok {
			st.Age = ageAt(birth, opts.asOf())
		}
		out = append(out, st)
	}
	return out, nil
}

// ImportVehicles maps rows, whose first row is the header, to vehicle
// records. Rows without a plate are skipped.
func ImportVehicles(rows [][]string) ([]catalog.Vehicle, error) {
	return ImportVehiclesWith(rows, Options{})
}

// ImportVehiclesWith is ImportVehicles with explicit options.
func ImportVehiclesWith(rows [][]string, opts Options) ([]catalog.Vehicle, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	h := parseHeader(rows[0], vehicleColumns)
	if _, ok := h["plate"]; !ok {
		return nil, fmt.Errorf("%w: plate", ErrMissingColumn)
	}

	var out []catalog.Vehicle
	for i, row := range rows[1:] {
		plate := h.cell(row, "plate")
		if plate == "" {
			continue
		}
		v := catalog.Vehicle{ID: h.cell(row, "id"), Plate: plate, Term: term(h, row, opts)}
		if v.ID == "" {
			v.ID = "vehicle-" + strconv.Itoa(i+1)
		}
		out = append(out, v)
	}
	return out, nil
}

// Apply returns a copy of site with its staff and vehicle lists replaced.
// A nil list keeps the site's current one.
func Apply(site *catalog.Site, staff []catalog.Staff, vehicles []catalog.Vehicle) *catalog.Site {
	var next catalog.Site
	if site != nil {
		next = *site
	}
	if staff != nil {
		next.Staff = append([]catalog.Staff(nil), staff...)
	}
	if vehicles != nil {
		next.Vehicles = append([]catalog.Vehicle(nil), vehicles...)
	}
	return &next
}

func term(h header, row []string, opts Options) string {
	if t := h.cell(row, "term"); t != "" {
		return t
	}
	start := formatDate(h.cell(row, "start"), opts.layout())
	end := formatDate(h.cell(row, "end"), opts.layout())
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " -"
	case start == "":
		return "- " + end
	}
	return start + " - " + end
}

func formatDate(s, layout string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(layout)
	}
	return s
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006年1月2日",
	"1/2/2006",
	"01/02/2006",
	"1-2-06",
	"01-02-06",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate reads a spreadsheet date cell: an Excel serial number or one of
// the common textual layouts. Numbers outside [10000, 100000], roughly 1927
// to 2173, are rejected so that years and ages are not read as dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 10000 || serial > 100000 {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ageAt(birth, asOf time.Time) int {
	age := asOf.Year() - birth.Year()
	if !sameMonthDayOrLater(asOf, birth) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func sameMonthDayOrLater(asOf, birth time.Time) bool {
	if asOf.Month() != birth.Month() {
		return asOf.Month() > birth.Month()
	}
	return asOf.Day() >= birth.Day()
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
