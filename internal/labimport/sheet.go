package labimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type, upload .xlsx or .csv")
	ErrEmptySheet      = errors.New("sheet has no header row")
)

// IdentityColumns are tried in order to find the patient a row belongs to.
var IdentityColumns = []string{"MRN", "Name", "Patient Name"}

// Row maps header to cell value. Empty cells are absent.
type Row map[string]string

// Data is the row as a JSON object for the record payload.
func (r Row) Data() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SearchKey is the first non-empty identity column value.
func (r Row) SearchKey() (string, bool) {
	for _, col := range IdentityColumns {
		if v := strings.TrimSpace(r[col]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Sheet is the first worksheet of an uploaded file.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Preview returns at most n leading rows.
func (s *Sheet) Preview(n int) []Row {
	if n < 0 || n > len(s.Rows) {
		n = len(s.Rows)
	}
	return s.Rows[:n]
}

// Parse picks the reader by file extension.
func Parse(fileName string, r io.Reader) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	case ".csv":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, fileName)
	}
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, ErrEmptySheet
	}
	records, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}
	return build(name, records)
}

func ParseCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return build("Sheet1", records)
}

func build(name string, records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}
	headers := headerNames(records[0])
	if len(headers) == 0 {
		return nil, ErrEmptySheet
	}

	s := &Sheet{Name: name, Headers: headers}
	for _, rec := range records[1:] {
		row := Row{}
		for i, cell := range rec {
			if i >= len(headers) {
				break
			}
			if v := strings.TrimSpace(cell); v != "" {
				row[headers[i]] = v
			}
		}
		if len(row) > 0 {
			s.Rows = append(s.Rows, row)
		}
	}
	return s, nil
}

// headerNames trims headers, names blanks __EMPTY and suffixes duplicates
// with _1, _2 and so on.
func headerNames(raw []string) []string {
	last := -1
	for i, h := range raw {
		if strings.TrimSpace(h) != "" {
			last = i
		}
	}
	// taken includes real columns that already look suffixed.
	next := map[string]int{}
	taken := map[string]bool{}
	out := make([]string, 0, last+1)
	for _, h := range raw[:last+1] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "__EMPTY"
		}
		name := h
		if taken[name] {
			n := max(next[h], 1)
			for taken[h+"_"+strconv.Itoa(n)] {
				n++
			}
			name = h + "_" + strconv.Itoa(n)
			next[h] = n + 1
		}
		taken[name] = true
		out = append(out, name)
	}
	return out
}
