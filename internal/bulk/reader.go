// Package bulk reads and writes the spreadsheet and CSV files used to import
// and export users, products and registrations.
package bulk

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/usagereg/usagereg/internal/shared"
)

// MaxFileSize bounds an uploaded import file.
const MaxFileSize = 10 << 20

const maxXLSRows = 100000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sheet is a parsed table: a header and the data rows keyed by header name.
type Sheet struct {
	Header []string
	Rows   []SheetRow
}

// SheetRow is one data row. Line is the 1-based row number in the file.
type SheetRow struct {
	Line  int
	Cells map[string]string
}

// Get returns the trimmed cell for column, "" when absent.
func (r SheetRow) Get(column string) string {
	return strings.TrimSpace(r.Cells[normalizeHeader(column)])
}

// HasColumn reports whether the header contains column.
func (s Sheet) HasColumn(column string) bool {
	want := normalizeHeader(column)
	for _, h := range s.Header {
		if h == want {
			return true
		}
	}
	return false
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func parseError(op string, err error) error {
	return shared.E(shared.KindFileParse, op, "import", err)
}

// ReadSheet parses the first worksheet of an .xlsx/.xls file or a .csv file,
// picked by the extension of filename.
func ReadSheet(filename string, r io.Reader) (Sheet, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return Sheet{}, parseError("read", err)
	}
	if len(data) > MaxFileSize {
		return Sheet{}, parseError("read", fmt.Errorf("file larger than %d bytes", MaxFileSize))
	}

	var sheet Sheet
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		sheet, err = readCSV(data)
	case ".xls":
		sheet, err = readXLS(data)
	default:
		sheet, err = readXLSX(data)
	}
	if err != nil {
		return Sheet{}, parseError("parse", err)
	}
	if len(sheet.Rows) == 0 {
		return Sheet{}, parseError("parse", fmt.Errorf("bestand is leeg"))
	}
	return sheet, nil
}

func readXLSX(data []byte) (Sheet, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, err
	}
	defer func() { _ = file.Close() }()

	name := file.GetSheetName(0)
	if name == "" {
		return Sheet{}, fmt.Errorf("no worksheet found")
	}
	rows, err := file.GetRows(name)
	if err != nil {
		return Sheet{}, err
	}
	return fromGrid(rows), nil
}

func readXLS(data []byte) (Sheet, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return Sheet{}, err
	}
	if workbook.NumSheets() == 0 {
		return Sheet{}, fmt.Errorf("no worksheet found")
	}
	return fromGrid(workbook.ReadAllCells(maxXLSRows)), nil
}

func readCSV(data []byte) (Sheet, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	records, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, err
	}
	var sheet Sheet
	for i, record := range records {
		row := SheetRow{Line: i + 2, Cells: make(map[string]string, len(record))}
		for key, value := range record {
			row.Cells[normalizeHeader(key)] = value
		}
		if i == 0 {
			for key := range record {
				sheet.Header = append(sheet.Header, normalizeHeader(key))
			}
		}
		if !blank(row.Cells) {
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet, nil
}

// fromGrid turns a header row plus data rows into a Sheet, dropping empty rows.
func fromGrid(grid [][]string) Sheet {
	var sheet Sheet
	if len(grid) == 0 {
		return sheet
	}
	for _, h := range grid[0] {
		sheet.Header = append(sheet.Header, normalizeHeader(h))
	}
	for i, cells := range grid[1:] {
		row := SheetRow{Line: i + 2, Cells: make(map[string]string, len(sheet.Header))}
		for col, h := range sheet.Header {
			if h == "" || col >= len(cells) {
				continue
			}
			row.Cells[h] = cells[col]
		}
		if !blank(row.Cells) {
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet
}

func blank(cells map[string]string) bool {
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
