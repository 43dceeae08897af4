package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is one rectangular slice of tabular data: a header row plus the
// data rows under it. Rows may be ragged; Cell bounds-checks both axes.
type Table struct {
	SheetName string
	Headers   []string
	Rows      [][]string
}

var sheetKeywords = []string{"material", "test", "data", "results", "properties"}

// SelectSheet picks the sheet to extract from: the first whose name
// contains a domain keyword, else the first sheet.
func SelectSheet(names []string) string {
	if len(names) == 0 {
		return ""
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, kw := range sheetKeywords {
			if strings.Contains(lower, kw) {
				return name
			}
		}
	}
	return names[0]
}

// ReadTable parses raw file content into a Table based on the file type
// extension (".xlsx", ".xls" or ".csv", lowercase with the dot).
func ReadTable(content []byte, fileType string) (Table, error) {
	switch fileType {
	case ".csv":
		return readCSV(content)
	case ".xlsx", ".xls":
		return readWorkbook(content)
	default:
		return Table{}, fmt.Errorf("unsupported file type %q", fileType)
	}
}

func readCSV(content []byte) (Table, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	return tableFromRows("Sheet1", records)
}

func readWorkbook(content []byte) (Table, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := SelectSheet(wb.GetSheetList())
	if sheet == "" {
		return Table{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return tableFromRows(sheet, rows)
}

func tableFromRows(sheet string, rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("sheet %s is empty", sheet)
	}
	return Table{
		SheetName: sheet,
		Headers:   rows[0],
		Rows:      rows[1:],
	}, nil
}

// Cell returns the trimmed cell at (row, col) in the data rows, empty when
// either index falls outside the ragged table.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Column collects up to limit non-empty cells from one column, top down.
// limit <= 0 means no cap.
func (t Table) Column(col, limit int) []string {
	var cells []string
	for row := range t.Rows {
		if v := t.Cell(row, col); v != "" {
			cells = append(cells, v)
			if limit > 0 && len(cells) >= limit {
				break
			}
		}
	}
	return cells
}

// Position renders the occupied range in A1 notation, header row included,
// e.g. "Materials!A1:F12".
func (t Table) Position() string {
	maxCols := len(t.Headers)
	for _, r := range t.Rows {
		if len(r) > maxCols {
			maxCols = len(r)
		}
	}
	if maxCols == 0 {
		maxCols = 1
	}

	end, err := excelize.CoordinatesToCellName(maxCols, len(t.Rows)+1)
	if err != nil {
		end = "A1"
	}
	return fmt.Sprintf("%s!A1:%s", t.SheetName, end)
}
