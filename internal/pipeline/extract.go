package pipeline

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"mtfcrawler/internal"
	"mtfcrawler/internal/util"
)

var materialNamePattern = regexp.MustCompile(`(?i)\b(PLA|ABS|PETG|TPU|HIPS)\b`)

var polymerAbbreviations = []string{"PLA", "ABS", "PETG", "TPU", "HIPS", "ASA", "PC", "PEEK"}

// Header labels that never carry a property.
var skipHeaders = map[string]bool{
	"":        true,
	"unnamed": true,
	"index":   true,
}

type materialMatch struct {
	name string
	row  int
}

// identifyMaterials scans the first column for material names. Duplicates
// keep their first-seen row so extraction order matches sheet order.
func identifyMaterials(t Table) []materialMatch {
	seen := map[string]bool{}
	var matches []materialMatch
	for row := range t.Rows {
		cell := t.Cell(row, 0)
		if cell == "" {
			continue
		}
		lower := strings.ToLower(cell)
		if !materialNamePattern.MatchString(cell) &&
			!strings.Contains(lower, "filament") && !strings.Contains(lower, "material") {
			continue
		}
		if seen[cell] {
			continue
		}
		seen[cell] = true
		matches = append(matches, materialMatch{name: cell, row: row})
	}
	return matches
}

// MaterialNameFromFilename derives a material name from a source filename.
// A polymer abbreviation in the name wins; otherwise the bare stem is used.
func MaterialNameFromFilename(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	upper := strings.ToUpper(stem)
	for _, abbr := range polymerAbbreviations {
		if strings.Contains(upper, abbr) {
			return abbr + " Material"
		}
	}
	if stem == "" {
		return "Unknown Material"
	}
	return stem
}

// ExtractMaterials turns one table into material records. Two or more
// distinct material names in the first column switch on multi-material
// mode with one record per matched row; otherwise the whole table is read
// as a single material named after the file. A panic while extracting one
// material degrades that record to RAW instead of losing the file.
func ExtractMaterials(t Table, file internal.SourceFile) []internal.MaterialRecord {
	matches := identifyMaterials(t)

	var records []internal.MaterialRecord
	if len(matches) >= 2 {
		for _, m := range matches {
			records = append(records, guardedExtract(t, file, m.name, func(rec *internal.MaterialRecord) {
				extractRowMaterial(t, m.row, rec)
			}))
		}
	} else {
		name := MaterialNameFromFilename(file.Filename)
		records = append(records, guardedExtract(t, file, name, func(rec *internal.MaterialRecord) {
			extractSingleMaterial(t, rec)
		}))
	}

	position := t.Position()
	for i := range records {
		finishRecord(&records[i], position)
	}
	return records
}

// guardedExtract runs fill against a fresh record and converts a panic
// into a RAW record carrying the failure and a dump of the table.
func guardedExtract(t Table, file internal.SourceFile, name string, fill func(*internal.MaterialRecord)) (rec internal.MaterialRecord) {
	defer func() {
		if r := recover(); r != nil {
			rec = internal.NewRawMaterialRecord(name, file.SHA256Hash, map[string]any{
				"error":     fmt.Sprint(r),
				"raw_table": fmt.Sprintf("headers=%v rows=%v", t.Headers, t.Rows),
			})
		}
	}()

	rec = internal.NewMaterialRecord(name, file.SHA256Hash)
	fill(&rec)
	return rec
}

func skipColumn(header string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	return skipHeaders[h] || strings.HasPrefix(h, "unnamed")
}

// extractSingleMaterial reads the table column-wise: for each property
// column, up to three non-empty cells are tried and the first parsable one
// wins. Repeated properties overwrite, so the rightmost column prevails.
func extractSingleMaterial(t Table, rec *internal.MaterialRecord) {
	for col, header := range t.Headers {
		if skipColumn(header) {
			continue
		}
		for _, cell := range t.Column(col, 3) {
			if applyCell(rec, header, cell) {
				break
			}
		}
	}
}

// extractRowMaterial reads one material's row: every column past the name
// column contributes that row's cell under the column header.
func extractRowMaterial(t Table, row int, rec *internal.MaterialRecord) {
	for col := 1; col < len(t.Headers); col++ {
		header := t.Headers[col]
		if skipColumn(header) {
			continue
		}
		cell := t.Cell(row, col)
		if cell == "" {
			continue
		}
		applyCell(rec, header, cell)
	}
}

// applyCell parses one cell into a property. Recognized units normalize to
// SI; unrecognized units keep the raw magnitude and skip normalization.
func applyCell(rec *internal.MaterialRecord, header, cell string) bool {
	parsed, err := util.ParseCellValue(cell)
	if err != nil {
		return false
	}

	property := NormalizeProperty(header)
	if !RecognizedUnit(parsed.Unit) {
		rec.AddProperty(property, parsed.Magnitude, nil)
		return true
	}

	value, unit := ConvertToSI(parsed.Magnitude, parsed.Unit, property)
	rec.AddProperty(property, parsed.Magnitude, &internal.NormalizedValue{
		Value:         value,
		Unit:          unit,
		OriginalValue: parsed.Magnitude,
		OriginalUnit:  parsed.Unit,
	})
	return true
}

// finishRecord assigns the quality rating from the extracted property
// count and stamps the sheet position. Zero properties means the record
// is all diagnostics, so it stays RAW.
func finishRecord(rec *internal.MaterialRecord, position string) {
	rec.SheetPosition = util.StringPtr(position)

	if rec.QualityRating == internal.QualityRaw {
		return
	}
	switch n := len(rec.Properties); {
	case n == 0:
		rec.QualityRating = internal.QualityRaw
		rec.OriginalValues["error"] = "no extractable properties"
	case n < 3:
		rec.QualityRating = internal.QualityWarn
	default:
		rec.QualityRating = internal.QualityOK
	}
}
