package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"mtfcrawler/internal"
	"mtfcrawler/internal/util"
)

const (
	schemaVersion = "1.0.0"
	generatorName = "mtf-crawler"

	licenseName        = "CC BY 4.0"
	licenseAttribution = "Data © MyTechFun – Dr. Igor Gaspar, CC BY 4.0"
)

// BuildPostDocument assembles the complete per-post output document from a
// post, its file metadata and its extracted materials.
func BuildPostDocument(post internal.PostRow, files []internal.SourceFile, materials []internal.MaterialRecord) internal.PostDocument {
	storageKey := post.PostHash
	if len(storageKey) > 16 {
		storageKey = storageKey[:16]
	}

	now := time.Now().UTC().Format(time.RFC3339)

	return internal.PostDocument{
		Post: internal.PostInfo{
			URL:               post.URL,
			Title:             post.Title,
			CleanedText:       post.CleanedText,
			YouTubeLink:       post.YouTubeLink,
			ManufacturerLinks: post.ManufacturerLinks,
			DownloadTimestamp: post.DownloadedAt,
			PostHash:          post.PostHash,
		},
		Files:     files,
		Materials: materials,
		Provenance: internal.Provenance{
			SourceURL:         post.URL,
			DownloadTimestamp: post.DownloadedAt,
			StorageKey:        storageKey,
			SHA256Hash:        post.PostHash,
			FileCount:         len(files),
			MaterialCount:     len(materials),
		},
		Title: post.Title,
		Metadata: internal.DocumentMetadata{
			SchemaVersion: schemaVersion,
			GeneratedAt:   now,
			Generator:     generatorName,
		},
		Licensing: internal.DocumentLicensing{
			Attribution: licenseAttribution,
			License:     licenseName,
			SourceURL:   post.URL,
		},
	}
}

// WritePostDocument writes the document as <postHash>.json under outputDir
// and returns the file path.
func WritePostDocument(doc internal.PostDocument, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s.json", doc.Post.PostHash))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// MaterialsToExportRows flattens records into one row per material/property
// pair. Property keys are sorted so export output is deterministic.
func MaterialsToExportRows(materials []internal.MaterialRecord) []internal.MaterialExportRow {
	var rows []internal.MaterialExportRow
	for _, m := range materials {
		keys := make([]string, 0, len(m.Properties))
		for k := range m.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			row := internal.MaterialExportRow{
				MaterialName:   m.MaterialName,
				QualityRating:  string(m.QualityRating),
				SourceFileHash: m.SourceFileHash,
				SheetPosition:  m.SheetPosition,
				Property:       key,
			}
			if nv, ok := m.NormalizedValues[key]; ok {
				row.Value = util.FloatPtr(nv.Value)
				row.Unit = util.StringPtr(nv.Unit)
				row.OriginalValue = util.FloatPtr(nv.OriginalValue)
				row.OriginalUnit = util.StringPtr(nv.OriginalUnit)
			} else if f, ok := m.Properties[key].(float64); ok {
				row.Value = util.FloatPtr(f)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func ExportMaterialsToXLSX(rows []internal.MaterialExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"material_name", "quality_rating", "source_file_hash", "sheet_position",
		"property", "value", "unit", "original_value", "original_unit",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.MaterialName)
		set(2, row.QualityRating)
		set(3, row.SourceFileHash)
		set(4, derefString(row.SheetPosition))
		set(5, row.Property)
		set(6, derefFloat(row.Value))
		set(7, derefString(row.Unit))
		set(8, derefFloat(row.OriginalValue))
		set(9, derefString(row.OriginalUnit))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
