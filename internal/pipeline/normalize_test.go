package pipeline

import (
	"testing"

	"mtfcrawler/internal"
	"mtfcrawler/internal/logging"
)

func TestProcessMaterialsBatchTotality(t *testing.T) {
	good := mkXLSX("Materials", [][]any{
		{"Material", "Tensile Strength", "Density"},
		{"PLA Sample", "46 MPa", "1.24 g/cm³"},
		{"PETG Sample", "50 MPa", "1.27 g/cm³"},
	})

	files := []internal.SourceFile{
		srcFile("good.xlsx", good),
		{Filename: "broken_petg.xlsx", FileType: ".xlsx", SHA256Hash: "badhash", Content: []byte("not a workbook")},
		{Filename: "unknown.docx", FileType: ".docx", SHA256Hash: "dochash", Content: []byte("whatever")},
	}

	svc := NewNormalizerService(logging.NewNop())
	records := svc.ProcessMaterials(files)

	// two materials from the good file, one RAW record per bad file
	if len(records) != 4 {
		t.Fatalf("records=%d", len(records))
	}

	byHash := map[string]internal.MaterialRecord{}
	for _, rec := range records {
		byHash[rec.SourceFileHash] = rec
	}

	broken := byHash["badhash"]
	if broken.QualityRating != internal.QualityRaw {
		t.Fatalf("rating=%s", broken.QualityRating)
	}
	if broken.MaterialName != "PETG Material" {
		t.Fatalf("name=%q", broken.MaterialName)
	}
	if broken.OriginalValues["error"] == nil {
		t.Fatal("expected error diagnostic")
	}

	unsupported := byHash["dochash"]
	if unsupported.QualityRating != internal.QualityRaw {
		t.Fatalf("rating=%s", unsupported.QualityRating)
	}
}

func TestProcessMaterialsCSV(t *testing.T) {
	csvBlob := []byte("Tensile Strength,Elastic Modulus,Density\n46 MPa,2.3 GPa,1.24 g/cm³\n")

	svc := NewNormalizerService(logging.NewNop())
	records := svc.ProcessMaterials([]internal.SourceFile{
		{Filename: "abs_results.csv", FileType: ".csv", SHA256Hash: "csvhash", Content: csvBlob},
	})

	if len(records) != 1 {
		t.Fatalf("records=%d", len(records))
	}
	rec := records[0]
	if rec.MaterialName != "ABS Material" {
		t.Fatalf("name=%q", rec.MaterialName)
	}
	if rec.QualityRating != internal.QualityOK {
		t.Fatalf("rating=%s", rec.QualityRating)
	}
	nv, ok := rec.NormalizedValues[PropElasticModulus]
	if !ok || nv.Value != 2.3e9 {
		t.Fatalf("elastic modulus=%v ok=%v", nv.Value, ok)
	}
}
