package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mtfcrawler/internal"
	"mtfcrawler/internal/config"
	"mtfcrawler/internal/logging"
	"mtfcrawler/internal/storage"
)

func TestSmokePostToDocument(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	blob := mkXLSX("Materials", [][]any{
		{"Material", "Tensile Strength", "Density", "Elongation at Break"},
		{"PLA Silk Gold", "48 MPa", "1.24 g/cm³", "6 %"},
		{"PETG Carbon", "52 MPa", "1.30 g/cm³", "20 %"},
	})
	filePath := filepath.Join(tmp, "deadbeef_tests.xlsx")
	if err := os.WriteFile(filePath, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	post, err := db.UpsertPost(internal.PostRow{
		URL:          "https://www.mytechfun.com/video/pla-vs-petg",
		Title:        "PLA vs PETG strength test",
		CleanedText:  "comparison of two filaments",
		DownloadedAt: "2026-08-01T00:00:00Z",
		PostHash:     "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899",
		Status:       "fetched",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := db.UpsertFile(post.ID, internal.SourceFile{
		Filename:      "tests.xlsx",
		FileType:      ".xlsx",
		SHA256Hash:    "deadbeef",
		FilePath:      filePath,
		URL:           "https://www.mytechfun.com/files/tests.xlsx",
		SourcePostURL: post.URL,
		FileSize:      len(blob),
	}); err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	proc := NewProcessingService(db, cfg, logging.NewNop())
	res, err := proc.ProcessPost(post)
	if err != nil {
		t.Fatal(err)
	}
	if res.Materials != 2 {
		t.Fatalf("materials=%d", res.Materials)
	}

	updated, err := db.GetPostByURL(post.URL)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != "processed" {
		t.Fatalf("status=%s", updated.Status)
	}

	files, err := db.ListFilesByPost(post.ID)
	if err != nil {
		t.Fatal(err)
	}
	materials, err := db.ListMaterialsByPost(post.ID)
	if err != nil {
		t.Fatal(err)
	}

	doc := BuildPostDocument(*updated, files, materials)
	if doc.Provenance.MaterialCount != 2 || doc.Provenance.FileCount != 1 {
		t.Fatalf("provenance=%+v", doc.Provenance)
	}
	if doc.Provenance.StorageKey != post.PostHash[:16] {
		t.Fatalf("storageKey=%s", doc.Provenance.StorageKey)
	}
	if doc.Licensing.License != "CC BY 4.0" {
		t.Fatalf("license=%s", doc.Licensing.License)
	}

	outDir := filepath.Join(tmp, "out")
	path, err := WritePostDocument(doc, outDir)
	if err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"post", "files", "materials", "provenance", "_metadata", "_licensing"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing document key %q", key)
		}
	}

	rows := MaterialsToExportRows(materials)
	if len(rows) == 0 {
		t.Fatal("no export rows")
	}
	xlsxOut := filepath.Join(tmp, "materials.xlsx")
	if err := ExportMaterialsToXLSX(rows, xlsxOut); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsxOut); err != nil {
		t.Fatal(err)
	}
}
