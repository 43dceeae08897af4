package crawler

import "testing"

func TestFindDownloadLinks(t *testing.T) {
	page := `
<html><body>
<a href="/files/pla_tests.xlsx">Download test data</a>
<a href="/files/model.stl">STL file</a>
<a href="https://cdn.example.com/data/petg_results.csv">CSV data</a>
<div class="download"><a href="/files/summary.xls">Summary</a></div>
<a href="/files/pla_tests.xlsx">duplicate</a>
<a href="/video/another-test">another post</a>
</body></html>`

	links, err := findDownloadLinks([]byte(page), "https://www.mytechfun.com/video/pla-test")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 4 {
		t.Fatalf("links=%v", links)
	}

	valid := filterValidLinks(links)
	if len(valid) != 3 {
		t.Fatalf("valid=%v", valid)
	}
	if valid[0] != "https://www.mytechfun.com/files/pla_tests.xlsx" {
		t.Fatalf("valid[0]=%s", valid[0])
	}
}

func TestIsGatedAsset(t *testing.T) {
	gated := []string{
		"https://example.com/login?next=/files/data.xlsx",
		"https://example.com/premium/data.xlsx",
		"https://example.com/member/tests.csv",
		"https://www.patreon.com/subscribe/tier2/data.xlsx",
	}
	for _, link := range gated {
		if !IsGatedAsset(link) {
			t.Fatalf("%s should be gated", link)
		}
	}

	open := []string{
		"https://www.mytechfun.com/files/pla_tests.xlsx",
		"https://cdn.example.com/data/petg_results.csv",
	}
	for _, link := range open {
		if IsGatedAsset(link) {
			t.Fatalf("%s should not be gated", link)
		}
	}
}
