package crawler

import (
	"strings"
	"testing"
)

const listingHTML = `
<html><body>
<a href="/video/pla-strength-test">PLA strength test</a>
<a href="/video/petg-vs-abs">PETG vs ABS</a>
<a href="/video/pla-strength-test">PLA strength test (again)</a>
<a href="/videos/material_test?page=2">Next page</a>
<a href="https://www.youtube.com/watch?v=abc123">Watch on YouTube</a>
<a href="/about">About</a>
</body></html>`

func TestExtractPostURLs(t *testing.T) {
	urls, err := ExtractPostURLs([]byte(listingHTML), "https://www.mytechfun.com/videos/material_test")
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Fatalf("urls=%v", urls)
	}
	if urls[0] != "https://www.mytechfun.com/video/pla-strength-test" {
		t.Fatalf("urls[0]=%s", urls[0])
	}
	if urls[1] != "https://www.mytechfun.com/video/petg-vs-abs" {
		t.Fatalf("urls[1]=%s", urls[1])
	}
}

const postHTML = `
<html><body>
<header><nav>site navigation</nav></header>
<h1>MyTechFun.com</h1>
<h1>PLA strength test</h1>
<div class="content">
  <p>Testing PLA from three brands at 0.2mm layers.</p>
  <p>Use code MTF10 for a discount at checkout.</p>
  <div class="sponsor-banner">Sponsored by ExampleCorp</div>
</div>
<hr/>
<p>footer boilerplate and legal text</p>
</body></html>`

func TestCleanPostHTML(t *testing.T) {
	cleaned, err := CleanPostHTML([]byte(postHTML))
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(cleaned, "Testing PLA from three brands") {
		t.Fatalf("content lost: %q", cleaned)
	}
	for _, gone := range []string{"MyTechFun.com", "site navigation", "MTF10", "Sponsored by", "footer boilerplate"} {
		if strings.Contains(cleaned, gone) {
			t.Fatalf("%q should be removed: %q", gone, cleaned)
		}
	}
	if strings.Contains(cleaned, "\n") {
		t.Fatal("whitespace not normalized")
	}
}

func TestCleanPostHTMLDeterministic(t *testing.T) {
	first, err := CleanPostHTML([]byte(postHTML))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := CleanPostHTML([]byte(postHTML))
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("output changed between runs: %q vs %q", first, again)
		}
	}
}
