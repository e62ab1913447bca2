package extractor

import (
	"reflect"
	"strings"
	"testing"
)

func extract(t *testing.T, html string) *PageSnapshot {
	t.Helper()
	return New(0).Extract(html, "https://example.com/services/web-design")
}

func TestExtract_Title(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "title element",
			html:     `<html><head><title>Affordable Website Design</title></head><body></body></html>`,
			expected: "Affordable Website Design",
		},
		{
			name:     "falls back to og:title",
			html:     `<html><head><meta property="og:title" content="OG Title"></head><body></body></html>`,
			expected: "OG Title",
		},
		{
			name:     "no title at all",
			html:     `<html><head></head><body></body></html>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := extract(t, tt.html)
			if snap.Title != tt.expected {
				t.Errorf("Title = %q, want %q", snap.Title, tt.expected)
			}
		})
	}
}

func TestExtract_MetaDescription(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "meta description",
			html:     `<html><head><meta name="description" content="A page about things."></head><body></body></html>`,
			expected: "A page about things.",
		},
		{
			name:     "falls back to og:description",
			html:     `<html><head><meta property="og:description" content="OG description."></head><body></body></html>`,
			expected: "OG description.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := extract(t, tt.html)
			if snap.MetaDescription != tt.expected {
				t.Errorf("MetaDescription = %q, want %q", snap.MetaDescription, tt.expected)
			}
		})
	}
}

func TestExtract_HeadingsFlattenInnerMarkup(t *testing.T) {
	html := `<html><body>
		<h1>Title<span>X</span></h1>
		<h2>  Spaced   <b>words</b>  here </h2>
		<h3><img src="a.png"></h3>
		<h4></h4>
	</body></html>`

	snap := extract(t, html)

	if len(snap.Headings) != 2 {
		t.Fatalf("headings = %v, want 2 entries (empty ones excluded)", snap.Headings)
	}
	if snap.Headings[0].Level != 1 || snap.Headings[0].Text != "Title X" {
		t.Errorf("first heading = %+v, want level 1 text %q", snap.Headings[0], "Title X")
	}
	if snap.Headings[1].Level != 2 || snap.Headings[1].Text != "Spaced words here" {
		t.Errorf("second heading = %+v, want level 2 with collapsed whitespace", snap.Headings[1])
	}
}

func TestExtract_Paragraphs(t *testing.T) {
	html := `<html><body>
		<p>First paragraph.</p>
		<p>  </p>
		<p>Second <em>paragraph</em>.</p>
	</body></html>`

	snap := extract(t, html)

	want := []string{"First paragraph.", "Second paragraph ."}
	if len(snap.Paragraphs) != 2 {
		t.Fatalf("paragraphs = %v, want 2 entries", snap.Paragraphs)
	}
	if snap.Paragraphs[0] != want[0] {
		t.Errorf("paragraph[0] = %q, want %q", snap.Paragraphs[0], want[0])
	}
	if !strings.HasPrefix(snap.Paragraphs[1], "Second paragraph") {
		t.Errorf("paragraph[1] = %q, want flattened text", snap.Paragraphs[1])
	}
}

func TestExtract_Images(t *testing.T) {
	html := `<html><body>
		<img src="/a.webp" alt="A thing">
		<img src="/b.png">
		<img alt="no source">
	</body></html>`

	snap := extract(t, html)

	if len(snap.Images) != 2 {
		t.Fatalf("images = %v, want 2 (srcless skipped)", snap.Images)
	}
	if snap.Images[0].Alt != "A thing" {
		t.Errorf("images[0].Alt = %q, want %q", snap.Images[0].Alt, "A thing")
	}
	if snap.Images[1].Alt != "" {
		t.Errorf("images[1].Alt = %q, want empty default", snap.Images[1].Alt)
	}
}

func TestExtract_LinkClassification(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="https://example.com/contact">Contact</a>
		<a href="https://other.com/page">Other</a>
		<a href="#section">Anchor</a>
		<a href="mailto:hi@example.com">Mail</a>
		<a href="tel:+123456">Call</a>
		<a href="javascript:void(0)">JS</a>
		<a href="data:text/html,x">Data</a>
		<a href="vbscript:msgbox">VB</a>
	</body></html>`

	snap := extract(t, html)

	if len(snap.InternalLinks) != 2 {
		t.Errorf("internal links = %v, want 2", snap.InternalLinks)
	}
	if len(snap.OutboundLinks) != 1 {
		t.Errorf("outbound links = %v, want 1", snap.OutboundLinks)
	}
	if len(snap.InternalLinks) > 0 && snap.InternalLinks[0] != "https://example.com/about" {
		t.Errorf("relative link resolved to %q, want absolute", snap.InternalLinks[0])
	}
}

func TestExtract_NoiseRemoval(t *testing.T) {
	html := `<html><body>
		<div class="cookie-banner"><p>We use cookies!</p></div>
		<div id="consent-modal"><p>Accept terms</p></div>
		<div aria-hidden="true"><p>Hidden content</p></div>
		<p>Real content here.</p>
	</body></html>`

	snap := extract(t, html)

	if len(snap.Paragraphs) != 1 || snap.Paragraphs[0] != "Real content here." {
		t.Errorf("paragraphs = %v, want only the real content", snap.Paragraphs)
	}
}

func TestExtract_Resources(t *testing.T) {
	html := `<html><head>
		<script src="/js/app.min.js"></script>
		<script src="/js/vendor.js"></script>
		<link rel="stylesheet" href="/css/site.min.css">
		<style>` + strings.Repeat("body{margin:0;padding:0}", 20) + `</style>
	</head><body></body></html>`

	snap := extract(t, html)

	if len(snap.Resources.JS) != 2 {
		t.Fatalf("js resources = %v, want 2", snap.Resources.JS)
	}
	if !snap.Resources.JS[0].Minified {
		t.Errorf("app.min.js should be considered minified")
	}
	if snap.Resources.JS[1].Minified {
		t.Errorf("vendor.js should not be considered minified")
	}
	if len(snap.Resources.CSS) != 2 {
		t.Fatalf("css resources = %v, want 2 (external + inline)", snap.Resources.CSS)
	}
	if !snap.Resources.CSS[0].Minified {
		t.Errorf("site.min.css should be considered minified")
	}
	if !snap.Resources.CSS[1].Minified {
		t.Errorf("single-line inline style should be considered minified")
	}
}

func TestExtract_SchemaMarkup(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		hasSchema bool
		count     int
		types     []string
	}{
		{
			name: "single type",
			html: `<html><head><script type="application/ld+json">
				{"@context":"https://schema.org","@type":"Organization","name":"Acme"}
			</script></head><body></body></html>`,
			hasSchema: true,
			count:     1,
			types:     []string{"Organization"},
		},
		{
			name: "type array",
			html: `<html><head><script type="application/ld+json">
				{"@type":["Product","Offer"]}
			</script></head><body></body></html>`,
			hasSchema: true,
			count:     1,
			types:     []string{"Product", "Offer"},
		},
		{
			name: "graph fallback",
			html: `<html><head><script type="application/ld+json">
				{"@graph":[{"@type":"WebSite"},{"@type":"WebPage"}]}
			</script></head><body></body></html>`,
			hasSchema: true,
			count:     1,
			types:     []string{"WebSite", "WebPage"},
		},
		{
			name: "invalid json is skipped",
			html: `<html><head>
				<script type="application/ld+json">{not json}</script>
				<script type="application/ld+json">{"@type":"Article"}</script>
			</head><body></body></html>`,
			hasSchema: true,
			count:     1,
			types:     []string{"Article"},
		},
		{
			name: "parsed block without a type still counts",
			html: `<html><head><script type="application/ld+json">
				{"name":"Acme"}
			</script></head><body></body></html>`,
			hasSchema: false,
			count:     1,
		},
		{
			name: "untyped block beside a typed one",
			html: `<html><head>
				<script type="application/ld+json">{"name":"Acme"}</script>
				<script type="application/ld+json">{"@type":"Article"}</script>
			</head><body></body></html>`,
			hasSchema: true,
			count:     2,
			types:     []string{"Article"},
		},
		{
			name:      "no schema at all",
			html:      `<html><body><p>plain page</p></body></html>`,
			hasSchema: false,
			count:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := extract(t, tt.html)
			if snap.Schema.HasSchema != tt.hasSchema {
				t.Errorf("HasSchema = %v, want %v", snap.Schema.HasSchema, tt.hasSchema)
			}
			if snap.Schema.Count != tt.count {
				t.Errorf("Count = %d, want %d", snap.Schema.Count, tt.count)
			}
			if !reflect.DeepEqual(snap.Schema.Types, tt.types) && !(len(snap.Schema.Types) == 0 && len(tt.types) == 0) {
				t.Errorf("Types = %v, want %v", snap.Schema.Types, tt.types)
			}
		})
	}
}

func TestExtract_OpenGraph(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG Desc">
		<meta property="og:image" content="https://example.com/hero.webp">
		<meta property="og:image:width" content="1200">
		<meta property="og:image:height" content="630">
	</head><body></body></html>`

	snap := extract(t, html)

	og := snap.OG
	if og.Title != "OG Title" || og.Description != "OG Desc" {
		t.Errorf("og title/description = %q/%q", og.Title, og.Description)
	}
	if og.Image != "https://example.com/hero.webp" {
		t.Errorf("og image = %q", og.Image)
	}
	if og.ImageWidth != "1200" || og.ImageHeight != "630" {
		t.Errorf("og image dimensions = %q x %q, want 1200 x 630", og.ImageWidth, og.ImageHeight)
	}
}

func TestExtract_MalformedHTML(t *testing.T) {
	html := `<html><body>
		<h1>Unclosed heading
		<p>Paragraph <b>with unclosed markup
		<!-- a comment -->
		<img src="x.png"
			 alt="multiline tag">
	</body>`

	snap := extract(t, html)

	if snap == nil {
		t.Fatal("snapshot should never be nil for malformed html")
	}
	if len(snap.Headings) == 0 {
		t.Error("unclosed heading should still be extracted")
	}
}

func TestExtract_Idempotent(t *testing.T) {
	html := `<html><head><title>Page</title>
		<meta name="description" content="Desc">
		<script type="application/ld+json">{"@type":"WebSite"}</script>
	</head><body>
		<h1>Heading</h1><h2>Sub</h2>
		<p>Some content with words.</p>
		<a href="/in">in</a><a href="https://out.example.net/">out</a>
		<img src="/pic.webp" alt="pic">
	</body></html>`

	ex := New(0)
	first := ex.Extract(html, "https://example.com/page")
	second := ex.Extract(html, "https://example.com/page")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}
