package extractor

import (
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noiseSelectors target elements that rarely carry page content: consent
// banners, chat widgets, modals, and anything hidden from assistive tech.
var noiseSelectors = []string{
	"[id*='cookie']",
	"[class*='cookie']",
	"[id*='consent']",
	"[class*='consent']",
	"[class*='chat-widget']",
	"[id*='chat-widget']",
	"[class*='modal']",
	"[class*='popup']",
	"[aria-hidden='true']",
}

// skippedHrefPrefixes are link targets that never count as page links.
var skippedHrefPrefixes = []string{"#", "mailto:", "tel:", "javascript:", "data:", "vbscript:"}

// Extractor turns raw HTML into a PageSnapshot. The zero value is not
// usable; construct with New.
type Extractor struct {
	minifyThresholdPct int
}

// New returns an Extractor. minifyThresholdPct tunes the minification
// heuristic; values outside 1-100 fall back to the 50% default.
func New(minifyThresholdPct int) *Extractor {
	if minifyThresholdPct < 1 || minifyThresholdPct > 100 {
		minifyThresholdPct = defaultMinifyThresholdPct
	}
	return &Extractor{minifyThresholdPct: minifyThresholdPct}
}

// Extract parses rawHTML into a snapshot. Malformed or partial markup never
// fails: the html parser repairs what it can and missing pieces stay at
// their zero values.
func (e *Extractor) Extract(rawHTML, baseURL string) *PageSnapshot {
	snap := &PageSnapshot{URL: baseURL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		log.Printf("extractor: unparseable document for %s: %v", baseURL, err)
		return snap
	}

	stripNoise(doc)

	snap.OG = extractOpenGraph(doc)

	snap.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if snap.Title == "" {
		snap.Title = snap.OG.Title
	}

	snap.MetaDescription, _ = doc.Find("meta[name='description']").Attr("content")
	snap.MetaDescription = strings.TrimSpace(snap.MetaDescription)
	if snap.MetaDescription == "" {
		snap.MetaDescription = snap.OG.Description
	}

	snap.Headings = extractHeadings(doc)
	snap.Paragraphs = extractParagraphs(doc)
	snap.Images = extractImages(doc)
	snap.InternalLinks, snap.OutboundLinks = extractLinks(doc, baseURL)
	snap.Resources = e.extractResources(doc)
	snap.Schema = extractSchema(doc, baseURL)

	return snap
}

// stripNoise removes noise elements selector by selector. A failure for one
// selector must not abort the whole extraction.
func stripNoise(doc *goquery.Document) {
	for _, sel := range noiseSelectors {
		removeMatches(doc, sel)
	}
}

func removeMatches(doc *goquery.Document, sel string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extractor: noise selector %q failed: %v", sel, r)
		}
	}()
	doc.Find(sel).Remove()
}

func extractHeadings(doc *goquery.Document) []Heading {
	var headings []Heading
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		level, err := strconv.Atoi(strings.TrimPrefix(s.Nodes[0].Data, "h"))
		if err != nil || level < 1 || level > 6 {
			return
		}
		text := flattenText(s)
		if text == "" {
			return
		}
		headings = append(headings, Heading{Level: level, Text: text})
	})
	return headings
}

func extractParagraphs(doc *goquery.Document) []string {
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := flattenText(s); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

func extractImages(doc *goquery.Document) []Image {
	var images []Image
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" {
			return
		}
		alt, _ := s.Attr("alt")
		images = append(images, Image{Src: src, Alt: strings.TrimSpace(alt)})
	})
	return images
}

func extractLinks(doc *goquery.Document, baseURL string) (internal, outbound []string) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || isSkippedHref(href) {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsed)
		if resolved.Hostname() == "" {
			return
		}

		if strings.EqualFold(resolved.Hostname(), base.Hostname()) {
			internal = append(internal, resolved.String())
		} else {
			outbound = append(outbound, resolved.String())
		}
	})
	return internal, outbound
}

func isSkippedHref(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// extractResources collects external script and stylesheet references plus
// inline script/style blocks. External files are judged by their filename;
// inline blocks go through the density heuristic.
func (e *Extractor) extractResources(doc *goquery.Document) ResourceList {
	var resources ResourceList

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.TrimSpace(src) != "" {
			src = strings.TrimSpace(src)
			resources.JS = append(resources.JS, Resource{URL: src, Minified: filenameLooksMinified(src)})
			return
		}
		if typ, ok := s.Attr("type"); ok && strings.EqualFold(strings.TrimSpace(typ), "application/ld+json") {
			return
		}
		if body := s.Text(); strings.TrimSpace(body) != "" {
			resources.JS = append(resources.JS, Resource{Minified: isMinified(body, e.minifyThresholdPct)})
		}
	})

	doc.Find("link[rel='stylesheet'][href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		resources.CSS = append(resources.CSS, Resource{URL: href, Minified: filenameLooksMinified(href)})
	})

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if body := s.Text(); strings.TrimSpace(body) != "" {
			resources.CSS = append(resources.CSS, Resource{Minified: isMinified(body, e.minifyThresholdPct)})
		}
	})

	return resources
}

func extractOpenGraph(doc *goquery.Document) OGMetadata {
	return OGMetadata{
		Title:       metaProperty(doc, "og:title"),
		Description: metaProperty(doc, "og:description"),
		Image:       metaProperty(doc, "og:image"),
		ImageWidth:  metaProperty(doc, "og:image:width"),
		ImageHeight: metaProperty(doc, "og:image:height"),
	}
}

func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find("meta[property='" + property + "']").First().Attr("content")
	return strings.TrimSpace(content)
}

// flattenText joins the text nodes of a selection with spaces and collapses
// whitespace, so "Title <span>X</span>" comes out as "Title X" rather than
// the texts running together.
func flattenText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
