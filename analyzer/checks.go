package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/seo-insight/backend/extractor"
	"github.com/seo-insight/backend/recommend"
)

// Check titles are the stable identifiers for priority lookup, success
// messages, and recommendation cache keys.
const (
	CheckKeyphraseInTitle           = "Keyphrase in Title"
	CheckKeyphraseInMetaDescription = "Keyphrase in Meta Description"
	CheckKeyphraseInURL             = "Keyphrase in URL"
	CheckContentLength              = "Content Length"
	CheckKeyphraseDensity           = "Keyphrase Density"
	CheckKeyphraseInIntroduction    = "Keyphrase in Introduction"
	CheckImageAltAttributes         = "Image Alt Attributes"
	CheckInternalLinks              = "Internal Links"
	CheckOutboundLinks              = "Outbound Links"
	CheckNextGenImageFormats        = "Next-Gen Image Formats"
	CheckOGImage                    = "OG Image"
	CheckOGTitleDescription         = "OG Title & Description"
	CheckKeyphraseInH1              = "Keyphrase in H1"
	CheckKeyphraseInH2              = "Keyphrase in H2"
	CheckHeadingHierarchy           = "Heading Hierarchy"
	CheckCodeMinification           = "Code Minification"
	CheckSchemaMarkup               = "Schema Markup"
	CheckImageFileSize              = "Image File Size"
)

const (
	minContentWords     = 300
	minDensityPct       = 0.5
	maxDensityPct       = 2.5
	minMinifiedRatio    = 0.4
	oversizedImageBytes = 500 * 1024
)

var checkPriorities = map[string]Priority{
	CheckKeyphraseInTitle:           PriorityHigh,
	CheckKeyphraseInMetaDescription: PriorityHigh,
	CheckKeyphraseInURL:             PriorityMedium,
	CheckContentLength:              PriorityHigh,
	CheckKeyphraseDensity:           PriorityMedium,
	CheckKeyphraseInIntroduction:    PriorityMedium,
	CheckImageAltAttributes:         PriorityLow,
	CheckInternalLinks:              PriorityMedium,
	CheckOutboundLinks:              PriorityLow,
	CheckNextGenImageFormats:        PriorityLow,
	CheckOGImage:                    PriorityMedium,
	CheckOGTitleDescription:         PriorityMedium,
	CheckKeyphraseInH1:              PriorityHigh,
	CheckKeyphraseInH2:              PriorityMedium,
	CheckHeadingHierarchy:           PriorityHigh,
	CheckCodeMinification:           PriorityLow,
	CheckSchemaMarkup:               PriorityMedium,
	CheckImageFileSize:              PriorityMedium,
}

// dynamicChecks request an AI-backed recommendation when they fail; every
// other failing check gets a static template.
var dynamicChecks = map[string]bool{
	CheckKeyphraseInTitle:           true,
	CheckKeyphraseInMetaDescription: true,
	CheckKeyphraseInIntroduction:    true,
	CheckKeyphraseInH1:              true,
}

// outcome is the result of one rule evaluation. context and extraContext
// feed the dynamic recommendation prompt for the checks that use one.
type outcome struct {
	passed       bool
	description  string
	context      string
	extraContext string
}

type checkSpec struct {
	title string
	eval  func(in *evalInput) outcome
}

// catalogue is the fixed, ordered battery of checks. Every entry is
// evaluated and appended exactly once per run, even on empty inputs.
var catalogue = []checkSpec{
	{CheckKeyphraseInTitle, evalKeyphraseInTitle},
	{CheckKeyphraseInMetaDescription, evalKeyphraseInMetaDescription},
	{CheckKeyphraseInURL, evalKeyphraseInURL},
	{CheckContentLength, evalContentLength},
	{CheckKeyphraseDensity, evalKeyphraseDensity},
	{CheckKeyphraseInIntroduction, evalKeyphraseInIntroduction},
	{CheckImageAltAttributes, evalImageAltAttributes},
	{CheckInternalLinks, evalInternalLinks},
	{CheckOutboundLinks, evalOutboundLinks},
	{CheckNextGenImageFormats, evalNextGenImageFormats},
	{CheckOGImage, evalOGImage},
	{CheckOGTitleDescription, evalOGTitleDescription},
	{CheckKeyphraseInH1, evalKeyphraseInH1},
	{CheckKeyphraseInH2, evalKeyphraseInH2},
	{CheckHeadingHierarchy, evalHeadingHierarchy},
	{CheckCodeMinification, evalCodeMinification},
	{CheckSchemaMarkup, evalSchemaMarkup},
	{CheckImageFileSize, evalImageFileSize},
}

// evalInput precomputes the values the evaluators share. Comparison is
// plain lower-casing throughout; no locale-aware collation.
type evalInput struct {
	snap       *extractor.PageSnapshot
	keyphrase  string
	lowerKey   string
	isHomePage bool
	pageData   *PageData

	title           string
	metaDescription string
	bodyText        string
	totalWords      int
}

func newEvalInput(snap *extractor.PageSnapshot, keyphrase string, isHomePage bool, pageData *PageData) *evalInput {
	in := &evalInput{
		snap:            snap,
		keyphrase:       keyphrase,
		lowerKey:        strings.ToLower(keyphrase),
		isHomePage:      isHomePage,
		pageData:        pageData,
		title:           snap.Title,
		metaDescription: snap.MetaDescription,
		bodyText:        strings.Join(snap.Paragraphs, " "),
	}
	// Host-supplied metadata overrides the extracted values.
	if pageData != nil {
		if pageData.Title != "" {
			in.title = pageData.Title
		}
		if pageData.MetaDescription != "" {
			in.metaDescription = pageData.MetaDescription
		}
	}
	in.totalWords = len(strings.Fields(in.bodyText))
	return in
}

func (in *evalInput) containsKeyphrase(text string) bool {
	return strings.Contains(strings.ToLower(text), in.lowerKey)
}

// containsKeyphraseWords is the fuzzy fallback for heading checks: every
// individual keyphrase word longer than two characters must appear.
func (in *evalInput) containsKeyphraseWords(text string) bool {
	lower := strings.ToLower(text)
	matched := 0
	for _, word := range strings.Fields(in.lowerKey) {
		if len(word) <= 2 {
			continue
		}
		if !strings.Contains(lower, word) {
			return false
		}
		matched++
	}
	return matched > 0
}

func (in *evalInput) headingsAtLevel(level int) []string {
	var texts []string
	for _, h := range in.snap.Headings {
		if h.Level == level {
			texts = append(texts, h.Text)
		}
	}
	return texts
}

func (in *evalInput) firstParagraph() string {
	if len(in.snap.Paragraphs) == 0 {
		return ""
	}
	return in.snap.Paragraphs[0]
}

// Recommender produces recommendation text for a failing check. It must
// never fail; implementations degrade to deterministic fallbacks.
type Recommender interface {
	Generate(ctx context.Context, checkTitle, keyphrase, pageContext, extraContext string) string
}

// Engine evaluates the fixed check catalogue against a page snapshot.
type Engine struct {
	recommender Recommender
}

// NewEngine creates an Engine. recommender may be nil, in which case
// failing dynamic checks use the deterministic fallback text.
func NewEngine(recommender Recommender) *Engine {
	return &Engine{recommender: recommender}
}

// Evaluate runs every check in catalogue order. Dynamic recommendation
// calls for failing checks run concurrently, but each result lands in its
// fixed slot so the output order never depends on completion order.
func (e *Engine) Evaluate(ctx context.Context, snap *extractor.PageSnapshot, keyphrase string, isHomePage bool, pageData *PageData) []SEOCheck {
	in := newEvalInput(snap, keyphrase, isHomePage, pageData)

	checks := make([]SEOCheck, 0, len(catalogue))
	type pendingRec struct {
		idx          int
		context      string
		extraContext string
	}
	var pending []pendingRec

	for _, spec := range catalogue {
		out := spec.eval(in)
		check := SEOCheck{
			Title:       spec.title,
			Description: out.description,
			Passed:      out.passed,
			Priority:    checkPriorities[spec.title],
		}
		if !out.passed {
			if dynamicChecks[spec.title] && e.recommender != nil {
				pending = append(pending, pendingRec{idx: len(checks), context: out.context, extraContext: out.extraContext})
			} else if dynamicChecks[spec.title] {
				check.Recommendation = recommend.Fallback(spec.title, keyphrase)
			} else {
				check.Recommendation = staticRecommendation(spec.title, in)
			}
		}
		checks = append(checks, check)
	}

	var wg sync.WaitGroup
	for _, p := range pending {
		wg.Add(1)
		go func(p pendingRec) {
			defer wg.Done()
			checks[p.idx].Recommendation = e.recommender.Generate(ctx, checks[p.idx].Title, keyphrase, p.context, p.extraContext)
		}(p)
	}
	wg.Wait()

	return checks
}

func evalKeyphraseInTitle(in *evalInput) outcome {
	if in.title == "" {
		return outcome{
			description:  "The page has no title.",
			extraContext: in.firstParagraph(),
		}
	}
	if in.containsKeyphrase(in.title) {
		return outcome{passed: true, description: fmt.Sprintf("The page title contains the keyphrase %q.", in.keyphrase)}
	}
	return outcome{
		description:  fmt.Sprintf("The page title %q does not contain the keyphrase %q.", in.title, in.keyphrase),
		context:      in.title,
		extraContext: in.firstParagraph(),
	}
}

func evalKeyphraseInMetaDescription(in *evalInput) outcome {
	if in.metaDescription == "" {
		return outcome{
			description:  "The page has no meta description.",
			extraContext: in.firstParagraph(),
		}
	}
	if in.containsKeyphrase(in.metaDescription) {
		return outcome{passed: true, description: fmt.Sprintf("The meta description contains the keyphrase %q.", in.keyphrase)}
	}
	return outcome{
		description:  fmt.Sprintf("The meta description does not contain the keyphrase %q.", in.keyphrase),
		context:      in.metaDescription,
		extraContext: in.firstParagraph(),
	}
}

func evalKeyphraseInURL(in *evalInput) outcome {
	if in.isHomePage {
		return outcome{passed: true, description: "Homepage URLs are not expected to carry the keyphrase."}
	}

	slug := urlSlug(in.snap.URL)
	hyphenated := strings.ReplaceAll(in.lowerKey, " ", "-")
	if slug != "" && strings.Contains(strings.ToLower(slug), hyphenated) {
		return outcome{passed: true, description: fmt.Sprintf("The URL slug %q contains the keyphrase.", slug)}
	}
	if slug == "" {
		return outcome{description: "The URL has no slug to carry the keyphrase."}
	}
	return outcome{description: fmt.Sprintf("The URL slug %q does not contain the keyphrase %q.", slug, in.keyphrase)}
}

func evalContentLength(in *evalInput) outcome {
	if in.totalWords >= minContentWords {
		return outcome{passed: true, description: fmt.Sprintf("The page has %d words of content, above the %d-word minimum.", in.totalWords, minContentWords)}
	}
	return outcome{description: fmt.Sprintf("The page has only %d words of content; at least %d are recommended.", in.totalWords, minContentWords)}
}

func evalKeyphraseDensity(in *evalInput) outcome {
	if in.totalWords == 0 {
		return outcome{description: "The page has no text content to measure keyphrase density in."}
	}

	occurrences := strings.Count(strings.ToLower(in.bodyText), in.lowerKey)
	density := keyphraseDensity(occurrences, len(strings.Fields(in.lowerKey)), in.totalWords)

	if density >= minDensityPct && density <= maxDensityPct {
		return outcome{passed: true, description: fmt.Sprintf("Keyphrase density is %.1f%%, within the %.1f%%-%.1f%% range.", density, minDensityPct, maxDensityPct)}
	}
	if density < minDensityPct {
		return outcome{description: fmt.Sprintf("Keyphrase density is %.1f%%, below the %.1f%% minimum.", density, minDensityPct)}
	}
	return outcome{description: fmt.Sprintf("Keyphrase density is %.1f%%, above the %.1f%% maximum.", density, maxDensityPct)}
}

// keyphraseDensity uses the word-coverage form: the share of body words
// accounted for by keyphrase occurrences. For a multi-word keyphrase each
// occurrence covers every word of the phrase.
func keyphraseDensity(occurrences, keyphraseWords, totalWords int) float64 {
	if totalWords == 0 || keyphraseWords == 0 {
		return 0
	}
	return float64(occurrences*keyphraseWords) / float64(totalWords) * 100
}

func evalKeyphraseInIntroduction(in *evalInput) outcome {
	first := in.firstParagraph()
	if first == "" {
		return outcome{description: "The page has no introduction paragraph."}
	}
	if in.containsKeyphrase(first) {
		return outcome{passed: true, description: fmt.Sprintf("The introduction contains the keyphrase %q.", in.keyphrase)}
	}
	return outcome{
		description: fmt.Sprintf("The first paragraph does not contain the keyphrase %q.", in.keyphrase),
		context:     first,
	}
}

func evalImageAltAttributes(in *evalInput) outcome {
	if len(in.snap.Images) == 0 {
		return outcome{passed: true, description: "The page has no images, so no alt text is missing."}
	}
	missing := 0
	for _, img := range in.snap.Images {
		if img.Alt == "" {
			missing++
		}
	}
	if missing == 0 {
		return outcome{passed: true, description: fmt.Sprintf("All %d images have alt text.", len(in.snap.Images))}
	}
	return outcome{description: fmt.Sprintf("%d of %d images are missing alt text.", missing, len(in.snap.Images))}
}

func evalInternalLinks(in *evalInput) outcome {
	if len(in.snap.InternalLinks) > 0 {
		return outcome{passed: true, description: fmt.Sprintf("The page has %d internal links.", len(in.snap.InternalLinks))}
	}
	return outcome{description: "The page has no internal links."}
}

func evalOutboundLinks(in *evalInput) outcome {
	if len(in.snap.OutboundLinks) > 0 {
		return outcome{passed: true, description: fmt.Sprintf("The page has %d outbound links.", len(in.snap.OutboundLinks))}
	}
	return outcome{description: "The page has no outbound links."}
}

func evalNextGenImageFormats(in *evalInput) outcome {
	if len(in.snap.Images) == 0 {
		return outcome{passed: true, description: "The page has no images, so image formats are not a concern."}
	}
	legacy := 0
	for _, img := range in.snap.Images {
		if !isNextGenImage(img.Src) {
			legacy++
		}
	}
	if legacy == 0 {
		return outcome{passed: true, description: "All images use next-gen formats (WebP/AVIF)."}
	}
	return outcome{description: fmt.Sprintf("%d of %d images use legacy formats instead of WebP/AVIF.", legacy, len(in.snap.Images))}
}

func isNextGenImage(src string) bool {
	path := strings.ToLower(src)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(path, ".webp") || strings.HasSuffix(path, ".avif")
}

func evalOGImage(in *evalInput) outcome {
	if in.snap.OG.Image != "" {
		return outcome{passed: true, description: "The page declares an og:image tag."}
	}
	return outcome{description: "The page has no og:image tag, so shared links will not show a preview image."}
}

func evalOGTitleDescription(in *evalInput) outcome {
	if in.pageData != nil && in.pageData.UsePageTitleForOG && in.pageData.UsePageDescForOG {
		return outcome{passed: true, description: "The host falls back to the page title and description for OG tags."}
	}
	if in.snap.OG.Title != "" && in.snap.OG.Description != "" {
		return outcome{passed: true, description: "The page declares both og:title and og:description tags."}
	}
	return outcome{description: "The page is missing og:title and/or og:description tags."}
}

func evalKeyphraseInH1(in *evalInput) outcome {
	h1s := in.headingsAtLevel(1)
	switch {
	case len(h1s) == 0:
		return outcome{
			description:  "No H1 heading found on the page.",
			extraContext: in.title,
		}
	case len(h1s) > 1:
		return outcome{
			description:  fmt.Sprintf("The page has %d H1 headings; exactly one is expected.", len(h1s)),
			context:      h1s[0],
			extraContext: in.title,
		}
	}

	h1 := h1s[0]
	if in.containsKeyphrase(h1) || in.containsKeyphraseWords(h1) {
		return outcome{passed: true, description: fmt.Sprintf("The H1 heading contains the keyphrase %q.", in.keyphrase)}
	}
	return outcome{
		description:  fmt.Sprintf("The H1 heading %q does not contain the keyphrase %q.", h1, in.keyphrase),
		context:      h1,
		extraContext: in.title,
	}
}

func evalKeyphraseInH2(in *evalInput) outcome {
	h2s := in.headingsAtLevel(2)
	if len(h2s) == 0 {
		return outcome{passed: true, description: "The page has no H2 headings, so the keyphrase requirement does not apply."}
	}
	for _, h2 := range h2s {
		if in.containsKeyphrase(h2) || in.containsKeyphraseWords(h2) {
			return outcome{passed: true, description: fmt.Sprintf("An H2 heading contains the keyphrase %q.", in.keyphrase)}
		}
	}
	return outcome{description: fmt.Sprintf("None of the %d H2 headings contain the keyphrase %q.", len(h2s), in.keyphrase)}
}

func evalHeadingHierarchy(in *evalInput) outcome {
	headings := in.snap.Headings
	if len(headings) == 0 {
		return outcome{description: "No headings found on the page."}
	}

	if headings[0].Level != 1 {
		return outcome{description: fmt.Sprintf("The document starts with an H%d instead of an H1.", headings[0].Level)}
	}

	h1Count, h2Count := 0, 0
	for _, h := range headings {
		switch h.Level {
		case 1:
			h1Count++
		case 2:
			h2Count++
		}
	}
	if h1Count > 1 {
		return outcome{description: fmt.Sprintf("The page has %d H1 headings; exactly one is expected.", h1Count)}
	}
	if h2Count == 0 {
		return outcome{description: "The page has no H2 headings below its H1."}
	}

	for i := 1; i < len(headings); i++ {
		if headings[i].Level > headings[i-1].Level+1 {
			return outcome{description: fmt.Sprintf("The heading level skips from H%d to H%d.", headings[i-1].Level, headings[i].Level)}
		}
	}

	return outcome{passed: true, description: "Headings follow a proper hierarchy: one H1, at least one H2, no skipped levels."}
}

func evalCodeMinification(in *evalInput) outcome {
	resources := len(in.snap.Resources.JS) + len(in.snap.Resources.CSS)
	if resources == 0 {
		return outcome{passed: true, description: "The page loads no JS or CSS resources to minify."}
	}

	minified := 0
	for _, r := range in.snap.Resources.JS {
		if r.Minified {
			minified++
		}
	}
	for _, r := range in.snap.Resources.CSS {
		if r.Minified {
			minified++
		}
	}

	ratio := float64(minified) / float64(resources)
	if ratio >= minMinifiedRatio {
		return outcome{passed: true, description: fmt.Sprintf("%d of %d JS/CSS resources appear minified.", minified, resources)}
	}
	return outcome{description: fmt.Sprintf("Only %d of %d JS/CSS resources appear minified; at least %.0f%% should be.", minified, resources, minMinifiedRatio*100)}
}

func evalSchemaMarkup(in *evalInput) outcome {
	if in.snap.Schema.HasSchema {
		return outcome{passed: true, description: fmt.Sprintf("The page declares schema.org markup (%s).", strings.Join(in.snap.Schema.Types, ", "))}
	}
	return outcome{description: "The page has no schema.org structured data."}
}

func evalImageFileSize(in *evalInput) outcome {
	if len(in.snap.Images) == 0 {
		return outcome{passed: true, description: "The page has no images, so image sizes are not a concern."}
	}
	oversized := 0
	for _, img := range in.snap.Images {
		// Unmeasured sizes count as passing.
		if img.SizeBytes > oversizedImageBytes {
			oversized++
		}
	}
	if oversized == 0 {
		return outcome{passed: true, description: "No image exceeds the size threshold."}
	}
	return outcome{description: fmt.Sprintf("%d images exceed the %d KB size threshold.", oversized, oversizedImageBytes/1024)}
}

// staticRecommendation builds the templated suggestion for checks that do
// not use dynamic generation.
func staticRecommendation(checkTitle string, in *evalInput) string {
	switch checkTitle {
	case CheckKeyphraseInURL:
		return fmt.Sprintf("Include the keyphrase in the URL slug, e.g. /%s", strings.ReplaceAll(in.lowerKey, " ", "-"))
	case CheckContentLength:
		return fmt.Sprintf("Expand the page content to at least %d words covering %q in depth.", minContentWords, in.keyphrase)
	case CheckKeyphraseDensity:
		return fmt.Sprintf("Use %q naturally so it makes up between %.1f%% and %.1f%% of the text.", in.keyphrase, minDensityPct, maxDensityPct)
	case CheckImageAltAttributes:
		return fmt.Sprintf("Add descriptive alt text to every image, mentioning %q where it fits naturally.", in.keyphrase)
	case CheckInternalLinks:
		return "Add at least one internal link so visitors and crawlers can reach related pages."
	case CheckOutboundLinks:
		return "Link to at least one authoritative external source to add credibility."
	case CheckNextGenImageFormats:
		return "Serve images in WebP or AVIF format to reduce page weight."
	case CheckOGImage:
		return "Add an og:image meta tag so shared links show a preview image."
	case CheckOGTitleDescription:
		return "Add og:title and og:description meta tags for social sharing."
	case CheckKeyphraseInH2:
		return fmt.Sprintf("Add the keyphrase %q to at least one H2 heading.", in.keyphrase)
	case CheckHeadingHierarchy:
		return "Structure headings in order: a single H1 followed by H2 sections, without skipping levels."
	case CheckCodeMinification:
		return "Minify your JavaScript and CSS resources to speed up page loads."
	case CheckSchemaMarkup:
		return "Add schema.org structured data (JSON-LD) to help search engines understand the page."
	case CheckImageFileSize:
		return fmt.Sprintf("Compress images larger than %d KB or serve responsive sizes.", oversizedImageBytes/1024)
	default:
		return recommend.Fallback(checkTitle, in.keyphrase)
	}
}

// urlSlug returns the last non-empty path segment of a URL.
func urlSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
