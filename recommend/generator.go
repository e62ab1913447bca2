package recommend

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	maxContextLen      = 300
	maxExtraContextLen = 200
	cacheKeyPrefixLen  = 50
	callTimeout        = 10 * time.Second
)

// systemPrompts are equivalent phrasings rotated per call for cosmetic
// variety only; every one demands a single short suggestion.
var systemPrompts = []string{
	"You are an SEO copywriter. Reply with a single concise suggestion, no preamble and no quotes.",
	"You write SEO improvements. Answer with exactly one short suggestion and nothing else.",
	"You are an SEO assistant. Return only the suggested text, without explanations or quoting.",
}

// leadIns are phrases models prepend despite instructions; they are
// stripped from replies before use.
var leadIns = []string{
	"I recommend",
	"You should",
	"Consider",
	"Suggested",
	"Here's",
	"Recommendation:",
	"Suggestion:",
	"Update:",
	"Fix:",
}

// Go's RE2 engine has no backreferences, so the duplicated label is
// captured twice and compared for equality at replacement time.
var duplicateLabelRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 ]*):\s*([A-Za-z][A-Za-z0-9 ]*):\s*`)

// UsageRecorder receives cache and outcome counters for each generated
// recommendation. A nil recorder disables tracking.
type UsageRecorder interface {
	RecordRecommendation(cacheHit, dynamic bool)
}

// Generator produces recommendation text for failing checks. It never
// returns an error: any downstream failure degrades to a deterministic
// fallback string.
type Generator struct {
	client    TextClient
	cache     Cache
	recorder  UsageRecorder
	promptSeq atomic.Uint32
}

// New creates a Generator. client may be nil, in which case every call
// yields the fallback. cache may be nil to disable caching; recorder may be
// nil to disable usage tracking.
func New(client TextClient, cache Cache, recorder UsageRecorder) *Generator {
	return &Generator{client: client, cache: cache, recorder: recorder}
}

// Generate returns a suggestion for the given failing check. Results are
// cached by (check, keyphrase, context prefix) for the cache's TTL.
func (g *Generator) Generate(ctx context.Context, checkTitle, keyphrase, pageContext, extraContext string) string {
	key := cacheKey(checkTitle, keyphrase, pageContext)
	if g.cache != nil {
		if text, found := g.cache.Get(key); found {
			g.record(true, true)
			return text
		}
	}

	text, err := g.generate(ctx, checkTitle, keyphrase, pageContext, extraContext)
	if err != nil || text == "" {
		if err != nil {
			log.Printf("recommend: generation for %q failed, using fallback: %v", checkTitle, err)
		}
		g.record(false, false)
		return Fallback(checkTitle, keyphrase)
	}

	if g.cache != nil {
		g.cache.Set(key, text)
	}
	g.record(false, true)
	return text
}

func (g *Generator) generate(ctx context.Context, checkTitle, keyphrase, pageContext, extraContext string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("no text-generation client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	system := systemPrompts[int(g.promptSeq.Add(1))%len(systemPrompts)]

	var user strings.Builder
	fmt.Fprintf(&user, "Write an improved %s for a web page targeting the keyphrase %q.", checkSubject(checkTitle), keyphrase)
	if c := truncate(pageContext, maxContextLen); c != "" {
		fmt.Fprintf(&user, " Current value: %s", c)
	}
	if c := truncate(extraContext, maxExtraContextLen); c != "" {
		fmt.Fprintf(&user, " Page context: %s", c)
	}

	reply, err := g.client.Complete(ctx, system, user.String())
	if err != nil {
		return "", err
	}
	return cleanReply(reply), nil
}

func (g *Generator) record(cacheHit, dynamic bool) {
	if g.recorder != nil {
		g.recorder.RecordRecommendation(cacheHit, dynamic)
	}
}

func cacheKey(checkTitle, keyphrase, pageContext string) string {
	return checkTitle + "|" + keyphrase + "|" + truncatePlain(pageContext, cacheKeyPrefixLen)
}

// Fallback is the deterministic recommendation used when dynamic generation
// is unavailable or fails.
func Fallback(checkTitle, keyphrase string) string {
	if checkTitle == "Keyphrase in Title" {
		return capitalize(keyphrase) + " - Your Website"
	}
	return fmt.Sprintf("Add %q to your %s", keyphrase, checkSubject(checkTitle))
}

// checkSubject names the page element a check is about, for prompts and
// fallback templates.
func checkSubject(checkTitle string) string {
	switch checkTitle {
	case "Keyphrase in Title":
		return "page title"
	case "Keyphrase in Meta Description":
		return "meta description"
	case "Keyphrase in Introduction":
		return "introduction paragraph"
	case "Keyphrase in H1":
		return "H1 heading"
	default:
		return "page content"
	}
}

// cleanReply normalizes a model reply: strips lead-in phrases and chained
// labels, removes wrapping quotes and backticks, collapses duplicated
// "Label: Label:" prefixes and whitespace.
func cleanReply(reply string) string {
	text := strings.TrimSpace(reply)

	stripped := true
	chained := false
	for stripped {
		stripped = false
		for _, lead := range leadIns {
			if hasLeadIn(text, lead) {
				text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text[len(lead):]), ":"))
				stripped = true
				chained = true
			}
		}
		// "Example:" only counts as a label when it chains after another
		// lead-in; standalone it may be part of the suggestion itself.
		if chained && strings.EqualFold(firstN(text, len("Example:")), "Example:") {
			text = strings.TrimSpace(text[len("Example:"):])
			stripped = true
		}
	}

	if sub := duplicateLabelRe.FindStringSubmatch(text); sub != nil && sub[1] == sub[2] {
		text = sub[1] + ": " + text[len(sub[0]):]
	}
	text = strings.Trim(text, "\"'`")
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// hasLeadIn matches lead at the start of text on a word boundary, so a
// reply that merely starts with the same letters ("Considerable savings")
// is left alone. Leads ending in ":" are self-delimiting.
func hasLeadIn(text, lead string) bool {
	if len(text) < len(lead) || !strings.EqualFold(text[:len(lead)], lead) {
		return false
	}
	if len(text) == len(lead) || strings.HasSuffix(lead, ":") {
		return true
	}
	switch text[len(lead)] {
	case ' ', '\t', '\n', '\r', ':':
		return true
	}
	return false
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func truncatePlain(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
