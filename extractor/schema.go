package extractor

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractSchema parses every JSON-LD block on the page. Parse failures are
// logged and skipped; a broken block never fails the extraction.
func extractSchema(doc *goquery.Document, baseURL string) SchemaInfo {
	var info SchemaInfo

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			log.Printf("extractor: invalid json-ld block on %s: %v", baseURL, err)
			return
		}

		// Every block that parses counts, even without a usable @type;
		// only typed blocks make the page count as having schema markup.
		info.Count++

		types := schemaTypes(payload)
		if len(types) == 0 {
			return
		}

		info.HasSchema = true
		info.Types = append(info.Types, types...)
	})

	return info
}

// schemaTypes reads @type from the payload, accepting both the string and
// array forms, and falls back to the @type values of @graph items.
func schemaTypes(payload map[string]any) []string {
	if types := typeValues(payload["@type"]); len(types) > 0 {
		return types
	}

	graph, ok := payload["@graph"].([]any)
	if !ok {
		return nil
	}
	var types []string
	for _, item := range graph {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		types = append(types, typeValues(node["@type"])...)
	}
	return types
}

func typeValues(v any) []string {
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return []string{t}
		}
	case []any:
		var types []string
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				types = append(types, strings.TrimSpace(s))
			}
		}
		return types
	}
	return nil
}
