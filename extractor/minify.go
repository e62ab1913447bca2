package extractor

import "strings"

// Baseline thresholds at the 50% confidence default. Raising the threshold
// percentage makes the heuristic stricter (tighter density bounds, longer
// required lines); lowering it makes it more lenient.
const (
	defaultMinifyThresholdPct = 50

	baseNewlineRatio    = 0.01
	baseWhitespaceRatio = 0.15
	baseAvgLineLength   = 200.0
)

// isMinified applies a density heuristic to an inline JS/CSS block.
// Minified code has almost no newlines, little whitespace overall, and very
// long lines; a block qualifies when both density ratios fall under their
// thresholds, or when the average line length alone exceeds its threshold.
func isMinified(content string, thresholdPct int) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}

	total := float64(len(content))
	lines := strings.Count(content, "\n") + 1

	newlineRatio := float64(lines-1) / total

	whitespace := 0
	for _, r := range content {
		switch r {
		case ' ', '\t', '\n', '\r':
			whitespace++
		}
	}
	whitespaceRatio := float64(whitespace) / total

	avgLineLength := total / float64(lines)

	scale := float64(thresholdPct) / float64(defaultMinifyThresholdPct)
	if newlineRatio <= baseNewlineRatio/scale && whitespaceRatio <= baseWhitespaceRatio/scale {
		return true
	}
	return avgLineLength >= baseAvgLineLength*scale
}

// filenameLooksMinified classifies external assets without fetching them:
// a ".min." marker in the filename is the conventional signal.
func filenameLooksMinified(assetURL string) bool {
	path := assetURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.Contains(strings.ToLower(path), ".min.")
}
