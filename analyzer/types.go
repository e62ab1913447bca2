package analyzer

import "time"

// Priority ranks how much a check contributes to the overall score.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityWeights is consulted by the scorer and nothing else.
var priorityWeights = map[Priority]int{
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// SEOCheck is the outcome of one rule in the fixed catalogue. Title is the
// stable identifier used for priority lookup, success messages, and
// recommendation cache keys.
type SEOCheck struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Passed         bool     `json:"passed"`
	Priority       Priority `json:"priority"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// PageData carries host-supplied metadata that overrides values extracted
// from HTML for the title, meta description, and OG checks.
type PageData struct {
	Title             string `json:"title"`
	MetaDescription   string `json:"metaDescription"`
	UsePageTitleForOG bool   `json:"usePageTitleForOg"`
	UsePageDescForOG  bool   `json:"usePageDescriptionForOg"`
}

// Request is one analysis invocation.
type Request struct {
	URL        string    `json:"url"`
	Keyphrase  string    `json:"keyphrase"`
	IsHomePage bool      `json:"isHomePage"`
	PageData   *PageData `json:"pageData,omitempty"`
}

// Result is the sole artifact handed back to the caller.
type Result struct {
	Checks       []SEOCheck `json:"checks"`
	PassedChecks int        `json:"passedChecks"`
	FailedChecks int        `json:"failedChecks"`
	URL          string     `json:"url"`
	Score        int        `json:"score"`
	Timestamp    time.Time  `json:"timestamp"`
	APIDataUsed  bool       `json:"apiDataUsed"`
}
