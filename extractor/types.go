package extractor

// PageSnapshot is the structured, immutable representation of a fetched
// page. It is built once per analysis and never shared across requests.
type PageSnapshot struct {
	URL             string       `json:"url"`
	Title           string       `json:"title"`
	MetaDescription string       `json:"metaDescription"`
	Headings        []Heading    `json:"headings"`
	Paragraphs      []string     `json:"paragraphs"`
	Images          []Image      `json:"images"`
	InternalLinks   []string     `json:"internalLinks"`
	OutboundLinks   []string     `json:"outboundLinks"`
	Resources       ResourceList `json:"resources"`
	OG              OGMetadata   `json:"ogMetadata"`
	Schema          SchemaInfo   `json:"schema"`
}

// Heading is a single h1-h6 element with its flattened text.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Image is an img element with a src attribute. SizeBytes is zero when the
// size has not been measured.
type Image struct {
	Src       string `json:"src"`
	Alt       string `json:"alt"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// Resource is a JS or CSS asset with the minification verdict.
type Resource struct {
	URL      string `json:"url"`
	Minified bool   `json:"minified"`
}

// ResourceList groups page assets by kind.
type ResourceList struct {
	JS  []Resource `json:"js"`
	CSS []Resource `json:"css"`
}

// OGMetadata holds the Open Graph tags relevant to the checks.
type OGMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ImageWidth  string `json:"imageWidth,omitempty"`
	ImageHeight string `json:"imageHeight,omitempty"`
}

// SchemaInfo summarizes the JSON-LD blocks found on the page.
type SchemaInfo struct {
	HasSchema bool     `json:"hasSchema"`
	Types     []string `json:"types"`
	Count     int      `json:"count"`
}
