// Package render runs the staged page-readiness pipeline on a leased
// browser session and produces screenshots and extracted image inventories
// from the resulting page state.
package render

// Readiness describes whether page content was judged loaded and by which
// heuristic. It feeds logging and the pipeline's re-check branch only; it
// is never persisted.
type Readiness struct {
	Ready      bool
	TextLength int
	ImageCount int
	// Source is the matching SPA selector, "body", or "timeout".
	Source string
}

// contentSnapshot is the render state returned by one snapshot query.
type contentSnapshot struct {
	Roots []rootSnapshot `json:"roots"`
	Body  bodySnapshot   `json:"body"`
}

type rootSnapshot struct {
	Selector   string `json:"selector"`
	Present    bool   `json:"present"`
	ChildCount int    `json:"childCount"`
	TextLength int    `json:"textLength"`
	ImageCount int    `json:"imageCount"`
}

type bodySnapshot struct {
	TextLength int `json:"textLength"`
	ImageCount int `json:"imageCount"`
}

// Position locates an image on the page at extraction time.
type Position struct {
	X       int  `json:"x"`
	Y       int  `json:"y"`
	Visible bool `json:"visible"`
}

// RawImage is one record produced by the in-page extraction query, before
// filtering and classification.
type RawImage struct {
	Src                    string   `json:"src"`
	Srcset                 *string  `json:"srcset"`
	Alt                    string   `json:"alt"`
	Width                  int      `json:"width"`
	Height                 int      `json:"height"`
	Format                 string   `json:"format"`
	Position               Position `json:"position"`
	ContainsLogo           bool     `json:"containsLogo"`
	ContainsProductKeywords bool    `json:"containsProductKeywords"`
	InHeader               bool     `json:"inHeader"`
	IsLazyLoaded           bool     `json:"isLazyLoaded"`
	ClassName              string   `json:"className"`
	ParentTag              *string  `json:"parentTag"`
}

// PageContext captures viewport and scroll geometry at extraction time;
// the classifier's hero rule depends on it.
type PageContext struct {
	ViewportWidth  int `json:"viewportWidth"`
	ViewportHeight int `json:"viewportHeight"`
	ScrollHeight   int `json:"scrollHeight"`
}

// extractionPayload is the full result of the in-page extraction query.
type extractionPayload struct {
	AllImages       []RawImage  `json:"allImages"`
	PageContext     PageContext `json:"pageContext"`
	LazyLoadedCount int         `json:"lazyLoadedCount"`
}

// ExtractedImage is one classified image in the public extraction result.
type ExtractedImage struct {
	Src            string   `json:"src"`
	Srcset         *string  `json:"srcset"`
	Alt            string   `json:"alt"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Format         string   `json:"format"`
	Position       Position `json:"position"`
	Classification string   `json:"classification"`
	IsLazyLoaded   bool     `json:"isLazyLoaded"`
}

// Image classification labels, in precedence order.
const (
	ClassHero      = "hero"
	ClassLogo      = "logo"
	ClassProduct   = "product"
	ClassIcon      = "icon"
	ClassThumbnail = "thumbnail"
	ClassContent   = "content"
)
