package fidelity

import "github.com/microcosm-cc/bluemonday"

// tablePolicy keeps table structure and light inline formatting; scripts,
// event handlers, links and styles are removed.
func tablePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"table", "caption", "colgroup", "col", "thead", "tbody", "tfoot", "tr", "th", "td",
		"p", "br", "div", "span", "b", "strong", "i", "em", "u", "sup", "sub",
		"h1", "h2", "h3", "h4", "h5", "h6",
	)
	p.AllowAttrs("colspan", "rowspan", "scope", "headers").OnElements("td", "th")
	p.AllowAttrs("span").OnElements("col", "colgroup")
	p.AllowAttrs("align").Matching(bluemonday.CellAlign).OnElements("td", "th", "tr", "col")
	return p
}

var policy = tablePolicy()

// SanitizeHTML strips anything but table markup from model output.
func SanitizeHTML(markup string) string {
	return policy.Sanitize(markup)
}
