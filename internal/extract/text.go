package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

var invisibleTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"head":     true,
}

// VisibleText returns the human-visible text of an HTML document with
// whitespace collapsed.
func VisibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return DocumentText(doc)
}

// DocumentText returns the visible text of doc.
func DocumentText(doc *goquery.Document) string {
	var parts []string
	collectText(doc.Selection, &parts)
	return strings.TrimSpace(spaceRe.ReplaceAllString(strings.Join(parts, " "), " "))
}

// collectText walks s depth first, joining text nodes with spaces so that
// adjacent block elements do not run together.
func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			*parts = append(*parts, c.Text())
		case name == "#comment", invisibleTags[name], hidden(c):
		default:
			collectText(c, parts)
		}
	})
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	v, _ := s.Attr("aria-hidden")
	return v == "true"
}
