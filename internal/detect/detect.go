// Package detect holds the dark-pattern detectors. Each detector is a pure
// function of one page snapshot and returns a model.Finding.
package detect

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/trustlens/internal/extract"
	"github.com/sells-group/trustlens/internal/model"
)

// Kind identifies a detector. The set is closed.
type Kind string

const (
	KindScarcity       Kind = model.FindingScarcity
	KindTimer          Kind = model.FindingTimer
	KindDripPricing    Kind = model.FindingDripPricing
	KindAddon          Kind = model.FindingAddon
	KindConfirmShaming Kind = model.FindingConfirmShaming
)

// AllKinds returns every detector kind in report order.
func AllKinds() []Kind {
	return []Kind{KindScarcity, KindTimer, KindDripPricing, KindAddon, KindConfirmShaming}
}

// Title is the human-readable violation title for a kind.
func (k Kind) Title() string {
	switch k {
	case KindScarcity:
		return "Fake Scarcity"
	case KindTimer:
		return "Fake Countdown Timer"
	case KindDripPricing:
		return "Drip Pricing"
	case KindAddon:
		return "Pre-ticked Add-on"
	case KindConfirmShaming:
		return "Confirm-shaming"
	default:
		return string(k)
	}
}

// Page is an immutable snapshot of one rendered page. Detectors only read it,
// so one Page may be shared by concurrent detectors.
type Page struct {
	URL  string
	HTML string
	// Text is the visible text with whitespace collapsed.
	Text string

	doc *goquery.Document
}

// NewPage parses html once and derives its visible text.
func NewPage(url, html string) *Page {
	p := &Page{URL: url, HTML: html}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.Text = html
		return p
	}
	p.doc = doc
	p.Text = extract.DocumentText(doc)
	return p
}

// Document returns the parsed document, or nil if html could not be parsed.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// RefreshObservation is a second load of the same page taken Elapsed after
// the first.
type RefreshObservation struct {
	FirstHTML  string
	SecondHTML string
	Elapsed    time.Duration
}

// Context carries optional signals beyond the page itself.
type Context struct {
	Refresh *RefreshObservation
}

// Detector is one dark-pattern heuristic.
type Detector interface {
	Kind() Kind
	Detect(page *Page, dc Context) model.Finding
}

// Registry returns one detector per kind, in AllKinds order.
func Registry() []Detector {
	return []Detector{
		ScarcityDetector{},
		TimerDetector{},
		DripPricingDetector{},
		AddonDetector{},
		ConfirmShamingDetector{},
	}
}

// Contributes reports whether a finding becomes a scored violation. Timer
// findings need at least one manipulative flag; bare countdown wording is
// informational.
func Contributes(kind Kind, f model.Finding) bool {
	if !f.Detected {
		return false
	}
	if kind == KindTimer {
		return f.FlagCount() > 0
	}
	return true
}

// Severity maps a contributing finding to its violation severity.
func Severity(_ Kind, f model.Finding) model.Severity {
	switch f.Confidence {
	case model.ConfidenceHigh:
		return model.SeverityHigh
	case model.ConfidenceMedium:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// literalMatches returns the distinct substrings of text matched by any of
// patterns, in first-seen order. A match overlapping one already recorded is
// the same claim and is skipped, so earlier patterns should be the longer
// forms.
func literalMatches(text string, patterns ...*regexp.Regexp) []string {
	seen := make(map[string]bool)
	var (
		out   []string
		spans [][]int
	)
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			m := strings.TrimSpace(text[loc[0]:loc[1]])
			if m == "" || seen[strings.ToLower(m)] || overlapsAny(spans, loc) {
				continue
			}
			seen[strings.ToLower(m)] = true
			spans = append(spans, loc)
			out = append(out, m)
		}
	}
	return out
}

func overlapsAny(spans [][]int, loc []int) bool {
	for _, sp := range spans {
		if loc[0] < sp[1] && sp[0] < loc[1] {
			return true
		}
	}
	return false
}
