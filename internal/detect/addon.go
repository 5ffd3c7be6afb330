package detect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/trustlens/internal/model"
)

var addonKeywordRe = regexp.MustCompile(`(?i)warranty|insurance|protection|protect\s+plan|add-?on|accessor(?:y|ies)|extended|care\s+pack|gift\s+wrap|donation|donate`)

// optOutRe matches labels of the "no add-on" choice itself.
var optOutRe = regexp.MustCompile(`(?i)^(?:no|none|without|skip)\b`)

const maxLabelLen = 120

// AddonDetector flags add-ons that are selected before the shopper acts.
// Offers that are present but unchecked are not a dark pattern.
type AddonDetector struct{}

func (AddonDetector) Kind() Kind { return KindAddon }

func (AddonDetector) Detect(page *Page, _ Context) model.Finding {
	doc := page.Document()
	if doc == nil {
		return model.NegativeFinding("Page markup could not be parsed.")
	}

	flags := map[string]bool{}
	var matches []string
	record := func(flag, label string) {
		if optOutRe.MatchString(label) {
			return
		}
		flags[flag] = true
		matches = append(matches, truncate(label, maxLabelLen))
	}

	doc.Find(`input[type="checkbox"][checked], [role="checkbox"][aria-checked="true"]`).Each(func(_ int, s *goquery.Selection) {
		if label := controlLabel(doc, s); addonKeywordRe.MatchString(label) {
			record("pre_ticked_checkbox", label)
		}
	})
	doc.Find(`input[type="radio"][checked]`).Each(func(_ int, s *goquery.Selection) {
		if label := controlLabel(doc, s); addonKeywordRe.MatchString(label) {
			record("preselected_option", label)
		}
	})
	doc.Find(`option[selected]`).Each(func(_ int, s *goquery.Selection) {
		if label := collapse(s.Text()); addonKeywordRe.MatchString(label) {
			record("preselected_option", label)
		}
	})

	if len(matches) == 0 {
		return model.NegativeFinding("No pre-selected add-ons found.")
	}

	f := model.Finding{
		Detected:    true,
		Confidence:  model.ConfidenceMedium,
		Matches:     matches,
		Flags:       flags,
		Explanation: "Paid add-ons are pre-selected and will be charged unless the shopper opts out.",
	}
	if len(matches) >= 2 {
		f.Confidence = model.ConfidenceHigh
	}
	return f.Normalize()
}

// controlLabel returns the text describing a form control: its <label for>,
// an enclosing label, aria-label, or the text of its parent element.
func controlLabel(doc *goquery.Document, s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		if l := doc.Find(`label[for="` + id + `"]`); l.Length() > 0 {
			return collapse(l.First().Text())
		}
	}
	if l := s.Closest("label"); l.Length() > 0 {
		return collapse(l.Text())
	}
	if v, ok := s.Attr("aria-label"); ok && v != "" {
		return collapse(v)
	}
	if t := collapse(s.Text()); t != "" {
		return t
	}
	return collapse(s.Parent().Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
