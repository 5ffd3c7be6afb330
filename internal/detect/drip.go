package detect

import (
	"regexp"
	"strings"

	"github.com/sells-group/trustlens/internal/model"
)

type feeRule struct {
	flag string
	re   *regexp.Regexp
}

var feeRules = []feeRule{
	{"delivery_fee", regexp.MustCompile(`(?i)\b(?:delivery|shipping)\s+(?:fee|charges?)\b`)},
	{"convenience_fee", regexp.MustCompile(`(?i)\b(?:(?:convenience|platform|handling|processing)\s+fee|service\s+charges?)\b`)},
	{"packaging_fee", regexp.MustCompile(`(?i)\bpackaging\s+(?:fee|charges?)\b`)},
	{"hidden_charges", regexp.MustCompile(`(?i)\b(?:(?:additional|extra)\s+charges|(?:taxes|gst)\s+extra)\b`)},
	{"split_price", regexp.MustCompile(`(?:₹|\bRs\.?)\s*\d[\d,]*(?:\.\d+)?\s*\+\s*(?:₹|\bRs\.?)\s*\d[\d,]*(?:\.\d+)?`)},
}

// waivedRe recognizes a fee that is explicitly free.
var waivedRe = regexp.MustCompile(`(?i)^\W{0,3}(?:free|₹\s*0\b|rs\.?\s*0\b|nil\b|waived)`)

// DripPricingDetector flags fees revealed separately from the headline
// price.
type DripPricingDetector struct{}

func (DripPricingDetector) Kind() Kind { return KindDripPricing }

func (DripPricingDetector) Detect(page *Page, _ Context) model.Finding {
	flags := map[string]bool{}
	var matches []string
	seen := map[string]bool{}

	for _, rule := range feeRules {
		for _, loc := range rule.re.FindAllStringIndex(page.Text, -1) {
			if waived(page.Text, loc) {
				continue
			}
			flags[rule.flag] = true
			m := page.Text[loc[0]:loc[1]]
			if !seen[strings.ToLower(m)] {
				seen[strings.ToLower(m)] = true
				matches = append(matches, m)
			}
		}
	}

	f := model.Finding{Detected: len(flags) > 0, Matches: matches, Flags: flags}
	switch n := f.FlagCount(); {
	case n == 0:
		return model.NegativeFinding("No extra fees or split pricing found.")
	case n >= 3:
		f.Confidence = model.ConfidenceHigh
	default:
		f.Confidence = model.ConfidenceMedium
	}
	f.Explanation = "Additional charges are disclosed separately from the listed price."
	return f.Normalize()
}

// waived reports whether the fee at loc is immediately followed or preceded
// by wording that makes it free.
func waived(text string, loc []int) bool {
	end := loc[1] + 16
	if end > len(text) {
		end = len(text)
	}
	if waivedRe.MatchString(text[loc[1]:end]) {
		return true
	}
	start := loc[0] - 6
	if start < 0 {
		start = 0
	}
	return strings.Contains(strings.ToLower(text[start:loc[0]]), "free")
}
