package detect

import (
	"regexp"

	"github.com/sells-group/trustlens/internal/model"
)

var numericStockRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bonly\s+\d+\s+(?:items?\s+|units?\s+|pieces?\s+)?left(?:\s+in\s+stock)?\b`),
	regexp.MustCompile(`(?i)\b\d+\s+(?:items?\s+|units?\s+)?left\s+in\s+stock\b`),
	regexp.MustCompile(`(?i)\bonly\s+\d+\s+(?:items?\s+|units?\s+)?available\b`),
	regexp.MustCompile(`(?i)\b\d+\s+items?\s+left\b`),
	regexp.MustCompile(`(?i)\bonly\s+\d+\s+remaining\b`),
}

var urgencyRe = regexp.MustCompile(`(?i)\b(?:limited stock|hurry|selling fast|almost gone|last few|few left|stock running out|be quick|in high demand)\b`)

// ScarcityDetector flags low-stock claims. A concrete number is a stronger
// signal than generic urgency wording.
type ScarcityDetector struct{}

func (ScarcityDetector) Kind() Kind { return KindScarcity }

func (ScarcityDetector) Detect(page *Page, _ Context) model.Finding {
	numeric := literalMatches(page.Text, numericStockRe...)
	urgency := literalMatches(page.Text, urgencyRe)

	if len(numeric) == 0 && len(urgency) == 0 {
		return model.NegativeFinding("No scarcity claims found.")
	}

	f := model.Finding{
		Detected: true,
		Matches:  append(numeric, urgency...),
		Flags: map[string]bool{
			"numeric_stock_claim": len(numeric) > 0,
			"urgency_phrase":      len(urgency) > 0,
		},
	}
	if len(numeric) > 0 {
		f.Confidence = model.ConfidenceHigh
		f.Explanation = "Page states an exact low stock count, a common unverifiable pressure tactic."
	} else {
		f.Confidence = model.ConfidenceMedium
		f.Explanation = "Page uses urgency wording about stock levels."
	}
	return f.Normalize()
}
