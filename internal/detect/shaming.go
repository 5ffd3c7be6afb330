package detect

import (
	"regexp"

	"github.com/sells-group/trustlens/internal/model"
)

var shamingRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bno\s+thanks,?\s+i\s+(?:don'?t|do\s+not)\s+want\b[^.!?\n]{0,60}`),
	regexp.MustCompile(`(?i)\bi'?ll\s+pass\s+on\s+(?:the\s+)?(?:savings|discount|deal)\b`),
	regexp.MustCompile(`(?i)\bdecline\s+offer\b`),
	regexp.MustCompile(`(?i)\bskip\s+this\s+deal\b`),
	regexp.MustCompile(`(?i)\bno,?\s+i\s+prefer\s+(?:paying|to\s+pay)\s+full\s+price\b`),
	regexp.MustCompile(`(?i)\bi\s+(?:don'?t|do\s+not)\s+(?:like|want)\s+(?:saving|to\s+save)\s+money\b`),
}

// ConfirmShamingDetector flags decline options worded to guilt the shopper.
type ConfirmShamingDetector struct{}

func (ConfirmShamingDetector) Kind() Kind { return KindConfirmShaming }

func (ConfirmShamingDetector) Detect(page *Page, _ Context) model.Finding {
	matches := literalMatches(page.Text, shamingRe...)
	if len(matches) == 0 {
		return model.NegativeFinding("No shaming decline wording found.")
	}
	return model.Finding{
		Detected:    true,
		Confidence:  model.ConfidenceMedium,
		Matches:     matches,
		Flags:       map[string]bool{"decline_shaming": true},
		Explanation: "Declining an offer requires clicking wording that shames the shopper.",
	}.Normalize()
}
