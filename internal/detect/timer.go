package detect

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/trustlens/internal/extract"
	"github.com/sells-group/trustlens/internal/model"
)

var timerPhraseRe = regexp.MustCompile(`(?i)\b(?:countdown|offer ends|ends in|deal ends|limited time|flash sale|lightning deal|timer)\b`)

// countdownSelector finds countdown widgets in markup.
const countdownSelector = `[data-countdown], [class*="countdown"], [id*="countdown"], [class*="timer"], [id*="timer"]`

var (
	tickerCallRe  = regexp.MustCompile(`\b(?:setInterval|startTimer|startCountdown)\s*\(`)
	tickerTopicRe = regexp.MustCompile(`(?i)countdown|timer|remaining|expire|ends?In|endTime|deadline`)

	serverDeadlineRe = regexp.MustCompile(`(?i)data-(?:expiry|expires|end-time|deadline)\s*=|expires-at|"?endTime"?\s*[:=]\s*["']?\d{4}-\d{2}-\d{2}T|/api/[^"'\s]*(?:timer|expiry)`)

	termsRe = regexp.MustCompile(`(?i)valid\s+(?:till|until)|expiry|expires\s+on|terms|conditions|T&C`)
)

const termsWindow = 300

// TimerDetector flags countdown timers. Static evidence comes from wording
// and countdown markup; dynamic evidence compares the countdown across two
// loads of the page.
type TimerDetector struct{}

func (TimerDetector) Kind() Kind { return KindTimer }

func (TimerDetector) Detect(page *Page, dc Context) model.Finding {
	phrases := timerPhraseRe.FindAllStringIndex(page.Text, -1)
	markers := countdownMarkers(page)

	var (
		flags       = map[string]bool{}
		matches     = literalMatches(page.Text, timerPhraseRe)
		explanation []string
	)
	matches = append(matches, markers...)

	reset := false
	if dc.Refresh != nil {
		first, ok1 := remainingOn(dc.Refresh.FirstHTML)
		second, ok2 := remainingOn(dc.Refresh.SecondHTML)
		if ok1 && ok2 {
			reset = resetOnRefresh(first, second, dc.Refresh.Elapsed)
			if reset {
				explanation = append(explanation, fmt.Sprintf(
					"Countdown read %s, then %s after a %s reload; a real deadline would have dropped by about %s.",
					first, second, dc.Refresh.Elapsed.Round(time.Second), dc.Refresh.Elapsed.Round(time.Second)))
			}
		}
	}

	if len(phrases) == 0 && len(markers) == 0 && !reset {
		return model.NegativeFinding("No countdown or flash-sale timer found.")
	}

	flags["reset_on_refresh"] = reset
	flags["frontend_only"] = len(markers) > 0 && !serverDeadlineRe.MatchString(page.HTML)
	flags["missing_tnc"] = missingTerms(page.Text, phrases)

	if flags["frontend_only"] {
		explanation = append(explanation, "Countdown is driven by page script with no server-side deadline.")
	}
	if flags["missing_tnc"] {
		explanation = append(explanation, "No offer terms or expiry date are shown near the timer.")
	}
	if len(explanation) == 0 {
		explanation = append(explanation, "Countdown wording found but no manipulation signal could be confirmed.")
	}

	f := model.Finding{
		Detected:    true,
		Matches:     matches,
		Flags:       flags,
		Explanation: strings.Join(explanation, " "),
	}
	switch n := f.FlagCount(); {
	case reset || n >= 2:
		f.Confidence = model.ConfidenceHigh
	case n == 1:
		f.Confidence = model.ConfidenceMedium
	default:
		f.Confidence = model.ConfidenceLow
	}
	return f.Normalize()
}

// HasStaticEvidence reports whether page shows countdown wording or markup,
// which is what makes a second load worth taking.
func HasStaticEvidence(page *Page) bool {
	return timerPhraseRe.MatchString(page.Text) || len(countdownMarkers(page)) > 0
}

// resetOnRefresh reports whether the countdown failed to drop by roughly
// the elapsed time between loads.
func resetOnRefresh(first, second, elapsed time.Duration) bool {
	tolerance := elapsed / 2
	if tolerance < 2*time.Second {
		tolerance = 2 * time.Second
	}
	drop := first - second
	return drop < elapsed-tolerance || drop > elapsed+tolerance
}

// countdownMarkers returns short literal descriptions of countdown widgets
// and ticking scripts in the page markup.
func countdownMarkers(page *Page) []string {
	doc := page.Document()
	if doc == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	doc.Find(countdownSelector).Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("data-countdown"); ok {
			add("data-countdown")
			return
		}
		for _, attr := range []string{"id", "class"} {
			v, _ := s.Attr(attr)
			lv := strings.ToLower(v)
			if strings.Contains(lv, "countdown") || strings.Contains(lv, "timer") {
				add(fmt.Sprintf(`%s="%s"`, attr, v))
				return
			}
		}
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src := s.Text()
		if call := tickerCallRe.FindString(src); call != "" && tickerTopicRe.MatchString(src) {
			add(strings.TrimSpace(strings.TrimSuffix(call, "(")))
		}
	})
	return out
}

// remainingOn reads the countdown value from one page load, preferring the
// countdown widget's own text over text following a timer phrase.
func remainingOn(html string) (time.Duration, bool) {
	page := NewPage("", html)
	if doc := page.Document(); doc != nil {
		var (
			d  time.Duration
			ok bool
		)
		doc.Find(countdownSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			d, ok = ParseRemaining(extract.DocumentText(goquery.NewDocumentFromNode(s.Get(0))))
			return !ok
		})
		if ok {
			return d, true
		}
	}
	for _, loc := range timerPhraseRe.FindAllStringIndex(page.Text, -1) {
		end := loc[1] + 80
		if end > len(page.Text) {
			end = len(page.Text)
		}
		if d, ok := ParseRemaining(page.Text[loc[0]:end]); ok {
			return d, true
		}
	}
	return 0, false
}

// missingTerms reports whether no timer phrase has offer terms nearby.
// Without any phrase the whole page text is checked.
func missingTerms(text string, phrases [][]int) bool {
	if len(phrases) == 0 {
		return !termsRe.MatchString(text)
	}
	for _, loc := range phrases {
		start := loc[0] - termsWindow
		if start < 0 {
			start = 0
		}
		end := loc[1] + termsWindow
		if end > len(text) {
			end = len(text)
		}
		if termsRe.MatchString(text[start:end]) {
			return false
		}
	}
	return true
}
