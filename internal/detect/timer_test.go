package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trustlens/internal/model"
)

const countdownPage = `<html><body>
<div class="deal"><span>Deal ends in</span> <span id="deal-countdown">%s</span></div>
<script>var left = 600; setInterval(function(){ left--; render(left); }, 1000); // countdown</script>
</body></html>`

func pageWithRemaining(v string) string {
	return fmt.Sprintf(countdownPage, v)
}

func TestTimer_ResetOnRefresh(t *testing.T) {
	t.Parallel()

	first := pageWithRemaining("00:10:00")
	second := pageWithRemaining("00:10:00")
	page := NewPage("https://shop.test/p", first)

	f := TimerDetector{}.Detect(page, Context{Refresh: &RefreshObservation{
		FirstHTML: first, SecondHTML: second, Elapsed: 10 * time.Second,
	}})

	assert.True(t, f.Detected)
	assert.True(t, f.Flags["reset_on_refresh"])
	assert.Equal(t, model.ConfidenceHigh, f.Confidence)
	assert.Contains(t, f.Explanation, "reload")
	assert.True(t, Contributes(KindTimer, f))
}

func TestTimer_HonestCountdown(t *testing.T) {
	t.Parallel()

	first := pageWithRemaining("00:10:00")
	second := pageWithRemaining("00:09:50")
	page := NewPage("https://shop.test/p", first)

	f := TimerDetector{}.Detect(page, Context{Refresh: &RefreshObservation{
		FirstHTML: first, SecondHTML: second, Elapsed: 10 * time.Second,
	}})
	assert.True(t, f.Detected)
	assert.False(t, f.Flags["reset_on_refresh"])
}

func TestTimer_StaticOnlyFlags(t *testing.T) {
	t.Parallel()

	page := NewPage("https://shop.test/p", pageWithRemaining("02:15:00"))
	f := TimerDetector{}.Detect(page, Context{})

	assert.True(t, f.Detected)
	assert.False(t, f.Flags["reset_on_refresh"])
	assert.True(t, f.Flags["frontend_only"])
	assert.True(t, f.Flags["missing_tnc"])
	assert.Equal(t, model.ConfidenceHigh, f.Confidence)
	assert.Contains(t, f.Matches, "Deal ends")
	assert.Contains(t, f.Matches, `id="deal-countdown"`)
	assert.Contains(t, f.Matches, "setInterval")
}

func TestTimer_ServerDeadlineAndTerms(t *testing.T) {
	t.Parallel()

	html := `<body><div class="countdown" data-expiry="2026-12-01T00:00:00Z">Offer ends in 05:00:00</div>
<p>Valid till 1 Dec 2026. Terms apply.</p></body>`
	f := TimerDetector{}.Detect(NewPage("", html), Context{})

	assert.True(t, f.Detected)
	assert.False(t, f.Flags["frontend_only"])
	assert.False(t, f.Flags["missing_tnc"])
	assert.Equal(t, model.ConfidenceLow, f.Confidence)
	assert.False(t, Contributes(KindTimer, f), "bare countdown wording is informational")
}

func TestTimer_NoEvidence(t *testing.T) {
	t.Parallel()

	f := TimerDetector{}.Detect(NewPage("", `<body>Plain page. Terms apply.</body>`), Context{})
	assert.False(t, f.Detected)
	assert.Empty(t, f.Matches)
	assert.Zero(t, f.FlagCount())
}

func TestTimer_UnparseableRefreshDegradesToStatic(t *testing.T) {
	t.Parallel()

	html := `<body><p>Flash sale! Limited time only.</p></body>`
	f := TimerDetector{}.Detect(NewPage("", html), Context{Refresh: &RefreshObservation{
		FirstHTML: html, SecondHTML: html, Elapsed: 5 * time.Second,
	}})
	assert.True(t, f.Detected)
	assert.False(t, f.Flags["reset_on_refresh"])
	assert.True(t, f.Flags["missing_tnc"])
	assert.Equal(t, model.ConfidenceMedium, f.Confidence)
}

func TestHasStaticEvidence(t *testing.T) {
	t.Parallel()

	assert.True(t, HasStaticEvidence(NewPage("", `<body>Lightning deal</body>`)))
	assert.True(t, HasStaticEvidence(NewPage("", `<body><span data-countdown="600"></span></body>`)))
	assert.False(t, HasStaticEvidence(NewPage("", `<body>Nothing to see</body>`)))
}

func TestResetOnRefresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		first, second time.Duration
		elapsed       time.Duration
		want          bool
	}{
		{"unchanged", 10 * time.Minute, 10 * time.Minute, 10 * time.Second, true},
		{"increased", 10 * time.Minute, 11 * time.Minute, 10 * time.Second, true},
		{"exact drop", 10 * time.Minute, 10*time.Minute - 10*time.Second, 10 * time.Second, false},
		{"within tolerance", 10 * time.Minute, 10*time.Minute - 7*time.Second, 10 * time.Second, false},
		{"jumped", 10 * time.Minute, 5 * time.Minute, 10 * time.Second, true},
		{"short delay uses 2s floor", 60 * time.Second, 59 * time.Second, 2 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, resetOnRefresh(tt.first, tt.second, tt.elapsed))
		})
	}
}

func TestParseRemaining(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"Ends in 01:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"09:30", 9*time.Minute + 30*time.Second, true},
		{"2h 15m 10s left", 2*time.Hour + 15*time.Minute + 10*time.Second, true},
		{"3 hrs 5 mins", 3*time.Hour + 5*time.Minute, true},
		{"1d 2h 0m", 26 * time.Hour, true},
		{"4m 30s", 4*time.Minute + 30*time.Second, true},
		{"no time here", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRemaining(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
