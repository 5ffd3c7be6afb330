package analyze

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/trustlens/internal/detect"
	"github.com/sells-group/trustlens/internal/model"
	"github.com/sells-group/trustlens/internal/scrape"
	"github.com/sells-group/trustlens/internal/store"
)

// fakeScraper serves pages in order; the last page repeats.
type fakeScraper struct {
	mu    sync.Mutex
	pages []string
	errs  []error
	start time.Time
	step  time.Duration
	calls int
}

func (f *fakeScraper) Name() string           { return "fake" }
func (f *fakeScraper) Supports(_ string) bool { return true }

func (f *fakeScraper) Scrape(_ context.Context, u string) (*scrape.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	html := f.pages[min(i, len(f.pages)-1)]
	return &scrape.Result{
		Page: model.RenderedPage{
			URL:        u,
			HTML:       html,
			StatusCode: 200,
			FetchedAt:  f.start.Add(time.Duration(i) * f.step),
		},
		Source: "fake",
	}, nil
}

func (f *fakeScraper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory PriceStore.
type memStore struct {
	mu         sync.Mutex
	samples    map[string][]model.PriceSample
	saves      int
	saveErr    error
	historyErr error
}

func newMemStore() *memStore {
	return &memStore{samples: map[string][]model.PriceSample{}}
}

func (m *memStore) Save(_ context.Context, u string, price, mrp *decimal.Decimal) (*store.SaveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	id, err := store.ProductID(u)
	if err != nil {
		return nil, err
	}
	if price == nil || !price.IsPositive() {
		return &store.SaveResult{ProductID: id}, nil
	}
	m.samples[id] = append(m.samples[id], model.PriceSample{
		ProductID: id, ProductURL: u, Price: *price, MRP: mrp,
		Timestamp: time.Date(2026, 1, 1, 0, len(m.samples[id]), 0, 0, time.UTC),
	})
	return &store.SaveResult{ProductID: id, Saved: true}, nil
}

func (m *memStore) History(_ context.Context, u string) (*model.HistoryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	id, err := store.ProductID(u)
	if err != nil {
		return nil, err
	}
	return &model.HistoryResult{ProductID: id, Samples: append([]model.PriceSample{}, m.samples[id]...)}, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func newTestAnalyzer(s scrape.Scraper, st store.PriceStore) *Analyzer {
	a := New(s, st, Options{RefreshTimeout: 5 * time.Second, Matcher: scrape.NewPathMatcher(nil)})
	a.newID = func() string { return "report-1" }
	return a
}

func productPage(body string) string {
	return `<html><head><title>Phone X</title></head><body><h1>Phone X 5G (8GB RAM)</h1>` +
		body + `<p>` + strings.Repeat("Great camera. ", 5) + `</p></body></html>`
}

const (
	scarcityPage  = `<span class="price">₹18,499</span><p>Only 1 left in stock!</p>`
	countdownDeal = `<div class="deal"><span>Deal ends in</span> <span id="deal-countdown">00:10:00</span></div>
<script>var left = 600; setInterval(function(){ left--; render(left); }, 1000); // countdown</script>`
)

func TestAnalyze_OnlyOneLeft(t *testing.T) {
	st := newMemStore()
	a := newTestAnalyzer(&fakeScraper{pages: []string{productPage(scarcityPage)}}, st)

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)

	assert.Equal(t, "report-1", r.ID)
	assert.True(t, r.Scarcity.Detected)
	assert.Equal(t, model.ConfidenceHigh, r.Scarcity.Confidence)
	assert.False(t, r.Timer.Detected)
	assert.False(t, r.DripPricing.Detected)
	assert.False(t, r.Addons.Detected)
	assert.False(t, r.ConfirmShaming.Detected)

	assert.Equal(t, 1.5, r.TrustPoints)
	assert.Equal(t, 15, r.TrustScore)
	assert.Equal(t, model.GradeB, r.TrustGrade)
	require.Len(t, r.Violations, 1)
	assert.Equal(t, "scarcity", r.Violations[0].Type)

	require.NotNil(t, r.PriceInfo.Price)
	assert.True(t, r.PriceInfo.Price.Equal(decimal.RequireFromString("18499")))
	assert.Equal(t, 1, st.saves)
	assert.Len(t, r.PriceHistory, 1)
}

func TestAnalyze_NoPriceSkipsSave(t *testing.T) {
	st := newMemStore()
	page := productPage(`<p>Currently unavailable.</p>`)
	a := newTestAnalyzer(&fakeScraper{pages: []string{page}}, st)

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)

	assert.Nil(t, r.PriceInfo.Price)
	assert.Nil(t, r.PriceInfo.MRP)
	assert.Zero(t, st.saves)
	assert.NotNil(t, r.PriceHistory)
	assert.Empty(t, r.PriceHistory)
	assert.Equal(t, model.MRPSourceNone, r.MRPAuthenticity.Source)
	assert.Contains(t, r.Notes, "No price could be extracted; price history was not updated.")
	assert.Equal(t, model.GradeA, r.TrustGrade)
}

func TestAnalyze_TimerResetOnRefresh(t *testing.T) {
	fs := &fakeScraper{
		pages: []string{productPage(countdownDeal)},
		start: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		step:  10 * time.Second,
	}
	a := newTestAnalyzer(fs, newMemStore())

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)

	assert.Equal(t, 2, fs.callCount())
	assert.True(t, r.Timer.Detected)
	assert.True(t, r.Timer.Flags["reset_on_refresh"])
	assert.Equal(t, model.ConfidenceHigh, r.Timer.Confidence)
	require.NotEmpty(t, r.Violations)
	assert.Equal(t, "timer", r.Violations[0].Type)
	assert.Equal(t, 3.0, r.TrustPoints)
	assert.Equal(t, model.GradeC, r.TrustGrade)
}

func TestAnalyze_NoTimerEvidenceSkipsRefresh(t *testing.T) {
	fs := &fakeScraper{pages: []string{productPage(scarcityPage)}}
	a := newTestAnalyzer(fs, newMemStore())

	_, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	assert.Equal(t, 1, fs.callCount())
}

func TestAnalyze_RefreshFailureIsNoted(t *testing.T) {
	fs := &fakeScraper{
		pages: []string{productPage(countdownDeal)},
		errs:  []error{nil, errors.New("connection reset")},
	}
	a := newTestAnalyzer(fs, newMemStore())

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	assert.True(t, r.Timer.Detected)
	assert.False(t, r.Timer.Flags["reset_on_refresh"])
	assert.Contains(t, r.Notes, "Timer refresh check skipped: second load failed.")
}

func TestAnalyze_RefreshTimeout(t *testing.T) {
	fs := &fakeScraper{pages: []string{productPage(countdownDeal)}}
	a := New(fs, newMemStore(), Options{RefreshDelay: time.Second, RefreshTimeout: 10 * time.Millisecond})

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	assert.Equal(t, 1, fs.callCount())
	assert.Contains(t, r.Notes, "Timer refresh check skipped: timed out waiting to reload.")
}

func TestAnalyze_InflatedMRPFromHistory(t *testing.T) {
	st := newMemStore()
	url := "https://shop.test/p/phone-x"
	_, err := st.Save(context.Background(), url, dec("18499"), dec("24999"))
	require.NoError(t, err)

	page := productPage(`<span class="price">₹18,499</span> <del>M.R.P.: ₹24,999</del>`)
	a := newTestAnalyzer(&fakeScraper{pages: []string{page}}, st)

	r, err := a.Analyze(context.Background(), url)
	require.NoError(t, err)

	require.NotNil(t, r.PriceInfo.MRP)
	assert.True(t, r.PriceInfo.MRP.Equal(decimal.RequireFromString("24999")))
	assert.Len(t, r.PriceHistory, 2)

	m := r.MRPAuthenticity
	assert.Equal(t, model.MRPSourceHistory, m.Source)
	require.NotNil(t, m.InflationFactor)
	assert.Equal(t, "1.35", m.InflationFactor.StringFixed(2))
	assert.True(t, m.Inflated)
	for _, v := range r.Violations {
		assert.NotEqual(t, "price_anomaly", v.Type)
	}
}

func TestAnalyze_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		scraper *fakeScraper
		kind    ErrorKind
	}{
		{"blocked", &fakeScraper{errs: []error{&scrape.BlockedError{Renderer: "fake", BlockType: scrape.BlockCaptcha}}}, KindFetchBlocked},
		{"wrapped blocked", &fakeScraper{errs: []error{fmt.Errorf("chain: %w", &scrape.BlockedError{BlockType: scrape.BlockCloudflare})}}, KindFetchBlocked},
		{"network", &fakeScraper{errs: []error{errors.New("dial tcp: timeout")}}, KindFetchFailed},
		{"empty page", &fakeScraper{pages: []string{"<html></html>"}}, KindFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(tt.scraper, newMemStore())
			r, err := a.Analyze(context.Background(), "https://shop.test/p/1")
			require.Error(t, err)
			assert.Nil(t, r)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestAnalyze_InvalidURL(t *testing.T) {
	for _, raw := range []string{
		"ftp://shop.test/p/1",
		"not a url",
		"https:///p/1",
		"https://shop.test/checkout/pay",
		"://broken",
	} {
		t.Run(raw, func(t *testing.T) {
			fs := &fakeScraper{pages: []string{productPage(scarcityPage)}}
			a := newTestAnalyzer(fs, newMemStore())
			_, err := a.Analyze(context.Background(), raw)
			require.Error(t, err)
			assert.Equal(t, KindInvalidURL, KindOf(err))
			assert.Zero(t, fs.callCount())
		})
	}
}

func TestAnalyze_StoreFailuresBecomeNotes(t *testing.T) {
	st := newMemStore()
	st.saveErr = errors.New("disk full")
	st.historyErr = errors.New("database is locked")
	a := newTestAnalyzer(&fakeScraper{pages: []string{productPage(scarcityPage)}}, st)

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	assert.Empty(t, r.PriceHistory)
	assert.Contains(t, r.Notes, "Price could not be recorded in history.")
	assert.Contains(t, r.Notes, "Price history is unavailable for this analysis.")
	assert.Equal(t, model.GradeB, r.TrustGrade)
}

func TestAnalyze_NilStore(t *testing.T) {
	a := newTestAnalyzer(&fakeScraper{pages: []string{productPage(scarcityPage)}}, nil)
	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	assert.Contains(t, r.Notes, "Price history is disabled.")
}

type panicDetector struct{ kind detect.Kind }

func (p panicDetector) Kind() detect.Kind { return p.kind }
func (p panicDetector) Detect(*detect.Page, detect.Context) model.Finding {
	panic("selector exploded")
}

func TestAnalyze_DetectorPanicIsContained(t *testing.T) {
	a := newTestAnalyzer(&fakeScraper{pages: []string{productPage(scarcityPage)}}, newMemStore())
	a.detectors = []detect.Detector{
		panicDetector{kind: detect.KindScarcity},
		detect.TimerDetector{},
		detect.DripPricingDetector{},
		detect.AddonDetector{},
		detect.ConfirmShamingDetector{},
	}

	r, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	assert.False(t, r.Scarcity.Detected)
	assert.Empty(t, r.Scarcity.Matches)
	assert.Contains(t, r.Scarcity.Explanation, "failed")
	assert.Contains(t, r.Notes, "Fake Scarcity check could not run on this page.")
	assert.Equal(t, model.GradeA, r.TrustGrade)
}

func TestAnalyze_SQLiteStoreRoundTrip(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	a := newTestAnalyzer(&fakeScraper{pages: []string{productPage(scarcityPage)}}, st)
	for range 2 {
		_, err := a.Analyze(context.Background(), "https://shop.test/p/phone-x?utm_source=mail")
		require.NoError(t, err)
	}

	h, err := a.History(context.Background(), "https://shop.test/p/phone-x")
	require.NoError(t, err)
	require.Len(t, h.Samples, 2)
	assert.Equal(t, h.Samples[0].ProductID, h.Samples[1].ProductID)
}

func TestHistory_Errors(t *testing.T) {
	a := newTestAnalyzer(&fakeScraper{}, newMemStore())
	_, err := a.History(context.Background(), "mailto:x@y.z")
	assert.Equal(t, KindInvalidURL, KindOf(err))

	h, err := a.History(context.Background(), "https://shop.test/p/unknown")
	require.NoError(t, err)
	assert.Empty(t, h.Samples)

	noStore := newTestAnalyzer(&fakeScraper{}, nil)
	_, err = noStore.History(context.Background(), "https://shop.test/p/1")
	require.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindFetchFailed, KindOf(newError(KindFetchFailed, errors.New("x"))))
	assert.Equal(t, KindInvalidURL, KindOf(fmt.Errorf("wrap: %w", newError(KindInvalidURL, errors.New("x")))))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
