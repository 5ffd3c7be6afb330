// Package analyze runs the full pipeline for one product page: fetch,
// extract, detect, persist, estimate and score.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/trustlens/internal/config"
	"github.com/sells-group/trustlens/internal/detect"
	"github.com/sells-group/trustlens/internal/extract"
	"github.com/sells-group/trustlens/internal/model"
	"github.com/sells-group/trustlens/internal/mrp"
	"github.com/sells-group/trustlens/internal/scorer"
	"github.com/sells-group/trustlens/internal/scrape"
	"github.com/sells-group/trustlens/internal/store"
)

// Options tune an Analyzer.
type Options struct {
	// RefreshDelay is the wait before the second load used for timer checks.
	RefreshDelay time.Duration
	// RefreshTimeout bounds the delay plus the second load.
	RefreshTimeout time.Duration
	// Matcher rejects URLs that are never product pages. Nil allows all.
	Matcher   *scrape.PathMatcher
	Estimator mrp.Estimator
	Trust     config.TrustConfig
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	scraper   scrape.Scraper
	store     store.PriceStore
	matcher   *scrape.PathMatcher
	estimator mrp.Estimator
	scorer    *scorer.Scorer
	detectors []detect.Detector

	refreshDelay   time.Duration
	refreshTimeout time.Duration

	now   func() time.Time
	newID func() string
}

// New creates an Analyzer. The store may be nil, in which case price
// history is skipped and noted on each report.
func New(s scrape.Scraper, st store.PriceStore, opts Options) *Analyzer {
	est := opts.Estimator
	if est == (mrp.Estimator{}) {
		est = mrp.NewEstimator()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 20 * time.Second
	}
	return &Analyzer{
		scraper:        s,
		store:          st,
		matcher:        opts.Matcher,
		estimator:      est,
		scorer:         scorer.New(opts.Trust),
		detectors:      detect.Registry(),
		refreshDelay:   opts.RefreshDelay,
		refreshTimeout: opts.RefreshTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// OptionsFromConfig converts loaded configuration into Analyzer options.
func OptionsFromConfig(cfg *config.Config) Options {
	est := mrp.NewEstimator()
	if cfg.MRP.BenchmarkFraction > 0 {
		est.BenchmarkFraction = decimal.NewFromFloat(cfg.MRP.BenchmarkFraction)
	}
	if cfg.MRP.InflatedAbove > 0 {
		est.InflatedAbove = decimal.NewFromFloat(cfg.MRP.InflatedAbove)
	}
	if cfg.MRP.HighAbove > 0 {
		est.HighAbove = decimal.NewFromFloat(cfg.MRP.HighAbove)
	}
	return Options{
		RefreshDelay:   time.Duration(cfg.Analyze.RefreshDelaySecs) * time.Second,
		RefreshTimeout: time.Duration(cfg.Analyze.RefreshTimeoutSecs) * time.Second,
		Matcher:        scrape.NewPathMatcher(cfg.Scrape.ExcludePaths),
		Estimator:      est,
		Trust:          cfg.Trust,
	}
}

// Analyze fetches rawURL and produces its report. Only invalid input and
// fetch failures are errors; everything after a successful fetch degrades
// to notes on the report.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*model.AnalysisReport, error) {
	start := a.now()
	report, err := a.analyze(ctx, rawURL)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(a.now().Sub(start).Seconds())
	return report, err
}

func (a *Analyzer) analyze(ctx context.Context, rawURL string) (*model.AnalysisReport, error) {
	target, err := a.validate(rawURL)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("url", target))
	log.Info("analyze: starting")

	first, err := a.fetch(ctx, target, "first_load")
	if err != nil {
		log.Warn("analyze: fetch failed", zap.Error(err))
		return nil, err
	}

	n := &notes{}
	page := detect.NewPage(target, first.Page.HTML)

	var (
		priceInfo model.PriceInfo
		mu        sync.Mutex
		findings  = make(map[string]model.Finding, len(a.detectors))
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		priceInfo = a.extractPrice(target, page, n)
		return nil
	})
	for _, d := range a.detectors {
		g.Go(func() error {
			var dc detect.Context
			if d.Kind() == detect.KindTimer && detect.HasStaticEvidence(page) {
				dc.Refresh = a.refresh(gCtx, target, first, n)
			}
			f := a.runDetector(d, page, dc, n)
			mu.Lock()
			findings[string(d.Kind())] = f
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	samples := a.persist(ctx, target, priceInfo, n)

	bundle := &model.EvidenceBundle{
		URL:          target,
		PriceInfo:    priceInfo,
		PriceHistory: samples,
		MRPAuthenticity: a.estimator.Estimate(
			priceInfo.Price, priceInfo.MRP, priceInfo.Structured, samples),
		Findings: findings,
	}
	trust := a.scorer.Score(bundle)
	gradesTotal.WithLabelValues(string(trust.Grade)).Inc()

	report := &model.AnalysisReport{
		ID:              a.newID(),
		URL:             target,
		AnalyzedAt:      a.now().UTC(),
		PriceInfo:       priceInfo,
		PriceHistory:    (&model.HistoryResult{Samples: samples}).Points(),
		MRPAuthenticity: bundle.MRPAuthenticity,
		Scarcity:        bundle.Scarcity(),
		Timer:           bundle.Timer(),
		DripPricing:     bundle.DripPricing(),
		Addons:          bundle.Addon(),
		ConfirmShaming:  bundle.ConfirmShaming(),
		TrustGrade:      trust.Grade,
		TrustScore:      trust.Score,
		TrustPoints:     trust.Points,
		TrustSummary:    trust.Summary,
		Violations:      trust.Violations,
		Notes:           n.list(),
	}

	log.Info("analyze: complete",
		zap.String("grade", string(report.TrustGrade)),
		zap.Int("score", report.TrustScore),
		zap.Int("violations", len(report.Violations)),
		zap.Int("notes", len(report.Notes)),
	)
	return report, nil
}

// History returns the recorded price history for rawURL.
func (a *Analyzer) History(ctx context.Context, rawURL string) (*model.HistoryResult, error) {
	target, err := a.validate(rawURL)
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		return nil, eris.New("analyze: price history store not configured")
	}
	h, err := a.store.History(ctx, target)
	if err != nil {
		return nil, eris.Wrap(err, "analyze: load history")
	}
	return h, nil
}

func (a *Analyzer) validate(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", newError(KindInvalidURL, eris.Wrap(err, "parse url"))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", newError(KindInvalidURL, eris.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Hostname() == "" {
		return "", newError(KindInvalidURL, eris.New("missing host"))
	}
	if a.matcher.IsExcluded(rawURL) {
		return "", newError(KindInvalidURL, eris.Errorf("path %q is not a product page", u.Path))
	}
	return u.String(), nil
}

func (a *Analyzer) fetch(ctx context.Context, target, purpose string) (*scrape.Result, error) {
	res, err := a.scraper.Scrape(ctx, target)
	if err != nil {
		var be *scrape.BlockedError
		if errors.As(err, &be) {
			return nil, newError(KindFetchBlocked, err)
		}
		return nil, newError(KindFetchFailed, err)
	}
	if res == nil || res.Page.IsEmpty() {
		return nil, newError(KindFetchFailed, eris.New("renderer returned an empty page"))
	}
	fetchesTotal.WithLabelValues(res.Source, purpose).Inc()
	return res, nil
}

// refresh takes the second load for timer comparison. Any failure yields
// nil and a note.
func (a *Analyzer) refresh(ctx context.Context, target string, first *scrape.Result, n *notes) *detect.RefreshObservation {
	ctx, cancel := context.WithTimeout(ctx, a.refreshTimeout)
	defer cancel()

	sent := a.now()
	if a.refreshDelay > 0 {
		t := time.NewTimer(a.refreshDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			n.add("Timer refresh check skipped: timed out waiting to reload.")
			return nil
		case <-t.C:
		}
	}

	second, err := a.fetch(ctx, target, "refresh")
	if err != nil {
		zap.L().Warn("analyze: refresh load failed", zap.String("url", target), zap.Error(err))
		n.add("Timer refresh check skipped: second load failed.")
		return nil
	}

	elapsed := second.Page.FetchedAt.Sub(first.Page.FetchedAt)
	if first.Page.FetchedAt.IsZero() || second.Page.FetchedAt.IsZero() || elapsed <= 0 {
		elapsed = a.now().Sub(sent) + a.refreshDelay
	}
	return &detect.RefreshObservation{
		FirstHTML:  first.Page.HTML,
		SecondHTML: second.Page.HTML,
		Elapsed:    elapsed,
	}
}

// runDetector isolates one detector: a panic becomes a neutral finding.
func (a *Analyzer) runDetector(d detect.Detector, page *detect.Page, dc detect.Context, n *notes) (f model.Finding) {
	kind := d.Kind()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("analyze: detector failed",
				zap.String("detector", string(kind)),
				zap.String("url", page.URL),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			detectorFailures.WithLabelValues(string(kind)).Inc()
			n.add(fmt.Sprintf("%s check could not run on this page.", kind.Title()))
			f = model.NegativeFinding(fmt.Sprintf("%s detector failed: %v", kind.Title(), r))
		}
	}()

	f = d.Detect(page, dc).Normalize()
	if f.Detected {
		detectionsTotal.WithLabelValues(string(kind)).Inc()
	}
	return f
}

func (a *Analyzer) extractPrice(target string, page *detect.Page, n *notes) (info model.PriceInfo) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("analyze: price extraction failed", zap.String("url", target), zap.Any("panic", r))
			n.add("Price extraction failed on this page.")
			info = model.PriceInfo{Source: model.PriceSourceNone}
		}
	}()

	if doc := page.Document(); doc != nil {
		info = extract.ExtractDocument(target, doc)
	} else {
		info = extract.Extract(target, page.HTML)
	}
	if !info.HasPrice() {
		n.add("No price could be extracted; price history was not updated.")
	}
	return info
}

// persist records the current price and loads history. Failures degrade to
// an empty history plus a note.
func (a *Analyzer) persist(ctx context.Context, target string, info model.PriceInfo, n *notes) []model.PriceSample {
	if a.store == nil {
		n.add("Price history is disabled.")
		return []model.PriceSample{}
	}
	log := zap.L().With(zap.String("url", target))

	if info.HasPrice() {
		if _, err := a.store.Save(ctx, target, info.Price, info.MRP); err != nil {
			log.Warn("analyze: save price failed", zap.Error(err))
			persistenceErrors.WithLabelValues("save").Inc()
			n.add("Price could not be recorded in history.")
		}
	}

	h, err := a.store.History(ctx, target)
	if err != nil {
		log.Warn("analyze: load history failed", zap.Error(err))
		persistenceErrors.WithLabelValues("history").Inc()
		n.add("Price history is unavailable for this analysis.")
		return []model.PriceSample{}
	}
	if h.Samples == nil {
		return []model.PriceSample{}
	}
	return h.Samples
}

// notes collects report notes from concurrent tasks.
type notes struct {
	mu    sync.Mutex
	items []string
}

func (n *notes) add(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, s)
}

func (n *notes) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]string{}, n.items...)
	slices.Sort(out)
	return out
}
