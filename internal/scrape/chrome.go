package scrape

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trustlens/internal/model"
	"github.com/sells-group/trustlens/internal/resilience"
)

// ChromeOptions configures a ChromeScraper.
type ChromeOptions struct {
	ExecPath  string
	UserAgent string
	Timeout   time.Duration
	// Wait is how long to let client-side scripts settle after load.
	Wait time.Duration
}

// ChromeScraper renders pages in headless Chrome so script-built content
// (countdowns, price widgets) is present in the captured DOM.
type ChromeScraper struct {
	opts    ChromeOptions
	breaker *resilience.Breaker
	now     func() time.Time
}

// NewChromeScraper creates a ChromeScraper. A missing browser fails fast and
// trips the breaker so the chain falls through to the next renderer.
func NewChromeScraper(opts ChromeOptions) *ChromeScraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &ChromeScraper{
		opts:    opts,
		breaker: resilience.NewBreaker(2, time.Minute, 5*time.Minute),
		now:     time.Now,
	}
}

func (c *ChromeScraper) Name() string { return "chrome" }

// Supports returns true unless the circuit breaker is open.
func (c *ChromeScraper) Supports(_ string) bool {
	return !c.breaker.Open()
}

func (c *ChromeScraper) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1366, 900),
	)
	if c.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.opts.UserAgent))
	}
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return opts
}

// Scrape launches a browser, loads the page, waits for scripts and captures
// the outer HTML.
func (c *ChromeScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, eris.Wrap(err, "chrome")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	resp, err := chromedp.RunResponse(browserCtx, chromedp.Navigate(targetURL))
	if err != nil {
		return nil, c.fail(resilience.NewTransientError(eris.Wrap(err, "chrome: navigate"), 0))
	}

	var title, html, location string
	err = chromedp.Run(browserCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.opts.Wait),
		chromedp.Location(&location),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, c.fail(eris.Wrap(err, "chrome: capture"))
	}

	status := 200
	if resp != nil && resp.Status != 0 {
		status = int(resp.Status)
	}

	// Blocks are the site's answer, not a renderer fault: no breaker trip.
	if blocked, blockType := DetectBlockHTML(html); blocked {
		return nil, &BlockedError{Renderer: c.Name(), URL: targetURL, BlockType: blockType}
	}
	if status >= 400 {
		return nil, eris.Errorf("chrome: status %d", status)
	}

	c.breaker.Record(nil)
	return &Result{
		Page: model.RenderedPage{
			URL:        targetURL,
			FinalURL:   location,
			Title:      title,
			HTML:       html,
			StatusCode: status,
			FetchedAt:  c.now().UTC(),
		},
		Source: c.Name(),
	}, nil
}

func (c *ChromeScraper) fail(err error) error {
	c.breaker.Record(err)
	zap.L().Debug("scrape: chrome render failed", zap.Error(err))
	return err
}
