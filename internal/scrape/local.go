package scrape

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/trustlens/internal/model"
	"github.com/sells-group/trustlens/internal/resilience"
)

const maxBodyBytes = 2 << 20

// LocalOptions configures a LocalScraper.
type LocalOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// LocalScraper fetches raw HTML via net/http. It sees no client-side
// rendering, so script-built timers only show up as markers.
type LocalScraper struct {
	client    *http.Client
	userAgent string
	policy    resilience.Policy
	now       func() time.Time
}

// NewLocalScraper creates a LocalScraper. A zero timeout falls back to 15s.
func NewLocalScraper(opts LocalOptions) *LocalScraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; TrustLens/1.0)"
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		policy:    resilience.FetchPolicy(opts.MaxRetries),
		now:       time.Now,
	}
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, retrying transient failures, and rejects block pages.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	p := l.policy
	p.OnRetry = resilience.LogRetry("local_http", targetURL)
	page, err := resilience.Do(ctx, p, func(ctx context.Context) (*model.RenderedPage, error) {
		return l.fetch(ctx, targetURL)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Page: *page, Source: l.Name()}, nil
}

func (l *LocalScraper) fetch(ctx context.Context, targetURL string) (*model.RenderedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, &BlockedError{Renderer: l.Name(), URL: targetURL, BlockType: blockType}
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("local_http: status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	html := decodeBody(body, resp.Header.Get("Content-Type"))
	page := &model.RenderedPage{
		URL:        targetURL,
		FinalURL:   resp.Request.URL.String(),
		Title:      extractTitle(html),
		HTML:       html,
		StatusCode: resp.StatusCode,
		FetchedAt:  l.now().UTC(),
	}
	if page.IsEmpty() {
		return nil, eris.New("local_http: empty page")
	}
	return page, nil
}

var (
	titleRe       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([\w-]+)`)
)

// extractTitle pulls the <title> from HTML.
func extractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if len(m) > 1 {
		return strings.Join(strings.Fields(m[1]), " ")
	}
	return ""
}

// decodeBody converts body to UTF-8 using the charset from the Content-Type
// header or a <meta charset> tag. Unknown charsets are passed through.
func decodeBody(body []byte, contentType string) string {
	name := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		name = params["charset"]
	}
	if name == "" {
		head := body
		if len(head) > 1024 {
			head = head[:1024]
		}
		if m := metaCharsetRe.FindSubmatch(head); len(m) > 1 {
			name = string(m[1])
		}
	}
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return string(body)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(out)
}
