package scrape

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trustlens/internal/config"
	"github.com/sells-group/trustlens/pkg/jina"
)

// FromConfig builds the renderer chain in the configured order.
func FromConfig(cfg *config.Config) (*Chain, error) {
	order := cfg.Scrape.Renderer
	if len(order) == 0 {
		order = []string{"chrome", "local_http", "jina"}
	}
	timeout := time.Duration(cfg.Scrape.TimeoutSecs) * time.Second

	scrapers := make([]Scraper, 0, len(order))
	for _, name := range order {
		switch name {
		case "chrome":
			scrapers = append(scrapers, NewChromeScraper(ChromeOptions{
				ExecPath:  cfg.Scrape.ChromePath,
				UserAgent: cfg.Scrape.UserAgent,
				Timeout:   timeout,
				Wait:      time.Duration(cfg.Scrape.WaitMillis) * time.Millisecond,
			}))
		case "local_http":
			scrapers = append(scrapers, NewLocalScraper(LocalOptions{
				UserAgent:  cfg.Scrape.UserAgent,
				Timeout:    timeout,
				MaxRetries: cfg.Scrape.MaxRetries,
			}))
		case "jina":
			opts := []jina.Option{}
			if cfg.Jina.BaseURL != "" {
				opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
			}
			scrapers = append(scrapers, NewJinaAdapter(jina.NewClient(cfg.Jina.Key, opts...)))
		default:
			return nil, eris.Errorf("scrape: unknown renderer %q", name)
		}
	}
	return NewChain(NewPathMatcher(cfg.Scrape.ExcludePaths), scrapers...), nil
}
