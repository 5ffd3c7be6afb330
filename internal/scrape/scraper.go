package scrape

import (
	"context"

	"github.com/sells-group/trustlens/internal/model"
)

// Result holds a rendered page with the renderer that produced it.
type Result struct {
	Page   model.RenderedPage
	Source string // e.g. "chrome", "local_http", "jina"
}

// Scraper renders a single product page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
