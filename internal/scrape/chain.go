// Package scrape renders product pages through a chain of renderers
// (headless Chrome, plain HTTP, Jina Reader).
package scrape

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var _ Scraper = (*Chain)(nil)

// Chain tries scrapers in priority order, returning the first success.
type Chain struct {
	PathMatcher *PathMatcher
	scrapers    []Scraper
}

// NewChain creates a Chain with the given path matcher and scrapers.
// Scrapers are tried in order; the first successful result is returned.
func NewChain(matcher *PathMatcher, scrapers ...Scraper) *Chain {
	return &Chain{
		PathMatcher: matcher,
		scrapers:    scrapers,
	}
}

// Names lists the scrapers in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.scrapers))
	for _, s := range c.scrapers {
		names = append(names, s.Name())
	}
	return names
}

// Name implements Scraper.
func (c *Chain) Name() string { return "chain" }

// Supports reports whether the url is not excluded and at least one member
// scraper can render it.
func (c *Chain) Supports(targetURL string) bool {
	if c.PathMatcher.IsExcluded(targetURL) {
		return false
	}
	for _, s := range c.scrapers {
		if s.Supports(targetURL) {
			return true
		}
	}
	return false
}

// Scrape tries each scraper in order for a single URL. When every scraper
// that ran was blocked, the returned error is a *BlockedError.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.PathMatcher.IsExcluded(targetURL) {
		return nil, eris.Errorf("scrape: url excluded by path matcher: %s", targetURL)
	}

	var (
		lastErr  error
		blocked  *BlockedError
		attempts int
		blocks   int
	)
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scrape: context done")
		}
		attempts++

		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil && !result.Page.IsEmpty() {
			return result, nil
		}
		if err == nil {
			err = eris.Errorf("scrape: %s returned an empty page", s.Name())
		}

		var be *BlockedError
		if errors.As(err, &be) {
			blocks++
			blocked = be
		}
		zap.L().Debug("scrape: scraper failed, trying next",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
	}

	if blocked != nil && blocks == attempts {
		return nil, blocked
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}
