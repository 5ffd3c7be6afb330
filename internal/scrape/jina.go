package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/trustlens/internal/model"
	"github.com/sells-group/trustlens/internal/resilience"
	"github.com/sells-group/trustlens/pkg/jina"
)

// JinaAdapter wraps a Jina Reader client as a Scraper with a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.Breaker
	now     func() time.Time
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
// 3 failures within 30s open the circuit for 60s, causing immediate
// fallback to the next scraper.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewBreaker(3, 30*time.Second, 60*time.Second),
		now:     time.Now,
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return !j.breaker.Open()
}

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if err := j.breaker.Allow(); err != nil {
		return nil, eris.Wrap(err, "jina")
	}

	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		j.record(err)
		return nil, err
	}

	body := strings.TrimSpace(resp.Data.Body())
	if blocked, blockType := DetectBlockHTML(body); blocked {
		err := &BlockedError{Renderer: j.Name(), URL: targetURL, BlockType: blockType}
		j.record(err)
		return nil, err
	}
	if resp.Code != 0 && resp.Code != 200 {
		err := eris.Errorf("jina: response code %d", resp.Code)
		j.record(err)
		return nil, err
	}
	if len(body) < 100 {
		err := eris.New("jina: empty page")
		j.record(err)
		return nil, err
	}

	j.breaker.Record(nil)
	finalURL := resp.Data.URL
	if finalURL == "" {
		finalURL = targetURL
	}
	return &Result{
		Page: model.RenderedPage{
			URL:        targetURL,
			FinalURL:   finalURL,
			Title:      resp.Data.Title,
			HTML:       body,
			StatusCode: 200,
			FetchedAt:  j.now().UTC(),
		},
		Source: j.Name(),
	}, nil
}

func (j *JinaAdapter) record(err error) {
	j.breaker.Record(err)
	if j.breaker.Open() {
		zap.L().Warn("scrape: jina circuit breaker opened", zap.Error(err))
	}
}
