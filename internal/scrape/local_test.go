package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/trustlens/internal/resilience"
)

func testLocalScraper() *LocalScraper {
	s := NewLocalScraper(LocalOptions{UserAgent: "trustlens-test", MaxRetries: 2})
	s.policy = resilience.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
	return s
}

const earbudsPage = `<html><head><title>
  Wireless Earbuds
</title></head>
<body><h1>Wireless Earbuds</h1><p>Price: ₹1,999 <del>M.R.P. ₹3,999</del></p>
<p>Only 2 left in stock.</p></body></html>`

func TestLocalScraper_ProductPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "trustlens-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(earbudsPage))
	}))
	defer srv.Close()

	result, err := testLocalScraper().Scrape(context.Background(), srv.URL+"/p/earbuds")
	require.NoError(t, err)
	assert.Equal(t, "local_http", result.Source)
	assert.Equal(t, "Wireless Earbuds", result.Page.Title)
	assert.Equal(t, 200, result.Page.StatusCode)
	assert.Equal(t, srv.URL+"/p/earbuds", result.Page.FinalURL)
	assert.Contains(t, result.Page.HTML, "Only 2 left")
	assert.False(t, result.Page.FetchedAt.IsZero())
}

func TestLocalScraper_DecodesLegacyCharset(t *testing.T) {
	body, err := charmap.Windows1252.NewEncoder().String(
		`<html><head><title>Café Mug</title></head><body>` + strings.Repeat("<p>Ceramic café mug.</p>", 10) + `</body></html>`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1252")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	result, err := testLocalScraper().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Café Mug", result.Page.Title)
}

func TestLocalScraper_Cloudflare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(403)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := testLocalScraper().Scrape(context.Background(), srv.URL)
	var be *BlockedError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, BlockCloudflare, be.BlockType)
}

func TestLocalScraper_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(earbudsPage))
	}))
	defer srv.Close()

	result, err := testLocalScraper().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, result.Page.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
}

func TestLocalScraper_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>product</body></html>`))
	}))
	defer srv.Close()

	_, err := testLocalScraper().Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLocalScraper_HTTP404NotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`<html><body>Not found</body></html>`))
	}))
	defer srv.Close()

	_, err := testLocalScraper().Scrape(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), hits.Load())
}

func TestLocalScraper_Defaults(t *testing.T) {
	s := NewLocalScraper(LocalOptions{})
	assert.Equal(t, "local_http", s.Name())
	assert.True(t, s.Supports("https://shop.example/p/1"))
	assert.Equal(t, 15*time.Second, s.client.Timeout)
	assert.Equal(t, 1, s.policy.Attempts)
	assert.NotEmpty(t, s.userAgent)
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "My Page Title", extractTitle(`<html><head><title>My Page Title</title></head></html>`))
	assert.Equal(t, "", extractTitle(`<html><body>no title here</body></html>`))
}

func TestDecodeBody_MetaCharset(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String(`<meta charset="iso-8859-1"><p>Crème</p>`)
	require.NoError(t, err)
	assert.Contains(t, decodeBody([]byte(raw), "text/html"), "Crème")
}
