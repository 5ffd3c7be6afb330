package scrape

import (
	"fmt"
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone         BlockType = ""
	BlockCloudflare   BlockType = "cloudflare"
	BlockCaptcha      BlockType = "captcha"
	BlockAccessDenied BlockType = "access_denied"
	BlockJSShell      BlockType = "js_shell"
)

// BlockedError reports that a renderer received an anti-bot page instead of
// the product page.
type BlockedError struct {
	Renderer  string
	URL       string
	BlockType BlockType
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: blocked (%s) fetching %s", e.Renderer, e.BlockType, e.URL)
}

// challengeBodyLimit bounds the body size for markers that also show up on
// ordinary product pages (login widgets often embed a captcha script).
const challengeBodyLimit = 50_000

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	if resp.StatusCode == http.StatusForbidden && len(body) < challengeBodyLimit &&
		strings.Contains(strings.ToLower(string(body)), "access denied") {
		return true, BlockAccessDenied
	}

	return DetectBlockHTML(string(body))
}

// DetectBlockHTML inspects rendered markup only. Renderers without access to
// response headers (chrome, jina) use it directly.
func DetectBlockHTML(body string) (bool, BlockType) {
	lower := strings.ToLower(body)
	small := len(body) < challengeBodyLimit

	// Cloudflare challenge page markers.
	if strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") ||
		small && strings.Contains(lower, "checking your browser") ||
		small && strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	// Robot-check pages (amazon serves these with status 200).
	if strings.Contains(lower, "/errors/validatecaptcha") ||
		strings.Contains(lower, "enter the characters you see below") {
		return true, BlockCaptcha
	}
	if small && (strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "captcha") && strings.Contains(lower, "robot")) {
		return true, BlockCaptcha
	}

	if small && strings.Contains(lower, "<title>access denied</title>") {
		return true, BlockAccessDenied
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
