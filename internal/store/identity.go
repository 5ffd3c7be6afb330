package store

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// trackingParams are query keys that never change which product a URL
// points to.
var trackingParams = map[string]bool{
	"ref":       true,
	"ref_":      true,
	"tag":       true,
	"gclid":     true,
	"fbclid":    true,
	"affid":     true,
	"_encoding": true,
	"psc":       true,
	"smid":      true,
	"pf_rd_p":   true,
	"pf_rd_r":   true,
}

// NormalizeURL canonicalizes a product URL so that links differing only in
// tracking noise map to the same product.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", eris.Wrap(err, "store: parse url")
	}
	if u.Host == "" {
		return "", eris.Errorf("store: url %q has no host", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	// Amazon appends ref=... as a trailing path segment.
	segments := strings.Split(u.Path, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if strings.HasPrefix(seg, "ref=") {
			continue
		}
		kept = append(kept, seg)
	}
	u.Path = strings.TrimRight(strings.Join(kept, "/"), "/")
	u.RawPath = ""

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		lk := strings.ToLower(k)
		if trackingParams[lk] || strings.HasPrefix(lk, "utm_") {
			q.Del(k)
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sort.Strings(q[k])
	}
	u.RawQuery = q.Encode()

	return norm.NFC.String(u.String()), nil
}

// ProductID returns the stable identity of the product behind raw: the hex
// SHA-256 of its normalized URL.
func ProductID(raw string) (string, error) {
	n, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(n))
	return hex.EncodeToString(sum[:]), nil
}
