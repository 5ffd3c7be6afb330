package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// siteRules lists price and MRP selectors for one marketplace, tried in
// order.
type siteRules struct {
	name  string
	match func(host string) bool
	price []string
	mrp   []string
}

var sites = []siteRules{
	{
		name:  "amazon",
		match: func(h string) bool { return strings.Contains(h, "amazon.") },
		price: []string{
			"#corePrice_feature_div .a-price:not(.a-text-price) .a-offscreen",
			".a-price:not(.a-text-price) .a-offscreen",
			"#priceblock_dealprice",
			"#priceblock_ourprice",
			".a-price-whole",
		},
		mrp: []string{
			".a-text-price .a-offscreen",
			".basisPrice .a-offscreen",
		},
	},
	{
		name:  "flipkart",
		match: func(h string) bool { return hostIs(h, "flipkart.com") },
		price: []string{"div.Nx9bqj", "div._30jeq3"},
		mrp:   []string{"div.yRaY8j", "div._3I9_wc"},
	},
	{
		name:  "myntra",
		match: func(h string) bool { return hostIs(h, "myntra.com") },
		price: []string{"span.pdp-price"},
		mrp:   []string{"span.pdp-mrp"},
	},
}

func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// siteFor returns the marketplace rules matching pageURL, if any.
func siteFor(pageURL string) *siteRules {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for i := range sites {
		if sites[i].match(host) {
			return &sites[i]
		}
	}
	return nil
}

func (r *siteRules) extract(doc *goquery.Document) (price, mrp *decimal.Decimal) {
	return firstSelector(doc, r.price), firstSelector(doc, r.mrp)
}

func firstSelector(doc *goquery.Document, selectors []string) *decimal.Decimal {
	for _, sel := range selectors {
		var found *decimal.Decimal
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = ParseAmount(s.Text())
			return found == nil
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// struckPrice returns the first currency amount shown struck through, the
// usual rendering of an MRP next to a discounted price. Bare numbers such as
// years or model numbers are skipped.
func struckPrice(doc *goquery.Document) *decimal.Decimal {
	var found *decimal.Decimal
	doc.Find(`del, s, strike, [style*="line-through"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if amounts := CurrencyAmounts(s.Text()); len(amounts) > 0 {
			found = &amounts[0]
		}
		return found == nil
	})
	return found
}
