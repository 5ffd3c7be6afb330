// Package extract pulls the current selling price and the listed MRP out of
// a rendered product page. Extraction never fails: missing values are nil.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/trustlens/internal/model"
)

// Extract returns the price and MRP found in html. Sources are applied
// highest precedence first: embedded structured data, marketplace
// selectors, struck-through or labelled MRPs, then positional currency
// amounts in the visible text.
func Extract(pageURL, html string) model.PriceInfo {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Debug("extract: parse html", zap.String("url", pageURL), zap.Error(err))
		return model.PriceInfo{Source: model.PriceSourceNone}
	}
	return ExtractDocument(pageURL, doc)
}

// ExtractDocument is Extract over an already parsed document.
func ExtractDocument(pageURL string, doc *goquery.Document) model.PriceInfo {
	info := model.PriceInfo{Source: model.PriceSourceNone}

	structured := Structured(doc)
	if structured != nil {
		info.Structured = structured
		if structured.Price != nil {
			info.Price = structured.Price
			info.Source = model.PriceSourceStructured
		}
		info.MRP = structured.MRP
	}

	if site := siteFor(pageURL); site != nil {
		price, mrp := site.extract(doc)
		if info.Price == nil && price != nil {
			info.Price = price
			info.Source = model.PriceSourceSite
		}
		if info.MRP == nil {
			info.MRP = mrp
		}
	}

	text := DocumentText(doc)
	if info.MRP == nil {
		info.MRP = struckPrice(doc)
	}
	if info.MRP == nil {
		info.MRP = labelledMRP(text)
	}

	if info.Price == nil {
		amounts := CurrencyAmounts(text)
		// A struck MRP often precedes the selling price in document order.
		if info.MRP != nil {
			if rest := without(amounts, *info.MRP); len(rest) > 0 {
				amounts = rest
			}
		}
		if len(amounts) > 0 {
			price := amounts[0]
			info.Price = &price
			info.Source = model.PriceSourcePositional
			if info.MRP == nil {
				info.MRP = nextLarger(amounts[1:], price)
			}
		}
	} else if info.MRP == nil {
		amounts := CurrencyAmounts(text)
		for i, a := range amounts {
			if a.Equal(*info.Price) {
				info.MRP = nextLarger(amounts[i+1:], a)
				break
			}
		}
	}

	// An MRP is only meaningful next to a price.
	if info.Price == nil || (info.MRP != nil && !info.MRP.GreaterThan(*info.Price)) {
		info.MRP = nil
	}
	return info
}

func nextLarger(amounts []decimal.Decimal, than decimal.Decimal) *decimal.Decimal {
	for _, a := range amounts {
		if a.GreaterThan(than) {
			return &a
		}
	}
	return nil
}

func without(amounts []decimal.Decimal, v decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(amounts))
	for _, a := range amounts {
		if !a.Equal(v) {
			out = append(out, a)
		}
	}
	return out
}
