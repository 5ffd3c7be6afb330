package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/sells-group/trustlens/internal/model"
)

// Structured reads embedded product metadata: JSON-LD Product nodes first,
// then OpenGraph product meta tags. It returns nil when the page carries
// neither.
func Structured(doc *goquery.Document) *model.StructuredProduct {
	sp := &model.StructuredProduct{}
	found := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		dec := json.NewDecoder(bytes.NewReader([]byte(s.Text())))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return true
		}
		if p := findProduct(v); p != nil {
			mergeProduct(sp, p)
			found = true
		}
		return sp.Price == nil || sp.MRP == nil
	})

	if sp.Price == nil {
		for _, prop := range []string{"product:price:amount", "og:price:amount"} {
			if v, ok := doc.Find(`meta[property="` + prop + `"]`).Attr("content"); ok {
				if d := ParseAmount(v); d != nil {
					sp.Price = d
					found = true
					break
				}
			}
		}
	}
	if sp.Name == "" && found {
		if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			sp.Name = strings.TrimSpace(v)
		}
	}

	if !found {
		return nil
	}
	return sp
}

// findProduct returns the first schema.org Product node in a JSON-LD value,
// searching arrays and @graph containers.
func findProduct(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if p := findProduct(item); p != nil {
				return p
			}
		}
	case map[string]any:
		if isType(t["@type"], "Product") {
			return t
		}
		if g, ok := t["@graph"]; ok {
			return findProduct(g)
		}
	}
	return nil
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want) || strings.HasSuffix(t, "/"+want)
	case []any:
		for _, item := range t {
			if isType(item, want) {
				return true
			}
		}
	}
	return false
}

func mergeProduct(sp *model.StructuredProduct, p map[string]any) {
	if sp.Name == "" {
		sp.Name = stringField(p["name"])
	}
	if sp.Brand == "" {
		switch b := p["brand"].(type) {
		case string:
			sp.Brand = b
		case map[string]any:
			sp.Brand = stringField(b["name"])
		}
	}

	var offers []map[string]any
	switch o := p["offers"].(type) {
	case map[string]any:
		offers = append(offers, o)
	case []any:
		for _, item := range o {
			if m, ok := item.(map[string]any); ok {
				offers = append(offers, m)
			}
		}
	}

	for _, o := range offers {
		if sp.Price == nil {
			sp.Price = firstAmount(o["price"], o["lowPrice"])
		}
		if sp.MRP == nil {
			sp.MRP = offerMRP(o)
		}
	}
}

// offerMRP reads the list price of an offer from priceSpecification
// (maxPrice or a ListPrice-typed spec) or an AggregateOffer highPrice.
func offerMRP(o map[string]any) *decimal.Decimal {
	var specs []map[string]any
	switch ps := o["priceSpecification"].(type) {
	case map[string]any:
		specs = append(specs, ps)
	case []any:
		for _, item := range ps {
			if m, ok := item.(map[string]any); ok {
				specs = append(specs, m)
			}
		}
	}
	for _, s := range specs {
		if d := amountOf(s["maxPrice"]); d != nil {
			return d
		}
		if strings.Contains(stringField(s["priceType"]), "ListPrice") {
			if d := amountOf(s["price"]); d != nil {
				return d
			}
		}
	}
	if isType(o["@type"], "AggregateOffer") {
		return amountOf(o["highPrice"])
	}
	return nil
}

func firstAmount(vals ...any) *decimal.Decimal {
	for _, v := range vals {
		if d := amountOf(v); d != nil {
			return d
		}
	}
	return nil
}

func amountOf(v any) *decimal.Decimal {
	switch t := v.(type) {
	case json.Number:
		return parseNumber(t.String())
	case string:
		return ParseAmount(t)
	}
	return nil
}

func stringField(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
