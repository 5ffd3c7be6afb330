package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource records which extraction path produced a PriceInfo.
type PriceSource string

const (
	PriceSourceStructured PriceSource = "structured_data"
	PriceSourceSite       PriceSource = "site_selector"
	PriceSourcePositional PriceSource = "positional"
	PriceSourceNone       PriceSource = "none"
)

// StructuredProduct holds product metadata embedded in the page
// (JSON-LD or OpenGraph product tags).
type StructuredProduct struct {
	Name  string           `json:"name,omitempty" yaml:"name,omitempty"`
	Brand string           `json:"brand,omitempty" yaml:"brand,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty" yaml:"price,omitempty"`
	MRP   *decimal.Decimal `json:"mrp,omitempty" yaml:"mrp,omitempty"`
}

// PriceInfo is the current price and MRP pulled from a page. Either may be
// nil when nothing could be extracted.
type PriceInfo struct {
	Price      *decimal.Decimal   `json:"price" yaml:"price"`
	MRP        *decimal.Decimal   `json:"mrp" yaml:"mrp"`
	Source     PriceSource        `json:"source" yaml:"source"`
	Structured *StructuredProduct `json:"structured,omitempty" yaml:"structured,omitempty"`
}

// HasPrice reports whether a positive price was extracted.
func (p PriceInfo) HasPrice() bool {
	return p.Price != nil && p.Price.IsPositive()
}

// PriceSample is one persisted observation of a product's price.
type PriceSample struct {
	ProductID  string           `json:"product_id" yaml:"product_id"`
	ProductURL string           `json:"product_url" yaml:"product_url"`
	Price      decimal.Decimal  `json:"price" yaml:"price"`
	MRP        *decimal.Decimal `json:"mrp" yaml:"mrp"`
	Timestamp  time.Time        `json:"timestamp" yaml:"timestamp"`
}

// PricePoint is the transport shape of a PriceSample.
type PricePoint struct {
	Price     decimal.Decimal  `json:"price" yaml:"price"`
	MRP       *decimal.Decimal `json:"mrp" yaml:"mrp"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
}

// HistoryResult is the ordered (oldest first) price history of one product.
type HistoryResult struct {
	ProductID string        `json:"product_id" yaml:"product_id"`
	Samples   []PriceSample `json:"-" yaml:"-"`
}

// Points converts the samples into their transport shape.
func (h *HistoryResult) Points() []PricePoint {
	points := make([]PricePoint, 0, len(h.Samples))
	for _, s := range h.Samples {
		points = append(points, PricePoint{Price: s.Price, MRP: s.MRP, Timestamp: s.Timestamp})
	}
	return points
}

// MarshalJSON renders the history as {product_id, history}.
func (h HistoryResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID string       `json:"product_id" yaml:"product_id"`
		History   []PricePoint `json:"history" yaml:"history"`
	}{h.ProductID, h.Points()})
}

// MRPSource records where the MRP benchmark came from.
type MRPSource string

const (
	MRPSourceStructured MRPSource = "structured_data"
	MRPSourceHistory    MRPSource = "price_history"
	MRPSourceEstimated  MRPSource = "estimated"
	MRPSourceNone       MRPSource = "none"
)

// MRPAuthenticity is the estimate of whether the listed MRP is inflated.
type MRPAuthenticity struct {
	ListedMRP       *decimal.Decimal `json:"listed_mrp" yaml:"listed_mrp"`
	BenchmarkMRP    *decimal.Decimal `json:"benchmark_mrp" yaml:"benchmark_mrp"`
	InflationFactor *decimal.Decimal `json:"inflation_factor" yaml:"inflation_factor"`
	Source          MRPSource        `json:"source" yaml:"source"`
	Confidence      Confidence       `json:"confidence" yaml:"confidence"`
	Inflated        bool             `json:"inflated" yaml:"inflated"`
	Severity        Severity         `json:"severity" yaml:"severity"`
	Message         string           `json:"message" yaml:"message"`
}
