// Package mrp estimates whether a listed MRP is inflated relative to a
// benchmark of what the product actually sells for.
package mrp

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sells-group/trustlens/internal/model"
)

// Estimator holds the thresholds used to judge an MRP.
type Estimator struct {
	// BenchmarkFraction is the share of the current price used as a
	// placeholder benchmark when nothing better is known.
	BenchmarkFraction decimal.Decimal
	// InflatedAbove is the inflation factor above which an MRP is inflated.
	InflatedAbove decimal.Decimal
	// HighAbove is the inflation factor above which inflation is severe.
	HighAbove decimal.Decimal
}

// NewEstimator returns an Estimator with the default thresholds.
func NewEstimator() Estimator {
	return Estimator{
		BenchmarkFraction: decimal.RequireFromString("0.85"),
		InflatedAbove:     decimal.RequireFromString("1.3"),
		HighAbove:         decimal.RequireFromString("2.5"),
	}
}

// minHistorySamples is the number of samples needed before history is
// trusted as a benchmark.
const minHistorySamples = 2

// Estimate judges the listed mrp against the best available benchmark:
// an independent structured MRP, the highest price seen in history, or a
// fraction of the current price.
func (e Estimator) Estimate(price, mrp *decimal.Decimal, structured *model.StructuredProduct, history []model.PriceSample) model.MRPAuthenticity {
	out := model.MRPAuthenticity{
		ListedMRP:  mrp,
		Source:     model.MRPSourceNone,
		Confidence: model.ConfidenceLow,
		Severity:   model.SeverityLow,
	}
	if price == nil || !price.IsPositive() || mrp == nil || !mrp.IsPositive() {
		out.Message = "MRP authenticity could not be assessed: price or MRP missing."
		return out
	}

	benchmark, source, confidence := e.benchmark(*price, *mrp, structured, history)
	if !benchmark.IsPositive() {
		out.Message = "MRP authenticity could not be assessed: no usable benchmark."
		return out
	}

	factor := mrp.Div(benchmark)
	display := factor.Round(2)
	out.BenchmarkMRP = &benchmark
	out.InflationFactor = &display
	out.Source = source
	out.Confidence = confidence

	switch {
	case factor.GreaterThan(e.HighAbove):
		out.Inflated = true
		out.Severity = model.SeverityHigh
	case factor.GreaterThan(e.InflatedAbove):
		out.Inflated = true
		out.Severity = model.SeverityMedium
	}

	out.Message = e.message(out, source)
	return out
}

func (e Estimator) benchmark(price, mrp decimal.Decimal, structured *model.StructuredProduct, history []model.PriceSample) (decimal.Decimal, model.MRPSource, model.Confidence) {
	if structured != nil && structured.MRP != nil && structured.MRP.IsPositive() && !structured.MRP.Equal(mrp) {
		return *structured.MRP, model.MRPSourceStructured, model.ConfidenceHigh
	}
	if len(history) >= minHistorySamples {
		highest := history[0].Price
		for _, s := range history[1:] {
			if s.Price.GreaterThan(highest) {
				highest = s.Price
			}
		}
		return highest, model.MRPSourceHistory, model.ConfidenceMedium
	}
	return price.Mul(e.BenchmarkFraction), model.MRPSourceEstimated, model.ConfidenceLow
}

func (e Estimator) message(a model.MRPAuthenticity, source model.MRPSource) string {
	var basis string
	switch source {
	case model.MRPSourceStructured:
		basis = "the list price in the page's product data"
	case model.MRPSourceHistory:
		basis = "the highest price observed for this product"
	default:
		basis = fmt.Sprintf("a placeholder of %s× the current price (low confidence heuristic)", e.BenchmarkFraction.String())
	}
	if a.Inflated {
		return fmt.Sprintf("Listed MRP is %s× %s; likely inflated.", a.InflationFactor.StringFixed(2), basis)
	}
	return fmt.Sprintf("Listed MRP is %s× %s; within normal range.", a.InflationFactor.StringFixed(2), basis)
}
