package scorer

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/sells-group/trustlens/internal/config"
	"github.com/sells-group/trustlens/internal/detect"
	"github.com/sells-group/trustlens/internal/model"
)

// Grade breakpoints on the point scale (inclusive upper bounds).
const (
	maxPointsB = 2.0
	maxPointsC = 4.0
	maxPointsD = 6.0
)

const priceAnomalyType = "price_anomaly"

// Scorer computes trust reports. It holds no state beyond its config, so
// identical bundles always produce identical reports.
type Scorer struct {
	cfg config.TrustConfig
}

// New creates a Scorer. Zero-valued configs fall back to the defaults.
func New(cfg config.TrustConfig) *Scorer {
	if cfg == (config.TrustConfig{}) {
		cfg = DefaultTrustConfig()
	}
	return &Scorer{cfg: cfg}
}

// Score grades the evidence in b.
func (s *Scorer) Score(b *model.EvidenceBundle) model.TrustReport {
	var (
		points     float64
		violations = []model.Violation{}
	)

	for _, kind := range detect.AllKinds() {
		f := b.Finding(string(kind))
		if !detect.Contributes(kind, f) {
			continue
		}
		sev := detect.Severity(kind, f)
		points += s.weight(kind) * s.factor(sev)
		violations = append(violations, model.Violation{
			Type:        string(kind),
			Title:       kind.Title(),
			Severity:    sev,
			Confidence:  f.Confidence,
			Explanation: f.Explanation,
		})
	}

	if v, ok := s.priceAnomaly(b.PriceInfo); ok {
		points += s.cfg.Weights.PriceAnomaly
		violations = append(violations, v)
	}

	grade := gradeFor(len(violations), points)
	return model.TrustReport{
		Grade:      grade,
		Score:      scaled(points),
		Points:     points,
		Summary:    summaryFor(grade),
		Violations: violations,
	}
}

func (s *Scorer) weight(kind detect.Kind) float64 {
	w := s.cfg.Weights
	switch kind {
	case detect.KindAddon:
		return w.Addon
	case detect.KindTimer:
		return w.Timer
	case detect.KindDripPricing:
		return w.DripPricing
	case detect.KindScarcity:
		return w.Scarcity
	case detect.KindConfirmShaming:
		return w.ConfirmShaming
	default:
		return 0
	}
}

func (s *Scorer) factor(sev model.Severity) float64 {
	switch sev {
	case model.SeverityHigh:
		return s.cfg.SeverityFactors.High
	case model.SeverityMedium:
		return s.cfg.SeverityFactors.Medium
	default:
		return s.cfg.SeverityFactors.Low
	}
}

// priceAnomaly reports a violation when the listed MRP exceeds the price by
// more than the configured ratio.
func (s *Scorer) priceAnomaly(p model.PriceInfo) (model.Violation, bool) {
	if !p.HasPrice() || p.MRP == nil {
		return model.Violation{}, false
	}
	limit := p.Price.Mul(decimal.NewFromFloat(s.cfg.PriceAnomalyRatio))
	if !p.MRP.GreaterThan(limit) {
		return model.Violation{}, false
	}
	ratio := p.MRP.Div(*p.Price).StringFixed(2)
	return model.Violation{
		Type:        priceAnomalyType,
		Title:       "Suspicious MRP",
		Severity:    model.SeverityMedium,
		Confidence:  model.ConfidenceMedium,
		Explanation: fmt.Sprintf("Listed MRP is %s× the selling price, an unusually deep advertised discount.", ratio),
	}, true
}

// scaled converts points to the 0..100 score in whole tenths of a point.
func scaled(points float64) int {
	v := int(math.Round(points * 10))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func gradeFor(violations int, points float64) model.Grade {
	switch {
	case violations == 0:
		return model.GradeA
	case points <= maxPointsB:
		return model.GradeB
	case points <= maxPointsC:
		return model.GradeC
	case points <= maxPointsD:
		return model.GradeD
	default:
		return model.GradeF
	}
}

func summaryFor(g model.Grade) string {
	switch g {
	case model.GradeA:
		return "Low Risk"
	case model.GradeB:
		return "Moderate Risk"
	case model.GradeC, model.GradeD:
		return "High Manipulation Detected"
	default:
		return "Critical Manipulation"
	}
}
