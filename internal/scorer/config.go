// Package scorer turns detector evidence into a trust grade.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trustlens/internal/config"
)

// DefaultTrustConfig returns a config.TrustConfig with the standard weights.
func DefaultTrustConfig() config.TrustConfig {
	return config.TrustConfig{
		Weights: config.TrustWeights{
			Addon:          2,
			Timer:          2,
			DripPricing:    1,
			Scarcity:       1,
			ConfirmShaming: 1,
			PriceAnomaly:   1,
		},
		SeverityFactors: config.SeverityFactors{
			High:   1.5,
			Medium: 1.0,
			Low:    0.5,
		},
		PriceAnomalyRatio: 1.4,
	}
}

// ValidateWeights checks that a TrustConfig is internally consistent.
func ValidateWeights(c config.TrustConfig) error {
	var errs []string

	weights := map[string]float64{
		"addon":           c.Weights.Addon,
		"timer":           c.Weights.Timer,
		"drip_pricing":    c.Weights.DripPricing,
		"scarcity":        c.Weights.Scarcity,
		"confirm_shaming": c.Weights.ConfirmShaming,
		"price_anomaly":   c.Weights.PriceAnomaly,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("weights.%s must be >= 0", name))
		}
	}

	f := c.SeverityFactors
	if f.Low < 0 || f.Medium < f.Low || f.High < f.Medium {
		errs = append(errs, "severity factors must satisfy 0 <= low <= medium <= high")
	}

	if c.PriceAnomalyRatio <= 1 {
		errs = append(errs, "price_anomaly_ratio must be > 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
