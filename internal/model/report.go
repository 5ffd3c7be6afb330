package model

import "time"

// Grade is the letter trust grade, A (best) through F.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Violation is one scored dark pattern.
type Violation struct {
	Type        string     `json:"type" yaml:"type"`
	Title       string     `json:"title" yaml:"title"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Confidence  Confidence `json:"confidence" yaml:"confidence"`
	Explanation string     `json:"explanation" yaml:"explanation"`
}

// TrustReport is the output of the trust scorer.
type TrustReport struct {
	Grade      Grade       `json:"grade" yaml:"grade"`
	Score      int         `json:"score" yaml:"score"`
	Points     float64     `json:"points" yaml:"points"`
	Summary    string      `json:"summary" yaml:"summary"`
	Violations []Violation `json:"violations" yaml:"violations"`
}

// Finding keys used in EvidenceBundle.Findings. They mirror the detector
// kinds without importing the detect package.
const (
	FindingScarcity       = "scarcity"
	FindingTimer          = "timer"
	FindingDripPricing    = "drip_pricing"
	FindingAddon          = "addon"
	FindingConfirmShaming = "confirm_shaming"
)

// EvidenceBundle is everything the scorer reads for one analysis.
type EvidenceBundle struct {
	URL             string             `json:"url" yaml:"url"`
	PriceInfo       PriceInfo          `json:"price_info" yaml:"price_info"`
	PriceHistory    []PriceSample      `json:"price_history" yaml:"price_history"`
	MRPAuthenticity MRPAuthenticity    `json:"mrp_authenticity" yaml:"mrp_authenticity"`
	Findings        map[string]Finding `json:"findings" yaml:"findings"`
}

// Finding returns the finding stored under key, or a neutral finding.
func (b *EvidenceBundle) Finding(key string) Finding {
	if f, ok := b.Findings[key]; ok {
		return f.Normalize()
	}
	return NegativeFinding("detector did not run")
}

func (b *EvidenceBundle) Scarcity() Finding       { return b.Finding(FindingScarcity) }
func (b *EvidenceBundle) Timer() Finding          { return b.Finding(FindingTimer) }
func (b *EvidenceBundle) DripPricing() Finding    { return b.Finding(FindingDripPricing) }
func (b *EvidenceBundle) Addon() Finding          { return b.Finding(FindingAddon) }
func (b *EvidenceBundle) ConfirmShaming() Finding { return b.Finding(FindingConfirmShaming) }

// AnalysisReport is the full result of analyzing one product page.
type AnalysisReport struct {
	ID              string          `json:"id" yaml:"id"`
	URL             string          `json:"url" yaml:"url"`
	AnalyzedAt      time.Time       `json:"analyzed_at" yaml:"analyzed_at"`
	PriceInfo       PriceInfo       `json:"price_info" yaml:"price_info"`
	PriceHistory    []PricePoint    `json:"price_history" yaml:"price_history"`
	MRPAuthenticity MRPAuthenticity `json:"mrp_authenticity" yaml:"mrp_authenticity"`
	Scarcity        Finding         `json:"scarcity" yaml:"scarcity"`
	Timer           Finding         `json:"timer" yaml:"timer"`
	DripPricing     Finding         `json:"drip_pricing" yaml:"drip_pricing"`
	Addons          Finding         `json:"addons" yaml:"addons"`
	ConfirmShaming  Finding         `json:"confirm_shaming" yaml:"confirm_shaming"`
	TrustGrade      Grade           `json:"trust_grade" yaml:"trust_grade"`
	TrustScore      int             `json:"trust_score" yaml:"trust_score"`
	TrustPoints     float64         `json:"trust_points" yaml:"trust_points"`
	TrustSummary    string          `json:"trust_summary" yaml:"trust_summary"`
	Violations      []Violation     `json:"violations" yaml:"violations"`
	Notes           []string        `json:"notes" yaml:"notes"`
}
