package model

// Confidence grades how strongly a detector believes its own call.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Severity grades how harmful a violation is. It shares the confidence scale.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is the output of a single pattern detector.
//
// A negative finding (Detected=false) never carries evidence: Matches is
// empty and no flag is set. Normalize enforces this.
type Finding struct {
	Detected    bool            `json:"detected" yaml:"detected"`
	Confidence  Confidence      `json:"confidence" yaml:"confidence"`
	Matches     []string        `json:"matches" yaml:"matches"`
	Flags       map[string]bool `json:"flags" yaml:"flags"`
	Explanation string          `json:"explanation" yaml:"explanation"`
}

// NegativeFinding returns a neutral, evidence-free finding.
func NegativeFinding(explanation string) Finding {
	return Finding{
		Detected:    false,
		Confidence:  ConfidenceLow,
		Matches:     []string{},
		Flags:       map[string]bool{},
		Explanation: explanation,
	}
}

// Normalize returns a copy of f that satisfies the negative-evidence
// invariant and never has nil collections.
func (f Finding) Normalize() Finding {
	if !f.Detected {
		return NegativeFinding(f.Explanation)
	}
	out := f
	out.Matches = append([]string{}, f.Matches...)
	out.Flags = make(map[string]bool, len(f.Flags))
	for k, v := range f.Flags {
		out.Flags[k] = v
	}
	if out.Confidence == "" {
		out.Confidence = ConfidenceLow
	}
	return out
}

// FlagCount returns the number of flags set to true.
func (f Finding) FlagCount() int {
	n := 0
	for _, v := range f.Flags {
		if v {
			n++
		}
	}
	return n
}
