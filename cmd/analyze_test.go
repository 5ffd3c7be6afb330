package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/trustlens/internal/model"
)

func sampleReport() *model.AnalysisReport {
	price := decimal.RequireFromString("18499")
	mrp := decimal.RequireFromString("24999")
	return &model.AnalysisReport{
		ID:         "r-1",
		URL:        "https://shop.test/p/phone",
		AnalyzedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PriceInfo:  model.PriceInfo{Price: &price, MRP: &mrp, Source: model.PriceSourcePositional},
		Scarcity: model.Finding{
			Detected: true, Confidence: model.ConfidenceHigh,
			Matches: []string{"Only 1 left in stock"}, Flags: map[string]bool{"numeric_stock_claim": true},
		},
		Timer:        model.NegativeFinding("none"),
		TrustGrade:   model.GradeB,
		TrustScore:   15,
		TrustPoints:  1.5,
		TrustSummary: "Moderate Risk",
		Violations:   []model.Violation{{Type: "scarcity", Title: "Fake Scarcity", Severity: model.SeverityHigh}},
		Notes:        []string{},
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "json"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "B", out["trust_grade"])
	assert.Equal(t, float64(15), out["trust_score"])
	price := out["price_info"].(map[string]any)
	assert.Equal(t, "18499", price["price"])
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport(), "yaml"))

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "B", out["trust_grade"])
	assert.Equal(t, 15, out["trust_score"])
	scarcity := out["scarcity"].(map[string]any)
	assert.Equal(t, true, scarcity["detected"])
	assert.Contains(t, buf.String(), "listed_mrp")
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeReport(&buf, sampleReport(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
