package carrier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
)

func testCarrierConfig() config.CarrierConfig {
	return config.CarrierConfig{
		SignatureThreshold: 0.8,
		CorrectionTrust:    0.95,
		LearnThreshold:     0.7,
		HintConfidenceMin:  0.5,
		FieldHintMin:       0.6,
	}
}

type mockPersist struct {
	templates []*model.CarrierTemplate
	puts      []*model.CarrierTemplate
	listErr   error
}

func (m *mockPersist) PutCarrierTemplate(_ context.Context, tpl *model.CarrierTemplate) error {
	m.puts = append(m.puts, tpl)
	return nil
}

func (m *mockPersist) ListCarrierTemplates(_ context.Context) ([]*model.CarrierTemplate, error) {
	return m.templates, m.listErr
}

const allstatePolicy = `ALLSTATE INSURANCE COMPANY
Policy Number: ABC123456
Named Insured: John Smith
`

func TestLearnFromExtraction(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)

	fields := map[string]string{
		"policyNumber": "ABC123456",
		"insuredName":  "John Smith",
	}
	require.NoError(t, s.LearnFromExtraction(context.Background(), "allstate", fields, allstatePolicy))

	tpl := s.templates["allstate"]
	require.NotNil(t, tpl)
	assert.Equal(t, "Allstate Insurance", tpl.CarrierName)
	assert.Equal(t, 1, tpl.DocumentsProcessed)
	assert.Equal(t, 1, tpl.SuccessfulExtractions)
	assert.Contains(t, tpl.LayoutSignatures, "ALLSTATE INSURANCE COMPANY")

	fp := tpl.FieldPatterns["policyNumber"]
	assert.Equal(t, []string{`[A-Z]{3}\d{6}`}, fp.Patterns)
	assert.Equal(t, []string{"Policy Number"}, fp.ContextPhrases)
	assert.Equal(t, 1, fp.ExtractionCount)
	assert.InDelta(t, 1.0, fp.SuccessRate, 0.0001)
	assert.InDelta(t, 0.8, fp.Confidence, 0.0001)

	assert.InDelta(t, 0.75, tpl.AverageConfidence, 0.0001)
}

func TestLearningIsAdditive(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)

	fields := map[string]string{"policyNumber": "ABC123456"}
	require.NoError(t, s.LearnFromExtraction(context.Background(), "allstate", fields, allstatePolicy))
	require.NoError(t, s.LearnFromExtraction(context.Background(), "allstate", fields, allstatePolicy))

	tpl := s.templates["allstate"]
	assert.Equal(t, 2, tpl.DocumentsProcessed)

	fp := tpl.FieldPatterns["policyNumber"]
	assert.Len(t, fp.Patterns, 1)
	assert.Len(t, fp.ContextPhrases, 1)
	assert.Equal(t, 2, fp.ExtractionCount)
	assert.Len(t, tpl.LayoutSignatures, 1)
}

func TestApplyCorrection(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, s.LearnFromExtraction(context.Background(), "geico",
		map[string]string{"policyNumber": "GK1234567"}, "Policy Number: GK1234567"))

	fb := model.CorrectionFeedback{
		CarrierID:      "geico",
		Field:          "policyNumber",
		OriginalValue:  "GK1234567",
		CorrectedValue: "GK7654321",
		Context:        "Policy No: GK7654321",
	}
	require.NoError(t, s.ApplyCorrection(context.Background(), fb))

	tpl := s.templates["geico"]
	assert.Equal(t, 1, tpl.UserCorrections)

	fp := tpl.FieldPatterns["policyNumber"]
	assert.Equal(t, 2, fp.ExtractionCount)
	// 1.0 docked 0.1 for the miss, then averaged with the 0.95-trust correction.
	assert.InDelta(t, 0.925, fp.SuccessRate, 0.0001)
	assert.Contains(t, fp.ContextPhrases, "Policy No")
}

func TestIdentifyPrefersStaticRegistry(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)

	id, ok := s.Identify("GEICO GENERAL INSURANCE COMPANY")
	require.True(t, ok)
	assert.Equal(t, "geico", id)
}

func TestIdentifyViaLearnedSignatures(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)
	s.templates["acme_mutual"] = &model.CarrierTemplate{
		CarrierID: "acme_mutual",
		LayoutSignatures: []string{
			"ACME MUTUAL GROUP",
			"Claims Service Center",
			"Policyholder Services",
		},
	}

	text := "ACME MUTUAL GROUP\nClaims Service Center\nPolicyholder Services\nDear Customer,"
	id, ok := s.Identify(text)
	require.True(t, ok)
	assert.Equal(t, "acme_mutual", id)

	// Two of three signatures scores 0.6, under the 0.8 threshold.
	_, ok = s.Identify("ACME MUTUAL GROUP\nClaims Service Center")
	assert.False(t, ok)
}

func TestHintsFiltering(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)
	s.templates["travelers"] = &model.CarrierTemplate{
		CarrierID:         "travelers",
		CarrierName:       "Travelers Insurance",
		AverageConfidence: 0.8,
		FieldPatterns: map[string]model.FieldPattern{
			"policyNumber": {Confidence: 0.9, Patterns: []string{`[A-Z]{2}\d{7}`}, ContextPhrases: []string{"Policy Number"}},
			"faxNumber":    {Confidence: 0.3, Patterns: []string{`\d{10}`}},
		},
	}
	s.templates["farmers"] = &model.CarrierTemplate{CarrierID: "farmers", AverageConfidence: 0.4}

	hints := s.Hints("travelers")
	require.NotNil(t, hints)
	assert.Contains(t, hints.FieldPatterns, "policyNumber")
	assert.NotContains(t, hints.FieldPatterns, "faxNumber")
	assert.InDelta(t, 0.8, hints.Confidence, 0.0001)

	assert.Nil(t, s.Hints("farmers"))
	assert.Nil(t, s.Hints("unknown_carrier"))
}

func TestExtractWithHints(t *testing.T) {
	hints := &model.ExtractionHints{
		FieldPatterns: map[string][]string{
			"policyNumber": {`[A-Z]{2}\d{7}`},
			"insuredName":  {`\bZZZ\d+\b`},
		},
		ContextPhrases: map[string][]string{
			"insuredName": {"Named Insured"},
		},
	}
	text := "Named Insured: John Smith\nPolicy Number: HO8821456"

	got := ExtractWithHints(text, hints)
	assert.Equal(t, "HO8821456", got["policyNumber"])
	assert.Equal(t, "John Smith", got["insuredName"])

	assert.Nil(t, ExtractWithHints(text, nil))
}

func TestNewStoreLoadsAndFlushes(t *testing.T) {
	persist := &mockPersist{
		templates: []*model.CarrierTemplate{{CarrierID: "allstate", CarrierName: "Allstate Insurance"}},
	}

	s, err := NewStore(context.Background(), testCarrierConfig(), persist)
	require.NoError(t, err)
	require.Contains(t, s.templates, "allstate")

	require.NoError(t, s.LearnFromExtraction(context.Background(), "allstate",
		map[string]string{"policyNumber": "ABC123456"}, allstatePolicy))

	require.Len(t, persist.puts, 1)
	assert.Equal(t, "allstate", persist.puts[0].CarrierID)
	assert.Equal(t, 1, persist.puts[0].DocumentsProcessed)
}

func TestStats(t *testing.T) {
	s, err := NewStore(context.Background(), testCarrierConfig(), nil)
	require.NoError(t, err)
	s.templates["allstate"] = &model.CarrierTemplate{
		CarrierID: "allstate", CarrierName: "Allstate Insurance",
		DocumentsProcessed: 10, UserCorrections: 2, AverageConfidence: 0.9,
		FieldPatterns: map[string]model.FieldPattern{"policyNumber": {}},
	}
	s.templates["geico"] = &model.CarrierTemplate{
		CarrierID: "geico", CarrierName: "GEICO",
		DocumentsProcessed: 4, UserCorrections: 1, AverageConfidence: 0.6,
	}

	stats := s.Stats()
	assert.Equal(t, 2, stats.CarriersLearned)
	assert.Equal(t, 14, stats.TotalDocumentsProcessed)
	assert.Equal(t, 3, stats.TotalCorrections)
	require.Len(t, stats.TopPerformers, 2)
	assert.Equal(t, "allstate", stats.TopPerformers[0].CarrierID)
	assert.Equal(t, 1, stats.TopPerformers[0].FieldsLearned)
}
