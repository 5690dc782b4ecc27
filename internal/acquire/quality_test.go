package acquire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claimstack/docpipe/internal/config"
)

func testQualityConfig() config.QualityConfig {
	return config.QualityConfig{
		LengthPoints:      30,
		KeywordPoints:     40,
		StructurePoints:   20,
		ReadabilityPoints: 10,
		AcceptScore:       70,
		EscalateScore:     40,
	}
}

const policyText = `
HOMEOWNERS INSURANCE POLICY DECLARATION

Policy Number: HO-5512345
Insured: Jane Smith
Property Address: 123 Main Street, Springfield, IL 62704
Effective Date: 01/15/2024  Expiration Date: 01/15/2025

Coverage A - Dwelling: $350,000.00
Coverage B - Other Structures: $35,000.00
Deductible: $2,500.00
Annual Premium: $1,842.00

This policy is issued by Allstate Insurance Company. The insurer agrees to
provide the coverage described, subject to every exclusion and endorsement
listed in the declaration pages. Liability coverage applies to the insured
premises. Loss settlement follows the terms herein. Contact your adjuster
with any claim questions.
`

func TestEvaluateCleanPolicyText(t *testing.T) {
	eval := NewEvaluator(testQualityConfig())

	score := eval.Evaluate(policyText)
	assert.GreaterOrEqual(t, score, 60.0)
	assert.False(t, eval.ShouldEscalate(score))
}

func TestEvaluateDeterministic(t *testing.T) {
	eval := NewEvaluator(testQualityConfig())

	first := eval.Evaluate(policyText)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, eval.Evaluate(policyText))
	}
}

func TestEvaluateEmptyAndGarbage(t *testing.T) {
	eval := NewEvaluator(testQualityConfig())

	assert.Zero(t, eval.Evaluate(""))
	assert.Zero(t, eval.Evaluate("   \n\t  "))

	garbage := strings.Repeat("\x01\x02\x7f�", 200)
	score := eval.Evaluate(garbage)
	assert.True(t, eval.ShouldEscalate(score), "garbled text should escalate, got %.1f", score)
}

func TestEvaluateShortTextGetsNoLengthPoints(t *testing.T) {
	eval := NewEvaluator(testQualityConfig())

	score := eval.Evaluate("policy")
	assert.Less(t, score, 40.0)
}

func TestGateBands(t *testing.T) {
	eval := NewEvaluator(testQualityConfig())

	tests := []struct {
		score    float64
		accept   bool
		mediocre bool
		escalate bool
	}{
		{85, true, false, false},
		{70, true, false, false},
		{55, false, true, false},
		{40, false, true, false},
		{39.9, false, false, true},
		{0, false, false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.accept, eval.Accept(tt.score), "accept(%v)", tt.score)
		assert.Equal(t, tt.mediocre, eval.Mediocre(tt.score), "mediocre(%v)", tt.score)
		assert.Equal(t, tt.escalate, eval.ShouldEscalate(tt.score), "escalate(%v)", tt.score)
	}
}

func TestEvaluateCapsAtHundred(t *testing.T) {
	cfg := testQualityConfig()
	cfg.LengthPoints = 80
	cfg.KeywordPoints = 80
	eval := NewEvaluator(cfg)

	score := eval.Evaluate(strings.Repeat(policyText, 3))
	assert.LessOrEqual(t, score, 100.0)
}
