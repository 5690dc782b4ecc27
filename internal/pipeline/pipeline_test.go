package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimstack/docpipe/internal/acquire"
	"github.com/claimstack/docpipe/internal/carrier"
	"github.com/claimstack/docpipe/internal/classify"
	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/fusion"
	"github.com/claimstack/docpipe/internal/model"
	"github.com/claimstack/docpipe/internal/store"
)

const policyText = `ALLSTATE INSURANCE COMPANY
Homeowners Policy Declarations
Policy Number: HO8821456
Named Insured: John Smith
Property Address: 123 Main Street, Springfield, IL 62704
Effective Date: 01/15/2024
Expiration Date: 01/15/2025
Insurer: Allstate Fire and Casualty
Coverage A - Dwelling: $250,000
Deductible: $1,000
Total Premium: $1,842
Agent: Mary Johnson
`

const acknowledgementText = `STATE FARM INSURANCE
Claim Acknowledgement
Thank you for reporting your loss. Your claim received on 03/02/2024 has
been assigned for handling.
Claim Number: CLM-445566
Policy Number: SF99887766
Adjuster: Sarah Connor
`

const settlementText = `STATE FARM INSURANCE
Final Settlement Letter
We have agreed to settle your claim. Payment will be issued within 10
business days of your acceptance.
Claim Number: CLM445566
Settlement Amount: $45,000
Payment Date: 04/18/2024
`

// stubAcquirer returns a canned cascade result per filename.
type stubAcquirer struct {
	byFile map[string]*acquire.Result
}

func (s stubAcquirer) Run(_ context.Context, doc model.Document) *acquire.Result {
	return s.byFile[doc.Filename]
}

type stubEnhancer struct {
	fields map[string]string
	cost   float64
	err    error
	calls  int
}

func (s *stubEnhancer) Enhance(_ context.Context, _ string) (map[string]string, float64, error) {
	s.calls++
	return s.fields, s.cost, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Classifier: config.ClassifierConfig{ConfidenceCap: 0.95},
		Carrier: config.CarrierConfig{
			SignatureThreshold: 0.8,
			CorrectionTrust:    0.95,
			LearnThreshold:     0.7,
			HintConfidenceMin:  0.5,
			FieldHintMin:       0.6,
		},
		Fusion: config.FusionConfig{
			CoverageWeight:      0.4,
			ConsensusWeight:     0.3,
			ValidationWeight:    0.3,
			CriticalFieldWeight: 3,
			NativeTierWeight:    0.6,
			OCRTierWeight:       0.8,
			VisionTierWeight:    1.0,
			PassedThreshold:     0.85,
			WarningThreshold:    0.70,
			RetryThreshold:      0.70,
			WeakFieldThreshold:  0.70,
			RetryBoost:          0.1,
			MaxIterations:       4,
		},
		Batch: config.BatchConfig{MaxConcurrentDocuments: 2},
	}
}

func nativeResult(text string, score float64) *acquire.Result {
	return &acquire.Result{
		Attempts: []model.ExtractionAttempt{{
			Method:     model.MethodNativeText,
			Text:       text,
			Confidence: score / 100,
			CostUSD:    0.002,
		}},
		QualityScore: score,
	}
}

func newTestPipeline(t *testing.T, acq Acquirer, st store.Store, enh Enhancer) (*Pipeline, *carrier.Store) {
	t.Helper()

	cfg := testConfig()
	carriers, err := carrier.NewStore(context.Background(), cfg.Carrier, nil)
	require.NoError(t, err)

	p := New(cfg, Deps{
		Acquirer:   acq,
		Classifier: classify.New(classify.DefaultTemplates(), cfg.Classifier),
		Carriers:   carriers,
		Fuser:      fusion.New(cfg.Fusion, nil),
		Enhancer:   enh,
		Store:      st,
	})
	return p, carriers
}

func TestProcessDocumentPolicy(t *testing.T) {
	acq := stubAcquirer{byFile: map[string]*acquire.Result{
		"policy.pdf": nativeResult(policyText, 88),
	}}
	p, carriers := newTestPipeline(t, acq, nil, nil)

	got := p.ProcessDocument(context.Background(), model.Document{Filename: "policy.pdf"})

	require.False(t, got.Failed())
	require.NotNil(t, got.Classification)
	assert.Equal(t, model.DocTypePolicy, got.Classification.DocumentType)

	require.NotNil(t, got.Identifiers)
	assert.Equal(t, "HO8821456", got.Identifiers.PolicyNumber)
	assert.Equal(t, model.RelationshipValid, got.Identifiers.RelationshipStatus)

	require.NotNil(t, got.Extraction)
	assert.Equal(t, "allstate", got.Extraction.CarrierID)
	assert.Equal(t, model.GatePassed, got.Extraction.QualityGate)
	assert.Equal(t, "HO8821456", got.Extraction.PolicyData["policyNumber"])

	assert.InDelta(t, 88, got.QualityScore, 0.001)
	assert.InDelta(t, 0.002, got.CostUSD, 0.0001)
	assert.Contains(t, got.ProcessingNotes, "Carrier identified: Allstate Insurance")

	// High-confidence extraction for an identified carrier feeds learning.
	stats := carriers.Stats()
	assert.Equal(t, 1, stats.CarriersLearned)
	assert.Equal(t, 1, stats.TotalDocumentsProcessed)
}

func TestProcessDocumentRecordsRun(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	acq := stubAcquirer{byFile: map[string]*acquire.Result{
		"policy.pdf": nativeResult(policyText, 88),
	}}
	p, _ := newTestPipeline(t, acq, st, nil)

	got := p.ProcessDocument(context.Background(), model.Document{Filename: "policy.pdf"})
	require.False(t, got.Failed())

	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, "policy.pdf", runs[0].Result.Filename)
}

func TestProcessDocumentCancelled(t *testing.T) {
	p, _ := newTestPipeline(t, stubAcquirer{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := p.ProcessDocument(ctx, model.Document{Filename: "policy.pdf"})
	assert.True(t, got.Failed())
	assert.Nil(t, got.Extraction)
}

func TestProcessDocumentExhaustedFallback(t *testing.T) {
	acq := stubAcquirer{byFile: map[string]*acquire.Result{
		"scan.pdf": {
			Attempts: []model.ExtractionAttempt{{
				Method:     model.MethodFallback,
				Confidence: 0.1,
			}},
			Exhausted: true,
		},
	}}
	p, _ := newTestPipeline(t, acq, nil, nil)

	got := p.ProcessDocument(context.Background(), model.Document{Filename: "scan.pdf"})

	// An exhausted cascade is not a batch-level failure. The document
	// degrades to a minimal-confidence result.
	assert.False(t, got.Failed())
	require.NotNil(t, got.Extraction)
	assert.Equal(t, model.GateFailed, got.Extraction.QualityGate)
	assert.Contains(t, got.ProcessingNotes,
		"All acquisition tiers failed; result built from minimal-confidence fallback")
}

func TestProcessDocumentLLMEnhancement(t *testing.T) {
	acq := stubAcquirer{byFile: map[string]*acquire.Result{
		"policy.pdf": nativeResult(policyText, 88),
	}}
	enh := &stubEnhancer{
		fields: map[string]string{
			"claimNumber":  "CLM778899",
			"policyNumber": "SHOULD-NOT-WIN",
		},
		cost: 0.001,
	}
	p, _ := newTestPipeline(t, acq, nil, enh)

	got := p.ProcessDocument(context.Background(), model.Document{Filename: "policy.pdf"})

	require.NotNil(t, got.Extraction)
	assert.Equal(t, 1, enh.calls)
	// LLM fills what regex missed but never overrides a regex hit.
	assert.Equal(t, "CLM778899", got.Extraction.PolicyData["claimNumber"])
	assert.Equal(t, "HO8821456", got.Extraction.PolicyData["policyNumber"])
	assert.InDelta(t, 0.003, got.CostUSD, 0.0001)
}

func TestProcessDocumentLLMFailureFallsBackToRegex(t *testing.T) {
	acq := stubAcquirer{byFile: map[string]*acquire.Result{
		"policy.pdf": nativeResult(policyText, 88),
	}}
	enh := &stubEnhancer{err: assert.AnError}
	p, _ := newTestPipeline(t, acq, nil, enh)

	got := p.ProcessDocument(context.Background(), model.Document{Filename: "policy.pdf"})

	require.NotNil(t, got.Extraction)
	assert.Equal(t, "HO8821456", got.Extraction.PolicyData["policyNumber"])
	assert.Equal(t, model.GatePassed, got.Extraction.QualityGate)
}

func TestSubmitCorrection(t *testing.T) {
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	p, carriers := newTestPipeline(t, stubAcquirer{}, st, nil)

	fb := model.CorrectionFeedback{
		DocumentID:     "doc-1",
		CarrierID:      "allstate",
		Field:          "policyNumber",
		CorrectedValue: "HO9933221",
		OriginalValue:  "HO8821456",
	}
	require.NoError(t, p.SubmitCorrection(context.Background(), fb))

	assert.Equal(t, 1, carriers.Stats().TotalCorrections)
}

func TestSubmitCorrectionRejectsIncomplete(t *testing.T) {
	p, _ := newTestPipeline(t, stubAcquirer{}, nil, nil)

	err := p.SubmitCorrection(context.Background(), model.CorrectionFeedback{CarrierID: "allstate"})
	assert.Error(t, err)
}

func TestEnrichByType(t *testing.T) {
	fused := &model.FusedResult{PolicyData: map[string]string{}}
	enrichByType(model.DocTypeSettlement, settlementText, fused)

	assert.Equal(t, "$45,000", fused.PolicyData["settlementAmount"])
	assert.Equal(t, "04/18/2024", fused.PolicyData["paymentDate"])
}

func TestEnrichByTypeNeverOverwrites(t *testing.T) {
	fused := &model.FusedResult{PolicyData: map[string]string{"settlementAmount": "$50,000"}}
	enrichByType(model.DocTypeSettlement, settlementText, fused)

	assert.Equal(t, "$50,000", fused.PolicyData["settlementAmount"])
}

func TestEnrichByTypeReservation(t *testing.T) {
	fused := &model.FusedResult{}
	enrichByType(model.DocTypeReservation, "We reserve our rights under the policy.", fused)

	assert.Equal(t, "true", fused.PolicyData["rightsReserved"])
}
