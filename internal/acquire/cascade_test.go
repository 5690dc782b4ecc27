package acquire

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimstack/docpipe/internal/cost"
	"github.com/claimstack/docpipe/internal/engine"
	"github.com/claimstack/docpipe/internal/model"
)

// mockEngine returns canned output or a canned error. An optional hook runs
// inside Extract with the context the engine actually received.
type mockEngine struct {
	name  model.Method
	out   *engine.Extraction
	err   error
	calls int
	hook  func(ctx context.Context)
}

func (m *mockEngine) Name() model.Method { return m.name }

func (m *mockEngine) Extract(ctx context.Context, doc model.Document) (*engine.Extraction, error) {
	m.calls++
	if m.hook != nil {
		m.hook(ctx)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.out, nil
}

func testCascade(engines ...engine.Engine) *Cascade {
	return NewCascade(engines, NewEvaluator(testQualityConfig()), cost.NewCalculator(cost.DefaultRates()))
}

func TestRunAcceptsFirstTierOnGoodText(t *testing.T) {
	native := &mockEngine{name: model.MethodNativeText, out: &engine.Extraction{Text: policyText}}
	ocr := &mockEngine{name: model.MethodOCR, out: &engine.Extraction{Text: policyText, Confidence: 0.9}}

	res := testCascade(native, ocr).Run(context.Background(), model.Document{Filename: "clean.pdf"})

	require.Len(t, res.Attempts, 1)
	assert.Equal(t, model.MethodNativeText, res.Attempts[0].Method)
	assert.Zero(t, ocr.calls)
	assert.False(t, res.Exhausted)
	assert.GreaterOrEqual(t, res.QualityScore, 40.0)
}

func TestRunEscalatesOnLowQuality(t *testing.T) {
	native := &mockEngine{name: model.MethodNativeText, out: &engine.Extraction{Text: "a1!"}}
	ocr := &mockEngine{name: model.MethodOCR, out: &engine.Extraction{Text: policyText, Confidence: 0.88, Pages: 2}}

	res := testCascade(native, ocr).Run(context.Background(), model.Document{Filename: "scanned.pdf"})

	require.Len(t, res.Attempts, 2)
	assert.Equal(t, 1, native.calls)
	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, model.MethodOCR, res.Attempts[1].Method)
	assert.InDelta(t, 0.88, res.Attempts[1].Confidence, 0.001)
	assert.Greater(t, res.Attempts[1].CostUSD, 0.0)
}

func TestRunSkipsFailedTier(t *testing.T) {
	native := &mockEngine{name: model.MethodNativeText, err: eris.New("no text layer")}
	ocr := &mockEngine{name: model.MethodOCR, out: &engine.Extraction{Text: policyText, Confidence: 0.9}}

	res := testCascade(native, ocr).Run(context.Background(), model.Document{Filename: "broken.pdf"})

	require.Len(t, res.Attempts, 1)
	assert.Equal(t, model.MethodOCR, res.Attempts[0].Method)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, string(model.MethodNativeText), res.Failures[0].Method)
}

func TestRunSynthesizesFallbackWhenExhausted(t *testing.T) {
	native := &mockEngine{name: model.MethodNativeText, err: eris.New("down")}
	ocr := &mockEngine{name: model.MethodOCR, err: eris.New("down")}

	res := testCascade(native, ocr).Run(context.Background(), model.Document{Filename: "corrupt.pdf"})

	assert.True(t, res.Exhausted)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, model.MethodFallback, res.Attempts[0].Method)
	assert.LessOrEqual(t, res.Attempts[0].Confidence, 0.1)
	assert.Len(t, res.Failures, 2)

	require.NotNil(t, res.Failure)
	assert.Equal(t, "corrupt.pdf", res.Failure.Filename)
	assert.Len(t, res.Failure.Failures, 2)
	assert.Contains(t, res.Failure.Error(), "after 2 tiers")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	native := &mockEngine{name: model.MethodNativeText, out: &engine.Extraction{Text: policyText}}
	res := testCascade(native).Run(ctx, model.Document{Filename: "doc.pdf"})

	assert.Zero(t, native.calls)
	assert.True(t, res.Exhausted)
}

func TestRunCancellationSparesInFlightTier(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel mid-call: the tier in flight must not see the cancellation,
	// while the next tier must never start.
	var seen error
	native := &mockEngine{
		name: model.MethodNativeText,
		out:  &engine.Extraction{Text: "a1!"},
		hook: func(callCtx context.Context) {
			cancel()
			seen = callCtx.Err()
		},
	}
	ocr := &mockEngine{name: model.MethodOCR, out: &engine.Extraction{Text: policyText}}

	res := testCascade(native, ocr).Run(ctx, model.Document{Filename: "doc.pdf"})

	require.NoError(t, seen)
	assert.Equal(t, 1, native.calls)
	assert.Zero(t, ocr.calls)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, model.MethodNativeText, res.Attempts[0].Method)
}

func TestAcquireSingleMethod(t *testing.T) {
	vision := &mockEngine{name: model.MethodCloudVision, out: &engine.Extraction{Text: policyText, Confidence: 0.95, Pages: 1}}
	c := testCascade(&mockEngine{name: model.MethodNativeText, out: &engine.Extraction{Text: "x"}}, vision)

	attempt, err := c.Acquire(context.Background(), model.Document{Filename: "doc.pdf"}, model.MethodCloudVision)
	require.NoError(t, err)
	assert.Equal(t, model.MethodCloudVision, attempt.Method)
	assert.InDelta(t, 0.95, attempt.Confidence, 0.001)

	_, err = c.Acquire(context.Background(), model.Document{}, model.Method("teleport"))
	var af *AcquisitionFailure
	require.ErrorAs(t, err, &af)
}

func TestHighestTier(t *testing.T) {
	c := testCascade(
		&mockEngine{name: model.MethodNativeText},
		&mockEngine{name: model.MethodOCR},
		&mockEngine{name: model.MethodCloudVision},
	)
	assert.Equal(t, model.MethodCloudVision, c.HighestTier())
}

func TestBestAttempt(t *testing.T) {
	res := &Result{Attempts: []model.ExtractionAttempt{
		{Method: model.MethodNativeText, Confidence: 0.4},
		{Method: model.MethodOCR, Confidence: 0.9},
	}}
	assert.Equal(t, model.MethodOCR, res.Best().Method)
}
