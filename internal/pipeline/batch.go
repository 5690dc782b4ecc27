package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/claimstack/docpipe/internal/classify"
	"github.com/claimstack/docpipe/internal/model"
)

// ProcessBatch runs every document through the pipeline with bounded
// concurrency, then consolidates identifiers and data across the batch.
// Per-document failures are isolated; one bad document never aborts the
// rest. Results are keyed by input position so consolidation does not
// depend on completion order.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []model.Document) *model.BatchResult {
	start := p.now()

	limit := p.cfg.Batch.MaxConcurrentDocuments
	if limit <= 0 {
		limit = 1
	}

	results := make([]model.DocumentResult, len(docs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, doc := range docs {
		g.Go(func() error {
			results[i] = p.ProcessDocument(ctx, doc)
			return nil
		})
	}
	// Workers never return errors; per-document failures live on the result.
	_ = g.Wait()

	consolidated := consolidate(results)

	var classifications []model.ClassificationResult
	for _, r := range results {
		if r.Classification != nil {
			classifications = append(classifications, *r.Classification)
		}
	}
	workflow := classify.AnalyzeWorkflow(classifications)
	consolidated.WorkflowStage = workflow.Stage

	batch := &model.BatchResult{
		Documents:        results,
		WorkflowStage:    workflow.Stage,
		ConsolidatedData: consolidated,
		Recommendations:  p.recommendations(results, consolidated, workflow),
		TotalTime:        p.now().Sub(start),
	}
	for _, r := range results {
		batch.TotalCostUSD += r.CostUSD
	}

	zap.L().Info("pipeline: batch processed",
		zap.Int("documents", len(docs)),
		zap.String("workflowStage", string(workflow.Stage)),
		zap.Float64("totalCostUsd", batch.TotalCostUSD))

	return batch
}

// consolidate deduplicates identifiers and key data across document results.
// Values that differ only in case or punctuation collapse into the first
// occurrence, walked in input order for determinism.
func consolidate(results []model.DocumentResult) model.ConsolidatedClaimContext {
	claims := newDedup()
	policies := newDedup()
	names := newDedup()
	addresses := newDedup()
	dates := newDedup()
	docTypes := newDedup()
	figures := newDedup()

	for _, r := range results {
		if r.Identifiers != nil {
			claims.add(r.Identifiers.ClaimNumber)
			claims.add(r.Identifiers.CarrierClaimNumber)
			policies.add(r.Identifiers.PolicyNumber)
		}
		if r.Classification != nil && r.Classification.DocumentType != model.DocTypeUnknown {
			docTypes.add(r.Classification.DocumentType)
		}
		if r.Extraction == nil {
			continue
		}
		data := r.Extraction.PolicyData
		policies.add(data["policyNumber"])
		names.add(data["insuredName"])
		addresses.add(data["propertyAddress"])
		for _, f := range []string{"effectiveDate", "expirationDate", "paymentDate", "responseDeadline"} {
			dates.add(data[f])
		}
		for _, f := range []string{"coverageAmount", "deductible", "premium", "settlementAmount", "estimateTotal"} {
			figures.add(data[f])
		}
	}

	return model.ConsolidatedClaimContext{
		ClaimNumbers:      claims.values,
		PolicyNumbers:     policies.values,
		InsuredNames:      names.values,
		PropertyAddresses: addresses.values,
		KeyDates:          dates.values,
		DocumentTypes:     docTypes.values,
		FinancialFigures:  figures.values,
	}
}

func (p *Pipeline) recommendations(results []model.DocumentResult, consolidated model.ConsolidatedClaimContext, workflow classify.WorkflowAnalysis) []string {
	recs := append([]string(nil), workflow.Recommendations...)

	for _, missing := range workflow.MissingDocuments {
		recs = append(recs, "Missing document: "+missing)
	}

	if len(consolidated.ClaimNumbers) > 1 {
		recs = append(recs, fmt.Sprintf(
			"Multiple claim numbers detected (%s) - verify all documents belong to the same claim",
			strings.Join(consolidated.ClaimNumbers, ", ")))
	}

	for _, r := range results {
		switch {
		case r.Failed():
			recs = append(recs, fmt.Sprintf("Document %s failed processing: %s", r.Filename, r.Error))
		case r.Extraction != nil && r.Extraction.QualityGate == model.GateFailed:
			recs = append(recs, fmt.Sprintf("Low extraction confidence for %s - manual review recommended", r.Filename))
		}
		if r.Identifiers != nil && r.Identifiers.RelationshipStatus == model.RelationshipConflicting {
			recs = append(recs, fmt.Sprintf("Identifier conflict in %s - verify document belongs to this claim", r.Filename))
		}
	}

	return recs
}

// dedup collects values in first-seen order, comparing by canonical key.
type dedup struct {
	seen   map[string]bool
	values []string
}

func newDedup() *dedup { return &dedup{seen: map[string]bool{}} }

func (d *dedup) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	key := canonicalKey(v)
	if key == "" || d.seen[key] {
		return
	}
	d.seen[key] = true
	d.values = append(d.values, v)
}

func canonicalKey(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(v) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
