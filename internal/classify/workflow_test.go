package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claimstack/docpipe/internal/model"
)

func classifications(types ...string) []model.ClassificationResult {
	out := make([]model.ClassificationResult, len(types))
	for i, dt := range types {
		c := model.ClassificationResult{DocumentType: dt}
		if dt == model.DocTypePolicy || dt == "certified_policy" {
			c.Category = model.CategoryPolicy
		}
		if dt == model.DocTypeRejection {
			c.Category = model.CategoryProcessing
		}
		out[i] = c
	}
	return out
}

func TestAnalyzeWorkflowLadder(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  model.WorkflowStage
	}{
		{"no policy", []string{model.DocTypeAcknowledgement}, model.StageClaimInitiation},
		{"policy only", []string{model.DocTypePolicy}, model.StageClaimInitiation},
		{"ack plus rfi", []string{model.DocTypePolicy, model.DocTypeAcknowledgement, model.DocTypeRequestForInfo}, model.StageInformationGathering},
		{"settlement", []string{model.DocTypePolicy, model.DocTypeAcknowledgement, model.DocTypeSettlement}, model.StageSettlement},
		{"rejection", []string{model.DocTypePolicy, model.DocTypeAcknowledgement, model.DocTypeRejection}, model.StageDisputed},
		{"under review", []string{model.DocTypePolicy, model.DocTypeAcknowledgement}, model.StageUnderReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeWorkflow(classifications(tt.types...))
			assert.Equal(t, tt.want, got.Stage)
			assert.NotEmpty(t, got.Recommendations)
		})
	}
}

func TestAnalyzeWorkflowMissingPolicy(t *testing.T) {
	got := AnalyzeWorkflow(classifications(model.DocTypeAcknowledgement))
	assert.Contains(t, got.MissingDocuments, "Insurance Policy")
}

func TestAnalyzeWorkflowOrderInsensitive(t *testing.T) {
	forward := classifications(model.DocTypePolicy, model.DocTypeAcknowledgement, model.DocTypeSettlement)
	reversed := classifications(model.DocTypeSettlement, model.DocTypeAcknowledgement, model.DocTypePolicy)

	assert.Equal(t, AnalyzeWorkflow(forward), AnalyzeWorkflow(reversed))
}
