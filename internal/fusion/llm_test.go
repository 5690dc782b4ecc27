package fusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/pkg/llm"
)

type stubLLM struct {
	resp *llm.MessageResponse
	err  error
	got  llm.MessageRequest
}

func (s *stubLLM) CreateMessage(_ context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	s.got = req
	return s.resp, s.err
}

func textResponse(text string) *llm.MessageResponse {
	return &llm.MessageResponse{
		Content: []llm.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestEnhanceParsesFieldJSON(t *testing.T) {
	stub := &stubLLM{resp: textResponse(
		`Here are the fields:
{"policyNumber": "HO8821456", "insuredName": "John Smith", "premium": null, "pages": 4}`,
	)}
	e := NewEnhancer(stub, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001", MaxTokens: 512})

	fields, _, err := e.Enhance(context.Background(), "Policy Number: HO8821456")
	require.NoError(t, err)

	assert.Equal(t, "HO8821456", fields["policyNumber"])
	assert.Equal(t, "John Smith", fields["insuredName"])
	_, ok := fields["premium"]
	assert.False(t, ok)
	_, ok = fields["pages"]
	assert.False(t, ok)

	assert.Equal(t, int64(512), stub.got.MaxTokens)
}

func TestEnhanceTruncatesLongText(t *testing.T) {
	stub := &stubLLM{resp: textResponse(`{}`)}
	e := NewEnhancer(stub, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"})

	long := make([]byte, maxEnhanceChars*2)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err := e.Enhance(context.Background(), string(long))
	require.NoError(t, err)
	assert.Len(t, stub.got.Messages[0].Content, maxEnhanceChars)
}

func TestEnhanceClientError(t *testing.T) {
	stub := &stubLLM{err: assert.AnError}
	e := NewEnhancer(stub, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"})

	_, _, err := e.Enhance(context.Background(), "some text")
	assert.Error(t, err)
}

func TestEnhanceNoJSONInResponse(t *testing.T) {
	stub := &stubLLM{resp: textResponse("I could not find any fields.")}
	e := NewEnhancer(stub, config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"})

	_, _, err := e.Enhance(context.Background(), "some text")
	assert.Error(t, err)
}

func TestMergeFields(t *testing.T) {
	base := map[string]string{"policyNumber": "HO8821456", "premium": ""}
	extra := map[string]string{"policyNumber": "WRONG", "premium": "$1,842", "agentName": "Mary Johnson"}

	merged := MergeFields(base, extra)

	assert.Equal(t, "HO8821456", merged["policyNumber"])
	assert.Equal(t, "$1,842", merged["premium"])
	assert.Equal(t, "Mary Johnson", merged["agentName"])

	assert.Equal(t, map[string]string{"a": "1"}, MergeFields(nil, map[string]string{"a": "1"}))
}
