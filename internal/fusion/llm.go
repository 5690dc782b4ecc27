package fusion

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/pkg/llm"
)

// maxEnhanceChars bounds how much document text is sent per enhancement call.
const maxEnhanceChars = 12000

const enhanceSystemPrompt = `You extract structured fields from insurance documents.
Respond with a single JSON object mapping field names to string values.
Use these field names when the value is present in the document:
policyNumber, claimNumber, insuredName, propertyAddress, effectiveDate,
expirationDate, insurerName, coverageAmount, deductible, premium,
agentName, mortgagee, loanNumber.
Omit any field the document does not contain. Never guess a value.
Respond with the JSON object only, no prose.`

// Enhancer fills fields the regex parsers missed by asking an LLM. It only
// ever supplements; the regex extraction stands on its own when the model is
// unavailable or returns garbage.
type Enhancer struct {
	client    llm.Client
	model     string
	maxTokens int64
}

func NewEnhancer(client llm.Client, cfg config.AnthropicConfig) *Enhancer {
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Enhancer{client: client, model: cfg.Model, maxTokens: maxTokens}
}

// Enhance extracts a field map from raw document text. Returns the fields,
// the call's estimated cost in USD, and any error. Cost is reported even on
// parse failure since the tokens were spent.
func (e *Enhancer) Enhance(ctx context.Context, text string) (map[string]string, float64, error) {
	if len(text) > maxEnhanceChars {
		text = text[:maxEnhanceChars]
	}

	resp, err := e.client.CreateMessage(ctx, llm.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    llm.BuildCachedSystemBlocks(enhanceSystemPrompt),
		Messages:  []llm.Message{{Role: "user", Content: text}},
	})
	if err != nil {
		return nil, 0, eris.Wrap(err, "fusion: llm enhance")
	}
	resp.Usage.LogCost(e.model, "enhance")
	cost := resp.Usage.EstimateCost(e.model)

	fields, err := parseFieldJSON(resp.Text())
	if err != nil {
		return nil, cost, err
	}
	return fields, cost, nil
}

// parseFieldJSON pulls the first JSON object out of a model response and
// keeps its non-empty string values.
func parseFieldJSON(s string) (map[string]string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, eris.New("fusion: no JSON object in response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, eris.Wrap(err, "fusion: parse field response")
	}

	out := map[string]string{}
	for k, v := range raw {
		sv, ok := v.(string)
		if !ok {
			continue
		}
		sv = strings.TrimSpace(sv)
		if sv == "" || strings.EqualFold(sv, "null") {
			continue
		}
		out[k] = sv
	}
	return out, nil
}

// MergeFields fills missing entries in base from extra without overwriting
// anything a higher-trust extractor already produced.
func MergeFields(base, extra map[string]string) map[string]string {
	if base == nil {
		base = map[string]string{}
	}
	for k, v := range extra {
		if base[k] == "" {
			base[k] = v
		}
	}
	return base
}
