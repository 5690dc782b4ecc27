package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
	"github.com/claimstack/docpipe/internal/resilience"
)

// VisionClient extracts text via a cloud vision document-text API. Highest
// accuracy on degraded scans and the most expensive tier.
type VisionClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
}

// NewVisionClient creates a cloud vision engine from config.
func NewVisionClient(cfg config.VisionConfig, breaker *resilience.CircuitBreaker) *VisionClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.LogRetries(string(model.MethodCloudVision), "extract_text")

	return &VisionClient{
		apiKey:   cfg.Key,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/images:annotate",
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSec), 1),
		breaker:  breaker,
		retry:    retry,
	}
}

func (v *VisionClient) Name() model.Method { return model.MethodCloudVision }

type visionRequest struct {
	Requests []visionAnnotateRequest `json:"requests"`
}

type visionAnnotateRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []visionAnnotateResponse `json:"responses"`
}

type visionAnnotateResponse struct {
	FullTextAnnotation *visionFullText `json:"fullTextAnnotation,omitempty"`
	Error              *visionError    `json:"error,omitempty"`
}

type visionFullText struct {
	Text  string       `json:"text"`
	Pages []visionPage `json:"pages"`
}

type visionPage struct {
	Confidence float64 `json:"confidence"`
}

type visionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Extract runs document text detection on the raw bytes. Per-page
// confidences from the annotation are averaged into the self-report.
func (v *VisionClient) Extract(ctx context.Context, doc model.Document) (*Extraction, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "engine: vision rate limit wait")
	}

	return resilience.ExecuteVal(ctx, v.breaker, func(ctx context.Context) (*Extraction, error) {
		return resilience.DoVal(ctx, v.retry, func(ctx context.Context) (*Extraction, error) {
			return v.annotate(ctx, doc)
		})
	})
}

func (v *VisionClient) annotate(ctx context.Context, doc model.Document) (*Extraction, error) {
	reqBody := visionRequest{
		Requests: []visionAnnotateRequest{{
			Image:    visionImage{Content: base64.StdEncoding.EncodeToString(doc.Bytes)},
			Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "engine: marshal vision request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint+"?key="+v.apiKey, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "engine: create vision request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "engine: vision API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "engine: read vision response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("engine: vision API returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var visResp visionResponse
	if err := json.Unmarshal(respBody, &visResp); err != nil {
		return nil, eris.Wrap(err, "engine: unmarshal vision response")
	}

	if len(visResp.Responses) == 0 {
		return nil, eris.New("engine: vision API returned no responses")
	}
	r := visResp.Responses[0]
	if r.Error != nil {
		return nil, eris.Errorf("engine: vision annotation error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return &Extraction{Pages: 1}, nil
	}

	var confSum float64
	for _, p := range r.FullTextAnnotation.Pages {
		confSum += p.Confidence
	}

	out := &Extraction{
		Text:  r.FullTextAnnotation.Text,
		Pages: len(r.FullTextAnnotation.Pages),
	}
	if len(r.FullTextAnnotation.Pages) > 0 {
		out.Confidence = confSum / float64(len(r.FullTextAnnotation.Pages))
	}
	return out, nil
}
