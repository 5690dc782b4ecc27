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

// OCRClient extracts text from scanned documents via a hosted OCR API.
type OCRClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
}

// NewOCRClient creates an OCR engine from config.
func NewOCRClient(cfg config.OCRConfig, breaker *resilience.CircuitBreaker) *OCRClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.LogRetries(string(model.MethodOCR), "recognize")

	return &OCRClient{
		apiKey:   cfg.Key,
		model:    cfg.Model,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/ocr",
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(perSec), 1),
		breaker:  breaker,
		retry:    retry,
	}
}

func (o *OCRClient) Name() model.Method { return model.MethodOCR }

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrResponse struct {
	Pages []ocrPage `json:"pages"`
}

type ocrPage struct {
	Index      int     `json:"index"`
	Markdown   string  `json:"markdown"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Extract sends the document to the OCR API as a base64 data URL and joins
// the per-page markdown. Transport retries and the circuit breaker apply;
// a rejected or exhausted call surfaces as an error for tier escalation.
func (o *OCRClient) Extract(ctx context.Context, doc model.Document) (*Extraction, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "engine: ocr rate limit wait")
	}

	return resilience.ExecuteVal(ctx, o.breaker, func(ctx context.Context) (*Extraction, error) {
		return resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*Extraction, error) {
			return o.recognize(ctx, doc)
		})
	})
}

func (o *OCRClient) recognize(ctx context.Context, doc model.Document) (*Extraction, error) {
	mime := doc.MimeType
	if mime == "" {
		mime = "application/pdf"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(doc.Bytes)

	reqBody := ocrRequest{
		Model: o.model,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: dataURL,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, eris.Wrap(err, "engine: marshal ocr request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "engine: create ocr request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "engine: ocr API call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "engine: read ocr response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("engine: ocr API returned %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return nil, eris.Wrap(err, "engine: unmarshal ocr response")
	}

	var sb strings.Builder
	var confSum float64
	var confCount int
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
		if page.Confidence > 0 {
			confSum += page.Confidence
			confCount++
		}
	}

	out := &Extraction{
		Text:  sb.String(),
		Pages: len(ocrResp.Pages),
	}
	if confCount > 0 {
		out.Confidence = confSum / float64(confCount)
	}
	return out, nil
}
