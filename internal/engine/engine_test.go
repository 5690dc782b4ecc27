package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/model"
	"github.com/claimstack/docpipe/internal/resilience"
)

func testBreaker() *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
}

func testDoc() model.Document {
	return model.Document{
		ID:       "doc-1",
		Filename: "policy.pdf",
		MimeType: "application/pdf",
		Bytes:    []byte("%PDF-1.4 fake"),
	}
}

func TestNewEnginesTierOrder(t *testing.T) {
	cfg := &config.Config{}
	cfg.OCR.Key = "ocr-key"
	cfg.OCR.BaseURL = "https://ocr.example.com/v1"
	cfg.Vision.Key = "vision-key"
	cfg.Vision.BaseURL = "https://vision.example.com/v1"

	engines, err := NewEngines(cfg, resilience.NewEngineBreakers(resilience.DefaultCircuitBreakerConfig()))
	require.NoError(t, err)
	require.Len(t, engines, 3)

	assert.Equal(t, model.MethodNativeText, engines[0].Name())
	assert.Equal(t, model.MethodOCR, engines[1].Name())
	assert.Equal(t, model.MethodCloudVision, engines[2].Name())
}

func TestNewEnginesNativeOnly(t *testing.T) {
	engines, err := NewEngines(&config.Config{}, resilience.NewEngineBreakers(resilience.DefaultCircuitBreakerConfig()))
	require.NoError(t, err)
	require.Len(t, engines, 1)
	assert.Equal(t, model.MethodNativeText, engines[0].Name())
}

func TestOCRClientExtract(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/ocr", r.URL.Path)
		w.Write([]byte(`{"pages":[
			{"index":0,"markdown":"Policy Number: HO-123456","confidence":0.93},
			{"index":1,"markdown":"Insured: Jane Smith","confidence":0.89}
		]}`))
	}))
	defer srv.Close()

	cfg := config.OCRConfig{Key: "test-key", BaseURL: srv.URL, Model: "test-model", RatePerSec: 100}
	client := NewOCRClient(cfg, testBreaker())

	out, err := client.Extract(context.Background(), testDoc())
	require.NoError(t, err)

	assert.Equal(t, "Policy Number: HO-123456\n\nInsured: Jane Smith", out.Text)
	assert.Equal(t, 2, out.Pages)
	assert.InDelta(t, 0.91, out.Confidence, 0.001)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestOCRClientRetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"pages":[{"index":0,"markdown":"ok"}]}`))
	}))
	defer srv.Close()

	cfg := config.OCRConfig{Key: "k", BaseURL: srv.URL, RatePerSec: 100}
	client := NewOCRClient(cfg, testBreaker())
	client.retry.InitialBackoff = 1
	client.retry.OnRetry = nil

	out, err := client.Extract(context.Background(), testDoc())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.Equal(t, 2, calls)
}

func TestOCRClientPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unsupported document"}`))
	}))
	defer srv.Close()

	cfg := config.OCRConfig{Key: "k", BaseURL: srv.URL, RatePerSec: 100}
	client := NewOCRClient(cfg, testBreaker())

	_, err := client.Extract(context.Background(), testDoc())
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestVisionClientExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images:annotate", r.URL.Path)
		assert.Equal(t, "vision-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"responses":[{"fullTextAnnotation":{
			"text":"CLAIM NUMBER: CLM-2024-001",
			"pages":[{"confidence":0.97}]
		}}]}`))
	}))
	defer srv.Close()

	cfg := config.VisionConfig{Key: "vision-key", BaseURL: srv.URL, RatePerSec: 100}
	client := NewVisionClient(cfg, testBreaker())

	out, err := client.Extract(context.Background(), testDoc())
	require.NoError(t, err)

	assert.Equal(t, "CLAIM NUMBER: CLM-2024-001", out.Text)
	assert.InDelta(t, 0.97, out.Confidence, 0.001)
	assert.Equal(t, 1, out.Pages)
}

func TestVisionClientAnnotationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responses":[{"error":{"code":3,"message":"bad image"}}]}`))
	}))
	defer srv.Close()

	cfg := config.VisionConfig{Key: "k", BaseURL: srv.URL, RatePerSec: 100}
	client := NewVisionClient(cfg, testBreaker())

	_, err := client.Extract(context.Background(), testDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")
}

func TestCountPageBreaks(t *testing.T) {
	assert.Equal(t, 1, countPageBreaks("single page"))
	assert.Equal(t, 3, countPageBreaks("one\ftwo\fthree"))
}
