package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Vision     VisionConfig     `yaml:"vision" mapstructure:"vision"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Quality    QualityConfig    `yaml:"quality" mapstructure:"quality"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Carrier    CarrierConfig    `yaml:"carrier" mapstructure:"carrier"`
	Fusion     FusionConfig     `yaml:"fusion" mapstructure:"fusion"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend for carrier templates and runs.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OCRConfig configures the OCR tier.
type OCRConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	Model         string  `yaml:"model" mapstructure:"model"`
	PdfToTextPath string  `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// VisionConfig configures the cloud vision tier.
type VisionConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds the field-enhancement LLM settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Disabled  bool   `yaml:"disabled" mapstructure:"disabled"`
}

// QualityConfig holds the text quality scorer's point splits and gates.
// Point splits are empirically chosen; kept configurable for calibration.
type QualityConfig struct {
	LengthPoints      float64 `yaml:"length_points" mapstructure:"length_points"`
	KeywordPoints     float64 `yaml:"keyword_points" mapstructure:"keyword_points"`
	StructurePoints   float64 `yaml:"structure_points" mapstructure:"structure_points"`
	ReadabilityPoints float64 `yaml:"readability_points" mapstructure:"readability_points"`
	AcceptScore       float64 `yaml:"accept_score" mapstructure:"accept_score"`
	EscalateScore     float64 `yaml:"escalate_score" mapstructure:"escalate_score"`
}

// ClassifierConfig configures the document classifier.
type ClassifierConfig struct {
	TemplatesPath string  `yaml:"templates_path" mapstructure:"templates_path"`
	ConfidenceCap float64 `yaml:"confidence_cap" mapstructure:"confidence_cap"`
}

// CarrierConfig configures the carrier pattern store.
type CarrierConfig struct {
	SignatureThreshold float64 `yaml:"signature_threshold" mapstructure:"signature_threshold"`
	CorrectionTrust    float64 `yaml:"correction_trust" mapstructure:"correction_trust"`
	LearnThreshold     float64 `yaml:"learn_threshold" mapstructure:"learn_threshold"`
	HintConfidenceMin  float64 `yaml:"hint_confidence_min" mapstructure:"hint_confidence_min"`
	FieldHintMin       float64 `yaml:"field_hint_min" mapstructure:"field_hint_min"`
}

// FusionConfig holds the confidence fusion engine's weights and thresholds.
type FusionConfig struct {
	CoverageWeight      float64 `yaml:"coverage_weight" mapstructure:"coverage_weight"`
	ConsensusWeight     float64 `yaml:"consensus_weight" mapstructure:"consensus_weight"`
	ValidationWeight    float64 `yaml:"validation_weight" mapstructure:"validation_weight"`
	CriticalFieldWeight float64 `yaml:"critical_field_weight" mapstructure:"critical_field_weight"`
	NativeTierWeight    float64 `yaml:"native_tier_weight" mapstructure:"native_tier_weight"`
	OCRTierWeight       float64 `yaml:"ocr_tier_weight" mapstructure:"ocr_tier_weight"`
	VisionTierWeight    float64 `yaml:"vision_tier_weight" mapstructure:"vision_tier_weight"`
	PassedThreshold     float64 `yaml:"passed_threshold" mapstructure:"passed_threshold"`
	WarningThreshold    float64 `yaml:"warning_threshold" mapstructure:"warning_threshold"`
	RetryThreshold      float64 `yaml:"retry_threshold" mapstructure:"retry_threshold"`
	WeakFieldThreshold  float64 `yaml:"weak_field_threshold" mapstructure:"weak_field_threshold"`
	RetryBoost          float64 `yaml:"retry_boost" mapstructure:"retry_boost"`
	MaxIterations       int     `yaml:"max_iterations" mapstructure:"max_iterations"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// PricingConfig holds per-engine cost rates.
type PricingConfig struct {
	OCRPerPage    float64      `yaml:"ocr_per_page" mapstructure:"ocr_per_page"`
	VisionPerPage float64      `yaml:"vision_per_page" mapstructure:"vision_per_page"`
	Anthropic     ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DOCPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "docpipe.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ocr.base_url", "https://api.mistral.ai/v1")
	v.SetDefault("ocr.model", "pixtral-large-latest")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.timeout_secs", 60)
	v.SetDefault("ocr.rate_per_sec", 2)
	v.SetDefault("vision.base_url", "https://vision.googleapis.com/v1")
	v.SetDefault("vision.timeout_secs", 60)
	v.SetDefault("vision.rate_per_sec", 2)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("quality.length_points", 30)
	v.SetDefault("quality.keyword_points", 40)
	v.SetDefault("quality.structure_points", 20)
	v.SetDefault("quality.readability_points", 10)
	v.SetDefault("quality.accept_score", 70)
	v.SetDefault("quality.escalate_score", 40)
	v.SetDefault("classifier.confidence_cap", 0.95)
	v.SetDefault("carrier.signature_threshold", 0.8)
	v.SetDefault("carrier.correction_trust", 0.95)
	v.SetDefault("carrier.learn_threshold", 0.7)
	v.SetDefault("carrier.hint_confidence_min", 0.5)
	v.SetDefault("carrier.field_hint_min", 0.6)
	v.SetDefault("fusion.coverage_weight", 0.4)
	v.SetDefault("fusion.consensus_weight", 0.3)
	v.SetDefault("fusion.validation_weight", 0.3)
	v.SetDefault("fusion.critical_field_weight", 3)
	v.SetDefault("fusion.native_tier_weight", 0.6)
	v.SetDefault("fusion.ocr_tier_weight", 0.8)
	v.SetDefault("fusion.vision_tier_weight", 1.0)
	v.SetDefault("fusion.passed_threshold", 0.85)
	v.SetDefault("fusion.warning_threshold", 0.70)
	v.SetDefault("fusion.retry_threshold", 0.70)
	v.SetDefault("fusion.weak_field_threshold", 0.70)
	v.SetDefault("fusion.retry_boost", 0.1)
	v.SetDefault("fusion.max_iterations", 4)
	v.SetDefault("batch.max_concurrent_documents", 4)
	v.SetDefault("pricing.ocr_per_page", 0.001)
	v.SetDefault("pricing.vision_per_page", 0.0015)
	v.SetDefault("pricing.anthropic.input", 1.00)
	v.SetDefault("pricing.anthropic.output", 5.00)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
