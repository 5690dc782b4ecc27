package cost

// Rates holds per-engine pricing configuration.
type Rates struct {
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       PageRate             `yaml:"ocr" mapstructure:"ocr"`
	Vision    PageRate             `yaml:"vision" mapstructure:"vision"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PageRate holds per-page pricing for image/PDF engines.
type PageRate struct {
	PerPage float64 `yaml:"per_page" mapstructure:"per_page"`
}

// Calculator computes costs for engine usage. Native text extraction is
// local and free; only OCR, vision, and LLM calls are metered.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for a field-enhancement LLM call.
func (c *Calculator) Claude(model string, input, output int) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// OCRPages computes the cost for an OCR call over the given page count.
func (c *Calculator) OCRPages(pages int) float64 {
	if pages < 1 {
		pages = 1
	}
	return float64(pages) * c.rates.OCR.PerPage
}

// VisionPages computes the cost for a cloud vision call over the given page count.
func (c *Calculator) VisionPages(pages int) float64 {
	if pages < 1 {
		pages = 1
	}
	return float64(pages) * c.rates.Vision.PerPage
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		OCR:    PageRate{PerPage: 0.001},
		Vision: PageRate{PerPage: 0.0015},
	}
}
