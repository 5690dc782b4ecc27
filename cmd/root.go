package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/claimstack/docpipe/internal/acquire"
	"github.com/claimstack/docpipe/internal/carrier"
	"github.com/claimstack/docpipe/internal/classify"
	"github.com/claimstack/docpipe/internal/config"
	"github.com/claimstack/docpipe/internal/cost"
	"github.com/claimstack/docpipe/internal/engine"
	"github.com/claimstack/docpipe/internal/fusion"
	"github.com/claimstack/docpipe/internal/pipeline"
	"github.com/claimstack/docpipe/internal/resilience"
	"github.com/claimstack/docpipe/internal/store"
	"github.com/claimstack/docpipe/pkg/llm"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "docpipe",
	Short: "Insurance document extraction pipeline",
	Long:  "Extracts structured claim data from insurance documents via a tiered acquisition cascade, template classification, carrier-aware learning, and confidence fusion.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func pricingRates() cost.Rates {
	return cost.Rates{
		Anthropic: map[string]cost.ModelRate{
			cfg.Anthropic.Model: {
				Input:  cfg.Pricing.Anthropic.Input,
				Output: cfg.Pricing.Anthropic.Output,
			},
		},
		OCR:    cost.PageRate{PerPage: cfg.Pricing.OCRPerPage},
		Vision: cost.PageRate{PerPage: cfg.Pricing.VisionPerPage},
	}
}

func buildPipeline(ctx context.Context, st store.Store) (*pipeline.Pipeline, *carrier.Store, error) {
	breakers := resilience.NewEngineBreakers(resilience.DefaultCircuitBreakerConfig())
	engines, err := engine.NewEngines(cfg, breakers)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init engines")
	}

	eval := acquire.NewEvaluator(cfg.Quality)
	calc := cost.NewCalculator(pricingRates())
	cascade := acquire.NewCascade(engines, eval, calc)

	templates := classify.DefaultTemplates()
	if cfg.Classifier.TemplatesPath != "" {
		templates, err = classify.LoadTemplates(cfg.Classifier.TemplatesPath)
		if err != nil {
			return nil, nil, eris.Wrap(err, "load classifier templates")
		}
	}

	carriers, err := carrier.NewStore(ctx, cfg.Carrier, st)
	if err != nil {
		return nil, nil, eris.Wrap(err, "init carrier store")
	}

	var enhancer pipeline.Enhancer
	if cfg.Anthropic.Key != "" && !cfg.Anthropic.Disabled {
		enhancer = fusion.NewEnhancer(llm.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
	}

	p := pipeline.New(cfg, pipeline.Deps{
		Acquirer:   cascade,
		Classifier: classify.New(templates, cfg.Classifier),
		Carriers:   carriers,
		Fuser:      fusion.New(cfg.Fusion, cascade),
		Enhancer:   enhancer,
		Store:      st,
	})
	return p, carriers, nil
}
