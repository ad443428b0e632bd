// Package cli runs the advisor core from the command line, without the HTTP
// server or the database.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/advisor-backend/internal/builder"
	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Advisor is the part of the core the commands drive
type Advisor interface {
	Classify(text string) entity.Category
	Embed(ctx context.Context, text string) ([]float32, string, error)
	Search(ctx context.Context, text string, k int) ([]entity.RetrievalResult, error)
	Ask(ctx context.Context, q entity.Query) entity.PipelineResult
}

var (
	envName string
	verbose bool

	// advisor is built on first use; tests set it directly
	advisor Advisor
)

var rootCmd = &cobra.Command{
	Use:           "advisor-cli",
	Short:         "Ask the category advisor from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if advisor != nil {
			return nil
		}
		a, err := loadAdvisor(cmd.Context(), envName, verbose)
		if err != nil {
			return err
		}
		advisor = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "local", "environment to load (.env.<env>)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log component startup")
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadAdvisor(ctx context.Context, env string, verbose bool) (Advisor, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg.DatabaseURL = ""
	cfg.SeedCfg.Watch = false

	logger := zap.NewNop()
	if verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	core, err := builder.BuildCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &coreAdvisor{core: core}, nil
}

type coreAdvisor struct {
	core *builder.Core
}

func (a *coreAdvisor) Classify(text string) entity.Category {
	return a.core.Classifier.Classify(text)
}

func (a *coreAdvisor) Embed(ctx context.Context, text string) ([]float32, string, error) {
	vectors, err := a.core.Embedder.Encode(ctx, []string{text})
	if err != nil {
		return nil, "", err
	}
	if len(vectors) != 1 {
		return nil, "", errors.New("embedder returned no vector")
	}
	return vectors[0], a.core.Embedder.Mode(), nil
}

func (a *coreAdvisor) Search(ctx context.Context, text string, k int) ([]entity.RetrievalResult, error) {
	vector, _, err := a.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return a.core.Index.Search(ctx, vector, k)
}

func (a *coreAdvisor) Ask(ctx context.Context, q entity.Query) entity.PipelineResult {
	return a.core.Pipeline.ProcessQuery(ctx, q)
}
