// Package llamacpp drives a llama.cpp server that has the configured GGUF
// weights loaded. The server listens on loopback next to the service.
package llamacpp

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/integration/common"
	pkghttp "github.com/futig/advisor-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p"`
	TopK          int      `json:"top_k"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	Stop          []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Content string `json:"content"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type Connector struct {
	config    config.LocalBackendConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.LocalBackendConfig, logger *zap.Logger) *Connector {
	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		logger:    logger,
	}
}

func (c *Connector) Name() string {
	return c.config.ModelName
}

// Load checks that the weights file exists and that the server reports
// itself healthy
func (c *Connector) Load(ctx context.Context) error {
	info, err := os.Stat(c.config.ModelPath)
	if err != nil {
		return fmt.Errorf("model weights: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("model weights: %s is a directory", c.config.ModelPath)
	}

	var health healthResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, c.config.HealthEndpoint, nil, &health); err != nil {
		return fmt.Errorf("%w: %w", entity.ErrBackendNotReady, err)
	}
	if health.Status != "" && health.Status != "ok" {
		return fmt.Errorf("%w: server status %q", entity.ErrBackendNotReady, health.Status)
	}

	ctxzap.Info(ctx, "llama.cpp server healthy",
		zap.String("model", c.config.ModelName),
		zap.Int64("weights_bytes", info.Size()),
	)
	return nil
}

// Infer runs a single completion
func (c *Connector) Infer(ctx context.Context, req entity.GenerationRequest) (string, error) {
	body := completionRequest{
		Prompt:        req.Prompt,
		NPredict:      req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          c.config.TopK,
		RepeatPenalty: c.config.RepeatPenalty,
		Stop:          c.config.Stop,
	}

	var resp completionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.CompletionEndpoint, body, &resp); err != nil {
		return "", fmt.Errorf("llama.cpp completion failed: %w", err)
	}

	if resp.Content == "" {
		return "", entity.ErrEmptyCompletion
	}
	return resp.Content, nil
}
