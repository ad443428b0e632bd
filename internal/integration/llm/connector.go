package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/generation"
	"github.com/futig/advisor-backend/internal/integration/common"
	pkghttp "github.com/futig/advisor-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is an OpenAI chat request that also carries the flat
// prompt for services expecting {prompt}
type completionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Prompt      string        `json:"prompt"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type completionResponse struct {
	Response *string `json:"response"`
	Text     *string `json:"text"`
	Choices  []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// text normalizes the accepted envelopes: {response}, {choices:[{message}]},
// {choices:[{text}]} and {text}
func (r *completionResponse) text() string {
	if r.Response != nil {
		return *r.Response
	}
	if len(r.Choices) > 0 {
		if r.Choices[0].Message != nil {
			return r.Choices[0].Message.Content
		}
		return r.Choices[0].Text
	}
	if r.Text != nil {
		return *r.Text
	}
	return ""
}

// Connector is the remote generation backend
type Connector struct {
	config      config.RemoteBackendConfig
	connector   *pkghttp.Connector
	streamDelay time.Duration
	logger      *zap.Logger
}

func NewConnector(
	cfg config.RemoteBackendConfig,
	streamDelay time.Duration,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector:   common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:      cfg,
		streamDelay: streamDelay,
		logger:      logger,
	}
}

func (c *Connector) Kind() entity.BackendKind {
	return entity.BackendRemote
}

// IsReady reports whether an endpoint is configured
func (c *Connector) IsReady() bool {
	return c.config.Enabled()
}

func (c *Connector) Describe() string {
	if c.config.Model == "" {
		return c.config.Url + c.config.Endpoint
	}
	return c.config.Model + " @ " + c.config.Url + c.config.Endpoint
}

// Generate calls the remote service. Non-2xx answers, timeouts and bodies
// without text give a degraded result.
func (c *Connector) Generate(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult {
	ctxzap.Info(ctx, "generating answer via remote LLM service")

	text, err := c.complete(ctx, req)
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.Bool("timeout", pkghttp.IsTimeout(err))}
		if status, ok := pkghttp.StatusCode(err); ok {
			fields = append(fields, zap.Int("status", status))
		}
		ctxzap.Warn(ctx, "remote generation failed", fields...)
		return generation.DegradedResult(entity.BackendRemote)
	}

	ctxzap.Info(ctx, "answer generated successfully", zap.Int("result_length", len(text)))

	return entity.GenerationResult{
		Text:        text,
		BackendUsed: entity.BackendRemote,
	}
}

func (c *Connector) complete(ctx context.Context, req entity.GenerationRequest) (string, error) {
	body := completionRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	var resp completionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.Endpoint, body, &resp); err != nil {
		return "", fmt.Errorf("remote completion failed: %w", err)
	}

	text := strings.TrimSpace(resp.text())
	if text == "" {
		return "", fmt.Errorf("invalid completion response: %w", entity.ErrEmptyCompletion)
	}
	return text, nil
}

func (c *Connector) StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string {
	return generation.StreamWords(ctx, c.Generate(ctx, req).Text, c.streamDelay)
}
