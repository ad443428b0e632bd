package encoder

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/integration/common"
	pkghttp "github.com/futig/advisor-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	openAIEndpoint = "/v1/embeddings"
	ollamaEndpoint = "/api/embed"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse covers the OpenAI and both Ollama answer shapes
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Embeddings [][]float32 `json:"embeddings"`
	Embedding  []float32   `json:"embedding"`
}

// Connector calls a remote text encoder over HTTP
type Connector struct {
	config    config.EmbeddingConfig
	endpoint  string
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.EmbeddingConfig, logger *zap.Logger) *Connector {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openAIEndpoint
		if cfg.Provider == config.EmbeddingProviderOllama {
			endpoint = ollamaEndpoint
		}
	}

	return &Connector{
		config:    cfg,
		endpoint:  endpoint,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger, pkghttp.WithMaxIdleConnsPerHost(cfg.Concurrency)),
		logger:    logger,
	}
}

func (c *Connector) Name() string {
	return c.config.Provider + ":" + c.config.Model
}

// Encode returns raw encoder vectors in input order
func (c *Connector) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := embedRequest{
		Model: c.config.Model,
		Input: texts,
	}

	var resp embedResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrEncoderUnavailable, err)
	}

	vectors, err := resp.vectors()
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", entity.ErrEncoderUnavailable, len(vectors), len(texts))
	}

	ctxzap.Debug(ctx, "texts encoded",
		zap.String("encoder", c.Name()),
		zap.Int("count", len(vectors)),
	)

	return vectors, nil
}

func (r *embedResponse) vectors() ([][]float32, error) {
	switch {
	case len(r.Data) > 0:
		data := r.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		out := make([][]float32, len(data))
		for i, d := range data {
			out[i] = d.Embedding
		}
		return out, nil
	case len(r.Embeddings) > 0:
		return r.Embeddings, nil
	case len(r.Embedding) > 0:
		return [][]float32{r.Embedding}, nil
	default:
		return nil, fmt.Errorf("%w: response carries no embeddings", entity.ErrEncoderUnavailable)
	}
}
