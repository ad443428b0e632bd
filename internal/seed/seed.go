// Package seed loads the documents placed in the vector index at startup.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/knowledge"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Record is one document entry of a seed file
type Record struct {
	Text     string            `json:"text" yaml:"text" toml:"text"`
	Category string            `json:"category" yaml:"category" toml:"category"`
	Topic    string            `json:"topic" yaml:"topic" toml:"topic"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

type file struct {
	Documents []Record `json:"documents" yaml:"documents" toml:"documents"`
}

// Embedder turns texts into vectors
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores documents
type Index interface {
	Add(ctx context.Context, vectors [][]float32, docs []entity.Document) error
}

var sampleDocuments = []Record{
	{Text: "고혈압 관리를 위해서는 저염식 식단을 유지하고 규칙적인 운동을 하는 것이 중요합니다.", Category: "health", Topic: "혈압관리"},
	{Text: "당뇨병 예방을 위해 당분 섭취를 줄이고 식이섬유가 풍부한 음식을 섭취하세요.", Category: "health", Topic: "당뇨예방"},
	{Text: "제주도 여행 시 성산일출봉과 한라산, 우도 등을 방문하는 것을 추천합니다.", Category: "travel", Topic: "제주도여행"},
	{Text: "부산 여행에서는 해운대, 광안리, 감천문화마을을 꼭 방문해보세요.", Category: "travel", Topic: "부산여행"},
	{Text: "안전한 투자를 위해서는 분산투자와 장기투자 원칙을 지키는 것이 중요합니다.", Category: "investment", Topic: "투자원칙"},
	{Text: "계약서 작성 시에는 조건과 책임을 명확히 하고 전문가의 검토를 받으세요.", Category: "legal", Topic: "계약법"},
}

// Builtin returns the sample documents followed by every knowledge snippet
func Builtin() []entity.Document {
	records := append([]Record(nil), sampleDocuments...)
	for _, category := range entity.Categories {
		for _, topic := range knowledge.Base[category] {
			for _, snippet := range topic.Snippets {
				records = append(records, Record{
					Text:     snippet,
					Category: string(category),
					Topic:    topic.Keyword,
					Metadata: map[string]string{"source": "knowledge"},
				})
			}
		}
	}

	docs, _ := toDocuments(records)
	return docs
}

// Load reads a .json, .yaml, .yml or .toml seed file
func Load(path string) ([]entity.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f file
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("%w: seed file extension %q", entity.ErrInvalidFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse seed file %s: %w", entity.ErrInvalidFormat, path, err)
	}

	return toDocuments(f.Documents)
}

// LoadOrBuiltin falls back to the built-in documents when path is empty or
// missing. A file that exists but cannot be parsed is an error.
func LoadOrBuiltin(path string, logger *zap.Logger) ([]entity.Document, error) {
	if path == "" {
		return Builtin(), nil
	}

	docs, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("seed file not found, using built-in documents", zap.String("path", path))
			return Builtin(), nil
		}
		return nil, err
	}

	logger.Info("seed file loaded", zap.String("path", path), zap.Int("documents", len(docs)))
	return docs, nil
}

// Ingest embeds docs and adds them to index in one batch
func Ingest(ctx context.Context, docs []entity.Document, embedder Embedder, index Index) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	vectors, err := embedder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed seed documents: %w", err)
	}

	if err := index.Add(ctx, vectors, docs); err != nil {
		return fmt.Errorf("index seed documents: %w", err)
	}
	return nil
}

func toDocuments(records []Record) ([]entity.Document, error) {
	docs := make([]entity.Document, 0, len(records))
	for i, r := range records {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			return nil, fmt.Errorf("seed document %d: text: %w", i, entity.ErrMissingField)
		}

		category, err := entity.ParseCategory(r.Category)
		if err != nil {
			return nil, fmt.Errorf("seed document %d: %w", i, err)
		}

		docs = append(docs, entity.Document{
			ID:       DocumentID(category, text),
			Text:     text,
			Category: category,
			Topic:    strings.TrimSpace(r.Topic),
			Metadata: r.Metadata,
		})
	}
	return docs, nil
}

// DocumentID derives a stable positive ID from category and text, so
// re-ingesting a file replaces documents instead of duplicating them
func DocumentID(category entity.Category, text string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(category))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))

	id := int64(h.Sum64() & math.MaxInt64)
	if id == 0 {
		id = 1
	}
	return id
}
