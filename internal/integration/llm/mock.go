package llm

import (
	"context"
	"strings"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/futig/advisor-backend/internal/generation"
	"github.com/futig/advisor-backend/internal/knowledge"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Classifier picks a category for free text
type Classifier interface {
	Classify(text string) entity.Category
}

// MockConnector answers from the built-in knowledge snippets. The answer is
// a pure function of the request.
type MockConnector struct {
	classifier  Classifier
	streamDelay time.Duration
	logger      *zap.Logger
}

func NewMockConnector(classifier Classifier, streamDelay time.Duration, logger *zap.Logger) *MockConnector {
	return &MockConnector{
		classifier:  classifier,
		streamDelay: streamDelay,
		logger:      logger,
	}
}

func (m *MockConnector) Kind() entity.BackendKind {
	return entity.BackendMock
}

func (m *MockConnector) IsReady() bool {
	return true
}

func (m *MockConnector) Describe() string {
	return "canned knowledge answers"
}

func (m *MockConnector) Generate(ctx context.Context, req entity.GenerationRequest) entity.GenerationResult {
	question := knowledge.QuestionOf(req.Prompt)

	category := req.Category
	if category.Validate() != nil {
		category = m.classifier.Classify(question)
	}

	body := knowledge.DefaultAnswer(category)
	topic, ok := knowledge.MatchTopic(category, question)
	if ok {
		body = strings.Join(topic.Snippets[:min(2, len(topic.Snippets))], " ")
	}

	ctxzap.Debug(ctx, "[MOCK] generating answer",
		zap.String("category", string(category)),
		zap.String("topic", topic.Keyword),
	)

	return entity.GenerationResult{
		Text:        "[" + knowledge.ExpertTitle(category) + "] " + body + "\n\n" + knowledge.Disclaimer(category),
		BackendUsed: entity.BackendMock,
	}
}

func (m *MockConnector) StreamGenerate(ctx context.Context, req entity.GenerationRequest) <-chan string {
	return generation.StreamWords(ctx, m.Generate(ctx, req).Text, m.streamDelay)
}
