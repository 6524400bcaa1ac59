package rag

import (
	"context"
	"fmt"
	"strings"
)

const (
	DefaultTopK      = 5
	DefaultMaxTokens = 200
)

// QueryService answers a question by embedding it, retrieving the
// nearest indexed chunks and conditioning the generative model on them.
type QueryService struct {
	embedder  Embedder
	index     VectorIndex
	generator Generator
	topK      int
	maxTokens int
}

func NewQueryService(embedder Embedder, index VectorIndex, generator Generator, topK, maxTokens int) *QueryService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &QueryService{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
		maxTokens: maxTokens,
	}
}

// Answer runs the query pipeline end to end. Retrieved texts are joined
// with blank lines in rank order; no deduplication or truncation is
// applied before generation. An empty completion is returned as-is.
func (s *QueryService) Answer(ctx context.Context, query string) (string, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	texts, err := s.index.Search(ctx, embedding, s.topK)
	if err != nil {
		return "", fmt.Errorf("failed to search index: %w", err)
	}

	answer, err := s.generator.Generate(ctx, buildPrompt(query, texts), s.maxTokens)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	return answer, nil
}

func buildPrompt(query string, contexts []string) string {
	return fmt.Sprintf("\n\n%s\n\nQuestion: %s\nAnswer:", strings.Join(contexts, "\n\n"), query)
}
