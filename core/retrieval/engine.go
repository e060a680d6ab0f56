package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbertholdt/docrag/core/pipeline"
	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

// ChunkSearcher is the slice of the chunk store the engine needs. The store
// stays storage-agnostic; top-k and threshold policy live here.
type ChunkSearcher interface {
	SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error)
}

// Engine retrieves the chunks most relevant to a question: it embeds the
// question and runs a cosine similarity search against the store.
type Engine struct {
	chunks   ChunkSearcher
	embedder pipeline.Embedder
}

// NewEngine creates a new retrieval engine
func NewEngine(chunks ChunkSearcher, embedder pipeline.Embedder) *Engine {
	return &Engine{
		chunks:   chunks,
		embedder: embedder,
	}
}

// Retrieve returns the chunks relevant to the question ordered by descending
// similarity, at most config.TopK of them, each strictly above
// config.SimilarityThreshold. An empty result is a normal "no relevant
// context" outcome, not an error; errors mean the provider or store failed.
func (e *Engine) Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, helper.NewValidationError("retrieve", fmt.Errorf("question is empty"))
	}

	if config == nil {
		defaultConfig := model.DefaultQueryConfig()
		config = &defaultConfig
	}
	topK := config.TopK
	if topK <= 0 {
		topK = model.DefaultQueryConfig().TopK
	}

	embedding, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err := e.chunks.SelectChunksBySimilarity(ctx, embedding, topK, config.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, len(chunks))
	for i, chunk := range chunks {
		results[i] = &model.RetrievalResult{
			Chunk:      chunk,
			Similarity: chunk.Similarity,
		}
	}

	return results, nil
}
