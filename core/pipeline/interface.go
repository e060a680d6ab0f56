package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

// ChunkFunc is a function that splits text into ordered chunks.
type ChunkFunc func(text string) ([]string, error)

// Embedder converts text into fixed-dimension vectors. EmbedBatch returns one
// vector per input text, preserving input order; it is used for ingestion,
// Embed for one-off query embedding. Implementations must fail with a
// provider error instead of substituting placeholder vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Pipeline combines a chunking function and an embedder into the ingestion
// path: text in, embedded chunks with metadata out.
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder Embedder
}

// NewPipeline creates a new processing pipeline
func NewPipeline(chunker ChunkFunc, embedder Embedder) *Pipeline {
	return &Pipeline{
		Chunker:  chunker,
		Embedder: embedder,
	}
}

// Process splits content into chunks, embeds them in one batch call and
// returns chunks ready for storage. Each chunk carries the reserved metadata
// keys (filename, chunk_index, total_chunks, chunk_size); caller supplied
// extra metadata is merged in and may overwrite every default except
// filename.
func (p *Pipeline) Process(ctx context.Context, content string, filename string, extra model.Metadata) ([]*model.Chunk, error) {
	if p.Chunker == nil || p.Embedder == nil {
		return nil, helper.NewConfigurationError("process document", fmt.Errorf("pipeline requires both a chunker and an embedder"))
	}
	if strings.TrimSpace(filename) == "" {
		return nil, helper.NewValidationError("process document", fmt.Errorf("filename is empty"))
	}
	if strings.TrimSpace(content) == "" {
		return nil, helper.NewValidationError("process document", fmt.Errorf("document content is empty"))
	}

	texts, err := p.Chunker(content)
	if err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, helper.NewValidationError("process document", fmt.Errorf("chunker produced no chunks"))
	}

	embeddings, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, helper.NewProviderError("embed chunks", fmt.Errorf("embedding count mismatch: got %d embeddings for %d chunks", len(embeddings), len(texts)))
	}

	chunks := make([]*model.Chunk, 0, len(texts))
	for i, text := range texts {
		metadata := model.Metadata{
			model.MetaFilename:    filename,
			model.MetaChunkIndex:  i,
			model.MetaTotalChunks: len(texts),
			model.MetaChunkSize:   len(text),
		}
		for k, v := range extra {
			if k == model.MetaFilename {
				continue
			}
			metadata[k] = v
		}

		chunks = append(chunks, &model.Chunk{
			Filename:  filename,
			Content:   text,
			Embedding: embeddings[i],
			Metadata:  metadata,
		})
	}

	return chunks, nil
}
