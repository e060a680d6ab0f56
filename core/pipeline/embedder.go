package pipeline

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"

	"github.com/mbertholdt/docrag/helper"
)

// LocalEmbedderDimension is the output dimensionality of the bundled
// all-MiniLM-L6-v2 sentence transformer.
const LocalEmbedderDimension = 384

// LocalEmbedder generates embeddings in-process using a sentence transformer
// model, no external service required.
type LocalEmbedder struct {
	session  *hugot.Session
	pipeline *hugot.FeatureExtractionPipeline
}

// NewLocalEmbedder creates an embedder using the all-MiniLM-L6-v2 model
// (384-dimensional embeddings), downloading it on first use.
func NewLocalEmbedder() (*LocalEmbedder, error) {
	// Prepare model (download if needed)
	modelName := "sentence-transformers/all-MiniLM-L6-v2"
	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, helper.NewProviderError("prepare embedding model", err)
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, helper.NewProviderError("create hugot session", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "embedder-pipeline",
	}
	sentencePipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, helper.NewProviderError("create sentence pipeline", fmt.Errorf("%w (cleanup error: %v)", err, destroyErr))
		}
		return nil, helper.NewProviderError("create sentence pipeline", err)
	}

	return &LocalEmbedder{
		session:  session,
		pipeline: sentencePipeline,
	}, nil
}

// Dimension returns the embedding dimensionality.
func (e *LocalEmbedder) Dimension() int {
	return LocalEmbedderDimension
}

// Embed generates an embedding for a single text.
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one model run,
// preserving input order.
func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, helper.NewProviderError("generate embeddings", err)
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, helper.NewProviderError("generate embeddings", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, helper.NewProviderError("generate embeddings", fmt.Errorf("got %d embeddings for %d texts", len(result.Embeddings), len(texts)))
	}

	return result.Embeddings, nil
}

// Close releases the model session.
func (e *LocalEmbedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}
