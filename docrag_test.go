package docrag

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/mbertholdt/docrag/core/pipeline"
	"github.com/mbertholdt/docrag/core/synthesis"
	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

// keywordEmbedder maps texts onto a three dimensional space by topic keyword,
// so similarity search behaves predictably without a real model.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cat"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "dog"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (k keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i], _ = k.Embed(ctx, text)
	}
	return embeddings, nil
}

func (keywordEmbedder) Dimension() int { return 3 }

type echoCompleter struct{}

func (echoCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return "grounded answer", nil
}

func newTestRag(t *testing.T) *DocRag {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	rag, err := NewDocRag(dbConfig, 3)
	require.NoError(t, err)
	t.Cleanup(func() { rag.Close() })

	chunker := pipeline.RecursiveChunker(200, 20)
	rag.SetPipeline(pipeline.NewPipeline(chunker, keywordEmbedder{}))
	rag.SetSynthesizer(synthesis.NewSynthesizer(echoCompleter{}))

	_, err = rag.DeleteAllDocuments(context.Background())
	require.NoError(t, err)

	return rag
}

func TestIngestAndRetrieve(t *testing.T) {
	rag := newTestRag(t)
	ctx := context.Background()

	numChunks, err := rag.IngestDocument(ctx, "cats purr when they are content", "cats.txt", model.Metadata{"topic": "cats"})
	require.NoError(t, err)
	assert.Equal(t, 1, numChunks)

	_, err = rag.IngestDocument(ctx, "dogs bark at strangers", "dogs.txt", nil)
	require.NoError(t, err)

	t.Run("retrieves only the matching topic", func(t *testing.T) {
		results, err := rag.Retrieve(ctx, "tell me about cats", nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "cats.txt", results[0].Chunk.Filename)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	})

	t.Run("unrelated question yields empty result", func(t *testing.T) {
		results, err := rag.Retrieve(ctx, "weather forecast", nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("without a pipeline ingestion is a configuration error", func(t *testing.T) {
		bare := &DocRag{log: rag.log}
		_, err := bare.IngestDocument(ctx, "content", "x.txt", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrConfiguration))
	})
}

func TestAsk(t *testing.T) {
	rag := newTestRag(t)
	ctx := context.Background()

	_, err := rag.IngestDocument(ctx, "cats sleep most of the day", "cats.txt", nil)
	require.NoError(t, err)

	t.Run("answers with sources and confidence", func(t *testing.T) {
		answer, err := rag.Ask(ctx, "what do cats do?", nil)
		require.NoError(t, err)
		assert.Equal(t, "grounded answer", answer.Answer)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, "cats.txt", answer.Sources[0].Filename)
		assert.InDelta(t, 1.0, answer.Confidence, 1e-6)
	})

	t.Run("no matching context degrades to the fixed answer", func(t *testing.T) {
		answer, err := rag.Ask(ctx, "quantum physics", nil)
		require.NoError(t, err)
		assert.Equal(t, synthesis.NoContextAnswer, answer.Answer)
		assert.Equal(t, 0.0, answer.Confidence)
	})

	t.Run("empty question is an error", func(t *testing.T) {
		_, err := rag.Ask(ctx, "  ", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrValidation))
	})
}

func TestDocumentLifecycle(t *testing.T) {
	rag := newTestRag(t)
	ctx := context.Background()

	// A tiny chunk size forces the document apart at paragraph breaks.
	rag.SetPipeline(pipeline.NewPipeline(pipeline.RecursiveChunker(15, 0), keywordEmbedder{}))

	content := "cats here\n\ndogs there\n\nmore cats again"
	numChunks, err := rag.IngestDocument(ctx, content, "mixed.txt", model.Metadata{"source": "test"})
	require.NoError(t, err)
	require.Equal(t, 3, numChunks)

	_, err = rag.IngestDocument(ctx, "another document", "other.txt", nil)
	require.NoError(t, err)

	t.Run("lists one summary per filename", func(t *testing.T) {
		documents, err := rag.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, documents, 2)

		byName := map[string]*model.DocumentSummary{}
		for _, doc := range documents {
			byName[doc.Filename] = doc
		}

		mixed := byName["mixed.txt"]
		require.NotNil(t, mixed)
		assert.Equal(t, 3, mixed.ChunkCount)
		assert.Equal(t, "test", mixed.Metadata["source"])
		assert.NotContains(t, mixed.Metadata, model.MetaChunkIndex)
		assert.NotContains(t, mixed.Metadata, model.MetaChunkSize)
	})

	t.Run("deletes a document by filename", func(t *testing.T) {
		deleted, err := rag.DeleteDocument(ctx, "mixed.txt")
		require.NoError(t, err)
		assert.True(t, deleted)

		documents, err := rag.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, documents, 1)
		assert.Equal(t, "other.txt", documents[0].Filename)
	})

	t.Run("deleting a missing document returns false", func(t *testing.T) {
		deleted, err := rag.DeleteDocument(ctx, "missing.txt")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("delete all reports the removed chunk count", func(t *testing.T) {
		count, err := rag.DeleteAllDocuments(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		total, err := rag.CountChunks(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestIngestFile(t *testing.T) {
	rag := newTestRag(t)
	ctx := context.Background()

	t.Run("ingests plain text files", func(t *testing.T) {
		numChunks, err := rag.IngestFile(ctx, []byte("cats in a file"), "upload.txt", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, numChunks)

		results, err := rag.Retrieve(ctx, "cats", nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "upload.txt", results[0].Chunk.Filename)
	})

	t.Run("rejects unsupported formats before ingestion", func(t *testing.T) {
		_, err := rag.IngestFile(ctx, []byte("binary"), "image.png", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrUnsupportedFormat))
	})
}

func TestSummarizeDocument(t *testing.T) {
	rag := newTestRag(t)
	ctx := context.Background()

	_, err := rag.IngestDocument(ctx, "cats groom themselves\n\ncats nap in the sun", "cats.txt", nil)
	require.NoError(t, err)

	t.Run("summarizes an ingested document", func(t *testing.T) {
		summary, err := rag.SummarizeDocument(ctx, "cats.txt")
		require.NoError(t, err)
		assert.Equal(t, "cats.txt", summary.Filename)
		assert.Equal(t, "grounded answer", summary.Summary)
		assert.Equal(t, 1, summary.ChunkCount)
		assert.Empty(t, summary.Diagnostic)
	})

	t.Run("unknown filename is a validation error", func(t *testing.T) {
		_, err := rag.SummarizeDocument(ctx, "missing.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrValidation))
	})

	t.Run("without a synthesizer summarization is a configuration error", func(t *testing.T) {
		bare := &DocRag{log: rag.log}
		_, err := bare.SummarizeDocument(ctx, "cats.txt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrConfiguration))
	})
}

func TestSessions(t *testing.T) {
	rag := newTestRag(t)
	ctx := context.Background()

	_, err := rag.IngestDocument(ctx, "cats are independent", "cats.txt", nil)
	require.NoError(t, err)

	session, err := rag.CreateSession(ctx, "pets")
	require.NoError(t, err)
	require.NotZero(t, session.ID)

	t.Run("ask in session records the conversation", func(t *testing.T) {
		answer, err := rag.AskInSession(ctx, session.ID, "are cats independent?", nil)
		require.NoError(t, err)
		assert.Equal(t, "grounded answer", answer.Answer)

		messages, err := rag.GetMessages(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, model.RoleUser, messages[0].Role)
		assert.Equal(t, "are cats independent?", messages[0].Content)
		assert.Equal(t, model.RoleAssistant, messages[1].Role)
		assert.Equal(t, "grounded answer", messages[1].Content)
		assert.EqualValues(t, 1, messages[1].Metadata["num_sources"])
	})

	t.Run("rename and delete", func(t *testing.T) {
		renamed, err := rag.RenameSession(ctx, session.ID, "pet questions")
		require.NoError(t, err)
		assert.Equal(t, "pet questions", renamed.Name)

		deleted, err := rag.DeleteSession(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = rag.DeleteSession(ctx, session.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
