package docrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mbertholdt/docrag/core/pipeline"
	"github.com/mbertholdt/docrag/core/retrieval"
	"github.com/mbertholdt/docrag/core/synthesis"
	"github.com/mbertholdt/docrag/database"
	"github.com/mbertholdt/docrag/extract"
	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
	loadSql "github.com/mbertholdt/docrag/sql"
)

// DocRag provides a unified interface to the full question answering
// pipeline: ingestion, retrieval, synthesis, document lifecycle and chat
// sessions.
//
// Concurrent ingestion of different documents is safe. Concurrent ingestion
// and deletion of the same filename is not serialized here; callers that need
// that guarantee must coordinate per filename.
type DocRag struct {
	DB          *helper.Database
	Chunks      *database.ChunksDBHandler
	Sessions    *database.SessionsDBHandler
	Pipeline    *pipeline.Pipeline // Optional ingestion pipeline
	Engine      *retrieval.Engine  // Retrieval engine for similarity search
	Synthesizer *synthesis.Synthesizer
	// Logging
	log *slog.Logger
}

// NewDocRag creates a new DocRag instance with all handlers initialized.
// embeddingDim fixes the vector dimensionality of the chunk store and must
// match the embedder configured later via SetPipeline or one of the Use*
// helpers.
func NewDocRag(config *helper.DatabaseConfiguration, embeddingDim int) (*DocRag, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("docrag", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewStoreError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewStoreError("create chunks handler", err)
	}

	sessions, err := database.NewSessionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewStoreError("create sessions handler", err)
	}

	return &DocRag{
		DB:       db,
		Chunks:   chunks,
		Sessions: sessions,
		log:      logger,
	}, nil
}

// Close closes the database connection.
func (d *DocRag) Close() error {
	if d.DB != nil && d.DB.Instance != nil {
		return d.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the ingestion pipeline and wires the retrieval engine to
// its embedder.
func (d *DocRag) SetPipeline(p *pipeline.Pipeline) {
	d.Pipeline = p
	if p != nil && p.Embedder != nil {
		d.Engine = retrieval.NewEngine(d.Chunks, p.Embedder)
	}
}

// SetSynthesizer sets the answer synthesizer used by Ask.
func (d *DocRag) SetSynthesizer(s *synthesis.Synthesizer) {
	d.Synthesizer = s
}

// UseLocalPipeline sets up a fully local pipeline: recursive chunking with the
// default size and overlap, and the bundled all-MiniLM-L6-v2 embedder (384
// dimensions). No network access or API key required.
func (d *DocRag) UseLocalPipeline() error {
	embedder, err := pipeline.NewLocalEmbedder()
	if err != nil {
		return helper.NewProviderError("create local embedder", err)
	}

	chunker := pipeline.RecursiveChunker(pipeline.DefaultChunkSize, pipeline.DefaultChunkOverlap)
	d.SetPipeline(pipeline.NewPipeline(chunker, embedder))
	return nil
}

// UseOpenAIPipeline sets up an OpenAI backed pipeline and synthesizer:
// recursive chunking, text-embedding-3-small embeddings (1536 dimensions) and
// gpt-3.5-turbo answer generation. Reads OPENAI_API_KEY (and optionally
// OPENAI_BASE_URL) from the environment.
func (d *DocRag) UseOpenAIPipeline() error {
	embedder, err := pipeline.NewOpenAIEmbedder(pipeline.OpenAIEmbedderConfig{})
	if err != nil {
		return err
	}

	completer, err := synthesis.NewOpenAIModel(synthesis.OpenAIModelConfig{})
	if err != nil {
		return err
	}

	chunker := pipeline.RecursiveChunker(pipeline.DefaultChunkSize, pipeline.DefaultChunkOverlap)
	d.SetPipeline(pipeline.NewPipeline(chunker, embedder))
	d.SetSynthesizer(synthesis.NewSynthesizer(completer))
	return nil
}

// IngestDocument processes a document by:
// 1. Chunking the content and embedding every chunk through the pipeline
// 2. Inserting all chunks under the given filename in a single transaction
// Re-ingesting an existing filename adds chunks alongside the old ones; call
// DeleteDocument first to replace a document.
// Returns the number of chunks inserted and any error encountered.
func (d *DocRag) IngestDocument(ctx context.Context, content string, filename string, extra model.Metadata) (int, error) {
	if d.Pipeline == nil {
		return 0, helper.NewConfigurationError("ingest document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	chunks, err := d.Pipeline.Process(ctx, content, filename, extra)
	if err != nil {
		return 0, err
	}

	d.log.Info("Processed document into chunks", slog.Int("num_chunks", len(chunks)), slog.String("filename", filename))

	err = d.Chunks.InsertChunkBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	d.log.Info("Ingested document", slog.String("filename", filename), slog.Int("num_chunks", len(chunks)))

	return len(chunks), nil
}

// IngestFile extracts text from a raw file (PDF, DOCX or plain text) and
// ingests it under its filename. File size and format are validated before
// any provider call.
func (d *DocRag) IngestFile(ctx context.Context, content []byte, filename string, extra model.Metadata) (int, error) {
	text, err := extract.Text(content, filename)
	if err != nil {
		return 0, err
	}
	return d.IngestDocument(ctx, text, filename, extra)
}

// Retrieve performs similarity search over the stored chunks. An empty result
// means nothing cleared the similarity threshold, not a failure.
func (d *DocRag) Retrieve(ctx context.Context, question string, config *model.QueryConfig) ([]*model.RetrievalResult, error) {
	if d.Engine == nil {
		return nil, helper.NewConfigurationError("retrieve", fmt.Errorf("retrieval engine not initialized, use SetPipeline() first"))
	}
	return d.Engine.Retrieve(ctx, question, config)
}

// Ask answers a question from the ingested documents. Retrieval failures
// (store or provider errors) are returned as errors; with retrieval intact
// the synthesizer always produces a well formed answer, degrading to a fixed
// fallback text when no context matches or the generative model fails.
func (d *DocRag) Ask(ctx context.Context, question string, config *model.QueryConfig) (*model.Answer, error) {
	if d.Synthesizer == nil {
		return nil, helper.NewConfigurationError("ask", fmt.Errorf("synthesizer not set, use SetSynthesizer() first"))
	}

	retrieved, err := d.Retrieve(ctx, question, config)
	if err != nil {
		return nil, err
	}

	answer := d.Synthesizer.Synthesize(ctx, question, retrieved)
	if answer.Diagnostic != "" {
		d.log.Warn("Answer synthesis degraded", slog.String("diagnostic", answer.Diagnostic))
	}

	return answer, nil
}

// SummarizeDocument generates a concise summary of one ingested document.
// The document text is reassembled from its stored chunks in document order
// and summarized through the configured synthesizer; with the synthesizer
// intact a model failure yields a degraded well formed result, never a raw
// provider error. A filename with no stored chunks is a validation error.
func (d *DocRag) SummarizeDocument(ctx context.Context, filename string) (*model.Summary, error) {
	if d.Synthesizer == nil {
		return nil, helper.NewConfigurationError("summarize document", fmt.Errorf("synthesizer not set, use SetSynthesizer() first"))
	}

	chunks, err := d.Chunks.SelectChunksByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, helper.NewValidationError("summarize document", fmt.Errorf("document %q not found", filename))
	}

	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content
	}

	summary := d.Synthesizer.Summarize(ctx, filename, strings.Join(contents, "\n\n"))
	if summary.Diagnostic != "" {
		d.log.Warn("Document summarization degraded", slog.String("filename", filename), slog.String("diagnostic", summary.Diagnostic))
	} else {
		d.log.Info("Summarized document", slog.String("filename", filename), slog.Int("num_windows", summary.ChunkCount))
	}

	return summary, nil
}

// ListDocuments returns one summary per distinct filename with its chunk
// count, earliest ingestion time and document level metadata. Chunk level
// keys (index and size) are stripped from the returned metadata.
func (d *DocRag) ListDocuments(ctx context.Context) ([]*model.DocumentSummary, error) {
	chunks, err := d.Chunks.SelectAllChunks(ctx)
	if err != nil {
		return nil, err
	}

	byFilename := map[string]*model.DocumentSummary{}
	var order []string
	for _, chunk := range chunks {
		summary, ok := byFilename[chunk.Filename]
		if !ok {
			metadata := chunk.Metadata.Clone()
			delete(metadata, model.MetaChunkIndex)
			delete(metadata, model.MetaChunkSize)
			summary = &model.DocumentSummary{
				Filename:  chunk.Filename,
				CreatedAt: chunk.CreatedAt,
				Metadata:  metadata,
			}
			byFilename[chunk.Filename] = summary
			order = append(order, chunk.Filename)
		}
		summary.ChunkCount++
		if chunk.CreatedAt.Before(summary.CreatedAt) {
			summary.CreatedAt = chunk.CreatedAt
		}
	}

	summaries := make([]*model.DocumentSummary, len(order))
	for i, filename := range order {
		summaries[i] = byFilename[filename]
	}
	return summaries, nil
}

// DeleteDocument removes all chunks of the given filename. Returns false when
// no document with that filename existed.
func (d *DocRag) DeleteDocument(ctx context.Context, filename string) (bool, error) {
	count, err := d.Chunks.DeleteChunksByFilename(ctx, filename)
	if err != nil {
		return false, err
	}

	if count > 0 {
		d.log.Info("Deleted document", slog.String("filename", filename), slog.Int64("num_chunks", count))
	}

	return count > 0, nil
}

// DeleteAllDocuments removes every stored chunk and returns the number of
// chunks deleted.
func (d *DocRag) DeleteAllDocuments(ctx context.Context) (int64, error) {
	count, err := d.Chunks.DeleteAllChunks(ctx)
	if err != nil {
		return 0, err
	}

	d.log.Info("Deleted all documents", slog.Int64("num_chunks", count))

	return count, nil
}

// CountChunks returns the total number of stored chunks.
func (d *DocRag) CountChunks(ctx context.Context) (int64, error) {
	return d.Chunks.CountChunks(ctx)
}

// CreateSession creates a new named chat session.
func (d *DocRag) CreateSession(ctx context.Context, name string) (*model.ChatSession, error) {
	session := &model.ChatSession{Name: name}
	if err := d.Sessions.InsertSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns a session by id.
func (d *DocRag) GetSession(ctx context.Context, id int64) (*model.ChatSession, error) {
	return d.Sessions.SelectSession(ctx, id)
}

// ListSessions returns all sessions, most recently active first.
func (d *DocRag) ListSessions(ctx context.Context) ([]*model.ChatSession, error) {
	return d.Sessions.SelectAllSessions(ctx)
}

// RenameSession updates the display name of a session.
func (d *DocRag) RenameSession(ctx context.Context, id int64, name string) (*model.ChatSession, error) {
	return d.Sessions.UpdateSessionName(ctx, id, name)
}

// DeleteSession removes a session and its messages. Returns false when no
// session with that id existed.
func (d *DocRag) DeleteSession(ctx context.Context, id int64) (bool, error) {
	return d.Sessions.DeleteSession(ctx, id)
}

// AddMessage appends a message to a session and bumps the session's activity
// timestamp.
func (d *DocRag) AddMessage(ctx context.Context, sessionID int64, role model.MessageRole, content string, metadata model.Metadata) (*model.ChatMessage, error) {
	message := &model.ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
	}
	if err := d.Sessions.InsertMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// GetMessages returns the messages of a session in chronological order.
func (d *DocRag) GetMessages(ctx context.Context, sessionID int64) ([]*model.ChatMessage, error) {
	return d.Sessions.SelectMessagesBySession(ctx, sessionID)
}

// AskInSession answers a question and records both the question and the
// answer in the given session. The answer message carries the confidence and
// source count in its metadata.
func (d *DocRag) AskInSession(ctx context.Context, sessionID int64, question string, config *model.QueryConfig) (*model.Answer, error) {
	answer, err := d.Ask(ctx, question, config)
	if err != nil {
		return nil, err
	}

	_, err = d.AddMessage(ctx, sessionID, model.RoleUser, question, nil)
	if err != nil {
		return nil, err
	}

	_, err = d.AddMessage(ctx, sessionID, model.RoleAssistant, answer.Answer, model.Metadata{
		"confidence":  answer.Confidence,
		"num_sources": len(answer.Sources),
	})
	if err != nil {
		return nil, err
	}

	return answer, nil
}
