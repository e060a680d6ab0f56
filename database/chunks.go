package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
	loadSql "github.com/mbertholdt/docrag/sql"
)

// ChunksDBHandlerFunctions defines the interface for chunk database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(ctx context.Context, chunk *model.Chunk) error
	InsertChunkBatch(ctx context.Context, chunks []*model.Chunk) error
	SelectChunk(ctx context.Context, id int64) (*model.Chunk, error)
	SelectAllChunks(ctx context.Context) ([]*model.Chunk, error)
	SelectChunksByFilename(ctx context.Context, filename string) ([]*model.Chunk, error)
	SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error)
	DeleteChunksByFilename(ctx context.Context, filename string) (int64, error)
	DeleteAllChunks(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
}

// ChunksDBHandler handles chunk-related database operations. Every chunk in
// the store carries an embedding of the dimensionality the handler was
// created with; mismatching vectors are rejected before touching the store.
type ChunksDBHandler struct {
	db           *helper.Database
	embeddingDim int
}

// NewChunksDBHandler creates a new chunks database handler.
// It loads the chunk-related SQL functions and creates the chunks table for
// the given embedding dimension. If force is true, it will reload the SQL
// functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewConfigurationError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	chunksDbHandler := &ChunksDBHandler{
		db:           db,
		embeddingDim: embeddingDim,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewStoreError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewStoreError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler", "embedding_dim", embeddingDim)

	return chunksDbHandler, nil
}

// EmbeddingDim returns the embedding dimensionality of the store.
func (h *ChunksDBHandler) EmbeddingDim() int {
	return h.embeddingDim
}

// CreateTable creates the 'chunks' table in the database together with its
// indexes and the updated_at trigger. If the table already exists with the
// same embedding dimension it does not create it again; an existing table
// with a different dimension is an error.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewStoreError("initialize chunks table", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// checkDimension rejects embeddings that do not match the store dimension
// before any statement is sent, so a failed write cannot change store state.
func (h *ChunksDBHandler) checkDimension(embedding []float32) error {
	if len(embedding) != h.embeddingDim {
		return helper.NewStoreError("embedding dimension check", fmt.Errorf("expected %d dimensions, got %d", h.embeddingDim, len(embedding)))
	}
	return nil
}

// InsertChunk inserts a single chunk atomically. The content, embedding and
// metadata triple is written as one record; on any error nothing is persisted.
func (h *ChunksDBHandler) InsertChunk(ctx context.Context, chunk *model.Chunk) error {
	if err := h.checkDimension(chunk.Embedding); err != nil {
		return err
	}

	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM insert_chunk($1, $2, $3, $4)`,
		chunk.Filename,
		chunk.Content,
		pgvector.NewVector(chunk.Embedding),
		chunk.Metadata,
	)

	if err := scanChunk(row, chunk); err != nil {
		return helper.NewStoreError("scan", err)
	}

	return nil
}

// InsertChunkBatch inserts all chunks of one logical document in a single
// transaction. Either every chunk is persisted or none are, so a provider or
// connectivity failure mid-document never leaves a partial document visible
// to readers.
func (h *ChunksDBHandler) InsertChunkBatch(ctx context.Context, chunks []*model.Chunk) error {
	for _, chunk := range chunks {
		if err := h.checkDimension(chunk.Embedding); err != nil {
			return err
		}
	}

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewStoreError("begin transaction", err)
	}

	for i, chunk := range chunks {
		row := tx.QueryRowContext(ctx,
			`SELECT * FROM insert_chunk($1, $2, $3, $4)`,
			chunk.Filename,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
			chunk.Metadata,
		)
		if err := scanChunk(row, chunk); err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return helper.NewStoreError(fmt.Sprintf("insert chunk %d (rollback failed: %v)", i, rollbackErr), err)
			}
			return helper.NewStoreError(fmt.Sprintf("insert chunk %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return helper.NewStoreError("commit transaction", err)
	}

	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(ctx context.Context, id int64) (*model.Chunk, error) {
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	chunk := &model.Chunk{}
	if err := scanChunk(row, chunk); err != nil {
		return nil, helper.NewStoreError("scan", err)
	}

	return chunk, nil
}

// SelectAllChunks scans all chunks in insertion order.
func (h *ChunksDBHandler) SelectAllChunks(ctx context.Context) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_chunks()`)
	if err != nil {
		return nil, helper.NewStoreError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanChunk(rows, chunk); err != nil {
			return nil, helper.NewStoreError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewStoreError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksByFilename retrieves all chunks of one logical document,
// ordered by chunk index.
func (h *ChunksDBHandler) SelectChunksByFilename(ctx context.Context, filename string) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_chunks_by_filename($1)`,
		filename,
	)
	if err != nil {
		return nil, helper.NewStoreError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		if err := scanChunk(rows, chunk); err != nil {
			return nil, helper.NewStoreError("scan", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewStoreError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity performs cosine similarity search. Results are
// ordered by descending similarity (ascending distance, ties broken by id),
// limited to limit rows and filtered to similarity strictly greater than
// threshold.
func (h *ChunksDBHandler) SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error) {
	if err := h.checkDimension(embedding); err != nil {
		return nil, err
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3)`,
		pgvector.NewVector(embedding),
		limit,
		threshold,
	)
	if err != nil {
		return nil, helper.NewStoreError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		var vec pgvector.Vector
		err := rows.Scan(
			&chunk.ID,
			&chunk.Filename,
			&chunk.Content,
			&vec,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.UpdatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewStoreError("scan", err)
		}
		chunk.Embedding = vec.Slice()
		results = append(results, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewStoreError("rows error", err)
	}

	return results, nil
}

// DeleteChunksByFilename removes every chunk sharing the filename and returns
// the number of removed rows. The delete is a single statement, so it either
// removes every matching record or none.
func (h *ChunksDBHandler) DeleteChunksByFilename(ctx context.Context, filename string) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx,
		`SELECT delete_chunks_by_filename($1)`,
		filename,
	).Scan(&count)
	if err != nil {
		return 0, helper.NewStoreError("exec", err)
	}
	return count, nil
}

// DeleteAllChunks removes every chunk and returns the number of removed rows.
func (h *ChunksDBHandler) DeleteAllChunks(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT delete_all_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewStoreError("exec", err)
	}
	return count, nil
}

// CountChunks returns the total number of stored chunks.
func (h *ChunksDBHandler) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewStoreError("query", err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner, chunk *model.Chunk) error {
	var vec pgvector.Vector
	err := row.Scan(
		&chunk.ID,
		&chunk.Filename,
		&chunk.Content,
		&vec,
		&chunk.Metadata,
		&chunk.CreatedAt,
		&chunk.UpdatedAt,
	)
	if err != nil {
		return err
	}
	chunk.Embedding = vec.Slice()
	return nil
}
