package model

import (
	"time"
)

// Reserved metadata keys, always present on a stored chunk. They are set by
// the ingestion pipeline; caller supplied metadata may not override Filename.
const (
	MetaFilename    = "filename"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaChunkSize   = "chunk_size"
)

// Chunk represents one stored text fragment, the unit of embedding and
// retrieval. All chunks in a store share the same embedding dimensionality.
type Chunk struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Similarity is only populated on chunks returned by similarity search.
	Similarity float64 `json:"similarity,omitempty"`
}
