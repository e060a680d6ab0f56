package model

import "time"

// DocumentSummary describes one logical document, derived by grouping all
// stored chunks that share a filename. The representative metadata is taken
// from the first seen chunk with the per-chunk keys (chunk_index, chunk_size)
// stripped, they carry no meaning at the document level.
type DocumentSummary struct {
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
	Metadata   Metadata  `json:"metadata,omitempty"`
}
