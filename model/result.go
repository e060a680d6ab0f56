package model

// RetrievalResult represents a chunk retrieved for a question together with
// its cosine similarity score in [0,1].
type RetrievalResult struct {
	Chunk      *Chunk  `json:"chunk"`
	Similarity float64 `json:"similarity"`
}

// Source points back at the text a generated answer was grounded on. The
// excerpt is truncated to keep payloads bounded.
type Source struct {
	Filename   string  `json:"filename"`
	Excerpt    string  `json:"excerpt"`
	Similarity float64 `json:"similarity"`
}

// Summary is the synthesized summary of one logical document. Diagnostic
// carries the underlying provider error when summarization degraded, like
// Answer.Diagnostic.
type Summary struct {
	Filename   string `json:"filename"`
	Summary    string `json:"summary"`
	ChunkCount int    `json:"chunk_count"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Answer is the synthesized response to a question. Confidence is the mean of
// the retrieved chunk similarities clamped to [0,1], a heuristic proxy for
// grounding quality rather than a calibrated probability. Diagnostic carries
// the underlying provider error when synthesis degraded, it is never a
// substitute for a well formed Answer.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	Diagnostic string   `json:"diagnostic,omitempty"`
}
