package model

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// TopK limits the number of returned chunks.
	TopK int `json:"top_k"`
	// SimilarityThreshold excludes chunks whose similarity is not strictly
	// greater than this value.
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:                5,
		SimilarityThreshold: 0.7,
	}
}
