package pipeline

import (
	"fmt"
	"strings"

	"github.com/mbertholdt/docrag/helper"
)

// Default chunking parameters, in bytes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// recursiveSeparators are tried coarsest first: paragraph break, line break,
// space, and finally character boundary.
var recursiveSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker creates a chunker that splits text on progressively finer
// separators so that every chunk stays at or below chunkSize while preferring
// natural boundaries. Adjacent chunks share up to chunkOverlap of context.
// Both budgets are measured in bytes; for multi-byte text a chunk holds fewer
// characters than its byte budget, but splits still land on separator
// boundaries, never inside a character. The output is deterministic for
// identical input and parameters.
func RecursiveChunker(chunkSize int, chunkOverlap int) ChunkFunc {
	return func(text string) ([]string, error) {
		if chunkSize <= 0 {
			return nil, helper.NewValidationError("chunk text", fmt.Errorf("chunk size must be positive, got %d", chunkSize))
		}
		if chunkOverlap < 0 {
			return nil, helper.NewValidationError("chunk text", fmt.Errorf("chunk overlap must not be negative, got %d", chunkOverlap))
		}
		if chunkOverlap >= chunkSize {
			return nil, helper.NewValidationError("chunk text", fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", chunkOverlap, chunkSize))
		}

		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return []string{}, nil
		}
		if len(trimmed) <= chunkSize {
			return []string{trimmed}, nil
		}

		splitter := &recursiveSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
		return splitter.split(trimmed, recursiveSeparators), nil
	}
}

// DefaultChunker returns a RecursiveChunker with the default parameters.
func DefaultChunker() ChunkFunc {
	return RecursiveChunker(DefaultChunkSize, DefaultChunkOverlap)
}

type recursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
}

// split picks the coarsest separator present in the text, splits on it, and
// merges the pieces back into chunks of at most chunkSize characters. Pieces
// still larger than chunkSize are split again with the finer separators.
func (s *recursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var chunks []string
	var pending []string
	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending, separator)...)
			pending = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, remaining)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending, separator)...)
	}

	return chunks
}

// merge greedily combines pieces into chunks of at most chunkSize characters,
// carrying up to chunkOverlap trailing characters into the next chunk.
func (s *recursiveSplitter) merge(splits []string, separator string) []string {
	sepLen := len(separator)

	var chunks []string
	var current []string
	total := 0

	for _, piece := range splits {
		pieceLen := len(piece)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}

		if total+pieceLen+extra > s.chunkSize && len(current) > 0 {
			if chunk := joinPieces(current, separator); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Drop leading pieces until the carried context fits within the
			// overlap and the new piece fits within the chunk size.
			for total > s.chunkOverlap || (total+pieceLen+extra > s.chunkSize && total > 0) {
				dropped := len(current[0])
				if len(current) > 1 {
					dropped += sepLen
				}
				total -= dropped
				current = current[1:]
				if len(current) == 0 {
					extra = 0
				}
			}
		}

		current = append(current, piece)
		total += pieceLen
		if len(current) > 1 {
			total += sepLen
		}
	}

	if chunk := joinPieces(current, separator); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// splitOn splits text on the separator; an empty separator splits into
// single characters.
func splitOn(text string, separator string) []string {
	var splits []string
	if separator == "" {
		splits = strings.Split(text, "")
	} else {
		splits = strings.Split(text, separator)
	}

	result := make([]string, 0, len(splits))
	for _, piece := range splits {
		if piece != "" {
			result = append(result, piece)
		}
	}
	return result
}

func joinPieces(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}
