package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbertholdt/docrag/core/pipeline"
	"github.com/mbertholdt/docrag/model"
)

// Summarization chunking parameters. Summaries work on much larger windows
// than retrieval chunks because the model sees each window only once.
const (
	SummaryChunkSize    = 4000
	SummaryChunkOverlap = 200
)

// ErrorSummary is the fixed answer for the degraded summarization path.
const ErrorSummary = "I encountered an error while summarizing this document."

// Summarize produces a concise summary of one document's text. Long
// documents are split into large windows, each window is summarized on its
// own, and the partial summaries are distilled into one final summary
// (map-reduce); short documents get a single model call. Like Synthesize, a
// model failure yields a degraded well formed result with the underlying
// error in the Diagnostic field.
func (s *Synthesizer) Summarize(ctx context.Context, filename string, content string) *model.Summary {
	if s.completer == nil {
		return &model.Summary{
			Filename:   filename,
			Summary:    ErrorSummary,
			Diagnostic: "no generative model configured",
		}
	}

	chunker := pipeline.RecursiveChunker(SummaryChunkSize, SummaryChunkOverlap)
	chunks, err := chunker(content)
	if err != nil || len(chunks) == 0 {
		diagnostic := "document has no content to summarize"
		if err != nil {
			diagnostic = err.Error()
		}
		return &model.Summary{
			Filename:   filename,
			Summary:    ErrorSummary,
			Diagnostic: diagnostic,
		}
	}

	if len(chunks) == 1 {
		summary, err := s.completer.Complete(ctx, buildSummaryPrompt(chunks[0]))
		if err != nil {
			return &model.Summary{
				Filename:   filename,
				Summary:    ErrorSummary,
				ChunkCount: 1,
				Diagnostic: err.Error(),
			}
		}
		return &model.Summary{
			Filename:   filename,
			Summary:    strings.TrimSpace(summary),
			ChunkCount: 1,
		}
	}

	// Map: one partial summary per window.
	partials := make([]string, len(chunks))
	for i, chunk := range chunks {
		partial, err := s.completer.Complete(ctx, buildSummaryPrompt(chunk))
		if err != nil {
			return &model.Summary{
				Filename:   filename,
				Summary:    ErrorSummary,
				ChunkCount: len(chunks),
				Diagnostic: err.Error(),
			}
		}
		partials[i] = strings.TrimSpace(partial)
	}

	// Reduce: distill the partial summaries into one.
	summary, err := s.completer.Complete(ctx, buildReducePrompt(partials))
	if err != nil {
		return &model.Summary{
			Filename:   filename,
			Summary:    ErrorSummary,
			ChunkCount: len(chunks),
			Diagnostic: err.Error(),
		}
	}

	return &model.Summary{
		Filename:   filename,
		Summary:    strings.TrimSpace(summary),
		ChunkCount: len(chunks),
	}
}

func buildSummaryPrompt(text string) string {
	return fmt.Sprintf(`Write a concise summary of the following:

%s

CONCISE SUMMARY:`, text)
}

func buildReducePrompt(partials []string) string {
	return fmt.Sprintf(`The following is a set of summaries:

%s

Take these and distill them into a final, consolidated summary.

FINAL SUMMARY:`, strings.Join(partials, "\n\n"))
}
