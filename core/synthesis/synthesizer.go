package synthesis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mbertholdt/docrag/model"
)

// Fixed answers for the degraded paths. Interactive callers always get a
// well formed Answer to render.
const (
	NoContextAnswer = "I couldn't find any relevant information to answer your question."
	ErrorAnswer     = "I encountered an error while processing your question."
)

// excerptLimit bounds the length of source excerpts attached to answers.
const excerptLimit = 200

// Completer invokes an external generative model with a prompt and returns
// the generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Synthesizer turns retrieved chunks into a grounded answer with source
// attribution and a confidence score.
type Synthesizer struct {
	completer Completer
}

// NewSynthesizer creates a new synthesizer on top of a generative model.
func NewSynthesizer(completer Completer) *Synthesizer {
	return &Synthesizer{completer: completer}
}

// Synthesize answers the question from the retrieved chunks. With no
// retrieved context it returns the fixed no-information answer with
// confidence 0 without invoking the model. A model failure yields a degraded
// answer with the underlying error preserved in the Diagnostic field; the
// caller never sees a raw provider error.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, retrieved []*model.RetrievalResult) *model.Answer {
	if len(retrieved) == 0 {
		return &model.Answer{
			Answer:     NoContextAnswer,
			Sources:    []model.Source{},
			Confidence: 0.0,
		}
	}

	if s.completer == nil {
		return &model.Answer{
			Answer:     ErrorAnswer,
			Sources:    []model.Source{},
			Confidence: 0.0,
			Diagnostic: "no generative model configured",
		}
	}

	prompt := buildPrompt(question, retrieved)

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return &model.Answer{
			Answer:     ErrorAnswer,
			Sources:    []model.Source{},
			Confidence: 0.0,
			Diagnostic: err.Error(),
		}
	}

	return &model.Answer{
		Answer:     strings.TrimSpace(answer),
		Sources:    buildSources(retrieved),
		Confidence: meanSimilarity(retrieved),
	}
}

// buildPrompt assembles the grounding prompt: the retrieved chunk contents in
// retrieval order, separated by blank lines, followed by the question. The
// model is instructed to answer strictly from that context.
func buildPrompt(question string, retrieved []*model.RetrievalResult) string {
	contents := make([]string, len(retrieved))
	for i, result := range retrieved {
		contents[i] = result.Chunk.Content
	}
	context := strings.Join(contents, "\n\n")

	return fmt.Sprintf(`Based on the following context, please answer the question. If the answer cannot be found in the context, say "I don't have enough information to answer this question."

Context:
%s

Question: %s

Answer:`, context, question)
}

// buildSources attributes the answer to the chunks it was grounded on, with
// excerpts truncated to a fixed character budget. Truncation counts runes,
// not bytes, so a multi-byte character is never cut in half.
func buildSources(retrieved []*model.RetrievalResult) []model.Source {
	sources := make([]model.Source, len(retrieved))
	for i, result := range retrieved {
		excerpt := result.Chunk.Content
		if utf8.RuneCountInString(excerpt) > excerptLimit {
			runes := []rune(excerpt)
			excerpt = string(runes[:excerptLimit]) + "..."
		}
		sources[i] = model.Source{
			Filename:   result.Chunk.Filename,
			Excerpt:    excerpt,
			Similarity: result.Similarity,
		}
	}
	return sources
}

// meanSimilarity is the arithmetic mean of the retrieved similarities clamped
// to [0,1]. A heuristic proxy for grounding quality, not a calibrated
// probability.
func meanSimilarity(retrieved []*model.RetrievalResult) float64 {
	var sum float64
	for _, result := range retrieved {
		sum += result.Similarity
	}
	mean := sum / float64(len(retrieved))

	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}
