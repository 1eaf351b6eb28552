package domain

import "context"

// Section represents a single numbered provision extracted from the statute.
type Section struct {
	Index int    // position in document order among extracted sections
	Text  string // raw text, including the leading numeral marker
}

// SearchHit is one nearest-neighbor result.
type SearchHit struct {
	Position int     // insertion position in the index; -1 for an unfilled slot
	Distance float32 // L2 distance; +Inf for an unfilled slot
}

// HistoryEntry is an immutable question/answer pair in the session log.
type HistoryEntry struct {
	Question string
	Answer   string
}

// Embedder converts free text into a numeric vector representation.
// Dimension is only known after the first successful Embed call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// TextModel completes a prompt via an external generative service.
type TextModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator produces a final answer from a question and its retrieved sections.
type Generator interface {
	Generate(ctx context.Context, question string, sections []string) (string, error)
}

// Synthesizer renders text as spoken audio written to dest, returning the path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, dest string) (string, error)
}

// Corpus returns the sections retained for indexing. The first extracted
// section begins the document's front matter rather than a substantive
// provision, so it is dropped.
func Corpus(sections []Section) []Section {
	if len(sections) == 0 {
		return nil
	}
	return sections[1:]
}
