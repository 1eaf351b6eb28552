package answer

import (
	"context"
	"fmt"
	"strings"

	"lawqa/internal/domain"
)

// DefaultReasoningMarker separates a model's reasoning trace from its final
// answer. deepseek-style models close their trace with this tag.
const DefaultReasoningMarker = "</think>"

// Generator assembles the retrieval prompt, delegates to a text model, and
// strips any reasoning preamble from the raw response.
type Generator struct {
	model  domain.TextModel
	marker string
}

// NewGenerator creates a Generator over the given text model. An empty
// marker falls back to DefaultReasoningMarker.
func NewGenerator(model domain.TextModel, marker string) *Generator {
	if marker == "" {
		marker = DefaultReasoningMarker
	}
	return &Generator{model: model, marker: marker}
}

// Generate produces a single-paragraph answer to question from the supplied
// section texts, given in retrieval order (closest first).
func (g *Generator) Generate(ctx context.Context, question string, sections []string) (string, error) {
	raw, err := g.model.Complete(ctx, BuildPrompt(question, sections))
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	return StripReasoning(raw, g.marker), nil
}

// BuildPrompt renders the deterministic prompt: the verbatim question plus a
// 1-indexed enumeration of the retrieved sections in the order given.
func BuildPrompt(question string, sections []string) string {
	var list strings.Builder
	for i, section := range sections {
		if i > 0 {
			list.WriteString("\n")
		}
		list.WriteString(fmt.Sprintf("%d. %s", i+1, section))
	}

	return fmt.Sprintf(`You are an expert legal assistant trained on the indexed legal code. A user has asked a legal question based on their real-life experience.

Your job is to:
1. Understand the context and details of the user's question.
2. Review the following sections from the code and identify the ones that relate directly to the situation.
3. Provide a clear and concise legal explanation, written in a way a common person can understand.
4. Cite relevant sections using this format: "According to Section XX".
5. Do not mention irrelevant sections. Focus only on what applies to the user's situation.

---
User's Question:
"%s"

---
Relevant Sections from the code:
%s

---
Now, based on the above, provide a single-paragraph answer that directly addresses the user's concern.
`, question, list.String())
}

// StripReasoning drops everything up to and including the last occurrence of
// marker, then trims surrounding whitespace. Responses without the marker
// are returned trimmed.
func StripReasoning(response, marker string) string {
	if marker != "" {
		if i := strings.LastIndex(response, marker); i >= 0 {
			response = response[i+len(marker):]
		}
	}
	return strings.TrimSpace(response)
}
