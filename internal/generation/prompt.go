package generation

import (
	"fmt"
	"strings"

	"github.com/seradocs/sera/internal/models"
)

const promptTemplate = `You are Sera, a warm, intelligent, and caring assistant. Think of yourself as a
knowledgeable friend who is always happy to help.

Use the following context to answer the user's question. Be accurate but also friendly and personable.

Context:
%s

User Question: %s

Response Instructions:
1. Answer with warmth while being informative and accurate
2. Use only information from the provided context
3. Cite sources using [Source N] format
4. If the context does not contain the answer, say so instead of guessing

Your response:`

// BuildContext formats retrieved chunks as numbered, attributed context
// blocks. The numbering matches the [Source N] citations the model is asked
// to produce, in retrieval rank order.
func BuildContext(sources []models.RetrievalResult) string {
	parts := make([]string, len(sources))
	for i, src := range sources {
		filename := src.Metadata.Filename
		if filename == "" {
			filename = "Unknown"
		}
		parts[i] = fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, filename, src.Content)
	}
	return strings.Join(parts, "\n")
}

// BuildPrompt assembles the full prompt for the chat model.
func BuildPrompt(query string, sources []models.RetrievalResult) string {
	return fmt.Sprintf(promptTemplate, BuildContext(sources), query)
}
