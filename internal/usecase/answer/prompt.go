package answer

import (
	"strings"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
)

// DefaultPersona is the system instruction given to the generation model.
const DefaultPersona = "You are a supportive senior student helping juniors. " +
	"Be friendly, casual, and encouraging. " +
	"Answer only using the retrieved documents. " +
	"If not found, say you don't know and suggest where to check."

const contextHeader = "Use the following pieces of context to answer the user's question.\n" +
	"----------------\n"

// BuildPrompt assembles the chat messages for one question: a system message
// holding the persona, the requested tone and every retrieved chunk, followed
// by the question as the user message.
func BuildPrompt(persona, mood, question string, chunks []domain.ScoredChunk) []domain.Message {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\nTone: ")
	b.WriteString(mood)
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	b.WriteString(strings.Join(texts, "\n\n"))

	return []domain.Message{
		{Role: domain.RoleSystem, Content: b.String()},
		{Role: domain.RoleUser, Content: question},
	}
}
