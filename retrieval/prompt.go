package retrieval

import (
	"fmt"
	"strings"

	"siteqa/pkg/vectorstore"
)

const SystemPrompt = `You are an intelligent assistant tasked with answering questions based on the provided context and previous conversations.
Follow these rules strictly:
1. If there is relevant context, use it to answer the question. But do not mention that you are using the context.
2. If there is a previous conversation, incorporate it to provide a coherent and context-aware response. User might be asking follow-up questions.`

// FallbackAnswer is returned without calling the language model when nothing
// was retrieved and there is no conversation.
const FallbackAnswer = "The answer is not available on the provided website."

const (
	noContext      = "No relevant context provided."
	noConversation = "No previous conversation available."
)

// FormatContext renders matches as score-tagged passages.
func FormatContext(matches []vectorstore.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("[score=%.3f] %s", m.Score, m.Text))
	}
	return strings.Join(parts, "\n\n")
}

func formatConversation(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", t.Question, t.Answer)
	}
	return b.String()
}

// BuildPrompt assembles the user prompt from retrieved passages, recent
// conversation and the question.
func BuildPrompt(matches []vectorstore.Match, turns []Turn, question string) string {
	context := FormatContext(matches)
	if context == "" {
		context = noContext
	}
	conversation := formatConversation(turns)
	if conversation == "" {
		conversation = noConversation
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(context)
	b.WriteString("\n\nPrevious Conversation:\n")
	b.WriteString(conversation)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	return b.String()
}
