package llm

import (
	"strings"

	"docqa/internal/models"
)

const answerInstructions = "You are a helpful assistant answering questions about a document. Use the context provided to give accurate, concise answers. If the answer isn't in the context, say so politely."

// HistoryPair is one completed user/assistant exchange fed back into the
// prompt.
type HistoryPair struct {
	User      string
	Assistant string
}

// WindowHistory pairs up stored messages and keeps the last max exchanges,
// dropping the oldest first. Unanswered trailing user messages are kept as
// pairs with an empty assistant side.
func WindowHistory(msgs []models.ChatMessage, max int) []HistoryPair {
	if max <= 0 {
		return nil
	}
	var pairs []HistoryPair
	for i := 0; i < len(msgs); i++ {
		if msgs[i].Role != models.RoleUser {
			continue
		}
		p := HistoryPair{User: msgs[i].Content}
		if i+1 < len(msgs) && msgs[i+1].Role == models.RoleAssistant {
			p.Assistant = msgs[i+1].Content
			i++
		}
		pairs = append(pairs, p)
	}
	if len(pairs) > max {
		pairs = pairs[len(pairs)-max:]
	}
	return pairs
}

// JoinContext concatenates retrieved chunk texts into the prompt context
// block, best-ranked first.
func JoinContext(chunks []models.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// BuildAnswerPrompt assembles the single-turn prompt: instructions, document
// context, optional prior exchanges, then the question.
func BuildAnswerPrompt(query, contextText string, history []HistoryPair) string {
	var b strings.Builder
	b.WriteString(answerInstructions)
	b.WriteString("\n\nContext from document:\n")
	b.WriteString(contextText)
	b.WriteString("\n")
	b.WriteString(formatHistory(history))
	b.WriteString("\n\nCurrent question: ")
	b.WriteString(query)
	b.WriteString("\n\nProvide a clear, engaging answer:")
	return b.String()
}

func formatHistory(history []HistoryPair) string {
	if len(history) == 0 {
		return ""
	}
	lines := make([]string, 0, 1+2*len(history))
	lines = append(lines, "\n\nPrevious conversation:")
	for _, h := range history {
		lines = append(lines, "User: "+h.User, "Assistant: "+h.Assistant)
	}
	return strings.Join(lines, "\n")
}
