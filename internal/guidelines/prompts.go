package guidelines

import (
	"strings"

	"healthmate/internal/catalog"
	"healthmate/internal/llm"
)

// systemPrompt frames the assistant; the guideline sections are appended as
// reference material.
const systemPrompt = "You are HealthMate Assistant, helping international students in Pécs, Hungary " +
	"understand the local healthcare system. Answer briefly and only from the reference guidelines below. " +
	"If the guidelines do not cover the question, say so and suggest contacting the University of Pécs " +
	"International Studies Center. Never give a diagnosis. For emergencies always mention 112 and 104."

// maxHistory bounds how many prior messages are sent to the model.
const maxHistory = 12

func promptMessages(cat *catalog.Catalog, history []Message) []llm.Message {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nReference guidelines:\n")
	for _, s := range cat.Guidelines {
		b.WriteString("\n## ")
		b.WriteString(s.Title)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(s.Body))
		b.WriteString("\n")
	}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: b.String()})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}
