package rag

import (
	"fmt"
	"strings"
)

// DefaultSystemPrompt is used when a query does not bring its own.
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"Use the context to answer the question accurately. If the answer is not in the context, say so clearly."

// ContextChunk is one retrieved chunk handed to the model and echoed back in
// the response so the caller can see what grounded the answer.
type ContextChunk struct {
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

func contextBlock(chunks []ContextChunk) string {
	if len(chunks) == 0 {
		return "No relevant context found."
	}
	var b strings.Builder
	b.WriteString("Relevant context:\n\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] From %s: %s\n\n", i+1, chunkFilename(chunk), chunk.Text)
	}
	return strings.TrimSpace(b.String())
}

func chunkFilename(chunk ContextChunk) string {
	if name, ok := chunk.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	return "unknown"
}

func buildPrompt(context, question string) string {
	return fmt.Sprintf("%s\n\nQuestion: %s\n\nAnswer:", context, question)
}
