// internal/llm/llm.go

// Package llm defines the provider contract shared by every component that
// asks a language model for structured output.
package llm

import (
	"context"
	"strings"
)

// Provider is the interface for any LLM backend.
type Provider interface {
	// Complete sends a single system+user exchange and returns the
	// model's text response.
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ExtractJSON strips markdown code fences from a model response, returning
// the JSON body. Models wrap JSON in ```json fences often enough that every
// structured-output caller needs this.
func ExtractJSON(s string) string {
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(s, fence)
		if start < 0 {
			continue
		}
		rest := s[start+len(fence):]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end])
	}
	return strings.TrimSpace(s)
}
