package out

import "context"

// CompletionOracle is the LLM collaborator. Three modes map to different
// backing models. Implementations must tolerate being unconfigured: they
// return an empty string rather than an error for "not configured".
type CompletionOracle interface {
	// Chat is general-purpose completion using the default model.
	Chat(ctx context.Context, prompt, systemPrompt string) (string, error)
	// Search is web-grounded completion for event discovery.
	Search(ctx context.Context, prompt, systemPrompt string) (string, error)
	// Write is creative-writing completion for newsletter copy.
	Write(ctx context.Context, prompt, systemPrompt string) (string, error)
}
