package llm

import "context"

// Request is a single completion call. MaxOutputTokens of zero uses the
// provider's configured default.
type Request struct {
	Instructions    string
	Input           string
	MaxOutputTokens int64
}

// Provider generates text for planning prompts. Implementations never
// retry internally; callers decide whether a failure is worth retrying.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
