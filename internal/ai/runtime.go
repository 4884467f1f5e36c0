package ai

import "context"

// Runtime is the single-attempt chat-completions backend used by the narrative
// stage. Retries are layered on top by the caller.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

var _ Runtime = (*Client)(nil)
