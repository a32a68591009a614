// internal/reasoning/service.go
package reasoning

import "context"

// Service is the language-model surface used by the pipeline stages. Each
// method sends one prompt and returns the raw completion text; callers own
// prompt construction and response parsing.
type Service interface {
	Normalize(ctx context.Context, prompt string) (string, error)
	Rerank(ctx context.Context, prompt string) (string, error)
	Select(ctx context.Context, prompt string) (string, error)
}
