package ports

import (
	"context"

	"github.com/parleyhq/parley/pkg/domain"
)

// Model is the language understanding/generation capability, treated as an
// opaque oracle: given the rendered node content and conversation history
// it returns free text and/or structured function call requests.
//
// The engine does not validate model output beyond matching requested
// function names against the registry. Model output is untrusted input; a
// node's prompt content is the only (best-effort) steering mechanism.
type Model interface {
	Complete(ctx context.Context, prompt domain.Prompt, history []domain.Message) (domain.ModelOutput, error)
}
