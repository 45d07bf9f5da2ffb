// Package narrative turns simulation moments into prose. The engine asks a
// Generator for a short update when something story-worthy happens (a phase
// gate passes, a launch lands) and drops the result into the communication
// log. Three providers exist: a deterministic template bank that needs no
// network, and thin adapters over the Anthropic and OpenAI APIs.
package narrative

import (
	"context"
	"fmt"

	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

// Generator produces a short piece of prose for a prompt. Implementations
// must be safe for concurrent use; the engine calls Generate from one
// goroutine per request with a deadline on ctx.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator named by cfg.Provider. An empty provider selects
// the template bank. Unknown names are an error so a typo in tuning surfaces
// at startup instead of as silent missing prose.
func New(cfg tuning.Narrative) (Generator, error) {
	switch cfg.Provider {
	case "", "template":
		return NewTemplateGenerator(), nil
	case "anthropic":
		return NewAnthropicGenerator(cfg), nil
	case "openai":
		return NewOpenAIGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("unknown narrative provider %q", cfg.Provider)
	}
}
