package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/blackrab369/Versaas-ai/internal/sim/tuning"
)

// OpenAIGenerator calls the OpenAI Chat Completions API. The client reads
// OPENAI_API_KEY from the environment.
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

func NewOpenAIGenerator(cfg tuning.Narrative) *OpenAIGenerator {
	client := openai.NewClient()
	model := openai.ChatModelGPT4oMini
	if cfg.Model != "" {
		model = cfg.Model
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &OpenAIGenerator{client: &client, model: model, maxTokens: maxTokens}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               g.model,
		MaxCompletionTokens: openai.Int(g.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("openai returned no text")
	}
	return text, nil
}
