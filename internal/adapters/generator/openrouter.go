package generator

import (
	"actorbot/internal/core/domain"
	"context"
	"fmt"

	"github.com/revrost/go-openrouter"
	"github.com/spf13/viper"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context,
		ccr openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
}

// OpenRouter completes prompts through a chat model. The rendered prompt is sent as a single user message;
// logit bias is not forwarded since token IDs differ between the models OpenRouter serves.
type OpenRouter struct {
	client chatClient
	model  string
}

func NewOpenRouter(apiKey string) *OpenRouter {
	return &OpenRouter{
		model: viper.GetString("openrouter.model"),
		client: openrouter.NewClient(
			apiKey,
			openrouter.WithXTitle("actorbot"),
		),
	}
}

func (c *OpenRouter) Complete(ctx context.Context, request domain.CompletionRequest) (string, error) {
	if request.Prompt == "" {
		return "", domain.ErrEmptyPrompt
	}

	ccr := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{{
			Role:    openrouter.ChatMessageRoleUser,
			Content: openrouter.Content{Text: request.Prompt},
		}},
		MaxTokens:        request.Config.MaxTokens,
		Temperature:      sampling(request.Config.Temperature),
		TopP:             sampling(request.Config.TopP),
		PresencePenalty:  float32(request.Config.PresencePenalty),
		FrequencyPenalty: float32(request.Config.FrequencyPenalty),
		Stop:             request.Stop,
	}

	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return "", fmt.Errorf("openrouter API error: %w", classifyError(err))
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content.Text, nil
}
