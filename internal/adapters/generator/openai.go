package generator

import (
	"actorbot/internal/adapters/file"
	"actorbot/internal/core/domain"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

const (
	defaultCompletionModel   = "text-davinci-003"
	defaultRequestsPerMinute = 60
)

type openAIClient interface {
	CreateCompletion(ctx context.Context, request openai.CompletionRequest) (openai.CompletionResponse, error)
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// OpenAI serves completions, moderation and images from the OpenAI API. All requests share one rate limiter.
type OpenAI struct {
	client    openAIClient
	limiter   *rate.Limiter
	model     string
	imageSize string
}

func NewOpenAI(apiKey string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL := viper.GetString("openai.base_url"); baseURL != "" {
		config.BaseURL = baseURL
	}

	model := viper.GetString("completion.model")
	if model == "" {
		model = defaultCompletionModel
	}

	imageSize := viper.GetString("image.size")
	if imageSize == "" {
		imageSize = openai.CreateImageSize256x256
	}

	return &OpenAI{
		client:    openai.NewClientWithConfig(config),
		limiter:   newLimiter(viper.GetInt("openai.requests_per_minute")),
		model:     model,
		imageSize: imageSize,
	}
}

func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}

	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// sampling keeps a configured 0 on the wire; the request structs drop zero floats via omitempty,
// which would leave the backend on its default of 1.
func sampling(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}

	return float32(v)
}

func (o *OpenAI) Complete(ctx context.Context, request domain.CompletionRequest) (string, error) {
	if request.Prompt == "" {
		return "", domain.ErrEmptyPrompt
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := o.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:            o.model,
		Prompt:           request.Prompt,
		MaxTokens:        request.Config.MaxTokens,
		Temperature:      sampling(request.Config.Temperature),
		TopP:             sampling(request.Config.TopP),
		PresencePenalty:  float32(request.Config.PresencePenalty),
		FrequencyPenalty: float32(request.Config.FrequencyPenalty),
		Stop:             request.Stop,
		LogitBias:        request.LogitBias,
		User:             request.User,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", classifyError(err))
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	log.Trace().Str("model", resp.Model).Int("tokens", resp.Usage.TotalTokens).Msg("completion received")
	return resp.Choices[0].Text, nil
}

func (o *OpenAI) Moderate(ctx context.Context, text string, user string) (domain.ModerationScores, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := o.client.Moderations(ctx, openai.ModerationRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("openai moderation: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, errors.New("openai moderation: no results")
	}

	log.Trace().Str("user", user).Bool("flagged", resp.Results[0].Flagged).Msg("moderation received")

	s := resp.Results[0].CategoryScores
	return domain.ModerationScores{
		domain.CategoryHate:            float64(s.Hate),
		domain.CategoryHateThreatening: float64(s.HateThreatening),
		domain.CategorySelfHarm:        float64(s.SelfHarm),
		domain.CategorySexual:          float64(s.Sexual),
		domain.CategorySexualMinors:    float64(s.SexualMinors),
		domain.CategoryViolence:        float64(s.Violence),
		domain.CategoryViolenceGraphic: float64(s.ViolenceGraphic),
	}, nil
}

func (o *OpenAI) GenerateImage(ctx context.Context, description string, style string) ([]byte, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         imagePrompt(description, style),
		N:              1,
		Size:           o.imageSize,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image: %w", classifyError(err))
	}

	if len(resp.Data) == 0 {
		return nil, domain.ErrEmptyImage
	}

	// some compatible backends ignore the response format and always return a URL
	if resp.Data[0].B64JSON == "" {
		if resp.Data[0].URL == "" {
			return nil, domain.ErrEmptyImage
		}

		return file.Download(ctx, resp.Data[0].URL, file.MaxUploadBytes)
	}

	image, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return image, nil
}

func imagePrompt(description, style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return description
	}

	return description + ", " + style
}
