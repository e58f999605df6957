package port

import (
	"actorbot/internal/core/domain"
	"context"
)

type TextCompleter interface {
	// Complete returns the raw completion text for a rendered prompt. Rejections for context length are
	// reported as domain.ErrContextLengthExceeded, other rejected requests as *domain.InvalidRequestError.
	Complete(ctx context.Context, request domain.CompletionRequest) (string, error)
}

type Moderator interface {
	// Moderate returns per-category moderation scores for text written by user.
	Moderate(ctx context.Context, text string, user string) (domain.ModerationScores, error)
}

type ImageGenerator interface {
	// GenerateImage returns a PNG for the description drawn in the given style.
	GenerateImage(ctx context.Context, description string, style string) ([]byte, error)
}
