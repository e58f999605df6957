package service

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// CompletionInput is everything one completion attempt needs. History is oldest first.
type CompletionInput struct {
	BotName      string
	Instructions string
	Preprompt    *string
	History      []domain.Message
	User         string
	Config       domain.GenerationConfig
}

// Completion turns a conversation into a classified completion result.
type Completion struct {
	completer port.TextCompleter
	checker   ContentChecker
	logitBias map[string]int
}

func NewCompletion(completer port.TextCompleter, checker ContentChecker) *Completion {
	return &Completion{
		completer: completer,
		checker:   checker,
		logitBias: logitBiasFromConfig(),
	}
}

// Generate never fails: backend and moderation faults are reported through the returned status.
func (c *Completion) Generate(ctx context.Context, in CompletionInput) domain.CompletionData {
	l := loggerFrom(ctx).With().
		Str("func", "Generate").
		Str("bot", in.BotName).
		Logger()

	prompt := domain.Prompt{
		Preprompt: in.Preprompt,
		Header:    domain.NewHeader(in.BotName, in.Instructions),
		Conversation: domain.NewConversation(in.History...).
			Append(domain.Placeholder(in.BotName)),
	}

	rendered := prompt.Render()
	l.Trace().Str("prompt", rendered).Msg("rendered prompt")

	reply, err := c.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:    rendered,
		Config:    in.Config,
		Stop:      domain.StopSequences(),
		LogitBias: c.logitBias,
		User:      in.User,
	})
	if err != nil {
		return classifyFailure(&l, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		l.Debug().Msg("empty completion")
		return domain.CompletionData{Status: domain.CompletionOK}
	}

	verdict, err := c.checker.Check(ctx, rendered+reply, in.User)
	if err != nil {
		l.Error().Err(err).Msg("failed to moderate response")
		return domain.CompletionData{Status: domain.CompletionOtherError, StatusText: err.Error()}
	}

	switch {
	case verdict.IsBlocked():
		return domain.CompletionData{
			Status:     domain.CompletionModerationBlocked,
			ReplyText:  reply,
			StatusText: "from_response:" + verdict.BlockedText(),
		}
	case verdict.IsFlagged():
		return domain.CompletionData{
			Status:     domain.CompletionModerationFlagged,
			ReplyText:  reply,
			StatusText: "from_response:" + verdict.FlaggedText(),
		}
	}

	return domain.CompletionData{Status: domain.CompletionOK, ReplyText: reply}
}

func classifyFailure(l *zerolog.Logger, err error) domain.CompletionData {
	var invalid *domain.InvalidRequestError

	switch {
	case errors.Is(err, domain.ErrContextLengthExceeded):
		l.Warn().Str("reason", err.Error()).Msg("prompt exceeds context length")
		return domain.CompletionData{Status: domain.CompletionTooLong, StatusText: err.Error()}
	case errors.As(err, &invalid):
		l.Error().Err(err).Msg("completion request rejected")
		return domain.CompletionData{Status: domain.CompletionInvalidRequest, StatusText: err.Error()}
	default:
		l.Error().Err(err).Msg("completion failed")
		return domain.CompletionData{Status: domain.CompletionOtherError, StatusText: err.Error()}
	}
}

// logitBiasFromConfig layers completion.logit_bias under the colon bans, which can't be overridden.
func logitBiasFromConfig() map[string]int {
	bias := make(map[string]int)
	for token := range viper.GetStringMap("completion.logit_bias") {
		bias[token] = viper.GetInt("completion.logit_bias." + token)
	}

	for token, v := range domain.DefaultLogitBias() {
		bias[token] = v
	}

	return bias
}

// loggerFrom returns the logger attached to ctx, falling back to the global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}

	return &log.Logger
}
