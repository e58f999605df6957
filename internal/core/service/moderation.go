package service

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"context"
	"fmt"

	"github.com/spf13/viper"
)

type ContentChecker interface {
	// Check moderates the tail of text written by user.
	Check(ctx context.Context, text string, user string) (domain.ModerationVerdict, error)
}

type Moderation struct {
	moderator port.Moderator
	block     domain.Thresholds
	flag      domain.Thresholds
}

// NewModeration uses the default thresholds, overridden per category by moderation.block.* and
// moderation.flag.*.
func NewModeration(moderator port.Moderator) *Moderation {
	return &Moderation{
		moderator: moderator,
		block:     thresholdsFromConfig("moderation.block", domain.DefaultBlockThresholds()),
		flag:      thresholdsFromConfig("moderation.flag", domain.DefaultFlagThresholds()),
	}
}

func (m *Moderation) Check(ctx context.Context, text string, user string) (domain.ModerationVerdict, error) {
	scores, err := m.moderator.Moderate(ctx, domain.ModerationTail(text), user)
	if err != nil {
		return domain.ModerationVerdict{}, fmt.Errorf("failed to moderate text: %w", err)
	}

	return domain.Classify(scores, m.block, m.flag), nil
}

func thresholdsFromConfig(key string, defaults domain.Thresholds) domain.Thresholds {
	for category := range defaults {
		k := key + "." + category
		if viper.IsSet(k) {
			defaults[category] = viper.GetFloat64(k)
		}
	}

	return defaults
}
