package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Authorizer interface {
	IsAuthorized(ctx context.Context, guildID string) bool
}

type GuildAuthorizer struct {
	allowlist map[string]struct{}
}

func NewAuthorizer() (*GuildAuthorizer, error) {
	var list []int64

	err := viper.UnmarshalKey("discord.allowed_guild_ids", &list)
	if err != nil {
		return nil, errors.New("failed to load allowed guild IDs")
	}

	allowlist := make(map[string]struct{}, len(list))
	for _, id := range list {
		allowlist[strconv.FormatInt(id, 10)] = struct{}{}
	}

	return &GuildAuthorizer{allowlist: allowlist}, nil
}

// IsAuthorized reports whether the bot serves guildID. Direct messages carry no guild and are never served.
func (a *GuildAuthorizer) IsAuthorized(_ context.Context, guildID string) bool {
	if guildID == "" {
		log.Debug().Msg("direct messages not supported")
		return false
	}

	if _, ok := a.allowlist[guildID]; ok {
		return true
	}

	log.Info().Str("guildId", guildID).Msg("guild not allowed")
	return false
}
