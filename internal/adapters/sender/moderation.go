package sender

import (
	"actorbot/internal/core/domain"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const embedFieldLimit = 1024

// ModerationChannel posts moderation events to the guild's configured moderation channel.
type ModerationChannel struct {
	session  Session
	channels map[string]string
}

func NewModerationChannel(session Session) *ModerationChannel {
	return &ModerationChannel{
		session:  session,
		channels: viper.GetStringMapString("discord.moderation_channels"),
	}
}

// Record is a no-op for guilds without a moderation channel.
func (m *ModerationChannel) Record(ctx context.Context, event domain.AuditEvent) error {
	channelID, ok := m.channels[event.GuildID]
	if !ok || channelID == "" {
		return nil
	}

	color := ColorWarning
	if event.Kind == domain.AuditBlocked {
		color = ColorDanger
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Content %s by moderation", event.Kind),
		Color:     color,
		Timestamp: event.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: orPlaceholder(event.UserName), Inline: true},
			{Name: "Source", Value: orPlaceholder(string(event.Source)), Inline: true},
			{Name: "Categories", Value: orPlaceholder(event.Categories)},
			{Name: "Content", Value: orPlaceholder(truncate(event.Content, embedFieldLimit))},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: event.ID},
	}

	if event.URL != "" {
		embed.URL = event.URL
	}

	if _, err := m.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Error().Err(err).Str("guildId", event.GuildID).Msg("failed to post moderation event")
		return fmt.Errorf("failed to post moderation event: %w", err)
	}

	return nil
}

func orPlaceholder(s string) string {
	if s == "" {
		return emptyFieldValue
	}

	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}
