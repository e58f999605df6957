package handler

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/domain/command"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	CommandChat       = "chat"
	CommandVisualize  = "visualize"
	CommandModeration = "moderation"

	maxBackstoryLength = 1000
)

type CommandOverwriter interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterCommands replaces the application's global slash commands.
func RegisterCommands(s CommandOverwriter, appID string) error {
	created, err := s.ApplicationCommandBulkOverwrite(appID, "", Commands())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	log.Info().Int("count", len(created)).Msg("registered slash commands")
	return nil
}

func Commands() []*discordgo.ApplicationCommand {
	manageMessages := int64(discordgo.PermissionManageMessages)
	dm := false
	minLimit := 1.0

	preprompts := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(domain.Preprompts))
	for _, p := range domain.Preprompts {
		preprompts = append(preprompts, &discordgo.ApplicationCommandOptionChoice{Name: p.Label, Value: p.Key})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         CommandChat,
			Description:  "Start a roleplay chat in a new thread",
			DMPermission: &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        command.OptionBackstory,
					Description: "Who the bot plays and the scene it is in",
					Required:    true,
					MaxLength:   maxBackstoryLength,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        command.OptionPreprompt,
					Description: "Scene-setting text placed ahead of the backstory",
					Choices:     preprompts,
				},
				configOption(command.OptionTemperature, "Sampling temperature, 0 to 2"),
				configOption(command.OptionTopP, "Nucleus sampling, 0 to 1"),
				configOption(command.OptionPresencePenalty, "Presence penalty, -2 to 2"),
				configOption(command.OptionFrequencyPenalty, "Frequency penalty, -2 to 2"),
				configOption(command.OptionMaxTokens, "Maximum reply length in tokens, 1 to 500"),
			},
		},
		{
			Name:         CommandVisualize,
			Description:  "Generate an image from a description",
			DMPermission: &dm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        command.OptionDescription,
					Description: "What to draw",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        command.OptionStyle,
					Description: "Art style, e.g. watercolor",
				},
			},
		},
		{
			Name:                     CommandModeration,
			Description:              "Show recent moderation events of this server",
			DMPermission:             &dm,
			DefaultMemberPermissions: &manageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        command.OptionLimit,
					Description: "Number of events to show",
					MinValue:    &minLimit,
					MaxValue:    25,
				},
			},
		},
	}
}

// Generation settings are free text, malformed values fall back to defaults.
func configOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		MaxLength:   16,
	}
}
