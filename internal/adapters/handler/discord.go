package handler

import (
	"actorbot/internal/adapters/sender"
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.ChatMessage) error
}

// Discord routes gateway events to the thread pipeline and the slash command registry.
type Discord struct {
	commandRegistry port.CommandRegistry
	messages        MessageHandler
	timeout         time.Duration
}

func NewDiscord(commandRegistry port.CommandRegistry, messages MessageHandler, timeout time.Duration) *Discord {
	return &Discord{commandRegistry: commandRegistry, messages: messages, timeout: timeout}
}

func (d *Discord) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	d.HandleMessage(m.Message)
}

func (d *Discord) OnInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	d.HandleInteraction(i.Interaction)
}

func (d *Discord) HandleMessage(m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.System {
		return
	}

	if m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply {
		return
	}

	msg := sender.ToChatMessage(m)
	log.Trace().Str("channelId", msg.ChannelID).Str("messageId", msg.ID).Msg("received message")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.messages.HandleMessage(ctx, msg); err != nil {
			log.Err(err).Str("channelId", msg.ChannelID).Str("messageId", msg.ID).Msg("failed to handle message")
		}
	}()
}

func (d *Discord) HandleInteraction(i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	invocation := ToInvocation(i)
	log.Debug().Str("command", invocation.Command).Str("user", invocation.UserName).Msg("received command")

	commandHandler, err := d.commandRegistry.Get(invocation.Command)
	if err != nil {
		log.Debug().Str("command", invocation.Command).Msg("no handler for command")
		return
	}

	go func() {
		err := commandHandler.Respond(context.Background(), d.timeout, invocation)
		if err != nil {
			log.Err(err).Str("command", invocation.Command).Msg("failed to respond to command")
		}
	}()
}

// ToInvocation flattens a slash command interaction. Option values are passed on as text.
func ToInvocation(i *discordgo.Interaction) *domain.Invocation {
	data := i.ApplicationCommandData()

	invocation := &domain.Invocation{
		InteractionID: i.ID,
		Token:         i.Token,
		AppID:         i.AppID,
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
		Command:       data.Name,
		Options:       make(map[string]string, len(data.Options)),
	}

	switch {
	case i.Member != nil && i.Member.User != nil:
		invocation.UserID = i.Member.User.ID
		invocation.UserName = sender.DisplayName(i.Member.User, i.Member)
	case i.User != nil:
		invocation.UserID = i.User.ID
		invocation.UserName = sender.DisplayName(i.User, nil)
	}

	for _, opt := range data.Options {
		if opt.Value == nil {
			continue
		}
		invocation.Options[opt.Name] = fmt.Sprint(opt.Value)
	}

	return invocation
}
