package handler

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type GatewaySession interface {
	CommandOverwriter
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// Gateway keeps the Discord websocket connection open for the lifetime of the service group.
type Gateway struct {
	session GatewaySession
	discord *Discord
	appID   string
}

func NewGateway(session GatewaySession, discord *Discord, appID string) *Gateway {
	return &Gateway{session: session, discord: discord, appID: appID}
}

func (g *Gateway) Name() string {
	return "discord gateway"
}

func (g *Gateway) Run(ctx context.Context) error {
	removeMessages := g.session.AddHandler(g.discord.OnMessageCreate)
	removeInteractions := g.session.AddHandler(g.discord.OnInteractionCreate)
	defer removeMessages()
	defer removeInteractions()

	g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("connected to gateway")
	})

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}

	if err := RegisterCommands(g.session, g.appID); err != nil {
		_ = g.session.Close()
		return err
	}

	log.Info().Msg("bot listening")
	<-ctx.Done()

	log.Info().Msg("closing gateway connection")
	return g.session.Close()
}
