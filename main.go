package main

import (
	"actorbot/internal/adapters/audit"
	"actorbot/internal/adapters/generator"
	"actorbot/internal/adapters/handler"
	"actorbot/internal/adapters/sender"
	"actorbot/internal/core/domain/command"
	"actorbot/internal/core/port"
	"actorbot/internal/core/service"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Secrets struct {
	DiscordBotToken  string `env:"DISCORD_BOT_TOKEN,required"`
	DiscordClientID  string `env:"DISCORD_CLIENT_ID,required"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY,required"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
}

func main() {
	log.Info().Msg("starting actorbot...")

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	setDefaults()

	log.Info().Msg("reading config file...")
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal().Err(err).Msg("could not read config file")
	}

	service.ConfigureLogging()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("shutting down due to error")
	}

	log.Info().Msg("shutdown complete")
}

func setDefaults() {
	viper.SetDefault("bot.log_level", "info")
	viper.SetDefault("handler.timeout", "3m")
	viper.SetDefault("completion.provider", "openai")
	viper.SetDefault("audit.driver", audit.DriverSQLite)
	viper.SetDefault("audit.dsn", "actorbot.db")
}

func run() error {
	secrets := Secrets{}
	if err := env.Parse(&secrets); err != nil {
		return fmt.Errorf("parsing env secrets: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session, err := discordgo.New("Bot " + secrets.DiscordBotToken)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	me, err := session.User("@me")
	if err != nil {
		return fmt.Errorf("fetching bot user: %w", err)
	}

	botName := viper.GetString("bot.name")
	if botName == "" {
		botName = me.Username
	}

	auth, err := service.NewAuthorizer()
	if err != nil {
		return err
	}

	store, err := audit.NewSQLStore(viper.GetString("audit.driver"), viper.GetString("audit.dsn"))
	if err != nil {
		return err
	}
	defer store.Close()

	openAI := generator.NewOpenAI(secrets.OpenAIAPIKey)

	var completer port.TextCompleter = openAI
	switch provider := viper.GetString("completion.provider"); provider {
	case "openai":
	case "openrouter":
		if secrets.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required for provider %q", provider)
		}
		completer = generator.NewOpenRouter(secrets.OpenRouterAPIKey)
	default:
		return fmt.Errorf("unknown completion provider %q", provider)
	}

	discordSender := sender.NewDiscordSender(session)
	auditLog := service.AuditFanout{store, sender.NewModerationChannel(session)}

	moderation := service.NewModeration(openAI)
	completion := service.NewCompletion(completer, moderation)
	dispatcher := service.NewDispatcher(discordSender, auditLog)

	turn := service.NewTurn(service.TurnParams{
		Messenger:  discordSender,
		Auth:       auth,
		Checker:    moderation,
		Generator:  completion,
		Dispatcher: dispatcher,
		Audit:      auditLog,
		BotID:      me.ID,
		BotName:    botName,
	})

	commands := []port.Command{
		command.NewChat(command.ChatParams{
			Interactor: discordSender,
			Messenger:  discordSender,
			Auth:       auth,
			Checker:    moderation,
			Generator:  completion,
			Dispatcher: dispatcher,
			Audit:      auditLog,
			BotName:    botName,
			Command:    handler.CommandChat,
		}),
		command.NewVisualize(openAI, discordSender, discordSender, auth, moderation, auditLog,
			handler.CommandVisualize),
		command.NewModerationLog(discordSender, store, auth, handler.CommandModeration),
	}

	commandRegistry := &command.Registry{}
	for _, c := range commands {
		if err := commandRegistry.Register(c); err != nil {
			return err
		}
	}

	handlerTimeout, err := time.ParseDuration(viper.GetString("handler.timeout"))
	if err != nil {
		return fmt.Errorf("invalid timeout for handler in config: %w", err)
	}

	discordHandler := handler.NewDiscord(commandRegistry, turn, handlerTimeout)

	group := service.Group{
		handler.NewGateway(session, discordHandler, secrets.DiscordClientID),
		service.ConfigWatcher{},
	}

	log.Info().Str("bot", botName).Strs("commands", commandRegistry.ListCommands()).Msg("services starting")
	return group.Run(ctx)
}
