package command

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"actorbot/internal/core/service"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	OptionBackstory        = "backstory"
	OptionPreprompt        = "preprompt"
	OptionTemperature      = "temperature"
	OptionTopP             = "top_p"
	OptionPresencePenalty  = "presence_penalty"
	OptionFrequencyPenalty = "frequency_penalty"
	OptionMaxTokens        = "max_tokens"
)

const (
	textNotAllowed    = "This bot is not available in this server."
	textPromptBlocked = "Your prompt has been blocked by moderation.\n"
	textMissingPrompt = "Please describe what I should roleplay."
	textChatStarted   = "Chat started in <#%s>"
	textChatFailed    = "Failed to start chat %s"
)

// Chat opens a conversation thread for a character described by the invoking user.
type Chat struct {
	interactor port.Interactor
	messenger  port.Messenger
	auth       service.Authorizer
	checker    service.ContentChecker
	generator  service.Generator
	dispatcher service.ResponseDispatcher
	audit      port.AuditLog
	botName    string
	command    string
	l          *zerolog.Logger
}

type ChatParams struct {
	Interactor port.Interactor
	Messenger  port.Messenger
	Auth       service.Authorizer
	Checker    service.ContentChecker
	Generator  service.Generator
	Dispatcher service.ResponseDispatcher
	Audit      port.AuditLog
	BotName    string
	Command    string
}

func NewChat(p ChatParams) *Chat {
	logger := log.With().
		Str("command", p.Command).
		Str("handler", "chat").
		Logger()

	return &Chat{
		interactor: p.Interactor,
		messenger:  p.Messenger,
		auth:       p.Auth,
		checker:    p.Checker,
		generator:  p.Generator,
		dispatcher: p.Dispatcher,
		audit:      p.Audit,
		botName:    p.BotName,
		command:    p.Command,
		l:          &logger,
	}
}

func (c *Chat) GetCommand() string {
	return c.command
}

func (c *Chat) Respond(ctx context.Context, timeout time.Duration, invocation *domain.Invocation) error {
	l := c.l.With().
		Str("guildId", invocation.GuildID).
		Str("channelId", invocation.ChannelID).
		Str("user", invocation.UserName).
		Str("func", "Respond").
		Logger()

	ctx, cancel := context.WithTimeout(l.WithContext(ctx), timeout)
	defer cancel()

	if !c.auth.IsAuthorized(ctx, invocation.GuildID) {
		return c.interactor.Ephemeral(ctx, invocation, textNotAllowed)
	}

	backstory := strings.TrimSpace(optionOrDefault(invocation, OptionBackstory, ""))
	if backstory == "" {
		return c.interactor.Ephemeral(ctx, invocation, textMissingPrompt)
	}

	l.Info().Str("backstory", truncate(backstory, 20)).Msg("creating chat")

	if err := c.interactor.Defer(ctx, invocation, true); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	target := service.Target{
		GuildID:  invocation.GuildID,
		ThreadID: invocation.ChannelID,
		UserName: invocation.UserName,
	}

	verdict, err := c.checker.Check(ctx, backstory, invocation.UserID)
	if err != nil {
		return c.fail(ctx, invocation, fmt.Errorf("failed to moderate backstory: %w", err))
	}

	if verdict.IsBlocked() {
		recordEvent(ctx, c.audit, service.NewAuditEvent(target, domain.AuditBlocked, domain.SourceInstructions,
			verdict.BlockedText(), backstory, ""))
		return c.interactor.Followup(ctx, invocation, textPromptBlocked+backstory)
	}

	preprompt := domain.FindPreprompt(optionOrDefault(invocation, OptionPreprompt, domain.DefaultPreprompt))
	config := domain.ParseConfig(domain.RawConfig{
		Temperature:      invocation.Option(OptionTemperature),
		TopP:             invocation.Option(OptionTopP),
		PresencePenalty:  invocation.Option(OptionPresencePenalty),
		FrequencyPenalty: invocation.Option(OptionFrequencyPenalty),
		MaxTokens:        invocation.Option(OptionMaxTokens),
	})
	record := domain.NewAnchor(invocation.UserName, backstory, preprompt.Text, config)

	anchorID, err := c.messenger.SendAnchor(ctx, invocation.ChannelID, domain.AnchorPost{
		UserID:  invocation.UserID,
		Record:  record,
		Flagged: verdict.IsFlagged(),
	})
	if err != nil {
		return c.fail(ctx, invocation, fmt.Errorf("failed to post anchor: %w", err))
	}

	if verdict.IsFlagged() {
		recordEvent(ctx, c.audit, service.NewAuditEvent(target, domain.AuditFlagged, domain.SourceInstructions,
			verdict.FlaggedText(), backstory, service.MessageURL(invocation.GuildID, invocation.ChannelID, anchorID)))
	}

	thread, err := c.messenger.StartThread(ctx, invocation.ChannelID, anchorID,
		domain.ThreadName(invocation.UserName, backstory))
	if err != nil {
		return c.fail(ctx, invocation, fmt.Errorf("failed to start thread: %w", err))
	}

	if err := c.interactor.Followup(ctx, invocation, fmt.Sprintf(textChatStarted, thread.ID)); err != nil {
		l.Warn().Err(err).Msg("failed to confirm chat")
	}

	typingCtx, stopTyping := context.WithCancel(ctx)
	go c.messenger.Typing(typingCtx, thread.ID)

	data := c.generator.Generate(ctx, service.CompletionInput{
		BotName:      c.botName,
		Instructions: backstory,
		Preprompt:    record.Preprompt,
		User:         invocation.UserName,
		Config:       config,
	})
	stopTyping()

	target.ThreadID = thread.ID
	return c.dispatcher.Dispatch(ctx, target, data)
}

func (c *Chat) fail(ctx context.Context, invocation *domain.Invocation, err error) error {
	if ferr := c.interactor.Followup(ctx, invocation, fmt.Sprintf(textChatFailed, err)); ferr != nil {
		log.Ctx(ctx).Warn().Err(ferr).Msg("failed to report error")
	}

	return err
}

func optionOrDefault(invocation *domain.Invocation, name, def string) string {
	if v := invocation.Option(name); v != nil {
		return *v
	}

	return def
}

// recordEvent stores a moderation event, logging failures.
func recordEvent(ctx context.Context, audit port.AuditLog, event domain.AuditEvent) {
	if err := audit.Record(ctx, event); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("kind", string(event.Kind)).Msg("failed to record moderation event")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}
