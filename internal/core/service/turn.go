package service

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultDebounce          = 3 * time.Second
	defaultMaxThreadMessages = 50
)

type Generator interface {
	Generate(ctx context.Context, in CompletionInput) domain.CompletionData
}

type ResponseDispatcher interface {
	Dispatch(ctx context.Context, target Target, data domain.CompletionData) error
}

// Turn answers messages posted in the bot's conversation threads.
type Turn struct {
	messenger   port.Messenger
	auth        Authorizer
	checker     ContentChecker
	generator   Generator
	dispatcher  ResponseDispatcher
	audit       port.AuditLog
	botID       string
	botName     string
	debounce    time.Duration
	maxMessages int
}

type TurnParams struct {
	Messenger  port.Messenger
	Auth       Authorizer
	Checker    ContentChecker
	Generator  Generator
	Dispatcher ResponseDispatcher
	Audit      port.AuditLog
	BotID      string
	BotName    string
}

func NewTurn(p TurnParams) *Turn {
	debounce := defaultDebounce
	if viper.IsSet("chat.debounce") {
		debounce = viper.GetDuration("chat.debounce")
	}

	maxMessages := viper.GetInt("chat.max_thread_messages")
	if maxMessages <= 0 {
		maxMessages = defaultMaxThreadMessages
	}

	return &Turn{
		messenger:   p.Messenger,
		auth:        p.Auth,
		checker:     p.Checker,
		generator:   p.Generator,
		dispatcher:  p.Dispatcher,
		audit:       p.Audit,
		botID:       p.BotID,
		botName:     p.BotName,
		debounce:    debounce,
		maxMessages: maxMessages,
	}
}

// HandleMessage runs one turn for a message posted in a channel. Messages outside active bot threads are
// ignored.
func (t *Turn) HandleMessage(ctx context.Context, msg domain.ChatMessage) error {
	if msg.AuthorID == t.botID {
		return nil
	}

	l := log.With().
		Str("turnId", uuid.Must(uuid.NewV4()).String()).
		Str("guildId", msg.GuildID).
		Str("threadId", msg.ChannelID).
		Str("messageId", msg.ID).
		Logger()
	ctx = l.WithContext(ctx)

	if !t.auth.IsAuthorized(ctx, msg.GuildID) {
		return nil
	}

	thread, err := t.messenger.FetchThread(ctx, msg.ChannelID)
	if errors.Is(err, domain.ErrNotThread) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch thread: %w", err)
	}

	if thread.OwnerID != t.botID || !thread.IsActive() {
		l.Trace().Str("name", thread.Name).Msg("ignoring thread")
		return nil
	}

	if thread.MessageCount > t.maxMessages {
		l.Info().Int("count", thread.MessageCount).Msg("message limit reached, closing thread")
		return CloseThread(ctx, t.messenger, thread.ID)
	}

	target := Target{GuildID: msg.GuildID, ThreadID: thread.ID, UserName: msg.AuthorName}

	proceed, err := t.moderateInput(ctx, &l, target, msg)
	if err != nil || !proceed {
		return err
	}

	if t.debounce > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.debounce):
		}

		if t.isStale(ctx, &l, msg) {
			l.Debug().Msg("newer message arrived, skipping")
			return nil
		}
	}

	l.Info().Str("author", msg.AuthorName).Str("thread", thread.Name).Msg("processing thread message")

	record, err := t.messenger.FetchAnchor(ctx, thread)
	if err != nil {
		return fmt.Errorf("failed to load conversation anchor: %w", err)
	}

	history, err := t.messenger.FetchHistory(ctx, thread.ID, t.maxMessages)
	if err != nil {
		return fmt.Errorf("failed to load thread history: %w", err)
	}

	typingCtx, stopTyping := context.WithCancel(ctx)
	go t.messenger.Typing(typingCtx, thread.ID)

	data := t.generator.Generate(ctx, CompletionInput{
		BotName:      t.botName,
		Instructions: record.Instructions,
		Preprompt:    record.Preprompt,
		History:      conversationFromHistory(record.Instructions, history, t.botID, t.botName).Messages,
		User:         msg.AuthorID,
		Config:       record.Config,
	})
	stopTyping()

	l.Debug().Stringer("status", data.Status).Msg("completion finished")

	if t.isStale(ctx, &l, msg) {
		l.Debug().Msg("newer message arrived during completion, dropping response")
		return nil
	}

	return t.dispatcher.Dispatch(ctx, target, data)
}

// moderateInput reports whether the turn continues after checking the triggering message.
func (t *Turn) moderateInput(ctx context.Context, l *zerolog.Logger, target Target,
	msg domain.ChatMessage) (bool, error) {
	verdict, err := t.checker.Check(ctx, msg.Content, msg.AuthorID)
	if err != nil {
		return false, fmt.Errorf("failed to moderate message: %w", err)
	}

	switch {
	case verdict.IsBlocked():
		t.record(ctx, l, NewAuditEvent(target, domain.AuditBlocked, domain.SourceInput, verdict.BlockedText(),
			msg.Content, ""))

		notice := domain.Notice{Kind: domain.NoticeBlocked,
			Text: "❌ **" + msg.AuthorName + "'s message has been deleted by moderation.**"}
		if err := t.messenger.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			l.Warn().Err(err).Msg("failed to delete blocked message")
			notice.Text = "❌ **" + msg.AuthorName + "'s message has been blocked by moderation but could not " +
				"be deleted. Missing Manage Messages permission in this Channel.**"
		}

		return false, t.messenger.SendNotice(ctx, msg.ChannelID, notice)
	case verdict.IsFlagged():
		t.record(ctx, l, NewAuditEvent(target, domain.AuditFlagged, domain.SourceInput, verdict.FlaggedText(),
			msg.Content, msg.URL))

		err := t.messenger.SendNotice(ctx, msg.ChannelID, domain.Notice{Kind: domain.NoticeFlagged,
			Text: "⚠️ **" + msg.AuthorName + "'s message has been flagged by moderation.**"})
		if err != nil {
			l.Warn().Err(err).Msg("failed to send flagged notice")
		}
	}

	return true, nil
}

func (t *Turn) record(ctx context.Context, l *zerolog.Logger, event domain.AuditEvent) {
	if err := t.audit.Record(ctx, event); err != nil {
		l.Error().Err(err).Str("kind", string(event.Kind)).Msg("failed to record moderation event")
	}
}

func (t *Turn) isStale(ctx context.Context, l *zerolog.Logger, msg domain.ChatMessage) bool {
	last, err := t.messenger.LastMessage(ctx, msg.ChannelID)
	if err != nil {
		l.Warn().Err(err).Msg("failed to fetch last message")
		return false
	}

	return IsLastMessageStale(msg, last, t.botID)
}

// IsLastMessageStale reports whether someone other than the bot posted after trigger.
func IsLastMessageStale(trigger, last domain.ChatMessage, botID string) bool {
	return last.ID != "" &&
		last.ID != trigger.ID &&
		last.AuthorID != "" &&
		last.AuthorID != botID
}

// conversationFromHistory drops empty messages and the thread starter, then prepends the setting.
// The bot's own messages are spoken by botName whatever its Discord display name is.
func conversationFromHistory(instructions string, history []domain.ChatMessage,
	botID, botName string) *domain.Conversation {
	c := domain.NewConversation()
	for _, m := range history {
		if m.AuthorID == botID {
			m.AuthorName = botName
		}

		if msg, ok := m.ToMessage(); ok {
			c.Append(msg)
		}
	}

	return c.Prepend(domain.NewMessage(domain.SystemSpeaker, instructions))
}
