package sender

import (
	"actorbot/internal/core/domain"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

//go:generate mockery --name Session

// Session is the subset of *discordgo.Session the sender uses.
type Session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelEdit(channelID string, data *discordgo.ChannelEdit,
		options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string,
		options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart,
		options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
}

const (
	ColorWarning = 0xF1C40F
	ColorDanger  = 0xE74C3C
	ColorInfo    = 0x3498DB

	TypingRepeatInterval = 8 * time.Second

	// Discord caps channel history pages at 100 messages.
	historyPageLimit = 100
	threadArchiveMin = 60

	flaggedAnchorTitle = "⚠️ This prompt was flagged by moderation."
	// Embed field values can't be empty.
	emptyFieldValue = "\u200b"
)

type DiscordSender struct {
	session        Session
	typingInterval time.Duration
}

func NewDiscordSender(session Session) *DiscordSender {
	return &DiscordSender{session: session, typingInterval: TypingRepeatInterval}
}

func (s *DiscordSender) SendText(ctx context.Context, channelID string, text string) (string, error) {
	m, err := s.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return m.ID, nil
}

func (s *DiscordSender) SendNotice(ctx context.Context, channelID string, notice domain.Notice) error {
	_, err := s.session.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Description: notice.Text,
		Color:       noticeColor(notice.Kind),
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Error().Err(err).Str("channelId", channelID).Str("kind", string(notice.Kind)).
			Msg("failed to send notice")
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return nil
}

func noticeColor(kind domain.NoticeKind) int {
	switch kind {
	case domain.NoticeBlocked, domain.NoticeError:
		return ColorDanger
	case domain.NoticeFlagged, domain.NoticeInvalidRequest, domain.NoticeInvalidResponse:
		return ColorWarning
	default:
		return ColorInfo
	}
}

func (s *DiscordSender) SendFile(ctx context.Context, channelID string, name string, data []byte,
	caption string) error {
	_, err := s.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: caption,
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: http.DetectContentType(data),
			Reader:      bytes.NewReader(data),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Error().Err(err).Str("channelId", channelID).Msg("failed to send file")
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return nil
}

func (s *DiscordSender) DeleteMessage(ctx context.Context, channelID string, messageID string) error {
	return s.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

// Typing keeps the typing indicator up until ctx is done.
func (s *DiscordSender) Typing(ctx context.Context, channelID string) {
	l := log.With().Str("channelId", channelID).Logger()
	l.Debug().Msg("starting typing routine")

	for {
		if ctx.Err() != nil {
			l.Debug().Msg("done, stopping typing routine")
			return
		}

		if err := s.session.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
			if ctx.Err() == nil {
				l.Err(err).Msg("error sending typing indicator")
			}
			return
		}

		select {
		case <-ctx.Done():
		case <-time.After(s.typingInterval):
		}
	}
}

func (s *DiscordSender) SendAnchor(ctx context.Context, channelID string, post domain.AnchorPost) (string, error) {
	m, err := s.session.ChannelMessageSendEmbed(channelID, anchorEmbed(post), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return m.ID, nil
}

func anchorEmbed(post domain.AnchorPost) *discordgo.MessageEmbed {
	layout := post.Record.Fields()

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("<@%s> wants to chat! 🤖💬", post.UserID),
		Color:       ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: layout.Footer},
	}

	if post.Flagged {
		embed.Title = flaggedAnchorTitle
		embed.Color = ColorWarning
	}

	for _, f := range layout.Fields {
		value := f.Value
		if value == "" {
			value = emptyFieldValue
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: value})
	}

	return embed
}

func (s *DiscordSender) StartThread(ctx context.Context, channelID string, messageID string,
	name string) (domain.Thread, error) {
	ch, err := s.session.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadArchiveMin,
		RateLimitPerUser:    1,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to start thread: %w", err)
	}

	return toThread(ch), nil
}

func (s *DiscordSender) FetchThread(ctx context.Context, channelID string) (domain.Thread, error) {
	ch, err := s.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to fetch channel: %w", err)
	}

	if !ch.IsThread() {
		return domain.Thread{}, domain.ErrNotThread
	}

	return toThread(ch), nil
}

func toThread(ch *discordgo.Channel) domain.Thread {
	t := domain.Thread{
		ID:            ch.ID,
		GuildID:       ch.GuildID,
		ParentID:      ch.ParentID,
		Name:          ch.Name,
		OwnerID:       ch.OwnerID,
		MessageCount:  ch.MessageCount,
		LastMessageID: ch.LastMessageID,
	}

	if ch.ThreadMetadata != nil {
		t.Archived = ch.ThreadMetadata.Archived
		t.Locked = ch.ThreadMetadata.Locked
	}

	return t
}

// FetchAnchor reads the thread starter. A thread opened on a message shares that message's ID.
func (s *DiscordSender) FetchAnchor(ctx context.Context, thread domain.Thread) (domain.AnchorRecord, error) {
	m, err := s.session.ChannelMessage(thread.ParentID, thread.ID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.AnchorRecord{}, fmt.Errorf("failed to fetch starter message: %w", err)
	}

	if len(m.Embeds) == 0 {
		return domain.AnchorRecord{}, domain.ErrNotAnchor
	}

	embed := m.Embeds[0]
	layout := domain.AnchorFields{}
	if embed.Footer != nil {
		layout.Footer = embed.Footer.Text
	}

	for _, f := range embed.Fields {
		value := f.Value
		if value == emptyFieldValue {
			value = ""
		}

		layout.Fields = append(layout.Fields, domain.AnchorField{Name: f.Name, Value: value})
	}

	return domain.DecodeAnchor(layout)
}

func (s *DiscordSender) FetchHistory(ctx context.Context, threadID string, limit int) ([]domain.ChatMessage,
	error) {
	if limit <= 0 || limit > historyPageLimit {
		limit = historyPageLimit
	}

	messages, err := s.session.ChannelMessages(threadID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread messages: %w", err)
	}

	history := make([]domain.ChatMessage, len(messages))
	for i, m := range messages {
		history[len(messages)-1-i] = ToChatMessage(m)
	}

	return history, nil
}

func (s *DiscordSender) LastMessage(ctx context.Context, channelID string) (domain.ChatMessage, error) {
	messages, err := s.session.ChannelMessages(channelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("failed to fetch last message: %w", err)
	}

	if len(messages) == 0 {
		return domain.ChatMessage{}, nil
	}

	return ToChatMessage(messages[0]), nil
}

// CloseThread renames before archiving since archived threads can't be edited.
func (s *DiscordSender) CloseThread(ctx context.Context, threadID string) error {
	ch, err := s.session.Channel(threadID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to fetch thread: %w", err)
	}

	name := domain.InactiveThreadPrefix + strings.TrimPrefix(ch.Name, domain.ActiveThreadPrefix)
	if _, err := s.session.ChannelEdit(threadID, &discordgo.ChannelEdit{Name: name},
		discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to rename thread: %w", err)
	}

	closed := true
	if _, err := s.session.ChannelEdit(threadID, &discordgo.ChannelEdit{Archived: &closed, Locked: &closed},
		discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to archive thread: %w", err)
	}

	log.Info().Str("threadId", threadID).Str("name", name).Msg("thread closed")
	return nil
}

// ToChatMessage converts a gateway or REST message.
func ToChatMessage(m *discordgo.Message) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         m.GuildID,
		Content:         m.Content,
		IsThreadStarter: m.Type == discordgo.MessageTypeThreadStarterMessage,
	}

	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = DisplayName(m.Author, m.Member)
	}

	if m.GuildID != "" {
		msg.URL = fmt.Sprintf("https://discord.com/channels/%s/%s/%s", m.GuildID, m.ChannelID, m.ID)
	}

	return msg
}

// DisplayName prefers the guild nickname, then the global display name.
func DisplayName(user *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}

	if user.GlobalName != "" {
		return user.GlobalName
	}

	return user.Username
}

func interaction(invocation *domain.Invocation) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:    invocation.InteractionID,
		AppID: invocation.AppID,
		Token: invocation.Token,
	}
}

func (s *DiscordSender) Defer(ctx context.Context, invocation *domain.Invocation, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return s.session.InteractionRespond(interaction(invocation), &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
}

func (s *DiscordSender) Followup(ctx context.Context, invocation *domain.Invocation, text string) error {
	_, err := s.session.FollowupMessageCreate(interaction(invocation), true, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Error().Err(err).Str("command", invocation.Command).Msg("failed to send followup")
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return nil
}

func (s *DiscordSender) Ephemeral(ctx context.Context, invocation *domain.Invocation, text string) error {
	return s.session.InteractionRespond(interaction(invocation), &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
}
