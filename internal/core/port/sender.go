package port

import (
	"actorbot/internal/core/domain"
	"context"
)

type Messenger interface {
	// SendText posts plain text to a channel or thread and returns the message ID.
	SendText(ctx context.Context, channelID string, text string) (string, error)
	// SendNotice posts a status notice, visually distinct from conversation content.
	SendNotice(ctx context.Context, channelID string, notice domain.Notice) error
	// SendFile posts an attachment with an optional caption.
	SendFile(ctx context.Context, channelID string, name string, data []byte, caption string) error
	DeleteMessage(ctx context.Context, channelID string, messageID string) error
	Typing(ctx context.Context, channelID string)

	// SendAnchor posts the anchor message carrying a conversation's record and returns its message ID.
	SendAnchor(ctx context.Context, channelID string, post domain.AnchorPost) (string, error)
	// StartThread opens a thread on an existing message.
	StartThread(ctx context.Context, channelID string, messageID string, name string) (domain.Thread, error)
	// FetchThread returns domain.ErrNotThread when the channel is not a thread.
	FetchThread(ctx context.Context, channelID string) (domain.Thread, error)
	// FetchAnchor returns the record stored on the thread's starter message, or domain.ErrNotAnchor.
	FetchAnchor(ctx context.Context, thread domain.Thread) (domain.AnchorRecord, error)
	// FetchHistory returns up to limit messages of a thread, oldest first.
	FetchHistory(ctx context.Context, threadID string, limit int) ([]domain.ChatMessage, error)
	// LastMessage returns the most recent message of a channel.
	LastMessage(ctx context.Context, channelID string) (domain.ChatMessage, error)
	// CloseThread renames a thread to its inactive prefix, then archives and locks it.
	CloseThread(ctx context.Context, threadID string) error
}

type Interactor interface {
	// Defer acknowledges an invocation so a followup can be sent later.
	Defer(ctx context.Context, invocation *domain.Invocation, ephemeral bool) error
	// Followup sends a followup message for a deferred invocation.
	Followup(ctx context.Context, invocation *domain.Invocation, text string) error
	// Ephemeral answers an invocation right away with a message only the invoking user sees.
	Ephemeral(ctx context.Context, invocation *domain.Invocation, text string) error
}

type AuditLog interface {
	// Record stores a moderation event.
	Record(ctx context.Context, event domain.AuditEvent) error
}

type AuditReader interface {
	// Recent returns the newest events of a guild, newest first.
	Recent(ctx context.Context, guildID string, limit int) ([]domain.AuditEvent, error)
}
