package domain

import (
	"strings"
	"time"
)

// ChatMessage is a platform message as seen by the turn pipeline.
type ChatMessage struct {
	ID              string
	ChannelID       string
	GuildID         string
	AuthorID        string
	AuthorName      string
	Content         string
	URL             string
	IsThreadStarter bool
}

// ToMessage converts a platform message into a prompt message. Empty messages are skipped.
func (m ChatMessage) ToMessage() (Message, bool) {
	if m.Content == "" || m.IsThreadStarter {
		return Message{}, false
	}

	return NewMessage(m.AuthorName, m.Content), true
}

// Thread is a conversation thread opened from an anchor message.
type Thread struct {
	ID            string
	GuildID       string
	ParentID      string
	Name          string
	OwnerID       string
	MessageCount  int
	Archived      bool
	Locked        bool
	LastMessageID string
}

const (
	ActiveThreadPrefix   = "💬✅"
	InactiveThreadPrefix = "💬❌"
)

// IsActive reports whether the bot still replies in the thread.
func (t Thread) IsActive() bool {
	return !t.Archived && !t.Locked && strings.HasPrefix(t.Name, ActiveThreadPrefix)
}

// ThreadName builds the name of a new conversation thread.
func ThreadName(user, instructions string) string {
	return ActiveThreadPrefix + " " + truncateRunes(user, 20) + " - " + truncateRunes(instructions, 30)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

// NoticeKind selects the wording and colour of a notice.
type NoticeKind string

const (
	NoticeInvalidResponse NoticeKind = "invalid_response"
	NoticeInvalidRequest  NoticeKind = "invalid_request"
	NoticeError           NoticeKind = "error"
	NoticeFlagged         NoticeKind = "flagged"
	NoticeBlocked         NoticeKind = "blocked"
	NoticeClosed          NoticeKind = "closed"
	NoticeInfo            NoticeKind = "info"
)

// Notice is a status message shown in a channel, separate from conversation content.
type Notice struct {
	Kind NoticeKind
	Text string
}

// AuditEvent records moderated content.
type AuditEvent struct {
	ID         string
	GuildID    string
	ChannelID  string
	UserName   string
	Kind       AuditKind
	Source     AuditSource
	Categories string
	Content    string
	URL        string
	CreatedAt  time.Time
}

// Invocation is a slash command call.
type Invocation struct {
	InteractionID string
	Token         string
	AppID         string
	GuildID       string
	ChannelID     string
	UserID        string
	UserName      string
	Command       string
	Options       map[string]string
}

// Option returns a command option, nil when it wasn't given.
func (i *Invocation) Option(name string) *string {
	v, ok := i.Options[name]
	if !ok {
		return nil
	}

	return &v
}
