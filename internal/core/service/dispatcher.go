package service

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

type ActionKind int

const (
	ActionSendText ActionKind = iota
	ActionNotice
	ActionAudit
	ActionCloseThread
)

// Action is one side effect of a completion result.
type Action struct {
	Kind   ActionKind
	Text   string
	Notice domain.Notice
	Audit  domain.AuditKind
}

// Target is where a completion result is delivered.
type Target struct {
	GuildID  string
	ThreadID string
	UserName string
}

const (
	textInvalidResponse = "**Invalid response** - empty response"
	textFlagged         = "⚠️ **This conversation has been flagged by moderation.**"
	textBlocked         = "❌ **The response has been blocked by moderation.**"
	textInvalidRequest  = "**Invalid request** - "
	textError           = "**Error** - "
	textThreadClosed    = "**Thread closed** - Context limit reached, closing..."
)

// Dispatcher renders completion results into the thread.
type Dispatcher struct {
	messenger port.Messenger
	audit     port.AuditLog
	maxChars  int
}

func NewDispatcher(messenger port.Messenger, audit port.AuditLog) *Dispatcher {
	maxChars := viper.GetInt("chat.max_reply_chars")
	if maxChars <= 0 {
		maxChars = domain.MaxCharsPerReply
	}

	return &Dispatcher{
		messenger: messenger,
		audit:     audit,
		maxChars:  maxChars,
	}
}

// Plan maps a completion result to its ordered side effects.
func (d *Dispatcher) Plan(data domain.CompletionData) []Action {
	switch data.Status {
	case domain.CompletionOK, domain.CompletionModerationFlagged:
		var actions []Action
		if data.ReplyText == "" {
			actions = append(actions, noticeAction(domain.NoticeInvalidResponse, textInvalidResponse))
		}

		for _, chunk := range domain.SplitIntoChunks(data.ReplyText, d.maxChars) {
			actions = append(actions, Action{Kind: ActionSendText, Text: chunk})
		}

		if data.Status == domain.CompletionModerationFlagged {
			actions = append(actions,
				Action{Kind: ActionAudit, Audit: domain.AuditFlagged, Text: data.StatusText},
				noticeAction(domain.NoticeFlagged, textFlagged))
		}

		return actions
	case domain.CompletionModerationBlocked:
		return []Action{
			{Kind: ActionAudit, Audit: domain.AuditBlocked, Text: data.StatusText},
			noticeAction(domain.NoticeBlocked, textBlocked),
		}
	case domain.CompletionTooLong:
		return []Action{{Kind: ActionCloseThread}}
	case domain.CompletionInvalidRequest:
		return []Action{noticeAction(domain.NoticeInvalidRequest, textInvalidRequest+data.StatusText)}
	default:
		return []Action{noticeAction(domain.NoticeError, textError+data.StatusText)}
	}
}

func noticeAction(kind domain.NoticeKind, text string) Action {
	return Action{Kind: ActionNotice, Notice: domain.Notice{Kind: kind, Text: text}}
}

// Dispatch executes the plan for data. Failing actions don't stop the remaining ones; their errors are
// returned together.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, data domain.CompletionData) error {
	var result error
	lastURL := ""

	for _, action := range d.Plan(data) {
		var err error

		switch action.Kind {
		case ActionSendText:
			var id string
			id, err = d.messenger.SendText(ctx, target.ThreadID, action.Text)
			if err == nil {
				lastURL = MessageURL(target.GuildID, target.ThreadID, id)
			}
		case ActionNotice:
			err = d.messenger.SendNotice(ctx, target.ThreadID, action.Notice)
		case ActionAudit:
			err = d.audit.Record(ctx, NewAuditEvent(target, action.Audit, domain.SourceResponse, action.Text,
				data.ReplyText, lastURL))
		case ActionCloseThread:
			err = CloseThread(ctx, d.messenger, target.ThreadID)
		}

		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// CloseThread posts the closing notice and deactivates the thread.
func CloseThread(ctx context.Context, messenger port.Messenger, threadID string) error {
	var result error
	if err := messenger.SendNotice(ctx, threadID, domain.Notice{Kind: domain.NoticeClosed,
		Text: textThreadClosed}); err != nil {
		result = multierror.Append(result, err)
	}

	if err := messenger.CloseThread(ctx, threadID); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close thread: %w", err))
	}

	return result
}

// NewAuditEvent stamps a moderation event with a fresh ID.
func NewAuditEvent(target Target, kind domain.AuditKind, source domain.AuditSource, categories, content,
	url string) domain.AuditEvent {
	return domain.AuditEvent{
		ID:         uuid.Must(uuid.NewV4()).String(),
		GuildID:    target.GuildID,
		ChannelID:  target.ThreadID,
		UserName:   target.UserName,
		Kind:       kind,
		Source:     source,
		Categories: categories,
		Content:    content,
		URL:        url,
		CreatedAt:  time.Now().UTC(),
	}
}

// MessageURL is the jump link of a message.
func MessageURL(guildID, channelID, messageID string) string {
	if messageID == "" {
		return ""
	}

	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}
