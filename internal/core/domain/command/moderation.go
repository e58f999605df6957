package command

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"actorbot/internal/core/service"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	OptionLimit = "limit"

	defaultModerationLimit = 10
	maxModerationLimit     = 25
	// discord rejects messages above 2000 characters
	maxListingChars = 1900
)

// ModerationLog lists the latest moderation events of a guild.
type ModerationLog struct {
	interactor port.Interactor
	reader     port.AuditReader
	auth       service.Authorizer
	command    string
}

func NewModerationLog(interactor port.Interactor, reader port.AuditReader, auth service.Authorizer,
	command string) *ModerationLog {
	return &ModerationLog{
		interactor: interactor,
		reader:     reader,
		auth:       auth,
		command:    command,
	}
}

func (m *ModerationLog) GetCommand() string {
	return m.command
}

func (m *ModerationLog) Respond(ctx context.Context, timeout time.Duration, invocation *domain.Invocation) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !m.auth.IsAuthorized(ctx, invocation.GuildID) {
		return m.interactor.Ephemeral(ctx, invocation, textNotAllowed)
	}

	limit := parseLimit(invocation.Option(OptionLimit))
	log.Debug().Str("guildId", invocation.GuildID).Int("limit", limit).Msg("listing moderation events")

	events, err := m.reader.Recent(ctx, invocation.GuildID, limit)
	if err != nil {
		_ = m.interactor.Ephemeral(ctx, invocation, "**Error** - failed to load moderation events")
		return fmt.Errorf("failed to load moderation events: %w", err)
	}

	return m.interactor.Ephemeral(ctx, invocation, FormatEvents(events))
}

func parseLimit(raw *string) int {
	if raw == nil {
		return defaultModerationLimit
	}

	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil || n < 1 {
		return defaultModerationLimit
	}

	return min(n, maxModerationLimit)
}

// FormatEvents renders events one per line, cut to fit a single message.
func FormatEvents(events []domain.AuditEvent) string {
	if len(events) == 0 {
		return "No moderation events recorded."
	}

	var b strings.Builder
	for _, e := range events {
		line := fmt.Sprintf("`%s` **%s** %s by %s: %s",
			e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.Kind, e.Source, e.UserName, e.Categories)
		if e.URL != "" {
			line += " " + e.URL
		}

		if b.Len()+len(line)+1 > maxListingChars {
			break
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}
