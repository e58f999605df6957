package command

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"actorbot/internal/core/service"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	OptionDescription = "description"
	OptionStyle       = "style"

	visualizeFileName = "visualize.png"
)

// Visualize draws a picture of a description and posts it to the channel.
type Visualize struct {
	imageGenerator port.ImageGenerator
	interactor     port.Interactor
	messenger      port.Messenger
	auth           service.Authorizer
	checker        service.ContentChecker
	audit          port.AuditLog
	command        string
}

func NewVisualize(imageGenerator port.ImageGenerator,
	interactor port.Interactor,
	messenger port.Messenger,
	auth service.Authorizer,
	checker service.ContentChecker,
	audit port.AuditLog,
	command string) *Visualize {
	return &Visualize{imageGenerator: imageGenerator,
		interactor: interactor,
		messenger:  messenger,
		auth:       auth,
		checker:    checker,
		audit:      audit,
		command:    command}
}

func (v *Visualize) GetCommand() string {
	return v.command
}

func (v *Visualize) Respond(ctx context.Context, timeout time.Duration, invocation *domain.Invocation) error {
	l := log.With().
		Str("guildId", invocation.GuildID).
		Str("channelId", invocation.ChannelID).
		Str("command", v.GetCommand()).
		Logger()

	l.Info().Msg("handling request")

	ctx, cancel := context.WithTimeout(l.WithContext(ctx), timeout)
	defer cancel()

	if !v.auth.IsAuthorized(ctx, invocation.GuildID) {
		l.Debug().Msg("not authorized")
		return v.interactor.Ephemeral(ctx, invocation, textNotAllowed)
	}

	description := strings.TrimSpace(optionOrDefault(invocation, OptionDescription, ""))
	if description == "" {
		return v.interactor.Ephemeral(ctx, invocation, "missing image description")
	}

	if err := v.interactor.Defer(ctx, invocation, true); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	target := service.Target{GuildID: invocation.GuildID, ThreadID: invocation.ChannelID,
		UserName: invocation.UserName}

	verdict, err := v.checker.Check(ctx, description, invocation.UserID)
	if err != nil {
		err = fmt.Errorf("error moderating description: %w", err)
		return v.notifyAndReturnError(ctx, invocation, err)
	}

	if verdict.IsBlocked() {
		recordEvent(ctx, v.audit, service.NewAuditEvent(target, domain.AuditBlocked, domain.SourceVisualize,
			verdict.BlockedText(), description, ""))
		return v.interactor.Followup(ctx, invocation, textPromptBlocked+description)
	}

	if verdict.IsFlagged() {
		recordEvent(ctx, v.audit, service.NewAuditEvent(target, domain.AuditFlagged, domain.SourceVisualize,
			verdict.FlaggedText(), description, ""))
	}

	go v.messenger.Typing(ctx, invocation.ChannelID)

	image, err := v.imageGenerator.GenerateImage(ctx, description, optionOrDefault(invocation, OptionStyle, ""))
	if err != nil {
		err = fmt.Errorf("error generating image: %w", err)
		return v.notifyAndReturnError(ctx, invocation, err)
	}

	caption := fmt.Sprintf("<@%s> visualized: %s", invocation.UserID, description)
	err = v.messenger.SendFile(ctx, invocation.ChannelID, visualizeFileName, image, caption)
	if err != nil {
		err = fmt.Errorf("error sending image: %w", err)
		return v.notifyAndReturnError(ctx, invocation, err)
	}

	return v.interactor.Followup(ctx, invocation, "Done!")
}

func (v *Visualize) notifyAndReturnError(ctx context.Context, invocation *domain.Invocation, err error) error {
	if ferr := v.interactor.Followup(ctx, invocation, "**Error** - "+err.Error()); ferr != nil {
		log.Ctx(ctx).Warn().Err(ferr).Msg("failed to report error")
	}

	return err
}
