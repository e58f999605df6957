package port

import (
	"actorbot/internal/core/domain"
	"context"
	"time"
)

type Command interface {
	// Respond handles a slash command invocation within the given timeout.
	Respond(ctx context.Context, timeout time.Duration, invocation *domain.Invocation) error
	// GetCommand returns the slash command name the handler is registered under.
	GetCommand() string
}

type CommandRegistry interface {
	// Register adds a new command handler, failing if its name is taken.
	Register(handler Command) error
	// Get retrieves a registered Command by name or returns domain.ErrCommandNotFound.
	Get(command string) (Command, error)
	// ListCommands returns the names of all registered commands.
	ListCommands() []string
}
