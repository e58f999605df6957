package command

import (
	"actorbot/internal/core/domain"
	"actorbot/internal/core/port"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

type Registry struct {
	commands map[string]port.Command
}

// Register adds handler under its command name. A name can only be claimed once.
func (r *Registry) Register(handler port.Command) error {
	if r.commands == nil {
		r.commands = make(map[string]port.Command)
	}

	name := handler.GetCommand()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("%w: %s", domain.ErrCommandRegistered, name)
	}

	log.Info().Str("handler", name).Msg("adding command handler to registry")
	r.commands[name] = handler
	return nil
}

func (r *Registry) Get(command string) (port.Command, error) {
	log.Debug().Str("command", command).Msg("fetching command handler from registry")

	if r.commands == nil {
		return nil, errors.New("can't fetch command, registry not initialized")
	}

	handler, ok := r.commands[command]
	if !ok {
		return nil, domain.ErrCommandNotFound
	}

	return handler, nil
}

// ListCommands returns the registered command names in sorted order.
func (r *Registry) ListCommands() []string {
	keys := make([]string, 0, len(r.commands))
	for k := range r.commands {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
