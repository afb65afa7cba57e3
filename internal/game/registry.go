package game

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// ErrDuplicateGame is returned when a command is already registered.
var ErrDuplicateGame = errors.New("game command already registered")

// Telegram bot commands: lowercase latin letters, digits and underscores.
var commandPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// Registry maps bot commands to games.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Game
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]Game)}
}

// Register adds g under its command.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return errors.New("cannot register nil game")
	}
	cmd := g.Command()
	if !commandPattern.MatchString(cmd) {
		return fmt.Errorf("invalid game command %q", cmd)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[cmd]; ok {
		return fmt.Errorf("%w: /%s", ErrDuplicateGame, cmd)
	}
	r.games[cmd] = g
	return nil
}

// Get looks a game up by command, with or without the leading slash.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[strings.TrimPrefix(command, "/")]
	return g, ok
}

// List returns the registered games ordered by command.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	slices.SortFunc(games, func(a, b Game) int {
		return strings.Compare(a.Command(), b.Command())
	})
	return games
}

// Commands returns the registered commands in sorted order.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]string, 0, len(r.games))
	for cmd := range r.games {
		commands = append(commands, cmd)
	}
	slices.Sort(commands)
	return commands
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
