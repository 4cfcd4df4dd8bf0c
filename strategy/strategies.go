// Package strategy keeps the registry of playable strategies. Strategies
// are either built into the binary or Lua scripts found under a search
// path; the tournament doesn't care which.
package strategy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/domino14/dilemma/game"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Factory makes a fresh, independent strategy instance.
type Factory func() (game.Strategy, error)

type entry struct {
	group   string
	factory Factory
}

// Registry maps strategy identifiers ("<group>.<name>") to factories.
// Identifiers keep their registration order.
type Registry struct {
	sync.RWMutex
	entries map[string]entry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// ID builds a strategy identifier.
func ID(group, name string) string {
	return group + "." + name
}

// Register adds a factory under group.name.
func (r *Registry) Register(group, name string, f Factory) error {
	id := ID(group, name)
	r.Lock()
	defer r.Unlock()
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("strategy %s registered twice", id)
	}
	r.entries[id] = entry{group: group, factory: f}
	r.order = append(r.order, id)
	return nil
}

// Names returns every identifier, in registration order, skipping the
// given groups.
func (r *Registry) Names(skipGroups ...string) []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if slices.Contains(skipGroups, r.entries[id].group) {
			continue
		}
		names = append(names, id)
	}
	return names
}

// Group returns the group of a registered identifier.
func (r *Registry) Group(id string) (string, bool) {
	r.RLock()
	defer r.RUnlock()
	e, ok := r.entries[id]
	return e.group, ok
}

// Load makes a new instance of the strategy. Instances never share state
// with each other.
func (r *Registry) Load(id string) (game.Strategy, error) {
	r.RLock()
	e, ok := r.entries[id]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, id)
	}
	s, err := e.factory()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", id, err)
	}
	return s, nil
}

// Release frees whatever a loaded instance holds on to.
func Release(s game.Strategy) {
	if c, ok := s.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Err(err).Msg("release-strategy")
		}
	}
}

// LoadDir registers every Lua script under root. Scripts in a
// subdirectory belong to the group named after it; scripts directly under
// root belong to the group named after root itself.
func (r *Registry) LoadDir(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading strategy path: %w", err)
	}
	rootGroup := filepath.Base(filepath.Clean(root))
	for _, de := range entries {
		p := filepath.Join(root, de.Name())
		if de.IsDir() {
			if err := r.loadGroup(p, de.Name()); err != nil {
				return err
			}
			continue
		}
		if err := r.loadScript(p, rootGroup); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadGroup(dir, group string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := r.loadScript(filepath.Join(dir, de.Name()), group); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadScript(path, group string) error {
	if filepath.Ext(path) != ScriptExt {
		return nil
	}
	name := strings.TrimSuffix(filepath.Base(path), ScriptExt)
	f, err := NewScriptFactory(path)
	if err != nil {
		return err
	}
	log.Debug().Str("group", group).Str("name", name).Msg("loaded-script-strategy")
	return r.Register(group, name, f)
}
