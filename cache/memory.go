package cache

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Memory keeps entries in a map for the life of the process.
type Memory struct {
	objects map[Key]Entry
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[Key]Entry)}
}

func (m *Memory) Setup(ctx context.Context) error {
	if m.objects == nil {
		m.objects = make(map[Key]Entry)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, key Key) (Entry, bool, error) {
	e, ok := m.objects[key]
	if !ok {
		return Entry{}, false, nil
	}
	log.Debug().Str("key", key.String()).Msg("getting obj from cache")
	return cloned(e), true, nil
}

func (m *Memory) Insert(ctx context.Context, key Key, e Entry) error {
	if _, ok := m.objects[key]; ok {
		return nil
	}
	m.objects[key] = cloned(e)
	return nil
}

// Histories are stored by value so callers can't change an entry.
func cloned(e Entry) Entry {
	if e.History != nil {
		e.History = e.History.Clone()
	}
	return e
}

func (m *Memory) Close() error { return nil }

func (m *Memory) DefaultPath() string { return "" }

func (m *Memory) Len() int { return len(m.objects) }
