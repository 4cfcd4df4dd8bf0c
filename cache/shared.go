package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Shared is the one handle to a backend that every worker gets. A single
// mutex serializes all reads and writes, so a key is only ever stored once.
// Two workers may still both miss on the same key and compute it.
type Shared struct {
	sync.Mutex
	backend     Backend
	fingerprint string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewShared wraps b. Entries inserted through it are tagged with
// fingerprint.
func NewShared(b Backend, fingerprint string) *Shared {
	return &Shared{backend: b, fingerprint: fingerprint}
}

func (s *Shared) Setup(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()
	return s.backend.Setup(ctx)
}

// Get looks key up. An entry computed with other settings is still
// returned; the mismatch is only logged.
func (s *Shared) Get(ctx context.Context, key Key) (Entry, bool, error) {
	s.Lock()
	e, ok, err := s.backend.Get(ctx, key)
	s.Unlock()
	if err != nil {
		return Entry{}, false, err
	}
	if !ok {
		s.misses.Add(1)
		return Entry{}, false, nil
	}
	s.hits.Add(1)
	if e.Fingerprint != "" && e.Fingerprint != s.fingerprint {
		log.Warn().Str("key", key.String()).Str("stored", e.Fingerprint).
			Str("current", s.fingerprint).Msg("cache-entry-from-other-settings")
	}
	return e, true, nil
}

// Insert stores e under key unless the key is already present.
func (s *Shared) Insert(ctx context.Context, key Key, e Entry) error {
	e.Fingerprint = s.fingerprint
	s.Lock()
	defer s.Unlock()
	_, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		log.Debug().Str("key", key.String()).Msg("cache-insert-skipped")
		return nil
	}
	return s.backend.Insert(ctx, key, e)
}

func (s *Shared) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.backend.Close()
}

func (s *Shared) Hits() int64   { return s.hits.Load() }
func (s *Shared) Misses() int64 { return s.misses.Load() }
