// Package cache stores finished pairings so that later runs, and other
// workers in the same run, don't recompute them. Entries are addressed by
// the ordered pair of strategy identifiers and are never invalidated
// automatically: delete the store to start over.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash"

	"github.com/domino14/dilemma/game"
)

const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendMemory = "memory"
)

var ErrUnknownBackend = errors.New("unknown cache backend")

// Key is the ordered pair of strategy identifiers.
type Key struct {
	A string
	B string
}

func (k Key) String() string {
	return k.A + " vs " + k.B
}

// Entry is a stored pairing result.
type Entry struct {
	ScoreA  float64
	ScoreB  float64
	StdevA  float64
	StdevB  float64
	History *game.History
	// Report is the formatted plain-text block for the pairing.
	Report string
	// Fingerprint identifies the run settings the entry was computed with.
	Fingerprint string
}

// Backend is a cache store. Backends need not be safe for concurrent use;
// wrap them in a Shared.
type Backend interface {
	// Setup creates the schema or file if needed. Calling it again is fine.
	Setup(ctx context.Context) error
	Get(ctx context.Context, key Key) (Entry, bool, error)
	// Insert stores an entry. Inserting an existing key keeps the old entry.
	Insert(ctx context.Context, key Key, e Entry) error
	Close() error
	// DefaultPath is where the store lives when no path is configured.
	DefaultPath() string
}

// New returns an unopened backend of the given kind. An empty path means
// the backend default.
func New(kind, path string) (Backend, error) {
	switch kind {
	case BackendSQLite:
		return NewSQLite(path), nil
	case BackendJSON:
		return NewJSON(path), nil
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
}

// Remove deletes the store of the given kind. A missing store is not an
// error.
func Remove(kind, path string) error {
	b, err := New(kind, path)
	if err != nil {
		return err
	}
	if path == "" {
		path = b.DefaultPath()
	}
	if path == "" {
		return nil
	}
	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	// sqlite may leave write-ahead log files behind.
	if kind == BackendSQLite {
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
	}
	return nil
}

// Fingerprint summarizes the settings that affect a pairing's result.
func Fingerprint(runs, detTurns, minTurns int, scale float64) string {
	s := "runs=" + strconv.Itoa(runs) +
		";det=" + strconv.Itoa(detTurns) +
		";min=" + strconv.Itoa(minTurns) +
		";scale=" + strconv.FormatFloat(scale, 'g', -1, 64)
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}
