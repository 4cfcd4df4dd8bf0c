package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/domino14/dilemma/game"
)

const DefaultJSONPath = "cache.json"

type jsonEntry struct {
	A           string        `json:"a"`
	B           string        `json:"b"`
	ScoreA      float64       `json:"scoreA"`
	ScoreB      float64       `json:"scoreB"`
	StdevA      float64       `json:"stdevA"`
	StdevB      float64       `json:"stdevB"`
	History     *game.History `json:"history"`
	Report      string        `json:"report"`
	Fingerprint string        `json:"fingerprint,omitempty"`
}

type jsonDocument struct {
	Pairings []jsonEntry `json:"pairings"`
}

// JSON keeps every pairing in one JSON document, read on Setup and
// rewritten on each insert.
type JSON struct {
	path    string
	entries map[Key]Entry
	order   []Key
}

func NewJSON(path string) *JSON {
	return &JSON{path: path}
}

func (j *JSON) DefaultPath() string { return DefaultJSONPath }

func (j *JSON) file() string {
	if j.path == "" {
		return j.DefaultPath()
	}
	return j.path
}

func (j *JSON) Setup(ctx context.Context) error {
	j.entries = make(map[Key]Entry)
	j.order = nil
	bts, err := os.ReadFile(j.file())
	if errors.Is(err, os.ErrNotExist) {
		return j.write()
	}
	if err != nil {
		return err
	}
	var doc jsonDocument
	if err := json.Unmarshal(bts, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", j.file(), err)
	}
	for _, p := range doc.Pairings {
		k := Key{A: p.A, B: p.B}
		if _, ok := j.entries[k]; ok {
			continue
		}
		j.entries[k] = Entry{
			ScoreA: p.ScoreA, ScoreB: p.ScoreB,
			StdevA: p.StdevA, StdevB: p.StdevB,
			History: p.History, Report: p.Report,
			Fingerprint: p.Fingerprint,
		}
		j.order = append(j.order, k)
	}
	return nil
}

func (j *JSON) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if j.entries == nil {
		return Entry{}, false, errors.New("storage is not set up")
	}
	e, ok := j.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	return cloned(e), true, nil
}

func (j *JSON) Insert(ctx context.Context, key Key, e Entry) error {
	if j.entries == nil {
		return errors.New("storage is not set up")
	}
	if _, ok := j.entries[key]; ok {
		return nil
	}
	j.entries[key] = cloned(e)
	j.order = append(j.order, key)
	return j.write()
}

// write replaces the file atomically.
func (j *JSON) write() error {
	doc := jsonDocument{Pairings: make([]jsonEntry, 0, len(j.order))}
	for _, k := range j.order {
		e := j.entries[k]
		doc.Pairings = append(doc.Pairings, jsonEntry{
			A: k.A, B: k.B,
			ScoreA: e.ScoreA, ScoreB: e.ScoreB,
			StdevA: e.StdevA, StdevB: e.StdevB,
			History: e.History, Report: e.Report,
			Fingerprint: e.Fingerprint,
		})
	}
	bts, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	path := j.file()
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(bts); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (j *JSON) Close() error {
	j.entries = nil
	j.order = nil
	return nil
}
