// Package report writes the outputs of a finished tournament.
package report

import (
	"cmp"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/domino14/dilemma/tournament"
)

const (
	ResultsFile = "results.txt"
	SummaryFile = "summary.txt"
	ProfileFile = "profile.txt"
	JSONFile    = "results.json"
	YAMLFile    = "results.yaml"
	HTMLFile    = "results.html"

	// Placeholder replaced by the JSON document in the viewer template.
	Placeholder = "$results"

	nameWidth = 16
)

//go:embed viewer-template.html
var defaultTemplate string

type Options struct {
	// ViewerTemplate is an HTML template path; empty means the built-in one.
	ViewerTemplate string
	YAML           bool
}

type Player struct {
	Name     string  `json:"name" yaml:"name"`
	AvgScore float64 `json:"avgScore" yaml:"avgScore"`
	Stdev    float64 `json:"stdev" yaml:"stdev"`
	History  []int   `json:"history" yaml:"history,flow"`
}

type Pair struct {
	PlayerA Player `json:"playerA" yaml:"playerA"`
	PlayerB Player `json:"playerB" yaml:"playerB"`
	Cached  bool   `json:"cached" yaml:"cached"`
}

type Strategy struct {
	Name     string  `json:"name" yaml:"name"`
	Rank     int     `json:"rank" yaml:"rank"`
	Score    float64 `json:"score" yaml:"score"`
	AvgScore float64 `json:"avgScore" yaml:"avgScore"`
	// Time is in seconds.
	Time float64 `json:"time" yaml:"time"`
	CI95 float64 `json:"ci95" yaml:"ci95"`
}

// Document is the machine-readable form of the results.
type Document struct {
	Results    []Pair     `json:"results" yaml:"results"`
	Strategies []Strategy `json:"strategies" yaml:"strategies"`
}

func NewDocument(r *tournament.Results) Document {
	doc := Document{
		Results:    make([]Pair, 0, len(r.Pairs)),
		Strategies: make([]Strategy, 0, len(r.Standings)),
	}
	for _, p := range r.Pairs {
		var ha, hb []int
		if p.History != nil {
			ha, hb = p.History.Codes(0), p.History.Codes(1)
		}
		doc.Results = append(doc.Results, Pair{
			PlayerA: Player{Name: p.A, AvgScore: p.ScoreA, Stdev: p.StdevA, History: ha},
			PlayerB: Player{Name: p.B, AvgScore: p.ScoreB, Stdev: p.StdevB, History: hb},
			Cached:  p.Cached,
		})
	}
	for _, s := range r.Standings {
		doc.Strategies = append(doc.Strategies, Strategy{
			Name:     s.Name,
			Rank:     s.Rank,
			Score:    s.Score,
			AvgScore: s.Average,
			Time:     s.Time.Seconds(),
			CI95:     s.CI95,
		})
	}
	return doc
}

// Pad right-pads s with spaces to n characters.
func Pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

// WriteSummary writes one ranked line per strategy.
func WriteSummary(w io.Writer, r *tournament.Results) error {
	for _, s := range r.Standings {
		_, err := fmt.Fprintf(w, "#%d: %s%.3f  (%.3f average)\n",
			s.Rank, Pad(s.Name+":", nameWidth), s.Score, s.Average)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteResults writes every pairing block followed by the total scores.
func WriteResults(w io.Writer, r *tournament.Results) error {
	for _, p := range r.Pairs {
		if _, err := io.WriteString(w, p.Report); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n\nTOTAL SCORES\n"); err != nil {
		return err
	}
	return WriteSummary(w, r)
}

// WriteProfile writes strategy compute times, slowest first.
func WriteProfile(w io.Writer, r *tournament.Results) error {
	st := slices.Clone(r.Standings)
	slices.SortStableFunc(st, func(a, b tournament.Standing) int {
		return cmp.Compare(b.Time, a.Time)
	})
	for _, s := range st {
		if _, err := fmt.Fprintf(w, "%s: %.3f sec\n", s.Name, s.Time.Seconds()); err != nil {
			return err
		}
	}
	return nil
}

func WriteJSON(w io.Writer, doc Document) error {
	return json.NewEncoder(w).Encode(doc)
}

func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// WriteHTML substitutes the JSON document into tmpl.
func WriteHTML(w io.Writer, tmpl string, doc Document) error {
	bts, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, strings.ReplaceAll(tmpl, Placeholder, string(bts)))
	return err
}

// DefaultTemplate returns the built-in viewer template.
func DefaultTemplate() string {
	return defaultTemplate
}

// WriteAll writes every report into dir.
func WriteAll(dir string, r *tournament.Results, opts Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpl := defaultTemplate
	if opts.ViewerTemplate != "" {
		bts, err := os.ReadFile(opts.ViewerTemplate)
		if err != nil {
			return fmt.Errorf("reading viewer template: %w", err)
		}
		tmpl = string(bts)
	}
	doc := NewDocument(r)

	outputs := []output{
		{ResultsFile, func(w io.Writer) error { return WriteResults(w, r) }},
		{SummaryFile, func(w io.Writer) error { return WriteSummary(w, r) }},
		{ProfileFile, func(w io.Writer) error { return WriteProfile(w, r) }},
		{JSONFile, func(w io.Writer) error { return WriteJSON(w, doc) }},
		{HTMLFile, func(w io.Writer) error { return WriteHTML(w, tmpl, doc) }},
	}
	if opts.YAML {
		outputs = append(outputs, output{YAMLFile, func(w io.Writer) error { return WriteYAML(w, doc) }})
	}
	for _, o := range outputs {
		if err := writeFile(filepath.Join(dir, o.name), o.write); err != nil {
			return err
		}
	}
	log.Info().Str("dir", dir).Msg("reports-written")
	return nil
}

type output struct {
	name  string
	write func(io.Writer) error
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
