// Package tournament plays every pairing of a strategy population and
// ranks the strategies by their total score.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/dilemma/cache"
	"github.com/domino14/dilemma/config"
	"github.com/domino14/dilemma/game"
	"github.com/domino14/dilemma/oracle"
	"github.com/domino14/dilemma/stats"
	"github.com/domino14/dilemma/strategy"
)

var (
	ErrNotEnoughStrategies = errors.New("not enough strategies")
	ErrNoPairings          = errors.New("no pairings to play")
)

// Progress is reported after each pairing, in dispatch order.
type Progress struct {
	Completed int
	Total     int
	Hits      int
	Misses    int
	Runs      int
}

// Tournament holds the settings of one tournament.
type Tournament struct {
	Registry *strategy.Registry
	// Names is the strategy population, in enumeration order.
	Names []string
	// Subset optionally restricts the tournament, see Pairings.
	Subset []string

	Runs        int
	DetTurns    int
	MinTurns    int
	LengthScale float64
	Workers     int

	// Cache is shared by all workers. Nil disables caching.
	Cache *cache.Shared
	// OnProgress, if set, is called from the coordinating goroutine.
	OnProgress func(Progress)
}

// New returns a tournament over every strategy in reg not in a skipped
// group, set up from cfg.
func New(cfg *config.Config, reg *strategy.Registry, c *cache.Shared, skipGroups ...string) *Tournament {
	return &Tournament{
		Registry:    reg,
		Names:       reg.Names(skipGroups...),
		Subset:      cfg.GetStringSlice(config.ConfigStrategies),
		Runs:        cfg.GetInt(config.ConfigNumRuns),
		DetTurns:    cfg.GetInt(config.ConfigDetTurns),
		MinTurns:    cfg.GetInt(config.ConfigMinTurns),
		LengthScale: cfg.GetFloat64(config.ConfigLengthScale),
		Workers:     cfg.GetInt(config.ConfigWorkers),
		Cache:       c,
	}
}

type outcome struct {
	result PairResult
	err    error
}

// Run plays every pairing and ranks the strategies. Nothing is simulated if
// the tournament is misconfigured. The first pairing to fail stops the
// tournament and its error is returned.
func (t *Tournament) Run(ctx context.Context) (*Results, error) {
	if t.Runs < 1 {
		return nil, config.ErrBadNumRuns
	}
	pairs, err := Pairings(t.Names, t.Subset)
	if err != nil {
		return nil, err
	}
	chances, err := oracle.NewTurnChances(t.MinTurns, t.DetTurns, t.LengthScale)
	if err != nil {
		return nil, err
	}
	orc := oracle.New(chances)

	workers := t.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	log.Info().Int("pairings", len(pairs)).Int("workers", workers).
		Int("runs", t.Runs).Msg("tournament-starting")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	// One buffered slot per pairing, so no worker blocks on a coordinator
	// that already gave up.
	slots := make([]chan outcome, len(pairs))
	for i := range slots {
		slots[i] = make(chan outcome, 1)
	}
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, p := range pairs {
			g.Go(func() error {
				r, err := t.play(gctx, orc, p)
				slots[i] <- outcome{result: r, err: err}
				return err
			})
		}
	}()

	res := &Results{Runs: t.Runs, Pairs: make([]PairResult, 0, len(pairs))}
	for i := range pairs {
		o := <-slots[i]
		if o.err != nil {
			// g.Wait reports the first failure.
			break
		}
		if o.result.Cached {
			res.Hits++
		} else {
			res.Misses++
		}
		res.Pairs = append(res.Pairs, o.result)
		if t.OnProgress != nil {
			t.OnProgress(Progress{
				Completed: i + 1,
				Total:     len(pairs),
				Hits:      res.Hits,
				Misses:    res.Misses,
				Runs:      t.Runs,
			})
		}
	}
	<-dispatched
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Standings = rank(lo.Uniq(Eligible(t.Names, t.Subset)), res.Pairs)
	log.Info().Int("hits", res.Hits).Int("misses", res.Misses).Msg("tournament-finished")
	return res, nil
}

// play computes one pairing from start to finish.
func (t *Tournament) play(ctx context.Context, orc *oracle.Oracle, p Pairing) (PairResult, error) {
	if err := ctx.Err(); err != nil {
		return PairResult{}, err
	}
	key := cache.Key{A: p.A, B: p.B}
	if t.Cache != nil {
		e, ok, err := t.Cache.Get(ctx, key)
		if err != nil {
			return PairResult{}, fmt.Errorf("cache lookup for %s: %w", p, err)
		}
		if ok {
			log.Debug().Str("pair", p.String()).Msg("cache-hit")
			return fromEntry(p, e), nil
		}
	}

	start := time.Now()
	a, err := t.Registry.Load(p.A)
	if err != nil {
		return PairResult{}, err
	}
	defer strategy.Release(a)
	b, err := t.Registry.Load(p.B)
	if err != nil {
		return PairResult{}, err
	}
	defer strategy.Release(b)

	r, err := t.simulate(orc, p, a, b)
	if err != nil {
		return PairResult{}, fmt.Errorf("%s: %w", p, err)
	}
	r.Elapsed = time.Since(start)
	r.Report = FormatPair(p.A, p.B, r.History, r.ScoreA, r.ScoreB, r.StdevA, r.StdevB)
	log.Debug().Str("pair", p.String()).Bool("deterministic", r.Deterministic).
		Dur("elapsed", r.Elapsed).Msg("pairing-done")

	if t.Cache != nil {
		err := t.Cache.Insert(ctx, key, cache.Entry{
			ScoreA:  r.ScoreA,
			ScoreB:  r.ScoreB,
			StdevA:  r.StdevA,
			StdevB:  r.StdevB,
			History: r.History,
			Report:  r.Report,
		})
		if err != nil {
			return PairResult{}, fmt.Errorf("cache insert for %s: %w", p, err)
		}
	}
	return r, nil
}

// simulate scores a pairing exactly if both strategies are deterministic,
// and by sampling t.Runs rounds otherwise.
func (t *Tournament) simulate(orc *oracle.Oracle, p Pairing, a, b game.Strategy) (PairResult, error) {
	r := PairResult{A: p.A, B: p.B}
	scoreA, scoreB, h, ok, err := orc.Evaluate(a, b)
	if err != nil {
		return r, err
	}
	if ok {
		r.ScoreA, r.ScoreB = scoreA, scoreB
		r.History = h
		r.Samples = 1
		r.Deterministic = true
		return r, nil
	}

	runner := game.NewRunner(t.MinTurns, t.LengthScale)
	outcomes := make([]stats.Outcome, 0, t.Runs)
	for i := 0; i < t.Runs; i++ {
		h, err := runner.PlayRound(a, b)
		if err != nil {
			return r, err
		}
		if i == 0 {
			r.History = h
		}
		sa, sb := h.Scores()
		outcomes = append(outcomes, stats.Outcome{A: sa, B: sb})
	}
	sum := stats.Summarize(outcomes)
	r.ScoreA, r.ScoreB = sum.MeanA, sum.MeanB
	r.StdevA, r.StdevB = sum.StdevA, sum.StdevB
	r.Samples = sum.N
	return r, nil
}
