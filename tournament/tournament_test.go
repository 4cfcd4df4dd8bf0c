package tournament

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/dilemma/cache"
	"github.com/domino14/dilemma/config"
	"github.com/domino14/dilemma/game"
	"github.com/domino14/dilemma/strategy"
)

const (
	coop   = "builtin.alwaysCooperate"
	defect = "builtin.alwaysDefect"
	tft    = "builtin.titForTat"
	tf2t   = "builtin.titForTwoTats"
	rnd    = "builtin.random"
)

func registry(t *testing.T) *strategy.Registry {
	r := strategy.NewRegistry()
	require.NoError(t, strategy.RegisterBuiltins(r))
	return r
}

func newTournament(reg *strategy.Registry, subset ...string) *Tournament {
	return &Tournament{
		Registry:    reg,
		Names:       reg.Names(),
		Subset:      subset,
		Runs:        10,
		DetTurns:    500,
		MinTurns:    game.DefaultMinTurns,
		LengthScale: game.DefaultLengthScale,
		Workers:     4,
	}
}

func TestPairingsEnumeration(t *testing.T) {
	is := is.New(t)
	pairs, err := Pairings([]string{"a", "b", "c"}, nil)
	is.NoErr(err)
	is.Equal(pairs, []Pairing{{"a", "b"}, {"a", "c"}, {"b", "c"}})
}

func TestPairingsSubset(t *testing.T) {
	is := is.New(t)
	names := []string{"a", "b", "c", "d"}
	pairs, err := Pairings(names, []string{"d", "b", "nope"})
	is.NoErr(err)
	// Population order wins over subset order.
	is.Equal(pairs, []Pairing{{"b", "d"}})
	is.Equal(Eligible(names, []string{"d", "b", "nope"}), []string{"b", "d"})
}

func TestPairingsSingle(t *testing.T) {
	is := is.New(t)
	names := []string{"a", "b", "c", "d"}
	pairs, err := Pairings(names, []string{"c"})
	is.NoErr(err)
	is.Equal(pairs, []Pairing{{"a", "c"}, {"b", "c"}, {"c", "d"}})
	is.Equal(Eligible(names, []string{"c"}), names)
}

func TestPairingsErrors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		names  []string
		subset []string
		err    error
	}{
		{"empty", nil, nil, ErrNotEnoughStrategies},
		{"one", []string{"a"}, nil, ErrNotEnoughStrategies},
		{"subset of one known", []string{"a", "b"}, []string{"a", "zzz"}, ErrNotEnoughStrategies},
		{"unknown single", []string{"a", "b"}, []string{"zzz"}, ErrNoPairings},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Pairings(tc.names, tc.subset)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestDefectOutranksCooperate(t *testing.T) {
	is := is.New(t)
	tr := newTournament(registry(t), coop, defect)
	res, err := tr.Run(context.Background())
	is.NoErr(err)
	is.Equal(len(res.Pairs), 1)

	p := res.Pairs[0]
	is.True(p.Deterministic)
	is.Equal(p.Samples, 1)
	is.Equal(p.History.Len(), 500)
	assert.InDelta(t, 0, p.ScoreA, 1e-9)
	assert.InDelta(t, 5, p.ScoreB, 1e-9)

	is.Equal(len(res.Standings), 2)
	is.Equal(res.Standings[0].Name, defect)
	is.Equal(res.Standings[0].Rank, 1)
	is.Equal(res.Standings[1].Name, coop)
	is.Equal(res.Standings[1].Rank, 2)
	is.True(res.Standings[0].Score > res.Standings[1].Score)
}

func TestMutualCooperation(t *testing.T) {
	tr := newTournament(registry(t), coop, tft)
	res, err := tr.Run(context.Background())
	require.NoError(t, err)
	p := res.Pairs[0]
	assert.InDelta(t, 3, p.ScoreA, 1e-9)
	assert.InDelta(t, 3, p.ScoreB, 1e-9)
	assert.Equal(t, 0.0, p.StdevA)
	// Tied scores keep enumeration order.
	assert.Equal(t, coop, res.Standings[0].Name)
	assert.Equal(t, tft, res.Standings[1].Name)
}

func TestSampledPairing(t *testing.T) {
	is := is.New(t)
	tr := newTournament(registry(t), rnd, coop)
	tr.Runs = 7
	res, err := tr.Run(context.Background())
	is.NoErr(err)
	p := res.Pairs[0]
	is.Equal(p.A, coop)
	is.Equal(p.B, rnd)
	is.True(!p.Deterministic)
	is.Equal(p.Samples, 7)
	is.True(p.History.Len() >= game.DefaultMinTurns)
	is.True(p.StdevA > 0)
	// coop gets 3 or 0 every turn, random gets 5 or 3.
	is.True(p.ScoreA > 0 && p.ScoreA < 3)
	is.True(p.ScoreB > 3 && p.ScoreB < 5)
}

func TestSingleStrategyPlaysEveryone(t *testing.T) {
	is := is.New(t)
	reg := strategy.NewRegistry()
	for _, n := range []string{"alwaysCooperate", "alwaysDefect", "titForTat", "titForTwoTats"} {
		is.NoErr(reg.Register(strategy.BuiltinGroup, n, mustFactory(t, n)))
	}
	tr := newTournament(reg, tft)
	var seen []Progress
	tr.OnProgress = func(p Progress) { seen = append(seen, p) }
	res, err := tr.Run(context.Background())
	is.NoErr(err)
	is.Equal(len(res.Pairs), 3)
	for _, p := range res.Pairs {
		is.True(p.A == tft || p.B == tft)
	}
	is.Equal(len(res.Standings), 4)
	s, ok := res.Standing(tft)
	is.True(ok)
	is.Equal(s.Pairings, 3)
	s, ok = res.Standing(coop)
	is.True(ok)
	is.Equal(s.Pairings, 1)

	is.Equal(len(seen), 3)
	for i, p := range seen {
		is.Equal(p.Completed, i+1)
		is.Equal(p.Total, 3)
		is.Equal(p.Hits+p.Misses, i+1)
	}
}

// mustFactory returns the factory of a built-in strategy.
func mustFactory(t *testing.T, name string) strategy.Factory {
	full := registry(t)
	return func() (game.Strategy, error) {
		return full.Load(strategy.ID(strategy.BuiltinGroup, name))
	}
}

func TestCacheServesSecondRun(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	var loads atomic.Int64
	reg := strategy.NewRegistry()
	for _, n := range []string{"alwaysCooperate", "alwaysDefect", "titForTat", "random"} {
		f := mustFactory(t, n)
		is.NoErr(reg.Register(strategy.BuiltinGroup, n, func() (game.Strategy, error) {
			loads.Add(1)
			return f()
		}))
	}
	shared := cache.NewShared(cache.NewMemory(), cache.Fingerprint(5, 500, 200, 40))
	is.NoErr(shared.Setup(ctx))

	tr := newTournament(reg)
	tr.Runs = 5
	tr.Cache = shared
	first, err := tr.Run(ctx)
	is.NoErr(err)
	is.Equal(first.Misses, 6)
	is.Equal(first.Hits, 0)
	is.Equal(loads.Load(), int64(12))

	second, err := tr.Run(ctx)
	is.NoErr(err)
	is.Equal(second.Hits, 6)
	is.Equal(second.Misses, 0)
	// Nothing was loaded the second time around.
	is.Equal(loads.Load(), int64(12))
	for i := range first.Pairs {
		is.True(second.Pairs[i].Cached)
		is.Equal(second.Pairs[i].ScoreA, first.Pairs[i].ScoreA)
		is.Equal(second.Pairs[i].StdevB, first.Pairs[i].StdevB)
		is.Equal(second.Pairs[i].Report, first.Pairs[i].Report)
		is.Equal(second.Pairs[i].History.Rows, first.Pairs[i].History.Rows)
	}
	is.Equal(first.Standings[0].Name, second.Standings[0].Name)
}

var errBroken = errors.New("broken strategy")

func TestStrategyErrorFails(t *testing.T) {
	reg := registry(t)
	require.NoError(t, reg.Register("test", "broken", func() (game.Strategy, error) {
		return game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
			if h.Len() == 3 {
				return 0, nil, errBroken
			}
			return game.Cooperate, nil, nil
		}), nil
	}))
	tr := newTournament(reg)
	tr.Workers = 2
	_, err := tr.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)
	assert.Contains(t, err.Error(), "test.broken")
}

func TestMisconfiguredRunsNothing(t *testing.T) {
	var loads atomic.Int64
	reg := strategy.NewRegistry()
	require.NoError(t, reg.Register("test", "only", func() (game.Strategy, error) {
		loads.Add(1)
		return game.StrategyFunc(func(game.View, game.Memory) (game.Move, game.Memory, error) {
			return game.Defect, nil, nil
		}), nil
	}))
	tr := newTournament(reg)
	_, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotEnoughStrategies)

	tr = newTournament(registry(t))
	tr.Runs = 0
	_, err = tr.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrBadNumRuns)

	tr = newTournament(registry(t))
	tr.DetTurns = 100
	_, err = tr.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int64(0), loads.Load())
}

func TestNewFromConfig(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigNumRuns, 3)
	cfg.Set(config.ConfigStrategies, []string{coop, defect})
	cfg.Set(config.ConfigWorkers, 1)
	reg := registry(t)
	is.NoErr(reg.Register("slow", "sleepy", mustFactory(t, "titForTat")))

	tr := New(&cfg, reg, nil, "slow")
	is.Equal(tr.Runs, 3)
	is.Equal(tr.DetTurns, 500)
	is.Equal(tr.MinTurns, 200)
	is.Equal(tr.Subset, []string{coop, defect})
	is.Equal(len(tr.Names), 9)

	res, err := tr.Run(context.Background())
	is.NoErr(err)
	is.Equal(res.Standings[0].Name, defect)
}

func TestRankTies(t *testing.T) {
	is := is.New(t)
	pairs := []PairResult{
		{A: "x", B: "y", ScoreA: 2, ScoreB: 2},
		{A: "x", B: "z", ScoreA: 1, ScoreB: 4},
		{A: "y", B: "z", ScoreA: 1, ScoreB: 0},
	}
	st := rank([]string{"x", "y", "z"}, pairs)
	names := []string{st[0].Name, st[1].Name, st[2].Name}
	// z: 4, x: 3, y: 3 with x first.
	is.Equal(names, []string{"z", "x", "y"})
	is.Equal(st[1].Average, 1.5)
	is.Equal(st[0].Rank, 1)
	is.Equal(st[2].Rank, 3)
	is.True(st[1].CI95 > 0)
}

func TestFormatPair(t *testing.T) {
	h := game.NewHistory(2)
	h.Append(game.Cooperate, game.Defect)
	h.Append(game.Defect, game.Defect)
	got := FormatPair("a", "b", h, 0.5, 3, 0, 0.25)
	want := "a (P1)  VS.  b (P2)\n" +
		"C D \n" +
		"D D \n" +
		"Final score for a: 0.5 ± 0\n" +
		"Final score for b: 3 ± 0.25\n" +
		"\n"
	assert.Equal(t, want, got)
}
