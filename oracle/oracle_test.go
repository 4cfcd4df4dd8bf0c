package oracle

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/dilemma/game"
)

const epsilon = 1e-9

func constant(m game.Move) game.Strategy {
	return game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
		return m, mem, nil
	})
}

var alternate = game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	return game.Move(h.Len() % 2), nil, nil
})

// titForTat is a pure function of history.
var titForTat = game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	if h.Len() == 0 {
		return game.Cooperate, nil, nil
	}
	return h.Opp(h.Len() - 1), nil, nil
})

func coinFlip() game.Strategy {
	return game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
		return game.Move(rand.IntN(2)), nil, nil
	})
}

// fromMemory cooperates only while its memory counter is even; deterministic
// because the memory is threaded separately for the probe.
var fromMemory = game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	n := 0
	if mem != nil {
		n = mem.(int)
	}
	return game.Move((n + 1) % 2), n + 1, nil
})

func newOracle(t *testing.T, minTurns, maxTurns int) *Oracle {
	tc, err := NewTurnChances(minTurns, maxTurns, 40)
	require.NoError(t, err)
	return New(tc)
}

func TestTurnChancesSumToOne(t *testing.T) {
	for _, tc := range []struct{ min, max int }{
		{200, 200}, {200, 201}, {200, 500}, {200, 2000}, {1, 10}, {50, 60}, {10, 5000},
	} {
		chances, err := NewTurnChances(tc.min, tc.max, 40)
		require.NoError(t, err)
		assert.Equal(t, tc.max-tc.min+1, chances.Len())
		assert.InDelta(t, 1.0, chances.Sum(), epsilon, "min %d max %d", tc.min, tc.max)
	}
}

func TestTurnChancesShape(t *testing.T) {
	is := is.New(t)
	chances, err := NewTurnChances(200, 500, 40)
	is.NoErr(err)
	// Every step keeps a constant continuation probability of 39/40.
	for i := 1; i < chances.Len(); i++ {
		is.True(math.Abs(chances.At(i)/chances.At(i-1)-39.0/40.0) < epsilon)
	}
}

func TestTurnChancesErrors(t *testing.T) {
	_, err := NewTurnChances(200, 199, 40)
	assert.Error(t, err)
	_, err = NewTurnChances(200, 300, 0)
	assert.Error(t, err)
	_, err = NewTurnChances(0, 300, 40)
	assert.Error(t, err)
}

func TestExactCooperation(t *testing.T) {
	is := is.New(t)
	o := newOracle(t, 200, 500)
	a, b, h, ok, err := o.Evaluate(constant(game.Cooperate), constant(game.Cooperate))
	is.NoErr(err)
	is.True(ok)
	is.Equal(h.Len(), 500)
	is.True(math.Abs(a-3) < epsilon)
	is.True(math.Abs(b-3) < epsilon)
}

func TestExactDefection(t *testing.T) {
	is := is.New(t)
	o := newOracle(t, 200, 500)
	a, b, _, ok, err := o.Evaluate(constant(game.Defect), constant(game.Defect))
	is.NoErr(err)
	is.True(ok)
	is.True(math.Abs(a-1) < epsilon)
	is.True(math.Abs(b-1) < epsilon)
}

func TestExactExploitation(t *testing.T) {
	is := is.New(t)
	o := newOracle(t, 200, 300)
	a, b, _, ok, err := o.Evaluate(constant(game.Defect), constant(game.Cooperate))
	is.NoErr(err)
	is.True(ok)
	is.True(math.Abs(a-5) < epsilon)
	is.True(math.Abs(b-0) < epsilon)
}

func TestExpectedMatchesSampledAverage(t *testing.T) {
	// Tit for tat against an alternator alternates payoffs; the exact value
	// should agree with a brute-force weighted average over stop turns.
	is := is.New(t)
	o := newOracle(t, 10, 60)
	h, ok, err := o.Check(titForTat, alternate)
	is.NoErr(err)
	is.True(ok)

	expA, expB, err := o.Chances().Expected(h)
	is.NoErr(err)

	var wantA, wantB float64
	for i := 0; i < o.Chances().Len(); i++ {
		stop := 9 + i
		prefix := game.NewHistory(stop + 1)
		for t := 0; t <= stop; t++ {
			prefix.Append(h.Rows[0][t], h.Rows[1][t])
		}
		sa, sb := prefix.Scores()
		wantA += sa * o.Chances().At(i)
		wantB += sb * o.Chances().At(i)
	}
	is.True(math.Abs(expA-wantA) < epsilon)
	is.True(math.Abs(expB-wantB) < epsilon)
}

func TestExpectedWrongLength(t *testing.T) {
	o := newOracle(t, 10, 20)
	h := game.NewHistory(5)
	_, _, err := o.Chances().Expected(h)
	assert.Error(t, err)
}

func TestDeterministicClassification(t *testing.T) {
	o := newOracle(t, 200, 500)
	for _, tc := range []struct {
		name string
		a, b game.Strategy
		want bool
	}{
		{"parity", alternate, constant(game.Cooperate), true},
		{"tit for tat vs parity", titForTat, alternate, true},
		{"memory", fromMemory, titForTat, true},
		{"random A", coinFlip(), alternate, false},
		{"random B", titForTat, coinFlip(), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, ok, err := o.Check(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestHiddenCounterIsNotDeterministic(t *testing.T) {
	is := is.New(t)
	calls := 0
	counting := game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
		calls++
		return game.Move(calls % 2), nil, nil
	})
	o := newOracle(t, 200, 500)
	_, ok, err := o.Check(counting, alternate)
	is.NoErr(err)
	is.True(!ok)
}

func TestCheckPropagatesErrors(t *testing.T) {
	is := is.New(t)
	boom := errors.New("boom")
	bad := game.StrategyFunc(func(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
		return 0, nil, boom
	})
	o := newOracle(t, 200, 500)
	_, _, _, _, err := o.Evaluate(bad, alternate)
	is.True(errors.Is(err, boom))
}
