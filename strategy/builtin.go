package strategy

import (
	"lukechampine.com/frand"

	"github.com/domino14/dilemma/game"
)

const BuiltinGroup = "builtin"

type pure func(h game.View) game.Move

func (p pure) Decide(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	return p(h), mem, nil
}

func stateless(p pure) Factory {
	return func() (game.Strategy, error) { return p, nil }
}

func last(h game.View) (own, opp game.Move) {
	n := h.Len()
	return h.Own(n - 1), h.Opp(n - 1)
}

var alwaysCooperate = pure(func(game.View) game.Move { return game.Cooperate })

var alwaysDefect = pure(func(game.View) game.Move { return game.Defect })

var titForTat = pure(func(h game.View) game.Move {
	if h.Len() == 0 {
		return game.Cooperate
	}
	_, opp := last(h)
	return opp
})

// titForTwoTats only retaliates after two defections in a row.
var titForTwoTats = pure(func(h game.View) game.Move {
	n := h.Len()
	if n >= 2 && h.Opp(n-1) == game.Defect && h.Opp(n-2) == game.Defect {
		return game.Defect
	}
	return game.Cooperate
})

var alternate = pure(func(h game.View) game.Move {
	if h.Len()%2 == 0 {
		return game.Cooperate
	}
	return game.Defect
})

// detective opens with C D C C. If the opponent never retaliated it
// exploits them, otherwise it plays tit for tat.
var detective = pure(func(h game.View) game.Move {
	opening := [4]game.Move{game.Cooperate, game.Defect, game.Cooperate, game.Cooperate}
	n := h.Len()
	if n < len(opening) {
		return opening[n]
	}
	for t := 0; t < len(opening); t++ {
		if h.Opp(t) == game.Defect {
			_, opp := last(h)
			return opp
		}
	}
	return game.Defect
})

// grudger cooperates until the first defection, then defects forever. It
// remembers the grudge in its memory rather than rescanning history.
type grudger struct{}

func (grudger) Decide(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	wronged, _ := mem.(bool)
	if !wronged && h.Len() > 0 {
		_, opp := last(h)
		wronged = opp == game.Defect
	}
	if wronged {
		return game.Defect, true, nil
	}
	return game.Cooperate, false, nil
}

type random struct{}

func (random) Decide(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	return game.Move(frand.Intn(2)), nil, nil
}

// joss plays tit for tat but sneaks in a defection 10% of the time.
type joss struct{}

func (joss) Decide(h game.View, mem game.Memory) (game.Move, game.Memory, error) {
	m, _, _ := titForTat.Decide(h, nil)
	if m == game.Cooperate && frand.Intn(10) == 0 {
		return game.Defect, nil, nil
	}
	return m, nil, nil
}

var builtins = []struct {
	name    string
	factory Factory
}{
	{"alwaysCooperate", stateless(alwaysCooperate)},
	{"alwaysDefect", stateless(alwaysDefect)},
	{"titForTat", stateless(titForTat)},
	{"titForTwoTats", stateless(titForTwoTats)},
	{"alternate", stateless(alternate)},
	{"detective", stateless(detective)},
	{"grudger", func() (game.Strategy, error) { return grudger{}, nil }},
	{"random", func() (game.Strategy, error) { return random{}, nil }},
	{"joss", func() (game.Strategy, error) { return joss{}, nil }},
}

// RegisterBuiltins adds the strategies compiled into the binary to r,
// under the builtin group.
func RegisterBuiltins(r *Registry) error {
	for _, b := range builtins {
		if err := r.Register(BuiltinGroup, b.name, b.factory); err != nil {
			return err
		}
	}
	return nil
}
