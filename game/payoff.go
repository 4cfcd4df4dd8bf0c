package game

const (
	// Temptation is what a defector gets against a cooperator.
	Temptation = 5
	// Reward is what each player gets for mutual cooperation.
	Reward = 3
	// Punishment is what each player gets for mutual defection.
	Punishment = 1
	// Sucker is what a cooperator gets against a defector.
	Sucker = 0
)

// payoffs[own][opp] is how many points you receive if you play own and your
// opponent plays opp.
var payoffs = [2][2]int{
	{Punishment, Temptation},
	{Sucker, Reward},
}

// Payoff returns the points earned for playing own against opp.
func Payoff(own, opp Move) int {
	return payoffs[own.Normalize()][opp.Normalize()]
}
