package domain

// BetStatus: Active -> Won | Lost, transição única.
type BetStatus int

const (
	BetActive BetStatus = iota + 1
	BetWon
	BetLost
)

func (s BetStatus) String() string {
	switch s {
	case BetActive:
		return "active"
	case BetWon:
		return "won"
	case BetLost:
		return "lost"
	}
	return "invalid"
}

// Settled indica aposta já liquidada (Won ou Lost).
func (s BetStatus) Settled() bool {
	return s == BetWon || s == BetLost
}

// Bet é o registro persistido de uma aposta. Uma por (Owner, MatchID).
type Bet struct {
	Owner             Identity
	MatchID           string
	Amount            Money
	Selection         Outcome
	LockedOdds        Odds
	Status            BetStatus
	PotentialWinnings Money
}

// Key devolve a chave determinística do registro.
func (b Bet) Key() []byte { return BetKey(b.Owner, b.MatchID) }
