package domain

// MatchStatus é o ciclo de vida de uma partida: Upcoming -> Live -> Finished, sem volta.
type MatchStatus int

const (
	StatusUpcoming MatchStatus = iota + 1
	StatusLive
	StatusFinished
)

func (s MatchStatus) String() string {
	switch s {
	case StatusUpcoming:
		return "upcoming"
	case StatusLive:
		return "live"
	case StatusFinished:
		return "finished"
	}
	return "invalid"
}

// AcceptsBets indica se a partida ainda aceita apostas.
func (s MatchStatus) AcceptsBets() bool {
	return s == StatusUpcoming || s == StatusLive
}

// Outcome é o resultado de uma partida ou a seleção de uma aposta.
// OutcomeUnset só é válido como vencedor de partida ainda não resolvida.
type Outcome int

const (
	OutcomeUnset Outcome = iota
	OutcomeTeam1
	OutcomeTeam2
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnset:
		return "unset"
	case OutcomeTeam1:
		return "team1"
	case OutcomeTeam2:
		return "team2"
	case OutcomeDraw:
		return "draw"
	}
	return "invalid"
}

// IsSide diz se o valor é uma das três seleções apostáveis.
func (o Outcome) IsSide() bool {
	return o == OutcomeTeam1 || o == OutcomeTeam2 || o == OutcomeDraw
}

// ParseOutcome converte o nome usado na API ("team1", "team2", "draw").
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "team1":
		return OutcomeTeam1, true
	case "team2":
		return OutcomeTeam2, true
	case "draw":
		return OutcomeDraw, true
	}
	return OutcomeUnset, false
}

// Match é o registro persistido de uma partida.
type Match struct {
	MatchID     string
	Team1       string
	Team2       string
	StartTime   int64
	OddsTeam1   Odds
	OddsTeam2   Odds
	OddsDraw    Odds
	TotalStaked Money
	Status      MatchStatus
	Winner      Outcome
}

// NewMatch monta uma partida nova: Upcoming, sem vencedor e sem valor apostado.
func NewMatch(matchID, team1, team2 string, startTime int64, oddsTeam1, oddsTeam2, oddsDraw Odds) Match {
	return Match{
		MatchID:   matchID,
		Team1:     team1,
		Team2:     team2,
		StartTime: startTime,
		OddsTeam1: oddsTeam1,
		OddsTeam2: oddsTeam2,
		OddsDraw:  oddsDraw,
		Status:    StatusUpcoming,
		Winner:    OutcomeUnset,
	}
}

// OddsFor devolve as odds da seleção; ok=false para seleções inválidas.
func (m Match) OddsFor(sel Outcome) (Odds, bool) {
	switch sel {
	case OutcomeTeam1:
		return m.OddsTeam1, true
	case OutcomeTeam2:
		return m.OddsTeam2, true
	case OutcomeDraw:
		return m.OddsDraw, true
	}
	return 0, false
}
