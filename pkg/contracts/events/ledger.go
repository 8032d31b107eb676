package events

// Type identifica o evento de auditoria no envelope e no tópico.
type Type string

const (
	TypeMatchCreated  Type = "match_created"
	TypeBetPlaced     Type = "bet_placed"
	TypeMatchResolved Type = "match_resolved"
	TypeBetWon        Type = "bet_won"
	TypeBetLost       Type = "bet_lost"
)

// Event é implementado por todos os eventos emitidos pelo ledger.
// Valores monetários são inteiros (unidades de 10^-9); owner vai em base64url.
type Event interface {
	EventType() Type
	EventMatchID() string
}

// MatchCreated é emitido pelo create-match.
type MatchCreated struct {
	MatchID string `json:"match_id"`
}

// BetPlaced é emitido pelo place-bet; o host deve cobrar Amount do owner.
type BetPlaced struct {
	Owner     string `json:"owner"`
	MatchID   string `json:"match_id"`
	Amount    uint64 `json:"amount"`
	Selection string `json:"selection"` // team1 | team2 | draw
}

// MatchResolved é emitido pelo resolve-match.
type MatchResolved struct {
	MatchID string `json:"match_id"`
	Winner  string `json:"winner"`
}

// BetWon é emitido pelo claim-winnings vencedor; o host deve pagar Payout.
type BetWon struct {
	Owner   string `json:"owner"`
	MatchID string `json:"match_id"`
	Payout  uint64 `json:"payout"`
}

// BetLost é emitido pelo claim-winnings perdedor. Sem pagamento.
type BetLost struct {
	Owner   string `json:"owner"`
	MatchID string `json:"match_id"`
}

func (MatchCreated) EventType() Type  { return TypeMatchCreated }
func (BetPlaced) EventType() Type     { return TypeBetPlaced }
func (MatchResolved) EventType() Type { return TypeMatchResolved }
func (BetWon) EventType() Type        { return TypeBetWon }
func (BetLost) EventType() Type       { return TypeBetLost }

func (e MatchCreated) EventMatchID() string  { return e.MatchID }
func (e BetPlaced) EventMatchID() string     { return e.MatchID }
func (e MatchResolved) EventMatchID() string { return e.MatchID }
func (e BetWon) EventMatchID() string        { return e.MatchID }
func (e BetLost) EventMatchID() string       { return e.MatchID }
