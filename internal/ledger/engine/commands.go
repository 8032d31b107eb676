package engine

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

// Nomes estáveis dos comandos (journal, métricas, spans).
const (
	KindCreateMatch   = "create_match"
	KindPlaceBet      = "place_bet"
	KindResolveMatch  = "resolve_match"
	KindClaimWinnings = "claim_winnings"
)

// Command é um dos quatro comandos do ledger. O conjunto é fechado:
// só tipos deste pacote implementam apply.
type Command interface {
	Kind() string
	Match() string

	// authorize/validate rodam antes de abrir a transação.
	authorize(c Caller) error
	validate(c Caller) error
	// apply lê, valida contra o estado e escreve; devolve o evento a emitir após o commit.
	apply(ctx context.Context, tx store.Tx, c Caller) (events.Event, error)
}

// Caller é o contexto fornecido pelo oráculo de autorização do host.
type Caller struct {
	Identity domain.Identity
	IsAdmin  bool
}

// CreateMatch cadastra uma partida (somente admin).
type CreateMatch struct {
	MatchID   string
	Team1     string
	Team2     string
	StartTime int64
	OddsTeam1 domain.Odds
	OddsTeam2 domain.Odds
	OddsDraw  domain.Odds
}

// PlaceBet registra a aposta do chamador na partida.
type PlaceBet struct {
	MatchID   string
	Amount    domain.Money
	Selection domain.Outcome
}

// ResolveMatch define o vencedor e encerra a partida (somente admin).
type ResolveMatch struct {
	MatchID string
	Winner  domain.Outcome
}

// ClaimWinnings liquida a aposta (chamador, partida) como Won ou Lost.
type ClaimWinnings struct {
	MatchID string
}

func (CreateMatch) Kind() string   { return KindCreateMatch }
func (PlaceBet) Kind() string      { return KindPlaceBet }
func (ResolveMatch) Kind() string  { return KindResolveMatch }
func (ClaimWinnings) Kind() string { return KindClaimWinnings }

func (c CreateMatch) Match() string   { return c.MatchID }
func (c PlaceBet) Match() string      { return c.MatchID }
func (c ResolveMatch) Match() string  { return c.MatchID }
func (c ClaimWinnings) Match() string { return c.MatchID }

func requireAdmin(c Caller) error {
	if !c.IsAdmin {
		return domain.Errorf(domain.CodeUnauthorized, "caller is not the admin")
	}
	return nil
}

func requireIdentity(c Caller) error {
	return domain.ValidateIdentity(c.Identity)
}
