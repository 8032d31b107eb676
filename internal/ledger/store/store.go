// Package store guarda os registros de partidas e apostas.
//
// Toda escrita acontece dentro de Update: ou a função devolve nil e todas as
// escritas são confirmadas juntas, ou nada muda. Leituras devolvem cópias.
package store

import (
	"context"
	"sort"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
)

// Tx é a visão de um único comando sobre o store.
type Tx interface {
	// CreateMatch falha com domain.ErrAlreadyExists se a chave estiver ocupada.
	CreateMatch(ctx context.Context, m domain.Match) error
	// CreateBet falha com domain.ErrAlreadyExists se a chave estiver ocupada.
	CreateBet(ctx context.Context, b domain.Bet) error

	GetMatch(ctx context.Context, matchID string) (domain.Match, error)
	GetBet(ctx context.Context, owner domain.Identity, matchID string) (domain.Bet, error)

	// UpdateMatch/UpdateBet sobrescrevem um registro existente; domain.ErrNotFound se ausente.
	UpdateMatch(ctx context.Context, m domain.Match) error
	UpdateBet(ctx context.Context, b domain.Bet) error

	// ListMatches devolve as partidas ordenadas por match_id.
	ListMatches(ctx context.Context) ([]domain.Match, error)
	// ListBets devolve as apostas da partida; matchID vazio lista todas.
	ListBets(ctx context.Context, matchID string) ([]domain.Bet, error)
	// ListBetsByOwner devolve as apostas de um dono em todas as partidas, por match_id.
	ListBetsByOwner(ctx context.Context, owner domain.Identity) ([]domain.Bet, error)
}

// Store executa transações atômicas. Conflitos otimistas viram domain.ErrRetry.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

func sortMatches(matches []domain.Match) {
	sort.Slice(matches, func(i, j int) bool { return matches[i].MatchID < matches[j].MatchID })
}

func sortBets(bets []domain.Bet) {
	sort.Slice(bets, func(i, j int) bool {
		if bets[i].MatchID != bets[j].MatchID {
			return bets[i].MatchID < bets[j].MatchID
		}
		return bets[i].Owner < bets[j].Owner
	})
}

func matchNotFound(matchID string) error {
	return domain.Errorf(domain.CodeNotFound, "match %q not found", matchID)
}

func betNotFound(owner domain.Identity, matchID string) error {
	return domain.Errorf(domain.CodeNotFound, "bet (%s, %q) not found", owner, matchID)
}

func matchExists(matchID string) error {
	return domain.Errorf(domain.CodeAlreadyExists, "match %q already exists", matchID)
}

func betExists(owner domain.Identity, matchID string) error {
	return domain.Errorf(domain.CodeAlreadyExists, "bet (%s, %q) already exists", owner, matchID)
}
