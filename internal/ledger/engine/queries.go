package engine

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
)

// Consultas somente leitura. Não alteram estado nem emitem eventos.

func (e *Engine) GetMatch(ctx context.Context, matchID string) (domain.Match, error) {
	if err := domain.ValidateMatchID(matchID); err != nil {
		return domain.Match{}, err
	}
	var m domain.Match
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		m, err = tx.GetMatch(ctx, matchID)
		return err
	})
	return m, err
}

func (e *Engine) GetBet(ctx context.Context, owner domain.Identity, matchID string) (domain.Bet, error) {
	if err := domain.ValidateIdentity(owner); err != nil {
		return domain.Bet{}, err
	}
	if err := domain.ValidateMatchID(matchID); err != nil {
		return domain.Bet{}, err
	}
	var b domain.Bet
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		b, err = tx.GetBet(ctx, owner, matchID)
		return err
	})
	return b, err
}

func (e *Engine) ListMatches(ctx context.Context) ([]domain.Match, error) {
	var out []domain.Match
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListMatches(ctx)
		return err
	})
	return out, err
}

// ListBets lista as apostas de uma partida, que precisa existir.
func (e *Engine) ListBets(ctx context.Context, matchID string) ([]domain.Bet, error) {
	if err := domain.ValidateMatchID(matchID); err != nil {
		return nil, err
	}
	var out []domain.Bet
	err := e.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetMatch(ctx, matchID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListBets(ctx, matchID)
		return err
	})
	return out, err
}

// ListMyBets devolve as apostas do chamador em todas as partidas, por match_id.
func (e *Engine) ListMyBets(ctx context.Context, owner domain.Identity) ([]domain.Bet, error) {
	if err := domain.ValidateIdentity(owner); err != nil {
		return nil, err
	}
	var out []domain.Bet
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListBetsByOwner(ctx, owner)
		return err
	})
	return out, err
}

// Snapshot lê todas as partidas e apostas numa única visão (usado pela reconciliação).
func (e *Engine) Snapshot(ctx context.Context) ([]domain.Match, []domain.Bet, error) {
	var (
		matches []domain.Match
		bets    []domain.Bet
	)
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if matches, err = tx.ListMatches(ctx); err != nil {
			return err
		}
		bets, err = tx.ListBets(ctx, "")
		return err
	})
	return matches, bets, err
}
