package engine

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

func (c PlaceBet) authorize(caller Caller) error { return requireIdentity(caller) }

func (c PlaceBet) validate(Caller) error {
	return domain.ValidateMatchID(c.MatchID)
}

// apply segue a ordem das pré-condições: partida, status, seleção, valor,
// aposta existente, aritmética. Nada é escrito antes de todas passarem.
func (c PlaceBet) apply(ctx context.Context, tx store.Tx, caller Caller) (events.Event, error) {
	m, err := tx.GetMatch(ctx, c.MatchID)
	if err != nil {
		return nil, err
	}
	if !m.Status.AcceptsBets() {
		return nil, domain.Errorf(domain.CodeMatchFinished, "match %q is finished", c.MatchID)
	}
	odds, ok := m.OddsFor(c.Selection)
	if !ok {
		return nil, domain.Errorf(domain.CodeInvalidSelection, "selection %s is not team1, team2 or draw", c.Selection)
	}
	if c.Amount == 0 {
		return nil, domain.Errorf(domain.CodeInvalidArgument, "amount must be greater than zero")
	}
	if _, err := tx.GetBet(ctx, caller.Identity, c.MatchID); err == nil {
		return nil, domain.Errorf(domain.CodeAlreadyExists, "bet on match %q already placed", c.MatchID)
	} else if domain.CodeOf(err) != domain.CodeNotFound {
		return nil, err
	}

	potential, err := c.Amount.Mul(odds)
	if err != nil {
		return nil, err
	}
	total, err := m.TotalStaked.Add(c.Amount)
	if err != nil {
		return nil, err
	}

	m.TotalStaked = total
	if err := tx.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	bet := domain.Bet{
		Owner:             caller.Identity,
		MatchID:           c.MatchID,
		Amount:            c.Amount,
		Selection:         c.Selection,
		LockedOdds:        odds,
		Status:            domain.BetActive,
		PotentialWinnings: potential,
	}
	if err := tx.CreateBet(ctx, bet); err != nil {
		return nil, err
	}
	return events.BetPlaced{
		Owner:     caller.Identity.String(),
		MatchID:   c.MatchID,
		Amount:    uint64(c.Amount),
		Selection: c.Selection.String(),
	}, nil
}
