package engine

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

func (c ClaimWinnings) authorize(caller Caller) error { return requireIdentity(caller) }

func (c ClaimWinnings) validate(Caller) error {
	return domain.ValidateMatchID(c.MatchID)
}

func (c ClaimWinnings) apply(ctx context.Context, tx store.Tx, caller Caller) (events.Event, error) {
	bet, err := tx.GetBet(ctx, caller.Identity, c.MatchID)
	if err != nil {
		return nil, err
	}
	if bet.Status != domain.BetActive {
		return nil, domain.Errorf(domain.CodeAlreadyProcessed, "bet on match %q already %s", c.MatchID, bet.Status)
	}
	m, err := tx.GetMatch(ctx, c.MatchID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusFinished {
		return nil, domain.Errorf(domain.CodeMatchNotFinished, "match %q is %s", c.MatchID, m.Status)
	}

	var ev events.Event
	if bet.Selection == m.Winner {
		bet.Status = domain.BetWon
		ev = events.BetWon{Owner: caller.Identity.String(), MatchID: c.MatchID, Payout: uint64(bet.PotentialWinnings)}
	} else {
		bet.Status = domain.BetLost
		ev = events.BetLost{Owner: caller.Identity.String(), MatchID: c.MatchID}
	}
	if err := tx.UpdateBet(ctx, bet); err != nil {
		return nil, err
	}
	return ev, nil
}
