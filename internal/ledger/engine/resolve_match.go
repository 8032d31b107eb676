package engine

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

func (c ResolveMatch) authorize(caller Caller) error { return requireAdmin(caller) }

func (c ResolveMatch) validate(Caller) error {
	return domain.ValidateMatchID(c.MatchID)
}

// O vencedor é checado depois de AlreadyResolved, então resolver de novo
// uma partida encerrada sempre falha com AlreadyResolved.
func (c ResolveMatch) apply(ctx context.Context, tx store.Tx, _ Caller) (events.Event, error) {
	m, err := tx.GetMatch(ctx, c.MatchID)
	if err != nil {
		return nil, err
	}
	if m.Status == domain.StatusFinished {
		return nil, domain.Errorf(domain.CodeAlreadyResolved, "match %q already resolved", c.MatchID)
	}
	if !c.Winner.IsSide() {
		return nil, domain.Errorf(domain.CodeInvalidArgument, "winner %s is not team1, team2 or draw", c.Winner)
	}

	m.Status = domain.StatusFinished
	m.Winner = c.Winner
	if err := tx.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	return events.MatchResolved{MatchID: c.MatchID, Winner: c.Winner.String()}, nil
}
