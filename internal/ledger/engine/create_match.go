package engine

import (
	"context"

	"github.com/radieske/match-betting-ledger/internal/ledger/domain"
	"github.com/radieske/match-betting-ledger/internal/ledger/store"
	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

func (c CreateMatch) authorize(caller Caller) error { return requireAdmin(caller) }

func (c CreateMatch) validate(Caller) error {
	if err := domain.ValidateMatchID(c.MatchID); err != nil {
		return err
	}
	if err := domain.ValidateTeamName("team1", c.Team1); err != nil {
		return err
	}
	if err := domain.ValidateTeamName("team2", c.Team2); err != nil {
		return err
	}
	if c.OddsTeam1 == 0 || c.OddsTeam2 == 0 || c.OddsDraw == 0 {
		return domain.Errorf(domain.CodeInvalidArgument, "odds must be greater than zero")
	}
	return nil
}

func (c CreateMatch) apply(ctx context.Context, tx store.Tx, _ Caller) (events.Event, error) {
	m := domain.NewMatch(c.MatchID, c.Team1, c.Team2, c.StartTime, c.OddsTeam1, c.OddsTeam2, c.OddsDraw)
	if err := tx.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	return events.MatchCreated{MatchID: m.MatchID}, nil
}
